// Copyright (C) 2025  Nexedi SA and Contributors.
//                     Kirill Smelkov <kirr@nexedi.com>
//
// This program is free software: you can Use, Study, Modify and Redistribute
// it under the terms of the GNU General Public License version 3, or (at your
// option) any later version, as published by the Free Software Foundation.
//
// This program is distributed WITHOUT ANY WARRANTY; without even the implied
// warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
//
// See COPYING file for full licensing terms.

// Git-queue | Error taxonomy
package queue

import (
	"errors"
	"fmt"
)

// Kind classifies queue errors; the CLI maps each kind to an exit code.
type Kind int

const (
	// KindGit passes a repository-service error through unclassified; the
	// CLI mapper inspects its class and code.
	KindGit Kind = iota
	KindNotInRepository
	KindNotInitialized
	KindInconsistency
	KindInvalidName
	KindNonUtf8
	KindAlreadyExists
	KindInvalidMetadata
	// KindUsage marks operations rejected because of how they were invoked
	// (the refused --force close path).
	KindUsage
)

// Error is the queue-level error type. Area qualifies Inconsistency and
// AlreadyExists kinds with a short human tag ("queuelog", "patch", ...).
type Error struct {
	Kind Kind
	Area string
	Err  error // wrapped cause, possibly nil
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNotInRepository:
		return "not in a repository"
	case KindNotInitialized:
		return "the repository exists but is not initialized"
	case KindInconsistency:
		return fmt.Sprintf("detected inconsistency in %s, did you run a git command manually?", e.Area)
	case KindInvalidName:
		return "the received name is invalid"
	case KindNonUtf8:
		return "the received name is not valid UTF-8"
	case KindAlreadyExists:
		return fmt.Sprintf("%s already exists", e.Area)
	case KindInvalidMetadata:
		return fmt.Sprintf("invalid queue metadata: %s", e.Area)
	case KindUsage:
		return e.Area
	default:
		return e.Err.Error()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the Kind of err, or KindGit when err is not a queue error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindGit
}

func notInRepository(cause error) error {
	return &Error{Kind: KindNotInRepository, Err: cause}
}

func inconsistency(area string) error {
	return &Error{Kind: KindInconsistency, Area: area}
}

func invalidName(cause error) error {
	return &Error{Kind: KindInvalidName, Err: cause}
}

func nonUtf8() error {
	return &Error{Kind: KindNonUtf8}
}

func alreadyExists(what string) error {
	return &Error{Kind: KindAlreadyExists, Area: what}
}

func invalidMetadata(what string) error {
	return &Error{Kind: KindInvalidMetadata, Area: what}
}

func usageError(format string, argv ...interface{}) error {
	return &Error{Kind: KindUsage, Area: fmt.Sprintf(format, argv...)}
}
