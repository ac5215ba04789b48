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

// Git-queue CLI | Exit-code translation
package cmd

import (
	"errors"
	"fmt"

	"go.gitqueue.dev/gq/internal/git"
	"go.gitqueue.dev/gq/internal/queue"
)

// sysexits.h
const (
	exUsage     = 64 // bad invocation
	exDataErr   = 65 // bad on-disk data, bad name
	exOsErr     = 71 // operating-system class failure
	exCantCreat = 73 // a ref that must be created already exists
	exIOErr     = 74 // filesystem or network class failure
	exTempFail  = 75 // out of memory
)

// cliError pairs an error with the exit code it maps to.
type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string { return e.err.Error() }
func (e *cliError) Unwrap() error { return e.err }

func fail(code int, format string, argv ...interface{}) error {
	return &cliError{code, fmt.Errorf(format, argv...)}
}

// mapError classifies err per the queue error taxonomy, or - for
// repository-service errors - per the underlying error class and code.
// Any unrecognized class is an internal bug.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var cerr *cliError
	if errors.As(err, &cerr) {
		return err
	}

	var qerr *queue.Error
	if errors.As(err, &qerr) {
		var code int
		switch qerr.Kind {
		case queue.KindNotInRepository, queue.KindNotInitialized, queue.KindUsage:
			code = exUsage
		case queue.KindInconsistency, queue.KindInvalidName, queue.KindNonUtf8, queue.KindInvalidMetadata:
			code = exDataErr
		case queue.KindAlreadyExists:
			code = exCantCreat
		default:
			return &cliError{mapGitCode(qerr.Err), err}
		}
		return &cliError{code, err}
	}

	if git.IsUnbornBranch(err) {
		return &cliError{exUsage, errors.New("the current branch is not initialized")}
	}
	return &cliError{mapGitCode(err), err}
}

func mapGitCode(err error) int {
	switch git.ErrorClass(err) {
	case git.ErrorClassOs:
		return exOsErr
	case git.ErrorClassFilesystem, git.ErrorClassNet:
		return exIOErr
	case git.ErrorClassNoMemory:
		return exTempFail
	default:
		panic(fmt.Sprintf("internal error. This is a bug! Error: %s", err))
	}
}
