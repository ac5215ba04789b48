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

package cmd

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.gitqueue.dev/gq/internal/queue"
)

func TestMapErrorTaxonomy(t *testing.T) {
	var tests = []struct {
		kind queue.Kind
		code int
	}{
		{queue.KindNotInRepository, exUsage},
		{queue.KindNotInitialized, exUsage},
		{queue.KindUsage, exUsage},
		{queue.KindInconsistency, exDataErr},
		{queue.KindInvalidName, exDataErr},
		{queue.KindNonUtf8, exDataErr},
		{queue.KindInvalidMetadata, exDataErr},
		{queue.KindAlreadyExists, exCantCreat},
	}

	for _, tt := range tests {
		err := mapError(&queue.Error{Kind: tt.kind, Area: "x"})
		var cerr *cliError
		require.ErrorAs(t, err, &cerr, "kind %v", tt.kind)
		assert.Equal(t, tt.code, cerr.code, "kind %v", tt.kind)
	}
}

func TestMapErrorNil(t *testing.T) {
	assert.NoError(t, mapError(nil))
}

func TestMapErrorKeepsCliError(t *testing.T) {
	orig := fail(exDataErr, "queue `%s` not found", "work")
	assert.Same(t, orig, mapError(orig))
}

func TestMapErrorPreservesCause(t *testing.T) {
	cause := errors.New("ref locked")
	err := mapError(&queue.Error{Kind: queue.KindInvalidName, Err: cause})
	assert.ErrorIs(t, err, cause)
}
