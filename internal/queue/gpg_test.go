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

package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGpgProgramResolution(t *testing.T) {
	ctx := testContext(t)
	cfg := ctx.Config

	// nothing configured: plain gpg, no key
	g := GpgFromConfig(cfg)
	assert.Equal(t, "gpg", g.Program)
	assert.Equal(t, "", g.SignKey)

	// program priority: gpg.program < gpg.openpgp.program < gpg.x509.program
	require.NoError(t, cfg.SetString("gpg.program", "prog-generic"))
	assert.Equal(t, "prog-generic", GpgFromConfig(cfg).Program)

	require.NoError(t, cfg.SetString("gpg.openpgp.program", "prog-openpgp"))
	assert.Equal(t, "prog-openpgp", GpgFromConfig(cfg).Program)

	require.NoError(t, cfg.SetString("gpg.x509.program", "prog-x509"))
	assert.Equal(t, "prog-x509", GpgFromConfig(cfg).Program)

	// an explicit format overrides the program chain
	require.NoError(t, cfg.SetString("gpg.format", "openpgp"))
	assert.Equal(t, "gpg", GpgFromConfig(cfg).Program)
	require.NoError(t, cfg.SetString("gpg.format", "x509"))
	assert.Equal(t, "gpgsm", GpgFromConfig(cfg).Program)

	require.NoError(t, cfg.SetString("user.signingkey", "CAFEBABE"))
	assert.Equal(t, "CAFEBABE", GpgFromConfig(cfg).SignKey)
}

func TestGpgSignBufferNotImplemented(t *testing.T) {
	g := &Gpg{Program: "gpg"}
	_, err := g.SignBuffer([]byte("payload"))
	assert.Error(t, err)
}
