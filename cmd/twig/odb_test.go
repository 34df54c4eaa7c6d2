// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AcaciaLinux/tooling-go/lib/objectdb"
)

func TestOpenPeerLocalDirectory(t *testing.T) {
	peer, err := openPeer(t.TempDir())
	require.NoError(t, err)
	_, ok := peer.(*objectdb.FSDriver)
	assert.True(t, ok)
}

func TestOpenPeerHTTPURL(t *testing.T) {
	peer, err := openPeer("http://example.invalid:8080")
	require.NoError(t, err)
	_, ok := peer.(*objectdb.HTTPPeer)
	assert.True(t, ok)
}

func TestOpenPeerHTTPSURL(t *testing.T) {
	peer, err := openPeer("https://example.invalid")
	require.NoError(t, err)
	_, ok := peer.(*objectdb.HTTPPeer)
	assert.True(t, ok)
}
