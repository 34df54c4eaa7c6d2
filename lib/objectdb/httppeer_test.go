// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

package objectdb_test

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AcaciaLinux/tooling-go/lib/object"
	"github.com/AcaciaLinux/tooling-go/lib/objectdb"
	"github.com/AcaciaLinux/tooling-go/lib/oid"
)

func TestHTTPPeerRoundTripsThroughServer(t *testing.T) {
	ctx := context.Background()
	served := objectdb.New(newDriver(t))

	inserted, err := served.InsertStream(ctx, bytes.NewReader([]byte("served over http")), object.TypeOther, nil, object.CompressionXz)
	require.NoError(t, err)

	srv := httptest.NewServer(objectdb.NewHandler(ctx, served))
	defer srv.Close()

	peer := objectdb.NewHTTPPeer(srv.URL, srv.Client())

	r, ok, err := peer.TryRetrieve(ctx, inserted.OID)
	require.NoError(t, err)
	require.True(t, ok)
	defer r.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(r.Payload)
	require.NoError(t, err)
	assert.Equal(t, "served over http", buf.String())

	assert.True(t, peer.Exists(ctx, inserted.OID))
}

func TestHTTPPeerMissingObjectIsNotFound(t *testing.T) {
	ctx := context.Background()
	served := objectdb.New(newDriver(t))

	srv := httptest.NewServer(objectdb.NewHandler(ctx, served))
	defer srv.Close()

	peer := objectdb.NewHTTPPeer(srv.URL, srv.Client())

	_, ok, err := peer.TryRetrieve(ctx, oid.OID{})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, peer.Exists(ctx, oid.OID{}))
}

func TestHTTPPeerMalformedOIDIsRejected(t *testing.T) {
	ctx := context.Background()
	served := objectdb.New(newDriver(t))

	srv := httptest.NewServer(objectdb.NewHandler(ctx, served))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/object/not-hex")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 406, resp.StatusCode)
}

func TestHTTPPeerPullIntegratesWithObjectDatabasePull(t *testing.T) {
	ctx := context.Background()
	served := objectdb.New(newDriver(t))

	c, err := served.InsertStream(ctx, bytes.NewReader([]byte("C")), object.TypeOther, nil, object.CompressionNone)
	require.NoError(t, err)
	root, err := served.InsertStream(ctx, bytes.NewReader([]byte("R")), object.TypeOther, []oid.OID{c.OID}, object.CompressionNone)
	require.NoError(t, err)

	srv := httptest.NewServer(objectdb.NewHandler(ctx, served))
	defer srv.Close()
	peer := objectdb.NewHTTPPeer(srv.URL, srv.Client())

	local := objectdb.New(newDriver(t))
	require.NoError(t, local.Pull(ctx, peer, root.OID, object.CompressionNone, true))

	assert.True(t, local.Exists(ctx, root.OID))
	assert.True(t, local.Exists(ctx, c.OID))
}
