// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

package objectdb_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AcaciaLinux/tooling-go/lib/aerrors"
	"github.com/AcaciaLinux/tooling-go/lib/object"
	"github.com/AcaciaLinux/tooling-go/lib/objectdb"
	"github.com/AcaciaLinux/tooling-go/lib/oid"
)

func newDriver(t *testing.T) *objectdb.FSDriver {
	t.Helper()
	d, err := objectdb.NewFSDriver(t.TempDir(), objectdb.DefaultDepth, 8)
	require.NoError(t, err)
	return d
}

func countObjectFiles(t *testing.T, root string) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		require.NoError(t, err)
		if !d.IsDir() && filepath.Ext(path) == ".oba" {
			n++
		}
		return nil
	})
	require.NoError(t, err)
	return n
}

func TestInsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	d := newDriver(t)
	db := objectdb.New(d)

	src := bytes.NewReader([]byte("hello, acacia"))
	o1, err := db.InsertStream(ctx, src, object.TypeOther, nil, object.CompressionNone)
	require.NoError(t, err)

	src2 := bytes.NewReader([]byte("hello, acacia"))
	o2, err := db.InsertStream(ctx, src2, object.TypeOther, nil, object.CompressionNone)
	require.NoError(t, err)

	assert.Equal(t, o1.OID, o2.OID)
	assert.Equal(t, 1, countObjectFiles(t, d.Root()))
}

func TestInsertPrehashedMismatchLeavesNoArtifact(t *testing.T) {
	ctx := context.Background()
	d := newDriver(t)
	db := objectdb.New(d)

	wrongOID := object.DeriveOID([]byte("not the payload"), nil)
	_, err := db.InsertPrehashed(ctx, bytes.NewReader([]byte("actual payload")), wrongOID, object.TypeOther, nil, object.CompressionNone)
	require.Error(t, err)

	kind, ok := aerrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, aerrors.KindOIDMismatch, kind)

	assert.False(t, db.Exists(ctx, wrongOID))
	assert.Equal(t, 0, countObjectFiles(t, d.Root()))
}

func TestReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	d := newDriver(t)
	db := objectdb.New(d)

	payload := []byte("round trip payload")
	inserted, err := db.InsertStream(ctx, bytes.NewReader(payload), object.TypeTree, nil, object.CompressionXz)
	require.NoError(t, err)

	r, err := db.Read(ctx, inserted.OID)
	require.NoError(t, err)
	defer r.Close()

	got, err := readAll(r)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.Equal(t, object.CompressionXz, r.Object.Compression)
}

func TestReadMissingIsNotFound(t *testing.T) {
	ctx := context.Background()
	d := newDriver(t)
	db := objectdb.New(d)

	_, err := db.Read(ctx, oid.OID{})
	require.Error(t, err)
	kind, ok := aerrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, aerrors.KindNotFound, kind)
}

// TestPullRecursion exercises R -> [A, B], B -> [C]: pulling R with
// recursive=true must transfer R, A, B, and C.
func TestPullRecursion(t *testing.T) {
	ctx := context.Background()
	peerDriver := newDriver(t)
	peer := objectdb.New(peerDriver)

	c, err := peer.InsertStream(ctx, bytes.NewReader([]byte("C")), object.TypeOther, nil, object.CompressionNone)
	require.NoError(t, err)
	b, err := peer.InsertStream(ctx, bytes.NewReader([]byte("B")), object.TypeOther, []oid.OID{c.OID}, object.CompressionNone)
	require.NoError(t, err)
	a, err := peer.InsertStream(ctx, bytes.NewReader([]byte("A")), object.TypeOther, nil, object.CompressionNone)
	require.NoError(t, err)
	r, err := peer.InsertStream(ctx, bytes.NewReader([]byte("R")), object.TypeOther, []oid.OID{a.OID, b.OID}, object.CompressionNone)
	require.NoError(t, err)

	localDriver := newDriver(t)
	local := objectdb.New(localDriver)

	require.NoError(t, local.Pull(ctx, peerDriver, r.OID, object.CompressionNone, true))

	for _, id := range []oid.OID{r.OID, a.OID, b.OID, c.OID} {
		assert.True(t, local.Exists(ctx, id))
	}
}

func TestPullNonRecursiveOnlyTransfersRequested(t *testing.T) {
	ctx := context.Background()
	peerDriver := newDriver(t)
	peer := objectdb.New(peerDriver)

	c, err := peer.InsertStream(ctx, bytes.NewReader([]byte("C")), object.TypeOther, nil, object.CompressionNone)
	require.NoError(t, err)
	b, err := peer.InsertStream(ctx, bytes.NewReader([]byte("B")), object.TypeOther, []oid.OID{c.OID}, object.CompressionNone)
	require.NoError(t, err)

	localDriver := newDriver(t)
	local := objectdb.New(localDriver)

	require.NoError(t, local.Pull(ctx, peerDriver, b.OID, object.CompressionNone, false))

	assert.True(t, local.Exists(ctx, b.OID))
	assert.False(t, local.Exists(ctx, c.OID))
}

func readAll(r *object.Reader) ([]byte, error) {
	var buf bytes.Buffer
	_, err := buf.ReadFrom(r.Payload)
	return buf.Bytes(), err
}
