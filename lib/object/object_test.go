// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

package object_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AcaciaLinux/tooling-go/lib/aerrors"
	"github.com/AcaciaLinux/tooling-go/lib/object"
	"github.com/AcaciaLinux/tooling-go/lib/oid"
)

func TestHeaderRoundTrip(t *testing.T) {
	dep := object.DeriveOID([]byte("dep"), nil)
	id := object.DeriveOID([]byte("payload"), []oid.OID{dep})

	want := &object.Object{
		OID:          id,
		Type:         object.TypeTree,
		Compression:  object.CompressionXz,
		Dependencies: []oid.OID{dep},
	}

	var buf bytes.Buffer
	require.NoError(t, want.WriteHeader(&buf))

	got, err := object.ReadHeader(&buf)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestReadHeaderRejectsBadMagic(t *testing.T) {
	_, err := object.ReadHeader(bytes.NewReader([]byte("NOPE0000000000000000000000000000000000")))
	require.Error(t, err)
	kind, ok := aerrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, aerrors.KindCorruptObject, kind)
}

func TestReadHeaderRejectsBadVersion(t *testing.T) {
	id := object.DeriveOID([]byte("x"), nil)
	o := &object.Object{OID: id, Type: object.TypeOther, Compression: object.CompressionNone}
	var buf bytes.Buffer
	require.NoError(t, o.WriteHeader(&buf))

	raw := buf.Bytes()
	raw[4] = 0xFF // corrupt the version byte

	_, err := object.ReadHeader(bytes.NewReader(raw))
	require.Error(t, err)
	kind, ok := aerrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, aerrors.KindUnsupportedVersion, kind)
}

func TestEncodeDecodeNoneCompression(t *testing.T) {
	payload := []byte("hello, tree")
	id := object.DeriveOID(payload, nil)

	raw, err := object.EncodeToBytes(id, object.TypeOther, nil, object.CompressionNone, payload)
	require.NoError(t, err)

	r, err := object.NewReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, id, r.Object.OID)
	var got bytes.Buffer
	_, err = got.ReadFrom(r.Payload)
	require.NoError(t, err)
	assert.Equal(t, payload, got.Bytes())
}

func TestEncodeDecodeXzCompression(t *testing.T) {
	payload := bytes.Repeat([]byte("acacia"), 512)
	id := object.DeriveOID(payload, nil)

	raw, err := object.EncodeToBytes(id, object.TypeOther, nil, object.CompressionXz, payload)
	require.NoError(t, err)

	r, err := object.NewReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer r.Close()

	var got bytes.Buffer
	_, err = got.ReadFrom(r.Payload)
	require.NoError(t, err)
	assert.Equal(t, payload, got.Bytes())
}

func TestOIDStableAcrossCompression(t *testing.T) {
	payload := []byte("same bytes, different compression")
	id := object.DeriveOID(payload, nil)
	decodedOID := func(compression object.Compression) oid.OID {
		raw, err := object.EncodeToBytes(id, object.TypeOther, nil, compression, payload)
		require.NoError(t, err)
		r, err := object.NewReader(bytes.NewReader(raw))
		require.NoError(t, err)
		defer r.Close()
		var got bytes.Buffer
		_, err = got.ReadFrom(r.Payload)
		require.NoError(t, err)
		return object.DeriveOID(got.Bytes(), r.Object.Dependencies)
	}
	idNone := decodedOID(object.CompressionNone)
	idXz := decodedOID(object.CompressionXz)
	assert.Equal(t, idNone, idXz, "compression choice must not affect the derived OID")
}
