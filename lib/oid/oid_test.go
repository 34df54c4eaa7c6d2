// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

package oid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AcaciaLinux/tooling-go/lib/oid"
)

func TestHexRoundTrip(t *testing.T) {
	h := oid.NewHasher()
	h.Write([]byte("hi\n"))
	id := h.Sum()

	id2, err := oid.FromHex(id.Hex())
	require.NoError(t, err)
	assert.Equal(t, id, id2)
}

func TestFromHexRejectsWrongLength(t *testing.T) {
	_, err := oid.FromHex("abcd")
	assert.Error(t, err)
}

func TestToPath(t *testing.T) {
	h := oid.NewHasher()
	h.Write([]byte("payload"))
	id := h.Sum()
	hexStr := id.Hex()

	tests := map[string]struct {
		depth int
		want  string
	}{
		"depth1": {1, hexStr},
		"depth3": {3, hexStr[0:2] + "/" + hexStr[2:4] + "/" + hexStr},
		"depth5": {5, hexStr[0:2] + "/" + hexStr[2:4] + "/" + hexStr[4:6] + "/" + hexStr[6:8] + "/" + hexStr},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, id.ToPath(tc.depth))
		})
	}
}

func TestCompareTotalOrder(t *testing.T) {
	a, err := oid.FromBytes(append([]byte{0x00}, make([]byte, 31)...))
	require.NoError(t, err)
	b, err := oid.FromBytes(append([]byte{0x01}, make([]byte, 31)...))
	require.NoError(t, err)

	assert.Negative(t, a.Compare(b))
	assert.Positive(t, b.Compare(a))
	assert.Zero(t, a.Compare(a))
}

func TestOIDSensitivity(t *testing.T) {
	h1 := oid.NewHasher()
	h1.Write([]byte("payload-a"))
	id1 := h1.Sum()

	h2 := oid.NewHasher()
	h2.Write([]byte("payload-b"))
	id2 := h2.Sum()

	assert.NotEqual(t, id1, id2)

	dep, err := oid.FromHex(id1.Hex())
	require.NoError(t, err)

	h3 := oid.NewHasher()
	h3.Write([]byte("payload-a"))
	h3.WriteOID(dep)
	id3 := h3.Sum()

	assert.NotEqual(t, id1, id3)
}
