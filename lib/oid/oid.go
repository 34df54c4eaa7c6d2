// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package oid implements the Object Identifier: a fixed-width,
// content-and-dependency hash with hex, raw-byte, and filesystem-path
// projections.
package oid

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"path"

	"github.com/AcaciaLinux/tooling-go/lib/aerrors"
	"github.com/AcaciaLinux/tooling-go/lib/fmtutil"
)

// Size is the width, in bytes, of an OID.
const Size = sha256.Size // 32

// OID is a 32-byte content-addressed identifier. The zero value is not a
// valid identifier of any content; it is only useful as a sentinel.
type OID [Size]byte

var (
	_ fmt.Stringer  = OID{}
	_ fmt.Formatter = OID{}
)

// FromHex decodes a lowercase hex string into an OID.
func FromHex(s string) (OID, error) {
	var id OID
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, aerrors.Wrap(err, aerrors.KindParse, fmt.Sprintf("decoding object id %q", s))
	}
	if len(raw) != Size {
		return id, aerrors.New(aerrors.KindParse, fmt.Sprintf("object id %q is %d bytes, want %d", s, len(raw), Size))
	}
	copy(id[:], raw)
	return id, nil
}

// FromBytes copies a 32-byte slice into an OID, failing if the length
// doesn't match.
func FromBytes(b []byte) (OID, error) {
	var id OID
	if len(b) != Size {
		return id, aerrors.New(aerrors.KindAssertion, fmt.Sprintf("object id slice is %d bytes, want %d", len(b), Size))
	}
	copy(id[:], b)
	return id, nil
}

// A Hasher accumulates bytes to derive an OID: the payload's decompressed
// bytes, in order, followed by each dependency OID's bytes in their stored
// order (see the derivation invariant on Object in package object).
type Hasher struct {
	h hash.Hash
}

// NewHasher starts a fresh OID derivation.
func NewHasher() *Hasher {
	return &Hasher{h: sha256.New()}
}

// Write feeds payload or dependency bytes into the hash. It never returns
// an error (sha256 cannot fail to absorb bytes); the return satisfies
// io.Writer for convenience.
func (h *Hasher) Write(p []byte) (int, error) {
	return h.h.Write(p)
}

// WriteOID feeds a dependency OID's raw bytes into the hash, in the order
// dependencies must be hashed.
func (h *Hasher) WriteOID(dep OID) {
	_, _ = h.h.Write(dep[:])
}

// Sum finalizes the hash into an OID.
func (h *Hasher) Sum() OID {
	var id OID
	copy(id[:], h.h.Sum(nil))
	return id
}

// ToPath splits the hex representation into a filesystem path at the given
// depth:
//
//	"abcdef" at depth 1 => "abcdef"
//	"abcdef" at depth 2 => "ab/abcdef"
//	"abcdef" at depth 3 => "ab/cd/abcdef"
func (id OID) ToPath(depth int) string {
	hexStr := id.Hex()
	if depth <= 1 {
		return hexStr
	}
	var parts []string
	rest := hexStr
	for i := 1; i < depth && len(rest) > 2; i++ {
		parts = append(parts, rest[:2])
		rest = rest[2:]
	}
	parts = append(parts, hexStr)
	return path.Join(parts...)
}

// Hex returns the lowercase hex encoding of the OID.
func (id OID) Hex() string {
	return hex.EncodeToString(id[:])
}

// Bytes returns the raw 32 bytes of the OID.
func (id OID) Bytes() []byte {
	return id[:]
}

// IsZero reports whether id is the zero value.
func (id OID) IsZero() bool {
	return id == OID{}
}

// Compare implements a total order by raw bytes: <0 if id < other, 0 if
// equal, >0 if id > other.
func (id OID) Compare(other OID) int {
	return bytes.Compare(id[:], other[:])
}

// String implements fmt.Stringer.
func (id OID) String() string {
	return id.Hex()
}

// Format implements fmt.Formatter, following the teacher's
// FormatByteArrayStringer idiom for fixed-size byte-array types.
func (id OID) Format(f fmt.State, verb rune) {
	fmtutil.FormatByteArrayStringer(id, id[:], f, verb)
}

// MarshalText implements encoding.TextMarshaler, so an OID serializes as
// its hex string in TOML (BurntSushi/toml) and anywhere else that defers to
// this interface.
func (id OID) MarshalText() ([]byte, error) {
	return []byte(id.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *OID) UnmarshalText(text []byte) error {
	decoded, err := FromHex(string(text))
	if err != nil {
		return err
	}
	*id = decoded
	return nil
}
