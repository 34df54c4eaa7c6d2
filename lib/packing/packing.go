// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package packing implements the little-endian integer and length-prefixed
// byte/string encoding primitives shared by the object header, tree, and
// formula codecs. Every encoder here has a matching decoder such that
// Unpack(Pack(x)) == x; decoders report a stream that ends before the first
// byte of a value as ok=false rather than an error, while a value cut off
// partway through is an error (see the ok/error return of each Unpack*
// function).
package packing

import (
	"encoding/binary"
	"io"

	"github.com/AcaciaLinux/tooling-go/lib/aerrors"
)

// PackU8 writes a single byte.
func PackU8(w io.Writer, v uint8) error {
	if _, err := w.Write([]byte{v}); err != nil {
		return aerrors.Wrap(err, aerrors.KindIo, "packing u8")
	}
	return nil
}

// UnpackU8 reads a single byte. ok is false if the stream ended before any
// byte could be read.
func UnpackU8(r io.Reader) (v uint8, ok bool, err error) {
	var buf [1]byte
	n, rerr := io.ReadFull(r, buf[:])
	if n == 0 {
		if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
			return 0, false, nil
		}
		return 0, false, aerrors.Wrap(rerr, aerrors.KindIo, "unpacking u8")
	}
	return buf[0], true, nil
}

// PackU16 writes a 16-bit unsigned integer, little-endian.
func PackU16(w io.Writer, v uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	if _, err := w.Write(buf[:]); err != nil {
		return aerrors.Wrap(err, aerrors.KindIo, "packing u16")
	}
	return nil
}

// UnpackU16 reads a 16-bit unsigned integer, little-endian.
func UnpackU16(r io.Reader) (v uint16, ok bool, err error) {
	var buf [2]byte
	n, rerr := io.ReadFull(r, buf[:])
	if n == 0 {
		if rerr == io.EOF {
			return 0, false, nil
		}
		return 0, false, aerrors.Wrap(rerr, aerrors.KindIo, "unpacking u16")
	}
	if n < len(buf) {
		return 0, false, aerrors.New(aerrors.KindParse, "unpacking u16: short read")
	}
	return binary.LittleEndian.Uint16(buf[:]), true, nil
}

// PackU32 writes a 32-bit unsigned integer, little-endian.
func PackU32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	if _, err := w.Write(buf[:]); err != nil {
		return aerrors.Wrap(err, aerrors.KindIo, "packing u32")
	}
	return nil
}

// UnpackU32 reads a 32-bit unsigned integer, little-endian.
func UnpackU32(r io.Reader) (v uint32, ok bool, err error) {
	var buf [4]byte
	n, rerr := io.ReadFull(r, buf[:])
	if n == 0 {
		if rerr == io.EOF {
			return 0, false, nil
		}
		return 0, false, aerrors.Wrap(rerr, aerrors.KindIo, "unpacking u32")
	}
	if n < len(buf) {
		return 0, false, aerrors.New(aerrors.KindParse, "unpacking u32: short read")
	}
	return binary.LittleEndian.Uint32(buf[:]), true, nil
}

// PackBytes writes a u32 byte-length prefix followed by the raw bytes.
func PackBytes(w io.Writer, b []byte) error {
	if err := PackU32(w, uint32(len(b))); err != nil {
		return err
	}
	if len(b) == 0 {
		return nil
	}
	if _, err := w.Write(b); err != nil {
		return aerrors.Wrap(err, aerrors.KindIo, "packing length-prefixed bytes")
	}
	return nil
}

// UnpackBytes reads a u32 byte-length prefix followed by that many raw
// bytes.
func UnpackBytes(r io.Reader) ([]byte, bool, error) {
	length, ok, err := UnpackU32(r)
	if err != nil || !ok {
		return nil, ok, err
	}
	buf := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, false, aerrors.Wrap(err, aerrors.KindIo, "unpacking length-prefixed bytes")
		}
	}
	return buf, true, nil
}

// PackString writes a string using the same length-prefixed encoding as
// PackBytes.
func PackString(w io.Writer, s string) error {
	return PackBytes(w, []byte(s))
}

// UnpackString reads a length-prefixed string.
func UnpackString(r io.Reader) (string, bool, error) {
	b, ok, err := UnpackBytes(r)
	if err != nil || !ok {
		return "", ok, err
	}
	return string(b), true, nil
}

// Raw32 writes exactly 32 raw, unprefixed bytes (used for an OID on the
// wire). It is a programmer error to call it with a slice of any other
// length.
func Raw32(w io.Writer, b []byte) error {
	if len(b) != 32 {
		return aerrors.New(aerrors.KindAssertion, "Raw32 called with a slice that is not 32 bytes long")
	}
	if _, err := w.Write(b); err != nil {
		return aerrors.Wrap(err, aerrors.KindIo, "packing raw 32 bytes")
	}
	return nil
}

// UnpackRaw32 reads exactly 32 raw bytes. ok is false only if zero bytes
// could be read before EOF; a partial (1..31 byte) read is a Parse error,
// as it is for UnpackU16 and UnpackU32.
func UnpackRaw32(r io.Reader) (b [32]byte, ok bool, err error) {
	n, rerr := io.ReadFull(r, b[:])
	if n == 0 {
		if rerr == io.EOF {
			return b, false, nil
		}
		return b, false, aerrors.Wrap(rerr, aerrors.KindIo, "unpacking raw 32 bytes")
	}
	if n < len(b) {
		return b, false, aerrors.New(aerrors.KindParse, "unpacking raw 32 bytes: short read")
	}
	return b, true, nil
}
