// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package objectdb implements the content-addressed Object Database: a
// pluggable Driver contract plus the high-level ObjectDatabase API
// (insert-by-stream with hash verification, read with transparent
// decompression, and pull from a peer).
package objectdb

import (
	"context"
	"io"

	"github.com/AcaciaLinux/tooling-go/lib/object"
	"github.com/AcaciaLinux/tooling-go/lib/oid"
)

// Driver is the pluggable storage backend an ObjectDatabase sits on top of.
// The filesystem driver (FSDriver) is canonical. Read-only sources such as
// the HTTP-backed HTTPPeer do not implement Driver; they implement the
// smaller Peer interface instead.
type Driver interface {
	// InsertStream hashes src (rewound to its start first) plus deps to
	// derive the OID, skips the write if that OID already exists, and
	// otherwise writes a new object file atomically.
	InsertStream(ctx context.Context, src io.ReadSeeker, ty object.Type, deps []oid.OID, compression object.Compression) (*object.Object, error)

	// InsertPrehashed streams src once while rehashing, comparing the
	// result against expected. On mismatch it fails with an
	// aerrors.KindOIDMismatch error and leaves no artifact behind.
	InsertPrehashed(ctx context.Context, src io.Reader, expected oid.OID, ty object.Type, deps []oid.OID, compression object.Compression) (*object.Object, error)

	// TryRetrieve opens the stored object for id, or reports ok=false if
	// it is not present.
	TryRetrieve(ctx context.Context, id oid.OID) (r *object.Reader, ok bool, err error)

	// Exists reports whether id is present, without opening it.
	Exists(ctx context.Context, id oid.OID) bool
}
