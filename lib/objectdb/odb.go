// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

package objectdb

import (
	"context"
	"io"

	"github.com/AcaciaLinux/tooling-go/lib/aerrors"
	"github.com/AcaciaLinux/tooling-go/lib/object"
	"github.com/AcaciaLinux/tooling-go/lib/oid"
)

// Peer is the read surface a remote object database must expose to be
// pullable from, e.g. an HTTP client talking to cmd/trunk.
type Peer interface {
	TryRetrieve(ctx context.Context, id oid.OID) (*object.Reader, bool, error)
	Exists(ctx context.Context, id oid.OID) bool
}

// ObjectDatabase is the high-level API consumers (the builder, the CLI
// tools) program against. It wraps a Driver with read convenience and
// peer-to-peer transfer.
type ObjectDatabase struct {
	driver Driver
}

// New wraps driver as an ObjectDatabase.
func New(driver Driver) *ObjectDatabase {
	return &ObjectDatabase{driver: driver}
}

// InsertStream inserts src (hashing it, plus deps, to derive the OID).
func (db *ObjectDatabase) InsertStream(ctx context.Context, src io.ReadSeeker, ty object.Type, deps []oid.OID, compression object.Compression) (*object.Object, error) {
	return db.driver.InsertStream(ctx, src, ty, deps, compression)
}

// InsertPrehashed inserts src under a caller-supplied expected OID,
// failing with aerrors.KindOIDMismatch if the recomputed hash disagrees.
func (db *ObjectDatabase) InsertPrehashed(ctx context.Context, src io.Reader, expected oid.OID, ty object.Type, deps []oid.OID, compression object.Compression) (*object.Object, error) {
	return db.driver.InsertPrehashed(ctx, src, expected, ty, deps, compression)
}

// TryRead opens id's decompressed payload, reporting ok=false if absent.
func (db *ObjectDatabase) TryRead(ctx context.Context, id oid.OID) (*object.Reader, bool, error) {
	return db.driver.TryRetrieve(ctx, id)
}

// Read opens id's decompressed payload, failing with aerrors.KindNotFound
// if it is not present.
func (db *ObjectDatabase) Read(ctx context.Context, id oid.OID) (*object.Reader, error) {
	r, ok, err := db.driver.TryRetrieve(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, aerrors.New(aerrors.KindNotFound, "object not found").Contextf("oid %s", id)
	}
	return r, nil
}

// Exists reports whether id is present locally.
func (db *ObjectDatabase) Exists(ctx context.Context, id oid.OID) bool {
	return db.driver.Exists(ctx, id)
}

// Pull fetches id from peer into db if not already present, optionally
// recursing over its dependency closure. It mirrors the default `pull`
// method of the object database driver contract: check existence first
// (idempotent no-op if already local), retrieve-and-reinsert via the
// prehashed path (the peer's OID is already known and trusted to be
// verified on arrival), then walk dependencies.
func (db *ObjectDatabase) Pull(ctx context.Context, peer Peer, id oid.OID, compression object.Compression, recursive bool) error {
	if db.driver.Exists(ctx, id) {
		return nil
	}

	r, ok, err := peer.TryRetrieve(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return aerrors.New(aerrors.KindNotFound, "object not found on peer").Contextf("oid %s", id)
	}
	defer r.Close()

	deps := r.Object.Dependencies
	ty := r.Object.Type

	if _, err := db.driver.InsertPrehashed(ctx, r.Payload, id, ty, deps, compression); err != nil {
		return err
	}

	if recursive {
		for _, dep := range deps {
			if err := db.Pull(ctx, peer, dep, compression, true); err != nil {
				return err
			}
		}
	}
	return nil
}

var _ Peer = (*FSDriver)(nil)
