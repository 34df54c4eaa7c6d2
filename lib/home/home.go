// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package home locates the directory all tooling in this module works
// out of: its object database, its scratch space, and the per-build
// working directories under that scratch space.
package home

import (
	"context"
	"os"
	"path/filepath"

	"github.com/datawire/dlib/dlog"
	"github.com/google/uuid"

	"github.com/AcaciaLinux/tooling-go/lib/aerrors"
)

// Home is the root directory every command in this module is pointed at
// via `--home`.
type Home struct {
	root string
}

// New opens (creating if absent) a home directory rooted at root,
// including its tmp/ subdirectory.
func New(ctx context.Context, root string) (*Home, error) {
	dlog.Debugf(ctx, "opening home @ %s", root)

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, aerrors.Wrap(err, aerrors.KindIo, "creating home directory").Contextf("path %q", root)
	}

	h := &Home{root: root}

	if err := os.MkdirAll(h.TmpDir(), 0o755); err != nil {
		return nil, aerrors.Wrap(err, aerrors.KindIo, "creating home tmp directory").Contextf("path %q", h.TmpDir())
	}

	return h, nil
}

// Root is the home directory's own path.
func (h *Home) Root() string { return h.root }

// ObjectDBPath is where the object database lives: <root>/objects.
func (h *Home) ObjectDBPath() string { return filepath.Join(h.root, "objects") }

// TmpDir is the home's scratch directory: <root>/tmp.
func (h *Home) TmpDir() string { return filepath.Join(h.root, "tmp") }

// TempFilePath returns a path for a new, uniquely named temporary file
// under TmpDir, without creating it.
func (h *Home) TempFilePath() string {
	return filepath.Join(h.TmpDir(), uuid.New().String())
}

// BuildsDir is where per-build working directories live:
// <root>/tmp/builds.
func (h *Home) BuildsDir() string { return filepath.Join(h.TmpDir(), "builds") }

// DependencyIndexDir is where the dependency-string resolver's
// name→OID index files live, alongside the object database rather than
// inside it.
func (h *Home) DependencyIndexDir() string { return filepath.Join(h.root, "objects", ".index") }
