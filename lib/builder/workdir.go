// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package builder drives a single package build: hydrating a formula's
// files from the object database, composing a build environment around
// them, running its steps in order, and indexing the result back into
// the object database as a Tree.
package builder

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/AcaciaLinux/tooling-go/lib/aerrors"
)

const installDirName = "install"

// Workdir is one build's private working directory, `<buildsDir>/<uuid>/`,
// with subpaths `formula/`, `overlay/{work,upper,merged}`, `install/` and
// `out/`.
type Workdir struct {
	root string
	id   string
}

// NewWorkdir allocates a fresh workdir rooted at buildsDir/<uuid>,
// creating the root directory. Its subdirectories are created lazily by
// whichever mount or step needs them.
func NewWorkdir(buildsDir string) (*Workdir, error) {
	id := uuid.New().String()
	root := filepath.Join(buildsDir, id)
	if err := createDirAll(root); err != nil {
		return nil, err
	}
	return &Workdir{root: root, id: id}, nil
}

// ID is this build's unique identifier.
func (w *Workdir) ID() string { return w.id }

// Root is the workdir's top-level directory.
func (w *Workdir) Root() string { return w.root }

// FormulaDir holds the formula's hydrated files, and doubles as the
// innermost overlay lower directory.
func (w *Workdir) FormulaDir() string { return filepath.Join(w.root, "formula") }

// OverlayWorkDir is the overlayfs `workdir=`.
func (w *Workdir) OverlayWorkDir() string { return filepath.Join(w.root, "overlay", "work") }

// OverlayUpperDir is the overlayfs `upperdir=`.
func (w *Workdir) OverlayUpperDir() string { return filepath.Join(w.root, "overlay", "upper") }

// OverlayMergedDir is the overlayfs mount target: the chroot root.
func (w *Workdir) OverlayMergedDir() string { return filepath.Join(w.root, "overlay", "merged") }

// InstallDir is where build steps install the package's files, bind
// mounted into the chroot at InstallDirInner.
func (w *Workdir) InstallDir() string { return filepath.Join(w.root, installDirName) }

// InstallDirInner is the path build steps see for InstallDir, from
// inside the chroot.
func (w *Workdir) InstallDirInner() string { return "/" + installDirName }

// OutputDir is where finished artifact archives are placed.
func (w *Workdir) OutputDir() string { return filepath.Join(w.root, "out") }

func createDirAll(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return aerrors.Wrap(err, aerrors.KindIo, "creating build workdir").Contextf("path %q", path)
	}
	return nil
}
