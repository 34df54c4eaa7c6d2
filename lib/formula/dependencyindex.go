// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

package formula

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/AcaciaLinux/tooling-go/lib/aerrors"
	"github.com/AcaciaLinux/tooling-go/lib/oid"
)

// FileDependencyIndex is a DependencyIndex backed by one small append-only
// file per dependency name, kept alongside the object database at
// <root>/<name> (the caller typically points root at <home>/objects/.index).
// Each line is "version/pkgver oid"; a lookup matches version and pkgver
// exactly and the last matching line wins, so re-recording the same
// name@version/pkgver shadows the earlier entry without needing to rewrite
// history.
type FileDependencyIndex struct {
	root string
}

var _ DependencyIndex = (*FileDependencyIndex)(nil)

// NewFileDependencyIndex opens (creating if absent) a dependency index
// rooted at root.
func NewFileDependencyIndex(root string) (*FileDependencyIndex, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, aerrors.Wrap(err, aerrors.KindIo, "creating dependency index directory").Contextf("path %q", root)
	}
	return &FileDependencyIndex{root: root}, nil
}

func (idx *FileDependencyIndex) path(name string) string {
	return filepath.Join(idx.root, name)
}

// Record appends an entry mapping name@version/pkgver to id, making it
// resolvable by future Resolve calls.
func (idx *FileDependencyIndex) Record(name, version string, pkgver uint32, id oid.OID) error {
	f, err := os.OpenFile(idx.path(name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return aerrors.Wrap(err, aerrors.KindIo, "opening dependency index entry").Contextf("name %q", name)
	}
	defer f.Close()
	line := version + "/" + strconv.FormatUint(uint64(pkgver), 10) + " " + id.Hex() + "\n"
	if _, err := f.WriteString(line); err != nil {
		return aerrors.Wrap(err, aerrors.KindIo, "writing dependency index entry").Contextf("name %q", name)
	}
	return nil
}

// Resolve implements DependencyIndex: the newest recorded entry for
// spec.Name whose version/pkgver matches spec. Fails with
// DependencyUnresolved if the name was never recorded or no entry matches.
func (idx *FileDependencyIndex) Resolve(ctx context.Context, spec VersionString) (oid.OID, error) {
	f, err := os.Open(idx.path(spec.Name))
	if err != nil {
		if os.IsNotExist(err) {
			return oid.OID{}, aerrors.NewDependencyUnresolved(spec.Name, spec.Version, strconv.FormatUint(uint64(spec.Pkgver), 10))
		}
		return oid.OID{}, aerrors.Wrap(err, aerrors.KindIo, "opening dependency index entry").Contextf("name %q", spec.Name)
	}
	defer f.Close()

	want := spec.Version + "/" + strconv.FormatUint(uint64(spec.Pkgver), 10)
	var match string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		parts := strings.SplitN(line, " ", 2)
		if len(parts) != 2 {
			continue
		}
		if parts[0] == want {
			match = parts[1]
		}
	}
	if err := scanner.Err(); err != nil {
		return oid.OID{}, aerrors.Wrap(err, aerrors.KindIo, "reading dependency index entry").Contextf("name %q", spec.Name)
	}
	if match == "" {
		return oid.OID{}, aerrors.NewDependencyUnresolved(spec.Name, spec.Version, strconv.FormatUint(uint64(spec.Pkgver), 10))
	}
	return oid.FromHex(match)
}
