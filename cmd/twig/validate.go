// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/datawire/dlib/dlog"
	"github.com/spf13/cobra"

	"github.com/AcaciaLinux/tooling-go/lib/aerrors"
	"github.com/AcaciaLinux/tooling-go/lib/maps"
	"github.com/AcaciaLinux/tooling-go/lib/validators"
)

// providedFile is where one basename was found: which package provides
// it, and its path relative to that package's own root.
type providedFile struct {
	pkg  string
	path string
}

// dirIndex implements validators.Index over a distribution directory
// laid out as <dist>/<package>/<relative path>...: the first package
// (in directory-walk order) providing a given basename wins.
type dirIndex struct {
	dist   string
	byName map[string]providedFile
}

func newDirIndex(dist string) (*dirIndex, error) {
	idx := &dirIndex{dist: dist, byName: map[string]providedFile{}}

	pkgs, err := os.ReadDir(dist)
	if err != nil {
		return nil, aerrors.Wrap(err, aerrors.KindIo, "reading distribution directory").Contextf("path %q", dist)
	}

	for _, pkg := range pkgs {
		if !pkg.IsDir() {
			continue
		}
		pkgRoot := filepath.Join(dist, pkg.Name())
		err := filepath.Walk(pkgRoot, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}
			rel, rerr := filepath.Rel(pkgRoot, path)
			if rerr != nil {
				return rerr
			}
			base := filepath.Base(path)
			if _, seen := idx.byName[base]; !seen {
				idx.byName[base] = providedFile{pkg: pkg.Name(), path: rel}
			}
			return nil
		})
		if err != nil {
			return nil, aerrors.Wrap(err, aerrors.KindIo, "walking package directory").Contextf("package %q", pkg.Name())
		}
	}

	return idx, nil
}

// Find implements validators.Index.
func (idx *dirIndex) Find(filename string) (pkgName string, path string, found bool) {
	entry, ok := idx.byName[filepath.Base(filename)]
	if !ok {
		return "", "", false
	}
	return entry.pkg, entry.path, true
}

func (idx *dirIndex) String() string {
	return fmt.Sprintf("dirIndex(%s, %d entries)", idx.dist, len(idx.byName))
}

// names returns every indexed basename, sorted for stable debug output.
func (idx *dirIndex) names() []string {
	return maps.SortedKeys(idx.byName)
}

var _ validators.Index = (*dirIndex)(nil)

func newValidateCommand(flags *rootFlags) *cobra.Command {
	var distDir string
	var strip bool

	cmd := &cobra.Command{
		Use:   "validate DEPLOYED-DIR",
		Short: "Check a deployed tree's ELF interpreters, RUNPATHs, and script shebangs against a distribution directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd, flags)

			idx, err := newDirIndex(distDir)
			if err != nil {
				return err
			}
			dlog.Debugf(ctx, "indexed %d files under %s: %s", len(idx.byName), distDir, strings.Join(idx.names(), ", "))

			results, err := validators.ValidateTree(args[0], idx, strip)
			if err != nil {
				return err
			}

			failed := false
			for _, r := range results {
				for _, action := range r.Actions {
					fmt.Printf("%s: %s\n", r.Path, action)
				}
				for _, e := range r.Errors {
					failed = true
					fmt.Fprintf(os.Stderr, "%s: %v\n", r.Path, e)
				}
			}
			if failed {
				return aerrors.New(aerrors.KindDependencyUnresolved, "one or more files had unresolved dependencies")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&distDir, "dist", "", "the distribution directory, laid out as <dist>/<package>/...")
	cmd.Flags().BoolVar(&strip, "strip", true, "emit a Strip action for binaries carrying debug symbols")
	if err := cmd.MarkFlagRequired("dist"); err != nil {
		panic(err)
	}
	return cmd
}
