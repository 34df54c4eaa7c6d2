// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

package formula

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/AcaciaLinux/tooling-go/lib/aerrors"
	"github.com/AcaciaLinux/tooling-go/lib/architecture"
	"github.com/AcaciaLinux/tooling-go/lib/object"
	"github.com/AcaciaLinux/tooling-go/lib/objectdb"
	"github.com/AcaciaLinux/tooling-go/lib/oid"
)

// LoadFile parses a user-authored formula TOML file.
func LoadFile(r io.Reader) (*File, error) {
	var f File
	if _, err := toml.NewDecoder(r).Decode(&f); err != nil {
		return nil, aerrors.Wrap(err, aerrors.KindParse, "parsing formula file")
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// LayoutSection is one entry of a Formula's layout map, kept as an ordered
// slice (rather than a Go map) so a Formula's TOML serialization — and
// therefore its ODB insert hash — does not depend on map iteration order.
type LayoutSection struct {
	Name  string   `toml:"name"`
	Paths []string `toml:"paths"`
}

// FileEntry is one entry of a Formula's files map: a relative path to the
// blob OID holding its contents.
type FileEntry struct {
	Path string  `toml:"path"`
	OID  oid.OID `toml:"oid"`
}

// Formula is the resolved build recipe stored in the ODB (spec.md §3's
// "Formula" data model, not the user-authored File).
type Formula struct {
	Name        string `toml:"name"`
	Version     string `toml:"version"`
	Description string `toml:"description"`

	Strip bool                      `toml:"strip"`
	Arch  *architecture.Architecture `toml:"arch"`

	HostDependencies   []oid.OID `toml:"host_dependencies"`
	TargetDependencies []oid.OID `toml:"target_dependencies"`
	ExtraDependencies  []oid.OID `toml:"extra_dependencies"`

	Prepare *string `toml:"prepare"`
	Build   *string `toml:"build"`
	Check   *string `toml:"check"`
	Package *string `toml:"package"`

	Layout []LayoutSection `toml:"layout"`
	Files  []FileEntry     `toml:"files"`
}

// TOML renders the pretty-printed TOML encoding used as this Formula's ODB
// payload.
func (f *Formula) TOML() (string, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.Indent = ""
	if err := enc.Encode(f); err != nil {
		return "", aerrors.Wrap(err, aerrors.KindIo, "encoding formula as toml")
	}
	return buf.String(), nil
}

// DecodeFormula parses a Formula from its TOML ODB payload.
func DecodeFormula(r io.Reader) (*Formula, error) {
	var f Formula
	if _, err := toml.NewDecoder(r).Decode(&f); err != nil {
		return nil, aerrors.Wrap(err, aerrors.KindParse, "parsing formula object")
	}
	return &f, nil
}

// dependencies is the Formula's Object-header dependency list: host, then
// target, then extra OIDs, then every OID referenced by Files, per spec.md
// §3.
func (f *Formula) dependencies() []oid.OID {
	deps := make([]oid.OID, 0, len(f.HostDependencies)+len(f.TargetDependencies)+len(f.ExtraDependencies)+len(f.Files))
	deps = append(deps, f.HostDependencies...)
	deps = append(deps, f.TargetDependencies...)
	deps = append(deps, f.ExtraDependencies...)
	for _, fe := range f.Files {
		deps = append(deps, fe.OID)
	}
	return deps
}

// Insert serializes f as TOML and inserts it into db with type Formula,
// returning the resulting Object.
func (f *Formula) Insert(ctx context.Context, db *objectdb.ObjectDatabase, compression object.Compression) (*object.Object, error) {
	text, err := f.TOML()
	if err != nil {
		return nil, err
	}
	return db.InsertStream(ctx, bytes.NewReader([]byte(text)), object.TypeFormula, f.dependencies(), compression)
}

// DependencyIndex resolves a dependency specification ("name@version/pkgver")
// to the OID of a previously-ingested Formula or Package object.
type DependencyIndex interface {
	Resolve(ctx context.Context, spec VersionString) (oid.OID, error)
}

// Downloader fetches a source URL to a local temp file, returning its path.
// The default implementation lives in lib/downloadcache; Resolve accepts any
// implementation so tests can stub it.
type Downloader interface {
	Download(ctx context.Context, url string) (path string, cleanup func(), err error)
}

// Resolve implements spec.md §4.5's "Resolution (source → stored form)":
// validates the target architecture, fetches declared sources, walks the
// formula's parent directory for auxiliary files, resolves dependency
// strings via deps, and inserts the assembled Formula into db.
func Resolve(ctx context.Context, file *File, parentDir string, targetArch architecture.Architecture, db *objectdb.ObjectDatabase, dl Downloader, deps DependencyIndex, compression object.Compression) (*Formula, *object.Object, error) {
	pkg := file.Package

	var resolvedArch *architecture.Architecture
	if archs := pkg.Architectures(); len(archs) > 0 {
		supported := false
		for _, a := range archs {
			if a.CanRunOn(targetArch) {
				supported = true
				break
			}
		}
		if !supported {
			supportedStrs := make([]string, len(archs))
			for i, a := range archs {
				supportedStrs[i] = a.String()
			}
			return nil, nil, aerrors.NewArchitectureUnsupported(targetArch.String(), strings.Join(supportedStrs, ", "))
		}
		resolvedArch = &targetArch
	}

	var files []FileEntry

	for _, src := range pkg.Sources {
		url := src.URLFor(pkg, targetArch.String())
		dest := src.DestFor(pkg, targetArch.String())

		path, cleanup, err := dl.Download(ctx, url)
		if err != nil {
			return nil, nil, aerrors.Wrap(err, aerrors.KindDownload, "fetching formula source").Contextf("url %q", url)
		}
		obj, err := insertFile(ctx, db, path, compression)
		cleanup()
		if err != nil {
			return nil, nil, err
		}
		files = append(files, FileEntry{Path: dest, OID: obj.OID})
	}

	walked, err := walkAuxiliaryFiles(ctx, db, parentDir, compression)
	if err != nil {
		return nil, nil, err
	}
	files = append(files, walked...)

	resolveList := func(specs []VersionString) ([]oid.OID, error) {
		ids := make([]oid.OID, 0, len(specs))
		for _, spec := range specs {
			id, err := deps.Resolve(ctx, spec)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return ids, nil
	}

	hostDeps, err := resolveList(pkg.HostDependencies)
	if err != nil {
		return nil, nil, err
	}
	targetDeps, err := resolveList(pkg.TargetDependencies)
	if err != nil {
		return nil, nil, err
	}
	extraDeps, err := resolveList(pkg.ExtraDependencies)
	if err != nil {
		return nil, nil, err
	}

	var layout []LayoutSection
	for _, name := range sortedKeys(pkg.Layout) {
		layout = append(layout, LayoutSection{Name: name, Paths: pkg.Layout[name]})
	}

	formula := &Formula{
		Name:        pkg.Name,
		Version:     pkg.Version,
		Description: pkg.Description,
		Strip:       pkg.StripOrDefault(),
		Arch:        resolvedArch,

		HostDependencies:   hostDeps,
		TargetDependencies: targetDeps,
		ExtraDependencies:  extraDeps,

		Prepare: pkg.Prepare,
		Build:   pkg.Build,
		Check:   pkg.Check,
		Package: pkg.Package,

		Layout: layout,
		Files:  files,
	}

	obj, err := formula.Insert(ctx, db, compression)
	if err != nil {
		return nil, nil, err
	}
	return formula, obj, nil
}

func insertFile(ctx context.Context, db *objectdb.ObjectDatabase, path string, compression object.Compression) (*object.Object, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, aerrors.Wrap(err, aerrors.KindIo, "opening file to insert").Contextf("path %q", path)
	}
	defer f.Close()
	return db.InsertStream(ctx, f, object.TypeOther, nil, compression)
}

// walkAuxiliaryFiles inserts every regular file under parentDir (the
// formula's own directory: build scripts, patches, auxiliary data) and
// records it under its path relative to parentDir.
func walkAuxiliaryFiles(ctx context.Context, db *objectdb.ObjectDatabase, parentDir string, compression object.Compression) ([]FileEntry, error) {
	var entries []FileEntry
	err := filepath.WalkDir(parentDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		obj, ierr := insertFile(ctx, db, path, compression)
		if ierr != nil {
			return ierr
		}
		rel, rerr := filepath.Rel(parentDir, path)
		if rerr != nil {
			return rerr
		}
		entries = append(entries, FileEntry{Path: rel, OID: obj.OID})
		return nil
	})
	if err != nil {
		return nil, aerrors.Wrap(err, aerrors.KindIo, "walking formula directory").Contextf("path %q", parentDir)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
