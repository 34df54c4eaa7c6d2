// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

package formula_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AcaciaLinux/tooling-go/lib/aerrors"
	"github.com/AcaciaLinux/tooling-go/lib/architecture"
	"github.com/AcaciaLinux/tooling-go/lib/formula"
	"github.com/AcaciaLinux/tooling-go/lib/object"
	"github.com/AcaciaLinux/tooling-go/lib/objectdb"
	"github.com/AcaciaLinux/tooling-go/lib/oid"
)

const sampleFormula = `
version = 1

[package]
name = "zlib"
version = "1.3.1"
description = "Compression library"
arch = ["x86_64"]
host_dependencies = ["gcc@13.2.0/1"]
build = "make"
package = "make install"

[package.layout]
main = ["/usr/lib", "/usr/include"]
`

func TestLoadFileParsesSchema(t *testing.T) {
	f, err := formula.LoadFile(strings.NewReader(sampleFormula))
	require.NoError(t, err)

	assert.Equal(t, uint32(1), f.Version)
	assert.Equal(t, "zlib", f.Package.Name)
	assert.Equal(t, "1.3.1", f.Package.Version)
	assert.True(t, f.Package.StripOrDefault())
	require.Len(t, f.Package.Arch, 1)
	assert.Equal(t, "x86_64", f.Package.Arch[0].String())
	require.Len(t, f.Package.HostDependencies, 1)
	assert.Equal(t, "gcc", f.Package.HostDependencies[0].Name)
	assert.Equal(t, uint32(1), f.Package.HostDependencies[0].Pkgver)
	require.NotNil(t, f.Package.Build)
	assert.Equal(t, "make", *f.Package.Build)
}

func TestParseVersionStringRoundTrip(t *testing.T) {
	v, err := formula.ParseVersionString("gcc@13.2.0/1")
	require.NoError(t, err)
	assert.Equal(t, formula.VersionString{Name: "gcc", Version: "13.2.0", Pkgver: 1}, v)
	assert.Equal(t, "gcc@13.2.0/1", v.String())
}

func TestParseVersionStringRejectsMalformed(t *testing.T) {
	_, err := formula.ParseVersionString("gcc-13.2.0")
	require.Error(t, err)
	kind, ok := aerrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, aerrors.KindParse, kind)
}

type stubDownloader struct {
	files map[string]string
}

func (s stubDownloader) Download(ctx context.Context, url string) (string, func(), error) {
	path, ok := s.files[url]
	if !ok {
		return "", nil, aerrors.New(aerrors.KindDownload, "no stub for url").Contextf("url %q", url)
	}
	return path, func() {}, nil
}

func newDB(t *testing.T) *objectdb.ObjectDatabase {
	t.Helper()
	d, err := objectdb.NewFSDriver(t.TempDir(), objectdb.DefaultDepth, 8)
	require.NoError(t, err)
	return objectdb.New(d)
}

func TestResolveArchitectureUnsupported(t *testing.T) {
	ctx := context.Background()
	db := newDB(t)
	dir := t.TempDir()

	f, err := formula.LoadFile(strings.NewReader(sampleFormula))
	require.NoError(t, err)

	idx, err := formula.NewFileDependencyIndex(t.TempDir())
	require.NoError(t, err)

	_, _, err = formula.Resolve(ctx, f, dir, architecture.Parse("aarch64"), db, stubDownloader{}, idx, object.CompressionNone)
	require.Error(t, err)
	kind, ok := aerrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, aerrors.KindArchitectureUnsupported, kind)
}

func TestResolveAssemblesFormula(t *testing.T) {
	ctx := context.Background()
	db := newDB(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "patch.diff"), []byte("--- a\n+++ b\n"), 0o644))

	srcPath := filepath.Join(t.TempDir(), "zlib-1.3.1.tar.gz")
	require.NoError(t, os.WriteFile(srcPath, []byte("fake tarball"), 0o644))

	f, err := formula.LoadFile(strings.NewReader(sampleFormula))
	require.NoError(t, err)
	f.Package.Sources = []formula.Source{{URL: "https://example.invalid/zlib-$PKG_VERSION.tar.gz"}}

	idxDir := t.TempDir()
	idx, err := formula.NewFileDependencyIndex(idxDir)
	require.NoError(t, err)
	gccOID := object.DeriveOID([]byte("gcc binary"), nil)
	require.NoError(t, idx.Record("gcc", "13.2.0", 1, gccOID))

	dl := stubDownloader{files: map[string]string{
		"https://example.invalid/zlib-1.3.1.tar.gz": srcPath,
	}}

	resolved, obj, err := formula.Resolve(ctx, f, dir, architecture.Parse("x86_64"), db, dl, idx, object.CompressionNone)
	require.NoError(t, err)

	assert.Equal(t, "zlib", resolved.Name)
	assert.Equal(t, []oid.OID{gccOID}, resolved.HostDependencies)
	require.Len(t, resolved.Files, 2)

	var names []string
	for _, fe := range resolved.Files {
		names = append(names, fe.Path)
	}
	assert.Contains(t, names, "zlib-1.3.1.tar.gz")
	assert.Contains(t, names, "patch.diff")

	text, err := resolved.TOML()
	require.NoError(t, err)
	assert.Contains(t, text, "zlib")

	decoded, err := formula.DecodeFormula(strings.NewReader(text))
	require.NoError(t, err)
	assert.Equal(t, resolved.HostDependencies, decoded.HostDependencies)

	assert.NotEqual(t, oid.OID{}, obj.OID)
}

func TestResolveUnresolvedDependencyFails(t *testing.T) {
	ctx := context.Background()
	db := newDB(t)
	dir := t.TempDir()

	f, err := formula.LoadFile(strings.NewReader(sampleFormula))
	require.NoError(t, err)
	f.Package.Sources = nil

	idx, err := formula.NewFileDependencyIndex(t.TempDir())
	require.NoError(t, err)

	_, _, err = formula.Resolve(ctx, f, dir, architecture.Parse("x86_64"), db, stubDownloader{}, idx, object.CompressionNone)
	require.Error(t, err)
	kind, ok := aerrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, aerrors.KindDependencyUnresolved, kind)
}
