// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, contents []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, contents, 0o644))
}

func TestNewDirIndexFindsFileByBasename(t *testing.T) {
	dist := t.TempDir()
	writeFile(t, filepath.Join(dist, "glibc", "lib", "ld-linux-x86-64.so.2"), []byte("elf"))
	writeFile(t, filepath.Join(dist, "bash", "bin", "bash"), []byte("elf"))

	idx, err := newDirIndex(dist)
	require.NoError(t, err)

	pkg, path, found := idx.Find("ld-linux-x86-64.so.2")
	assert.True(t, found)
	assert.Equal(t, "glibc", pkg)
	assert.Equal(t, filepath.Join("lib", "ld-linux-x86-64.so.2"), path)

	_, _, found = idx.Find("nonexistent.so")
	assert.False(t, found)
}

func TestNewDirIndexFirstPackageWins(t *testing.T) {
	dist := t.TempDir()
	writeFile(t, filepath.Join(dist, "aaa-pkg", "lib", "libfoo.so"), []byte("elf"))
	writeFile(t, filepath.Join(dist, "zzz-pkg", "lib", "libfoo.so"), []byte("elf"))

	idx, err := newDirIndex(dist)
	require.NoError(t, err)

	pkg, _, found := idx.Find("libfoo.so")
	assert.True(t, found)
	assert.Equal(t, "aaa-pkg", pkg)
}

func TestNewDirIndexRejectsMissingDirectory(t *testing.T) {
	_, err := newDirIndex(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}

func TestNewValidateCommandDeclaresFlags(t *testing.T) {
	cmd := newValidateCommand(&rootFlags{})

	dist := cmd.Flags().Lookup("dist")
	require.NotNil(t, dist)
	assert.Equal(t, "", dist.DefValue)

	strip := cmd.Flags().Lookup("strip")
	require.NotNil(t, strip)
	assert.Equal(t, "true", strip.DefValue)
}
