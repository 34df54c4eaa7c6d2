// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

package validators_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AcaciaLinux/tooling-go/lib/validators"
)

type fakeIndex map[string][2]string // filename -> [package, path]

func (i fakeIndex) Find(filename string) (string, string, bool) {
	v, ok := i[filename]
	if !ok {
		return "", "", false
	}
	return v[0], v[1], true
}

func TestSetInterpreterCommand(t *testing.T) {
	a := validators.SetInterpreter{Interpreter: "lib/ld-linux.so", Package: "glibc"}
	got := a.Command("/dist/zlib/bin/zlib", "/dist")
	assert.Equal(t, []string{"patchelf", "--set-interpreter", filepath.Join("/dist", "link", "glibc", "lib/ld-linux.so"), "/dist/zlib/bin/zlib"}, got)
}

func TestAddRunPathCommand(t *testing.T) {
	a := validators.AddRunPath{RunPath: "lib", Package: "zlib"}
	got := a.Command("/dist/app/bin/app", "/dist")
	assert.Equal(t, []string{"patchelf", "--add-rpath", filepath.Join("/dist", "link", "zlib", "lib"), "/dist/app/bin/app"}, got)
}

func TestStripCommand(t *testing.T) {
	got := validators.Strip{}.Command("/dist/app/bin/app", "/dist")
	assert.Equal(t, []string{"strip", "/dist/app/bin/app"}, got)
}

func TestReplaceInterpreterCommand(t *testing.T) {
	a := validators.ReplaceInterpreter{Old: "/usr/bin/python3", New: "bin/python3", Package: "python"}
	got := a.Command("/dist/app/bin/script", "/dist")
	assert.Equal(t, []string{"sed", "-i", "1s#/usr/bin/python3#" + filepath.Join("/dist", "link", "python", "bin/python3") + "#", "/dist/app/bin/script"}, got)
}

func TestValidateScriptResolvesInterpreter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/usr/bin/env bash\necho hi\n"), 0o755))

	idx := fakeIndex{"env": {"coreutils", "bin/env"}}
	actions, errs := validators.ValidateScript(path, idx)
	require.Empty(t, errs)
	require.Len(t, actions, 1)
	ri, ok := actions[0].(validators.ReplaceInterpreter)
	require.True(t, ok)
	assert.Equal(t, "/usr/bin/env", ri.Old)
	assert.Equal(t, "coreutils", ri.Package)
}

func TestValidateScriptUnresolvedInterpreterCollectsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/opt/weird/bin/lua\n"), 0o755))

	actions, errs := validators.ValidateScript(path, fakeIndex{})
	assert.Empty(t, actions)
	require.Len(t, errs, 1)
}

func TestValidateScriptNoShebangIsNoop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")
	require.NoError(t, os.WriteFile(path, []byte("just data\n"), 0o644))

	actions, errs := validators.ValidateScript(path, fakeIndex{})
	assert.Empty(t, actions)
	assert.Empty(t, errs)
}

func TestValidateTreeSkipsPlainFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("hello"), 0o644))

	results, err := validators.ValidateTree(dir, fakeIndex{}, false)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestValidateTreeFindsScriptAction(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run.sh"), []byte("#!/bin/sh\necho hi\n"), 0o755))

	idx := fakeIndex{"sh": {"busybox", "bin/sh"}}
	results, err := validators.ValidateTree(dir, idx, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "run.sh", results[0].Path)
	require.Len(t, results[0].Actions, 1)
}
