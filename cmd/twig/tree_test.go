// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AcaciaLinux/tooling-go/lib/oid"
	"github.com/AcaciaLinux/tooling-go/lib/tree"
	"github.com/AcaciaLinux/tooling-go/lib/unixinfo"
)

func TestDescribeEntryFile(t *testing.T) {
	id := oid.OID{0xab}
	e := tree.NewFile("bin/ls", unixinfo.Info{}, id)
	assert.Contains(t, describeEntry(e), "bin/ls")
	assert.Contains(t, describeEntry(e), id.Hex())
}

func TestDescribeEntrySymlink(t *testing.T) {
	e := tree.NewSymlink("lib64", unixinfo.Info{}, "lib")
	assert.Contains(t, describeEntry(e), "lib64")
	assert.Contains(t, describeEntry(e), "-> lib")
}

func TestDescribeEntrySubtree(t *testing.T) {
	id := oid.OID{0xcd}
	e := tree.NewSubtree("usr", unixinfo.Info{}, id)
	got := describeEntry(e)
	assert.Contains(t, got, "usr/")
	assert.Contains(t, got, id.Hex())
}
