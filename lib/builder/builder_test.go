// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

package builder

import (
	"context"
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AcaciaLinux/tooling-go/lib/aerrors"
	"github.com/AcaciaLinux/tooling-go/lib/architecture"
	"github.com/AcaciaLinux/tooling-go/lib/formula"
	"github.com/AcaciaLinux/tooling-go/lib/object"
	"github.com/AcaciaLinux/tooling-go/lib/objectdb"
	"github.com/AcaciaLinux/tooling-go/lib/signal"
)

func strp(s string) *string { return &s }

func TestBuildStepsOrderAndSkipsUnset(t *testing.T) {
	f := &formula.Formula{
		Name:    "zlib",
		Version: "1.3.1",
		Build:   strp("make"),
		Package: strp("make install"),
	}

	steps := buildSteps(f, "/deadbeef", "/install", "x86_64")
	require.Len(t, steps, 2)
	assert.Equal(t, "build", steps[0].Name)
	assert.Equal(t, "make", steps[0].Command)
	assert.Equal(t, "/deadbeef", steps[0].Workdir)
	assert.Equal(t, "package", steps[1].Name)
	assert.Equal(t, "make install", steps[1].Command)
}

func TestBuildStepsEnvVars(t *testing.T) {
	f := &formula.Formula{Name: "zlib", Version: "1.3.1", Build: strp("make")}
	steps := buildSteps(f, "/deadbeef", "/install", "x86_64")
	require.Len(t, steps, 1)

	env := steps[0].Env
	assert.Equal(t, "zlib", env["PKG_NAME"])
	assert.Equal(t, "1.3.1", env["PKG_VERSION"])
	assert.Equal(t, "x86_64", env["PKG_ARCH"])
	assert.Equal(t, "/install", env["PKG_INSTALL_DIR"])
	assert.Equal(t, "/acacia/x86_64/zlib/1.3.1/root", env["PKG_ROOT"])
}

func TestBuildStepsAllUnsetIsEmpty(t *testing.T) {
	f := &formula.Formula{Name: "zlib", Version: "1.3.1"}
	assert.Empty(t, buildSteps(f, "/deadbeef", "/install", "x86_64"))
}

// TestBuildFailureSurfacing exercises the concrete scenario of a formula
// whose build step is literally `exit 7`, requiring a real chroot and
// overlayfs, so it only runs with the privileges to mount and chroot.
func TestBuildFailureSurfacing(t *testing.T) {
	if os.Getuid() != 0 {
		t.Skip("requires root to mount overlayfs and chroot")
	}
	if _, err := exec.LookPath("chroot"); err != nil {
		t.Skip("chroot not available")
	}

	ctx := context.Background()
	home := t.TempDir()

	d, err := objectdb.NewFSDriver(t.TempDir(), objectdb.DefaultDepth, 8)
	require.NoError(t, err)
	db := objectdb.New(d)

	f := &formula.Formula{Name: "failpkg", Version: "1.0.0", Build: strp("exit 7")}
	obj, err := f.Insert(ctx, db, object.CompressionNone)
	require.NoError(t, err)

	workdir, err := NewWorkdir(home)
	require.NoError(t, err)

	opts := Options{TargetArch: architecture.Parse("x86_64"), Compression: object.CompressionNone}

	_, _, err = Build(ctx, db, obj, f, workdir, opts, signal.New())
	require.Error(t, err)
	kind, ok := aerrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, aerrors.KindStepFailed, kind)
}
