// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

package buildenv

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AcaciaLinux/tooling-go/lib/aerrors"
	"github.com/AcaciaLinux/tooling-go/lib/mount"
)

// orderedMount is a no-op mount.Mount that records its own name to a shared
// order slice when closed, so tests can assert teardown sequencing.
type orderedMount struct {
	name  string
	order *[]string
}

var _ mount.Mount = (*orderedMount)(nil)

func (m *orderedMount) FSType() string        { return "ordered" }
func (m *orderedMount) TargetPath() string    { return "/" + m.name }
func (m *orderedMount) SourcePaths() []string { return nil }
func (m *orderedMount) Close(ctx context.Context) error {
	*m.order = append(*m.order, m.name)
	return nil
}

func TestPathPrependsToolchainDirs(t *testing.T) {
	e := &BuildEnvironment{toolchainDirs: []string{"/opt/tc"}}
	assert.Equal(t, "/opt/tc/bin:/opt/tc/sbin:/bin:/sbin:/usr/bin:/usr/sbin", e.path())
}

func TestPathWithNoToolchainDirs(t *testing.T) {
	e := &BuildEnvironment{}
	assert.Equal(t, "/bin:/sbin:/usr/bin:/usr/sbin", e.path())
}

func TestTranslateExitNil(t *testing.T) {
	assert.NoError(t, translateExit("step", nil))
}

func TestTranslateExitNonzero(t *testing.T) {
	err := exec.Command("sh", "-c", "exit 7").Run()
	require.Error(t, err)

	translated := translateExit("package", err)
	require.Error(t, translated)
	kind, ok := aerrors.KindOf(translated)
	require.True(t, ok)
	assert.Equal(t, aerrors.KindStepFailed, kind)
}

func TestCloseUnmountsInLIFOOrder(t *testing.T) {
	ctx := context.Background()
	var order []string
	m1 := &orderedMount{name: "m1", order: &order}
	m2 := &orderedMount{name: "m2", order: &order}
	root := &orderedMount{name: "root", order: &order}

	e := &BuildEnvironment{root: root, mounts: []mount.Mount{m1, m2}}
	require.NoError(t, e.Close(ctx))

	assert.Equal(t, []string{"m2", "m1", "root"}, order)
	assert.Empty(t, e.mounts)
}
