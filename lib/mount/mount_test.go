// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

package mount

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLowerdirDedupPreservesFirstOccurrenceThenReverses(t *testing.T) {
	got := lowerdirData([]string{"A", "B", "A", "C"})
	assert.Equal(t, "C:B:A", got)
}

func TestLowerdirDedupNoDuplicates(t *testing.T) {
	got := lowerdirData([]string{"A", "B", "C"})
	assert.Equal(t, "C:B:A", got)
}

func TestDedupLowersPreservingFirstOccurrence(t *testing.T) {
	got := dedupLowersPreservingFirstOccurrence([]string{"A", "B", "A", "C"})
	assert.Equal(t, []string{"A", "B", "C"}, got)
}

func skipUnlessRoot(t *testing.T) {
	t.Helper()
	if os.Getuid() != 0 {
		t.Skip("mounting requires root or CAP_SYS_ADMIN")
	}
}

func TestBindMountRoundTrip(t *testing.T) {
	skipUnlessRoot(t)
	ctx := context.Background()

	src := filepath.Join(t.TempDir(), "src")
	dst := filepath.Join(t.TempDir(), "dst")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "marker"), []byte("hi"), 0o644))

	m, err := NewBindMount(ctx, src, dst, false)
	require.NoError(t, err)
	defer m.Close(ctx)

	data, err := os.ReadFile(filepath.Join(dst, "marker"))
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))

	require.NoError(t, m.Close(ctx))
	require.NoError(t, m.Close(ctx)) // second Close is a no-op
}

func TestOverlayMountRoundTrip(t *testing.T) {
	skipUnlessRoot(t)
	ctx := context.Background()

	root := t.TempDir()
	lowerA := filepath.Join(root, "lowerA")
	lowerB := filepath.Join(root, "lowerB")
	work := filepath.Join(root, "work")
	upper := filepath.Join(root, "upper")
	merged := filepath.Join(root, "merged")

	require.NoError(t, os.MkdirAll(lowerA, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(lowerA, "base"), []byte("a"), 0o644))
	require.NoError(t, os.MkdirAll(lowerB, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(lowerB, "top"), []byte("b"), 0o644))

	m, err := NewOverlayMount(ctx, []string{lowerA, lowerB}, work, upper, merged)
	require.NoError(t, err)
	defer m.Close(ctx)

	for _, name := range []string{"base", "top"} {
		_, err := os.Stat(filepath.Join(merged, name))
		assert.NoError(t, err, name)
	}

	require.NoError(t, os.WriteFile(filepath.Join(merged, "written"), []byte("c"), 0o644))
	_, err = os.Stat(filepath.Join(upper, "written"))
	assert.NoError(t, err)

	require.NoError(t, m.Close(ctx))
}
