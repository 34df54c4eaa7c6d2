// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

package cliutil_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AcaciaLinux/tooling-go/internal/cliutil"
	"github.com/AcaciaLinux/tooling-go/lib/object"
)

func TestLogLevelFlagCounts(t *testing.T) {
	f := cliutil.NewLogLevelFlag()
	assert.Equal(t, logrus.WarnLevel, f.Level)

	require.NoError(t, f.Set("1"))
	assert.Equal(t, logrus.InfoLevel, f.Level)

	require.NoError(t, f.Set("2"))
	assert.Equal(t, logrus.DebugLevel, f.Level)

	require.NoError(t, f.Set("5"))
	assert.Equal(t, logrus.TraceLevel, f.Level)

	require.NoError(t, f.Set("0"))
	assert.Equal(t, logrus.WarnLevel, f.Level)
}

func TestLogLevelFlagRejectsNonNumeric(t *testing.T) {
	f := cliutil.NewLogLevelFlag()
	assert.Error(t, f.Set("debug"))
}

func TestCompressionFlagParsesBoth(t *testing.T) {
	f := cliutil.NewCompressionFlag(object.CompressionXz)
	assert.Equal(t, "xz", f.String())

	require.NoError(t, f.Set("none"))
	assert.Equal(t, object.CompressionNone, f.Compression)

	require.NoError(t, f.Set("xz"))
	assert.Equal(t, object.CompressionXz, f.Compression)

	assert.Error(t, f.Set("gzip"))
}

func TestResolveHomeUsesHomeFlagWhenSet(t *testing.T) {
	root := filepath.Join(t.TempDir(), "explicit")
	h, err := cliutil.ResolveHome(context.Background(), root, func() (string, error) {
		t.Fatal("userHomeDir should not be consulted when --home is set")
		return "", nil
	})
	require.NoError(t, err)
	assert.Equal(t, root, h.Root())
}

func TestResolveHomeDefaultsToUserHomeDotAcacia(t *testing.T) {
	base := t.TempDir()
	h, err := cliutil.ResolveHome(context.Background(), "", func() (string, error) {
		return base, nil
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, ".acacia"), h.Root())
}

func TestResolveHomeSurfacesUserHomeDirError(t *testing.T) {
	_, err := cliutil.ResolveHome(context.Background(), "", func() (string, error) {
		return "", errors.New("no $HOME")
	})
	assert.Error(t, err)
}
