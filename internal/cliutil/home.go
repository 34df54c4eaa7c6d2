// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package cliutil holds the flag types, home-directory resolution, and
// logging setup shared by cmd/branch, cmd/twig, and cmd/trunk.
package cliutil

import (
	"context"
	"path/filepath"

	"github.com/AcaciaLinux/tooling-go/lib/aerrors"
	"github.com/AcaciaLinux/tooling-go/lib/home"
)

// defaultHomeDirName is appended to the user's home directory when
// --home is not given.
const defaultHomeDirName = ".acacia"

// ResolveHome opens the home directory named by homeFlag, or
// ~/.acacia if homeFlag is empty.
func ResolveHome(ctx context.Context, homeFlag string, userHomeDir func() (string, error)) (*home.Home, error) {
	root := homeFlag
	if root == "" {
		dir, err := userHomeDir()
		if err != nil {
			return nil, aerrors.Wrap(err, aerrors.KindIo, "locating user home directory to default --home")
		}
		root = filepath.Join(dir, defaultHomeDirName)
	}
	return home.New(ctx, root)
}
