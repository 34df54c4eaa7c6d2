// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package mount wraps the mount(2)/umount2(2) syscalls behind a small
// Mount interface, with one implementation per filesystem kind a build
// environment needs: bind mounts, virtual kernel filesystems (proc,
// sysfs, devpts, ...) and overlayfs.
package mount

import (
	"context"
	"os"

	"golang.org/x/sys/unix"

	"github.com/datawire/dlib/dlog"

	"github.com/AcaciaLinux/tooling-go/lib/aerrors"
)

// Mount is a filesystem mounted at a target path, unmountable exactly
// once via Close.
type Mount interface {
	// FSType describes the kind of mount ("bind", "vkfs (proc)", "overlayfs").
	FSType() string
	// TargetPath is where this filesystem is mounted.
	TargetPath() string
	// SourcePaths are the directories (or pseudo-filesystem names) feeding
	// this mount; Overlay reports its lowers, work and upper dirs.
	SourcePaths() []string
	// Close lazily unmounts (MNT_DETACH) the target. Safe to call once;
	// a second call is a no-op.
	Close(ctx context.Context) error
}

func createDirAll(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return aerrors.Wrap(err, aerrors.KindIo, "creating mount directory").Contextf("path %q", path)
	}
	return nil
}

func unmount(ctx context.Context, fsType, target string) error {
	dlog.Debugf(ctx, "unmounting %s at %s", fsType, target)
	if err := unix.Unmount(target, unix.MNT_DETACH); err != nil {
		return aerrors.Wrap(err, aerrors.KindIo, "unmounting filesystem").Contextf("target %q (%s)", target, fsType)
	}
	return nil
}
