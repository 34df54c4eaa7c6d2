// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package unixinfo wraps the uid/gid/mode triple carried by every Tree
// entry, and the syscalls to read it from and apply it to the filesystem.
package unixinfo

import (
	"io"
	"os"
	"syscall"

	"github.com/AcaciaLinux/tooling-go/lib/aerrors"
	"github.com/AcaciaLinux/tooling-go/lib/linux"
	"github.com/AcaciaLinux/tooling-go/lib/packing"
)

// Info is the `unix_info = { uid, gid, mode }` tuple spec.md §3 attaches to
// every Tree entry.
type Info struct {
	UID  uint32
	GID  uint32
	Mode uint32
}

// StatMode returns the mode bits as a linux.StatMode, for permission-string
// rendering and type testing (IsDir, IsRegular, ...).
func (i Info) StatMode() linux.StatMode {
	return linux.StatMode(i.Mode)
}

// FromFileInfo reads uid/gid/mode from an os.FileInfo, as returned by
// os.Lstat (Lstat, not Stat, so that symlinks report their own mode rather
// than the target's).
func FromFileInfo(fi os.FileInfo) (Info, error) {
	sys, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return Info{}, aerrors.New(aerrors.KindAssertion, "os.FileInfo.Sys() did not return a *syscall.Stat_t")
	}
	return Info{
		UID:  sys.Uid,
		GID:  sys.Gid,
		Mode: uint32(fi.Mode().Perm()) | uint32(sys.Mode&uint32(linux.ModeFmt)),
	}, nil
}

// Apply sets the owner and permission bits of path to i. It does not follow
// symlinks: ownership is applied with Lchown, and permission bits are only
// applied if path is not itself a symlink (symlink permission bits are
// usually meaningless and not all platforms allow changing them).
func Apply(path string, i Info) error {
	if err := os.Lchown(path, int(i.UID), int(i.GID)); err != nil {
		return aerrors.Wrap(err, aerrors.KindIo, "applying owner").Contextf("path %q", path)
	}
	fi, err := os.Lstat(path)
	if err != nil {
		return aerrors.Wrap(err, aerrors.KindIo, "statting path after chown").Contextf("path %q", path)
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		return nil
	}
	if err := os.Chmod(path, os.FileMode(i.Mode&uint32(linux.ModePerm))); err != nil {
		return aerrors.Wrap(err, aerrors.KindIo, "applying mode").Contextf("path %q", path)
	}
	return nil
}

// Pack writes uid, gid, mode as three little-endian u32s.
func (i Info) Pack(w io.Writer) error {
	if err := packing.PackU32(w, i.UID); err != nil {
		return err
	}
	if err := packing.PackU32(w, i.GID); err != nil {
		return err
	}
	return packing.PackU32(w, i.Mode)
}

// Unpack reads a uid/gid/mode triple.
func Unpack(r io.Reader) (Info, bool, error) {
	uid, ok, err := packing.UnpackU32(r)
	if err != nil || !ok {
		return Info{}, ok, err
	}
	gid, ok, err := packing.UnpackU32(r)
	if err != nil {
		return Info{}, false, err
	}
	if !ok {
		return Info{}, false, aerrors.New(aerrors.KindParse, "unpacking unix info: truncated after uid")
	}
	mode, ok, err := packing.UnpackU32(r)
	if err != nil {
		return Info{}, false, err
	}
	if !ok {
		return Info{}, false, aerrors.New(aerrors.KindParse, "unpacking unix info: truncated after gid")
	}
	return Info{UID: uid, GID: gid, Mode: mode}, true, nil
}
