// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

package mount

import (
	"context"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/datawire/dlib/dlog"

	"github.com/AcaciaLinux/tooling-go/lib/aerrors"
)

// VKFSMount mounts a virtual kernel filesystem (proc, sysfs, devpts, ...),
// `mount -t <fs> <fs> <target>`.
type VKFSMount struct {
	fsType, target string
	closed         bool
}

var _ Mount = (*VKFSMount)(nil)

// NewVKFSMount creates target (if absent) and mounts the named
// pseudo-filesystem onto it.
func NewVKFSMount(ctx context.Context, fsType, target string) (*VKFSMount, error) {
	if err := createDirAll(target); err != nil {
		return nil, err
	}

	dlog.Debugf(ctx, "mounting vkfs %s => %s", fsType, target)

	if err := unix.Mount(fsType, target, fsType, 0, ""); err != nil {
		return nil, aerrors.Wrap(err, aerrors.KindIo, "mounting virtual filesystem").Contextf("%s => %q", fsType, target)
	}

	return &VKFSMount{fsType: fsType, target: target}, nil
}

// FSType implements Mount.
func (m *VKFSMount) FSType() string { return fmt.Sprintf("vkfs (%s)", m.fsType) }

// TargetPath implements Mount.
func (m *VKFSMount) TargetPath() string { return m.target }

// SourcePaths implements Mount.
func (m *VKFSMount) SourcePaths() []string { return []string{m.fsType} }

// Close implements Mount.
func (m *VKFSMount) Close(ctx context.Context) error {
	if m.closed {
		return nil
	}
	m.closed = true
	return unmount(ctx, m.FSType(), m.target)
}
