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

// BindMount is a `mount --bind [-o ro] <source> <target>` mount.
type BindMount struct {
	source, target string
	readonly        bool
	closed          bool
}


var _ Mount = (*BindMount)(nil)

// NewBindMount creates source and target (if absent) and bind-mounts
// source onto target, remounting read-only when readonly is set.
func NewBindMount(ctx context.Context, source, target string, readonly bool) (*BindMount, error) {
	if err := createDirAll(source); err != nil {
		return nil, err
	}
	if err := createDirAll(target); err != nil {
		return nil, err
	}

	dlog.Debugf(ctx, "mounting bind %s => %s (readonly=%v)", source, target, readonly)

	if err := unix.Mount(source, target, "", unix.MS_BIND, ""); err != nil {
		return nil, aerrors.Wrap(err, aerrors.KindIo, "bind mounting").Contextf("%q => %q", source, target)
	}
	if readonly {
		// A bind mount's flags can't be set in the initial call; the
		// read-only bit must be applied with a remount.
		if err := unix.Mount(source, target, "", unix.MS_BIND|unix.MS_REMOUNT|unix.MS_RDONLY, ""); err != nil {
			_ = unix.Unmount(target, unix.MNT_DETACH)
			return nil, aerrors.Wrap(err, aerrors.KindIo, "remounting bind read-only").Contextf("%q", target)
		}
	}

	return &BindMount{source: source, target: target, readonly: readonly}, nil
}

// FSType implements Mount.
func (m *BindMount) FSType() string { return fmt.Sprintf("bind (readonly=%v)", m.readonly) }

// TargetPath implements Mount.
func (m *BindMount) TargetPath() string { return m.target }

// SourcePaths implements Mount.
func (m *BindMount) SourcePaths() []string { return []string{m.source} }

// Close implements Mount.
func (m *BindMount) Close(ctx context.Context) error {
	if m.closed {
		return nil
	}
	m.closed = true
	return unmount(ctx, m.FSType(), m.target)
}
