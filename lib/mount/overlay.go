// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

package mount

import (
	"context"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/datawire/dlib/dlog"

	"github.com/AcaciaLinux/tooling-go/lib/aerrors"
)

// OverlayMount is an overlayfs mount composed of an ordered list of lower
// directories, a work directory and an upper directory, merged at a
// target path.
type OverlayMount struct {
	lowers               []string
	work, upper, merged  string
	closed               bool
}

var _ Mount = (*OverlayMount)(nil)

// dedupLowersPreservingFirstOccurrence removes duplicate paths from lowers,
// keeping each path's first occurrence and the relative order among the
// survivors.
func dedupLowersPreservingFirstOccurrence(lowers []string) []string {
	seen := make(map[string]bool, len(lowers))
	out := make([]string, 0, len(lowers))
	for _, l := range lowers {
		if seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

// lowerdirData builds the `lowerdir=` value of an overlay mount's data
// string: lowers are deduplicated preserving first occurrence, then that
// deduplicated list is joined in reverse order, since overlayfs searches
// lowerdir entries left-to-right and later-added lowers must win.
func lowerdirData(lowers []string) string {
	deduped := dedupLowersPreservingFirstOccurrence(lowers)
	reversed := make([]string, len(deduped))
	for i, l := range deduped {
		reversed[len(deduped)-1-i] = l
	}
	return strings.Join(reversed, ":")
}

// NewOverlayMount creates every directory in lowers plus work, upper and
// merged (if absent), then mounts an overlayfs combining them at merged.
func NewOverlayMount(ctx context.Context, lowers []string, work, upper, merged string) (*OverlayMount, error) {
	for _, l := range lowers {
		if err := createDirAll(l); err != nil {
			return nil, err
		}
	}
	for _, d := range []string{work, upper, merged} {
		if err := createDirAll(d); err != nil {
			return nil, err
		}
	}

	data := "lowerdir=" + lowerdirData(lowers) + ",upperdir=" + upper + ",workdir=" + work

	dlog.Debugf(ctx, "mounting overlay (%s) => %s", data, merged)

	if err := unix.Mount("overlay", merged, "overlay", 0, data); err != nil {
		return nil, aerrors.Wrap(err, aerrors.KindIo, "mounting overlay").Contextf("data %q => %q", data, merged)
	}

	return &OverlayMount{lowers: lowers, work: work, upper: upper, merged: merged}, nil
}

// FSType implements Mount.
func (m *OverlayMount) FSType() string { return "overlayfs" }

// TargetPath implements Mount.
func (m *OverlayMount) TargetPath() string { return m.merged }

// SourcePaths implements Mount: the lower directories, followed by work
// and upper.
func (m *OverlayMount) SourcePaths() []string {
	paths := make([]string, 0, len(m.lowers)+2)
	paths = append(paths, m.lowers...)
	paths = append(paths, m.work, m.upper)
	return paths
}

// Close implements Mount.
func (m *OverlayMount) Close(ctx context.Context) error {
	if m.closed {
		return nil
	}
	m.closed = true
	return unmount(ctx, m.FSType(), m.merged)
}
