// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package architecture implements the {main, sub...} architecture
// descriptor and its can_run_on/can_host compatibility relation.
package architecture

import (
	"strings"

	"github.com/AcaciaLinux/tooling-go/lib/slices"
)

// Architecture is a main architecture name plus an ordered set of
// subarchitecture extensions (e.g. "x86_64" with subs "avx2", "sse4").
type Architecture struct {
	Main string
	Sub  []string
}

// New builds an Architecture with no subarchitectures.
func New(main string) Architecture {
	return Architecture{Main: main}
}

// Parse decodes the "main-sub1-sub2..." grammar restored from the
// pre-distillation architecture-string convention.
func Parse(s string) Architecture {
	parts := strings.Split(s, "-")
	if len(parts) == 0 {
		return Architecture{}
	}
	return Architecture{Main: parts[0], Sub: parts[1:]}
}

// String renders the "main-sub1-sub2..." form.
func (a Architecture) String() string {
	if len(a.Sub) == 0 {
		return a.Main
	}
	return a.Main + "-" + strings.Join(a.Sub, "-")
}

// CanRunOn reports whether a can run on host: their main architectures
// match and a's subarchitecture requirements are a subset of host's.
func (a Architecture) CanRunOn(host Architecture) bool {
	if a.Main != host.Main {
		return false
	}
	return isSubset(a.Sub, host.Sub)
}

// CanHost reports whether a can host guest: the converse of CanRunOn.
func (a Architecture) CanHost(guest Architecture) bool {
	return guest.CanRunOn(a)
}

// MarshalText implements encoding.TextMarshaler, so an Architecture
// serializes as its "main-sub1-sub2..." string in TOML formula files.
func (a Architecture) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Architecture) UnmarshalText(text []byte) error {
	*a = Parse(string(text))
	return nil
}

func isSubset(subset, of []string) bool {
	for _, e := range subset {
		if !slices.Contains(e, of) {
			return false
		}
	}
	return true
}
