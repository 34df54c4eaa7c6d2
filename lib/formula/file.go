// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package formula implements the Formula Model: parsing the user-authored
// TOML formula file, resolving it (fetching sources, walking auxiliary
// files, inserting everything into an object database) into the wire
// Formula form, and that form's own ODB codec.
package formula

import (
	"strings"

	"github.com/AcaciaLinux/tooling-go/lib/aerrors"
	"github.com/AcaciaLinux/tooling-go/lib/architecture"
)

// File is the user-authored formula source, parsed directly from TOML
// (spec.md §6's "Formula source file").
type File struct {
	Version uint32  `toml:"version"`
	Package Package `toml:"package"`
}

// Package is the [package] table of a formula file.
type Package struct {
	Name        string `toml:"name"`
	Version     string `toml:"version"`
	Description string `toml:"description"`

	// Strip defaults to true when absent; use StripOrDefault to read it.
	Strip *bool `toml:"strip"`

	// Arch is absent for an architecture-independent package.
	Arch []architecture.Architecture `toml:"arch"`

	HostDependencies   []VersionString `toml:"host_dependencies"`
	TargetDependencies []VersionString `toml:"target_dependencies"`
	ExtraDependencies  []VersionString `toml:"extra_dependencies"`

	Prepare *string `toml:"prepare"`
	Build   *string `toml:"build"`
	Check   *string `toml:"check"`
	Package *string `toml:"package"`

	Sources []Source `toml:"sources"`

	Layout map[string][]string `toml:"layout"`
}

// Source is one [[package.sources]] entry.
type Source struct {
	URL string `toml:"url"`
	// Dest defaults to the last path segment of URL when absent.
	Dest *string `toml:"dest"`
	// Extract defaults to true when absent.
	Extract *bool `toml:"extract"`
}

// StripOrDefault reports whether binaries should be stripped, defaulting
// to true when the formula left the field unset.
func (p Package) StripOrDefault() bool {
	if p.Strip == nil {
		return true
	}
	return *p.Strip
}

// ExtractOrDefault reports whether this source's archive should be
// extracted at build time, defaulting to true when unset.
func (s Source) ExtractOrDefault() bool {
	if s.Extract == nil {
		return true
	}
	return *s.Extract
}

// FullName renders "<arch>-<name>-<version>", the canonical package
// identity string used in logs and artifact naming.
func (p Package) FullName(arch string) string {
	return arch + "-" + p.Name + "-" + p.Version
}

// resolvedVariables carries the substitution values for
// $PKG_NAME/$PKG_VERSION/$PKG_ARCH expansion in source URLs and destinations.
type resolvedVariables struct {
	Name, Version, Arch string
}

func (p Package) variables(arch string) resolvedVariables {
	return resolvedVariables{Name: p.Name, Version: p.Version, Arch: arch}
}

func (v resolvedVariables) expand(s string) string {
	s = strings.ReplaceAll(s, "$PKG_NAME", v.Name)
	s = strings.ReplaceAll(s, "$PKG_VERSION", v.Version)
	s = strings.ReplaceAll(s, "$PKG_ARCH", v.Arch)
	return s
}

// URLFor expands $PKG_NAME/$PKG_VERSION/$PKG_ARCH in this source's URL.
func (s Source) URLFor(pkg Package, arch string) string {
	return pkg.variables(arch).expand(s.URL)
}

// DestFor expands $PKG_NAME/$PKG_VERSION/$PKG_ARCH in this source's
// destination, defaulting to the last path segment of its (expanded) URL.
func (s Source) DestFor(pkg Package, arch string) string {
	vars := pkg.variables(arch)
	if s.Dest != nil {
		return vars.expand(*s.Dest)
	}
	url := vars.expand(s.URL)
	if i := strings.LastIndexByte(url, '/'); i >= 0 {
		return url[i+1:]
	}
	return url
}

// Architectures returns the formula's declared supported architectures, or
// nil if it is architecture-independent.
func (p Package) Architectures() []architecture.Architecture {
	return p.Arch
}

// validate performs the structural checks a formula file must pass before
// resolution: required fields present, version understood.
func (f File) validate() error {
	if f.Version != CurrentFileVersion {
		return aerrors.New(aerrors.KindUnsupportedVersion, "unsupported formula file version").Contextf("got %d, want %d", f.Version, CurrentFileVersion)
	}
	if f.Package.Name == "" {
		return aerrors.New(aerrors.KindParse, "formula package.name is required")
	}
	if f.Package.Version == "" {
		return aerrors.New(aerrors.KindParse, "formula package.version is required")
	}
	return nil
}

// CurrentFileVersion is the only formula-file `version` this implementation
// understands.
const CurrentFileVersion = 1
