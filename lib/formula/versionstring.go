// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

package formula

import (
	"strconv"
	"strings"

	"github.com/AcaciaLinux/tooling-go/lib/aerrors"
)

// VersionString is a dependency specification of the form
// "name@version/pkgver", as accepted by host_dependencies,
// target_dependencies, and extra_dependencies in a formula file.
type VersionString struct {
	Name    string
	Version string
	Pkgver  uint32
}

// ParseVersionString parses "name@version/pkgver".
func ParseVersionString(s string) (VersionString, error) {
	at := strings.IndexByte(s, '@')
	if at < 0 {
		return VersionString{}, aerrors.New(aerrors.KindParse, "dependency spec missing '@' delimiter").Contextf("spec %q", s)
	}
	name := s[:at]
	rest := s[at+1:]

	slash := strings.IndexByte(rest, '/')
	if slash < 0 {
		return VersionString{}, aerrors.New(aerrors.KindParse, "dependency spec missing '/' delimiter").Contextf("spec %q", s)
	}
	version := rest[:slash]
	pkgverStr := rest[slash+1:]

	pkgver, err := strconv.ParseUint(pkgverStr, 10, 32)
	if err != nil {
		return VersionString{}, aerrors.Wrap(err, aerrors.KindParse, "parsing dependency pkgver").Contextf("spec %q", s)
	}

	return VersionString{Name: name, Version: version, Pkgver: uint32(pkgver)}, nil
}

// String renders "name@version/pkgver".
func (v VersionString) String() string {
	return v.Name + "@" + v.Version + "/" + strconv.FormatUint(uint64(v.Pkgver), 10)
}

// MarshalText implements encoding.TextMarshaler.
func (v VersionString) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *VersionString) UnmarshalText(text []byte) error {
	parsed, err := ParseVersionString(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
