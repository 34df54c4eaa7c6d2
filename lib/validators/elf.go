// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

package validators

import (
	"debug/elf"
	"path/filepath"
	"strings"

	"github.com/AcaciaLinux/tooling-go/lib/aerrors"
)

// ValidateELF inspects the ELF file at path and returns the actions
// needed to make it runnable against the packages Index knows about,
// plus one UnresolvedDependency error per interpreter or needed shared
// object that Index could not resolve. Unresolved lookups don't stop
// the walk; Strip is appended unconditionally when strip is set, since
// it never depends on resolution.
func ValidateELF(path string, idx Index, strip bool) ([]Action, []error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, []error{aerrors.Wrap(err, aerrors.KindParse, "opening ELF file").Contextf("path %q", path)}
	}
	defer f.Close()

	var actions []Action
	var errs []error

	if interp, ok := elfInterpreter(f); ok {
		name := filepath.Base(interp)
		if pkg, provided, found := idx.Find(name); found {
			actions = append(actions, SetInterpreter{Interpreter: provided, Package: pkg})
		} else {
			errs = append(errs, unresolvedDependency(name, "ELF interpreter"))
		}
	}

	needed, err := f.ImportedLibraries()
	if err != nil {
		errs = append(errs, aerrors.Wrap(err, aerrors.KindParse, "reading DT_NEEDED entries").Contextf("path %q", path))
	}
	for _, lib := range needed {
		if pkg, provided, found := idx.Find(lib); found {
			actions = append(actions, AddRunPath{RunPath: filepath.Dir(provided), Package: pkg})
		} else {
			errs = append(errs, unresolvedDependency(lib, "needed shared object"))
		}
	}

	if strip {
		actions = append(actions, Strip{})
	}

	return actions, errs
}

// elfInterpreter returns the ELF file's PT_INTERP path (stored in its
// .interp section), if it has one.
func elfInterpreter(f *elf.File) (string, bool) {
	sec := f.Section(".interp")
	if sec == nil {
		return "", false
	}
	data, err := sec.Data()
	if err != nil {
		return "", false
	}
	return strings.TrimRight(string(data), "\x00"), len(data) > 0
}

func unresolvedDependency(filename, what string) error {
	return aerrors.New(aerrors.KindDependencyUnresolved, "unresolved "+what).Contextf("filename %q", filename)
}
