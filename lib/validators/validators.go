// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package validators inspects a deployed package's files and emits the
// concrete shell commands needed to make it runnable against its
// dependencies: ELF interpreters and RUNPATHs are pointed at wherever
// the providing package actually lives, and script shebangs are
// rewritten the same way.
package validators

import (
	"fmt"
	"path/filepath"
)

// Index resolves the basename of a needed file (an ELF interpreter, a
// shared object, a script interpreter) to the name of the package
// providing it and that file's path relative to the providing package's
// own root.
type Index interface {
	Find(filename string) (pkgName string, path string, found bool)
}

// Action is one concrete fixup to apply to a deployed file.
type Action interface {
	// Command renders this action as an argv, given the file it applies
	// to and the absolute path to the distribution directory (the root
	// under which every package's `link/<dependency>` directory lives).
	Command(file, distDir string) []string
	fmt.Stringer
}

// SetInterpreter points file's ELF interpreter (PT_INTERP) at the copy
// provided by Package.
type SetInterpreter struct {
	Interpreter string
	Package     string
}

// Command implements Action.
func (a SetInterpreter) Command(file, distDir string) []string {
	dest := linkPath(distDir, a.Package, a.Interpreter)
	return []string{"patchelf", "--set-interpreter", dest, file}
}

func (a SetInterpreter) String() string {
	return fmt.Sprintf("set ELF interpreter to %q (package %q)", a.Interpreter, a.Package)
}

// AddRunPath adds RunPath (provided by Package) to file's DT_RUNPATH.
type AddRunPath struct {
	RunPath string
	Package string
}

// Command implements Action.
func (a AddRunPath) Command(file, distDir string) []string {
	dest := linkPath(distDir, a.Package, a.RunPath)
	return []string{"patchelf", "--add-rpath", dest, file}
}

func (a AddRunPath) String() string {
	return fmt.Sprintf("add runpath %q (package %q)", a.RunPath, a.Package)
}

// Strip removes debug symbols from file.
type Strip struct{}

// Command implements Action.
func (Strip) Command(file, distDir string) []string {
	return []string{"strip", file}
}

func (Strip) String() string { return "strip debug symbols" }

// ReplaceInterpreter rewrites a script's shebang line from Old to the
// copy of the interpreter New provided by Package.
type ReplaceInterpreter struct {
	Old, New string
	Package  string
}

// Command implements Action.
func (a ReplaceInterpreter) Command(file, distDir string) []string {
	dest := linkPath(distDir, a.Package, a.New)
	return []string{"sed", "-i", fmt.Sprintf("1s#%s#%s#", a.Old, dest), file}
}

func (a ReplaceInterpreter) String() string {
	return fmt.Sprintf("replace script interpreter %q with %q (package %q)", a.Old, a.New, a.Package)
}

// linkPath is where a dependency's files are exposed to a package's own
// tree: <distDir>/link/<package>/<path>.
func linkPath(distDir, pkg, path string) string {
	return filepath.Join(distDir, "link", pkg, path)
}

var (
	_ Action = SetInterpreter{}
	_ Action = AddRunPath{}
	_ Action = Strip{}
	_ Action = ReplaceInterpreter{}
)
