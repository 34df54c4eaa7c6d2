// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

package validators

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/AcaciaLinux/tooling-go/lib/aerrors"
)

// ValidateScript inspects the shebang line of the script at path and
// returns a ReplaceInterpreter action if Index can resolve it, or an
// UnresolvedDependency error otherwise. A file with no shebang line
// yields no actions and no errors.
func ValidateScript(path string, idx Index) ([]Action, []error) {
	interp, ok, err := scriptInterpreter(path)
	if err != nil {
		return nil, []error{aerrors.Wrap(err, aerrors.KindIo, "reading script shebang").Contextf("path %q", path)}
	}
	if !ok {
		return nil, nil
	}

	name := filepath.Base(interp)
	pkg, provided, found := idx.Find(name)
	if !found {
		return nil, []error{unresolvedDependency(name, "script interpreter")}
	}
	return []Action{ReplaceInterpreter{Old: interp, New: provided, Package: pkg}}, nil
}

// scriptInterpreter reads a file's first line and, if it is a shebang
// (`#!<interpreter> [args]`), returns the interpreter path.
func scriptInterpreter(path string) (string, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", false, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return "", false, scanner.Err()
	}
	line := scanner.Text()
	if !strings.HasPrefix(line, "#!") {
		return "", false, nil
	}
	fields := strings.Fields(strings.TrimPrefix(line, "#!"))
	if len(fields) == 0 {
		return "", false, nil
	}
	return fields[0], true, nil
}
