// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

package validators

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/AcaciaLinux/tooling-go/lib/aerrors"
)

// FileResult is one file's validation outcome: the actions to perform,
// and the dependency lookups that failed along the way. A file with
// neither is omitted by ValidateTree.
type FileResult struct {
	Path    string
	Actions []Action
	Errors  []error
}

// ValidateTree walks every regular file under root, classifying it as an
// ELF binary or a script by content and validating it against idx.
// Directories, symlinks, and files that are neither ELF nor a script
// shebang produce no FileResult.
func ValidateTree(root string, idx Index, strip bool) ([]FileResult, error) {
	var results []FileResult

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		rel, rerr := filepath.Rel(root, path)
		if rerr != nil {
			return rerr
		}

		switch kind, kerr := classify(path); {
		case kerr != nil:
			return kerr
		case kind == kindELF:
			actions, errs := ValidateELF(path, idx, strip)
			if len(actions) > 0 || len(errs) > 0 {
				results = append(results, FileResult{Path: rel, Actions: actions, Errors: errs})
			}
		case kind == kindScript:
			actions, errs := ValidateScript(path, idx)
			if len(actions) > 0 || len(errs) > 0 {
				results = append(results, FileResult{Path: rel, Actions: actions, Errors: errs})
			}
		}
		return nil
	})
	if err != nil {
		return nil, aerrors.Wrap(err, aerrors.KindIo, "walking tree for validation").Contextf("root %q", root)
	}
	return results, nil
}

type fileKind int

const (
	kindOther fileKind = iota
	kindELF
	kindScript
)

// classify sniffs a file's leading bytes to tell an ELF binary from a
// shebang script from anything else, without fully parsing either.
func classify(path string) (fileKind, error) {
	f, err := os.Open(path)
	if err != nil {
		return kindOther, err
	}
	defer f.Close()

	var magic [4]byte
	n, err := f.Read(magic[:])
	if err != nil && n == 0 {
		return kindOther, nil
	}
	if n >= 4 && magic[0] == '\x7f' && magic[1] == 'E' && magic[2] == 'L' && magic[3] == 'F' {
		return kindELF, nil
	}
	if n >= 2 && magic[0] == '#' && magic[1] == '!' {
		return kindScript, nil
	}
	return kindOther, nil
}
