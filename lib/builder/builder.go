// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

package builder

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/datawire/dlib/dlog"

	"github.com/AcaciaLinux/tooling-go/lib/aerrors"
	"github.com/AcaciaLinux/tooling-go/lib/architecture"
	"github.com/AcaciaLinux/tooling-go/lib/buildenv"
	"github.com/AcaciaLinux/tooling-go/lib/formula"
	"github.com/AcaciaLinux/tooling-go/lib/mount"
	"github.com/AcaciaLinux/tooling-go/lib/object"
	"github.com/AcaciaLinux/tooling-go/lib/objectdb"
	"github.com/AcaciaLinux/tooling-go/lib/signal"
	"github.com/AcaciaLinux/tooling-go/lib/tree"
)

// Options configures one Build invocation beyond what the Formula itself
// carries.
type Options struct {
	// TargetArch is the architecture the package is being built for; used
	// only to populate PKG_ARCH and PKG_ROOT, since Formula.Arch (if any)
	// has already been validated during resolution.
	TargetArch architecture.Architecture
	// ExternalLowers are additional overlay lower directories layered
	// above the formula's own files — typically a host toolchain's
	// root, searched before (i.e. shadowing) the formula directory.
	ExternalLowers []string
	// ToolchainDirs are prepended (bin/sbin subdirectories) to the PATH
	// build steps see.
	ToolchainDirs []string
	// Compression is used when inserting the resulting artifact Tree's
	// objects into the database.
	Compression object.Compression
}

// Build hydrates formulaObj's files into a fresh Workdir, composes an
// overlay build environment around them, runs the formula's declared
// steps in order, and indexes the resulting install directory into a
// Tree. The first step to exit non-zero stops the build and is returned
// as a KindStepFailed error; the environment is still torn down before
// Build returns.
func Build(ctx context.Context, db *objectdb.ObjectDatabase, formulaObj *object.Object, f *formula.Formula, workdir *Workdir, opts Options, dispatcher *signal.Dispatcher) (*tree.Tree, *object.Object, error) {
	formulaInner := formulaObj.OID.Hex()
	formulaRoot := filepath.Join(workdir.FormulaDir(), formulaInner)

	dlog.Debugf(ctx, "extracting formula %s sources to %s", formulaInner, formulaRoot)
	for _, fe := range f.Files {
		if err := extractFile(ctx, db, fe, formulaRoot); err != nil {
			return nil, nil, err
		}
	}

	steps := buildSteps(f, "/"+formulaInner, workdir.InstallDirInner(), opts.TargetArch.String())
	if len(steps) == 0 {
		return nil, nil, aerrors.New(aerrors.KindAssertion, "formula declares no build steps")
	}

	tr, artifactObj, err := runSteps(ctx, db, workdir, opts, steps, dispatcher)
	if err != nil {
		return nil, nil, err
	}

	dlog.Debugf(ctx, "cleaning up formula directory %s", workdir.FormulaDir())
	if err := os.RemoveAll(workdir.FormulaDir()); err != nil {
		return nil, nil, aerrors.Wrap(err, aerrors.KindIo, "removing formula directory").Contextf("path %q", workdir.FormulaDir())
	}

	return tr, artifactObj, nil
}

func runSteps(ctx context.Context, db *objectdb.ObjectDatabase, workdir *Workdir, opts Options, steps []buildenv.Step, dispatcher *signal.Dispatcher) (*tree.Tree, *object.Object, error) {
	lowers := append([]string{workdir.FormulaDir()}, opts.ExternalLowers...)

	overlay, err := mount.NewOverlayMount(ctx, lowers, workdir.OverlayWorkDir(), workdir.OverlayUpperDir(), workdir.OverlayMergedDir())
	if err != nil {
		return nil, nil, aerrors.Wrap(err, aerrors.KindIo, "composing build overlay")
	}

	env, err := buildenv.New(ctx, overlay, opts.ToolchainDirs)
	if err != nil {
		_ = overlay.Close(ctx)
		return nil, nil, aerrors.Wrap(err, aerrors.KindIo, "creating build environment")
	}
	defer func() {
		if cerr := env.Close(ctx); cerr != nil {
			dlog.Errorf(ctx, "tearing down build environment: %v", cerr)
		}
	}()

	installOuter := filepath.Join(workdir.OverlayMergedDir(), installDirName)
	installBind, err := mount.NewBindMount(ctx, workdir.InstallDir(), installOuter, false)
	if err != nil {
		return nil, nil, aerrors.Wrap(err, aerrors.KindIo, "bind mounting install directory")
	}
	env.AddMount(installBind)

	dlog.Infof(ctx, "build environment ready, executing %d steps", len(steps))
	for _, step := range steps {
		dlog.Infof(ctx, "executing step %q", step.Name)
		if err := env.Execute(ctx, step, dispatcher); err != nil {
			return nil, nil, aerrors.Wrap(err, aerrors.KindIo, "executing build step").Contextf("step %q", step.Name)
		}
	}

	tr, obj, err := tree.Index(ctx, workdir.InstallDir(), db, opts.Compression)
	if err != nil {
		return nil, nil, aerrors.Wrap(err, aerrors.KindIo, "indexing build artifact")
	}
	return tr, obj, nil
}

// buildSteps assembles the prepare/build/check/package steps a formula
// declares, in that fixed order, skipping any left unset. workdir is the
// formula's path as seen from inside the chroot; installDir is likewise
// the install directory's inner path.
func buildSteps(f *formula.Formula, workdir, installDir, arch string) []buildenv.Step {
	env := map[string]string{
		"PKG_NAME":        f.Name,
		"PKG_VERSION":     f.Version,
		"PKG_ARCH":        arch,
		"PKG_INSTALL_DIR": installDir,
		"PKG_ROOT":        fmt.Sprintf("/acacia/%s/%s/%s/root", arch, f.Name, f.Version),
	}

	var steps []buildenv.Step
	add := func(name string, cmd *string) {
		if cmd == nil {
			return
		}
		steps = append(steps, buildenv.Step{Name: name, Command: *cmd, Workdir: workdir, Env: env})
	}
	add("prepare", f.Prepare)
	add("build", f.Build)
	add("check", f.Check)
	add("package", f.Package)
	return steps
}

func extractFile(ctx context.Context, db *objectdb.ObjectDatabase, fe formula.FileEntry, formulaRoot string) error {
	full := filepath.Join(formulaRoot, filepath.FromSlash(fe.Path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return aerrors.Wrap(err, aerrors.KindIo, "creating formula file parent directory").Contextf("path %q", full)
	}

	r, err := db.Read(ctx, fe.OID)
	if err != nil {
		return aerrors.Wrap(err, aerrors.KindIo, "reading formula source object").Contextf("oid %s, path %q", fe.OID.Hex(), fe.Path)
	}
	defer r.Close()

	out, err := os.Create(full)
	if err != nil {
		return aerrors.Wrap(err, aerrors.KindIo, "creating formula source file").Contextf("path %q", full)
	}
	defer out.Close()

	if _, err := io.Copy(out, r.Payload); err != nil {
		return aerrors.Wrap(err, aerrors.KindIo, "extracting formula source file").Contextf("path %q", full)
	}
	return nil
}
