// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package buildenv executes build steps inside a chrooted, overlaid root
// filesystem: a fixed set of virtual kernel filesystems is mounted
// alongside the caller-supplied root mount, and each step runs as
// `chroot <root> env -C <workdir> sh -e -c <command>` with its stdout
// folded into the parent's stderr.
package buildenv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/datawire/dlib/dlog"

	"github.com/AcaciaLinux/tooling-go/lib/aerrors"
	"github.com/AcaciaLinux/tooling-go/lib/mount"
	"github.com/AcaciaLinux/tooling-go/lib/signal"
)

// pollInterval is the granularity at which a running step's exit is polled.
const pollInterval = 100 * time.Millisecond

// Step is a single command to run inside a BuildEnvironment.
type Step struct {
	// Name identifies the step in logs and in a StepFailed error.
	Name string
	// Command is the shell command passed to `sh -e -c`.
	Command string
	// Workdir is the directory (relative to the chroot root) to run
	// Command in.
	Workdir string
	// Env holds additional environment variables passed to the step, on
	// top of the injected PATH.
	Env map[string]string
}

// BuildEnvironment wraps a root mount plus the fixed set of auxiliary
// mounts (/dev, /dev/pts, /proc, /sys, /run) a chrooted build needs, and
// tears all of them down in LIFO order on Close.
type BuildEnvironment struct {
	root          mount.Mount
	mounts        []mount.Mount
	toolchainDirs []string
}

// New mounts the fixed auxiliary filesystems under rootMount's target path
// and returns a BuildEnvironment ready to execute steps. toolchainDirs are
// prepended to PATH (bin and sbin subdirectories of each), in order.
func New(ctx context.Context, rootMount mount.Mount, toolchainDirs []string) (*BuildEnvironment, error) {
	target := rootMount.TargetPath()

	devMount, err := mount.NewBindMount(ctx, "/dev", filepath.Join(target, "dev"), false)
	if err != nil {
		return nil, aerrors.Wrap(err, aerrors.KindIo, "mounting build environment").Contextf("dev")
	}
	devPtsMount, err := mount.NewBindMount(ctx, "/dev/pts", filepath.Join(target, "dev", "pts"), false)
	if err != nil {
		_ = devMount.Close(ctx)
		return nil, aerrors.Wrap(err, aerrors.KindIo, "mounting build environment").Contextf("dev/pts")
	}
	procMount, err := mount.NewVKFSMount(ctx, "proc", filepath.Join(target, "proc"))
	if err != nil {
		_ = devPtsMount.Close(ctx)
		_ = devMount.Close(ctx)
		return nil, aerrors.Wrap(err, aerrors.KindIo, "mounting build environment").Contextf("proc")
	}
	sysMount, err := mount.NewVKFSMount(ctx, "sysfs", filepath.Join(target, "sys"))
	if err != nil {
		_ = procMount.Close(ctx)
		_ = devPtsMount.Close(ctx)
		_ = devMount.Close(ctx)
		return nil, aerrors.Wrap(err, aerrors.KindIo, "mounting build environment").Contextf("sys")
	}
	runMount, err := mount.NewVKFSMount(ctx, "tmpfs", filepath.Join(target, "run"))
	if err != nil {
		_ = sysMount.Close(ctx)
		_ = procMount.Close(ctx)
		_ = devPtsMount.Close(ctx)
		_ = devMount.Close(ctx)
		return nil, aerrors.Wrap(err, aerrors.KindIo, "mounting build environment").Contextf("run")
	}

	return &BuildEnvironment{
		root:          rootMount,
		mounts:        []mount.Mount{devMount, devPtsMount, procMount, sysMount, runMount},
		toolchainDirs: toolchainDirs,
	}, nil
}

// AddMount registers an additional mount this environment owns and will
// unmount (in LIFO order, alongside the fixed auxiliary mounts) on Close.
func (e *BuildEnvironment) AddMount(m mount.Mount) {
	e.mounts = append(e.mounts, m)
}

// RootMount returns the overlay (or other) mount this environment chroots
// into.
func (e *BuildEnvironment) RootMount() mount.Mount {
	return e.root
}

// path builds the PATH injected into every step: bin and sbin under each
// toolchain directory, in order, followed by the standard FHS directories.
func (e *BuildEnvironment) path() string {
	var parts []string
	for _, dir := range e.toolchainDirs {
		parts = append(parts, filepath.Join(dir, "bin"), filepath.Join(dir, "sbin"))
	}
	parts = append(parts, "/bin", "/sbin", "/usr/bin", "/usr/sbin")
	return strings.Join(parts, ":")
}

// Execute runs step inside the chroot, redirecting its stdout into the
// parent's stderr, registering a kill-on-cancel handler on dispatcher for
// the step's duration, and polling for completion at pollInterval
// granularity. A nonzero exit is returned as a KindStepFailed error.
func (e *BuildEnvironment) Execute(ctx context.Context, step Step, dispatcher *signal.Dispatcher) error {
	cmd := exec.Command("/bin/chroot", e.root.TargetPath(), "env", "-C", step.Workdir, "sh", "-e", "-c", step.Command)
	cmd.Env = []string{"PATH=" + e.path()}
	for _, k := range sortedKeys(step.Env) {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, step.Env[k]))
	}

	dlog.Debugf(ctx, "running build step %q: chroot %s env -C %s sh -e -c %q", step.Name, e.root.TargetPath(), step.Workdir, step.Command)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return aerrors.Wrap(err, aerrors.KindIo, "creating stdout pipe").Contextf("step %q", step.Name)
	}
	if err := cmd.Start(); err != nil {
		return aerrors.Wrap(err, aerrors.KindIo, "spawning build step").Contextf("step %q", step.Name)
	}

	var mu sync.Mutex
	guard := dispatcher.AddHandler(func() {
		mu.Lock()
		defer mu.Unlock()
		if cmd.Process == nil {
			return
		}
		if killErr := cmd.Process.Kill(); killErr != nil {
			dlog.Errorf(ctx, "failed to kill build step %q: %v", step.Name, killErr)
		} else {
			dlog.Warnf(ctx, "killed build step %q", step.Name)
		}
	})
	defer guard.Release()

	redirectDone := make(chan struct{})
	go func() {
		defer close(redirectDone)
		_, _ = io.Copy(os.Stderr, stdout)
	}()

	var waitErr error
	waitDone := make(chan struct{})
	go func() {
		defer close(waitDone)
		waitErr = cmd.Wait()
	}()

	for {
		select {
		case <-waitDone:
			<-redirectDone
			return translateExit(step.Name, waitErr)
		case <-time.After(pollInterval):
		}
	}
}

func translateExit(stepName string, err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return aerrors.NewStepFailed(stepName, exitErr.ExitCode())
	}
	return aerrors.Wrap(err, aerrors.KindIo, "waiting for build step").Contextf("step %q", stepName)
}

// Close unmounts every registered mount (the fixed auxiliary mounts plus
// any added via AddMount) in LIFO order, then the root mount.
func (e *BuildEnvironment) Close(ctx context.Context) error {
	dlog.Infof(ctx, "tearing down build environment")
	var firstErr error
	for i := len(e.mounts) - 1; i >= 0; i-- {
		if err := e.mounts[i].Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	e.mounts = nil
	if err := e.root.Close(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// sortedKeys returns env's keys in sorted order, so the spawned process's
// environment (and any debug log of it) is reproducible across runs.
func sortedKeys(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
