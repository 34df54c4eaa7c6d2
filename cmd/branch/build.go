// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/datawire/dlib/dlog"
	"github.com/spf13/cobra"

	ourcliutil "github.com/AcaciaLinux/tooling-go/internal/cliutil"
	"github.com/AcaciaLinux/tooling-go/lib/architecture"
	"github.com/AcaciaLinux/tooling-go/lib/builder"
	"github.com/AcaciaLinux/tooling-go/lib/formula"
	"github.com/AcaciaLinux/tooling-go/lib/object"
	"github.com/AcaciaLinux/tooling-go/lib/objectdb"
	"github.com/AcaciaLinux/tooling-go/lib/oid"
	acaciasignal "github.com/AcaciaLinux/tooling-go/lib/signal"
)

func newBuildCommand(flags *rootFlags) *cobra.Command {
	compression := ourcliutil.NewCompressionFlag(object.CompressionXz)
	var archFlag string
	var lowers []string
	var pathDirs []string

	cmd := &cobra.Command{
		Use:   "build FORMULA-OID",
		Short: "Build a formula already stored in the object database",

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd, flags)

			id, err := oid.FromHex(args[0])
			if err != nil {
				return err
			}

			arch := architecture.New(runtime.GOARCH)
			if archFlag != "" {
				arch = architecture.Parse(archFlag)
			}

			home, err := ourcliutil.ResolveHome(ctx, flags.home, os.UserHomeDir)
			if err != nil {
				return err
			}

			driver, err := objectdb.NewFSDriver(home.ObjectDBPath(), objectdb.DefaultDepth, 64)
			if err != nil {
				return err
			}
			db := objectdb.New(driver)

			r, err := db.Read(ctx, id)
			if err != nil {
				return err
			}
			defer r.Close()
			f, err := formula.DecodeFormula(r.Payload)
			if err != nil {
				return err
			}

			workdir, err := builder.NewWorkdir(home.BuildsDir())
			if err != nil {
				return err
			}

			dispatcher := acaciasignal.New()
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigCh)
			go func() {
				if _, ok := <-sigCh; ok {
					dispatcher.Handle()
				}
			}()

			opts := builder.Options{
				TargetArch:     arch,
				ExternalLowers: lowers,
				ToolchainDirs:  pathDirs,
				Compression:    compression.Compression,
			}

			tr, artifact, err := builder.Build(ctx, db, r.Object, f, workdir, opts, dispatcher)
			if err != nil {
				return err
			}

			dlog.Infof(ctx, "built %s -> %s (%d entries)", id, artifact.OID, len(tr.Entries))
			fmt.Println(artifact.OID)
			return nil
		},
	}

	cmd.Flags().VarP(&compression, "compression", "c", "compression to use when inserting the built artifact (none|xz)")
	cmd.Flags().StringVarP(&archFlag, "architecture", "a", "", "architecture to build for [host architecture]")
	cmd.Flags().StringArrayVar(&lowers, "lower", nil, "additional overlay lower directories (e.g. a host toolchain root)")
	cmd.Flags().StringArrayVar(&pathDirs, "path", nil, "additional directories to prepend to the build's PATH")
	return cmd
}
