// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/datawire/dlib/dlog"
	"github.com/spf13/cobra"

	ourcliutil "github.com/AcaciaLinux/tooling-go/internal/cliutil"
	"github.com/AcaciaLinux/tooling-go/lib/architecture"
	"github.com/AcaciaLinux/tooling-go/lib/downloadcache"
	"github.com/AcaciaLinux/tooling-go/lib/formula"
	"github.com/AcaciaLinux/tooling-go/lib/httpdownload"
	"github.com/AcaciaLinux/tooling-go/lib/object"
	"github.com/AcaciaLinux/tooling-go/lib/objectdb"
)

func newIngestCommand(flags *rootFlags) *cobra.Command {
	compression := ourcliutil.NewCompressionFlag(object.CompressionXz)
	var archFlag string

	cmd := &cobra.Command{
		Use:   "ingest FORMULA",
		Short: "Resolve a formula file's sources and insert it into the object database",

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd, flags)

			arch := architecture.New(runtime.GOARCH)
			if archFlag != "" {
				arch = architecture.Parse(archFlag)
			}

			home, err := ourcliutil.ResolveHome(ctx, flags.home, os.UserHomeDir)
			if err != nil {
				return err
			}

			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			file, err := formula.LoadFile(f)
			if err != nil {
				return err
			}

			driver, err := objectdb.NewFSDriver(home.ObjectDBPath(), objectdb.DefaultDepth, 64)
			if err != nil {
				return err
			}
			db := objectdb.New(driver)

			cache, err := downloadcache.New(home.TmpDir(), 32, httpdownload.New(home.TmpDir(), 5*time.Minute))
			if err != nil {
				return err
			}

			depIndex, err := formula.NewFileDependencyIndex(home.DependencyIndexDir())
			if err != nil {
				return err
			}

			resolved, obj, err := formula.Resolve(ctx, file, filepath.Dir(path), arch, db, cache, depIndex, compression.Compression)
			if err != nil {
				return err
			}

			if err := depIndex.Record(resolved.Name, resolved.Version, file.Version, obj.OID); err != nil {
				return err
			}

			dlog.Infof(ctx, "ingested %s -> %s (%s %s)", path, obj.OID, resolved.Name, resolved.Version)
			fmt.Println(obj.OID)
			return nil
		},
	}

	cmd.Flags().VarP(&compression, "compression", "c", "compression to use when inserting objects (none|xz)")
	cmd.Flags().StringVarP(&archFlag, "architecture", "a", "", "architecture to ingest the formula for [host architecture]")
	return cmd
}
