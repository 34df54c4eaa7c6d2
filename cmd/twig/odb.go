// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	ourcliutil "github.com/AcaciaLinux/tooling-go/internal/cliutil"
	"github.com/AcaciaLinux/tooling-go/lib/aerrors"
	"github.com/AcaciaLinux/tooling-go/lib/object"
	"github.com/AcaciaLinux/tooling-go/lib/objectdb"
	"github.com/AcaciaLinux/tooling-go/lib/oid"
)

func newOdbCommand(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "odb {[flags]|SUBCOMMAND}",
		Short: "Operate on the object database directly",
	}
	cmd.AddCommand(newOdbGetCommand(flags))
	cmd.AddCommand(newOdbPutCommand(flags))
	cmd.AddCommand(newOdbPullCommand(flags))
	cmd.AddCommand(newOdbDependenciesCommand(flags))
	return cmd
}

func newOdbGetCommand(flags *rootFlags) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "get OID",
		Short: "Retrieve an object's payload, to stdout or --output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd, flags)
			id, err := oid.FromHex(args[0])
			if err != nil {
				return err
			}
			db, _, err := openDB(ctx, flags)
			if err != nil {
				return err
			}
			r, err := db.Read(ctx, id)
			if err != nil {
				return err
			}
			defer r.Close()

			out := io.Writer(os.Stdout)
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return aerrors.Wrap(err, aerrors.KindIo, "creating output file").Contextf("path %q", output)
				}
				defer f.Close()
				out = f
			}
			_, err = io.Copy(out, r.Payload)
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the object's payload to this file instead of stdout")
	return cmd
}

func newOdbPutCommand(flags *rootFlags) *cobra.Command {
	compression := ourcliutil.NewCompressionFlag(object.CompressionNone)
	cmd := &cobra.Command{
		Use:   "put FILE",
		Short: "Insert a file into the object database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd, flags)
			db, _, err := openDB(ctx, flags)
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			obj, err := db.InsertStream(ctx, f, object.TypeOther, nil, compression.Compression)
			if err != nil {
				return err
			}
			fmt.Println(obj.OID)
			return nil
		},
	}
	cmd.Flags().VarP(&compression, "compression", "c", "compression to use when inserting (none|xz)")
	return cmd
}

func newOdbPullCommand(flags *rootFlags) *cobra.Command {
	compression := ourcliutil.NewCompressionFlag(object.CompressionNone)
	var other string
	var recursive bool
	cmd := &cobra.Command{
		Use:   "pull OID",
		Short: "Pull an object (and optionally its dependencies) from another object database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd, flags)
			id, err := oid.FromHex(args[0])
			if err != nil {
				return err
			}
			db, _, err := openDB(ctx, flags)
			if err != nil {
				return err
			}
			peer, err := openPeer(other)
			if err != nil {
				return err
			}
			return db.Pull(ctx, peer, id, compression.Compression, recursive)
		},
	}
	cmd.Flags().StringVar(&other, "other", "", "the other object database: a local directory, or an http(s):// trunk URL")
	cmd.Flags().VarP(&compression, "compression", "c", "compression to use when inserting pulled objects (none|xz)")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "also pull every transitive dependency")
	if err := cmd.MarkFlagRequired("other"); err != nil {
		panic(err)
	}
	return cmd
}

func newOdbDependenciesCommand(flags *rootFlags) *cobra.Command {
	var tree bool
	cmd := &cobra.Command{
		Use:   "dependencies OID",
		Short: "Print an object's dependencies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd, flags)
			id, err := oid.FromHex(args[0])
			if err != nil {
				return err
			}
			db, _, err := openDB(ctx, flags)
			if err != nil {
				return err
			}

			if tree {
				return printDependencyTree(ctx, db, id, 0)
			}

			deps, err := db.Dependencies(ctx, id, true)
			if err != nil {
				return err
			}
			for _, dep := range deps {
				fmt.Println(dep)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&tree, "tree", false, "print the dependencies as an indented tree instead of a flat list")
	return cmd
}

// printDependencyTree mirrors the original twig's depth-first dependency
// printer: the root OID on its own line, then each level indented and
// prefixed with "|---".
func printDependencyTree(ctx context.Context, db *objectdb.ObjectDatabase, id oid.OID, depth int) error {
	if depth > 0 {
		fmt.Printf("%s|--- %s\n", strings.Repeat("|  ", depth-1), id)
	} else {
		fmt.Println(id)
	}

	deps, err := db.Dependencies(ctx, id, false)
	if err != nil {
		return err
	}
	for _, dep := range deps {
		if err := printDependencyTree(ctx, db, dep, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// openPeer resolves --other into an objectdb.Peer: an http(s):// URL talks
// to a trunk server, anything else is treated as a local FSDriver root.
func openPeer(other string) (objectdb.Peer, error) {
	if strings.HasPrefix(other, "http://") || strings.HasPrefix(other, "https://") {
		return objectdb.NewHTTPPeer(other, http.DefaultClient), nil
	}
	driver, err := objectdb.NewFSDriver(other, objectdb.DefaultDepth, 64)
	if err != nil {
		return nil, err
	}
	return driver, nil
}
