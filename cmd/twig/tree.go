// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	ourcliutil "github.com/AcaciaLinux/tooling-go/internal/cliutil"
	"github.com/AcaciaLinux/tooling-go/lib/object"
	"github.com/AcaciaLinux/tooling-go/lib/oid"
	"github.com/AcaciaLinux/tooling-go/lib/tree"
)

func newTreeCommand(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree {[flags]|SUBCOMMAND}",
		Short: "Index, deploy, and list content-addressed directory trees",
	}
	cmd.AddCommand(newTreeCreateCommand(flags))
	cmd.AddCommand(newTreeDeployCommand(flags))
	cmd.AddCommand(newTreeListCommand(flags))
	return cmd
}

func newTreeCreateCommand(flags *rootFlags) *cobra.Command {
	compression := ourcliutil.NewCompressionFlag(object.CompressionXz)
	var stat bool
	cmd := &cobra.Command{
		Use:   "create DIR",
		Short: "Index a directory into a tree and insert it into the object database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd, flags)
			db, _, err := openDB(ctx, flags)
			if err != nil {
				return err
			}

			t, obj, err := tree.Index(ctx, args[0], db, compression.Compression)
			if err != nil {
				return err
			}

			if stat {
				for _, e := range t.Entries {
					fmt.Println(describeEntry(e))
				}
			}
			fmt.Println(obj.OID)
			return nil
		},
	}
	cmd.Flags().VarP(&compression, "compression", "c", "compression to use for indexed objects (none|xz)")
	cmd.Flags().BoolVar(&stat, "stat", false, "print the created tree's entries before its oid")
	return cmd
}

func newTreeDeployCommand(flags *rootFlags) *cobra.Command {
	var treeOID string
	cmd := &cobra.Command{
		Use:   "deploy DIR",
		Short: "Deploy a tree onto a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd, flags)
			id, err := oid.FromHex(treeOID)
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
			t, err := tree.Decode(r.Payload)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(args[0], 0o755); err != nil {
				return err
			}
			return tree.Deploy(ctx, t, args[0], db)
		},
	}
	cmd.Flags().StringVarP(&treeOID, "tree", "t", "", "the object id of the tree to deploy")
	if err := cmd.MarkFlagRequired("tree"); err != nil {
		panic(err)
	}
	return cmd
}

func newTreeListCommand(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list OID",
		Short: "List a tree's entries",
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
			t, err := tree.Decode(r.Payload)
			if err != nil {
				return err
			}

			for _, e := range t.Entries {
				fmt.Println(describeEntry(e))
			}
			return nil
		},
	}
	return cmd
}

// describeEntry renders one tree Entry the way `twig tree create --stat`
// and `twig tree list` print it: name, then its kind and, for files and
// subtrees, the referenced object id.
func describeEntry(e tree.Entry) string {
	switch {
	case e.IsFile():
		return fmt.Sprintf("%s\tfile\t%s", e.Name, e.OID)
	case e.IsSymlink():
		return fmt.Sprintf("%s\tsymlink -> %s", e.Name, e.Target)
	case e.IsSubtree():
		return fmt.Sprintf("%s/\ttree\t%s", e.Name, e.OID)
	default:
		return e.Name
	}
}
