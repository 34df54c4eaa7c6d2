// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Command twig inspects and manipulates an object database and the
// trees stored in it.
package main

import (
	"context"
	"os"

	"github.com/datawire/ocibuild/pkg/cliutil"
	"github.com/spf13/cobra"

	ourcliutil "github.com/AcaciaLinux/tooling-go/internal/cliutil"
	"github.com/AcaciaLinux/tooling-go/lib/home"
	"github.com/AcaciaLinux/tooling-go/lib/objectdb"
	"github.com/AcaciaLinux/tooling-go/lib/profile"
	"github.com/AcaciaLinux/tooling-go/lib/textui"
)

// rootFlags are the persistent flags shared by every twig subcommand.
type rootFlags struct {
	home     string
	logLevel ourcliutil.LogLevelFlag
}

func main() {
	flags := &rootFlags{logLevel: ourcliutil.NewLogLevelFlag()}

	argparser := &cobra.Command{
		Use:   "twig {[flags]|SUBCOMMAND}",
		Short: "Inspect and manipulate an AcaciaLinux object database",

		Args: cliutil.WrapPositionalArgs(cliutil.OnlySubcommands),
		RunE: cliutil.RunSubcommands,

		SilenceErrors: true,
		SilenceUsage:  true,

		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	argparser.SetFlagErrorFunc(cliutil.FlagErrorFunc)
	argparser.SetHelpTemplate(cliutil.HelpTemplate)
	argparser.PersistentFlags().StringVar(&flags.home, "home", "", "the home directory to operate in [~/.acacia]")
	argparser.PersistentFlags().VarP(&flags.logLevel, "loglevel", "v", "set the verbosity (0=warn, 1=info, 2=debug, 3+=trace)")

	argparser.AddCommand(newOdbCommand(flags))
	argparser.AddCommand(newTreeCommand(flags))
	argparser.AddCommand(newValidateCommand(flags))

	stopProfiling := profile.AddProfileFlags(argparser.PersistentFlags(), "profile-")
	defer func() {
		if err := stopProfiling(); err != nil {
			textui.Fprintf(os.Stderr, "stopping profiling: %v\n", err)
		}
	}()

	if err := argparser.ExecuteContext(context.Background()); err != nil {
		textui.Fprintf(os.Stderr, "%v: error: %v\n", argparser.CommandPath(), err)
		os.Exit(1)
	}
}

// withLogger attaches a logger at flags.logLevel to cmd's context.
func withLogger(cmd *cobra.Command, flags *rootFlags) context.Context {
	return ourcliutil.WithLogger(cmd.Context(), flags.logLevel.Level)
}

// openDB opens the object database under the resolved home directory.
func openDB(ctx context.Context, flags *rootFlags) (*objectdb.ObjectDatabase, *home.Home, error) {
	h, err := ourcliutil.ResolveHome(ctx, flags.home, os.UserHomeDir)
	if err != nil {
		return nil, nil, err
	}
	driver, err := objectdb.NewFSDriver(h.ObjectDBPath(), objectdb.DefaultDepth, 64)
	if err != nil {
		return nil, nil, err
	}
	return objectdb.New(driver), h, nil
}
