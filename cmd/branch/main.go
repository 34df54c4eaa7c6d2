// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Command branch ingests formula files into an object database and
// builds formulas already stored there.
package main

import (
	"context"
	"os"

	"github.com/datawire/ocibuild/pkg/cliutil"
	"github.com/spf13/cobra"

	ourcliutil "github.com/AcaciaLinux/tooling-go/internal/cliutil"
	"github.com/AcaciaLinux/tooling-go/lib/profile"
	"github.com/AcaciaLinux/tooling-go/lib/textui"
)

// rootFlags are the persistent flags shared by every branch subcommand.
type rootFlags struct {
	home     string
	logLevel ourcliutil.LogLevelFlag
}

func main() {
	flags := &rootFlags{logLevel: ourcliutil.NewLogLevelFlag()}

	argparser := &cobra.Command{
		Use:   "branch {[flags]|SUBCOMMAND}",
		Short: "Ingest and build AcaciaLinux formulas",

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

	argparser.AddCommand(newIngestCommand(flags))
	argparser.AddCommand(newBuildCommand(flags))

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

// withLogger attaches a logger at flags.logLevel to cmd's context and
// returns it, mirroring every subcommand's RunE preamble.
func withLogger(cmd *cobra.Command, flags *rootFlags) context.Context {
	return ourcliutil.WithLogger(cmd.Context(), flags.logLevel.Level)
}
