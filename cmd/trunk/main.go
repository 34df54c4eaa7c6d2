// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Command trunk serves an object database over HTTP for other hosts to
// pull from: `GET /object/<hex-oid>`.
package main

import (
	"context"
	"net/http"
	"os"

	"github.com/datawire/dlib/dgroup"
	"github.com/datawire/ocibuild/pkg/cliutil"
	"github.com/spf13/cobra"

	ourcliutil "github.com/AcaciaLinux/tooling-go/internal/cliutil"
	"github.com/AcaciaLinux/tooling-go/lib/objectdb"
	"github.com/AcaciaLinux/tooling-go/lib/profile"
	"github.com/AcaciaLinux/tooling-go/lib/textui"
)

func main() {
	var homeFlag string
	var listenFlag string
	logLevel := ourcliutil.NewLogLevelFlag()

	argparser := &cobra.Command{
		Use:   "trunk [flags]",
		Short: "Serve an AcaciaLinux object database over HTTP",

		Args: cobra.NoArgs,

		SilenceErrors: true,
		SilenceUsage:  true,

		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},

		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ctx = ourcliutil.WithLogger(ctx, logLevel.Level)

			home, err := ourcliutil.ResolveHome(ctx, homeFlag, os.UserHomeDir)
			if err != nil {
				return err
			}

			driver, err := objectdb.NewFSDriver(home.ObjectDBPath(), objectdb.DefaultDepth, 64)
			if err != nil {
				return err
			}
			db := objectdb.New(driver)

			grp := dgroup.NewGroup(ctx, dgroup.GroupConfig{
				EnableSignalHandling: true,
			})

			srv := &http.Server{
				Addr:    listenFlag,
				Handler: objectdb.NewHandler(ctx, db),
			}
			grp.Go("serve", func(ctx context.Context) error {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					return err
				}
				return nil
			})
			grp.Go("shutdown", func(ctx context.Context) error {
				<-ctx.Done()
				return srv.Shutdown(context.Background())
			})

			return grp.Wait()
		},
	}
	argparser.SetFlagErrorFunc(cliutil.FlagErrorFunc)
	argparser.SetHelpTemplate(cliutil.HelpTemplate)
	argparser.Flags().StringVar(&homeFlag, "home", "", "the home directory to serve objects from [~/.acacia]")
	argparser.Flags().StringVar(&listenFlag, "listen", ":8080", "the address to listen on")
	argparser.Flags().VarP(&logLevel, "loglevel", "v", "set the verbosity (0=warn, 1=info, 2=debug, 3+=trace)")
	stopProfiling := profile.AddProfileFlags(argparser.Flags(), "profile-")
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
