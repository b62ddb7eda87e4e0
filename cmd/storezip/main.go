// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/storezip

// Command storezip creates, lists, verifies, and extracts store-only ZIP archives.
package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// version is set via -ldflags at build time.
var version = "devel"

// rootFlags are flags shared by every subcommand.
type rootFlags struct {
	verbose bool
}

func main() {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})

	if err := newRootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}

// newRootCmd builds the command tree. Running the root with file arguments creates an archive.
func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	create := &createFlags{}

	cmdRoot := &cobra.Command{
		Use:   "storezip [files...]",
		Short: "Store-only ZIP archiver",
		Long: `Packs files into a ZIP archive without compression.
With no subcommand it behaves like "storezip create".`,
		Args: cobra.ArbitraryArgs,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.verbose {
				log.SetLevel(log.DebugLevel)
			} else {
				log.SetLevel(log.InfoLevel)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(cmd, args, create)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmdRoot.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log every written entry")
	addCreateFlags(cmdRoot, create)

	cmdVersion := &cobra.Command{
		Use:   "version",
		Short: "Print the version number and exit.",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("%s version %s\n", cmd.Root().Name(), version)
		},
	}

	cmdRoot.AddCommand(cmdVersion)
	cmdRoot.AddCommand(newCreateCmd())
	cmdRoot.AddCommand(newListCmd())
	cmdRoot.AddCommand(newVerifyCmd())
	cmdRoot.AddCommand(newExtractCmd())

	return cmdRoot
}
