// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/storezip

package main

import (
	"fmt"
	"text/tabwriter"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/woozymasta/storezip"
)

// selectFlags holds entry selection flags shared by list and extract.
type selectFlags struct {
	prefix  string
	exclude []string
}

// addSelectFlags registers entry selection flags on cmd.
func addSelectFlags(cmd *cobra.Command, f *selectFlags) {
	cmd.Flags().StringVar(&f.prefix, "prefix", "", "only entries under this path")
	cmd.Flags().StringArrayVar(&f.exclude, "exclude", nil, "skip entries matching pattern (repeatable)")
}

// filterOptions converts selection flags to library options.
func (f *selectFlags) filterOptions() storezip.FilterOptions {
	return storezip.FilterOptions{
		Prefix:  f.prefix,
		Exclude: storezip.ExcludeRules(f.exclude...),
	}
}

// newListCmd builds the list subcommand.
func newListCmd() *cobra.Command {
	sel := &selectFlags{}
	cmd := &cobra.Command{
		Use:          "list <archive>",
		Short:        "List archive entries",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := storezip.ListEntries(args[0])
			if err != nil {
				return err
			}

			entries, err = storezip.FilterEntries(entries, sel.filterOptions())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SIZE\tCRC32\tOFFSET\tMODIFIED\tNAME")
			for _, e := range entries {
				fmt.Fprintf(tw, "%d\t%08x\t%d\t%s\t%s\n",
					e.Size, e.Checksum, e.LocalHeaderOffset, e.Modified().Format("2006-01-02 15:04:05"), e.Name)
			}

			return tw.Flush()
		},
	}
	addSelectFlags(cmd, sel)

	return cmd
}

// newVerifyCmd builds the verify subcommand.
func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "verify <archive>",
		Short:        "Check headers and checksums of every entry",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := storezip.VerifyFile(args[0]); err != nil {
				return fmt.Errorf("verify %s: %w", args[0], err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: OK\n", args[0])
			return nil
		},
	}
}

// newExtractCmd builds the extract subcommand.
func newExtractCmd() *cobra.Command {
	var (
		dstDir    string
		workers   int
		overwrite bool
	)
	sel := &selectFlags{}

	cmd := &cobra.Command{
		Use:          "extract <archive>",
		Short:        "Extract entries to a directory",
		Long: `Extracts entries under the destination directory, checking each checksum.
Leading slashes and drive letters are stripped from entry names, so archives
built from absolute paths extract below --dest. Names containing ".." are refused.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := storezip.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = r.Close() }()

			entries, err := storezip.FilterEntries(r.Entries(), sel.filterOptions())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				log.Warnf("no entries selected in %s", args[0])
				return nil
			}

			return r.Extract(cmd.Context(), dstDir, storezip.ExtractOptions{
				Entries:    entries,
				MaxWorkers: workers,
				Overwrite:  overwrite,
				OnEntryDone: func(entry storezip.FileRecord, outputPath string) {
					log.WithField("entry", entry.Name).Debugf("extracted to %s", outputPath)
				},
			})
		},
	}
	cmd.Flags().StringVarP(&dstDir, "dest", "d", ".", "destination directory")
	cmd.Flags().IntVar(&workers, "workers", 0, "extraction workers (0 means GOMAXPROCS)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace existing files")
	addSelectFlags(cmd, sel)

	return cmd
}
