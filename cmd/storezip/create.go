// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/storezip

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/kballard/go-shellquote"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/woozymasta/storezip"
)

// promptText is shown when no input names were given anywhere.
const promptText = "Files to zip (space separated): "

// createFlags holds create command flag values.
type createFlags struct {
	output     string
	dir        string
	manifest   string
	exclude    []string
	workers    int
	legacyTime bool
}

// createConfig is the merged result of manifest and flags.
type createConfig struct {
	output     string
	dir        string
	files      []string
	exclude    []string
	workers    int
	legacyTime bool
}

// wantsPrompt reports whether no source of file names was configured.
func (cfg createConfig) wantsPrompt() bool {
	return len(cfg.files) == 0 && cfg.dir == ""
}

// addCreateFlags registers create flags on cmd.
func addCreateFlags(cmd *cobra.Command, f *createFlags) {
	cmd.Flags().StringVarP(&f.output, "output", "o", storezip.DefaultOutputName, "output archive path")
	cmd.Flags().StringVarP(&f.dir, "dir", "C", "", "collect regular files from directory")
	cmd.Flags().StringVarP(&f.manifest, "manifest", "m", "", "YAML manifest with output, files, dir, exclude")
	cmd.Flags().StringArrayVar(&f.exclude, "exclude", nil, "exclude pattern for --dir (repeatable)")
	cmd.Flags().IntVar(&f.workers, "workers", 1, "inputs read and hashed ahead of the writer")
	cmd.Flags().BoolVar(&f.legacyTime, "legacy-time", false, "sample the clock separately for each header record")
}

// newCreateCmd builds the create subcommand.
func newCreateCmd() *cobra.Command {
	f := &createFlags{}
	cmd := &cobra.Command{
		Use:   "create [files...]",
		Short: "Create an archive from files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(cmd, args, f)
		},
		SilenceUsage: true,
	}
	addCreateFlags(cmd, f)

	return cmd
}

// runCreate builds archive from arguments, manifest, directory, or an interactive prompt.
func runCreate(cmd *cobra.Command, args []string, f *createFlags) error {
	cfg, err := resolveCreateConfig(cmd, args, f)
	if err != nil {
		return err
	}

	inputs, err := collectCreateInputs(cfg)
	if err != nil {
		return err
	}

	if cfg.wantsPrompt() {
		names, err := promptNames(cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}

		inputs = storezip.FileInputs(names)
	} else if len(inputs) == 0 {
		log.Warnf("no files found in %s, writing an empty archive", cfg.dir)
	}

	opts := storezip.PackOptions{
		MaxWorkers: cfg.workers,
		OnEntryDone: func(entry storezip.PackEntryProgress) {
			log.WithFields(log.Fields{
				"entry":  entry.Record.Name,
				"size":   entry.Record.Size,
				"crc":    fmt.Sprintf("%08x", entry.Record.Checksum),
				"offset": entry.Record.LocalHeaderOffset,
			}).Debugf("stored %d/%d", entry.Index+1, entry.Total)
		},
	}
	if cfg.legacyTime {
		opts.TimeMode = storezip.TimeModePerRecord
	}

	log.Debugf("writing %d entries to %s", len(inputs), cfg.output)
	res, err := storezip.CreateArchiveFile(cmd.Context(), cfg.output, inputs, opts)
	if err != nil {
		return fmt.Errorf("create %s: %w", cfg.output, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Archive created: %s (%d entries, %d bytes)\n", cfg.output, len(res.Entries), res.TotalSize)
	return nil
}

// resolveCreateConfig merges manifest values with flags; explicitly set flags win.
func resolveCreateConfig(cmd *cobra.Command, args []string, f *createFlags) (createConfig, error) {
	cfg := createConfig{
		output:     f.output,
		dir:        f.dir,
		exclude:    f.exclude,
		workers:    f.workers,
		legacyTime: f.legacyTime,
	}

	if f.manifest != "" {
		m, err := loadManifest(f.manifest)
		if err != nil {
			return createConfig{}, err
		}

		flags := cmd.Flags()
		if m.Output != "" && !flags.Changed("output") {
			cfg.output = m.Output
		}
		if m.Dir != "" && !flags.Changed("dir") {
			cfg.dir = m.Dir
		}
		if len(m.Exclude) > 0 && !flags.Changed("exclude") {
			cfg.exclude = m.Exclude
		}
		if m.Workers > 0 && !flags.Changed("workers") {
			cfg.workers = m.Workers
		}
		if m.LegacyTime && !flags.Changed("legacy-time") {
			cfg.legacyTime = true
		}

		cfg.files = append(cfg.files, m.Files...)
	}

	cfg.files = append(cfg.files, args...)
	if cfg.output == "" {
		cfg.output = storezip.DefaultOutputName
	}

	return cfg, nil
}

// collectCreateInputs returns explicit files followed by collected directory files.
func collectCreateInputs(cfg createConfig) ([]storezip.Input, error) {
	inputs := storezip.FileInputs(cfg.files)
	if cfg.dir == "" {
		return inputs, nil
	}

	collected, err := storezip.CollectInputs(cfg.dir, storezip.CollectOptions{
		Exclude: storezip.ExcludeRules(cfg.exclude...),
	})
	if err != nil {
		return nil, err
	}

	return append(inputs, collected...), nil
}

// promptNames asks for space separated names and reads one line.
// Shell quoting keeps names with spaces together.
func promptNames(in io.Reader, out io.Writer) ([]string, error) {
	if _, err := io.WriteString(out, promptText); err != nil {
		return nil, err
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read file names: %w", err)
	}

	names, err := shellquote.Split(line)
	if err != nil {
		return nil, fmt.Errorf("parse file names: %w", err)
	}

	return names, nil
}
