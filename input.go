// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/storezip

package storezip

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/woozymasta/pathrules"
)

// CollectOptions configures directory collection.
type CollectOptions struct {
	// Exclude defines ordered path rules; matched paths are left out.
	Exclude []pathrules.Rule `json:"exclude,omitempty" yaml:"exclude,omitempty"`
	// MatcherOptions control exclude rule matching.
	MatcherOptions pathrules.MatcherOptions `json:"matcher_options,omitzero" yaml:"matcher_options,omitzero"`
	// Prefix is prepended to every collected entry name.
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
}

// applyDefaults fills zero-valued collect options with defaults.
func (opts *CollectOptions) applyDefaults() {
	if opts.MatcherOptions.DefaultAction == pathrules.ActionUnknown {
		opts.MatcherOptions.DefaultAction = pathrules.ActionInclude
	}
}

// FileInput returns an input that stores the file at path under the same name.
func FileInput(path string) Input {
	in := Input{
		Name: path,
		Open: func() (io.ReadCloser, error) {
			return os.Open(path) //nolint:gosec // caller selects input files
		},
	}

	if fi, err := os.Stat(path); err == nil && fi.Mode().IsRegular() {
		in.SizeHint = fi.Size()
	}

	return in
}

// FileInputs returns one FileInput per path, preserving order.
func FileInputs(paths []string) []Input {
	inputs := make([]Input, 0, len(paths))
	for _, p := range paths {
		inputs = append(inputs, FileInput(p))
	}

	return inputs
}

// CollectInputs walks root and returns inputs for regular files sorted by entry name.
// Names are relative to root in slash form; directories produce no entries.
func CollectInputs(root string, opts CollectOptions) ([]Input, error) {
	opts.applyDefaults()

	matcher, err := newExcludeMatcher(opts.Exclude, opts.MatcherOptions)
	if err != nil {
		return nil, err
	}

	prefix := NormalizeName(opts.Prefix)
	var inputs []Input
	walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}

		name := NormalizeName(filepath.ToSlash(rel))
		if name == "" {
			return nil
		}

		if matcher != nil && !matcher.Included(name, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		in := FileInput(p)
		in.Name = name
		if prefix != "" {
			in.Name = prefix + "/" + name
		}

		inputs = append(inputs, in)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("%w: collect %s: %w", ErrIOFailure, root, walkErr)
	}

	sort.Slice(inputs, func(i, j int) bool {
		return inputs[i].Name < inputs[j].Name
	})

	return inputs, nil
}

// newExcludeMatcher compiles exclude rules; nil matcher means no filtering.
func newExcludeMatcher(rules []pathrules.Rule, opts pathrules.MatcherOptions) (*pathrules.Matcher, error) {
	normalized := make([]pathrules.Rule, 0, len(rules))
	for _, rule := range rules {
		pattern := normalizePathForMatching(rule.Pattern)
		if pattern == "" {
			continue
		}

		normalized = append(normalized, pathrules.Rule{
			Action:  rule.Action,
			Pattern: pattern,
		})
	}

	if len(normalized) == 0 {
		return nil, nil
	}

	matcher, err := pathrules.NewMatcher(normalized, opts)
	if err != nil {
		return nil, fmt.Errorf("compile exclude rules: %w", err)
	}

	return matcher, nil
}

// ExcludeRules turns plain patterns into exclude rules.
func ExcludeRules(patterns ...string) []pathrules.Rule {
	rules := make([]pathrules.Rule, 0, len(patterns))
	for _, p := range patterns {
		rules = append(rules, pathrules.Rule{Action: pathrules.ActionExclude, Pattern: p})
	}

	return rules
}
