// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/storezip

package storezip

import (
	"strings"

	"github.com/woozymasta/pathrules"
)

// FilterOptions selects archive entries for listing or extraction.
type FilterOptions struct {
	// Prefix keeps entries under prefix, or the exact entry it names.
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	// Exclude drops entries matched by ordered path rules.
	Exclude []pathrules.Rule `json:"exclude,omitempty" yaml:"exclude,omitempty"`
	// MatcherOptions control exclude rule matching.
	MatcherOptions pathrules.MatcherOptions `json:"matcher_options,omitzero" yaml:"matcher_options,omitzero"`
	// MinSize drops entries smaller than MinSize bytes.
	MinSize uint32 `json:"min_size,omitempty" yaml:"min_size,omitempty"`
	// ASCIIOnly drops entries whose names contain non-ASCII bytes.
	ASCIIOnly bool `json:"ascii_only,omitempty" yaml:"ascii_only,omitempty"`
}

// FilterEntries returns entries accepted by opts, preserving order.
func FilterEntries(entries []FileRecord, opts FilterOptions) ([]FileRecord, error) {
	if opts.MatcherOptions.DefaultAction == pathrules.ActionUnknown {
		opts.MatcherOptions.DefaultAction = pathrules.ActionInclude
	}

	matcher, err := newExcludeMatcher(opts.Exclude, opts.MatcherOptions)
	if err != nil {
		return nil, err
	}

	out := filterEntriesByPrefix(entries, opts.Prefix)
	out = filterEntriesBySize(out, opts.MinSize)
	if opts.ASCIIOnly {
		out = filterEntriesByASCIIOnly(out)
	}

	if matcher == nil {
		return out, nil
	}

	kept := make([]FileRecord, 0, len(out))
	for _, entry := range out {
		if matcher.Included(NormalizeName(entry.Name), false) {
			kept = append(kept, entry)
		}
	}

	return kept, nil
}

// filterEntriesBySize keeps entries of at least minSize bytes.
func filterEntriesBySize(entries []FileRecord, minSize uint32) []FileRecord {
	if minSize == 0 {
		return entries
	}

	out := make([]FileRecord, 0, len(entries))
	for _, entry := range entries {
		if entry.Size >= minSize {
			out = append(out, entry)
		}
	}

	return out
}

// filterEntriesByASCIIOnly keeps entries whose name contains only ASCII bytes.
func filterEntriesByASCIIOnly(entries []FileRecord) []FileRecord {
	out := make([]FileRecord, 0, len(entries))
	for _, entry := range entries {
		if filterNameIsASCIIOnly(entry.Name) {
			out = append(out, entry)
		}
	}

	return out
}

// filterNameIsASCIIOnly reports whether name contains only ASCII bytes.
func filterNameIsASCIIOnly(name string) bool {
	for idx := 0; idx < len(name); idx++ {
		if name[idx] >= 0x80 {
			return false
		}
	}

	return true
}

// filterEntriesByPrefix keeps entries under prefix (or exact match if it names a file).
func filterEntriesByPrefix(entries []FileRecord, prefix string) []FileRecord {
	prefix = NormalizeName(prefix)
	if prefix == "" {
		return entries
	}

	withSlash := prefix + "/"
	out := make([]FileRecord, 0, len(entries))
	for _, entry := range entries {
		name := NormalizeName(entry.Name)
		if name == prefix || strings.HasPrefix(name, withSlash) {
			out = append(out, entry)
		}
	}

	return out
}
