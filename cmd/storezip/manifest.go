// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/storezip

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	yaml "gopkg.in/yaml.v3"
)

// manifest describes one archive build in a YAML file.
type manifest struct {
	Output     string   `yaml:"output"`
	Dir        string   `yaml:"dir"`
	Files      []string `yaml:"files"`
	Exclude    []string `yaml:"exclude"`
	Workers    int      `yaml:"workers"`
	LegacyTime bool     `yaml:"legacy_time"`
}

// loadManifest reads and strictly decodes a manifest file.
func loadManifest(path string) (*manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-selected manifest
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m manifest
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	if m.Workers < 0 {
		return nil, fmt.Errorf("parse manifest %s: workers must not be negative", path)
	}

	return &m, nil
}
