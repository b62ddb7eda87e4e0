// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/storezip

package storezip

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// testClockTime is the fixed wall clock used by deterministic tests.
var testClockTime = time.Date(2026, 10, 19, 13, 45, 31, 0, time.UTC)

// fixedClock always returns testClockTime.
func fixedClock() time.Time {
	return testClockTime
}

// memInput returns an in-memory input.
func memInput(name string, data []byte) Input {
	return Input{
		Name: name,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
		SizeHint: int64(len(data)),
	}
}

// failingInput returns an input whose Open fails with err.
func failingInput(name string, err error) Input {
	return Input{
		Name: name,
		Open: func() (io.ReadCloser, error) {
			return nil, err
		},
	}
}

// buildArchive writes inputs into memory with a fixed clock unless opts.Now is set.
func buildArchive(t testing.TB, inputs []Input, opts PackOptions) ([]byte, *PackResult) {
	t.Helper()

	if opts.Now == nil {
		opts.Now = fixedClock
	}

	var buf bytes.Buffer
	res, err := CreateArchive(context.Background(), &buf, inputs, opts)
	if err != nil {
		t.Fatalf("CreateArchive: %v", err)
	}

	return buf.Bytes(), res
}

// writeTestFile writes data to dir/name, creating parents.
func writeTestFile(t testing.TB, dir string, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}

	return path
}

// errWriter fails every write after limit bytes.
type errWriter struct {
	limit int
	n     int
}

var errSinkFull = errors.New("sink full")

func (w *errWriter) Write(p []byte) (int, error) {
	if w.n+len(p) > w.limit {
		allowed := w.limit - w.n
		w.n = w.limit
		return allowed, errSinkFull
	}

	w.n += len(p)
	return len(p), nil
}
