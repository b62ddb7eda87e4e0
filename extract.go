// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/storezip

package storezip

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// extractCopyBufferSize is the per-worker read buffer for payload copies.
const extractCopyBufferSize = 64 * 1024

// extractTarget is one archive entry bound to its destination file.
type extractTarget struct {
	record FileRecord
	path   string
}

// Extract writes selected entries under dstDir. Payload checksums are checked
// while copying; a file whose checksum does not match is removed.
// Leading slashes and drive letters are dropped from entry names, so absolute
// names land under dstDir. Names with ".." segments are rejected.
// The first failing entry stops the remaining workers and its error is returned.
func (r *Reader) Extract(ctx context.Context, dstDir string, opts ExtractOptions) error {
	if r == nil || r.ra == nil {
		return ErrNilReader
	}

	if r.isClosed() {
		return ErrClosed
	}

	if ctx == nil {
		ctx = context.Background()
	}

	entries := r.entries
	if opts.Entries != nil {
		entries = opts.Entries
	}

	if len(entries) == 0 {
		return nil
	}

	root, err := filepath.Abs(dstDir)
	if err != nil {
		return fmt.Errorf("resolve output dir: %w", err)
	}

	targets, err := planExtract(root, entries)
	if err != nil {
		return err
	}

	if err := makeExtractDirs(root, targets); err != nil {
		return err
	}

	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	return r.runExtract(ctx, targets, min(workers, len(targets)), opts)
}

// planExtract resolves every entry to a file path inside root before anything is written.
func planExtract(root string, entries []FileRecord) ([]extractTarget, error) {
	targets := make([]extractTarget, 0, len(entries))
	for _, rec := range entries {
		rel, err := extractRelPath(rec.Name)
		if err != nil {
			return nil, err
		}

		target := filepath.Join(root, filepath.FromSlash(rel))
		if !isWithinRoot(root, target) {
			return nil, fmt.Errorf("%w: %s", ErrExtractPathOutsideRoot, rec.Name)
		}

		targets = append(targets, extractTarget{record: rec, path: target})
	}

	return targets, nil
}

// makeExtractDirs creates root and the parent directory of every target.
func makeExtractDirs(root string, targets []extractTarget) error {
	dirs := map[string]struct{}{root: {}}
	for _, t := range targets {
		dirs[filepath.Dir(t.path)] = struct{}{}
	}

	sorted := make([]string, 0, len(dirs))
	for dir := range dirs {
		sorted = append(sorted, dir)
	}
	sort.Strings(sorted)

	for _, dir := range sorted {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("%w: create output directory %s: %w", ErrIOFailure, dir, err)
		}
	}

	return nil
}

// runExtract lets workers pull targets by index until all are done or one fails.
func (r *Reader) runExtract(ctx context.Context, targets []extractTarget, workers int, opts ExtractOptions) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var (
		next atomic.Int64
		wg   sync.WaitGroup
	)
	for range workers {
		wg.Go(func() {
			buf := make([]byte, extractCopyBufferSize)
			for ctx.Err() == nil {
				i := int(next.Add(1) - 1)
				if i >= len(targets) {
					return
				}

				t := targets[i]
				if err := r.extractFile(t, opts.Overwrite, buf); err != nil {
					cancel(err)
					return
				}

				if opts.OnEntryDone != nil {
					opts.OnEntryDone(t.record, t.path)
				}
			}
		})
	}
	wg.Wait()

	return context.Cause(ctx)
}

// extractFile writes one entry payload to its target path.
func (r *Reader) extractFile(t extractTarget, overwrite bool, buf []byte) error {
	if err := r.checkLocalHeader(&t.record); err != nil {
		return err
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}

	f, err := os.OpenFile(t.path, flags, 0o600) //nolint:gosec // path checked against root
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrIOFailure, t.record.Name, err)
	}

	copyErr := r.copyPayloadVerified(f, t.record, buf)
	closeErr := f.Close()
	if copyErr != nil {
		_ = os.Remove(t.path)
		return copyErr
	}

	if closeErr != nil {
		return fmt.Errorf("%w: close %s: %w", ErrIOFailure, t.record.Name, closeErr)
	}

	return nil
}

// copyPayloadVerified copies the stored payload of rec to dst in buf-sized
// chunks and compares the running CRC-32 with the directory value.
func (r *Reader) copyPayloadVerified(dst io.Writer, rec FileRecord, buf []byte) error {
	off := rec.dataOffset()
	end := off + int64(rec.Size)
	var crc uint32

	for off < end {
		chunk := buf[:min(int64(len(buf)), end-off)]
		n, err := r.ra.ReadAt(chunk, off)
		if n < len(chunk) {
			return fmt.Errorf("%w: entry %s payload at %d: %w", ErrInvalidArchive, rec.Name, off, err)
		}

		crc = Update(crc, chunk)
		if _, err := dst.Write(chunk); err != nil {
			return fmt.Errorf("%w: write %s: %w", ErrIOFailure, rec.Name, err)
		}

		off += int64(n)
	}

	if crc != rec.Checksum {
		return fmt.Errorf("%w: entry %s crc 0x%08x, want 0x%08x", ErrChecksumMismatch, rec.Name, crc, rec.Checksum)
	}

	return nil
}

// isWithinRoot reports whether path resolves inside root.
func isWithinRoot(root string, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}

	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// extractRelPath maps an entry name to a slash path relative to the extraction root.
// Both separators are accepted; empty and "." segments, a leading drive letter,
// and leading slashes are dropped.
func extractRelPath(name string) (string, error) {
	if strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("%w: %q contains NUL", ErrInvalidExtractPath, name)
	}

	p := strings.ReplaceAll(name, `\`, "/")
	if len(p) >= 2 && isASCIIAlpha(p[0]) && p[1] == ':' {
		p = p[2:]
	}

	parts := make([]string, 0, strings.Count(p, "/")+1)
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			return "", fmt.Errorf("%w: %q leaves the destination", ErrInvalidExtractPath, name)
		}

		parts = append(parts, seg)
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("%w: %q names no file", ErrInvalidExtractPath, name)
	}

	return strings.Join(parts, "/"), nil
}

// isASCIIAlpha reports whether byte is ASCII latin letter.
func isASCIIAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
