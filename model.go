// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/storezip

package storezip

import (
	"fmt"
	"io"
	"time"
)

// Default writer tuning values.
const (
	DefaultWriteBuffer = 1024 * 1024
	DefaultOutputName  = "output.zip"
	minWriteBuffer     = 4096
)

// FileRecord is per-entry metadata shared by the local header and the central directory entry.
type FileRecord struct {
	// Name is the entry name as stored in archive.
	Name string `json:"name" yaml:"name"`
	// Size is payload size in bytes (stored and original size are equal).
	Size uint32 `json:"size" yaml:"size"`
	// Checksum is CRC-32 of the payload.
	Checksum uint32 `json:"checksum" yaml:"checksum"`
	// LocalHeaderOffset is byte offset of the entry local header from archive start.
	LocalHeaderOffset uint32 `json:"local_header_offset" yaml:"local_header_offset"`
	// ModTime is DOS-encoded modification time.
	ModTime uint16 `json:"mod_time" yaml:"mod_time"`
	// ModDate is DOS-encoded modification date.
	ModDate uint16 `json:"mod_date" yaml:"mod_date"`
}

// Modified returns the entry modification time decoded in the local time zone.
func (r FileRecord) Modified() time.Time {
	return TimeFromDOS(r.ModTime, r.ModDate, time.Local)
}

// dataOffset returns payload offset of the entry.
func (r FileRecord) dataOffset() int64 {
	return int64(r.LocalHeaderOffset) + localHeaderLen + int64(len(r.Name))
}

// Input describes one source stream to be stored as an archive entry.
type Input struct {
	// ModTime is optional entry timestamp; zero means the writer clock.
	ModTime time.Time `json:"mod_time" yaml:"mod_time"`
	// Open returns raw source stream for this entry.
	Open func() (io.ReadCloser, error) `json:"-" yaml:"-"`
	// Name is destination name inside archive.
	Name string `json:"name" yaml:"name"`
	// SizeHint is expected size in bytes (zero when unknown).
	// A hint that cannot fit the archive fails before Open is called.
	SizeHint int64 `json:"size_hint,omitempty" yaml:"size_hint,omitempty"`
}

// TimeMode controls how DOS time/date fields are sampled while writing.
type TimeMode string

// Supported time sampling modes.
const (
	// TimeModePerEntry samples time once per entry and writes it to both header copies.
	TimeModePerEntry TimeMode = "per_entry"
	// TimeModePerRecord samples the clock again for every record, as legacy writers do.
	// Local header and directory entry may disagree when the clock crosses a two-second step.
	TimeModePerRecord TimeMode = "per_record"
)

// PackEntryProgress contains one completed entry write event.
type PackEntryProgress struct {
	// Record is the metadata written for the entry.
	Record FileRecord `json:"record" yaml:"record"`
	// Index is entry position in input order.
	Index int `json:"index" yaml:"index"`
	// Total is number of inputs.
	Total int `json:"total" yaml:"total"`
}

// PackOptions configures archive creation.
type PackOptions struct {
	// OnEntryDone is called after one entry header and payload are written.
	OnEntryDone func(entry PackEntryProgress) `json:"-" yaml:"-"`
	// Now returns current wall-clock time; nil means time.Now.
	Now func() time.Time `json:"-" yaml:"-"`
	// TimeMode selects DOS time sampling; empty means TimeModePerEntry.
	// Other values fail with ErrInvalidOptions.
	TimeMode TimeMode `json:"time_mode,omitempty" yaml:"time_mode,omitempty"`
	// WriterBufferSize is buffered writer size in bytes.
	WriterBufferSize int `json:"writer_buffer_size,omitempty" yaml:"writer_buffer_size,omitempty"`
	// MaxWorkers is number of inputs read and hashed ahead of the writer.
	// Values below 2 keep reading strictly sequential.
	MaxWorkers int `json:"max_workers,omitempty" yaml:"max_workers,omitempty"`
}

// PackResult contains archive creation statistics.
type PackResult struct {
	// Entries are written records in archive order.
	Entries []FileRecord `json:"entries" yaml:"entries"`
	// DataSize is total bytes of local headers and payloads.
	DataSize int64 `json:"data_size" yaml:"data_size"`
	// DirectoryOffset is central directory start offset.
	DirectoryOffset int64 `json:"directory_offset" yaml:"directory_offset"`
	// DirectorySize is central directory size in bytes.
	DirectorySize int64 `json:"directory_size" yaml:"directory_size"`
	// TotalSize is archive size in bytes.
	TotalSize int64 `json:"total_size" yaml:"total_size"`
	// Duration is end-to-end creation duration.
	Duration time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// ReaderOptions configures reader behavior.
type ReaderOptions struct {
	// VerifyChecksums makes ReadEntry and OpenEntry fail on CRC mismatch.
	VerifyChecksums bool `json:"verify_checksums,omitempty" yaml:"verify_checksums,omitempty"`
}

// ExtractOptions configures Extract behavior.
type ExtractOptions struct {
	// OnEntryDone is called after one entry is fully written to disk.
	OnEntryDone func(entry FileRecord, outputPath string) `json:"-" yaml:"-"`
	// Entries limits extraction to selected records; nil means all entries.
	Entries []FileRecord `json:"-" yaml:"-"`
	// MaxWorkers is number of extraction workers (zero means GOMAXPROCS).
	MaxWorkers int `json:"max_workers,omitempty" yaml:"max_workers,omitempty"`
	// Overwrite truncates existing files instead of failing.
	Overwrite bool `json:"overwrite,omitempty" yaml:"overwrite,omitempty"`
}

// applyDefaults fills zero-valued pack options with defaults.
func (opts *PackOptions) applyDefaults() {
	if opts.WriterBufferSize < minWriteBuffer {
		opts.WriterBufferSize = DefaultWriteBuffer
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	if opts.TimeMode == "" {
		opts.TimeMode = TimeModePerEntry
	}

	if opts.MaxWorkers < 1 {
		opts.MaxWorkers = 1
	}
}

// validate rejects option values applyDefaults does not fill in.
func (opts *PackOptions) validate() error {
	switch opts.TimeMode {
	case TimeModePerEntry, TimeModePerRecord:
		return nil
	default:
		return fmt.Errorf("%w: unknown time mode %q", ErrInvalidOptions, opts.TimeMode)
	}
}
