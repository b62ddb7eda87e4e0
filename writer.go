// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/storezip

package storezip

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var (
	// defaultArchiveWriterPool reuses default-sized bufio writers between CreateArchive calls.
	defaultArchiveWriterPool = sync.Pool{
		New: func() any {
			return bufio.NewWriterSize(io.Discard, DefaultWriteBuffer)
		},
	}
)

// countingWriter tracks the logical archive write position.
type countingWriter struct {
	w   io.Writer
	pos int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.pos += int64(n)
	return n, err
}

// CreateArchive writes a store-only ZIP archive to out from inputs in the given order.
// Entries are written in one pass (local header and payload per input), then the
// central directory and the end record in a second pass over the written records.
// On error the sink holds an incomplete archive; discarding it is up to the caller.
func CreateArchive(ctx context.Context, out io.Writer, inputs []Input, opts PackOptions) (*PackResult, error) {
	startedAt := time.Now()

	if out == nil {
		return nil, ErrNilWriter
	}

	if ctx == nil {
		ctx = context.Background()
	}

	opts.applyDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	if err := validateInputs(inputs); err != nil {
		return nil, err
	}

	w, releaseWriter := acquireArchiveWriter(out, opts.WriterBufferSize)
	defer releaseWriter()
	cw := &countingWriter{w: w}

	loader := newInputLoader(ctx, inputs, opts.MaxWorkers)
	defer loader.stop()

	records := make([]FileRecord, 0, len(inputs))
	for i := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		payload, err := loader.next(i, payloadBudget(cw.pos, inputs[i].Name))
		if err != nil {
			return nil, err
		}

		record, err := writeEntry(cw, inputs[i], payload, opts)
		loader.release()
		if err != nil {
			return nil, err
		}

		records = append(records, record)

		if opts.OnEntryDone != nil {
			opts.OnEntryDone(PackEntryProgress{
				Record: record,
				Index:  i,
				Total:  len(inputs),
			})
		}
	}

	dirOffset := cw.pos
	if dirOffset > maxFieldValue {
		return nil, fmt.Errorf("%w: central directory offset %d exceeds 4 GiB", ErrSizeOverflow, dirOffset)
	}

	written := make([]FileRecord, 0, len(records))
	for i, record := range records {
		if opts.TimeMode == TimeModePerRecord {
			record.ModTime, record.ModDate = entryDOSTime(inputs[i], opts)
		}

		if err := writeCentralDirEntry(cw, record); err != nil {
			return nil, fmt.Errorf("%w: write directory entry %s: %w", ErrIOFailure, record.Name, err)
		}

		written = append(written, record)
	}

	dirSize := cw.pos - dirOffset
	if dirSize > maxFieldValue {
		return nil, fmt.Errorf("%w: central directory size %d exceeds 4 GiB", ErrSizeOverflow, dirSize)
	}

	//nolint:gosec // count checked in validateInputs, offset and size checked above
	if err := writeEndOfCentralDirectory(cw, uint16(len(written)), uint32(dirSize), uint32(dirOffset)); err != nil {
		return nil, fmt.Errorf("%w: write end of central directory: %w", ErrIOFailure, err)
	}

	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("%w: flush archive: %w", ErrIOFailure, err)
	}

	return &PackResult{
		Entries:         written,
		DataSize:        dirOffset,
		DirectoryOffset: dirOffset,
		DirectorySize:   dirSize,
		TotalSize:       cw.pos,
		Duration:        time.Since(startedAt),
	}, nil
}

// CreateArchiveFile writes archive to outPath, replacing any existing file.
// A failed call leaves the partial file in place.
func CreateArchiveFile(ctx context.Context, outPath string, inputs []Input, opts PackOptions) (*PackResult, error) {
	f, err := os.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("%w: create archive file: %w", ErrIOFailure, err)
	}
	defer func() {
		if f != nil {
			_ = f.Close()
		}
	}()

	res, err := CreateArchive(ctx, f, inputs, opts)
	if err != nil {
		return nil, err
	}

	if err := f.Sync(); err != nil {
		return nil, fmt.Errorf("%w: sync archive file: %w", ErrIOFailure, err)
	}

	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("%w: close archive file: %w", ErrIOFailure, err)
	}
	f = nil

	return res, nil
}

// writeEntry writes local header and payload of one loaded input at current position.
func writeEntry(cw *countingWriter, in Input, payload inputPayload, opts PackOptions) (FileRecord, error) {
	offset := cw.pos
	if offset > maxFieldValue {
		return FileRecord{}, fmt.Errorf("%w: entry %s local header offset %d exceeds 4 GiB", ErrSizeOverflow, in.Name, offset)
	}

	size, err := checkedDataSize(in.Name, int64(len(payload.data)))
	if err != nil {
		return FileRecord{}, err
	}

	record := FileRecord{
		Name:              in.Name,
		Size:              size,
		Checksum:          payload.checksum,
		LocalHeaderOffset: uint32(offset), //nolint:gosec // checked above
	}
	record.ModTime, record.ModDate = entryDOSTime(in, opts)

	if err := writeLocalHeader(cw, record.Name, record.Checksum, record.Size, record.ModTime, record.ModDate); err != nil {
		return FileRecord{}, fmt.Errorf("%w: write local header %s: %w", ErrIOFailure, in.Name, err)
	}

	if _, err := cw.Write(payload.data); err != nil {
		return FileRecord{}, fmt.Errorf("%w: write payload %s: %w", ErrIOFailure, in.Name, err)
	}

	return record, nil
}

// entryDOSTime returns DOS time and date for one record of in.
func entryDOSTime(in Input, opts PackOptions) (uint16, uint16) {
	if !in.ModTime.IsZero() {
		return DOSDateTime(in.ModTime)
	}

	return DOSDateTime(opts.Now())
}

// acquireArchiveWriter returns a buffered writer and release callback.
func acquireArchiveWriter(out io.Writer, size int) (*bufio.Writer, func()) {
	if size == DefaultWriteBuffer {
		w := defaultArchiveWriterPool.Get().(*bufio.Writer) //nolint:forcetypeassert // pool contains only *bufio.Writer
		w.Reset(out)

		return w, func() {
			w.Reset(io.Discard)
			defaultArchiveWriterPool.Put(w)
		}
	}

	return bufio.NewWriterSize(out, size), func() {}
}

// validateInputs checks entry count and names before any byte is written.
func validateInputs(inputs []Input) error {
	if len(inputs) > maxEntryCount {
		return fmt.Errorf("%w: %d entries (max %d)", ErrSizeOverflow, len(inputs), maxEntryCount)
	}

	for i := range inputs {
		if inputs[i].Name == "" {
			return fmt.Errorf("%w: input %d has empty name", ErrInvalidEntryName, i)
		}

		if len(inputs[i].Name) > maxNameLen {
			return fmt.Errorf("%w: entry name %q is %d bytes (max %d)", ErrSizeOverflow, inputs[i].Name, len(inputs[i].Name), maxNameLen)
		}
	}

	return nil
}

// payloadBudget returns how many payload bytes fit after a local header
// written at offset, keeping the central directory offset in range.
func payloadBudget(offset int64, name string) int64 {
	budget := int64(maxFieldValue) - offset - localHeaderLen - int64(len(name))
	if budget < 0 {
		return 0
	}

	return budget
}

// checkedDataSize validates entry size for uint32 size fields.
func checkedDataSize(name string, size int64) (uint32, error) {
	if size < 0 || size > maxFieldValue {
		return 0, fmt.Errorf("%w: entry %s size %d is out of uint32 range", ErrSizeOverflow, name, size)
	}

	return uint32(size), nil
}
