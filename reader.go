// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/storezip

package storezip

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"
)

// Reader provides read-only access to a parsed archive.
type Reader struct {
	// ra is the underlying random-access reader used for payload reads.
	ra io.ReaderAt
	// file is set when Reader owns an *os.File opened via Open.
	file *os.File
	// entries stores parsed immutable directory metadata in directory order.
	entries []FileRecord
	// index maps entry name to position in entries (first occurrence wins).
	index map[string]int
	// size is total source size in bytes.
	size int64
	// dirOffset is absolute offset of the central directory.
	dirOffset int64
	// dirSize is central directory size in bytes.
	dirSize int64
	// opts are reader options applied to entry reads.
	opts ReaderOptions
	// mu guards closed state and close operation.
	mu sync.Mutex
	// closed reports whether Close was already called.
	closed bool
}

// Open opens archive by path and parses the central directory.
func Open(path string) (*Reader, error) {
	return OpenWithOptions(path, ReaderOptions{})
}

// OpenWithOptions opens archive by path and parses the central directory using explicit reader options.
func OpenWithOptions(path string, opts ReaderOptions) (*Reader, error) {
	f, size, err := openFileWithSize(path)
	if err != nil {
		return nil, err
	}

	r, err := NewReaderFromReaderAtWithOptions(f, size, opts)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	r.file = f
	return r, nil
}

// NewReaderFromReaderAt parses archive from existing ReaderAt and known size.
func NewReaderFromReaderAt(ra io.ReaderAt, size int64) (*Reader, error) {
	return NewReaderFromReaderAtWithOptions(ra, size, ReaderOptions{})
}

// NewReaderFromReaderAtWithOptions parses archive from existing ReaderAt and known size using explicit reader options.
func NewReaderFromReaderAtWithOptions(ra io.ReaderAt, size int64, opts ReaderOptions) (*Reader, error) {
	if ra == nil {
		return nil, ErrNilReader
	}

	r := &Reader{ra: ra, size: size, opts: opts}
	if err := r.parse(); err != nil {
		return nil, err
	}

	return r, nil
}

// Entries returns a copy of parsed entries in central directory order.
func (r *Reader) Entries() []FileRecord {
	if r == nil {
		return nil
	}

	entries := make([]FileRecord, len(r.entries))
	copy(entries, r.entries)
	return entries
}

// DirectoryOffset returns central directory start offset.
func (r *Reader) DirectoryOffset() int64 {
	return r.dirOffset
}

// DirectorySize returns central directory size in bytes.
func (r *Reader) DirectorySize() int64 {
	return r.dirSize
}

// Close closes the underlying file if reader owns one.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}

	r.closed = true
	if r.file != nil {
		return r.file.Close()
	}

	return nil
}

// isClosed reports whether Close was called.
func (r *Reader) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.closed
}

// endOfDirectory is parsed end of central directory record.
type endOfDirectory struct {
	offset     int64
	diskNumber uint16
	dirDisk    uint16
	diskCount  uint16
	totalCount uint16
	dirSize    uint32
	dirOffset  uint32
}

// parse locates the end record and reads every central directory entry.
func (r *Reader) parse() error {
	eocd, err := findEndOfDirectory(r.ra, r.size)
	if err != nil {
		return err
	}

	if eocd.diskNumber != 0 || eocd.dirDisk != 0 || eocd.diskCount != eocd.totalCount {
		return fmt.Errorf("%w: multi-disk archives are not supported", ErrUnsupportedEntry)
	}

	r.dirOffset = int64(eocd.dirOffset)
	r.dirSize = int64(eocd.dirSize)
	if r.dirOffset+r.dirSize != eocd.offset {
		return fmt.Errorf("%w: directory span [%d,%d) does not end at end record %d",
			ErrInvalidArchive, r.dirOffset, r.dirOffset+r.dirSize, eocd.offset)
	}

	dir := make([]byte, r.dirSize)
	if len(dir) > 0 {
		if n, err := r.ra.ReadAt(dir, r.dirOffset); n != len(dir) {
			return fmt.Errorf("%w: read central directory: %w", ErrInvalidArchive, err)
		}
	}

	r.entries = make([]FileRecord, 0, eocd.totalCount)
	r.index = make(map[string]int, eocd.totalCount)
	for pos := 0; pos < len(dir); {
		record, n, err := parseCentralDirEntry(dir[pos:])
		if err != nil {
			return fmt.Errorf("directory entry %d at offset %d: %w", len(r.entries), r.dirOffset+int64(pos), err)
		}

		if _, ok := r.index[record.Name]; !ok {
			r.index[record.Name] = len(r.entries)
		}

		r.entries = append(r.entries, record)
		pos += n
	}

	if len(r.entries) != int(eocd.totalCount) {
		return fmt.Errorf("%w: directory holds %d entries, end record declares %d",
			ErrInvalidArchive, len(r.entries), eocd.totalCount)
	}

	return nil
}

// findEndOfDirectory scans backwards for the end record, allowing a trailing comment.
func findEndOfDirectory(ra io.ReaderAt, size int64) (endOfDirectory, error) {
	if size < endOfDirLen {
		return endOfDirectory{}, fmt.Errorf("%w: %d bytes is too short for end record", ErrInvalidArchive, size)
	}

	scan := int64(maxEndOfDirScan)
	if scan > size {
		scan = size
	}

	tail := make([]byte, scan)
	if _, err := ra.ReadAt(tail, size-scan); err != nil && err != io.EOF {
		return endOfDirectory{}, fmt.Errorf("%w: read tail: %w", ErrInvalidArchive, err)
	}

	var sig [4]byte
	binary.LittleEndian.PutUint32(sig[:], endOfCentralDirSig)
	for i := len(tail) - endOfDirLen; i >= 0; i-- {
		if !bytes.Equal(tail[i:i+4], sig[:]) {
			continue
		}

		rec := tail[i:]
		commentLen := int(binary.LittleEndian.Uint16(rec[20:22]))
		if endOfDirLen+commentLen != len(rec) {
			continue
		}

		le := binary.LittleEndian
		return endOfDirectory{
			offset:     size - scan + int64(i),
			diskNumber: le.Uint16(rec[4:6]),
			dirDisk:    le.Uint16(rec[6:8]),
			diskCount:  le.Uint16(rec[8:10]),
			totalCount: le.Uint16(rec[10:12]),
			dirSize:    le.Uint32(rec[12:16]),
			dirOffset:  le.Uint32(rec[16:20]),
		}, nil
	}

	return endOfDirectory{}, fmt.Errorf("%w: end of central directory not found", ErrInvalidArchive)
}

// parseCentralDirEntry parses one directory entry and returns consumed byte count.
func parseCentralDirEntry(b []byte) (FileRecord, int, error) {
	if len(b) < centralDirLen {
		return FileRecord{}, 0, fmt.Errorf("%w: truncated directory entry", ErrInvalidArchive)
	}

	le := binary.LittleEndian
	if le.Uint32(b[0:4]) != centralDirSignature {
		return FileRecord{}, 0, fmt.Errorf("%w: bad directory entry signature 0x%08x", ErrInvalidArchive, le.Uint32(b[0:4]))
	}

	nameLen := int(le.Uint16(b[28:30]))
	extraLen := int(le.Uint16(b[30:32]))
	commentLen := int(le.Uint16(b[32:34]))
	total := centralDirLen + nameLen + extraLen + commentLen
	if len(b) < total {
		return FileRecord{}, 0, fmt.Errorf("%w: truncated directory entry name", ErrInvalidArchive)
	}

	record := FileRecord{
		Name:              string(b[centralDirLen : centralDirLen+nameLen]),
		Size:              le.Uint32(b[24:28]),
		Checksum:          le.Uint32(b[16:20]),
		LocalHeaderOffset: le.Uint32(b[42:46]),
		ModTime:           le.Uint16(b[12:14]),
		ModDate:           le.Uint16(b[14:16]),
	}

	flags := le.Uint16(b[8:10])
	method := le.Uint16(b[10:12])
	compressed := le.Uint32(b[20:24])
	if method != methodStore || flags&0x1 != 0 || compressed != record.Size {
		return record, total, fmt.Errorf("%w: entry %s (method %d, flags 0x%04x)", ErrUnsupportedEntry, record.Name, method, flags)
	}

	return record, total, nil
}

// openFileWithSize opens file and returns handle with file size.
func openFileWithSize(path string) (*os.File, int64, error) {
	f, err := os.Open(path) //nolint:gosec // caller selects archive path
	if err != nil {
		return nil, 0, fmt.Errorf("%w: open archive: %w", ErrIOFailure, err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("%w: stat archive: %w", ErrIOFailure, err)
	}

	return f, fi.Size(), nil
}
