// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/storezip

package storezip

import (
	"encoding/binary"
	"fmt"
	"hash"
	"io"
)

// checksumReader verifies payload CRC-32 when the wrapped stream reaches EOF.
type checksumReader struct {
	src  io.Reader
	hash hash.Hash32
	name string
	want uint32
	read int64
	size int64
}

// Read reads from the payload and checks the checksum at EOF.
func (c *checksumReader) Read(p []byte) (int, error) {
	n, err := c.src.Read(p)
	if n > 0 {
		_, _ = c.hash.Write(p[:n])
		c.read += int64(n)
	}

	if err == io.EOF {
		if c.read != c.size {
			return n, fmt.Errorf("%w: entry %s short payload (%d/%d)", ErrInvalidArchive, c.name, c.read, c.size)
		}

		if got := c.hash.Sum32(); got != c.want {
			return n, fmt.Errorf("%w: entry %s crc 0x%08x, want 0x%08x", ErrChecksumMismatch, c.name, got, c.want)
		}
	}

	return n, err
}

// Close closes checksumReader (no-op).
func (c *checksumReader) Close() error {
	return nil
}

// nopCloser wraps a reader and provides a no-op close.
type nopCloser struct {
	io.Reader
}

// Close closes nopCloser (no-op).
func (nopCloser) Close() error {
	return nil
}

// findEntryByName resolves one entry by stored name.
func (r *Reader) findEntryByName(name string) *FileRecord {
	idx, ok := r.index[name]
	if !ok {
		return nil
	}

	return &r.entries[idx]
}

// checkLocalHeader validates the local header of info against the directory record.
func (r *Reader) checkLocalHeader(info *FileRecord) error {
	var hdr [localHeaderLen]byte
	if n, err := r.ra.ReadAt(hdr[:], int64(info.LocalHeaderOffset)); n != len(hdr) {
		return fmt.Errorf("%w: entry %s local header at %d: %w", ErrInvalidArchive, info.Name, info.LocalHeaderOffset, err)
	}

	le := binary.LittleEndian
	if le.Uint32(hdr[0:4]) != localHeaderSignature {
		return fmt.Errorf("%w: entry %s has no local header signature at %d", ErrInvalidArchive, info.Name, info.LocalHeaderOffset)
	}

	flags := le.Uint16(hdr[6:8])
	method := le.Uint16(hdr[8:10])
	if method != methodStore || flags&0x1 != 0 {
		return fmt.Errorf("%w: entry %s (method %d, flags 0x%04x)", ErrUnsupportedEntry, info.Name, method, flags)
	}

	nameLen := int(le.Uint16(hdr[26:28]))
	extraLen := le.Uint16(hdr[28:30])
	if extraLen != 0 {
		return fmt.Errorf("%w: entry %s has extra field", ErrUnsupportedEntry, info.Name)
	}

	if le.Uint32(hdr[14:18]) != info.Checksum ||
		le.Uint32(hdr[18:22]) != info.Size ||
		le.Uint32(hdr[22:26]) != info.Size ||
		nameLen != len(info.Name) {
		return fmt.Errorf("%w: entry %s", ErrHeaderMismatch, info.Name)
	}

	name := make([]byte, nameLen)
	if n, err := r.ra.ReadAt(name, int64(info.LocalHeaderOffset)+localHeaderLen); n != nameLen {
		return fmt.Errorf("%w: entry %s local name: %w", ErrInvalidArchive, info.Name, err)
	}
	if string(name) != info.Name {
		return fmt.Errorf("%w: entry %s local name %q", ErrHeaderMismatch, info.Name, name)
	}

	if end := info.dataOffset() + int64(info.Size); end > r.dirOffset {
		return fmt.Errorf("%w: entry %s payload ends at %d past directory %d", ErrInvalidArchive, info.Name, end, r.dirOffset)
	}

	return nil
}

// openEntryByInfo opens payload stream for already resolved entry metadata.
func (r *Reader) openEntryByInfo(info *FileRecord, name string, verify bool) (io.ReadCloser, error) {
	if info == nil {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}

	if err := r.checkLocalHeader(info); err != nil {
		return nil, err
	}

	sr := io.NewSectionReader(r.ra, info.dataOffset(), int64(info.Size))
	if !verify {
		return nopCloser{Reader: sr}, nil
	}

	return &checksumReader{
		src:  sr,
		hash: NewHash(),
		name: info.Name,
		want: info.Checksum,
		size: int64(info.Size),
	}, nil
}

// OpenEntry opens named entry for reading.
func (r *Reader) OpenEntry(name string) (io.ReadCloser, error) {
	if r == nil || r.ra == nil {
		return nil, ErrNilReader
	}

	if r.isClosed() {
		return nil, ErrClosed
	}

	return r.openEntryByInfo(r.findEntryByName(name), name, r.opts.VerifyChecksums)
}

// OpenEntryInfo opens entry stream by already resolved metadata.
func (r *Reader) OpenEntryInfo(info FileRecord) (io.ReadCloser, error) {
	if r == nil || r.ra == nil {
		return nil, ErrNilReader
	}

	if r.isClosed() {
		return nil, ErrClosed
	}

	return r.openEntryByInfo(&info, info.Name, r.opts.VerifyChecksums)
}

// ReadEntry reads full content of the named entry.
func (r *Reader) ReadEntry(name string) ([]byte, error) {
	rc, err := r.OpenEntry(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	return io.ReadAll(rc)
}

// Verify checks every local header against its directory entry and every payload checksum.
// It returns the first mismatch found in directory order.
func (r *Reader) Verify() error {
	if r == nil || r.ra == nil {
		return ErrNilReader
	}

	if r.isClosed() {
		return ErrClosed
	}

	for i := range r.entries {
		info := &r.entries[i]
		rc, err := r.openEntryByInfo(info, info.Name, true)
		if err != nil {
			return err
		}

		_, err = io.Copy(io.Discard, rc)
		_ = rc.Close()
		if err != nil {
			return err
		}
	}

	return nil
}
