// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/storezip

package storezip

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Record signatures as little-endian uint32 values ("PK\x03\x04", "PK\x01\x02", "PK\x05\x06").
const (
	localHeaderSignature = 0x04034b50
	centralDirSignature  = 0x02014b50
	endOfCentralDirSig   = 0x06054b50
)

// Fixed record sizes in bytes, signature included, name excluded.
const (
	localHeaderLen = 30
	centralDirLen  = 46
	endOfDirLen    = 22
)

// Header constants for stored entries.
const (
	versionMadeBy   = 0x14
	versionNeeded   = 20
	methodStore     = 0
	maxNameLen      = 0xffff
	maxEntryCount   = 0xffff
	maxFieldValue   = 0xffffffff
	maxCommentLen   = 0xffff
	maxEndOfDirScan = endOfDirLen + maxCommentLen
)

// writeLocalHeader emits one local file header followed by the entry name.
// The size is written to both compressed and uncompressed fields.
func writeLocalHeader(w io.Writer, name string, checksum uint32, size uint32, dosTime uint16, dosDate uint16) error {
	if len(name) > maxNameLen {
		return fmt.Errorf("%w: entry name %q is %d bytes", ErrSizeOverflow, name, len(name))
	}

	buf := make([]byte, localHeaderLen+len(name))
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], localHeaderSignature)
	le.PutUint16(buf[4:6], versionNeeded)
	le.PutUint16(buf[6:8], 0) // flags
	le.PutUint16(buf[8:10], methodStore)
	le.PutUint16(buf[10:12], dosTime)
	le.PutUint16(buf[12:14], dosDate)
	le.PutUint32(buf[14:18], checksum)
	le.PutUint32(buf[18:22], size)
	le.PutUint32(buf[22:26], size)
	le.PutUint16(buf[26:28], uint16(len(name))) //nolint:gosec // checked against maxNameLen
	le.PutUint16(buf[28:30], 0)                 // extra length
	copy(buf[localHeaderLen:], name)

	_, err := w.Write(buf)
	return err
}

// writeCentralDirEntry emits one central directory entry for rec.
func writeCentralDirEntry(w io.Writer, rec FileRecord) error {
	if len(rec.Name) > maxNameLen {
		return fmt.Errorf("%w: entry name %q is %d bytes", ErrSizeOverflow, rec.Name, len(rec.Name))
	}

	buf := make([]byte, centralDirLen+len(rec.Name))
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], centralDirSignature)
	le.PutUint16(buf[4:6], versionMadeBy)
	le.PutUint16(buf[6:8], versionNeeded)
	le.PutUint16(buf[8:10], 0) // flags
	le.PutUint16(buf[10:12], methodStore)
	le.PutUint16(buf[12:14], rec.ModTime)
	le.PutUint16(buf[14:16], rec.ModDate)
	le.PutUint32(buf[16:20], rec.Checksum)
	le.PutUint32(buf[20:24], rec.Size)
	le.PutUint32(buf[24:28], rec.Size)
	le.PutUint16(buf[28:30], uint16(len(rec.Name))) //nolint:gosec // checked against maxNameLen
	// extra length, comment length, disk number start, internal and external attributes stay zero.
	le.PutUint32(buf[42:46], rec.LocalHeaderOffset)
	copy(buf[centralDirLen:], rec.Name)

	_, err := w.Write(buf)
	return err
}

// writeEndOfCentralDirectory emits the trailing summary record with an empty comment.
func writeEndOfCentralDirectory(w io.Writer, entryCount uint16, dirSize uint32, dirOffset uint32) error {
	var buf [endOfDirLen]byte
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], endOfCentralDirSig)
	// disk number and directory start disk stay zero.
	le.PutUint16(buf[8:10], entryCount)
	le.PutUint16(buf[10:12], entryCount)
	le.PutUint32(buf[12:16], dirSize)
	le.PutUint32(buf[16:20], dirOffset)
	// comment length stays zero.

	_, err := w.Write(buf[:])
	return err
}
