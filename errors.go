// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/storezip

package storezip

import "errors"

// Sentinel errors for archive operations. Use errors.Is in callers.
var (
	// ErrIOFailure means the output sink could not be written or an input could not be opened or read.
	ErrIOFailure = errors.New("archive I/O failure")
	// ErrSizeOverflow means a size, offset, count, or name length exceeds the 16/32-bit format fields.
	ErrSizeOverflow = errors.New("value exceeds archive field range")
	// ErrInvalidEntryName means the entry name is empty.
	ErrInvalidEntryName = errors.New("invalid entry name")
	// ErrInvalidOptions means an option value is not recognized.
	ErrInvalidOptions = errors.New("invalid options")
	// ErrNilReader means the reader is nil.
	ErrNilReader = errors.New("reader is nil")
	// ErrNilWriter means the writer is nil.
	ErrNilWriter = errors.New("writer is nil")
	// ErrInvalidArchive means the end of central directory record or a directory entry is malformed.
	ErrInvalidArchive = errors.New("invalid archive")
	// ErrUnsupportedEntry means the entry uses compression, encryption, or other unsupported features.
	ErrUnsupportedEntry = errors.New("unsupported archive entry")
	// ErrHeaderMismatch means a local header disagrees with its central directory entry.
	ErrHeaderMismatch = errors.New("local header does not match central directory")
	// ErrChecksumMismatch means entry payload CRC-32 differs from the stored value.
	ErrChecksumMismatch = errors.New("entry checksum mismatch")
	// ErrEntryNotFound means the entry is not found.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrClosed means the reader or resource is already closed.
	ErrClosed = errors.New("reader or resource already closed")
	// ErrInvalidExtractPath means archive entry path is invalid for extraction destination.
	ErrInvalidExtractPath = errors.New("invalid extract path")
	// ErrExtractPathOutsideRoot means resolved extraction path escapes destination root.
	ErrExtractPathOutsideRoot = errors.New("extract path escapes destination root")
)
