// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/storezip

package storezip

import "io"

// ListEntries opens an archive and returns directory records without payload reads.
func ListEntries(path string) ([]FileRecord, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	return r.Entries(), nil
}

// ListEntriesFromReaderAt returns directory records from a random-access source.
func ListEntriesFromReaderAt(ra io.ReaderAt, size int64) ([]FileRecord, error) {
	r, err := NewReaderFromReaderAt(ra, size)
	if err != nil {
		return nil, err
	}

	return r.Entries(), nil
}

// VerifyFile opens an archive and runs Reader.Verify on it.
func VerifyFile(path string) error {
	r, err := Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	return r.Verify()
}
