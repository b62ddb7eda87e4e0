// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/storezip

/*
Package storezip writes and reads store-only ZIP archives. Every entry is
stored uncompressed behind a local file header, followed by a central
directory and an end of central directory record. CRC-32 is computed with
a table built in this package (reversed IEEE polynomial 0xEDB88320) and
matches hash/crc32 and zlib bit for bit.

Format limits (no zip64, no extra fields, no directory entries):
  - entry payload, offsets, and directory size must fit uint32;
  - entry name length and entry count must fit uint16;
  - violations fail with ErrSizeOverflow before the record is written.

# Writing

Entries are written in caller order. Inputs are stream-oriented:

	inputs := []storezip.Input{
	    {Name: "a.txt", Open: func() (io.ReadCloser, error) { return os.Open("a.txt") }},
	}
	res, err := storezip.CreateArchiveFile(ctx, "output.zip", inputs, storezip.PackOptions{})
	if err != nil {
	    return err
	}
	_ = res.DirectoryOffset

Files from disk keep the name they were given:

	res, err := storezip.CreateArchive(ctx, out, storezip.FileInputs([]string{"a.txt", "docs/b.md"}), storezip.PackOptions{})

Collect a directory with exclude rules from github.com/woozymasta/pathrules:

	inputs, err := storezip.CollectInputs("site", storezip.CollectOptions{
	    Exclude: storezip.ExcludeRules("*.tmp", ".git/**"),
	})

Read and hash inputs ahead of the writer (output bytes do not change):

	res, err := storezip.CreateArchive(ctx, out, inputs, storezip.PackOptions{MaxWorkers: 4})

# Time fields

By default DOS time and date are sampled once per entry (Input.ModTime when
set, otherwise PackOptions.Now) and written to both the local header and the
directory entry. TimeModePerRecord samples the clock again for each record.

# Reading

	r, err := storezip.Open("output.zip")
	if err != nil {
	    return err
	}
	defer r.Close()
	if err := r.Verify(); err != nil {
	    return err
	}
	for _, e := range r.Entries() {
	    data, _ := r.ReadEntry(e.Name)
	    _ = data
	}

Extract all entries to a directory (parallel workers, checksums verified):

	if err := r.Extract(ctx, "out/", storezip.ExtractOptions{MaxWorkers: 4}); err != nil {
	    return err
	}

Select a subset first:

	selected, err := storezip.FilterEntries(r.Entries(), storezip.FilterOptions{
	    Prefix:  "site/css",
	    Exclude: storezip.ExcludeRules("*.map"),
	})
	if err != nil {
	    return err
	}
	err = r.Extract(ctx, "out/", storezip.ExtractOptions{Entries: selected})
*/
package storezip
