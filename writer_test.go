// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/storezip

package storezip

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestCreateArchive_SingleFileLayout(t *testing.T) {
	t.Parallel()

	data, res := buildArchive(t, []Input{memInput("a.txt", []byte("hi"))}, PackOptions{})
	le := binary.LittleEndian

	if !bytes.HasPrefix(data, []byte{0x50, 0x4b, 0x03, 0x04}) {
		t.Fatalf("archive starts with % x", data[:4])
	}
	if got := le.Uint32(data[14:18]); got != 0xD8932AAC {
		t.Fatalf("local crc=0x%08x, want 0xd8932aac", got)
	}
	if le.Uint32(data[18:22]) != 2 || le.Uint32(data[22:26]) != 2 {
		t.Fatalf("local sizes=%d/%d, want 2/2", le.Uint32(data[18:22]), le.Uint32(data[22:26]))
	}
	if got := string(data[30:37]); got != "a.txthi" {
		t.Fatalf("name and payload=%q, want %q", got, "a.txthi")
	}

	eocd := data[len(data)-endOfDirLen:]
	if le.Uint32(eocd[0:4]) != endOfCentralDirSig {
		t.Fatalf("end record signature % x", eocd[0:4])
	}

	cdOffset := le.Uint32(eocd[16:20])
	cdSize := le.Uint32(eocd[12:16])
	if cdOffset != 37 || cdSize != centralDirLen+5 {
		t.Fatalf("cdOffset=%d cdSize=%d, want 37 and %d", cdOffset, cdSize, centralDirLen+5)
	}

	cd := data[cdOffset:]
	if !bytes.HasPrefix(cd, []byte{0x50, 0x4b, 0x01, 0x02}) {
		t.Fatalf("cdOffset points at % x", cd[:4])
	}
	if le.Uint32(cd[16:20]) != 0xD8932AAC || le.Uint32(cd[20:24]) != 2 || le.Uint32(cd[24:28]) != 2 {
		t.Fatal("directory entry crc/sizes differ from local header")
	}
	if le.Uint32(cd[42:46]) != 0 {
		t.Fatalf("directory local header offset=%d, want 0", le.Uint32(cd[42:46]))
	}
	if le.Uint16(eocd[8:10]) != 1 || le.Uint16(eocd[10:12]) != 1 {
		t.Fatalf("entry counts=%d/%d, want 1/1", le.Uint16(eocd[8:10]), le.Uint16(eocd[10:12]))
	}

	if len(data) != 37+centralDirLen+5+endOfDirLen {
		t.Fatalf("archive size=%d", len(data))
	}
	if res.TotalSize != int64(len(data)) || res.DirectoryOffset != 37 {
		t.Fatalf("result=%+v", res)
	}
}

func TestCreateArchive_EmptyInputs(t *testing.T) {
	t.Parallel()

	data, res := buildArchive(t, nil, PackOptions{})

	want := make([]byte, endOfDirLen)
	binary.LittleEndian.PutUint32(want, endOfCentralDirSig)
	if !bytes.Equal(data, want) {
		t.Fatalf("empty archive=% x, want % x", data, want)
	}
	if len(res.Entries) != 0 || res.DirectorySize != 0 || res.DirectoryOffset != 0 {
		t.Fatalf("result=%+v", res)
	}
}

func TestCreateArchive_OffsetsMatchWritePositions(t *testing.T) {
	t.Parallel()

	inputs := []Input{
		memInput("one.txt", []byte("first")),
		memInput("dir/two.bin", bytes.Repeat([]byte{0xAB}, 1000)),
		memInput("empty", nil),
		memInput("three.txt", []byte("third payload")),
	}

	var positions []uint32
	opts := PackOptions{
		OnEntryDone: func(entry PackEntryProgress) {
			positions = append(positions, entry.Record.LocalHeaderOffset)
		},
	}
	data, res := buildArchive(t, inputs, opts)

	var pos int64
	for i, rec := range res.Entries {
		if int64(rec.LocalHeaderOffset) != pos {
			t.Fatalf("entry %d offset=%d, want %d", i, rec.LocalHeaderOffset, pos)
		}
		if binary.LittleEndian.Uint32(data[pos:]) != localHeaderSignature {
			t.Fatalf("entry %d: no local header at %d", i, pos)
		}
		if positions[i] != rec.LocalHeaderOffset {
			t.Fatalf("progress offset %d=%d, want %d", i, positions[i], rec.LocalHeaderOffset)
		}

		pos += localHeaderLen + int64(len(rec.Name)) + int64(rec.Size)
	}

	if pos != res.DirectoryOffset {
		t.Fatalf("directory offset=%d, want %d", res.DirectoryOffset, pos)
	}

	eocdOffset := int64(len(data) - endOfDirLen)
	if res.DirectoryOffset+res.DirectorySize != eocdOffset {
		t.Fatalf("directory span ends at %d, end record at %d", res.DirectoryOffset+res.DirectorySize, eocdOffset)
	}

	eocd := data[eocdOffset:]
	if binary.LittleEndian.Uint16(eocd[8:10]) != uint16(len(inputs)) || binary.LittleEndian.Uint16(eocd[10:12]) != uint16(len(inputs)) {
		t.Fatal("end record entry counts differ from input count")
	}
}

func TestCreateArchive_RoundTripStdlibReader(t *testing.T) {
	t.Parallel()

	files := map[string][]byte{
		"readme.md":          []byte("# hello\n"),
		"nested/deep/x.bin":  bytes.Repeat([]byte{0, 1, 2, 3}, 4096),
		"empty.txt":          {},
		"unicode-ñame.txt":   []byte("utf-8 name"),
		"spaces in name.txt": []byte("spaces"),
	}
	order := []string{"readme.md", "nested/deep/x.bin", "empty.txt", "unicode-ñame.txt", "spaces in name.txt"}

	inputs := make([]Input, 0, len(order))
	for _, name := range order {
		inputs = append(inputs, memInput(name, files[name]))
	}

	data, _ := buildArchive(t, inputs, PackOptions{})
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}

	if len(zr.File) != len(order) {
		t.Fatalf("len(File)=%d, want %d", len(zr.File), len(order))
	}

	for i, f := range zr.File {
		if f.Name != order[i] {
			t.Fatalf("file %d name=%q, want %q", i, f.Name, order[i])
		}
		if f.Method != zip.Store {
			t.Fatalf("file %s method=%d, want store", f.Name, f.Method)
		}

		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		got, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		if !bytes.Equal(got, files[f.Name]) {
			t.Fatalf("content mismatch for %s", f.Name)
		}
	}
}

func TestCreateArchive_DeterministicAndPrefetchIdentical(t *testing.T) {
	t.Parallel()

	var inputs []Input
	for i := 0; i < 40; i++ {
		inputs = append(inputs, memInput(fmt.Sprintf("file-%02d.txt", i), bytes.Repeat([]byte{byte(i)}, i*97)))
	}

	first, _ := buildArchive(t, inputs, PackOptions{})
	second, _ := buildArchive(t, inputs, PackOptions{})
	if !bytes.Equal(first, second) {
		t.Fatal("two runs with identical inputs and clock differ")
	}

	for _, workers := range []int{2, 4, 64} {
		got, _ := buildArchive(t, inputs, PackOptions{MaxWorkers: workers})
		if !bytes.Equal(first, got) {
			t.Fatalf("MaxWorkers=%d output differs from sequential output", workers)
		}
	}
}

func TestCreateArchive_TimeModes(t *testing.T) {
	t.Parallel()

	t.Run("per entry reuses one sample", func(t *testing.T) {
		t.Parallel()

		clock := steppingClock(testClockTime, time.Minute)
		data, res := buildArchive(t, []Input{memInput("a", []byte("x"))}, PackOptions{Now: clock})

		local := data[10:14]
		cd := data[res.DirectoryOffset+12 : res.DirectoryOffset+16]
		if !bytes.Equal(local, cd) {
			t.Fatalf("local time/date % x, directory % x", local, cd)
		}
	})

	t.Run("per record samples again", func(t *testing.T) {
		t.Parallel()

		clock := steppingClock(testClockTime, time.Minute)
		data, res := buildArchive(t, []Input{memInput("a", []byte("x"))}, PackOptions{
			Now:      clock,
			TimeMode: TimeModePerRecord,
		})

		local := binary.LittleEndian.Uint16(data[10:12])
		cd := binary.LittleEndian.Uint16(data[res.DirectoryOffset+12:])
		if local == cd {
			t.Fatalf("expected different time fields, both 0x%04x", local)
		}
		if res.Entries[0].ModTime != cd {
			t.Fatalf("result ModTime=0x%04x, want directory value 0x%04x", res.Entries[0].ModTime, cd)
		}
	})

	t.Run("input mod time wins", func(t *testing.T) {
		t.Parallel()

		in := memInput("a", []byte("x"))
		in.ModTime = time.Date(2001, 2, 3, 4, 5, 6, 0, time.UTC)
		_, res := buildArchive(t, []Input{in}, PackOptions{TimeMode: TimeModePerRecord})

		wantTime, wantDate := DOSDateTime(in.ModTime)
		if res.Entries[0].ModTime != wantTime || res.Entries[0].ModDate != wantDate {
			t.Fatalf("record time=(0x%04x,0x%04x), want (0x%04x,0x%04x)",
				res.Entries[0].ModTime, res.Entries[0].ModDate, wantTime, wantDate)
		}
	})
}

func TestCreateArchive_Errors(t *testing.T) {
	t.Parallel()

	errMissing := errors.New("no such file")

	testCases := []struct {
		name    string
		out     io.Writer
		inputs  []Input
		opts    PackOptions
		wantErr error
	}{
		{
			name:    "nil writer",
			inputs:  []Input{memInput("a", nil)},
			wantErr: ErrNilWriter,
		},
		{
			name:    "open failure",
			out:     io.Discard,
			inputs:  []Input{memInput("a", []byte("ok")), failingInput("b", errMissing)},
			wantErr: ErrIOFailure,
		},
		{
			name:    "open failure with prefetch",
			out:     io.Discard,
			inputs:  []Input{memInput("a", []byte("ok")), failingInput("b", errMissing), memInput("c", nil)},
			opts:    PackOptions{MaxWorkers: 3},
			wantErr: ErrIOFailure,
		},
		{
			name:    "nil open",
			out:     io.Discard,
			inputs:  []Input{{Name: "a"}},
			wantErr: ErrIOFailure,
		},
		{
			name:    "sink failure",
			out:     &errWriter{limit: 10},
			inputs:  []Input{memInput("a", bytes.Repeat([]byte("z"), 64))},
			opts:    PackOptions{WriterBufferSize: minWriteBuffer},
			wantErr: ErrIOFailure,
		},
		{
			name:    "empty name",
			out:     io.Discard,
			inputs:  []Input{memInput("", []byte("x"))},
			wantErr: ErrInvalidEntryName,
		},
		{
			name:    "name too long",
			out:     io.Discard,
			inputs:  []Input{memInput(strings.Repeat("n", maxNameLen+1), nil)},
			wantErr: ErrSizeOverflow,
		},
		{
			name:    "too many entries",
			out:     io.Discard,
			inputs:  make([]Input, maxEntryCount+1),
			wantErr: ErrSizeOverflow,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := CreateArchive(context.Background(), tc.out, tc.inputs, tc.opts)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestCreateArchive_OpenErrorKeepsCause(t *testing.T) {
	t.Parallel()

	_, err := CreateArchive(context.Background(), io.Discard, []Input{failingInput("missing.txt", os.ErrNotExist)}, PackOptions{})
	if !errors.Is(err, ErrIOFailure) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrIOFailure wrapping os.ErrNotExist, got %v", err)
	}
	if !strings.Contains(err.Error(), "missing.txt") {
		t.Fatalf("error does not name the input: %v", err)
	}
}

func TestCreateArchive_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := CreateArchive(ctx, io.Discard, []Input{memInput("a", nil)}, PackOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCreateArchiveFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pathA := writeTestFile(t, dir, "a.txt", []byte("hi"))
	pathB := writeTestFile(t, dir, "sub/b.txt", []byte("second file"))
	outPath := filepath.Join(dir, DefaultOutputName)

	inputs := FileInputs([]string{pathA, pathB})
	if inputs[0].Name != pathA || inputs[1].SizeHint != int64(len("second file")) {
		t.Fatalf("FileInputs=%+v", inputs)
	}
	inputs[0].Name = "a.txt"
	inputs[1].Name = "sub/b.txt"

	res, err := CreateArchiveFile(context.Background(), outPath, inputs, PackOptions{Now: fixedClock})
	if err != nil {
		t.Fatalf("CreateArchiveFile: %v", err)
	}

	fi, err := os.Stat(outPath)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if fi.Size() != res.TotalSize {
		t.Fatalf("file size=%d, result TotalSize=%d", fi.Size(), res.TotalSize)
	}

	zr, err := zip.OpenReader(outPath)
	if err != nil {
		t.Fatalf("zip.OpenReader: %v", err)
	}
	defer func() { _ = zr.Close() }()

	if len(zr.File) != 2 || zr.File[0].Name != "a.txt" || zr.File[1].Name != "sub/b.txt" {
		t.Fatalf("unexpected entries: %d", len(zr.File))
	}
}

func TestCreateArchiveFile_MissingInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.zip")

	_, err := CreateArchiveFile(context.Background(), outPath, FileInputs([]string{filepath.Join(dir, "nope.txt")}), PackOptions{})
	if !errors.Is(err, ErrIOFailure) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrIOFailure wrapping os.ErrNotExist, got %v", err)
	}
}

func TestReadPayload(t *testing.T) {
	t.Parallel()

	t.Run("exact limit", func(t *testing.T) {
		t.Parallel()

		p, err := readPayload(bytes.NewReader([]byte("abc")), 3, 3)
		if err != nil {
			t.Fatalf("readPayload: %v", err)
		}
		if string(p.data) != "abc" || p.checksum != Checksum([]byte("abc")) {
			t.Fatalf("payload=%q crc=0x%08x", p.data, p.checksum)
		}
	})

	t.Run("one byte over", func(t *testing.T) {
		t.Parallel()

		src := &countingZeroReader{}
		_, err := readPayload(src, 1000, 0)
		if !errors.Is(err, ErrSizeOverflow) {
			t.Fatalf("expected ErrSizeOverflow, got %v", err)
		}
		if src.n != 1001 {
			t.Fatalf("consumed %d bytes, want 1001", src.n)
		}
	})
}

func TestCreateArchive_SizeHintOverflowSkipsOpen(t *testing.T) {
	t.Parallel()

	for _, workers := range []int{1, 3} {
		workers := workers
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			t.Parallel()

			var opened atomic.Bool
			big := Input{
				Name:     "big.bin",
				SizeHint: maxFieldValue + 1,
				Open: func() (io.ReadCloser, error) {
					opened.Store(true)
					return io.NopCloser(&countingZeroReader{}), nil
				},
			}

			inputs := []Input{memInput("a.txt", []byte("a")), big, memInput("c.txt", []byte("c"))}
			_, err := CreateArchive(context.Background(), io.Discard, inputs, PackOptions{Now: fixedClock, MaxWorkers: workers})
			if !errors.Is(err, ErrSizeOverflow) {
				t.Fatalf("expected ErrSizeOverflow, got %v", err)
			}
			if opened.Load() {
				t.Fatal("oversized input must not be opened")
			}
		})
	}
}

func TestLoadInputRespectsBudget(t *testing.T) {
	t.Parallel()

	in := memInput("ten.bin", bytes.Repeat([]byte{1}, 10))

	if p := loadInput(in, 10); p.err != nil || len(p.data) != 10 {
		t.Fatalf("loadInput(limit 10)=%d bytes, %v", len(p.data), p.err)
	}

	if p := loadInput(in, 9); !errors.Is(p.err, ErrSizeOverflow) {
		t.Fatalf("hinted: expected ErrSizeOverflow, got %v", p.err)
	}

	in.SizeHint = 0
	if p := loadInput(in, 9); !errors.Is(p.err, ErrSizeOverflow) {
		t.Fatalf("unhinted: expected ErrSizeOverflow, got %v", p.err)
	}
}

func TestPayloadBudget(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		offset int64
		entry  string
		want   int64
	}{
		{name: "start", offset: 0, entry: "a.txt", want: maxFieldValue - localHeaderLen - 5},
		{name: "late", offset: maxFieldValue - 100, entry: "ab", want: 100 - localHeaderLen - 2},
		{name: "header does not fit", offset: maxFieldValue - 10, entry: "a", want: 0},
		{name: "past range", offset: maxFieldValue + 1, entry: "a", want: 0},
	}

	for _, tc := range testCases {
		if got := payloadBudget(tc.offset, tc.entry); got != tc.want {
			t.Fatalf("%s: payloadBudget=%d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestCreateArchive_RejectsUnknownTimeMode(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	_, err := CreateArchive(context.Background(), &buf, []Input{memInput("a", nil)}, PackOptions{TimeMode: "per_second"})
	if !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("expected ErrInvalidOptions, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("wrote %d bytes before rejecting options", buf.Len())
	}
}

// countingZeroReader yields zero bytes forever and counts them.
type countingZeroReader struct {
	n int64
}

func (r *countingZeroReader) Read(p []byte) (int, error) {
	clear(p)
	r.n += int64(len(p))
	return len(p), nil
}

func TestCheckedDataSize(t *testing.T) {
	t.Parallel()

	if got, err := checkedDataSize("a", maxFieldValue); err != nil || got != 0xffffffff {
		t.Fatalf("checkedDataSize(max)=%d, %v", got, err)
	}

	if _, err := checkedDataSize("a", maxFieldValue+1); !errors.Is(err, ErrSizeOverflow) {
		t.Fatalf("expected ErrSizeOverflow, got %v", err)
	}

	if _, err := checkedDataSize("a", -1); !errors.Is(err, ErrSizeOverflow) {
		t.Fatalf("expected ErrSizeOverflow, got %v", err)
	}
}

func TestWriteEntryRejectsOffsetOverflow(t *testing.T) {
	t.Parallel()

	opts := PackOptions{}
	opts.applyDefaults()

	cw := &countingWriter{w: io.Discard, pos: maxFieldValue + 1}
	_, err := writeEntry(cw, memInput("late", nil), inputPayload{}, opts)
	if !errors.Is(err, ErrSizeOverflow) {
		t.Fatalf("expected ErrSizeOverflow, got %v", err)
	}
	if cw.pos != maxFieldValue+1 {
		t.Fatal("rejected entry wrote bytes")
	}
}

// steppingClock returns a clock advancing by step on every call.
func steppingClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()

		now := current
		current = current.Add(step)
		return now
	}
}
