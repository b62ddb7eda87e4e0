// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/storezip

package storezip

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// maxPayloadPrealloc caps buffer preallocation taken from size hints.
const maxPayloadPrealloc = 64 << 20

// inputPayload is a fully read input with its checksum.
type inputPayload struct {
	err      error
	data     []byte
	checksum uint32
}

// inputLoader reads and hashes inputs, optionally ahead of the writer.
// Results are always handed out in input order.
type inputLoader struct {
	ctx     context.Context
	cancel  context.CancelFunc
	inputs  []Input
	results []chan inputPayload
	slots   chan struct{}
	wg      sync.WaitGroup
}

// newInputLoader starts background loading when workers > 1.
func newInputLoader(ctx context.Context, inputs []Input, workers int) *inputLoader {
	ctx, cancel := context.WithCancel(ctx)
	l := &inputLoader{
		ctx:    ctx,
		cancel: cancel,
		inputs: inputs,
	}

	if workers < 2 || len(inputs) < 2 {
		return l
	}

	l.results = make([]chan inputPayload, len(inputs))
	for i := range l.results {
		l.results[i] = make(chan inputPayload, 1)
	}

	l.slots = make(chan struct{}, workers)
	l.wg.Add(1)
	go l.dispatch()

	return l
}

// dispatch starts one load per input while a slot is free.
func (l *inputLoader) dispatch() {
	defer l.wg.Done()

	for i := range l.inputs {
		select {
		case l.slots <- struct{}{}:
		case <-l.ctx.Done():
			return
		}

		l.wg.Add(1)
		go func(idx int) {
			defer l.wg.Done()

			if err := l.ctx.Err(); err != nil {
				l.results[idx] <- inputPayload{err: err}
				return
			}

			l.results[idx] <- loadInput(l.inputs[idx], maxFieldValue)
		}(i)
	}
}

// next returns loaded payload of input idx; calls must go in increasing order.
// limit bounds the payload when loading sequentially; read-ahead loads are
// bounded by the field range and the writer checks the position afterwards.
func (l *inputLoader) next(idx int, limit int64) (inputPayload, error) {
	if l.results == nil {
		p := loadInput(l.inputs[idx], limit)
		return p, p.err
	}

	select {
	case p := <-l.results[idx]:
		return p, p.err
	case <-l.ctx.Done():
		return inputPayload{}, l.ctx.Err()
	}
}

// release frees the slot held by the payload returned from the last next call.
func (l *inputLoader) release() {
	if l.slots == nil {
		return
	}

	<-l.slots
}

// stop cancels pending loads and waits for loader goroutines.
func (l *inputLoader) stop() {
	l.cancel()
	l.wg.Wait()
}

// loadInput opens, reads, and hashes one input of at most limit bytes.
// A size hint above limit fails before the input is opened.
func loadInput(in Input, limit int64) inputPayload {
	if in.SizeHint > limit {
		return inputPayload{err: fmt.Errorf("%w: entry %s is %d bytes, %d bytes fit", ErrSizeOverflow, in.Name, in.SizeHint, limit)}
	}

	rc, err := openInputReader(in)
	if err != nil {
		return inputPayload{err: err}
	}

	p, readErr := readPayload(rc, limit, in.SizeHint)
	closeErr := rc.Close()
	if readErr != nil {
		if errors.Is(readErr, ErrSizeOverflow) {
			return inputPayload{err: fmt.Errorf("%w: entry %s is larger than %d bytes", ErrSizeOverflow, in.Name, limit)}
		}

		return inputPayload{err: fmt.Errorf("%w: read input %s: %w", ErrIOFailure, in.Name, readErr)}
	}
	if closeErr != nil {
		return inputPayload{err: fmt.Errorf("%w: close input %s: %w", ErrIOFailure, in.Name, closeErr)}
	}

	return p
}

// openInputReader opens source stream for one input.
func openInputReader(in Input) (io.ReadCloser, error) {
	if in.Open == nil {
		return nil, fmt.Errorf("%w: input %s: Open is nil", ErrIOFailure, in.Name)
	}

	rc, err := in.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open input %s: %w", ErrIOFailure, in.Name, err)
	}
	if rc == nil {
		return nil, fmt.Errorf("%w: open input %s: %w", ErrIOFailure, in.Name, ErrNilReader)
	}

	return rc, nil
}

// readPayload buffers src and computes its CRC-32 in the same pass.
// At most limit+1 bytes are consumed; one byte past limit is ErrSizeOverflow.
func readPayload(src io.Reader, limit int64, sizeHint int64) (inputPayload, error) {
	var buf bytes.Buffer
	if sizeHint > 0 && sizeHint <= maxPayloadPrealloc {
		buf.Grow(int(sizeHint) + bytes.MinRead)
	}

	h := NewHash()
	n, err := buf.ReadFrom(io.TeeReader(io.LimitReader(src, limit+1), h))
	if err != nil {
		return inputPayload{}, err
	}
	if n > limit {
		return inputPayload{}, ErrSizeOverflow
	}

	return inputPayload{data: buf.Bytes(), checksum: h.Sum32()}, nil
}
