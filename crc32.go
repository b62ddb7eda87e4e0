// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/storezip

package storezip

import "hash"

// crcPolynomial is the reversed IEEE 802.3 / zlib CRC-32 polynomial.
const crcPolynomial = 0xEDB88320

// ChecksumSize is the byte length of a CRC-32 value.
const ChecksumSize = 4

// Table is a 256-entry CRC-32 lookup table.
type Table [256]uint32

// crcTable is built once at package init and only read afterwards.
var crcTable = BuildTable()

// BuildTable computes the lookup table for the reversed IEEE polynomial.
func BuildTable() Table {
	var t Table
	for i := range t {
		c := uint32(i)
		for j := 0; j < 8; j++ {
			if c&1 != 0 {
				c = crcPolynomial ^ (c >> 1)
			} else {
				c >>= 1
			}
		}

		t[i] = c
	}

	return t
}

// Checksum returns the CRC-32 (ISO-3309) of data.
func Checksum(data []byte) uint32 {
	return Update(0, data)
}

// Update returns the checksum of the bytes covered by crc followed by p.
// Update(0, p) equals Checksum(p).
func Update(crc uint32, p []byte) uint32 {
	crc = ^crc
	for _, b := range p {
		crc = crcTable[byte(crc)^b] ^ (crc >> 8)
	}

	return ^crc
}

// digest is a streaming hash.Hash32 over Update.
type digest struct {
	crc uint32
}

// NewHash returns a hash.Hash32 computing the same CRC-32 as Checksum.
func NewHash() hash.Hash32 {
	return &digest{}
}

func (d *digest) Size() int { return ChecksumSize }

func (d *digest) BlockSize() int { return 1 }

func (d *digest) Reset() { d.crc = 0 }

func (d *digest) Write(p []byte) (int, error) {
	d.crc = Update(d.crc, p)
	return len(p), nil
}

func (d *digest) Sum32() uint32 { return d.crc }

// Sum appends the big-endian checksum to in.
func (d *digest) Sum(in []byte) []byte {
	s := d.crc
	return append(in, byte(s>>24), byte(s>>16), byte(s>>8), byte(s))
}
