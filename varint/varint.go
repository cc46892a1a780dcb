/*
Copyright 2025 The bstseal-go Authors
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
you may obtain a copy of the License at

                http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package varint implements unsigned LEB128 varint encoding, used for every
// length prefix in the bstseal wire format.
package varint

import "github.com/kvarnfors/bstseal-go"

// maxBytes is the most bytes a 64-bit value can ever need (ceil(64/7)).
const maxBytes = 10

// Write appends the LEB128 encoding of v to dst and returns the result.
// Each byte carries 7 value bits LSB-first; the continuation bit 0x80 is
// set on every byte except the last.
func Write(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

// Size returns the number of bytes Write(nil, v) would produce.
func Size(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// Read decodes a LEB128 varint from the front of src.
// Returns the decoded value and the number of bytes consumed.
// Fails with bstseal.ErrTruncated on an empty input and
// bstseal.ErrInvalidVarint when the varint runs past 10 bytes or the input
// ends mid-value.
func Read(src []byte) (uint64, int, error) {
	if len(src) == 0 {
		return 0, 0, bstseal.NewError(bstseal.KindTruncated, "varint: empty input", nil)
	}

	var value uint64
	var shift uint

	for i := 0; i < len(src); i++ {
		if i >= maxBytes {
			return 0, 0, bstseal.NewError(bstseal.KindInvalidVarint,
				"varint: longer than 10 bytes", nil)
		}

		b := src[i]
		value |= uint64(b&0x7F) << shift

		if b&0x80 == 0 {
			return value, i + 1, nil
		}

		shift += 7
	}

	return 0, 0, bstseal.NewError(bstseal.KindInvalidVarint, "varint: input ends mid-value", nil)
}
