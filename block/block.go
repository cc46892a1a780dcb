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

// Package block implements the per-block dispatch between the raw and
// canonical-Huffman representations: every block is tagged with a single
// type byte so the decoder never has to guess which codec produced it.
package block

import (
	"github.com/kvarnfors/bstseal-go"
	"github.com/kvarnfors/bstseal-go/entropy"
	"github.com/kvarnfors/bstseal-go/varint"
)

// Type identifies the codec a block was encoded with.
type Type byte

const (
	// Raw blocks carry their payload verbatim.
	Raw Type = 0
	// Huffman blocks carry a varint original size followed by a
	// canonical Huffman codebook and bit stream.
	Huffman Type = 1
)

// Encode chooses between Raw and Huffman for input and returns the tagged
// block. Huffman is only kept when it is strictly smaller than the raw
// alternative (spec §4.4: "a strict less-than comparison, so a tie favors
// raw"), which also makes an empty block trivially raw.
func Encode(input []byte) ([]byte, error) {
	if len(input) == 0 {
		return []byte{byte(Raw)}, nil
	}

	huffPayload, err := entropy.Encode(input)
	if err != nil {
		return nil, err
	}

	if len(huffPayload) < len(input) {
		out := make([]byte, 0, 1+varint.Size(uint64(len(input)))+len(huffPayload))
		out = append(out, byte(Huffman))
		out = varint.Write(out, uint64(len(input)))
		out = append(out, huffPayload...)
		return out, nil
	}

	out := make([]byte, 0, 1+len(input))
	out = append(out, byte(Raw))
	out = append(out, input...)
	return out, nil
}

// Decode reverses Encode, dispatching on the leading type byte.
func Decode(input []byte) ([]byte, error) {
	if len(input) == 0 {
		return nil, bstseal.NewError(bstseal.KindTruncated, "block: empty block", nil)
	}

	switch Type(input[0]) {
	case Raw:
		payload := input[1:]
		out := make([]byte, len(payload))
		copy(out, payload)
		return out, nil

	case Huffman:
		size, n, err := varint.Read(input[1:])
		if err != nil {
			return nil, err
		}

		return entropy.Decode(input[1+n:], int(size))

	default:
		return nil, bstseal.NewError(bstseal.KindInvalidBlockType, "block: unknown block type byte", nil)
	}
}
