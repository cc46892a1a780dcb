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

// Package integrity appends and verifies a BLAKE3 digest footer. It wraps
// payload bytes without caring what codec produced them, so it is used
// identically by a bare encoded stream and by an archive's outer bytes.
package integrity

import (
	"crypto/subtle"

	"lukechampine.com/blake3"

	"github.com/kvarnfors/bstseal-go"
)

// HashSize is the length in bytes of a BLAKE3-256 digest.
const HashSize = 32

// AddFooter returns data followed by its unkeyed BLAKE3-256 digest.
func AddFooter(data []byte) []byte {
	digest := blake3.Sum256(data)

	out := make([]byte, 0, len(data)+HashSize)
	out = append(out, data...)
	out = append(out, digest[:]...)
	return out
}

// VerifyFooter splits the trailing digest off data, recomputes it over the
// remaining payload, and compares in constant time. On success it returns
// the payload with the footer stripped.
func VerifyFooter(data []byte) ([]byte, error) {
	if len(data) < HashSize {
		return nil, bstseal.NewError(bstseal.KindTruncated, "integrity: input smaller than footer", nil)
	}

	split := len(data) - HashSize
	payload, footer := data[:split], data[split:]

	expected := blake3.Sum256(payload)

	if subtle.ConstantTimeCompare(expected[:], footer) != 1 {
		return nil, bstseal.NewError(bstseal.KindIntegrityMismatch, "integrity: digest mismatch", nil)
	}

	return payload, nil
}
