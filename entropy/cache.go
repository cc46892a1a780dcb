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

package entropy

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-tinylfu"
)

// cacheCapacity bounds the number of fast-decode tables kept alive at once
// (spec §4.7: "bounded to ~32 entries"). TinyLFU's admission policy decides
// which table survives a miss under pressure rather than pure insertion
// order, which is a better fit for archive packing where a handful of
// recurring codebooks (similar files) dominate the traffic.
const cacheCapacity = 32

// fastTable is the process-wide 128KiB lookup (64Ki uint16 entries) used by the Huffman decoder's
// hot path. It is built once per distinct code-length vector and shared by
// reference across every block/goroutine that reuses that vector; entries
// are never mutated after buildFastTable returns, so concurrent readers
// never race with each other.
type fastTable []uint16

// tableCache maps a 256-byte code-length vector to its fast-decode table.
// go-tinylfu is not safe for concurrent use on its own (mirrors the actor
// serialization elliotnunn-BeHierarchic's spinner.Pool builds around the
// same library with a dedicated goroutine); a single mutex gives the same
// guarantee with far less code, and the spec explicitly allows either.
var (
	cacheMu    sync.Mutex
	tableCache = tinylfu.New[[256]byte, fastTable](cacheCapacity, cacheCapacity*10, hashLengthKey)
)

func hashLengthKey(k [256]byte) uint64 {
	return xxhash.Sum64(k[:])
}

func lookupTable(lengths [256]byte) (fastTable, bool) {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	return tableCache.Get(lengths)
}

func storeTable(lengths [256]byte, t fastTable) {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	tableCache.Add(lengths, t)
}
