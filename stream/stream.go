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

// Package stream implements the parallel block framing: splitting an
// input buffer into fixed-size chunks, fanning their encode/decode out
// across a worker pool, and reassembling the results in original order.
//
// The fan-out shape follows the task/WaitGroup/results-slice pattern
// kanzi-go's CompressedOutputStream.processBlock uses for its own block
// parallelism, rewritten on top of errgroup so the first failing block
// cancels its siblings instead of letting every goroutine run to
// completion before the caller notices.
package stream

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kvarnfors/bstseal-go"
	"github.com/kvarnfors/bstseal-go/block"
	"github.com/kvarnfors/bstseal-go/varint"
)

var timeZero time.Time

// BlockSize is the chunk size input is partitioned into before encoding.
const BlockSize = 4096

// Options configures Encode and Decode.
type Options struct {
	// Jobs is the maximum number of blocks processed concurrently. Zero
	// means runtime.GOMAXPROCS(0).
	Jobs int
	// Listeners receive block-level progress events.
	Listeners []bstseal.Listener
}

// Option mutates an Options value; constructed via the With* functions
// below rather than building an Options literal, mirroring the typed
// functional-option idiom used throughout this module's public API.
type Option func(*Options)

// WithJobs overrides the worker count.
func WithJobs(n int) Option {
	return func(o *Options) { o.Jobs = n }
}

// WithListener registers a progress listener.
func WithListener(l bstseal.Listener) Option {
	return func(o *Options) { o.Listeners = append(o.Listeners, l) }
}

func resolve(opts []Option) Options {
	var o Options

	for _, opt := range opts {
		opt(&o)
	}

	if o.Jobs <= 0 {
		o.Jobs = runtime.GOMAXPROCS(0)
	}

	return o
}

// Encode partitions input into BlockSize chunks, encodes each with the
// block codec in parallel, and concatenates the results with varint
// length prefixes (spec §4.5). An empty input encodes to an empty
// output.
func Encode(input []byte, opts ...Option) ([]byte, error) {
	if len(input) == 0 {
		return nil, nil
	}

	o := resolve(opts)
	chunks := partition(input, BlockSize)
	results := make([][]byte, len(chunks))

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(o.Jobs)

	for i, chunk := range chunks {
		i, chunk := i, chunk

		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			encoded, err := block.Encode(chunk)
			if err != nil {
				return err
			}

			results[i] = encoded
			bstseal.Notify(o.Listeners, bstseal.NewEvent(bstseal.EvtBlockEncoded, i, int64(len(encoded)), timeZero))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0

	for _, r := range results {
		total += varint.Size(uint64(len(r))) + len(r)
	}

	out := make([]byte, 0, total)

	for _, r := range results {
		out = varint.Write(out, uint64(len(r)))
		out = append(out, r...)
	}

	return out, nil
}

// Decode reverses Encode: it scans the varint-framed block records to
// find their boundaries, decodes them in parallel, and concatenates the
// results in original order (spec §4.5 decode steps 1-4).
func Decode(encoded []byte, opts ...Option) ([]byte, error) {
	if len(encoded) == 0 {
		return nil, nil
	}

	o := resolve(opts)

	type span struct{ start, end int }

	var spans []span
	pos := 0

	for pos < len(encoded) {
		length, n, err := varint.Read(encoded[pos:])
		if err != nil {
			return nil, err
		}

		start := pos + n
		end := start + int(length)

		if end > len(encoded) {
			return nil, bstseal.NewError(bstseal.KindTruncated, "stream: block record runs past end of input", nil)
		}

		spans = append(spans, span{start, end})
		pos = end
	}

	results := make([][]byte, len(spans))

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(o.Jobs)

	for i, sp := range spans {
		i, sp := i, sp

		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			decoded, err := block.Decode(encoded[sp.start:sp.end])
			if err != nil {
				return err
			}

			results[i] = decoded
			bstseal.Notify(o.Listeners, bstseal.NewEvent(bstseal.EvtBlockDecoded, i, int64(len(decoded)), timeZero))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0

	for _, r := range results {
		total += len(r)
	}

	out := make([]byte, 0, total)

	for _, r := range results {
		out = append(out, r...)
	}

	return out, nil
}

func partition(input []byte, size int) [][]byte {
	n := (len(input) + size - 1) / size
	chunks := make([][]byte, 0, n)

	for i := 0; i < len(input); i += size {
		end := i + size

		if end > len(input) {
			end = len(input)
		}

		chunks = append(chunks, input[i:end])
	}

	return chunks
}
