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

// Package archive implements the BSTSEAL container: a flat index of
// stream-encoded, footer-wrapped file payloads behind a single magic
// header, so a set of files can be packed and addressed individually
// without re-scanning the whole container to find one member.
package archive

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/kvarnfors/bstseal-go"
	"github.com/kvarnfors/bstseal-go/integrity"
	"github.com/kvarnfors/bstseal-go/stream"
)

var timeZero time.Time

// Magic identifies a BSTSEAL archive file.
var Magic = [8]byte{'B', 'S', 'T', 'S', 'E', 'A', 'L', 0}

// Entry describes one archived file: its path inside the archive and the
// byte range of its stream-encoded, footer-wrapped payload within the
// archive file.
type Entry struct {
	Path   string
	Offset uint64
	Size   uint64
}

// Options configures Pack/Unpack/Extract in the same shape as stream.Options.
type Options struct {
	Jobs      int
	Listeners []bstseal.Listener
}

// Option mutates Options.
type Option func(*Options)

// WithJobs overrides the worker count used for each member's stream codec.
func WithJobs(n int) Option {
	return func(o *Options) { o.Jobs = n }
}

// WithListener registers a progress listener.
func WithListener(l bstseal.Listener) Option {
	return func(o *Options) { o.Listeners = append(o.Listeners, l) }
}

func streamOpts(o Options) []stream.Option {
	var opts []stream.Option

	if o.Jobs > 0 {
		opts = append(opts, stream.WithJobs(o.Jobs))
	}

	for _, l := range o.Listeners {
		opts = append(opts, stream.WithListener(l))
	}

	return opts
}

// ExpandInputs resolves a list of command-line arguments (plain paths,
// directories, or doublestar glob patterns) into a sorted, de-duplicated
// list of regular file paths, mirroring kanzi's CreateFileList but backed
// by doublestar for glob support (the original CLI used recursive
// directory walking only).
func ExpandInputs(inputs []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, in := range inputs {
		fi, err := os.Stat(in)

		if err == nil && fi.Mode().IsRegular() {
			add(in)
			continue
		}

		if err == nil && fi.IsDir() {
			walkErr := filepath.Walk(in, func(path string, d os.FileInfo, err error) error {
				if err != nil {
					return err
				}

				if d.Mode().IsRegular() {
					add(path)
				}

				return nil
			})

			if walkErr != nil {
				return nil, walkErr
			}

			continue
		}

		matches, globErr := doublestar.FilepathGlob(in)
		if globErr != nil {
			return nil, bstseal.NewError(bstseal.KindTruncated, "archive: invalid glob pattern "+in, globErr)
		}

		for _, m := range matches {
			mi, statErr := os.Stat(m)

			if statErr == nil && mi.Mode().IsRegular() {
				add(m)
			}
		}
	}

	sort.Strings(files)
	return files, nil
}

// relativePath turns an absolute or relative filesystem path into the
// slash-separated form stored inside the archive: relative to the working
// directory when the file lives under it, or just its base name otherwise
// (e.g. a file outside cwd reached through a glob or absolute argument),
// so an archive never leaks the packer's directory layout.
func relativePath(path string) string {
	cwd, err := os.Getwd()
	if err == nil {
		if abs, absErr := filepath.Abs(path); absErr == nil {
			if rel, relErr := filepath.Rel(cwd, abs); relErr == nil && !strings.HasPrefix(rel, "..") {
				return filepath.ToSlash(rel)
			}
		}
	}

	return filepath.Base(path)
}

// Pack reads every file named in paths, stream-encodes and footer-wraps
// it independently, and returns the resulting BSTSEAL archive bytes.
func Pack(paths []string, opts ...Option) ([]byte, error) {
	if len(paths) == 0 {
		return nil, bstseal.NewError(bstseal.KindTruncated, "archive: no input files", nil)
	}

	var o Options

	for _, opt := range opts {
		opt(&o)
	}

	payloads := make([]packedFile, len(paths))

	for i, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, bstseal.NewError(bstseal.KindTruncated, "archive: read "+p, err)
		}

		encoded, err := stream.Encode(raw, streamOpts(o)...)
		if err != nil {
			return nil, err
		}

		withFooter := integrity.AddFooter(encoded)
		payloads[i] = packedFile{path: relativePath(p), data: withFooter}

		evt := bstseal.NewEvent(bstseal.EvtFileArchived, 0, int64(len(withFooter)), timeZero)
		evt.Name = payloads[i].path
		bstseal.Notify(o.Listeners, evt)
	}

	headerLen := len(Magic) + 4

	for _, p := range payloads {
		headerLen += 2 + len(p.path) + 8 + 8
	}

	out := make([]byte, 0, headerLen+sumPayloadLen(payloads))
	out = append(out, Magic[:]...)
	out = appendUint32(out, uint32(len(payloads)))

	offset := uint64(headerLen)

	for _, p := range payloads {
		out = appendUint16(out, uint16(len(p.path)))
		out = append(out, p.path...)
		out = appendUint64(out, offset)
		out = appendUint64(out, uint64(len(p.data)))
		offset += uint64(len(p.data))
	}

	for _, p := range payloads {
		out = append(out, p.data...)
	}

	return out, nil
}

// packedFile pairs an archive-relative path with its stream-encoded,
// footer-wrapped bytes while Pack is accumulating the member table.
type packedFile struct {
	path string
	data []byte
}

func sumPayloadLen(payloads []packedFile) int {
	total := 0

	for _, p := range payloads {
		total += len(p.data)
	}

	return total
}

// ReadIndex parses the magic header and entry table at the front of an
// archive without touching any payload bytes.
func ReadIndex(data []byte) ([]Entry, error) {
	if len(data) < len(Magic)+4 {
		return nil, bstseal.NewError(bstseal.KindTruncated, "archive: too small for header", nil)
	}

	if [8]byte(data[:8]) != Magic {
		return nil, bstseal.NewError(bstseal.KindInvalidBlockType, "archive: bad magic", nil)
	}

	count := binary.LittleEndian.Uint32(data[8:12])
	pos := 12

	entries := make([]Entry, 0, count)

	for i := uint32(0); i < count; i++ {
		if pos+2 > len(data) {
			return nil, bstseal.NewError(bstseal.KindTruncated, "archive: truncated entry header", nil)
		}

		pathLen := int(binary.LittleEndian.Uint16(data[pos : pos+2]))
		pos += 2

		if pos+pathLen+16 > len(data) {
			return nil, bstseal.NewError(bstseal.KindTruncated, "archive: truncated entry", nil)
		}

		path := string(data[pos : pos+pathLen])
		pos += pathLen

		offset := binary.LittleEndian.Uint64(data[pos : pos+8])
		pos += 8
		size := binary.LittleEndian.Uint64(data[pos : pos+8])
		pos += 8

		entries = append(entries, Entry{Path: path, Offset: offset, Size: size})
	}

	return entries, nil
}

// Extract decodes one archive member's payload by Entry, verifying its
// integrity footer before running the stream codec.
func Extract(data []byte, e Entry, opts ...Option) ([]byte, error) {
	if e.Offset+e.Size > uint64(len(data)) {
		return nil, bstseal.NewError(bstseal.KindTruncated, "archive: entry range exceeds archive size", nil)
	}

	var o Options

	for _, opt := range opts {
		opt(&o)
	}

	payload, err := integrity.VerifyFooter(data[e.Offset : e.Offset+e.Size])
	if err != nil {
		return nil, err
	}

	decoded, err := stream.Decode(payload, streamOpts(o)...)
	if err != nil {
		return nil, err
	}

	evt := bstseal.NewEvent(bstseal.EvtFileExtracted, 0, int64(len(decoded)), timeZero)
	evt.Name = e.Path
	bstseal.Notify(o.Listeners, evt)
	return decoded, nil
}

// Unpack decodes every member of an archive into outDir, recreating any
// directory structure encoded in the member paths.
func Unpack(data []byte, outDir string, opts ...Option) error {
	entries, err := ReadIndex(data)
	if err != nil {
		return err
	}

	if mkErr := os.MkdirAll(outDir, 0o755); mkErr != nil {
		return bstseal.NewError(bstseal.KindAllocFailure, "archive: create output dir", mkErr)
	}

	for _, e := range entries {
		decoded, decErr := Extract(data, e, opts...)
		if decErr != nil {
			return decErr
		}

		outPath := filepath.Join(outDir, filepath.FromSlash(e.Path))

		if mkErr := os.MkdirAll(filepath.Dir(outPath), 0o755); mkErr != nil {
			return bstseal.NewError(bstseal.KindAllocFailure, "archive: create parent dir", mkErr)
		}

		if writeErr := os.WriteFile(outPath, decoded, 0o644); writeErr != nil {
			return bstseal.NewError(bstseal.KindAllocFailure, "archive: write "+outPath, writeErr)
		}
	}

	return nil
}

// Find returns the Entry whose Path matches name, if any.
func Find(entries []Entry, name string) (Entry, bool) {
	for _, e := range entries {
		if e.Path == name {
			return e, true
		}
	}

	return Entry{}, false
}

func appendUint16(dst []byte, v uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return append(dst, b[:]...)
}

func appendUint32(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

func appendUint64(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}
