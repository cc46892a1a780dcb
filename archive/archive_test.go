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

package archive

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kvarnfors/bstseal-go"
)

func writeTempFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	return path
}

func TestPackUnpackRoundTrip(t *testing.T) {
	dir := t.TempDir()

	a := writeTempFile(t, dir, "a.txt", bytes.Repeat([]byte("alpha "), 200))
	b := writeTempFile(t, dir, "b.txt", []byte("beta"))

	packed, err := Pack([]string{a, b})
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}

	if !bytes.Equal(packed[:8], Magic[:]) {
		t.Fatalf("archive missing magic header")
	}

	outDir := t.TempDir()

	if err := Unpack(packed, outDir); err != nil {
		t.Fatalf("Unpack failed: %v", err)
	}

	entries, err := ReadIndex(packed)
	if err != nil {
		t.Fatalf("ReadIndex failed: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	for _, name := range []string{"a.txt", "b.txt"} {
		orig, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read original %s: %v", name, err)
		}

		got, err := os.ReadFile(filepath.Join(outDir, filepath.Base(name)))
		if err != nil {
			t.Fatalf("read extracted %s: %v", name, err)
		}

		if !bytes.Equal(orig, got) {
			t.Fatalf("content mismatch for %s", name)
		}
	}
}

func TestCatSingleMember(t *testing.T) {
	dir := t.TempDir()

	writeTempFile(t, dir, "only.txt", []byte("just one file"))
	full := filepath.Join(dir, "only.txt")

	packed, err := Pack([]string{full})
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}

	entries, err := ReadIndex(packed)
	if err != nil {
		t.Fatalf("ReadIndex failed: %v", err)
	}

	e, ok := Find(entries, "only.txt")
	if !ok {
		t.Fatalf("entry only.txt not found among %v", entries)
	}

	data, err := Extract(packed, e)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if string(data) != "just one file" {
		t.Fatalf("Extract content = %q", data)
	}
}

func TestReadIndexRejectsBadMagic(t *testing.T) {
	_, err := ReadIndex(bytes.Repeat([]byte{0}, 20))

	if !errors.Is(err, bstseal.ErrInvalidBlockType) {
		t.Fatalf("ReadIndex error = %v, want ErrInvalidBlockType", err)
	}
}

func TestPackRejectsEmptyInput(t *testing.T) {
	_, err := Pack(nil)

	if !errors.Is(err, bstseal.ErrTruncated) {
		t.Fatalf("Pack(nil) error = %v, want ErrTruncated", err)
	}
}

func TestExpandInputsDeduplicatesAndSorts(t *testing.T) {
	dir := t.TempDir()

	writeTempFile(t, dir, "b.txt", []byte("b"))
	writeTempFile(t, dir, "a.txt", []byte("a"))

	files, err := ExpandInputs([]string{
		filepath.Join(dir, "b.txt"),
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "b.txt"),
	})
	if err != nil {
		t.Fatalf("ExpandInputs failed: %v", err)
	}

	if len(files) != 2 {
		t.Fatalf("expected 2 deduplicated files, got %d", len(files))
	}

	if filepath.Base(files[0]) != "a.txt" || filepath.Base(files[1]) != "b.txt" {
		t.Fatalf("expected sorted order, got %v", files)
	}
}

func TestExpandInputsWalksDirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")

	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	writeTempFile(t, dir, "top.txt", []byte("top"))
	writeTempFile(t, sub, "nested.txt", []byte("nested"))

	files, err := ExpandInputs([]string{dir})
	if err != nil {
		t.Fatalf("ExpandInputs failed: %v", err)
	}

	if len(files) != 2 {
		t.Fatalf("expected 2 files from directory walk, got %d: %v", len(files), files)
	}
}
