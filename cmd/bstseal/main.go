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

// Command bstseal is the command-line front end for the block compressor:
// plain encode/decode of a single file, an fsck integrity check, and a
// small archive tool (pack/unpack/list/cat) over the BSTSEAL container
// format, plus a throughput micro-benchmark.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/flate"

	"github.com/kvarnfors/bstseal-go"
	"github.com/kvarnfors/bstseal-go/archive"
	"github.com/kvarnfors/bstseal-go/integrity"
	"github.com/kvarnfors/bstseal-go/stream"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error

	switch os.Args[1] {
	case "encode":
		err = runEncode(os.Args[2:])
	case "decode":
		err = runDecode(os.Args[2:])
	case "fsck":
		err = runFsck(os.Args[2:])
	case "pack":
		err = runPack(os.Args[2:])
	case "unpack":
		err = runUnpack(os.Args[2:])
	case "list":
		err = runList(os.Args[2:])
	case "cat":
		err = runCat(os.Args[2:])
	case "bench":
		err = runBench(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "bstseal:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: bstseal <encode|decode|fsck|pack|unpack|list|cat|bench> [flags]")
}

type progressPrinter struct{ verbose bool }

func (p progressPrinter) ProcessEvent(evt *bstseal.Event) {
	if p.verbose {
		fmt.Fprintln(os.Stderr, evt.String())
	}
}

func runEncode(args []string) error {
	fs := flag.NewFlagSet("encode", flag.ExitOnError)
	input := fs.String("input", "", "input file")
	output := fs.String("output", "", "output file")
	jobs := fs.Int("jobs", 0, "worker count (0 = GOMAXPROCS)")
	verbose := fs.Bool("v", false, "print block-level progress")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *input == "" || *output == "" {
		return fmt.Errorf("encode requires -input and -output")
	}

	data, err := os.ReadFile(*input)
	if err != nil {
		return err
	}

	start := time.Now()

	opts := []stream.Option{stream.WithListener(progressPrinter{*verbose})}

	if *jobs > 0 {
		opts = append(opts, stream.WithJobs(*jobs))
	}

	compressed, err := stream.Encode(data, opts...)
	if err != nil {
		return err
	}

	withFooter := integrity.AddFooter(compressed)
	elapsed := time.Since(start)

	if err := os.WriteFile(*output, withFooter, 0o644); err != nil {
		return err
	}

	fmt.Printf("original size: %d bytes\n", len(data))
	fmt.Printf("compressed size: %d bytes\n", len(withFooter))
	fmt.Printf("time: %s\n", elapsed)
	return nil
}

func runDecode(args []string) error {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	input := fs.String("input", "", "input file")
	output := fs.String("output", "", "output file")
	jobs := fs.Int("jobs", 0, "worker count (0 = GOMAXPROCS)")
	verbose := fs.Bool("v", false, "print block-level progress")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *input == "" || *output == "" {
		return fmt.Errorf("decode requires -input and -output")
	}

	data, err := os.ReadFile(*input)
	if err != nil {
		return err
	}

	payload, err := integrity.VerifyFooter(data)
	if err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}

	start := time.Now()

	opts := []stream.Option{stream.WithListener(progressPrinter{*verbose})}

	if *jobs > 0 {
		opts = append(opts, stream.WithJobs(*jobs))
	}

	decoded, err := stream.Decode(payload, opts...)
	if err != nil {
		return err
	}

	elapsed := time.Since(start)

	if err := os.WriteFile(*output, decoded, 0o644); err != nil {
		return err
	}

	fmt.Printf("compressed size: %d bytes\n", len(data))
	fmt.Printf("original size: %d bytes\n", len(decoded))
	fmt.Printf("time: %s\n", elapsed)
	return nil
}

func runFsck(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("fsck requires exactly one file argument")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	if _, err := integrity.VerifyFooter(data); err != nil {
		fmt.Printf("%s: FAILED - %v\n", args[0], err)
		os.Exit(1)
	}

	fmt.Printf("%s: OK\n", args[0])
	return nil
}

func runPack(args []string) error {
	fs := flag.NewFlagSet("pack", flag.ExitOnError)
	output := fs.String("output", "", "output archive")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *output == "" || fs.NArg() == 0 {
		return fmt.Errorf("pack requires -output and at least one input path")
	}

	files, err := archive.ExpandInputs(fs.Args())
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return fmt.Errorf("no input files matched")
	}

	packed, err := archive.Pack(files)
	if err != nil {
		return err
	}

	return os.WriteFile(*output, packed, 0o644)
}

func runUnpack(args []string) error {
	fs := flag.NewFlagSet("unpack", flag.ExitOnError)
	outDir := fs.String("out-dir", ".", "output directory")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() != 1 {
		return fmt.Errorf("unpack requires exactly one archive argument")
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}

	return archive.Unpack(data, *outDir)
}

func runList(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("list requires exactly one archive argument")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	entries, err := archive.ReadIndex(data)
	if err != nil {
		return err
	}

	fmt.Printf("%-10s %-10s %s\n", "Offset", "Size", "Path")

	for _, e := range entries {
		fmt.Printf("%-10d %-10d %s\n", e.Offset, e.Size, e.Path)
	}

	return nil
}

func runCat(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("cat requires an archive and a path inside it")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	entries, err := archive.ReadIndex(data)
	if err != nil {
		return err
	}

	e, ok := archive.Find(entries, args[1])
	if !ok {
		return fmt.Errorf("path not found in archive: %s", args[1])
	}

	decoded, err := archive.Extract(data, e)
	if err != nil {
		return err
	}

	_, err = os.Stdout.Write(decoded)
	return err
}

// runBench micro-benchmarks this module's stream codec against a sample
// buffer (or file) and, for a reference point, against DEFLATE — purely
// diagnostic, never part of the encode/decode path.
func runBench(args []string) error {
	fs := flag.NewFlagSet("bench", flag.ExitOnError)
	file := fs.String("file", "", "optional sample file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	var data []byte
	var err error

	if *file != "" {
		data, err = os.ReadFile(*file)
		if err != nil {
			return err
		}
	} else {
		data = make([]byte, 32*1024)
	}

	t0 := time.Now()
	compressed, err := stream.Encode(data)
	if err != nil {
		return err
	}
	encodeElapsed := time.Since(t0)

	t1 := time.Now()
	if _, err := stream.Decode(compressed); err != nil {
		return err
	}
	decodeElapsed := time.Since(t1)

	fmt.Printf("bstseal encode: %s (%.1f MB/s), ratio %.3f\n",
		encodeElapsed, throughputMBs(len(data), encodeElapsed), float64(len(compressed))/float64(len(data)+1))
	fmt.Printf("bstseal decode: %s (%.1f MB/s)\n", decodeElapsed, throughputMBs(len(data), decodeElapsed))

	t2 := time.Now()
	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return err
	}

	if _, err := fw.Write(data); err != nil {
		return err
	}

	if err := fw.Close(); err != nil {
		return err
	}

	deflateElapsed := time.Since(t2)

	fmt.Printf("deflate encode: %s (%.1f MB/s), ratio %.3f\n",
		deflateElapsed, throughputMBs(len(data), deflateElapsed), float64(buf.Len())/float64(len(data)+1))

	t3 := time.Now()
	fr := flate.NewReader(bytes.NewReader(buf.Bytes()))
	defer fr.Close()

	if _, err := io.Copy(io.Discard, fr); err != nil {
		return err
	}

	fmt.Printf("deflate decode: %s (%.1f MB/s)\n", time.Since(t3), throughputMBs(len(data), time.Since(t3)))
	return nil
}

func throughputMBs(n int, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}

	return float64(n) / 1e6 / d.Seconds()
}
