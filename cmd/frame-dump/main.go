// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// frame-dump decodes and displays binary frame files.
//
// Usage: frame-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//	$> frame-dump ./testdata/frames.bin
//	=== batch 0 ===
//	Word size:     12
//	Frames:         2
//	Words:          3
//	  frame=     0 time=2020-10-01T12:00:00Z 001 002 003
//	  frame=     1 time=2020-10-01T12:00:01Z 004 005 fff
//	[...]
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-lpc/decom/frames"
)

func main() {
	log.SetPrefix("frame-dump: ")
	log.SetFlags(0)

	xmain(os.Stdout, os.Args[1:])
}

func xmain(stdout io.Writer, args []string) {
	fset := flag.NewFlagSet("frame-dump", flag.ExitOnError)
	nmax := fset.Int("n", 0, "maximum number of frames to display per batch (0: all)")

	fset.Usage = func() {
		fmt.Printf(`frame-dump decodes and displays binary frame files.

Usage: frame-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> frame-dump ./testdata/frames.bin
 === batch 0 ===
 Word size:     12
 Frames:         2
 Words:          3
   frame=     0 time=2020-10-01T12:00:00Z 001 002 003
   frame=     1 time=2020-10-01T12:00:01Z 004 005 fff
 [...]

`)
		fset.PrintDefaults()
	}

	_ = fset.Parse(args)

	if fset.NArg() == 0 {
		fset.Usage()
		log.Fatalf("missing path to input frame file")
	}

	for _, fname := range fset.Args() {
		err := process(stdout, fname, *nmax)
		if err != nil {
			log.Fatalf("could not dump file %q: %+v", fname, err)
		}
	}
}

func process(w io.Writer, fname string, nmax int) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	f, err := frames.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open %q: %w", fname, err)
	}
	defer f.Close()

loop:
	for i := 0; ; i++ {
		var b frames.Batch
		err := f.Decode(&b)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break loop
			}
			return fmt.Errorf("could not decode batch: %w", err)
		}
		fmt.Fprintf(wbuf, "=== batch %d ===\n", i)
		fmt.Fprintf(wbuf, "Word size: % 6d\n", b.Data.WordSize())
		fmt.Fprintf(wbuf, "Frames:    % 6d\n", b.Len())
		fmt.Fprintf(wbuf, "Words:     % 6d\n", b.Data.Cols())

		var (
			n      = b.Len()
			digits = (b.Data.WordSize() + 3) / 4
		)
		if nmax > 0 && nmax < n {
			n = nmax
		}
		for j := 0; j < n; j++ {
			o := new(strings.Builder)
			fmt.Fprintf(o, "  frame=% 6d", j)
			if b.CTime != nil {
				fmt.Fprintf(o, " ctime=%s", b.CTime[j].UTC().Format(time.RFC3339Nano))
			}
			if b.Time != nil {
				fmt.Fprintf(o, " time=%s", b.Time[j].UTC().Format(time.RFC3339Nano))
			}
			for _, v := range b.Data.Row(j) {
				fmt.Fprintf(o, " %0*x", digits, v)
			}
			fmt.Fprintln(wbuf, o.String())
		}
		if n < b.Len() {
			fmt.Fprintf(wbuf, "  [...]\n")
		}
	}

	return nil
}
