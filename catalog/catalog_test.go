// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package catalog

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/go-lpc/decom/frames"
	"github.com/go-lpc/decom/words"
)

const catalogYAML = `word-size: 8
measurands:
  - name: temp
    def: "[1+2];2c;EUC[0.5]"
    doc: board temperature
  - name: status
    def: "[3:1-2]"
    sampling:
      - {value: 1, mod: 2}
  - name: raw
    def: "[4]"
`

func TestLoad(t *testing.T) {
	cat, err := Load(strings.NewReader(catalogYAML))
	if err != nil {
		t.Fatalf("could not load catalog: %+v", err)
	}

	want := Catalog{
		WordSize: 8,
		Measurands: []Entry{
			{Name: "temp", Def: "[1+2];2c;EUC[0.5]", Doc: "board temperature"},
			{Name: "status", Def: "[3:1-2]", Sampling: []Selector{{Value: 1, Mod: 2}}},
			{Name: "raw", Def: "[4]"},
		},
	}
	if !reflect.DeepEqual(cat, want) {
		t.Fatalf("invalid catalog:\ngot= %+v\nwant=%+v", cat, want)
	}

	buf := new(bytes.Buffer)
	err = cat.Write(buf)
	if err != nil {
		t.Fatalf("could not write catalog: %+v", err)
	}
	back, err := Load(buf)
	if err != nil {
		t.Fatalf("could not re-load catalog: %+v", err)
	}
	if !reflect.DeepEqual(back, want) {
		t.Fatalf("round-trip mismatch:\ngot= %+v\nwant=%+v", back, want)
	}
}

func TestOpen(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "catalog.yaml")
	err := os.WriteFile(fname, []byte(catalogYAML), 0644)
	if err != nil {
		t.Fatalf("could not create catalog file: %+v", err)
	}
	cat, err := Open(fname)
	if err != nil {
		t.Fatalf("could not open catalog: %+v", err)
	}
	if got, want := len(cat.Measurands), 3; got != want {
		t.Fatalf("invalid number of entries: got=%d, want=%d", got, want)
	}

	_, err = Open(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected an error")
	}
}

func TestLoadErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		raw  string
	}{
		{"unknown-field", "measurands:\n  - name: a\n    def: \"[1]\"\n    unit: V\n"},
		{"word-size", "word-size: 65\nmeasurands: []\n"},
		{"not-yaml", "measurands: [\n"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tc.raw))
			if err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}

func TestCompile(t *testing.T) {
	cat, err := Load(strings.NewReader(catalogYAML))
	if err != nil {
		t.Fatalf("could not load catalog: %+v", err)
	}
	set, err := cat.Compile(nil)
	if err != nil {
		t.Fatalf("could not compile catalog: %+v", err)
	}
	if got, want := set.Names(), []string{"raw", "status", "temp"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid names: got=%q, want=%q", got, want)
	}

	status, ok := set.Get("status")
	if !ok {
		t.Fatalf("could not find status measurand")
	}
	if got, want := status.Sampling.Selectors, []frames.Selector{{Value: 1, Mod: 2}}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid sampling: got=%v, want=%v", got, want)
	}

	data, err := words.FromRows([][]uint64{
		{0xff, 0xfe, 7, 4},
		{0x00, 0x02, 1, 5},
	}, 8)
	if err != nil {
		t.Fatalf("could not create words: %+v", err)
	}
	batch, err := frames.NewIndexedBatch([]uint64{0, 1}, frames.Batch{Data: data})
	if err != nil {
		t.Fatalf("could not create batch: %+v", err)
	}
	outs, err := set.BuildIndexed(context.Background(), batch)
	if err != nil {
		t.Fatalf("could not build measurands: %+v", err)
	}

	for _, tc := range []struct {
		name string
		want []float64
	}{
		{"temp", []float64{-1, 1}}, // 0xfffe=-2 and 0x0002=2, halved
		{"status", []float64{1}},   // frame 1 only
		{"raw", []float64{4, 5}},
	} {
		out := outs[tc.name]
		r, _ := out.Dims()
		if r != len(tc.want) {
			t.Fatalf("%s: invalid number of frames: got=%d, want=%d", tc.name, r, len(tc.want))
		}
		for i, want := range tc.want {
			if got := out.At(i, 0); got != want {
				t.Fatalf("%s: frame %d: got=%v, want=%v", tc.name, i, got, want)
			}
		}
	}
}

func TestCompileErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		cat  Catalog
	}{
		{
			name: "duplicate",
			cat: Catalog{Measurands: []Entry{
				{Name: "a", Def: "[1]"},
				{Name: "a", Def: "[2]"},
			}},
		},
		{
			name: "unnamed",
			cat:  Catalog{Measurands: []Entry{{Def: "[1]"}}},
		},
		{
			name: "invalid-def",
			cat:  Catalog{Measurands: []Entry{{Name: "a", Def: "[1"}}},
		},
		{
			name: "selector",
			cat: Catalog{Measurands: []Entry{
				{Name: "a", Def: "[1]", Sampling: []Selector{{Value: 4, Mod: 4}}},
			}},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.cat.Compile(nil)
			if err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}
