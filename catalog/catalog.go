// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package catalog reads and writes catalogs of measurand definitions.
//
// A catalog is a YAML document:
//
//	word-size: 8
//	measurands:
//	  - name: temp
//	    def:  "[12+13];2c;EUC[0.125]"
//	    doc:  board temperature, in degrees
//	  - name: status
//	    def:  "[3:1-4]"
//	    sampling:
//	      - {value: 1, mod: 4}
package catalog // import "github.com/go-lpc/decom/catalog"

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-lpc/decom/frames"
	"github.com/go-lpc/decom/measurand"
	"github.com/go-lpc/decom/words"
	"gopkg.in/yaml.v3"
)

// Catalog is a list of measurand definitions.
type Catalog struct {
	WordSize   int     `yaml:"word-size,omitempty"` // expected word size, 0 for any
	Measurands []Entry `yaml:"measurands"`
}

// Entry is a named measurand definition.
type Entry struct {
	Name     string     `yaml:"name"`
	Def      string     `yaml:"def"`
	Doc      string     `yaml:"doc,omitempty"`
	Sampling []Selector `yaml:"sampling,omitempty"`
}

// Selector selects frames by their minor frame index.
type Selector struct {
	Value uint64 `yaml:"value"`
	Mod   uint64 `yaml:"mod,omitempty"`
}

// Open reads the named catalog file.
func Open(fname string) (Catalog, error) {
	f, err := os.Open(fname)
	if err != nil {
		return Catalog{}, fmt.Errorf("catalog: could not open catalog file: %w", err)
	}
	defer f.Close()

	cat, err := Load(f)
	if err != nil {
		return Catalog{}, fmt.Errorf("catalog: could not load %q: %w", fname, err)
	}
	return cat, nil
}

// Load reads a catalog from r.
// Unknown fields are errors.
func Load(r io.Reader) (Catalog, error) {
	var cat Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	err := dec.Decode(&cat)
	if err != nil {
		return Catalog{}, fmt.Errorf("catalog: could not decode catalog: %w", err)
	}
	if cat.WordSize != 0 {
		_, err = words.Container(cat.WordSize)
		if err != nil {
			return Catalog{}, fmt.Errorf("catalog: invalid catalog: %w", err)
		}
	}
	return cat, nil
}

// Write writes the catalog to w.
func (cat Catalog) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	err := enc.Encode(cat)
	if err != nil {
		return fmt.Errorf("catalog: could not encode catalog: %w", err)
	}
	err = enc.Close()
	if err != nil {
		return fmt.Errorf("catalog: could not flush catalog: %w", err)
	}
	return nil
}

// Compile parses every entry of the catalog into a set of measurands.
// msg is handed to the set and may be nil.
func (cat Catalog) Compile(msg *log.Logger) (*measurand.Set, error) {
	set := measurand.NewSet(msg)
	for i, e := range cat.Measurands {
		m, err := e.Measurand()
		if err != nil {
			return nil, fmt.Errorf("catalog: entry %d: %w", i, err)
		}
		err = set.Add(m)
		if err != nil {
			return nil, fmt.Errorf("catalog: entry %d: %w", i, err)
		}
	}
	return set, nil
}

// Measurand parses the entry definition.
func (e Entry) Measurand() (*measurand.Measurand, error) {
	if e.Name == "" {
		return nil, fmt.Errorf("catalog: measurand %q has no name", e.Def)
	}
	m, err := measurand.Parse(e.Def)
	if err != nil {
		return nil, fmt.Errorf("catalog: could not parse measurand %q: %w", e.Name, err)
	}
	m.Name = e.Name
	for _, sel := range e.Sampling {
		if sel.Mod != 0 && sel.Value >= sel.Mod {
			return nil, fmt.Errorf(
				"catalog: measurand %q: selector value %d never matches modulo %d",
				e.Name, sel.Value, sel.Mod,
			)
		}
		m.Sampling.Selectors = append(m.Sampling.Selectors, frames.Selector{
			Value: sel.Value,
			Mod:   sel.Mod,
		})
	}
	return m, nil
}
