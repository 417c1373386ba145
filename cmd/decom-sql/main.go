// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command decom-sql inspects, validates and exports the measurand
// definitions stored in a decommutation database.
//
// Usage: decom-sql [OPTIONS]
//
// Example:
//
//	$> decom-sql -db decom
//	$> decom-sql -db decom -name temp
//	$> decom-sql -db decom -o catalog.yaml
//	$> decom-sql -db decom -import catalog.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-lpc/decom/catalog"
	"github.com/go-lpc/decom/conddb"
	_ "github.com/go-sql-driver/mysql"
)

func main() {
	log.SetPrefix("decom-sql: ")
	log.SetFlags(0)

	var (
		dbname = flag.String("db", "decom", "name of the decommutation database")
		name   = flag.String("name", "", "measurand to inspect (default: all)")
		oname  = flag.String("o", "", "path to a YAML catalog to export the definitions to")
		iname  = flag.String("import", "", "path to a YAML catalog to import definitions from")
	)

	flag.Parse()

	db, err := conddb.Open(*dbname)
	if err != nil {
		log.Fatalf("could not open decom db: %+v", err)
	}
	defer db.Close()

	switch {
	case *iname != "":
		err = doImport(db, *iname)
	default:
		err = doQuery(db, *name, *oname)
	}
	if err != nil {
		log.Fatalf("could not do query: %+v", err)
	}
}

func doQuery(db *conddb.DB, name, oname string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if name != "" {
		e, err := db.Measurand(ctx, name)
		if err != nil {
			return fmt.Errorf("could not get measurand %q: %w", name, err)
		}
		m, err := e.Measurand()
		if err != nil {
			return fmt.Errorf("invalid measurand %q: %w", name, err)
		}
		log.Printf("name:     %s", m.Name)
		log.Printf("def:      %s", m)
		log.Printf("doc:      %s", e.Doc)
		for _, sel := range m.Sampling.Selectors {
			log.Printf("sampling: %v", sel)
		}
		return nil
	}

	fmts, err := db.Formats(ctx)
	if err != nil {
		return fmt.Errorf("could not retrieve frame formats: %w", err)
	}
	log.Printf("formats: %d", len(fmts))
	for i, f := range fmts {
		log.Printf("row[%d]: %#v", i, f)
	}

	cat, err := db.Catalog(ctx)
	if err != nil {
		return fmt.Errorf("could not retrieve catalog: %w", err)
	}
	log.Printf("word-size: %d", cat.WordSize)
	log.Printf("measurands: %d", len(cat.Measurands))

	nbad := 0
	for _, e := range cat.Measurands {
		_, err := e.Measurand()
		if err != nil {
			nbad++
			log.Printf(">>> %-16s %-24q ERROR: %v", e.Name, e.Def, err)
			continue
		}
		log.Printf(">>> %-16s %-24q %s", e.Name, e.Def, e.Doc)
	}

	if _, err := cat.Compile(nil); err != nil && nbad == 0 {
		return fmt.Errorf("could not compile catalog: %w", err)
	}

	if oname != "" {
		f, err := os.Create(oname)
		if err != nil {
			return fmt.Errorf("could not create catalog file: %w", err)
		}
		defer f.Close()

		err = cat.Write(f)
		if err != nil {
			return fmt.Errorf("could not write catalog: %w", err)
		}

		err = f.Close()
		if err != nil {
			return fmt.Errorf("could not close catalog file: %w", err)
		}
	}

	if nbad > 0 {
		return fmt.Errorf("found %d invalid measurand(s)", nbad)
	}
	return nil
}

func doImport(db *conddb.DB, fname string) error {
	cat, err := catalog.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open catalog: %w", err)
	}

	_, err = cat.Compile(nil)
	if err != nil {
		return fmt.Errorf("could not compile catalog: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, e := range cat.Measurands {
		err = db.Insert(ctx, e)
		if err != nil {
			return fmt.Errorf("could not import measurand %q: %w", e.Name, err)
		}
		log.Printf("imported %q", e.Name)
	}
	return nil
}
