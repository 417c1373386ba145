// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package conddb holds types to access the database of frame formats
// and measurand definitions.
//
// The database holds three tables:
//
//	formats(identifier, name, word_size, datetime)
//	measurands(name, def, doc)
//	samplings(measurand, value, modulo)
package conddb // import "github.com/go-lpc/decom/conddb"

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-lpc/decom/catalog"
	_ "github.com/go-sql-driver/mysql"
)

const (
	host = "localhost"
)

var (
	usr = "username"
	pwd = "s3cr3t"

	drvName = "mysql"
)

// ErrNotFound is returned when a measurand is not in the database.
var ErrNotFound = errors.New("conddb: no such measurand")

// DB exposes convenience methods to easily retrieve frame formats
// and measurand definitions from the decommutation database.
type DB struct {
	db   *sql.DB
	name string // name of the decommutation database
}

// Open opens a connection to the decommutation database dbname.
func Open(dbname string) (*DB, error) {
	db, err := sql.Open(drvName, dsn(dbname))
	if err != nil {
		return nil, fmt.Errorf("conddb: could not open %q db: %w", dbname, err)
	}

	err = ping(db, dbname)
	if err != nil {
		return nil, fmt.Errorf("conddb: could not ping %q db: %w", dbname, err)
	}

	return &DB{db: db, name: dbname}, nil
}

func dsn(db string) string {
	return fmt.Sprintf("%s:%s@tcp(%s)/%s", usr, pwd, host, db)
}

func ping(db *sql.DB, dbname string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("conddb: could not ping %q db: %w", dbname, err)
	}

	return nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

// LastWordSize returns the word size of the most recent frame format.
func (db *DB) LastWordSize(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var wsize int
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT word_size FROM formats ORDER BY datetime DESC LIMIT 1",
	)
	if err != nil {
		return wsize, fmt.Errorf("conddb: could not query word size: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		err = rows.Scan(&wsize)
		if err != nil {
			return wsize, fmt.Errorf("conddb: could not get word size value: %w", err)
		}
	}

	if err := rows.Err(); err != nil {
		return wsize, fmt.Errorf("conddb: could not scan db for word size: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return wsize, fmt.Errorf("conddb: context error while retrieving word size: %w", err)
	}

	return wsize, nil
}

// Measurands returns all the measurand definitions, sorted by name.
// Sampling strategies are not retrieved.
func (db *DB) Measurands(ctx context.Context) ([]catalog.Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := db.db.QueryContext(
		ctx,
		"SELECT name, def, doc FROM measurands ORDER BY name",
	)
	if err != nil {
		return nil, fmt.Errorf("conddb: could not run measurands query: %w", err)
	}
	defer rows.Close()

	es, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("conddb: context error while retrieving measurands: %w", err)
	}

	return es, nil
}

// Measurand returns the named measurand definition, with its sampling
// strategy.
func (db *DB) Measurand(ctx context.Context, name string) (catalog.Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := db.db.QueryContext(
		ctx,
		"SELECT name, def, doc FROM measurands WHERE name=?",
		name,
	)
	if err != nil {
		return catalog.Entry{}, fmt.Errorf("conddb: could not run measurand query: %w", err)
	}
	defer rows.Close()

	es, err := scanEntries(rows)
	if err != nil {
		return catalog.Entry{}, err
	}
	if len(es) == 0 {
		return catalog.Entry{}, fmt.Errorf("%w %q", ErrNotFound, name)
	}
	e := es[0]

	sels, err := db.samplings(ctx, "SELECT measurand, value, modulo FROM samplings WHERE measurand=? ORDER BY value", name)
	if err != nil {
		return catalog.Entry{}, err
	}
	e.Sampling = sels[name]

	if err := ctx.Err(); err != nil {
		return catalog.Entry{}, fmt.Errorf("conddb: context error while retrieving measurand %q: %w", name, err)
	}

	return e, nil
}

// Catalog returns the catalog of all the measurand definitions, for the
// most recent frame format.
func (db *DB) Catalog(ctx context.Context) (catalog.Catalog, error) {
	wsize, err := db.LastWordSize(ctx)
	if err != nil {
		return catalog.Catalog{}, err
	}

	es, err := db.Measurands(ctx)
	if err != nil {
		return catalog.Catalog{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	sels, err := db.samplings(ctx, "SELECT measurand, value, modulo FROM samplings ORDER BY measurand, value")
	if err != nil {
		return catalog.Catalog{}, err
	}
	for i := range es {
		es[i].Sampling = sels[es[i].Name]
	}

	return catalog.Catalog{WordSize: wsize, Measurands: es}, nil
}

// Insert validates and inserts a measurand definition with its
// sampling strategy, in a single transaction.
func (db *DB) Insert(ctx context.Context, e catalog.Entry) error {
	_, err := e.Measurand()
	if err != nil {
		return fmt.Errorf("conddb: invalid measurand: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("conddb: could not start transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(
		ctx,
		"INSERT INTO measurands (name, def, doc) VALUES (?, ?, ?)",
		e.Name, e.Def, e.Doc,
	)
	if err != nil {
		return fmt.Errorf("conddb: could not insert measurand %q: %w", e.Name, err)
	}

	for _, sel := range e.Sampling {
		_, err = tx.ExecContext(
			ctx,
			"INSERT INTO samplings (measurand, value, modulo) VALUES (?, ?, ?)",
			e.Name, int64(sel.Value), int64(sel.Mod),
		)
		if err != nil {
			return fmt.Errorf("conddb: could not insert sampling of %q: %w", e.Name, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("conddb: could not commit measurand %q: %w", e.Name, err)
	}
	return nil
}

func scanEntries(rows *sql.Rows) ([]catalog.Entry, error) {
	var es []catalog.Entry
	for rows.Next() {
		var (
			e   catalog.Entry
			doc sql.NullString
		)
		err := rows.Scan(&e.Name, &e.Def, &doc)
		if err != nil {
			return nil, fmt.Errorf("conddb: could not scan measurand: %w", err)
		}
		e.Doc = doc.String
		es = append(es, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conddb: could not scan db for measurands: %w", err)
	}
	return es, nil
}

func (db *DB) samplings(ctx context.Context, query string, args ...interface{}) (map[string][]catalog.Selector, error) {
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("conddb: could not run samplings query: %w", err)
	}
	defer rows.Close()

	sels := make(map[string][]catalog.Selector)
	for rows.Next() {
		var (
			name string
			sel  catalog.Selector
		)
		err = rows.Scan(&name, &sel.Value, &sel.Mod)
		if err != nil {
			return nil, fmt.Errorf("conddb: could not scan samplings: %w", err)
		}
		sels[name] = append(sels[name], sel)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conddb: could not scan db for samplings: %w", err)
	}

	return sels, nil
}
