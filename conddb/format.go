// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package conddb

import (
	"context"
	"fmt"
	"time"
)

// Format describes a frame format.
type Format struct {
	ID       uint64
	Name     string
	WordSize int
	Time     time.Time // registration time
}

// Formats returns all the frame formats, oldest first.
func (db *DB) Formats(ctx context.Context) ([]Format, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var fmts []Format
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT identifier, name, word_size, datetime FROM formats ORDER BY datetime",
	)
	if err != nil {
		return fmts, fmt.Errorf(
			"conddb: could not run formats query: %w",
			err,
		)
	}
	defer rows.Close()

	for rows.Next() {
		var f Format
		err = rows.Scan(&f.ID, &f.Name, &f.WordSize, &f.Time)
		if err != nil {
			return fmts, fmt.Errorf(
				"conddb: could not scan formats: %w",
				err,
			)
		}
		fmts = append(fmts, f)
	}

	if err := rows.Err(); err != nil {
		return fmts, fmt.Errorf(
			"conddb: could not scan db for formats: %w",
			err,
		)
	}

	if err := ctx.Err(); err != nil {
		return fmts, fmt.Errorf(
			"conddb: context error while retrieving formats: %w",
			err,
		)
	}

	return fmts, nil
}
