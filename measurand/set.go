// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package measurand

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/go-lpc/decom/frames"
	"github.com/go-lpc/decom/words"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// Set is a collection of uniquely named measurands.
type Set struct {
	msg  *log.Logger
	ms   []*Measurand
	byID map[string]int
}

// NewSet creates a new, empty, set of measurands.
// msg may be nil.
func NewSet(msg *log.Logger) *Set {
	return &Set{
		msg:  msg,
		byID: make(map[string]int),
	}
}

func (set *Set) printf(format string, args ...interface{}) {
	if set.msg == nil {
		return
	}
	set.msg.Printf(format, args...)
}

// Add adds a named measurand to the set.
func (set *Set) Add(m *Measurand) error {
	if m == nil || m.Name == "" {
		return fmt.Errorf("measurand: can not add unnamed measurand")
	}
	if _, dup := set.byID[m.Name]; dup {
		return fmt.Errorf("measurand: duplicate measurand %q", m.Name)
	}
	set.byID[m.Name] = len(set.ms)
	set.ms = append(set.ms, m)
	return nil
}

// Len returns the number of measurands in the set.
func (set *Set) Len() int { return len(set.ms) }

// Get returns the named measurand.
func (set *Set) Get(name string) (*Measurand, bool) {
	i, ok := set.byID[name]
	if !ok {
		return nil, false
	}
	return set.ms[i], true
}

// Names returns the sorted names of the measurands in the set.
func (set *Set) Names() []string {
	names := make([]string, 0, len(set.ms))
	for _, m := range set.ms {
		names = append(names, m.Name)
	}
	sort.Strings(names)
	return names
}

// Measurands returns the measurands of the set, in insertion order.
func (set *Set) Measurands() []*Measurand {
	return append([]*Measurand(nil), set.ms...)
}

// Build builds every measurand of the set out of the batch of frames,
// concurrently. Build returns no result if any measurand fails.
func (set *Set) Build(ctx context.Context, data *words.Array) (map[string]*mat.Dense, error) {
	return set.build(ctx, func(m *Measurand) (*mat.Dense, error) {
		return m.Build(data)
	})
}

// BuildIndexed builds every measurand of the set out of the indexed batch
// of frames, applying each measurand's sampling strategy.
func (set *Set) BuildIndexed(ctx context.Context, batch frames.IndexedBatch) (map[string]*mat.Dense, error) {
	return set.build(ctx, func(m *Measurand) (*mat.Dense, error) {
		return m.BuildIndexed(batch)
	})
}

func (set *Set) build(ctx context.Context, build func(m *Measurand) (*mat.Dense, error)) (map[string]*mat.Dense, error) {
	grp, ctx := errgroup.WithContext(ctx)
	outs := make([]*mat.Dense, len(set.ms))
	for i := range set.ms {
		ii := i
		grp.Go(func() error {
			err := ctx.Err()
			if err != nil {
				return err
			}
			m := set.ms[ii]
			out, err := build(m)
			if err != nil {
				return err
			}
			r, c := out.Dims()
			set.printf("built %q: frames=%d, values=%d", m.Name, r, c)
			outs[ii] = out
			return nil
		})
	}
	err := grp.Wait()
	if err != nil {
		return nil, fmt.Errorf("measurand: could not build set: %w", err)
	}

	o := make(map[string]*mat.Dense, len(outs))
	for i, out := range outs {
		o[set.ms[i].Name] = out
	}
	return o, nil
}
