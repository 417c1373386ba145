// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/go-daq/tdaq"
	"github.com/go-lpc/decom/catalog"
	"github.com/go-lpc/decom/conddb"
	"github.com/go-lpc/decom/frames"
	"github.com/go-lpc/decom/measurand"
	"gonum.org/v1/gonum/mat"
)

type server struct {
	name string

	mu    sync.Mutex
	cfg   string
	set   *measurand.Set
	index uint64 // index of the next received frame

	nframes int
	data    chan []byte
}

func newServer(name string) *server {
	return &server{
		name: name,
		data: make(chan []byte, 1024),
	}
}

// loadCatalog loads a catalog from a YAML file or a database.
func loadCatalog(ctx tdaq.Context, cfg string) (catalog.Catalog, error) {
	switch strings.ToLower(filepath.Ext(cfg)) {
	case ".yaml", ".yml":
		return catalog.Open(cfg)
	}

	db, err := conddb.Open(cfg)
	if err != nil {
		return catalog.Catalog{}, fmt.Errorf("could not open decom db: %w", err)
	}
	defer db.Close()

	return db.Catalog(ctx.Ctx)
}

func (srv *server) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")

	dec := tdaq.NewDecoder(bytes.NewReader(req.Body))
	cfg := dec.ReadStr()
	if err := dec.Err(); err != nil {
		ctx.Msg.Errorf("could not decode /config request: %+v", err)
		return fmt.Errorf("could not decode /config request: %w", err)
	}

	cat, err := loadCatalog(ctx, cfg)
	if err != nil {
		ctx.Msg.Errorf("could not load catalog %q: %+v", cfg, err)
		return fmt.Errorf("could not load catalog %q: %w", cfg, err)
	}

	set, err := cat.Compile(nil)
	if err != nil {
		ctx.Msg.Errorf("could not compile catalog %q: %+v", cfg, err)
		return fmt.Errorf("could not compile catalog %q: %w", cfg, err)
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()
	srv.cfg = cfg
	srv.set = set
	ctx.Msg.Infof("loaded %d measurand(s) from %q", set.Len(), cfg)
	return nil
}

func (srv *server) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")
	srv.reset()
	return nil
}

func (srv *server) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	srv.reset()
	return nil
}

func (srv *server) reset() {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	srv.index = 0
	srv.nframes = 0
	srv.data = make(chan []byte, 1024)
}

func (srv *server) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /start command...")
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.set == nil {
		return fmt.Errorf("no catalog of measurands configured")
	}
	return nil
}

func (srv *server) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	srv.mu.Lock()
	n := srv.nframes
	srv.mu.Unlock()
	ctx.Msg.Debugf("received /stop command... -> n=%d", n)
	return nil
}

func (srv *server) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	return nil
}

// onFrames decodes a batch of frames and builds every configured measurand.
func (srv *server) onFrames(ctx tdaq.Context, src tdaq.Frame) error {
	batch, err := frames.NewDecoder(bytes.NewReader(src.Body)).DecodeAll()
	if err != nil {
		ctx.Msg.Errorf("could not decode frames: %+v", err)
		return fmt.Errorf("could not decode frames: %w", err)
	}

	srv.mu.Lock()
	var (
		set   = srv.set
		beg   = srv.index
		data  = srv.data
		index = make([]uint64, batch.Len())
	)
	for i := range index {
		index[i] = beg + uint64(i)
	}
	srv.index += uint64(len(index))
	srv.nframes += len(index)
	srv.mu.Unlock()

	if set == nil {
		return fmt.Errorf("no catalog of measurands configured")
	}

	ib, err := frames.NewIndexedBatch(index, batch)
	if err != nil {
		return fmt.Errorf("could not index frames: %w", err)
	}

	outs, err := set.BuildIndexed(ctx.Ctx, ib)
	if err != nil {
		ctx.Msg.Errorf("could not build measurands: %+v", err)
		return fmt.Errorf("could not build measurands: %w", err)
	}

	buf := new(bytes.Buffer)
	err = encodeEU(buf, outs)
	if err != nil {
		return fmt.Errorf("could not encode measurands: %w", err)
	}

	select {
	case <-ctx.Ctx.Done():
		return nil
	case data <- buf.Bytes():
	}
	return nil
}

func (srv *server) onEU(ctx tdaq.Context, dst *tdaq.Frame) error {
	srv.mu.Lock()
	data := srv.data
	srv.mu.Unlock()

	select {
	case <-ctx.Ctx.Done():
		dst.Body = nil
		return nil
	case raw := <-data:
		dst.Body = raw
	}
	return nil
}

// encodeEU encodes engineering-unit values, sorted by measurand name, as:
//
//	n u32 | n × (name str | rows u32 | cols u32 | rows×cols f64)
func encodeEU(w io.Writer, outs map[string]*mat.Dense) error {
	names := make([]string, 0, len(outs))
	for name := range outs {
		names = append(names, name)
	}
	sort.Strings(names)

	enc := tdaq.NewEncoder(w)
	enc.WriteU32(uint32(len(names)))
	for _, name := range names {
		out := outs[name]
		r, c := out.Dims()
		enc.WriteStr(name)
		enc.WriteU32(uint32(r))
		enc.WriteU32(uint32(c))
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				enc.WriteF64(out.At(i, j))
			}
		}
	}
	return enc.Err()
}
