// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command decom-srv starts a TDAQ server decommutating telemetry frames.
//
// The /config command loads the catalog of measurands named in the request:
// a YAML file (*.yaml, *.yml) or a decommutation database name.
// Batches of frames, in the binary frame format, are received on the
// /frames input. The engineering-unit values of every measurand are sent
// on the /eu output.
package main // import "github.com/go-lpc/decom/cmd/decom-srv"

import (
	"context"
	"log"
	"os"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"
)

func main() {
	cmd := flags.New()

	srv := newServer(cmd.Args[0])

	dev := tdaq.New(cmd, os.Stdout)
	dev.CmdHandle("/config", srv.OnConfig)
	dev.CmdHandle("/init", srv.OnInit)
	dev.CmdHandle("/reset", srv.OnReset)
	dev.CmdHandle("/start", srv.OnStart)
	dev.CmdHandle("/stop", srv.OnStop)
	dev.CmdHandle("/quit", srv.OnQuit)

	dev.InputHandle("/frames", srv.onFrames)
	dev.OutputHandle("/eu", srv.onEU)

	err := dev.Run(context.Background())
	if err != nil {
		log.Panicf("error: %+v", err)
	}
}
