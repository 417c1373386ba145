// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
)

var shellCmds = []string{"calc", "exit", "help", "meas", "param", "pv", "quit"}

func runShell(w io.Writer, args []string) error {
	fs := newFlagSet("shell", "", "shell starts an interactive decom shell.")
	hist := fs.String("history", defaultHistory(), "path to the history file")
	ok, err := parseFlags(fs, args, 0)
	if !ok || err != nil {
		return err
	}

	term := liner.NewLiner()
	defer term.Close()

	term.SetCtrlCAborts(true)
	term.SetCompleter(func(line string) []string {
		var cmds []string
		for _, cmd := range shellCmds {
			if strings.HasPrefix(cmd, line) {
				cmds = append(cmds, cmd)
			}
		}
		return cmds
	})

	if *hist != "" {
		f, err := os.Open(*hist)
		if err == nil {
			_, _ = term.ReadHistory(f)
			f.Close()
		}
		defer func() {
			f, err := os.Create(*hist)
			if err != nil {
				log.Printf("could not save history: %+v", err)
				return
			}
			defer f.Close()
			_, err = term.WriteHistory(f)
			if err != nil {
				log.Printf("could not save history: %+v", err)
			}
		}()
	}

	sh := &shell{w: w}
	for {
		line, err := term.Prompt("decom> ")
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				fmt.Fprintln(w)
				return nil
			}
			return fmt.Errorf("could not read command: %w", err)
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		term.AppendHistory(line)

		quit, err := sh.exec(line)
		if err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

func defaultHistory() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".decom_history")
}

// shell interprets the commands of an interactive session.
// A line without a known command is evaluated as a calculator expression.
type shell struct {
	w  io.Writer
	pv float64 // parameter value for deferred expressions
}

func (sh *shell) exec(line string) (quit bool, err error) {
	line = strings.TrimSpace(line)
	cmd, text := line, ""
	if i := strings.IndexAny(line, " \t"); i > 0 {
		cmd, text = line[:i], strings.TrimSpace(line[i:])
	}

	switch cmd {
	case "quit", "exit":
		return true, nil
	case "help":
		sh.help()
		return false, nil
	case "pv":
		if text == "" {
			fmt.Fprintf(sh.w, "pv = %v\n", sh.pv)
			return false, nil
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return false, fmt.Errorf("could not parse parameter value %q: %w", text, err)
		}
		sh.pv = v
		return false, nil
	case "calc":
		return false, evalCalc(sh.w, text, sh.pv)
	case "param":
		return false, evalParam(sh.w, text)
	case "meas":
		return false, evalMeas(sh.w, text)
	default:
		return false, evalCalc(sh.w, line, sh.pv)
	}
}

func (sh *shell) help() {
	fmt.Fprintf(sh.w, `commands:
  calc  TEXT   evaluate a calculator expression (also without "calc")
  param TEXT   parse a parameter definition
  meas  TEXT   parse a measurand definition
  pv    [V]    print or set the parameter value of deferred expressions
  help         print this help
  quit         leave the shell
`)
}
