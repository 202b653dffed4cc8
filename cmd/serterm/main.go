// serterm
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of serterm.
//
// serterm is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// serterm is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with serterm.  If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ZaparooProject/serterm/pkg/cli"
	"github.com/ZaparooProject/serterm/pkg/config"
	"github.com/ZaparooProject/serterm/pkg/serial"
	"github.com/ZaparooProject/serterm/pkg/service/publishers"
	"github.com/ZaparooProject/serterm/pkg/terminal"
	"github.com/ZaparooProject/serterm/pkg/ui/tui"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := cli.SetupFlags(flag.CommandLine)
	if exit, err := flags.Pre(os.Args[1:], os.Stdout); exit || err != nil {
		return err
	}

	var logWriters []io.Writer
	if *flags.Monitor {
		logWriters = []io.Writer{os.Stderr}
	}

	cfg, err := cli.Setup(config.BaseDefaults, logWriters)
	if err != nil {
		return err
	}

	app, err := terminal.NewApp(cfg)
	if err != nil {
		return fmt.Errorf("error starting terminal: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Error().Err(err).Msg("error closing terminal")
		}
	}()

	flags.ApplyOptions(app)
	if exit, err := flags.Post(app, os.Stdout); exit || err != nil {
		return err
	}

	if b := cfg.MQTTBridge(); b.Broker != "" {
		mirror := publishers.NewMQTTMirror(b.Broker, b.Topic, b.ClientID, app)
		if err := mirror.Start(); err != nil {
			log.Error().Err(err).Msg("mqtt mirror disabled")
		} else {
			app.AddChunkListener(mirror.OnChunk)
			defer mirror.Stop()
		}
	}

	if *flags.Monitor {
		pc, err := flags.PortConfig(cfg.PortConfig())
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		log.Info().Msg("started in monitor mode")
		return cli.Monitor(ctx, app, pc, *flags.Send, os.Stdout)
	}

	switch pc, err := flags.PortConfig(cfg.PortConfig()); {
	case err == nil:
		cfg.SetPortConfig(pc)
	case !errors.Is(err, cli.ErrMissingPort):
		return err
	}

	ui, err := tui.BuildMain(app, tui.WithWatcher(serial.NewWatcher()))
	if err != nil {
		log.Error().Err(err).Msg("error building UI")
		return fmt.Errorf("error building UI: %w", err)
	}
	if err := ui.Run(); err != nil {
		log.Error().Err(err).Msg("error running UI")
		return fmt.Errorf("error running UI: %w", err)
	}
	return nil
}
