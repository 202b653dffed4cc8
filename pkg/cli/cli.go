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

package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/ZaparooProject/serterm/pkg/config"
	"github.com/ZaparooProject/serterm/pkg/helpers"
	"github.com/ZaparooProject/serterm/pkg/serial"
	"github.com/ZaparooProject/serterm/pkg/terminal"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

var ErrMissingPort = errors.New("no serial port given, use -port or save one from the UI")

type Flags struct {
	set          *flag.FlagSet
	fs           afero.Fs
	Version      *bool
	List         *bool
	Port         *string
	Baud         *int
	DataBits     *int
	StopBits     *string
	Parity       *string
	Flow         *string
	Monitor      *bool
	Hex          *bool
	Timestamps   *bool
	Send         *string
	SendHex      *bool
	CRLF         *bool
	ImportFrames *string
	ExportFrames *string
}

// SetupFlags defines all serterm flags on fs.
func SetupFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		set: fs,
		fs:  afero.NewOsFs(),
		Version: fs.Bool(
			"version",
			false,
			"print version and exit",
		),
		List: fs.Bool(
			"list",
			false,
			"list available serial ports and exit",
		),
		Port: fs.String(
			"port",
			"",
			"serial device to open, e.g. /dev/ttyUSB0 or COM3",
		),
		Baud: fs.Int(
			"baud",
			115200,
			"baud rate",
		),
		DataBits: fs.Int(
			"databits",
			8,
			"data bits (5, 6, 7 or 8)",
		),
		StopBits: fs.String(
			"stopbits",
			"1",
			"stop bits (1, 1.5 or 2)",
		),
		Parity: fs.String(
			"parity",
			"none",
			"parity (none, odd, even or N/O/E)",
		),
		Flow: fs.String(
			"flow",
			"none",
			"flow control (none, rtscts, xonxoff, both or N/R/X/B)",
		),
		Monitor: fs.Bool(
			"monitor",
			false,
			"print received data to stdout with no UI until interrupted",
		),
		Hex: fs.Bool(
			"hex",
			false,
			"display received data as a hex dump",
		),
		Timestamps: fs.Bool(
			"timestamps",
			false,
			"prefix received lines with the arrival time",
		),
		Send: fs.String(
			"send",
			"",
			"send this payload once after connecting",
		),
		SendHex: fs.Bool(
			"send-hex",
			false,
			"treat -send and typed input as hex digits",
		),
		CRLF: fs.Bool(
			"crlf",
			false,
			"append \\r\\n to every payload sent",
		),
		ImportFrames: fs.String(
			"import-frames",
			"",
			"append saved frames from a CSV file and exit",
		),
		ExportFrames: fs.String(
			"export-frames",
			"",
			"write saved frames to a CSV file and exit",
		),
	}
}

func (f *Flags) isFlagPassed(name string) bool {
	found := false
	f.set.Visit(func(fl *flag.Flag) {
		if fl.Name == name {
			found = true
		}
	})
	return found
}

// Pre parses args and handles flags that need no setup. It reports true
// when the program should exit.
func (f *Flags) Pre(args []string, out io.Writer) (bool, error) {
	if err := f.set.Parse(args); err != nil {
		return true, fmt.Errorf("failed to parse flags: %w", err)
	}

	switch {
	case *f.Version:
		_, _ = fmt.Fprintf(out, "serterm v%s\n", config.AppVersion)
		return true, nil
	case *f.List:
		return true, ListPorts(out)
	}
	return false, nil
}

// ListPorts prints one "name - description" line per port.
func ListPorts(out io.Writer) error {
	ports, err := serial.ListPorts()
	if err != nil {
		return fmt.Errorf("failed to list ports: %w", err)
	}
	if len(ports) == 0 {
		_, _ = fmt.Fprintln(out, "no serial ports found")
		return nil
	}
	for _, p := range ports {
		_, _ = fmt.Fprintln(out, p.String())
	}
	return nil
}

// PortConfig overlays the line flags that were passed on base.
//
//nolint:gocritic // config copied on purpose
func (f *Flags) PortConfig(base serial.PortConfig) (serial.PortConfig, error) {
	pc := base
	if f.isFlagPassed("port") {
		pc.Device = *f.Port
	}
	if f.isFlagPassed("baud") {
		pc.BaudRate = *f.Baud
	}
	if f.isFlagPassed("databits") {
		pc.DataBits = *f.DataBits
	}
	if f.isFlagPassed("stopbits") {
		sb, err := serial.ParseStopBits(*f.StopBits)
		if err != nil {
			return pc, err
		}
		pc.StopBits = sb
	}
	if f.isFlagPassed("parity") {
		p, err := serial.ParseParity(*f.Parity)
		if err != nil {
			return pc, err
		}
		pc.Parity = p
	}
	if f.isFlagPassed("flow") {
		sw, hw, err := serial.ParseFlow(*f.Flow)
		if err != nil {
			return pc, err
		}
		pc.SoftwareFlow, pc.HardwareFlow = sw, hw
	}
	if strings.TrimSpace(pc.Device) == "" {
		return pc, ErrMissingPort
	}
	return pc, nil
}

// ApplyOptions copies display and send flags that were passed onto app.
func (f *Flags) ApplyOptions(app *terminal.App) {
	d := app.DisplayOptions()
	if f.isFlagPassed("hex") {
		d.Hex = *f.Hex
	}
	if f.isFlagPassed("timestamps") {
		d.Timestamps = *f.Timestamps
	}
	app.SetDisplayOptions(d)

	s := app.SendOptions()
	if f.isFlagPassed("send-hex") {
		s.Hex = *f.SendHex
	}
	if f.isFlagPassed("crlf") {
		s.CRLF = *f.CRLF
	}
	app.SetSendOptions(s)
}

// Post handles the frame import and export flags. It reports true when
// the program should exit.
func (f *Flags) Post(app *terminal.App, out io.Writer) (bool, error) {
	switch {
	case *f.ImportFrames != "":
		n, err := app.Frames().ImportFile(f.fs, *f.ImportFrames)
		if err != nil {
			return true, err
		}
		if err := app.SaveSettings(); err != nil {
			return true, err
		}
		_, _ = fmt.Fprintf(out, "imported %d frames\n", n)
		return true, nil
	case *f.ExportFrames != "":
		if err := app.Frames().ExportFile(f.fs, *f.ExportFrames); err != nil {
			return true, err
		}
		_, _ = fmt.Fprintf(out, "exported %d frames\n", app.Frames().Len())
		return true, nil
	}
	return false, nil
}

// Setup creates the directories, starts logging and loads the config.
//
//nolint:gocritic // config struct copied for immutability
func Setup(defaultConfig config.Values, writers []io.Writer) (*config.Instance, error) {
	cfgDir := helpers.ConfigDir()
	logDir := helpers.LogDir()

	if err := helpers.EnsureDirectories(cfgDir, logDir); err != nil {
		return nil, err
	}

	if err := helpers.InitLogging(logDir, writers); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	cfg, err := config.NewConfig(cfgDir, defaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	helpers.SetDebug(cfg.DebugLogging())
	log.Info().Str("version", config.AppVersion).Str("config", cfg.Path()).Msg("serterm starting")

	return cfg, nil
}
