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
	"bytes"
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZaparooProject/serterm/pkg/serial"
	"github.com/ZaparooProject/serterm/pkg/serial/serialtest"
	"github.com/ZaparooProject/serterm/pkg/terminal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *Flags {
	t.Helper()
	fs := flag.NewFlagSet("serterm", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	f := SetupFlags(fs)
	exit, err := f.Pre(args, io.Discard)
	require.NoError(t, err)
	require.False(t, exit)
	return f
}

func TestPre_Version(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("serterm", flag.ContinueOnError)
	f := SetupFlags(fs)

	var out bytes.Buffer
	exit, err := f.Pre([]string{"-version"}, &out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Contains(t, out.String(), "serterm v")
}

func TestPre_BadFlag(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("serterm", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	f := SetupFlags(fs)

	exit, err := f.Pre([]string{"-nope"}, io.Discard)
	require.Error(t, err)
	assert.True(t, exit)
}

func TestPortConfig_OverlaysPassedFlags(t *testing.T) {
	t.Parallel()

	f := newFlags(t, "-port", "/dev/ttyUSB3", "-baud", "9600", "-parity", "E", "-stopbits", "2", "-flow", "R")

	base := serial.DefaultPortConfig("/dev/ttyS0")
	base.DataBits = 7
	pc, err := f.PortConfig(base)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB3", pc.Device)
	assert.Equal(t, 9600, pc.BaudRate)
	assert.Equal(t, 7, pc.DataBits)
	assert.Equal(t, serial.ParityEven, pc.Parity)
	assert.Equal(t, serial.StopBitsTwo, pc.StopBits)
	assert.True(t, pc.HardwareFlow)
	assert.False(t, pc.SoftwareFlow)
}

func TestPortConfig_KeepsBaseWithoutFlags(t *testing.T) {
	t.Parallel()

	f := newFlags(t)
	base := serial.DefaultPortConfig("/dev/ttyACM0")
	base.BaudRate = 57600

	pc, err := f.PortConfig(base)
	require.NoError(t, err)
	assert.Equal(t, base, pc)
}

func TestPortConfig_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
	}{
		{name: "bad parity", args: []string{"-port", "x", "-parity", "mark"}},
		{name: "bad stop bits", args: []string{"-port", "x", "-stopbits", "3"}},
		{name: "bad flow", args: []string{"-port", "x", "-flow", "dsr"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFlags(t, tt.args...)
			_, err := f.PortConfig(serial.DefaultPortConfig(""))
			require.Error(t, err)
		})
	}

	f := newFlags(t)
	_, err := f.PortConfig(serial.DefaultPortConfig(""))
	require.ErrorIs(t, err, ErrMissingPort)
}

func TestApplyOptions(t *testing.T) {
	t.Parallel()

	app, err := terminal.NewApp(nil)
	require.NoError(t, err)
	app.SetDisplayOptions(terminal.DisplayOptions{Timestamps: true})

	f := newFlags(t, "-hex", "-send-hex", "-crlf")
	f.ApplyOptions(app)

	assert.Equal(t, terminal.DisplayOptions{Hex: true, Timestamps: true}, app.DisplayOptions())
	assert.Equal(t, terminal.SendOptions{Hex: true, CRLF: true}, app.SendOptions())
}

func TestPost_ExportThenImport(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "frames.csv")

	src, err := terminal.NewApp(nil)
	require.NoError(t, err)
	_, err = src.Frames().Add("ping", []byte{0x01, 0x02})
	require.NoError(t, err)

	var out bytes.Buffer
	exit, err := newFlags(t, "-export-frames", path).Post(src, &out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Equal(t, "exported 1 frames\n", out.String())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "name,payload_hex\nping,01 02\n", string(data))

	dst, err := terminal.NewApp(nil)
	require.NoError(t, err)
	out.Reset()
	exit, err = newFlags(t, "-import-frames", path).Post(dst, &out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Equal(t, "imported 1 frames\n", out.String())
	assert.Equal(t, src.Frames().List(), dst.Frames().List())
}

func TestPost_NothingToDo(t *testing.T) {
	t.Parallel()

	app, err := terminal.NewApp(nil)
	require.NoError(t, err)
	exit, err := newFlags(t).Post(app, io.Discard)
	require.NoError(t, err)
	assert.False(t, exit)
}

func TestPost_ImportMissingFile(t *testing.T) {
	t.Parallel()

	app, err := terminal.NewApp(nil)
	require.NoError(t, err)
	exit, err := newFlags(t, "-import-frames", filepath.Join(t.TempDir(), "missing.csv")).Post(app, io.Discard)
	require.Error(t, err)
	assert.True(t, exit)
}

type syncBuffer struct {
	buf bytes.Buffer
	ch  chan struct{}
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	n, err := b.buf.Write(p)
	select {
	case b.ch <- struct{}{}:
	default:
	}
	return n, err
}

func TestMonitor_PrintsUntilCancelled(t *testing.T) {
	t.Parallel()

	mock := serialtest.NewMockPort()
	app, err := terminal.NewApp(nil,
		terminal.WithPortFactory(mock.Factory()),
		terminal.WithPollInterval(time.Millisecond),
	)
	require.NoError(t, err)
	app.SetSendOptions(terminal.SendOptions{CRLF: true})

	ctx, cancel := context.WithCancel(context.Background())
	out := &syncBuffer{ch: make(chan struct{}, 1)}
	done := make(chan error, 1)
	go func() {
		done <- Monitor(ctx, app, serial.DefaultPortConfig("/dev/ttyMOCK0"), "AT", out)
	}()

	require.Eventually(t, func() bool {
		return string(mock.Written()) == "AT\r\n"
	}, time.Second, time.Millisecond)

	mock.Feed([]byte("OK\r\n"))
	select {
	case <-out.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("no output")
	}

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, "OK\r\n", out.buf.String())
	assert.True(t, mock.IsClosed())
}

func TestMonitor_DeviceErrorReturnsError(t *testing.T) {
	t.Parallel()

	mock := serialtest.NewMockPort()
	app, err := terminal.NewApp(nil,
		terminal.WithPortFactory(mock.Factory()),
		terminal.WithPollInterval(time.Millisecond),
	)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- Monitor(context.Background(), app, serial.DefaultPortConfig("/dev/ttyMOCK0"), "", io.Discard)
	}()

	mock.SetReadError(errors.New("device unplugged"))

	select {
	case err := <-done:
		require.ErrorIs(t, err, serial.ErrDeviceError)
		assert.Contains(t, err.Error(), "connection lost")
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop")
	}
}

// stalledWriter blocks every write until ctx is done.
type stalledWriter struct {
	ctx context.Context
}

func (w stalledWriter) Write(p []byte) (int, error) {
	<-w.ctx.Done()
	return len(p), nil
}

func TestMonitor_CancelWithBacklogReturns(t *testing.T) {
	t.Parallel()

	mock := serialtest.NewMockPort()
	mock.ReadFunc = func(p []byte) (int, error) {
		return copy(p, "chatter\n"), nil
	}
	app, err := terminal.NewApp(nil,
		terminal.WithPortFactory(mock.Factory()),
		terminal.WithPollInterval(time.Millisecond),
		terminal.WithEventBuffer(4),
	)
	require.NoError(t, err)
	defer func() { _ = app.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Monitor(ctx, app, serial.DefaultPortConfig("/dev/ttyMOCK0"), "", stalledWriter{ctx: ctx})
	}()

	require.Eventually(t, func() bool {
		return len(app.Events()) == 4
	}, 2*time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not return after cancel")
	}
	assert.True(t, mock.IsClosed())
}

func TestMonitor_OpenError(t *testing.T) {
	t.Parallel()

	app, err := terminal.NewApp(nil)
	require.NoError(t, err)

	pc := serial.DefaultPortConfig("/dev/ttyMOCK0")
	pc.BaudRate = 0
	err = Monitor(context.Background(), app, pc, "", io.Discard)
	require.ErrorIs(t, err, serial.ErrInvalidParameters)
}
