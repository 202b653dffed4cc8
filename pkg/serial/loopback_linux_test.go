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

//go:build linux

package serial_test

import (
	"io"
	"testing"
	"time"

	"github.com/ZaparooProject/serterm/pkg/serial"
	"github.com/creack/pty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openPTY opens a session on the slave side of a pseudo terminal pair. The
// master side plays the device.
func openPTY(t *testing.T) (*serial.Session, io.ReadWriteCloser) {
	t.Helper()

	master, slave, err := pty.Open()
	if err != nil {
		t.Skipf("pty not available: %v", err)
	}
	t.Cleanup(func() {
		_ = master.Close()
		_ = slave.Close()
	})

	s, err := serial.Open(serial.DefaultPortConfig(slave.Name()))
	if err != nil {
		t.Skipf("serial backend cannot drive a pty here: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	return s, master
}

func TestLoopback_WriteReachesDevice(t *testing.T) {
	t.Parallel()

	s, device := openPTY(t)

	payload := []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 loopback")
	n, err := s.Write(payload)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)

	got := make([]byte, 0, len(payload))
	buf := make([]byte, 256)
	deadline := time.Now().Add(2 * time.Second)
	for len(got) < len(payload) && time.Now().Before(deadline) {
		m, readErr := device.Read(buf)
		require.NoError(t, readErr)
		got = append(got, buf[:m]...)
	}

	assert.Equal(t, payload, got)
	assert.Equal(t, uint64(len(payload)), s.SentBytes())
}

func TestLoopback_DeviceBytesArrive(t *testing.T) {
	t.Parallel()

	s, device := openPTY(t)

	payload := []byte("sensor=42 ok")
	_, err := device.Write(payload)
	require.NoError(t, err)

	var got []byte
	deadline := time.Now().Add(2 * time.Second)
	for len(got) < len(payload) && time.Now().Before(deadline) {
		if s.PollAvailable() == 0 {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		data, readErr := s.ReadAvailable()
		require.NoError(t, readErr)
		got = append(got, data...)
	}

	assert.Equal(t, payload, got)
}
