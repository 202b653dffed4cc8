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

package serial

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

func TestClassifyOpenError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err      error
		sentinel error
		name     string
		kind     OpenErrorKind
	}{
		{
			// zero code is PortBusy
			name:     "port busy",
			err:      &serial.PortError{},
			kind:     AccessDenied,
			sentinel: ErrAccessDenied,
		},
		{
			name:     "wrapped not exist",
			err:      fmt.Errorf("failed to open serial port: %w", fs.ErrNotExist),
			kind:     DeviceNotFound,
			sentinel: ErrDeviceNotFound,
		},
		{
			name:     "permission",
			err:      fmt.Errorf("failed to open serial port: %w", fs.ErrPermission),
			kind:     AccessDenied,
			sentinel: ErrAccessDenied,
		},
		{
			name:     "unknown",
			err:      errors.New("something odd"),
			kind:     DeviceError,
			sentinel: ErrDeviceError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := classifyOpenError("COM3", tt.err)

			var oe *OpenError
			require.ErrorAs(t, err, &oe)
			assert.Equal(t, tt.kind, oe.Kind)
			assert.Equal(t, "COM3", oe.Device)
			require.ErrorIs(t, err, tt.sentinel)
		})
	}
}

func TestClassifyOpenError_KeepsOpenError(t *testing.T) {
	t.Parallel()

	orig := &OpenError{Device: "COM1", Kind: AccessDenied}
	err := classifyOpenError("COM1", fmt.Errorf("wrapped: %w", orig))

	var oe *OpenError
	require.ErrorAs(t, err, &oe)
	assert.Same(t, orig, oe)
}

func TestOpenErrorKindString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "device-not-found", DeviceNotFound.String())
	assert.Equal(t, "access-denied", AccessDenied.String())
	assert.Equal(t, "invalid-parameters", InvalidParameters.String())
	assert.Equal(t, "device-error", DeviceError.String())
}

func TestPortConfigMode(t *testing.T) {
	t.Parallel()

	cfg := PortConfig{
		Device:   "/dev/ttyUSB0",
		BaudRate: 9600,
		DataBits: 7,
		StopBits: StopBitsOnePointFive,
		Parity:   ParityEven,
	}

	mode := cfg.mode()
	assert.Equal(t, 9600, mode.BaudRate)
	assert.Equal(t, 7, mode.DataBits)
	assert.Equal(t, serial.OnePointFiveStopBits, mode.StopBits)
	assert.Equal(t, serial.EvenParity, mode.Parity)
}

func TestPortConfigString(t *testing.T) {
	t.Parallel()

	cfg := DefaultPortConfig("/dev/ttyUSB0")
	assert.Equal(t, "/dev/ttyUSB0 115200 8N1", cfg.String())

	cfg.Parity = ParityOdd
	cfg.StopBits = StopBitsTwo
	cfg.HardwareFlow = true
	assert.Equal(t, "/dev/ttyUSB0 115200 8O2 rtscts", cfg.String())
}

func TestParseStopBits(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]StopBits{"1": StopBitsOne, "1.5": StopBitsOnePointFive, "2": StopBitsTwo, "2.0": StopBitsTwo} {
		got, err := ParseStopBits(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseStopBits("3")
	require.Error(t, err)
}

func TestParseParity(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Parity{"none": ParityNone, "N": ParityNone, "odd": ParityOdd, "O": ParityOdd, "e": ParityEven} {
		got, err := ParseParity(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseParity("mark")
	require.Error(t, err)
}

func TestParseFlow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in       string
		software bool
		hardware bool
	}{
		{in: "", software: false, hardware: false},
		{in: "N", software: false, hardware: false},
		{in: "rtscts", software: false, hardware: true},
		{in: "X", software: true, hardware: false},
		{in: "both", software: true, hardware: true},
	}

	for _, tt := range tests {
		sw, hw, err := ParseFlow(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.software, sw, tt.in)
		assert.Equal(t, tt.hardware, hw, tt.in)

		sw2, hw2, err := ParseFlow(FlowName(sw, hw))
		require.NoError(t, err)
		assert.Equal(t, sw, sw2)
		assert.Equal(t, hw, hw2)
	}

	_, _, err := ParseFlow("dsrdtr")
	require.Error(t, err)
}
