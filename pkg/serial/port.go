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
	"io"
	"time"

	"go.bug.st/serial"
)

// Port is the transport a Session drives. go.bug.st/serial ports satisfy
// it directly; tests use serialtest.MockPort.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	SetDTR(dtr bool) error
	SetRTS(rts bool) error
	Break(d time.Duration) error
}

// PortFactory opens the transport for a validated config.
type PortFactory func(cfg PortConfig) (Port, error)

// DefaultPortFactory opens real serial ports with go.bug.st/serial. That
// backend cannot configure flow control, so requesting it is rejected
// rather than ignored.
func DefaultPortFactory(cfg PortConfig) (Port, error) {
	if cfg.SoftwareFlow || cfg.HardwareFlow {
		return nil, &OpenError{
			Device: cfg.Device,
			Kind:   InvalidParameters,
			Err:    errors.New("flow control is not supported by the serial backend"),
		}
	}

	port, err := serial.Open(cfg.Device, cfg.mode())
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	return port, nil
}
