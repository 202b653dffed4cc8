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

	"go.bug.st/serial"
)

var (
	ErrNotOpen           = errors.New("port not open")
	ErrDeviceNotFound    = errors.New("device not found")
	ErrAccessDenied      = errors.New("access denied")
	ErrInvalidParameters = errors.New("invalid parameters")
	ErrDeviceError       = errors.New("device error")
)

type OpenErrorKind int

const (
	DeviceError OpenErrorKind = iota
	DeviceNotFound
	AccessDenied
	InvalidParameters
)

func (k OpenErrorKind) String() string {
	switch k {
	case DeviceNotFound:
		return "device-not-found"
	case AccessDenied:
		return "access-denied"
	case InvalidParameters:
		return "invalid-parameters"
	case DeviceError:
		return "device-error"
	default:
		return fmt.Sprintf("open-error(%d)", int(k))
	}
}

func (k OpenErrorKind) sentinel() error {
	switch k {
	case DeviceNotFound:
		return ErrDeviceNotFound
	case AccessDenied:
		return ErrAccessDenied
	case InvalidParameters:
		return ErrInvalidParameters
	case DeviceError:
		return ErrDeviceError
	default:
		return ErrDeviceError
	}
}

// OpenError is returned by Open when the device cannot be configured.
type OpenError struct {
	Err    error
	Device string
	Kind   OpenErrorKind
}

func (e *OpenError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("open %s: %s", e.Device, e.Kind)
	}
	return fmt.Sprintf("open %s: %s: %v", e.Device, e.Kind, e.Err)
}

func (e *OpenError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

type IOErrorKind int

const (
	NotOpen IOErrorKind = iota
	TransportError
)

func (k IOErrorKind) String() string {
	if k == NotOpen {
		return "not-open"
	}
	return "device-error"
}

// IOError is returned by session operations. errors.Is matches ErrNotOpen
// or ErrDeviceError depending on Kind.
type IOError struct {
	Err  error
	Op   string
	Kind IOErrorKind
}

func (e *IOError) Error() string {
	if e.Kind == NotOpen {
		return e.Op + ": " + ErrNotOpen.Error()
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *IOError) Unwrap() []error {
	if e.Kind == NotOpen {
		return []error{ErrNotOpen}
	}
	if e.Err == nil {
		return []error{ErrDeviceError}
	}
	return []error{ErrDeviceError, e.Err}
}

func notOpen(op string) error {
	return &IOError{Op: op, Kind: NotOpen}
}

func classifyOpenError(device string, err error) error {
	var oe *OpenError
	if errors.As(err, &oe) {
		return oe
	}

	kind := DeviceError
	if code, ok := portErrorCode(err); ok {
		switch code {
		case serial.PortNotFound, serial.InvalidSerialPort:
			kind = DeviceNotFound
		case serial.PermissionDenied, serial.PortBusy:
			kind = AccessDenied
		case serial.InvalidSpeed, serial.InvalidDataBits, serial.InvalidParity,
			serial.InvalidStopBits, serial.InvalidTimeoutValue:
			kind = InvalidParameters
		case serial.PortClosed, serial.ErrorEnumeratingPorts, serial.FunctionNotImplemented:
			kind = DeviceError
		default:
			kind = DeviceError
		}
	} else {
		// the unix backend passes some open(2) errors through unwrapped
		switch {
		case errors.Is(err, fs.ErrNotExist):
			kind = DeviceNotFound
		case errors.Is(err, fs.ErrPermission):
			kind = AccessDenied
		}
	}

	return &OpenError{Device: device, Kind: kind, Err: err}
}

func portErrorCode(err error) (serial.PortErrorCode, bool) {
	var ptr *serial.PortError
	if errors.As(err, &ptr) && ptr != nil {
		return ptr.Code(), true
	}
	var val serial.PortError
	if errors.As(err, &val) {
		return val.Code(), true
	}
	return 0, false
}
