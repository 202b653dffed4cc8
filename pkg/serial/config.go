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
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.bug.st/serial"
)

type Parity string

const (
	ParityNone Parity = "none"
	ParityOdd  Parity = "odd"
	ParityEven Parity = "even"
)

type StopBits string

const (
	StopBitsOne          StopBits = "1"
	StopBitsOnePointFive StopBits = "1.5"
	StopBitsTwo          StopBits = "2"
)

// CommonBaudRates is the list offered by the UI. Any positive rate is accepted.
var CommonBaudRates = []int{9600, 19200, 38400, 57600, 115200, 230400, 460800, 921600}

// PortConfig holds the line parameters for one session. The session keeps
// its own copy, so changing a PortConfig after Open has no effect.
type PortConfig struct {
	Device       string        `validate:"required"`
	Parity       Parity        `validate:"oneof=none odd even"`
	StopBits     StopBits      `validate:"oneof=1 1.5 2"`
	BaudRate     int           `validate:"gt=0"`
	DataBits     int           `validate:"oneof=5 6 7 8"`
	ReadTimeout  time.Duration `validate:"gte=0"`
	SoftwareFlow bool
	HardwareFlow bool
}

// DefaultPortConfig returns 115200 8N1 with no flow control for the device.
func DefaultPortConfig(device string) PortConfig {
	return PortConfig{
		Device:      device,
		BaudRate:    115200,
		DataBits:    8,
		StopBits:    StopBitsOne,
		Parity:      ParityNone,
		ReadTimeout: 10 * time.Millisecond,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the config without touching the device. Failures are
// reported as an *OpenError of kind InvalidParameters.
func (c PortConfig) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &OpenError{
			Device: c.Device,
			Kind:   InvalidParameters,
			Err:    fmt.Errorf("%s: failed %q check with value %v", fe.Field(), fe.Tag(), fe.Value()),
		}
	}
	return &OpenError{Device: c.Device, Kind: InvalidParameters, Err: err}
}

// String renders the config the way the status bar shows it, e.g.
// "/dev/ttyUSB0 115200 8N1".
func (c PortConfig) String() string {
	p := "N"
	switch c.Parity {
	case ParityOdd:
		p = "O"
	case ParityEven:
		p = "E"
	case ParityNone:
	}
	s := fmt.Sprintf("%s %d %d%s%s", c.Device, c.BaudRate, c.DataBits, p, c.StopBits)
	switch {
	case c.HardwareFlow && c.SoftwareFlow:
		s += " rtscts+xonxoff"
	case c.HardwareFlow:
		s += " rtscts"
	case c.SoftwareFlow:
		s += " xonxoff"
	}
	return s
}

func (c PortConfig) mode() *serial.Mode {
	mode := &serial.Mode{
		BaudRate: c.BaudRate,
		DataBits: c.DataBits,
	}

	switch c.Parity {
	case ParityOdd:
		mode.Parity = serial.OddParity
	case ParityEven:
		mode.Parity = serial.EvenParity
	case ParityNone:
		mode.Parity = serial.NoParity
	}

	switch c.StopBits {
	case StopBitsOnePointFive:
		mode.StopBits = serial.OnePointFiveStopBits
	case StopBitsTwo:
		mode.StopBits = serial.TwoStopBits
	case StopBitsOne:
		mode.StopBits = serial.OneStopBit
	}

	return mode
}

// ParseStopBits accepts "1", "1.5" and "2".
func ParseStopBits(s string) (StopBits, error) {
	switch StopBits(s) {
	case StopBitsOne, StopBitsOnePointFive, StopBitsTwo:
		return StopBits(s), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		switch f {
		case 1:
			return StopBitsOne, nil
		case 1.5:
			return StopBitsOnePointFive, nil
		case 2:
			return StopBitsTwo, nil
		}
	}
	return "", fmt.Errorf("invalid stop bits: %q", s)
}

// ParseParity accepts the long names and the N/O/E shorthand.
func ParseParity(s string) (Parity, error) {
	switch s {
	case "none", "n", "N":
		return ParityNone, nil
	case "odd", "o", "O":
		return ParityOdd, nil
	case "even", "e", "E":
		return ParityEven, nil
	default:
		return "", fmt.Errorf("invalid parity: %q", s)
	}
}

// Flow control names used in config files and on the command line.
const (
	FlowNone    = "none"
	FlowRTSCTS  = "rtscts"
	FlowXONXOFF = "xonxoff"
	FlowBoth    = "both"
)

// ParseFlow accepts the flow names and the N/R/X/B shorthand.
func ParseFlow(s string) (software, hardware bool, err error) {
	switch s {
	case "", FlowNone, "n", "N":
		return false, false, nil
	case FlowRTSCTS, "r", "R":
		return false, true, nil
	case FlowXONXOFF, "x", "X":
		return true, false, nil
	case FlowBoth, "b", "B":
		return true, true, nil
	default:
		return false, false, fmt.Errorf("invalid flow control: %q", s)
	}
}

// FlowName is the inverse of ParseFlow.
func FlowName(software, hardware bool) string {
	switch {
	case software && hardware:
		return FlowBoth
	case hardware:
		return FlowRTSCTS
	case software:
		return FlowXONXOFF
	default:
		return FlowNone
	}
}
