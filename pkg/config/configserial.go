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

package config

import (
	"time"

	"github.com/ZaparooProject/serterm/pkg/serial"
	"github.com/rs/zerolog/log"
)

const (
	FlowNone = serial.FlowNone

	DefaultAutoSendIntervalMs = 1000
	MinAutoSendIntervalMs     = 10
	MaxAutoSendIntervalMs     = 3_600_000
)

// Serial holds the port settings from the last session.
type Serial struct {
	Port     string `toml:"port,omitempty"`
	StopBits string `toml:"stop_bits"`
	Parity   string `toml:"parity"`
	Flow     string `toml:"flow"`
	BaudRate int    `toml:"baud_rate"`
	DataBits int    `toml:"data_bits"`
}

type Display struct {
	Hex        bool `toml:"hex"`
	Timestamps bool `toml:"timestamps"`
	AutoScroll bool `toml:"autoscroll"`
}

type Send struct {
	Hex                bool `toml:"hex"`
	CRLF               bool `toml:"crlf"`
	AutoSendIntervalMs int  `toml:"auto_send_interval_ms"`
}

// PortConfig builds a session config from the saved serial section.
// Unparseable values fall back to the defaults of serial.DefaultPortConfig.
func (c *Instance) PortConfig() serial.PortConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := c.vals.Serial
	pc := serial.DefaultPortConfig(s.Port)
	if s.BaudRate > 0 {
		pc.BaudRate = s.BaudRate
	}
	if s.DataBits != 0 {
		pc.DataBits = s.DataBits
	}
	if sb, err := serial.ParseStopBits(s.StopBits); err == nil {
		pc.StopBits = sb
	} else {
		log.Warn().Err(err).Msg("ignoring saved stop bits")
	}
	if p, err := serial.ParseParity(s.Parity); err == nil {
		pc.Parity = p
	} else {
		log.Warn().Err(err).Msg("ignoring saved parity")
	}
	if sw, hw, err := serial.ParseFlow(s.Flow); err == nil {
		pc.SoftwareFlow, pc.HardwareFlow = sw, hw
	} else {
		log.Warn().Err(err).Msg("ignoring saved flow control")
	}
	return pc
}

//nolint:gocritic // config struct copied for immutability
func (c *Instance) SetPortConfig(pc serial.PortConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Serial = Serial{
		Port:     pc.Device,
		BaudRate: pc.BaudRate,
		DataBits: pc.DataBits,
		StopBits: string(pc.StopBits),
		Parity:   string(pc.Parity),
		Flow:     serial.FlowName(pc.SoftwareFlow, pc.HardwareFlow),
	}
}

func (c *Instance) Display() Display {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Display
}

func (c *Instance) SetDisplay(d Display) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Display = d
}

func (c *Instance) Send() Send {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Send
}

func (c *Instance) SetSend(s Send) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Send = s
}

// AutoSendInterval is the saved auto-send period clamped to 10ms..1h.
func (c *Instance) AutoSendInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ClampAutoSendInterval(time.Duration(c.vals.Send.AutoSendIntervalMs) * time.Millisecond)
}

func ClampAutoSendInterval(d time.Duration) time.Duration {
	return min(max(d, MinAutoSendIntervalMs*time.Millisecond), MaxAutoSendIntervalMs*time.Millisecond)
}
