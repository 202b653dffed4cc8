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
	"github.com/ZaparooProject/serterm/pkg/frames"
	"github.com/rs/zerolog/log"
)

// UI holds presentation settings. Font family, size and scale are kept
// for terminals that honour them and shown on the settings page.
type UI struct {
	FontFamily string  `toml:"font_family"`
	Theme      string  `toml:"theme"`
	FontSize   int     `toml:"font_size"`
	UIScale    float64 `toml:"ui_scale"`
	Mouse      bool    `toml:"mouse"`
}

type Frame struct {
	Name       string `toml:"name"`
	PayloadHex string `toml:"payload_hex"`
}

type Bridge struct {
	MQTT MQTTBridge `toml:"mqtt,omitempty"`
}

// MQTTBridge configures the MQTT mirror. An empty broker disables it.
type MQTTBridge struct {
	Broker   string `toml:"broker,omitempty"`
	Topic    string `toml:"topic,omitempty"`
	ClientID string `toml:"client_id,omitempty"`
}

func (c *Instance) UI() UI {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.UI
}

func (c *Instance) SetUI(ui UI) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.UI = ui
}

// Frames decodes the saved frame list. Entries that fail to parse are
// logged and skipped.
func (c *Instance) Frames() []frames.Frame {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]frames.Frame, 0, len(c.vals.Frames))
	for _, f := range c.vals.Frames {
		payload, err := frames.ParsePayloadHex(f.PayloadHex)
		if err != nil {
			log.Warn().Err(err).Str("name", f.Name).Msg("skipping saved frame")
			continue
		}
		frame := frames.Frame{Name: f.Name, Payload: payload}
		if err := frame.Validate(); err != nil {
			log.Warn().Err(err).Str("name", f.Name).Msg("skipping saved frame")
			continue
		}
		out = append(out, frame)
	}
	return out
}

func (c *Instance) SetFrames(list []frames.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.vals.Frames = make([]Frame, len(list))
	for i, f := range list {
		c.vals.Frames[i] = Frame{Name: f.Name, PayloadHex: f.PayloadHex()}
	}
}

func (c *Instance) MQTTBridge() MQTTBridge {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Bridge.MQTT
}

func (c *Instance) SetMQTTBridge(b MQTTBridge) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Bridge.MQTT = b
}
