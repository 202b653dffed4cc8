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
	"fmt"
	"slices"
	"strings"

	"go.bug.st/serial/enumerator"
)

// PortInfo describes one device offered in the port picker.
type PortInfo struct {
	Name        string
	Description string
}

func (p PortInfo) String() string {
	if p.Description == "" {
		return p.Name
	}
	return p.Name + " - " + p.Description
}

var detailedPortsList = enumerator.GetDetailedPortsList

// ListPorts returns the serial devices currently present, sorted by name.
func ListPorts() ([]PortInfo, error) {
	details, err := detailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		if d == nil || d.Name == "" {
			continue
		}
		ports = append(ports, PortInfo{
			Name:        d.Name,
			Description: describePort(d),
		})
	}

	slices.SortFunc(ports, func(a, b PortInfo) int {
		return strings.Compare(a.Name, b.Name)
	})
	return ports, nil
}

func describePort(d *enumerator.PortDetails) string {
	if !d.IsUSB {
		return ""
	}
	if d.Product != "" {
		return d.Product
	}
	if d.VID != "" || d.PID != "" {
		return strings.ToLower(d.VID) + ":" + strings.ToLower(d.PID)
	}
	return "USB serial"
}

// PortNames flattens a list to device names.
func PortNames(ports []PortInfo) []string {
	names := make([]string, len(ports))
	for i, p := range ports {
		names[i] = p.Name
	}
	return names
}
