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

package tui

import (
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/require"
)

// simScreen is a SimulationScreen with text lookup for assertions.
type simScreen struct {
	tcell.SimulationScreen
}

func newSimScreen(t *testing.T, width, height int) *simScreen {
	t.Helper()
	sim := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, sim.Init())
	sim.SetSize(width, height)
	return &simScreen{SimulationScreen: sim}
}

func (s *simScreen) press(k tcell.Key) {
	s.InjectKey(k, 0, tcell.ModNone)
}

// contains reports whether text appears on one row of the screen.
func (s *simScreen) contains(text string) bool {
	cells, width, height := s.GetContents()
	for y := range height {
		var row strings.Builder
		for _, cell := range cells[y*width : (y+1)*width] {
			if len(cell.Runes) == 0 {
				row.WriteByte(' ')
				continue
			}
			row.WriteRune(cell.Runes[0])
		}
		if strings.Contains(row.String(), text) {
			return true
		}
	}
	return false
}
