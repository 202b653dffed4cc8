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
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThemes_Unique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for i := range Themes {
		th := Themes[i]
		assert.NotEmpty(t, th.Label, th.Name)
		assert.False(t, seen[th.Name], "duplicate theme %s", th.Name)
		seen[th.Name] = true
		assert.Equal(t, i, themeIndex(th.Name))
	}
	assert.Equal(t, 0, themeIndex(DefaultTheme))
	assert.Equal(t, -1, themeIndex("missing"))
	assert.Len(t, themeDisplayNames(), len(Themes))
}

func TestTag(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "#FFB000", tag(tcell.NewHexColor(0xFFB000)))
	assert.Equal(t, "[#FF0000]a[red[]b[-]", colorText(tag(tcell.NewHexColor(0xFF0000)), "a[red]b"))
}

func TestSetCurrentTheme(t *testing.T) {
	t.Cleanup(func() { SetCurrentTheme(DefaultTheme) })

	assert.False(t, SetCurrentTheme("missing"))
	assert.Equal(t, DefaultTheme, CurrentTheme().Name)

	require.True(t, SetCurrentTheme("amber"))
	amber := CurrentTheme()
	assert.Equal(t, "amber", amber.Name)
	assert.Equal(t, amber.Background, tview.Styles.PrimitiveBackgroundColor)
	assert.Equal(t, amber.Border, tview.Styles.BorderColor)
	assert.Equal(t, amber.Dim, tview.Styles.TertiaryTextColor)
}
