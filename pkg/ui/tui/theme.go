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
	"github.com/ZaparooProject/serterm/pkg/helpers/syncutil"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// DefaultTheme is used when the configured theme is unknown.
const DefaultTheme = "default"

// Theme is a color scheme for every page. Status colors are written into
// text through color tags, the rest goes to tview's global styles.
type Theme struct {
	Name  string
	Label string

	Background tcell.Color
	Panel      tcell.Color
	Border     tcell.Color
	Text       tcell.Color
	Dim        tcell.Color
	Inverse    tcell.Color
	Field      tcell.Color
	FieldFocus tcell.Color

	Accent tcell.Color
	OK     tcell.Color
	Fail   tcell.Color
}

// Themes in the order the settings page lists them.
var Themes = []Theme{
	{
		Name:       DefaultTheme,
		Label:      "Default (Slate)",
		Background: tcell.NewHexColor(0x1C2329),
		Panel:      tcell.NewHexColor(0x2B3640),
		Border:     tcell.NewHexColor(0x5FD7FF),
		Text:       tcell.NewHexColor(0xE4E8EB),
		Dim:        tcell.NewHexColor(0x8A98A5),
		Inverse:    tcell.NewHexColor(0x1C2329),
		Field:      tcell.NewHexColor(0x2B3640),
		FieldFocus: tcell.NewHexColor(0x3E5566),
		Accent:     tcell.NewHexColor(0xFFD75F),
		OK:         tcell.NewHexColor(0x87D787),
		Fail:       tcell.NewHexColor(0xFF5F5F),
	},
	{
		Name:       "high_contrast",
		Label:      "High Contrast",
		Background: tcell.NewHexColor(0x000000),
		Panel:      tcell.NewHexColor(0x000000),
		Border:     tcell.NewHexColor(0xFFFFFF),
		Text:       tcell.NewHexColor(0xFFFFFF),
		Dim:        tcell.NewHexColor(0xFFFFFF),
		Inverse:    tcell.NewHexColor(0x000000),
		Field:      tcell.NewHexColor(0x000000),
		FieldFocus: tcell.NewHexColor(0x0000FF),
		Accent:     tcell.NewHexColor(0xFFFF00),
		OK:         tcell.NewHexColor(0x00FF00),
		Fail:       tcell.NewHexColor(0xFF0000),
	},
	{
		Name:       "green",
		Label:      "Green Phosphor",
		Background: tcell.NewHexColor(0x000000),
		Panel:      tcell.NewHexColor(0x06140A),
		Border:     tcell.NewHexColor(0x33FF66),
		Text:       tcell.NewHexColor(0x33FF66),
		Dim:        tcell.NewHexColor(0x1A8033),
		Inverse:    tcell.NewHexColor(0x000000),
		Field:      tcell.NewHexColor(0x000000),
		FieldFocus: tcell.NewHexColor(0x0D4019),
		Accent:     tcell.NewHexColor(0xB3FFC6),
		OK:         tcell.NewHexColor(0x66FF8C),
		Fail:       tcell.NewHexColor(0xFF6666),
	},
	{
		Name:       "amber",
		Label:      "Amber Phosphor",
		Background: tcell.NewHexColor(0x000000),
		Panel:      tcell.NewHexColor(0x1A1200),
		Border:     tcell.NewHexColor(0xFFB000),
		Text:       tcell.NewHexColor(0xFFB000),
		Dim:        tcell.NewHexColor(0x996A00),
		Inverse:    tcell.NewHexColor(0x000000),
		Field:      tcell.NewHexColor(0x000000),
		FieldFocus: tcell.NewHexColor(0x4D3500),
		Accent:     tcell.NewHexColor(0xFFD866),
		OK:         tcell.NewHexColor(0xFFD866),
		Fail:       tcell.NewHexColor(0xFF5F5F),
	},
}

var (
	currentTheme = &Themes[0]
	themeMu      syncutil.RWMutex
)

// themeIndex returns the position of the named theme in Themes, or -1.
func themeIndex(name string) int {
	for i := range Themes {
		if Themes[i].Name == name {
			return i
		}
	}
	return -1
}

func CurrentTheme() *Theme {
	themeMu.RLock()
	defer themeMu.RUnlock()
	return currentTheme
}

// SetCurrentTheme switches to the named theme and applies it to tview.
// Unknown names return false and change nothing.
func SetCurrentTheme(name string) bool {
	i := themeIndex(name)
	if i < 0 {
		return false
	}
	theme := &Themes[i]
	themeMu.Lock()
	currentTheme = theme
	themeMu.Unlock()
	theme.apply()
	return true
}

// apply writes the theme into tview.Styles. Only primitives created
// afterwards see the change, so a theme switch rebuilds the pages.
func (t *Theme) apply() {
	tview.Styles.PrimitiveBackgroundColor = t.Background
	tview.Styles.ContrastBackgroundColor = t.Panel
	tview.Styles.MoreContrastBackgroundColor = t.FieldFocus
	tview.Styles.BorderColor = t.Border
	tview.Styles.TitleColor = t.Border
	tview.Styles.GraphicsColor = t.Border
	tview.Styles.PrimaryTextColor = t.Text
	tview.Styles.SecondaryTextColor = t.Accent
	tview.Styles.TertiaryTextColor = t.Dim
	tview.Styles.InverseTextColor = t.Inverse
	tview.Styles.ContrastSecondaryTextColor = t.Dim
}

// tag renders a color as a tview color tag value.
func tag(c tcell.Color) string {
	return c.CSS()
}
