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
	"fmt"

	"github.com/rivo/tview"
)

// centered places p in the middle of the screen at a fixed size.
func centered(p tview.Primitive, width, height int) tview.Primitive {
	column := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(nil, 0, 1, false).
		AddItem(p, height, 0, true).
		AddItem(nil, 0, 1, false)
	return tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(column, width, 0, true).
		AddItem(nil, 0, 1, false)
}

func setupInputFieldFocus(field *tview.InputField) *tview.InputField {
	field.SetFieldBackgroundColor(CurrentTheme().Field)
	field.SetFocusFunc(func() {
		field.SetFieldBackgroundColor(CurrentTheme().FieldFocus)
	})
	field.SetBlurFunc(func() {
		field.SetFieldBackgroundColor(CurrentTheme().Field)
	})
	return field
}

// focusRing moves focus between a page's widgets with Tab and Backtab.
type focusRing struct {
	app   *tview.Application
	items []tview.Primitive
}

func newFocusRing(app *tview.Application, items ...tview.Primitive) *focusRing {
	return &focusRing{app: app, items: items}
}

func (r *focusRing) move(delta int) {
	if len(r.items) == 0 {
		return
	}
	current := -1
	for i, p := range r.items {
		if p.HasFocus() {
			current = i
			break
		}
	}
	next := 0
	switch {
	case current >= 0:
		next = (current + delta + len(r.items)) % len(r.items)
	case delta < 0:
		next = len(r.items) - 1
	}
	r.app.SetFocus(r.items[next])
}

func colorText(color, text string) string {
	return fmt.Sprintf("[%s]%s[-]", color, tview.Escape(text))
}

func errorText(prefix string, err error) string {
	return colorText(tag(CurrentTheme().Fail), fmt.Sprintf("%s: %v", prefix, err))
}
