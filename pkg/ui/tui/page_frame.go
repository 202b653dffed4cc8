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

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// DefaultHints is drawn in the bottom border of every page.
var DefaultHints = []string{"F1 Terminal", "F2 Port", "F3 Frames", "F4 Settings", "Ctrl+Q Quit"}

// PageFrame is the bordered container every page lives in. Rows are the
// page content, one line of help text and an optional ButtonBar. The title
// is a breadcrumb and the key hints sit in the bottom border.
type PageFrame struct {
	*tview.Flex
	app      *tview.Application
	content  tview.Primitive
	helpText *tview.TextView
	bar      *ButtonBar
	onEscape func()
	hints    string
}

func NewPageFrame(app *tview.Application) *PageFrame {
	help := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	pf := &PageFrame{
		Flex:     tview.NewFlex().SetDirection(tview.FlexRow),
		app:      app,
		helpText: help,
	}
	pf.SetBorder(true)
	pf.SetDrawFunc(pf.drawBorderHints)
	pf.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape && pf.onEscape != nil {
			pf.onEscape()
			return nil
		}
		return event
	})
	pf.SetHints(DefaultHints...)
	pf.layout()
	return pf
}

func (pf *PageFrame) layout() {
	pf.Clear()
	if pf.content != nil {
		pf.AddItem(pf.content, 0, 1, true)
	}
	pf.AddItem(pf.helpText, 1, 0, false)
	if pf.bar != nil {
		pf.AddItem(pf.bar, 1, 0, pf.content == nil)
	}
}

// SetTitle joins the path into a breadcrumb such as " serterm > Port ".
func (pf *PageFrame) SetTitle(path ...string) *PageFrame {
	pf.Box.SetTitle(" " + strings.Join(path, " > ") + " ")
	return pf
}

func (pf *PageFrame) SetContent(content tview.Primitive) *PageFrame {
	pf.content = content
	pf.layout()
	return pf
}

func (pf *PageFrame) SetHelpText(text string) *PageFrame {
	pf.helpText.SetText(text)
	return pf
}

// SetButtonBar attaches the footer. The bar's help texts replace the help
// line and Up from the bar focuses the content again.
func (pf *PageFrame) SetButtonBar(bar *ButtonBar) *PageFrame {
	pf.bar = bar
	bar.SetOnUp(pf.FocusContent)
	bar.SetHelpCallback(func(text string) { pf.SetHelpText(text) })
	pf.layout()
	return pf
}

func (pf *PageFrame) SetHints(hints ...string) *PageFrame {
	pf.hints = strings.Join(hints, " "+string(tcell.RuneVLine)+" ")
	return pf
}

func (pf *PageFrame) SetOnEscape(fn func()) *PageFrame {
	pf.onEscape = fn
	return pf
}

func (pf *PageFrame) GetContent() tview.Primitive {
	return pf.content
}

func (pf *PageFrame) GetButtonBar() *ButtonBar {
	return pf.bar
}

func (pf *PageFrame) FocusContent() {
	if pf.content != nil && pf.app != nil {
		pf.app.SetFocus(pf.content)
	}
}

func (pf *PageFrame) drawBorderHints(screen tcell.Screen, x, y, width, height int) (int, int, int, int) {
	if pf.hints != "" && width > 4 && height > 2 {
		tview.Print(screen, " "+pf.hints+" ", x+1, y+height-1, width-2, tview.AlignCenter, CurrentTheme().Border)
	}
	return x + 1, y + 1, width - 2, height - 2
}

// ButtonBar is a single row of buttons. Left and Right (or Tab) move
// between them with wraparound, Enter presses the focused one.
type ButtonBar struct {
	*tview.Flex
	buttons  []*tview.Button
	help     []string
	focused  int
	onHelp   func(string)
	onUp     func()
	onEscape func()
}

func NewButtonBar() *ButtonBar {
	return &ButtonBar{Flex: tview.NewFlex()}
}

func (bb *ButtonBar) AddButton(label, help string, action func()) *ButtonBar {
	i := len(bb.buttons)
	btn := tview.NewButton(label).SetSelectedFunc(action)
	btn.SetFocusFunc(func() {
		bb.focused = i
		bb.showHelp()
	})
	if i > 0 {
		bb.AddItem(nil, 2, 0, false)
	}
	bb.AddItem(btn, 0, 1, false)
	bb.buttons = append(bb.buttons, btn)
	bb.help = append(bb.help, help)
	return bb
}

func (bb *ButtonBar) SetHelpCallback(fn func(string)) *ButtonBar {
	bb.onHelp = fn
	return bb
}

func (bb *ButtonBar) SetOnEscape(fn func()) *ButtonBar {
	bb.onEscape = fn
	return bb
}

func (bb *ButtonBar) SetOnUp(fn func()) *ButtonBar {
	bb.onUp = fn
	return bb
}

// SetLabel renames the button at index. Out of range indexes are ignored.
func (bb *ButtonBar) SetLabel(index int, label string) {
	if index >= 0 && index < len(bb.buttons) {
		bb.buttons[index].SetLabel(label)
	}
}

func (bb *ButtonBar) Len() int {
	return len(bb.buttons)
}

func (bb *ButtonBar) FocusedIndex() int {
	return bb.focused
}

func (bb *ButtonBar) showHelp() {
	if bb.onHelp != nil && bb.help[bb.focused] != "" {
		bb.onHelp(bb.help[bb.focused])
	}
}

func (bb *ButtonBar) move(delta int, setFocus func(p tview.Primitive)) {
	n := len(bb.buttons)
	bb.focused = (bb.focused + delta + n) % n
	bb.showHelp()
	setFocus(bb.buttons[bb.focused])
}

// Focus hands focus to the last focused button.
func (bb *ButtonBar) Focus(delegate func(p tview.Primitive)) {
	if len(bb.buttons) > 0 {
		delegate(bb.buttons[bb.focused])
	}
}

func (bb *ButtonBar) InputHandler() func(event *tcell.EventKey, setFocus func(p tview.Primitive)) {
	return bb.WrapInputHandler(func(event *tcell.EventKey, setFocus func(p tview.Primitive)) {
		if len(bb.buttons) == 0 {
			return
		}
		switch event.Key() { //nolint:exhaustive
		case tcell.KeyLeft, tcell.KeyBacktab:
			bb.move(-1, setFocus)
		case tcell.KeyRight, tcell.KeyTab:
			bb.move(1, setFocus)
		case tcell.KeyUp:
			if bb.onUp != nil {
				bb.onUp()
			}
		case tcell.KeyEscape:
			if bb.onEscape != nil {
				bb.onEscape()
			}
		default:
			if handler := bb.buttons[bb.focused].InputHandler(); handler != nil {
				handler(event, setFocus)
			}
		}
	})
}
