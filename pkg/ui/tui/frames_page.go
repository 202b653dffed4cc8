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
	"strings"

	"github.com/ZaparooProject/serterm/pkg/display"
	"github.com/ZaparooProject/serterm/pkg/frames"
	"github.com/rivo/tview"
)

// DefaultFramesFile is offered as the import and export path.
const DefaultFramesFile = "frames.csv"

type framesPage struct {
	ui      *UI
	frame   *PageFrame
	list    *tview.List
	buttons *ButtonBar
	ring    *focusRing
}

func newFramesPage(u *UI) *framesPage {
	p := &framesPage{ui: u}

	p.list = tview.NewList().
		ShowSecondaryText(true).
		SetHighlightFullLine(true).
		SetSecondaryTextColor(CurrentTheme().Dim)
	p.list.SetSelectedFunc(func(i int, _, _ string, _ rune) {
		p.send(i)
	})

	p.buttons = NewButtonBar().
		AddButton("Send", "Send the highlighted frame.", func() { p.send(p.list.GetCurrentItem()) }).
		AddButton("Add", "Save a new frame.", p.showAdd).
		AddButton("Remove", "Delete the highlighted frame.", p.remove).
		AddButton("Import", "Append frames from a CSV file.", p.showImport).
		AddButton("Export", "Write all frames to a CSV file.", p.showExport).
		AddButton("Back", "Return to the terminal.", func() { u.showPage(PageTerminal) })

	p.frame = NewPageFrame(u.app).
		SetTitle("serterm", "Frames").
		SetContent(p.list).
		SetButtonBar(p.buttons).
		SetOnEscape(func() { u.showPage(PageTerminal) })

	p.ring = newFocusRing(u.app, p.list, p.buttons)
	p.reload()
	return p
}

func (p *framesPage) reload() {
	current := p.list.GetCurrentItem()
	p.list.Clear()
	list := p.ui.term.Frames().List()
	for _, f := range list {
		p.list.AddItem(tview.Escape(f.Name), f.PayloadHex(), 0, nil)
	}
	if len(list) == 0 {
		p.frame.SetHelpText("No saved frames. Use Add to create one.")
		return
	}
	p.list.SetCurrentItem(min(current, len(list)-1))
	p.frame.SetHelpText(fmt.Sprintf("%d frames. Enter sends the highlighted frame.", len(list)))
}

func (p *framesPage) send(i int) {
	if p.ui.term.Frames().Len() == 0 {
		return
	}
	n, err := p.ui.term.SendFrame(i)
	if err != nil {
		p.frame.SetHelpText(errorText("Send failed", err))
		return
	}
	p.frame.SetHelpText(fmt.Sprintf("Sent %d bytes", n))
}

func (p *framesPage) remove() {
	if p.ui.term.Frames().Len() == 0 {
		return
	}
	if err := p.ui.term.Frames().Remove(p.list.GetCurrentItem()); err != nil {
		p.frame.SetHelpText(errorText("Remove failed", err))
		return
	}
	p.ui.save()
	p.reload()
}

// addFrame validates and stores a frame from the add form.
func (p *framesPage) addFrame(name, payloadHex string) error {
	payload, err := frames.ParsePayloadHex(payloadHex)
	if err != nil {
		return err
	}
	if _, err := p.ui.term.Frames().Add(name, payload); err != nil {
		return err
	}
	p.ui.save()
	return nil
}

// sendLinePayload is the send line as the bytes Send would write,
// without the CRLF.
func (p *framesPage) sendLinePayload() string {
	opts := p.ui.term.SendOptions()
	payload := display.EncodeOutbound(p.ui.terminal.input.GetText(), opts.Hex, false)
	return frames.Frame{Payload: payload}.PayloadHex()
}

func (p *framesPage) showAdd() {
	form := tview.NewForm()
	name := setupInputFieldFocus(tview.NewInputField().SetLabel("Name").SetFieldWidth(30))
	payload := setupInputFieldFocus(tview.NewInputField().SetLabel("Payload hex").SetFieldWidth(30))
	payload.SetText(p.sendLinePayload())
	form.AddFormItem(name).
		AddFormItem(payload).
		AddButton("Add", func() {
			if err := p.addFrame(name.GetText(), payload.GetText()); err != nil {
				p.ui.showError("Invalid frame", err)
				return
			}
			p.ui.closeModal()
		}).
		AddButton("Cancel", p.ui.closeModal)
	p.ui.showForm("Add frame", form, 50, 9)
}

func (p *framesPage) importFrom(path string) error {
	n, err := p.ui.term.Frames().ImportFile(p.ui.fs, path)
	if err != nil {
		return err
	}
	p.ui.save()
	p.frame.SetHelpText(fmt.Sprintf("Imported %d frames", n))
	return nil
}

func (p *framesPage) exportTo(path string) error {
	if err := p.ui.term.Frames().ExportFile(p.ui.fs, path); err != nil {
		return err
	}
	p.frame.SetHelpText("Exported to " + tview.Escape(path))
	return nil
}

func (p *framesPage) showImport() {
	p.showPathForm("Import frames", "Import", p.importFrom)
}

func (p *framesPage) showExport() {
	p.showPathForm("Export frames", "Export", p.exportTo)
}

func (p *framesPage) showPathForm(title, action string, run func(path string) error) {
	form := tview.NewForm()
	path := setupInputFieldFocus(tview.NewInputField().
		SetLabel("CSV file").
		SetFieldWidth(40).
		SetText(DefaultFramesFile))
	form.AddFormItem(path).
		AddButton(action, func() {
			if err := run(strings.TrimSpace(path.GetText())); err != nil {
				p.ui.showError(title, err)
				return
			}
			// closeModal reloads the list via showPage
			help := p.frame.helpText.GetText(false)
			p.ui.closeModal()
			p.frame.SetHelpText(help)
		}).
		AddButton("Cancel", p.ui.closeModal)
	p.ui.showForm(title, form, 60, 7)
}
