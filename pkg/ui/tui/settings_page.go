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
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ZaparooProject/serterm/pkg/config"
	"github.com/ZaparooProject/serterm/pkg/helpers"
	"github.com/rivo/tview"
)

var (
	ErrInvalidFontSize = errors.New("font size must be a positive whole number")
	ErrInvalidUIScale  = errors.New("ui scale must be a positive number")
)

type settingsPage struct {
	ui         *UI
	frame      *PageFrame
	form       *tview.Form
	theme      *tview.DropDown
	fontFamily *tview.InputField
	fontSize   *tview.InputField
	uiScale    *tview.InputField
	mouse      *tview.Checkbox
	debug      *tview.Checkbox
	broker     *tview.InputField
	topic      *tview.InputField
}

func themeDisplayNames() []string {
	names := make([]string, len(Themes))
	for i := range Themes {
		names[i] = Themes[i].Label
	}
	return names
}

func newSettingsPage(u *UI) *settingsPage {
	p := &settingsPage{ui: u}

	p.theme = tview.NewDropDown().SetLabel("Theme").SetOptions(themeDisplayNames(), nil)
	p.fontFamily = setupInputFieldFocus(tview.NewInputField().SetLabel("Font family").SetFieldWidth(24))
	p.fontSize = setupInputFieldFocus(tview.NewInputField().
		SetLabel("Font size").
		SetFieldWidth(4).
		SetAcceptanceFunc(tview.InputFieldInteger))
	p.uiScale = setupInputFieldFocus(tview.NewInputField().
		SetLabel("UI scale").
		SetFieldWidth(6).
		SetAcceptanceFunc(tview.InputFieldFloat))
	p.mouse = tview.NewCheckbox().SetLabel("Mouse")
	p.debug = tview.NewCheckbox().SetLabel("Debug logging")
	p.broker = setupInputFieldFocus(tview.NewInputField().SetLabel("MQTT broker").SetFieldWidth(32))
	p.topic = setupInputFieldFocus(tview.NewInputField().SetLabel("MQTT topic").SetFieldWidth(32))

	p.form = tview.NewForm().
		AddFormItem(p.theme).
		AddFormItem(p.fontFamily).
		AddFormItem(p.fontSize).
		AddFormItem(p.uiScale).
		AddFormItem(p.mouse).
		AddFormItem(p.debug).
		AddFormItem(p.broker).
		AddFormItem(p.topic).
		AddButton("Save", p.save).
		AddButton("Back", func() { u.showPage(PageTerminal) })
	p.form.SetCancelFunc(func() { u.showPage(PageTerminal) })

	p.frame = NewPageFrame(u.app).
		SetTitle("serterm", "Settings").
		SetContent(p.form).
		SetHelpText("Font settings are used by terminals that support them. MQTT changes apply on restart.")

	p.load()
	return p
}

func (p *settingsPage) load() {
	ui := p.ui.uiConfig()
	idx := max(themeIndex(CurrentTheme().Name), 0)
	p.theme.SetCurrentOption(idx)
	p.fontFamily.SetText(ui.FontFamily)
	p.fontSize.SetText(strconv.Itoa(ui.FontSize))
	p.uiScale.SetText(strconv.FormatFloat(ui.UIScale, 'f', -1, 64))
	p.mouse.SetChecked(ui.Mouse)

	cfg := p.ui.term.Config()
	if cfg == nil {
		return
	}
	p.debug.SetChecked(cfg.DebugLogging())
	b := cfg.MQTTBridge()
	p.broker.SetText(b.Broker)
	p.topic.SetText(b.Topic)
}

// values reads the form back into a UI config.
func (p *settingsPage) values() (config.UI, error) {
	ui := p.ui.uiConfig()

	idx, _ := p.theme.GetCurrentOption()
	if idx >= 0 && idx < len(Themes) {
		ui.Theme = Themes[idx].Name
	}
	ui.FontFamily = strings.TrimSpace(p.fontFamily.GetText())

	size, err := strconv.Atoi(p.fontSize.GetText())
	if err != nil || size <= 0 {
		return ui, ErrInvalidFontSize
	}
	ui.FontSize = size

	scale, err := strconv.ParseFloat(p.uiScale.GetText(), 64)
	if err != nil || scale <= 0 {
		return ui, ErrInvalidUIScale
	}
	ui.UIScale = scale
	ui.Mouse = p.mouse.IsChecked()
	return ui, nil
}

func (p *settingsPage) save() {
	ui, err := p.values()
	if err != nil {
		p.ui.showError("Invalid settings", err)
		return
	}

	debug := p.debug.IsChecked()
	helpers.SetDebug(debug)
	p.ui.app.EnableMouse(ui.Mouse)

	if cfg := p.ui.term.Config(); cfg != nil {
		cfg.SetUI(ui)
		cfg.SetDebugLogging(debug)
		b := cfg.MQTTBridge()
		b.Broker = strings.TrimSpace(p.broker.GetText())
		b.Topic = strings.TrimSpace(p.topic.GetText())
		cfg.SetMQTTBridge(b)
		p.ui.save()
	}

	if ui.Theme != CurrentTheme().Name {
		SetCurrentTheme(ui.Theme)
		p.ui.rebuild()
		p.ui.showPage(PageSettings)
	}
	p.ui.settings.frame.SetHelpText(fmt.Sprintf("Saved. Theme: %s", CurrentTheme().Label))
}
