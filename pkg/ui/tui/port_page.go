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
	"slices"
	"strconv"
	"strings"

	"github.com/ZaparooProject/serterm/pkg/serial"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"
)

var (
	dataBitsOptions = []string{"5", "6", "7", "8"}
	stopBitsOptions = []string{
		string(serial.StopBitsOne),
		string(serial.StopBitsOnePointFive),
		string(serial.StopBitsTwo),
	}
	parityOptions = []string{
		string(serial.ParityNone),
		string(serial.ParityOdd),
		string(serial.ParityEven),
	}
	flowOptions = []string{serial.FlowNone, serial.FlowRTSCTS, serial.FlowXONXOFF, serial.FlowBoth}
)

type portPage struct {
	ui       *UI
	frame    *PageFrame
	form     *tview.Form
	ports    *tview.DropDown
	device   *tview.InputField
	baud     *tview.InputField
	dataBits *tview.DropDown
	stopBits *tview.DropDown
	parity   *tview.DropDown
	flow     *tview.DropDown
	known    []serial.PortInfo
}

func newPortPage(u *UI) *portPage {
	p := &portPage{ui: u}

	p.ports = tview.NewDropDown().SetLabel("Detected")
	p.device = setupInputFieldFocus(tview.NewInputField().SetLabel("Device").SetFieldWidth(32))
	p.baud = setupInputFieldFocus(tview.NewInputField().
		SetLabel("Baud rate").
		SetFieldWidth(10).
		SetAcceptanceFunc(tview.InputFieldInteger).
		SetAutocompleteFunc(baudCompletions))
	p.dataBits = tview.NewDropDown().SetLabel("Data bits").SetOptions(dataBitsOptions, nil)
	p.stopBits = tview.NewDropDown().SetLabel("Stop bits").SetOptions(stopBitsOptions, nil)
	p.parity = tview.NewDropDown().SetLabel("Parity").SetOptions(parityOptions, nil)
	p.flow = tview.NewDropDown().SetLabel("Flow control").SetOptions(flowOptions, nil)

	p.form = tview.NewForm().
		AddFormItem(p.ports).
		AddFormItem(p.device).
		AddFormItem(p.baud).
		AddFormItem(p.dataBits).
		AddFormItem(p.stopBits).
		AddFormItem(p.parity).
		AddFormItem(p.flow).
		AddButton("Connect", p.connect).
		AddButton("Save", p.save).
		AddButton("Refresh", p.refresh).
		AddButton("Back", func() { u.showPage(PageTerminal) })
	p.form.SetCancelFunc(func() { u.showPage(PageTerminal) })

	p.frame = NewPageFrame(u.app).
		SetTitle("serterm", "Port").
		SetContent(p.form).
		SetHelpText("Pick a detected port or type a device path.")

	p.setPorts(nil)
	p.load()
	return p
}

func baudCompletions(current string) []string {
	var out []string
	for _, rate := range serial.CommonBaudRates {
		s := strconv.Itoa(rate)
		if strings.HasPrefix(s, current) && s != current {
			out = append(out, s)
		}
	}
	return out
}

// setPorts replaces the detected list, keeping the device field as is.
func (p *portPage) setPorts(list []serial.PortInfo) {
	p.known = list
	labels := make([]string, len(list))
	for i, info := range list {
		labels[i] = info.String()
	}
	if len(labels) == 0 {
		labels = []string{"(no ports found)"}
	}
	p.ports.SetOptions(labels, nil)

	current := strings.TrimSpace(p.device.GetText())
	idx := slices.IndexFunc(list, func(info serial.PortInfo) bool { return info.Name == current })
	p.ports.SetCurrentOption(idx)
	p.ports.SetSelectedFunc(p.portSelected)
}

func (p *portPage) portSelected(_ string, index int) {
	if index < 0 || index >= len(p.known) {
		return
	}
	p.device.SetText(p.known[index].Name)
}

func selectOption(dd *tview.DropDown, options []string, value string) {
	idx := slices.Index(options, value)
	if idx < 0 {
		idx = 0
	}
	dd.SetCurrentOption(idx)
}

// load fills the form from the saved port settings.
func (p *portPage) load() {
	pc := p.ui.portDefaults()
	if current, ok := p.ui.term.Connected(); ok {
		pc = current
	}
	p.device.SetText(pc.Device)
	p.baud.SetText(strconv.Itoa(pc.BaudRate))
	selectOption(p.dataBits, dataBitsOptions, strconv.Itoa(pc.DataBits))
	selectOption(p.stopBits, stopBitsOptions, string(pc.StopBits))
	selectOption(p.parity, parityOptions, string(pc.Parity))
	selectOption(p.flow, flowOptions, serial.FlowName(pc.SoftwareFlow, pc.HardwareFlow))
}

func (p *portPage) portConfig() (serial.PortConfig, error) {
	pc := p.ui.portDefaults()
	pc.Device = strings.TrimSpace(p.device.GetText())

	baud, err := strconv.Atoi(p.baud.GetText())
	if err != nil {
		return pc, fmt.Errorf("invalid baud rate %q", p.baud.GetText())
	}
	pc.BaudRate = baud

	_, dataBits := p.dataBits.GetCurrentOption()
	if pc.DataBits, err = strconv.Atoi(dataBits); err != nil {
		return pc, fmt.Errorf("invalid data bits %q", dataBits)
	}
	_, stopBits := p.stopBits.GetCurrentOption()
	if pc.StopBits, err = serial.ParseStopBits(stopBits); err != nil {
		return pc, err
	}
	_, parity := p.parity.GetCurrentOption()
	if pc.Parity, err = serial.ParseParity(parity); err != nil {
		return pc, err
	}
	_, flow := p.flow.GetCurrentOption()
	if pc.SoftwareFlow, pc.HardwareFlow, err = serial.ParseFlow(flow); err != nil {
		return pc, err
	}

	if err := pc.Validate(); err != nil {
		return pc, err
	}
	return pc, nil
}

func (p *portPage) connect() {
	pc, err := p.portConfig()
	if err != nil {
		p.ui.showError("Invalid settings", err)
		return
	}
	p.ui.connect(pc)
}

func (p *portPage) save() {
	pc, err := p.portConfig()
	if err != nil {
		p.ui.showError("Invalid settings", err)
		return
	}
	cfg := p.ui.term.Config()
	if cfg == nil {
		return
	}
	cfg.SetPortConfig(pc)
	p.ui.save()
	p.frame.SetHelpText("Saved " + tview.Escape(pc.String()))
}

func (p *portPage) refresh() {
	if p.ui.watcher != nil {
		p.ui.watcher.Refresh()
		return
	}
	p.ui.wg.Add(1)
	go func() {
		defer p.ui.wg.Done()
		list, err := serial.ListPorts()
		if err != nil {
			log.Warn().Err(err).Msg("failed to list serial ports")
		}
		p.ui.post(func() { p.setPorts(list) })
	}()
}
