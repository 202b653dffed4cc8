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
	"time"

	"github.com/ZaparooProject/serterm/pkg/config"
	"github.com/ZaparooProject/serterm/pkg/serial"
	"github.com/ZaparooProject/serterm/pkg/terminal"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// MaxReceivedLines caps the receive view; older lines scroll away.
const MaxReceivedLines = 5000

const (
	buttonConnect = iota
	buttonDTR
	buttonRTS
)

type terminalPage struct {
	ui         *UI
	frame      *PageFrame
	status     *tview.TextView
	recv       *tview.TextView
	hexView    *tview.Checkbox
	timestamps *tview.Checkbox
	autoScroll *tview.Checkbox
	sendHex    *tview.Checkbox
	crlf       *tview.Checkbox
	autoSend   *tview.Checkbox
	input      *tview.InputField
	interval   *tview.InputField
	buttons    *ButtonBar
	ring       *focusRing
	dtr        bool
	rts        bool
}

func newCheckbox(label string, checked bool, changed func(bool)) *tview.Checkbox {
	return tview.NewCheckbox().
		SetLabel(label + " ").
		SetChecked(checked).
		SetChangedFunc(changed)
}

func newTerminalPage(u *UI) *terminalPage {
	p := &terminalPage{ui: u}

	display := u.term.DisplayOptions()
	send := u.term.SendOptions()
	autoScroll := true
	intervalMs := config.DefaultAutoSendIntervalMs
	if cfg := u.term.Config(); cfg != nil {
		autoScroll = cfg.Display().AutoScroll
		intervalMs = int(cfg.AutoSendInterval() / time.Millisecond)
	}

	p.status = tview.NewTextView().SetDynamicColors(true)

	p.recv = tview.NewTextView().
		SetDynamicColors(false).
		SetScrollable(true).
		SetWrap(true).
		SetMaxLines(MaxReceivedLines)
	p.recv.SetBorder(true).SetTitle(" Received ")

	p.hexView = newCheckbox("Hex view", display.Hex, func(bool) { p.applyDisplay() })
	p.timestamps = newCheckbox("Timestamps", display.Timestamps, func(bool) { p.applyDisplay() })
	p.autoScroll = newCheckbox("Autoscroll", autoScroll, p.setAutoScroll)
	p.sendHex = newCheckbox("Send hex", send.Hex, func(bool) { p.applySend() })
	p.crlf = newCheckbox("CR+LF", send.CRLF, func(bool) { p.applySend() })

	options := tview.NewFlex()
	for _, cb := range []*tview.Checkbox{p.hexView, p.timestamps, p.autoScroll, p.sendHex, p.crlf} {
		options.AddItem(cb, len(cb.GetLabel())+4, 0, false)
	}
	options.AddItem(nil, 0, 1, false)

	p.input = setupInputFieldFocus(tview.NewInputField().SetLabel("Send: "))
	p.input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			p.send()
		}
	})
	p.input.SetInputCapture(p.historyKeys)

	p.interval = setupInputFieldFocus(tview.NewInputField().
		SetLabel(" Every ms: ").
		SetFieldWidth(8).
		SetAcceptanceFunc(tview.InputFieldInteger).
		SetText(strconv.Itoa(intervalMs)))
	p.autoSend = newCheckbox(" Auto-send", u.term.AutoSending(), p.toggleAutoSend)

	sendRow := tview.NewFlex().
		AddItem(p.input, 0, 1, true).
		AddItem(p.interval, 19, 0, false).
		AddItem(p.autoSend, 14, 0, false)

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(p.status, 1, 0, false).
		AddItem(p.recv, 0, 1, false).
		AddItem(options, 1, 0, false).
		AddItem(sendRow, 1, 0, true)

	p.buttons = NewButtonBar().
		AddButton("Connect", "Open or close the port from the Port page settings.", p.toggleConnection).
		AddButton("DTR: off", "Toggle the DTR line.", func() { p.toggleSignal(serial.SignalDTR) }).
		AddButton("RTS: off", "Toggle the RTS line.", func() { p.toggleSignal(serial.SignalRTS) }).
		AddButton("Send break", "Send a 250ms break on the line.", p.sendBreak).
		AddButton("Clear RX", "Clear the received text and counter.", p.clearReceived).
		AddButton("Clear TX", "Reset the sent counter.", p.clearSent)

	p.frame = NewPageFrame(u.app).
		SetTitle("serterm", "Terminal").
		SetContent(layout).
		SetButtonBar(p.buttons).
		SetHelpText("Type and press Enter to send. Tab moves between controls.")

	p.ring = newFocusRing(u.app,
		p.input, p.interval, p.autoSend,
		p.hexView, p.timestamps, p.autoScroll, p.sendHex, p.crlf,
		p.recv, p.buttons,
	)

	p.refreshStatus()
	return p
}

func (p *terminalPage) setMessage(text string) {
	p.frame.SetHelpText(text)
}

func (p *terminalPage) appendReceived(text string) {
	if text == "" {
		return
	}
	_, _ = p.recv.Write([]byte(text))
	if p.autoScroll.IsChecked() {
		p.recv.ScrollToEnd()
	}
}

func (p *terminalPage) refreshStatus() {
	t := CurrentTheme()
	pc, connected := p.ui.term.Connected()
	sent, received := p.ui.term.Counters()

	state := colorText(tag(t.Dim), "Disconnected")
	if connected {
		state = colorText(tag(t.OK), "Connected") + " " + tview.Escape(pc.String())
		p.buttons.SetLabel(buttonConnect, "Disconnect")
	} else {
		p.buttons.SetLabel(buttonConnect, "Connect")
	}

	auto := ""
	sending := p.ui.term.AutoSending()
	if sending {
		auto = " | " + colorText(tag(t.Accent), "auto-send")
	}
	p.autoSend.SetChecked(sending)

	p.status.SetText(fmt.Sprintf("%s | TX %d B | RX %d B%s", state, sent, received, auto))
}

func (p *terminalPage) applyDisplay() {
	p.ui.term.SetDisplayOptions(terminal.DisplayOptions{
		Hex:        p.hexView.IsChecked(),
		Timestamps: p.timestamps.IsChecked(),
	})
}

func (p *terminalPage) applySend() {
	p.ui.term.SetSendOptions(terminal.SendOptions{
		Hex:  p.sendHex.IsChecked(),
		CRLF: p.crlf.IsChecked(),
	})
}

func (p *terminalPage) setAutoScroll(on bool) {
	if cfg := p.ui.term.Config(); cfg != nil {
		d := cfg.Display()
		d.AutoScroll = on
		cfg.SetDisplay(d)
	}
	if on {
		p.recv.ScrollToEnd()
		return
	}
	row, col := p.recv.GetScrollOffset()
	p.recv.ScrollTo(row, col)
}

func (p *terminalPage) historyKeys(event *tcell.EventKey) *tcell.EventKey {
	var (
		line string
		ok   bool
	)
	switch event.Key() { //nolint:exhaustive
	case tcell.KeyUp:
		line, ok = p.ui.session.PrevHistory()
	case tcell.KeyDown:
		line, ok = p.ui.session.NextHistory()
	default:
		return event
	}
	if ok {
		p.input.SetText(line)
	}
	return nil
}

func (p *terminalPage) send() {
	text := p.input.GetText()
	n, err := p.ui.term.Send(text)
	switch {
	case errors.Is(err, terminal.ErrEmptyPayload):
		p.setMessage("Nothing to send")
		return
	case err != nil:
		p.setMessage(errorText("Send failed", err))
		return
	}
	p.ui.session.PushHistory(text)
	p.input.SetText("")
	p.setMessage(fmt.Sprintf("Sent %d bytes", n))
	p.refreshStatus()
}

func (p *terminalPage) intervalValue() time.Duration {
	ms, err := strconv.Atoi(p.interval.GetText())
	if err != nil {
		ms = config.DefaultAutoSendIntervalMs
	}
	return config.ClampAutoSendInterval(time.Duration(ms) * time.Millisecond)
}

func (p *terminalPage) toggleAutoSend(on bool) {
	if !on {
		p.ui.term.StopAutoSend()
		p.setMessage("Auto-send stopped")
		p.refreshStatus()
		return
	}

	interval := p.intervalValue()
	p.interval.SetText(strconv.FormatInt(interval.Milliseconds(), 10))
	if _, err := p.ui.term.StartAutoSend(p.input.GetText(), interval); err != nil {
		p.autoSend.SetChecked(false)
		p.setMessage(errorText("Auto-send", err))
		return
	}
	p.setMessage("Auto-sending every " + interval.String())
	p.refreshStatus()
}

func (p *terminalPage) toggleConnection() {
	if _, connected := p.ui.term.Connected(); connected {
		p.ui.disconnect()
		return
	}
	pc := p.ui.portDefaults()
	if pc.Device == "" {
		p.ui.showPage(PagePort)
		p.ui.port.frame.SetHelpText("Choose a port, then Connect.")
		return
	}
	p.ui.connect(pc)
}

func (p *terminalPage) signal(sig serial.Signal) *bool {
	if sig == serial.SignalDTR {
		return &p.dtr
	}
	return &p.rts
}

func (p *terminalPage) toggleSignal(sig serial.Signal) {
	state := p.signal(sig)
	if err := p.ui.term.SetControlSignal(sig, !*state); err != nil {
		p.setMessage(errorText(sig.String(), err))
		return
	}
	*state = !*state
	p.updateSignalLabels()
}

func (p *terminalPage) resetSignals() {
	p.dtr, p.rts = false, false
	p.updateSignalLabels()
}

func (p *terminalPage) updateSignalLabels() {
	onOff := func(v bool) string {
		if v {
			return "on"
		}
		return "off"
	}
	p.buttons.SetLabel(buttonDTR, "DTR: "+onOff(p.dtr))
	p.buttons.SetLabel(buttonRTS, "RTS: "+onOff(p.rts))
}

func (p *terminalPage) sendBreak() {
	p.setMessage("Sending break...")
	p.ui.wg.Add(1)
	go func() {
		defer p.ui.wg.Done()
		err := p.ui.term.SetControlSignal(serial.SignalBreak, true)
		p.ui.post(func() {
			if err != nil {
				p.setMessage(errorText("Break", err))
				return
			}
			p.setMessage("Break sent")
		})
	}()
}

func (p *terminalPage) clearReceived() {
	p.recv.Clear()
	p.ui.term.ClearReceived()
	p.refreshStatus()
}

func (p *terminalPage) clearSent() {
	p.ui.term.ClearSent()
	p.refreshStatus()
}
