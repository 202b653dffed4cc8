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
	"sync"
	"time"

	"github.com/ZaparooProject/serterm/pkg/config"
	"github.com/ZaparooProject/serterm/pkg/helpers/syncutil"
	"github.com/ZaparooProject/serterm/pkg/poller"
	"github.com/ZaparooProject/serterm/pkg/serial"
	"github.com/ZaparooProject/serterm/pkg/terminal"
	"github.com/gdamore/tcell/v2"
	"github.com/jonboulle/clockwork"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const (
	PageTerminal = "terminal"
	PagePort     = "port"
	PageFrames   = "frames"
	PageSettings = "settings"
	PageModal    = "modal"
)

// StatusRefreshInterval is how often counters are redrawn. Auto-send
// writes produce no events, so the status line is also refreshed on a
// timer.
const StatusRefreshInterval = 500 * time.Millisecond

var ErrNoTerminal = errors.New("terminal app is required")

type Option func(*UI)

func WithSession(s *Session) Option {
	return func(u *UI) {
		u.session = s
	}
}

// WithWatcher keeps the port list fresh while the UI runs. The UI starts
// and stops the watcher.
func WithWatcher(w *serial.Watcher) Option {
	return func(u *UI) {
		u.watcher = w
	}
}

func WithScreen(s tcell.Screen) Option {
	return func(u *UI) {
		u.screen = s
	}
}

func WithClock(c clockwork.Clock) Option {
	return func(u *UI) {
		u.clock = c
	}
}

// WithFs sets the filesystem used for frame import and export.
func WithFs(fs afero.Fs) Option {
	return func(u *UI) {
		u.fs = fs
	}
}

// UI is the interactive front end of a terminal.App. Everything that
// touches widgets runs on the tview goroutine; background work hands
// results back through post.
type UI struct {
	clock     clockwork.Clock
	fs        afero.Fs
	screen    tcell.Screen
	app       *tview.Application
	term      *terminal.App
	session   *Session
	watcher   *serial.Watcher
	pages     *tview.Pages
	terminal  *terminalPage
	port      *portPage
	frames    *framesPage
	settings  *settingsPage
	stop      chan struct{}
	pending   []func()
	wg        sync.WaitGroup
	pendingMu syncutil.Mutex
	stopOnce  sync.Once
	scheduled bool
}

func BuildMain(term *terminal.App, opts ...Option) (*UI, error) {
	if term == nil {
		return nil, ErrNoTerminal
	}

	u := &UI{
		clock: clockwork.NewRealClock(),
		fs:    afero.NewOsFs(),
		app:   tview.NewApplication(),
		term:  term,
		stop:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.session == nil {
		u.session = NewSession()
	}
	if u.screen != nil {
		u.app.SetScreen(u.screen)
	}

	ui := u.uiConfig()
	if !SetCurrentTheme(ui.Theme) {
		log.Warn().Str("theme", ui.Theme).Msg("unknown theme, using default")
		SetCurrentTheme(DefaultTheme)
	}
	u.app.EnableMouse(ui.Mouse)
	u.app.SetInputCapture(u.globalKeys)
	u.buildPages()

	return u, nil
}

func (u *UI) App() *tview.Application {
	return u.app
}

// Run blocks until the user quits. Background goroutines are joined
// before it returns; the terminal.App is left for the caller to close.
func (u *UI) Run() error {
	if u.watcher != nil {
		if err := u.watcher.Start(); err != nil {
			log.Warn().Err(err).Msg("port watcher disabled")
		} else {
			u.wg.Add(1)
			go u.watchPorts()
		}
	}

	u.wg.Add(2)
	go u.pump()
	go u.tick()

	err := u.app.Run()
	u.shutdown()
	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

func (u *UI) Stop() {
	u.app.Stop()
}

func (u *UI) shutdown() {
	u.stopOnce.Do(func() {
		close(u.stop)
		if u.watcher != nil {
			u.watcher.Stop()
		}
		u.wg.Wait()
	})
}

func (u *UI) uiConfig() config.UI {
	if cfg := u.term.Config(); cfg != nil {
		return cfg.UI()
	}
	return config.BaseDefaults.UI
}

func (u *UI) portDefaults() serial.PortConfig {
	if cfg := u.term.Config(); cfg != nil {
		return cfg.PortConfig()
	}
	return serial.DefaultPortConfig("")
}

func (u *UI) buildPages() {
	u.pages = tview.NewPages()
	u.terminal = newTerminalPage(u)
	u.port = newPortPage(u)
	u.frames = newFramesPage(u)
	u.settings = newSettingsPage(u)

	u.pages.AddPage(PageTerminal, u.terminal.frame, true, false)
	u.pages.AddPage(PagePort, u.port.frame, true, false)
	u.pages.AddPage(PageFrames, u.frames.frame, true, false)
	u.pages.AddPage(PageSettings, u.settings.frame, true, false)

	u.app.SetRoot(u.pages, true)
	u.showPage(u.session.LastPage())
}

// rebuild recreates every page so a new theme takes effect. Received
// text and the send line survive.
func (u *UI) rebuild() {
	received := u.terminal.recv.GetText(false)
	input := u.terminal.input.GetText()
	u.buildPages()
	u.terminal.recv.SetText(received)
	u.terminal.input.SetText(input)
	u.terminal.refreshStatus()
}

func (u *UI) showPage(name string) {
	var target tview.Primitive
	switch name {
	case PagePort:
		u.port.load()
		target = u.port.frame
	case PageFrames:
		u.frames.reload()
		target = u.frames.frame
	case PageSettings:
		u.settings.load()
		target = u.settings.frame
	default:
		name = PageTerminal
		u.terminal.refreshStatus()
		target = u.terminal.frame
	}
	u.pages.RemovePage(PageModal)
	u.pages.SwitchToPage(name)
	u.session.SetLastPage(name)
	u.app.SetFocus(target)
}

func (u *UI) frontPage() string {
	name, _ := u.pages.GetFrontPage()
	return name
}

func (u *UI) globalKeys(event *tcell.EventKey) *tcell.EventKey {
	if event.Key() == tcell.KeyCtrlQ {
		u.app.Stop()
		return nil
	}

	front := u.frontPage()
	if front == PageModal {
		return event
	}

	switch event.Key() { //nolint:exhaustive
	case tcell.KeyF1:
		u.showPage(PageTerminal)
		return nil
	case tcell.KeyF2:
		u.showPage(PagePort)
		return nil
	case tcell.KeyF3:
		u.showPage(PageFrames)
		return nil
	case tcell.KeyF4:
		u.showPage(PageSettings)
		return nil
	case tcell.KeyTab, tcell.KeyBacktab:
		var ring *focusRing
		switch front {
		case PageTerminal:
			ring = u.terminal.ring
		case PageFrames:
			ring = u.frames.ring
		}
		if ring == nil {
			return event
		}
		if event.Key() == tcell.KeyTab {
			ring.move(1)
		} else {
			ring.move(-1)
		}
		return nil
	}
	return event
}

// post runs fn on the UI goroutine. Calls made while an update is already
// queued are batched into it, so post never blocks the caller.
func (u *UI) post(fn func()) {
	u.pendingMu.Lock()
	u.pending = append(u.pending, fn)
	if u.scheduled {
		u.pendingMu.Unlock()
		return
	}
	u.scheduled = true
	u.pendingMu.Unlock()
	u.app.QueueUpdateDraw(u.runPending)
}

func (u *UI) runPending() {
	u.pendingMu.Lock()
	fns := u.pending
	u.pending = nil
	u.scheduled = false
	u.pendingMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (u *UI) pump() {
	defer u.wg.Done()
	for {
		select {
		case <-u.stop:
			return
		case ev := <-u.term.Events():
			u.post(func() { u.handleEvent(ev) })
		}
	}
}

func (u *UI) tick() {
	defer u.wg.Done()
	ticker := u.clock.NewTicker(StatusRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-u.stop:
			return
		case <-ticker.Chan():
			u.post(func() { u.terminal.refreshStatus() })
		}
	}
}

func (u *UI) watchPorts() {
	defer u.wg.Done()
	for {
		select {
		case <-u.stop:
			return
		case list, ok := <-u.watcher.Updates():
			if !ok {
				return
			}
			u.post(func() { u.port.setPorts(list) })
		}
	}
}

func (u *UI) handleEvent(ev terminal.Event) {
	switch ev.Kind {
	case terminal.EventData:
		u.terminal.appendReceived(ev.Text)
	case terminal.EventClosed:
		u.terminal.appendReceived(ev.Text)
		u.terminal.resetSignals()
		if ev.Reason.Kind == poller.DeviceError {
			u.terminal.setMessage(errorText("Connection lost", ev.Reason.Err))
			u.showError("Connection lost", ev.Reason.Err)
		} else {
			u.terminal.setMessage("Disconnected")
		}
	case terminal.EventError:
		u.terminal.setMessage(errorText("Error", ev.Err))
	}
	u.terminal.refreshStatus()
}

// connect replaces any open connection with one using pc. The blocking
// calls run off the UI goroutine.
//
//nolint:gocritic // config copied into the goroutine
func (u *UI) connect(pc serial.PortConfig) {
	u.terminal.setMessage("Connecting to " + tview.Escape(pc.Device) + "...")
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		if err := u.term.Disconnect(); err != nil && !errors.Is(err, terminal.ErrNotConnected) {
			log.Warn().Err(err).Msg("error closing previous connection")
		}
		err := u.term.Connect(pc)
		u.post(func() {
			if err != nil {
				u.terminal.setMessage(errorText("Connect failed", err))
				u.showError("Connect failed", err)
				return
			}
			u.terminal.setMessage("Connected to " + tview.Escape(pc.String()))
			u.showPage(PageTerminal)
		})
	}()
}

func (u *UI) disconnect() {
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		err := u.term.Disconnect()
		u.post(func() {
			if err != nil && !errors.Is(err, terminal.ErrNotConnected) {
				u.terminal.setMessage(errorText("Disconnect failed", err))
			}
			u.terminal.refreshStatus()
		})
	}()
}

func (u *UI) save() {
	if err := u.term.SaveSettings(); err != nil {
		log.Error().Err(err).Msg("failed to save settings")
		u.showError("Save failed", err)
	}
}

func (u *UI) showError(title string, err error) {
	u.showModal(title, err.Error())
}

func (u *UI) showModal(title, text string) {
	modal := tview.NewModal().
		SetText(text).
		AddButtons([]string{"OK"}).
		SetDoneFunc(func(int, string) { u.closeModal() })
	modal.SetTitle(" " + title + " ").SetBorder(true)
	u.pages.AddPage(PageModal, modal, true, true)
	u.app.SetFocus(modal)
}

func (u *UI) showForm(title string, form *tview.Form, width, height int) {
	form.SetBorder(true).
		SetTitle(" " + title + " ").
		SetTitleAlign(tview.AlignCenter)
	form.SetCancelFunc(u.closeModal)
	u.pages.AddPage(PageModal, centered(form, width, height), true, true)
	u.app.SetFocus(form)
}

func (u *UI) closeModal() {
	u.pages.RemovePage(PageModal)
	u.showPage(u.session.LastPage())
}
