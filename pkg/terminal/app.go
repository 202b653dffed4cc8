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

// Package terminal is the application object behind the UI. It owns the
// settings, the saved frames and at most one connection: a serial session,
// its poller and an optional auto-send loop.
package terminal

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ZaparooProject/serterm/pkg/config"
	"github.com/ZaparooProject/serterm/pkg/display"
	"github.com/ZaparooProject/serterm/pkg/frames"
	"github.com/ZaparooProject/serterm/pkg/helpers/syncutil"
	"github.com/ZaparooProject/serterm/pkg/poller"
	"github.com/ZaparooProject/serterm/pkg/serial"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const DefaultEventBuffer = 256

var (
	ErrAlreadyConnected = errors.New("already connected")
	ErrNotConnected     = errors.New("not connected")
	ErrEmptyPayload     = errors.New("nothing to send")
	ErrClosed           = errors.New("terminal closed")
)

type EventKind int

const (
	// EventData carries a received chunk and its rendered text.
	EventData EventKind = iota
	// EventClosed is sent once per connection when it ends.
	EventClosed
	// EventError reports a failure from a background send.
	EventError
)

type Event struct {
	Err    error
	Chunk  poller.Chunk
	Text   string
	Reason poller.CloseReason
	Kind   EventKind
}

type SendOptions struct {
	Hex  bool
	CRLF bool
}

type DisplayOptions struct {
	Hex        bool
	Timestamps bool
}

// ChunkListener sees every received chunk on the poller goroutine before
// it is rendered. It must not block.
type ChunkListener func(poller.Chunk)

type Option func(*App)

// WithClock sets the clock driving auto-send.
func WithClock(c clockwork.Clock) Option {
	return func(a *App) {
		a.clock = c
	}
}

func WithPortFactory(f serial.PortFactory) Option {
	return func(a *App) {
		a.factory = f
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(a *App) {
		a.pollInterval = d
	}
}

func WithEventBuffer(n int) Option {
	return func(a *App) {
		a.eventBuffer = n
	}
}

// conn is one connected session. quit is closed when the owner starts
// tearing it down so pending event sends give up.
type conn struct {
	session *serial.Session
	poller  *poller.Poller
	quit    chan struct{}
}

type App struct {
	clock        clockwork.Clock
	cfg          *config.Instance
	frames       *frames.Store
	factory      serial.PortFactory
	conn         *conn
	auto         *autoSender
	events       chan Event
	closed       chan struct{}
	listeners    []ChunkListener
	renderer     display.Renderer
	pollInterval time.Duration
	eventBuffer  int
	sent         atomic.Uint64
	received     atomic.Uint64
	sendOpts     SendOptions
	mu           syncutil.Mutex
	renderMu     syncutil.Mutex
	optsMu       syncutil.RWMutex
	listenersMu  syncutil.RWMutex
	isClosed     bool
}

// NewApp builds the application state from cfg. A nil cfg uses the
// built-in defaults and nothing is persisted.
func NewApp(cfg *config.Instance, opts ...Option) (*App, error) {
	a := &App{
		clock:        clockwork.NewRealClock(),
		cfg:          cfg,
		factory:      serial.DefaultPortFactory,
		pollInterval: poller.DefaultInterval,
		eventBuffer:  DefaultEventBuffer,
		closed:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.eventBuffer < 1 {
		a.eventBuffer = 1
	}
	a.events = make(chan Event, a.eventBuffer)

	var saved []frames.Frame
	if cfg != nil {
		saved = cfg.Frames()
		d := cfg.Display()
		a.renderer.Hex = d.Hex
		a.renderer.Timestamps = d.Timestamps
		s := cfg.Send()
		a.sendOpts = SendOptions{Hex: s.Hex, CRLF: s.CRLF}
	}

	store, err := frames.NewStore(saved...)
	if err != nil {
		return nil, fmt.Errorf("failed to load frames: %w", err)
	}
	a.frames = store

	return a, nil
}

func (a *App) Config() *config.Instance {
	return a.cfg
}

func (a *App) Frames() *frames.Store {
	return a.frames
}

// Events delivers data, close and background error events. It must be
// drained while a connection is up.
func (a *App) Events() <-chan Event {
	return a.events
}

func (a *App) AddChunkListener(l ChunkListener) {
	a.listenersMu.Lock()
	defer a.listenersMu.Unlock()
	a.listeners = append(a.listeners, l)
}

// Connect opens the port and starts polling it.
//
//nolint:gocritic // config copied into the session
func (a *App) Connect(cfg serial.PortConfig) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.isClosed {
		return ErrClosed
	}
	if a.conn != nil {
		return ErrAlreadyConnected
	}

	s, err := serial.Open(cfg, serial.WithPortFactory(a.factory))
	if err != nil {
		return err
	}

	c := &conn{session: s, quit: make(chan struct{})}

	a.renderMu.Lock()
	a.renderer.Reset()
	a.renderMu.Unlock()

	p, err := poller.Start(s,
		func(ch poller.Chunk) { a.deliver(c, ch) },
		poller.WithInterval(a.pollInterval),
		poller.OnClosed(func(r poller.CloseReason) { a.connClosed(c, r) }),
	)
	if err != nil {
		_ = s.Close()
		return fmt.Errorf("failed to start poller: %w", err)
	}
	c.poller = p
	a.conn = c

	if a.cfg != nil {
		a.cfg.SetPortConfig(cfg)
	}

	log.Info().Str("session", s.ID()).Msgf("connected: %s", cfg)
	return nil
}

// Connected reports whether a session is open and returns its config.
func (a *App) Connected() (serial.PortConfig, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn == nil {
		return serial.PortConfig{}, false
	}
	return a.conn.session.Config(), true
}

// Disconnect stops auto-send, joins the poller and closes the session.
// An EventClosed with reason Requested is queued before it returns,
// unless the event buffer is already full.
func (a *App) Disconnect() error {
	a.mu.Lock()
	c := a.conn
	auto := a.auto
	a.conn = nil
	a.auto = nil
	a.mu.Unlock()

	if c == nil {
		return ErrNotConnected
	}

	close(c.quit)
	auto.halt()
	c.poller.Stop()

	if err := c.session.Close(); err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	return nil
}

func (a *App) current() *conn {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conn
}

func (a *App) deliver(c *conn, ch poller.Chunk) {
	a.received.Add(uint64(len(ch.Data)))

	a.listenersMu.RLock()
	for _, l := range a.listeners {
		l(ch)
	}
	a.listenersMu.RUnlock()

	a.renderMu.Lock()
	text := a.renderer.Render(ch)
	a.renderMu.Unlock()

	select {
	case a.events <- Event{Kind: EventData, Chunk: ch, Text: text}:
	case <-c.quit:
	case <-a.closed:
	}
}

// connClosed runs once per connection on the poller's exit path.
func (a *App) connClosed(c *conn, r poller.CloseReason) {
	a.mu.Lock()
	var auto *autoSender
	if a.conn == c {
		a.conn = nil
		auto = a.auto
		a.auto = nil
	}
	a.mu.Unlock()
	auto.halt()

	// a failed write closes the session, which the poller sees as a
	// normal close
	if r.Kind == poller.Requested {
		if err := c.session.Failure(); err != nil {
			r = poller.CloseReason{Kind: poller.DeviceError, Err: err}
		}
	}

	if r.Kind == poller.DeviceError {
		log.Error().Err(r.Err).Str("session", c.session.ID()).Msg("connection lost")
		if err := c.session.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing failed session")
		}
	} else {
		log.Info().Str("session", c.session.ID()).Msg("disconnected")
	}

	a.renderMu.Lock()
	tail := a.renderer.Flush(a.clock.Now())
	a.renderMu.Unlock()

	ev := Event{Kind: EventClosed, Reason: r, Err: r.Err, Text: tail}
	select {
	case a.events <- ev:
		return
	default:
	}

	// an owner tearing the connection down does not wait for a consumer
	select {
	case a.events <- ev:
	case <-c.quit:
		log.Debug().Str("session", c.session.ID()).Msg("event buffer full, close event dropped")
	case <-a.closed:
	}
}

// Write sends raw bytes on the current session.
func (a *App) Write(data []byte) (int, error) {
	c := a.current()
	if c == nil {
		return 0, ErrNotConnected
	}
	return a.writeTo(c, data)
}

func (a *App) writeTo(c *conn, data []byte) (int, error) {
	if len(data) == 0 {
		return 0, ErrEmptyPayload
	}
	n, err := c.session.Write(data)
	a.sent.Add(uint64(n))
	if err != nil {
		return n, fmt.Errorf("send failed: %w", err)
	}
	return n, nil
}

// Send encodes input with the current send options and writes it.
func (a *App) Send(input string) (int, error) {
	opts := a.SendOptions()
	return a.Write(display.EncodeOutbound(input, opts.Hex, opts.CRLF))
}

// SendFrame writes saved frame i, followed by CRLF when that option is on.
func (a *App) SendFrame(i int) (int, error) {
	f, err := a.frames.Get(i)
	if err != nil {
		return 0, err
	}
	data := f.Payload
	if a.SendOptions().CRLF {
		data = append(data, '\r', '\n')
	}
	return a.Write(data)
}

func (a *App) SetControlSignal(sig serial.Signal, value bool) error {
	c := a.current()
	if c == nil {
		return ErrNotConnected
	}
	if err := c.session.SetControlSignal(sig, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", sig, err)
	}
	return nil
}

func (a *App) SendOptions() SendOptions {
	a.optsMu.RLock()
	defer a.optsMu.RUnlock()
	return a.sendOpts
}

func (a *App) SetSendOptions(o SendOptions) {
	a.optsMu.Lock()
	defer a.optsMu.Unlock()
	a.sendOpts = o
}

func (a *App) DisplayOptions() DisplayOptions {
	a.renderMu.Lock()
	defer a.renderMu.Unlock()
	return DisplayOptions{Hex: a.renderer.Hex, Timestamps: a.renderer.Timestamps}
}

// SetDisplayOptions applies to chunks rendered from now on.
func (a *App) SetDisplayOptions(o DisplayOptions) {
	a.renderMu.Lock()
	defer a.renderMu.Unlock()
	a.renderer.Hex = o.Hex
	a.renderer.Timestamps = o.Timestamps
}

func (a *App) Counters() (sent, received uint64) {
	return a.sent.Load(), a.received.Load()
}

// ClearReceived resets the received counter and the renderer's line state.
func (a *App) ClearReceived() {
	a.received.Store(0)
	a.renderMu.Lock()
	a.renderer.Reset()
	a.renderMu.Unlock()
}

func (a *App) ClearSent() {
	a.sent.Store(0)
}

// SaveSettings copies the live options and frames into the config and
// writes it.
func (a *App) SaveSettings() error {
	if a.cfg == nil {
		return nil
	}

	d := a.cfg.Display()
	opts := a.DisplayOptions()
	d.Hex, d.Timestamps = opts.Hex, opts.Timestamps
	a.cfg.SetDisplay(d)

	s := a.cfg.Send()
	so := a.SendOptions()
	s.Hex, s.CRLF = so.Hex, so.CRLF
	a.cfg.SetSend(s)

	a.cfg.SetFrames(a.frames.List())

	if err := a.cfg.Save(); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// Close releases pending event sends, disconnects and saves settings.
// Events still unsent are dropped. The App cannot be reused.
func (a *App) Close() error {
	a.mu.Lock()
	if a.isClosed {
		a.mu.Unlock()
		return nil
	}
	a.isClosed = true
	a.mu.Unlock()

	close(a.closed)

	var errs []error
	if err := a.Disconnect(); err != nil && !errors.Is(err, ErrNotConnected) {
		errs = append(errs, err)
	}
	if err := a.SaveSettings(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
