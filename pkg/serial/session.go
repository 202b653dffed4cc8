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

package serial

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ZaparooProject/serterm/pkg/helpers/syncutil"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Signal int

const (
	SignalDTR Signal = iota
	SignalRTS
	SignalBreak
)

func (s Signal) String() string {
	switch s {
	case SignalDTR:
		return "DTR"
	case SignalRTS:
		return "RTS"
	case SignalBreak:
		return "Break"
	default:
		return fmt.Sprintf("signal(%d)", int(s))
	}
}

const (
	// BreakDuration is how long the line is held in break when the Break
	// signal is raised. The backend only supports timed breaks.
	BreakDuration = 250 * time.Millisecond

	readChunkSize  = 4096
	maxPendingSize = 64 * 1024
)

type options struct {
	factory PortFactory
}

type Option func(*options)

// WithPortFactory replaces the transport used to open the device.
func WithPortFactory(f PortFactory) Option {
	return func(o *options) {
		o.factory = f
	}
}

// Session owns one open serial device. Writes and control signals belong
// to the owner, reads belong to a single poller; each side has its own
// lock so the two never touch the transport for the same operation at
// once.
type Session struct {
	port     Port
	id       string
	pending  []byte
	pollErr  error
	cfg      PortConfig
	timeout  time.Duration
	sent     atomic.Uint64
	received atomic.Uint64
	writeMu  syncutil.Mutex
	readMu   syncutil.Mutex   // protects pending, pollErr, timeout
	failure  *IOError
	mu       syncutil.RWMutex // protects port, open, failure
	open     bool
}

// Open validates cfg and acquires the device.
func Open(cfg PortConfig, opts ...Option) (*Session, error) {
	o := options{factory: DefaultPortFactory}
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	port, err := o.factory(cfg)
	if err != nil {
		return nil, classifyOpenError(cfg.Device, err)
	}

	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		if closeErr := port.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Str("device", cfg.Device).Msg("failed to close port after timeout error")
		}
		return nil, &OpenError{
			Device: cfg.Device,
			Kind:   InvalidParameters,
			Err:    fmt.Errorf("failed to set read timeout: %w", err),
		}
	}

	s := &Session{
		port:    port,
		cfg:     cfg,
		id:      uuid.New().String()[:8],
		timeout: cfg.ReadTimeout,
		open:    true,
	}

	log.Info().
		Str("session", s.id).
		Str("port", cfg.String()).
		Msg("opened serial port")

	return s, nil
}

func (s *Session) ID() string {
	return s.id
}

// Config returns the copy of the config the session was opened with.
func (s *Session) Config() PortConfig {
	return s.cfg
}

func (s *Session) IsOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.open
}

// SentBytes is the running total of bytes written on this session.
func (s *Session) SentBytes() uint64 {
	return s.sent.Load()
}

// ReceivedBytes is the running total of bytes returned by ReadAvailable.
func (s *Session) ReceivedBytes() uint64 {
	return s.received.Load()
}

func (s *Session) ResetCounters(sent, received bool) {
	if sent {
		s.sent.Store(0)
	}
	if received {
		s.received.Store(0)
	}
}

func (s *Session) livePort() (Port, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.port, s.open
}

// Write sends p and returns the number of bytes the transport accepted.
// A transport failure closes the session.
func (s *Session) Write(p []byte) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	port, open := s.livePort()
	if !open {
		return 0, notOpen("write")
	}

	n, err := port.Write(p)
	if n > 0 {
		s.sent.Add(uint64(n))
	}
	if err != nil {
		if !s.IsOpen() {
			return n, notOpen("write")
		}
		return n, s.closeOnError("write", err)
	}

	return n, nil
}

// PollAvailable reports how many bytes are ready for ReadAvailable. It
// never waits: bytes are pulled from the transport with a zero timeout
// into the session's pending buffer. A failed read counts as one ready
// byte so the caller goes on to ReadAvailable and gets the error.
func (s *Session) PollAvailable() int {
	s.readMu.Lock()
	defer s.readMu.Unlock()

	port, open := s.livePort()
	if !open {
		return 0
	}

	if s.pollErr != nil {
		return max(len(s.pending), 1)
	}
	if len(s.pending) >= maxPendingSize {
		return len(s.pending)
	}

	if err := s.setTimeoutLocked(port, 0); err != nil {
		s.pollErr = err
		return max(len(s.pending), 1)
	}

	buf := make([]byte, readChunkSize)
	n, err := port.Read(buf)
	if n > 0 {
		s.pending = append(s.pending, buf[:n]...)
	}
	if err != nil {
		log.Debug().Err(err).Str("session", s.id).Msg("poll read failed")
		s.pollErr = err
		return max(len(s.pending), 1)
	}

	return len(s.pending)
}

// ReadAvailable returns whatever PollAvailable buffered. With nothing
// buffered it does one read that waits at most the configured timeout.
// Buffered bytes are handed out before a read error PollAvailable hit.
func (s *Session) ReadAvailable() ([]byte, error) {
	s.readMu.Lock()
	defer s.readMu.Unlock()

	port, open := s.livePort()
	if !open {
		return nil, notOpen("read")
	}

	if len(s.pending) > 0 {
		out := s.pending
		s.pending = nil
		s.received.Add(uint64(len(out)))
		return out, nil
	}

	if s.pollErr != nil {
		err := s.pollErr
		s.pollErr = nil
		return nil, s.readFailed(err)
	}

	if err := s.setTimeoutLocked(port, s.cfg.ReadTimeout); err != nil {
		return nil, s.readFailed(err)
	}

	buf := make([]byte, readChunkSize)
	n, err := port.Read(buf)
	if err != nil {
		return nil, s.readFailed(err)
	}
	if n == 0 {
		return nil, nil
	}

	s.received.Add(uint64(n))
	return buf[:n], nil
}

func (s *Session) readFailed(err error) error {
	if !s.IsOpen() {
		return notOpen("read")
	}
	return s.closeOnError("read", err)
}

func (s *Session) setTimeoutLocked(port Port, t time.Duration) error {
	if s.timeout == t {
		return nil
	}
	if err := port.SetReadTimeout(t); err != nil {
		return fmt.Errorf("failed to set read timeout: %w", err)
	}
	s.timeout = t
	return nil
}

// SetControlSignal drives DTR or RTS, or sends a break when Break is
// raised. Lowering Break is a no-op.
func (s *Session) SetControlSignal(sig Signal, value bool) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	port, open := s.livePort()
	if !open {
		return notOpen("set " + sig.String())
	}

	var err error
	switch sig {
	case SignalDTR:
		err = port.SetDTR(value)
	case SignalRTS:
		err = port.SetRTS(value)
	case SignalBreak:
		if value {
			err = port.Break(BreakDuration)
		}
	default:
		return fmt.Errorf("unknown control signal: %d", int(sig))
	}
	if err != nil {
		return &IOError{Op: "set " + sig.String(), Kind: TransportError, Err: err}
	}

	log.Debug().Str("session", s.id).Stringer("signal", sig).Bool("value", value).Msg("control signal set")
	return nil
}

// Close releases the device. Calling it again is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return nil
	}
	s.open = false

	log.Info().Str("session", s.id).Str("device", s.cfg.Device).Msg("closing serial port")

	if err := s.port.Close(); err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	return nil
}

// closeOnError records the failure, closes the session and returns the
// error for the caller.
func (s *Session) closeOnError(op string, cause error) error {
	ioErr := &IOError{Op: op, Kind: TransportError, Err: cause}
	s.mu.Lock()
	if s.open && s.failure == nil {
		s.failure = ioErr
	}
	s.mu.Unlock()

	log.Error().Err(cause).Str("session", s.id).Str("op", op).Msg("serial transport failed, closing session")
	if err := s.Close(); err != nil {
		log.Warn().Err(err).Str("session", s.id).Msg("failed to close serial port after error")
	}
	return ioErr
}

// Failure is the transport error that closed the session, or nil while
// open or after a close by the owner.
func (s *Session) Failure() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failure == nil {
		return nil
	}
	return s.failure
}
