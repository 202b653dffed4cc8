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

// Package serialtest provides an in-memory serial.Port for tests.
package serialtest

import (
	"errors"
	"time"

	"github.com/ZaparooProject/serterm/pkg/helpers/syncutil"
	"github.com/ZaparooProject/serterm/pkg/serial"
)

var ErrPortClosed = errors.New("port closed")

// MockPort implements serial.Port. Bytes passed to Feed come out of Read
// in order; bytes passed to Write are recorded for Written.
type MockPort struct {
	ReadErr    error
	WriteErr   error
	CloseErr   error
	TimeoutErr error
	SignalErr  error
	ReadFunc   func(p []byte) (int, error)
	inbound    []byte
	written    []byte
	signals    []SignalCall
	closeCount int
	timeout    time.Duration
	mu         syncutil.Mutex
	closed     bool
}

type SignalCall struct {
	Name  string
	Value bool
	Break time.Duration
}

func NewMockPort() *MockPort {
	return &MockPort{}
}

// Factory returns a serial.PortFactory that always hands out m.
func (m *MockPort) Factory() serial.PortFactory {
	return func(serial.PortConfig) (serial.Port, error) {
		return m, nil
	}
}

// Feed queues bytes as if they arrived on the wire.
func (m *MockPort) Feed(b []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inbound = append(m.inbound, b...)
}

func (m *MockPort) SetReadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadErr = err
}

func (m *MockPort) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WriteErr = err
}

func (m *MockPort) Read(p []byte) (int, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, ErrPortClosed
	}
	if m.ReadFunc != nil {
		fn := m.ReadFunc
		m.mu.Unlock()
		return fn(p)
	}
	if m.ReadErr != nil {
		err := m.ReadErr
		m.mu.Unlock()
		return 0, err
	}
	if len(m.inbound) == 0 {
		timeout := m.timeout
		m.mu.Unlock()
		// a real port waits for the timeout before reporting nothing
		if timeout > 0 {
			time.Sleep(min(timeout, 5*time.Millisecond))
		}
		return 0, nil
	}
	n := copy(p, m.inbound)
	m.inbound = m.inbound[n:]
	m.mu.Unlock()
	return n, nil
}

func (m *MockPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrPortClosed
	}
	if m.WriteErr != nil {
		return 0, m.WriteErr
	}
	m.written = append(m.written, p...)
	return len(p), nil
}

func (m *MockPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.closeCount++
	return m.CloseErr
}

func (m *MockPort) SetReadTimeout(t time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.TimeoutErr != nil {
		return m.TimeoutErr
	}
	m.timeout = t
	return nil
}

func (m *MockPort) SetDTR(v bool) error {
	return m.recordSignal(SignalCall{Name: "DTR", Value: v})
}

func (m *MockPort) SetRTS(v bool) error {
	return m.recordSignal(SignalCall{Name: "RTS", Value: v})
}

func (m *MockPort) Break(d time.Duration) error {
	return m.recordSignal(SignalCall{Name: "Break", Value: true, Break: d})
}

func (m *MockPort) recordSignal(c SignalCall) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SignalErr != nil {
		return m.SignalErr
	}
	m.signals = append(m.signals, c)
	return nil
}

// Written returns a copy of everything written so far.
func (m *MockPort) Written() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.written...)
}

func (m *MockPort) Signals() []SignalCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SignalCall(nil), m.signals...)
}

func (m *MockPort) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockPort) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCount
}

func (m *MockPort) ReadTimeout() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timeout
}
