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

package terminal

import (
	"fmt"
	"sync"
	"time"

	"github.com/ZaparooProject/serterm/pkg/config"
	"github.com/ZaparooProject/serterm/pkg/display"
	"github.com/rs/zerolog/log"
)

// autoSender resends one input on a ticker until halted or a write fails.
type autoSender struct {
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// halt stops the loop and waits for it. Safe on nil.
func (s *autoSender) halt() {
	if s == nil {
		return
	}
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	<-s.done
}

// StartAutoSend sends input every interval using the send options current
// at each tick. The interval is clamped to 10ms..1h and the effective
// value is returned. A running auto-send is replaced.
func (a *App) StartAutoSend(input string, interval time.Duration) (time.Duration, error) {
	interval = config.ClampAutoSendInterval(interval)

	opts := a.SendOptions()
	if len(display.EncodeOutbound(input, opts.Hex, opts.CRLF)) == 0 {
		return 0, ErrEmptyPayload
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	c := a.conn
	if c == nil {
		return 0, ErrNotConnected
	}
	a.auto.halt()

	s := &autoSender{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	a.auto = s

	ticker := a.clock.NewTicker(interval)
	go func() {
		defer close(s.done)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.Chan():
			}

			opts := a.SendOptions()
			_, err := a.writeTo(c, display.EncodeOutbound(input, opts.Hex, opts.CRLF))
			if err == nil {
				continue
			}

			log.Error().Err(err).Msg("auto-send stopped")
			ev := Event{Kind: EventError, Err: fmt.Errorf("auto-send: %w", err)}
			select {
			case a.events <- ev:
			default:
				select {
				case a.events <- ev:
				case <-s.stop:
				case <-c.quit:
				case <-a.closed:
				}
			}
			return
		}
	}()

	if a.cfg != nil {
		send := a.cfg.Send()
		send.AutoSendIntervalMs = int(interval / time.Millisecond)
		a.cfg.SetSend(send)
	}

	log.Info().Dur("interval", interval).Msg("auto-send started")
	return interval, nil
}

// StopAutoSend is a no-op when auto-send is not running.
func (a *App) StopAutoSend() {
	a.mu.Lock()
	s := a.auto
	a.auto = nil
	a.mu.Unlock()
	s.halt()
}

func (a *App) AutoSending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.auto == nil {
		return false
	}
	select {
	case <-a.auto.done:
		return false
	default:
		return true
	}
}
