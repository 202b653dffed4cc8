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

// Package poller moves bytes from an open serial session to a consumer.
//
// One Poller runs per session. Its read loop checks the session for
// buffered bytes, wraps them in a timestamped Chunk and queues the chunk
// on a bounded channel; a second goroutine hands queued chunks to the
// sink in arrival order. Stop joins both goroutines, so the sink is never
// called after Stop returns.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ZaparooProject/serterm/pkg/serial"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultInterval = 10 * time.Millisecond
	DefaultBuffer   = 64
)

// Chunk is one batch of received bytes and the time it was read.
type Chunk struct {
	At   time.Time
	Data []byte
}

// Source is the read side of a session.
type Source interface {
	IsOpen() bool
	PollAvailable() int
	ReadAvailable() ([]byte, error)
	Close() error
}

// Sink receives chunks on the poller's delivery goroutine.
type Sink func(Chunk)

type CloseKind int

const (
	// Requested means Stop was called or the session was closed by its owner.
	Requested CloseKind = iota
	// DeviceError means a read failed; the poller closed the session.
	DeviceError
)

func (k CloseKind) String() string {
	if k == DeviceError {
		return "device-error"
	}
	return "requested"
}

type CloseReason struct {
	Err  error
	Kind CloseKind
}

func (r CloseReason) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s: %v", r.Kind, r.Err)
	}
	return r.Kind.String()
}

type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		p.interval = d
	}
}

func WithBuffer(n int) Option {
	return func(p *Poller) {
		p.buffer = n
	}
}

func WithClock(c clockwork.Clock) Option {
	return func(p *Poller) {
		p.clock = c
	}
}

// OnClosed registers a callback run exactly once when the poller ends,
// before Stop or Done complete. The callback must not call Stop.
func OnClosed(fn func(CloseReason)) Option {
	return func(p *Poller) {
		p.onClosed = fn
	}
}

type Poller struct {
	clock    clockwork.Clock
	src      Source
	sink     Sink
	onClosed func(CloseReason)
	cancel   context.CancelFunc
	group    *errgroup.Group
	chunks   chan Chunk
	done     chan struct{}
	reason   CloseReason
	interval time.Duration
	buffer   int
	stopOnce sync.Once
}

var ErrNilSink = errors.New("poller sink is nil")

// Start launches the poller against src.
func Start(src Source, sink Sink, opts ...Option) (*Poller, error) {
	if sink == nil {
		return nil, ErrNilSink
	}

	p := &Poller{
		clock:    clockwork.NewRealClock(),
		src:      src,
		sink:     sink,
		interval: DefaultInterval,
		buffer:   DefaultBuffer,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer < 1 {
		p.buffer = 1
	}
	p.chunks = make(chan Chunk, p.buffer)

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.group = &errgroup.Group{}

	p.group.Go(func() error {
		defer close(p.chunks)
		return p.readLoop(ctx)
	})
	p.group.Go(func() error {
		p.deliverLoop(ctx)
		return nil
	})

	go func() {
		err := p.group.Wait()
		cancel()
		p.reason = reasonFor(err)
		if p.onClosed != nil {
			p.onClosed(p.reason)
		}
		close(p.done)
	}()

	return p, nil
}

func reasonFor(err error) CloseReason {
	if err == nil {
		return CloseReason{Kind: Requested}
	}
	return CloseReason{Kind: DeviceError, Err: err}
}

func (p *Poller) readLoop(ctx context.Context) error {
	for {
		if ctx.Err() != nil || !p.src.IsOpen() {
			return nil
		}

		if p.src.PollAvailable() > 0 {
			data, err := p.src.ReadAvailable()
			switch {
			case errors.Is(err, serial.ErrNotOpen):
				return nil
			case err != nil:
				log.Error().Err(err).Msg("poller read failed, closing session")
				if closeErr := p.src.Close(); closeErr != nil {
					log.Warn().Err(closeErr).Msg("failed to close session after read error")
				}
				return err
			case len(data) > 0:
				c := Chunk{Data: data, At: p.clock.Now()}
				select {
				case p.chunks <- c:
				case <-ctx.Done():
					return nil
				}
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-p.clock.After(p.interval):
		}
	}
}

func (p *Poller) deliverLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-p.chunks:
			if !ok {
				return
			}
			// Stop may have raced with the receive
			if ctx.Err() != nil {
				return
			}
			p.sink(c)
		}
	}
}

// Stop ends polling and waits until both goroutines have exited. Chunks
// still queued are dropped. Safe to call more than once. When the loop
// ends on its own (session closed, read error) queued chunks are still
// delivered first.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		p.cancel()
	})
	<-p.done
}

// Done is closed after the poller has fully exited.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

// Reason is valid once Done is closed.
func (p *Poller) Reason() CloseReason {
	<-p.done
	return p.reason
}
