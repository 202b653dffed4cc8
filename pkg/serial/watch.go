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
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// DefaultWatchInterval matches how often the port picker refreshed in the
// desktop version.
const DefaultWatchInterval = 5 * time.Second

type WatcherOption func(*Watcher)

func WithLister(fn func() ([]PortInfo, error)) WatcherOption {
	return func(w *Watcher) {
		w.list = fn
	}
}

func WithWatchClock(c clockwork.Clock) WatcherOption {
	return func(w *Watcher) {
		w.clock = c
	}
}

func WithWatchInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.interval = d
	}
}

// WithDevDir sets the directory watched for device nodes. An empty string
// disables filesystem notifications and leaves only the periodic refresh.
func WithDevDir(dir string) WatcherOption {
	return func(w *Watcher) {
		w.devDir = dir
	}
}

// Watcher keeps the list of available ports fresh. It refreshes on a
// ticker and, where device nodes live in a directory, whenever that
// directory changes. Updates only carries lists that differ from the
// previous one.
type Watcher struct {
	clock    clockwork.Clock
	fsw      *fsnotify.Watcher
	list     func() ([]PortInfo, error)
	updates  chan []PortInfo
	trigger  chan struct{}
	stopChan chan struct{}
	devDir   string
	last     []PortInfo
	interval time.Duration
	wg       sync.WaitGroup
	stopOnce sync.Once
	started  bool
	primed   bool
}

func NewWatcher(opts ...WatcherOption) *Watcher {
	w := &Watcher{
		clock:    clockwork.NewRealClock(),
		list:     ListPorts,
		interval: DefaultWatchInterval,
		updates:  make(chan []PortInfo, 1),
		trigger:  make(chan struct{}, 1),
		stopChan: make(chan struct{}),
	}
	if runtime.GOOS == "linux" {
		w.devDir = "/dev"
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Watcher) Updates() <-chan []PortInfo {
	return w.updates
}

// Start does an initial refresh and begins watching.
func (w *Watcher) Start() error {
	if w.devDir != "" {
		fsw, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to create fsnotify watcher: %w", err)
		}
		if err := fsw.Add(w.devDir); err != nil {
			_ = fsw.Close()
			log.Warn().Err(err).Str("dir", w.devDir).Msg("cannot watch device dir, using periodic refresh only")
		} else {
			w.fsw = fsw
		}
	}

	w.refresh()

	ticker := w.clock.NewTicker(w.interval)
	w.started = true
	w.wg.Add(1)
	go w.loop(ticker)

	return nil
}

// Refresh asks the watcher to re-enumerate now.
func (w *Watcher) Refresh() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// Stop ends the watch loop and waits for it to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
		if w.fsw != nil {
			_ = w.fsw.Close()
		}
		if w.started {
			w.wg.Wait()
		}
		close(w.updates)
	})
}

func (w *Watcher) loop(ticker clockwork.Ticker) {
	defer w.wg.Done()
	defer ticker.Stop()

	var fsEvents chan fsnotify.Event
	var fsErrors chan error
	if w.fsw != nil {
		fsEvents = w.fsw.Events
		fsErrors = w.fsw.Errors
	}

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.Chan():
			w.refresh()
		case <-w.trigger:
			w.refresh()
		case ev, ok := <-fsEvents:
			if !ok {
				fsEvents = nil
				continue
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) {
				w.refresh()
			}
		case err, ok := <-fsErrors:
			if !ok {
				fsErrors = nil
				continue
			}
			log.Warn().Err(err).Msg("device dir watch error")
		}
	}
}

func (w *Watcher) refresh() {
	ports, err := w.list()
	if err != nil {
		log.Warn().Err(err).Msg("failed to list serial ports")
		return
	}
	if w.primed && slices.Equal(ports, w.last) {
		return
	}
	w.last = ports
	w.primed = true

	// keep only the newest list for a slow reader
	select {
	case <-w.updates:
	default:
	}
	select {
	case w.updates <- ports:
	default:
	}
}
