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
	"errors"
	"testing"
	"time"

	"github.com/ZaparooProject/serterm/pkg/helpers/syncutil"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial/enumerator"
)

type fakeLister struct {
	err   error
	ports []PortInfo
	calls int
	mu    syncutil.Mutex
}

func (f *fakeLister) set(ports []PortInfo, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ports = ports
	f.err = err
}

func (f *fakeLister) list() ([]PortInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return append([]PortInfo(nil), f.ports...), f.err
}

func waitUpdate(t *testing.T, w *Watcher) []PortInfo {
	t.Helper()
	select {
	case ports := <-w.Updates():
		return ports
	case <-time.After(time.Second):
		require.Fail(t, "expected port list update")
		return nil
	}
}

func assertNoUpdate(t *testing.T, w *Watcher) {
	t.Helper()
	select {
	case ports := <-w.Updates():
		require.Fail(t, "unexpected port list update", "%v", ports)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWatcher_InitialAndChangedLists(t *testing.T) {
	t.Parallel()

	fc := clockwork.NewFakeClock()
	fl := &fakeLister{ports: []PortInfo{{Name: "COM1"}}}
	w := NewWatcher(WithLister(fl.list), WithWatchClock(fc), WithDevDir(""))
	require.NoError(t, w.Start())
	defer w.Stop()

	assert.Equal(t, []PortInfo{{Name: "COM1"}}, waitUpdate(t, w))

	// unchanged list is not re-sent
	fc.Advance(DefaultWatchInterval)
	assertNoUpdate(t, w)

	fl.set([]PortInfo{{Name: "COM1"}, {Name: "COM4", Description: "CP2102"}}, nil)
	fc.Advance(DefaultWatchInterval)
	assert.Equal(t, []PortInfo{{Name: "COM1"}, {Name: "COM4", Description: "CP2102"}}, waitUpdate(t, w))
}

func TestWatcher_RefreshTriggersImmediately(t *testing.T) {
	t.Parallel()

	fl := &fakeLister{}
	w := NewWatcher(WithLister(fl.list), WithWatchClock(clockwork.NewFakeClock()), WithDevDir(""))
	require.NoError(t, w.Start())
	defer w.Stop()

	assert.Empty(t, waitUpdate(t, w))

	fl.set([]PortInfo{{Name: "/dev/ttyACM0"}}, nil)
	w.Refresh()
	assert.Equal(t, []PortInfo{{Name: "/dev/ttyACM0"}}, waitUpdate(t, w))
}

func TestWatcher_ListErrorKeepsLastList(t *testing.T) {
	t.Parallel()

	fc := clockwork.NewFakeClock()
	fl := &fakeLister{ports: []PortInfo{{Name: "COM1"}}}
	w := NewWatcher(WithLister(fl.list), WithWatchClock(fc), WithDevDir(""))
	require.NoError(t, w.Start())
	defer w.Stop()

	waitUpdate(t, w)

	fl.set(nil, errors.New("enumeration failed"))
	w.Refresh()
	assertNoUpdate(t, w)
}

func TestWatcher_StopClosesUpdates(t *testing.T) {
	t.Parallel()

	fl := &fakeLister{}
	w := NewWatcher(WithLister(fl.list), WithWatchClock(clockwork.NewFakeClock()), WithDevDir(""))
	require.NoError(t, w.Start())

	w.Stop()
	w.Stop()

	for range w.Updates() { //nolint:revive // drain
	}
}

func TestListPorts_SortsAndDescribes(t *testing.T) {
	orig := detailedPortsList
	t.Cleanup(func() { detailedPortsList = orig })

	detailedPortsList = func() ([]*enumerator.PortDetails, error) {
		return []*enumerator.PortDetails{
			{Name: "/dev/ttyUSB1", IsUSB: true, VID: "1A86", PID: "7523"},
			{Name: "/dev/ttyS0"},
			nil,
			{Name: "/dev/ttyACM0", IsUSB: true, Product: "Pico"},
		}, nil
	}

	ports, err := ListPorts()
	require.NoError(t, err)
	assert.Equal(t, []PortInfo{
		{Name: "/dev/ttyACM0", Description: "Pico"},
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyUSB1", Description: "1a86:7523"},
	}, ports)

	assert.Equal(t, "/dev/ttyACM0 - Pico", ports[0].String())
	assert.Equal(t, "/dev/ttyS0", ports[1].String())
	assert.Equal(t, []string{"/dev/ttyACM0", "/dev/ttyS0", "/dev/ttyUSB1"}, PortNames(ports))
}

func TestListPorts_Error(t *testing.T) {
	orig := detailedPortsList
	t.Cleanup(func() { detailedPortsList = orig })

	detailedPortsList = func() ([]*enumerator.PortDetails, error) {
		return nil, errors.New("no sysfs")
	}

	_, err := ListPorts()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no sysfs")
}
