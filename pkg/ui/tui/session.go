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

import "github.com/ZaparooProject/serterm/pkg/helpers/syncutil"

// MaxHistory bounds the send history.
const MaxHistory = 100

// Session holds UI state that outlives a page rebuild: the send history
// and the last page shown. Tests create their own.
type Session struct {
	lastPage string
	history  []string
	// cursor indexes history while browsing; len(history) means "new line".
	cursor int
	mu     syncutil.RWMutex
}

func NewSession() *Session {
	return &Session{lastPage: PageTerminal}
}

// PushHistory records a sent line and resets browsing. Repeating the most
// recent entry does not add a duplicate.
func (s *Session) PushHistory(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if line != "" && (len(s.history) == 0 || s.history[len(s.history)-1] != line) {
		s.history = append(s.history, line)
		if len(s.history) > MaxHistory {
			s.history = s.history[len(s.history)-MaxHistory:]
		}
	}
	s.cursor = len(s.history)
}

// PrevHistory steps back and returns the entry, or false at the start.
func (s *Session) PrevHistory() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor == 0 {
		return "", false
	}
	s.cursor--
	return s.history[s.cursor], true
}

// NextHistory steps forward. Stepping past the newest entry returns an
// empty line.
func (s *Session) NextHistory() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor >= len(s.history) {
		return "", false
	}
	s.cursor++
	if s.cursor == len(s.history) {
		return "", true
	}
	return s.history[s.cursor], true
}

func (s *Session) History() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.history...)
}

func (s *Session) LastPage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastPage
}

func (s *Session) SetLastPage(page string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPage = page
}
