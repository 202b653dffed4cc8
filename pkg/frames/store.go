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

// Package frames keeps the ordered list of saved outbound payloads.
package frames

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ZaparooProject/serterm/pkg/helpers/syncutil"
	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidFrame = errors.New("invalid frame")
	ErrOutOfRange   = errors.New("frame index out of range")
)

// Frame is a named payload that can be resent from the frame list.
type Frame struct {
	Name    string `validate:"required"`
	Payload []byte `validate:"min=1"`
}

// PayloadHex is the payload as uppercase space separated hex, the form the
// frame list and CSV files show.
func (f Frame) PayloadHex() string {
	parts := make([]string, len(f.Payload))
	for i, b := range f.Payload {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, " ")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports ErrInvalidFrame naming the failing fields.
func (f Frame) Validate() error {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating frame: %w", err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field()))
	}
	return fmt.Errorf("%w: %s must not be empty", ErrInvalidFrame, strings.Join(fields, ", "))
}

// Store is the in-memory frame list. It is safe for concurrent use.
type Store struct {
	frames []Frame
	mu     syncutil.RWMutex
}

func NewStore(initial ...Frame) (*Store, error) {
	s := &Store{}
	if err := s.Replace(initial); err != nil {
		return nil, err
	}
	return s, nil
}

// Add appends a frame. The name is trimmed; the payload is copied.
func (s *Store) Add(name string, payload []byte) (Frame, error) {
	f := Frame{
		Name:    strings.TrimSpace(name),
		Payload: append([]byte(nil), payload...),
	}
	if err := f.Validate(); err != nil {
		return Frame{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, f)
	return f, nil
}

func (s *Store) Remove(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.frames) {
		return fmt.Errorf("%w: %d", ErrOutOfRange, i)
	}
	s.frames = append(s.frames[:i], s.frames[i+1:]...)
	return nil
}

func (s *Store) Get(i int) (Frame, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.frames) {
		return Frame{}, fmt.Errorf("%w: %d", ErrOutOfRange, i)
	}
	return clone(s.frames[i]), nil
}

// List returns a copy of all frames in order.
func (s *Store) List() []Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Frame, len(s.frames))
	for i, f := range s.frames {
		out[i] = clone(f)
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.frames)
}

// Replace swaps the whole list. Nothing changes if any frame is invalid.
func (s *Store) Replace(list []Frame) error {
	next := make([]Frame, 0, len(list))
	for i, f := range list {
		f.Name = strings.TrimSpace(f.Name)
		if err := f.Validate(); err != nil {
			return fmt.Errorf("frame %d: %w", i+1, err)
		}
		next = append(next, clone(f))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = next
	return nil
}

func clone(f Frame) Frame {
	f.Payload = append([]byte(nil), f.Payload...)
	return f
}

// ParsePayloadHex decodes the PayloadHex form. Whitespace is ignored but
// the digit count must be even.
func ParsePayloadHex(s string) ([]byte, error) {
	compact := strings.Join(strings.Fields(s), "")
	b, err := hex.DecodeString(compact)
	if err != nil {
		return nil, fmt.Errorf("%w: payload %q: %w", ErrInvalidFrame, s, err)
	}
	return b, nil
}
