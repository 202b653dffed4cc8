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

package display

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ZaparooProject/serterm/pkg/poller"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Renderer formats chunks for the receive pane. It carries state between
// chunks: a UTF-8 sequence split across two reads is completed by the
// next chunk, and text-mode timestamps are only emitted at line starts.
// A Renderer is not safe for concurrent use.
type Renderer struct {
	dec        *encoding.Decoder
	held       []byte
	Hex        bool
	Timestamps bool
	midLine    bool
}

// Render returns the text to append to the receive pane for c.
func (r *Renderer) Render(c poller.Chunk) string {
	if r.Hex {
		return r.renderHex(c)
	}
	return r.renderText(c.At, r.decode(c.Data, false))
}

// Flush returns any bytes held back from an incomplete UTF-8 sequence,
// rendered as replacement characters.
func (r *Renderer) Flush(at time.Time) string {
	if len(r.held) == 0 {
		return ""
	}
	return r.renderText(at, r.decode(nil, true))
}

// Reset drops held bytes and line state.
func (r *Renderer) Reset() {
	r.held = nil
	r.midLine = false
}

func (r *Renderer) renderHex(c poller.Chunk) string {
	var sb strings.Builder
	sb.WriteString(r.Flush(c.At))
	if r.midLine {
		sb.WriteByte('\n')
	}
	r.midLine = false

	prefix := ""
	if r.Timestamps {
		prefix = Timestamp(c.At)
	}
	for _, line := range HexDump(c.Data) {
		sb.WriteString(prefix)
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (r *Renderer) renderText(at time.Time, text string) string {
	if !r.Timestamps {
		if text != "" {
			r.midLine = !strings.HasSuffix(text, "\n")
		}
		return text
	}

	prefix := Timestamp(at)
	var sb strings.Builder
	sb.Grow(len(text) + len(prefix))
	for _, ch := range text {
		if !r.midLine {
			sb.WriteString(prefix)
			r.midLine = true
		}
		sb.WriteRune(ch)
		if ch == '\n' {
			r.midLine = false
		}
	}
	return sb.String()
}

func (r *Renderer) decode(data []byte, atEOF bool) string {
	if r.dec == nil {
		r.dec = unicode.UTF8.NewDecoder()
	}

	src := append(r.held, data...)
	r.held = nil
	if len(src) == 0 {
		return ""
	}

	// an invalid byte expands to the 3-byte U+FFFD
	dst := make([]byte, len(src)*3+utf8.UTFMax)
	nDst, nSrc, err := r.dec.Transform(dst, src, atEOF)
	if errors.Is(err, transform.ErrShortSrc) {
		r.held = append([]byte(nil), src[nSrc:]...)
	}
	return string(dst[:nDst])
}
