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

// Package display turns received bytes into text for the receive pane and
// user input into bytes for the wire.
package display

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// BytesPerLine is the width of one hex dump row.
	BytesPerLine = 16
	// HexColumnWidth fits 16 two-digit bytes and their separators.
	HexColumnWidth = BytesPerLine*3 - 1

	timestampLayout = "15:04:05.000"
)

var ErrMalformedDump = errors.New("malformed hex dump line")

// Timestamp formats t as the "[HH:MM:SS.mmm] " line prefix.
func Timestamp(t time.Time) string {
	return "[" + t.Format(timestampLayout) + "] "
}

// HexLine renders up to 16 bytes as one dump row without a newline.
func HexLine(row []byte) string {
	hexCol := make([]string, len(row))
	ascii := make([]byte, len(row))
	for i, b := range row {
		hexCol[i] = fmt.Sprintf("%02X", b)
		if b >= 0x20 && b <= 0x7E {
			ascii[i] = b
		} else {
			ascii[i] = '.'
		}
	}
	return fmt.Sprintf("%-*s  %s", HexColumnWidth, strings.Join(hexCol, " "), ascii)
}

// HexDump splits data into rows of 16 bytes.
func HexDump(data []byte) []string {
	lines := make([]string, 0, (len(data)+BytesPerLine-1)/BytesPerLine)
	for start := 0; start < len(data); start += BytesPerLine {
		end := min(start+BytesPerLine, len(data))
		lines = append(lines, HexLine(data[start:end]))
	}
	return lines
}

// ParseHexDump recovers the bytes of a dump produced by HexDump or by a
// hex-mode Renderer. Timestamp prefixes and the ASCII column are skipped.
func ParseHexDump(lines []string) ([]byte, error) {
	var out []byte
	for n, line := range lines {
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "[") {
			end := strings.Index(line, "] ")
			if end < 0 {
				return nil, fmt.Errorf("%w %d: unterminated timestamp", ErrMalformedDump, n+1)
			}
			line = line[end+2:]
		}
		if len(line) > HexColumnWidth {
			line = line[:HexColumnWidth]
		}
		for _, field := range strings.Fields(line) {
			if len(field) != 2 {
				return nil, fmt.Errorf("%w %d: bad byte %q", ErrMalformedDump, n+1, field)
			}
			hi, okHi := hexNibble(field[0])
			lo, okLo := hexNibble(field[1])
			if !okHi || !okLo {
				return nil, fmt.Errorf("%w %d: bad byte %q", ErrMalformedDump, n+1, field)
			}
			out = append(out, hi<<4|lo)
		}
	}
	return out, nil
}

func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
