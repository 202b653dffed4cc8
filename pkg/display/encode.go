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

// EncodeOutbound turns user input into the bytes to write. In hex mode
// every character outside [0-9A-Fa-f] is dropped and an odd digit count
// is padded with a trailing '0', so "ABC" sends 0xAB 0xC0. Text is sent
// as UTF-8. crlf appends "\r\n" in either mode.
func EncodeOutbound(input string, hex, crlf bool) []byte {
	var out []byte
	if hex {
		out = decodeHexDigits(input)
	} else {
		out = []byte(input)
	}
	if crlf {
		out = append(out, '\r', '\n')
	}
	return out
}

func decodeHexDigits(input string) []byte {
	digits := make([]byte, 0, len(input)+1)
	for i := range len(input) {
		if _, ok := hexNibble(input[i]); ok {
			digits = append(digits, input[i])
		}
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}

	out := make([]byte, len(digits)/2)
	for i := range out {
		hi, _ := hexNibble(digits[2*i])
		lo, _ := hexNibble(digits[2*i+1])
		out[i] = hi<<4 | lo
	}
	return out
}
