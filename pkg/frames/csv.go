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

package frames

import (
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

type csvRow struct {
	Name       string `csv:"name"`
	PayloadHex string `csv:"payload_hex"`
}

// ExportCSV writes every frame as a name,payload_hex row with a header.
func (s *Store) ExportCSV(w io.Writer) error {
	list := s.List()
	rows := make([]*csvRow, len(list))
	for i, f := range list {
		rows[i] = &csvRow{Name: f.Name, PayloadHex: f.PayloadHex()}
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("failed to export frames: %w", err)
	}
	return nil
}

// ImportCSV appends the frames in r. The whole file is validated before
// anything is added; it returns the number of frames imported.
func (s *Store) ImportCSV(r io.Reader) (int, error) {
	var rows []*csvRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return 0, fmt.Errorf("failed to read frames csv: %w", err)
	}

	parsed := make([]Frame, 0, len(rows))
	for i, row := range rows {
		payload, err := ParsePayloadHex(row.PayloadHex)
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", i+1, err)
		}
		f := Frame{Name: strings.TrimSpace(row.Name), Payload: payload}
		if err := f.Validate(); err != nil {
			return 0, fmt.Errorf("row %d: %w", i+1, err)
		}
		parsed = append(parsed, f)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, parsed...)
	return len(parsed), nil
}

// ImportFile reads a CSV file from fs into the store.
func (s *Store) ImportFile(fs afero.Fs, path string) (int, error) {
	file, err := fs.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open frames file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("failed to close frames file")
		}
	}()
	return s.ImportCSV(file)
}

// ExportFile writes the store to a CSV file on fs, replacing it.
func (s *Store) ExportFile(fs afero.Fs, path string) error {
	file, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create frames file: %w", err)
	}
	exportErr := s.ExportCSV(file)
	if err := file.Close(); err != nil && exportErr == nil {
		exportErr = fmt.Errorf("failed to close frames file: %w", err)
	}
	return exportErr
}
