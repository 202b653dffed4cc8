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

package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/ZaparooProject/serterm/pkg/poller"
	"github.com/ZaparooProject/serterm/pkg/serial"
	"github.com/ZaparooProject/serterm/pkg/terminal"
	"github.com/rs/zerolog/log"
)

// Monitor connects app to pc and copies rendered receive text to out
// until ctx is done or the connection ends. A non-empty send is written
// once after connecting using the app's send options.
//
//nolint:gocritic // config copied into the session
func Monitor(ctx context.Context, app *terminal.App, pc serial.PortConfig, send string, out io.Writer) error {
	if err := app.Connect(pc); err != nil {
		return fmt.Errorf("failed to open %s: %w", pc.Device, err)
	}
	log.Info().Msgf("monitoring %s", pc)

	if send != "" {
		if _, err := app.Send(send); err != nil {
			disconnectQuietly(app)
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			disconnectQuietly(app)
			return nil
		case ev := <-app.Events():
			switch ev.Kind {
			case terminal.EventData:
				if _, err := io.WriteString(out, ev.Text); err != nil {
					disconnectQuietly(app)
					return fmt.Errorf("failed to write output: %w", err)
				}
			case terminal.EventError:
				log.Warn().Err(ev.Err).Msg("background send failed")
			case terminal.EventClosed:
				if ev.Text != "" {
					_, _ = io.WriteString(out, ev.Text)
				}
				if ev.Reason.Kind == poller.DeviceError {
					return fmt.Errorf("connection lost: %w", ev.Err)
				}
				return nil
			}
		}
	}
}

func disconnectQuietly(app *terminal.App) {
	if err := app.Disconnect(); err != nil {
		log.Debug().Err(err).Msg("disconnect after monitor")
	}
}
