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

package publishers

import (
	"errors"
	"testing"
	"time"

	"github.com/ZaparooProject/serterm/pkg/helpers/syncutil"
	"github.com/ZaparooProject/serterm/pkg/poller"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	err    error
	writes [][]byte
	mu     syncutil.Mutex
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return 0, w.err
	}
	w.writes = append(w.writes, append([]byte(nil), p...))
	return len(p), nil
}

func (w *recordingWriter) all() [][]byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([][]byte(nil), w.writes...)
}

// startMirror runs a mirror against an in-memory broker and performs the
// subscription paho would do from its OnConnect hook.
func startMirror(t *testing.T, out Writer) (*MQTTMirror, *memBroker) {
	t.Helper()
	b := newMemBroker()
	m := NewMQTTMirror("localhost:1883", "lab/uart/", "test-client", out)
	m.newClient = func(opts *mqtt.ClientOptions) mqttClient {
		assert.NotNil(t, opts.OnConnect)
		assert.True(t, opts.AutoReconnect)
		return b
	}
	require.NoError(t, m.Start())
	m.subscribe(b)
	t.Cleanup(m.Stop)
	return m, b
}

func TestNewMQTTMirror(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		broker     string
		topic      string
		wantBroker string
		wantRx     string
		wantTx     string
	}{
		{
			name:       "bare host gets tcp scheme",
			broker:     "localhost:1883",
			topic:      "serterm",
			wantBroker: "tcp://localhost:1883",
			wantRx:     "serterm/rx",
			wantTx:     "serterm/tx",
		},
		{
			name:       "scheme kept",
			broker:     "ssl://broker.example.com:8883",
			topic:      "bench/port1/",
			wantBroker: "ssl://broker.example.com:8883",
			wantRx:     "bench/port1/rx",
			wantTx:     "bench/port1/tx",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := NewMQTTMirror(tt.broker, tt.topic, "", &recordingWriter{})
			assert.Equal(t, tt.wantBroker, m.broker)
			assert.Equal(t, tt.wantRx, m.RxTopic())
			assert.Equal(t, tt.wantTx, m.TxTopic())
			assert.Contains(t, m.clientID, "serterm-")
		})
	}
}

func TestStart_ConnectError(t *testing.T) {
	t.Parallel()

	b := newMemBroker()
	b.connectErr = errors.New("connection refused")

	m := NewMQTTMirror("localhost:1883", "serterm", "", &recordingWriter{})
	m.newClient = func(*mqtt.ClientOptions) mqttClient { return b }

	err := m.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	m.Stop()
	assert.Zero(t, b.closes)
}

func TestOnChunk_PublishesToRxTopic(t *testing.T) {
	t.Parallel()

	m, b := startMirror(t, &recordingWriter{})

	data := []byte{0x01, 0x02, 0x03}
	m.OnChunk(poller.Chunk{At: time.Now(), Data: data})
	data[0] = 0xFF

	require.Eventually(t, func() bool {
		return len(b.messages("lab/uart/rx")) == 1
	}, time.Second, time.Millisecond)

	msg := b.messages("lab/uart/rx")[0]
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, msg.Payload())
	assert.False(t, msg.retained)
}

func TestOnChunk_PublishErrorKeepsRunning(t *testing.T) {
	t.Parallel()

	m, b := startMirror(t, &recordingWriter{})
	b.setPublishErr(assert.AnError)
	m.OnChunk(poller.Chunk{Data: []byte("lost")})
	require.Eventually(t, func() bool {
		return len(m.chunks) == 0
	}, time.Second, time.Millisecond)

	b.setPublishErr(nil)
	m.OnChunk(poller.Chunk{Data: []byte("kept")})
	require.Eventually(t, func() bool {
		for _, msg := range b.messages(m.RxTopic()) {
			if string(msg.Payload()) == "kept" {
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond)
}

func TestOnChunk_NeverBlocks(t *testing.T) {
	t.Parallel()

	m := NewMQTTMirror("localhost:1883", "serterm", "", &recordingWriter{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range mirrorQueueSize * 2 {
			m.OnChunk(poller.Chunk{Data: []byte{0x00}})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("OnChunk blocked with no publisher running")
	}
	assert.Len(t, m.chunks, mirrorQueueSize)
}

func TestTxTopic_WritesToPort(t *testing.T) {
	t.Parallel()

	out := &recordingWriter{}
	_, b := startMirror(t, out)

	b.Publish("lab/uart/tx", 0, false, []byte("AT\r\n"))
	b.Publish("lab/uart/tx", 0, false, []byte{})
	b.Publish("lab/uart/other", 0, false, []byte("ignored"))

	writes := out.all()
	require.Len(t, writes, 1)
	assert.Equal(t, []byte("AT\r\n"), writes[0])
}

func TestTxTopic_WriteErrorIsLogged(t *testing.T) {
	t.Parallel()

	out := &recordingWriter{err: errors.New("not connected")}
	m, b := startMirror(t, out)

	assert.NotPanics(t, func() {
		b.Publish(m.TxTopic(), 0, false, "x")
	})
	assert.Empty(t, out.all())
}

func TestStop_DisconnectsOnce(t *testing.T) {
	t.Parallel()

	b := newMemBroker()
	m := NewMQTTMirror("localhost:1883", "serterm", "", &recordingWriter{})
	m.newClient = func(*mqtt.ClientOptions) mqttClient { return b }
	require.NoError(t, m.Start())
	m.subscribe(b)

	m.Stop()
	m.Stop()

	assert.Equal(t, 1, b.closes)
	assert.False(t, b.IsConnected())
	assert.Equal(t, []string{"serterm/tx"}, b.dropped)
	assert.Empty(t, b.subs)

	_, ok := <-m.stopCh
	assert.False(t, ok, "stopCh should be closed after Stop()")
}
