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
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ZaparooProject/serterm/pkg/poller"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const mirrorQueueSize = 64

// Writer receives payloads from the remote send topic.
type Writer interface {
	Write(p []byte) (int, error)
}

// mqttClient is the part of mqtt.Client the mirror uses.
type mqttClient interface {
	Connect() mqtt.Token
	Publish(topic string, qos byte, retained bool, payload any) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
	IsConnected() bool
	Disconnect(quiesce uint)
}

func newPahoClient(opts *mqtt.ClientOptions) mqttClient {
	return mqtt.NewClient(opts)
}

// MQTTMirror publishes received serial data to <topic>/rx and writes
// anything published on <topic>/tx to the serial port.
type MQTTMirror struct {
	client    mqttClient
	out       Writer
	newClient func(*mqtt.ClientOptions) mqttClient
	chunks    chan []byte
	stopCh    chan struct{}
	broker    string
	topic     string
	clientID  string
	wg        sync.WaitGroup
	stopOnce  sync.Once
}

// NewMQTTMirror creates a mirror for broker and base topic. A broker
// without a scheme is treated as tcp://.
func NewMQTTMirror(broker, topic, clientID string, out Writer) *MQTTMirror {
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}
	if clientID == "" {
		clientID = "serterm-" + uuid.New().String()[:8]
	}
	return &MQTTMirror{
		broker:    broker,
		topic:     strings.TrimSuffix(topic, "/"),
		clientID:  clientID,
		out:       out,
		newClient: newPahoClient,
		chunks:    make(chan []byte, mirrorQueueSize),
		stopCh:    make(chan struct{}),
	}
}

func (m *MQTTMirror) RxTopic() string {
	return m.topic + "/rx"
}

func (m *MQTTMirror) TxTopic() string {
	return m.topic + "/tx"
}

// Start connects to the broker and begins publishing queued chunks.
func (m *MQTTMirror) Start() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(m.broker)
	opts.SetClientID(m.clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)

	// subscriptions do not survive a reconnect with a clean session
	opts.OnConnect = func(c mqtt.Client) { m.subscribe(c) }
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("mqtt mirror: connection lost")
	}

	m.client = m.newClient(opts)

	token := m.client.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	log.Info().Msgf("mqtt mirror: connected to %s (topic: %s)", m.broker, m.topic)

	m.wg.Add(1)
	go m.publishChunks()

	return nil
}

func (m *MQTTMirror) subscribe(c mqttClient) {
	log.Info().Msgf("mqtt mirror: subscribing to %s", m.TxTopic())
	token := c.Subscribe(m.TxTopic(), 0, m.handleTx)
	if token.Wait() && token.Error() != nil {
		log.Error().Err(token.Error()).Msg("mqtt mirror: subscribe failed")
	}
}

func (m *MQTTMirror) handleTx(_ mqtt.Client, msg mqtt.Message) {
	payload := msg.Payload()
	if len(payload) == 0 {
		return
	}
	if _, err := m.out.Write(payload); err != nil {
		log.Warn().Err(err).Msg("mqtt mirror: remote send failed")
		return
	}
	log.Debug().Int("bytes", len(payload)).Msg("mqtt mirror: forwarded remote send")
}

// OnChunk queues a received chunk for publishing. It never blocks; when
// the queue is full the chunk is dropped.
func (m *MQTTMirror) OnChunk(c poller.Chunk) {
	data := append([]byte(nil), c.Data...)
	select {
	case m.chunks <- data:
	default:
		log.Warn().Int("bytes", len(data)).Msg("mqtt mirror: queue full, dropping chunk")
	}
}

func (m *MQTTMirror) publishChunks() {
	defer m.wg.Done()
	log.Debug().Msg("mqtt mirror: starting publisher goroutine")

	for {
		select {
		case <-m.stopCh:
			log.Debug().Msg("mqtt mirror: stopping publisher")
			return
		case data := <-m.chunks:
			token := m.client.Publish(m.RxTopic(), 0, false, data)
			if token.Wait() && token.Error() != nil {
				log.Error().Err(token.Error()).Msg("mqtt mirror: failed to publish chunk")
			}
		}
	}
}

// Stop ends publishing and disconnects. Safe to call more than once.
func (m *MQTTMirror) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.wg.Wait()

		if m.client != nil && m.client.IsConnected() {
			log.Debug().Msg("mqtt mirror: disconnecting")
			m.client.Unsubscribe(m.TxTopic())
			m.client.Disconnect(250)
		}
	})
}
