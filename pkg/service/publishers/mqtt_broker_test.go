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
	"time"

	"github.com/ZaparooProject/serterm/pkg/helpers/syncutil"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// memBroker is an in-process stand-in for a broker connection. Publishing
// to a subscribed topic calls the handler synchronously.
type memBroker struct {
	connectErr error
	publishErr error
	subs       map[string]mqtt.MessageHandler
	sent       []memMessage
	dropped    []string
	closes     int
	online     bool
	mu         syncutil.Mutex
}

type memMessage struct {
	mqtt.Message
	topic    string
	payload  []byte
	retained bool
}

func (m memMessage) Topic() string { return m.topic }
func (m memMessage) Payload() []byte { return m.payload }

type doneToken struct {
	err error
}

func (doneToken) Wait() bool { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error { return t.err }

func (doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func newMemBroker() *memBroker {
	return &memBroker{subs: make(map[string]mqtt.MessageHandler)}
}

func (b *memBroker) setPublishErr(err error) {
	b.mu.Lock()
	b.publishErr = err
	b.mu.Unlock()
}

func (b *memBroker) messages(topic string) []memMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []memMessage
	for _, msg := range b.sent {
		if msg.topic == topic {
			out = append(out, msg)
		}
	}
	return out
}

func (b *memBroker) Connect() mqtt.Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.connectErr != nil {
		return doneToken{err: b.connectErr}
	}
	b.online = true
	return doneToken{}
}

func (b *memBroker) Publish(topic string, _ byte, retained bool, payload any) mqtt.Token {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = append([]byte(nil), v...)
	case string:
		data = []byte(v)
	}

	b.mu.Lock()
	if b.publishErr != nil {
		err := b.publishErr
		b.mu.Unlock()
		return doneToken{err: err}
	}
	msg := memMessage{topic: topic, payload: data, retained: retained}
	b.sent = append(b.sent, msg)
	handler := b.subs[topic]
	b.mu.Unlock()

	if handler != nil {
		handler(nil, msg)
	}
	return doneToken{}
}

func (b *memBroker) Subscribe(topic string, _ byte, h mqtt.MessageHandler) mqtt.Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[topic] = h
	return doneToken{}
}

func (b *memBroker) Unsubscribe(topics ...string) mqtt.Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, topic := range topics {
		delete(b.subs, topic)
	}
	b.dropped = append(b.dropped, topics...)
	return doneToken{}
}

func (b *memBroker) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.online
}

func (b *memBroker) Disconnect(uint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.online = false
	b.closes++
}
