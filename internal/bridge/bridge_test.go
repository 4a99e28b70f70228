// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/tclstat/internal/config"
	"github.com/Thermoquad/tclstat/pkg/tclac"
)

type message struct {
	Topic    string
	Payload  string
	Retained bool
}

type mqttClientMock struct {
	subscriptions map[string]func(message string)
	messages      []message
	fail          bool
}

func newMqttClientMock() *mqttClientMock {
	return &mqttClientMock{subscriptions: make(map[string]func(string))}
}

func (m *mqttClientMock) Publish(topic string, qos byte, retained bool, payload string) error {
	if m.fail {
		return ErrNotConnected
	}
	m.messages = append(m.messages, message{Topic: topic, Payload: payload, Retained: retained})
	return nil
}

func (m *mqttClientMock) Subscribe(topic string, callback func(message string)) error {
	m.subscriptions[topic] = callback
	return nil
}

func (m *mqttClientMock) simulateMessage(topic, payload string) {
	if cb := m.subscriptions[topic]; cb != nil {
		cb(payload)
	}
}

func (m *mqttClientMock) find(topic string) []string {
	var out []string
	for _, msg := range m.messages {
		if msg.Topic == topic {
			out = append(out, msg.Payload)
		}
	}
	return out
}

func newTestBridge(t *testing.T, window int) (*Bridge, *mqttClientMock, *[]tclac.ControlRequest) {
	t.Helper()
	mock := newMqttClientMock()
	var submitted []tclac.ControlRequest
	b := NewBridge(Config{
		DeviceName:      "bedroom",
		TopicPrefix:     "tclstat",
		DiscoveryPrefix: "homeassistant",
		SmoothingWindow: window,
		Publish:         mock.Publish,
		Subscribe:       mock.Subscribe,
		Submit: func(req tclac.ControlRequest) error {
			submitted = append(submitted, req)
			return nil
		},
	})
	return b, mock, &submitted
}

func TestStart_DiscoveryAndSubscriptions(t *testing.T) {
	b, mock, _ := newTestBridge(t, 1)
	require.NoError(t, b.Start())

	for _, topic := range []string{
		"tclstat/bedroom/mode/set",
		"tclstat/bedroom/target_temperature/set",
		"tclstat/bedroom/fan_mode/set",
		"tclstat/bedroom/swing_mode/set",
		"tclstat/bedroom/preset/set",
		"tclstat/bedroom/display/set",
		"tclstat/bedroom/beeper/set",
	} {
		assert.Contains(t, mock.subscriptions, topic)
	}

	docs := mock.find("homeassistant/climate/bedroom/config")
	require.Len(t, docs, 1)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(docs[0]), &doc))
	assert.Equal(t, "tclstat/bedroom/current_temperature", doc["current_temperature_topic"])
	assert.Equal(t, 16.0, doc["min_temp"])
	assert.Equal(t, 31.0, doc["max_temp"])
	assert.Equal(t, []interface{}{"eco", "boost", "comfort", "sleep"}, doc["preset_modes"])
	assert.True(t, mock.messages[len(mock.messages)-1].Retained)
}

func TestCommands(t *testing.T) {
	b, mock, submitted := newTestBridge(t, 1)
	require.NoError(t, b.Start())

	mock.simulateMessage("tclstat/bedroom/mode/set", "cool")
	mock.simulateMessage("tclstat/bedroom/target_temperature/set", "23.5")
	mock.simulateMessage("tclstat/bedroom/fan_mode/set", "high")
	mock.simulateMessage("tclstat/bedroom/preset/set", "sleep")
	mock.simulateMessage("tclstat/bedroom/display/set", "ON")
	mock.simulateMessage("tclstat/bedroom/mode/set", "blast")
	mock.simulateMessage("tclstat/bedroom/target_temperature/set", "warm")

	require.Len(t, *submitted, 5)
	reqs := *submitted
	assert.Equal(t, tclac.ModeCool, *reqs[0].Mode)
	assert.Equal(t, 23.5, *reqs[1].TargetTemperature)
	assert.Equal(t, tclac.FanHigh, *reqs[2].FanSpeed)
	assert.Equal(t, tclac.PresetSleep, *reqs[3].Preset)
	assert.True(t, *reqs[4].Display)
}

func TestUpdate_PublishesChangesOnly(t *testing.T) {
	b, mock, _ := newTestBridge(t, 1)

	s := tclac.DefaultState()
	b.Update(s)
	assert.Equal(t, []string{"off"}, mock.find("tclstat/bedroom/mode"))
	assert.Equal(t, []string{"22"}, mock.find("tclstat/bedroom/target_temperature"))
	assert.Empty(t, mock.find("tclstat/bedroom/current_temperature"))

	count := len(mock.messages)
	b.Update(s)
	assert.Equal(t, count, len(mock.messages), "unchanged state should publish nothing")

	s.Mode = tclac.ModeHeat
	s.SetTurbo(true)
	b.Update(s)
	assert.Equal(t, []string{"off", "heat"}, mock.find("tclstat/bedroom/mode"))
	assert.Equal(t, []string{"OFF", "ON"}, mock.find("tclstat/bedroom/turbo"))
	assert.Equal(t, []string{"none", "boost"}, mock.find("tclstat/bedroom/preset"))
	assert.Equal(t, count+3, len(mock.messages))
}

func TestUpdate_SmoothedTemperature(t *testing.T) {
	b, mock, _ := newTestBridge(t, 4)
	topic := "tclstat/bedroom/current_temperature"

	s := tclac.DefaultState()
	s.CurrentKnown = true
	for _, c := range []float64{22.0, 22.0, 24.0, 24.0} {
		s.CurrentTemperature = c
		b.Update(s)
	}
	// averages: 22.0, 22.0, 22.7, 23.0
	assert.Equal(t, []string{"22.0", "22.7", "23.0"}, mock.find(topic))
}

func TestUpdate_RetriesFailedPublish(t *testing.T) {
	b, mock, _ := newTestBridge(t, 1)

	mock.fail = true
	b.Update(tclac.DefaultState())
	assert.Empty(t, mock.messages)

	mock.fail = false
	b.Update(tclac.DefaultState())
	assert.Equal(t, []string{"off"}, mock.find("tclstat/bedroom/mode"))
}

func TestParseSwitch(t *testing.T) {
	on, err := parseSwitch(" on ")
	require.NoError(t, err)
	assert.True(t, on)

	_, err = parseSwitch("maybe")
	assert.True(t, errors.Is(err, tclac.ErrInvalidValue))
}

func TestClient_NotConnected(t *testing.T) {
	c := NewClient(config.MQTTConfig{Broker: "tcp://127.0.0.1:1", ClientID: "test"}, nil)
	assert.False(t, c.Connected())
	assert.ErrorIs(t, c.Publish("a/b", 0, false, "x"), ErrNotConnected)
	assert.ErrorIs(t, c.Subscribe("a/b", func(string) {}), ErrNotConnected)
	assert.Contains(t, c.subs, "a/b")
}
