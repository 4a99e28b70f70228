// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package bridge publishes the air conditioner state to MQTT and turns
// Home Assistant commands into control requests.
package bridge

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	average "github.com/RobinUS2/golang-moving-average"
	"go.uber.org/zap"

	"github.com/Thermoquad/tclstat/pkg/tclac"
)

// Publish sends a message. Client.Publish satisfies it.
type Publish func(topic string, qos byte, retained bool, payload string) error

// Subscribe registers a topic callback. Client.Subscribe satisfies it.
type Subscribe func(topic string, callback func(message string)) error

// Submit hands a control request to the protocol runner
type Submit func(req tclac.ControlRequest) error

// Config wires a Bridge to its transport and to the runner
type Config struct {
	DeviceName      string
	TopicPrefix     string
	DiscoveryPrefix string
	SmoothingWindow int

	Publish   Publish
	Subscribe Subscribe
	Submit    Submit
	Log       *zap.Logger
}

// Bridge mirrors DeviceState onto retained MQTT topics
type Bridge struct {
	Config
	temp     *average.MovingAverage
	lastTemp float64
	haveTemp bool
	last     map[string]string
}

// State topic names under <prefix>/<device>/
const (
	TopicMode               = "mode"
	TopicTargetTemperature  = "target_temperature"
	TopicCurrentTemperature = "current_temperature"
	TopicFanMode            = "fan_mode"
	TopicSwingMode          = "swing_mode"
	TopicPreset             = "preset"
	TopicEco                = "eco"
	TopicTurbo              = "turbo"
	TopicQuiet              = "quiet"
	TopicHealth             = "health"
	TopicSleep              = "sleep"
	TopicDisplay            = "display"
	TopicBeeper             = "beeper"
)

// NewBridge creates a bridge. Nothing is published until Start.
func NewBridge(cfg Config) *Bridge {
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	if cfg.SmoothingWindow <= 0 {
		cfg.SmoothingWindow = 1
	}
	return &Bridge{
		Config: cfg,
		temp:   average.New(cfg.SmoothingWindow),
		last:   make(map[string]string),
	}
}

// Topic returns the full state topic for a field
func (b *Bridge) Topic(field string) string {
	return fmt.Sprintf("%s/%s/%s", b.TopicPrefix, b.DeviceName, field)
}

// Start subscribes to the command topics and publishes the Home Assistant
// discovery document.
func (b *Bridge) Start() error {
	handlers := map[string]func(string) (tclac.ControlRequest, error){
		TopicMode: func(m string) (tclac.ControlRequest, error) {
			v, err := tclac.ParseMode(m)
			return tclac.ControlRequest{Mode: &v}, err
		},
		TopicTargetTemperature: func(m string) (tclac.ControlRequest, error) {
			t, err := strconv.ParseFloat(strings.TrimSpace(m), 64)
			if err != nil {
				return tclac.ControlRequest{}, fmt.Errorf("%w: target temperature %q", tclac.ErrInvalidValue, m)
			}
			return tclac.ControlRequest{TargetTemperature: &t}, nil
		},
		TopicFanMode: func(m string) (tclac.ControlRequest, error) {
			v, err := tclac.ParseFanSpeed(m)
			return tclac.ControlRequest{FanSpeed: &v}, err
		},
		TopicSwingMode: func(m string) (tclac.ControlRequest, error) {
			v, err := tclac.ParseSwingMode(m)
			return tclac.ControlRequest{Swing: &v}, err
		},
		TopicPreset: func(m string) (tclac.ControlRequest, error) {
			v, err := tclac.ParsePreset(m)
			return tclac.ControlRequest{Preset: &v}, err
		},
		TopicDisplay: func(m string) (tclac.ControlRequest, error) {
			v, err := parseSwitch(m)
			return tclac.ControlRequest{Display: &v}, err
		},
		TopicBeeper: func(m string) (tclac.ControlRequest, error) {
			v, err := parseSwitch(m)
			return tclac.ControlRequest{Beeper: &v}, err
		},
	}

	for field, parse := range handlers {
		topic := b.Topic(field) + "/set"
		parse := parse
		if err := b.Subscribe(topic, func(message string) {
			req, err := parse(message)
			if err != nil {
				b.Log.Warn("ignoring MQTT command", zap.String("topic", topic), zap.String("payload", message), zap.Error(err))
				return
			}
			if err := b.Submit(req); err != nil {
				b.Log.Warn("MQTT command not applied", zap.String("topic", topic), zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}

	doc, err := json.Marshal(b.Discovery())
	if err != nil {
		return fmt.Errorf("encode discovery: %w", err)
	}
	// <discovery_prefix>/<component>/<object_id>/config
	topic := fmt.Sprintf("%s/climate/%s/config", b.DiscoveryPrefix, b.DeviceName)
	return b.Publish(topic, 0, true, string(doc))
}

// Discovery returns the Home Assistant MQTT climate configuration
func (b *Bridge) Discovery() map[string]interface{} {
	name := "tclstat_" + b.DeviceName
	return map[string]interface{}{
		"name":                      b.DeviceName,
		"unique_id":                 name,
		"current_temperature_topic": b.Topic(TopicCurrentTemperature),
		"temperature_state_topic":   b.Topic(TopicTargetTemperature),
		"temperature_command_topic": b.Topic(TopicTargetTemperature) + "/set",
		"temperature_unit":          "C",
		"precision":                 0.1,
		"temp_step":                 tclac.TargetTempStep,
		"min_temp":                  tclac.TargetTempMin,
		"max_temp":                  tclac.TargetTempMax,
		"modes":                     tclac.ModeNames(),
		"mode_state_topic":          b.Topic(TopicMode),
		"mode_command_topic":        b.Topic(TopicMode) + "/set",
		"fan_modes":                 tclac.FanSpeedNames(),
		"fan_mode_state_topic":      b.Topic(TopicFanMode),
		"fan_mode_command_topic":    b.Topic(TopicFanMode) + "/set",
		"swing_modes":               tclac.SwingModeNames(),
		"swing_mode_state_topic":    b.Topic(TopicSwingMode),
		"swing_mode_command_topic":  b.Topic(TopicSwingMode) + "/set",
		"preset_modes":              tclac.PresetNames()[1:],
		"preset_mode_state_topic":   b.Topic(TopicPreset),
		"preset_mode_command_topic": b.Topic(TopicPreset) + "/set",
		"device": map[string]interface{}{
			"identifiers":  []string{name},
			"name":         b.DeviceName,
			"manufacturer": "TCL",
		},
	}
}

// Update publishes every field that changed since the last call. The room
// temperature is smoothed and only published when its rounded value moves.
func (b *Bridge) Update(s tclac.DeviceState) {
	fields := map[string]string{
		TopicMode:              s.Mode.String(),
		TopicTargetTemperature: strconv.FormatFloat(s.TargetTemperature, 'f', -1, 64),
		TopicFanMode:           s.FanSpeed.String(),
		TopicSwingMode:         s.Swing.String(),
		TopicPreset:            s.Preset.String(),
		TopicEco:               switchValue(s.Eco),
		TopicTurbo:             switchValue(s.Turbo),
		TopicQuiet:             switchValue(s.Quiet),
		TopicHealth:            switchValue(s.Health),
		TopicSleep:             switchValue(s.Sleep),
		TopicDisplay:           switchValue(s.Display),
		TopicBeeper:            switchValue(s.Beeper),
	}
	for field, value := range fields {
		if prev, ok := b.last[field]; ok && prev == value {
			continue
		}
		b.publish(field, value)
	}

	if c, ok := s.Current(); ok {
		b.temp.Add(c)
		avg := math.Round(b.temp.Avg()*10) / 10
		if !b.haveTemp || avg != b.lastTemp {
			b.haveTemp = true
			b.lastTemp = avg
			b.publish(TopicCurrentTemperature, strconv.FormatFloat(avg, 'f', 1, 64))
		}
	}
}

func (b *Bridge) publish(field, value string) {
	if err := b.Publish(b.Topic(field), 0, true, value); err != nil {
		// leave last unset so the value is retried on the next update
		b.Log.Debug("MQTT publish failed", zap.String("field", field), zap.Error(err))
		return
	}
	b.last[field] = value
}

func switchValue(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ON", "TRUE", "1":
		return true, nil
	case "OFF", "FALSE", "0":
		return false, nil
	}
	return false, fmt.Errorf("%w: switch value %q", tclac.ErrInvalidValue, s)
}
