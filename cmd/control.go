// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/tclstat/internal/daemon"
	"github.com/Thermoquad/tclstat/pkg/tclac"
)

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Interactive TUI for controlling the air conditioner",
	Long: `Control a TCL split unit via an interactive terminal UI.

The TUI polls the indoor unit, shows the reported state and lets every
setting be changed in place. Each change is encoded into a full SET frame
and sent immediately.

Features:
  - Live state (mode, target and room temperature, fan, swing, presets)
  - Settings list: Left/Right cycle a value, Enter edits the target
  - Statistics tracking and event logging
  - Automatic reconnection with exponential backoff

Supports both serial and WebSocket connections.`,
	RunE: runControl,
}

func init() {
	rootCmd.AddCommand(controlCmd)
}

func runControl(cmd *cobra.Command, args []string) error {
	dial, connInfo, err := NewDialer()
	if err != nil {
		return err
	}
	initial, err := cfg.Device.InitialState()
	if err != nil {
		return err
	}

	var p *tea.Program
	runner := daemon.NewRunner(daemon.Config{
		Dial:         dial,
		InitialState: initial,
		PollInterval: cfg.Protocol.PollInterval,
		FramerOpts:   cfg.Protocol.FramerOptions(),
		Log:          logger,
		OnEvent: func(ev tclac.Event, err error) {
			p.Send(controlEventMsg{event: ev, validationErrors: tclac.ValidateEvent(ev)})
		},
		OnLink: func(connected bool, err error) {
			p.Send(linkMsg{connected: connected, err: err})
		},
	})
	runner.AddListener(func(s tclac.DeviceState) {
		p.Send(controlStateMsg{state: s})
	})

	m := initialControlModel(runner, connInfo, initial)
	p = tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() {
		runDone <- runner.Run(ctx)
	}()

	_, err = p.Run()
	cancel()
	if runErr := <-runDone; runErr != nil && err == nil {
		err = runErr
	}
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// setting is one row of the control list. Values are cycled in order.
type setting struct {
	key     string
	label   string
	values  []string
	current func(s tclac.DeviceState) string
	request func(value string) (tclac.ControlRequest, error)
}

var onOffValues = []string{"off", "on"}

func toggleSetting(key, label string, get func(tclac.DeviceState) bool, build func(*bool) tclac.ControlRequest) setting {
	return setting{
		key:    key,
		label:  label,
		values: onOffValues,
		current: func(s tclac.DeviceState) string {
			return onOff(get(s))
		},
		request: func(v string) (tclac.ControlRequest, error) {
			on, err := parseOnOff(v)
			if err != nil {
				return tclac.ControlRequest{}, err
			}
			return build(&on), nil
		},
	}
}

func enumSetting[T fmt.Stringer](key, label string, names []string, get func(tclac.DeviceState) T, parse func(string) (T, error), build func(*T) tclac.ControlRequest) setting {
	return setting{
		key:    key,
		label:  label,
		values: names,
		current: func(s tclac.DeviceState) string {
			return get(s).String()
		},
		request: func(v string) (tclac.ControlRequest, error) {
			parsed, err := parse(v)
			if err != nil {
				return tclac.ControlRequest{}, err
			}
			return build(&parsed), nil
		},
	}
}

func targetValues() []string {
	var values []string
	for t := tclac.TargetTempMin; t <= tclac.TargetTempMax; t += tclac.TargetTempStep {
		values = append(values, strconv.FormatFloat(t, 'f', 0, 64))
	}
	return values
}

func parseTarget(v string) (tclac.ControlRequest, error) {
	t, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return tclac.ControlRequest{}, fmt.Errorf("%w: target %q", tclac.ErrInvalidValue, v)
	}
	return tclac.ControlRequest{TargetTemperature: &t}, nil
}

// controlSettings lists every setting the control TUI exposes
func controlSettings() []setting {
	return []setting{
		enumSetting("mode", "Mode", tclac.ModeNames(),
			func(s tclac.DeviceState) tclac.Mode { return s.Mode }, tclac.ParseMode,
			func(v *tclac.Mode) tclac.ControlRequest { return tclac.ControlRequest{Mode: v} }),
		{
			key:    "target_temperature",
			label:  "Target °C",
			values: targetValues(),
			current: func(s tclac.DeviceState) string {
				return strconv.FormatFloat(s.TargetTemperature, 'f', 0, 64)
			},
			request: parseTarget,
		},
		enumSetting("fan_mode", "Fan", tclac.FanSpeedNames(),
			func(s tclac.DeviceState) tclac.FanSpeed { return s.FanSpeed }, tclac.ParseFanSpeed,
			func(v *tclac.FanSpeed) tclac.ControlRequest { return tclac.ControlRequest{FanSpeed: v} }),
		enumSetting("swing_mode", "Swing", tclac.SwingModeNames(),
			func(s tclac.DeviceState) tclac.SwingMode { return s.Swing }, tclac.ParseSwingMode,
			func(v *tclac.SwingMode) tclac.ControlRequest { return tclac.ControlRequest{Swing: v} }),
		enumSetting("preset", "Preset", tclac.PresetNames(),
			func(s tclac.DeviceState) tclac.Preset { return s.Preset }, tclac.ParsePreset,
			func(v *tclac.Preset) tclac.ControlRequest { return tclac.ControlRequest{Preset: v} }),
		enumSetting("vertical_swing", "V-Swing", tclac.VerticalSwingNames(),
			func(s tclac.DeviceState) tclac.VerticalSwing { return s.VerticalSwing }, tclac.ParseVerticalSwing,
			func(v *tclac.VerticalSwing) tclac.ControlRequest { return tclac.ControlRequest{VerticalSwing: v} }),
		enumSetting("horizontal_swing", "H-Swing", tclac.HorizontalSwingNames(),
			func(s tclac.DeviceState) tclac.HorizontalSwing { return s.HorizontalSwing }, tclac.ParseHorizontalSwing,
			func(v *tclac.HorizontalSwing) tclac.ControlRequest { return tclac.ControlRequest{HorizontalSwing: v} }),
		enumSetting("vertical_direction", "V-Direction", tclac.VerticalAirflowNames(),
			func(s tclac.DeviceState) tclac.VerticalAirflow { return s.VerticalAirflow }, tclac.ParseVerticalAirflow,
			func(v *tclac.VerticalAirflow) tclac.ControlRequest { return tclac.ControlRequest{VerticalAirflow: v} }),
		enumSetting("horizontal_direction", "H-Direction", tclac.HorizontalAirflowNames(),
			func(s tclac.DeviceState) tclac.HorizontalAirflow { return s.HorizontalAirflow }, tclac.ParseHorizontalAirflow,
			func(v *tclac.HorizontalAirflow) tclac.ControlRequest {
				return tclac.ControlRequest{HorizontalAirflow: v}
			}),
		toggleSetting("eco", "Eco",
			func(s tclac.DeviceState) bool { return s.Eco },
			func(v *bool) tclac.ControlRequest { return tclac.ControlRequest{Eco: v} }),
		toggleSetting("turbo", "Turbo",
			func(s tclac.DeviceState) bool { return s.Turbo },
			func(v *bool) tclac.ControlRequest { return tclac.ControlRequest{Turbo: v} }),
		toggleSetting("quiet", "Quiet",
			func(s tclac.DeviceState) bool { return s.Quiet },
			func(v *bool) tclac.ControlRequest { return tclac.ControlRequest{Quiet: v} }),
		toggleSetting("health", "Health",
			func(s tclac.DeviceState) bool { return s.Health },
			func(v *bool) tclac.ControlRequest { return tclac.ControlRequest{Health: v} }),
		toggleSetting("sleep", "Sleep",
			func(s tclac.DeviceState) bool { return s.Sleep },
			func(v *bool) tclac.ControlRequest { return tclac.ControlRequest{Sleep: v} }),
		toggleSetting("display", "Display",
			func(s tclac.DeviceState) bool { return s.Display },
			func(v *bool) tclac.ControlRequest { return tclac.ControlRequest{Display: v} }),
		toggleSetting("beeper", "Beeper",
			func(s tclac.DeviceState) bool { return s.Beeper },
			func(v *bool) tclac.ControlRequest { return tclac.ControlRequest{Beeper: v} }),
	}
}

// step returns the value delta positions away from the current one,
// wrapping at both ends. An unknown current value starts from the first.
func (s setting) step(state tclac.DeviceState, delta int) string {
	cur := s.current(state)
	idx := 0
	for i, v := range s.values {
		if v == cur {
			idx = i
			break
		}
	}
	n := len(s.values)
	return s.values[((idx+delta)%n+n)%n]
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func parseOnOff(v string) (bool, error) {
	switch v {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q is not on or off", tclac.ErrInvalidValue, v)
}
