// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package httpapi

import (
	"time"

	"github.com/Thermoquad/tclstat/pkg/tclac"
)

// StateView is the JSON rendering of a DeviceState
type StateView struct {
	Mode               string     `json:"mode"`
	TargetTemperature  float64    `json:"target_temperature"`
	CurrentTemperature *float64   `json:"current_temperature"`
	FanSpeed           string     `json:"fan_speed"`
	Swing              string     `json:"swing"`
	VerticalSwing      string     `json:"vertical_swing"`
	HorizontalSwing    string     `json:"horizontal_swing"`
	VerticalAirflow    string     `json:"vertical_airflow"`
	HorizontalAirflow  string     `json:"horizontal_airflow"`
	Preset             string     `json:"preset"`
	Eco                bool       `json:"eco"`
	Turbo              bool       `json:"turbo"`
	Quiet              bool       `json:"quiet"`
	Health             bool       `json:"health"`
	Sleep              bool       `json:"sleep"`
	Display            bool       `json:"display"`
	Beeper             bool       `json:"beeper"`
	UpdatedAt          *time.Time `json:"updated_at,omitempty"`
}

// NewStateView renders s; an unknown room temperature becomes null
func NewStateView(s tclac.DeviceState) StateView {
	v := StateView{
		Mode:              s.Mode.String(),
		TargetTemperature: s.TargetTemperature,
		FanSpeed:          s.FanSpeed.String(),
		Swing:             s.Swing.String(),
		VerticalSwing:     s.VerticalSwing.String(),
		HorizontalSwing:   s.HorizontalSwing.String(),
		VerticalAirflow:   s.VerticalAirflow.String(),
		HorizontalAirflow: s.HorizontalAirflow.String(),
		Preset:            s.Preset.String(),
		Eco:               s.Eco,
		Turbo:             s.Turbo,
		Quiet:             s.Quiet,
		Health:            s.Health,
		Sleep:             s.Sleep,
		Display:           s.Display,
		Beeper:            s.Beeper,
	}
	if c, ok := s.Current(); ok {
		v.CurrentTemperature = &c
	}
	return v
}

// ControlBody is the JSON form of a ControlRequest with enums as names
type ControlBody struct {
	Mode              *string  `json:"mode"`
	TargetTemperature *float64 `json:"target_temperature"`
	FanSpeed          *string  `json:"fan_speed"`
	Preset            *string  `json:"preset"`
	Eco               *bool    `json:"eco"`
	Turbo             *bool    `json:"turbo"`
	Quiet             *bool    `json:"quiet"`
	Health            *bool    `json:"health"`
	Sleep             *bool    `json:"sleep"`
	Swing             *string  `json:"swing"`
	VerticalSwing     *string  `json:"vertical_swing"`
	HorizontalSwing   *string  `json:"horizontal_swing"`
	VerticalAirflow   *string  `json:"vertical_airflow"`
	HorizontalAirflow *string  `json:"horizontal_airflow"`
	Display           *bool    `json:"display"`
	Beeper            *bool    `json:"beeper"`
}

// Request parses the enum names. Errors wrap tclac.ErrInvalidValue.
func (b ControlBody) Request() (tclac.ControlRequest, error) {
	req := tclac.ControlRequest{
		TargetTemperature: b.TargetTemperature,
		Eco:               b.Eco,
		Turbo:             b.Turbo,
		Quiet:             b.Quiet,
		Health:            b.Health,
		Sleep:             b.Sleep,
		Display:           b.Display,
		Beeper:            b.Beeper,
	}

	var err error
	if req.Mode, err = parseOpt(b.Mode, tclac.ParseMode); err != nil {
		return req, err
	}
	if req.FanSpeed, err = parseOpt(b.FanSpeed, tclac.ParseFanSpeed); err != nil {
		return req, err
	}
	if req.Preset, err = parseOpt(b.Preset, tclac.ParsePreset); err != nil {
		return req, err
	}
	if req.Swing, err = parseOpt(b.Swing, tclac.ParseSwingMode); err != nil {
		return req, err
	}
	if req.VerticalSwing, err = parseOpt(b.VerticalSwing, tclac.ParseVerticalSwing); err != nil {
		return req, err
	}
	if req.HorizontalSwing, err = parseOpt(b.HorizontalSwing, tclac.ParseHorizontalSwing); err != nil {
		return req, err
	}
	if req.VerticalAirflow, err = parseOpt(b.VerticalAirflow, tclac.ParseVerticalAirflow); err != nil {
		return req, err
	}
	if req.HorizontalAirflow, err = parseOpt(b.HorizontalAirflow, tclac.ParseHorizontalAirflow); err != nil {
		return req, err
	}
	return req, nil
}

func parseOpt[T any](s *string, parse func(string) (T, error)) (*T, error) {
	if s == nil {
		return nil, nil
	}
	v, err := parse(*s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
