// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tclac

// ControlRequest is a partial update submitted by the host. Nil fields are
// left untouched.
type ControlRequest struct {
	Mode              *Mode
	TargetTemperature *float64
	FanSpeed          *FanSpeed
	Preset            *Preset

	Eco    *bool
	Turbo  *bool
	Quiet  *bool
	Health *bool
	Sleep  *bool

	Swing             *SwingMode
	VerticalSwing     *VerticalSwing
	HorizontalSwing   *HorizontalSwing
	VerticalAirflow   *VerticalAirflow
	HorizontalAirflow *HorizontalAirflow

	Display *bool
	Beeper  *bool
}

// Ptr returns a pointer to v, for building requests inline
func Ptr[T any](v T) *T {
	return &v
}

// IsEmpty reports whether the request changes nothing
func (r ControlRequest) IsEmpty() bool {
	return r == ControlRequest{}
}

// ApplyTo mutates s. Fields are applied in a fixed order so that a preset
// in the same request sees the requested mode, and explicit toggles win
// over the preset they follow.
func (r ControlRequest) ApplyTo(s *DeviceState) {
	if r.Mode != nil {
		s.Mode = *r.Mode
	}
	if r.TargetTemperature != nil {
		s.TargetTemperature = ClampTarget(*r.TargetTemperature)
	}
	if r.FanSpeed != nil {
		s.FanSpeed = *r.FanSpeed
	}
	if r.Preset != nil {
		s.SelectPreset(*r.Preset)
	}

	if r.Eco != nil {
		s.SetEco(*r.Eco)
	}
	if r.Turbo != nil {
		s.SetTurbo(*r.Turbo)
	}
	if r.Quiet != nil {
		s.SetQuiet(*r.Quiet)
	}
	if r.Health != nil {
		s.Health = *r.Health
	}
	if r.Sleep != nil {
		s.SetSleep(*r.Sleep)
	}

	if r.Swing != nil {
		s.Swing = *r.Swing
	}
	if r.VerticalSwing != nil {
		s.VerticalSwing = *r.VerticalSwing
	}
	if r.HorizontalSwing != nil {
		s.HorizontalSwing = *r.HorizontalSwing
	}
	if r.VerticalAirflow != nil {
		s.VerticalAirflow = *r.VerticalAirflow
	}
	if r.HorizontalAirflow != nil {
		s.HorizontalAirflow = *r.HorizontalAirflow
	}

	if r.Display != nil {
		s.Display = *r.Display
	}
	if r.Beeper != nil {
		s.Beeper = *r.Beeper
	}
}
