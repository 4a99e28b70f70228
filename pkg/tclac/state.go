// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tclac

import (
	"math"

	"go.uber.org/zap"
)

// DeviceState is the canonical model of the indoor unit. The Engine is its
// only writer; everything else works on copies.
type DeviceState struct {
	Mode              Mode
	TargetTemperature float64 // [16, 31], step 1

	// CurrentTemperature is only meaningful when CurrentKnown is set.
	// It is written by telemetry, never by control requests.
	CurrentTemperature float64
	CurrentKnown       bool

	FanSpeed          FanSpeed
	Swing             SwingMode
	VerticalSwing     VerticalSwing
	HorizontalSwing   HorizontalSwing
	VerticalAirflow   VerticalAirflow
	HorizontalAirflow HorizontalAirflow
	Preset            Preset

	// At most one of Eco, Turbo and Quiet is set by local mutations.
	Eco    bool
	Turbo  bool
	Quiet  bool
	Health bool
	Sleep  bool

	Display bool
	Beeper  bool
}

// DefaultState returns the power-on state: off, 22°C, low fan, no swing,
// no preset and an unknown room temperature.
func DefaultState() DeviceState {
	return DeviceState{
		Mode:              ModeOff,
		TargetTemperature: DefaultTarget,
		FanSpeed:          FanLow,
		Swing:             SwingOff,
		Preset:            PresetNone,
	}
}

// Current returns the room temperature and whether one has been reported
func (s DeviceState) Current() (float64, bool) {
	return s.CurrentTemperature, s.CurrentKnown
}

// PoweredOn reports whether the unit is in any mode but Off
func (s DeviceState) PoweredOn() bool {
	return s.Mode != ModeOff
}

// ClampTarget rounds t to the 1°C step and clamps it to [16, 31]
func ClampTarget(t float64) float64 {
	if math.IsNaN(t) {
		return DefaultTarget
	}
	t = math.Round(t/TargetTempStep) * TargetTempStep
	return math.Max(TargetTempMin, math.Min(TargetTempMax, t))
}

// SetEco enables or disables eco. Enabling clears turbo and quiet.
func (s *DeviceState) SetEco(on bool) {
	s.Eco = on
	if on {
		s.Turbo = false
		s.Quiet = false
	}
	s.syncPreset()
}

// SetTurbo enables or disables turbo. Enabling clears eco and quiet.
func (s *DeviceState) SetTurbo(on bool) {
	s.Turbo = on
	if on {
		s.Eco = false
		s.Quiet = false
	}
	s.syncPreset()
}

// SetQuiet enables or disables quiet. Enabling clears eco and turbo.
func (s *DeviceState) SetQuiet(on bool) {
	s.Quiet = on
	if on {
		s.Eco = false
		s.Turbo = false
	}
	s.syncPreset()
}

// SetSleep sets the sleep flag. Clearing it leaves the sleep preset.
func (s *DeviceState) SetSleep(on bool) {
	s.Sleep = on
	s.syncPreset()
}

// syncPreset keeps Preset in line with the eco/turbo/quiet/sleep flags
// after one of them changed on its own. Mode is never touched here.
func (s *DeviceState) syncPreset() {
	switch {
	case s.Turbo:
		s.Preset = PresetBoost
	case s.Quiet:
		s.Preset = PresetComfort
	case s.Eco:
		s.Preset = PresetEco
	case s.Preset == PresetEco, s.Preset == PresetBoost, s.Preset == PresetComfort:
		s.Preset = PresetNone
	case s.Preset == PresetSleep && !s.Sleep:
		s.Preset = PresetNone
	}
}

// SelectPreset clears eco, turbo and quiet and then applies the preset.
// Eco forces Auto unless the unit is off.
func (s *DeviceState) SelectPreset(p Preset) {
	s.Eco, s.Turbo, s.Quiet = false, false, false
	switch p {
	case PresetEco:
		s.Eco = true
		if s.Mode != ModeOff {
			s.Mode = ModeAuto
		}
	case PresetBoost:
		s.Turbo = true
	case PresetComfort:
		s.Quiet = true
	}
	s.Sleep = p == PresetSleep
	s.Preset = p
}

// ApplyDelta merges device-reported telemetry into the state. Device
// reports win over local assumptions; preset flag changes are logged but
// never rejected. It returns true when the host should be notified.
func (s *DeviceState) ApplyDelta(d Delta, log *zap.Logger) bool {
	if log == nil {
		log = zap.NewNop()
	}
	changed := false

	presetChanged := false
	reconcile := func(name string, field *bool, reported *bool) {
		if reported == nil || *field == *reported {
			return
		}
		log.Debug("device changed preset flag", zap.String("flag", name), zap.Bool("on", *reported))
		*field = *reported
		presetChanged = true
	}
	reconcile("eco", &s.Eco, d.Eco)
	reconcile("turbo", &s.Turbo, d.Turbo)
	reconcile("quiet", &s.Quiet, d.Quiet)
	if presetChanged {
		prev := s.Preset
		s.syncPreset()
		if s.Preset != prev {
			log.Debug("preset follows device flags", zap.Stringer("from", prev), zap.Stringer("to", s.Preset))
		}
		changed = true
	}

	if d.Display != nil && *d.Display != s.Display {
		log.Debug("device changed display", zap.Bool("on", *d.Display))
		s.Display = *d.Display
		changed = true
	}

	if d.CurrentTemperature != nil {
		if !s.CurrentKnown || s.CurrentTemperature != *d.CurrentTemperature {
			changed = true
		}
		s.CurrentTemperature = *d.CurrentTemperature
		s.CurrentKnown = true
	}

	if d.TargetTemperature != nil {
		t := ClampTarget(*d.TargetTemperature)
		if t != s.TargetTemperature {
			s.TargetTemperature = t
			changed = true
		}
	}

	switch d.Power {
	case PowerReportOff:
		if s.Mode != ModeOff {
			log.Info("device reports power off", zap.Stringer("previous_mode", s.Mode))
			s.Mode = ModeOff
			changed = true
		}
	case PowerReportOn:
		if s.Mode == ModeOff {
			// The power frame carries no mode; keep the enum and just publish.
			log.Info("device reports power on")
			changed = true
		}
	}

	return changed || d.alwaysNotify
}
