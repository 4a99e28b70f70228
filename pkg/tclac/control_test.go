// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tclac

import (
	"errors"
	"testing"
)

func TestControlRequest_IsEmpty(t *testing.T) {
	if !(ControlRequest{}).IsEmpty() {
		t.Error("Zero request should be empty")
	}
	if (ControlRequest{Beeper: Ptr(false)}).IsEmpty() {
		t.Error("Request with a field set should not be empty")
	}
}

func TestControlRequest_ModeThenPreset(t *testing.T) {
	s := DefaultState()
	ControlRequest{Mode: Ptr(ModeCool), Preset: Ptr(PresetEco)}.ApplyTo(&s)
	if s.Mode != ModeAuto {
		t.Errorf("Eco preset after cool should force auto, got %s", s.Mode)
	}
	if !s.Eco {
		t.Error("Eco flag should be set")
	}
}

func TestControlRequest_EcoWhileOff(t *testing.T) {
	s := DefaultState()
	ControlRequest{Preset: Ptr(PresetEco)}.ApplyTo(&s)
	if s.Mode != ModeOff {
		t.Errorf("Eco preset while off must stay off, got %s", s.Mode)
	}
}

func TestControlRequest_TargetClamped(t *testing.T) {
	s := DefaultState()
	ControlRequest{TargetTemperature: Ptr(40.0)}.ApplyTo(&s)
	if s.TargetTemperature != TargetTempMax {
		t.Errorf("Expected %.0f, got %.1f", TargetTempMax, s.TargetTemperature)
	}
	ControlRequest{TargetTemperature: Ptr(10.0)}.ApplyTo(&s)
	if s.TargetTemperature != TargetTempMin {
		t.Errorf("Expected %.0f, got %.1f", TargetTempMin, s.TargetTemperature)
	}
}

func TestControlRequest_ToggleAfterPreset(t *testing.T) {
	s := DefaultState()
	s.Mode = ModeHeat
	ControlRequest{Preset: Ptr(PresetBoost), Quiet: Ptr(true)}.ApplyTo(&s)
	if !s.Quiet || s.Turbo {
		t.Errorf("Explicit quiet should win over boost: quiet=%v turbo=%v", s.Quiet, s.Turbo)
	}
}

func TestControlRequest_LeavesUnsetFields(t *testing.T) {
	s := DefaultState()
	s.Mode = ModeDry
	s.FanSpeed = FanHigh
	s.Beeper = true
	ControlRequest{Swing: Ptr(SwingBoth)}.ApplyTo(&s)
	if s.Mode != ModeDry || s.FanSpeed != FanHigh || !s.Beeper {
		t.Errorf("Unset fields changed: %+v", s)
	}
	if s.Swing != SwingBoth {
		t.Errorf("Expected swing both, got %s", s.Swing)
	}
}

func TestParseEnums(t *testing.T) {
	if m, err := ParseMode(" Fan_Only "); err != nil || m != ModeFanOnly {
		t.Errorf("ParseMode: got %s, %v", m, err)
	}
	if f, err := ParseFanSpeed("middle"); err != nil || f != FanMiddle {
		t.Errorf("ParseFanSpeed: got %s, %v", f, err)
	}
	if p, err := ParsePreset("comfort"); err != nil || p != PresetComfort {
		t.Errorf("ParsePreset: got %s, %v", p, err)
	}
	if v, err := ParseVerticalAirflow("max_down"); err != nil || v != VAirMaxDown {
		t.Errorf("ParseVerticalAirflow: got %s, %v", v, err)
	}
	if _, err := ParseMode("turbo"); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Expected ErrInvalidValue, got %v", err)
	}
	if got := Mode(42).String(); got != "unknown(42)" {
		t.Errorf("Unexpected name for out of range mode: %s", got)
	}
}
