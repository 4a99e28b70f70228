// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tclac

import (
	"bytes"
	"math"
	"testing"
)

func coolState() DeviceState {
	s := DefaultState()
	s.Mode = ModeCool
	return s
}

func TestEncode_CoolHighBoth(t *testing.T) {
	s := coolState()
	s.TargetTemperature = 24
	s.FanSpeed = FanHigh
	s.Swing = SwingBoth

	frame := Encode(s)
	if len(frame) != SetFrameSize {
		t.Fatalf("Expected %d bytes, got %d", SetFrameSize, len(frame))
	}

	want := map[int]byte{
		0: 0xBB, 1: 0x00, 2: 0x01, 3: 0x03, 4: 0x20, 5: 0x03, 6: 0x01,
		7:  0x04,
		8:  0x03,
		9:  0x57,
		10: 0x3F,
		11: 0x08,
		13: 0x01,
		29: 0x20,
	}
	for i := 0; i < SetFrameSize-1; i++ {
		if frame[i] != want[i] {
			t.Errorf("byte %d: expected 0x%02X, got 0x%02X", i, want[i], frame[i])
		}
	}
	if frame[36] != Checksum(frame[:36]) {
		t.Errorf("Bad checksum 0x%02X", frame[36])
	}
}

func TestEncode_Flags(t *testing.T) {
	s := coolState()
	s.Display = true
	s.Beeper = true
	s.Health = true
	frame := Encode(s)

	if frame[7] != 0x64 {
		t.Errorf("byte 7: expected 0x64, got 0x%02X", frame[7])
	}
	if frame[8] != 0x23 {
		t.Errorf("byte 8: expected 0x23, got 0x%02X", frame[8])
	}
}

func TestEncode_ModeTable(t *testing.T) {
	tests := []struct {
		mode Mode
		code byte
	}{
		{ModeOff, 0x00},
		{ModeAuto, 0x08},
		{ModeCool, 0x03},
		{ModeDry, 0x02},
		{ModeFanOnly, 0x07},
		{ModeHeat, 0x01},
		{Mode(99), 0x03},
	}
	for _, tt := range tests {
		s := DefaultState()
		s.Mode = tt.mode
		if got := Encode(s)[8]; got != tt.code {
			t.Errorf("%s: expected 0x%02X, got 0x%02X", tt.mode, tt.code, got)
		}
	}
}

func TestEncode_FanTable(t *testing.T) {
	tests := []struct {
		fan     FanSpeed
		b8, b10 byte
	}{
		{FanAuto, 0x00, 0x00},
		{FanQuiet, 0x80, 0x00},
		{FanLow, 0x00, 0x01},
		{FanMedium, 0x00, 0x03},
		{FanMiddle, 0x00, 0x06},
		{FanHigh, 0x00, 0x07},
		{FanFocus, 0x00, 0x05},
		{FanDiffuse, 0x40, 0x00},
	}
	for _, tt := range tests {
		s := DefaultState()
		s.FanSpeed = tt.fan
		frame := Encode(s)
		if frame[8] != tt.b8 || frame[10] != tt.b10 {
			t.Errorf("%s: expected b8=0x%02X b10=0x%02X, got b8=0x%02X b10=0x%02X",
				tt.fan, tt.b8, tt.b10, frame[8], frame[10])
		}
	}
}

func TestEncode_SwingTable(t *testing.T) {
	tests := []struct {
		swing    SwingMode
		b10, b11 byte
	}{
		{SwingOff, 0x01, 0x00},
		{SwingVertical, 0x39, 0x00},
		{SwingHorizontal, 0x01, 0x08},
		{SwingBoth, 0x39, 0x08},
	}
	for _, tt := range tests {
		s := DefaultState()
		s.Swing = tt.swing
		frame := Encode(s)
		if frame[10] != tt.b10 || frame[11] != tt.b11 {
			t.Errorf("%s: expected b10=0x%02X b11=0x%02X, got 0x%02X 0x%02X",
				tt.swing, tt.b10, tt.b11, frame[10], frame[11])
		}
	}
}

func TestEncode_Presets(t *testing.T) {
	s := coolState()
	s.SelectPreset(PresetComfort)
	if got := Encode(s)[8]; got != 0x93 {
		t.Errorf("Comfort: expected byte 8 0x93, got 0x%02X", got)
	}

	s = coolState()
	s.SelectPreset(PresetEco)
	frame := Encode(s)
	if frame[7] != 0x84 {
		t.Errorf("Eco: expected byte 7 0x84, got 0x%02X", frame[7])
	}
	if frame[8] != 0x08 {
		t.Errorf("Eco: expected auto (0x08) in byte 8, got 0x%02X", frame[8])
	}

	s = coolState()
	s.SelectPreset(PresetSleep)
	if got := Encode(s)[19]; got != 0x01 {
		t.Errorf("Sleep: expected byte 19 0x01, got 0x%02X", got)
	}

	s = coolState()
	s.SelectPreset(PresetBoost)
	if got := Encode(s)[8]; got != 0x43 {
		t.Errorf("Boost: expected byte 8 0x43, got 0x%02X", got)
	}
}

func TestEncode_QuietFanAndQuietFlagDoNotCarry(t *testing.T) {
	s := coolState()
	s.FanSpeed = FanQuiet
	s.SetQuiet(true)
	// cool | quiet (fan and flag share the bit) | comfort
	if got := Encode(s)[8]; got != 0x93 {
		t.Errorf("Expected 0x93, got 0x%02X", got)
	}
}

func TestEncode_ToggleAfterEcoPresetDropsEcoBit(t *testing.T) {
	s := DefaultState()
	ControlRequest{Mode: Ptr(ModeCool), Preset: Ptr(PresetEco)}.ApplyTo(&s)
	ControlRequest{Turbo: Ptr(true)}.ApplyTo(&s)

	frame := Encode(s)
	if frame[7]&bitEco != 0 {
		t.Errorf("Eco bit still set after turbo: byte 7 0x%02X", frame[7])
	}
	if frame[8]&bitTurbo == 0 {
		t.Errorf("Turbo bit missing: byte 8 0x%02X", frame[8])
	}
	if s.Preset != PresetBoost {
		t.Errorf("Expected preset boost, got %s", s.Preset)
	}
}

func TestEncode_Directions(t *testing.T) {
	s := coolState()
	s.VerticalSwing = VSwingDownside
	s.VerticalAirflow = VAirMaxDown
	s.HorizontalSwing = HSwingRightside
	s.HorizontalAirflow = HAirMaxRight
	frame := Encode(s)

	if frame[32] != 0x1D {
		t.Errorf("byte 32: expected 0x1D, got 0x%02X", frame[32])
	}
	if frame[33] != 0x25 {
		t.Errorf("byte 33: expected 0x25, got 0x%02X", frame[33])
	}
}

func TestTemperatureRoundTrip(t *testing.T) {
	for c := 16; c <= 31; c++ {
		raw := TemperatureToRaw(float64(c))
		if raw != byte(111-c) {
			t.Errorf("%d°C: expected raw %d, got %d", c, 111-c, raw)
		}
		if got := RawToTemperature(raw); got != float64(c) {
			t.Errorf("%d°C: decoded %.1f", c, got)
		}
	}
	if TemperatureToRaw(200) != 0 {
		t.Error("Expected raw clamped to 0")
	}
	if TemperatureToRaw(-200) != 0xFF {
		t.Error("Expected raw clamped to 255")
	}
}

func TestTemperatureToRaw_NonFinite(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want byte
	}{
		{"NaN", math.NaN(), 111 - DefaultTarget},
		{"+Inf", math.Inf(1), 0},
		{"-Inf", math.Inf(-1), 0xFF},
		{"max float", math.MaxFloat64, 0},
		{"min float", -math.MaxFloat64, 0xFF},
		{"top edge", 111.4, 0},
		{"bottom edge", -144, 0xFF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TemperatureToRaw(tt.in); got != tt.want {
				t.Errorf("TemperatureToRaw(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}

	s := DefaultState()
	s.TargetTemperature = math.NaN()
	if frame := Encode(s); frame[9] != 111-DefaultTarget {
		t.Errorf("NaN target: byte 9 = 0x%02X, want 0x%02X", frame[9], byte(111-DefaultTarget))
	}
}

func TestEncodePowerOff(t *testing.T) {
	frame := EncodePowerOff()
	if len(frame) != SetFrameSize {
		t.Fatalf("Expected %d bytes, got %d", SetFrameSize, len(frame))
	}
	head := []byte{0xBB, 0x00, 0x01, 0x03, 0x20, 0x03, 0x01}
	if !bytes.Equal(frame[:7], head) {
		t.Errorf("Unexpected head % X", frame[:7])
	}
	for i := 7; i < 36; i++ {
		if frame[i] != 0 {
			t.Errorf("byte %d: expected 0, got 0x%02X", i, frame[i])
		}
	}
	if frame[36] != Checksum(frame[:36]) {
		t.Errorf("Bad checksum 0x%02X", frame[36])
	}
}

func TestEncodePoll(t *testing.T) {
	want := []byte{0xBB, 0x00, 0x01, 0x04, 0x01, 0x00, 0xBF}
	if got := EncodePoll(); !bytes.Equal(got, want) {
		t.Errorf("Expected % X, got % X", want, got)
	}
}
