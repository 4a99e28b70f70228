// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tclac

import (
	"fmt"
	"strings"
)

// Mode is the power mode of the indoor unit
type Mode int

const (
	ModeOff Mode = iota
	ModeAuto
	ModeCool
	ModeHeat
	ModeDry
	ModeFanOnly
)

// FanSpeed is the indoor fan setting
type FanSpeed int

const (
	FanAuto FanSpeed = iota
	FanQuiet
	FanLow
	FanMedium
	FanMiddle
	FanHigh
	FanFocus
	FanDiffuse
)

// SwingMode is the coarse, host-facing oscillation setting
type SwingMode int

const (
	SwingOff SwingMode = iota
	SwingVertical
	SwingHorizontal
	SwingBoth
)

// VerticalSwing is the vertical oscillation pattern
type VerticalSwing int

const (
	VSwingOff VerticalSwing = iota
	VSwingUpDown
	VSwingUpside
	VSwingDownside
)

// HorizontalSwing is the horizontal oscillation pattern
type HorizontalSwing int

const (
	HSwingOff HorizontalSwing = iota
	HSwingLeftRight
	HSwingLeftside
	HSwingCenter
	HSwingRightside
)

// VerticalAirflow is a fixed vertical vane position
type VerticalAirflow int

const (
	VAirLast VerticalAirflow = iota
	VAirMaxUp
	VAirUp
	VAirCenter
	VAirDown
	VAirMaxDown
)

// HorizontalAirflow is a fixed horizontal vane position
type HorizontalAirflow int

const (
	HAirLast HorizontalAirflow = iota
	HAirMaxLeft
	HAirLeft
	HAirCenter
	HAirRight
	HAirMaxRight
)

// Preset is a named overlay on top of the power mode
type Preset int

const (
	PresetNone Preset = iota
	PresetEco
	PresetBoost
	PresetComfort
	PresetSleep
)

var (
	modeNames              = []string{"off", "auto", "cool", "heat", "dry", "fan_only"}
	fanNames               = []string{"auto", "quiet", "low", "medium", "middle", "high", "focus", "diffuse"}
	swingNames             = []string{"off", "vertical", "horizontal", "both"}
	verticalSwingNames     = []string{"off", "up_down", "upside", "downside"}
	horizontalSwingNames   = []string{"off", "left_right", "leftside", "center", "rightside"}
	verticalAirflowNames   = []string{"last", "max_up", "up", "center", "down", "max_down"}
	horizontalAirflowNames = []string{"last", "max_left", "left", "center", "right", "max_right"}
	presetNames            = []string{"none", "eco", "boost", "comfort", "sleep"}
)

func enumName(names []string, v int) string {
	if v < 0 || v >= len(names) {
		return fmt.Sprintf("unknown(%d)", v)
	}
	return names[v]
}

func parseEnum(kind string, names []string, s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range names {
		if name == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %s %q (valid: %s)", ErrInvalidValue, kind, s, strings.Join(names, ", "))
}

func (m Mode) String() string              { return enumName(modeNames, int(m)) }
func (f FanSpeed) String() string          { return enumName(fanNames, int(f)) }
func (s SwingMode) String() string         { return enumName(swingNames, int(s)) }
func (v VerticalSwing) String() string     { return enumName(verticalSwingNames, int(v)) }
func (h HorizontalSwing) String() string   { return enumName(horizontalSwingNames, int(h)) }
func (v VerticalAirflow) String() string   { return enumName(verticalAirflowNames, int(v)) }
func (h HorizontalAirflow) String() string { return enumName(horizontalAirflowNames, int(h)) }
func (p Preset) String() string            { return enumName(presetNames, int(p)) }

// ParseMode parses a mode name such as "cool" or "fan_only"
func ParseMode(s string) (Mode, error) {
	v, err := parseEnum("mode", modeNames, s)
	return Mode(v), err
}

// ParseFanSpeed parses a fan speed name
func ParseFanSpeed(s string) (FanSpeed, error) {
	v, err := parseEnum("fan speed", fanNames, s)
	return FanSpeed(v), err
}

// ParseSwingMode parses a coarse swing mode name
func ParseSwingMode(s string) (SwingMode, error) {
	v, err := parseEnum("swing mode", swingNames, s)
	return SwingMode(v), err
}

func ParseVerticalSwing(s string) (VerticalSwing, error) {
	v, err := parseEnum("vertical swing", verticalSwingNames, s)
	return VerticalSwing(v), err
}

func ParseHorizontalSwing(s string) (HorizontalSwing, error) {
	v, err := parseEnum("horizontal swing", horizontalSwingNames, s)
	return HorizontalSwing(v), err
}

func ParseVerticalAirflow(s string) (VerticalAirflow, error) {
	v, err := parseEnum("vertical airflow", verticalAirflowNames, s)
	return VerticalAirflow(v), err
}

func ParseHorizontalAirflow(s string) (HorizontalAirflow, error) {
	v, err := parseEnum("horizontal airflow", horizontalAirflowNames, s)
	return HorizontalAirflow(v), err
}

// ParsePreset parses a preset name
func ParsePreset(s string) (Preset, error) {
	v, err := parseEnum("preset", presetNames, s)
	return Preset(v), err
}

// ModeNames returns every mode name in declaration order
func ModeNames() []string { return append([]string(nil), modeNames...) }

// FanSpeedNames returns every fan speed name in declaration order
func FanSpeedNames() []string { return append([]string(nil), fanNames...) }

// SwingModeNames returns every swing mode name in declaration order
func SwingModeNames() []string { return append([]string(nil), swingNames...) }

// PresetNames returns every preset name in declaration order
func PresetNames() []string { return append([]string(nil), presetNames...) }

func VerticalSwingNames() []string     { return append([]string(nil), verticalSwingNames...) }
func HorizontalSwingNames() []string   { return append([]string(nil), horizontalSwingNames...) }
func VerticalAirflowNames() []string   { return append([]string(nil), verticalAirflowNames...) }
func HorizontalAirflowNames() []string { return append([]string(nil), horizontalAirflowNames...) }
