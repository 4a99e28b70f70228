// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tclac

import (
	"fmt"
	"strings"
)

// FormatCommand returns the human-readable name for a command id of the
// given kind
func FormatCommand(cmd uint8, kind FrameKind) string {
	switch cmd {
	case CmdSetParams:
		return "SET_RESPONSE"
	case CmdPoll:
		return "POLL_RESPONSE"
	case CmdStatusEcho:
		return "STATUS_ECHO"
	case CmdShortStatus:
		return "SHORT_STATUS"
	case CmdPower:
		return "POWER_STATUS"
	}
	if kind == KindTempResponse {
		return "TEMP_RESPONSE"
	}
	return "UNKNOWN"
}

// FormatHex renders bytes as space separated upper-case hex
func FormatHex(data []byte) string {
	return fmt.Sprintf("% X", data)
}

// FormatEvent formats a framer event into a human-readable string
func FormatEvent(ev Event) string {
	f := ev.Frame
	timestamp := f.Timestamp().Format("15:04:05.000")
	name := FormatCommand(f.Command(), ev.FrameKind)

	switch ev.Kind {
	case EventChecksumMismatch:
		return fmt.Sprintf("[%s] CHECKSUM MISMATCH %s (0x%02X) len=%d calc=0x%02X recv=0x%02X\n",
			timestamp, name, f.Command(), f.Length(), ev.Calculated, f.Checksum())
	case EventUnknownCommand:
		return fmt.Sprintf("[%s] UNKNOWN COMMAND 0x%02X len=%d\n  %s\n",
			timestamp, f.Command(), f.Length(), FormatHex(f.Payload()))
	}

	result := fmt.Sprintf("[%s] %s (0x%02X) len=%d\n", timestamp, name, f.Command(), f.Length())
	result += FormatPayload(ev.FrameKind, f.Payload())
	return result
}

// FormatPayload formats the decoded fields of a payload
func FormatPayload(kind FrameKind, payload []byte) string {
	switch kind {
	case KindShortStatus:
		return "  (not decoded)\n"
	case KindUnknown:
		return fmt.Sprintf("  %s\n", FormatHex(payload))
	}

	d, err := Decode(kind, payload)
	if err != nil {
		return fmt.Sprintf("  decode error: %v\n", err)
	}

	var parts []string
	if d.Eco != nil {
		parts = append(parts,
			fmt.Sprintf("eco=%s", onOff(*d.Eco)),
			fmt.Sprintf("turbo=%s", onOff(*d.Turbo)),
			fmt.Sprintf("quiet=%s", onOff(*d.Quiet)),
			fmt.Sprintf("display=%s", onOff(*d.Display)))
	}
	if d.CurrentTemperature != nil {
		src := ""
		switch d.TempSource {
		case TempSourceWord:
			src = " (word)"
		case TempSourceByte:
			src = " (byte)"
		}
		parts = append(parts, fmt.Sprintf("room=%.1f°C%s", *d.CurrentTemperature, src))
	} else if kind != KindPower {
		parts = append(parts, "room=--")
	}
	if d.TargetTemperature != nil {
		parts = append(parts, fmt.Sprintf("target=%.1f°C", *d.TargetTemperature))
	}
	switch d.Power {
	case PowerReportOff:
		parts = append(parts, "power=OFF")
	case PowerReportOn:
		parts = append(parts, "power=ON")
	}

	return "  " + strings.Join(parts, " ") + "\n"
}

// FormatState renders a device state as a compact multi-line summary
func FormatState(s DeviceState) string {
	current := "--"
	if t, ok := s.Current(); ok {
		current = fmt.Sprintf("%.1f°C", t)
	}

	var flags []string
	for _, f := range []struct {
		name string
		on   bool
	}{
		{"eco", s.Eco}, {"turbo", s.Turbo}, {"quiet", s.Quiet},
		{"health", s.Health}, {"sleep", s.Sleep},
		{"display", s.Display}, {"beeper", s.Beeper},
	} {
		if f.on {
			flags = append(flags, f.name)
		}
	}
	if len(flags) == 0 {
		flags = append(flags, "none")
	}

	result := fmt.Sprintf("Mode: %s  Target: %.0f°C  Room: %s\n", s.Mode, s.TargetTemperature, current)
	result += fmt.Sprintf("Fan: %s  Swing: %s  Preset: %s\n", s.FanSpeed, s.Swing, s.Preset)
	result += fmt.Sprintf("Vertical: %s/%s  Horizontal: %s/%s\n",
		s.VerticalSwing, s.VerticalAirflow, s.HorizontalSwing, s.HorizontalAirflow)
	result += fmt.Sprintf("Flags: %s\n", strings.Join(flags, ", "))
	return result
}

// FormatSetFrame describes the fields of an outbound SET frame
func FormatSetFrame(frame []byte) string {
	if len(frame) != SetFrameSize {
		return fmt.Sprintf("not a SET frame (%d bytes): %s\n", len(frame), FormatHex(frame))
	}

	b7, b8 := frame[byteFlags], frame[byteModeFlags]
	result := fmt.Sprintf("SET %s\n", FormatHex(frame))
	result += fmt.Sprintf("  power=%s eco=%s display=%s beeper=%s\n",
		onOff(b7&bitPower != 0), onOff(b7&bitEco != 0), onOff(b7&bitDisplay != 0), onOff(b7&bitBeeper != 0))
	result += fmt.Sprintf("  mode=0x%02X quiet=%s turbo=%s health=%s comfort=%s\n",
		b8&maskMode&^bitComfort, onOff(b8&bitQuiet != 0), onOff(b8&bitTurbo != 0), onOff(b8&bitHealth != 0), onOff(b8&bitComfort != 0))
	result += fmt.Sprintf("  target=%.0f°C fan=0x%X vswing=%s hswing=%s sleep=%s\n",
		RawToTemperature(frame[byteTemp]), frame[byteFan]&maskFanCode,
		onOff(frame[byteFan]&bitsVerticalSwing != 0), onOff(frame[byteHSwing]&bitHorizontalSwing != 0),
		onOff(frame[byteSleep]&bitSleep != 0))
	result += fmt.Sprintf("  vertical dir=%d pos=%d horizontal dir=%d pos=%d checksum=0x%02X\n",
		frame[byteVertical]>>shiftSwingDirection, frame[byteVertical]&maskAirflowPosition,
		frame[byteHoriz]>>shiftSwingDirection, frame[byteHoriz]&maskAirflowPosition,
		frame[SetFrameSize-1])
	return result
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}
