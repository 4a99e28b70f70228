// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tclac

import "math"

// Encode serializes the full device state into a 37-byte SET frame.
// Flags are OR'd into place, so overlapping contributions (fan quiet and
// the quiet preset, eco flag and eco preset) never carry into other bits.
func Encode(s DeviceState) []byte {
	frame := newSetFrame()

	// Byte 7: eco, display, beeper, power
	if s.Eco {
		frame[byteFlags] |= bitEco
	}
	if s.Display {
		frame[byteFlags] |= bitDisplay
	}
	if s.Beeper {
		frame[byteFlags] |= bitBeeper
	}
	if s.Mode != ModeOff {
		frame[byteFlags] |= bitPower
	}

	// Byte 8: quiet, turbo, health, mode detail
	frame[byteModeFlags] |= modeCode(s.Mode)
	if s.Quiet {
		frame[byteModeFlags] |= bitQuiet
	}
	if s.Turbo {
		frame[byteModeFlags] |= bitTurbo
	}
	if s.Health {
		frame[byteModeFlags] |= bitHealth
	}

	modeBits, fanBits := fanCode(s.FanSpeed)
	frame[byteModeFlags] |= modeBits
	frame[byteFan] |= fanBits

	switch s.Swing {
	case SwingVertical:
		frame[byteFan] |= bitsVerticalSwing
	case SwingHorizontal:
		frame[byteHSwing] |= bitHorizontalSwing
	case SwingBoth:
		frame[byteFan] |= bitsVerticalSwing
		frame[byteHSwing] |= bitHorizontalSwing
	}

	switch s.Preset {
	case PresetEco:
		frame[byteFlags] |= bitEco
	case PresetComfort:
		frame[byteModeFlags] |= bitComfort
	}
	if s.Sleep {
		frame[byteSleep] |= bitSleep
	}

	frame[byteTemp] = TemperatureToRaw(s.TargetTemperature)

	frame[byteVertical] = byte(s.VerticalSwing&0x03)<<shiftSwingDirection |
		byte(s.VerticalAirflow)&maskAirflowPosition
	frame[byteHoriz] = byte(s.HorizontalSwing&0x07)<<shiftSwingDirection |
		byte(s.HorizontalAirflow)&maskAirflowPosition

	frame[SetFrameSize-1] = Checksum(frame[:SetFrameSize-1])
	return frame
}

// EncodePowerOff builds the dedicated power-off frame: fixed header and
// sub-header, everything else zero.
func EncodePowerOff() []byte {
	frame := make([]byte, SetFrameSize)
	copy(frame, HeaderToDevice[:])
	frame[OffsetCommand] = CmdSetParams
	frame[OffsetLength] = SetPayloadSize
	frame[OffsetPayload] = setSubHeader0
	frame[OffsetPayload+1] = setSubHeader1
	frame[SetFrameSize-1] = Checksum(frame[:SetFrameSize-1])
	return frame
}

// EncodePoll builds the 7-byte status poll request
func EncodePoll() []byte {
	return BuildFrame(HeaderToDevice, CmdPoll, []byte{pollPayload})
}

// TemperatureToRaw maps a target temperature onto the SET frame encoding,
// 111 minus the rounded temperature, clamped to a byte. NaN encodes as
// DefaultTarget.
func TemperatureToRaw(t float64) byte {
	switch {
	case math.IsNaN(t):
		t = DefaultTarget
	case t > tempEncodeBase:
		return 0
	case t < tempEncodeBase-0xFF:
		return 0xFF
	}
	return byte(tempEncodeBase - int(math.Floor(t+0.5)))
}

// RawToTemperature inverts TemperatureToRaw
func RawToTemperature(raw byte) float64 {
	return float64(tempEncodeBase - int(raw))
}

func newSetFrame() []byte {
	frame := make([]byte, SetFrameSize)
	copy(frame, HeaderToDevice[:])
	frame[OffsetCommand] = CmdSetParams
	frame[OffsetLength] = SetPayloadSize
	frame[OffsetPayload] = setSubHeader0
	frame[OffsetPayload+1] = setSubHeader1
	frame[byteFixed13] = setFixed13
	frame[byteFixed29] = setFixed29
	return frame
}

// modeCode returns the byte 8 mode detail bits. Unknown modes encode as cool.
func modeCode(m Mode) byte {
	switch m {
	case ModeOff:
		return modeCodeOff
	case ModeAuto:
		return modeCodeAuto
	case ModeCool:
		return modeCodeCool
	case ModeDry:
		return modeCodeDry
	case ModeFanOnly:
		return modeCodeFanOnly
	case ModeHeat:
		return modeCodeHeat
	default:
		return modeCodeCool
	}
}

// fanCode returns the byte 8 and byte 10 contributions of a fan speed.
// Quiet and diffuse live in byte 8 with a zero speed field.
func fanCode(f FanSpeed) (byte8, byte10 byte) {
	switch f {
	case FanQuiet:
		return bitQuiet, fanCodeAuto
	case FanDiffuse:
		return bitTurbo, fanCodeAuto
	case FanLow:
		return 0, fanCodeLow
	case FanMiddle:
		return 0, fanCodeMiddle
	case FanMedium:
		return 0, fanCodeMedium
	case FanHigh:
		return 0, fanCodeHigh
	case FanFocus:
		return 0, fanCodeFocus
	default:
		return 0, fanCodeAuto
	}
}
