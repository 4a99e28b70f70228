// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package tclac implements the serial protocol spoken by the control board of
// TCL split air conditioners.
//
// The package recovers frames from an unbounded UART byte stream, decodes the
// telemetry they carry into a DeviceState, and serializes a DeviceState back
// into the 37-byte SET frame the indoor unit expects. Engine ties those pieces
// together behind a feed/tick/apply interface without owning any I/O.
package tclac

// Frame headers
var (
	HeaderFromDevice = [HeaderSize]byte{0xBB, 0x01, 0x00} // AC -> controller
	HeaderToDevice   = [HeaderSize]byte{0xBB, 0x00, 0x01} // controller -> AC
)

// Frame layout
const (
	HeaderSize     = 3
	OffsetCommand  = 3
	OffsetLength   = 4
	OffsetPayload  = 5
	FrameOverhead  = OffsetPayload + 1 // header + cmd + len + checksum
	MinFrameSize   = 7
	SetFrameSize   = 37
	SetPayloadSize = 0x20
	PollFrameSize  = 7
)

// Command identifiers
const (
	CmdSetParams   = 0x03 // outbound control frame and its status response
	CmdPoll        = 0x04 // poll request / status response
	CmdStatusEcho  = 0x06
	CmdShortStatus = 0x09
	CmdPower       = 0x0A

	// DefaultTempResponseCommand is the id assumed for the short temperature
	// response. It has never been observed in a capture; override it with
	// WithTempResponseCommand once confirmed.
	DefaultTempResponseCommand = 0x05
)

// SET frame fixed bytes
const (
	setSubHeader0  = 0x03 // byte 5
	setSubHeader1  = 0x01 // byte 6
	setFixed13     = 0x01
	setFixed29     = 0x20
	pollPayload    = 0x00
	pollPayloadLen = 0x01
)

// SET frame byte offsets
const (
	byteFlags     = 7
	byteModeFlags = 8
	byteTemp      = 9
	byteFan       = 10
	byteHSwing    = 11
	byteFixed13   = 13
	byteSleep     = 19
	byteFixed29   = 29
	byteVertical  = 32
	byteHoriz     = 33
)

// Byte 7: power, display, beeper, eco
const (
	bitEco     = 0x80
	bitDisplay = 0x40
	bitBeeper  = 0x20
	bitPower   = 0x04
)

// Byte 8: quiet, turbo, health, comfort, mode detail
const (
	bitQuiet   = 0x80
	bitTurbo   = 0x40
	bitHealth  = 0x20
	bitComfort = 0x10
	maskMode   = 0x1F
)

// Mode detail codes (byte 8 low bits)
const (
	modeCodeOff     = 0x00
	modeCodeHeat    = 0x01
	modeCodeDry     = 0x02
	modeCodeCool    = 0x03
	modeCodeFanOnly = 0x07
	modeCodeAuto    = 0x08
)

// Fan speed codes (byte 10 low 3 bits)
const (
	fanCodeAuto   = 0x00
	fanCodeLow    = 0x01
	fanCodeMedium = 0x03
	fanCodeFocus  = 0x05
	fanCodeMiddle = 0x06
	fanCodeHigh   = 0x07
	maskFanCode   = 0x07
)

// Swing bits
const (
	bitsVerticalSwing   = 0x38 // byte 10 bits 3..5
	bitHorizontalSwing  = 0x08 // byte 11 bit 3
	bitSleep            = 0x01 // byte 19 bit 0
	shiftSwingDirection = 3    // bytes 32/33
	maskAirflowPosition = 0x07 // bytes 32/33 bits 0..2
)

// Status payload flags (mirrors bytes 7/8 of the SET frame)
const (
	statusFlagsOffset = 2 // eco, display
	statusSpeedOffset = 3 // quiet, turbo
	StatusFlagEco     = bitEco
	StatusFlagDisplay = bitDisplay
	StatusFlagQuiet   = bitQuiet
	StatusFlagTurbo   = bitTurbo
)

// Status payload layout
const (
	MinStatusPayload      = 32
	FullStatusPayload     = 55
	statusRoomTempOffset  = 12 // 16-bit big-endian
	statusFallbackOffset  = 30
	fallbackRawMin        = 120
	fallbackRawMax        = 180
	fallbackRawOffset     = 127.0
	roomTempDivisor       = 374.0
	MinTempResponse       = 4
	tempRespCurrentOffset = 7.0
	tempRespTargetOffset  = 12.0
	MinPowerPayload       = 3
	powerFlagOffset       = 2
	PowerFlagOff          = 0x04
	PowerFlagOn           = 0x0C
)

// Temperature windows
const (
	CurrentTempMin  = -10.0 // exclusive
	CurrentTempMax  = 60.0  // exclusive
	TargetAcceptMin = 10.0  // exclusive
	TargetAcceptMax = 40.0  // exclusive
	TargetTempMin   = 16.0
	TargetTempMax   = 31.0
	TargetTempStep  = 1.0
	DefaultTarget   = 22.0
	tempEncodeBase  = 111
)

// DefaultPollIntervalMs is the poll cadence required by the indoor unit.
const DefaultPollIntervalMs = 5000
