// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tclac

import (
	"encoding/binary"
	"fmt"
)

// PowerReport is the power flag carried by a CMD_POWER frame
type PowerReport int

const (
	PowerReportNone PowerReport = iota
	PowerReportOff
	PowerReportOn
)

// TempSource records which status field produced a room temperature
type TempSource int

const (
	TempSourceNone TempSource = iota
	TempSourceWord            // payload[12:14], big-endian
	TempSourceByte            // payload[30] fallback
)

// Delta is the set of fields a single frame reports. Nil pointers mean the
// frame did not carry (or did not accept) that field.
type Delta struct {
	Eco     *bool
	Turbo   *bool
	Quiet   *bool
	Display *bool

	CurrentTemperature *float64
	TargetTemperature  *float64
	TempSource         TempSource

	Power PowerReport

	// status and temperature frames are always published, even unchanged
	alwaysNotify bool
}

// Decode dispatches a payload to the decoder for its frame kind.
// Short status and unknown frames yield an empty delta.
func Decode(kind FrameKind, payload []byte) (Delta, error) {
	switch kind {
	case KindStatus:
		return DecodeStatus(payload)
	case KindTempResponse:
		return DecodeTempResponse(payload)
	case KindPower:
		return DecodePower(payload)
	}
	return Delta{}, nil
}

// DecodeStatus decodes the main status layout shared by POLL, SET and
// STATUS_ECHO responses.
func DecodeStatus(payload []byte) (Delta, error) {
	if len(payload) < MinStatusPayload {
		return Delta{}, fmt.Errorf("%w: status has %d bytes, need %d", ErrPayloadTooShort, len(payload), MinStatusPayload)
	}

	flags := payload[statusFlagsOffset]
	speed := payload[statusSpeedOffset]
	d := Delta{
		Eco:          boolPtr(flags&StatusFlagEco != 0),
		Display:      boolPtr(flags&StatusFlagDisplay != 0),
		Turbo:        boolPtr(speed&StatusFlagTurbo != 0),
		Quiet:        boolPtr(speed&StatusFlagQuiet != 0),
		alwaysNotify: true,
	}

	if t, src, ok := StatusRoomTemperature(payload); ok {
		d.CurrentTemperature = &t
		d.TempSource = src
	}
	return d, nil
}

// StatusRoomTemperature extracts the room temperature from a status
// payload. The 16-bit field is preferred; the single byte at offset 30 is
// only consulted on full-length payloads when the word was rejected.
func StatusRoomTemperature(payload []byte) (float64, TempSource, bool) {
	if len(payload) >= statusRoomTempOffset+2 {
		raw := binary.BigEndian.Uint16(payload[statusRoomTempOffset:])
		c := (float64(raw)/roomTempDivisor - 32.0) / 1.8
		if currentInRange(c) {
			return c, TempSourceWord, true
		}
	}

	if len(payload) >= FullStatusPayload {
		raw := payload[statusFallbackOffset]
		if raw >= fallbackRawMin && raw <= fallbackRawMax {
			c := float64(raw) - fallbackRawOffset
			if currentInRange(c) {
				return c, TempSourceByte, true
			}
		}
	}
	return 0, TempSourceNone, false
}

// DecodeTempResponse decodes the short temperature response. Current and
// target are accepted independently.
func DecodeTempResponse(payload []byte) (Delta, error) {
	if len(payload) < MinTempResponse {
		return Delta{}, fmt.Errorf("%w: temperature response has %d bytes, need %d", ErrPayloadTooShort, len(payload), MinTempResponse)
	}

	d := Delta{alwaysNotify: true}
	if c := float64(payload[0]) - tempRespCurrentOffset; currentInRange(c) {
		d.CurrentTemperature = &c
	}
	if t := float64(payload[2]) - tempRespTargetOffset; t > TargetAcceptMin && t < TargetAcceptMax {
		d.TargetTemperature = &t
	}
	return d, nil
}

// DecodePower decodes the power flag of a CMD_POWER frame
func DecodePower(payload []byte) (Delta, error) {
	if len(payload) < MinPowerPayload {
		return Delta{}, fmt.Errorf("%w: power status has %d bytes, need %d", ErrPayloadTooShort, len(payload), MinPowerPayload)
	}

	switch flag := payload[powerFlagOffset]; flag {
	case PowerFlagOff:
		return Delta{Power: PowerReportOff}, nil
	case PowerFlagOn:
		return Delta{Power: PowerReportOn}, nil
	default:
		return Delta{}, fmt.Errorf("%w: power flag 0x%02X", ErrUnrecognizedFlag, flag)
	}
}

func currentInRange(c float64) bool {
	return c > CurrentTempMin && c < CurrentTempMax
}

func boolPtr(b bool) *bool {
	return &b
}
