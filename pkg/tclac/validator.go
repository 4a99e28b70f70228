// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tclac

import (
	"encoding/binary"
	"fmt"
)

// AnomalyType represents different types of frame anomalies
type AnomalyType int

const (
	AnomalyLengthMismatch AnomalyType = iota
	AnomalyInvalidTemp
	AnomalyInvalidFlag
	AnomalyChecksum
	AnomalyUnknownCommand
)

// ValidationError describes an anomaly in an otherwise well-framed frame.
// Anomalies are reported, never used to reject telemetry.
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateEvent validates the frame carried by a framer event.
// Returns a slice of validation errors (empty if the frame is clean).
func ValidateEvent(ev Event) []ValidationError {
	switch ev.Kind {
	case EventChecksumMismatch:
		return []ValidationError{{
			Type:    AnomalyChecksum,
			Message: fmt.Sprintf("Checksum mismatch (calculated 0x%02X, received 0x%02X)", ev.Calculated, ev.Frame.Checksum()),
			Details: map[string]interface{}{"calculated": ev.Calculated, "received": ev.Frame.Checksum()},
		}}
	case EventUnknownCommand:
		return []ValidationError{{
			Type:    AnomalyUnknownCommand,
			Message: fmt.Sprintf("Unknown command 0x%02X", ev.Frame.Command()),
			Details: map[string]interface{}{"command": ev.Frame.Command(), "length": len(ev.Frame.Payload())},
		}}
	}
	return ValidateFrame(ev.FrameKind, ev.Frame)
}

// ValidateFrame validates a checksum-clean frame of the given kind
func ValidateFrame(kind FrameKind, f *Frame) []ValidationError {
	switch kind {
	case KindStatus:
		return validateStatus(f.Payload())
	case KindTempResponse:
		return validateTempResponse(f.Payload())
	case KindPower:
		return validatePower(f.Payload())
	}
	return []ValidationError{}
}

func tooShort(name string, length, expected int) ValidationError {
	return ValidationError{
		Type:    AnomalyLengthMismatch,
		Message: fmt.Sprintf("%s payload too short (expected %d bytes)", name, expected),
		Details: map[string]interface{}{"received": length, "expected": expected},
	}
}

// validateStatus validates a main status payload
func validateStatus(payload []byte) []ValidationError {
	if len(payload) < MinStatusPayload {
		return []ValidationError{tooShort("STATUS", len(payload), MinStatusPayload)}
	}

	errors := []ValidationError{}
	if _, _, ok := StatusRoomTemperature(payload); !ok {
		raw := binary.BigEndian.Uint16(payload[statusRoomTempOffset:])
		details := map[string]interface{}{
			"raw16": raw,
			"value": (float64(raw)/roomTempDivisor - 32.0) / 1.8,
		}
		if len(payload) >= FullStatusPayload {
			details["raw8"] = payload[statusFallbackOffset]
		}
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidTemp,
			Message: "No room temperature in range (-10, 60)°C",
			Details: details,
		})
	}
	return errors
}

// validateTempResponse validates a short temperature response payload
func validateTempResponse(payload []byte) []ValidationError {
	if len(payload) < MinTempResponse {
		return []ValidationError{tooShort("TEMP_RESPONSE", len(payload), MinTempResponse)}
	}

	errors := []ValidationError{}
	if c := float64(payload[0]) - tempRespCurrentOffset; !currentInRange(c) {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidTemp,
			Message: fmt.Sprintf("Current temperature %.1f°C out of range", c),
			Details: map[string]interface{}{"value": c, "raw": payload[0]},
		})
	}
	if t := float64(payload[2]) - tempRespTargetOffset; t <= TargetAcceptMin || t >= TargetAcceptMax {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidTemp,
			Message: fmt.Sprintf("Target temperature %.1f°C out of range", t),
			Details: map[string]interface{}{"value": t, "raw": payload[2]},
		})
	}
	return errors
}

// validatePower validates a power status payload
func validatePower(payload []byte) []ValidationError {
	if len(payload) < MinPowerPayload {
		return []ValidationError{tooShort("POWER", len(payload), MinPowerPayload)}
	}

	flag := payload[powerFlagOffset]
	if flag != PowerFlagOff && flag != PowerFlagOn {
		return []ValidationError{{
			Type:    AnomalyInvalidFlag,
			Message: fmt.Sprintf("Unrecognized power flag 0x%02X", flag),
			Details: map[string]interface{}{"flag": flag},
		}}
	}
	return []ValidationError{}
}
