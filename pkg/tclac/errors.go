// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tclac

import "errors"

// None of these are fatal. The stream is lossy and the next poll cycle
// supplies a fresh frame.
var (
	ErrFramingDesync    = errors.New("framing desync")
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrUnknownCommand   = errors.New("unknown command")
	ErrPayloadTooShort  = errors.New("payload too short")
	ErrUnrecognizedFlag = errors.New("unrecognized flag value")
	ErrInvalidValue     = errors.New("invalid value")
)
