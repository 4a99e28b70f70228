// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tclac

import "time"

// Frame is one complete protocol message:
// header(3) | command(1) | length(1) | payload(length) | checksum(1)
type Frame struct {
	header    [HeaderSize]byte
	command   uint8
	payload   []byte
	checksum  byte
	timestamp time.Time
}

// NewFrame creates a device->controller frame with a valid checksum.
func NewFrame(command uint8, payload []byte) *Frame {
	f := &Frame{
		header:    HeaderFromDevice,
		command:   command,
		payload:   payload,
		timestamp: time.Now(),
	}
	f.checksum = Checksum(f.Bytes()[:f.Size()-1])
	return f
}

// Command returns the command id
func (f *Frame) Command() uint8 {
	return f.command
}

// Length returns the payload length as carried on the wire
func (f *Frame) Length() uint8 {
	return uint8(len(f.payload))
}

// Payload returns the command-specific data region
func (f *Frame) Payload() []byte {
	return f.payload
}

// Checksum returns the trailing checksum byte as received
func (f *Frame) Checksum() byte {
	return f.checksum
}

// Timestamp returns when the frame was recovered from the stream
func (f *Frame) Timestamp() time.Time {
	return f.timestamp
}

// Size returns the total wire size of the frame
func (f *Frame) Size() int {
	return FrameOverhead + len(f.payload)
}

// Bytes re-serializes the frame, including the checksum as received.
func (f *Frame) Bytes() []byte {
	out := make([]byte, 0, f.Size())
	out = append(out, f.header[:]...)
	out = append(out, f.command, uint8(len(f.payload)))
	out = append(out, f.payload...)
	return append(out, f.checksum)
}

// BuildFrame assembles a wire frame and appends its checksum.
// Payloads longer than 255 bytes are truncated to fit the length byte.
func BuildFrame(header [HeaderSize]byte, command uint8, payload []byte) []byte {
	if len(payload) > 0xFF {
		payload = payload[:0xFF]
	}
	out := make([]byte, 0, FrameOverhead+len(payload))
	out = append(out, header[:]...)
	out = append(out, command, uint8(len(payload)))
	out = append(out, payload...)
	return append(out, Checksum(out))
}
