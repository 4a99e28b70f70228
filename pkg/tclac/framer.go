// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tclac

import (
	"bytes"
	"fmt"
	"time"
)

// FrameKind classifies a frame by the decoder that handles it
type FrameKind int

const (
	KindUnknown FrameKind = iota
	KindStatus
	KindPower
	KindTempResponse
	KindShortStatus
)

// EventKind identifies what the framer recovered
type EventKind int

const (
	EventFrame EventKind = iota
	EventChecksumMismatch
	EventUnknownCommand
)

// Event is emitted for every frame boundary the framer consumes.
// Frame is set for every kind; for EventChecksumMismatch it holds the
// discarded frame with the checksum byte as received.
type Event struct {
	Kind       EventKind
	FrameKind  FrameKind
	Frame      *Frame
	Calculated byte // checksum computed over the frame
}

// Err returns the condition carried by the event, nil for a valid frame.
func (e Event) Err() error {
	switch e.Kind {
	case EventChecksumMismatch:
		return fmt.Errorf("%w: expected 0x%02X, got 0x%02X", ErrChecksumMismatch, e.Calculated, e.Frame.Checksum())
	case EventUnknownCommand:
		return fmt.Errorf("%w: 0x%02X", ErrUnknownCommand, e.Frame.Command())
	}
	return nil
}

// Framer recovers frames from an arbitrarily chunked byte stream.
// It never blocks: Feed consumes what it can and keeps the remainder.
type Framer struct {
	buf             []byte
	tempResponseCmd uint8
	dropped         uint64
	now             func() time.Time
}

// FramerOption configures a Framer
type FramerOption func(*Framer)

// WithTempResponseCommand sets the command id treated as a temperature
// response. Known command ids take precedence on collision.
func WithTempResponseCommand(id uint8) FramerOption {
	return func(f *Framer) {
		f.tempResponseCmd = id
	}
}

// WithClock overrides the timestamp source for recovered frames
func WithClock(now func() time.Time) FramerOption {
	return func(f *Framer) {
		f.now = now
	}
}

// NewFramer creates a framer with an empty rolling buffer
func NewFramer(opts ...FramerOption) *Framer {
	f := &Framer{
		buf:             make([]byte, 0, 2*SetFrameSize),
		tempResponseCmd: DefaultTempResponseCommand,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Classify maps a command id to the decoder that handles it
func (f *Framer) Classify(cmd uint8) FrameKind {
	switch cmd {
	case CmdSetParams, CmdPoll, CmdStatusEcho:
		return KindStatus
	case CmdPower:
		return KindPower
	case CmdShortStatus:
		return KindShortStatus
	}
	if cmd == f.tempResponseCmd {
		return KindTempResponse
	}
	return KindUnknown
}

// Feed appends chunk to the rolling buffer and returns every event that
// became complete. An empty chunk only re-examines the buffer.
func (f *Framer) Feed(chunk []byte) []Event {
	f.buf = append(f.buf, chunk...)

	var events []Event
	for len(f.buf) >= MinFrameSize {
		if !bytes.Equal(f.buf[:HeaderSize], HeaderFromDevice[:]) {
			// Shift by a single byte so no frame boundary is ever skipped
			f.consume(1)
			f.dropped++
			continue
		}

		length := int(f.buf[OffsetLength])
		size := FrameOverhead + length
		if len(f.buf) < size {
			break
		}

		frame := &Frame{
			header:    HeaderFromDevice,
			command:   f.buf[OffsetCommand],
			payload:   append([]byte(nil), f.buf[OffsetPayload:OffsetPayload+length]...),
			checksum:  f.buf[size-1],
			timestamp: f.now(),
		}
		calculated := Checksum(f.buf[:size-1])
		f.consume(size)

		ev := Event{Frame: frame, Calculated: calculated, FrameKind: f.Classify(frame.command)}
		switch {
		case calculated != frame.checksum:
			ev.Kind = EventChecksumMismatch
		case ev.FrameKind == KindUnknown:
			ev.Kind = EventUnknownCommand
		default:
			ev.Kind = EventFrame
		}
		events = append(events, ev)
	}
	return events
}

// consume drops n leading bytes, reusing the backing array
func (f *Framer) consume(n int) {
	remaining := copy(f.buf, f.buf[n:])
	f.buf = f.buf[:remaining]
}

// Buffered returns the number of bytes waiting for a frame boundary
func (f *Framer) Buffered() int {
	return len(f.buf)
}

// Dropped returns the number of bytes discarded while resynchronizing
func (f *Framer) Dropped() uint64 {
	return f.dropped
}

// Reset discards the rolling buffer (e.g. after a reconnect)
func (f *Framer) Reset() {
	f.buf = f.buf[:0]
}
