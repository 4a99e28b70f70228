// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tclac

import (
	"bytes"
	"errors"
	"testing"
)

// ============================================================
// Framing
// ============================================================

func TestFramer_SingleFrame(t *testing.T) {
	payload := statusPayload(FullStatusPayload, wordFor(24))
	wire := deviceFrame(CmdPoll, payload)

	f := NewFramer()
	events := f.Feed(wire)

	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.Kind != EventFrame {
		t.Errorf("Expected EventFrame, got %d", ev.Kind)
	}
	if ev.FrameKind != KindStatus {
		t.Errorf("Expected KindStatus, got %d", ev.FrameKind)
	}
	if ev.Frame.Command() != CmdPoll {
		t.Errorf("Expected command 0x%02X, got 0x%02X", CmdPoll, ev.Frame.Command())
	}
	if !bytes.Equal(ev.Frame.Payload(), payload) {
		t.Error("Payload mismatch")
	}
	if !bytes.Equal(ev.Frame.Bytes(), wire) {
		t.Error("Frame should re-serialize to the received bytes")
	}
	if ev.Err() != nil {
		t.Errorf("Valid frame should carry no error, got %v", ev.Err())
	}
	if f.Buffered() != 0 {
		t.Errorf("Expected empty buffer, got %d bytes", f.Buffered())
	}
}

func TestFramer_ResyncAfterGarbageByte(t *testing.T) {
	wire := deviceFrame(CmdPoll, statusPayload(FullStatusPayload, wordFor(21)))
	stream := append([]byte{0x00}, wire...)

	f := NewFramer()
	events := f.Feed(stream)

	if len(events) != 1 || events[0].Kind != EventFrame {
		t.Fatalf("Expected exactly one valid frame, got %d events", len(events))
	}
	consumed := uint64(len(stream) - f.Buffered())
	if consumed != uint64(1+len(wire)) {
		t.Errorf("Expected %d bytes consumed, got %d", 1+len(wire), consumed)
	}
	if f.Dropped() != 1 {
		t.Errorf("Expected 1 dropped byte, got %d", f.Dropped())
	}
}

func TestFramer_SplitDelivery(t *testing.T) {
	payload := statusPayload(FullStatusPayload, wordFor(26))
	wire := deviceFrame(CmdSetParams, payload)

	for split := 1; split < len(wire); split++ {
		f := NewFramer()
		first := f.Feed(wire[:split])
		if len(first) != 0 {
			t.Fatalf("split=%d: expected no events from partial frame, got %d", split, len(first))
		}
		second := f.Feed(wire[split:])
		if len(second) != 1 || second[0].Kind != EventFrame {
			t.Fatalf("split=%d: expected one valid frame after completion, got %d", split, len(second))
		}
		if !bytes.Equal(second[0].Frame.Payload(), payload) {
			t.Errorf("split=%d: payload mismatch", split)
		}
	}
}

func TestFramer_ByteAtATime(t *testing.T) {
	wire := append(deviceFrame(CmdPoll, statusPayload(FullStatusPayload, 0)),
		deviceFrame(CmdPower, []byte{0x04, 0x00, 0x0C})...)

	f := NewFramer()
	var events []Event
	for _, b := range wire {
		events = append(events, f.Feed([]byte{b})...)
	}

	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if events[0].FrameKind != KindStatus || events[1].FrameKind != KindPower {
		t.Errorf("Events out of order: %d, %d", events[0].FrameKind, events[1].FrameKind)
	}
}

func TestFramer_ChecksumMismatch(t *testing.T) {
	wire := deviceFrame(CmdPoll, statusPayload(FullStatusPayload, 0))
	wire[len(wire)-1] ^= 0xFF

	f := NewFramer()
	events := f.Feed(wire)

	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].Kind != EventChecksumMismatch {
		t.Errorf("Expected EventChecksumMismatch, got %d", events[0].Kind)
	}
	if !errors.Is(events[0].Err(), ErrChecksumMismatch) {
		t.Errorf("Expected ErrChecksumMismatch, got %v", events[0].Err())
	}
	if f.Buffered() != 0 {
		t.Errorf("Corrupt frame should be consumed, %d bytes left", f.Buffered())
	}
}

func TestFramer_MismatchThenValid(t *testing.T) {
	bad := deviceFrame(CmdPoll, statusPayload(MinStatusPayload, 0))
	bad[10] ^= 0x01
	good := deviceFrame(CmdPower, []byte{0x04, 0x00, 0x04})

	events := NewFramer().Feed(append(bad, good...))
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if events[0].Kind != EventChecksumMismatch || events[1].Kind != EventFrame {
		t.Errorf("Unexpected event kinds: %d, %d", events[0].Kind, events[1].Kind)
	}
}

func TestFramer_Classification(t *testing.T) {
	tests := []struct {
		name      string
		cmd       uint8
		kind      EventKind
		frameKind FrameKind
	}{
		{"SET response", CmdSetParams, EventFrame, KindStatus},
		{"POLL response", CmdPoll, EventFrame, KindStatus},
		{"STATUS_ECHO", CmdStatusEcho, EventFrame, KindStatus},
		{"POWER", CmdPower, EventFrame, KindPower},
		{"SHORT_STATUS", CmdShortStatus, EventFrame, KindShortStatus},
		{"TEMP_RESPONSE default id", DefaultTempResponseCommand, EventFrame, KindTempResponse},
		{"unknown", 0x42, EventUnknownCommand, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := NewFramer().Feed(deviceFrame(tt.cmd, []byte{0x01, 0x02, 0x03, 0x04}))
			if len(events) != 1 {
				t.Fatalf("Expected 1 event, got %d", len(events))
			}
			if events[0].Kind != tt.kind {
				t.Errorf("Expected event kind %d, got %d", tt.kind, events[0].Kind)
			}
			if events[0].FrameKind != tt.frameKind {
				t.Errorf("Expected frame kind %d, got %d", tt.frameKind, events[0].FrameKind)
			}
		})
	}
}

func TestFramer_UnknownCommandError(t *testing.T) {
	events := NewFramer().Feed(deviceFrame(0x42, []byte{0x00}))
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if !errors.Is(events[0].Err(), ErrUnknownCommand) {
		t.Errorf("Expected ErrUnknownCommand, got %v", events[0].Err())
	}
}

func TestFramer_TempResponseOverride(t *testing.T) {
	f := NewFramer(WithTempResponseCommand(0x0B))
	if k := f.Classify(0x0B); k != KindTempResponse {
		t.Errorf("Expected 0x0B to be a temperature response, got %d", k)
	}
	if k := f.Classify(DefaultTempResponseCommand); k != KindUnknown {
		t.Errorf("Default id should no longer match, got %d", k)
	}

	// Known commands win on collision
	f = NewFramer(WithTempResponseCommand(CmdPower))
	if k := f.Classify(CmdPower); k != KindPower {
		t.Errorf("Expected CmdPower to stay a power frame, got %d", k)
	}
}

func TestFramer_GarbageShrinksOneByteAtATime(t *testing.T) {
	f := NewFramer()
	events := f.Feed(make([]byte, 10))

	if len(events) != 0 {
		t.Errorf("Expected no events from garbage, got %d", len(events))
	}
	if f.Dropped() != 4 {
		t.Errorf("Expected 4 dropped bytes, got %d", f.Dropped())
	}
	if f.Buffered() != MinFrameSize-1 {
		t.Errorf("Expected %d buffered bytes, got %d", MinFrameSize-1, f.Buffered())
	}
}

func TestFramer_WaitsForDeclaredLength(t *testing.T) {
	f := NewFramer()
	events := f.Feed([]byte{0xBB, 0x01, 0x00, CmdPoll, 0x37, 0x00, 0x00})
	if len(events) != 0 {
		t.Errorf("Expected no events, got %d", len(events))
	}
	if f.Buffered() != 7 {
		t.Errorf("Incomplete frame must stay buffered, got %d bytes", f.Buffered())
	}
	if f.Dropped() != 0 {
		t.Errorf("Expected no dropped bytes, got %d", f.Dropped())
	}
}

func TestFramer_EmptyChunk(t *testing.T) {
	f := NewFramer()
	if events := f.Feed(nil); len(events) != 0 {
		t.Errorf("Expected no events, got %d", len(events))
	}
	if events := f.Feed([]byte{}); len(events) != 0 {
		t.Errorf("Expected no events, got %d", len(events))
	}
}

func TestFramer_ControllerHeaderIsNotAFrame(t *testing.T) {
	f := NewFramer()
	events := f.Feed(EncodePoll())
	if len(events) != 0 {
		t.Errorf("Outbound frames must not be recovered, got %d events", len(events))
	}
	if f.Dropped() != 1 {
		t.Errorf("Expected 1 dropped byte, got %d", f.Dropped())
	}
}

func TestFramer_Reset(t *testing.T) {
	f := NewFramer()
	f.Feed([]byte{0xBB, 0x01, 0x00})
	f.Reset()
	if f.Buffered() != 0 {
		t.Errorf("Expected empty buffer after reset, got %d", f.Buffered())
	}
}
