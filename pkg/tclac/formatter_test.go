// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tclac

import (
	"strings"
	"testing"
	"time"
)

func TestFormatCommand(t *testing.T) {
	tests := []struct {
		cmd  uint8
		kind FrameKind
		want string
	}{
		{CmdSetParams, KindStatus, "SET_RESPONSE"},
		{CmdPoll, KindStatus, "POLL_RESPONSE"},
		{CmdStatusEcho, KindStatus, "STATUS_ECHO"},
		{CmdShortStatus, KindShortStatus, "SHORT_STATUS"},
		{CmdPower, KindPower, "POWER_STATUS"},
		{0x05, KindTempResponse, "TEMP_RESPONSE"},
		{0x42, KindUnknown, "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := FormatCommand(tt.cmd, tt.kind); got != tt.want {
			t.Errorf("FormatCommand(0x%02X) = %s, want %s", tt.cmd, got, tt.want)
		}
	}
}

func TestFormatHex(t *testing.T) {
	if got := FormatHex([]byte{0xBB, 0x01, 0x0a}); got != "BB 01 0A" {
		t.Errorf("Unexpected hex: %q", got)
	}
}

func TestFormatEvent(t *testing.T) {
	clock := func() time.Time { return time.Date(2025, 1, 1, 12, 30, 45, 0, time.UTC) }

	payload := statusPayload(MinStatusPayload, wordFor(24))
	payload[statusFlagsOffset] = StatusFlagEco
	events := NewFramer(WithClock(clock)).Feed(deviceFrame(CmdPoll, payload))
	out := FormatEvent(events[0])

	for _, want := range []string{"[12:30:45.000]", "POLL_RESPONSE", "eco=ON", "turbo=OFF", "room=24.0°C (word)"} {
		if !strings.Contains(out, want) {
			t.Errorf("Output missing %q: %s", want, out)
		}
	}

	power := NewFramer(WithClock(clock)).Feed(deviceFrame(CmdPower, []byte{0, 0, PowerFlagOff}))
	if out := FormatEvent(power[0]); !strings.Contains(out, "power=OFF") || strings.Contains(out, "room=") {
		t.Errorf("Unexpected power output: %s", out)
	}
}

func TestFormatState(t *testing.T) {
	s := DefaultState()
	s.Mode = ModeCool
	s.SetTurbo(true)
	out := FormatState(s)

	for _, want := range []string{"Mode: cool", "Target: 22°C", "Room: --", "Flags: turbo"} {
		if !strings.Contains(out, want) {
			t.Errorf("Output missing %q: %s", want, out)
		}
	}
}

func TestFormatSetFrame(t *testing.T) {
	s := DefaultState()
	s.Mode = ModeCool
	s.TargetTemperature = 24
	out := FormatSetFrame(Encode(s))

	for _, want := range []string{"power=ON", "mode=0x03", "target=24°C", "fan=0x1"} {
		if !strings.Contains(out, want) {
			t.Errorf("Output missing %q: %s", want, out)
		}
	}
	if !strings.HasPrefix(FormatSetFrame([]byte{0x01}), "not a SET frame") {
		t.Error("Short input should be rejected")
	}
}
