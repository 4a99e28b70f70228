// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tclac

import (
	"testing"
	"time"
)

func TestPoller_Cadence(t *testing.T) {
	p := NewPoller(5 * time.Second)

	steps := []struct {
		now  int64
		want bool
	}{
		{0, false},
		{4999, false},
		{5000, true},
		{5001, false},
		{9999, false},
		{10000, true},
	}
	for _, s := range steps {
		if got := p.Due(s.now); got != s.want {
			t.Errorf("Due(%d) = %v, want %v", s.now, got, s.want)
		}
	}
	if p.Last() != 10000 {
		t.Errorf("Expected last poll at 10000, got %d", p.Last())
	}
}

func TestPoller_DefaultInterval(t *testing.T) {
	if got := NewPoller(0).Interval(); got != 5*time.Second {
		t.Errorf("Expected 5s fallback, got %s", got)
	}
	if got := NewPoller(2 * time.Second).Interval(); got != 2*time.Second {
		t.Errorf("Expected 2s, got %s", got)
	}
}
