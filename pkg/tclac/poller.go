// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tclac

import "time"

// Poller decides when the next status poll is due. It keeps only the time
// of the last poll; responses are not tracked.
type Poller struct {
	intervalMs int64
	lastMs     int64
}

// NewPoller creates a poller with the given cadence. Non-positive
// intervals fall back to the default 5 seconds.
func NewPoller(interval time.Duration) *Poller {
	ms := interval.Milliseconds()
	if ms <= 0 {
		ms = DefaultPollIntervalMs
	}
	return &Poller{intervalMs: ms}
}

// Due reports whether a poll should be sent at nowMs and, if so, restarts
// the interval from nowMs.
func (p *Poller) Due(nowMs int64) bool {
	if nowMs-p.lastMs < p.intervalMs {
		return false
	}
	p.lastMs = nowMs
	return true
}

// Last returns the clock reading of the most recent poll
func (p *Poller) Last() int64 {
	return p.lastMs
}

// Interval returns the poll cadence
func (p *Poller) Interval() time.Duration {
	return time.Duration(p.intervalMs) * time.Millisecond
}
