// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package daemon

import (
	"sync"
	"time"

	"github.com/Thermoquad/tclstat/pkg/tclac"
)

// Snapshot holds the latest DeviceState published by the runner. It is
// the only view of the state other goroutines get.
type Snapshot struct {
	mu      sync.RWMutex
	state   tclac.DeviceState
	updated time.Time
}

// NewSnapshot starts a store with the initial state
func NewSnapshot(initial tclac.DeviceState) *Snapshot {
	return &Snapshot{state: initial}
}

// Set replaces the stored state
func (s *Snapshot) Set(state tclac.DeviceState) {
	s.mu.Lock()
	s.state = state
	s.updated = time.Now()
	s.mu.Unlock()
}

// Get returns the stored state
func (s *Snapshot) Get() tclac.DeviceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Updated returns when the state last changed; zero if never
func (s *Snapshot) Updated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updated
}
