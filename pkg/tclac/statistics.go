// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tclac

import (
	"fmt"
	"time"
)

// Statistics tracks frame statistics and error rates
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalFrames      uint64
	ValidFrames      uint64
	ChecksumErrors   uint64
	UnknownCommands  uint64
	ShortStatus      uint64
	DesyncBytes      uint64
	MalformedFrames  uint64
	LengthMismatches uint64
	AnomalousValues  uint64
	InvalidTemp      uint64
	InvalidFlags     uint64
	TxFrames         uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update updates statistics based on a framer event and its anomalies
func (s *Statistics) Update(ev Event, validationErrors []ValidationError) {
	s.TotalFrames++
	s.LastUpdateTime = time.Now()

	switch ev.Kind {
	case EventChecksumMismatch:
		s.ChecksumErrors++
		return
	case EventUnknownCommand:
		s.UnknownCommands++
		return
	}

	if ev.FrameKind == KindShortStatus {
		s.ShortStatus++
	}

	if len(validationErrors) == 0 {
		s.ValidFrames++
		return
	}

	for _, err := range validationErrors {
		switch err.Type {
		case AnomalyLengthMismatch:
			s.LengthMismatches++
			s.MalformedFrames++
		case AnomalyInvalidTemp:
			s.InvalidTemp++
			s.AnomalousValues++
		case AnomalyInvalidFlag:
			s.InvalidFlags++
			s.AnomalousValues++
		}
	}
}

// SetDesyncBytes records the framer's running count of discarded bytes
func (s *Statistics) SetDesyncBytes(n uint64) {
	s.DesyncBytes = n
}

// AddTx counts one transmitted frame
func (s *Statistics) AddTx() {
	s.TxFrames++
}

// Errors returns the total number of error conditions seen
func (s *Statistics) Errors() uint64 {
	return s.ChecksumErrors + s.UnknownCommands + s.MalformedFrames + s.AnomalousValues
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		s.ErrorRate = float64(s.Errors()) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	percent := func(n uint64) float64 {
		if s.TotalFrames == 0 {
			return 0
		}
		return float64(n) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Valid Frames:    %8d (%.1f%%)\n", s.ValidFrames, percent(s.ValidFrames))

	if s.ChecksumErrors > 0 {
		result += fmt.Sprintf("Checksum Errors: %8d (%.1f%%)\n", s.ChecksumErrors, percent(s.ChecksumErrors))
	}
	if s.UnknownCommands > 0 {
		result += fmt.Sprintf("Unknown Cmds:    %8d (%.1f%%)\n", s.UnknownCommands, percent(s.UnknownCommands))
	}
	if s.MalformedFrames > 0 {
		result += fmt.Sprintf("Malformed:       %8d (%.1f%%)\n", s.MalformedFrames, percent(s.MalformedFrames))
	}
	if s.AnomalousValues > 0 {
		result += fmt.Sprintf("Anomalous Values:%8d (%.1f%%)\n", s.AnomalousValues, percent(s.AnomalousValues))
		if s.InvalidTemp > 0 {
			result += fmt.Sprintf("  Invalid Temp:     %5d\n", s.InvalidTemp)
		}
		if s.InvalidFlags > 0 {
			result += fmt.Sprintf("  Invalid Flags:    %5d\n", s.InvalidFlags)
		}
	}
	if s.ShortStatus > 0 {
		result += fmt.Sprintf("Short Status:    %8d\n", s.ShortStatus)
	}
	if s.DesyncBytes > 0 {
		result += fmt.Sprintf("Desync Bytes:    %8d\n", s.DesyncBytes)
	}
	if s.TxFrames > 0 {
		result += fmt.Sprintf("Sent Frames:     %8d\n", s.TxFrames)
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
