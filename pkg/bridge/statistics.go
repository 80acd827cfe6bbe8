// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"fmt"
	"time"

	"github.com/Thermoquad/motobridge/pkg/simplemsg"
)

// Statistics tracks control loop outcomes and link error rates
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	Ticks              uint64 // TickRead calls while started
	FeedbackReceived   uint64
	SimulatedSteps     uint64
	NoFeedback         uint64
	ConsecutiveMisses  uint64
	MaxConsecutiveMiss uint64
	DecodeErrors       uint64
	Truncated          uint64
	UnknownType        uint64
	GroupCountErrors   uint64
	LengthMismatches   uint64
	WrongDirection     uint64
	AnomalousFeedback  uint64
	StaleFeedback      uint64 // superseded by newer feedback in the same tick
	CommandsSent       uint64
	SendFailures       uint64

	// Rates (calculated)
	FeedbackRate float64 // messages/sec
	ErrorRate    float64 // errors/sec
}

func (s *Statistics) reset(now time.Time) {
	*s = Statistics{StartTime: now, LastUpdateTime: now}
}

func (s *Statistics) recordFeedback(now time.Time, anomalies int) {
	s.Ticks++
	s.FeedbackReceived++
	s.ConsecutiveMisses = 0
	if anomalies > 0 {
		s.AnomalousFeedback++
	}
	s.LastUpdateTime = now
}

func (s *Statistics) recordSimulated(now time.Time) {
	s.Ticks++
	s.SimulatedSteps++
	s.LastUpdateTime = now
}

func (s *Statistics) recordMiss(now time.Time) {
	s.Ticks++
	s.NoFeedback++
	s.ConsecutiveMisses++
	if s.ConsecutiveMisses > s.MaxConsecutiveMiss {
		s.MaxConsecutiveMiss = s.ConsecutiveMisses
	}
	s.LastUpdateTime = now
}

// recordViolation counts a tick whose datagrams were all rejected. A protocol
// violation is not a miss: something arrived, so the consecutive miss counter
// is left alone.
func (s *Statistics) recordViolation(now time.Time) {
	s.Ticks++
	s.LastUpdateTime = now
}

// countDecodeError counts one rejected datagram
func (s *Statistics) countDecodeError(kind simplemsg.DecodeErrorKind) {
	s.DecodeErrors++
	switch kind {
	case simplemsg.DecodeTruncated:
		s.Truncated++
	case simplemsg.DecodeUnknownMessageType:
		s.UnknownType++
	case simplemsg.DecodeGroupCountOutOfRange:
		s.GroupCountErrors++
	case simplemsg.DecodeLengthMismatch:
		s.LengthMismatches++
	}
}

func (s *Statistics) countWrongDirection() {
	s.WrongDirection++
}

func (s *Statistics) recordSend(now time.Time, err error) {
	if err != nil {
		s.SendFailures++
	} else {
		s.CommandsSent++
	}
	s.LastUpdateTime = now
}

// ProtocolViolations returns decode errors plus misdirected messages
func (s *Statistics) ProtocolViolations() uint64 {
	return s.DecodeErrors + s.WrongDirection
}

// CalculateRates calculates feedback and error rates up to now
func (s *Statistics) CalculateRates(now time.Time) {
	elapsed := now.Sub(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FeedbackRate = float64(s.FeedbackReceived) / elapsed
		errorCount := s.NoFeedback + s.ProtocolViolations() + s.SendFailures
		s.ErrorRate = float64(errorCount) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	percent := func(n uint64) float64 {
		if s.Ticks == 0 {
			return 0
		}
		return float64(n) * 100.0 / float64(s.Ticks)
	}

	elapsed := s.LastUpdateTime.Sub(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Ticks:           %8d\n", s.Ticks)
	result += fmt.Sprintf("Feedback:        %8d (%.1f%%)\n", s.FeedbackReceived, percent(s.FeedbackReceived))

	if s.SimulatedSteps > 0 {
		result += fmt.Sprintf("Simulated:       %8d (%.1f%%)\n", s.SimulatedSteps, percent(s.SimulatedSteps))
	}
	if s.NoFeedback > 0 {
		result += fmt.Sprintf("No Feedback:     %8d (%.1f%%)\n", s.NoFeedback, percent(s.NoFeedback))
		result += fmt.Sprintf("  Longest Gap:      %5d ticks\n", s.MaxConsecutiveMiss)
	}
	if violations := s.ProtocolViolations(); violations > 0 {
		result += fmt.Sprintf("Violations:      %8d (%.1f%%)\n", violations, percent(violations))
		if s.Truncated > 0 {
			result += fmt.Sprintf("  Truncated:        %5d\n", s.Truncated)
		}
		if s.UnknownType > 0 {
			result += fmt.Sprintf("  Unknown Type:     %5d\n", s.UnknownType)
		}
		if s.GroupCountErrors > 0 {
			result += fmt.Sprintf("  Group Count:      %5d\n", s.GroupCountErrors)
		}
		if s.LengthMismatches > 0 {
			result += fmt.Sprintf("  Length Mismatch:  %5d\n", s.LengthMismatches)
		}
		if s.WrongDirection > 0 {
			result += fmt.Sprintf("  Wrong Direction:  %5d\n", s.WrongDirection)
		}
	}
	if s.AnomalousFeedback > 0 {
		result += fmt.Sprintf("Anomalous:       %8d\n", s.AnomalousFeedback)
	}
	if s.StaleFeedback > 0 {
		result += fmt.Sprintf("Stale Feedback:  %8d\n", s.StaleFeedback)
	}

	result += fmt.Sprintf("Commands Sent:   %8d\n", s.CommandsSent)
	if s.SendFailures > 0 {
		result += fmt.Sprintf("Send Failures:   %8d\n", s.SendFailures)
	}
	result += fmt.Sprintf("Feedback Rate:   %8.1f msgs/sec\n", s.FeedbackRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}
