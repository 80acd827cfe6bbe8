// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package recorder

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"
)

// JointRange is the span of one joint's position over a recording
type JointRange struct {
	Name     string
	Min, Max float64
	MaxSpeed float64 // largest |velocity|
}

// Summary describes a whole recording
type Summary struct {
	Header      Header
	Ticks       uint64
	Duration    time.Duration
	ReadErrors  uint64
	WriteErrors uint64
	Modes       map[string]uint64
	Joints      []JointRange
}

// Summarize reads every tick of a recording
func Summarize(r io.Reader) (*Summary, error) {
	rd, err := NewReader(r)
	if err != nil {
		return nil, err
	}

	h := rd.Header()
	s := &Summary{Header: h, Modes: map[string]uint64{}}
	s.Joints = make([]JointRange, len(h.Joints))
	for i, name := range h.Joints {
		s.Joints[i] = JointRange{Name: name, Min: math.Inf(1), Max: math.Inf(-1)}
	}

	for {
		t, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		s.Ticks++
		s.Duration = t.Offset
		s.Modes[t.Mode]++
		if t.ReadError != "" {
			s.ReadErrors++
		}
		if t.WriteError != "" {
			s.WriteErrors++
		}
		for i := range s.Joints {
			j := &s.Joints[i]
			if p := t.Position[i]; !math.IsNaN(p) {
				j.Min = math.Min(j.Min, p)
				j.Max = math.Max(j.Max, p)
			}
			if v := math.Abs(t.Velocity[i]); !math.IsNaN(v) {
				j.MaxSpeed = math.Max(j.MaxSpeed, v)
			}
		}
	}

	return s, nil
}

// String renders the summary
func (s *Summary) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Recording: %d joints, transport %s, started %s\n",
		len(s.Header.Joints), s.Header.Transport, s.Header.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "Ticks:        %8d (%s at %s)\n", s.Ticks, s.Duration, s.Header.TickPeriod)
	fmt.Fprintf(&sb, "Read Errors:  %8d\n", s.ReadErrors)
	fmt.Fprintf(&sb, "Write Errors: %8d\n", s.WriteErrors)
	modes := make([]string, 0, len(s.Modes))
	for mode := range s.Modes {
		modes = append(modes, mode)
	}
	sort.Strings(modes)
	for _, mode := range modes {
		fmt.Fprintf(&sb, "Mode %-14s %6d\n", mode+":", s.Modes[mode])
	}

	sb.WriteString("\nJoint            Min        Max   MaxSpeed\n")
	for _, j := range s.Joints {
		if math.IsInf(j.Min, 1) {
			fmt.Fprintf(&sb, "%-12s %10s %10s %10.4f\n", j.Name, "-", "-", j.MaxSpeed)
			continue
		}
		fmt.Fprintf(&sb, "%-12s %10.4f %10.4f %10.4f\n", j.Name, j.Min, j.Max, j.MaxSpeed)
	}

	return sb.String()
}
