// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"math"
	"time"
)

// commandSource produces joint velocity commands for the run command
type commandSource interface {
	Commands(elapsed time.Duration, out []float64)
	String() string
}

// holdSource commands zero velocity on every joint
type holdSource struct{}

func (holdSource) Commands(_ time.Duration, out []float64) {
	for i := range out {
		out[i] = 0
	}
}

func (holdSource) String() string { return "hold" }

// sineSource commands a sine velocity profile. Each joint is phase shifted
// so the arm does not move as a rigid body.
type sineSource struct {
	amplitude float64 // rad/s
	frequency float64 // Hz
}

func (s sineSource) Commands(elapsed time.Duration, out []float64) {
	omega := 2 * math.Pi * s.frequency
	t := elapsed.Seconds()
	for i := range out {
		phase := float64(i) * math.Pi / float64(len(out))
		out[i] = s.amplitude * math.Sin(omega*t+phase)
	}
}

func (s sineSource) String() string {
	return fmt.Sprintf("sine %.3f rad/s @ %.2f Hz", s.amplitude, s.frequency)
}

func newCommandSource(hold bool, amplitude, frequency float64) (commandSource, error) {
	if hold || amplitude == 0 {
		return holdSource{}, nil
	}
	if frequency <= 0 || math.IsNaN(frequency) || math.IsInf(frequency, 0) {
		return nil, fmt.Errorf("--sine-frequency must be positive, got %v", frequency)
	}
	if math.IsNaN(amplitude) || math.IsInf(amplitude, 0) {
		return nil, fmt.Errorf("--sine-amplitude must be finite, got %v", amplitude)
	}
	return sineSource{amplitude: amplitude, frequency: frequency}, nil
}
