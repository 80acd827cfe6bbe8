// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import "time"

// Plant is the simulated controller used when no transport is bound.
//
// Each step relaxes every joint toward its target:
//
//	position = target + (position - target) / slowdown
//	velocity = (position_new - position_old) / tick
//
// With slowdown > 1 the approach is monotone and never overshoots; each step
// covers 1 - 1/slowdown of the remaining distance. Slowdown 1 holds position.
type Plant struct {
	slowdown float64
	tick     float64 // seconds
	target   []float64
}

// NewPlant creates a plant for n joints with all targets at zero
func NewPlant(n int, slowdown float64, tick time.Duration) *Plant {
	return &Plant{
		slowdown: slowdown,
		tick:     tick.Seconds(),
		target:   make([]float64, n),
	}
}

// SetTarget latches the commanded positions
func (p *Plant) SetTarget(target []float64) {
	copy(p.target, target)
}

// Step advances position and velocity by one tick in place
func (p *Plant) Step(position, velocity []float64) {
	for i := range position {
		old := position[i]
		position[i] = p.target[i] + (old-p.target[i])/p.slowdown
		velocity[i] = (position[i] - old) / p.tick
	}
}
