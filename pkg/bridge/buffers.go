// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import "math"

// jointBuffers holds the live per-joint values.
//
// position and velocity are written only by TickRead (and Start's first-start
// zeroing); command is written only through CommandHandle and read by TickWrite.
// Index i is the same joint in every slice.
type jointBuffers struct {
	names    []string
	position []float64
	velocity []float64
	command  []float64
}

func newJointBuffers(joints []JointInfo) *jointBuffers {
	n := len(joints)
	b := &jointBuffers{
		names:    make([]string, n),
		position: make([]float64, n),
		velocity: make([]float64, n),
		command:  make([]float64, n),
	}
	for i, j := range joints {
		b.names[i] = j.Name
		b.position[i] = math.NaN()
		b.velocity[i] = math.NaN()
		b.command[i] = math.NaN()
	}
	return b
}

// zeroUnknown zeroes every joint whose position is still unknown
func (b *jointBuffers) zeroUnknown() int {
	zeroed := 0
	for i := range b.position {
		if math.IsNaN(b.position[i]) {
			b.position[i] = 0
			b.velocity[i] = 0
			b.command[i] = 0
			zeroed++
		}
	}
	return zeroed
}

// StateHandle is a read-only view of one joint state value
type StateHandle struct {
	Joint     string
	Interface string

	values []float64
	index  int
}

// Value returns the current value; NaN means unknown
func (h StateHandle) Value() float64 {
	return h.values[h.index]
}

// CommandHandle is a write-only view of one joint command
type CommandHandle struct {
	Joint     string
	Interface string

	values []float64
	index  int
}

// Set stores the command read by the next TickWrite
func (h CommandHandle) Set(v float64) {
	h.values[h.index] = v
}

// Snapshot is a copy of the joint buffers and feedback bookkeeping
type Snapshot struct {
	Names     []string
	Position  []float64
	Velocity  []float64
	Command   []float64
	MessageID int32
	Mode      string
}
