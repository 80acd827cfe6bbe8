// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package recorder stores control loop ticks as a CBOR sequence: one Header
// item followed by one Tick item per control tick. Maps use small integer
// keys to keep records compact.
package recorder

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/Thermoquad/motobridge/pkg/bridge"
)

// FormatVersion is written in every Header
const FormatVersion = 1

// Header describes a recording
type Header struct {
	Version    int           `cbor:"0,keyasint"`
	Joints     []string      `cbor:"1,keyasint"`
	TickPeriod time.Duration `cbor:"2,keyasint"`
	Transport  string        `cbor:"3,keyasint"`
	StartedAt  time.Time     `cbor:"4,keyasint"`
}

// Tick is the joint state after one TickRead/TickWrite pair
type Tick struct {
	Seq        uint64        `cbor:"0,keyasint"`
	Offset     time.Duration `cbor:"1,keyasint"` // since Header.StartedAt
	MessageID  int32         `cbor:"2,keyasint"`
	Mode       string        `cbor:"3,keyasint"`
	Position   []float64     `cbor:"4,keyasint"`
	Velocity   []float64     `cbor:"5,keyasint"`
	Command    []float64     `cbor:"6,keyasint"`
	ReadError  string        `cbor:"7,keyasint,omitempty"`
	WriteError string        `cbor:"8,keyasint,omitempty"`
}

// NewTick builds a record from a bridge snapshot and the tick's results
func NewTick(seq uint64, offset time.Duration, snap bridge.Snapshot, readErr, writeErr error) Tick {
	t := Tick{
		Seq:       seq,
		Offset:    offset,
		MessageID: snap.MessageID,
		Mode:      snap.Mode,
		Position:  snap.Position,
		Velocity:  snap.Velocity,
		Command:   snap.Command,
	}
	if readErr != nil {
		t.ReadError = readErr.Error()
	}
	if writeErr != nil {
		t.WriteError = writeErr.Error()
	}
	return t
}

// Writer appends ticks to a recording
type Writer struct {
	enc   *cbor.Encoder
	count uint64
}

// NewWriter writes the header and returns a Writer for the ticks
func NewWriter(w io.Writer, h Header) (*Writer, error) {
	h.Version = FormatVersion
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		return nil, fmt.Errorf("cbor encoder options: %w", err)
	}
	enc := em.NewEncoder(w)
	if err := enc.Encode(h); err != nil {
		return nil, fmt.Errorf("failed to write recording header: %w", err)
	}
	return &Writer{enc: enc}, nil
}

// Write appends one tick
func (w *Writer) Write(t Tick) error {
	if err := w.enc.Encode(t); err != nil {
		return fmt.Errorf("failed to write tick %d: %w", t.Seq, err)
	}
	w.count++
	return nil
}

// Count returns the number of ticks written
func (w *Writer) Count() uint64 {
	return w.count
}

// Reader reads a recording
type Reader struct {
	dec    *cbor.Decoder
	header Header
}

// NewReader reads and checks the header
func NewReader(r io.Reader) (*Reader, error) {
	dec := cbor.NewDecoder(r)

	var h Header
	if err := dec.Decode(&h); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty recording")
		}
		return nil, fmt.Errorf("failed to read recording header: %w", err)
	}
	if h.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported recording version %d (expected %d)", h.Version, FormatVersion)
	}

	return &Reader{dec: dec, header: h}, nil
}

// Header returns the recording header
func (r *Reader) Header() Header {
	return r.header
}

// Next returns the next tick, or io.EOF at the end of the recording
func (r *Reader) Next() (Tick, error) {
	var t Tick
	if err := r.dec.Decode(&t); err != nil {
		if errors.Is(err, io.EOF) {
			return Tick{}, io.EOF
		}
		return Tick{}, fmt.Errorf("failed to read tick: %w", err)
	}
	if n := len(r.header.Joints); len(t.Position) != n || len(t.Velocity) != n || len(t.Command) != n {
		return Tick{}, fmt.Errorf("tick %d has %d/%d/%d values for %d joints",
			t.Seq, len(t.Position), len(t.Velocity), len(t.Command), n)
	}
	return t, nil
}
