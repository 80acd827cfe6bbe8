// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package recorder

import (
	"bytes"
	"errors"
	"io"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/Thermoquad/motobridge/pkg/bridge"
)

func testHeader() Header {
	return Header{
		Joints:     []string{"s", "l"},
		TickPeriod: 4 * time.Millisecond,
		Transport:  "UDP: 0.0.0.0:50244",
		StartedAt:  time.Date(2025, 6, 1, 12, 0, 0, 123456789, time.UTC),
	}
}

func snapshot(id int32, pos, vel, cmd []float64) bridge.Snapshot {
	return bridge.Snapshot{
		Names:     []string{"s", "l"},
		Position:  pos,
		Velocity:  vel,
		Command:   cmd,
		MessageID: id,
		Mode:      "JOINT_VELOCITY",
	}
}

func TestWriterReader_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, testHeader())
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}

	ticks := []Tick{
		NewTick(0, 0, snapshot(1, []float64{0, 0}, []float64{0, 0}, []float64{0.1, 0.2}), nil, nil),
		NewTick(1, 4*time.Millisecond, snapshot(1, []float64{0, 0}, []float64{0, 0}, []float64{0.1, 0.2}),
			errors.New("no feedback"), nil),
		NewTick(2, 8*time.Millisecond, snapshot(2, []float64{0.5, -0.25}, []float64{1, -2}, []float64{0.1, 0.2}),
			nil, errors.New("send failed")),
	}
	for _, tk := range ticks {
		if err := w.Write(tk); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if w.Count() != 3 {
		t.Errorf("Count = %d, want 3", w.Count())
	}

	r, err := NewReader(&buf)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	h := r.Header()
	if h.Version != FormatVersion || len(h.Joints) != 2 || h.TickPeriod != 4*time.Millisecond {
		t.Errorf("header = %+v", h)
	}
	if !h.StartedAt.Equal(testHeader().StartedAt) {
		t.Errorf("StartedAt = %v, want %v", h.StartedAt, testHeader().StartedAt)
	}

	for i, want := range ticks {
		got, err := r.Next()
		if err != nil {
			t.Fatalf("Next %d failed: %v", i, err)
		}
		if got.Seq != want.Seq || got.Offset != want.Offset || got.MessageID != want.MessageID ||
			got.ReadError != want.ReadError || got.WriteError != want.WriteError {
			t.Errorf("tick %d = %+v, want %+v", i, got, want)
		}
		for j := range want.Position {
			if got.Position[j] != want.Position[j] || got.Velocity[j] != want.Velocity[j] || got.Command[j] != want.Command[j] {
				t.Errorf("tick %d joint %d values differ", i, j)
			}
		}
	}
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next at end = %v, want io.EOF", err)
	}
}

func TestNewTick_CopiesErrors(t *testing.T) {
	tk := NewTick(5, time.Second, snapshot(9, []float64{1, 2}, []float64{0, 0}, []float64{0, 0}),
		bridge.ErrNoFeedback, bridge.ErrSendFailed)
	if tk.ReadError != bridge.ErrNoFeedback.Error() || tk.WriteError != bridge.ErrSendFailed.Error() {
		t.Errorf("errors = %q / %q", tk.ReadError, tk.WriteError)
	}
	if tk.MessageID != 9 || tk.Mode != "JOINT_VELOCITY" {
		t.Errorf("tick = %+v", tk)
	}
}

func TestReader_NaNSurvives(t *testing.T) {
	var buf bytes.Buffer
	w, _ := NewWriter(&buf, testHeader())
	nan := math.NaN()
	_ = w.Write(NewTick(0, 0, snapshot(0, []float64{nan, nan}, []float64{nan, nan}, []float64{nan, nan}), nil, nil))

	r, err := NewReader(&buf)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	tk, err := r.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if !math.IsNaN(tk.Position[0]) || !math.IsNaN(tk.Command[1]) {
		t.Errorf("unknown values not preserved: %+v", tk)
	}
}

func TestReader_Errors(t *testing.T) {
	if _, err := NewReader(bytes.NewReader(nil)); err == nil || !strings.Contains(err.Error(), "empty") {
		t.Errorf("empty input error = %v", err)
	}
	if _, err := NewReader(bytes.NewReader([]byte{0xff, 0x00})); err == nil {
		t.Error("expected error for garbage header")
	}

	// Tick with the wrong number of joint values
	var buf bytes.Buffer
	w, _ := NewWriter(&buf, testHeader())
	_ = w.Write(Tick{Seq: 0, Position: []float64{1}, Velocity: []float64{1}, Command: []float64{1}})
	r, err := NewReader(&buf)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	if _, err := r.Next(); err == nil {
		t.Error("expected error for short tick")
	}
}

func TestSummarize(t *testing.T) {
	var buf bytes.Buffer
	w, _ := NewWriter(&buf, testHeader())
	nan := math.NaN()
	_ = w.Write(NewTick(0, 0, snapshot(0, []float64{nan, nan}, []float64{nan, nan}, []float64{0, 0}), errors.New("x"), nil))
	_ = w.Write(NewTick(1, 4*time.Millisecond, snapshot(1, []float64{-1, 2}, []float64{0.5, -3}, []float64{0, 0}), nil, nil))
	_ = w.Write(NewTick(2, 8*time.Millisecond, snapshot(2, []float64{1, 2}, []float64{0.25, 0}, []float64{0, 0}), nil, nil))

	s, err := Summarize(&buf)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if s.Ticks != 3 || s.ReadErrors != 1 || s.WriteErrors != 0 {
		t.Errorf("counts = %d ticks, %d read, %d write", s.Ticks, s.ReadErrors, s.WriteErrors)
	}
	if s.Duration != 8*time.Millisecond {
		t.Errorf("Duration = %v, want 8ms", s.Duration)
	}
	if s.Joints[0].Min != -1 || s.Joints[0].Max != 1 || s.Joints[0].MaxSpeed != 0.5 {
		t.Errorf("joint s = %+v", s.Joints[0])
	}
	if s.Joints[1].MaxSpeed != 3 {
		t.Errorf("joint l max speed = %v, want 3", s.Joints[1].MaxSpeed)
	}

	out := s.String()
	for _, want := range []string{"Ticks:", "JOINT_VELOCITY", "MaxSpeed"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}
