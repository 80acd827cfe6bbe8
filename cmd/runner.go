// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Thermoquad/motobridge/pkg/bridge"
	"github.com/Thermoquad/motobridge/pkg/logging"
	"github.com/Thermoquad/motobridge/pkg/recorder"
)

var errControllerFault = errors.New("controller fault")

// tickReport is the outcome of one control tick
type tickReport struct {
	seq      uint64
	elapsed  time.Duration
	snapshot bridge.Snapshot
	stats    bridge.Statistics
	readErr  error
	writeErr error
	waiting  bool // no controller feedback yet
}

// runner drives TickRead/TickWrite at a fixed period. It is the only
// goroutine touching the bridge while running.
type runner struct {
	bridge    *bridge.Bridge
	source    commandSource
	recorder  *recorder.Writer
	log       *logging.Logger
	period    time.Duration
	maxMisses uint64 // 0 disables escalation
	maxTicks  uint64 // 0 runs until cancelled
	report    func(tickReport)

	handles  []bridge.CommandHandle
	commands []float64
}

func newRunner(b *bridge.Bridge, source commandSource, log *logging.Logger) *runner {
	handles := b.ExportCommandHandles()
	return &runner{
		bridge:   b,
		source:   source,
		log:      log,
		period:   b.Parameters().TickPeriod,
		handles:  handles,
		commands: make([]float64, len(handles)),
	}
}

// run ticks until ctx is done, maxTicks is reached or the controller faults.
// It returns the number of completed ticks.
func (r *runner) run(ctx context.Context) (uint64, error) {
	ticker := time.NewTicker(r.period)
	defer ticker.Stop()

	start := time.Now()
	var seq uint64
	for {
		select {
		case <-ctx.Done():
			return seq, nil
		case <-ticker.C:
		}

		err := r.tick(seq, time.Since(start))
		seq++
		if err != nil {
			return seq, err
		}
		if r.maxTicks > 0 && seq >= r.maxTicks {
			return seq, nil
		}
	}
}

func (r *runner) tick(seq uint64, elapsed time.Duration) error {
	readErr := r.bridge.TickRead()
	if errors.Is(readErr, bridge.ErrNotStarted) {
		return readErr
	}
	if readErr != nil && !errors.Is(readErr, bridge.ErrNoFeedback) {
		r.log.Warn("tick read failed", map[string]any{"seq": seq, "error": readErr.Error()})
	}

	r.source.Commands(elapsed, r.commands)
	for i, h := range r.handles {
		h.Set(r.commands[i])
	}

	writeErr := r.bridge.TickWrite()
	if writeErr != nil {
		r.log.Warn("tick write failed", map[string]any{"seq": seq, "error": writeErr.Error()})
	}

	if r.recorder == nil && r.report == nil && r.maxMisses == 0 {
		return nil
	}

	stats := r.bridge.Statistics()
	if r.recorder != nil || r.report != nil {
		snap := r.bridge.Snapshot()
		if r.recorder != nil {
			if err := r.recorder.Write(recorder.NewTick(seq, elapsed, snap, readErr, writeErr)); err != nil {
				return fmt.Errorf("recording failed: %w", err)
			}
		}
		if r.report != nil {
			r.report(tickReport{
				seq:      seq,
				elapsed:  elapsed,
				snapshot: snap,
				stats:    stats,
				readErr:  readErr,
				writeErr: writeErr,
				waiting:  !r.bridge.Simulated() && !r.bridge.HaveFeedback(),
			})
		}
	}

	if r.maxMisses > 0 && stats.ConsecutiveMisses >= r.maxMisses {
		r.log.Error("controller stopped responding", map[string]any{
			"consecutive_misses": stats.ConsecutiveMisses,
			"seq":                seq,
		})
		return fmt.Errorf("%w: no feedback for %d consecutive ticks", errControllerFault, stats.ConsecutiveMisses)
	}
	return nil
}
