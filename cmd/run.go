// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/motobridge/pkg/bridge"
	"github.com/Thermoquad/motobridge/pkg/recorder"
)

var (
	runHold          bool
	runSineAmplitude float64
	runSineFrequency float64
	runRecordPath    string
	runTUI           bool
	runMaxMisses     uint64
	runTicks         uint64
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the control loop against a controller or the simulated plant",
	Long: `Configure and start the bridge, then exchange one feedback and one command
datagram per tick until interrupted.

Commands come from a built-in source: --hold sends zero velocity, while
--sine-amplitude/--sine-frequency sweep every joint with a phase-shifted sine.

The loop faults when no feedback arrives for --max-misses consecutive ticks.
Press Ctrl+C to stop; the bridge waits its shutdown delay before exiting.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runHold, "hold", false, "Command zero velocity on every joint")
	runCmd.Flags().Float64Var(&runSineAmplitude, "sine-amplitude", 0, "Sine velocity amplitude in rad/s (0 holds)")
	runCmd.Flags().Float64Var(&runSineFrequency, "sine-frequency", 0.2, "Sine frequency in Hz")
	runCmd.Flags().StringVar(&runRecordPath, "record", "", "Record every tick to a CBOR file")
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "Show the live joint monitor")
	runCmd.Flags().Uint64Var(&runMaxMisses, "max-misses", 250, "Fault after this many ticks without feedback (0 disables)")
	runCmd.Flags().Uint64Var(&runTicks, "ticks", 0, "Stop after this many ticks (0 runs until interrupted)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	source, err := newCommandSource(runHold, runSineAmplitude, runSineFrequency)
	if err != nil {
		return err
	}

	log, err := newLogger("bridge")
	if err != nil {
		return err
	}
	if runTUI {
		// the alternate screen owns the terminal
		log = log.WithOutput(io.Discard)
	}
	defer log.Sync()

	endpoint, err := resolveEndpoint(cfg)
	if err != nil {
		return err
	}

	b := bridge.New(bridge.WithLogger(log))
	if err := b.Configure(cfg.BridgeJoints(), cfg.Parameters(), endpoint); err != nil {
		return err
	}
	defer b.Close()

	linkInfo := "simulated plant"
	if !b.Simulated() {
		linkInfo = endpoint.String()
	}
	fmt.Printf("Motobridge - Control Loop\n")
	fmt.Printf("Connection: %s\n", linkInfo)
	fmt.Printf("Joints: %d  Tick: %v  Commands: %s\n", len(cfg.Joints), b.Parameters().TickPeriod, source)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := b.Start(); err != nil {
		return err
	}

	r := newRunner(b, source, log)
	r.maxMisses = runMaxMisses
	r.maxTicks = runTicks

	if runRecordPath != "" {
		f, err := os.Create(runRecordPath)
		if err != nil {
			return fmt.Errorf("cannot create recording: %w", err)
		}
		defer f.Close()

		r.recorder, err = recorder.NewWriter(f, recorder.Header{
			Joints:     b.Snapshot().Names,
			TickPeriod: b.Parameters().TickPeriod,
			Transport:  linkInfo,
			StartedAt:  time.Now(),
		})
		if err != nil {
			return err
		}
	}

	var ticks uint64
	var runErr error
	if runTUI {
		ticks, runErr = runWithMonitor(ctx, r, linkInfo)
	} else {
		fmt.Printf("Press Ctrl+C to stop\n\n")
		ticks, runErr = runPlain(ctx, r)
	}

	if err := b.Stop(); err != nil && runErr == nil {
		runErr = err
	}

	stats := b.Statistics()
	fmt.Printf("\n%s", stats.String())
	if r.recorder != nil {
		fmt.Printf("Recorded %d ticks to %s\n", r.recorder.Count(), runRecordPath)
	}
	fmt.Printf("Completed %d ticks\n", ticks)

	return runErr
}

// runPlain prints a status line once per second
func runPlain(ctx context.Context, r *runner) (uint64, error) {
	var lastPrint time.Time
	r.report = func(rep tickReport) {
		if time.Since(lastPrint) < time.Second {
			return
		}
		lastPrint = time.Now()
		fmt.Print(formatStatusLine(rep))
	}
	return r.run(ctx)
}

func formatStatusLine(rep tickReport) string {
	status := "ok"
	switch {
	case rep.waiting:
		status = "waiting for feedback"
	case rep.readErr != nil:
		status = rep.readErr.Error()
	case rep.writeErr != nil:
		status = rep.writeErr.Error()
	}
	return fmt.Sprintf("[%8.2fs] tick %-8d id %-8d %-14s feedback %6.1f/s  errors %5.1f/s  %s\n",
		rep.elapsed.Seconds(), rep.seq, rep.snapshot.MessageID, rep.snapshot.Mode,
		rep.stats.FeedbackRate, rep.stats.ErrorRate, status)
}
