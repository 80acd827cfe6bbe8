// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/motobridge/pkg/simplemsg"
	"github.com/Thermoquad/motobridge/pkg/transport"
)

var linkTestDuration int

var linkTestCmd = &cobra.Command{
	Use:   "link_test",
	Short: "Measure feedback stream stability",
	Long: `Listen to the controller feedback stream without sending commands.

Counts received datagrams, decode failures and gaps in the message id
sequence, and measures the interval between datagrams. Useful for checking
that the network delivers the controller cadence without loss or jitter.

Exit codes:
  0 - Stream stable for the whole duration
  1 - No feedback, decode failures or message id gaps
  2 - Connection error`,
	RunE: runLinkTest,
}

func init() {
	rootCmd.AddCommand(linkTestCmd)
	linkTestCmd.Flags().IntVar(&linkTestDuration, "duration", 30, "Test duration in seconds")
}

// linkStats accumulates stream quality figures
type linkStats struct {
	datagrams    uint64
	feedback     uint64
	decodeErrors uint64
	idGaps       uint64
	lastID       int32
	haveID       bool

	lastArrival time.Time
	minInterval time.Duration
	maxInterval time.Duration
	sumInterval time.Duration
	intervals   uint64
}

func (s *linkStats) observe(now time.Time, data []byte) {
	s.datagrams++
	if !s.lastArrival.IsZero() {
		d := now.Sub(s.lastArrival)
		if s.intervals == 0 || d < s.minInterval {
			s.minInterval = d
		}
		if d > s.maxInterval {
			s.maxInterval = d
		}
		s.sumInterval += d
		s.intervals++
	}
	s.lastArrival = now

	msg, err := simplemsg.Decode(data)
	if err != nil {
		s.decodeErrors++
		return
	}
	state, ok := msg.JointState()
	if !ok {
		s.decodeErrors++
		return
	}
	s.feedback++
	if s.haveID && state.MessageID != s.lastID+1 {
		s.idGaps++
	}
	s.lastID = state.MessageID
	s.haveID = true
}

func (s *linkStats) meanInterval() time.Duration {
	if s.intervals == 0 {
		return 0
	}
	return s.sumInterval / time.Duration(s.intervals)
}

func (s *linkStats) stable() bool {
	return s.feedback > 0 && s.decodeErrors == 0 && s.idGaps == 0
}

func (s *linkStats) String() string {
	result := "\n--- Test Results ---\n"
	result += fmt.Sprintf("Datagrams received: %d\n", s.datagrams)
	result += fmt.Sprintf("Feedback messages:  %d\n", s.feedback)
	result += fmt.Sprintf("Decode failures:    %d\n", s.decodeErrors)
	result += fmt.Sprintf("Message id gaps:    %d\n", s.idGaps)
	if s.intervals > 0 {
		result += fmt.Sprintf("Interval:           min %v / mean %v / max %v\n",
			s.minInterval, s.meanInterval(), s.maxInterval)
	}
	return result
}

func runLinkTest(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Feedback Stream Stability Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Duration: %d seconds\n\n", linkTestDuration)
	fmt.Printf("Listening for feedback...\n\n")

	endTime := time.Now().Add(time.Duration(linkTestDuration) * time.Second)
	nextStatus := time.Now().Add(time.Second)
	buf := make([]byte, 2*simplemsg.MessageSize)
	var stats linkStats

	for time.Now().Before(endTime) {
		n, err := conn.Receive(buf, 100*time.Millisecond)
		switch {
		case err == nil:
			stats.observe(time.Now(), buf[:n])
		case errors.Is(err, transport.ErrTimeout):
		default:
			fmt.Printf("\n[%s] Connection error: %v\n", time.Now().Format("15:04:05.000"), err)
			fmt.Print(stats.String())
			fmt.Printf("Result: FAILED (connection error)\n")
			os.Exit(1)
		}

		if time.Now().After(nextStatus) {
			nextStatus = nextStatus.Add(time.Second)
			fmt.Printf("[%s] %d datagrams, %d gaps (%.0fs remaining)\n",
				time.Now().Format("15:04:05.000"), stats.datagrams, stats.idGaps, time.Until(endTime).Seconds())
		}
	}

	fmt.Print(stats.String())
	if !stats.stable() {
		fmt.Printf("Result: FAILED (unstable stream)\n")
		os.Exit(1)
	}
	fmt.Printf("Result: PASSED (stream stable)\n")
	return nil
}
