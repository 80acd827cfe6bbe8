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

var (
	packetTestTimeout int
)

var packetTestCmd = &cobra.Command{
	Use:   "packet_test",
	Short: "Test connection by waiting for a valid feedback message",
	Long: `Wait for a valid joint state feedback message on the endpoint until timeout.

This command binds the UDP port or connects to the WebSocket and waits for
any datagram that decodes as joint state feedback. Datagrams that fail to
decode are counted and ignored.

Exit codes:
  0 - Feedback received before timeout
  1 - Timeout reached without receiving valid feedback
  2 - Connection error

Useful for checking that a controller is streaming to this host.`,
	RunE: runPacketTest,
}

func init() {
	rootCmd.AddCommand(packetTestCmd)
	packetTestCmd.Flags().IntVar(&packetTestTimeout, "timeout", 10, "Timeout in seconds to wait for feedback")
}

func runPacketTest(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Motobridge - Packet Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", packetTestTimeout)
	fmt.Printf("Waiting for joint state feedback...\n\n")

	state, invalid, err := waitForFeedback(conn, time.Duration(packetTestTimeout)*time.Second)
	if invalid > 0 {
		fmt.Printf("(skipped %d invalid datagrams)\n", invalid)
	}

	switch {
	case err == nil:
		fmt.Printf("SUCCESS: Received valid feedback\n")
		fmt.Printf("  Message ID: %d\n", state.MessageID)
		fmt.Printf("  Mode: %s\n", state.Mode)
		fmt.Printf("  Valid Groups: %d\n", state.ValidGroups)
		os.Exit(0)

	case errors.Is(err, transport.ErrTimeout):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid feedback received within %d seconds\n", packetTestTimeout)
		os.Exit(1)

	default:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)
	}

	return nil
}

// waitForFeedback returns the first joint state message received within
// timeout and the number of datagrams skipped before it
func waitForFeedback(conn transport.Transport, timeout time.Duration) (simplemsg.JointState, int, error) {
	deadline := time.Now().Add(timeout)
	buf := make([]byte, 2*simplemsg.MessageSize)
	invalid := 0

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return simplemsg.JointState{}, invalid, transport.ErrTimeout
		}

		n, err := conn.Receive(buf, remaining)
		if err != nil {
			return simplemsg.JointState{}, invalid, err
		}

		msg, err := simplemsg.Decode(buf[:n])
		if err != nil {
			invalid++
			continue
		}
		if state, ok := msg.JointState(); ok {
			return state, invalid, nil
		}
		invalid++
	}
}
