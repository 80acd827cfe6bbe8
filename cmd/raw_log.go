// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/motobridge/pkg/simplemsg"
	"github.com/Thermoquad/motobridge/pkg/transport"
)

var rawLogShowHex bool

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display received messages in human-readable format",
	Long: `Continuously decode and display simple messages as they arrive.

Each datagram is printed with its header, joint values and any validation
anomalies. Datagrams that fail to decode are reported and skipped.

Supports both UDP and WebSocket endpoints.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().BoolVar(&rawLogShowHex, "hex", false, "Also print the raw datagram bytes")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection(cmd)
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Motobridge - Raw Message Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	buf := make([]byte, 2*simplemsg.MessageSize)
	for ctx.Err() == nil {
		n, err := conn.Receive(buf, 250*time.Millisecond)
		if err != nil {
			switch {
			case errors.Is(err, transport.ErrTimeout):
				continue
			case errors.Is(err, transport.ErrClosed):
				log.Printf("Connection closed")
				return nil
			}
			log.Printf("Read error: %v", err)
			continue
		}

		fmt.Print(formatDatagram(buf[:n], rawLogShowHex))
	}
	return nil
}

// formatDatagram decodes one datagram for display
func formatDatagram(data []byte, showHex bool) string {
	var out string
	if showHex {
		out = simplemsg.FormatHex(data)
	}

	msg, err := simplemsg.Decode(data)
	if err != nil {
		return out + fmt.Sprintf("[ERROR] %v (%d bytes)\n", err, len(data))
	}

	out += simplemsg.FormatMessage(msg)
	for _, anomaly := range simplemsg.ValidateMessage(msg) {
		out += fmt.Sprintf("  [WARN] %s\n", anomaly.Error())
	}
	return out
}
