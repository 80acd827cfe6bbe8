// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/motobridge/pkg/capture"
	"github.com/Thermoquad/motobridge/pkg/simplemsg"
)

var (
	decodePcap string
	decodePort uint16
	decodeHex  bool
)

var decodeCmd = &cobra.Command{
	Use:   "decode [hex...]",
	Short: "Decode messages from hex strings or a packet capture",
	Long: `Decode simple messages offline.

With arguments, the arguments are joined and parsed as one hex encoded
datagram (whitespace and colons are ignored). With --pcap, every UDP payload
in a pcap or pcapng capture is decoded, optionally limited to --port.`,
	Example: `  motobridge decode --pcap robot.pcapng --port 50244
  motobridge decode 68010000ee070000...`,
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().StringVar(&decodePcap, "pcap", "", "pcap or pcapng capture file")
	decodeCmd.Flags().Uint16Var(&decodePort, "port", 0, "Only decode datagrams to or from this UDP port")
	decodeCmd.Flags().BoolVar(&decodeHex, "hex", false, "Also print the raw datagram bytes")
}

func runDecode(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if decodePcap != "" {
		if len(args) > 0 {
			return fmt.Errorf("use either hex arguments or --pcap, not both")
		}
		return decodeCapture(out, decodePcap, decodePort, decodeHex)
	}

	if len(args) == 0 {
		return fmt.Errorf("nothing to decode: pass hex arguments or --pcap")
	}

	data, err := parseHex(strings.Join(args, ""))
	if err != nil {
		return err
	}
	fmt.Fprint(out, formatDatagram(data, decodeHex))
	return nil
}

func parseHex(s string) ([]byte, error) {
	clean := strings.NewReplacer(" ", "", "\t", "", "\n", "", ":", "").Replace(s)
	clean = strings.TrimPrefix(strings.TrimPrefix(clean, "0x"), "0X")
	data, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return data, nil
}

func decodeCapture(out io.Writer, path string, port uint16, showHex bool) error {
	datagrams, err := capture.ReadFile(path, capture.Filter{Port: port})
	if err != nil {
		if len(datagrams) == 0 {
			return err
		}
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	var decoded, failed int
	for i, d := range datagrams {
		fmt.Fprintf(out, "#%d %s %s -> %s (%d bytes)\n",
			i+1, d.Timestamp.Format("15:04:05.000000"), d.Src, d.Dst, len(d.Payload))
		if _, err := simplemsg.Decode(d.Payload); err != nil {
			failed++
		} else {
			decoded++
		}
		fmt.Fprint(out, formatDatagram(d.Payload, showHex))
	}

	fmt.Fprintf(out, "\n%d datagrams: %d decoded, %d failed\n", len(datagrams), decoded, failed)
	return nil
}
