// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/motobridge/pkg/recorder"
)

var inspectTicks bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <recording.cbor>",
	Short: "Summarize a recorded run",
	Long: `Read a CBOR recording written by "run --record" and print its header,
per-joint position ranges and error counts. With --ticks every tick is
listed as well.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().BoolVar(&inspectTicks, "ticks", false, "List every tick")
}

func runInspect(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	summary, err := recorder.Summarize(f)
	if err != nil {
		return err
	}
	fmt.Fprint(out, summary.String())

	if !inspectTicks {
		return nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	return listTicks(out, f)
}

func listTicks(out io.Writer, r io.Reader) error {
	rd, err := recorder.NewReader(r)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%-8s %-12s %-8s %-14s %s\n", "seq", "offset", "id", "mode", "positions")
	for {
		t, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		line := fmt.Sprintf("%-8d %-12s %-8d %-14s %s", t.Seq, t.Offset, t.MessageID, t.Mode, formatPositions(t.Position))
		if t.ReadError != "" {
			line += "  read: " + t.ReadError
		}
		if t.WriteError != "" {
			line += "  write: " + t.WriteError
		}
		fmt.Fprintln(out, line)
	}
}
