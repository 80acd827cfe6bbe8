// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Motobridge - real-time joint streaming bridge
//
// A CLI tool that streams joint state and joint commands between a motion
// control loop and a simple message robot controller.

package main

import (
	"os"

	"github.com/Thermoquad/motobridge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
