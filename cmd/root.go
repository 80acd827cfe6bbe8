// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string

	// UDP endpoint flags
	bindAddress string
	bindPort    int
	peerAddress string
	peerPort    int

	// WebSocket endpoint flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool
)

var rootCmd = &cobra.Command{
	Use:   "motobridge",
	Short: "Real-time joint streaming bridge for simple message robot controllers",
	Long: `Motobridge - exchanges joint state and joint commands with a robot controller
over the fixed-size simple message protocol, one datagram each way per tick.

Without a controller endpoint the bridge runs against a simulated plant, which
is useful for bench testing the control loop.

Connection modes:
  UDP:       --port 50244 [--bind 0.0.0.0] [--peer 192.168.255.1 --peer-port 50243]
  WebSocket: --url ws://host/path [--username user]

Flags override values from --config and MOTOBRIDGE_* environment variables.

For WebSocket authentication, the password is read from the MOTOBRIDGE_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	// UDP endpoint flags
	rootCmd.PersistentFlags().StringVar(&bindAddress, "bind", "", "Local bind address")
	rootCmd.PersistentFlags().IntVarP(&bindPort, "port", "p", 0, "Local UDP port")
	rootCmd.PersistentFlags().StringVar(&peerAddress, "peer", "", "Fixed peer address (default: reply to last sender)")
	rootCmd.PersistentFlags().IntVar(&peerPort, "peer-port", 0, "Fixed peer port")

	// WebSocket endpoint flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
