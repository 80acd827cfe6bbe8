// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Thermoquad/motobridge/pkg/config"
	"github.com/Thermoquad/motobridge/pkg/logging"
	"github.com/Thermoquad/motobridge/pkg/transport"
)

// loadConfig loads --config and applies the connection flags the user set
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("bind") {
		cfg.BindAddress = bindAddress
	}
	if flags.Changed("port") {
		cfg.BindPort = bindPort
		if cfg.Transport == "" || cfg.Transport == config.TransportSimulated {
			cfg.Transport = string(transport.KindUDP)
		}
	}
	if flags.Changed("peer") {
		cfg.PeerAddress = peerAddress
	}
	if flags.Changed("peer-port") {
		cfg.PeerPort = peerPort
	}
	if flags.Changed("url") {
		cfg.URL = wsURL
		cfg.Transport = string(transport.KindWebSocket)
	}
	if flags.Changed("username") {
		cfg.Username = wsUsername
	}
	if flags.Changed("no-ssl-verify") {
		cfg.NoSSLVerify = wsNoSSLVerify
	}
}

// newLogger creates a component logger at the --log-level
func newLogger(component string) (*logging.Logger, error) {
	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return nil, err
	}
	log := logging.NewLogger(component)
	log.SetLevel(level)
	return log, nil
}

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	// First check environment variable
	if pw := os.Getenv("MOTOBRIDGE_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %v", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// resolveEndpoint returns the configured controller endpoint, prompting
// for the WebSocket password when a username is set
func resolveEndpoint(cfg *config.Config) (transport.Endpoint, error) {
	endpoint := cfg.Endpoint()
	if endpoint.Kind == transport.KindWebSocket && endpoint.Username != "" && endpoint.Password == "" {
		password, err := GetPassword()
		if err != nil {
			return transport.Endpoint{}, err
		}
		endpoint.Password = password
	}
	return endpoint, nil
}

// OpenConnection opens the controller endpoint for the diagnostic commands
func OpenConnection(cmd *cobra.Command) (transport.Transport, string, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, "", err
	}
	if cfg.Simulated() {
		return nil, "", fmt.Errorf("either --port or --url must be specified")
	}

	endpoint, err := resolveEndpoint(cfg)
	if err != nil {
		return nil, "", err
	}

	conn, err := transport.Open(endpoint)
	if err != nil {
		return nil, "", err
	}
	return conn, endpoint.String(), nil
}
