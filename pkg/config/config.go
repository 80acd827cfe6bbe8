// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the motobridge YAML configuration.
//
// Values are resolved in order: built-in defaults, the YAML file (after
// ${VAR} expansion), then MOTOBRIDGE_* environment overrides. CLI flags are
// applied on top by the caller.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"

	"github.com/Thermoquad/motobridge/pkg/bridge"
	"github.com/Thermoquad/motobridge/pkg/transport"
)

// TransportSimulated selects the simulated plant instead of a controller
const TransportSimulated = "simulated"

// Config is a motobridge.yaml file
type Config struct {
	StartupDelaySeconds  float64  `yaml:"startup_delay_seconds"`
	ShutdownDelaySeconds float64  `yaml:"shutdown_delay_seconds"`
	SlowdownFactor       float64  `yaml:"simulated_slowdown_factor"`
	TickPeriod           Duration `yaml:"tick_period"`
	ReceiveTimeout       Duration `yaml:"receive_timeout"`

	// Transport is udp, websocket or simulated. Empty selects udp when a
	// bind_port is set, websocket when a url is set, else simulated.
	Transport   string `yaml:"transport"`
	BindAddress string `yaml:"bind_address"`
	BindPort    int    `yaml:"bind_port"`
	PeerAddress string `yaml:"peer_address"`
	PeerPort    int    `yaml:"peer_port"`
	URL         string `yaml:"url"`
	Username    string `yaml:"username"`
	NoSSLVerify bool   `yaml:"no_ssl_verify"`

	// Password is never read from the file
	Password string `yaml:"-"`

	Joints []JointConfig `yaml:"joints"`
}

// JointConfig declares one joint
type JointConfig struct {
	Name              string   `yaml:"name"`
	Group             int      `yaml:"group"`
	CommandInterfaces []string `yaml:"command_interfaces"`
	StateInterfaces   []string `yaml:"state_interfaces"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "4ms", "1s").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "4ms" or "1m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML writes the duration in time.Duration string form
func (d Duration) MarshalYAML() (any, error) {
	return d.Duration.String(), nil
}

// envOverrides are the environment variables that override file values.
// Zero values mean "not set".
type envOverrides struct {
	BindAddress string `env:"MOTOBRIDGE_BIND_ADDRESS"`
	BindPort    int    `env:"MOTOBRIDGE_BIND_PORT"`
	PeerAddress string `env:"MOTOBRIDGE_PEER_ADDRESS"`
	PeerPort    int    `env:"MOTOBRIDGE_PEER_PORT"`
	URL         string `env:"MOTOBRIDGE_URL"`
	Password    string `env:"MOTOBRIDGE_PASSWORD"`
}

// Default returns the configuration used without a file: a six-axis arm on
// the simulated plant.
func Default() *Config {
	cfg := &Config{
		StartupDelaySeconds:  2,
		ShutdownDelaySeconds: 1,
		SlowdownFactor:       2,
		TickPeriod:           Duration{4 * time.Millisecond},
		BindAddress:          "0.0.0.0",
	}
	for i := 1; i <= 6; i++ {
		cfg.Joints = append(cfg.Joints, JointConfig{
			Name:              fmt.Sprintf("joint_%d", i),
			CommandInterfaces: []string{bridge.InterfaceVelocity},
			StateInterfaces:   []string{bridge.InterfacePosition, bridge.InterfaceVelocity},
		})
	}
	return cfg
}

// Load reads a YAML config file over the defaults, expands environment
// variables and applies MOTOBRIDGE_* overrides. An empty path loads the
// defaults only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("config file not found: %s", path)
			}
			return nil, fmt.Errorf("cannot read config file %q: %w", path, err)
		}

		expanded := ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// ApplyEnv overrides endpoint settings from MOTOBRIDGE_* variables
func (c *Config) ApplyEnv() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("invalid environment override: %w", err)
	}

	if o.BindAddress != "" {
		c.BindAddress = o.BindAddress
	}
	if o.BindPort != 0 {
		c.BindPort = o.BindPort
	}
	if o.PeerAddress != "" {
		c.PeerAddress = o.PeerAddress
	}
	if o.PeerPort != 0 {
		c.PeerPort = o.PeerPort
	}
	if o.URL != "" {
		c.URL = o.URL
	}
	if o.Password != "" {
		c.Password = o.Password
	}
	return nil
}

// Validate checks the values the bridge does not check itself
func (c *Config) Validate() error {
	switch c.Transport {
	case "", TransportSimulated, string(transport.KindUDP), string(transport.KindWebSocket):
	default:
		return fmt.Errorf("unknown transport %q (use udp, websocket or simulated)", c.Transport)
	}
	if c.BindPort < 0 || c.BindPort > 65535 {
		return fmt.Errorf("bind_port %d out of range", c.BindPort)
	}
	if c.PeerPort < 0 || c.PeerPort > 65535 {
		return fmt.Errorf("peer_port %d out of range", c.PeerPort)
	}
	if c.PeerAddress != "" && c.PeerPort == 0 {
		return fmt.Errorf("peer_address %s needs a peer_port", c.PeerAddress)
	}
	if len(c.Joints) == 0 {
		return fmt.Errorf("no joints declared")
	}
	return nil
}

// Parameters converts the timing values for bridge.Configure
func (c *Config) Parameters() bridge.Parameters {
	return bridge.Parameters{
		StartupDelay:   seconds(c.StartupDelaySeconds),
		ShutdownDelay:  seconds(c.ShutdownDelaySeconds),
		SlowdownFactor: c.SlowdownFactor,
		TickPeriod:     c.TickPeriod.Duration,
		ReceiveTimeout: c.ReceiveTimeout.Duration,
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// BridgeJoints converts the joint declarations for bridge.Configure
func (c *Config) BridgeJoints() []bridge.JointInfo {
	joints := make([]bridge.JointInfo, len(c.Joints))
	for i, j := range c.Joints {
		joints[i] = bridge.JointInfo{
			Name:              j.Name,
			Group:             j.Group,
			CommandInterfaces: j.CommandInterfaces,
			StateInterfaces:   j.StateInterfaces,
		}
	}
	return joints
}

// Endpoint returns the transport endpoint, or a zero endpoint for the
// simulated plant
func (c *Config) Endpoint() transport.Endpoint {
	if c.Simulated() {
		return transport.Endpoint{}
	}
	return transport.Endpoint{
		Kind:        transport.Kind(c.Transport),
		BindAddress: c.BindAddress,
		BindPort:    c.BindPort,
		PeerAddress: c.PeerAddress,
		PeerPort:    c.PeerPort,
		URL:         c.URL,
		Username:    c.Username,
		Password:    c.Password,
		SkipVerify:  c.NoSSLVerify,
	}
}

// Simulated reports whether no controller transport is configured
func (c *Config) Simulated() bool {
	switch c.Transport {
	case TransportSimulated:
		return true
	case "":
		return c.BindPort == 0 && c.URL == ""
	default:
		return false
	}
}
