// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Thermoquad/motobridge/pkg/bridge"
	"github.com/Thermoquad/motobridge/pkg/logging"
	"github.com/Thermoquad/motobridge/pkg/transport"
)

// writeTemp writes content to a temp file and returns the path.
func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "motobridge.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestLoad_FullConfig(t *testing.T) {
	yaml := `startup_delay_seconds: 3
shutdown_delay_seconds: 0.5
simulated_slowdown_factor: 4
tick_period: 4ms
receive_timeout: 3ms

transport: udp
bind_address: 192.168.255.3
bind_port: 50244
peer_address: 192.168.255.1
peer_port: 50243

joints:
  - name: s
    command_interfaces: [velocity]
    state_interfaces: [position, velocity]
  - name: l
    group: 1
    command_interfaces: [velocity]
    state_interfaces: [velocity, position]
`
	cfg, err := Load(writeTemp(t, yaml))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	params := cfg.Parameters()
	want := bridge.Parameters{
		StartupDelay:   3 * time.Second,
		ShutdownDelay:  500 * time.Millisecond,
		SlowdownFactor: 4,
		TickPeriod:     4 * time.Millisecond,
		ReceiveTimeout: 3 * time.Millisecond,
	}
	if params != want {
		t.Errorf("Parameters() = %+v, want %+v", params, want)
	}

	ep := cfg.Endpoint()
	if ep.Kind != transport.KindUDP || ep.BindHostPort() != "192.168.255.3:50244" || ep.PeerHostPort() != "192.168.255.1:50243" {
		t.Errorf("Endpoint() = %+v", ep)
	}

	joints := cfg.BridgeJoints()
	if len(joints) != 2 {
		t.Fatalf("joints = %d, want 2", len(joints))
	}
	if joints[1].Name != "l" || joints[1].Group != 1 || joints[1].StateInterfaces[0] != "velocity" {
		t.Errorf("joint 1 = %+v", joints[1])
	}
}

func TestLoad_DefaultsFillMissingKeys(t *testing.T) {
	cfg, err := Load(writeTemp(t, "bind_port: 50244\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.TickPeriod.Duration != 4*time.Millisecond {
		t.Errorf("tick_period = %v, want default 4ms", cfg.TickPeriod.Duration)
	}
	if len(cfg.Joints) != 6 {
		t.Errorf("joints = %d, want 6 defaults", len(cfg.Joints))
	}
	if cfg.Simulated() {
		t.Error("bind_port without transport should select udp")
	}
	if cfg.Endpoint().IsZero() {
		t.Error("endpoint should not be zero")
	}
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !cfg.Simulated() || !cfg.Endpoint().IsZero() {
		t.Error("defaults should run the simulated plant")
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("ROBOT_IP", "10.0.0.7")
	yaml := `transport: udp
bind_port: 50244
peer_address: ${ROBOT_IP}
peer_port: ${ROBOT_PORT:-50243}
`
	cfg, err := Load(writeTemp(t, yaml))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.PeerAddress != "10.0.0.7" || cfg.PeerPort != 50243 {
		t.Errorf("peer = %s:%d, want 10.0.0.7:50243", cfg.PeerAddress, cfg.PeerPort)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MOTOBRIDGE_BIND_PORT", "6000")
	t.Setenv("MOTOBRIDGE_PEER_ADDRESS", "10.1.1.1")
	t.Setenv("MOTOBRIDGE_PEER_PORT", "6001")
	t.Setenv("MOTOBRIDGE_PASSWORD", "hunter2")

	cfg, err := Load(writeTemp(t, "transport: udp\nbind_port: 50244\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.BindPort != 6000 {
		t.Errorf("bind_port = %d, want env override 6000", cfg.BindPort)
	}
	if cfg.PeerAddress != "10.1.1.1" || cfg.PeerPort != 6001 {
		t.Errorf("peer = %s:%d", cfg.PeerAddress, cfg.PeerPort)
	}
	if cfg.Password != "hunter2" || cfg.Endpoint().Password != "hunter2" {
		t.Error("password override not applied")
	}
}

func TestLoad_BadEnvOverride(t *testing.T) {
	t.Setenv("MOTOBRIDGE_BIND_PORT", "not-a-port")
	if _, err := Load(""); err == nil {
		t.Error("expected error for non-numeric MOTOBRIDGE_BIND_PORT")
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantSub string
	}{
		{"bad yaml", "joints: [\n", "invalid YAML"},
		{"bad duration", "tick_period: fast\n", "invalid duration"},
		{"unknown transport", "transport: serial\n", "unknown transport"},
		{"peer without port", "transport: udp\nbind_port: 1\npeer_address: 10.0.0.1\n", "peer_port"},
		{"no joints", "joints: []\n", "no joints"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeTemp(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error = %v, want substring %q", err, tt.wantSub)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %v, want not found", err)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("SET_VAR", "value")
	t.Setenv("EMPTY_VAR", "")

	tests := []struct {
		in   string
		want string
	}{
		{"${SET_VAR}", "value"},
		{"${SET_VAR:-fallback}", "value"},
		{"${EMPTY_VAR:-fallback}", "fallback"},
		{"${UNSET_MOTOBRIDGE_VAR}", ""},
		{"${UNSET_MOTOBRIDGE_VAR:-50244}", "50244"},
		{"plain $SET_VAR", "plain $SET_VAR"},
	}
	for _, tt := range tests {
		if got := ExpandEnv(tt.in); got != tt.want {
			t.Errorf("ExpandEnv(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestConfigFeedsBridge(t *testing.T) {
	cfg := Default()
	cfg.StartupDelaySeconds = 0
	cfg.ShutdownDelaySeconds = 0

	b := bridge.New(bridge.WithLogger(logging.NewNop()))
	if err := b.Configure(cfg.BridgeJoints(), cfg.Parameters(), cfg.Endpoint()); err != nil {
		t.Fatalf("Configure with defaults failed: %v", err)
	}
	if err := b.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := b.TickRead(); err != nil {
		t.Errorf("simulated TickRead failed: %v", err)
	}
	if !b.Simulated() {
		t.Error("default config should drive the simulated plant")
	}
}
