// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package transport moves whole datagrams between the bridge and the robot
// controller. Receives are always bounded by a timeout.
package transport

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

var (
	// ErrTimeout is returned by Receive when no datagram arrived in time
	ErrTimeout = errors.New("receive timed out")
	// ErrNoPeer is returned by Send before any peer address is known
	ErrNoPeer = errors.New("no peer address known")
	// ErrClosed is returned after Close
	ErrClosed = errors.New("transport closed")
)

// Transport is a bidirectional datagram endpoint
type Transport interface {
	// Send transmits one datagram
	Send(datagram []byte) error
	// Receive waits at most timeout for one datagram and copies it into buf.
	// A timeout <= 0 polls without waiting.
	Receive(buf []byte, timeout time.Duration) (int, error)
	// LocalAddr describes the local end for logs
	LocalAddr() string
	Close() error
}

var (
	_ Transport = (*UDP)(nil)
	_ Transport = (*WebSocket)(nil)
	_ Transport = (*PipeEnd)(nil)
)

// Kind selects the transport implementation
type Kind string

// Transport kinds
const (
	KindUDP       Kind = "udp"
	KindWebSocket Kind = "websocket"
)

// Endpoint describes where the controller is reachable
type Endpoint struct {
	Kind Kind

	// UDP
	BindAddress string
	BindPort    int
	PeerAddress string
	PeerPort    int

	// WebSocket tunnel
	URL        string
	Username   string
	Password   string
	SkipVerify bool
}

// IsZero reports whether the endpoint names no transport at all
func (e Endpoint) IsZero() bool {
	return e.Kind == "" && e.BindAddress == "" && e.BindPort == 0 && e.URL == ""
}

// BindHostPort returns the UDP bind address as host:port
func (e Endpoint) BindHostPort() string {
	return net.JoinHostPort(e.BindAddress, strconv.Itoa(e.BindPort))
}

// PeerHostPort returns the fixed UDP peer as host:port, or "" when the peer is learned
func (e Endpoint) PeerHostPort() string {
	if e.PeerAddress == "" {
		return ""
	}
	return net.JoinHostPort(e.PeerAddress, strconv.Itoa(e.PeerPort))
}

// String describes the endpoint for logs
func (e Endpoint) String() string {
	switch e.kind() {
	case KindWebSocket:
		return fmt.Sprintf("WebSocket: %s", e.URL)
	default:
		if peer := e.PeerHostPort(); peer != "" {
			return fmt.Sprintf("UDP: %s -> %s", e.BindHostPort(), peer)
		}
		return fmt.Sprintf("UDP: %s", e.BindHostPort())
	}
}

func (e Endpoint) kind() Kind {
	if e.Kind != "" {
		return e.Kind
	}
	if e.URL != "" {
		return KindWebSocket
	}
	return KindUDP
}

// Open binds the transport described by the endpoint.
// An empty Kind selects websocket when a URL is set and UDP otherwise.
func Open(e Endpoint) (Transport, error) {
	switch e.kind() {
	case KindUDP:
		return ListenUDP(e.BindHostPort(), e.PeerHostPort())
	case KindWebSocket:
		return DialWebSocket(e.URL, e.Username, e.Password, e.SkipVerify)
	default:
		return nil, fmt.Errorf("unsupported transport kind %q (use udp or websocket)", e.Kind)
	}
}
