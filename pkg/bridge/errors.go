// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"errors"
	"fmt"
)

var (
	// ErrNotStarted is returned by TickRead/TickWrite outside the Started state
	ErrNotStarted = errors.New("bridge not started")
	// ErrNoFeedback is returned by TickRead when no datagram arrived in time
	ErrNoFeedback = errors.New("no feedback from controller")
	// ErrProtocolViolation is returned by TickRead for undecodable or misdirected datagrams
	ErrProtocolViolation = errors.New("protocol violation")
	// ErrSendFailed is returned by TickWrite when the transport rejects the command
	ErrSendFailed = errors.New("command send failed")
	// ErrInvalidTransition is returned for lifecycle calls made from the wrong state
	ErrInvalidTransition = errors.New("invalid lifecycle transition")
)

// ConfigErrorKind classifies Configure failures
type ConfigErrorKind int

const (
	// InterfaceMismatch indicates a joint declaring the wrong command or state interfaces
	InterfaceMismatch ConfigErrorKind = iota
	// TransportBindFailed indicates the endpoint could not be bound
	TransportBindFailed
	// InvalidParameter indicates a timing parameter or joint layout out of range
	InvalidParameter
)

// String returns the kind name
func (k ConfigErrorKind) String() string {
	switch k {
	case InterfaceMismatch:
		return "interface_mismatch"
	case TransportBindFailed:
		return "transport_bind_failed"
	case InvalidParameter:
		return "invalid_parameter"
	default:
		return "unknown"
	}
}

// ConfigError is returned by Configure. The bridge stays Unconfigured.
type ConfigError struct {
	Kind ConfigErrorKind

	// Joint is the 0-based index of the offending joint, -1 when not joint specific
	Joint int
	// Name is the joint name or parameter name
	Name string
	// Interface is "command" or "state" for InterfaceMismatch
	Interface string

	Expected string
	Found    string

	Err error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	switch e.Kind {
	case InterfaceMismatch:
		return fmt.Sprintf("joint %d (%s): %s interface mismatch: expected %s, found %s",
			e.Joint, e.Name, e.Interface, e.Expected, e.Found)
	case TransportBindFailed:
		return fmt.Sprintf("transport bind failed: %v", e.Err)
	default:
		if e.Joint >= 0 {
			return fmt.Sprintf("joint %d (%s): invalid %s: expected %s, found %s",
				e.Joint, e.Name, e.Interface, e.Expected, e.Found)
		}
		return fmt.Sprintf("invalid parameter %s: expected %s, found %s", e.Name, e.Expected, e.Found)
	}
}

// Unwrap returns the underlying cause, if any
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is a *ConfigError of the given kind
func IsConfigError(err error, kind ConfigErrorKind) bool {
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return cfgErr.Kind == kind
	}
	return false
}
