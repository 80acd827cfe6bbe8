// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package bridge connects a joint-level motion-control caller to a robot
// controller speaking the simple message real-time protocol.
//
// A Bridge moves through Unconfigured -> Configured -> Started <-> Stopped.
// While Started the caller runs TickRead then TickWrite once per control
// tick from a single goroutine. The bridge does no locking of its own.
//
// Without a transport endpoint the bridge drives a simulated plant instead
// of a controller, which is the offline and test path.
package bridge

import (
	"fmt"
	"math"
	"time"

	"github.com/Thermoquad/motobridge/pkg/logging"
	"github.com/Thermoquad/motobridge/pkg/simplemsg"
	"github.com/Thermoquad/motobridge/pkg/transport"
)

// receiveBufferSize leaves room for oversized datagrams so they are not
// silently clipped below MessageSize by the socket
const receiveBufferSize = 2 * simplemsg.MessageSize

// State is the lifecycle phase
type State int

// Lifecycle phases
const (
	StateUnconfigured State = iota
	StateConfigured
	StateStarted
	StateStopped
)

// String returns the phase name
func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateConfigured:
		return "configured"
	case StateStarted:
		return "started"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Parameters are the timing parameters of a bridge
type Parameters struct {
	StartupDelay   time.Duration
	ShutdownDelay  time.Duration
	SlowdownFactor float64       // simulated plant, >= 1
	TickPeriod     time.Duration // control tick
	ReceiveTimeout time.Duration // 0 means TickPeriod
}

// DefaultParameters returns the parameters used when nothing is configured
func DefaultParameters() Parameters {
	return Parameters{
		StartupDelay:   2 * time.Second,
		ShutdownDelay:  time.Second,
		SlowdownFactor: 2,
		TickPeriod:     4 * time.Millisecond,
	}
}

func (p Parameters) receiveTimeout() time.Duration {
	if p.ReceiveTimeout == 0 {
		return p.TickPeriod
	}
	return p.ReceiveTimeout
}

func (p Parameters) validate() error {
	invalid := func(name, expected, found string) error {
		return &ConfigError{Kind: InvalidParameter, Joint: -1, Name: name, Expected: expected, Found: found}
	}

	switch {
	case math.IsNaN(p.SlowdownFactor) || math.IsInf(p.SlowdownFactor, 0) || p.SlowdownFactor < 1:
		return invalid("simulated_slowdown_factor", ">= 1", fmt.Sprintf("%g", p.SlowdownFactor))
	case p.StartupDelay < 0:
		return invalid("startup_delay_seconds", ">= 0", p.StartupDelay.String())
	case p.ShutdownDelay < 0:
		return invalid("shutdown_delay_seconds", ">= 0", p.ShutdownDelay.String())
	case p.TickPeriod <= 0:
		return invalid("tick_period", "> 0", p.TickPeriod.String())
	case p.ReceiveTimeout < 0 || p.ReceiveTimeout > p.TickPeriod:
		return invalid("receive_timeout", "0-"+p.TickPeriod.String(), p.ReceiveTimeout.String())
	}
	return nil
}

// Binder opens the transport for an endpoint
type Binder func(transport.Endpoint) (transport.Transport, error)

// Option configures a Bridge
type Option func(*Bridge)

// WithLogger sets the logger (default: a logger for component "bridge")
func WithLogger(l *logging.Logger) Option {
	return func(b *Bridge) { b.logger = l }
}

// WithClock sets the clock used for delays and statistics
func WithClock(c Clock) Option {
	return func(b *Bridge) { b.clock = c }
}

// WithBinder replaces transport.Open
func WithBinder(bind Binder) Option {
	return func(b *Bridge) { b.bind = bind }
}

// Bridge is one controller connection and its joint buffers
type Bridge struct {
	state  State
	params Parameters

	joints  []JointInfo
	slots   []jointSlot
	groups  []int
	buffers *jointBuffers
	plant   *Plant

	transport transport.Transport
	endpoint  transport.Endpoint
	recvBuf   []byte
	sendBuf   []byte

	lastMessageID int32
	lastMode      simplemsg.Mode
	haveFeedback  bool

	stats Statistics

	logger *logging.Logger
	clock  Clock
	bind   Binder
}

// New creates an Unconfigured bridge
func New(opts ...Option) *Bridge {
	b := &Bridge{
		clock: realClock{},
		bind:  transport.Open,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = logging.NewLogger("bridge")
	}
	return b
}

// State returns the lifecycle phase
func (b *Bridge) State() State {
	return b.state
}

// Parameters returns the configured timing parameters
func (b *Bridge) Parameters() Parameters {
	return b.params
}

// Simulated reports whether the bridge drives the simulated plant
func (b *Bridge) Simulated() bool {
	return b.transport == nil
}

// Endpoint returns the bound endpoint (zero when simulated)
func (b *Bridge) Endpoint() transport.Endpoint {
	return b.endpoint
}

func (b *Bridge) transitionError(to State) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.state, to)
}

// Configure validates the joints and parameters, binds the endpoint and
// allocates the joint buffers with every value unknown (NaN).
//
// Joints are checked in order and the first violation is returned as a
// *ConfigError. On any error nothing is allocated and the bridge stays
// Unconfigured. A zero endpoint selects the simulated plant.
func (b *Bridge) Configure(joints []JointInfo, params Parameters, endpoint transport.Endpoint) error {
	if b.state != StateUnconfigured {
		return b.transitionError(StateConfigured)
	}

	if err := params.validate(); err != nil {
		return err
	}

	slots, err := validateJoints(joints)
	if err != nil {
		return err
	}

	var tr transport.Transport
	if !endpoint.IsZero() {
		tr, err = b.bind(endpoint)
		if err != nil {
			return &ConfigError{Kind: TransportBindFailed, Joint: -1, Name: endpoint.String(), Err: err}
		}
	}

	b.params = params
	b.joints = cloneJoints(joints)
	b.slots = slots
	b.groups = usedGroups(slots)
	b.buffers = newJointBuffers(joints)
	b.plant = NewPlant(len(joints), params.SlowdownFactor, params.TickPeriod)
	b.transport = tr
	b.endpoint = endpoint
	b.recvBuf = make([]byte, receiveBufferSize)
	b.sendBuf = make([]byte, simplemsg.MessageSize)
	b.lastMessageID = 0
	b.lastMode = simplemsg.ModeIdle
	b.haveFeedback = false
	b.stats.reset(b.clock.Now())
	b.state = StateConfigured

	fields := map[string]any{
		"joints": len(joints),
		"groups": b.groups,
	}
	if tr != nil {
		fields["transport"] = endpoint.String()
		fields["local_addr"] = tr.LocalAddr()
	} else {
		fields["transport"] = "simulated"
		fields["slowdown"] = params.SlowdownFactor
	}
	b.logger.Info("bridge configured", fields)

	return nil
}

func cloneJoints(joints []JointInfo) []JointInfo {
	out := make([]JointInfo, len(joints))
	for i, j := range joints {
		out[i] = JointInfo{
			Name:              j.Name,
			Group:             j.Group,
			CommandInterfaces: append([]string(nil), j.CommandInterfaces...),
			StateInterfaces:   append([]string(nil), j.StateInterfaces...),
		}
	}
	return out
}

// Start waits the startup delay, zeroes every joint whose position is still
// unknown and moves to Started. Blocks for the delay.
func (b *Bridge) Start() error {
	if b.state != StateConfigured && b.state != StateStopped {
		return b.transitionError(StateStarted)
	}

	b.logger.Info("starting, please wait", map[string]any{
		"delay_seconds": b.params.StartupDelay.Seconds(),
	})
	b.countdown("start", b.params.StartupDelay)

	zeroed := b.buffers.zeroUnknown()
	b.plant.SetTarget(b.buffers.command)
	b.state = StateStarted

	b.logger.Info("bridge started", map[string]any{"zeroed_joints": zeroed})
	return nil
}

// Stop waits the shutdown delay and moves to Stopped. Blocks for the delay.
func (b *Bridge) Stop() error {
	if b.state != StateStarted {
		return b.transitionError(StateStopped)
	}

	b.logger.Info("stopping, please wait", map[string]any{
		"delay_seconds": b.params.ShutdownDelay.Seconds(),
	})
	b.countdown("stop", b.params.ShutdownDelay)

	b.state = StateStopped
	b.logger.Info("bridge stopped", nil)
	return nil
}

// countdown sleeps d in steps of at most one second, logging what is left
func (b *Bridge) countdown(phase string, d time.Duration) {
	for remaining := d; remaining > 0; {
		step := min(remaining, time.Second)
		b.clock.Sleep(step)
		remaining -= step
		b.logger.Info(phase+" countdown", map[string]any{
			"seconds_left": remaining.Seconds(),
		})
	}
}

// Close releases the transport and returns the bridge to Unconfigured.
// Handles exported earlier keep pointing at the released buffers.
func (b *Bridge) Close() error {
	var err error
	if b.transport != nil {
		err = b.transport.Close()
		b.transport = nil
	}
	if b.state != StateUnconfigured {
		b.logger.Info("bridge closed", map[string]any{"from": b.state.String()})
	}
	b.state = StateUnconfigured
	b.buffers = nil
	b.plant = nil
	b.joints = nil
	b.slots = nil
	b.groups = nil
	b.endpoint = transport.Endpoint{}
	return err
}

// ExportStateHandles returns position then velocity handles for every joint
func (b *Bridge) ExportStateHandles() []StateHandle {
	if b.buffers == nil {
		return nil
	}
	handles := make([]StateHandle, 0, 2*len(b.buffers.names))
	for i, name := range b.buffers.names {
		handles = append(handles,
			StateHandle{Joint: name, Interface: InterfacePosition, values: b.buffers.position, index: i},
			StateHandle{Joint: name, Interface: InterfaceVelocity, values: b.buffers.velocity, index: i},
		)
	}
	return handles
}

// ExportCommandHandles returns the velocity command handle of every joint
func (b *Bridge) ExportCommandHandles() []CommandHandle {
	if b.buffers == nil {
		return nil
	}
	handles := make([]CommandHandle, 0, len(b.buffers.names))
	for i, name := range b.buffers.names {
		handles = append(handles,
			CommandHandle{Joint: name, Interface: InterfaceVelocity, values: b.buffers.command, index: i})
	}
	return handles
}

// StateHandle looks up one state handle by joint name and interface
func (b *Bridge) StateHandle(joint, iface string) (StateHandle, bool) {
	for _, h := range b.ExportStateHandles() {
		if h.Joint == joint && h.Interface == iface {
			return h, true
		}
	}
	return StateHandle{}, false
}

// CommandHandle looks up the command handle of a joint
func (b *Bridge) CommandHandle(joint string) (CommandHandle, bool) {
	for _, h := range b.ExportCommandHandles() {
		if h.Joint == joint {
			return h, true
		}
	}
	return CommandHandle{}, false
}

// Snapshot copies the joint buffers
func (b *Bridge) Snapshot() Snapshot {
	if b.buffers == nil {
		return Snapshot{}
	}
	return Snapshot{
		Names:     append([]string(nil), b.buffers.names...),
		Position:  append([]float64(nil), b.buffers.position...),
		Velocity:  append([]float64(nil), b.buffers.velocity...),
		Command:   append([]float64(nil), b.buffers.command...),
		MessageID: b.lastMessageID,
		Mode:      b.lastMode.String(),
	}
}

// Statistics returns a copy of the loop statistics with rates calculated
func (b *Bridge) Statistics() Statistics {
	s := b.stats
	s.CalculateRates(b.clock.Now())
	return s
}
