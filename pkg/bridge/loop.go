// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"errors"
	"fmt"

	"github.com/Thermoquad/motobridge/pkg/simplemsg"
)

// maxDrain bounds how many queued datagrams one TickRead consumes
const maxDrain = 64

// TickRead receives the controller's most recent feedback and copies it into
// the state buffers. Without a transport it advances the simulated plant
// instead.
//
// Datagrams that queued up behind a slow tick are drained, and only the
// newest valid feedback is applied; older ones count as StaleFeedback.
//
// Every failure leaves the buffers untouched:
//   - ErrNoFeedback when nothing arrived within the receive timeout
//   - ErrProtocolViolation (wrapping the *simplemsg.DecodeError) when every
//     datagram was undecodable or a command message sent our way
func (b *Bridge) TickRead() error {
	if b.state != StateStarted {
		return ErrNotStarted
	}

	if b.transport == nil {
		b.plant.Step(b.buffers.position, b.buffers.velocity)
		b.stats.recordSimulated(b.clock.Now())
		b.logger.Debug("simulated step", map[string]any{"position": b.buffers.position})
		return nil
	}

	timeout := b.params.receiveTimeout()
	n, err := b.transport.Receive(b.recvBuf, timeout)
	if err != nil {
		b.stats.recordMiss(b.clock.Now())
		b.logger.Warn("no feedback", map[string]any{
			"timeout_ms":         timeout.Milliseconds(),
			"consecutive_misses": b.stats.ConsecutiveMisses,
			"error":              err.Error(),
		})
		return fmt.Errorf("%w: %w", ErrNoFeedback, err)
	}

	var (
		newest    *simplemsg.Message
		violation error
	)
	for received := 1; ; received++ {
		msg, err := b.decodeFeedback(b.recvBuf[:n])
		if err != nil {
			violation = err
		} else {
			if newest != nil {
				b.stats.StaleFeedback++
			}
			newest = msg
		}

		if received == maxDrain {
			break
		}
		if n, err = b.transport.Receive(b.recvBuf, 0); err != nil {
			break
		}
	}

	if newest == nil {
		b.stats.recordViolation(b.clock.Now())
		return violation
	}

	anomalies := simplemsg.ValidateMessage(newest)
	for _, a := range anomalies {
		b.logger.Warn("feedback anomaly", map[string]any{"message": a.Message, "details": a.Details})
	}

	state, _ := newest.JointState()
	b.applyFeedback(&state)
	b.stats.recordFeedback(b.clock.Now(), len(anomalies))
	b.logger.Debug("feedback", map[string]any{
		"message_id": state.MessageID,
		"mode":       state.Mode.String(),
	})
	return nil
}

// decodeFeedback decodes one feedback datagram, counting and logging rejects
func (b *Bridge) decodeFeedback(data []byte) (*simplemsg.Message, error) {
	msg, err := simplemsg.Decode(data)
	if err != nil {
		var decodeErr *simplemsg.DecodeError
		if errors.As(err, &decodeErr) {
			b.stats.countDecodeError(decodeErr.Kind)
		}
		b.logger.Warn("datagram discarded", map[string]any{
			"bytes": len(data),
			"error": err.Error(),
		})
		return nil, fmt.Errorf("%w: %w", ErrProtocolViolation, err)
	}

	if _, ok := msg.JointState(); !ok {
		b.stats.countWrongDirection()
		b.logger.Warn("datagram discarded", map[string]any{
			"msg_type": simplemsg.FormatMessageType(msg.Header.MsgType),
		})
		return nil, fmt.Errorf("%w: unexpected %s message from controller",
			ErrProtocolViolation, simplemsg.FormatMessageType(msg.Header.MsgType))
	}
	return msg, nil
}

// applyFeedback copies the groups present in s into the state buffers.
// Joints of groups absent from the message keep their values.
func (b *Bridge) applyFeedback(s *simplemsg.JointState) {
	var present [simplemsg.MaxGroups]*simplemsg.JointStateGroup
	for g := 0; g < int(s.ValidGroups); g++ {
		no := s.Groups[g].GroupNo
		if no >= 0 && no < simplemsg.MaxGroups && present[no] == nil {
			present[no] = &s.Groups[g]
		}
	}

	for i, slot := range b.slots {
		grp := present[slot.group]
		if grp == nil {
			continue
		}
		b.buffers.position[i] = float64(grp.Pos[slot.axis])
		b.buffers.velocity[i] = float64(grp.Vel[slot.axis])
	}

	b.lastMessageID = s.MessageID
	b.lastMode = s.Mode
	b.haveFeedback = true
}

// TickWrite sends the command buffer to the controller, echoing the message
// id of the last feedback. Without a transport the commands become the
// simulated plant's target. A failed send returns ErrSendFailed and may be
// retried on the next tick.
func (b *Bridge) TickWrite() error {
	if b.state != StateStarted {
		return ErrNotStarted
	}

	if b.transport == nil {
		b.plant.SetTarget(b.buffers.command)
		b.stats.recordSend(b.clock.Now(), nil)
		return nil
	}

	msg := simplemsg.NewJointCommandMessage(b.buildCommand())
	if err := simplemsg.EncodeTo(b.sendBuf, msg); err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	if err := b.transport.Send(b.sendBuf); err != nil {
		b.stats.recordSend(b.clock.Now(), err)
		b.logger.Warn("command send failed", map[string]any{"error": err.Error()})
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	b.stats.recordSend(b.clock.Now(), nil)
	return nil
}

// buildCommand lays the command buffer out by group and axis. In position
// mode the controller expects targets, so velocities are integrated over one
// tick from the last reported position.
func (b *Bridge) buildCommand() simplemsg.JointCommand {
	cmd := simplemsg.JointCommand{
		MessageID:   b.lastMessageID,
		ValidGroups: int32(len(b.groups)),
	}

	var index [simplemsg.MaxGroups]int
	for k, g := range b.groups {
		cmd.Groups[k].GroupNo = int32(g)
		index[g] = k
	}

	tick := b.params.TickPeriod.Seconds()
	for i, slot := range b.slots {
		v := b.buffers.command[i]
		if b.lastMode == simplemsg.ModeJointPosition {
			v = b.buffers.position[i] + v*tick
		}
		cmd.Groups[index[slot.group]].Command[slot.axis] = float32(v)
	}

	return cmd
}

// HaveFeedback reports whether any valid feedback has arrived since Configure
func (b *Bridge) HaveFeedback() bool {
	return b.haveFeedback
}
