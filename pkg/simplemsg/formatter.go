// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package simplemsg

import (
	"fmt"
	"strings"
)

// FormatMessage formats a message into a human-readable string
func FormatMessage(m *Message) string {
	result := fmt.Sprintf("%s (%d) comm=%s reply=%s len=%d\n",
		FormatMessageType(m.Header.MsgType), m.Header.MsgType,
		m.Header.CommType, m.Header.ReplyType, m.Length())

	if state, ok := m.JointState(); ok {
		result += fmt.Sprintf("  Message ID: %d, Mode: %s, Groups: %d\n",
			state.MessageID, state.Mode, state.ValidGroups)
		for g := 0; g < int(state.ValidGroups); g++ {
			grp := state.Groups[g]
			result += fmt.Sprintf("    Group %d pos: %s\n", grp.GroupNo, formatValues(grp.Pos[:]))
			result += fmt.Sprintf("    Group %d vel: %s\n", grp.GroupNo, formatValues(grp.Vel[:]))
		}
	}

	if cmd, ok := m.JointCommand(); ok {
		result += fmt.Sprintf("  Message ID: %d, Groups: %d\n", cmd.MessageID, cmd.ValidGroups)
		for g := 0; g < int(cmd.ValidGroups); g++ {
			grp := cmd.Groups[g]
			result += fmt.Sprintf("    Group %d cmd: %s\n", grp.GroupNo, formatValues(grp.Command[:]))
		}
	}

	return result
}

// FormatMessageType returns the human-readable name for a message type
func FormatMessageType(t MsgType) string {
	switch t {
	case MsgJointStateEx:
		return "JOINT_STATE_EX"
	case MsgJointCommandEx:
		return "JOINT_COMMAND_EX"
	default:
		return "UNKNOWN"
	}
}

// FormatHex returns a hex dump of raw message bytes, 16 bytes per line
func FormatHex(data []byte) string {
	var sb strings.Builder
	for i, b := range data {
		if i > 0 && i%16 == 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%02X ", b)
	}
	sb.WriteString("\n")
	return sb.String()
}

func formatValues(values []float32) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%8.4f", v)
	}
	return strings.Join(parts, " ")
}

// String returns the mode name
func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "IDLE"
	case ModeJointPosition:
		return "JOINT_POSITION"
	case ModeJointVelocity:
		return "JOINT_VELOCITY"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int32(m))
	}
}

// String returns the communication type name
func (c CommType) String() string {
	switch c {
	case CommInvalid:
		return "INVALID"
	case CommTopic:
		return "TOPIC"
	case CommServiceRequest:
		return "SERVICE_REQUEST"
	case CommServiceReply:
		return "SERVICE_REPLY"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int32(c))
	}
}

// String returns the reply type name
func (r ReplyType) String() string {
	switch r {
	case ReplyInvalid:
		return "INVALID"
	case ReplySuccess:
		return "SUCCESS"
	case ReplyFailure:
		return "FAILURE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int32(r))
	}
}
