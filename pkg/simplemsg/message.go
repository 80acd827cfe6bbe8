// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package simplemsg

// Header is the common message header
type Header struct {
	MsgType   MsgType
	CommType  CommType
	ReplyType ReplyType
}

// Body is one of the message body variants: JointState or JointCommand.
// The variant carries its own message type so a body can never be paired with
// the wrong header by accident.
type Body interface {
	MsgType() MsgType
	groupCount() int32
}

// JointStateGroup holds the feedback of one robot/group
type JointStateGroup struct {
	GroupNo int32                      // 0 = first robot
	Pos     [MaxJointsPerGroup]float32 // radians, base to tool
	Vel     [MaxJointsPerGroup]float32 // radians/sec
}

// JointState is the feedback body sent by the controller every cycle
type JointState struct {
	MessageID   int32 // must be echoed back in the next command
	Mode        Mode
	ValidGroups int32
	Groups      [MaxGroups]JointStateGroup
}

// MsgType implements Body
func (JointState) MsgType() MsgType { return MsgJointStateEx }

func (s JointState) groupCount() int32 { return s.ValidGroups }

// JointCommandGroup holds the command of one robot/group.
// Values are positions or velocities depending on the active Mode.
type JointCommandGroup struct {
	GroupNo int32
	Command [MaxJointsPerGroup]float32
}

// JointCommand is the command body sent to the controller every cycle
type JointCommand struct {
	MessageID   int32 // echo of the last JointState.MessageID
	ValidGroups int32
	Groups      [MaxGroups]JointCommandGroup
}

// MsgType implements Body
func (JointCommand) MsgType() MsgType { return MsgJointCommandEx }

func (c JointCommand) groupCount() int32 { return c.ValidGroups }

// Message is a complete simple message. The length prefix is not stored:
// every message has the same length on the wire (see Length).
type Message struct {
	Header Header
	Body   Body
}

// NewJointStateMessage wraps a feedback body in a topic message
func NewJointStateMessage(state JointState) *Message {
	return &Message{
		Header: Header{
			MsgType:   MsgJointStateEx,
			CommType:  CommTopic,
			ReplyType: ReplyInvalid,
		},
		Body: state,
	}
}

// NewJointCommandMessage wraps a command body in a topic message
func NewJointCommandMessage(cmd JointCommand) *Message {
	return &Message{
		Header: Header{
			MsgType:   MsgJointCommandEx,
			CommType:  CommTopic,
			ReplyType: ReplyInvalid,
		},
		Body: cmd,
	}
}

// Length returns the value of the length prefix written for this message
func (m *Message) Length() int32 {
	return PayloadLength
}

// JointState returns the feedback body if the message carries one
func (m *Message) JointState() (JointState, bool) {
	switch b := m.Body.(type) {
	case JointState:
		return b, true
	case *JointState:
		if b != nil {
			return *b, true
		}
	}
	return JointState{}, false
}

// JointCommand returns the command body if the message carries one
func (m *Message) JointCommand() (JointCommand, bool) {
	switch b := m.Body.(type) {
	case JointCommand:
		return b, true
	case *JointCommand:
		if b != nil {
			return *b, true
		}
	}
	return JointCommand{}, false
}
