// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package simplemsg implements the fixed-layout "simple message" real-time motion
// protocol spoken by the robot controller.
//
// Every message is exactly MessageSize bytes: a length prefix, a three-field header
// and a body union sized to its largest variant. All integers are 32-bit signed and
// all joint values are IEEE-754 float32, both little-endian. The layout is written
// field by field and never depends on host struct packing.
package simplemsg

// Capacity limits of the controller
const (
	MaxGroups         = 4  // robots/groups per message
	MaxJointsPerGroup = 10 // axes per group
)

// Wire layout sizes in bytes
const (
	fieldSize = 4

	PrefixSize = fieldSize
	HeaderSize = 3 * fieldSize

	jointStateGroupSize   = fieldSize + 2*MaxJointsPerGroup*fieldSize // groupno + pos + vel
	jointCommandGroupSize = fieldSize + MaxJointsPerGroup*fieldSize   // groupno + command

	JointStateBodySize   = 3*fieldSize + MaxGroups*jointStateGroupSize   // 348
	JointCommandBodySize = 2*fieldSize + MaxGroups*jointCommandGroupSize // 184

	// BodySize is the size of the body union (largest variant)
	BodySize = JointStateBodySize

	// PayloadLength is the value carried in the length prefix (header + body)
	PayloadLength = HeaderSize + BodySize

	// MessageSize is the full size of every message on the wire
	MessageSize = PrefixSize + PayloadLength
)

// Field offsets from the start of a message
const (
	offsetLength    = 0
	offsetMsgType   = 4
	offsetCommType  = 8
	offsetReplyType = 12
	offsetBody      = PrefixSize + HeaderSize
)

// MsgType discriminates the message body
type MsgType int32

// Message type values
const (
	MsgJointStateEx   MsgType = 2030 // controller -> bridge feedback
	MsgJointCommandEx MsgType = 2031 // bridge -> controller command
)

// CommType is the communication pattern of a message
type CommType int32

// Communication type values
const (
	CommInvalid        CommType = 0
	CommTopic          CommType = 1
	CommServiceRequest CommType = 2
	CommServiceReply   CommType = 3
)

// ReplyType is the reply status of a message
type ReplyType int32

// Reply type values
const (
	ReplyInvalid ReplyType = 0
	ReplySuccess ReplyType = 1
	ReplyFailure ReplyType = 2
)

// Mode is the real-time motion mode reported by the controller
type Mode int32

// Motion mode values
const (
	ModeIdle          Mode = 0
	ModeJointPosition Mode = 1
	ModeJointVelocity Mode = 2
)
