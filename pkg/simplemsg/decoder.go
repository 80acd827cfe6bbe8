// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package simplemsg

import (
	"fmt"
	"math"
)

// Decode decodes one message from data.
//
// Checks run in order: size, message type, length prefix, group count. Only the
// first MessageSize bytes are read; trailing bytes are ignored. Groups beyond
// number_of_valid_groups are never read and decode as zero values.
//
// Errors are always *DecodeError.
func Decode(data []byte) (*Message, error) {
	if len(data) < MessageSize {
		return nil, &DecodeError{
			Kind: DecodeTruncated,
			Msg:  fmt.Sprintf("message truncated: %d bytes (need %d)", len(data), MessageSize),
		}
	}

	header := Header{
		MsgType:   MsgType(getInt32(data, offsetMsgType)),
		CommType:  CommType(getInt32(data, offsetCommType)),
		ReplyType: ReplyType(getInt32(data, offsetReplyType)),
	}

	switch header.MsgType {
	case MsgJointStateEx, MsgJointCommandEx:
	default:
		return nil, &DecodeError{
			Kind: DecodeUnknownMessageType,
			Msg:  fmt.Sprintf("unknown message type %d", header.MsgType),
		}
	}

	if length := getInt32(data, offsetLength); length != PayloadLength {
		return nil, &DecodeError{
			Kind: DecodeLengthMismatch,
			Msg:  fmt.Sprintf("length prefix mismatch: %d (expected %d)", length, PayloadLength),
		}
	}

	body := data[offsetBody:MessageSize]
	msg := &Message{Header: header}

	switch header.MsgType {
	case MsgJointStateEx:
		state, err := decodeJointState(body)
		if err != nil {
			return nil, err
		}
		msg.Body = state
	case MsgJointCommandEx:
		cmd, err := decodeJointCommand(body)
		if err != nil {
			return nil, err
		}
		msg.Body = cmd
	}

	return msg, nil
}

func decodeJointState(body []byte) (JointState, error) {
	var s JointState
	s.MessageID = getInt32(body, 0)
	s.Mode = Mode(getInt32(body, 4))
	s.ValidGroups = getInt32(body, 8)

	if err := checkGroupCount(s.ValidGroups); err != nil {
		return JointState{}, err
	}

	for g := 0; g < int(s.ValidGroups); g++ {
		off := 3*fieldSize + g*jointStateGroupSize
		grp := &s.Groups[g]
		grp.GroupNo = getInt32(body, off)
		off += fieldSize
		for j := 0; j < MaxJointsPerGroup; j++ {
			grp.Pos[j] = getFloat32(body, off+j*fieldSize)
		}
		off += MaxJointsPerGroup * fieldSize
		for j := 0; j < MaxJointsPerGroup; j++ {
			grp.Vel[j] = getFloat32(body, off+j*fieldSize)
		}
	}

	return s, nil
}

func decodeJointCommand(body []byte) (JointCommand, error) {
	var c JointCommand
	c.MessageID = getInt32(body, 0)
	c.ValidGroups = getInt32(body, 4)

	if err := checkGroupCount(c.ValidGroups); err != nil {
		return JointCommand{}, err
	}

	for g := 0; g < int(c.ValidGroups); g++ {
		off := 2*fieldSize + g*jointCommandGroupSize
		grp := &c.Groups[g]
		grp.GroupNo = getInt32(body, off)
		off += fieldSize
		for j := 0; j < MaxJointsPerGroup; j++ {
			grp.Command[j] = getFloat32(body, off+j*fieldSize)
		}
	}

	return c, nil
}

func checkGroupCount(n int32) error {
	if n < 0 || n > MaxGroups {
		return &DecodeError{
			Kind: DecodeGroupCountOutOfRange,
			Msg:  fmt.Sprintf("number_of_valid_groups=%d out of range (0-%d)", n, MaxGroups),
		}
	}
	return nil
}

func getInt32(b []byte, off int) int32 {
	return int32(le.Uint32(b[off : off+fieldSize]))
}

func getFloat32(b []byte, off int) float32 {
	return math.Float32frombits(le.Uint32(b[off : off+fieldSize]))
}
