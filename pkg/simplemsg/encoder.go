// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package simplemsg

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var le = binary.LittleEndian

// Encode encodes a message to its MessageSize wire representation.
func Encode(m *Message) ([]byte, error) {
	buf := make([]byte, MessageSize)
	if err := EncodeTo(buf, m); err != nil {
		return nil, err
	}
	return buf, nil
}

// EncodeTo encodes a message into dst, which must hold at least MessageSize bytes.
// Unused groups and the unused tail of the body union are zero-filled.
func EncodeTo(dst []byte, m *Message) error {
	if len(dst) < MessageSize {
		return fmt.Errorf("encode buffer too small: %d bytes (need %d)", len(dst), MessageSize)
	}
	if m == nil || m.Body == nil {
		return errors.New("encode: message has no body")
	}
	if m.Body.MsgType() != m.Header.MsgType {
		return fmt.Errorf("encode: %s body does not match header type %s",
			FormatMessageType(m.Body.MsgType()), FormatMessageType(m.Header.MsgType))
	}
	if n := m.Body.groupCount(); n < 0 || n > MaxGroups {
		return fmt.Errorf("encode: number_of_valid_groups=%d out of range (0-%d)", n, MaxGroups)
	}

	dst = dst[:MessageSize]
	clear(dst)

	putInt32(dst, offsetLength, PayloadLength)
	putInt32(dst, offsetMsgType, int32(m.Header.MsgType))
	putInt32(dst, offsetCommType, int32(m.Header.CommType))
	putInt32(dst, offsetReplyType, int32(m.Header.ReplyType))

	body := dst[offsetBody:]
	switch b := m.Body.(type) {
	case JointState:
		encodeJointState(body, &b)
	case *JointState:
		encodeJointState(body, b)
	case JointCommand:
		encodeJointCommand(body, &b)
	case *JointCommand:
		encodeJointCommand(body, b)
	default:
		return fmt.Errorf("encode: unsupported body %T", m.Body)
	}

	return nil
}

func encodeJointState(body []byte, s *JointState) {
	putInt32(body, 0, s.MessageID)
	putInt32(body, 4, int32(s.Mode))
	putInt32(body, 8, s.ValidGroups)

	for g := 0; g < int(s.ValidGroups); g++ {
		off := 3*fieldSize + g*jointStateGroupSize
		grp := &s.Groups[g]
		putInt32(body, off, grp.GroupNo)
		off += fieldSize
		for j := 0; j < MaxJointsPerGroup; j++ {
			putFloat32(body, off+j*fieldSize, grp.Pos[j])
		}
		off += MaxJointsPerGroup * fieldSize
		for j := 0; j < MaxJointsPerGroup; j++ {
			putFloat32(body, off+j*fieldSize, grp.Vel[j])
		}
	}
}

func encodeJointCommand(body []byte, c *JointCommand) {
	putInt32(body, 0, c.MessageID)
	putInt32(body, 4, c.ValidGroups)

	for g := 0; g < int(c.ValidGroups); g++ {
		off := 2*fieldSize + g*jointCommandGroupSize
		grp := &c.Groups[g]
		putInt32(body, off, grp.GroupNo)
		off += fieldSize
		for j := 0; j < MaxJointsPerGroup; j++ {
			putFloat32(body, off+j*fieldSize, grp.Command[j])
		}
	}
}

func putInt32(b []byte, off int, v int32) {
	le.PutUint32(b[off:off+fieldSize], uint32(v))
}

func putFloat32(b []byte, off int, v float32) {
	le.PutUint32(b[off:off+fieldSize], math.Float32bits(v))
}
