// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package simplemsg

import (
	"fmt"
	"math"
)

// AnomalyType represents different types of message anomalies
type AnomalyType int

const (
	AnomalyNonFiniteValue AnomalyType = iota
	AnomalyUnknownMode
	AnomalyUnknownCommType
	AnomalyUnknownReplyType
	AnomalyDuplicateGroup
	AnomalyGroupOutOfRange
)

// ValidationError represents a semantic problem in a message that decoded cleanly
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateMessage checks a decoded message for anomalies.
// Returns a slice of validation errors (empty if the message is sane).
func ValidateMessage(m *Message) []ValidationError {
	errors := []ValidationError{}

	switch m.Header.CommType {
	case CommInvalid, CommTopic, CommServiceRequest, CommServiceReply:
	default:
		errors = append(errors, ValidationError{
			Type:    AnomalyUnknownCommType,
			Message: fmt.Sprintf("Unknown communication type %d", m.Header.CommType),
			Details: map[string]interface{}{"comm_type": int32(m.Header.CommType)},
		})
	}

	switch m.Header.ReplyType {
	case ReplyInvalid, ReplySuccess, ReplyFailure:
	default:
		errors = append(errors, ValidationError{
			Type:    AnomalyUnknownReplyType,
			Message: fmt.Sprintf("Unknown reply type %d", m.Header.ReplyType),
			Details: map[string]interface{}{"reply_type": int32(m.Header.ReplyType)},
		})
	}

	if state, ok := m.JointState(); ok {
		errors = append(errors, validateJointState(&state)...)
	}
	if cmd, ok := m.JointCommand(); ok {
		errors = append(errors, validateJointCommand(&cmd)...)
	}

	return errors
}

func validateJointState(s *JointState) []ValidationError {
	errors := []ValidationError{}

	switch s.Mode {
	case ModeIdle, ModeJointPosition, ModeJointVelocity:
	default:
		errors = append(errors, ValidationError{
			Type:    AnomalyUnknownMode,
			Message: fmt.Sprintf("Unknown motion mode %d", s.Mode),
			Details: map[string]interface{}{"mode": int32(s.Mode)},
		})
	}

	groupNos := make([]int32, 0, MaxGroups)
	for g := 0; g < int(s.ValidGroups); g++ {
		grp := &s.Groups[g]
		groupNos = append(groupNos, grp.GroupNo)
		errors = append(errors, checkFinite(grp.GroupNo, "pos", grp.Pos[:])...)
		errors = append(errors, checkFinite(grp.GroupNo, "vel", grp.Vel[:])...)
	}

	return append(errors, checkGroupNumbers(groupNos)...)
}

func validateJointCommand(c *JointCommand) []ValidationError {
	errors := []ValidationError{}

	groupNos := make([]int32, 0, MaxGroups)
	for g := 0; g < int(c.ValidGroups); g++ {
		grp := &c.Groups[g]
		groupNos = append(groupNos, grp.GroupNo)
		errors = append(errors, checkFinite(grp.GroupNo, "command", grp.Command[:])...)
	}

	return append(errors, checkGroupNumbers(groupNos)...)
}

func checkFinite(groupNo int32, field string, values []float32) []ValidationError {
	errors := []ValidationError{}
	for j, v := range values {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			errors = append(errors, ValidationError{
				Type:    AnomalyNonFiniteValue,
				Message: fmt.Sprintf("Group %d %s[%d] is not finite (%v)", groupNo, field, j, v),
				Details: map[string]interface{}{"group": groupNo, "field": field, "joint": j},
			})
		}
	}
	return errors
}

func checkGroupNumbers(groupNos []int32) []ValidationError {
	errors := []ValidationError{}
	seen := make(map[int32]bool, len(groupNos))
	for _, no := range groupNos {
		if no < 0 || no >= MaxGroups {
			errors = append(errors, ValidationError{
				Type:    AnomalyGroupOutOfRange,
				Message: fmt.Sprintf("Group number %d out of range (0-%d)", no, MaxGroups-1),
				Details: map[string]interface{}{"group": no},
			})
		}
		if seen[no] {
			errors = append(errors, ValidationError{
				Type:    AnomalyDuplicateGroup,
				Message: fmt.Sprintf("Group number %d appears more than once", no),
				Details: map[string]interface{}{"group": no},
			})
		}
		seen[no] = true
	}
	return errors
}
