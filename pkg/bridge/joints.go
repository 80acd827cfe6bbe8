// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"fmt"
	"slices"

	"github.com/Thermoquad/motobridge/pkg/simplemsg"
)

// Interface kinds
const (
	InterfacePosition = "position"
	InterfaceVelocity = "velocity"
)

// JointInfo declares one joint and its interfaces
type JointInfo struct {
	Name              string
	Group             int // controller group, 0 = first robot
	CommandInterfaces []string
	StateInterfaces   []string
}

// jointSlot locates a joint in the wire message
type jointSlot struct {
	group int
	axis  int
}

// validateJoints checks every joint in declaration order and stops at the
// first violation. On success it returns the wire slot of each joint.
func validateJoints(joints []JointInfo) ([]jointSlot, error) {
	slots := make([]jointSlot, len(joints))
	perGroup := [simplemsg.MaxGroups]int{}
	seen := make(map[string]bool, len(joints))

	for i, j := range joints {
		if len(j.CommandInterfaces) != 1 || j.CommandInterfaces[0] != InterfaceVelocity {
			return nil, &ConfigError{
				Kind:      InterfaceMismatch,
				Joint:     i,
				Name:      j.Name,
				Interface: "command",
				Expected:  fmt.Sprintf("[%s]", InterfaceVelocity),
				Found:     fmt.Sprintf("%v", j.CommandInterfaces),
			}
		}

		if !validStateInterfaces(j.StateInterfaces) {
			return nil, &ConfigError{
				Kind:      InterfaceMismatch,
				Joint:     i,
				Name:      j.Name,
				Interface: "state",
				Expected:  fmt.Sprintf("[%s %s]", InterfacePosition, InterfaceVelocity),
				Found:     fmt.Sprintf("%v", j.StateInterfaces),
			}
		}

		if j.Name == "" || seen[j.Name] {
			return nil, &ConfigError{
				Kind:      InvalidParameter,
				Joint:     i,
				Name:      j.Name,
				Interface: "name",
				Expected:  "unique non-empty name",
				Found:     fmt.Sprintf("%q", j.Name),
			}
		}
		seen[j.Name] = true

		if j.Group < 0 || j.Group >= simplemsg.MaxGroups {
			return nil, &ConfigError{
				Kind:      InvalidParameter,
				Joint:     i,
				Name:      j.Name,
				Interface: "group",
				Expected:  fmt.Sprintf("0-%d", simplemsg.MaxGroups-1),
				Found:     fmt.Sprintf("%d", j.Group),
			}
		}
		if perGroup[j.Group] >= simplemsg.MaxJointsPerGroup {
			return nil, &ConfigError{
				Kind:      InvalidParameter,
				Joint:     i,
				Name:      j.Name,
				Interface: "group",
				Expected:  fmt.Sprintf("at most %d joints in group %d", simplemsg.MaxJointsPerGroup, j.Group),
				Found:     fmt.Sprintf("%d", perGroup[j.Group]+1),
			}
		}

		slots[i] = jointSlot{group: j.Group, axis: perGroup[j.Group]}
		perGroup[j.Group]++
	}

	return slots, nil
}

// validStateInterfaces accepts exactly position and velocity, in any order
func validStateInterfaces(ifaces []string) bool {
	return len(ifaces) == 2 &&
		slices.Contains(ifaces, InterfacePosition) &&
		slices.Contains(ifaces, InterfaceVelocity)
}

// usedGroups returns the distinct groups of the slots in ascending order
func usedGroups(slots []jointSlot) []int {
	var present [simplemsg.MaxGroups]bool
	for _, s := range slots {
		present[s.group] = true
	}
	groups := make([]int, 0, simplemsg.MaxGroups)
	for g, ok := range present {
		if ok {
			groups = append(groups, g)
		}
	}
	return groups
}
