// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/motobridge/pkg/bridge"
	"github.com/Thermoquad/motobridge/pkg/simplemsg"
	"github.com/Thermoquad/motobridge/pkg/transport"
)

var (
	emulateTarget string
	emulateListen string
	emulateMode   string
	emulateTicks  uint64
)

var emulateCmd = &cobra.Command{
	Use:   "emulate",
	Short: "Emulate a robot controller over UDP",
	Long: `Act as the robot controller for bench testing a bridge.

Every tick period the emulator sends joint state feedback to --target and
consumes the command datagrams that come back. Velocity commands are
integrated into the joint positions; in position mode the command values are
adopted as the new positions. Every command must echo the message id of the
latest feedback, mismatches are counted.

The joint layout and tick period come from --config (or the defaults).`,
	RunE: runEmulate,
}

func init() {
	rootCmd.AddCommand(emulateCmd)
	emulateCmd.Flags().StringVar(&emulateTarget, "target", "127.0.0.1:50244", "Bridge address to send feedback to")
	emulateCmd.Flags().StringVar(&emulateListen, "listen", "0.0.0.0:50243", "Local address for commands")
	emulateCmd.Flags().StringVar(&emulateMode, "mode", "velocity", "Reported motion mode (idle, position, velocity)")
	emulateCmd.Flags().Uint64Var(&emulateTicks, "ticks", 0, "Stop after this many ticks (0 runs until interrupted)")
}

// emulatedAxis locates a joint in the feedback groups
type emulatedAxis struct {
	group int
	axis  int
}

// emulator is a minimal robot controller model
type emulator struct {
	mode     simplemsg.Mode
	tick     time.Duration
	axes     []emulatedAxis
	groups   []int
	position []float64
	velocity []float64

	messageID  int32
	commands   uint64
	mismatches uint64
	missing    uint64 // joints whose group was absent from a command
}

func parseMode(name string) (simplemsg.Mode, error) {
	switch strings.ToLower(name) {
	case "idle":
		return simplemsg.ModeIdle, nil
	case "position":
		return simplemsg.ModeJointPosition, nil
	case "velocity":
		return simplemsg.ModeJointVelocity, nil
	default:
		return 0, fmt.Errorf("unknown mode %q (use idle, position or velocity)", name)
	}
}

func newEmulator(joints []bridge.JointInfo, mode simplemsg.Mode, tick time.Duration) (*emulator, error) {
	if tick <= 0 {
		return nil, fmt.Errorf("tick period must be positive, got %v", tick)
	}

	e := &emulator{
		mode:     mode,
		tick:     tick,
		axes:     make([]emulatedAxis, len(joints)),
		position: make([]float64, len(joints)),
		velocity: make([]float64, len(joints)),
	}

	perGroup := map[int]int{}
	for i, j := range joints {
		if j.Group < 0 || j.Group >= simplemsg.MaxGroups {
			return nil, fmt.Errorf("joint %d (%s): group %d out of range", i, j.Name, j.Group)
		}
		axis := perGroup[j.Group]
		if axis >= simplemsg.MaxJointsPerGroup {
			return nil, fmt.Errorf("group %d has more than %d joints", j.Group, simplemsg.MaxJointsPerGroup)
		}
		perGroup[j.Group] = axis + 1
		e.axes[i] = emulatedAxis{group: j.Group, axis: axis}
	}
	for g := range perGroup {
		e.groups = append(e.groups, g)
	}
	sort.Ints(e.groups)

	return e, nil
}

// feedback builds the next joint state message with a fresh message id
func (e *emulator) feedback() *simplemsg.Message {
	e.messageID++
	state := simplemsg.JointState{
		MessageID:   e.messageID,
		Mode:        e.mode,
		ValidGroups: int32(len(e.groups)),
	}
	for k, g := range e.groups {
		state.Groups[k].GroupNo = int32(g)
	}
	for i, a := range e.axes {
		k := sort.SearchInts(e.groups, a.group)
		state.Groups[k].Pos[a.axis] = float32(e.position[i])
		state.Groups[k].Vel[a.axis] = float32(e.velocity[i])
	}
	return simplemsg.NewJointStateMessage(state)
}

// apply moves the joints by one command. A command that does not echo the
// latest message id is still applied but counted.
func (e *emulator) apply(c simplemsg.JointCommand) {
	e.commands++
	if c.MessageID != e.messageID {
		e.mismatches++
	}

	present := map[int32]int{}
	for k := 0; k < int(c.ValidGroups) && k < simplemsg.MaxGroups; k++ {
		present[c.Groups[k].GroupNo] = k
	}

	for i, a := range e.axes {
		k, ok := present[int32(a.group)]
		if !ok {
			e.missing++
			continue
		}
		value := float64(c.Groups[k].Command[a.axis])

		switch e.mode {
		case simplemsg.ModeJointVelocity:
			e.velocity[i] = value
			e.position[i] += value * e.tick.Seconds()
		case simplemsg.ModeJointPosition:
			e.velocity[i] = (value - e.position[i]) / e.tick.Seconds()
			e.position[i] = value
		default:
			e.velocity[i] = 0
		}
	}
}

func runEmulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	mode, err := parseMode(emulateMode)
	if err != nil {
		return err
	}
	em, err := newEmulator(cfg.BridgeJoints(), mode, cfg.TickPeriod.Duration)
	if err != nil {
		return err
	}

	conn, err := transport.ListenUDP(emulateListen, emulateTarget)
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Motobridge - Controller Emulator\n")
	fmt.Printf("Listening: %s  Target: %s\n", conn.LocalAddr(), emulateTarget)
	fmt.Printf("Joints: %d  Groups: %v  Mode: %s  Tick: %v\n", len(em.axes), em.groups, mode, em.tick)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(em.tick)
	defer ticker.Stop()
	statsTicker := time.NewTicker(time.Second)
	defer statsTicker.Stop()

	buf := make([]byte, 2*simplemsg.MessageSize)
	out := make([]byte, simplemsg.MessageSize)
	var ticks, sendErrors, decodeErrors, silentTicks uint64

	for emulateTicks == 0 || ticks < emulateTicks {
		select {
		case <-ctx.Done():
			printEmulatorSummary(em, ticks, sendErrors, decodeErrors, silentTicks)
			return nil
		case <-statsTicker.C:
			fmt.Printf("[%s] ticks %d  commands %d  id mismatches %d  positions %s\n",
				time.Now().Format("15:04:05.000"), ticks, em.commands, em.mismatches, formatPositions(em.position))
			continue
		case <-ticker.C:
		}
		ticks++

		// Consume every command that arrived since the last feedback
		got := false
		for {
			n, err := conn.Receive(buf, 0)
			if err != nil {
				if !errors.Is(err, transport.ErrTimeout) {
					return fmt.Errorf("receive failed: %w", err)
				}
				break
			}
			msg, err := simplemsg.Decode(buf[:n])
			if err != nil {
				decodeErrors++
				fmt.Printf("[ERROR] %v\n", err)
				continue
			}
			c, ok := msg.JointCommand()
			if !ok {
				decodeErrors++
				fmt.Printf("[ERROR] unexpected %s message\n", simplemsg.FormatMessageType(msg.Header.MsgType))
				continue
			}
			em.apply(c)
			got = true
		}
		if !got && ticks > 1 {
			silentTicks++
		}

		if err := simplemsg.EncodeTo(out, em.feedback()); err != nil {
			return err
		}
		if err := conn.Send(out); err != nil {
			sendErrors++
		}
	}

	printEmulatorSummary(em, ticks, sendErrors, decodeErrors, silentTicks)
	return nil
}

func formatPositions(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%+.3f", v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func printEmulatorSummary(em *emulator, ticks, sendErrors, decodeErrors, silentTicks uint64) {
	fmt.Printf("\n=== Emulator Summary ===\n")
	fmt.Printf("Ticks:           %8d\n", ticks)
	fmt.Printf("Commands:        %8d\n", em.commands)
	fmt.Printf("Silent Ticks:    %8d\n", silentTicks)
	fmt.Printf("ID Mismatches:   %8d\n", em.mismatches)
	fmt.Printf("Decode Errors:   %8d\n", decodeErrors)
	fmt.Printf("Send Errors:     %8d\n", sendErrors)
	fmt.Printf("Final Positions: %s\n", formatPositions(em.position))
}
