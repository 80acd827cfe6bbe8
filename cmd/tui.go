// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/motobridge/pkg/bridge"
)

// Event log entry
type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for notices
}

// Monitor model
type monitorModel struct {
	linkInfo    string
	joints      table.Model
	last        *tickReport
	events      []eventLogEntry
	maxEvents   int
	lastProblem string
	width       int
	height      int
	quitting    bool
	done        bool
}

// Messages
type tickReportMsg tickReport
type loopDoneMsg struct {
	err error
}

const monitorRefresh = 50 * time.Millisecond

func newMonitorModel(linkInfo string, names []string) monitorModel {
	columns := []table.Column{
		{Title: "Joint", Width: 14},
		{Title: "Position", Width: 12},
		{Title: "Velocity", Width: 12},
		{Title: "Command", Width: 12},
	}

	rows := make([]table.Row, len(names))
	for i, name := range names {
		rows[i] = table.Row{name, "-", "-", "-"}
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(len(names)+1),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = lipgloss.NewStyle()
	t.SetStyles(styles)

	return monitorModel{
		linkInfo:  linkInfo,
		joints:    t,
		maxEvents: 100,
		width:     80,
		height:    24,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return nil
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickReportMsg:
		rep := tickReport(msg)
		m.last = &rep
		m.joints.SetRows(jointRows(rep.snapshot))
		m.noteProblem(rep)

	case loopDoneMsg:
		m.done = true
		if msg.err != nil {
			m.addEvent(fmt.Sprintf("Control loop stopped: %v", msg.err), true)
		} else {
			m.addEvent("Control loop finished", false)
		}
		return m, tea.Quit
	}

	return m, nil
}

// noteProblem logs tick errors once per change so a dead link does not
// flood the event log
func (m *monitorModel) noteProblem(rep tickReport) {
	problem := ""
	switch {
	case rep.readErr != nil:
		problem = rep.readErr.Error()
	case rep.writeErr != nil:
		problem = rep.writeErr.Error()
	}
	if problem == m.lastProblem {
		return
	}
	if problem == "" {
		m.addEvent(fmt.Sprintf("Feedback resumed at tick %d", rep.seq), false)
	} else {
		m.addEvent(fmt.Sprintf("tick %d: %s", rep.seq, problem), true)
	}
	m.lastProblem = problem
}

func (m *monitorModel) addEvent(message string, isError bool) {
	m.events = append(m.events, eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})
	if len(m.events) > m.maxEvents {
		m.events = m.events[len(m.events)-m.maxEvents:]
	}
}

func jointRows(snap bridge.Snapshot) []table.Row {
	rows := make([]table.Row, len(snap.Names))
	for i, name := range snap.Names {
		rows[i] = table.Row{
			name,
			formatJointValue(snap.Position[i]),
			formatJointValue(snap.Velocity[i]),
			formatJointValue(snap.Command[i]),
		}
	}
	return rows
}

func formatJointValue(v float64) string {
	if math.IsNaN(v) {
		return "unknown"
	}
	return fmt.Sprintf("%+.4f", v)
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	noticeStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render("MOTOBRIDGE - JOINT MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("Connection: %s | Press 'q' to quit", m.linkInfo)))
	s.WriteString("\n\n")

	if m.last == nil {
		s.WriteString(noticeStyle.Render("⏳ Waiting for first tick..."))
		s.WriteString("\n\n")
	} else {
		if m.last.waiting {
			s.WriteString(noticeStyle.Render("⏳ Waiting for controller feedback..."))
			s.WriteString("\n\n")
		}
		st := m.last.stats
		stats := strings.Builder{}
		stats.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
			labelStyle.Render("Tick:"), valueStyle.Render(fmt.Sprintf("%d", m.last.seq)),
			labelStyle.Render("Message ID:"), valueStyle.Render(fmt.Sprintf("%d", m.last.snapshot.MessageID)),
			labelStyle.Render("Mode:"), valueStyle.Render(m.last.snapshot.Mode),
		))
		stats.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
			labelStyle.Render("Feedback:"), valueStyle.Render(fmt.Sprintf("%d", st.FeedbackReceived)),
			labelStyle.Render("No Feedback:"), countStyle(st.NoFeedback, valueStyle, noticeStyle).Render(fmt.Sprintf("%d", st.NoFeedback)),
			labelStyle.Render("Violations:"), countStyle(st.ProtocolViolations(), valueStyle, errorStyle).Render(fmt.Sprintf("%d", st.ProtocolViolations())),
		))
		stats.WriteString(fmt.Sprintf("%s %s   %s %s",
			labelStyle.Render("Feedback Rate:"), valueStyle.Render(fmt.Sprintf("%.1f msg/s", st.FeedbackRate)),
			labelStyle.Render("Error Rate:"), func() string {
				if st.ErrorRate > 0 {
					return errorStyle.Render(fmt.Sprintf("%.1f err/s", st.ErrorRate))
				}
				return valueStyle.Render(fmt.Sprintf("%.1f err/s", st.ErrorRate))
			}(),
		))
		s.WriteString(boxStyle.Render(stats.String()))
		s.WriteString("\n\n")
	}

	s.WriteString(boxStyle.Render(m.joints.View()))
	s.WriteString("\n\n")

	// Event log
	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - 16 - len(m.joints.Rows())
	if logHeight < 3 {
		logHeight = 3
	}
	startIdx := len(m.events) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	logContent := strings.Builder{}
	if len(m.events) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for _, entry := range m.events[startIdx:] {
			timestamp := entry.timestamp.Format("15:04:05.000")
			style, marker := noticeStyle, "ℹ "
			if entry.isError {
				style, marker = errorStyle, "✗ "
			}
			logContent.WriteString(fmt.Sprintf("%s %s\n", headerStyle.Render(timestamp), style.Render(marker+entry.message)))
		}
	}
	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}

func countStyle(n uint64, ok, bad lipgloss.Style) lipgloss.Style {
	if n > 0 {
		return bad
	}
	return ok
}

// runWithMonitor runs the control loop on its own goroutine and feeds
// throttled tick reports to the monitor
func runWithMonitor(ctx context.Context, r *runner, linkInfo string) (uint64, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newMonitorModel(linkInfo, r.bridge.Snapshot().Names), tea.WithAltScreen())

	var lastSent time.Time
	r.report = func(rep tickReport) {
		if time.Since(lastSent) < monitorRefresh {
			return
		}
		lastSent = time.Now()
		p.Send(tickReportMsg(rep))
	}

	type result struct {
		ticks uint64
		err   error
	}
	done := make(chan result, 1)
	go func() {
		ticks, err := r.run(ctx)
		done <- result{ticks, err}
		p.Send(loopDoneMsg{err: err})
	}()

	_, tuiErr := p.Run()
	cancel()
	res := <-done
	if tuiErr != nil && res.err == nil {
		return res.ticks, fmt.Errorf("monitor failed: %w", tuiErr)
	}
	return res.ticks, res.err
}
