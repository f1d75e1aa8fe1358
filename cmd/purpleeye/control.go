package main

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mlsorensen/purpleeye"
	"github.com/mlsorensen/purpleeye/pkg/battery"
	"github.com/mlsorensen/purpleeye/pkg/motion"
)

type ControlCommand struct{}

func (c *ControlCommand) Execute(args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	m := newControlModel(s.robot, s.sequencer(), s.updates)
	defer m.cancel()

	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("135"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	keyStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Messages delivered to the model.
type batteryMsg purpleeye.BatteryUpdate
type batteryClosedMsg struct{}
type actionMsg struct {
	name string
	err  error
}

func waitForBattery(updates <-chan purpleeye.BatteryUpdate) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-updates
		if !ok {
			return batteryClosedMsg{}
		}
		return batteryMsg(update)
	}
}

type controlModel struct {
	robot   purpleeye.Robot
	seq     *motion.Sequencer
	updates <-chan purpleeye.BatteryUpdate

	ctx    context.Context
	cancel context.CancelFunc

	battery  *battery.Reading
	status   string
	err      error
	quitting bool
}

func newControlModel(robot purpleeye.Robot, seq *motion.Sequencer, updates <-chan purpleeye.BatteryUpdate) *controlModel {
	ctx, cancel := context.WithCancel(context.Background())
	return &controlModel{
		robot:   robot,
		seq:     seq,
		updates: updates,
		ctx:     ctx,
		cancel:  cancel,
		status:  "ready",
	}
}

func (m *controlModel) Init() tea.Cmd {
	return waitForBattery(m.updates)
}

// posture runs a single posture write off the UI goroutine.
func (m *controlModel) posture(name string, apply func(*motion.Sequencer, context.Context) error) tea.Cmd {
	m.status = name + "..."
	return func() tea.Msg {
		return actionMsg{name: name, err: apply(m.seq, m.ctx)}
	}
}

func (m *controlModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			m.seq.Stop()
			m.cancel()
			return m, tea.Quit
		case "s":
			return m, m.posture("stand", (*motion.Sequencer).Stand)
		case "p":
			return m, m.posture("spread", (*motion.Sequencer).Spread)
		case "r":
			return m, m.posture("rest", (*motion.Sequencer).Rest)
		case "h":
			m.seq.Shimmy(m.ctx)
			m.status, m.err = "shimmy started", nil
		case "d":
			m.seq.Dance(m.ctx)
			m.status, m.err = "dance started", nil
		case "x":
			m.seq.Stop()
			m.status, m.err = "stopped", nil
		}
		return m, nil

	case batteryMsg:
		if msg.Error != nil {
			m.err = msg.Error
		} else {
			r := battery.NewReading(msg.Percent)
			m.battery = &r
		}
		return m, waitForBattery(m.updates)

	case batteryClosedMsg:
		m.status = "disconnected"
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.status, m.err = msg.name+" failed", msg.err
		} else {
			m.status, m.err = msg.name+" successful", nil
		}
		return m, nil
	}
	return m, nil
}

func (m *controlModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.robot.DisplayName() + " · " + m.robot.DeviceName()))
	b.WriteString("\n\n")

	batteryLine := statusStyle.Render("battery: unknown")
	if m.battery != nil {
		batteryLine = "battery: " + renderReading(*m.battery)
	}
	lines := []string{
		batteryLine,
		"motion:  " + m.seq.State().String(),
		"status:  " + m.status,
	}
	if m.err != nil {
		lines = append(lines, errorStyle.Render("error:   "+m.err.Error()))
	}
	b.WriteString(boxStyle.Render(strings.Join(lines, "\n")))
	b.WriteString("\n\n")

	keys := [][2]string{
		{"s", "stand"}, {"p", "spread"}, {"r", "rest"},
		{"h", "shimmy"}, {"d", "dance"}, {"x", "stop"}, {"q", "quit"},
	}
	help := make([]string, 0, len(keys))
	for _, k := range keys {
		help = append(help, fmt.Sprintf("%s %s", keyStyle.Render(k[0]), k[1]))
	}
	b.WriteString(statusStyle.Render(strings.Join(help, "  ")))
	b.WriteString("\n")
	return b.String()
}
