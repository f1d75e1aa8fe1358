package main

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mlsorensen/purpleeye"
	"github.com/mlsorensen/purpleeye/pkg/motion"
	"github.com/mlsorensen/purpleeye/pkg/robots/mock"
)

func key(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func newTestModel(t *testing.T) (*controlModel, *mock.MockRobot) {
	t.Helper()
	robot := mock.NewMockRobot("MOCK-tui", 72)
	updates, err := robot.Connect()
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	m := newControlModel(robot, motion.New(robot), updates)
	t.Cleanup(func() {
		m.seq.Stop()
		m.cancel()
		_ = robot.Disconnect()
	})
	return m, robot
}

func TestControlModel_Battery(t *testing.T) {
	m, robot := newTestModel(t)

	msg := m.Init()()
	m.Update(msg)
	if view := m.View(); !strings.Contains(view, "72%") {
		t.Errorf("view does not show 72%%:\n%s", view)
	}

	robot.SetBatteryLevel(15)
	_, cmd := m.Update(batteryMsg(purpleeye.BatteryUpdate{Percent: 15}))
	if m.battery == nil || m.battery.Label() != "15%" {
		t.Errorf("battery = %+v, want 15%%", m.battery)
	}
	if cmd == nil {
		t.Error("battery update should keep waiting for the next one")
	}

	_ = robot.Disconnect()
	m.Update(batteryClosedMsg{})
	if m.status != "disconnected" {
		t.Errorf("status = %q, want disconnected", m.status)
	}
}

func TestControlModel_Keys(t *testing.T) {
	m, robot := newTestModel(t)

	m.Update(key('d'))
	if m.seq.State() != motion.Dancing {
		t.Errorf("after d: state = %s, want dancing", m.seq.State())
	}
	m.Update(key('h'))
	if m.seq.State() != motion.Shimmying {
		t.Errorf("after h: state = %s, want shimmying", m.seq.State())
	}

	_, cmd := m.Update(key('r'))
	if cmd == nil {
		t.Fatal("rest should return a command")
	}
	m.Update(cmd())
	if m.seq.State() != motion.Idle {
		t.Errorf("after r: state = %s, want idle", m.seq.State())
	}
	if last, _ := robot.LastWrite(); last != motion.Rest {
		t.Errorf("last write = %v, want rest", last)
	}
	if m.status != "rest successful" {
		t.Errorf("status = %q", m.status)
	}

	_, cmd = m.Update(key('s'))
	m.Update(cmd())
	if last, _ := robot.LastWrite(); last != motion.Stand {
		t.Errorf("last write = %v, want stand", last)
	}

	_, cmd = m.Update(key('q'))
	if cmd == nil || !m.quitting {
		t.Error("q should quit")
	}
}
