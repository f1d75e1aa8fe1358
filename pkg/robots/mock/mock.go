// Package mock provides a mock implementation of the purpleeye.Robot interface.
// It is intended for development and testing purposes when a physical robot is not available.
package mock

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mlsorensen/purpleeye"
)

// This init function registers the MockRobot with the central registry.
// To use it, you must explicitly import this package.
func init() {
	// Register with a distinct name, "MOCK", so it can be requested specifically.
	purpleeye.Register("MOCK", New)
}

// This line is the compile-time check. It will fail to compile if
// *MockRobot ever stops satisfying the purpleeye.Robot interface.
var _ purpleeye.Robot = (*MockRobot)(nil)

// maxHistory bounds the recorded write history.
const maxHistory = 256

// MockRobot is a simulated robot for development.
type MockRobot struct {
	name string

	mu           sync.Mutex
	connected    bool
	batteryLevel uint8
	updates      chan purpleeye.BatteryUpdate
	disconnect   context.CancelFunc

	writes     []purpleeye.ServoCommand
	writeCount int
	writeErr   error

	// WriteLatency simulates the round trip of a servo write.
	WriteLatency time.Duration
	// DrainInterval lowers the battery by one percent per interval while
	// connected. Zero disables draining.
	DrainInterval time.Duration
}

// New creates a new, unconnected MockRobot with a nearly full battery.
func New(device *purpleeye.FoundDevice) purpleeye.Robot {
	r := NewMockRobot(device.Name, 98)
	r.WriteLatency = 20 * time.Millisecond
	r.DrainInterval = 30 * time.Second
	return r
}

// NewMockRobot creates a mock with the given battery level, no write latency and
// no battery drain.
func NewMockRobot(name string, battery uint8) *MockRobot {
	return &MockRobot{
		name:         name,
		batteryLevel: battery,
	}
}

// Connect starts the simulation. The current battery level is the first update.
func (m *MockRobot) Connect() (<-chan purpleeye.BatteryUpdate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return nil, fmt.Errorf("mock robot is already connected")
	}

	log.Println("MOCK: Connecting...")
	ctx, cancel := context.WithCancel(context.Background())
	m.disconnect = cancel
	m.connected = true
	m.updates = make(chan purpleeye.BatteryUpdate, 20)
	m.updates <- purpleeye.BatteryUpdate{Percent: m.batteryLevel}

	if m.DrainInterval > 0 {
		go m.simulate(ctx, m.DrainInterval)
	}

	log.Println("MOCK: Connected successfully.")
	return m.updates, nil
}

// simulate drains the battery until the robot disconnects.
func (m *MockRobot) simulate(ctx context.Context, interval time.Duration) {
	defer log.Println("MOCK: Simulation stopped.")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			level := m.batteryLevel
			if level > 0 {
				level--
			}
			m.mu.Unlock()
			m.SetBatteryLevel(level)
		case <-ctx.Done():
			return
		}
	}
}

// Disconnect stops the simulation and closes the update channel.
func (m *MockRobot) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil // Nothing to do
	}

	log.Println("MOCK: Disconnecting...")
	m.disconnect()
	close(m.updates)
	m.connected = false
	log.Println("MOCK: Disconnected.")
	return nil
}

func (m *MockRobot) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockRobot) DeviceName() string {
	return m.name
}

func (m *MockRobot) DisplayName() string {
	return "Mock Robot"
}

// WriteServos records the command.
func (m *MockRobot) WriteServos(ctx context.Context, cmd purpleeye.ServoCommand) error {
	if m.WriteLatency > 0 {
		select {
		case <-time.After(m.WriteLatency):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return purpleeye.ErrNotConnected
	}
	if m.writeErr != nil {
		return fmt.Errorf("write servos %v: %w", cmd, m.writeErr)
	}

	m.writeCount++
	m.writes = append(m.writes, cmd)
	if len(m.writes) > maxHistory {
		m.writes = m.writes[len(m.writes)-maxHistory:]
	}
	return nil
}

// ReadBatteryPercent returns the simulated battery level.
func (m *MockRobot) ReadBatteryPercent(ctx context.Context) (uint8, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return 0, purpleeye.ErrNotConnected
	}
	log.Println("MOCK: Reading battery level.")
	return m.batteryLevel, nil
}

// SetBatteryLevel changes the simulated level and, when connected, sends a
// change notification.
func (m *MockRobot) SetBatteryLevel(level uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.batteryLevel = level
	if !m.connected {
		return
	}
	select {
	case m.updates <- purpleeye.BatteryUpdate{Percent: level}:
	default:
		log.Println("MOCK: battery update dropped")
	}
}

// FailWrites makes every following write fail with err. A nil err restores
// normal writes.
func (m *MockRobot) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// Writes returns the most recent successful writes, oldest first.
func (m *MockRobot) Writes() []purpleeye.ServoCommand {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]purpleeye.ServoCommand(nil), m.writes...)
}

// WriteCount returns the number of successful writes since creation.
func (m *MockRobot) WriteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeCount
}

// LastWrite returns the most recent successful write.
func (m *MockRobot) LastWrite() (purpleeye.ServoCommand, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.writes) == 0 {
		return purpleeye.ServoCommand{}, false
	}
	return m.writes[len(m.writes)-1], true
}
