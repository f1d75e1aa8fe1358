package eye

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/mlsorensen/purpleeye"
	"github.com/mlsorensen/purpleeye/pkg/robots/eye/comms"
)

type fakeCharacteristic struct {
	mu     sync.Mutex
	value  []byte
	writes [][]byte
	notify func([]byte)
}

func (c *fakeCharacteristic) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, append([]byte(nil), p...))
	return len(p), nil
}

func (c *fakeCharacteristic) Read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copy(p, c.value), nil
}

func (c *fakeCharacteristic) EnableNotifications(callback func(buf []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notify = callback
	return nil
}

func (c *fakeCharacteristic) Writes() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.writes...)
}

type fakeService struct {
	chars map[bluetooth.UUID]*fakeCharacteristic
}

func (s *fakeService) DiscoverCharacteristics(uuids []bluetooth.UUID) ([]gattCharacteristic, error) {
	var out []gattCharacteristic
	for _, u := range uuids {
		if c, ok := s.chars[u]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeLink struct {
	services map[bluetooth.UUID]*fakeService
	// onDiscover runs before every service discovery.
	onDiscover func()

	mu          sync.Mutex
	disconnects int
}

func (l *fakeLink) DiscoverServices(uuids []bluetooth.UUID) ([]gattService, error) {
	if l.onDiscover != nil {
		l.onDiscover()
	}
	var out []gattService
	for _, u := range uuids {
		if s, ok := l.services[u]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (l *fakeLink) Disconnect() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.disconnects++
	return nil
}

func (l *fakeLink) Disconnects() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.disconnects
}

type linkLayout struct {
	control bool
	servo   bool
	battery bool
}

func newFakeLink(layout linkLayout, level uint8) (*fakeLink, *fakeCharacteristic, *fakeCharacteristic) {
	servo := &fakeCharacteristic{}
	battery := &fakeCharacteristic{value: []byte{level}}
	link := &fakeLink{services: map[bluetooth.UUID]*fakeService{}}

	if layout.control {
		control := &fakeService{chars: map[bluetooth.UUID]*fakeCharacteristic{}}
		if layout.servo {
			control.chars[comms.ServoCharUUID] = servo
		}
		link.services[comms.ControlServiceUUID] = control
	}
	if layout.battery {
		link.services[comms.BatteryServiceUUID] = &fakeService{
			chars: map[bluetooth.UUID]*fakeCharacteristic{comms.BatteryLevelCharUUID: battery},
		}
	}
	return link, servo, battery
}

func newTestRobot(link gattLink) *EyeRobot {
	r := NewWithOptions(&purpleeye.FoundDevice{Name: "Purple Eye"}, DefaultOptions)
	r.dial = func(bluetooth.Address) (gattLink, error) { return link, nil }
	return r
}

func nextUpdate(t *testing.T, updates <-chan purpleeye.BatteryUpdate) purpleeye.BatteryUpdate {
	t.Helper()
	select {
	case u, ok := <-updates:
		if !ok {
			t.Fatal("update channel closed")
		}
		return u
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a battery update")
		return purpleeye.BatteryUpdate{}
	}
}

func TestConnect_MissingControl(t *testing.T) {
	tests := []struct {
		name   string
		layout linkLayout
	}{
		{"no control service", linkLayout{battery: true}},
		{"no servo characteristic", linkLayout{control: true, battery: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link, _, _ := newFakeLink(tt.layout, 80)
			r := newTestRobot(link)

			updates, err := r.Connect()
			if !errors.Is(err, purpleeye.ErrControlNotFound) {
				t.Fatalf("Connect() error = %v, want ErrControlNotFound", err)
			}
			if updates != nil {
				t.Error("Connect() returned an update channel on failure")
			}
			if n := link.Disconnects(); n != 1 {
				t.Errorf("link disconnected %d times, want 1", n)
			}
			if r.IsConnected() {
				t.Error("IsConnected() = true after failed connect")
			}
			if err := r.WriteServos(context.Background(), purpleeye.ServoCommand{}); !errors.Is(err, purpleeye.ErrNotConnected) {
				t.Errorf("WriteServos() error = %v, want ErrNotConnected", err)
			}
			// The failed attempt holds no link, so Disconnect has nothing left to drop.
			if err := r.Disconnect(); err != nil {
				t.Errorf("Disconnect: %v", err)
			}
			if n := link.Disconnects(); n != 1 {
				t.Errorf("link disconnected %d times after a second Disconnect, want 1", n)
			}
		})
	}
}

func TestConnect_MissingBatteryKeepsServos(t *testing.T) {
	link, servo, _ := newFakeLink(linkLayout{control: true, servo: true}, 0)
	r := newTestRobot(link)

	updates, err := r.Connect()
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer r.Disconnect()

	u := nextUpdate(t, updates)
	if !errors.Is(u.Error, purpleeye.ErrBatteryUnavailable) {
		t.Errorf("first update = %+v, want ErrBatteryUnavailable", u)
	}
	select {
	case u := <-updates:
		t.Errorf("unexpected second update %+v", u)
	default:
	}

	cmd := purpleeye.ServoCommand{RightLeg: 110, RightFoot: 94, LeftFoot: 86, LeftLeg: 70}
	if err := r.WriteServos(context.Background(), cmd); err != nil {
		t.Fatalf("WriteServos: %v", err)
	}
	writes := servo.Writes()
	if len(writes) != 1 || !bytes.Equal(writes[0], []byte{110, 94, 86, 70}) {
		t.Errorf("servo writes = %v, want [[110 94 86 70]]", writes)
	}

	if _, err := r.ReadBatteryPercent(context.Background()); !errors.Is(err, purpleeye.ErrBatteryUnavailable) {
		t.Errorf("ReadBatteryPercent() error = %v, want ErrBatteryUnavailable", err)
	}
}

func TestConnect_BatteryLevelAndNotifications(t *testing.T) {
	link, _, battery := newFakeLink(linkLayout{control: true, servo: true, battery: true}, 72)
	r := newTestRobot(link)

	updates, err := r.Connect()
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if u := nextUpdate(t, updates); u.Error != nil || u.Percent != 72 {
		t.Errorf("initial update = %+v, want 72%%", u)
	}

	battery.mu.Lock()
	notify := battery.notify
	battery.mu.Unlock()
	if notify == nil {
		t.Fatal("notifications were not enabled")
	}
	notify([]byte{15})
	if u := nextUpdate(t, updates); u.Percent != 15 {
		t.Errorf("notified update = %+v, want 15%%", u)
	}
	// Empty notifications are dropped.
	notify(nil)

	level, err := r.ReadBatteryPercent(context.Background())
	if err != nil || level != 72 {
		t.Errorf("ReadBatteryPercent() = %d, %v, want 72", level, err)
	}

	if err := r.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if _, ok := <-updates; ok {
		t.Error("update channel still open after Disconnect")
	}
	// Late notifications after teardown must not panic on the closed channel.
	notify([]byte{10})
}

func TestDisconnect_Idempotent(t *testing.T) {
	link, _, _ := newFakeLink(linkLayout{control: true, servo: true, battery: true}, 50)
	r := newTestRobot(link)

	if err := r.Disconnect(); err != nil {
		t.Errorf("Disconnect before Connect: %v", err)
	}
	if _, err := r.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if _, err := r.Connect(); err == nil {
		t.Error("second Connect should fail while connected")
	}

	for i := 0; i < 3; i++ {
		if err := r.Disconnect(); err != nil {
			t.Errorf("Disconnect #%d: %v", i+1, err)
		}
	}
	if n := link.Disconnects(); n != 1 {
		t.Errorf("link disconnected %d times, want 1", n)
	}
	if r.IsConnected() {
		t.Error("IsConnected() = true after Disconnect")
	}
}

func TestWriteServos_NotConnectedDuringDiscovery(t *testing.T) {
	link, servo, _ := newFakeLink(linkLayout{control: true, servo: true, battery: true}, 50)
	r := newTestRobot(link)

	var duringConnect []error
	link.onDiscover = func() {
		duringConnect = append(duringConnect, r.WriteServos(context.Background(), purpleeye.ServoCommand{}))
	}

	if _, err := r.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer r.Disconnect()

	// The first discovery runs before the servo characteristic is resolved.
	if len(duringConnect) == 0 || !errors.Is(duringConnect[0], purpleeye.ErrNotConnected) {
		t.Errorf("write during control discovery = %v, want ErrNotConnected", duringConnect)
	}
	if len(servo.Writes()) != len(duringConnect)-1 {
		t.Errorf("servo writes = %d, want only those issued after the control characteristic resolved", len(servo.Writes()))
	}
}

func TestWriteServos_CancelledContext(t *testing.T) {
	link, servo, _ := newFakeLink(linkLayout{control: true, servo: true, battery: true}, 50)
	r := newTestRobot(link)
	if _, err := r.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer r.Disconnect()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.WriteServos(ctx, purpleeye.ServoCommand{}); !errors.Is(err, context.Canceled) {
		t.Errorf("WriteServos() error = %v, want context.Canceled", err)
	}
	if n := len(servo.Writes()); n != 0 {
		t.Errorf("%d writes with a cancelled context", n)
	}
}
