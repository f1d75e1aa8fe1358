// Package eye drives the Purple Eye four-servo walking robot over Bluetooth LE.
package eye

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"tinygo.org/x/bluetooth"

	"github.com/mlsorensen/purpleeye"
	"github.com/mlsorensen/purpleeye/pkg/robots/eye/comms"
)

func init() {
	purpleeye.RegisterService(comms.ControlServiceUUID, New)
}

// This line is the compile-time check. It will fail to compile if
// *EyeRobot ever stops satisfying the purpleeye.Robot interface.
var _ purpleeye.Robot = (*EyeRobot)(nil)

// Options selects the GATT layout of the robot. Robots running stock firmware
// use DefaultOptions.
type Options struct {
	ControlService bluetooth.UUID
	ServoChar      bluetooth.UUID
}

var DefaultOptions = Options{
	ControlService: comms.ControlServiceUUID,
	ServoChar:      comms.ServoCharUUID,
}

type EyeRobot struct {
	name    string
	address bluetooth.Address
	opts    Options
	dial    dialFunc

	mu        sync.Mutex
	connected bool
	closed    bool

	// writeMu keeps servo writes from overlapping.
	writeMu sync.Mutex

	// link is set from dial until Disconnect; connected only becomes true once
	// servoChar is resolved.
	link        gattLink
	servoChar   gattCharacteristic
	batteryChar gattCharacteristic

	batteryUpdateChan chan purpleeye.BatteryUpdate
}

func New(device *purpleeye.FoundDevice) purpleeye.Robot {
	return NewWithOptions(device, DefaultOptions)
}

// NewWithOptions creates a robot for firmware using non-default UUIDs.
func NewWithOptions(device *purpleeye.FoundDevice, opts Options) *EyeRobot {
	return &EyeRobot{
		name:    device.Name,
		address: device.Address,
		opts:    opts,
		dial:    dialAdapter,
	}
}

// NewFactory returns a registry factory bound to opts.
func NewFactory(opts Options) purpleeye.Factory {
	return func(device *purpleeye.FoundDevice) purpleeye.Robot {
		return NewWithOptions(device, opts)
	}
}

// Connect connects to the robot, resolves its characteristics and subscribes to
// battery notifications.
func (e *EyeRobot) Connect() (<-chan purpleeye.BatteryUpdate, error) {
	e.mu.Lock()
	if e.link != nil {
		e.mu.Unlock()
		return nil, errors.New("robot is already connected")
	}
	e.batteryUpdateChan = make(chan purpleeye.BatteryUpdate, 20)
	e.closed = false
	e.mu.Unlock()

	log.Printf("Connecting to %s (%s)...", e.name, e.address.String())
	link, err := e.dial(e.address)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", e.name, err)
	}

	e.mu.Lock()
	e.link = link
	e.mu.Unlock()

	servoChar, err := e.findServoCharacteristic(link)
	if err != nil {
		_ = e.Disconnect()
		return nil, err
	}

	e.mu.Lock()
	e.servoChar = servoChar
	e.connected = true
	e.mu.Unlock()
	log.Println("All ready!")

	if err := e.setupBattery(link); err != nil {
		log.Printf("Battery monitoring unavailable: %v", err)
		e.publish(purpleeye.BatteryUpdate{Error: err})
	}

	return e.batteryUpdateChan, nil
}

// Disconnect drops the connection and closes the battery update channel. It is
// safe to call more than once.
func (e *EyeRobot) Disconnect() error {
	e.mu.Lock()
	if e.batteryUpdateChan != nil && !e.closed {
		close(e.batteryUpdateChan)
		e.closed = true
	}
	link := e.link
	e.link = nil
	e.connected = false
	e.servoChar = nil
	e.batteryChar = nil
	e.mu.Unlock()

	if link == nil {
		return nil
	}
	log.Printf("Disconnecting from %s", e.name)
	return link.Disconnect()
}

func (e *EyeRobot) IsConnected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connected
}

func (e *EyeRobot) DeviceName() string {
	return e.name
}

func (e *EyeRobot) DisplayName() string {
	return "Purple Eye robot"
}

// WriteServos writes one command to the servo characteristic. The write runs on
// its own goroutine so a cancelled ctx returns early; the next write still waits
// for it to finish.
func (e *EyeRobot) WriteServos(ctx context.Context, cmd purpleeye.ServoCommand) error {
	e.mu.Lock()
	char := e.servoChar
	connected := e.connected
	e.mu.Unlock()

	if !connected || char == nil {
		return purpleeye.ErrNotConnected
	}

	done := make(chan error, 1)
	go func() {
		e.writeMu.Lock()
		defer e.writeMu.Unlock()
		if ctx.Err() != nil {
			done <- ctx.Err()
			return
		}
		_, err := char.Write(cmd.Encode())
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("write servos %v: %w", cmd, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *EyeRobot) ReadBatteryPercent(ctx context.Context) (uint8, error) {
	e.mu.Lock()
	char := e.batteryChar
	connected := e.connected
	e.mu.Unlock()

	if !connected {
		return 0, purpleeye.ErrNotConnected
	}
	if char == nil {
		return 0, purpleeye.ErrBatteryUnavailable
	}

	type result struct {
		level uint8
		err   error
	}
	done := make(chan result, 1)
	go func() {
		level, err := readBatteryLevel(char)
		done <- result{level, err}
	}()

	select {
	case r := <-done:
		return r.level, r.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (e *EyeRobot) findServoCharacteristic(link gattLink) (gattCharacteristic, error) {
	log.Println("Getting Service - Robot Control...")
	services, err := link.DiscoverServices([]bluetooth.UUID{e.opts.ControlService})
	if err != nil {
		return nil, fmt.Errorf("%w: could not discover services: %v", purpleeye.ErrControlNotFound, err)
	}

	if len(services) == 0 {
		return nil, purpleeye.ErrControlNotFound
	}

	log.Println("Getting Characteristic - Servo Angles...")
	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{e.opts.ServoChar})
	if err != nil || len(chars) != 1 {
		return nil, fmt.Errorf("%w: could not discover servo characteristic: %v", purpleeye.ErrControlNotFound, err)
	}
	return chars[0], nil
}

// setupBattery resolves the battery level characteristic, publishes the current
// level and enables change notifications.
func (e *EyeRobot) setupBattery(link gattLink) error {
	services, err := link.DiscoverServices([]bluetooth.UUID{comms.BatteryServiceUUID})
	if err != nil || len(services) == 0 {
		return fmt.Errorf("%w: no battery service: %v", purpleeye.ErrBatteryUnavailable, err)
	}

	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{comms.BatteryLevelCharUUID})
	if err != nil || len(chars) != 1 {
		return fmt.Errorf("%w: no battery level characteristic: %v", purpleeye.ErrBatteryUnavailable, err)
	}
	char := chars[0]

	level, err := readBatteryLevel(char)
	switch {
	case errors.Is(err, errReadUnsupported):
		log.Println("Initial battery read unsupported, waiting for notifications")
	case err != nil:
		return fmt.Errorf("%w: %v", purpleeye.ErrBatteryUnavailable, err)
	}

	e.mu.Lock()
	e.batteryChar = char
	e.mu.Unlock()
	if err == nil {
		e.publish(purpleeye.BatteryUpdate{Percent: level})
	}

	err = char.EnableNotifications(e.handleBatteryNotification)
	if err != nil {
		return fmt.Errorf("%w: failed to enable notifications: %v", purpleeye.ErrBatteryUnavailable, err)
	}
	log.Println("> Notifications started")
	return nil
}

// handleBatteryNotification is the callback for battery level changes.
func (e *EyeRobot) handleBatteryNotification(buf []byte) {
	level, err := comms.DecodeBatteryLevel(buf)
	if err != nil {
		log.Printf("[HANDLER] Failed to decode battery notification: %v. Data: % X", err, buf)
		return
	}
	e.publish(purpleeye.BatteryUpdate{Percent: level})
}

// publish sends an update without blocking the Bluetooth stack. Updates are
// dropped when the consumer lags or the channel is closed.
func (e *EyeRobot) publish(update purpleeye.BatteryUpdate) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.batteryUpdateChan == nil {
		return
	}
	select {
	case e.batteryUpdateChan <- update:
	default:
		log.Printf("battery update dropped, consumer is not keeping up")
	}
}

func readBatteryLevel(char gattCharacteristic) (uint8, error) {
	buf := make([]byte, 8)
	n, err := char.Read(buf)
	if err != nil {
		return 0, fmt.Errorf("read battery level: %w", err)
	}
	return comms.DecodeBatteryLevel(buf[:n])
}
