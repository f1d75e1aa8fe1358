// Package comms provides communication details for the Purple Eye robot.
package comms

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"tinygo.org/x/bluetooth"
)

var (
	ControlServiceUUID = bluetooth.New16BitUUID(0x5100)
	ServoCharUUID      = bluetooth.New16BitUUID(0x5200)

	BatteryServiceUUID   = bluetooth.ServiceUUIDBattery
	BatteryLevelCharUUID = bluetooth.CharacteristicUUIDBatteryLevel
)

var ErrEmptyBatteryValue = errors.New("empty battery level value")

// DecodeBatteryLevel decodes a battery level read or notification. Only the first
// byte carries the level.
func DecodeBatteryLevel(buf []byte) (uint8, error) {
	if len(buf) == 0 {
		return 0, ErrEmptyBatteryValue
	}
	return buf[0], nil
}

// ParseUUID accepts a 16-bit short form ("5100", "0x5100") or a full 128-bit UUID.
func ParseUUID(s string) (bluetooth.UUID, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	if len(s) == 4 {
		return bluetooth.ParseUUID(s)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return bluetooth.UUID{}, fmt.Errorf("parse uuid %q: %w", s, err)
	}
	return bluetooth.NewUUID(u), nil
}
