package purpleeye

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"tinygo.org/x/bluetooth"
)

var (
	ErrNotConnected       = errors.New("robot is not connected")
	ErrControlNotFound    = errors.New("robot control service not found")
	ErrBatteryUnavailable = errors.New("battery service unavailable")
	ErrNoDevice           = errors.New("no matching device found")
	ErrNoDriver           = errors.New("no driver registered for device")
)

// BatteryUpdate represents a single battery reading from the robot.
// An error can be propagated through the channel as well.
type BatteryUpdate struct {
	Percent uint8
	Error   error
}

// Robot is the generic interface for a servo robot reached over Bluetooth.
// Implementations of this interface handle the wire details of a specific model.
type Robot interface {
	// Connect establishes a connection to the robot and returns a read-only
	// channel of battery updates. The first update is the level read at connect
	// time, later ones come from change notifications. The channel is closed by
	// Disconnect.
	Connect() (<-chan BatteryUpdate, error)

	// Disconnect releases the connection and the battery subscription. Calling it
	// more than once is safe.
	Disconnect() error

	// WriteServos sends one servo command. Writes on a robot never overlap.
	WriteServos(ctx context.Context, cmd ServoCommand) error

	// ReadBatteryPercent returns the current battery level as a percentage (0-100).
	ReadBatteryPercent(ctx context.Context) (uint8, error)

	IsConnected() bool
	DeviceName() string
	DisplayName() string
}

// --- Driver Registry ---

// Factory is a function that creates a new instance of a Robot.
type Factory func(*FoundDevice) Robot

var (
	registry        = make(map[string]Factory)
	serviceRegistry = make(map[bluetooth.UUID]Factory)
	regLock         = sync.RWMutex{}
)

// Register makes a driver available by its device name prefix.
// This function should be called from the init() function of the driver's package.
func Register(namePrefix string, factory Factory) {
	regLock.Lock()
	defer regLock.Unlock()

	if _, found := registry[namePrefix]; found {
		log.Printf("warning: robot driver for prefix '%s' is being overwritten", namePrefix)
	}
	registry[namePrefix] = factory
}

// RegisterService makes a driver available for any device advertising the given
// primary service, regardless of its name.
func RegisterService(service bluetooth.UUID, factory Factory) {
	regLock.Lock()
	defer regLock.Unlock()

	if _, found := serviceRegistry[service]; found {
		log.Printf("warning: robot driver for service %s is being overwritten", service.String())
	}
	serviceRegistry[service] = factory
}

// NewRobotForDevice finds a registered factory for the given device and creates a
// new Robot. A driver registered for one of the device's advertised services wins,
// otherwise the longest matching name prefix is used.
// Example: A device named "MOCK-Eye" would match a registered "MOCK" prefix.
func NewRobotForDevice(device *FoundDevice) (Robot, error) {
	regLock.RLock()
	defer regLock.RUnlock()

	for _, service := range device.Services {
		if factory, ok := serviceRegistry[service]; ok {
			return factory(device), nil
		}
	}

	var (
		best    Factory
		bestLen = -1
	)
	for prefix, factory := range registry {
		if strings.HasPrefix(device.Name, prefix) && len(prefix) > bestLen {
			best, bestLen = factory, len(prefix)
		}
	}
	if best != nil {
		return best(device), nil
	}

	return nil, fmt.Errorf("%w: '%s'", ErrNoDriver, device.Name)
}

// registeredServices lists every service UUID a driver was registered for.
func registeredServices() []bluetooth.UUID {
	regLock.RLock()
	defer regLock.RUnlock()
	services := make([]bluetooth.UUID, 0, len(serviceRegistry))
	for s := range serviceRegistry {
		services = append(services, s)
	}
	return services
}
