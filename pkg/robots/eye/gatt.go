package eye

import (
	"errors"

	"tinygo.org/x/bluetooth"

	"github.com/mlsorensen/purpleeye"
)

// The driver talks to the robot through these interfaces. The tinygo types are
// the only production implementation.

type gattLink interface {
	DiscoverServices(uuids []bluetooth.UUID) ([]gattService, error)
	Disconnect() error
}

type gattService interface {
	DiscoverCharacteristics(uuids []bluetooth.UUID) ([]gattCharacteristic, error)
}

type gattCharacteristic interface {
	Write(p []byte) (int, error)
	Read(p []byte) (int, error)
	EnableNotifications(callback func(buf []byte)) error
}

var errReadUnsupported = errors.New("characteristic reads are not supported on this platform")

// dialFunc opens a link to the robot at address.
type dialFunc func(address bluetooth.Address) (gattLink, error)

func dialAdapter(address bluetooth.Address) (gattLink, error) {
	if err := purpleeye.TryEnableAdapter(); err != nil {
		return nil, err
	}
	device, err := purpleeye.BTAdapter.Connect(address, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, err
	}
	return btLink{device}, nil
}

type btLink struct {
	device bluetooth.Device
}

func (l btLink) DiscoverServices(uuids []bluetooth.UUID) ([]gattService, error) {
	services, err := l.device.DiscoverServices(uuids)
	if err != nil {
		return nil, err
	}
	out := make([]gattService, len(services))
	for i := range services {
		out[i] = btService{&services[i]}
	}
	return out, nil
}

func (l btLink) Disconnect() error {
	return l.device.Disconnect()
}

type btService struct {
	service *bluetooth.DeviceService
}

func (s btService) DiscoverCharacteristics(uuids []bluetooth.UUID) ([]gattCharacteristic, error) {
	chars, err := s.service.DiscoverCharacteristics(uuids)
	if err != nil {
		return nil, err
	}
	out := make([]gattCharacteristic, len(chars))
	for i := range chars {
		out[i] = btCharacteristic{&chars[i]}
	}
	return out, nil
}

// btCharacteristic fills in the methods the bluetooth package lacks on some
// platforms; see the char_*.go files.
type btCharacteristic struct {
	*bluetooth.DeviceCharacteristic
}
