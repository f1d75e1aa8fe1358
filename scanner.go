package purpleeye

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"
)

// FoundDevice is a robot seen while scanning.
type FoundDevice struct {
	Name    string
	ID      string
	RSSI    int
	Address bluetooth.Address

	// Services holds the registered services the device advertised.
	Services []bluetooth.UUID
}

// BTAdapter is the adapter every driver connects through.
var BTAdapter = bluetooth.DefaultAdapter

var (
	enableLock sync.Mutex
	enabled    bool
)

// TryEnableAdapter enables the Bluetooth adapter the first time it is called.
func TryEnableAdapter() error {
	enableLock.Lock()
	defer enableLock.Unlock()
	if enabled {
		return nil
	}
	log.Println("Enabling Bluetooth adapter...")
	if err := BTAdapter.Enable(); err != nil {
		return fmt.Errorf("enable bluetooth adapter: %w", err)
	}
	enabled = true
	return nil
}

// advertisement is the part of a scan result used for matching.
type advertisement interface {
	LocalName() string
	HasServiceUUID(bluetooth.UUID) bool
}

// matchDevice reports whether an advertisement belongs to a supported robot and
// which of the given services it advertised. Empty prefixes are ignored.
func matchDevice(adv advertisement, prefixes []string, services []bluetooth.UUID) ([]bluetooth.UUID, bool) {
	var advertised []bluetooth.UUID
	for _, s := range services {
		if adv.HasServiceUUID(s) {
			advertised = append(advertised, s)
		}
	}
	if len(advertised) > 0 {
		return advertised, true
	}

	name := adv.LocalName()
	if name == "" {
		return nil, false // Ignore packets without a name.
	}
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(name, prefix) {
			return nil, true
		}
	}
	return nil, false
}

func foundFromResult(result bluetooth.ScanResult, services []bluetooth.UUID) FoundDevice {
	return FoundDevice{
		Name:     result.LocalName(),
		ID:       result.Address.String(),
		RSSI:     int(result.RSSI),
		Address:  result.Address,
		Services: services,
	}
}

// ScanStream returns a channel that streams FoundDevice as they are discovered
// and stops scanning when the context is canceled. Each device is reported once.
func ScanStream(ctx context.Context, customPrefixes ...string) (<-chan FoundDevice, error) {
	if err := TryEnableAdapter(); err != nil {
		return nil, err
	}

	prefixesToScan := getPrefixes(customPrefixes...)
	servicesToScan := registeredServices()
	if len(prefixesToScan) == 0 && len(servicesToScan) == 0 {
		return nil, errors.New("scan: no drivers registered and no custom prefixes provided")
	}

	deviceChan := make(chan FoundDevice)

	go func() {
		defer close(deviceChan)

		mu := sync.Mutex{}
		seen := make(map[string]bool)

		log.Printf("Starting BLE scan for prefixes %v and %d service(s)...", prefixesToScan, len(servicesToScan))

		handler := func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			services, ok := matchDevice(result, prefixesToScan, servicesToScan)
			if !ok {
				return
			}

			mu.Lock()
			defer mu.Unlock()

			id := result.Address.String()
			if seen[id] {
				return
			}
			seen[id] = true

			select {
			case deviceChan <- foundFromResult(result, services):
			case <-ctx.Done():
			}
		}

		go func() {
			<-ctx.Done()
			if err := BTAdapter.StopScan(); err != nil {
				log.Printf("Error stopping scan: %v", err)
			}
		}()

		if ctx.Err() != nil {
			return
		}
		// Scan blocks until StopScan is called.
		if err := BTAdapter.Scan(handler); err != nil {
			log.Printf("Error starting scan: %v", err)
		}
	}()

	return deviceChan, nil
}

// Scan finds any supported devices, blocking for duration.
func Scan(duration time.Duration, customPrefixes ...string) ([]FoundDevice, error) {
	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	stream, err := ScanStream(ctx, customPrefixes...)
	if err != nil {
		return nil, err
	}

	results := make([]FoundDevice, 0)
	for device := range stream {
		log.Printf("    --> Found a match! Device: %s (%s)", device.Name, device.ID)
		results = append(results, device)
	}

	log.Printf("Scan processing finished. Found %d unique matching device(s).", len(results))
	return results, nil
}

// ScanForOne returns the first supported device seen within timeout. When id is
// not empty only the device with that address or name is accepted.
func ScanForOne(timeout time.Duration, id string, customPrefixes ...string) (*FoundDevice, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	stream, err := ScanStream(ctx, customPrefixes...)
	if err != nil {
		return nil, err
	}

	for device := range stream {
		if id != "" && !strings.EqualFold(device.ID, id) && device.Name != id {
			continue
		}
		cancel()
		// Drain so the scan goroutine can exit.
		for range stream {
		}
		return &device, nil
	}
	return nil, fmt.Errorf("%w within %s", ErrNoDevice, timeout)
}

// getPrefixes returns the custom prefixes if provided, otherwise the registered
// driver prefixes.
func getPrefixes(customPrefixes ...string) []string {
	if len(customPrefixes) > 0 {
		return customPrefixes
	}
	regLock.RLock()
	defer regLock.RUnlock()
	keys := make([]string, 0, len(registry))
	for k := range registry {
		if k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
