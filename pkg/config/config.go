// Package config loads the optional purpleeye settings file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/mlsorensen/purpleeye/pkg/robots/eye"
	"github.com/mlsorensen/purpleeye/pkg/robots/eye/comms"
)

const DefaultConfigFile = "purpleeye.json"

// Duration is a time.Duration written as a string such as "10s".
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config holds the controller settings.
type Config struct {
	// Device is the address or name of the robot to use. Empty means the first
	// robot found.
	Device       string   `json:"device,omitempty"`
	ScanTimeout  Duration `json:"scan_timeout"`
	NamePrefixes []string `json:"name_prefixes,omitempty"`
	StepDelay    Duration `json:"step_delay"`

	// Override the GATT layout for robots running custom firmware.
	ControlService        string `json:"control_service,omitempty"`
	ControlCharacteristic string `json:"control_characteristic,omitempty"`
}

func Default() *Config {
	return &Config{
		ScanTimeout: Duration(10 * time.Second),
	}
}

// Load reads the config file at path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.ScanTimeout <= 0 {
		return nil, fmt.Errorf("parse config %s: scan_timeout must be positive", path)
	}
	return cfg, nil
}

// HasCustomUUIDs reports whether the GATT layout is overridden.
func (c *Config) HasCustomUUIDs() bool {
	return c.ControlService != "" || c.ControlCharacteristic != ""
}

// EyeOptions returns the driver options, applying any UUID overrides.
func (c *Config) EyeOptions() (eye.Options, error) {
	opts := eye.DefaultOptions
	if c.ControlService != "" {
		u, err := comms.ParseUUID(c.ControlService)
		if err != nil {
			return opts, fmt.Errorf("control_service: %w", err)
		}
		opts.ControlService = u
	}
	if c.ControlCharacteristic != "" {
		u, err := comms.ParseUUID(c.ControlCharacteristic)
		if err != nil {
			return opts, fmt.Errorf("control_characteristic: %w", err)
		}
		opts.ServoChar = u
	}
	return opts, nil
}
