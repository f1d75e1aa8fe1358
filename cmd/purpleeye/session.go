package main

import (
	"fmt"
	"log"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mlsorensen/purpleeye"
	"github.com/mlsorensen/purpleeye/pkg/battery"
	"github.com/mlsorensen/purpleeye/pkg/config"
	"github.com/mlsorensen/purpleeye/pkg/motion"
	"github.com/mlsorensen/purpleeye/pkg/robots/eye"
)

const mockDeviceName = "MOCK-Purple-Eye"

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("135"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// tierColors colors the battery label by tier.
var tierColors = map[battery.Tier]string{
	battery.Full:          "10",
	battery.ThreeQuarters: "10",
	battery.Half:          "11",
	battery.Quarter:       "208",
	battery.Empty:         "9",
}

// tierGlyphs draws the battery icon in a terminal.
var tierGlyphs = map[battery.Tier]string{
	battery.Full:          "[████]",
	battery.ThreeQuarters: "[███ ]",
	battery.Half:          "[██  ]",
	battery.Quarter:       "[█   ]",
	battery.Empty:         "[    ]",
}

func renderReading(r battery.Reading) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(tierColors[r.Tier]))
	return style.Render(fmt.Sprintf("%s %4s", tierGlyphs[r.Tier], r.Label()))
}

// session is a connected robot plus its settings.
type session struct {
	cfg     *config.Config
	robot   purpleeye.Robot
	updates <-chan purpleeye.BatteryUpdate
}

// loadConfig reads the config file and applies the global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, err
	}
	if opts.Device != "" {
		cfg.Device = opts.Device
	}
	if opts.Timeout > 0 {
		cfg.ScanTimeout = config.Duration(opts.Timeout)
	}
	return cfg, nil
}

// findDevice returns the mock device or scans for a real robot.
func findDevice(cfg *config.Config) (*purpleeye.FoundDevice, error) {
	if opts.Mock {
		return &purpleeye.FoundDevice{Name: mockDeviceName}, nil
	}

	if cfg.HasCustomUUIDs() {
		eyeOpts, err := cfg.EyeOptions()
		if err != nil {
			return nil, err
		}
		purpleeye.RegisterService(eyeOpts.ControlService, eye.NewFactory(eyeOpts))
	}

	timeout := time.Duration(cfg.ScanTimeout)
	fmt.Println(dimStyle.Render(fmt.Sprintf("Scanning for a robot (%s)...", timeout)))
	return purpleeye.ScanForOne(timeout, cfg.Device, cfg.NamePrefixes...)
}

func openSession() (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	device, err := findDevice(cfg)
	if err != nil {
		return nil, err
	}

	robot, err := purpleeye.NewRobotForDevice(device)
	if err != nil {
		return nil, err
	}

	log.Printf("Connecting to %s...", device.Name)
	updates, err := robot.Connect()
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", device.Name, err)
	}
	fmt.Println(successStyle.Render("Connected to " + robot.DisplayName() + " " + robot.DeviceName()))

	return &session{cfg: cfg, robot: robot, updates: updates}, nil
}

func (s *session) sequencer() *motion.Sequencer {
	return motion.New(s.robot,
		motion.WithStepDelay(time.Duration(s.cfg.StepDelay)),
		motion.WithErrorHandler(func(state motion.State, err error) {
			fmt.Println(errorStyle.Render(fmt.Sprintf("%s: %v", state, err)))
		}),
	)
}

func (s *session) Close() {
	if err := s.robot.Disconnect(); err != nil {
		fmt.Println(errorStyle.Render(fmt.Sprintf("Error disconnecting: %v", err)))
	}
}
