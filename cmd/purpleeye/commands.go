package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/mlsorensen/purpleeye"
	"github.com/mlsorensen/purpleeye/pkg/battery"
	"github.com/mlsorensen/purpleeye/pkg/motion"
)

// signalContext is cancelled by Ctrl+C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

type ScanCommand struct{}

func (c *ScanCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	timeout := time.Duration(cfg.ScanTimeout)
	fmt.Println(headerStyle.Render("Scanning for robots"))
	fmt.Println(dimStyle.Render(fmt.Sprintf("Turn on your robot now. Scanning for %s...", timeout)))

	devices, err := purpleeye.Scan(timeout, cfg.NamePrefixes...)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(devices) == 0 {
		fmt.Println("No supported robots found.")
		fmt.Println(dimStyle.Render("Make sure the robot is on and in range."))
		return nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers("#", "NAME", "ID", "RSSI")
	for i, d := range devices {
		name := d.Name
		if name == "" {
			name = "(unnamed)"
		}
		t.Row(fmt.Sprint(i+1), name, d.ID, fmt.Sprint(d.RSSI))
	}
	fmt.Println(t)
	return nil
}

type BatteryCommand struct {
	Once bool `long:"once" description:"Print the current level and exit"`
}

func (c *BatteryCommand) Execute(args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if c.Once {
		level, err := s.robot.ReadBatteryPercent(ctx)
		if err != nil {
			return err
		}
		fmt.Println(renderReading(battery.NewReading(level)))
		return nil
	}

	fmt.Println(dimStyle.Render("Following battery changes, press Ctrl+C to stop."))
	monitor := battery.NewMonitor(battery.RendererFunc(func(r battery.Reading) {
		fmt.Printf("%s  %s\n", dimStyle.Render(time.Now().Format("15:04:05")), renderReading(r))
	}))
	if err := monitor.Run(ctx, s.updates); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// runPosture connects, applies one posture and disconnects.
func runPosture(name string, apply func(*motion.Sequencer, context.Context) error) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if err := apply(s.sequencer(), ctx); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	fmt.Println(successStyle.Render(name + " successful"))
	return nil
}

type StandCommand struct{}

func (c *StandCommand) Execute(args []string) error {
	return runPosture("Stand", (*motion.Sequencer).Stand)
}

type SpreadCommand struct{}

func (c *SpreadCommand) Execute(args []string) error {
	return runPosture("Spread", (*motion.Sequencer).Spread)
}

type RestCommand struct{}

func (c *RestCommand) Execute(args []string) error {
	return runPosture("Rest", (*motion.Sequencer).Rest)
}

// RoutineOptions are shared by the looping routines.
type RoutineOptions struct {
	For  time.Duration `long:"for" default:"10s" description:"How long to run; 0 runs until Ctrl+C"`
	Rest bool          `long:"rest" description:"Rest the servos when the routine ends"`
}

// runRoutine connects, runs a routine until the duration passes or Ctrl+C, then
// stops it.
func runRoutine(o RoutineOptions, start func(*motion.Sequencer, context.Context)) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signalContext()
	defer cancel()
	if o.For > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, o.For)
		defer cancelTimeout()
	}

	seq := s.sequencer()
	start(seq, ctx)
	fmt.Println(headerStyle.Render("Robot is " + seq.State().String()) + dimStyle.Render(" (Ctrl+C to stop)"))

	<-ctx.Done()
	seq.Stop()

	if o.Rest {
		if err := seq.Rest(context.Background()); err != nil {
			return fmt.Errorf("rest: %w", err)
		}
	}
	fmt.Println(successStyle.Render("Stopped"))
	return nil
}

type ShimmyCommand struct {
	RoutineOptions
}

func (c *ShimmyCommand) Execute(args []string) error {
	return runRoutine(c.RoutineOptions, (*motion.Sequencer).Shimmy)
}

type DanceCommand struct {
	RoutineOptions
}

func (c *DanceCommand) Execute(args []string) error {
	return runRoutine(c.RoutineOptions, (*motion.Sequencer).Dance)
}
