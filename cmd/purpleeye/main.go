package main

import (
	"io"
	"log"
	"os"
	"time"

	"github.com/jessevdk/go-flags"

	_ "github.com/mlsorensen/purpleeye/pkg/robots/all"
)

type Options struct {
	Config  string        `long:"config" default:"purpleeye.json" description:"Path to the optional config file"`
	Mock    bool          `long:"mock" description:"Use a simulated robot instead of Bluetooth"`
	Device  string        `short:"d" long:"device" description:"Address or name of the robot to connect to"`
	Timeout time.Duration `short:"t" long:"timeout" description:"Scan timeout (overrides the config file)"`
	Verbose bool          `short:"v" long:"verbose" description:"Show Bluetooth and driver logging"`

	Scan    ScanCommand    `command:"scan" description:"List nearby robots"`
	Battery BatteryCommand `command:"battery" description:"Show the battery level and follow changes"`
	Stand   StandCommand   `command:"stand" description:"Move all servos to the standing posture"`
	Spread  SpreadCommand  `command:"spread" description:"Move the servos to the spread posture"`
	Rest    RestCommand    `command:"rest" description:"Stop moving and relax all servos"`
	Shimmy  ShimmyCommand  `command:"shimmy" description:"Alternate between standing and spread"`
	Dance   DanceCommand   `command:"dance" description:"Sweep all servos back and forth"`
	Control ControlCommand `command:"control" description:"Interactive controller"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "purpleeye - Bluetooth controller for the Purple Eye servo robot"
	parser.CommandHandler = func(command flags.Commander, args []string) error {
		if command == nil {
			return nil
		}
		if !opts.Verbose {
			log.SetOutput(io.Discard)
		}
		return command.Execute(args)
	}

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
