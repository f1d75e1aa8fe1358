package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/mlsorensen/purpleeye"
	"github.com/mlsorensen/purpleeye/pkg/battery"
	"github.com/mlsorensen/purpleeye/pkg/motion"
	// This tells the Go compiler to include the package, which runs its init()
	// function. The init() function, in turn, calls purpleeye.Register(). You can
	// specify specific drivers individually or just "all"
	_ "github.com/mlsorensen/purpleeye/pkg/robots/all"
)

// tierBars draws the battery tier in the label next to the percentage.
var tierBars = map[battery.Tier]string{
	battery.Full:          "▮▮▮▮",
	battery.ThreeQuarters: "▮▮▮▯",
	battery.Half:          "▮▮▯▯",
	battery.Quarter:       "▮▯▯▯",
	battery.Empty:         "▯▯▯▯",
}

func main() {
	a := app.New()
	w := a.NewWindow("Purple Eye")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		robot purpleeye.Robot
		seq   *motion.Sequencer
	)

	nameLabel := widget.NewLabel("Not connected")
	batteryLabel := widget.NewLabel("--%")
	stateLabel := widget.NewLabel(motion.Idle.String())

	refreshState := func() {
		if seq != nil {
			stateLabel.SetText(seq.State().String())
		}
	}

	// action wraps a button handler so it is a no-op until connected and never
	// blocks the UI goroutine.
	action := func(name string, f func() error) func() {
		return func() {
			if seq == nil {
				return
			}
			go func() {
				if err := f(); err != nil {
					log.Printf("%s failed: %v", name, err)
				}
				fyne.Do(refreshState)
			}()
			refreshState()
		}
	}

	buttons := container.NewGridWithColumns(3,
		widget.NewButton("Stand", action("stand", func() error { return seq.Stand(ctx) })),
		widget.NewButton("Spread", action("spread", func() error { return seq.Spread(ctx) })),
		widget.NewButton("Rest", action("rest", func() error { return seq.Rest(ctx) })),
		widget.NewButton("Shimmy", action("shimmy", func() error { seq.Shimmy(ctx); return nil })),
		widget.NewButton("Dance", action("dance", func() error { seq.Dance(ctx); return nil })),
		widget.NewButton("Stop", action("stop", func() error { seq.Stop(); return nil })),
	)
	buttons.Hide()

	var connectButton *widget.Button
	connectButton = widget.NewButton("Connect", func() {
		connectButton.Disable()
		nameLabel.SetText("Scanning...")
		go func() {
			dev, err := purpleeye.ScanForOne(10*time.Second, "")
			if err != nil {
				log.Printf("Argh! %v", err)
				fyne.Do(func() {
					nameLabel.SetText("No robot found")
					connectButton.Enable()
				})
				return
			}
			r, err := purpleeye.NewRobotForDevice(dev)
			if err != nil {
				log.Printf("Fatal: Could not create robot instance: %v", err)
				return
			}
			updates, err := r.Connect()
			if err != nil {
				log.Printf("Argh! %v", err)
				fyne.Do(func() {
					nameLabel.SetText("Connection failed")
					connectButton.Enable()
				})
				return
			}

			fyne.Do(func() {
				robot = r
				seq = motion.New(r)
				nameLabel.SetText(r.DisplayName() + " " + r.DeviceName())
				connectButton.Hide()
				buttons.Show()
			})

			monitor := battery.NewMonitor(battery.RendererFunc(func(reading battery.Reading) {
				fyne.Do(func() {
					batteryLabel.SetText(tierBars[reading.Tier] + " " + reading.Label())
				})
			}))
			if err := monitor.Run(ctx, updates); err != nil {
				log.Printf("Battery monitor stopped: %v", err)
			}
		}()
	})

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-shutdown
		log.Println("Shutdown signal received:", sig)
		fyne.Do(a.Quit)
	}()

	w.SetContent(container.NewVBox(
		nameLabel,
		container.NewHBox(widget.NewLabel("Battery:"), batteryLabel),
		container.NewHBox(widget.NewLabel("Motion:"), stateLabel),
		connectButton,
		buttons,
	))
	w.ShowAndRun()

	if seq != nil {
		_ = seq.Rest(context.Background())
	}
	if robot != nil {
		if err := robot.Disconnect(); err != nil {
			log.Printf("Error disconnecting from robot: %v", err)
		}
	}
}
