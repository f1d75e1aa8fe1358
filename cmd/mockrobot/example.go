package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/mlsorensen/purpleeye"
	"github.com/mlsorensen/purpleeye/pkg/battery"
	"github.com/mlsorensen/purpleeye/pkg/motion"

	// This tells the Go compiler to include the package, which runs its init()
	// function. The init() function, in turn, calls purpleeye.Register(). You can
	// specify specific drivers individually or just "all"
	_ "github.com/mlsorensen/purpleeye/pkg/robots/all"
)

func main() {
	log.Println("Purple Eye mock demo starting...")

	// The mock registers the "MOCK" prefix. In a real program the device would
	// come from purpleeye.ScanForOne.
	device := &purpleeye.FoundDevice{Name: "MOCK-Development-Eye"}
	robot, err := purpleeye.NewRobotForDevice(device)
	if err != nil {
		log.Fatalf("Fatal: Could not create robot instance: %v", err)
	}
	log.Println("Successfully created mock robot instance.")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	updates, err := robot.Connect()
	if err != nil {
		log.Fatalf("Fatal: Could not connect to robot: %v", err)
	}
	log.Println("Connection successful.")

	seq := motion.New(robot)

	// Cycle through the routines in the background while the main goroutine
	// renders battery updates.
	go func() {
		steps := []struct {
			name string
			run  func()
		}{
			{"stand", func() { _ = seq.Stand(ctx) }},
			{"shimmy", func() { seq.Shimmy(ctx) }},
			{"dance", func() { seq.Dance(ctx) }},
			{"spread", func() { seq.Stop(); _ = seq.Spread(ctx) }},
			{"rest", func() { _ = seq.Rest(ctx) }},
		}
		for {
			for _, step := range steps {
				log.Printf("--> %s", step.name)
				step.run()
				select {
				case <-time.After(5 * time.Second):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	go func() {
		<-ctx.Done()
		log.Println("Shutdown signal received. Resting and disconnecting...")
		_ = seq.Rest(context.Background())
		if err := robot.Disconnect(); err != nil {
			log.Printf("Error disconnecting: %v", err)
		}
	}()

	// Run returns once Disconnect closes the update channel.
	monitor := battery.NewMonitor(battery.RendererFunc(func(r battery.Reading) {
		log.Printf("Battery: %s (%s)", r.Label(), r.Tier.Icon())
	}))
	if err := monitor.Run(context.Background(), updates); err != nil {
		log.Printf("Battery monitor stopped: %v", err)
	}

	log.Println("Battery update channel closed. Connection terminated.")
	log.Println("Application finished gracefully.")
}
