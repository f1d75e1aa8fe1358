package main

import (
	"fmt"
	"log"
	"time"

	"github.com/mlsorensen/purpleeye"
	_ "github.com/mlsorensen/purpleeye/pkg/robots/all"
)

func main() {
	log.Println("--- Purple Eye Scanner ---")

	scanDuration := 15 * time.Second
	log.Printf("Starting BLE scan for %s...", scanDuration)
	log.Println("Turn on your robot now.")

	// Scan matches every robot advertising a registered control service, plus any
	// device whose name starts with a registered prefix (e.g. "MOCK").
	devices, err := purpleeye.Scan(scanDuration)
	if err != nil {
		log.Fatalf("Fatal: Scan failed: %v", err)
	}

	// --- Print the results ---
	if len(devices) == 0 {
		log.Println("\nScan complete. No supported devices found.")
		log.Println("Tip: Make sure the robot is on and not connected to another controller.")
	} else {
		fmt.Println("\n--- Found Supported Devices ---")
		for i, device := range devices {
			fmt.Printf("%d: Name: %s\n", i+1, device.Name)
			fmt.Printf("   ID:   %s\n", device.ID)
			fmt.Printf("   RSSI: %d\n\n", device.RSSI)
		}
		fmt.Println("-----------------------------")
	}
}
