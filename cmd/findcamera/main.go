package main

import (
	"flag"
	"fmt"
	"os"

	"blockcam/internal/service/camera/device"
)

func main() {
	limit := flag.Int("max", 10, "Highest device index to try")
	flag.Parse()

	fmt.Println("Searching for cameras...")
	found := device.Probe(*limit)
	if len(found) == 0 {
		fmt.Println("No camera found")
		os.Exit(1)
	}
	for _, idx := range found {
		fmt.Printf("Camera index %d is available\n", idx)
	}
	fmt.Printf("Set CAMERA_INDEXES=%d to use the first one\n", found[0])
}
