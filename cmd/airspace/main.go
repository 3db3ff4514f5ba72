package main

import (
	"fmt"
	"os"

	// Import to register the simulation
	_ "github.com/picogrid/atc-simulations/cmd/airspace/simulation"
)

func main() {
	fmt.Println("Airspace simulation registered. Use 'atc-sim run' to execute.")
	os.Exit(0)
}
