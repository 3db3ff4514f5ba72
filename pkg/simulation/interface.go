package simulation

import (
	"context"
)

// Simulation defines the interface that all simulations must implement
type Simulation interface {
	// Name returns the name of the simulation
	Name() string

	// Description returns a brief description of what the simulation does
	Description() string

	// Configure sets up the simulation with the provided parameters
	Configure(params map[string]interface{}) error

	// Run executes the simulation until it completes or ctx is cancelled
	Run(ctx context.Context) error

	// Stop gracefully shuts down the simulation
	Stop() error
}

// Controllable is implemented by simulations that accept operator commands
// while Run is in progress.
type Controllable interface {
	Simulation

	// Start releases a simulation that is waiting for the operator
	Start() error

	// Pause holds the simulation before its next step
	Pause() error

	// Resume continues a paused simulation
	Resume() error

	// Status prints the current state of the simulation
	Status() error

	// Command runs a simulation-specific operator command with arguments
	Command(name string, args ...string) error

	// Commands lists the names accepted by Command
	Commands() []string
}
