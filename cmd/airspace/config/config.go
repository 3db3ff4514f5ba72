package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/picogrid/atc-simulations/cmd/airspace/controllers"
)

// SimulationConfig holds the complete simulation configuration
type SimulationConfig struct {
	// Basic simulation settings
	Simulation SimulationSettings `yaml:"simulation"`

	// Fleet generation
	Fleet FleetConfig `yaml:"fleet"`

	// Dispatch loop and signalling
	Scheduling SchedulingConfig `yaml:"scheduling"`

	// Conflict detection and resolution
	Conflict ConflictConfig `yaml:"conflict"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging"`
}

// SimulationSettings holds basic simulation settings
type SimulationSettings struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Pace        time.Duration `yaml:"pace"` // wall time between quanta
}

// LanesConfig lists the two canonical lanes of each entry side
type LanesConfig struct {
	West []int `yaml:"west"`
	East []int `yaml:"east"`
}

// FleetConfig defines how aircraft are generated
type FleetConfig struct {
	AgentCount            int         `yaml:"agent_count"`
	BaseSpeed             float64     `yaml:"base_speed"`     // unit square per simulated second
	HoldDelayMax          float64     `yaml:"hold_delay_max"` // simulated seconds
	Seed                  int64       `yaml:"seed"`
	FaultyTransponderRate float64     `yaml:"faulty_transponder_rate"` // 0.0 to 1.0
	Lanes                 LanesConfig `yaml:"lanes"`
}

// SchedulingConfig defines the dispatch quantum and signalling bounds
type SchedulingConfig struct {
	Quantum         float64       `yaml:"quantum"` // simulated seconds
	SignalTimeout   time.Duration `yaml:"signal_timeout"`
	InboxSize       int           `yaml:"inbox_size"`
	HoldingCapacity int           `yaml:"holding_capacity"`
}

// ConflictConfig defines conflict detection and navigation policies
type ConflictConfig struct {
	CriticalDistance float64 `yaml:"critical_distance"`
	LandingThreshold float64 `yaml:"landing_threshold"`
	HeadingPolicy    string  `yaml:"heading_policy"`   // "homing", "horizontal"
	Eligibility      string  `yaml:"eligibility"`      // "same_side", "same_lane"
	CollisionPolicy  string  `yaml:"collision_policy"` // "selected", "both"
}

// LoggingConfig defines logging and reporting settings
type LoggingConfig struct {
	ConsoleLevel string `yaml:"console_level"` // "debug", "info", "warn", "error"
	EnableReport bool   `yaml:"enable_report"`
	ReportPath   string `yaml:"report_path"`
	ShowEvents   bool   `yaml:"show_events"`
}

// Validate checks if the configuration is valid
func (c *SimulationConfig) Validate() error {
	if c.Simulation.Name == "" {
		return fmt.Errorf("simulation name is required")
	}

	if c.Simulation.Pace < 0 {
		return fmt.Errorf("pace must not be negative")
	}

	if len(c.Fleet.Lanes.West) != 2 || len(c.Fleet.Lanes.East) != 2 {
		return fmt.Errorf("each side needs exactly two lanes")
	}

	if c.Logging.EnableReport && c.Logging.ReportPath == "" {
		return fmt.Errorf("report path is required when reports are enabled")
	}

	// The controller owns the bounds of everything it consumes
	cc := c.ControllerConfig()
	if err := cc.Validate(); err != nil {
		return err
	}

	return nil
}

// ControllerConfig converts the file layout into controller parameters
func (c *SimulationConfig) ControllerConfig() controllers.Config {
	cc := controllers.Config{
		AgentCount:            c.Fleet.AgentCount,
		Quantum:               c.Scheduling.Quantum,
		CriticalDistance:      c.Conflict.CriticalDistance,
		LandingThreshold:      c.Conflict.LandingThreshold,
		BaseSpeed:             c.Fleet.BaseSpeed,
		Seed:                  c.Fleet.Seed,
		HoldDelayMax:          c.Fleet.HoldDelayMax,
		HeadingPolicy:         c.Conflict.HeadingPolicy,
		Eligibility:           c.Conflict.Eligibility,
		CollisionPolicy:       c.Conflict.CollisionPolicy,
		SignalTimeout:         c.Scheduling.SignalTimeout,
		InboxSize:             c.Scheduling.InboxSize,
		HoldingCapacity:       c.Scheduling.HoldingCapacity,
		Pace:                  c.Simulation.Pace,
		FaultyTransponderRate: c.Fleet.FaultyTransponderRate,
	}
	if len(c.Fleet.Lanes.West) == 2 {
		cc.WestLanes = [2]int{c.Fleet.Lanes.West[0], c.Fleet.Lanes.West[1]}
	}
	if len(c.Fleet.Lanes.East) == 2 {
		cc.EastLanes = [2]int{c.Fleet.Lanes.East[0], c.Fleet.Lanes.East[1]}
	}
	return cc
}

// ToMap returns the configuration as a generic map keyed like the YAML file
func (c *SimulationConfig) ToMap() (map[string]interface{}, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("error marshaling config: %w", err)
	}
	out := make(map[string]interface{})
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("error converting config: %w", err)
	}
	return out, nil
}

// String returns a human-readable representation of the configuration
func (c *SimulationConfig) String() string {
	return fmt.Sprintf(`Simulation Configuration:
  Name: %s
  Description: %s
  Pace: %v

Fleet:
  Aircraft: %d
  Base Speed: %.3f
  Hold Delay Max: %.1fs
  Seed: %d
  Faulty Transponder Rate: %.2f
  Lanes: W%v E%v

Scheduling:
  Quantum: %.2fs
  Signal Timeout: %v
  Inbox Size: %d
  Holding Capacity: %d

Conflict:
  Critical Distance: %.3f
  Landing Threshold: %.3f
  Heading Policy: %s
  Eligibility: %s
  Collision Policy: %s

Logging:
  Console Level: %s
  Report Enabled: %t
  Report Path: %s`,
		c.Simulation.Name,
		c.Simulation.Description,
		c.Simulation.Pace,
		c.Fleet.AgentCount,
		c.Fleet.BaseSpeed,
		c.Fleet.HoldDelayMax,
		c.Fleet.Seed,
		c.Fleet.FaultyTransponderRate,
		c.Fleet.Lanes.West,
		c.Fleet.Lanes.East,
		c.Scheduling.Quantum,
		c.Scheduling.SignalTimeout,
		c.Scheduling.InboxSize,
		c.Scheduling.HoldingCapacity,
		c.Conflict.CriticalDistance,
		c.Conflict.LandingThreshold,
		c.Conflict.HeadingPolicy,
		c.Conflict.Eligibility,
		c.Conflict.CollisionPolicy,
		c.Logging.ConsoleLevel,
		c.Logging.EnableReport,
		c.Logging.ReportPath,
	)
}

// GetDefaultConfig returns the default airspace configuration
func GetDefaultConfig() *SimulationConfig {
	d := controllers.DefaultConfig()
	return &SimulationConfig{
		Simulation: SimulationSettings{
			Name:        "airspace",
			Description: "Round-robin air traffic control with conflict escalation",
			Pace:        50 * time.Millisecond,
		},

		Fleet: FleetConfig{
			AgentCount:            d.AgentCount,
			BaseSpeed:             d.BaseSpeed,
			HoldDelayMax:          d.HoldDelayMax,
			Seed:                  d.Seed,
			FaultyTransponderRate: 0,
			Lanes: LanesConfig{
				West: []int{d.WestLanes[0], d.WestLanes[1]},
				East: []int{d.EastLanes[0], d.EastLanes[1]},
			},
		},

		Scheduling: SchedulingConfig{
			Quantum:         d.Quantum,
			SignalTimeout:   d.SignalTimeout,
			InboxSize:       d.InboxSize,
			HoldingCapacity: d.HoldingCapacity,
		},

		Conflict: ConflictConfig{
			CriticalDistance: d.CriticalDistance,
			LandingThreshold: d.LandingThreshold,
			HeadingPolicy:    d.HeadingPolicy,
			Eligibility:      d.Eligibility,
			CollisionPolicy:  d.CollisionPolicy,
		},

		Logging: LoggingConfig{
			ConsoleLevel: "info",
			EnableReport: true,
			ReportPath:   "./reports/",
			ShowEvents:   true,
		},
	}
}
