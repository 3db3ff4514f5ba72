package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/picogrid/atc-simulations/pkg/logger"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "ATC_"

var (
	validHeadings    = []string{"homing", "horizontal"}
	validEligibility = []string{"same_side", "same_lane"}
	validCollision   = []string{"selected", "both"}
	validLevels      = []string{"debug", "info", "warn", "error"}
)

// LoadConfig loads configuration from a YAML file. Keys missing from the
// file keep their default values.
func LoadConfig(path string) (*SimulationConfig, error) {
	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML over the defaults
	config := GetDefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadConfigOrDefault loads config from file or returns default, with environment overrides
func LoadConfigOrDefault(path string) (*SimulationConfig, error) {
	var config *SimulationConfig
	var err error

	if path != "" {
		config, err = LoadConfig(path)
		if err != nil {
			logger.Warnf("Could not load config from %s: %v", path, err)
			config = nil
		}
	}

	// Try default locations if no config loaded yet
	if config == nil {
		defaultPaths := []string{
			"config.yaml",
			"airspace.yaml",
			filepath.Join("cmd", "airspace", "config.yaml"),
		}

		for _, p := range defaultPaths {
			if _, err := os.Stat(p); err == nil {
				config, err = LoadConfig(p)
				if err == nil {
					logger.Debugf("Loaded config from: %s", p)
					break
				}
			}
		}
	}

	// Use default config if still no config loaded
	if config == nil {
		logger.Debug("Using default configuration")
		config = GetDefaultConfig()
	}

	// Always apply environment variable overrides
	MergeWithEnvironment(config)

	return config, nil
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *SimulationConfig, path string) error {
	// Validate before saving
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

func oneOf(value string, valid []string) (string, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, v := range valid {
		if value == v {
			return v, true
		}
	}
	return "", false
}

func asInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

func asFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

func asDuration(value interface{}) (time.Duration, bool) {
	switch v := value.(type) {
	case time.Duration:
		return v, true
	case string:
		d, err := time.ParseDuration(v)
		return d, err == nil
	}
	return 0, false
}

// MergeWithCLIOverrides applies CLI parameter overrides to the configuration.
// Keys match the parameter names in simulation.yaml.
func MergeWithCLIOverrides(config *SimulationConfig, overrides map[string]interface{}) {
	for key, value := range overrides {
		switch key {
		case "agent_count":
			if count, ok := asInt(value); ok && count > 0 {
				config.Fleet.AgentCount = count
			}
		case "base_speed":
			if speed, ok := asFloat(value); ok && speed > 0 {
				config.Fleet.BaseSpeed = speed
			}
		case "hold_delay_max":
			if delay, ok := asFloat(value); ok && delay >= 0 {
				config.Fleet.HoldDelayMax = delay
			}
		case "seed":
			if seed, ok := asInt(value); ok {
				config.Fleet.Seed = int64(seed)
			}
		case "faulty_transponder_rate":
			if rate, ok := asFloat(value); ok && rate >= 0 && rate <= 1 {
				config.Fleet.FaultyTransponderRate = rate
			}
		case "quantum":
			if q, ok := asFloat(value); ok && q > 0 {
				config.Scheduling.Quantum = q
			}
		case "signal_timeout":
			if d, ok := asDuration(value); ok && d > 0 {
				config.Scheduling.SignalTimeout = d
			}
		case "holding_capacity":
			if n, ok := asInt(value); ok && n > 0 {
				config.Scheduling.HoldingCapacity = n
			}
		case "critical_distance":
			if d, ok := asFloat(value); ok && d > 0 {
				config.Conflict.CriticalDistance = d
			}
		case "landing_threshold":
			if d, ok := asFloat(value); ok && d > 0 {
				config.Conflict.LandingThreshold = d
			}
		case "heading_policy":
			if s, ok := value.(string); ok {
				if v, ok := oneOf(s, validHeadings); ok {
					config.Conflict.HeadingPolicy = v
				}
			}
		case "eligibility":
			if s, ok := value.(string); ok {
				if v, ok := oneOf(s, validEligibility); ok {
					config.Conflict.Eligibility = v
				}
			}
		case "collision_policy":
			if s, ok := value.(string); ok {
				if v, ok := oneOf(s, validCollision); ok {
					config.Conflict.CollisionPolicy = v
				}
			}
		case "pace":
			if d, ok := asDuration(value); ok && d >= 0 {
				config.Simulation.Pace = d
			}
		case "enable_report":
			if enable, ok := value.(bool); ok {
				config.Logging.EnableReport = enable
			}
		case "show_events":
			if enable, ok := value.(bool); ok {
				config.Logging.ShowEvents = enable
			}
		case "log_level":
			if s, ok := value.(string); ok {
				if v, ok := oneOf(s, validLevels); ok {
					config.Logging.ConsoleLevel = v
				}
			}
		}
	}
}

// LoadConfigWithOverrides loads config and applies both environment and CLI overrides
func LoadConfigWithOverrides(path string, cliOverrides map[string]interface{}) (*SimulationConfig, error) {
	config, err := LoadConfigOrDefault(path)
	if err != nil {
		return nil, err
	}

	// Apply CLI overrides after environment variables
	if cliOverrides != nil {
		MergeWithCLIOverrides(config, cliOverrides)
	}

	// Final validation
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed after overrides: %w", err)
	}

	return config, nil
}

func env(name string) string {
	return os.Getenv(EnvPrefix + name)
}

// MergeWithEnvironment merges config with ATC_* environment variables
func MergeWithEnvironment(config *SimulationConfig) {
	// Fleet
	if v := env("AGENT_COUNT"); v != "" {
		if count, err := strconv.Atoi(v); err == nil && count > 0 {
			config.Fleet.AgentCount = count
		}
	}

	if v := env("BASE_SPEED"); v != "" {
		if speed, err := strconv.ParseFloat(v, 64); err == nil && speed > 0 {
			config.Fleet.BaseSpeed = speed
		}
	}

	if v := env("HOLD_DELAY_MAX"); v != "" {
		if delay, err := strconv.ParseFloat(v, 64); err == nil && delay >= 0 {
			config.Fleet.HoldDelayMax = delay
		}
	}

	if v := env("SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.Fleet.Seed = seed
		}
	}

	if v := env("FAULTY_TRANSPONDER_RATE"); v != "" {
		if rate, err := strconv.ParseFloat(v, 64); err == nil && rate >= 0 && rate <= 1 {
			config.Fleet.FaultyTransponderRate = rate
		}
	}

	// Scheduling
	if v := env("QUANTUM"); v != "" {
		if q, err := strconv.ParseFloat(v, 64); err == nil && q > 0 {
			config.Scheduling.Quantum = q
		}
	}

	if v := env("SIGNAL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			config.Scheduling.SignalTimeout = d
		}
	}

	if v := env("PACE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			config.Simulation.Pace = d
		}
	}

	// Conflict
	if v := env("CRITICAL_DISTANCE"); v != "" {
		if d, err := strconv.ParseFloat(v, 64); err == nil && d > 0 {
			config.Conflict.CriticalDistance = d
		}
	}

	if v := env("HEADING_POLICY"); v != "" {
		if p, ok := oneOf(v, validHeadings); ok {
			config.Conflict.HeadingPolicy = p
		}
	}

	if v := env("ELIGIBILITY"); v != "" {
		if p, ok := oneOf(v, validEligibility); ok {
			config.Conflict.Eligibility = p
		}
	}

	if v := env("COLLISION_POLICY"); v != "" {
		if p, ok := oneOf(v, validCollision); ok {
			config.Conflict.CollisionPolicy = p
		}
	}

	// Logging and reports
	if v := env("LOG_LEVEL"); v != "" {
		if level, ok := oneOf(v, validLevels); ok {
			config.Logging.ConsoleLevel = level
		}
	}

	if v := env("ENABLE_REPORT"); v != "" {
		if enable, err := strconv.ParseBool(v); err == nil {
			config.Logging.EnableReport = enable
		}
	}

	if v := env("REPORT_PATH"); v != "" {
		config.Logging.ReportPath = v
	}
}
