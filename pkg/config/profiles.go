package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// DirName is the per-user directory holding CLI state
const DirName = ".atc-sim"

const profilesFile = "profiles.yaml"

// Profile is a named set of simulation parameters
type Profile struct {
	Name        string                 `yaml:"name"`
	Simulation  string                 `yaml:"simulation"`
	Description string                 `yaml:"description,omitempty"`
	Parameters  map[string]interface{} `yaml:"parameters"`
}

// Profiles holds the saved profiles
type Profiles struct {
	Profiles []Profile `yaml:"profiles"`
	Selected string    `yaml:"selected,omitempty"`
}

// Dir returns the per-user CLI directory
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, DirName), nil
}

// LoadProfiles loads profiles from the default location
func LoadProfiles() (*Profiles, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return LoadProfilesFromFile(filepath.Join(dir, profilesFile))
}

// LoadProfilesFromFile loads profiles from a specific file
func LoadProfilesFromFile(path string) (*Profiles, error) {
	// If file doesn't exist, return the built-in profiles
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return getDefaultProfiles(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles file: %w", err)
	}

	var profiles Profiles
	if err := yaml.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("failed to parse profiles file: %w", err)
	}

	return &profiles, nil
}

// SaveProfiles saves profiles to the default location
func SaveProfiles(profiles *Profiles) error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return SaveProfilesToFile(profiles, filepath.Join(dir, profilesFile))
}

// SaveProfilesToFile saves profiles to a specific file
func SaveProfilesToFile(profiles *Profiles, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(profiles)
	if err != nil {
		return fmt.Errorf("failed to marshal profiles: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write profiles file: %w", err)
	}

	return nil
}

// Find returns the profile called name
func (p *Profiles) Find(name string) (*Profile, bool) {
	for i := range p.Profiles {
		if p.Profiles[i].Name == name {
			return &p.Profiles[i], true
		}
	}
	return nil, false
}

// Add appends a profile, rejecting duplicate names
func (p *Profiles) Add(profile Profile) error {
	if profile.Name == "" {
		return fmt.Errorf("profile name is required")
	}
	if _, exists := p.Find(profile.Name); exists {
		return fmt.Errorf("profile %s already exists", profile.Name)
	}
	p.Profiles = append(p.Profiles, profile)
	return nil
}

// Remove deletes the profile called name and reports whether it existed
func (p *Profiles) Remove(name string) bool {
	kept := make([]Profile, 0, len(p.Profiles))
	for _, profile := range p.Profiles {
		if profile.Name != name {
			kept = append(kept, profile)
		}
	}
	removed := len(kept) != len(p.Profiles)
	p.Profiles = kept
	if removed && p.Selected == name {
		p.Selected = ""
	}
	return removed
}

// Names returns the profile names in sorted order
func (p *Profiles) Names() []string {
	names := make([]string, 0, len(p.Profiles))
	for _, profile := range p.Profiles {
		names = append(names, profile.Name)
	}
	sort.Strings(names)
	return names
}

// ForSimulation returns the profiles that apply to the named simulation
func (p *Profiles) ForSimulation(simulation string) []Profile {
	var out []Profile
	for _, profile := range p.Profiles {
		if profile.Simulation == simulation {
			out = append(out, profile)
		}
	}
	return out
}

// getDefaultProfiles returns the built-in profiles
func getDefaultProfiles() *Profiles {
	return &Profiles{
		Profiles: []Profile{
			{
				Name:        "calm",
				Simulation:  "airspace",
				Description: "A handful of aircraft released at once",
				Parameters: map[string]interface{}{
					"agent_count":    5,
					"hold_delay_max": 0.0,
				},
			},
			{
				Name:        "rush-hour",
				Simulation:  "airspace",
				Description: "Dense traffic with staggered releases",
				Parameters: map[string]interface{}{
					"agent_count":    60,
					"hold_delay_max": 30.0,
				},
			},
			{
				Name:        "faulty-transponders",
				Simulation:  "airspace",
				Description: "One aircraft in five ignores controller signals",
				Parameters: map[string]interface{}{
					"agent_count":             20,
					"faulty_transponder_rate": 0.2,
				},
			},
		},
	}
}
