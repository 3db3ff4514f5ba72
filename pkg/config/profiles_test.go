package config

import (
	"path/filepath"
	"testing"
)

func TestLoadProfilesDefaultsWhenMissing(t *testing.T) {
	profiles, err := LoadProfilesFromFile(filepath.Join(t.TempDir(), "profiles.yaml"))
	if err != nil {
		t.Fatalf("LoadProfilesFromFile: %v", err)
	}

	want := []string{"calm", "faulty-transponders", "rush-hour"}
	got := profiles.Names()
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestProfilesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "profiles.yaml")
	profiles := &Profiles{}

	if err := profiles.Add(Profile{
		Name:       "night",
		Simulation: "airspace",
		Parameters: map[string]interface{}{"agent_count": 2, "pace": "10ms"},
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	profiles.Selected = "night"

	if err := SaveProfilesToFile(profiles, path); err != nil {
		t.Fatalf("SaveProfilesToFile: %v", err)
	}

	loaded, err := LoadProfilesFromFile(path)
	if err != nil {
		t.Fatalf("LoadProfilesFromFile: %v", err)
	}
	night, ok := loaded.Find("night")
	if !ok {
		t.Fatal("saved profile not found")
	}
	if night.Parameters["agent_count"] != 2 || night.Parameters["pace"] != "10ms" {
		t.Errorf("unexpected parameters %v", night.Parameters)
	}
	if loaded.Selected != "night" {
		t.Errorf("Selected = %q, want night", loaded.Selected)
	}
}

func TestProfilesAddRemove(t *testing.T) {
	profiles := getDefaultProfiles()

	tests := []struct {
		name    string
		profile Profile
		wantErr bool
	}{
		{"new profile", Profile{Name: "storm", Simulation: "airspace"}, false},
		{"duplicate", Profile{Name: "calm", Simulation: "airspace"}, true},
		{"missing name", Profile{Simulation: "airspace"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := profiles.Add(tt.profile)
			if (err != nil) != tt.wantErr {
				t.Errorf("Add() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	profiles.Selected = "storm"
	if !profiles.Remove("storm") {
		t.Error("expected storm to be removed")
	}
	if profiles.Selected != "" {
		t.Error("removing the selected profile should clear the selection")
	}
	if profiles.Remove("storm") {
		t.Error("second removal should report false")
	}
	if n := len(profiles.ForSimulation("airspace")); n != 3 {
		t.Errorf("expected 3 airspace profiles, got %d", n)
	}
}

func TestDirUsesHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir, err := Dir()
	if err != nil {
		t.Fatalf("Dir: %v", err)
	}
	if dir != filepath.Join(home, DirName) {
		t.Errorf("Dir() = %s", dir)
	}

	profiles, err := LoadProfiles()
	if err != nil {
		t.Fatalf("LoadProfiles: %v", err)
	}
	if err := SaveProfiles(profiles); err != nil {
		t.Fatalf("SaveProfiles: %v", err)
	}
}
