package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/picogrid/atc-simulations/pkg/simulation"
)

func TestDiscoverShippedSimulation(t *testing.T) {
	infos, err := DiscoverSimulations()
	if err != nil {
		t.Fatalf("DiscoverSimulations: %v", err)
	}

	info, err := FindSimulation(infos, "airspace")
	if err != nil {
		t.Fatalf("FindSimulation: %v", err)
	}
	if len(info.Config.Parameters) == 0 {
		t.Error("expected airspace parameters")
	}
	count, ok := info.Config.Parameter("agent_count")
	if !ok || count.Type != "integer" {
		t.Errorf("agent_count parameter = %+v, %v", count, ok)
	}
	if _, ok := info.Config.Parameter("nope"); ok {
		t.Error("unexpected parameter nope")
	}
	if _, err := FindSimulation(infos, "missing"); err == nil {
		t.Error("expected error for unknown simulation")
	}
}

func TestDiscoverSkipsBrokenFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(rel, body string) {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write("zeta/simulation.yaml", "name: zeta\n")
	write("alpha/simulation.yaml", "name: alpha\nparameters:\n  - name: n\n    type: integer\n")
	write("broken/simulation.yaml", "name: [unterminated\n")
	write("unnamed/simulation.yaml", "description: nothing\n")

	infos, err := DiscoverSimulationsIn(dir)
	if err != nil {
		t.Fatalf("DiscoverSimulationsIn: %v", err)
	}
	if len(infos) != 2 || infos[0].Config.Name != "alpha" || infos[1].Config.Name != "zeta" {
		t.Fatalf("unexpected simulations %+v", infos)
	}
	if infos[0].Path != filepath.Join(dir, "alpha") {
		t.Errorf("Path = %s", infos[0].Path)
	}
}

func testParams() []simulation.Parameter {
	return []simulation.Parameter{
		{Name: "agent_count", Type: "integer", Default: 10, Min: 1, Max: 100, Required: true},
		{Name: "critical_distance", Type: "float", Default: 0.1, Min: 0.001, Max: 0.99},
		{Name: "collision_policy", Type: "string", Default: "selected", Options: []string{"selected", "both"}},
		{Name: "signal_timeout", Type: "duration", Default: "1s"},
		{Name: "enable_report", Type: "boolean", Default: true},
		{Name: "optional", Type: "string"},
	}
}

func TestResolveParameters(t *testing.T) {
	t.Setenv("ATC_CRITICAL_DISTANCE", "0.25")

	got, err := ResolveParameters(testParams(), map[string]interface{}{
		"agent_count":    4,
		"signal_timeout": "250ms",
	})
	if err != nil {
		t.Fatalf("ResolveParameters: %v", err)
	}

	if got["agent_count"] != 4 {
		t.Errorf("agent_count = %v", got["agent_count"])
	}
	if got["critical_distance"] != 0.25 {
		t.Errorf("critical_distance = %v, environment should win", got["critical_distance"])
	}
	if got["collision_policy"] != "selected" {
		t.Errorf("collision_policy = %v", got["collision_policy"])
	}
	if got["signal_timeout"] != 250*time.Millisecond {
		t.Errorf("signal_timeout = %v", got["signal_timeout"])
	}
	if got["enable_report"] != true {
		t.Errorf("enable_report = %v", got["enable_report"])
	}
	if _, ok := got["optional"]; ok {
		t.Error("optional parameter without default should be omitted")
	}
}

func TestResolveParametersErrors(t *testing.T) {
	tests := []struct {
		name    string
		presets map[string]interface{}
		env     map[string]string
	}{
		{"above max", map[string]interface{}{"agent_count": 500}, nil},
		{"unknown option", map[string]interface{}{"collision_policy": "neither"}, nil},
		{"bad duration", map[string]interface{}{"signal_timeout": "soon"}, nil},
		{"bad environment", nil, map[string]string{"ATC_AGENT_COUNT": "many"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := ResolveParameters(testParams(), tt.presets); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestResolveParametersRequired(t *testing.T) {
	params := []simulation.Parameter{{Name: "callsign", Type: "string", Required: true}}
	if _, err := ResolveParameters(params, nil); err == nil {
		t.Error("expected error for required parameter without default")
	}
}

func TestPromptSkippedInAutomation(t *testing.T) {
	t.Setenv(SkipPromptsEnv, "true")
	t.Setenv("ATC_AGENT_COUNT", "7")

	got, err := PromptForParameters(testParams(), nil)
	if err != nil {
		t.Fatalf("PromptForParameters: %v", err)
	}
	if got["agent_count"] != 7 {
		t.Errorf("agent_count = %v", got["agent_count"])
	}
}

func TestParsedValidator(t *testing.T) {
	validate := parsedValidator(simulation.Parameter{Name: "n", Type: "integer", Min: 1, Max: 3})

	if err := validate("2"); err != nil {
		t.Errorf("2 should be valid: %v", err)
	}
	if err := validate("9"); err == nil {
		t.Error("9 should be out of range")
	}
	if err := validate("two"); err == nil {
		t.Error("two should not parse")
	}
}
