package reporting

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picogrid/atc-simulations/cmd/airspace/controllers"
	"github.com/picogrid/atc-simulations/cmd/airspace/core"
)

func sampleRows() []controllers.StatusRow {
	return []controllers.StatusRow{
		{ID: 1, Callsign: "WST001", Side: core.West, X: 0.5, Y: 0.5, Speed: 0.01, Lane: 18, Status: core.Landed},
		{ID: 2, Callsign: "WST002", Side: core.West, X: 0.3, Y: 0.52, Speed: 0.01, Lane: 3, Status: core.Aborted, Reason: "collision"},
	}
}

func sampleEvents() []core.Event {
	return []core.Event{
		{Type: core.EventSpawn, Clock: 0, Aircraft: 1, Message: "spawned"},
		{Type: core.EventConflict, Clock: 1, Aircraft: 1, Partner: 2, Message: "close"},
		{Type: core.EventSignalSent, Clock: 1, Aircraft: 2, Partner: 1, Signal: core.SignalSpeed, Rung: 1, Message: "speed signal sent"},
		{Type: core.EventCollisionFatal, Clock: 3, Aircraft: 2, Partner: 1, Rung: 3, Message: "collision"},
		{Type: core.EventLanded, Clock: 40, Aircraft: 1, Message: "landed"},
	}
}

func TestSimulationLoggerPrintsAboveThreshold(t *testing.T) {
	var buf bytes.Buffer
	sl := NewSimulationLogger(WithOutput(&buf), WithMinSeverity(SeverityWarning))
	sl.SetCallsigns(sampleRows())

	for _, e := range sampleEvents() {
		sl.HandleEvent(e)
	}

	out := buf.String()
	assert.Contains(t, out, "conflict")
	assert.Contains(t, out, "WST002")
	assert.Contains(t, out, "collision_fatal")
	assert.NotContains(t, out, "spawned")
	assert.NotContains(t, out, "landed")

	assert.Len(t, sl.GetEvents(), 5, "recording ignores the print threshold")
	assert.Len(t, sl.SimulationID(), 36)
}

func TestSimulationLoggerQuiet(t *testing.T) {
	var buf bytes.Buffer
	sl := NewSimulationLogger(WithOutput(&buf), Quiet())
	sl.HandleEvent(core.Event{Type: core.EventCollisionFatal, Aircraft: 9})

	assert.Empty(t, buf.String())
	assert.Equal(t, map[core.EventType]int{core.EventCollisionFatal: 1}, sl.EventCounts())
}

func TestSeverityOf(t *testing.T) {
	tests := []struct {
		event core.EventType
		want  string
	}{
		{core.EventCollisionFatal, SeverityCritical},
		{core.EventSignalTimeout, SeverityError},
		{core.EventAborted, SeverityError},
		{core.EventConflict, SeverityWarning},
		{core.EventLanded, SeveritySuccess},
		{core.EventSpawn, SeverityDebug},
		{core.EventSignalSent, SeverityInfo},
		{core.EventBroadcast, SeverityInfo},
	}
	for _, tt := range tests {
		t.Run(string(tt.event), func(t *testing.T) {
			assert.Equal(t, tt.want, severityOf(tt.event))
		})
	}
}

func TestStatusTable(t *testing.T) {
	out := StatusTable(sampleRows()).String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "ID  Callsign  Side"))
	assert.Contains(t, lines[2], "WST001")
	assert.Contains(t, lines[2], "LANDED")
	assert.Contains(t, lines[3], "collision")
}

func TestReportGenerateAndSave(t *testing.T) {
	sl := NewSimulationLogger(Quiet())
	for _, e := range sampleEvents() {
		sl.HandleEvent(e)
	}

	summary := controllers.Summary{
		State:  controllers.StateCompleted,
		Clock:  40,
		Counts: core.Counts{Landed: 1, Aborted: 1},
		Stats:  controllers.Stats{Quanta: 80, Conflicts: 1, SpeedSignals: 1, Collisions: 1},
		Bus:    core.BusStats{Sent: 1, Delivered: 1},
	}

	dir := t.TempDir()
	gen := NewReportGenerator(sl, ReportConfig{
		OutputDir:        dir,
		SimulationConfig: map[string]interface{}{"agent_count": 2},
	})
	report := gen.Generate(summary, sampleRows())

	assert.Equal(t, "1 of 2 aircraft aborted", report.Summary.Outcome)
	assert.Equal(t, "COMPLETED", report.Summary.FinalState)
	assert.Equal(t, 1, report.Summary.EventCounts["conflict"])
	require.Len(t, report.Aircraft, 2)
	assert.Equal(t, 1, report.Aircraft[0].Conflicts)
	assert.Equal(t, 1, report.Aircraft[1].Signals)
	require.Len(t, report.Timeline, 5)
	assert.Equal(t, "speed", report.Timeline[2].Signal)
	assert.Empty(t, report.Timeline[0].Signal)

	path, err := gen.Save(report)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "timeline")
	meta := decoded["metadata"].(map[string]interface{})
	assert.Equal(t, sl.SimulationID(), meta["simulation_id"])
}

func TestReportOutcomeStopped(t *testing.T) {
	s := buildSummary(controllers.Summary{State: controllers.StateStopped, Counts: core.Counts{Aborted: 3}}, nil)
	assert.Equal(t, "stopped before completion", s.Outcome)

	s = buildSummary(controllers.Summary{State: controllers.StateCompleted, Counts: core.Counts{Landed: 3}}, nil)
	assert.Equal(t, "all aircraft landed", s.Outcome)
}
