package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/picogrid/atc-simulations/cmd/airspace/controllers"
	"github.com/picogrid/atc-simulations/cmd/airspace/core"
	"github.com/picogrid/atc-simulations/pkg/logger"
)

// ReportGenerator builds the end-of-run flight report
type ReportGenerator struct {
	logger *SimulationLogger
	config ReportConfig
}

// ReportConfig configures report generation
type ReportConfig struct {
	OutputDir        string
	SimulationConfig map[string]interface{} // parameters the run was started with
}

// FlightReport is the JSON document written at the end of a run
type FlightReport struct {
	Metadata ReportMetadata         `json:"metadata"`
	Config   map[string]interface{} `json:"config,omitempty"`
	Summary  ReportSummary          `json:"summary"`
	Aircraft []AircraftOutcome      `json:"aircraft"`
	Timeline []TimelineEntry        `json:"timeline"`
}

// ReportMetadata contains report metadata
type ReportMetadata struct {
	SimulationID    string    `json:"simulation_id"`
	GeneratedAt     time.Time `json:"generated_at"`
	SimulationStart time.Time `json:"simulation_start"`
	Duration        string    `json:"duration"`
	Version         string    `json:"version"`
}

// ReportSummary holds the final counters
type ReportSummary struct {
	Outcome        string         `json:"outcome"`
	FinalState     string         `json:"final_state"`
	SimulatedTime  float64        `json:"simulated_time"`
	Aircraft       int            `json:"aircraft"`
	Landed         int            `json:"landed"`
	Aborted        int            `json:"aborted"`
	Quanta         int            `json:"quanta"`
	IdleQuanta     int            `json:"idle_quanta"`
	Conflicts      int            `json:"conflicts"`
	SpeedSignals   int            `json:"speed_signals"`
	LaneSignals    int            `json:"lane_signals"`
	SpeedRestores  int            `json:"speed_restores"`
	Confirmed      int            `json:"confirmed"`
	Timeouts       int            `json:"timeouts"`
	Collisions     int            `json:"collisions"`
	QueueFull      int            `json:"queue_full"`
	RejectedSpawns int            `json:"rejected_spawns"`
	Broadcasts     int            `json:"broadcasts"`
	OperatorAborts int            `json:"operator_aborts"`
	SignalsSent    uint64         `json:"signals_sent"`
	SignalsDropped uint64         `json:"signals_dropped"`
	EventCounts    map[string]int `json:"event_counts"`
}

// AircraftOutcome describes how one aircraft ended the run
type AircraftOutcome struct {
	ID        core.ID `json:"id"`
	Callsign  string  `json:"callsign"`
	Side      string  `json:"side"`
	Status    string  `json:"status"`
	Reason    string  `json:"reason,omitempty"`
	FinalX    float64 `json:"final_x"`
	FinalY    float64 `json:"final_y"`
	Lane      int     `json:"lane"`
	Conflicts int     `json:"conflicts"`
	Signals   int     `json:"signals"`
}

// TimelineEntry represents an event in the timeline
type TimelineEntry struct {
	Clock    float64 `json:"clock"`
	Elapsed  string  `json:"elapsed"`
	Type     string  `json:"type"`
	Severity string  `json:"severity"`
	Aircraft core.ID `json:"aircraft,omitempty"`
	Partner  core.ID `json:"partner,omitempty"`
	Signal   string  `json:"signal,omitempty"`
	Rung     int     `json:"rung,omitempty"`
	Message  string  `json:"message"`
}

// NewReportGenerator creates a new report generator
func NewReportGenerator(logger *SimulationLogger, config ReportConfig) *ReportGenerator {
	return &ReportGenerator{
		logger: logger,
		config: config,
	}
}

// Generate creates the flight report from the recorded events and the final
// controller state.
func (g *ReportGenerator) Generate(summary controllers.Summary, rows []controllers.StatusRow) *FlightReport {
	events := g.logger.GetEvents()
	start := g.logger.StartTime()

	report := &FlightReport{
		Metadata: ReportMetadata{
			SimulationID:    g.logger.SimulationID(),
			GeneratedAt:     time.Now(),
			SimulationStart: start,
			Duration:        time.Since(start).Round(time.Millisecond).String(),
			Version:         "1.0",
		},
		Config:   g.config.SimulationConfig,
		Summary:  buildSummary(summary, g.logger.EventCounts()),
		Aircraft: buildOutcomes(rows, events),
		Timeline: buildTimeline(events, start),
	}
	return report
}

func buildSummary(s controllers.Summary, counts map[core.EventType]int) ReportSummary {
	byType := make(map[string]int, len(counts))
	for t, n := range counts {
		byType[string(t)] = n
	}

	outcome := "all aircraft landed"
	switch {
	case s.State == controllers.StateStopped:
		outcome = "stopped before completion"
	case s.Counts.Aborted > 0:
		outcome = fmt.Sprintf("%d of %d aircraft aborted", s.Counts.Aborted, s.Counts.Total())
	}

	return ReportSummary{
		Outcome:        outcome,
		FinalState:     s.State.String(),
		SimulatedTime:  s.Clock,
		Aircraft:       s.Counts.Total(),
		Landed:         s.Counts.Landed,
		Aborted:        s.Counts.Aborted,
		Quanta:         s.Stats.Quanta,
		IdleQuanta:     s.Stats.IdleQuanta,
		Conflicts:      s.Stats.Conflicts,
		SpeedSignals:   s.Stats.SpeedSignals,
		LaneSignals:    s.Stats.LaneSignals,
		SpeedRestores:  s.Stats.SpeedRestores,
		Confirmed:      s.Stats.Confirmed,
		Timeouts:       s.Stats.Timeouts,
		Collisions:     s.Stats.Collisions,
		QueueFull:      s.Stats.QueueFull,
		RejectedSpawns: s.Stats.RejectedSpawns,
		Broadcasts:     s.Stats.Broadcasts,
		OperatorAborts: s.Stats.OperatorAborts,
		SignalsSent:    s.Bus.Sent,
		SignalsDropped: s.Bus.Rejected + s.Bus.Discarded,
		EventCounts:    byType,
	}
}

func buildOutcomes(rows []controllers.StatusRow, events []FlightEvent) []AircraftOutcome {
	conflicts := make(map[core.ID]int)
	signals := make(map[core.ID]int)
	for _, e := range events {
		switch e.Type {
		case core.EventConflict:
			conflicts[e.Aircraft]++
			conflicts[e.Partner]++
		case core.EventSignalSent:
			signals[e.Aircraft]++
		}
	}

	out := make([]AircraftOutcome, 0, len(rows))
	for _, r := range rows {
		out = append(out, AircraftOutcome{
			ID:        r.ID,
			Callsign:  r.Callsign,
			Side:      r.Side.String(),
			Status:    r.Status.String(),
			Reason:    r.Reason,
			FinalX:    r.X,
			FinalY:    r.Y,
			Lane:      r.Lane,
			Conflicts: conflicts[r.ID],
			Signals:   signals[r.ID],
		})
	}
	return out
}

func buildTimeline(events []FlightEvent, start time.Time) []TimelineEntry {
	timeline := make([]TimelineEntry, 0, len(events))
	for _, e := range events {
		entry := TimelineEntry{
			Clock:    e.Clock,
			Elapsed:  formatDuration(e.Timestamp.Sub(start)),
			Type:     string(e.Type),
			Severity: e.Severity,
			Aircraft: e.Aircraft,
			Partner:  e.Partner,
			Rung:     e.Rung,
			Message:  e.Message,
		}
		switch e.Type {
		case core.EventSignalSent, core.EventSignalConfirmed, core.EventSignalTimeout, core.EventQueueFull, core.EventBroadcast:
			entry.Signal = e.Signal.String()
		}
		timeline = append(timeline, entry)
	}
	return timeline
}

// Save writes the report as indented JSON and returns the file path
func (g *ReportGenerator) Save(report *FlightReport) (string, error) {
	// Create reports directory if it doesn't exist
	if err := os.MkdirAll(g.config.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}

	timestamp := report.Metadata.GeneratedAt.Format("20060102_150405")
	filename := fmt.Sprintf("flight_report_%s_%s.json", report.Metadata.SimulationID[:8], timestamp)
	path := filepath.Join(g.config.OutputDir, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	logger.Successf("Flight report saved to: %s", path)
	return path, nil
}

func formatDuration(d time.Duration) string {
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	millis := int(d.Milliseconds()) % 1000
	return fmt.Sprintf("%02d:%02d.%03d", minutes, seconds, millis)
}
