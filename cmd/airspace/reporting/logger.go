package reporting

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/picogrid/atc-simulations/cmd/airspace/controllers"
	"github.com/picogrid/atc-simulations/cmd/airspace/core"
	"github.com/picogrid/atc-simulations/pkg/logger"
)

// SimulationLogger records controller events for the flight report and
// prints them as they happen.
type SimulationLogger struct {
	simulationID string
	startTime    time.Time
	out          io.Writer
	show         bool
	minSeverity  int
	callsigns    map[core.ID]string
	events       []FlightEvent
	mu           sync.RWMutex
}

// FlightEvent is a controller event stamped with wall time and severity
type FlightEvent struct {
	core.Event
	Timestamp time.Time
	Severity  string
}

// Severity constants
const (
	SeverityDebug    = "debug"
	SeverityInfo     = "info"
	SeveritySuccess  = "success"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

var severityRank = map[string]int{
	SeverityDebug:    0,
	SeverityInfo:     1,
	SeveritySuccess:  1,
	SeverityWarning:  2,
	SeverityError:    3,
	SeverityCritical: 4,
}

// Color definitions
var (
	colorDebug    = color.New(color.FgHiBlack)
	colorInfo     = color.New(color.FgCyan)
	colorWarning  = color.New(color.FgYellow)
	colorError    = color.New(color.FgRed)
	colorCritical = color.New(color.FgRed, color.Bold)
	colorSuccess  = color.New(color.FgGreen)
	colorWest     = color.New(color.FgBlue, color.Bold)
	colorEast     = color.New(color.FgMagenta, color.Bold)
)

const maxEvents = 10000

// LoggerOption customizes a SimulationLogger
type LoggerOption func(*SimulationLogger)

// WithOutput sends printed events to w instead of stdout
func WithOutput(w io.Writer) LoggerOption {
	return func(sl *SimulationLogger) { sl.out = w }
}

// Quiet records events without printing them
func Quiet() LoggerOption {
	return func(sl *SimulationLogger) { sl.show = false }
}

// WithMinSeverity hides printed events below severity. Recording is not
// affected.
func WithMinSeverity(severity string) LoggerOption {
	return func(sl *SimulationLogger) { sl.minSeverity = severityRank[severity] }
}

// NewSimulationLogger creates a logger for one run with a fresh run id
func NewSimulationLogger(opts ...LoggerOption) *SimulationLogger {
	sl := &SimulationLogger{
		simulationID: uuid.New().String(),
		startTime:    time.Now(),
		out:          os.Stdout,
		show:         true,
		minSeverity:  severityRank[SeverityInfo],
		callsigns:    make(map[core.ID]string),
	}
	for _, opt := range opts {
		opt(sl)
	}
	return sl
}

// SimulationID returns the run id
func (sl *SimulationLogger) SimulationID() string {
	return sl.simulationID
}

// StartTime returns when the logger was created
func (sl *SimulationLogger) StartTime() time.Time {
	return sl.startTime
}

// SetCallsigns lets printed events name aircraft by callsign
func (sl *SimulationLogger) SetCallsigns(rows []controllers.StatusRow) {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	for _, r := range rows {
		sl.callsigns[r.ID] = r.Callsign
	}
}

// HandleEvent implements core.EventSink
func (sl *SimulationLogger) HandleEvent(e core.Event) {
	fe := FlightEvent{Event: e, Timestamp: time.Now(), Severity: severityOf(e.Type)}

	sl.mu.Lock()
	sl.events = append(sl.events, fe)
	// Keep only the most recent events
	if len(sl.events) > maxEvents {
		sl.events = sl.events[len(sl.events)-maxEvents:]
	}
	show := sl.show && severityRank[fe.Severity] >= sl.minSeverity
	name := sl.nameLocked(e.Aircraft)
	sl.mu.Unlock()

	if show {
		sl.printEvent(fe, name)
	}
}

func (sl *SimulationLogger) nameLocked(id core.ID) string {
	if id == core.NoAircraft {
		return "-"
	}
	if cs, ok := sl.callsigns[id]; ok {
		return cs
	}
	return fmt.Sprintf("#%d", id)
}

func severityOf(t core.EventType) string {
	switch t {
	case core.EventCollisionFatal:
		return SeverityCritical
	case core.EventSignalTimeout, core.EventAborted:
		return SeverityError
	case core.EventConflict, core.EventQueueFull:
		return SeverityWarning
	case core.EventLanded, core.EventSpeedRestored, core.EventCompleted:
		return SeveritySuccess
	case core.EventSpawn, core.EventRelease, core.EventSignalConfirmed:
		return SeverityDebug
	default:
		return SeverityInfo
	}
}

func severityColor(severity string) *color.Color {
	switch severity {
	case SeverityDebug:
		return colorDebug
	case SeverityWarning:
		return colorWarning
	case SeverityError:
		return colorError
	case SeverityCritical:
		return colorCritical
	case SeveritySuccess:
		return colorSuccess
	default:
		return colorInfo
	}
}

// printEvent logs a message with color based on severity
func (sl *SimulationLogger) printEvent(fe FlightEvent, name string) {
	_, _ = fmt.Fprintf(sl.out, "[%s] %s t=%-7.1f %-16s %-8s | %s\n",
		fe.Timestamp.Format("15:04:05.000"),
		severityColor(fe.Severity).Sprintf("%-8s", fe.Severity),
		fe.Clock,
		fe.Type,
		name,
		fe.Message)
}

// GetEvents returns all recorded events
func (sl *SimulationLogger) GetEvents() []FlightEvent {
	sl.mu.RLock()
	defer sl.mu.RUnlock()

	events := make([]FlightEvent, len(sl.events))
	copy(events, sl.events)
	return events
}

// EventCounts counts recorded events by type
func (sl *SimulationLogger) EventCounts() map[core.EventType]int {
	sl.mu.RLock()
	defer sl.mu.RUnlock()

	counts := make(map[core.EventType]int)
	for _, e := range sl.events {
		counts[e.Type]++
	}
	return counts
}

func sideColor(side core.Side) *color.Color {
	if side == core.East {
		return colorEast
	}
	return colorWest
}

// StatusTable renders snapshot rows the way the status command prints them
func StatusTable(rows []controllers.StatusRow) *logger.Table {
	table := logger.NewTable("ID", "Callsign", "Side", "X", "Y", "Speed", "Lane", "Status", "Reason")
	for _, r := range rows {
		table.AddRow(
			fmt.Sprintf("%d", r.ID),
			r.Callsign,
			r.Side.String(),
			fmt.Sprintf("%.3f", r.X),
			fmt.Sprintf("%.3f", r.Y),
			fmt.Sprintf("%.4f", r.Speed),
			fmt.Sprintf("%d", r.Lane),
			r.Status.String(),
			r.Reason,
		)
	}
	return table
}

// PrintStatus prints the snapshot table with a header line
func (sl *SimulationLogger) PrintStatus(summary controllers.Summary, rows []controllers.StatusRow) {
	logger.LogSubSection(fmt.Sprintf("%s Status at t=%.1f (%s)", logger.IconRadar, summary.Clock, summary.State))
	logger.LogKeyValue("Holding/Flying/Landed/Aborted", fmt.Sprintf("%d/%d/%d/%d",
		summary.Counts.Holding, summary.Counts.Flying, summary.Counts.Landed, summary.Counts.Aborted))
	StatusTable(rows).Print()
}

// PrintSummary prints the end-of-run summary
func (sl *SimulationLogger) PrintSummary(summary controllers.Summary, rows []controllers.StatusRow) {
	logger.LogSection(fmt.Sprintf("FLIGHT SUMMARY - %s", sl.simulationID[:8]))

	st := summary.Stats
	values := map[string]interface{}{
		"Final state":       summary.State,
		"Simulated time":    fmt.Sprintf("%.1fs", summary.Clock),
		"Wall time":         time.Since(sl.startTime).Round(time.Millisecond),
		"Landed":            summary.Counts.Landed,
		"Aborted":           summary.Counts.Aborted,
		"Conflicts":         st.Conflicts,
		"Speed signals":     st.SpeedSignals,
		"Lane signals":      st.LaneSignals,
		"Speed restores":    st.SpeedRestores,
		"Signal timeouts":   st.Timeouts,
		"Collisions":        st.Collisions,
		"Rejected spawns":   st.RejectedSpawns,
		"Quanta (idle)":     fmt.Sprintf("%d (%d)", st.Quanta, st.IdleQuanta),
		"Signals delivered": fmt.Sprintf("%d/%d", summary.Bus.Delivered, summary.Bus.Sent),
	}
	logger.LogKeyValues([]string{
		"Final state", "Simulated time", "Wall time", "Landed", "Aborted",
		"Conflicts", "Speed signals", "Lane signals", "Speed restores",
		"Signal timeouts", "Collisions", "Rejected spawns", "Quanta (idle)",
		"Signals delivered",
	}, values)

	counts := sl.EventCounts()
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, string(t))
	}
	sort.Strings(types)
	items := make([]string, 0, len(types))
	for _, t := range types {
		items = append(items, fmt.Sprintf("%-18s %d", t, counts[core.EventType(t)]))
	}
	logger.LogList("Event distribution:", items)

	var aborted []string
	for _, r := range rows {
		if r.Status == core.Aborted {
			aborted = append(aborted, fmt.Sprintf("%s %s: %s", sideColor(r.Side).Sprint(r.Callsign), logger.IconArrow, r.Reason))
		}
	}
	if len(aborted) > 0 {
		logger.LogList("Aborted aircraft:", aborted)
	}
}
