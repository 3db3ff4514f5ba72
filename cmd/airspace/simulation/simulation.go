package simulation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/picogrid/atc-simulations/cmd/airspace/config"
	"github.com/picogrid/atc-simulations/cmd/airspace/controllers"
	"github.com/picogrid/atc-simulations/cmd/airspace/core"
	"github.com/picogrid/atc-simulations/cmd/airspace/reporting"
	"github.com/picogrid/atc-simulations/pkg/logger"
	"github.com/picogrid/atc-simulations/pkg/simulation"
)

// Name is the registry key of the airspace simulation
const Name = "airspace"

// Parameters understood by Configure besides the simulation.yaml ones
const (
	ParamConfigFile = "config_file"
	ParamAutoStart  = "auto_start"
	ParamProgress   = "progress"
)

// Operator commands accepted by Command
const (
	CommandSlowAll = "slow-all"
	CommandSwapAll = "swap-all"
	CommandAbort   = "abort"
)

// ErrNotRunning is returned by operator commands issued outside Run
var ErrNotRunning = errors.New("simulation is not running")

// AirspaceSimulation runs the round-robin controller behind the generic
// simulation interface.
type AirspaceSimulation struct {
	config    *config.SimulationConfig
	params    map[string]interface{}
	autoStart bool
	progress  bool
	opts      []controllers.Option

	mu        sync.Mutex
	ctrl      *controllers.Controller
	simLogger *reporting.SimulationLogger
	startGate chan struct{}
	stopChan  chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	reportAt  string
}

var _ simulation.Controllable = (*AirspaceSimulation)(nil)

func init() {
	if err := simulation.DefaultRegistry.Register(Name, NewAirspaceSimulation); err != nil {
		panic(fmt.Sprintf("failed to register simulation: %v", err))
	}
}

// NewAirspaceSimulation creates an unconfigured simulation
func NewAirspaceSimulation() simulation.Simulation {
	return newAirspaceSimulation()
}

func newAirspaceSimulation() *AirspaceSimulation {
	return &AirspaceSimulation{
		config:    config.GetDefaultConfig(),
		startGate: make(chan struct{}),
		stopChan:  make(chan struct{}),
	}
}

// Name returns the simulation name
func (s *AirspaceSimulation) Name() string {
	return "Airspace Round-Robin Control"
}

// Description returns the simulation description
func (s *AirspaceSimulation) Description() string {
	return "Aircraft share one airspace under a round-robin controller that resolves conflicts by slowing, rerouting and finally removing aircraft"
}

// Configure layers defaults, an optional config file, ATC_* environment
// variables and the given parameters, in that order.
func (s *AirspaceSimulation) Configure(params map[string]interface{}) error {
	logger.Info("Configuring airspace simulation...")

	path, _ := params[ParamConfigFile].(string)
	cfg, err := config.LoadConfigWithOverrides(path, params)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if val, ok := params[ParamAutoStart].(bool); ok {
		s.autoStart = val
	}
	if val, ok := params[ParamProgress].(bool); ok {
		s.progress = val
	}

	logger.SetLevel(logger.ParseLevel(cfg.Logging.ConsoleLevel))

	s.config = cfg
	s.params = params
	logger.Debugf("Configuration:\n%s", cfg)
	return nil
}

// Config returns the active configuration
func (s *AirspaceSimulation) Config() *config.SimulationConfig {
	return s.config
}

// ReportPath returns where the last report was written, if any
func (s *AirspaceSimulation) ReportPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reportAt
}

// Run creates the fleet, waits for the start command unless auto start is
// set, and blocks until every aircraft is terminal or ctx is cancelled.
func (s *AirspaceSimulation) Run(ctx context.Context) error {
	cfg := s.config

	var logOpts []reporting.LoggerOption
	if !cfg.Logging.ShowEvents {
		logOpts = append(logOpts, reporting.Quiet())
	}
	switch {
	case s.progress:
		logOpts = append(logOpts, reporting.WithMinSeverity(reporting.SeverityError))
	case cfg.Logging.ConsoleLevel == "debug":
		logOpts = append(logOpts, reporting.WithMinSeverity(reporting.SeverityDebug))
	}
	simLogger := reporting.NewSimulationLogger(logOpts...)

	opts := append([]controllers.Option{controllers.WithEventSink(simLogger)}, s.opts...)
	var bar *logger.ProgressBar
	if s.progress {
		bar = logger.NewProgressBar(cfg.Fleet.AgentCount, "Aircraft finished")
		opts = append(opts, controllers.WithEventSink(core.EventSinkFunc(func(e core.Event) {
			if e.Type == core.EventLanded || e.Type == core.EventAborted {
				bar.Increment()
			}
		})))
	}

	ctrl, err := controllers.New(cfg.ControllerConfig(), opts...)
	if err != nil {
		return fmt.Errorf("failed to create controller: %w", err)
	}
	simLogger.SetCallsigns(ctrl.Snapshot())

	s.mu.Lock()
	s.ctrl = ctrl
	s.simLogger = simLogger
	s.mu.Unlock()
	defer ctrl.Shutdown()

	logger.LogSection(fmt.Sprintf("%s Airspace %s", logger.IconPlane, simLogger.SimulationID()[:8]))
	summary := ctrl.Summary()
	logger.LogKeyValue("Aircraft", fmt.Sprintf("%d registered, %d holding", summary.Counts.Total(), summary.Counts.Holding))
	logger.LogKeyValue("Policies", fmt.Sprintf("heading=%s eligibility=%s collision=%s",
		cfg.Conflict.HeadingPolicy, cfg.Conflict.Eligibility, cfg.Conflict.CollisionPolicy))

	if !s.awaitStart(ctx) {
		ctrl.Shutdown()
		return s.finish(ctrl, simLogger, bar)
	}

	if err := ctrl.Start(ctx); err != nil {
		return fmt.Errorf("failed to start controller: %w", err)
	}

	select {
	case <-ctrl.Done():
	case <-s.stopChan:
	case <-ctx.Done():
	}
	ctrl.Shutdown()
	return s.finish(ctrl, simLogger, bar)
}

// awaitStart blocks until the start command. It reports false when the
// simulation was stopped first.
func (s *AirspaceSimulation) awaitStart(ctx context.Context) bool {
	if s.autoStart {
		s.release()
	}
	select {
	case <-s.startGate:
		return true
	default:
	}

	spinner := logger.NewSpinner("Waiting for start command...")
	spinner.Start()
	defer spinner.Stop()

	select {
	case <-s.startGate:
		return true
	case <-s.stopChan:
		return false
	case <-ctx.Done():
		return false
	}
}

func (s *AirspaceSimulation) finish(ctrl *controllers.Controller, simLogger *reporting.SimulationLogger, bar *logger.ProgressBar) error {
	if bar != nil {
		bar.Finish()
	}

	summary := ctrl.Summary()
	rows := ctrl.Snapshot()
	simLogger.PrintSummary(summary, rows)

	if !s.config.Logging.EnableReport {
		return nil
	}

	cfgMap, err := s.config.ToMap()
	if err != nil {
		logger.Warnf("Report will not include the configuration: %v", err)
	}
	gen := reporting.NewReportGenerator(simLogger, reporting.ReportConfig{
		OutputDir:        s.config.Logging.ReportPath,
		SimulationConfig: cfgMap,
	})
	path, err := gen.Save(gen.Generate(summary, rows))
	if err != nil {
		return fmt.Errorf("failed to save flight report: %w", err)
	}

	s.mu.Lock()
	s.reportAt = path
	s.mu.Unlock()
	return nil
}

// Stop gracefully shuts down the simulation
func (s *AirspaceSimulation) Stop() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	return nil
}

func (s *AirspaceSimulation) release() bool {
	released := false
	s.startOnce.Do(func() {
		close(s.startGate)
		released = true
	})
	return released
}

func (s *AirspaceSimulation) controller() (*controllers.Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctrl == nil {
		return nil, ErrNotRunning
	}
	return s.ctrl, nil
}

// Start releases a simulation waiting for the operator
func (s *AirspaceSimulation) Start() error {
	if !s.release() {
		return errors.New("simulation already started")
	}
	return nil
}

// Pause holds dispatch before the next quantum
func (s *AirspaceSimulation) Pause() error {
	ctrl, err := s.controller()
	if err != nil {
		return err
	}
	ctrl.Pause()
	return nil
}

// Resume continues a paused simulation
func (s *AirspaceSimulation) Resume() error {
	ctrl, err := s.controller()
	if err != nil {
		return err
	}
	ctrl.Resume()
	return nil
}

// Status prints the aircraft table
func (s *AirspaceSimulation) Status() error {
	ctrl, err := s.controller()
	if err != nil {
		return err
	}
	s.mu.Lock()
	simLogger := s.simLogger
	s.mu.Unlock()
	simLogger.PrintStatus(ctrl.Summary(), ctrl.Snapshot())
	return nil
}

// Commands lists the operator commands accepted by Command
func (s *AirspaceSimulation) Commands() []string {
	return []string{CommandSlowAll, CommandSwapAll, CommandAbort + " <id|callsign>"}
}

// Command runs an operator command
func (s *AirspaceSimulation) Command(name string, args ...string) error {
	ctrl, err := s.controller()
	if err != nil {
		return err
	}

	switch name {
	case CommandSlowAll:
		return ctrl.Broadcast(core.SignalSpeed)
	case CommandSwapAll:
		return ctrl.Broadcast(core.SignalLane)
	case CommandAbort:
		if len(args) != 1 {
			return fmt.Errorf("usage: %s <id|callsign>", CommandAbort)
		}
		id, err := resolveAircraft(ctrl.Snapshot(), args[0])
		if err != nil {
			return err
		}
		return ctrl.Abort(id)
	default:
		return fmt.Errorf("unknown command %q", name)
	}
}

func resolveAircraft(rows []controllers.StatusRow, ref string) (core.ID, error) {
	if n, err := strconv.Atoi(ref); err == nil {
		if n <= 0 {
			return core.NoAircraft, fmt.Errorf("invalid aircraft id %d", n)
		}
		return core.ID(n), nil
	}
	for _, r := range rows {
		if strings.EqualFold(r.Callsign, ref) {
			return r.ID, nil
		}
	}
	return core.NoAircraft, fmt.Errorf("no aircraft with callsign %q", ref)
}
