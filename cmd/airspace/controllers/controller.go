package controllers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/picogrid/atc-simulations/cmd/airspace/core"
	"github.com/picogrid/atc-simulations/pkg/logger"
	"github.com/picogrid/atc-simulations/pkg/rand"
)

// State is the controller lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateDispatching
	StateExecuting
	StateConflictCheck
	StateCompleted
	StateStopped
)

var stateNames = map[State]string{
	StateIdle:          "IDLE",
	StateDispatching:   "DISPATCHING",
	StateExecuting:     "EXECUTING",
	StateConflictCheck: "CONFLICT_CHECK",
	StateCompleted:     "COMPLETED",
	StateStopped:       "STOPPED",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// Finished reports whether the loop has exited for good.
func (s State) Finished() bool {
	return s == StateCompleted || s == StateStopped
}

// Eligibility policies
const (
	EligibilitySameSide = "same_side"
	EligibilitySameLane = "same_lane"
)

// Collision policies
const (
	CollisionSelected = "selected"
	CollisionBoth     = "both"
)

// Config holds the controller configuration
type Config struct {
	AgentCount            int
	Quantum               float64 // simulated seconds per granted quantum
	CriticalDistance      float64
	LandingThreshold      float64
	BaseSpeed             float64 // unit square per simulated second
	Seed                  int64
	HoldDelayMax          float64
	HeadingPolicy         string // "homing", "horizontal"
	Eligibility           string // "same_side", "same_lane"
	CollisionPolicy       string // "selected", "both"
	SignalTimeout         time.Duration
	InboxSize             int
	HoldingCapacity       int
	Pace                  time.Duration // wall time between quanta, 0 runs flat out
	FaultyTransponderRate float64
	WestLanes             [2]int
	EastLanes             [2]int
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		AgentCount:       10,
		Quantum:          0.2,
		CriticalDistance: 0.1,
		LandingThreshold: 0.01,
		BaseSpeed:        0.05,
		Seed:             1,
		HoldDelayMax:     5,
		HeadingPolicy:    "homing",
		Eligibility:      EligibilitySameSide,
		CollisionPolicy:  CollisionSelected,
		SignalTimeout:    200 * time.Millisecond,
		InboxSize:        8,
		HoldingCapacity:  core.MaxAircraft,
		WestLanes:        [2]int{3, 18},
		EastLanes:        [2]int{6, 27},
	}
}

func invalid(format string, args ...interface{}) error {
	return core.NewError(core.KindInvalidConfiguration, core.NoAircraft, format, args...)
}

// Validate checks every parameter against its bounds.
func (c Config) Validate() error {
	if c.AgentCount < 1 || c.AgentCount > core.MaxAircraft {
		return invalid("agent count %d outside 1..%d", c.AgentCount, core.MaxAircraft)
	}
	if c.Quantum <= 0 {
		return invalid("quantum must be positive")
	}
	if c.CriticalDistance <= 0 || c.CriticalDistance >= 1 {
		return invalid("critical distance %v outside (0,1)", c.CriticalDistance)
	}
	if c.LandingThreshold <= 0 || c.LandingThreshold >= 0.5 {
		return invalid("landing threshold %v outside (0,0.5)", c.LandingThreshold)
	}
	if c.BaseSpeed <= 0 {
		return invalid("base speed must be positive")
	}
	if c.HoldDelayMax < 0 {
		return invalid("hold delay max must not be negative")
	}
	if _, err := core.NavigatorFor(c.HeadingPolicy); err != nil {
		return invalid("%v", err)
	}
	switch c.Eligibility {
	case EligibilitySameSide, EligibilitySameLane:
	default:
		return invalid("unknown eligibility policy %q", c.Eligibility)
	}
	switch c.CollisionPolicy {
	case CollisionSelected, CollisionBoth:
	default:
		return invalid("unknown collision policy %q", c.CollisionPolicy)
	}
	if c.SignalTimeout <= 0 {
		return invalid("signal timeout must be positive")
	}
	if c.InboxSize < 1 {
		return invalid("inbox size must be at least 1")
	}
	if c.HoldingCapacity < 1 {
		return invalid("holding capacity must be at least 1")
	}
	if c.Pace < 0 {
		return invalid("pace must not be negative")
	}
	if c.FaultyTransponderRate < 0 || c.FaultyTransponderRate > 1 {
		return invalid("faulty transponder rate %v outside [0,1]", c.FaultyTransponderRate)
	}
	for side, lanes := range map[core.Side][2]int{core.West: c.WestLanes, core.East: c.EastLanes} {
		if lanes[0] <= 0 || lanes[1] <= 0 || lanes[0] == lanes[1] {
			return invalid("lanes for side %s must be two distinct positive numbers, got %v", side, lanes)
		}
	}
	return nil
}

func (c Config) lanesFor(side core.Side) [2]int {
	if side == core.East {
		return c.EastLanes
	}
	return c.WestLanes
}

// FlightPlan fixes the initial state of one aircraft instead of drawing it
// from the random source. Zero Lane and Speed fall back to the side's first
// lane and the configured base speed.
type FlightPlan struct {
	Callsign        string
	Side            core.Side
	X, Y            float64
	Lane            int
	AlternateLane   int
	Speed           float64
	HoldDelay       float64
	DeadTransponder bool
}

// Option customizes a controller.
type Option func(*Controller)

// WithRand replaces the random source seeded from Config.Seed.
func WithRand(r *rand.Rand) Option {
	return func(c *Controller) { c.rnd = r }
}

// WithFlightPlans creates exactly these aircraft, ignoring AgentCount.
func WithFlightPlans(plans ...FlightPlan) Option {
	return func(c *Controller) { c.plans = plans }
}

// WithEventSink forwards every controller event to sink. Sinks are called
// in the order they were added.
func WithEventSink(sink core.EventSink) Option {
	return func(c *Controller) { c.sinks = append(c.sinks, sink) }
}

// WithLogger replaces the default controller logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// StatusRow is one line of the status table.
type StatusRow struct {
	ID       core.ID
	Callsign string
	Side     core.Side
	X, Y     float64
	Speed    float64
	Lane     int
	Status   core.Status
	Reason   string
}

// Stats counts what the controller did.
type Stats struct {
	Quanta         int
	IdleQuanta     int
	Conflicts      int
	SpeedSignals   int
	LaneSignals    int
	SpeedRestores  int
	Confirmed      int
	Timeouts       int
	Collisions     int
	QueueFull      int
	RejectedSpawns int
	Broadcasts     int
	OperatorAborts int
}

// Summary is a point-in-time view of the whole run.
type Summary struct {
	State  State
	Clock  float64
	Counts core.Counts
	Stats  Stats
	Bus    core.BusStats
}

type command struct {
	kind   core.SignalKind
	target core.ID // NoAircraft addresses every live aircraft
}

// Controller schedules aircraft in round robin, one quantum at a time, and
// resolves conflicts between them after every quantum.
type Controller struct {
	cfg     Config
	arena   *core.Arena
	bus     *core.SignalBus
	holding *core.HoldingQueue
	nav     core.Navigator
	rnd     *rand.Rand
	plans   []FlightPlan
	sinks   []core.EventSink
	log     logger.Logger

	// owned by the loop goroutine
	pilots   map[core.ID]*core.Pilot
	episodes map[pairKey]*episode

	pause    *PauseBarrier
	commands chan command
	state    atomic.Int32

	mu       sync.Mutex
	stats    Stats
	started  bool
	shutdown bool
	cancel   context.CancelFunc

	done         chan struct{}
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// New validates the configuration and creates every aircraft. Errors returned
// here are fatal and carry core.KindInvalidConfiguration or
// core.KindResourceExhausted.
func New(cfg Config, opts ...Option) (*Controller, error) {
	c := &Controller{
		cfg:      cfg,
		pilots:   make(map[core.ID]*core.Pilot),
		episodes: make(map[pairKey]*episode),
		pause:    NewPauseBarrier(),
		commands: make(chan command, 16),
		done:     make(chan struct{}),
		log:      logger.WithPrefix("controller"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if len(c.plans) > 0 {
		c.cfg.AgentCount = len(c.plans)
	}
	if err := c.cfg.Validate(); err != nil {
		return nil, err
	}
	if c.rnd == nil {
		c.rnd = rand.New(c.cfg.Seed)
	}

	nav, err := core.NavigatorFor(c.cfg.HeadingPolicy)
	if err != nil {
		return nil, invalid("%v", err)
	}
	c.nav = nav

	if c.arena, err = core.NewArena(c.cfg.AgentCount); err != nil {
		return nil, err
	}
	if c.bus, err = core.NewSignalBus(c.arena, c.cfg.InboxSize); err != nil {
		return nil, err
	}
	if c.holding, err = core.NewHoldingQueue(c.cfg.HoldingCapacity); err != nil {
		return nil, err
	}

	if err := c.spawnAll(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Controller) spawnAll() error {
	plans := c.plans
	if len(plans) == 0 {
		plans = make([]FlightPlan, c.cfg.AgentCount)
		for i := range plans {
			plans[i] = c.randomPlan(i + 1)
		}
	}

	for i, plan := range plans {
		if plan.Callsign == "" {
			plan.Callsign = fmt.Sprintf("AC%03d", i+1)
		}
		if err := c.spawn(plan); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) randomPlan(n int) FlightPlan {
	side := core.West
	if c.rnd.Bool() {
		side = core.East
	}
	lanes := c.cfg.lanesFor(side)
	pick := c.rnd.Intn(2)
	return FlightPlan{
		Callsign:        fmt.Sprintf("AC%03d", n),
		Side:            side,
		X:               side.EntryX(),
		Y:               c.rnd.Float64(),
		Lane:            lanes[pick],
		AlternateLane:   lanes[1-pick],
		HoldDelay:       c.rnd.Float64() * c.cfg.HoldDelayMax,
		DeadTransponder: c.rnd.Chance(c.cfg.FaultyTransponderRate),
	}
}

func (c *Controller) spawn(plan FlightPlan) error {
	lanes := c.cfg.lanesFor(plan.Side)
	if plan.Lane == 0 {
		plan.Lane = lanes[0]
	}
	if plan.AlternateLane == 0 {
		plan.AlternateLane = lanes[0]
		if plan.Lane == lanes[0] {
			plan.AlternateLane = lanes[1]
		}
	}
	if plan.Speed == 0 {
		plan.Speed = c.cfg.BaseSpeed
	}

	if plan.HoldDelay > 0 && c.holding.Full() {
		err := core.NewError(core.KindQueueFull, core.NoAircraft, "%s rejected: holding queue full", plan.Callsign)
		c.bump(func(s *Stats) { s.RejectedSpawns++ })
		c.emit(core.Event{Type: core.EventQueueFull, Message: err.Error()})
		return nil
	}

	id, err := c.arena.Register(core.Aircraft{
		Callsign:      plan.Callsign,
		X:             plan.X,
		Y:             plan.Y,
		Side:          plan.Side,
		BaseSpeed:     plan.Speed,
		Lane:          plan.Lane,
		AlternateLane: plan.AlternateLane,
		Status:        core.Holding,
		HoldDelay:     plan.HoldDelay,
	})
	if err != nil {
		return err
	}
	if err := c.bus.Register(id); err != nil {
		return core.NewError(core.KindResourceExhausted, id, "%v", err)
	}

	var popts []core.PilotOption
	if plan.DeadTransponder {
		popts = append(popts, core.WithDeadTransponder())
	}
	c.pilots[id] = core.NewPilot(id, plan.Callsign, c.arena, c.bus, c.nav, c.cfg.LandingThreshold, popts...)

	if plan.HoldDelay > 0 {
		if err := c.holding.Push(id, plan.HoldDelay); err != nil {
			return err
		}
	} else {
		_ = c.arena.Update(id, func(a *core.Aircraft) error {
			a.Release()
			return nil
		})
	}

	c.emit(core.Event{
		Type:     core.EventSpawn,
		Aircraft: id,
		Message: fmt.Sprintf("%s entering from %s at (%.3f, %.3f) lane %d, holding %.1fs",
			plan.Callsign, plan.Side, plan.X, plan.Y, plan.Lane, plan.HoldDelay),
	})
	return nil
}

// Start launches the aircraft tasks and the dispatch loop.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shutdown {
		return errors.New("controller already shut down")
	}
	if c.started {
		return errors.New("controller already started")
	}
	c.started = true

	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.launchPilots()

	c.log.Infof("dispatching %d aircraft, quantum %.2fs, critical distance %.3f",
		c.arena.Len(), c.cfg.Quantum, c.cfg.CriticalDistance)

	go c.run(loopCtx)
	return nil
}

func (c *Controller) launchPilots() {
	for _, p := range c.pilots {
		c.wg.Add(1)
		go p.Fly(&c.wg)
	}
}

// Pause holds the loop before its next quantum.
func (c *Controller) Pause() {
	if c.pause.Engage() {
		c.log.Info("pause requested")
	}
}

// Resume releases a paused loop.
func (c *Controller) Resume() {
	if c.pause.Release() {
		c.log.Info("resume requested")
	}
}

// Paused reports whether the pause barrier is engaged.
func (c *Controller) Paused() bool {
	return c.pause.IsEngaged()
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) setState(s State) {
	c.state.Store(int32(s))
}

// Done is closed when the loop exits.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Snapshot returns the status table rows in registration order.
func (c *Controller) Snapshot() []StatusRow {
	records := c.arena.Snapshot()
	rows := make([]StatusRow, len(records))
	for i := range records {
		a := &records[i]
		rows[i] = StatusRow{
			ID:       a.ID,
			Callsign: a.Callsign,
			Side:     a.Side,
			X:        a.X,
			Y:        a.Y,
			Speed:    a.EffectiveSpeed(),
			Lane:     a.Lane,
			Status:   a.Status,
			Reason:   a.AbortReason,
		}
	}
	return rows
}

// Aircraft returns a copy of every record.
func (c *Controller) Aircraft() []core.Aircraft {
	return c.arena.Snapshot()
}

// Summary returns the counters gathered so far.
func (c *Controller) Summary() Summary {
	c.mu.Lock()
	stats := c.stats
	c.mu.Unlock()
	return Summary{
		State:  c.State(),
		Clock:  c.arena.Clock(),
		Counts: c.arena.Counts(),
		Stats:  stats,
		Bus:    c.bus.Stats(),
	}
}

// Broadcast queues a speed or lane toggle for every live aircraft. Each
// aircraft observes it at its next granted quantum; no confirmation is
// awaited.
func (c *Controller) Broadcast(kind core.SignalKind) error {
	if kind == core.SignalTerminate {
		return errors.New("terminate cannot be broadcast")
	}
	return c.enqueue(command{kind: kind})
}

// Abort asks one aircraft to terminate. An aircraft that ignores the request
// is terminated directly.
func (c *Controller) Abort(id core.ID) error {
	if id == core.NoAircraft {
		return core.ErrUnknownAircraft
	}
	if _, ok := c.arena.Status(id); !ok {
		return core.ErrUnknownAircraft
	}
	return c.enqueue(command{kind: core.SignalTerminate, target: id})
}

func (c *Controller) enqueue(cmd command) error {
	if c.State().Finished() {
		return errors.New("controller is not running")
	}
	select {
	case c.commands <- cmd:
		return nil
	default:
		return core.NewError(core.KindQueueFull, cmd.target, "operator command queue full")
	}
}

// Shutdown stops the loop, aborts every aircraft still live and waits for all
// aircraft tasks to exit. It is safe to call more than once.
func (c *Controller) Shutdown() {
	c.shutdownOnce.Do(func() {
		c.mu.Lock()
		c.shutdown = true
		started := c.started
		cancel := c.cancel
		c.mu.Unlock()

		if started {
			cancel()
			<-c.done
		}

		if !c.State().Finished() {
			now := c.arena.Clock()
			for _, a := range c.arena.Snapshot() {
				if !a.Status.Terminal() {
					c.terminate(a.ID, "controller shutdown", now)
				}
			}
			c.setState(StateStopped)
			c.emit(core.Event{Type: core.EventStopped, Clock: now, Message: "simulation stopped"})
		}

		for id := range c.pilots {
			c.pilots[id].Retire()
		}
		c.wg.Wait()
		if !started {
			close(c.done)
		}
	})
}

func (c *Controller) run(ctx context.Context) {
	defer close(c.done)

	for {
		if c.pause.IsEngaged() {
			c.emit(core.Event{Type: core.EventPaused, Clock: c.arena.Clock(), Message: "dispatch paused"})
			if err := c.pause.Wait(ctx); err != nil {
				return
			}
			c.emit(core.Event{Type: core.EventResumed, Clock: c.arena.Clock(), Message: "dispatch resumed"})
		}
		if ctx.Err() != nil {
			return
		}

		more, err := c.cycle(ctx)
		if err != nil || !more {
			return
		}

		if c.cfg.Pace > 0 {
			timer := time.NewTimer(c.cfg.Pace)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return
			}
		}
	}
}

// cycle runs one dispatch quantum and the conflict pass that follows it. It
// returns false once nothing is left to schedule.
func (c *Controller) cycle(ctx context.Context) (bool, error) {
	c.setState(StateDispatching)
	c.drainCommands(ctx)
	now := c.arena.Clock()
	c.releaseDue(now)

	id, ok := c.arena.NextFlying()
	if !ok {
		counts := c.arena.Counts()
		if counts.Holding == 0 {
			c.setState(StateCompleted)
			c.emit(core.Event{
				Type:  core.EventCompleted,
				Clock: now,
				Message: fmt.Sprintf("all aircraft accounted for: %d landed, %d aborted",
					counts.Landed, counts.Aborted),
			})
			return false, nil
		}
		c.arena.Tick(c.cfg.Quantum)
		c.bump(func(s *Stats) { s.IdleQuanta++ })
		return true, nil
	}

	now = c.arena.Tick(c.cfg.Quantum)
	c.setState(StateExecuting)
	out, err := c.pilots[id].Grant(ctx, core.GrantStep, c.cfg.Quantum, now, c.cfg.SignalTimeout)
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	c.bump(func(s *Stats) { s.Quanta++ })
	if err != nil {
		c.log.Warnf("aircraft %d did not finish its quantum: %v", id, err)
		reason := "lost contact"
		if kind, ok := core.KindOf(err); ok && kind == core.KindSignalTimeout {
			reason = "unresponsive"
			c.bump(func(s *Stats) { s.Timeouts++ })
			c.emit(core.Event{Type: core.EventSignalTimeout, Clock: now, Aircraft: id, Message: err.Error()})
		}
		c.terminate(id, reason, now)
	} else {
		c.afterStep(id, out, now)
	}

	c.setState(StateConflictCheck)
	c.resolveConflicts(ctx, now)
	return true, nil
}

func (c *Controller) afterStep(id core.ID, out core.Outcome, now float64) {
	a, err := c.arena.Get(id)
	if err != nil {
		return
	}
	switch {
	case out.Step == core.StepLanded:
		c.retire(id)
		c.emit(core.Event{
			Type:     core.EventLanded,
			Clock:    now,
			Aircraft: id,
			Message:  fmt.Sprintf("%s landed after %d quanta", a.Callsign, a.Steps),
		})
	case a.Status == core.Aborted:
		c.retire(id)
		c.emit(core.Event{
			Type:     core.EventAborted,
			Clock:    now,
			Aircraft: id,
			Message:  fmt.Sprintf("%s aborted: %s", a.Callsign, a.AbortReason),
		})
	}
}

func (c *Controller) releaseDue(now float64) {
	for _, id := range c.holding.Due(now) {
		var released bool
		_ = c.arena.Update(id, func(a *core.Aircraft) error {
			released = a.Release()
			return nil
		})
		if released {
			c.emit(core.Event{Type: core.EventRelease, Clock: now, Aircraft: id, Message: "released from holding"})
		}
	}
}

func (c *Controller) drainCommands(ctx context.Context) {
	for {
		select {
		case cmd := <-c.commands:
			if cmd.target == core.NoAircraft {
				c.broadcast(cmd.kind)
			} else {
				c.operatorAbort(ctx, cmd.target)
			}
		default:
			return
		}
	}
}

func (c *Controller) broadcast(kind core.SignalKind) {
	now := c.arena.Clock()
	sent := 0
	for _, a := range c.arena.Snapshot() {
		if a.Status.Terminal() {
			continue
		}
		if err := c.bus.Send(a.ID, kind); err != nil {
			if errors.Is(err, core.ErrQueueFull) {
				c.bump(func(s *Stats) { s.QueueFull++ })
				c.emit(core.Event{Type: core.EventQueueFull, Clock: now, Aircraft: a.ID, Signal: kind, Message: err.Error()})
			}
			continue
		}
		sent++
	}
	c.bump(func(s *Stats) { s.Broadcasts++ })
	c.emit(core.Event{
		Type:    core.EventBroadcast,
		Clock:   now,
		Signal:  kind,
		Message: fmt.Sprintf("%s signal broadcast to %d aircraft", kind, sent),
	})
}

func (c *Controller) operatorAbort(ctx context.Context, id core.ID) {
	now := c.arena.Clock()
	p := c.pilots[id]
	if p == nil {
		return
	}
	if err := c.bus.Send(id, core.SignalTerminate); err != nil {
		if errors.Is(err, core.ErrQueueFull) {
			c.bump(func(s *Stats) { s.OperatorAborts++ })
			c.terminate(id, "terminated by controller", now)
		}
		return
	}
	c.bump(func(s *Stats) { s.OperatorAborts++ })
	c.emit(core.Event{Type: core.EventSignalSent, Clock: now, Aircraft: id, Signal: core.SignalTerminate, Message: "operator abort"})

	_, _ = p.Grant(ctx, core.GrantWake, 0, now, c.cfg.SignalTimeout)
	if ctx.Err() != nil {
		return
	}
	if status, _ := c.arena.Status(id); status == core.Aborted {
		c.retire(id)
		c.emit(core.Event{Type: core.EventAborted, Clock: now, Aircraft: id, Message: "terminated by controller"})
		return
	}
	c.terminate(id, "terminated by controller", now)
}

// terminate writes Aborted directly into the arena and retires the task.
func (c *Controller) terminate(id core.ID, reason string, now float64) bool {
	var applied bool
	_ = c.arena.Update(id, func(a *core.Aircraft) error {
		applied = a.Abort(reason, now)
		return nil
	})
	c.retire(id)
	if applied {
		c.emit(core.Event{Type: core.EventAborted, Clock: now, Aircraft: id, Message: reason})
	}
	return applied
}

func (c *Controller) retire(id core.ID) {
	c.bus.Discard(id)
	c.holding.Remove(id)
	if p, ok := c.pilots[id]; ok {
		p.Retire()
	}
}

func (c *Controller) bump(fn func(*Stats)) {
	c.mu.Lock()
	fn(&c.stats)
	c.mu.Unlock()
}

func (c *Controller) emit(e core.Event) {
	c.log.WithFields(map[string]interface{}{
		"aircraft": e.Aircraft,
		"clock":    fmt.Sprintf("%.1f", e.Clock),
	}).Debugf("%s: %s", e.Type, e.Message)
	for _, sink := range c.sinks {
		sink.HandleEvent(e)
	}
}
