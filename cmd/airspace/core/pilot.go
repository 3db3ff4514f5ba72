package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/picogrid/atc-simulations/pkg/logger"
)

// GrantKind says what a pilot may do with a granted quantum.
type GrantKind int

const (
	// GrantStep runs the checkpoint and one movement step.
	GrantStep GrantKind = iota
	// GrantWake runs the checkpoint only, so pending signals are observed.
	GrantWake
)

func (k GrantKind) String() string {
	if k == GrantWake {
		return "wake"
	}
	return "step"
}

// Outcome reports what a pilot did with its quantum.
type Outcome struct {
	Applied []SignalKind
	Ignored int
	Step    StepResult
}

type grant struct {
	kind  GrantKind
	dt    float64
	clock float64
	reply chan Outcome
}

var errRetired = errors.New("pilot retired")

// Pilot is the cooperative task flying one aircraft. It computes only while
// it holds a grant from the controller and never schedules itself.
type Pilot struct {
	id               ID
	arena            *Arena
	mail             Mailbox
	nav              Navigator
	landingThreshold float64
	deaf             bool

	grants  chan grant
	retire  sync.Once
	retired bool
	log     logger.Logger
}

// PilotOption customizes a pilot.
type PilotOption func(*Pilot)

// WithDeadTransponder makes the pilot drain its inbox without acting on it.
func WithDeadTransponder() PilotOption {
	return func(p *Pilot) { p.deaf = true }
}

// NewPilot builds the task for a registered aircraft.
func NewPilot(id ID, callsign string, arena *Arena, mail Mailbox, nav Navigator, landingThreshold float64, opts ...PilotOption) *Pilot {
	p := &Pilot{
		id:               id,
		arena:            arena,
		mail:             mail,
		nav:              nav,
		landingThreshold: landingThreshold,
		grants:           make(chan grant),
		log:              logger.WithPrefix("aircraft").WithField("callsign", callsign),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ID returns the aircraft this pilot flies.
func (p *Pilot) ID() ID { return p.id }

// Deaf reports whether the transponder ignores signals.
func (p *Pilot) Deaf() bool { return p.deaf }

// Fly is the task body. It blocks on the run token until the pilot is retired.
func (p *Pilot) Fly(wg *sync.WaitGroup) {
	defer wg.Done()
	for g := range p.grants {
		out := p.checkpoint(g.clock)
		if g.kind == GrantStep {
			out.Step = p.step(g.dt, g.clock)
		}
		g.reply <- out
	}
}

// checkpoint is the only place a pilot observes its inbox.
func (p *Pilot) checkpoint(clock float64) Outcome {
	var out Outcome
	signals := p.mail.Collect(p.id)
	if len(signals) == 0 {
		return out
	}
	if p.deaf {
		out.Ignored = len(signals)
		p.log.Debugf("transponder ignored %d signals", len(signals))
		return out
	}

	_ = p.arena.Update(p.id, func(a *Aircraft) error {
		for _, s := range signals {
			var applied bool
			switch s.Kind {
			case SignalSpeed:
				applied = a.ToggleSpeed()
			case SignalLane:
				applied = a.ToggleLane()
			case SignalTerminate:
				applied = a.Abort("terminated by controller", clock)
			}
			if applied {
				out.Applied = append(out.Applied, s.Kind)
			} else {
				out.Ignored++
			}
		}
		return nil
	})
	return out
}

func (p *Pilot) step(dt, clock float64) StepResult {
	res := StepSkipped
	_ = p.arena.Update(p.id, func(a *Aircraft) error {
		res = a.Step(dt, p.nav, p.landingThreshold, clock)
		return nil
	})
	return res
}

// Grant hands the pilot one quantum and waits for it to suspend again. Only
// the controller goroutine may call Grant and Retire.
func (p *Pilot) Grant(ctx context.Context, kind GrantKind, dt, clock float64, timeout time.Duration) (Outcome, error) {
	if p.retired {
		return Outcome{}, errRetired
	}
	g := grant{kind: kind, dt: dt, clock: clock, reply: make(chan Outcome, 1)}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case p.grants <- g:
	case <-timer.C:
		return Outcome{}, NewError(KindSignalTimeout, p.id, "pilot did not accept %s grant within %s", kind, timeout)
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}

	select {
	case out := <-g.reply:
		return out, nil
	case <-timer.C:
		return Outcome{}, NewError(KindSignalTimeout, p.id, "pilot did not finish %s grant within %s", kind, timeout)
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Retire closes the run token; Fly returns once any grant in progress ends.
func (p *Pilot) Retire() {
	p.retire.Do(func() {
		p.retired = true
		close(p.grants)
	})
}
