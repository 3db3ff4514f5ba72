package controllers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/picogrid/atc-simulations/cmd/airspace/core"
)

// Escalation rungs. A pair receives at most one mitigation per conflict
// pass, lowest rung first.
const (
	rungDetected = iota
	rungSpeed
	rungLane
	rungCollision
)

type pairKey struct {
	lo, hi core.ID
}

func keyOf(a, b core.ID) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

func (k pairKey) other(id core.ID) core.ID {
	if id == k.lo {
		return k.hi
	}
	return k.lo
}

// episode tracks one pair from first detection until it separates or one of
// them stops flying.
type episode struct {
	key     pairKey
	rung    int
	reduced core.ID // aircraft slowed down by this episode
}

// conflictPass is the controller's view of the fleet for one pass: a single
// arena snapshot, changed afterwards only by the pass's own handshakes and
// terminations.
type conflictPass struct {
	now    float64
	view   map[core.ID]*core.Aircraft
	flying []core.ID
	issued map[core.ID]int // rung last issued to an aircraft during the pass
}

func (c *Controller) newPass(now float64) *conflictPass {
	snap := c.arena.Snapshot()
	p := &conflictPass{
		now:    now,
		view:   make(map[core.ID]*core.Aircraft, len(snap)),
		issued: make(map[core.ID]int),
	}
	for i := range snap {
		p.view[snap[i].ID] = &snap[i]
		if snap[i].Status == core.Flying {
			p.flying = append(p.flying, snap[i].ID)
		}
	}
	return p
}

// get returns the pass copy of a flying aircraft.
func (p *conflictPass) get(id core.ID) (core.Aircraft, bool) {
	a, ok := p.view[id]
	if !ok || a.Status != core.Flying {
		return core.Aircraft{}, false
	}
	return *a, true
}

// refresh replaces the pass copy with a record re-read after a handshake.
func (p *conflictPass) refresh(a core.Aircraft) {
	if cur, ok := p.view[a.ID]; ok {
		*cur = a
	}
}

func (p *conflictPass) aborted(id core.ID) {
	if a, ok := p.view[id]; ok {
		a.Status = core.Aborted
	}
}

// mark records that target was given rung against partner.
func (p *conflictPass) mark(target, partner core.ID, rung int) {
	p.issued[target] = rung
	if a, ok := p.view[target]; ok {
		a.LastConflictPartner = partner
	}
}

// suppressed reports whether target already received rung against partner
// during this pass.
func (p *conflictPass) suppressed(target, partner core.ID, rung int) bool {
	r, ok := p.issued[target]
	return ok && r == rung && p.view[target].LastConflictPartner == partner
}

// resolveConflicts runs the conflict pass over the post-quantum snapshot.
func (c *Controller) resolveConflicts(ctx context.Context, now float64) {
	p := c.newPass(now)
	cd := c.cfg.CriticalDistance

	for _, key := range c.openKeys() {
		ep, ok := c.episodes[key]
		if !ok {
			continue
		}
		a, okA := p.get(key.lo)
		b, okB := p.get(key.hi)
		if !okA || !okB || !c.eligible(a, b) || !c.near(a, b, 2*cd) {
			c.closeEpisode(ctx, p, ep)
		}
		if ctx.Err() != nil {
			return
		}
	}

	for i := 0; i < len(p.flying); i++ {
		for j := i + 1; j < len(p.flying); j++ {
			a, okA := p.get(p.flying[i])
			b, okB := p.get(p.flying[j])
			if !okA || !okB || !c.eligible(a, b) || !c.near(a, b, 2*cd) {
				continue
			}

			key := keyOf(a.ID, b.ID)
			ep, open := c.episodes[key]
			if !open {
				ep = &episode{key: key}
				c.episodes[key] = ep
				c.bump(func(s *Stats) { s.Conflicts++ })
				c.emit(core.Event{
					Type:     core.EventConflict,
					Clock:    now,
					Aircraft: a.ID,
					Partner:  b.ID,
					Message: fmt.Sprintf("%s and %s within %.3f on lane %d (dx=%.3f dy=%.3f)",
						a.Callsign, b.Callsign, 2*cd, a.Lane,
						math.Abs(a.X-b.X), math.Abs(a.Y-b.Y)),
				})
			}
			c.escalate(ctx, p, ep, a, b)
			if ctx.Err() != nil {
				return
			}
		}
	}
}

func (c *Controller) openKeys() []pairKey {
	keys := make([]pairKey, 0, len(c.episodes))
	for k := range c.episodes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].lo != keys[j].lo {
			return keys[i].lo < keys[j].lo
		}
		return keys[i].hi < keys[j].hi
	})
	return keys
}

func (c *Controller) eligible(a, b core.Aircraft) bool {
	if c.cfg.Eligibility == EligibilitySameSide && a.Side != b.Side {
		return false
	}
	return true
}

// near is true when both aircraft share a lane and are closer than limit on
// both axes.
func (c *Controller) near(a, b core.Aircraft, limit float64) bool {
	return a.Lane == b.Lane && math.Abs(a.X-b.X) < limit && math.Abs(a.Y-b.Y) < limit
}

// selectTarget picks the aircraft to mitigate: the one farther from the
// target point, the larger ID on a tie.
func selectTarget(a, b core.Aircraft) (core.Aircraft, core.Aircraft) {
	da, db := a.DistanceToTarget(), b.DistanceToTarget()
	switch {
	case da > db:
		return a, b
	case db > da:
		return b, a
	case a.ID > b.ID:
		return a, b
	default:
		return b, a
	}
}

func (c *Controller) escalate(ctx context.Context, p *conflictPass, ep *episode, a, b core.Aircraft) {
	cd := c.cfg.CriticalDistance
	sel, other := selectTarget(a, b)

	switch ep.rung {
	case rungDetected:
		ep.rung = rungSpeed
		if p.suppressed(sel.ID, other.ID, rungSpeed) {
			return
		}
		if !sel.SpeedReduced {
			c.bump(func(s *Stats) { s.SpeedSignals++ })
			if c.handshake(ctx, p, sel.ID, other.ID, core.SignalSpeed, rungSpeed) {
				ep.reduced = sel.ID
			}
			return
		}
		// Another conflict already slowed it down, so the lane rung is next.
		c.log.Debugf("%s already at reduced speed, speed rung satisfied", sel.Callsign)
		_ = c.arena.Update(sel.ID, func(rec *core.Aircraft) error {
			rec.LastConflictPartner = other.ID
			return nil
		})
		p.mark(sel.ID, other.ID, rungSpeed)
		fallthrough

	case rungSpeed:
		if !c.near(a, b, 1.5*cd) {
			return
		}
		ep.rung = rungLane
		if p.suppressed(sel.ID, other.ID, rungLane) {
			return
		}
		c.bump(func(s *Stats) { s.LaneSignals++ })
		c.handshake(ctx, p, sel.ID, other.ID, core.SignalLane, rungLane)

	case rungLane:
		if !c.near(a, b, cd) {
			return
		}
		ep.rung = rungCollision
		c.collide(ctx, p, ep, sel, other)
	}
}

// handshake clears the confirmation flag, sends the signal, grants the
// target a wake quantum and checks the flag again. An unconfirmed signal
// terminates the target. It reports whether the signal was confirmed.
func (c *Controller) handshake(ctx context.Context, p *conflictPass, target, partner core.ID, kind core.SignalKind, rung int) bool {
	now := p.now
	err := c.arena.Update(target, func(a *core.Aircraft) error {
		if a.Status.Terminal() {
			return core.ErrAircraftTerminal
		}
		switch kind {
		case core.SignalSpeed:
			a.ConfirmSpeed = false
		case core.SignalLane:
			a.ConfirmLane = false
		}
		if partner != core.NoAircraft {
			a.LastConflictPartner = partner
		}
		return nil
	})
	if err != nil {
		return false
	}
	if partner != core.NoAircraft {
		p.mark(target, partner, rung)
	}

	if err := c.bus.Send(target, kind); err != nil {
		if !errors.Is(err, core.ErrQueueFull) {
			return false
		}
		// The wake below still drains the inbox, so the flag may yet be set
		// by a signal already queued.
		c.bump(func(s *Stats) { s.QueueFull++ })
		c.emit(core.Event{Type: core.EventQueueFull, Clock: now, Aircraft: target, Signal: kind, Message: err.Error()})
	} else {
		c.emit(core.Event{
			Type:     core.EventSignalSent,
			Clock:    now,
			Aircraft: target,
			Partner:  partner,
			Signal:   kind,
			Rung:     rung,
			Message:  fmt.Sprintf("%s signal sent", kind),
		})
	}

	var grantErr error
	if pilot, ok := c.pilots[target]; ok {
		_, grantErr = pilot.Grant(ctx, core.GrantWake, 0, now, c.cfg.SignalTimeout)
	} else {
		grantErr = core.ErrUnknownAircraft
	}
	if ctx.Err() != nil {
		return false
	}

	rec, err := c.arena.Get(target)
	if err != nil {
		return false
	}
	p.refresh(rec)
	confirmed := rec.ConfirmSpeed
	if kind == core.SignalLane {
		confirmed = rec.ConfirmLane
	}
	if grantErr == nil && confirmed {
		c.bump(func(s *Stats) { s.Confirmed++ })
		c.emit(core.Event{
			Type:     core.EventSignalConfirmed,
			Clock:    now,
			Aircraft: target,
			Partner:  partner,
			Signal:   kind,
			Rung:     rung,
			Message:  fmt.Sprintf("%s signal confirmed", kind),
		})
		return true
	}

	timeout := core.NewError(core.KindSignalTimeout, target, "%s signal not confirmed within %s", kind, c.cfg.SignalTimeout)
	c.bump(func(s *Stats) { s.Timeouts++ })
	c.emit(core.Event{
		Type:     core.EventSignalTimeout,
		Clock:    now,
		Aircraft: target,
		Partner:  partner,
		Signal:   kind,
		Rung:     rung,
		Message:  timeout.Error(),
	})
	c.terminate(target, "unresponsive to "+kind.String()+" signal", now)
	p.aborted(target)
	return false
}

// collide handles a pair still inside the critical distance after the lane
// rung.
func (c *Controller) collide(ctx context.Context, p *conflictPass, ep *episode, sel, other core.Aircraft) {
	now := p.now
	fatal := core.NewError(core.KindCollisionFatal, sel.ID, "conflict with aircraft %d not cleared after lane change", other.ID)
	c.bump(func(s *Stats) { s.Collisions++ })
	c.emit(core.Event{
		Type:     core.EventCollisionFatal,
		Clock:    now,
		Aircraft: sel.ID,
		Partner:  other.ID,
		Rung:     rungCollision,
		Message:  fatal.Error(),
	})

	c.terminate(sel.ID, "collision", now)
	p.aborted(sel.ID)
	if c.cfg.CollisionPolicy == CollisionBoth {
		c.terminate(other.ID, "collision", now)
		p.aborted(other.ID)
	}
	c.closeEpisode(ctx, p, ep)
}

// closeEpisode ends a pair episode. The aircraft it slowed down gets its
// speed back unless another open episode still involves it, in which case
// that episode takes over the restore.
func (c *Controller) closeEpisode(ctx context.Context, p *conflictPass, ep *episode) {
	delete(c.episodes, ep.key)
	if ep.reduced == core.NoAircraft {
		return
	}
	reduced := ep.reduced
	partner := ep.key.other(reduced)

	for _, key := range c.openKeys() {
		if key.lo != reduced && key.hi != reduced {
			continue
		}
		next := c.episodes[key]
		if next.reduced == core.NoAircraft {
			next.reduced = reduced
			return
		}
	}

	rec, ok := p.get(reduced)
	if !ok || !rec.SpeedReduced {
		return
	}
	if !c.handshake(ctx, p, reduced, core.NoAircraft, core.SignalSpeed, rungDetected) {
		return
	}
	_ = c.arena.Update(reduced, func(a *core.Aircraft) error {
		a.LastConflictPartner = core.NoAircraft
		return nil
	})
	if a, ok := p.view[reduced]; ok {
		a.LastConflictPartner = core.NoAircraft
	}
	c.bump(func(s *Stats) { s.SpeedRestores++ })
	c.emit(core.Event{
		Type:     core.EventSpeedRestored,
		Clock:    p.now,
		Aircraft: reduced,
		Partner:  partner,
		Message:  fmt.Sprintf("speed restored after conflict with aircraft %d cleared", partner),
	})
}
