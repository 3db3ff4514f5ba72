package core

import "math"

// ID identifies an aircraft registered in the arena.
type ID uint32

// NoAircraft is the zero ID, never assigned.
const NoAircraft ID = 0

// Target is the shared point every aircraft converges on.
var Target = Point{X: 0.5, Y: 0.5}

// ReducedSpeedFactor scales BaseSpeed while SpeedReduced is set.
const ReducedSpeedFactor = 0.5

// Point is a position in the unit square.
type Point struct {
	X, Y float64
}

// Distance returns the euclidean distance to q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Side is the edge of the airspace an aircraft enters from.
type Side int

const (
	West Side = iota
	East
)

func (s Side) String() string {
	switch s {
	case West:
		return "W"
	case East:
		return "E"
	default:
		return "?"
	}
}

// EntryX is where aircraft entering from this side start.
func (s Side) EntryX() float64 {
	if s == East {
		return 1.0
	}
	return 0.0
}

// Status is the lifecycle state of an aircraft.
type Status int

const (
	Holding Status = iota
	Flying
	Landed
	Aborted
)

var statusNames = map[Status]string{
	Holding: "HOLDING",
	Flying:  "FLYING",
	Landed:  "LANDED",
	Aborted: "ABORTED",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == Landed || s == Aborted
}

// Aircraft is the authoritative record of one aircraft. The arena owns the
// records; everything outside it works on copies.
type Aircraft struct {
	ID       ID
	Callsign string

	X, Y float64
	Side Side

	BaseSpeed    float64
	SpeedReduced bool

	Lane          int
	AlternateLane int

	Status Status

	ConfirmSpeed bool
	ConfirmLane  bool

	LastConflictPartner ID

	HoldDelay   float64
	Steps       int
	LandedAt    float64
	AbortedAt   float64
	AbortReason string
}

// Position returns the current position.
func (a *Aircraft) Position() Point {
	return Point{X: a.X, Y: a.Y}
}

// DistanceToTarget is the straight-line distance to the target point.
func (a *Aircraft) DistanceToTarget() float64 {
	return a.Position().Distance(Target)
}

// EffectiveSpeed applies the reduction factor.
func (a *Aircraft) EffectiveSpeed() float64 {
	if a.SpeedReduced {
		return a.BaseSpeed * ReducedSpeedFactor
	}
	return a.BaseSpeed
}

// Release moves a holding aircraft into the air.
func (a *Aircraft) Release() bool {
	if a.Status != Holding {
		return false
	}
	a.Status = Flying
	return true
}

// StepResult describes what a movement step did.
type StepResult int

const (
	StepSkipped StepResult = iota
	StepMoved
	StepLanded
	StepLeftAirspace
)

// Step advances a flying aircraft by one quantum of dt simulated seconds.
// Landing snaps the aircraft onto the target and is terminal.
func (a *Aircraft) Step(dt float64, nav Navigator, landingThreshold float64, clock float64) StepResult {
	if a.Status != Flying {
		return StepSkipped
	}
	a.Steps++

	dist := a.DistanceToTarget()
	if dist < landingThreshold {
		a.land(clock)
		return StepLanded
	}

	dx, dy := nav.Heading(a)
	move := a.EffectiveSpeed() * dt
	if nav.Homing() && move >= dist {
		a.land(clock)
		return StepLanded
	}

	a.X += dx * move
	a.Y += dy * move

	if a.DistanceToTarget() < landingThreshold {
		a.land(clock)
		return StepLanded
	}
	if a.X < 0 || a.X > 1 || a.Y < 0 || a.Y > 1 {
		a.Abort("left airspace", clock)
		return StepLeftAirspace
	}
	return StepMoved
}

func (a *Aircraft) land(clock float64) {
	a.X, a.Y = Target.X, Target.Y
	a.Status = Landed
	a.LandedAt = clock
}

// ToggleSpeed handles a speed signal.
func (a *Aircraft) ToggleSpeed() bool {
	if a.Status.Terminal() {
		return false
	}
	a.SpeedReduced = !a.SpeedReduced
	a.ConfirmSpeed = true
	return true
}

// ToggleLane handles a lane signal by swapping to the side's other lane.
func (a *Aircraft) ToggleLane() bool {
	if a.Status.Terminal() {
		return false
	}
	a.Lane, a.AlternateLane = a.AlternateLane, a.Lane
	a.ConfirmLane = true
	return true
}

// Abort terminates the aircraft. Landed aircraft stay landed.
func (a *Aircraft) Abort(reason string, clock float64) bool {
	if a.Status.Terminal() {
		return false
	}
	a.Status = Aborted
	a.AbortReason = reason
	a.AbortedAt = clock
	return true
}
