package core

import (
	"fmt"
	"math"
)

// Navigator picks the unit direction an aircraft flies in during a step.
// A simulation uses exactly one navigator for every aircraft.
type Navigator interface {
	Name() string
	Heading(a *Aircraft) (dx, dy float64)
	// Homing reports whether the heading always points at the target, in
	// which case a step longer than the remaining distance lands.
	Homing() bool
}

// HomingNavigator flies straight at the target point.
type HomingNavigator struct{}

func (HomingNavigator) Name() string { return "homing" }
func (HomingNavigator) Homing() bool { return true }

func (HomingNavigator) Heading(a *Aircraft) (float64, float64) {
	dx := Target.X - a.X
	dy := Target.Y - a.Y
	d := math.Hypot(dx, dy)
	if d == 0 {
		return 0, 0
	}
	return dx / d, dy / d
}

// HorizontalNavigator flies along the entry axis, away from the entry side.
type HorizontalNavigator struct{}

func (HorizontalNavigator) Name() string { return "horizontal" }
func (HorizontalNavigator) Homing() bool { return false }

func (HorizontalNavigator) Heading(a *Aircraft) (float64, float64) {
	if a.Side == East {
		return -1, 0
	}
	return 1, 0
}

// NavigatorFor resolves a heading policy name.
func NavigatorFor(policy string) (Navigator, error) {
	switch policy {
	case "", "homing":
		return HomingNavigator{}, nil
	case "horizontal":
		return HorizontalNavigator{}, nil
	}
	return nil, fmt.Errorf("unknown heading policy %q", policy)
}
