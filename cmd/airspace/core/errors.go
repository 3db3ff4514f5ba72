package core

import (
	"errors"
	"fmt"
)

// Kind classifies simulation failures. Fatal kinds abort construction,
// the rest are resolved inside the controller cycle.
type Kind int

const (
	KindInvalidConfiguration Kind = iota
	KindResourceExhausted
	KindSignalTimeout
	KindCollisionFatal
	KindQueueFull
)

var kindNames = map[Kind]string{
	KindInvalidConfiguration: "invalid_configuration",
	KindResourceExhausted:    "resource_exhausted",
	KindSignalTimeout:        "signal_timeout",
	KindCollisionFatal:       "collision_fatal",
	KindQueueFull:            "queue_full",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Fatal reports whether errors of this kind stop the simulation from starting.
func (k Kind) Fatal() bool {
	return k == KindInvalidConfiguration || k == KindResourceExhausted
}

// Sentinels for errors.Is matching on kind.
var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrResourceExhausted    = errors.New("resource exhausted")
	ErrSignalTimeout        = errors.New("signal timeout")
	ErrCollisionFatal       = errors.New("collision fatal")
	ErrQueueFull            = errors.New("queue full")

	ErrUnknownAircraft  = errors.New("unknown aircraft")
	ErrAircraftTerminal = errors.New("aircraft already terminal")
)

var kindSentinels = map[Kind]error{
	KindInvalidConfiguration: ErrInvalidConfiguration,
	KindResourceExhausted:    ErrResourceExhausted,
	KindSignalTimeout:        ErrSignalTimeout,
	KindCollisionFatal:       ErrCollisionFatal,
	KindQueueFull:            ErrQueueFull,
}

// Error is a classified simulation error.
type Error struct {
	Kind     Kind
	Aircraft ID
	Err      error
}

// NewError builds an Error of the given kind around a formatted message.
func NewError(kind Kind, aircraft ID, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Aircraft: aircraft, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Aircraft != NoAircraft {
		return fmt.Sprintf("%s: aircraft %d: %v", e.Kind, e.Aircraft, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinel so callers can write errors.Is(err, ErrQueueFull).
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// Fatal reports whether the error aborts the simulation.
func (e *Error) Fatal() bool { return e.Kind.Fatal() }

// KindOf extracts the kind of a classified error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
