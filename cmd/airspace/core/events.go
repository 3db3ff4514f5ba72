package core

import "sync"

// EventType names something that happened during a run.
type EventType string

const (
	EventSpawn           EventType = "spawn"
	EventRelease         EventType = "release"
	EventLanded          EventType = "landed"
	EventAborted         EventType = "aborted"
	EventConflict        EventType = "conflict"
	EventSignalSent      EventType = "signal_sent"
	EventSignalConfirmed EventType = "signal_confirmed"
	EventSignalTimeout   EventType = "signal_timeout"
	EventCollisionFatal  EventType = "collision_fatal"
	EventSpeedRestored   EventType = "speed_restored"
	EventQueueFull       EventType = "queue_full"
	EventBroadcast       EventType = "broadcast"
	EventPaused          EventType = "paused"
	EventResumed         EventType = "resumed"
	EventCompleted       EventType = "completed"
	EventStopped         EventType = "stopped"
)

// Event is emitted by the controller goroutine in the order things happen.
type Event struct {
	Type     EventType
	Clock    float64
	Aircraft ID
	Partner  ID
	Signal   SignalKind
	Rung     int
	Message  string
}

// EventSink receives controller events. Implementations must not call back
// into the controller.
type EventSink interface {
	HandleEvent(Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(Event)

func (f EventSinkFunc) HandleEvent(e Event) { f(e) }

// Recorder collects events in memory. It is safe to read while the
// controller is still running.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) HandleEvent(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType filters the recorded events.
func (r *Recorder) OfType(t EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
