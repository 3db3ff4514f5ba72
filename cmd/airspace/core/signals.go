package core

import (
	"fmt"
	"sync"

	"github.com/picogrid/atc-simulations/pkg/logger"
)

// SignalKind is a control message understood by aircraft.
type SignalKind int

const (
	SignalSpeed SignalKind = iota
	SignalLane
	SignalTerminate
)

func (k SignalKind) String() string {
	switch k {
	case SignalSpeed:
		return "speed"
	case SignalLane:
		return "lane"
	case SignalTerminate:
		return "terminate"
	default:
		return "unknown"
	}
}

// Signal is one message waiting in an aircraft inbox.
type Signal struct {
	Kind SignalKind
	Seq  uint64
}

// StatusReader looks up aircraft status. Arena implements it.
type StatusReader interface {
	Status(id ID) (Status, bool)
}

// Mailbox is the receiving side of the bus, drained at checkpoints.
type Mailbox interface {
	Collect(id ID) []Signal
}

// BusStats counts bus traffic.
type BusStats struct {
	Sent      uint64
	Delivered uint64
	Rejected  uint64
	Discarded uint64
}

// SignalBus delivers control messages into bounded per-aircraft inboxes.
// Each Send is delivered at most once; an inbox is only read when its
// aircraft reaches a checkpoint.
type SignalBus struct {
	mu        sync.Mutex
	inboxes   map[ID]chan Signal
	statuses  StatusReader
	inboxSize int
	seq       uint64
	stats     BusStats
	log       logger.Logger
}

// NewSignalBus creates a bus whose inboxes hold inboxSize messages.
func NewSignalBus(statuses StatusReader, inboxSize int) (*SignalBus, error) {
	if inboxSize <= 0 {
		return nil, NewError(KindResourceExhausted, NoAircraft, "inbox size must be positive, got %d", inboxSize)
	}
	return &SignalBus{
		inboxes:   make(map[ID]chan Signal),
		statuses:  statuses,
		inboxSize: inboxSize,
		log:       logger.WithPrefix("signals"),
	}, nil
}

// Register allocates the inbox for an aircraft.
func (b *SignalBus) Register(id ID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.inboxes[id]; exists {
		return fmt.Errorf("inbox for aircraft %d already registered", id)
	}
	b.inboxes[id] = make(chan Signal, b.inboxSize)
	return nil
}

// Send enqueues a signal for the aircraft's next checkpoint. Signals to
// unknown or terminal aircraft are not delivered and are reported.
func (b *SignalBus) Send(id ID, kind SignalKind) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	inbox, ok := b.inboxes[id]
	status, known := b.statuses.Status(id)
	if !ok || !known {
		b.stats.Rejected++
		b.log.Warnf("dropping %s signal: aircraft %d unknown", kind, id)
		return ErrUnknownAircraft
	}
	if status.Terminal() {
		b.stats.Rejected++
		b.log.Debugf("dropping %s signal: aircraft %d already %s", kind, id, status)
		return ErrAircraftTerminal
	}

	b.seq++
	select {
	case inbox <- Signal{Kind: kind, Seq: b.seq}:
		b.stats.Sent++
		return nil
	default:
		b.stats.Rejected++
		b.log.Warnf("dropping %s signal: inbox of aircraft %d full", kind, id)
		return NewError(KindQueueFull, id, "inbox full (%d pending)", len(inbox))
	}
}

// Collect drains every pending signal for the aircraft.
func (b *SignalBus) Collect(id ID) []Signal {
	b.mu.Lock()
	defer b.mu.Unlock()

	inbox, ok := b.inboxes[id]
	if !ok {
		return nil
	}
	var out []Signal
	for {
		select {
		case s := <-inbox:
			out = append(out, s)
		default:
			b.stats.Delivered += uint64(len(out))
			return out
		}
	}
}

// Pending is the number of undelivered signals for the aircraft.
func (b *SignalBus) Pending(id ID) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.inboxes[id])
}

// Discard drops whatever is still queued for a terminated aircraft.
func (b *SignalBus) Discard(id ID) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	inbox, ok := b.inboxes[id]
	if !ok {
		return 0
	}
	n := 0
	for {
		select {
		case <-inbox:
			n++
		default:
			if n > 0 {
				b.log.Debugf("discarded %d pending signals for aircraft %d", n, id)
			}
			b.stats.Discarded += uint64(n)
			return n
		}
	}
}

// Stats returns a copy of the traffic counters.
func (b *SignalBus) Stats() BusStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}
