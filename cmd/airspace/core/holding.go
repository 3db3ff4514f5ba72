package core

import (
	"sort"
	"sync"
)

type holdSlot struct {
	id        ID
	releaseAt float64
}

// HoldingQueue keeps aircraft waiting for their release time. It is bounded;
// an aircraft that does not fit is rejected with a QueueFull error.
type HoldingQueue struct {
	mu       sync.Mutex
	slots    []holdSlot
	capacity int
}

// NewHoldingQueue creates a queue for up to capacity aircraft.
func NewHoldingQueue(capacity int) (*HoldingQueue, error) {
	if capacity <= 0 {
		return nil, NewError(KindResourceExhausted, NoAircraft, "holding capacity must be positive, got %d", capacity)
	}
	return &HoldingQueue{
		slots:    make([]holdSlot, 0, capacity),
		capacity: capacity,
	}, nil
}

// Full reports whether another aircraft would be rejected.
func (q *HoldingQueue) Full() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.slots) >= q.capacity
}

// Push schedules an aircraft for release at the given simulated time.
// Aircraft with equal release times leave in arrival order.
func (q *HoldingQueue) Push(id ID, releaseAt float64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.slots) >= q.capacity {
		return NewError(KindQueueFull, id, "holding queue full (%d aircraft)", q.capacity)
	}
	i := sort.Search(len(q.slots), func(i int) bool {
		return q.slots[i].releaseAt > releaseAt
	})
	q.slots = append(q.slots, holdSlot{})
	copy(q.slots[i+1:], q.slots[i:])
	q.slots[i] = holdSlot{id: id, releaseAt: releaseAt}
	return nil
}

// Due removes and returns every aircraft whose release time has come.
func (q *HoldingQueue) Due(clock float64) []ID {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for n < len(q.slots) && q.slots[n].releaseAt <= clock {
		n++
	}
	if n == 0 {
		return nil
	}
	out := make([]ID, n)
	for i := 0; i < n; i++ {
		out[i] = q.slots[i].id
	}
	q.slots = append(q.slots[:0], q.slots[n:]...)
	return out
}

// Remove drops an aircraft from the queue, e.g. when it is aborted while
// still holding.
func (q *HoldingQueue) Remove(id ID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.slots {
		if q.slots[i].id == id {
			q.slots = append(q.slots[:i], q.slots[i+1:]...)
			return true
		}
	}
	return false
}

// Len is the number of aircraft still holding.
func (q *HoldingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.slots)
}
