package core

import (
	"sync"
)

// MaxAircraft bounds the arena capacity.
const MaxAircraft = 100

// Counts summarizes the fleet by status.
type Counts struct {
	Holding int
	Flying  int
	Landed  int
	Aborted int
}

// Total is the number of registered aircraft.
func (c Counts) Total() int {
	return c.Holding + c.Flying + c.Landed + c.Aborted
}

// Live is the number of aircraft that still need scheduling.
func (c Counts) Live() int {
	return c.Holding + c.Flying
}

// Arena is the single authoritative store of aircraft state. All reads and
// writes take the same mutex, so a snapshot is never torn.
type Arena struct {
	mu       sync.Mutex
	records  []Aircraft
	index    map[ID]int
	capacity int
	nextID   ID
	cursor   int
	clock    float64
}

// NewArena allocates an arena for up to capacity aircraft.
func NewArena(capacity int) (*Arena, error) {
	if capacity <= 0 || capacity > MaxAircraft {
		return nil, NewError(KindResourceExhausted, NoAircraft,
			"arena capacity %d outside 1..%d", capacity, MaxAircraft)
	}
	return &Arena{
		records:  make([]Aircraft, 0, capacity),
		index:    make(map[ID]int, capacity),
		capacity: capacity,
		nextID:   1,
		cursor:   -1,
	}, nil
}

// Register stores a new record and assigns its ID.
func (ar *Arena) Register(a Aircraft) (ID, error) {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	if len(ar.records) >= ar.capacity {
		return NoAircraft, NewError(KindResourceExhausted, NoAircraft,
			"arena full (%d aircraft)", ar.capacity)
	}

	a.ID = ar.nextID
	ar.nextID++
	ar.index[a.ID] = len(ar.records)
	ar.records = append(ar.records, a)
	return a.ID, nil
}

// Get returns a copy of the record.
func (ar *Arena) Get(id ID) (Aircraft, error) {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	i, ok := ar.index[id]
	if !ok {
		return Aircraft{}, ErrUnknownAircraft
	}
	return ar.records[i], nil
}

// Status returns the current status of an aircraft.
func (ar *Arena) Status(id ID) (Status, bool) {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	i, ok := ar.index[id]
	if !ok {
		return 0, false
	}
	return ar.records[i].Status, true
}

// Update runs fn on the record under the lock. The ID is restored after fn
// returns so that callers cannot rewrite identity.
func (ar *Arena) Update(id ID, fn func(a *Aircraft) error) error {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	i, ok := ar.index[id]
	if !ok {
		return ErrUnknownAircraft
	}
	rec := &ar.records[i]
	err := fn(rec)
	rec.ID = id
	return err
}

// Snapshot copies every record in registration order.
func (ar *Arena) Snapshot() []Aircraft {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	out := make([]Aircraft, len(ar.records))
	copy(out, ar.records)
	return out
}

// Len is the number of registered aircraft.
func (ar *Arena) Len() int {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	return len(ar.records)
}

// Counts tallies the fleet by status.
func (ar *Arena) Counts() Counts {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	var c Counts
	for i := range ar.records {
		switch ar.records[i].Status {
		case Holding:
			c.Holding++
		case Flying:
			c.Flying++
		case Landed:
			c.Landed++
		case Aborted:
			c.Aborted++
		}
	}
	return c
}

// NextFlying advances the scheduling cursor to the next flying aircraft
// after the current one, wrapping around. It returns false when nothing is
// flying; the cursor is left where it was.
func (ar *Arena) NextFlying() (ID, bool) {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	n := len(ar.records)
	for step := 1; step <= n; step++ {
		i := (ar.cursor + step) % n
		if ar.records[i].Status == Flying {
			ar.cursor = i
			return ar.records[i].ID, true
		}
	}
	return NoAircraft, false
}

// Clock returns the simulated time in seconds.
func (ar *Arena) Clock() float64 {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	return ar.clock
}

// Tick advances the simulated clock and returns the new time.
func (ar *Arena) Tick(dt float64) float64 {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	ar.clock += dt
	return ar.clock
}
