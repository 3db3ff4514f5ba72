package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBus(t *testing.T, inbox int) (*Arena, *SignalBus, ID) {
	t.Helper()
	ar, err := NewArena(4)
	require.NoError(t, err)
	bus, err := NewSignalBus(ar, inbox)
	require.NoError(t, err)
	id, err := ar.Register(flying(0, 0.5, West))
	require.NoError(t, err)
	require.NoError(t, bus.Register(id))
	return ar, bus, id
}

func TestSignalBusDeliversInOrder(t *testing.T) {
	_, bus, id := newBus(t, 4)

	require.NoError(t, bus.Send(id, SignalSpeed))
	require.NoError(t, bus.Send(id, SignalLane))
	assert.Equal(t, 2, bus.Pending(id))

	got := bus.Collect(id)
	require.Len(t, got, 2)
	assert.Equal(t, SignalSpeed, got[0].Kind)
	assert.Equal(t, SignalLane, got[1].Kind)
	assert.Less(t, got[0].Seq, got[1].Seq)

	assert.Empty(t, bus.Collect(id), "a signal is delivered at most once")
	assert.Equal(t, BusStats{Sent: 2, Delivered: 2}, bus.Stats())
}

func TestSignalBusRejects(t *testing.T) {
	ar, bus, id := newBus(t, 1)

	assert.ErrorIs(t, bus.Send(99, SignalSpeed), ErrUnknownAircraft)

	require.NoError(t, bus.Send(id, SignalSpeed))
	err := bus.Send(id, SignalLane)
	assert.ErrorIs(t, err, ErrQueueFull)
	kind, _ := KindOf(err)
	assert.False(t, kind.Fatal())

	_ = ar.Update(id, func(a *Aircraft) error { a.Abort("test", 0); return nil })
	assert.ErrorIs(t, bus.Send(id, SignalLane), ErrAircraftTerminal)

	assert.Equal(t, 1, bus.Discard(id))
	assert.Equal(t, 0, bus.Pending(id))
	assert.Equal(t, BusStats{Sent: 1, Rejected: 3, Discarded: 1}, bus.Stats())
}

func TestSignalBusRegisterTwice(t *testing.T) {
	_, bus, id := newBus(t, 1)
	assert.Error(t, bus.Register(id))

	_, err := NewSignalBus(nil, 0)
	assert.ErrorIs(t, err, ErrResourceExhausted)
}
