package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startPilot(t *testing.T, opts ...PilotOption) (*Arena, *SignalBus, *Pilot, *sync.WaitGroup) {
	t.Helper()
	ar, bus, id := newBus(t, 4)
	p := NewPilot(id, "TST1", ar, bus, HomingNavigator{}, 0.01, opts...)
	var wg sync.WaitGroup
	wg.Add(1)
	go p.Fly(&wg)
	t.Cleanup(func() {
		p.Retire()
		wg.Wait()
	})
	return ar, bus, p, &wg
}

func TestPilotStepGrantMoves(t *testing.T) {
	ar, _, p, _ := startPilot(t)

	out, err := p.Grant(context.Background(), GrantStep, 1, 0, time.Second)
	require.NoError(t, err)
	assert.Equal(t, StepMoved, out.Step)

	a, _ := ar.Get(p.ID())
	assert.InDelta(t, 0.05, a.X, 1e-9)
	assert.Equal(t, 1, a.Steps)
}

func TestPilotWakeGrantOnlyCheckpoints(t *testing.T) {
	ar, bus, p, _ := startPilot(t)
	require.NoError(t, bus.Send(p.ID(), SignalSpeed))
	require.NoError(t, bus.Send(p.ID(), SignalLane))

	out, err := p.Grant(context.Background(), GrantWake, 1, 0, time.Second)
	require.NoError(t, err)
	assert.Equal(t, []SignalKind{SignalSpeed, SignalLane}, out.Applied)
	assert.Equal(t, StepSkipped, out.Step)

	a, _ := ar.Get(p.ID())
	assert.Equal(t, 0.0, a.X, "wake must not move the aircraft")
	assert.True(t, a.SpeedReduced)
	assert.True(t, a.ConfirmSpeed)
	assert.Equal(t, 18, a.Lane)
	assert.Equal(t, 0, bus.Pending(p.ID()))
}

func TestPilotSignalWaitsForCheckpoint(t *testing.T) {
	ar, bus, p, _ := startPilot(t)
	require.NoError(t, bus.Send(p.ID(), SignalSpeed))

	a, _ := ar.Get(p.ID())
	assert.False(t, a.SpeedReduced)
	assert.Equal(t, 1, bus.Pending(p.ID()))
}

func TestPilotTerminate(t *testing.T) {
	ar, bus, p, _ := startPilot(t)
	require.NoError(t, bus.Send(p.ID(), SignalTerminate))

	out, err := p.Grant(context.Background(), GrantStep, 1, 2.5, time.Second)
	require.NoError(t, err)
	assert.Equal(t, StepSkipped, out.Step)

	a, _ := ar.Get(p.ID())
	assert.Equal(t, Aborted, a.Status)
	assert.Equal(t, 2.5, a.AbortedAt)
}

func TestPilotDeadTransponder(t *testing.T) {
	ar, bus, p, _ := startPilot(t, WithDeadTransponder())
	assert.True(t, p.Deaf())
	require.NoError(t, bus.Send(p.ID(), SignalSpeed))

	out, err := p.Grant(context.Background(), GrantWake, 1, 0, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Ignored)
	assert.Empty(t, out.Applied)

	a, _ := ar.Get(p.ID())
	assert.False(t, a.ConfirmSpeed)
}

func TestPilotRetire(t *testing.T) {
	_, _, p, wg := startPilot(t)
	p.Retire()
	p.Retire()
	wg.Wait()

	_, err := p.Grant(context.Background(), GrantStep, 1, 0, time.Second)
	assert.Error(t, err)
}

func TestPilotGrantHonoursContext(t *testing.T) {
	ar, bus, id := newBus(t, 1)
	p := NewPilot(id, "IDLE", ar, bus, HomingNavigator{}, 0.01)
	// Fly is never started, so the grant cannot be accepted.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Grant(ctx, GrantStep, 1, 0, time.Second)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = p.Grant(context.Background(), GrantStep, 1, 0, 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrSignalTimeout)
}
