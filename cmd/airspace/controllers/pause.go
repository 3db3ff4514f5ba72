package controllers

import (
	"context"
	"sync"
)

// PauseBarrier holds the dispatch loop while engaged. The loop checks it
// before every quantum, so a pause never interrupts a granted quantum.
type PauseBarrier struct {
	mu      sync.Mutex
	engaged bool
	release chan struct{}
}

// NewPauseBarrier returns a released barrier.
func NewPauseBarrier() *PauseBarrier {
	return &PauseBarrier{}
}

// Engage makes subsequent Wait calls block. It reports false if the barrier
// was already engaged.
func (pb *PauseBarrier) Engage() bool {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if pb.engaged {
		return false
	}
	pb.engaged = true
	pb.release = make(chan struct{})
	return true
}

// Release unblocks every waiter. It reports false if the barrier was not
// engaged.
func (pb *PauseBarrier) Release() bool {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if !pb.engaged {
		return false
	}
	pb.engaged = false
	close(pb.release)
	return true
}

// IsEngaged reports whether Wait would block.
func (pb *PauseBarrier) IsEngaged() bool {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.engaged
}

// Wait returns immediately when released, otherwise blocks until Release or
// until ctx is done.
func (pb *PauseBarrier) Wait(ctx context.Context) error {
	pb.mu.Lock()
	if !pb.engaged {
		pb.mu.Unlock()
		return nil
	}
	ch := pb.release
	pb.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
