package simulation

import (
	"context"
	"errors"
	"testing"
)

type stubSimulation struct{ name string }

func (s *stubSimulation) Name() string                           { return s.name }
func (s *stubSimulation) Description() string                    { return "stub" }
func (s *stubSimulation) Configure(map[string]interface{}) error { return nil }
func (s *stubSimulation) Run(ctx context.Context) error          { <-ctx.Done(); return ctx.Err() }
func (s *stubSimulation) Stop() error                            { return nil }

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zeta", "airspace", "mid"} {
		name := name
		if err := r.Register(name, func() Simulation { return &stubSimulation{name: name} }); err != nil {
			t.Fatalf("Register(%s): %v", name, err)
		}
	}

	if err := r.Register("mid", func() Simulation { return nil }); err == nil {
		t.Error("expected duplicate registration to fail")
	}

	list := r.List()
	want := []string{"airspace", "mid", "zeta"}
	if len(list) != len(want) {
		t.Fatalf("List() = %v, want %v", list, want)
	}
	for i := range want {
		if list[i] != want[i] {
			t.Errorf("List()[%d] = %s, want %s", i, list[i], want[i])
		}
	}

	sim, err := r.Get("airspace")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sim.Name() != "airspace" {
		t.Errorf("got simulation %s", sim.Name())
	}
	other, _ := r.Get("airspace")
	if other == sim {
		t.Error("Get should return a new instance each time")
	}

	if _, err := r.Get("missing"); err == nil {
		t.Error("expected error for unknown simulation")
	}
	if !r.Has("zeta") || r.Has("missing") {
		t.Error("Has returned the wrong answer")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sim.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
}
