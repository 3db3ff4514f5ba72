package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/picogrid/atc-simulations/pkg/simulation"
)

type fakeSim struct {
	mu    sync.Mutex
	calls []string
}

var _ simulation.Controllable = (*fakeSim)(nil)

func (f *fakeSim) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return nil
}

func (f *fakeSim) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeSim) Name() string                           { return "fake" }
func (f *fakeSim) Description() string                    { return "fake" }
func (f *fakeSim) Configure(map[string]interface{}) error { return nil }
func (f *fakeSim) Run(ctx context.Context) error          { <-ctx.Done(); return nil }
func (f *fakeSim) Stop() error                            { return f.record("stop") }
func (f *fakeSim) Start() error                           { return f.record("start") }
func (f *fakeSim) Pause() error                           { return f.record("pause") }
func (f *fakeSim) Resume() error                          { return f.record("resume") }
func (f *fakeSim) Status() error                          { return f.record("status") }
func (f *fakeSim) Commands() []string                     { return []string{"slow-all", "abort <id>"} }

func (f *fakeSim) Command(name string, args ...string) error {
	if name == "boom" {
		return errors.New("unknown")
	}
	return f.record(strings.TrimSpace(name + " " + strings.Join(args, " ")))
}

func TestConsoleDispatchesUntilQuit(t *testing.T) {
	sim := &fakeSim{}
	in := strings.NewReader("start\n\nPAUSE\nresume\nstatus\nslow-all\nabort WST001\nboom\nhelp\nquit\npause\n")
	var out bytes.Buffer

	if err := runConsole(context.Background(), sim, in, &out); err != nil {
		t.Fatalf("runConsole: %v", err)
	}

	want := []string{"start", "pause", "resume", "status", "slow-all", "abort WST001", "stop"}
	got := sim.Calls()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", got, want)
	}
	if !strings.Contains(out.String(), "slow-all, abort <id>") {
		t.Errorf("help should list simulation commands, got %q", out.String())
	}
}

func TestConsoleEndsOnEOF(t *testing.T) {
	sim := &fakeSim{}
	if err := runConsole(context.Background(), sim, strings.NewReader("status"), &bytes.Buffer{}); err != nil {
		t.Fatalf("runConsole: %v", err)
	}
	if got := sim.Calls(); len(got) != 1 || got[0] != "status" {
		t.Errorf("calls = %v", got)
	}
}

type blockingReader struct{ ch chan struct{} }

func (b blockingReader) Read([]byte) (int, error) {
	<-b.ch
	return 0, errors.New("closed")
}

func TestConsoleEndsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := blockingReader{ch: make(chan struct{})}
	defer close(r.ch)

	done := make(chan error, 1)
	go func() { done <- runConsole(ctx, &fakeSim{}, r, &bytes.Buffer{}) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("runConsole: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("console did not stop on cancel")
	}
}
