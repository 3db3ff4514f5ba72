package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/picogrid/atc-simulations/pkg/logger"
	"github.com/picogrid/atc-simulations/pkg/simulation"
)

// errQuit ends the console after asking the simulation to stop
var errQuit = errors.New("quit")

const consoleHelp = "commands: start, pause, resume, status, %s, help, quit"

// runConsole reads operator commands from in until ctx is done, in is
// exhausted, or the operator quits.
func runConsole(ctx context.Context, sim simulation.Controllable, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	_, _ = fmt.Fprintf(out, consoleHelp+"\n", strings.Join(sim.Commands(), ", "))
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			err := dispatch(sim, line, out)
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				logger.Warnf("%s: %v", strings.TrimSpace(line), err)
			}
		}
	}
}

// dispatch executes one console line
func dispatch(sim simulation.Controllable, line string, out io.Writer) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	name, args := strings.ToLower(fields[0]), fields[1:]
	switch name {
	case "start":
		return sim.Start()
	case "pause":
		return sim.Pause()
	case "resume":
		return sim.Resume()
	case "status":
		return sim.Status()
	case "help", "?":
		_, _ = fmt.Fprintf(out, consoleHelp+"\n", strings.Join(sim.Commands(), ", "))
		return nil
	case "quit", "exit":
		if err := sim.Stop(); err != nil {
			return err
		}
		return errQuit
	default:
		return sim.Command(name, args...)
	}
}
