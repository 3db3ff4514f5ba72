package logger

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Spinner animates a single status line while something is waited on
type Spinner struct {
	mu       sync.Mutex
	w        io.Writer
	active   bool
	message  string
	frames   []string
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// Spinner frames
var (
	SpinnerDots  = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	SpinnerLine  = []string{"-", "\\", "|", "/"}
	SpinnerRadar = []string{"◐", "◓", "◑", "◒"}
)

var spinnerColor = color.New(color.FgCyan)

// NewSpinner creates a spinner drawing to the console writer
func NewSpinner(message string) *Spinner {
	return NewSpinnerTo(nil, message, SpinnerDots)
}

// NewSpinnerTo creates a spinner drawing frames to w
func NewSpinnerTo(w io.Writer, message string, frames []string) *Spinner {
	if len(frames) == 0 {
		frames = SpinnerLine
	}
	return &Spinner{
		w:        w,
		message:  message,
		frames:   frames,
		interval: 100 * time.Millisecond,
	}
}

// Start begins the animation. Starting an active spinner does nothing.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return
	}
	s.active = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.spin(s.stop, s.done)
}

func (s *Spinner) spin(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		s.draw(s.frames[i%len(s.frames)])
		select {
		case <-stop:
			s.clear()
			return
		case <-ticker.C:
		}
	}
}

// Stop ends the animation and clears the line once the frame goroutine has
// exited.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	close(s.stop)
	done := s.done
	s.mu.Unlock()
	<-done
}

// Active reports whether the spinner is animating
func (s *Spinner) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Success stops the spinner and shows a success message
func (s *Spinner) Success(message string) {
	s.Stop()
	Success(message)
}

// Error stops the spinner and shows an error message
func (s *Spinner) Error(message string) {
	s.Stop()
	Error(message)
}

// UpdateMessage changes the text shown next to the frame
func (s *Spinner) UpdateMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

func (s *Spinner) writer() io.Writer {
	if s.w != nil {
		return s.w
	}
	sk := defaultSink()
	sk.mu.Lock()
	defer sk.mu.Unlock()
	return sk.writer
}

func (s *Spinner) draw(frame string) {
	s.mu.Lock()
	message := s.message
	s.mu.Unlock()

	w := s.writer()
	if s.w == nil && !colorDisabled() {
		frame = spinnerColor.Sprint(frame)
	}
	_, _ = fmt.Fprintf(w, "\r%s %s", frame, message)
}

func (s *Spinner) clear() {
	s.mu.Lock()
	n := len(s.message) + 10
	s.mu.Unlock()
	_, _ = fmt.Fprintf(s.writer(), "\r%s\r", strings.Repeat(" ", n))
}

// WithSpinner runs fn with a spinner
func WithSpinner(message string, fn func() error) error {
	spinner := NewSpinner(message)
	spinner.Start()

	if err := fn(); err != nil {
		spinner.Error(fmt.Sprintf("%s failed: %v", message, err))
		return err
	}
	spinner.Success(fmt.Sprintf("%s completed", message))
	return nil
}
