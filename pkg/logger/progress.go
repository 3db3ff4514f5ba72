package logger

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// ProgressBar draws a single-line progress bar, redrawn in place
type ProgressBar struct {
	mu      sync.Mutex
	w       io.Writer
	total   int
	current int
	width   int
	message string
	done    bool
}

var barColor = color.New(color.FgGreen)

// NewProgressBar creates a progress bar drawing to the console writer
func NewProgressBar(total int, message string) *ProgressBar {
	return NewProgressBarTo(nil, total, message)
}

// NewProgressBarTo creates a progress bar drawing to w
func NewProgressBarTo(w io.Writer, total int, message string) *ProgressBar {
	if total < 1 {
		total = 1
	}
	return &ProgressBar{
		w:       w,
		total:   total,
		width:   40,
		message: message,
	}
}

// Update sets the current value and redraws
func (p *ProgressBar) Update(current int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return
	}
	if current > p.total {
		current = p.total
	}
	p.current = current
	p.draw()
}

// Increment increments the progress bar by 1
func (p *ProgressBar) Increment() {
	p.mu.Lock()
	current := p.current + 1
	p.mu.Unlock()
	p.Update(current)
}

// Current returns the last drawn value
func (p *ProgressBar) Current() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Finish completes the progress bar and ends the line
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return
	}
	p.current = p.total
	p.draw()
	p.done = true
	_, _ = fmt.Fprintln(p.writer())
}

func (p *ProgressBar) writer() io.Writer {
	if p.w != nil {
		return p.w
	}
	s := defaultSink()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writer
}

func (p *ProgressBar) draw() {
	percent := float64(p.current) / float64(p.total)
	filled := int(percent * float64(p.width))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", p.width-filled)

	w := p.writer()
	if p.w == nil && !colorDisabled() {
		_, _ = fmt.Fprintf(w, "\r%s: %s %3.0f%% (%d/%d)", p.message, barColor.Sprint(bar), percent*100, p.current, p.total)
		return
	}
	_, _ = fmt.Fprintf(w, "\r%s: [%s] %3.0f%% (%d/%d)", p.message, bar, percent*100, p.current, p.total)
}
