package logger

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Icons and symbols for different log types
const (
	IconSuccess = "✅"
	IconError   = "❌"
	IconWarning = "⚠️"
	IconInfo    = "ℹ️"
	IconRocket  = "🚀"
	IconConfig  = "⚙️"
	IconPlane   = "✈️"
	IconRadar   = "📡"
	IconPause   = "⏸️"
	IconTime    = "⏱️"
	IconFile    = "📄"
	IconDot     = "•"
	IconArrow   = "→"
)

var (
	sectionColor = color.New(color.FgCyan, color.Bold)
	ruleColor    = color.New(color.FgCyan)
	subColor     = color.New(color.FgHiBlack)
	keyColor     = color.New(color.FgCyan)
)

// Success logs a success message with a green checkmark
func Success(args ...interface{}) {
	defaultLogger.Info(IconSuccess + " " + fmt.Sprint(args...))
}

// Successf logs a formatted success message
func Successf(format string, args ...interface{}) {
	Success(fmt.Sprintf(format, args...))
}

// Traffic logs an aircraft or controller event
func Traffic(args ...interface{}) {
	defaultLogger.Info(IconPlane + " " + fmt.Sprint(args...))
}

// Trafficf logs a formatted traffic message
func Trafficf(format string, args ...interface{}) {
	Traffic(fmt.Sprintf(format, args...))
}

// raw writes helper output straight to the console writer, colored unless
// color is disabled.
func raw(c *color.Color, text string) {
	s := defaultSink()
	s.mu.Lock()
	defer s.mu.Unlock()
	if c != nil && !s.noColor {
		text = c.Sprint(text)
	}
	_, _ = fmt.Fprintln(s.writer, text)
}

// LogSection creates a visual section separator
func LogSection(title string) {
	line := strings.Repeat("=", 50)
	raw(ruleColor, line)
	raw(sectionColor, title)
	raw(ruleColor, line)
}

// LogSubSection creates a visual subsection separator
func LogSubSection(title string) {
	line := strings.Repeat("-", 40)
	raw(subColor, line)
	raw(subColor, title)
	raw(subColor, line)
}

// LogList logs a list of items with bullets
func LogList(title string, items []string) {
	Info(title)
	for _, item := range items {
		raw(nil, fmt.Sprintf("  %s %s", IconDot, item))
	}
}

// LogKeyValue logs a key-value pair with nice formatting
func LogKeyValue(key string, value interface{}) {
	s := defaultSink()
	s.mu.Lock()
	k := key + ":"
	if !s.noColor {
		k = keyColor.Sprint(k)
	}
	_, _ = fmt.Fprintf(s.writer, "%s %v\n", k, value)
	s.mu.Unlock()
}

// LogKeyValues logs key-value pairs in the given order
func LogKeyValues(keys []string, values map[string]interface{}) {
	for _, k := range keys {
		LogKeyValue(k, values[k])
	}
}

// Table represents a simple table for logging
type Table struct {
	headers []string
	rows    [][]string
}

// NewTable creates a new table
func NewTable(headers ...string) *Table {
	return &Table{
		headers: headers,
		rows:    [][]string{},
	}
}

// AddRow adds a row to the table
func (t *Table) AddRow(values ...string) {
	t.rows = append(t.rows, values)
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Render writes the table to w
func (t *Table) Render(w io.Writer) {
	if len(t.headers) == 0 {
		return
	}

	// Calculate column widths
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	line := func(cells []string) {
		var b strings.Builder
		for i, cell := range cells {
			if i < len(widths) {
				fmt.Fprintf(&b, "%-*s  ", widths[i], cell)
			}
		}
		_, _ = fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}

	line(t.headers)
	rules := make([]string, len(widths))
	for i, n := range widths {
		rules[i] = strings.Repeat("-", n)
	}
	line(rules)
	for _, row := range t.rows {
		line(row)
	}
}

// String renders the table into a string
func (t *Table) String() string {
	var b strings.Builder
	t.Render(&b)
	return b.String()
}

// Print prints the table to the console writer
func (t *Table) Print() {
	s := defaultSink()
	s.mu.Lock()
	defer s.mu.Unlock()
	t.Render(s.writer)
}
