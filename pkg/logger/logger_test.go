package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := SetOutput(&buf)
	prevLevel := GetLevel()
	SetNoColor(true)
	t.Cleanup(func() {
		SetOutput(prev)
		SetLevel(prevLevel)
		SetNoColor(false)
	})
	return &buf
}

func TestFieldsAreSorted(t *testing.T) {
	buf := captureOutput(t)

	WithPrefix("arena").WithFields(map[string]interface{}{
		"zulu":  1,
		"alpha": 2,
		"mike":  3,
	}).Info("hello")

	line := buf.String()
	if !strings.Contains(line, "[arena] alpha=2 mike=3 zulu=1 hello") {
		t.Errorf("unexpected line %q", line)
	}
}

func TestLevelFilter(t *testing.T) {
	buf := captureOutput(t)
	derived := WithPrefix("early")

	SetLevel(WarnLevel)
	derived.Info("hidden")
	derived.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info line should be filtered at warn level")
	}
	if !strings.Contains(out, "WARN  [early] shown") {
		t.Errorf("expected warn line from a logger derived before SetLevel, got %q", out)
	}
}

func TestWithFieldDoesNotLeak(t *testing.T) {
	buf := captureOutput(t)

	base := WithField("a", 1)
	_ = base.WithField("b", 2)
	base.Info("msg")

	if strings.Contains(buf.String(), "b=2") {
		t.Error("derived field leaked into parent logger")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"fatal", FatalLevel},
		{"bogus", InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFileLogMirrorsAllLevels(t *testing.T) {
	captureOutput(t)
	SetLevel(ErrorLevel)

	path := filepath.Join(t.TempDir(), "logs", "atc.log")
	closer, err := EnableFileLog(path)
	if err != nil {
		t.Fatalf("EnableFileLog: %v", err)
	}

	WithPrefix("controller").WithField("clock", 3.5).Debug("dispatch")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	Info("after close")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 record, got %d: %q", len(lines), data)
	}

	var rec map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("record is not JSON: %v", err)
	}
	if rec["msg"] != "dispatch" || rec["component"] != "controller" || rec["clock"] != 3.5 || rec["level"] != "DEBUG" {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestTableRender(t *testing.T) {
	table := NewTable("ID", "Callsign")
	table.AddRow("1", "WST001")
	table.AddRow("10", "E")

	want := "ID  Callsign\n--  --------\n1   WST001\n10  E\n"
	if got := table.String(); got != want {
		t.Errorf("table mismatch:\n%s\nwant:\n%s", got, want)
	}
	if table.Len() != 2 {
		t.Errorf("expected 2 rows, got %d", table.Len())
	}
}

func TestProgressBar(t *testing.T) {
	var buf bytes.Buffer
	bar := NewProgressBarTo(&buf, 4, "Aircraft")

	bar.Increment()
	bar.Update(10)
	if bar.Current() != 4 {
		t.Errorf("progress should clamp at total, got %d", bar.Current())
	}
	bar.Finish()
	bar.Increment()

	out := buf.String()
	if !strings.Contains(out, " 25% (1/4)") || !strings.HasSuffix(out, "100% (4/4)\n") {
		t.Errorf("unexpected progress output %q", out)
	}
}

func TestSpinnerDrawsAndClears(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinnerTo(&buf, "waiting", SpinnerLine)

	s.Start()
	s.Start()
	if !s.Active() {
		t.Fatal("spinner should be active after Start")
	}
	s.UpdateMessage("still waiting")
	s.Stop()
	s.Stop()

	if s.Active() {
		t.Error("spinner should be inactive after Stop")
	}
	out := buf.String()
	if !strings.HasPrefix(out, "\r- ") || !strings.Contains(out, "waiting") {
		t.Errorf("first frame missing, got %q", out)
	}
	if !strings.HasSuffix(out, "\r") {
		t.Errorf("line not cleared, got %q", out)
	}
}

func TestSpinnerRestarts(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinnerTo(&buf, "hold", nil)
	s.Start()
	s.Stop()
	s.Start()
	s.Stop()
	if got := strings.Count(buf.String(), "- hold"); got < 2 {
		t.Errorf("expected a first frame per start, got %d in %q", got, buf.String())
	}
}
