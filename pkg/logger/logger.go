package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Level represents the severity of a log message
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	case FatalLevel:
		return "fatal"
	default:
		return "unknown"
	}
}

func (l Level) slog() slog.Level {
	switch l {
	case DebugLevel:
		return slog.LevelDebug
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel, FatalLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var (
	timeColor   = color.New(color.FgHiBlack)
	prefixColor = color.New(color.FgCyan)
	fieldColor  = color.New(color.FgHiBlack)
	levelColors = map[Level]*color.Color{
		DebugLevel: color.New(color.FgHiBlack),
		InfoLevel:  color.New(color.FgGreen),
		WarnLevel:  color.New(color.FgYellow),
		ErrorLevel: color.New(color.FgRed),
		FatalLevel: color.New(color.FgRed, color.Bold),
	}
)

// Logger is the main logger interface
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})
	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithPrefix(prefix string) Logger
}

// sink is the output state shared by a root logger and everything derived
// from it, so level and output changes reach loggers created earlier.
type sink struct {
	mu       sync.Mutex
	level    Level
	writer   io.Writer
	noColor  bool
	showTime bool
	file     *slog.Logger
	closer   io.Closer
}

// logger implements the Logger interface
type logger struct {
	out    *sink
	fields map[string]interface{}
	prefix string
}

// Default logger instance
var defaultLogger = New()

// Config holds logger configuration
type Config struct {
	Level    Level
	Writer   io.Writer
	NoColor  bool
	ShowTime bool
}

// New creates a new logger with default configuration
func New() Logger {
	return NewWithConfig(Config{
		Level:    InfoLevel,
		Writer:   os.Stdout,
		NoColor:  false,
		ShowTime: true,
	})
}

// NewWithConfig creates a new logger with custom configuration
func NewWithConfig(cfg Config) Logger {
	w := cfg.Writer
	if w == nil {
		w = os.Stdout
	}
	return &logger{
		out: &sink{
			level:    cfg.Level,
			writer:   w,
			noColor:  cfg.NoColor,
			showTime: cfg.ShowTime,
		},
	}
}

func defaultSink() *sink {
	return defaultLogger.(*logger).out
}

// SetLevel sets the global log level
func SetLevel(level Level) {
	s := defaultSink()
	s.mu.Lock()
	s.level = level
	s.mu.Unlock()
}

func colorDisabled() bool {
	s := defaultSink()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.noColor
}

// GetLevel returns the global log level
func GetLevel() Level {
	s := defaultSink()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

// SetNoColor disables color output
func SetNoColor(noColor bool) {
	s := defaultSink()
	s.mu.Lock()
	s.noColor = noColor
	s.mu.Unlock()
}

// SetOutput redirects console output of the global logger and returns the
// previous writer.
func SetOutput(w io.Writer) io.Writer {
	s := defaultSink()
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.writer
	s.writer = w
	return prev
}

// EnableFileLog mirrors every record of the global logger, at any level, as
// JSON into a size-rotated file. Closing the returned closer stops the mirror.
func EnableFileLog(path string) (io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("error creating log directory: %w", err)
	}
	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    32, // MB
		MaxBackups: 3,
	}

	s := defaultSink()
	s.mu.Lock()
	if s.closer != nil {
		_ = s.closer.Close()
	}
	s.file = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s.closer = w
	s.mu.Unlock()

	return closerFunc(func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closer != w {
			return nil
		}
		s.file, s.closer = nil, nil
		return w.Close()
	}), nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// Helper methods for the default logger
func Debug(args ...interface{})                       { defaultLogger.Debug(args...) }
func Debugf(format string, args ...interface{})       { defaultLogger.Debugf(format, args...) }
func Info(args ...interface{})                        { defaultLogger.Info(args...) }
func Infof(format string, args ...interface{})        { defaultLogger.Infof(format, args...) }
func Warn(args ...interface{})                        { defaultLogger.Warn(args...) }
func Warnf(format string, args ...interface{})        { defaultLogger.Warnf(format, args...) }
func Error(args ...interface{})                       { defaultLogger.Error(args...) }
func Errorf(format string, args ...interface{})       { defaultLogger.Errorf(format, args...) }
func Fatal(args ...interface{})                       { defaultLogger.Fatal(args...) }
func Fatalf(format string, args ...interface{})       { defaultLogger.Fatalf(format, args...) }
func WithField(key string, value interface{}) Logger  { return defaultLogger.WithField(key, value) }
func WithFields(fields map[string]interface{}) Logger { return defaultLogger.WithFields(fields) }
func WithPrefix(prefix string) Logger                 { return defaultLogger.WithPrefix(prefix) }

func (l *logger) sortedKeys() []string {
	keys := make([]string, 0, len(l.fields))
	for k := range l.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (l *logger) log(level Level, args ...interface{}) {
	s := l.out
	s.mu.Lock()

	message := fmt.Sprint(args...)
	keys := l.sortedKeys()

	if s.file != nil {
		attrs := make([]slog.Attr, 0, len(keys)+1)
		if l.prefix != "" {
			attrs = append(attrs, slog.String("component", l.prefix))
		}
		for _, k := range keys {
			attrs = append(attrs, slog.Any(k, l.fields[k]))
		}
		s.file.LogAttrs(context.Background(), level.slog(), message, attrs...)
	}

	if level >= s.level {
		paint := func(c *color.Color, text string) string {
			if s.noColor {
				return text
			}
			return c.Sprint(text)
		}

		var parts []string
		if s.showTime {
			parts = append(parts, paint(timeColor, time.Now().Format("15:04:05")))
		}
		parts = append(parts, paint(levelColors[level], levelLabel(level)))
		if l.prefix != "" {
			parts = append(parts, paint(prefixColor, "["+l.prefix+"]"))
		}
		if len(keys) > 0 {
			fieldParts := make([]string, 0, len(keys))
			for _, k := range keys {
				fieldParts = append(fieldParts, fmt.Sprintf("%s=%v", k, l.fields[k]))
			}
			parts = append(parts, paint(fieldColor, strings.Join(fieldParts, " ")))
		}
		parts = append(parts, message)

		_, _ = fmt.Fprintln(s.writer, strings.Join(parts, " "))
	}

	s.mu.Unlock()

	// Exit on fatal (after unlocking mutex)
	if level == FatalLevel {
		os.Exit(1)
	}
}

func (l *logger) logf(level Level, format string, args ...interface{}) {
	l.log(level, fmt.Sprintf(format, args...))
}

func levelLabel(level Level) string {
	switch level {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO "
	case WarnLevel:
		return "WARN "
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Logger interface implementation

func (l *logger) Debug(args ...interface{}) { l.log(DebugLevel, args...) }
func (l *logger) Info(args ...interface{})  { l.log(InfoLevel, args...) }
func (l *logger) Warn(args ...interface{})  { l.log(WarnLevel, args...) }
func (l *logger) Error(args ...interface{}) { l.log(ErrorLevel, args...) }
func (l *logger) Fatal(args ...interface{}) { l.log(FatalLevel, args...) }

func (l *logger) Debugf(format string, args ...interface{}) { l.logf(DebugLevel, format, args...) }
func (l *logger) Infof(format string, args ...interface{})  { l.logf(InfoLevel, format, args...) }
func (l *logger) Warnf(format string, args ...interface{})  { l.logf(WarnLevel, format, args...) }
func (l *logger) Errorf(format string, args ...interface{}) { l.logf(ErrorLevel, format, args...) }
func (l *logger) Fatalf(format string, args ...interface{}) { l.logf(FatalLevel, format, args...) }

func (l *logger) derive(prefix string, extra map[string]interface{}) *logger {
	fields := make(map[string]interface{}, len(l.fields)+len(extra))
	for k, v := range l.fields {
		fields[k] = v
	}
	for k, v := range extra {
		fields[k] = v
	}
	return &logger{out: l.out, fields: fields, prefix: prefix}
}

func (l *logger) WithField(key string, value interface{}) Logger {
	return l.derive(l.prefix, map[string]interface{}{key: value})
}

func (l *logger) WithFields(fields map[string]interface{}) Logger {
	return l.derive(l.prefix, fields)
}

func (l *logger) WithPrefix(prefix string) Logger {
	return l.derive(prefix, nil)
}

// ParseLevel parses a string log level
func ParseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "fatal":
		return FatalLevel
	default:
		return InfoLevel
	}
}
