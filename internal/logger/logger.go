// Package logger provides leveled console logging and run metrics for ponisha-watch.
//
// Log lines are written through zerolog's console writer in the form
//
//	:: LEVEL	message key=value ...
//
// Loggers are constructed explicitly and passed to the components that log;
// there is no package-level default.
//
// Example usage:
//
//	log := logger.New(logger.LevelDebug, os.Stderr)
//	log.Info("requesting page", logger.Fields{"url": pageURL})
//	log.Error("notification failed", logger.Fields{"project_id": id}, err)
package logger

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Level represents log severity
type Level string

const (
	LevelDebug    Level = "DEBUG"
	LevelInfo     Level = "INFO"
	LevelWarn     Level = "WARN"
	LevelError    Level = "ERROR"
	LevelCritical Level = "CRITICAL"
)

var zerologLevels = map[Level]zerolog.Level{
	LevelDebug:    zerolog.DebugLevel,
	LevelInfo:     zerolog.InfoLevel,
	LevelWarn:     zerolog.WarnLevel,
	LevelError:    zerolog.ErrorLevel,
	LevelCritical: zerolog.FatalLevel,
}

// Fields represents structured log fields
type Fields map[string]interface{}

// Logger provides leveled logging on top of zerolog
type Logger struct {
	zl zerolog.Logger
}

// New creates a logger writing to output. Messages below level are discarded.
func New(level Level, output io.Writer) *Logger {
	cw := zerolog.ConsoleWriter{
		Out:         output,
		NoColor:     true,
		PartsOrder:  []string{zerolog.LevelFieldName, zerolog.MessageFieldName},
		FormatLevel: formatLevel,
	}

	zlLevel, ok := zerologLevels[level]
	if !ok {
		zlLevel = zerolog.InfoLevel
	}

	return &Logger{zl: zerolog.New(cw).Level(zlLevel)}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// ParseLevel converts a level name such as "debug" or "warning" to a Level
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug, nil
	case "", "INFO":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	case "CRITICAL", "FATAL":
		return LevelCritical, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level: %s", s)
	}
}

func formatLevel(i interface{}) string {
	name, _ := i.(string)
	if name == zerolog.LevelFatalValue {
		name = string(LevelCritical)
	}
	return fmt.Sprintf(":: %s\t", strings.ToUpper(name))
}

// log writes a single entry; disabled levels yield a nil event, which zerolog treats as a no-op
func (l *Logger) log(level Level, message string, fields Fields, err error) {
	zlLevel, ok := zerologLevels[level]
	if !ok {
		zlLevel = zerolog.InfoLevel
	}

	e := l.zl.WithLevel(zlLevel)
	if err != nil {
		e = e.Err(err)
	}
	e.Fields(map[string]interface{}(fields)).Msg(message)
}

// Debug logs a debug message
func (l *Logger) Debug(message string, fields Fields) {
	l.log(LevelDebug, message, fields, nil)
}

// Info logs an informational message
func (l *Logger) Info(message string, fields Fields) {
	l.log(LevelInfo, message, fields, nil)
}

// Warn logs a warning. Warnings mark recoverable problems such as an unreadable state file.
func (l *Logger) Warn(message string, fields Fields) {
	l.log(LevelWarn, message, fields, nil)
}

// Error logs an error message with an optional error value
func (l *Logger) Error(message string, fields Fields, err error) {
	l.log(LevelError, message, fields, err)
}

// Critical logs a failure that aborts the run. It does not exit the process.
func (l *Logger) Critical(message string, fields Fields, err error) {
	l.log(LevelCritical, message, fields, err)
}

// Metrics tracks counters and timings for a single run. Safe for concurrent use.
type Metrics struct {
	mu       sync.Mutex
	counters map[string]int64
	timings  map[string][]time.Duration
}

// NewMetrics creates an empty metrics tracker
func NewMetrics() *Metrics {
	return &Metrics{
		counters: make(map[string]int64),
		timings:  make(map[string][]time.Duration),
	}
}

// IncrCounter increments a counter by 1
func (m *Metrics) IncrCounter(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name]++
}

// RecordTiming records a duration measurement
func (m *Metrics) RecordTiming(name string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timings[name] = append(m.timings[name], duration)
}

// Counter returns the current value of a counter
func (m *Metrics) Counter(name string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

// Snapshot returns a copy of all metrics: "counters" maps names to values and
// "timings" maps names to count/total/min/max statistics.
func (m *Metrics) Snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	counters := make(map[string]int64, len(m.counters))
	for k, v := range m.counters {
		counters[k] = v
	}

	timings := make(map[string]map[string]interface{}, len(m.timings))
	for name, durations := range m.timings {
		if len(durations) == 0 {
			continue
		}

		var total time.Duration
		min, max := durations[0], durations[0]
		for _, d := range durations {
			total += d
			if d < min {
				min = d
			}
			if d > max {
				max = d
			}
		}

		timings[name] = map[string]interface{}{
			"count": len(durations),
			"total": total.String(),
			"min":   min.String(),
			"max":   max.String(),
		}
	}

	return map[string]interface{}{
		"counters": counters,
		"timings":  timings,
	}
}
