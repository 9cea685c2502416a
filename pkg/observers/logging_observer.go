// Package observers provides observers for monitoring an intersection controller
package observers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/anggasct/intersection"
)

// LogLevel represents the logging level
type LogLevel int

const (
	// LogError logs only errors
	LogError LogLevel = iota
	// LogWarning logs errors and warnings
	LogWarning
	// LogInfo logs errors, warnings, and info
	LogInfo
	// LogDebug logs errors, warnings, info, and debug
	LogDebug
)

// slogLevel maps a LogLevel onto the slog scale
func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LogError:
		return slog.LevelError
	case LogWarning:
		return slog.LevelWarn
	case LogDebug:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// LoggingObserver logs controller events through slog
type LoggingObserver struct {
	level     LogLevel
	prefix    string
	logger    *slog.Logger
	mutex     sync.RWMutex
	formatter LogFormatter
}

// LogFormatter formats log messages
type LogFormatter func(level LogLevel, format string, args ...interface{}) string

// DefaultLogFormatter formats the message without decoration; slog adds the level
func DefaultLogFormatter(level LogLevel, format string, args ...interface{}) string {
	return fmt.Sprintf(format, args...)
}

// NewLoggingObserver creates a new logging observer writing to slog.Default()
func NewLoggingObserver(level LogLevel, prefix string) *LoggingObserver {
	return &LoggingObserver{
		level:     level,
		prefix:    prefix,
		logger:    slog.Default(),
		formatter: DefaultLogFormatter,
	}
}

// SetFormatter sets the log formatter
func (o *LoggingObserver) SetFormatter(formatter LogFormatter) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.formatter = formatter
}

// SetLogger replaces the destination logger
func (o *LoggingObserver) SetLogger(logger *slog.Logger) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	if logger != nil {
		o.logger = logger
	}
}

// log logs a message at the specified level
func (o *LoggingObserver) log(level LogLevel, format string, args ...interface{}) {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	if level > o.level {
		return
	}

	message := ""
	if o.formatter != nil {
		message = o.formatter(level, format, args...)
	} else {
		message = fmt.Sprintf(format, args...)
	}

	logger := o.logger
	if o.prefix != "" {
		logger = logger.With("component", o.prefix)
	}
	logger.Log(context.Background(), level.slogLevel(), message)
}

// OnPhaseChange logs phase changes
func (o *LoggingObserver) OnPhaseChange(from, to intersection.Phase, input intersection.Input, at time.Time) {
	o.log(LogInfo, "Phase: %s -> %s on %s", from, to, input)
}

// OnEmergencyChange logs emergency episodes
func (o *LoggingObserver) OnEmergencyChange(from, to intersection.EmergencyState, at time.Time) {
	level := LogInfo
	if to == intersection.EmergencyActivated {
		level = LogWarning
	}
	o.log(level, "Emergency: %s -> %s", from, to)
}

// OnLogAppend logs every event log entry
func (o *LoggingObserver) OnLogAppend(entry intersection.LogEntry) {
	o.log(LogDebug, "%s", entry)
}

// OnRequestRejected logs refused commands
func (o *LoggingObserver) OnRequestRejected(err *intersection.TransitionError, at time.Time) {
	o.log(LogWarning, "Rejected: %v", err)
}

// OnRunStateChange logs pause and resume
func (o *LoggingObserver) OnRunStateChange(paused bool, at time.Time) {
	if paused {
		o.log(LogInfo, "Simulation paused")
		return
	}
	o.log(LogInfo, "Simulation running")
}

// OnSimulationComplete logs the final statistics
func (o *LoggingObserver) OnSimulationComplete(snapshot intersection.Snapshot) {
	s := snapshot.Statistics
	o.log(LogInfo, "Simulation complete: %d transitions, %d/%d pedestrian requests served, %d emergencies, %d cars, %.1f cars/cycle",
		s.TotalTransitions, s.PedestrianRequestsServed, s.PedestrianRequests, s.EmergencyActivations, s.CarsPassed, s.Throughput)
}

// OnError logs errors
func (o *LoggingObserver) OnError(err error) {
	o.log(LogError, "Error: %v", err)
}
