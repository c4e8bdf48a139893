// Package log provides the structured logging interface used across framefit.
//
// The interface is slog-compatible and backed by zerolog by default. Components
// that log (extraction, splitting, training, search, fitting) take a Logger through
// a functional option and fall back to GetLogger() when none is supplied.
//
// Example usage:
//
//	logger := log.GetLogger().With(
//	    log.ComponentKey, "training",
//	    log.ModelNameKey, "NeuralModel",
//	)
//	logger.Info("fold finished",
//	    log.FoldKey, 2,
//	    log.LossKey, 0.41,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are alternating key/value pairs. Error treats an error passed as the
// first field specially and attaches its stack trace when one was recorded.
type Logger interface {
	// Debug logs a debug-level message with optional structured fields.
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional structured fields.
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional structured fields.
	//
	// Example:
	//   logger.Warn("keeping youngest rows in test set",
	//       log.SplitTestKey, 12,
	//       log.SamplesKey, 40,
	//   )
	Warn(msg string, fields ...any)

	// Error logs an error-level message with optional structured fields.
	// If the first field is an error, it is logged under "error" together with
	// its stack trace.
	//
	// Example:
	//   logger.Error("search aborted",
	//       err,
	//       log.TrialKey, 7,
	//   )
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits log records at the given level.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
