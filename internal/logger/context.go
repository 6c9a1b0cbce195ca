package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

var logContextKey = contextKey{}

// LogContext holds cycle-scoped logging context. Every log line emitted while
// a rebalance cycle is running carries the cycle id so the full decision trail
// of a cycle can be reconstructed from the logs.
type LogContext struct {
	CycleID   string    // unique id of the running cycle
	Phase     string    // current cycle phase (FETCH, SCORE, PLAN, ...)
	DryRun    bool      // whether the cycle runs in dry-run mode
	StartTime time.Time // for duration calculation
}

// WithContext returns a new context with the given LogContext.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a LogContext for a starting cycle.
func NewLogContext(cycleID string, dryRun bool) *LogContext {
	return &LogContext{
		CycleID:   cycleID,
		DryRun:    dryRun,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext.
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	clone := *lc
	return &clone
}

// WithPhase returns a copy with the phase set.
func (lc *LogContext) WithPhase(phase string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Phase = phase
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds.
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
