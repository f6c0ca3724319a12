package kafkahook

import (
	"log/slog"
	"time"
)

// Option configures an Extension.
type Option func(*Extension)

// WithLogger sets the logger for the extension.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extension) {
		e.logger = logger
	}
}

// WithEventTypes restricts publishing to the given event types.
// If not called, every event type is published.
func WithEventTypes(types ...string) Option {
	return func(e *Extension) {
		e.enabled = make(map[string]bool, len(types))
		for _, t := range types {
			e.enabled[t] = true
		}
	}
}

// WithClock overrides the clock stamping OccurredAt.
func WithClock(now func() time.Time) Option {
	return func(e *Extension) {
		e.now = now
	}
}
