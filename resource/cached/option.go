package cached

import (
	"log/slog"
	"time"
)

// options holds cache configuration.
type options struct {
	ttl    time.Duration
	logger *slog.Logger
}

// Option configures the caching resolver.
type Option func(*options)

// WithTTL sets how long a Stat result stays fresh.
// Default is 5 minutes.
func WithTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.ttl = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
