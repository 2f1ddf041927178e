package gcs

import (
	"log/slog"
)

// options holds GCS resolver configuration.
type options struct {
	credentialsFile string
	endpoint        string
	logger          *slog.Logger
}

// Option configures the GCS resolver.
type Option func(*options)

// WithCredentialsFile sets a service account key file.
// When unset, Application Default Credentials apply.
func WithCredentialsFile(path string) Option {
	return func(o *options) {
		o.credentialsFile = path
	}
}

// WithEndpoint sets a custom endpoint (for emulators, testing).
func WithEndpoint(endpoint string) Option {
	return func(o *options) {
		o.endpoint = endpoint
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
