package messaging

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

func TestDefaultOptions(t *testing.T) {
	o := newOptions()

	if o.maxSubjectLength != DefaultMaxSubjectLength {
		t.Errorf("expected default subject length %d, got %d", DefaultMaxSubjectLength, o.maxSubjectLength)
	}
	if o.maxBodySize != DefaultMaxBodySize {
		t.Errorf("expected default body size %d, got %d", DefaultMaxBodySize, o.maxBodySize)
	}
	if o.maxRecipientCount != DefaultMaxRecipientCount {
		t.Errorf("expected default recipient count %d, got %d", DefaultMaxRecipientCount, o.maxRecipientCount)
	}
	if o.maxConcurrentSends != DefaultMaxConcurrentSends {
		t.Errorf("expected default concurrent sends %d, got %d", DefaultMaxConcurrentSends, o.maxConcurrentSends)
	}
	if o.shutdownTimeout != DefaultShutdownTimeout {
		t.Errorf("expected default shutdown timeout %v, got %v", DefaultShutdownTimeout, o.shutdownTimeout)
	}
	if o.logger == nil {
		t.Error("expected default logger")
	}
	if o.confirmRetry.IsRetryable == nil {
		t.Error("expected confirm retry classifier to be set")
	}
	if o.onEventPublishFailure == nil {
		t.Error("expected default event failure handler")
	}
	if o.tracingEnabled || o.metricsEnabled {
		t.Error("telemetry should be disabled by default")
	}
}

func TestOptionValidation(t *testing.T) {
	t.Run("non-positive limits are ignored", func(t *testing.T) {
		o := newOptions(
			WithMaxSubjectLength(0),
			WithMaxBodySize(-1),
			WithMaxRecipients(0),
			WithMaxConcurrentSends(-5),
		)
		if o.maxSubjectLength != DefaultMaxSubjectLength {
			t.Error("zero subject length should keep default")
		}
		if o.maxBodySize != DefaultMaxBodySize {
			t.Error("negative body size should keep default")
		}
		if o.maxRecipientCount != DefaultMaxRecipientCount {
			t.Error("zero recipient count should keep default")
		}
		if o.maxConcurrentSends != DefaultMaxConcurrentSends {
			t.Error("negative concurrent sends should keep default")
		}
	})

	t.Run("shutdown timeout below minimum is ignored", func(t *testing.T) {
		o := newOptions(WithShutdownTimeout(time.Millisecond))
		if o.shutdownTimeout != DefaultShutdownTimeout {
			t.Errorf("expected default, got %v", o.shutdownTimeout)
		}

		o = newOptions(WithShutdownTimeout(2 * time.Second))
		if o.shutdownTimeout != 2*time.Second {
			t.Errorf("expected 2s, got %v", o.shutdownTimeout)
		}
	})

	t.Run("nil logger is ignored", func(t *testing.T) {
		o := newOptions(WithLogger(nil))
		if o.logger == nil {
			t.Error("nil logger should keep default")
		}
	})

	t.Run("custom values applied", func(t *testing.T) {
		logger := slog.Default().With("test", true)
		o := newOptions(
			WithLogger(logger),
			WithMaxSubjectLength(50),
			WithMaxRecipients(5),
			WithServiceName("cohort-messaging"),
			WithEventErrorsFatal(true),
		)
		if o.logger != logger {
			t.Error("expected custom logger")
		}
		if o.maxSubjectLength != 50 || o.maxRecipientCount != 5 {
			t.Error("expected custom limits")
		}
		if o.serviceName != "cohort-messaging" {
			t.Errorf("expected service name, got %q", o.serviceName)
		}
		if !o.eventErrorsFatal {
			t.Error("expected eventErrorsFatal")
		}
	})
}

func TestGetLimits(t *testing.T) {
	o := newOptions(WithMaxSubjectLength(7), WithMaxBodySize(11))
	limits := o.getLimits()
	if limits.MaxSubjectLength != 7 || limits.MaxBodySize != 11 {
		t.Errorf("unexpected limits: %+v", limits)
	}
	if limits.MaxRecipientCount != DefaultMaxRecipientCount {
		t.Errorf("expected default recipient count, got %d", limits.MaxRecipientCount)
	}
}

func TestSafeEventPublishFailure(t *testing.T) {
	t.Run("calls the handler", func(t *testing.T) {
		var gotEvent string
		var gotErr error
		o := newOptions(WithEventPublishFailureHandler(func(event string, err error) {
			gotEvent = event
			gotErr = err
		}))

		cause := errors.New("publish failed")
		o.safeEventPublishFailure("MessageSent", cause)
		if gotEvent != "MessageSent" || !errors.Is(gotErr, cause) {
			t.Errorf("handler got %q/%v", gotEvent, gotErr)
		}
	})

	t.Run("recovers handler panic", func(t *testing.T) {
		o := newOptions(WithEventPublishFailureHandler(func(string, error) {
			panic("handler bug")
		}))

		// Must not propagate the panic.
		o.safeEventPublishFailure("MessageRead", errors.New("publish failed"))
	})
}
