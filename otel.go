package messaging

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/rucko24/technovationslp-backend"
)

// otelInstrumentation holds OpenTelemetry instrumentation for the messaging service.
type otelInstrumentation struct {
	enabled bool

	// Tracing
	tracingEnabled bool
	tracer         trace.Tracer

	// Metrics
	metricsEnabled bool

	// Send operations
	sendLatency metric.Float64Histogram
	sendCount   metric.Int64Counter
	sendErrors  metric.Int64Counter

	// Read operations (Get, Inbox, Stats)
	getLatency metric.Float64Histogram
	getCount   metric.Int64Counter
	getErrors  metric.Int64Counter

	// State updates (read flag, priority)
	updateLatency metric.Float64Histogram
	updateCount   metric.Int64Counter
	updateErrors  metric.Int64Counter

	// Confirmations (delivered, read)
	confirmLatency metric.Float64Histogram
	confirmCount   metric.Int64Counter
	confirmErrors  metric.Int64Counter
}

// newOtelInstrumentation creates new OTel instrumentation from options.
func newOtelInstrumentation(opts *options) (*otelInstrumentation, error) {
	o := &otelInstrumentation{
		enabled:        opts.tracingEnabled || opts.metricsEnabled,
		tracingEnabled: opts.tracingEnabled,
		metricsEnabled: opts.metricsEnabled,
	}

	if !o.enabled {
		return o, nil
	}

	if opts.tracingEnabled {
		tp := opts.tracerProvider
		if tp == nil {
			tp = otel.GetTracerProvider()
		}
		o.tracer = tp.Tracer(instrumentationName)
	}

	if opts.metricsEnabled {
		mp := opts.meterProvider
		if mp == nil {
			mp = otel.GetMeterProvider()
		}
		if err := o.initMetrics(mp); err != nil {
			return nil, err
		}
	}

	return o, nil
}

// initMetrics initializes all metric instruments.
func (o *otelInstrumentation) initMetrics(mp metric.MeterProvider) error {
	meter := mp.Meter(instrumentationName)

	var err error

	o.sendLatency, err = meter.Float64Histogram(
		"messaging.send.duration",
		metric.WithDescription("Duration of send operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	o.sendCount, err = meter.Int64Counter(
		"messaging.send.count",
		metric.WithDescription("Number of messages sent"),
	)
	if err != nil {
		return err
	}

	o.sendErrors, err = meter.Int64Counter(
		"messaging.send.errors",
		metric.WithDescription("Number of send errors"),
	)
	if err != nil {
		return err
	}

	o.getLatency, err = meter.Float64Histogram(
		"messaging.get.duration",
		metric.WithDescription("Duration of read operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	o.getCount, err = meter.Int64Counter(
		"messaging.get.count",
		metric.WithDescription("Number of read operations"),
	)
	if err != nil {
		return err
	}

	o.getErrors, err = meter.Int64Counter(
		"messaging.get.errors",
		metric.WithDescription("Number of read errors"),
	)
	if err != nil {
		return err
	}

	o.updateLatency, err = meter.Float64Histogram(
		"messaging.update.duration",
		metric.WithDescription("Duration of state update operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	o.updateCount, err = meter.Int64Counter(
		"messaging.update.count",
		metric.WithDescription("Number of state update operations"),
	)
	if err != nil {
		return err
	}

	o.updateErrors, err = meter.Int64Counter(
		"messaging.update.errors",
		metric.WithDescription("Number of state update errors"),
	)
	if err != nil {
		return err
	}

	o.confirmLatency, err = meter.Float64Histogram(
		"messaging.confirm.duration",
		metric.WithDescription("Duration of confirmation operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	o.confirmCount, err = meter.Int64Counter(
		"messaging.confirm.count",
		metric.WithDescription("Number of confirmation operations"),
	)
	if err != nil {
		return err
	}

	o.confirmErrors, err = meter.Int64Counter(
		"messaging.confirm.errors",
		metric.WithDescription("Number of confirmation errors"),
	)
	if err != nil {
		return err
	}

	return nil
}

// startSpan starts a new span if tracing is enabled.
// Caller should call the returned function with the operation's error when done.
func (o *otelInstrumentation) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	if !o.tracingEnabled || o.tracer == nil {
		return ctx, func(error) {}
	}
	ctx, span := o.tracer.Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// recordSend records send operation metrics.
func (o *otelInstrumentation) recordSend(ctx context.Context, duration time.Duration, recipientCount int, err error) {
	if !o.metricsEnabled {
		return
	}

	attrs := metric.WithAttributes(
		attribute.Int("recipient_count", recipientCount),
	)

	o.sendLatency.Record(ctx, duration.Seconds(), attrs)
	o.sendCount.Add(ctx, 1, attrs)
	if err != nil {
		o.sendErrors.Add(ctx, 1, attrs)
	}
}

// recordGet records read operation metrics.
func (o *otelInstrumentation) recordGet(ctx context.Context, duration time.Duration, operation string, err error) {
	if !o.metricsEnabled {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
	)

	o.getLatency.Record(ctx, duration.Seconds(), attrs)
	o.getCount.Add(ctx, 1, attrs)
	if err != nil {
		o.getErrors.Add(ctx, 1, attrs)
	}
}

// recordUpdate records state update metrics.
func (o *otelInstrumentation) recordUpdate(ctx context.Context, duration time.Duration, operation string, err error) {
	if !o.metricsEnabled {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
	)

	o.updateLatency.Record(ctx, duration.Seconds(), attrs)
	o.updateCount.Add(ctx, 1, attrs)
	if err != nil {
		o.updateErrors.Add(ctx, 1, attrs)
	}
}

// recordConfirm records confirmation metrics.
func (o *otelInstrumentation) recordConfirm(ctx context.Context, duration time.Duration, kind string, err error) {
	if !o.metricsEnabled {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("kind", kind),
	)

	o.confirmLatency.Record(ctx, duration.Seconds(), attrs)
	o.confirmCount.Add(ctx, 1, attrs)
	if err != nil {
		o.confirmErrors.Add(ctx, 1, attrs)
	}
}
