package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	signupAttempts     metric.Int64Counter
	signupsSucceeded   metric.Int64Counter
	signupsFailed      metric.Int64Counter
	validationFailures metric.Int64Counter
	pictureRejections  metric.Int64Counter
	registrarDuration  metric.Float64Histogram
}

func New(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.signupAttempts, err = meter.Int64Counter(
		"scholarship_portal.signup.attempts",
		metric.WithDescription("Total number of signup submissions received"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	m.signupsSucceeded, err = meter.Int64Counter(
		"scholarship_portal.signup.succeeded",
		metric.WithDescription("Total number of signups handed to the registration backend"),
		metric.WithUnit("{signup}"),
	)
	if err != nil {
		return nil, err
	}

	m.signupsFailed, err = meter.Int64Counter(
		"scholarship_portal.signup.failed",
		metric.WithDescription("Total number of signups the registration backend rejected"),
		metric.WithUnit("{signup}"),
	)
	if err != nil {
		return nil, err
	}

	m.validationFailures, err = meter.Int64Counter(
		"scholarship_portal.signup.validation_failures",
		metric.WithDescription("Total number of submissions stopped by the validation gate"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	m.pictureRejections, err = meter.Int64Counter(
		"scholarship_portal.signup.picture_rejections",
		metric.WithDescription("Total number of rejected profile pictures"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, err
	}

	// Buckets: 1ms .. 5s, registrar calls are network bound
	m.registrarDuration, err = meter.Float64Histogram(
		"scholarship_portal.registration.duration",
		metric.WithDescription("Time spent handing a signup to the registration backend"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) RecordSignupAttempt(ctx context.Context) {
	if m != nil && m.signupAttempts != nil {
		m.signupAttempts.Add(ctx, 1)
	}
}

func (m *Metrics) RecordValidationFailure(ctx context.Context, rule string) {
	if m != nil && m.validationFailures != nil {
		m.validationFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("rule", rule)))
	}
}

func (m *Metrics) RecordPictureRejected(ctx context.Context, reason string) {
	if m != nil && m.pictureRejections != nil {
		m.pictureRejections.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	}
}

// RecordRegistration records one registrar call and its outcome.
func (m *Metrics) RecordRegistration(ctx context.Context, backend string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("backend", backend))
	if m.registrarDuration != nil {
		m.registrarDuration.Record(ctx, duration.Seconds(), attrs)
	}
	if err != nil {
		if m.signupsFailed != nil {
			m.signupsFailed.Add(ctx, 1, attrs)
		}
		return
	}
	if m.signupsSucceeded != nil {
		m.signupsSucceeded.Add(ctx, 1, attrs)
	}
}
