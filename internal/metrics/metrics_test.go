package metrics_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"scholarship-portal/internal/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestMetrics(t *testing.T) {
	ctx := context.Background()

	t.Run("NoopMeter", func(t *testing.T) {
		m, err := metrics.New(noop.NewMeterProvider().Meter("test"))
		require.NoError(t, err)

		assert.NotPanics(t, func() {
			m.RecordSignupAttempt(ctx)
			m.RecordValidationFailure(ctx, "missing_name")
			m.RecordPictureRejected(ctx, "too_large")
			m.RecordRegistration(ctx, "log", time.Millisecond, nil)
			m.RecordRegistration(ctx, "nats", time.Millisecond, errors.New("timeout"))
		})
	})

	t.Run("NilSafe", func(t *testing.T) {
		var m *metrics.Metrics

		assert.NotPanics(t, func() {
			m.RecordSignupAttempt(ctx)
			m.RecordValidationFailure(ctx, "underage")
			m.RecordPictureRejected(ctx, "unsupported_type")
			m.RecordRegistration(ctx, "kafka", time.Second, nil)
		})
	})
}
