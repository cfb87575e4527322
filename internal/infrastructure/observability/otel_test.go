package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestSetup_RegistersTraceAndMeterProviders(t *testing.T) {
	ctx := context.Background()

	shutdown, err := Setup(ctx, "calendar-engine-test", "test", "localhost:4317")
	require.NoError(t, err)

	_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	assert.True(t, ok, "tracer provider not registered")
	_, ok = otel.GetMeterProvider().(*sdkmetric.MeterProvider)
	assert.True(t, ok, "meter provider not registered")

	// Instruments created after Setup record against the SDK provider
	// instead of the no-op default.
	m, err := InitMetrics()
	require.NoError(t, err)
	require.NotNil(t, m.RequestCount)
	m.RequestCount.Add(ctx, 1)

	// No collector is listening; only the registration matters here, so
	// the final flush is allowed to fail.
	shutdownCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_ = shutdown(shutdownCtx)
}
