package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"

	"github.com/ironsheep/image-pipeline-mcp/internal/logging"
)

func TestSetupTracing_Disabled(t *testing.T) {
	for _, exporter := range []string{"", "none", " NONE "} {
		shutdown, err := SetupTracing(context.Background(), Config{Exporter: exporter}, logging.NewNop())
		require.NoError(t, err)
		assert.NoError(t, shutdown(context.Background()))
	}
}

func TestSetupTracing_Stdout(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	shutdown, err := SetupTracing(context.Background(), Config{ServiceName: "test", Exporter: "stdout"}, logging.NewNop())
	require.NoError(t, err)
	assert.NotSame(t, prev, otel.GetTracerProvider())
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupTracing_Invalid(t *testing.T) {
	_, err := SetupTracing(context.Background(), Config{Exporter: "jaeger"}, logging.NewNop())
	assert.ErrorContains(t, err, "unsupported trace exporter")

	_, err = SetupTracing(context.Background(), Config{Exporter: "otlp"}, logging.NewNop())
	assert.ErrorContains(t, err, "requires endpoint")
}

func TestNewResource(t *testing.T) {
	res, err := newResource("image-pipeline-mcp")
	require.NoError(t, err)
	assert.Equal(t, resource.Default().SchemaURL(), res.SchemaURL())

	name, ok := res.Set().Value(semconv.ServiceNameKey)
	require.True(t, ok)
	assert.Equal(t, "image-pipeline-mcp", name.AsString())
}
