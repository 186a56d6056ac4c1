package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"graphloader/internal/loader"
)

var _ loader.Hooks = (*LoaderMetrics)(nil)

func TestParseProtocol(t *testing.T) {
	tests := []struct {
		input   string
		want    otlpProtocol
		wantErr bool
	}{
		{"", protocolGRPC, false},
		{"grpc", protocolGRPC, false},
		{"http", protocolHTTP, false},
		{"http/protobuf", protocolHTTP, false},
		{" GRPC ", protocolGRPC, false},
		{"thrift", "", true},
	}
	for _, tc := range tests {
		got, err := parseProtocol(tc.input)
		if tc.wantErr {
			assert.Error(t, err, tc.input)
			continue
		}
		require.NoError(t, err, tc.input)
		assert.Equal(t, tc.want, got)
	}
}

func TestSamplerForRatio(t *testing.T) {
	assert.Equal(t, sdktrace.NeverSample().Description(), samplerForRatio(0).Description())
	assert.Equal(t, sdktrace.AlwaysSample().Description(), samplerForRatio(1).Description())
	assert.Contains(t, samplerForRatio(0.25).Description(), "ParentBased")
}

func TestSetupWithoutOTLP(t *testing.T) {
	providers, err := Setup(context.Background(), Config{
		ServiceName:    "graphloader-test",
		ServiceVersion: "dev",
	})
	require.NoError(t, err)
	require.NotNil(t, providers.Meter)
	assert.Nil(t, providers.Tracer, "no endpoint, no trace export")
	assert.Nil(t, providers.Logger)
	require.NoError(t, providers.Shutdown(context.Background()))
}

func TestLoaderMetrics(t *testing.T) {
	metrics, err := NewLoaderMetrics()
	require.NoError(t, err)

	// Instruments record against the installed provider; with the test
	// provider from TestSetupWithoutOTLP or the global noop this must
	// simply not panic.
	ctx := context.Background()
	metrics.CacheHit(ctx, "posts")
	metrics.CacheMiss(ctx, "posts")
	metrics.FlushBatch(ctx, "posts", 3, 2)
	metrics.FlushError(ctx, "posts")
}

func TestRequestMetrics(t *testing.T) {
	metrics, err := NewRequestMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	done := metrics.RequestStarted(ctx)
	metrics.RecordRequest(ctx, 0, 200)
	metrics.RecordRequest(ctx, 0, 500)
	done()
}
