package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{}
	cfg.SetDefaults()

	assert.Equal(t, DefaultServiceName, cfg.Tracing.ServiceName)
	assert.Equal(t, "otlp", cfg.Tracing.Exporter)
	assert.Equal(t, DefaultOTLPEndpoint, cfg.Tracing.Endpoint)
	assert.True(t, cfg.Tracing.IsInsecure())
	assert.Equal(t, 10*time.Second, cfg.Tracing.Timeout)
	assert.Equal(t, DefaultMetricsNamespace, cfg.Metrics.Namespace)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "bad exporter",
			cfg:     Config{Tracing: TracingConfig{Enabled: true, Exporter: "zipkin", SamplingRate: 1}},
			wantErr: "invalid exporter",
		},
		{
			name:    "bad sampling rate",
			cfg:     Config{Tracing: TracingConfig{Enabled: true, Exporter: "stdout", SamplingRate: 2}},
			wantErr: "sampling_rate",
		},
		{
			name:    "push without metrics",
			cfg:     Config{Metrics: MetricsConfig{PushGateway: "http://localhost:9091"}},
			wantErr: "push_gateway",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPrometheusMetrics_DisabledIsNoop(t *testing.T) {
	ctx := context.Background()
	m, err := InitMetrics(MetricsConfig{})
	require.NoError(t, err)

	m.RecordMaterialization(ctx, "ProjectFormatter", "worker", nil)
	m.RecordAgentRun(ctx, "project_formatter", time.Second, nil)
	m.RecordToolExecution(ctx, "exit_loop", time.Millisecond, nil)
	m.RecordLLMCall(ctx, "gemini-2.5-flash", time.Second, 10, 5, nil)

	assert.Nil(t, m.Registry())
	assert.NoError(t, m.Push(ctx, "http://unused", "job"))
	assert.NoError(t, m.Shutdown(ctx))
}

func TestPrometheusMetrics_RecordsIntoRegistry(t *testing.T) {
	ctx := context.Background()
	m, err := InitMetrics(MetricsConfig{Enabled: true, Namespace: "toddleops"})
	require.NoError(t, err)
	defer m.Shutdown(ctx)

	m.RecordMaterialization(ctx, "ProjectFormatter", "worker", nil)
	m.RecordToolExecution(ctx, "exit_loop", 5*time.Millisecond, errors.New("boom"))
	m.RecordLLMCall(ctx, "gemini-2.5-flash", 300*time.Millisecond, 100, 20, nil)

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	joined := strings.Join(names, ",")
	assert.Contains(t, joined, "archetype_materializations")
	assert.Contains(t, joined, "tool_errors")
	assert.Contains(t, joined, "llm_tokens_input")
}

func TestPrometheusMetrics_Push(t *testing.T) {
	var pushed atomic.Bool
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/metrics/job/toddleops") {
			pushed.Store(true)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer gateway.Close()

	ctx := context.Background()
	m, err := InitMetrics(MetricsConfig{Enabled: true, Namespace: "toddleops"})
	require.NoError(t, err)
	defer m.Shutdown(ctx)

	m.RecordAgentRun(ctx, "root_agent", time.Second, nil)
	require.NoError(t, m.Push(ctx, gateway.URL, "toddleops"))
	assert.True(t, pushed.Load())
}

func TestGlobalMetrics(t *testing.T) {
	assert.NotNil(t, GetGlobalMetrics())

	m, err := InitMetrics(MetricsConfig{Enabled: true})
	require.NoError(t, err)
	SetGlobalMetrics(m)
	assert.Same(t, m, GetGlobalMetrics())

	SetGlobalMetrics(nil)
	assert.Equal(t, NoopMetrics{}, GetGlobalMetrics())
}

func TestManager_DisabledLifecycle(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(Config{})
	require.NoError(t, mgr.Initialize(ctx))

	_, span := StartSpan(ctx, SpanAgentRun, "agent", "root_agent")
	EndSpan(span, errors.New("ignored by noop span"))

	assert.NoError(t, mgr.Push(ctx))
	assert.NoError(t, mgr.Shutdown(ctx))
}
