// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

var (
	globalMetrics Metrics = NoopMetrics{}
	metricsMu     sync.RWMutex
)

// Metrics records the measurements taken while building and running
// pipelines.
type Metrics interface {
	RecordMaterialization(ctx context.Context, archetype, kind string, err error)
	RecordAgentRun(ctx context.Context, agent string, duration time.Duration, err error)
	RecordToolExecution(ctx context.Context, tool string, duration time.Duration, err error)
	RecordLLMCall(ctx context.Context, model string, duration time.Duration, inputTokens, outputTokens int, err error)
}

// PrometheusMetrics records through OpenTelemetry instruments exported to a
// Prometheus registry.
type PrometheusMetrics struct {
	registry *prometheus.Registry
	provider *sdkmetric.MeterProvider

	materializations metric.Int64Counter

	agentDuration metric.Float64Histogram
	agentErrors   metric.Int64Counter

	toolDuration metric.Float64Histogram
	toolErrors   metric.Int64Counter

	llmDuration     metric.Float64Histogram
	llmInputTokens  metric.Int64Counter
	llmOutputTokens metric.Int64Counter
	llmErrors       metric.Int64Counter
}

// InitMetrics creates the metric instruments. A disabled config yields an
// empty PrometheusMetrics whose methods do nothing.
func InitMetrics(cfg MetricsConfig) (*PrometheusMetrics, error) {
	if !cfg.Enabled {
		return &PrometheusMetrics{}, nil
	}

	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(
		otelprom.WithRegisterer(registry),
		otelprom.WithNamespace(cfg.Namespace),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter(instrumentationName)

	m := &PrometheusMetrics{registry: registry, provider: provider}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.materializations, "archetype_materializations", "Archetypes turned into agents"},
		{&m.agentErrors, "agent_errors", "Agent runs that failed"},
		{&m.toolErrors, "tool_errors", "Tool executions that failed"},
		{&m.llmInputTokens, "llm_tokens_input", "Input tokens sent to models"},
		{&m.llmOutputTokens, "llm_tokens_output", "Output tokens received from models"},
		{&m.llmErrors, "llm_errors", "Model calls that failed"},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s counter: %w", c.name, err)
		}
	}

	histograms := []struct {
		dst  *metric.Float64Histogram
		name string
		desc string
	}{
		{&m.agentDuration, "agent_run_duration", "Agent run duration"},
		{&m.toolDuration, "tool_execution_duration", "Tool execution duration"},
		{&m.llmDuration, "llm_request_duration", "Model request duration"},
	}
	for _, h := range histograms {
		*h.dst, err = meter.Float64Histogram(h.name, metric.WithDescription(h.desc), metric.WithUnit("s"))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s histogram: %w", h.name, err)
		}
	}

	return m, nil
}

// Registry returns the Prometheus registry, nil when metrics are disabled.
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *PrometheusMetrics) RecordMaterialization(ctx context.Context, archetype, kind string, err error) {
	if m == nil || m.materializations == nil {
		return
	}
	m.materializations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("archetype", archetype),
		attribute.String("kind", kind),
		attribute.Bool("error", err != nil),
	))
}

func (m *PrometheusMetrics) RecordAgentRun(ctx context.Context, agent string, duration time.Duration, err error) {
	if m == nil || m.agentDuration == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("agent", agent))
	m.agentDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		m.agentErrors.Add(ctx, 1, attrs)
	}
}

func (m *PrometheusMetrics) RecordToolExecution(ctx context.Context, tool string, duration time.Duration, err error) {
	if m == nil || m.toolDuration == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("tool", tool))
	m.toolDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		m.toolErrors.Add(ctx, 1, attrs)
	}
}

func (m *PrometheusMetrics) RecordLLMCall(ctx context.Context, model string, duration time.Duration, inputTokens, outputTokens int, err error) {
	if m == nil || m.llmDuration == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("model", model))
	m.llmDuration.Record(ctx, duration.Seconds(), attrs)
	m.llmInputTokens.Add(ctx, int64(inputTokens), attrs)
	m.llmOutputTokens.Add(ctx, int64(outputTokens), attrs)
	if err != nil {
		m.llmErrors.Add(ctx, 1, attrs)
	}
}

// Push sends the current metrics to a Prometheus Pushgateway.
func (m *PrometheusMetrics) Push(ctx context.Context, gatewayURL, job string) error {
	if m == nil || m.registry == nil {
		return nil
	}
	if err := push.New(gatewayURL, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}

// Shutdown flushes and stops the meter provider.
func (m *PrometheusMetrics) Shutdown(ctx context.Context) error {
	if m == nil || m.provider == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}

func SetGlobalMetrics(m Metrics) {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	if m == nil {
		m = NoopMetrics{}
	}
	globalMetrics = m
}

// GetGlobalMetrics returns the process-wide recorder. Never nil.
func GetGlobalMetrics() Metrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return globalMetrics
}

var _ Metrics = (*PrometheusMetrics)(nil)
