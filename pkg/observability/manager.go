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

// Package observability wires OpenTelemetry tracing and Prometheus metrics
// for pipeline runs. Everything is off by default and the recorders are
// no-ops until a Manager is initialized.
package observability

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Manager owns the tracer provider and metrics for one process.
type Manager struct {
	config Config

	mu             sync.RWMutex
	tracerProvider trace.TracerProvider
	metrics        *PrometheusMetrics
}

// NewManager creates a manager for cfg. Call Initialize before use.
func NewManager(cfg Config) *Manager {
	cfg.SetDefaults()
	return &Manager{
		config:         cfg,
		tracerProvider: noop.NewTracerProvider(),
	}
}

// Initialize sets up tracing and metrics and installs the metrics globally.
func (m *Manager) Initialize(ctx context.Context) error {
	if err := m.config.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tp, err := InitTracer(ctx, m.config.Tracing)
	if err != nil {
		return err
	}
	m.tracerProvider = tp

	metrics, err := InitMetrics(m.config.Metrics)
	if err != nil {
		return err
	}
	m.metrics = metrics
	if m.config.Metrics.Enabled {
		SetGlobalMetrics(metrics)
	}
	return nil
}

// Metrics returns the initialized metrics, or nil.
func (m *Manager) Metrics() *PrometheusMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metrics
}

// Push sends metrics to the configured Pushgateway, if any.
func (m *Manager) Push(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.config.Metrics.PushGateway == "" {
		return nil
	}
	return m.metrics.Push(ctx, m.config.Metrics.PushGateway, m.config.Metrics.Job)
}

// Shutdown flushes pending spans and stops the providers.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	if spt, ok := m.tracerProvider.(interface{ Shutdown(context.Context) error }); ok {
		errs = append(errs, spt.Shutdown(ctx))
	}
	errs = append(errs, m.metrics.Shutdown(ctx))
	if m.config.Metrics.Enabled {
		SetGlobalMetrics(nil)
	}
	return errors.Join(errs...)
}
