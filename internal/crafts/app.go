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

package crafts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/google/uuid"

	"github.com/kadirpekel/toddleops/pkg/agent"
	"github.com/kadirpekel/toddleops/pkg/config"
	"github.com/kadirpekel/toddleops/pkg/factory"
	"github.com/kadirpekel/toddleops/pkg/memory"
	"github.com/kadirpekel/toddleops/pkg/observability"
	"github.com/kadirpekel/toddleops/pkg/project"
	"github.com/kadirpekel/toddleops/pkg/runner"
	"github.com/kadirpekel/toddleops/pkg/session"
	"github.com/kadirpekel/toddleops/pkg/store"
)

// AppName identifies toddleops sessions.
const AppName = "toddleops"

const defaultUserID = "caregiver"

// App wires configuration, storage, models and the agent registry.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	pool     *config.DBPool
	store    store.ProjectStore
	models   factory.ModelResolver
	closer   func() error
	registry *Registry
}

// AppOption customizes NewApp.
type AppOption func(*appOptions)

type appOptions struct {
	models  factory.ModelResolver
	store   store.ProjectStore
	metrics observability.Metrics
}

// WithModels replaces the router-backed model resolver.
func WithModels(m factory.ModelResolver) AppOption {
	return func(o *appOptions) { o.models = m }
}

// WithStore replaces the configured database.
func WithStore(s store.ProjectStore) AppOption {
	return func(o *appOptions) { o.store = s }
}

// WithAppMetrics sets the metrics recorder.
func WithAppMetrics(m observability.Metrics) AppOption {
	return func(o *appOptions) { o.metrics = m }
}

// NewApp opens the project store and registers the agent namespaces. cfg
// must already be processed (defaults applied and validated).
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...AppOption) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	var o appOptions
	for _, opt := range opts {
		opt(&o)
	}

	app := &App{cfg: cfg, logger: logger, store: o.store, models: o.models}

	if app.store == nil {
		app.pool = config.NewDBPool(logger)
		s, err := app.pool.OpenStore(ctx, &cfg.Database)
		if err != nil {
			_ = app.pool.Close()
			return nil, fmt.Errorf("open project store: %w", err)
		}
		app.store = s
	}

	if app.models == nil {
		rr := factory.NewRouterResolver(cfg.Models.RouterConfig(cfg.Retry.HTTPClient()))
		app.models = rr
		app.closer = rr.Close
	}

	registry, err := NewRegistry(Deps{
		Models:   app.models,
		Pipeline: cfg.Pipeline,
		SQLite:   cfg.MCP.SQLite,
		Store:    app.store,
		Metrics:  o.metrics,
		Logger:   logger,
	})
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.registry = registry
	return app, nil
}

// Store returns the project store.
func (a *App) Store() store.ProjectStore {
	return a.store
}

// Registry returns the agent registry.
func (a *App) Registry() *Registry {
	return a.registry
}

// RunOptions configures one Run.
type RunOptions struct {
	// AgentPath defaults to the root agent.
	AgentPath string

	// Save stores the final project when the run produced one.
	Save bool

	UserID string
}

// Result is what a run left in the session.
type Result struct {
	SessionID string

	// HumanProject is the markdown handout, empty when no agent wrote one.
	HumanProject string

	// Project is nil when the run produced no decodable project.
	Project *project.StandardProject

	Events int
}

// Run runs an agent for prompt in a fresh session. An empty prompt uses the
// configured default.
func (a *App) Run(ctx context.Context, prompt string, opts RunOptions) (*Result, error) {
	path := opts.AgentPath
	if path == "" {
		path = PathRootAgent
	}
	if prompt == "" {
		prompt = a.cfg.Pipeline.DefaultPrompt
	}
	userID := opts.UserID
	if userID == "" {
		userID = defaultUserID
	}

	root, err := a.registry.Agent(path)
	if err != nil {
		return nil, err
	}

	mem, err := memory.New(memory.Config{
		Store:    a.store,
		ReadOnly: !opts.Save,
		Logger:   a.logger,
	})
	if err != nil {
		return nil, err
	}

	r, err := runner.New(runner.Config{
		AppName:        AppName,
		Agent:          root,
		SessionService: session.InMemoryService(),
		Memory:         mem,
		Logger:         a.logger,
	})
	if err != nil {
		return nil, err
	}

	sessionID := uuid.NewString()
	content := agent.NewTextContent(prompt, a2a.MessageRoleUser)
	runCfg := agent.RunConfig{MaxLLMCalls: a.cfg.Pipeline.MaxLLMCalls}

	a.logger.Info("Running agent", "agent", root.Name(), "session", sessionID)

	result := &Result{SessionID: sessionID}
	for event, err := range r.Run(ctx, userID, sessionID, content, runCfg) {
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", root.Name(), err)
		}
		if !event.Partial {
			result.Events++
		}
	}

	sess, err := r.Session(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	a.collect(sess.State(), result)

	a.logger.Info("Run finished", "agent", root.Name(), "events", result.Events)
	return result, nil
}

func (a *App) collect(state agent.ReadonlyState, result *Result) {
	if v, err := state.Get(KeyStandardProject); err == nil {
		p, err := project.Decode(v)
		if err != nil {
			a.logger.Warn("Final project is not a valid StandardProject", "error", err)
		} else {
			result.Project = p
		}
	}

	if v, err := state.Get(KeyHumanProject); err == nil {
		if s, ok := v.(string); ok {
			result.HumanProject = s
		}
	}
	if result.HumanProject == "" && result.Project != nil {
		result.HumanProject = project.Markdown(result.Project)
	}
}

// Close releases the registry, model clients and database connections.
func (a *App) Close() error {
	var errs []error
	if a.registry != nil {
		errs = append(errs, a.registry.Close())
	}
	if a.closer != nil {
		errs = append(errs, a.closer())
	}
	if a.pool != nil {
		errs = append(errs, a.pool.Close())
	}
	return errors.Join(errs...)
}
