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
	"io"
	"log/slog"
	"sync"

	"github.com/kadirpekel/toddleops/pkg/agent"
	"github.com/kadirpekel/toddleops/pkg/agent/workflowagent"
	"github.com/kadirpekel/toddleops/pkg/archetype"
	"github.com/kadirpekel/toddleops/pkg/config"
	"github.com/kadirpekel/toddleops/pkg/factory"
	"github.com/kadirpekel/toddleops/pkg/observability"
	"github.com/kadirpekel/toddleops/pkg/project"
	"github.com/kadirpekel/toddleops/pkg/resolve"
	"github.com/kadirpekel/toddleops/pkg/store"
	"github.com/kadirpekel/toddleops/pkg/tool/controltool"
	"github.com/kadirpekel/toddleops/pkg/tool/geminitool"
	"github.com/kadirpekel/toddleops/pkg/tool/mcptoolset"
	"github.com/kadirpekel/toddleops/pkg/tool/memorytool"
)

// Deps are the collaborators the namespaces build agents with.
type Deps struct {
	Models   factory.ModelResolver
	Pipeline config.PipelineConfig
	SQLite   config.MCPServerConfig

	// Store backs the built-in project toolset. It is only required when
	// SQLite names no external server.
	Store store.ProjectStore

	Metrics observability.Metrics
	Logger  *slog.Logger
}

// Registry resolves every toddleops dotted path. Agents and toolsets are
// built on first resolution and shared afterwards.
type Registry struct {
	*resolve.Namespaces

	deps Deps

	mu      sync.Mutex
	closers []io.Closer
}

// NewRegistry registers the toddleops namespaces.
func NewRegistry(deps Deps) (*Registry, error) {
	if deps.Models == nil {
		return nil, errors.New("model resolver is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = observability.GetGlobalMetrics()
	}
	deps.Pipeline.SetDefaults()

	r := &Registry{Namespaces: resolve.NewNamespaces(), deps: deps}
	loaders := []struct {
		name   string
		loader resolve.Loader
	}{
		{"toddleops.tools", r.loadTools},
		{"toddleops.mcp.sqlite", r.loadSQLite},
		{"toddleops.agents.research", r.loadResearch},
		{"toddleops.agents.craft_research", r.loadCraftResearch},
		{"toddleops.agents.quality_assurance", r.loadQualityAssurance},
		{"toddleops.agents.formatter", r.loadFormatter},
		{"toddleops.agents.database", r.loadDatabase},
		{"toddleops.agents.root", r.loadRoot},
	}
	for _, l := range loaders {
		if err := r.Register(l.name, l.loader); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Agent resolves path to an agent.
func (r *Registry) Agent(path string) (agent.Agent, error) {
	return resolve.As[agent.Agent](r, path)
}

// Close releases toolsets opened by the registry.
func (r *Registry) Close() error {
	r.mu.Lock()
	closers := r.closers
	r.closers = nil
	r.mu.Unlock()

	var errs []error
	for _, c := range closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func (r *Registry) track(c io.Closer) {
	r.mu.Lock()
	r.closers = append(r.closers, c)
	r.mu.Unlock()
}

func (r *Registry) loadTools(ns *resolve.Namespace) error {
	ns.Set("google_search", geminitool.NewGoogleSearch())
	ns.Set("preload_memory", memorytool.NewPreloadMemory())
	ns.Set("exit_loop", controltool.ExitLoop())
	ns.Lazy(ToolFindProjectsName, func() (any, error) {
		return NewFindProjectsTool(r.deps.Store)
	})
	return nil
}

func (r *Registry) loadSQLite(ns *resolve.Namespace) error {
	ns.Lazy("mcp_sqlite_server", func() (any, error) {
		var (
			ts  *mcptoolset.Toolset
			err error
		)
		if cfg := r.deps.SQLite; cfg.Enabled() {
			ts, err = mcptoolset.New(mcptoolset.Config{
				Name:      "sqlite",
				Transport: cfg.Transport,
				URL:       cfg.URL,
				Command:   cfg.Command,
				Args:      cfg.Args,
				Env:       cfg.Env,
				Filter:    cfg.Filter,
				Logger:    r.deps.Logger,
			})
		} else {
			ts, err = NewProjectToolset(r.deps.Store, r.deps.Logger)
		}
		if err != nil {
			return nil, err
		}
		r.track(ts)
		return ts, nil
	})
	return nil
}

func (r *Registry) loadResearch(ns *resolve.Namespace) error {
	p := r.deps.Pipeline
	r.lazyBuild(ns, "art_craft_researcher", ArtCraftResearcher, factory.WithGenerateConfig(p.LowTemperatureConfig()))
	r.lazyBuild(ns, "science_craft_researcher", ScienceCraftResearcher, factory.WithGenerateConfig(p.LowTemperatureConfig()))
	r.lazyBuild(ns, "silly_craft_researcher", SillyCraftResearcher, factory.WithGenerateConfig(p.HighTemperatureConfig()))
	r.lazyCompose(ns, "project_researcher", CraftResearchTeam, 0)
	return nil
}

func (r *Registry) loadCraftResearch(ns *resolve.Namespace) error {
	ns.Lazy("project_researcher", func() (any, error) {
		return r.Agent(PathResearchTeam)
	})
	r.lazyBuild(ns, "project_synthesizer", ProjectSynthesizer, factory.WithOutputSchema(project.Schema()))
	r.lazyCompose(ns, "root_agent", CraftResearchPipeline, 0)
	return nil
}

func (r *Registry) loadQualityAssurance(ns *resolve.Namespace) error {
	r.lazyBuild(ns, "safety_critic", SafetyCritic)
	r.lazyBuild(ns, "safety_refiner", SafetyRefiner)
	r.lazyCompose(ns, "safety_refinement_loop", SafetyRefinementLoop, r.deps.Pipeline.SafetyMaxIterations)
	r.lazyBuild(ns, "editorial_agent", EditorialAgent)
	r.lazyCompose(ns, "root_agent", QualityAssurancePipeline, 0)
	return nil
}

func (r *Registry) loadFormatter(ns *resolve.Namespace) error {
	r.lazyBuild(ns, "project_formatter", ProjectFormatter)
	return nil
}

func (r *Registry) loadDatabase(ns *resolve.Namespace) error {
	r.lazyBuild(ns, "project_database_agent", ProjectDatabaseAgent)
	return nil
}

func (r *Registry) loadRoot(ns *resolve.Namespace) error {
	r.lazyCompose(ns, "project_pipeline", ToddleOpsSequence, 0)
	r.lazyBuild(ns, "root_agent", ToddleOpsRoot)
	return nil
}

func (r *Registry) lazyBuild(ns *resolve.Namespace, name string, a archetype.Archetype, opts ...factory.Option) {
	ns.Lazy(name, func() (any, error) {
		return r.build(a, opts...)
	})
}

func (r *Registry) lazyCompose(ns *resolve.Namespace, name string, o *archetype.Orchestrator, maxIterations uint) {
	ns.Lazy(name, func() (any, error) {
		return r.compose(o, maxIterations)
	})
}

// build materializes a through the factory, resolving its tools and
// managed agents from r.
func (r *Registry) build(a archetype.Archetype, opts ...factory.Option) (*factory.Agent, error) {
	base := []factory.Option{
		factory.WithModelResolver(r.deps.Models),
		factory.WithToolResolver(r),
		factory.WithAgentResolver(r),
		factory.WithMetrics(r.deps.Metrics),
		factory.WithLogger(r.deps.Logger),
	}
	return factory.Build(a, append(base, opts...)...)
}

// compose runs the managed agents of o as workflow sub-agents in o's style
// instead of handing them to a model as tools.
func (r *Registry) compose(o *archetype.Orchestrator, maxIterations uint) (_ agent.Agent, err error) {
	defer func() {
		r.deps.Metrics.RecordMaterialization(context.Background(), o.Name(), "workflow", err)
	}()

	managed := o.ManagedAgents()
	subs := make([]agent.Agent, 0, len(managed))
	for _, spec := range managed {
		sub, err := r.Agent(spec.AgentPath)
		if err != nil {
			return nil, fmt.Errorf("compose %s: managed agent %q: %w", o.Name(), spec.Handle, err)
		}
		subs = append(subs, sub)
	}

	r.deps.Logger.Debug("Composed workflow agent",
		"archetype", o.Name(),
		"style", o.Style(),
		"sub_agents", len(subs))

	return workflowagent.Compose(o.Style(), workflowagent.ComposeConfig{
		Name:          o.Name(),
		Description:   o.Summary(),
		SubAgents:     subs,
		MaxIterations: maxIterations,
	})
}
