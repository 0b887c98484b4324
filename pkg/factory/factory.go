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

// Package factory materializes archetypes into runnable agents.
//
// Build resolves an archetype's model, its tools and, for orchestrators, its
// managed agents, then hands the result to an agent constructor. Every
// collaborator is injectable through options, so tests can materialize an
// archetype without a model provider or a namespace registry.
//
// Example:
//
//	ag, err := factory.Build(crafts.ProjectFormatter,
//	    factory.WithToolResolver(namespaces),
//	    factory.WithAgentResolver(namespaces),
//	)
package factory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kadirpekel/toddleops/pkg/agent"
	"github.com/kadirpekel/toddleops/pkg/agent/llmagent"
	"github.com/kadirpekel/toddleops/pkg/archetype"
	"github.com/kadirpekel/toddleops/pkg/model"
	"github.com/kadirpekel/toddleops/pkg/observability"
	"github.com/kadirpekel/toddleops/pkg/resolve"
	"github.com/kadirpekel/toddleops/pkg/tool"
	"github.com/kadirpekel/toddleops/pkg/tool/agenttool"
)

// ErrNilArchetype is returned when Build is given no archetype.
var ErrNilArchetype = errors.New("archetype is required")

// LeafConfig is everything the agent constructor needs.
type LeafConfig struct {
	Name        string
	Description string
	Instruction string
	Model       model.LLM

	// Tools holds default tools, then helper tools, then wrapped managed
	// agents, each group in declaration order.
	Tools    []tool.Tool
	Toolsets []tool.Toolset

	OutputKey string

	// GenerateConfig and OutputSchema are set through options.
	GenerateConfig *model.GenerateConfig
	OutputSchema   map[string]any

	Logger *slog.Logger
}

// AgentConstructor builds the leaf agent.
type AgentConstructor func(cfg LeafConfig) (agent.Agent, error)

// AgentToolConstructor wraps a managed agent as a tool.
type AgentToolConstructor func(child agent.Agent, cfg agenttool.Config) (tool.Tool, error)

// NewLLMAgent is the default AgentConstructor.
func NewLLMAgent(cfg LeafConfig) (agent.Agent, error) {
	return llmagent.New(llmagent.Config{
		Name:           cfg.Name,
		Description:    cfg.Description,
		Model:          cfg.Model,
		Instruction:    cfg.Instruction,
		GenerateConfig: cfg.GenerateConfig,
		Tools:          cfg.Tools,
		Toolsets:       cfg.Toolsets,
		OutputKey:      cfg.OutputKey,
		OutputSchema:   cfg.OutputSchema,
		Logger:         cfg.Logger,
	})
}

// NewAgentTool is the default AgentToolConstructor.
func NewAgentTool(child agent.Agent, cfg agenttool.Config) (tool.Tool, error) {
	return agenttool.New(child, cfg), nil
}

// Agent is a materialized agent that remembers its archetype.
type Agent struct {
	agent.Agent
	archetype archetype.Archetype
}

// Archetype returns the archetype the agent was built from.
func (a *Agent) Archetype() archetype.Archetype {
	return a.archetype
}

// ArchetypeOf returns the archetype ag was built from, if any.
func ArchetypeOf(ag agent.Agent) (archetype.Archetype, bool) {
	if fa, ok := ag.(*Agent); ok && fa.archetype != nil {
		return fa.archetype, true
	}
	return nil, false
}

type options struct {
	models         ModelResolver
	tools          resolve.Resolver
	agents         resolve.Resolver
	newAgent       AgentConstructor
	newAgentTool   AgentToolConstructor
	generateConfig *model.GenerateConfig
	outputSchema   map[string]any
	metrics        observability.Metrics
	logger         *slog.Logger
}

// Option configures Build.
type Option func(*options)

// WithModelResolver sets the model resolver. Default: a DefaultModelResolver
// configured from the environment.
func WithModelResolver(r ModelResolver) Option {
	return func(o *options) { o.models = r }
}

// WithToolResolver sets the resolver for default and helper tool paths.
// Default: resolve.Default().
func WithToolResolver(r resolve.Resolver) Option {
	return func(o *options) { o.tools = r }
}

// WithAgentResolver sets the resolver for managed agent paths.
// Default: resolve.Default().
func WithAgentResolver(r resolve.Resolver) Option {
	return func(o *options) { o.agents = r }
}

// WithAgentConstructor replaces NewLLMAgent.
func WithAgentConstructor(c AgentConstructor) Option {
	return func(o *options) { o.newAgent = c }
}

// WithAgentToolConstructor replaces NewAgentTool.
func WithAgentToolConstructor(c AgentToolConstructor) Option {
	return func(o *options) { o.newAgentTool = c }
}

// WithGenerateConfig sets the leaf's generation settings.
func WithGenerateConfig(cfg *model.GenerateConfig) Option {
	return func(o *options) { o.generateConfig = cfg }
}

// WithOutputSchema asks the leaf for JSON output matching schema.
func WithOutputSchema(schema map[string]any) Option {
	return func(o *options) { o.outputSchema = schema }
}

// WithMetrics sets the metrics recorder. Default: the global recorder.
func WithMetrics(m observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Build materializes a with a background context.
func Build(a archetype.Archetype, opts ...Option) (*Agent, error) {
	return BuildContext(context.Background(), a, opts...)
}

// BuildContext materializes a. Either the whole agent is returned or an
// error is; resolver errors are wrapped, never replaced.
func BuildContext(ctx context.Context, a archetype.Archetype, opts ...Option) (_ *Agent, err error) {
	if a == nil {
		return nil, ErrNilArchetype
	}

	o := options{
		newAgent:     NewLLMAgent,
		newAgentTool: NewAgentTool,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.metrics == nil {
		o.metrics = observability.GetGlobalMetrics()
	}
	if o.models == nil {
		o.models = DefaultModelResolver()
	}
	if o.tools == nil {
		o.tools = resolve.Default()
	}
	if o.agents == nil {
		o.agents = resolve.Default()
	}

	_, span := observability.StartSpan(ctx, observability.SpanMaterialize,
		"archetype", a.Name(), "kind", string(a.Kind()))
	defer func() {
		observability.EndSpan(span, err)
		o.metrics.RecordMaterialization(ctx, a.Name(), string(a.Kind()), err)
	}()

	b := &builder{
		arch:   a,
		opts:   &o,
		tools:  resolve.NewMemo(o.tools),
		agents: resolve.NewMemo(o.agents),
	}
	leaf, err := b.build()
	if err != nil {
		o.logger.Debug("Materialization failed", "archetype", a.Name(), "error", err)
		return nil, err
	}

	o.logger.Debug("Materialized archetype",
		"archetype", a.Name(),
		"kind", a.Kind(),
		"tools", len(b.leafTools),
		"toolsets", len(b.leafToolsets))

	return &Agent{Agent: leaf, archetype: a}, nil
}

type builder struct {
	arch   archetype.Archetype
	opts   *options
	tools  resolve.Resolver
	agents resolve.Resolver

	leafTools    []tool.Tool
	leafToolsets []tool.Toolset
}

func (b *builder) build() (agent.Agent, error) {
	name := b.arch.Name()

	llm, err := b.opts.models.ResolveModel(b.arch.Model())
	if err != nil {
		return nil, fmt.Errorf("materialize %s: model %q: %w", name, b.arch.Model(), err)
	}

	for _, path := range b.arch.DefaultTools() {
		if err := b.addTool(path); err != nil {
			return nil, fmt.Errorf("materialize %s: default tool: %w", name, err)
		}
	}

	switch a := b.arch.(type) {
	case *archetype.Worker:
		for _, path := range a.HelperTools() {
			if err := b.addTool(path); err != nil {
				return nil, fmt.Errorf("materialize %s: helper tool: %w", name, err)
			}
		}
	case *archetype.Orchestrator:
		for _, spec := range a.ManagedAgents() {
			if err := b.addManaged(spec); err != nil {
				return nil, fmt.Errorf("materialize %s: managed agent %q: %w", name, spec.Handle, err)
			}
		}
	}

	leaf, err := b.opts.newAgent(LeafConfig{
		Name:           name,
		Description:    b.arch.Summary(),
		Instruction:    b.arch.Instruction(),
		Model:          llm,
		Tools:          b.leafTools,
		Toolsets:       b.leafToolsets,
		OutputKey:      b.arch.OutputKey(),
		GenerateConfig: b.opts.generateConfig,
		OutputSchema:   b.opts.outputSchema,
		Logger:         b.opts.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("materialize %s: %w", name, err)
	}
	return leaf, nil
}

func (b *builder) addTool(path string) error {
	v, err := b.tools.Resolve(path)
	if err != nil {
		return err
	}
	switch t := v.(type) {
	case tool.Tool:
		b.leafTools = append(b.leafTools, t)
	case tool.Toolset:
		b.leafToolsets = append(b.leafToolsets, t)
	default:
		return resolve.NewError(path, fmt.Errorf("%w: %T is neither a tool nor a toolset", resolve.ErrUnexpectedType, v))
	}
	return nil
}

func (b *builder) addManaged(spec archetype.ToolSpec) error {
	child, err := resolve.As[agent.Agent](b.agents, spec.AgentPath)
	if err != nil {
		return err
	}
	t, err := b.opts.newAgentTool(child, agenttool.Config{
		Handle:     spec.Handle,
		Summary:    spec.Summary,
		InputKeys:  spec.InputKeys,
		OutputKeys: spec.OutputKeys,
	})
	if err != nil {
		return err
	}
	b.leafTools = append(b.leafTools, t)
	return nil
}
