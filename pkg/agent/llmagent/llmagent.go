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

// Package llmagent provides the LLM-backed agent.
//
// An LLM agent renders its instruction against session state, calls its
// model, dispatches the tool calls the model makes and repeats until the
// model answers without tools. The final answer is published to session
// state under OutputKey, decoded as JSON when an OutputSchema is set.
//
//	a, err := llmagent.New(llmagent.Config{
//	    Name:        "project_formatter",
//	    Model:       llm,
//	    Instruction: "Format {standard_project} for parents.",
//	    OutputKey:   "human_project",
//	})
package llmagent

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/a2aproject/a2a-go/a2a"

	"github.com/kadirpekel/toddleops/pkg/agent"
	"github.com/kadirpekel/toddleops/pkg/model"
	"github.com/kadirpekel/toddleops/pkg/observability"
	"github.com/kadirpekel/toddleops/pkg/tool"
)

// DefaultMaxIterations bounds model calls per agent run.
const DefaultMaxIterations = 25

// ErrMaxIterations is returned when the model keeps calling tools past the
// iteration limit.
var ErrMaxIterations = errors.New("llm agent exceeded max iterations")

// Config contains the configuration for an LLM agent.
type Config struct {
	// Name must be unique within the agent tree.
	Name string

	// Description is shown to parents that call this agent as a tool.
	Description string

	// Model is the LLM to use for generation.
	Model model.LLM

	// Instruction guides the agent's behavior. {key} placeholders are
	// resolved from session state before every model call.
	Instruction string

	// GenerateConfig contains LLM generation settings.
	GenerateConfig *model.GenerateConfig

	// Tools available to the agent. Tools that implement
	// tool.RequestProcessor also get to adjust each model request.
	Tools []tool.Tool

	// Toolsets provide tools resolved at run time.
	Toolsets []tool.Toolset

	// OutputKey saves the agent's final answer to session state.
	OutputKey string

	// OutputSchema requests JSON output matching the schema. The answer
	// stored under OutputKey is then the decoded JSON value.
	OutputSchema map[string]any

	// MaxIterations caps model calls per run. Default: 25.
	MaxIterations int

	// Metrics defaults to the global recorder.
	Metrics observability.Metrics

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

type llmAgent struct {
	name           string
	model          model.LLM
	instruction    string
	generateConfig *model.GenerateConfig
	tools          []tool.Tool
	toolsets       []tool.Toolset
	outputKey      string
	outputSchema   map[string]any
	maxIterations  int
	metrics        observability.Metrics
	logger         *slog.Logger
}

// New creates an LLM agent.
func New(cfg Config) (agent.Agent, error) {
	if cfg.Model == nil {
		return nil, fmt.Errorf("%w: %s: model is required", agent.ErrInvalidConfig, cfg.Name)
	}

	seen := make(map[string]bool, len(cfg.Tools))
	for _, t := range cfg.Tools {
		if t == nil {
			return nil, fmt.Errorf("%w: %s: nil tool", agent.ErrInvalidConfig, cfg.Name)
		}
		if seen[t.Name()] {
			return nil, fmt.Errorf("%w: %s: duplicate tool %q", agent.ErrInvalidConfig, cfg.Name, t.Name())
		}
		seen[t.Name()] = true
	}

	a := &llmAgent{
		name:           cfg.Name,
		model:          cfg.Model,
		instruction:    cfg.Instruction,
		generateConfig: cfg.GenerateConfig,
		tools:          cfg.Tools,
		toolsets:       cfg.Toolsets,
		outputKey:      cfg.OutputKey,
		outputSchema:   cfg.OutputSchema,
		maxIterations:  cfg.MaxIterations,
		metrics:        cfg.Metrics,
		logger:         cfg.Logger,
	}
	if a.maxIterations <= 0 {
		a.maxIterations = DefaultMaxIterations
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}

	return agent.New(agent.Config{
		Name:        cfg.Name,
		Description: cfg.Description,
		Run:         a.run,
	})
}

func (a *llmAgent) run(ctx agent.InvocationContext) iter.Seq2[*agent.Event, error] {
	return newFlow(a).Run(ctx)
}

func (a *llmAgent) recorder() observability.Metrics {
	if a.metrics != nil {
		return a.metrics
	}
	return observability.GetGlobalMetrics()
}

// resolveTools returns the static tools followed by toolset tools.
func (a *llmAgent) resolveTools(ctx agent.InvocationContext) []tool.Tool {
	tools := make([]tool.Tool, 0, len(a.tools))
	tools = append(tools, a.tools...)

	for _, ts := range a.toolsets {
		provided, err := ts.Tools(ctx)
		if err != nil {
			a.logger.Warn("Toolset failed to provide tools",
				"toolset", ts.Name(),
				"agent", a.name,
				"error", err)
			continue
		}
		tools = append(tools, provided...)
	}
	return tools
}

// buildMessages returns the invocation's user content followed by this
// agent's own messages on the current branch. Data produced by other agents
// reaches the model through state placeholders in the instruction.
func (a *llmAgent) buildMessages(ctx agent.InvocationContext) []*a2a.Message {
	var messages []*a2a.Message
	if msg := ctx.UserContent().ToMessage(); msg != nil {
		messages = append(messages, msg)
	}

	sess := ctx.Session()
	if sess == nil {
		return messages
	}
	for event := range sess.Events().All() {
		if event == nil || event.Message == nil || event.Partial {
			continue
		}
		if event.InvocationID != ctx.InvocationID() || event.Branch != ctx.Branch() {
			continue
		}
		if event.Author != a.name {
			continue
		}
		messages = append(messages, event.Message)
	}
	return messages
}
