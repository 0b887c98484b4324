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

// Package agenttool exposes an agent as a tool another agent can call.
//
// The wrapped agent runs in an isolated in-memory session seeded from the
// caller's state. When it finishes, the values it wrote under the declared
// output keys are copied into the caller's state delta, so data produced by
// a managed agent flows back into the calling orchestrator's data bag.
//
//	pipeline := agenttool.New(projectPipeline, agenttool.Config{
//	    Handle:     "project_pipeline",
//	    Summary:    "Builds a complete toddler craft project.",
//	    OutputKeys: []string{"human_project"},
//	})
package agenttool

import (
	"fmt"
	"slices"
	"strings"

	"github.com/a2aproject/a2a-go/a2a"

	"github.com/kadirpekel/toddleops/pkg/agent"
	"github.com/kadirpekel/toddleops/pkg/session"
	"github.com/kadirpekel/toddleops/pkg/tool"
)

// Config holds the configuration for an agent tool.
type Config struct {
	// Handle is the tool name. Defaults to the agent name.
	Handle string

	// Summary is the tool description. Defaults to the agent description.
	Summary string

	// InputKeys restricts the caller state copied into the child session.
	// Empty copies all of it.
	InputKeys []string

	// OutputKeys are copied from the child session back to the caller.
	OutputKeys []string

	// SkipSummarization ends the caller's model loop after this tool runs.
	SkipSummarization bool
}

// AgentTool implements tool.CallableTool around an agent.
type AgentTool struct {
	agent             agent.Agent
	handle            string
	summary           string
	inputKeys         []string
	outputKeys        []string
	skipSummarization bool
}

// New creates a new agent tool that wraps ag.
func New(ag agent.Agent, cfg Config) *AgentTool {
	handle := cfg.Handle
	if handle == "" {
		handle = ag.Name()
	}
	summary := cfg.Summary
	if summary == "" {
		summary = ag.Description()
	}
	return &AgentTool{
		agent:             ag,
		handle:            handle,
		summary:           summary,
		inputKeys:         slices.Clone(cfg.InputKeys),
		outputKeys:        slices.Clone(cfg.OutputKeys),
		skipSummarization: cfg.SkipSummarization,
	}
}

func (t *AgentTool) Name() string         { return t.handle }
func (t *AgentTool) Description() string  { return t.summary }
func (t *AgentTool) Agent() agent.Agent   { return t.agent }
func (t *AgentTool) InputKeys() []string  { return slices.Clone(t.inputKeys) }
func (t *AgentTool) OutputKeys() []string { return slices.Clone(t.outputKeys) }

// Schema returns the JSON schema for the tool's parameters.
func (t *AgentTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"request": map[string]any{
				"type":        "string",
				"description": "The task or request for the " + t.handle + " agent",
			},
		},
		"required": []string{"request"},
	}
}

// Call runs the agent in an isolated session and returns its last text
// along with the values of its output keys.
func (t *AgentTool) Call(ctx tool.Context, args map[string]any) (map[string]any, error) {
	request, _ := args["request"].(string)

	holder, ok := ctx.(tool.InvocationContexter)
	if !ok {
		return nil, fmt.Errorf("agent tool %s: tool context has no invocation", t.handle)
	}
	parent := holder.InvocationContext()

	if t.skipSummarization {
		ctx.Actions().SkipSummarization = true
	}

	svc := session.InMemoryService()
	created, err := svc.Create(ctx, &session.CreateRequest{
		AppName: t.handle,
		UserID:  ctx.UserID(),
		State:   t.seedState(ctx.ReadonlyState()),
	})
	if err != nil {
		return nil, fmt.Errorf("agent tool %s: create session: %w", t.handle, err)
	}
	child := created.Session

	var content *agent.Content
	if request != "" {
		content = agent.NewTextContent(request, a2a.MessageRoleUser)
	}

	childCtx := agent.NewInvocationContext(ctx, agent.InvocationContextParams{
		Agent:       t.agent,
		Session:     child,
		Memory:      parent.Memory(),
		Branch:      t.agent.Name(),
		UserContent: content,
		RunConfig:   parent.RunConfig(),
	})

	var output string
	for event, err := range t.agent.Run(childCtx) {
		if err != nil {
			return nil, fmt.Errorf("agent tool %s: %w", t.handle, err)
		}
		if event == nil || event.Partial {
			continue
		}
		if err := svc.AppendEvent(ctx, child, event); err != nil {
			return nil, fmt.Errorf("agent tool %s: persist event: %w", t.handle, err)
		}
		if text := event.TextContent(); text != "" {
			output = text
		}
	}

	result := map[string]any{"result": output}
	for _, key := range t.outputKeys {
		value, err := child.State().Get(key)
		if err != nil {
			continue
		}
		if err := ctx.State().Set(key, value); err != nil {
			return nil, fmt.Errorf("agent tool %s: propagate %s: %w", t.handle, key, err)
		}
		result[key] = value
	}
	if output == "" && len(result) == 1 {
		result["result"] = fmt.Sprintf("Task completed by %s", t.handle)
	}
	return result, nil
}

// seedState copies the caller's state, skipping internal and temp keys.
func (t *AgentTool) seedState(state agent.ReadonlyState) map[string]any {
	seed := make(map[string]any)
	if state == nil {
		return seed
	}
	for k, v := range state.All() {
		if strings.HasPrefix(k, "_") || strings.HasPrefix(k, session.KeyPrefixTemp) {
			continue
		}
		if len(t.inputKeys) > 0 && !slices.Contains(t.inputKeys, k) {
			continue
		}
		seed[k] = v
	}
	return seed
}

var _ tool.CallableTool = (*AgentTool)(nil)
