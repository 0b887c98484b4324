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

// Package agent defines the runtime contract shared by every agent kind.
//
// An Agent yields a stream of Events when run inside an InvocationContext.
// Events carry messages and side effects (EventActions); state changes are
// applied to the session by the runner when the event is persisted, which
// is how one stage's output key becomes a later stage's input.
package agent

import (
	"errors"
	"fmt"
	"iter"
)

// Agent is a runnable participant in an invocation.
type Agent interface {
	// Name returns the agent's unique name within its tree.
	Name() string

	// Description is surfaced to parents that call this agent as a tool.
	Description() string

	// Run executes the agent and yields its events.
	Run(ctx InvocationContext) iter.Seq2[*Event, error]

	// SubAgents returns the agents this agent drives directly.
	SubAgents() []Agent
}

// Config configures a custom agent built with New.
type Config struct {
	Name        string
	Description string
	SubAgents   []Agent

	// Run is the agent's behavior. The context passed in has this agent
	// as its current agent.
	Run func(ctx InvocationContext) iter.Seq2[*Event, error]
}

// ErrInvalidConfig is wrapped by agent construction failures.
var ErrInvalidConfig = errors.New("invalid agent config")

// New creates an agent from cfg.
func New(cfg Config) (Agent, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}
	if cfg.Run == nil {
		return nil, fmt.Errorf("%w: %s: run function is required", ErrInvalidConfig, cfg.Name)
	}

	seen := make(map[string]bool, len(cfg.SubAgents))
	for _, sub := range cfg.SubAgents {
		if sub == nil {
			return nil, fmt.Errorf("%w: %s: nil sub-agent", ErrInvalidConfig, cfg.Name)
		}
		if seen[sub.Name()] {
			return nil, fmt.Errorf("%w: %s: duplicate sub-agent %q", ErrInvalidConfig, cfg.Name, sub.Name())
		}
		seen[sub.Name()] = true
	}

	return &baseAgent{
		name:        cfg.Name,
		description: cfg.Description,
		subAgents:   cfg.SubAgents,
		run:         cfg.Run,
	}, nil
}

type baseAgent struct {
	name        string
	description string
	subAgents   []Agent
	run         func(ctx InvocationContext) iter.Seq2[*Event, error]
}

func (a *baseAgent) Name() string        { return a.name }
func (a *baseAgent) Description() string { return a.description }
func (a *baseAgent) SubAgents() []Agent  { return a.subAgents }

func (a *baseAgent) Run(ctx InvocationContext) iter.Seq2[*Event, error] {
	ctx = WithAgent(ctx, a)
	return func(yield func(*Event, error) bool) {
		for event, err := range a.run(ctx) {
			if event != nil {
				if event.Author == "" {
					event.Author = a.name
				}
				if event.InvocationID == "" {
					event.InvocationID = ctx.InvocationID()
				}
				if event.Branch == "" {
					event.Branch = ctx.Branch()
				}
			}
			if !yield(event, err) {
				return
			}
		}
	}
}

// FindAgent searches the tree rooted at root for an agent named name.
func FindAgent(root Agent, name string) Agent {
	if root == nil {
		return nil
	}
	if root.Name() == name {
		return root
	}
	for _, sub := range root.SubAgents() {
		if found := FindAgent(sub, name); found != nil {
			return found
		}
	}
	return nil
}

var _ Agent = (*baseAgent)(nil)
