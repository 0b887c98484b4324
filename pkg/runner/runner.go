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

// Package runner drives an agent tree within a session.
//
// The Runner creates or resumes the session, records the user message,
// persists every complete event the agents yield (applying its state delta)
// and hands the finished session to memory for later recall.
package runner

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/kadirpekel/toddleops/pkg/agent"
	"github.com/kadirpekel/toddleops/pkg/session"
)

// Config contains the configuration for creating a Runner.
type Config struct {
	// AppName identifies the application.
	AppName string

	// Agent is the root agent for execution.
	Agent agent.Agent

	// SessionService manages session lifecycle.
	SessionService session.Service

	// Memory receives each session after a turn and serves searches
	// during it (optional).
	Memory agent.Memory

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Runner orchestrates agent execution within sessions.
type Runner struct {
	appName        string
	rootAgent      agent.Agent
	sessionService session.Service
	memory         agent.Memory
	logger         *slog.Logger
	parents        ParentMap
}

// New creates a new Runner.
func New(cfg Config) (*Runner, error) {
	if cfg.Agent == nil {
		return nil, errors.New("root agent is required")
	}
	if cfg.SessionService == nil {
		return nil, errors.New("session service is required")
	}

	parents, err := BuildParentMap(cfg.Agent)
	if err != nil {
		return nil, fmt.Errorf("failed to build agent tree: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mem := cfg.Memory
	if mem == nil {
		mem = agent.NilMemory()
	}

	return &Runner{
		appName:        cfg.AppName,
		rootAgent:      cfg.Agent,
		sessionService: cfg.SessionService,
		memory:         mem,
		logger:         logger,
		parents:        parents,
	}, nil
}

// Run executes the root agent for content, yielding its events. Complete
// events are persisted before they are yielded, so a later agent in the
// tree observes the state written by an earlier one.
func (r *Runner) Run(ctx context.Context, userID, sessionID string, content *agent.Content, cfg agent.RunConfig) iter.Seq2[*agent.Event, error] {
	return r.RunWithState(ctx, userID, sessionID, nil, content, cfg)
}

// RunWithState is Run with initial state for a newly created session.
// The state is ignored when the session already exists.
func (r *Runner) RunWithState(ctx context.Context, userID, sessionID string, state map[string]any, content *agent.Content, cfg agent.RunConfig) iter.Seq2[*agent.Event, error] {
	return func(yield func(*agent.Event, error) bool) {
		sess, err := r.getOrCreateSession(ctx, userID, sessionID, state)
		if err != nil {
			yield(nil, err)
			return
		}

		defer r.clearTempState(sess)
		defer r.indexSession(ctx, sess)

		invCtx := agent.NewInvocationContext(ctx, agent.InvocationContextParams{
			Agent:       r.rootAgent,
			Session:     sess,
			Memory:      r.memory,
			Branch:      r.rootAgent.Name(),
			UserContent: content,
			RunConfig:   &cfg,
		})

		if err := r.appendUserMessage(ctx, sess, content, invCtx.InvocationID()); err != nil {
			yield(nil, err)
			return
		}

		for event, err := range r.rootAgent.Run(invCtx) {
			if err != nil {
				if !yield(event, err) {
					return
				}
				continue
			}
			if event == nil {
				continue
			}

			if !event.Partial {
				if err := r.sessionService.AppendEvent(ctx, sess, event); err != nil {
					yield(nil, fmt.Errorf("failed to persist event: %w", err))
					return
				}
			}

			if !yield(event, nil) {
				return
			}
		}
	}
}

// Session returns the stored session, if any.
func (r *Runner) Session(ctx context.Context, userID, sessionID string) (session.Session, error) {
	resp, err := r.sessionService.Get(ctx, &session.GetRequest{
		AppName:   r.appName,
		UserID:    userID,
		SessionID: sessionID,
	})
	if err != nil {
		return nil, err
	}
	return resp.Session, nil
}

func (r *Runner) indexSession(ctx context.Context, sess session.Session) {
	if err := r.memory.AddSession(ctx, sess); err != nil {
		r.logger.Warn("Failed to index session",
			"session_id", sess.ID(),
			"error", err)
	}
}

type tempClearable interface {
	ClearTempKeys()
}

// clearTempState removes temp: prefixed keys once the invocation is over.
func (r *Runner) clearTempState(sess session.Session) {
	if clearable, ok := sess.State().(tempClearable); ok {
		clearable.ClearTempKeys()
	}
}

// FindAgent searches for an agent by name in the runner's agent tree.
func (r *Runner) FindAgent(name string) agent.Agent {
	return agent.FindAgent(r.rootAgent, name)
}

// Parent returns the agent that drives name, or nil for the root.
func (r *Runner) Parent(name string) agent.Agent {
	return r.parents[name]
}

func (r *Runner) getOrCreateSession(ctx context.Context, userID, sessionID string, state map[string]any) (session.Session, error) {
	if sessionID != "" {
		resp, err := r.sessionService.Get(ctx, &session.GetRequest{
			AppName:   r.appName,
			UserID:    userID,
			SessionID: sessionID,
		})
		if err == nil && resp != nil {
			return resp.Session, nil
		}
	}

	if state == nil {
		state = make(map[string]any)
	}
	createResp, err := r.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   r.appName,
		UserID:    userID,
		SessionID: sessionID,
		State:     state,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return createResp.Session, nil
}

func (r *Runner) appendUserMessage(ctx context.Context, sess session.Session, content *agent.Content, invocationID string) error {
	if content == nil {
		return nil
	}

	event := agent.NewEvent(invocationID)
	event.Author = agent.AuthorUser
	event.Message = content.ToMessage()

	return r.sessionService.AppendEvent(ctx, sess, event)
}

// ParentMap maps agent names to their parent agents.
type ParentMap map[string]agent.Agent

// BuildParentMap creates a parent map for the agent tree. Agent names must
// be unique across the tree.
func BuildParentMap(root agent.Agent) (ParentMap, error) {
	parents := make(ParentMap)
	if err := buildParentMapRecursive(root, nil, parents); err != nil {
		return nil, err
	}
	return parents, nil
}

func buildParentMapRecursive(ag agent.Agent, parent agent.Agent, parents ParentMap) error {
	if ag == nil {
		return nil
	}

	if _, exists := parents[ag.Name()]; exists {
		return fmt.Errorf("duplicate agent name in tree: %s", ag.Name())
	}

	parents[ag.Name()] = parent

	for _, sub := range ag.SubAgents() {
		if err := buildParentMapRecursive(sub, ag, parents); err != nil {
			return err
		}
	}

	return nil
}

// RootAgent returns the root agent.
func (r *Runner) RootAgent() agent.Agent {
	return r.rootAgent
}

// AppName returns the application name.
func (r *Runner) AppName() string {
	return r.appName
}
