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

package agent

import (
	"context"
	"iter"
	"sync/atomic"

	"github.com/google/uuid"
)

// InvocationContext is the context of one agent call within an invocation.
// An invocation starts with a user message and ends with a final response;
// it may involve many agent calls, each with its own InvocationContext.
type InvocationContext interface {
	CallbackContext

	// Agent returns the agent being executed.
	Agent() Agent

	// Session returns the session of this invocation.
	Session() Session

	// Memory provides cross-session memory. Never nil.
	Memory() Memory

	// RunConfig returns the runtime configuration. Never nil.
	RunConfig() *RunConfig

	// EndInvocation signals that the invocation should stop.
	EndInvocation()

	// Ended reports whether EndInvocation was called.
	Ended() bool
}

// ReadonlyContext provides read-only access to invocation data.
type ReadonlyContext interface {
	context.Context

	InvocationID() string
	AgentName() string
	UserContent() *Content
	ReadonlyState() ReadonlyState
	UserID() string
	AppName() string
	SessionID() string

	// Branch is the agent path, e.g. "root/pipeline/researcher".
	Branch() string
}

// CallbackContext adds mutable state access.
type CallbackContext interface {
	ReadonlyContext

	State() State
}

// Session is a series of interactions between a user and agents.
// Defined here to avoid an import cycle with package session.
type Session interface {
	ID() string
	AppName() string
	UserID() string
	State() State
	Events() Events
}

// State is the session's key-value data bag.
type State interface {
	Get(key string) (any, error)
	Set(key string, value any) error
	Delete(key string) error
	All() iter.Seq2[string, any]
}

// ReadonlyState provides read-only access to session state.
type ReadonlyState interface {
	Get(key string) (any, error)
	All() iter.Seq2[string, any]
}

// Events provides access to session event history.
type Events interface {
	All() iter.Seq[*Event]
	Len() int
	At(i int) *Event
}

// Memory provides cross-session memory.
type Memory interface {
	AddSession(ctx context.Context, session Session) error
	Search(ctx context.Context, query string) (*MemorySearchResponse, error)
}

// MemorySearchResponse contains memory search results.
type MemorySearchResponse struct {
	Results []MemoryResult
}

// MemoryResult is a single memory search result.
type MemoryResult struct {
	Content  string
	Score    float64
	Metadata map[string]any
}

// NilMemory returns a Memory that stores nothing and finds nothing.
func NilMemory() Memory {
	return nilMemory{}
}

type nilMemory struct{}

func (nilMemory) AddSession(context.Context, Session) error { return nil }
func (nilMemory) Search(context.Context, string) (*MemorySearchResponse, error) {
	return &MemorySearchResponse{}, nil
}

// RunConfig contains runtime configuration for an invocation.
type RunConfig struct {
	// MaxLLMCalls caps model calls per LLM agent call. Zero means the
	// agent's own default.
	MaxLLMCalls int
}

// InvocationContextParams contains parameters for NewInvocationContext.
type InvocationContextParams struct {
	// InvocationID is generated when empty.
	InvocationID string
	Agent        Agent
	Session      Session
	Memory       Memory
	Branch       string
	UserContent  *Content
	RunConfig    *RunConfig
}

type invocationContext struct {
	context.Context
	agent        Agent
	session      Session
	memory       Memory
	invocationID string
	branch       string
	userContent  *Content
	runConfig    *RunConfig
	ended        *atomic.Bool
}

// NewInvocationContext creates a new InvocationContext.
func NewInvocationContext(ctx context.Context, params InvocationContextParams) InvocationContext {
	id := params.InvocationID
	if id == "" {
		id = uuid.NewString()
	}
	mem := params.Memory
	if mem == nil {
		mem = NilMemory()
	}
	cfg := params.RunConfig
	if cfg == nil {
		cfg = &RunConfig{}
	}
	return &invocationContext{
		Context:      ctx,
		agent:        params.Agent,
		session:      params.Session,
		memory:       mem,
		invocationID: id,
		branch:       params.Branch,
		userContent:  params.UserContent,
		runConfig:    cfg,
		ended:        &atomic.Bool{},
	}
}

// WithAgent returns a copy of ctx whose current agent is a. The copy shares
// the invocation id and the ended flag with ctx.
func WithAgent(ctx InvocationContext, a Agent) InvocationContext {
	if c, ok := ctx.(*invocationContext); ok {
		if c.agent == a {
			return c
		}
		cp := *c
		cp.agent = a
		return &cp
	}
	return NewInvocationContext(ctx, InvocationContextParams{
		InvocationID: ctx.InvocationID(),
		Agent:        a,
		Session:      ctx.Session(),
		Memory:       ctx.Memory(),
		Branch:       ctx.Branch(),
		UserContent:  ctx.UserContent(),
		RunConfig:    ctx.RunConfig(),
	})
}

// ForSubAgent derives the context a composite agent hands to sub. The branch
// is extended with sub's name; everything else is shared.
func ForSubAgent(ctx InvocationContext, sub Agent) InvocationContext {
	branch := sub.Name()
	if ctx.Branch() != "" {
		branch = ctx.Branch() + "/" + sub.Name()
	}
	return NewInvocationContext(ctx, InvocationContextParams{
		InvocationID: ctx.InvocationID(),
		Agent:        sub,
		Session:      ctx.Session(),
		Memory:       ctx.Memory(),
		Branch:       branch,
		UserContent:  ctx.UserContent(),
		RunConfig:    ctx.RunConfig(),
	})
}

func (c *invocationContext) Agent() Agent          { return c.agent }
func (c *invocationContext) Session() Session      { return c.session }
func (c *invocationContext) Memory() Memory        { return c.memory }
func (c *invocationContext) InvocationID() string  { return c.invocationID }
func (c *invocationContext) Branch() string        { return c.branch }
func (c *invocationContext) UserContent() *Content { return c.userContent }
func (c *invocationContext) RunConfig() *RunConfig { return c.runConfig }
func (c *invocationContext) EndInvocation()        { c.ended.Store(true) }
func (c *invocationContext) Ended() bool           { return c.ended.Load() }

func (c *invocationContext) AgentName() string {
	if c.agent != nil {
		return c.agent.Name()
	}
	return ""
}

func (c *invocationContext) ReadonlyState() ReadonlyState {
	if c.session != nil {
		return c.session.State()
	}
	return nil
}

func (c *invocationContext) State() State {
	if c.session != nil {
		return c.session.State()
	}
	return nil
}

func (c *invocationContext) UserID() string {
	if c.session != nil {
		return c.session.UserID()
	}
	return ""
}

func (c *invocationContext) AppName() string {
	if c.session != nil {
		return c.session.AppName()
	}
	return ""
}

func (c *invocationContext) SessionID() string {
	if c.session != nil {
		return c.session.ID()
	}
	return ""
}

var _ InvocationContext = (*invocationContext)(nil)
