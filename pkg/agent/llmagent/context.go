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

package llmagent

import (
	"context"
	"iter"

	"github.com/kadirpekel/toddleops/pkg/agent"
	"github.com/kadirpekel/toddleops/pkg/session"
	"github.com/kadirpekel/toddleops/pkg/tool"
)

// toolContext implements tool.Context for one tool call. State writes are
// recorded in the call's StateDelta and reach the session when the tool
// response event is persisted.
type toolContext struct {
	agent.CallbackContext
	inv            agent.InvocationContext
	functionCallID string
	actions        *agent.EventActions
	state          *deltaState
}

func newToolContext(ctx agent.InvocationContext, functionCallID string) *toolContext {
	actions := &agent.EventActions{StateDelta: make(map[string]any)}
	return &toolContext{
		CallbackContext: ctx,
		inv:             ctx,
		functionCallID:  functionCallID,
		actions:         actions,
		state:           &deltaState{base: ctx.State(), delta: actions.StateDelta},
	}
}

func (c *toolContext) FunctionCallID() string                     { return c.functionCallID }
func (c *toolContext) Actions() *agent.EventActions               { return c.actions }
func (c *toolContext) State() agent.State                         { return c.state }
func (c *toolContext) ReadonlyState() agent.ReadonlyState         { return c.state }
func (c *toolContext) InvocationContext() agent.InvocationContext { return c.inv }

func (c *toolContext) SearchMemory(ctx context.Context, query string) (*agent.MemorySearchResponse, error) {
	return c.inv.Memory().Search(ctx, query)
}

// deltaState reads through pending writes to the session state.
type deltaState struct {
	base  agent.State
	delta map[string]any
}

func (s *deltaState) Get(key string) (any, error) {
	if v, ok := s.delta[key]; ok {
		return v, nil
	}
	if s.base == nil {
		return nil, session.ErrStateKeyNotExist
	}
	return s.base.Get(key)
}

func (s *deltaState) Set(key string, value any) error {
	s.delta[key] = value
	return nil
}

func (s *deltaState) Delete(key string) error {
	delete(s.delta, key)
	if s.base == nil {
		return nil
	}
	return s.base.Delete(key)
}

func (s *deltaState) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		if s.base != nil {
			for k, v := range s.base.All() {
				if _, shadowed := s.delta[k]; shadowed {
					continue
				}
				if !yield(k, v) {
					return
				}
			}
		}
		for k, v := range s.delta {
			if !yield(k, v) {
				return
			}
		}
	}
}

var (
	_ tool.Context             = (*toolContext)(nil)
	_ tool.InvocationContexter = (*toolContext)(nil)
)
