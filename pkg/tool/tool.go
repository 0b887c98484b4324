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

// Package tool defines the interfaces agents use to call tools.
//
// A Tool is anything an LLM agent can expose to its model. CallableTool adds
// a JSON schema and a synchronous Call. A Toolset provides tools
// dynamically (e.g. from an MCP server). A tool may also implement
// RequestProcessor to adjust the model request before it is sent, which is
// how provider-side tools such as search grounding and memory preloading work.
package tool

import (
	"context"

	"github.com/a2aproject/a2a-go/a2a"

	"github.com/kadirpekel/toddleops/pkg/agent"
)

// Tool is the base interface every tool implements.
type Tool interface {
	Name() string
	Description() string
}

// CallableTool is a tool the model can invoke with JSON arguments.
type CallableTool interface {
	Tool

	Call(ctx Context, args map[string]any) (map[string]any, error)

	// Schema returns the JSON schema of the arguments.
	Schema() map[string]any
}

// Context is handed to a tool during execution.
type Context interface {
	agent.CallbackContext

	// FunctionCallID identifies the model's call.
	FunctionCallID() string

	// Actions lets the tool attach side effects (state delta, escalate)
	// to the tool response event.
	Actions() *agent.EventActions

	// SearchMemory queries cross-session memory.
	SearchMemory(ctx context.Context, query string) (*agent.MemorySearchResponse, error)
}

// InvocationContexter is implemented by tool contexts that can expose the
// invocation they run in. Agent tools use it to derive child invocations.
type InvocationContexter interface {
	InvocationContext() agent.InvocationContext
}

// Toolset provides a dynamic set of tools.
type Toolset interface {
	Name() string
	Tools(ctx agent.ReadonlyContext) ([]Tool, error)
}

// Request is the view of a model request offered to RequestProcessors.
type Request struct {
	SystemInstruction string
	Messages          []*a2a.Message

	// BuiltinTools names provider-side tools to enable, e.g. "google_search".
	BuiltinTools []string
}

// RequestProcessor is implemented by tools that modify the model request.
type RequestProcessor interface {
	ProcessRequest(ctx Context, req *Request) error
}

// Definition describes a tool to a model.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToDefinition builds the model-facing definition of t.
func ToDefinition(t Tool) Definition {
	def := Definition{
		Name:        t.Name(),
		Description: t.Description(),
	}
	if ct, ok := t.(CallableTool); ok {
		def.Parameters = ct.Schema()
	}
	return def
}

// Call is a tool invocation requested by a model.
type Call struct {
	ID   string
	Name string
	Args map[string]any
}
