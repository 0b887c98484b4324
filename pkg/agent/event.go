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
	"strings"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/google/uuid"
)

// Event authors that are not agents.
const (
	AuthorUser   = "user"
	AuthorSystem = "system"
)

// Event is one interaction in an agent conversation.
type Event struct {
	ID           string
	Timestamp    time.Time
	InvocationID string

	// Branch is the agent path that produced the event.
	Branch string

	// Author is the producing agent's name, or AuthorUser.
	Author string

	Message *a2a.Message
	Actions EventActions

	// Partial marks a streaming chunk rather than a complete event.
	Partial      bool
	TurnComplete bool

	ToolCalls   []ToolCallState
	ToolResults []ToolResultState

	ErrorMessage   string
	CustomMetadata map[string]any
}

// ToolCallState records a tool invocation requested by a model.
type ToolCallState struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ToolResultState records a tool execution result.
type ToolResultState struct {
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}

// EventActions are the side effects attached to an event.
type EventActions struct {
	// StateDelta is merged into session state when the event is persisted.
	StateDelta map[string]any

	// SkipSummarization ends the producing agent's model loop after tools run.
	SkipSummarization bool

	// Escalate asks the enclosing loop to stop.
	Escalate bool
}

// Merge copies other's effects into a.
func (a *EventActions) Merge(other EventActions) {
	if a.StateDelta == nil {
		a.StateDelta = make(map[string]any)
	}
	for k, v := range other.StateDelta {
		a.StateDelta[k] = v
	}
	a.SkipSummarization = a.SkipSummarization || other.SkipSummarization
	a.Escalate = a.Escalate || other.Escalate
}

// NewEvent creates an event with a generated id and the current time.
func NewEvent(invocationID string) *Event {
	return &Event{
		ID:           uuid.NewString(),
		Timestamp:    time.Now(),
		InvocationID: invocationID,
		Actions:      EventActions{StateDelta: make(map[string]any)},
	}
}

// IsFinalResponse reports whether the event ends its author's turn: it is
// complete and neither requests tools nor carries tool results.
func (e *Event) IsFinalResponse() bool {
	if e.Actions.SkipSummarization {
		return true
	}
	if e.Partial {
		return false
	}
	return len(e.ToolCalls) == 0 && len(e.ToolResults) == 0
}

// TextContent concatenates the text parts of the event's message.
func (e *Event) TextContent() string {
	if e.Message == nil {
		return ""
	}
	return TextOf(e.Message.Parts)
}

// TextOf concatenates the text parts of parts.
func TextOf(parts []a2a.Part) string {
	var sb strings.Builder
	for _, part := range parts {
		if tp, ok := part.(a2a.TextPart); ok {
			sb.WriteString(tp.Text)
		}
	}
	return sb.String()
}

// Content is a convenience type for building message content.
type Content struct {
	Parts []a2a.Part
	Role  a2a.MessageRole
}

// NewTextContent creates content with a single text part.
func NewTextContent(text string, role a2a.MessageRole) *Content {
	return &Content{
		Parts: []a2a.Part{a2a.TextPart{Text: text}},
		Role:  role,
	}
}

// Text returns the concatenated text parts.
func (c *Content) Text() string {
	if c == nil {
		return ""
	}
	return TextOf(c.Parts)
}

// ToMessage converts the content to an a2a.Message.
func (c *Content) ToMessage() *a2a.Message {
	if c == nil {
		return nil
	}
	return a2a.NewMessage(c.Role, c.Parts...)
}
