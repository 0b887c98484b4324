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

// Package model defines the LLM interface and the provider-neutral request
// and response types the agent runtime exchanges with model clients.
//
// Tool calls travel inside a2a messages as DataParts tagged
// {"type": "tool_use"} and {"type": "tool_result"}; use ToolUsePart,
// ToolResultPart, ToolCallsOf and ToolResultsOf rather than building the
// maps by hand.
package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/a2aproject/a2a-go/a2a"

	"github.com/kadirpekel/toddleops/pkg/tool"
)

// LLM is the interface for language models.
type LLM interface {
	// Name returns the model identifier.
	Name() string

	// Provider returns the provider type.
	Provider() Provider

	// GenerateContent produces one complete response for req.
	GenerateContent(ctx context.Context, req *Request) (*Response, error)

	// Close releases any resources held by the LLM.
	Close() error
}

// Provider identifies the LLM provider.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
	ProviderOllama    Provider = "ollama"
	ProviderUnknown   Provider = "unknown"
)

// Request contains the input for an LLM call.
type Request struct {
	// Messages is the conversation history.
	Messages []*a2a.Message

	// Tools available for the model to call.
	Tools []tool.Definition

	// BuiltinTools names provider-side tools, e.g. "google_search".
	// Clients that do not support a builtin ignore it.
	BuiltinTools []string

	// Config contains generation configuration.
	Config *GenerateConfig

	// SystemInstruction is prepended to the conversation.
	SystemInstruction string
}

// HasBuiltinTool reports whether name is among the request's builtin tools.
func (r *Request) HasBuiltinTool(name string) bool {
	for _, b := range r.BuiltinTools {
		if b == name {
			return true
		}
	}
	return false
}

// GenerateConfig contains configuration for generation.
type GenerateConfig struct {
	// Temperature controls randomness (0-2).
	Temperature *float64

	// MaxTokens limits the response length.
	MaxTokens *int

	TopP *float64
	TopK *int

	StopSequences []string

	// ResponseMIMEType for structured output (e.g., "application/json").
	ResponseMIMEType string

	// ResponseSchema for structured output.
	ResponseSchema map[string]any
}

// Clone creates a deep copy of the GenerateConfig.
func (c *GenerateConfig) Clone() *GenerateConfig {
	if c == nil {
		return nil
	}
	clone := *c
	if c.Temperature != nil {
		temp := *c.Temperature
		clone.Temperature = &temp
	}
	if c.MaxTokens != nil {
		maxTok := *c.MaxTokens
		clone.MaxTokens = &maxTok
	}
	if c.TopP != nil {
		topP := *c.TopP
		clone.TopP = &topP
	}
	if c.TopK != nil {
		topK := *c.TopK
		clone.TopK = &topK
	}
	if c.StopSequences != nil {
		clone.StopSequences = append([]string(nil), c.StopSequences...)
	}
	if c.ResponseSchema != nil {
		clone.ResponseSchema = deepCopyMap(c.ResponseSchema)
	}
	return &clone
}

func deepCopyMap(m map[string]any) map[string]any {
	result := make(map[string]any, len(m))
	for k, v := range m {
		result[k] = deepCopyValue(v)
	}
	return result
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return v
	}
}

// Response contains the result of an LLM call.
type Response struct {
	// Content is the generated content (text and tool_use parts).
	Content *Content

	// ToolCalls requested by the model.
	ToolCalls []tool.Call

	Usage        *Usage
	FinishReason FinishReason
}

// Content represents the content of a response.
type Content struct {
	Parts []a2a.Part
	Role  a2a.MessageRole
}

// Usage contains token usage statistics.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// FinishReason indicates why generation stopped.
type FinishReason string

const (
	FinishReasonStop      FinishReason = "stop"
	FinishReasonLength    FinishReason = "length"
	FinishReasonToolCalls FinishReason = "tool_calls"
	FinishReasonContent   FinishReason = "content_filter"
	FinishReasonError     FinishReason = "error"
)

// TextContent extracts text from a response.
func (r *Response) TextContent() string {
	if r == nil || r.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range r.Content.Parts {
		if tp, ok := part.(a2a.TextPart); ok {
			sb.WriteString(tp.Text)
		}
	}
	return sb.String()
}

// HasToolCalls returns whether the response contains tool calls.
func (r *Response) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}

// ToMessage converts a Response to an a2a.Message.
func (r *Response) ToMessage() *a2a.Message {
	if r == nil || r.Content == nil {
		return nil
	}
	return a2a.NewMessage(r.Content.Role, r.Content.Parts...)
}

// Part type tags used inside DataParts.
const (
	PartTypeToolUse    = "tool_use"
	PartTypeToolResult = "tool_result"
)

// ToolUsePart encodes a tool call as a message part.
func ToolUsePart(call tool.Call) a2a.DataPart {
	return a2a.DataPart{Data: map[string]any{
		"type":      PartTypeToolUse,
		"id":        call.ID,
		"name":      call.Name,
		"arguments": call.Args,
	}}
}

// ToolResult is a tool execution result carried in a message.
type ToolResult struct {
	ToolCallID string
	Name       string
	Content    string
	IsError    bool
}

// ToolResultPart encodes a tool result as a message part.
func ToolResultPart(res ToolResult) a2a.DataPart {
	return a2a.DataPart{Data: map[string]any{
		"type":         PartTypeToolResult,
		"tool_call_id": res.ToolCallID,
		"name":         res.Name,
		"content":      res.Content,
		"is_error":     res.IsError,
	}}
}

// ToolCallsOf extracts tool_use parts from msg.
func ToolCallsOf(msg *a2a.Message) []tool.Call {
	if msg == nil {
		return nil
	}
	var calls []tool.Call
	for _, part := range msg.Parts {
		dp, ok := dataPart(part, PartTypeToolUse)
		if !ok {
			continue
		}
		call := tool.Call{ID: stringField(dp.Data, "id"), Name: stringField(dp.Data, "name")}
		if args, ok := dp.Data["arguments"].(map[string]any); ok {
			call.Args = args
		}
		calls = append(calls, call)
	}
	return calls
}

// ToolResultsOf extracts tool_result parts from msg.
func ToolResultsOf(msg *a2a.Message) []ToolResult {
	if msg == nil {
		return nil
	}
	var results []ToolResult
	for _, part := range msg.Parts {
		dp, ok := dataPart(part, PartTypeToolResult)
		if !ok {
			continue
		}
		isErr, _ := dp.Data["is_error"].(bool)
		results = append(results, ToolResult{
			ToolCallID: stringField(dp.Data, "tool_call_id"),
			Name:       stringField(dp.Data, "name"),
			Content:    stringField(dp.Data, "content"),
			IsError:    isErr,
		})
	}
	return results
}

// TextOf concatenates the text parts of msg.
func TextOf(msg *a2a.Message) string {
	if msg == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range msg.Parts {
		if tp, ok := part.(a2a.TextPart); ok {
			sb.WriteString(tp.Text)
		}
	}
	return sb.String()
}

func dataPart(part a2a.Part, typ string) (a2a.DataPart, bool) {
	var dp a2a.DataPart
	switch p := part.(type) {
	case a2a.DataPart:
		dp = p
	case *a2a.DataPart:
		if p == nil {
			return dp, false
		}
		dp = *p
	default:
		return dp, false
	}
	t, _ := dp.Data["type"].(string)
	return dp, t == typ
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
