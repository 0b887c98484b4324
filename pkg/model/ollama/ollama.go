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

// Package ollama implements model.LLM against a local Ollama server's chat
// API (/api/chat).
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/google/uuid"

	"github.com/kadirpekel/toddleops/pkg/httpclient"
	"github.com/kadirpekel/toddleops/pkg/model"
	"github.com/kadirpekel/toddleops/pkg/tool"
)

const (
	defaultBaseURL   = "http://localhost:11434"
	defaultModel     = "llama3.2"
	defaultTimeout   = 300 * time.Second
	defaultKeepAlive = "5m"
)

// Config configures the Ollama client.
type Config struct {
	// BaseURL is the Ollama server URL (default: http://localhost:11434).
	BaseURL string

	// Model is the model name (e.g., "llama3.2", "mistral").
	Model string

	Temperature *float64

	// NumCtx sets the context window size.
	NumCtx *int

	// KeepAlive controls how long the model stays loaded (default: "5m").
	KeepAlive string

	// HTTPClient defaults to a retrying client with a five minute timeout.
	HTTPClient *http.Client
}

// Client implements model.LLM for Ollama.
type Client struct {
	config     Config
	httpClient *http.Client
}

// New creates an Ollama client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.KeepAlive == "" {
		cfg.KeepAlive = defaultKeepAlive
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = httpclient.New(defaultTimeout)
	}
	return &Client{config: cfg, httpClient: hc}
}

func (c *Client) Name() string             { return c.config.Model }
func (c *Client) Provider() model.Provider { return model.ProviderOllama }
func (c *Client) Close() error             { return nil }

// GenerateContent produces one response for req.
func (c *Client) GenerateContent(ctx context.Context, req *model.Request) (*model.Response, error) {
	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("ollama: failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ollama: failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &httpclient.RetryableError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(data)),
		}
	}

	var apiResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("ollama: failed to decode response: %w", err)
	}
	return convertResponse(&apiResp), nil
}

func (c *Client) buildRequest(req *model.Request) *chatRequest {
	apiReq := &chatRequest{
		Model:     c.config.Model,
		Stream:    false,
		KeepAlive: c.config.KeepAlive,
		Options:   make(map[string]any),
	}

	if req.SystemInstruction != "" {
		apiReq.Messages = append(apiReq.Messages, &chatMessage{Role: "system", Content: req.SystemInstruction})
	}
	for _, msg := range req.Messages {
		apiReq.Messages = append(apiReq.Messages, convertMessage(msg)...)
	}

	for _, t := range req.Tools {
		apiReq.Tools = append(apiReq.Tools, &apiTool{
			Type: "function",
			Function: &functionDef{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	if c.config.Temperature != nil {
		apiReq.Options["temperature"] = *c.config.Temperature
	}
	if c.config.NumCtx != nil {
		apiReq.Options["num_ctx"] = *c.config.NumCtx
	}
	if cfg := req.Config; cfg != nil {
		if cfg.Temperature != nil {
			apiReq.Options["temperature"] = *cfg.Temperature
		}
		if cfg.MaxTokens != nil {
			apiReq.Options["num_predict"] = *cfg.MaxTokens
		}
		if cfg.TopP != nil {
			apiReq.Options["top_p"] = *cfg.TopP
		}
		if cfg.TopK != nil {
			apiReq.Options["top_k"] = *cfg.TopK
		}
		if len(cfg.StopSequences) > 0 {
			apiReq.Options["stop"] = cfg.StopSequences
		}
		switch {
		case cfg.ResponseSchema != nil:
			apiReq.Format = cfg.ResponseSchema
		case cfg.ResponseMIMEType == "application/json":
			apiReq.Format = "json"
		}
	}
	if len(apiReq.Options) == 0 {
		apiReq.Options = nil
	}

	return apiReq
}

// convertMessage maps one a2a message to Ollama messages. Tool results
// become separate "tool" messages.
func convertMessage(msg *a2a.Message) []*chatMessage {
	if msg == nil {
		return nil
	}

	role := "user"
	if msg.Role == a2a.MessageRoleAgent {
		role = "assistant"
	}

	var out []*chatMessage
	main := &chatMessage{Role: role, Content: model.TextOf(msg)}
	for _, call := range model.ToolCallsOf(msg) {
		main.ToolCalls = append(main.ToolCalls, &toolCall{
			Function: &functionCall{Name: call.Name, Arguments: call.Args},
		})
	}
	if main.Content != "" || len(main.ToolCalls) > 0 {
		out = append(out, main)
	}
	for _, res := range model.ToolResultsOf(msg) {
		out = append(out, &chatMessage{Role: "tool", Content: res.Content, ToolName: res.Name})
	}
	return out
}

func convertResponse(apiResp *chatResponse) *model.Response {
	resp := &model.Response{
		Content:      &model.Content{Role: a2a.MessageRoleAgent},
		FinishReason: model.FinishReasonStop,
		Usage: &model.Usage{
			PromptTokens:     apiResp.PromptEvalCount,
			CompletionTokens: apiResp.EvalCount,
			TotalTokens:      apiResp.PromptEvalCount + apiResp.EvalCount,
		},
	}
	if apiResp.DoneReason == "length" {
		resp.FinishReason = model.FinishReasonLength
	}

	if msg := apiResp.Message; msg != nil {
		if msg.Content != "" {
			resp.Content.Parts = append(resp.Content.Parts, a2a.TextPart{Text: msg.Content})
		}
		for _, tc := range msg.ToolCalls {
			if tc.Function == nil {
				continue
			}
			call := tool.Call{
				ID:   "call_" + uuid.NewString(),
				Name: tc.Function.Name,
				Args: tc.Function.Arguments,
			}
			resp.ToolCalls = append(resp.ToolCalls, call)
			resp.Content.Parts = append(resp.Content.Parts, model.ToolUsePart(call))
		}
	}
	if resp.HasToolCalls() {
		resp.FinishReason = model.FinishReasonToolCalls
	}
	return resp
}

type chatRequest struct {
	Model     string         `json:"model"`
	Messages  []*chatMessage `json:"messages"`
	Tools     []*apiTool     `json:"tools,omitempty"`
	Format    any            `json:"format,omitempty"`
	Options   map[string]any `json:"options,omitempty"`
	Stream    bool           `json:"stream"`
	KeepAlive string         `json:"keep_alive,omitempty"`
}

type chatMessage struct {
	Role      string      `json:"role"`
	Content   string      `json:"content"`
	ToolCalls []*toolCall `json:"tool_calls,omitempty"`
	ToolName  string      `json:"tool_name,omitempty"`
}

type toolCall struct {
	Function *functionCall `json:"function,omitempty"`
}

type functionCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type apiTool struct {
	Type     string       `json:"type"`
	Function *functionDef `json:"function"`
}

type functionDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type chatResponse struct {
	Model           string       `json:"model"`
	Message         *chatMessage `json:"message,omitempty"`
	Done            bool         `json:"done"`
	DoneReason      string       `json:"done_reason,omitempty"`
	PromptEvalCount int          `json:"prompt_eval_count,omitempty"`
	EvalCount       int          `json:"eval_count,omitempty"`
}

var _ model.LLM = (*Client)(nil)
