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

// Package anthropic implements model.LLM for Anthropic Claude models using
// the official anthropic-sdk-go client.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/kadirpekel/toddleops/pkg/model"
	"github.com/kadirpekel/toddleops/pkg/tool"
)

const (
	defaultModel     = "claude-sonnet-4-5"
	defaultMaxTokens = 4096
)

// Config configures the Anthropic client.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float64

	// HTTPClient carries retries; the SDK's own retries are disabled.
	HTTPClient *http.Client
}

// Client implements model.LLM for Anthropic.
type Client struct {
	client anthropic.Client
	config Config
}

// New creates a new Anthropic client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &Client{
		client: anthropic.NewClient(opts...),
		config: cfg,
	}, nil
}

func (c *Client) Name() string             { return c.config.Model }
func (c *Client) Provider() model.Provider { return model.ProviderAnthropic }
func (c *Client) Close() error             { return nil }

// GenerateContent produces one response for req.
func (c *Client) GenerateContent(ctx context.Context, req *model.Request) (*model.Response, error) {
	msg, err := c.client.Messages.New(ctx, c.buildParams(req))
	if err != nil {
		return nil, fmt.Errorf("anthropic generate: %w", err)
	}
	return convertResponse(msg)
}

func (c *Client) buildParams(req *model.Request) anthropic.MessageNewParams {
	maxTokens := c.config.MaxTokens
	if req.Config != nil && req.Config.MaxTokens != nil {
		maxTokens = *req.Config.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.config.Model),
		MaxTokens: int64(maxTokens),
		Messages:  convertMessages(req.Messages),
		Tools:     convertTools(req.Tools),
	}

	system := req.SystemInstruction
	if req.Config != nil && req.Config.ResponseSchema != nil {
		schema, _ := json.Marshal(req.Config.ResponseSchema)
		system += "\n\nRespond only with a JSON object matching this schema:\n" + string(schema)
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	if cfg := req.Config; cfg != nil {
		if cfg.Temperature != nil {
			params.Temperature = anthropic.Float(*cfg.Temperature)
		}
		if cfg.TopP != nil {
			params.TopP = anthropic.Float(*cfg.TopP)
		}
		if cfg.TopK != nil {
			params.TopK = anthropic.Int(int64(*cfg.TopK))
		}
		if len(cfg.StopSequences) > 0 {
			params.StopSequences = cfg.StopSequences
		}
	}
	if (req.Config == nil || req.Config.Temperature == nil) && c.config.Temperature > 0 {
		params.Temperature = anthropic.Float(c.config.Temperature)
	}

	return params
}

func convertMessages(messages []*a2a.Message) []anthropic.MessageParam {
	result := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		if msg == nil {
			continue
		}

		var blocks []anthropic.ContentBlockParamUnion
		if text := model.TextOf(msg); text != "" {
			blocks = append(blocks, anthropic.NewTextBlock(text))
		}
		for _, call := range model.ToolCallsOf(msg) {
			args := call.Args
			if args == nil {
				args = map[string]any{}
			}
			blocks = append(blocks, anthropic.ContentBlockParamUnion{
				OfToolUse: &anthropic.ToolUseBlockParam{
					ID:    call.ID,
					Name:  call.Name,
					Input: args,
				},
			})
		}
		for _, res := range model.ToolResultsOf(msg) {
			blocks = append(blocks, anthropic.NewToolResultBlock(res.ToolCallID, res.Content, res.IsError))
		}
		if len(blocks) == 0 {
			continue
		}

		if msg.Role == a2a.MessageRoleAgent {
			result = append(result, anthropic.NewAssistantMessage(blocks...))
		} else {
			result = append(result, anthropic.NewUserMessage(blocks...))
		}
	}
	return result
}

func convertTools(tools []tool.Definition) []anthropic.ToolUnionParam {
	result := make([]anthropic.ToolUnionParam, len(tools))
	for i, t := range tools {
		result[i] = anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: t.Parameters["properties"],
					Required:   requiredFields(t.Parameters),
				},
			},
		}
	}
	return result
}

func requiredFields(params map[string]any) []string {
	switch req := params["required"].(type) {
	case []string:
		return req
	case []any:
		result := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				result = append(result, s)
			}
		}
		return result
	}
	return nil
}

func convertResponse(msg *anthropic.Message) (*model.Response, error) {
	if msg == nil {
		return nil, errors.New("empty response from Anthropic")
	}

	resp := &model.Response{
		Content:      &model.Content{Role: a2a.MessageRoleAgent},
		FinishReason: model.FinishReasonStop,
		Usage: &model.Usage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}

	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			resp.Content.Parts = append(resp.Content.Parts, a2a.TextPart{Text: b.Text})
		case anthropic.ToolUseBlock:
			var args map[string]any
			if len(b.Input) > 0 {
				if err := json.Unmarshal(b.Input, &args); err != nil {
					return nil, fmt.Errorf("anthropic: invalid arguments for tool %s: %w", b.Name, err)
				}
			}
			call := tool.Call{ID: b.ID, Name: b.Name, Args: args}
			resp.ToolCalls = append(resp.ToolCalls, call)
			resp.Content.Parts = append(resp.Content.Parts, model.ToolUsePart(call))
		}
	}

	switch msg.StopReason {
	case anthropic.StopReasonMaxTokens:
		resp.FinishReason = model.FinishReasonLength
	case anthropic.StopReasonToolUse:
		resp.FinishReason = model.FinishReasonToolCalls
	}

	return resp, nil
}

var _ model.LLM = (*Client)(nil)
