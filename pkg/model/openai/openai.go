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

// Package openai implements model.LLM for OpenAI models through the
// Responses API of the official openai-go client.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"

	"github.com/kadirpekel/toddleops/pkg/model"
	"github.com/kadirpekel/toddleops/pkg/tool"
)

const (
	defaultModel     = "gpt-4.1-mini"
	defaultMaxTokens = 4096
)

// Config configures the OpenAI client.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float64

	// HTTPClient carries retries; the SDK's own retries are disabled.
	HTTPClient *http.Client
}

// Client implements model.LLM for OpenAI.
type Client struct {
	client openai.Client
	config Config
}

// New creates a new OpenAI client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
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
		client: openai.NewClient(opts...),
		config: cfg,
	}, nil
}

func (c *Client) Name() string             { return c.config.Model }
func (c *Client) Provider() model.Provider { return model.ProviderOpenAI }
func (c *Client) Close() error             { return nil }

// GenerateContent produces one response for req.
func (c *Client) GenerateContent(ctx context.Context, req *model.Request) (*model.Response, error) {
	result, err := c.client.Responses.New(ctx, c.buildParams(req))
	if err != nil {
		return nil, fmt.Errorf("openai generate: %w", err)
	}
	return convertResponse(result)
}

func (c *Client) buildParams(req *model.Request) responses.ResponseNewParams {
	maxTokens := c.config.MaxTokens
	if req.Config != nil && req.Config.MaxTokens != nil {
		maxTokens = *req.Config.MaxTokens
	}

	system := req.SystemInstruction
	if req.Config != nil && req.Config.ResponseSchema != nil {
		schema, _ := json.Marshal(req.Config.ResponseSchema)
		system += "\n\nRespond only with a JSON object matching this schema:\n" + string(schema)
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(c.config.Model),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: convertInput(system, req.Messages),
		},
		MaxOutputTokens: openai.Int(int64(maxTokens)),
		Tools:           convertTools(req.Tools),
	}

	if req.Config != nil && req.Config.Temperature != nil {
		params.Temperature = openai.Float(*req.Config.Temperature)
	} else if c.config.Temperature > 0 {
		params.Temperature = openai.Float(c.config.Temperature)
	}
	if req.Config != nil && req.Config.TopP != nil {
		params.TopP = openai.Float(*req.Config.TopP)
	}

	return params
}

func convertInput(system string, messages []*a2a.Message) responses.ResponseInputParam {
	result := make(responses.ResponseInputParam, 0, len(messages)+1)
	if system != "" {
		result = append(result, responses.ResponseInputItemParamOfMessage(system, responses.EasyInputMessageRoleSystem))
	}

	for _, msg := range messages {
		if msg == nil {
			continue
		}
		role := responses.EasyInputMessageRoleUser
		if msg.Role == a2a.MessageRoleAgent {
			role = responses.EasyInputMessageRoleAssistant
		}
		if text := model.TextOf(msg); text != "" {
			result = append(result, responses.ResponseInputItemParamOfMessage(text, role))
		}
		for _, call := range model.ToolCallsOf(msg) {
			args, _ := json.Marshal(call.Args)
			result = append(result, responses.ResponseInputItemParamOfFunctionCall(string(args), call.ID, call.Name))
		}
		for _, res := range model.ToolResultsOf(msg) {
			result = append(result, responses.ResponseInputItemParamOfFunctionCallOutput(res.ToolCallID, res.Content))
		}
	}
	return result
}

func convertTools(tools []tool.Definition) []responses.ToolUnionParam {
	result := make([]responses.ToolUnionParam, len(tools))
	for i, t := range tools {
		result[i] = responses.ToolParamOfFunction(t.Name, objectSchema(t.Parameters), false)
		if t.Description != "" {
			result[i].OfFunction.Description = openai.String(t.Description)
		}
	}
	return result
}

func objectSchema(params map[string]any) map[string]any {
	if params == nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	if _, ok := params["type"]; ok {
		return params
	}
	out := make(map[string]any, len(params)+1)
	for k, v := range params {
		out[k] = v
	}
	out["type"] = "object"
	return out
}

func convertResponse(result *responses.Response) (*model.Response, error) {
	if result == nil {
		return nil, errors.New("empty response from OpenAI")
	}
	if result.Error.Message != "" {
		return nil, fmt.Errorf("openai: %s", result.Error.Message)
	}

	resp := &model.Response{
		Content:      &model.Content{Role: a2a.MessageRoleAgent},
		FinishReason: model.FinishReasonStop,
		Usage: &model.Usage{
			PromptTokens:     int(result.Usage.InputTokens),
			CompletionTokens: int(result.Usage.OutputTokens),
			TotalTokens:      int(result.Usage.TotalTokens),
		},
	}

	if text := result.OutputText(); text != "" {
		resp.Content.Parts = append(resp.Content.Parts, a2a.TextPart{Text: text})
	}

	for _, item := range result.Output {
		if item.Type != "function_call" {
			continue
		}
		var args map[string]any
		if item.Arguments != "" {
			if err := json.Unmarshal([]byte(item.Arguments), &args); err != nil {
				return nil, fmt.Errorf("openai: invalid arguments for tool %s: %w", item.Name, err)
			}
		}
		call := tool.Call{ID: item.CallID, Name: item.Name, Args: args}
		resp.ToolCalls = append(resp.ToolCalls, call)
		resp.Content.Parts = append(resp.Content.Parts, model.ToolUsePart(call))
	}

	switch {
	case resp.HasToolCalls():
		resp.FinishReason = model.FinishReasonToolCalls
	case result.IncompleteDetails.Reason == "max_output_tokens":
		resp.FinishReason = model.FinishReasonLength
	case result.IncompleteDetails.Reason == "content_filter":
		resp.FinishReason = model.FinishReasonContent
	}

	return resp, nil
}

var _ model.LLM = (*Client)(nil)
