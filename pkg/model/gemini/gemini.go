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

// Package gemini implements the model.LLM interface for Google Gemini models
// using the official google.golang.org/genai SDK.
package gemini

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/a2aproject/a2a-go/a2a"
	"google.golang.org/genai"

	"github.com/kadirpekel/toddleops/pkg/model"
	"github.com/kadirpekel/toddleops/pkg/tool"
)

// BuiltinGoogleSearch enables Gemini's search grounding tool.
const BuiltinGoogleSearch = "google_search"

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gemini-2.5-flash"

// Config contains configuration for the Gemini model.
type Config struct {
	// APIKey is the Google AI API key.
	APIKey string

	// Model is the model name (e.g., "gemini-2.5-flash").
	Model string

	// MaxTokens limits the response length.
	MaxTokens int

	// Temperature controls randomness (0-2).
	Temperature float64

	// HTTPClient overrides the transport, e.g. with a retrying client.
	HTTPClient *http.Client
}

type geminiModel struct {
	client *genai.Client
	name   string
	config Config
}

// New creates a new Gemini model instance.
func New(ctx context.Context, cfg Config) (model.LLM, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &geminiModel{
		client: client,
		name:   cfg.Model,
		config: cfg,
	}, nil
}

func (m *geminiModel) Name() string             { return m.name }
func (m *geminiModel) Provider() model.Provider { return model.ProviderGemini }
func (m *geminiModel) Close() error             { return nil }

// GenerateContent produces one response for req.
func (m *geminiModel) GenerateContent(ctx context.Context, req *model.Request) (*model.Response, error) {
	contents, systemInstruction := buildContents(req)
	config := m.buildConfig(req, systemInstruction)

	genResp, err := m.client.Models.GenerateContent(ctx, m.name, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini generation failed: %w", err)
	}
	return parseResponse(genResp)
}

// stableCallID derives an id for function calls Gemini returns without one.
func stableCallID(name string, args map[string]any) string {
	data, _ := json.Marshal(map[string]any{"name": name, "args": args})
	hash := sha256.Sum256(data)
	return fmt.Sprintf("call-%x", hash[:16])
}

func buildContents(req *model.Request) ([]*genai.Content, *genai.Content) {
	var systemInstruction *genai.Content
	if req.SystemInstruction != "" {
		systemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemInstruction}},
			Role:  "user",
		}
	}

	var contents []*genai.Content
	for _, msg := range req.Messages {
		if content := messageToContent(msg); content != nil {
			contents = append(contents, content)
		}
	}
	return contents, systemInstruction
}

func messageToContent(msg *a2a.Message) *genai.Content {
	if msg == nil {
		return nil
	}

	var parts []*genai.Part
	for _, p := range msg.Parts {
		if tp, ok := p.(a2a.TextPart); ok && tp.Text != "" {
			parts = append(parts, &genai.Part{Text: tp.Text})
		}
	}
	for _, call := range model.ToolCallsOf(msg) {
		parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
			ID:   call.ID,
			Name: call.Name,
			Args: call.Args,
		}})
	}
	for _, res := range model.ToolResultsOf(msg) {
		parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
			ID:       res.ToolCallID,
			Name:     res.Name,
			Response: responseMap(res),
		}})
	}
	if len(parts) == 0 {
		return nil
	}

	role := "user"
	if msg.Role == a2a.MessageRoleAgent {
		role = "model"
	}
	return &genai.Content{Parts: parts, Role: role}
}

// responseMap turns a tool result into the map Gemini expects. JSON object
// results pass through; anything else is wrapped under "result".
func responseMap(res model.ToolResult) map[string]any {
	var m map[string]any
	if err := json.Unmarshal([]byte(res.Content), &m); err == nil && m != nil {
		return m
	}
	if res.IsError {
		return map[string]any{"error": res.Content}
	}
	return map[string]any{"result": res.Content}
}

func (m *geminiModel) buildConfig(req *model.Request, systemInstruction *genai.Content) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		SystemInstruction: systemInstruction,
	}

	if cfg := req.Config; cfg != nil {
		if cfg.Temperature != nil {
			config.Temperature = genai.Ptr(float32(*cfg.Temperature))
		}
		if cfg.MaxTokens != nil {
			config.MaxOutputTokens = int32(*cfg.MaxTokens)
		}
		if cfg.TopP != nil {
			config.TopP = genai.Ptr(float32(*cfg.TopP))
		}
		if cfg.TopK != nil {
			config.TopK = genai.Ptr(float32(*cfg.TopK))
		}
		if len(cfg.StopSequences) > 0 {
			config.StopSequences = cfg.StopSequences
		}
		config.ResponseMIMEType = cfg.ResponseMIMEType
		if cfg.ResponseSchema != nil {
			config.ResponseSchema = toGenaiSchema(cfg.ResponseSchema)
			if config.ResponseMIMEType == "" {
				config.ResponseMIMEType = "application/json"
			}
		}
	}

	if config.Temperature == nil && m.config.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(m.config.Temperature))
	}
	if config.MaxOutputTokens == 0 && m.config.MaxTokens > 0 {
		config.MaxOutputTokens = int32(m.config.MaxTokens)
	}

	for _, t := range req.Tools {
		config.Tools = append(config.Tools, &genai.Tool{
			FunctionDeclarations: []*genai.FunctionDeclaration{{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  toGenaiSchema(t.Parameters),
			}},
		})
	}
	if req.HasBuiltinTool(BuiltinGoogleSearch) {
		config.Tools = append(config.Tools, &genai.Tool{GoogleSearch: &genai.GoogleSearch{}})
	}

	return config
}

// toGenaiSchema converts a JSON schema map to a Gemini schema.
func toGenaiSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return nil
	}

	s := &genai.Schema{}
	if t, ok := schema["type"].(string); ok {
		s.Type = genai.Type(t)
	}
	if desc, ok := schema["description"].(string); ok {
		s.Description = desc
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, prop := range props {
			if propMap, ok := prop.(map[string]any); ok {
				s.Properties[name] = toGenaiSchema(propMap)
			}
		}
	}
	s.Required = stringList(schema["required"])
	s.Enum = stringList(schema["enum"])
	if items, ok := schema["items"].(map[string]any); ok {
		s.Items = toGenaiSchema(items)
	}
	if anyOf, ok := schema["anyOf"].([]any); ok {
		for _, alt := range anyOf {
			if altMap, ok := alt.(map[string]any); ok {
				s.AnyOf = append(s.AnyOf, toGenaiSchema(altMap))
			}
		}
	}
	return s
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		var out []string
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func parseResponse(genResp *genai.GenerateContentResponse) (*model.Response, error) {
	if genResp == nil || len(genResp.Candidates) == 0 {
		return nil, errors.New("empty response from Gemini")
	}
	candidate := genResp.Candidates[0]

	resp := &model.Response{
		FinishReason: mapFinishReason(candidate.FinishReason),
		Content:      &model.Content{Role: a2a.MessageRoleAgent},
	}

	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part.Text != "" && !part.Thought {
				resp.Content.Parts = append(resp.Content.Parts, a2a.TextPart{Text: part.Text})
			}
			if part.FunctionCall != nil {
				call := tool.Call{
					ID:   part.FunctionCall.ID,
					Name: part.FunctionCall.Name,
					Args: part.FunctionCall.Args,
				}
				if call.ID == "" {
					call.ID = stableCallID(call.Name, call.Args)
				}
				resp.ToolCalls = append(resp.ToolCalls, call)
				resp.Content.Parts = append(resp.Content.Parts, model.ToolUsePart(call))
			}
		}
	}
	if resp.HasToolCalls() {
		resp.FinishReason = model.FinishReasonToolCalls
	}

	if genResp.UsageMetadata != nil {
		resp.Usage = &model.Usage{
			PromptTokens:     int(genResp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(genResp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(genResp.UsageMetadata.TotalTokenCount),
		}
	}

	return resp, nil
}

func mapFinishReason(reason genai.FinishReason) model.FinishReason {
	switch reason {
	case genai.FinishReasonMaxTokens:
		return model.FinishReasonLength
	case genai.FinishReasonSafety, genai.FinishReasonBlocklist, genai.FinishReasonProhibitedContent:
		return model.FinishReasonContent
	default:
		return model.FinishReasonStop
	}
}

var _ model.LLM = (*geminiModel)(nil)
