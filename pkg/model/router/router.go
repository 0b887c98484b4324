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

// Package router resolves named external model identifiers such as
// "ollama_chat/mistral-nemo:12b" or "anthropic/claude-sonnet-4-5" to LLM
// clients. The segment before the first slash selects a provider; aliases
// map short names to full identifiers.
package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/kadirpekel/toddleops/pkg/model"
	"github.com/kadirpekel/toddleops/pkg/model/anthropic"
	"github.com/kadirpekel/toddleops/pkg/model/gemini"
	"github.com/kadirpekel/toddleops/pkg/model/ollama"
	"github.com/kadirpekel/toddleops/pkg/model/openai"
	"github.com/kadirpekel/toddleops/pkg/registry"
)

var (
	ErrUnknownProvider = errors.New("unknown model provider")
	ErrAliasCycle      = errors.New("model alias cycle")
)

const maxAliasDepth = 8

// Factory builds a client for the model name that follows the provider
// prefix.
type Factory func(name string) (model.LLM, error)

// Config holds provider credentials and endpoints.
type Config struct {
	// Aliases maps a short name to a full identifier.
	Aliases map[string]string

	GeminiAPIKey     string
	AnthropicAPIKey  string
	AnthropicBaseURL string
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OllamaBaseURL    string

	// Temperature is the client default when a request sets none.
	Temperature float64

	// HTTPClient is shared by every client the router creates.
	HTTPClient *http.Client
}

// ConfigFromEnv fills credentials from the usual environment variables.
func ConfigFromEnv() Config {
	geminiKey := os.Getenv("GEMINI_API_KEY")
	if geminiKey == "" {
		geminiKey = os.Getenv("GOOGLE_API_KEY")
	}
	return Config{
		GeminiAPIKey:    geminiKey,
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OllamaBaseURL:   os.Getenv("OLLAMA_BASE_URL"),
	}
}

// Router resolves model identifiers and caches one client per identifier.
type Router struct {
	aliases   map[string]string
	providers *registry.BaseRegistry[Factory]

	mu      sync.Mutex
	clients map[string]model.LLM
}

// New creates a router with no providers registered.
func New(aliases map[string]string) *Router {
	a := make(map[string]string, len(aliases))
	for k, v := range aliases {
		a[k] = v
	}
	return &Router{
		aliases:   a,
		providers: registry.NewBaseRegistry[Factory](),
		clients:   make(map[string]model.LLM),
	}
}

// NewDefault creates a router with the gemini, ollama, ollama_chat,
// anthropic and openai providers.
func NewDefault(cfg Config) *Router {
	r := New(cfg.Aliases)

	ollamaFactory := func(name string) (model.LLM, error) {
		oc := ollama.Config{BaseURL: cfg.OllamaBaseURL, Model: name, HTTPClient: cfg.HTTPClient}
		if cfg.Temperature > 0 {
			temp := cfg.Temperature
			oc.Temperature = &temp
		}
		return ollama.New(oc), nil
	}

	_ = r.Register("gemini", func(name string) (model.LLM, error) {
		return gemini.New(context.Background(), gemini.Config{
			APIKey:      cfg.GeminiAPIKey,
			Model:       name,
			Temperature: cfg.Temperature,
			HTTPClient:  cfg.HTTPClient,
		})
	})
	_ = r.Register("ollama", ollamaFactory)
	_ = r.Register("ollama_chat", ollamaFactory)
	_ = r.Register("anthropic", func(name string) (model.LLM, error) {
		return anthropic.New(anthropic.Config{
			APIKey:      cfg.AnthropicAPIKey,
			BaseURL:     cfg.AnthropicBaseURL,
			Model:       name,
			Temperature: cfg.Temperature,
			HTTPClient:  cfg.HTTPClient,
		})
	})
	_ = r.Register("openai", func(name string) (model.LLM, error) {
		return openai.New(openai.Config{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			Model:       name,
			Temperature: cfg.Temperature,
			HTTPClient:  cfg.HTTPClient,
		})
	})
	return r
}

// Register adds a provider under prefix.
func (r *Router) Register(prefix string, f Factory) error {
	return r.providers.Register(prefix, f)
}

// Providers lists the registered prefixes in registration order.
func (r *Router) Providers() []string {
	return r.providers.Names()
}

// Canonical expands aliases until a non-alias identifier remains.
func (r *Router) Canonical(id string) (string, error) {
	for range maxAliasDepth {
		target, ok := r.aliases[id]
		if !ok {
			return id, nil
		}
		id = target
	}
	return "", fmt.Errorf("%w: %s", ErrAliasCycle, id)
}

// ResolveModel returns the client for id, creating it on first use.
func (r *Router) ResolveModel(id string) (model.LLM, error) {
	canonical, err := r.Canonical(id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if llm, ok := r.clients[canonical]; ok {
		return llm, nil
	}

	prefix, name, ok := strings.Cut(canonical, "/")
	if !ok || name == "" {
		return nil, fmt.Errorf("%w: %q has no provider prefix", ErrUnknownProvider, canonical)
	}
	factory, ok := r.providers.Get(prefix)
	if !ok {
		return nil, fmt.Errorf("%w: %q in %q", ErrUnknownProvider, prefix, canonical)
	}

	llm, err := factory(name)
	if err != nil {
		return nil, fmt.Errorf("failed to create model %q: %w", canonical, err)
	}
	r.clients[canonical] = llm
	return llm, nil
}

// Close closes every client the router created.
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for id, llm := range r.clients {
		if err := llm.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", id, err))
		}
	}
	r.clients = make(map[string]model.LLM)
	return errors.Join(errs...)
}
