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

package config

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/kadirpekel/toddleops/pkg/model/router"
)

// ModelsConfig holds provider credentials, endpoints and aliases.
//
// API keys left empty are filled from GEMINI_API_KEY (or GOOGLE_API_KEY),
// ANTHROPIC_API_KEY and OPENAI_API_KEY.
type ModelsConfig struct {
	GeminiAPIKey     string `yaml:"gemini_api_key,omitempty" json:"gemini_api_key,omitempty" jsonschema:"title=Gemini API Key,description=Defaults to GEMINI_API_KEY or GOOGLE_API_KEY"`
	AnthropicAPIKey  string `yaml:"anthropic_api_key,omitempty" json:"anthropic_api_key,omitempty" jsonschema:"title=Anthropic API Key,description=Defaults to ANTHROPIC_API_KEY"`
	AnthropicBaseURL string `yaml:"anthropic_base_url,omitempty" json:"anthropic_base_url,omitempty" jsonschema:"title=Anthropic Base URL"`
	OpenAIAPIKey     string `yaml:"openai_api_key,omitempty" json:"openai_api_key,omitempty" jsonschema:"title=OpenAI API Key,description=Defaults to OPENAI_API_KEY"`
	OpenAIBaseURL    string `yaml:"openai_base_url,omitempty" json:"openai_base_url,omitempty" jsonschema:"title=OpenAI Base URL"`
	OllamaBaseURL    string `yaml:"ollama_base_url,omitempty" json:"ollama_base_url,omitempty" jsonschema:"title=Ollama Base URL,default=http://localhost:11434"`

	// Aliases maps short names to full model identifiers.
	Aliases map[string]string `yaml:"aliases,omitempty" json:"aliases,omitempty" jsonschema:"title=Aliases,description=Short name to model identifier"`

	// Temperature is the client default when an agent sets none.
	Temperature float64 `yaml:"temperature,omitempty" json:"temperature,omitempty" jsonschema:"title=Temperature,minimum=0,maximum=2"`
}

// SetDefaults fills empty credentials from the environment.
func (c *ModelsConfig) SetDefaults() {
	env := router.ConfigFromEnv()
	if c.GeminiAPIKey == "" {
		c.GeminiAPIKey = env.GeminiAPIKey
	}
	if c.AnthropicAPIKey == "" {
		c.AnthropicAPIKey = env.AnthropicAPIKey
	}
	if c.OpenAIAPIKey == "" {
		c.OpenAIAPIKey = env.OpenAIAPIKey
	}
	if c.OllamaBaseURL == "" {
		c.OllamaBaseURL = env.OllamaBaseURL
	}
	if c.OllamaBaseURL == "" {
		c.OllamaBaseURL = "http://localhost:11434"
	}
}

// Validate checks the models configuration.
func (c *ModelsConfig) Validate() error {
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %v", c.Temperature)
	}
	for alias, target := range c.Aliases {
		if strings.TrimSpace(alias) == "" {
			return errors.New("alias name must not be empty")
		}
		if strings.TrimSpace(target) == "" {
			return fmt.Errorf("alias %q has no target", alias)
		}
	}
	return nil
}

// RouterConfig converts c into the model router configuration.
func (c *ModelsConfig) RouterConfig(httpClient *http.Client) router.Config {
	return router.Config{
		Aliases:          c.Aliases,
		GeminiAPIKey:     c.GeminiAPIKey,
		AnthropicAPIKey:  c.AnthropicAPIKey,
		AnthropicBaseURL: c.AnthropicBaseURL,
		OpenAIAPIKey:     c.OpenAIAPIKey,
		OpenAIBaseURL:    c.OpenAIBaseURL,
		OllamaBaseURL:    c.OllamaBaseURL,
		Temperature:      c.Temperature,
		HTTPClient:       httpClient,
	}
}
