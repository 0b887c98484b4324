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
	"fmt"

	"github.com/kadirpekel/toddleops/pkg/model"
)

// Pipeline defaults.
const (
	DefaultSafetyMaxIterations = 1
	DefaultLowTemperature      = 0.7
	DefaultHighTemperature     = 1.2
	DefaultMaxOutputTokens     = 1500
	DefaultPrompt              = "A fun and simple craft project for a toddler."
)

// PipelineConfig tunes the craft pipeline.
type PipelineConfig struct {
	// SafetyMaxIterations caps critic and refiner rounds.
	SafetyMaxIterations uint `yaml:"safety_max_iterations,omitempty" json:"safety_max_iterations,omitempty" jsonschema:"title=Safety Loop Iterations,minimum=1,default=1"`

	// LowTemperature is used by the art and science researchers.
	LowTemperature float64 `yaml:"low_temperature,omitempty" json:"low_temperature,omitempty" jsonschema:"title=Low Temperature,minimum=0,maximum=2,default=0.7"`

	// HighTemperature is used by the silly researcher.
	HighTemperature float64 `yaml:"high_temperature,omitempty" json:"high_temperature,omitempty" jsonschema:"title=High Temperature,minimum=0,maximum=2,default=1.2"`

	// MaxOutputTokens caps researcher responses.
	MaxOutputTokens int `yaml:"max_output_tokens,omitempty" json:"max_output_tokens,omitempty" jsonschema:"title=Max Output Tokens,minimum=1,default=1500"`

	// DefaultPrompt is used when the CLI is given none.
	DefaultPrompt string `yaml:"default_prompt,omitempty" json:"default_prompt,omitempty" jsonschema:"title=Default Prompt"`

	// MaxLLMCalls caps model calls per agent. Zero keeps agent defaults.
	MaxLLMCalls int `yaml:"max_llm_calls,omitempty" json:"max_llm_calls,omitempty" jsonschema:"title=Max LLM Calls,minimum=0"`
}

// SetDefaults applies default values to PipelineConfig.
func (c *PipelineConfig) SetDefaults() {
	if c.SafetyMaxIterations == 0 {
		c.SafetyMaxIterations = DefaultSafetyMaxIterations
	}
	if c.LowTemperature == 0 {
		c.LowTemperature = DefaultLowTemperature
	}
	if c.HighTemperature == 0 {
		c.HighTemperature = DefaultHighTemperature
	}
	if c.MaxOutputTokens == 0 {
		c.MaxOutputTokens = DefaultMaxOutputTokens
	}
	if c.DefaultPrompt == "" {
		c.DefaultPrompt = DefaultPrompt
	}
}

// Validate checks the pipeline configuration.
func (c *PipelineConfig) Validate() error {
	if c.LowTemperature < 0 || c.LowTemperature > 2 {
		return fmt.Errorf("low_temperature must be between 0 and 2, got %v", c.LowTemperature)
	}
	if c.HighTemperature < 0 || c.HighTemperature > 2 {
		return fmt.Errorf("high_temperature must be between 0 and 2, got %v", c.HighTemperature)
	}
	if c.MaxOutputTokens < 0 {
		return fmt.Errorf("max_output_tokens must be non-negative")
	}
	if c.MaxLLMCalls < 0 {
		return fmt.Errorf("max_llm_calls must be non-negative")
	}
	return nil
}

// LowTemperatureConfig is the generation config of focused researchers.
func (c *PipelineConfig) LowTemperatureConfig() *model.GenerateConfig {
	return c.generateConfig(c.LowTemperature)
}

// HighTemperatureConfig is the generation config of playful researchers.
func (c *PipelineConfig) HighTemperatureConfig() *model.GenerateConfig {
	return c.generateConfig(c.HighTemperature)
}

func (c *PipelineConfig) generateConfig(temperature float64) *model.GenerateConfig {
	maxTokens := c.MaxOutputTokens
	return &model.GenerateConfig{
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	}
}
