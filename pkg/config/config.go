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

// Package config loads the toddleops configuration.
//
// Configuration is optional: a missing file yields defaults. When present it
// is YAML (or JSON), environment variables are expanded in every string
// value, and the result is decoded, defaulted and validated.
//
// Example:
//
//	models:
//	  ollama_base_url: http://localhost:11434
//	  aliases:
//	    root: ollama_chat/mistral-nemo:12b
//	retry:
//	  attempts: 4
//	  exp_base: 7
//	  initial_delay: 1s
//	database:
//	  driver: sqlite
//	  database: toddleops.db
//	pipeline:
//	  safety_max_iterations: 1
package config

import (
	"fmt"

	"github.com/kadirpekel/toddleops/pkg/observability"
)

// Config is the root configuration.
type Config struct {
	// Models configures model providers.
	Models ModelsConfig `yaml:"models,omitempty" json:"models,omitempty" jsonschema:"title=Models,description=Model provider credentials and aliases"`

	// Retry is the retry policy handed to every model client.
	Retry RetryConfig `yaml:"retry,omitempty" json:"retry,omitempty" jsonschema:"title=Retry,description=Retry policy for model calls"`

	// Database configures the project store.
	Database DatabaseConfig `yaml:"database,omitempty" json:"database,omitempty" jsonschema:"title=Database,description=Project store connection"`

	// MCP configures external MCP servers.
	MCP MCPConfig `yaml:"mcp,omitempty" json:"mcp,omitempty" jsonschema:"title=MCP,description=External MCP servers"`

	// Pipeline tunes the craft pipeline.
	Pipeline PipelineConfig `yaml:"pipeline,omitempty" json:"pipeline,omitempty" jsonschema:"title=Pipeline,description=Craft pipeline settings"`

	// Logger configures logging.
	Logger LoggerConfig `yaml:"logger,omitempty" json:"logger,omitempty" jsonschema:"title=Logger,description=Logging settings"`

	// Observability configures tracing and metrics.
	Observability observability.Config `yaml:"observability,omitempty" json:"observability,omitempty" jsonschema:"title=Observability,description=Tracing and metrics"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults applies default values to every section.
func (c *Config) SetDefaults() {
	c.Models.SetDefaults()
	c.Retry.SetDefaults()
	c.Database.SetDefaults()
	c.MCP.SetDefaults()
	c.Pipeline.SetDefaults()
	c.Logger.SetDefaults()
	c.Observability.SetDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Models.Validate(); err != nil {
		return fmt.Errorf("models: %w", err)
	}
	if err := c.Retry.Validate(); err != nil {
		return fmt.Errorf("retry: %w", err)
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.MCP.Validate(); err != nil {
		return fmt.Errorf("mcp: %w", err)
	}
	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	return nil
}
