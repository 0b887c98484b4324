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

import "fmt"

// MCPConfig configures external MCP servers.
type MCPConfig struct {
	// SQLite is the server behind the database agent. When its command is
	// empty the built-in store-backed toolset is used instead.
	SQLite MCPServerConfig `yaml:"sqlite,omitempty" json:"sqlite,omitempty" jsonschema:"title=SQLite MCP Server"`
}

// MCPServerConfig describes how to reach one MCP server.
type MCPServerConfig struct {
	// Transport is "stdio" (default), "sse" or "streamable-http".
	Transport string `yaml:"transport,omitempty" json:"transport,omitempty" jsonschema:"title=Transport,enum=stdio,enum=sse,enum=streamable-http,default=stdio"`

	// Command launches a stdio server.
	Command string `yaml:"command,omitempty" json:"command,omitempty" jsonschema:"title=Command,description=Executable for stdio servers"`

	// Args are passed to Command.
	Args []string `yaml:"args,omitempty" json:"args,omitempty" jsonschema:"title=Arguments"`

	// Env is added to the server environment as KEY=VALUE pairs.
	Env map[string]string `yaml:"env,omitempty" json:"env,omitempty" jsonschema:"title=Environment"`

	// URL of an sse or streamable-http server.
	URL string `yaml:"url,omitempty" json:"url,omitempty" jsonschema:"title=URL"`

	// Filter limits the exposed tools. Empty exposes all.
	Filter []string `yaml:"filter,omitempty" json:"filter,omitempty" jsonschema:"title=Tool Filter"`
}

// Enabled reports whether an external server is configured.
func (c *MCPServerConfig) Enabled() bool {
	return c.Command != "" || c.URL != ""
}

// SetDefaults applies default values to MCPConfig.
func (c *MCPConfig) SetDefaults() {
	c.SQLite.SetDefaults()
}

// Validate checks the MCP configuration.
func (c *MCPConfig) Validate() error {
	if err := c.SQLite.Validate(); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	return nil
}

// SetDefaults applies default values to MCPServerConfig.
func (c *MCPServerConfig) SetDefaults() {
	if c.Transport == "" && c.Enabled() {
		if c.URL != "" && c.Command == "" {
			c.Transport = "streamable-http"
		} else {
			c.Transport = "stdio"
		}
	}
}

// Validate checks the MCP server configuration.
func (c *MCPServerConfig) Validate() error {
	switch c.Transport {
	case "":
		return nil
	case "stdio":
		if c.Command == "" {
			return fmt.Errorf("command is required for stdio transport")
		}
	case "sse", "streamable-http":
		if c.URL == "" {
			return fmt.Errorf("url is required for %s transport", c.Transport)
		}
	default:
		return fmt.Errorf("invalid transport %q (valid: stdio, sse, streamable-http)", c.Transport)
	}
	return nil
}
