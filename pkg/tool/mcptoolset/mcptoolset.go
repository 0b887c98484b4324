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

// Package mcptoolset exposes the tools of an MCP server as a Toolset.
//
// The connection is made lazily, the first time Tools is called. Servers are
// reached over stdio (a subprocess), SSE, streamable HTTP, or in process
// through a caller-supplied mcp-go client.
package mcptoolset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kadirpekel/toddleops/pkg/agent"
	"github.com/kadirpekel/toddleops/pkg/tool"
)

// Transports.
const (
	TransportStdio          = "stdio"
	TransportSSE            = "sse"
	TransportStreamableHTTP = "streamable-http"
)

const protocolVersion = "2024-11-05"

// Config configures an MCP toolset.
type Config struct {
	// Name identifies this toolset.
	Name string

	// Transport is stdio, sse or streamable-http. Defaults to stdio when
	// Command is set and streamable-http otherwise.
	Transport string

	// URL is the MCP server URL (for HTTP transports).
	URL string

	// Command, Args and Env start a stdio server.
	Command string
	Args    []string
	Env     map[string]string

	// Filter limits which tools are exposed.
	Filter []string

	// Client is an already constructed client, e.g. an in-process one.
	// When set, Transport, URL and Command are ignored.
	Client *client.Client

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Toolset is an MCP-backed toolset with lazy initialization.
type Toolset struct {
	cfg       Config
	filterSet map[string]bool
	logger    *slog.Logger

	mu        sync.Mutex
	client    *client.Client
	tools     []tool.Tool
	connected bool
}

// New creates a new MCP toolset.
func New(cfg Config) (*Toolset, error) {
	if cfg.Client == nil && cfg.URL == "" && cfg.Command == "" {
		return nil, errors.New("either url, command or client is required")
	}
	if cfg.Transport == "" {
		cfg.Transport = TransportStreamableHTTP
		if cfg.Command != "" {
			cfg.Transport = TransportStdio
		}
	}
	switch cfg.Transport {
	case TransportStdio, TransportSSE, TransportStreamableHTTP:
	default:
		return nil, fmt.Errorf("unsupported MCP transport %q", cfg.Transport)
	}

	var filterSet map[string]bool
	if len(cfg.Filter) > 0 {
		filterSet = make(map[string]bool, len(cfg.Filter))
		for _, name := range cfg.Filter {
			filterSet[name] = true
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Toolset{
		cfg:       cfg,
		filterSet: filterSet,
		logger:    logger,
	}, nil
}

// Name returns the toolset name.
func (t *Toolset) Name() string {
	return t.cfg.Name
}

// Tools returns the available tools, connecting lazily if needed.
func (t *Toolset) Tools(ctx agent.ReadonlyContext) ([]tool.Tool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected {
		var base context.Context = context.Background()
		if ctx != nil {
			base = ctx
		}
		if err := t.connect(base); err != nil {
			return nil, fmt.Errorf("failed to connect to MCP server %s: %w", t.cfg.Name, err)
		}
	}

	return t.tools, nil
}

func (t *Toolset) newClient() (*client.Client, error) {
	if t.cfg.Client != nil {
		return t.cfg.Client, nil
	}
	switch t.cfg.Transport {
	case TransportStdio:
		return client.NewStdioMCPClient(t.cfg.Command, convertEnv(t.cfg.Env), t.cfg.Args...)
	case TransportSSE:
		return client.NewSSEMCPClient(t.cfg.URL)
	default:
		return client.NewStreamableHttpClient(t.cfg.URL)
	}
}

func (t *Toolset) connect(ctx context.Context) error {
	mcpClient, err := t.newClient()
	if err != nil {
		return fmt.Errorf("failed to create MCP client: %w", err)
	}

	// Stdio clients start their subprocess on construction.
	if t.cfg.Client != nil || t.cfg.Transport != TransportStdio {
		if err := mcpClient.Start(ctx); err != nil {
			return fmt.Errorf("failed to start MCP client: %w", err)
		}
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "toddleops",
		Version: "1.0.0",
	}
	initReq.Params.ProtocolVersion = protocolVersion

	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		mcpClient.Close()
		return fmt.Errorf("failed to initialize MCP: %w", err)
	}

	listResp, err := mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		mcpClient.Close()
		return fmt.Errorf("failed to list tools: %w", err)
	}

	var tools []tool.Tool
	for _, mcpTool := range listResp.Tools {
		if t.filterSet != nil && !t.filterSet[mcpTool.Name] {
			continue
		}
		tools = append(tools, &mcpToolWrapper{
			toolset: t,
			name:    mcpTool.Name,
			desc:    mcpTool.Description,
			schema:  convertSchema(mcpTool.InputSchema),
		})
	}

	t.client = mcpClient
	t.tools = tools
	t.connected = true

	t.logger.Info("Connected to MCP server",
		"name", t.cfg.Name,
		"transport", t.cfg.Transport,
		"tools", len(tools))

	return nil
}

func convertEnv(env map[string]string) []string {
	if env == nil {
		return nil
	}
	result := make([]string, 0, len(env))
	for k, v := range env {
		result = append(result, k+"="+v)
	}
	return result
}

// Close closes the MCP connection.
func (t *Toolset) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var err error
	if t.client != nil {
		err = t.client.Close()
	}
	t.client = nil
	t.connected = false
	t.tools = nil
	return err
}

// mcpToolWrapper wraps an MCP tool as tool.CallableTool.
type mcpToolWrapper struct {
	toolset *Toolset
	name    string
	desc    string
	schema  map[string]any
}

func (w *mcpToolWrapper) Name() string           { return w.name }
func (w *mcpToolWrapper) Description() string    { return w.desc }
func (w *mcpToolWrapper) Schema() map[string]any { return w.schema }

func (w *mcpToolWrapper) Call(ctx tool.Context, args map[string]any) (map[string]any, error) {
	w.toolset.mu.Lock()
	mcpClient := w.toolset.client
	w.toolset.mu.Unlock()

	if mcpClient == nil {
		return nil, errors.New("MCP client not connected")
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = w.name
	req.Params.Arguments = args

	var callCtx context.Context = context.Background()
	if ctx != nil {
		callCtx = ctx
	}

	resp, err := mcpClient.CallTool(callCtx, req)
	if err != nil {
		return nil, fmt.Errorf("MCP call failed: %w", err)
	}

	return parseToolResponse(resp), nil
}

// parseToolResponse flattens the text content of resp.
func parseToolResponse(resp *mcp.CallToolResult) map[string]any {
	result := make(map[string]any)
	var texts []string
	for _, content := range resp.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			texts = append(texts, textContent.Text)
		}
	}

	if resp.IsError {
		result["error"] = "unknown error"
		if len(texts) > 0 {
			result["error"] = texts[0]
		}
		return result
	}

	switch len(texts) {
	case 0:
	case 1:
		result["result"] = texts[0]
	default:
		result["results"] = texts
	}
	return result
}

func convertSchema(schema mcp.ToolInputSchema) map[string]any {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return result
}

var (
	_ tool.Toolset      = (*Toolset)(nil)
	_ tool.CallableTool = (*mcpToolWrapper)(nil)
)
