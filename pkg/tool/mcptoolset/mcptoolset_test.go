package mcptoolset

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/toddleops/pkg/agent"
	"github.com/kadirpekel/toddleops/pkg/tool"
)

type fakeContext struct {
	agent.CallbackContext
	actions agent.EventActions
}

func (c *fakeContext) FunctionCallID() string       { return "c1" }
func (c *fakeContext) Actions() *agent.EventActions { return &c.actions }

func (c *fakeContext) SearchMemory(context.Context, string) (*agent.MemorySearchResponse, error) {
	return &agent.MemorySearchResponse{}, nil
}

func newInvocation() agent.InvocationContext {
	return agent.NewInvocationContext(context.Background(), agent.InvocationContextParams{})
}

func newServer() *server.MCPServer {
	s := server.NewMCPServer("projects", "1.0.0")
	s.AddTool(
		mcp.NewTool("get_project",
			mcp.WithDescription("Fetch a saved project"),
			mcp.WithString("name", mcp.Required(), mcp.Description("Project name")),
		),
		func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			name := req.GetString("name", "")
			if name == "" {
				return mcp.NewToolResultError("name is required"), nil
			}
			return mcp.NewToolResultText("# " + name), nil
		},
	)
	s.AddTool(
		mcp.NewTool("drop_table", mcp.WithDescription("Not for agents")),
		func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("dropped"), nil
		},
	)
	return s
}

func newToolset(t *testing.T, filter []string) *Toolset {
	t.Helper()
	c, err := client.NewInProcessClient(newServer())
	require.NoError(t, err)

	ts, err := New(Config{Name: "sqlite", Client: c, Filter: filter})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ts.Close() })
	return ts
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Name: "empty"})
	assert.Error(t, err)

	_, err = New(Config{Name: "bad", URL: "http://localhost", Transport: "carrier-pigeon"})
	assert.Error(t, err)

	ts, err := New(Config{Name: "stdio", Command: "uvx"})
	require.NoError(t, err)
	assert.Equal(t, TransportStdio, ts.cfg.Transport)

	ts, err = New(Config{Name: "http", URL: "http://localhost:8000/mcp"})
	require.NoError(t, err)
	assert.Equal(t, TransportStreamableHTTP, ts.cfg.Transport)
}

func TestToolset_ListsAndCallsTools(t *testing.T) {
	ts := newToolset(t, nil)

	tools, err := ts.Tools(newInvocation())
	require.NoError(t, err)
	require.Len(t, tools, 2)

	var getProject tool.CallableTool
	for _, tl := range tools {
		if tl.Name() == "get_project" {
			getProject = tl.(tool.CallableTool)
		}
	}
	require.NotNil(t, getProject)
	assert.Equal(t, "Fetch a saved project", getProject.Description())
	assert.Equal(t, "object", getProject.Schema()["type"])

	ctx := &fakeContext{CallbackContext: newInvocation()}
	result, err := getProject.Call(ctx, map[string]any{"name": "Ladybugs"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"result": "# Ladybugs"}, result)

	result, err = getProject.Call(ctx, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "name is required", result["error"])
}

func TestToolset_Filter(t *testing.T) {
	ts := newToolset(t, []string{"get_project"})

	tools, err := ts.Tools(newInvocation())
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "get_project", tools[0].Name())
}

func TestParseToolResponse(t *testing.T) {
	assert.Equal(t, map[string]any{"error": "unknown error"}, parseToolResponse(&mcp.CallToolResult{IsError: true}))
	assert.Equal(t, map[string]any{}, parseToolResponse(&mcp.CallToolResult{}))

	multi := &mcp.CallToolResult{Content: []mcp.Content{mcp.NewTextContent("a"), mcp.NewTextContent("b")}}
	assert.Equal(t, map[string]any{"results": []string{"a", "b"}}, parseToolResponse(multi))
}
