package model

import (
	"testing"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/toddleops/pkg/tool"
)

func TestToolPartsRoundTrip(t *testing.T) {
	call := tool.Call{ID: "c1", Name: "google_search", Args: map[string]any{"query": "toddler crafts"}}
	result := ToolResult{ToolCallID: "c1", Name: "google_search", Content: "paper plate animals", IsError: false}

	msg := a2a.NewMessage(a2a.MessageRoleAgent,
		a2a.TextPart{Text: "Searching. "},
		ToolUsePart(call),
		ToolResultPart(result),
	)

	calls := ToolCallsOf(msg)
	require.Len(t, calls, 1)
	assert.Equal(t, call, calls[0])

	results := ToolResultsOf(msg)
	require.Len(t, results, 1)
	assert.Equal(t, result, results[0])

	assert.Equal(t, "Searching. ", TextOf(msg))
	assert.Nil(t, ToolCallsOf(nil))
}

func TestGenerateConfig_CloneIsDeep(t *testing.T) {
	temp := 0.7
	orig := &GenerateConfig{
		Temperature:    &temp,
		StopSequences:  []string{"END"},
		ResponseSchema: map[string]any{"properties": map[string]any{"name": map[string]any{"type": "string"}}},
	}

	clone := orig.Clone()
	*clone.Temperature = 1.2
	clone.StopSequences[0] = "STOP"
	clone.ResponseSchema["properties"].(map[string]any)["name"] = "changed"

	assert.Equal(t, 0.7, *orig.Temperature)
	assert.Equal(t, "END", orig.StopSequences[0])
	assert.Equal(t, map[string]any{"type": "string"}, orig.ResponseSchema["properties"].(map[string]any)["name"])
	assert.Nil(t, (*GenerateConfig)(nil).Clone())
}

func TestResponse_Helpers(t *testing.T) {
	resp := &Response{
		Content: &Content{
			Role:  a2a.MessageRoleAgent,
			Parts: []a2a.Part{a2a.TextPart{Text: "Hello "}, a2a.TextPart{Text: "crafters"}},
		},
	}

	assert.Equal(t, "Hello crafters", resp.TextContent())
	assert.False(t, resp.HasToolCalls())
	assert.Equal(t, a2a.MessageRoleAgent, resp.ToMessage().Role)

	req := &Request{BuiltinTools: []string{"google_search"}}
	assert.True(t, req.HasBuiltinTool("google_search"))
	assert.False(t, req.HasBuiltinTool("code_execution"))
}
