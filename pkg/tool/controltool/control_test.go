package controltool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/toddleops/pkg/agent"
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

func newContext() *fakeContext {
	inv := agent.NewInvocationContext(context.Background(), agent.InvocationContextParams{})
	return &fakeContext{CallbackContext: inv}
}

func TestExitLoop(t *testing.T) {
	ctx := newContext()
	tl := ExitLoop()
	assert.Equal(t, "exit_loop", tl.Name())

	result, err := tl.Call(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"status": "APPROVED"}, result)
	assert.True(t, ctx.actions.Escalate)
	assert.False(t, ctx.actions.SkipSummarization)
}

func TestEscalate(t *testing.T) {
	ctx := newContext()
	result, err := Escalate().Call(ctx, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "No reason provided", result["reason"])
	assert.True(t, ctx.actions.Escalate)
	assert.True(t, ctx.actions.SkipSummarization)
}
