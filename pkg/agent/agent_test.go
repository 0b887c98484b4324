package agent

import (
	"context"
	"iter"
	"testing"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emit(text string) func(ctx InvocationContext) iter.Seq2[*Event, error] {
	return func(ctx InvocationContext) iter.Seq2[*Event, error] {
		return func(yield func(*Event, error) bool) {
			ev := &Event{Message: NewTextContent(text, a2a.MessageRoleAgent).ToMessage()}
			yield(ev, nil)
		}
	}
}

func mustNew(t *testing.T, cfg Config) Agent {
	t.Helper()
	a, err := New(cfg)
	require.NoError(t, err)
	return a
}

func TestNewValidation(t *testing.T) {
	child := mustNew(t, Config{Name: "child", Run: emit("x")})

	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing name", Config{Run: emit("x")}},
		{"missing run", Config{Name: "a"}},
		{"nil sub-agent", Config{Name: "a", Run: emit("x"), SubAgents: []Agent{nil}}},
		{"duplicate sub-agent", Config{Name: "a", Run: emit("x"), SubAgents: []Agent{child, child}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestRunStampsEvents(t *testing.T) {
	a := mustNew(t, Config{Name: "formatter", Description: "formats", Run: emit("hello")})
	ctx := NewInvocationContext(context.Background(), InvocationContextParams{
		InvocationID: "inv-1",
		Branch:       "root/formatter",
	})

	var events []*Event
	for ev, err := range a.Run(ctx) {
		require.NoError(t, err)
		events = append(events, ev)
	}
	require.Len(t, events, 1)
	assert.Equal(t, "formatter", events[0].Author)
	assert.Equal(t, "inv-1", events[0].InvocationID)
	assert.Equal(t, "root/formatter", events[0].Branch)
	assert.Equal(t, "hello", events[0].TextContent())
	assert.Equal(t, "formats", a.Description())
}

func TestRunSetsCurrentAgent(t *testing.T) {
	var seen string
	a := mustNew(t, Config{Name: "worker", Run: func(ctx InvocationContext) iter.Seq2[*Event, error] {
		seen = ctx.AgentName()
		return func(func(*Event, error) bool) {}
	}})

	for range a.Run(NewInvocationContext(context.Background(), InvocationContextParams{})) {
	}
	assert.Equal(t, "worker", seen)
}

func TestForSubAgentBranch(t *testing.T) {
	root := mustNew(t, Config{Name: "root", Run: emit("")})
	child := mustNew(t, Config{Name: "child", Run: emit("")})

	ctx := NewInvocationContext(context.Background(), InvocationContextParams{Agent: root})
	assert.NotEmpty(t, ctx.InvocationID())

	sub := ForSubAgent(ctx, child)
	assert.Equal(t, "child", sub.Branch())
	assert.Equal(t, ctx.InvocationID(), sub.InvocationID())

	nested := ForSubAgent(sub, root)
	assert.Equal(t, "child/root", nested.Branch())
}

func TestWithAgentSharesEnded(t *testing.T) {
	a := mustNew(t, Config{Name: "a", Run: emit("")})
	b := mustNew(t, Config{Name: "b", Run: emit("")})

	ctx := NewInvocationContext(context.Background(), InvocationContextParams{Agent: a})
	assert.Same(t, ctx, WithAgent(ctx, a))

	other := WithAgent(ctx, b)
	assert.Equal(t, "b", other.AgentName())
	other.EndInvocation()
	assert.True(t, ctx.Ended())
}

func TestFindAgent(t *testing.T) {
	leaf := mustNew(t, Config{Name: "leaf", Run: emit("")})
	mid := mustNew(t, Config{Name: "mid", Run: emit(""), SubAgents: []Agent{leaf}})
	root := mustNew(t, Config{Name: "root", Run: emit(""), SubAgents: []Agent{mid}})

	assert.Same(t, leaf, FindAgent(root, "leaf"))
	assert.Same(t, root, FindAgent(root, "root"))
	assert.Nil(t, FindAgent(root, "missing"))
	assert.Nil(t, FindAgent(nil, "root"))
}

func TestEventHelpers(t *testing.T) {
	ev := NewEvent("inv")
	assert.NotEmpty(t, ev.ID)
	assert.True(t, ev.IsFinalResponse())

	ev.ToolCalls = []ToolCallState{{ID: "1", Name: "exit_loop"}}
	assert.False(t, ev.IsFinalResponse())
	ev.Actions.SkipSummarization = true
	assert.True(t, ev.IsFinalResponse())

	partial := NewEvent("inv")
	partial.Partial = true
	assert.False(t, partial.IsFinalResponse())

	var nilContent *Content
	assert.Equal(t, "", nilContent.Text())
	assert.Nil(t, nilContent.ToMessage())
	assert.Equal(t, "", (&Event{}).TextContent())
}

func TestEventActionsMerge(t *testing.T) {
	var a EventActions
	a.Merge(EventActions{StateDelta: map[string]any{"k": 1}, Escalate: true})
	a.Merge(EventActions{StateDelta: map[string]any{"k": 2, "j": 3}})

	assert.Equal(t, map[string]any{"k": 2, "j": 3}, a.StateDelta)
	assert.True(t, a.Escalate)
	assert.False(t, a.SkipSummarization)
}
