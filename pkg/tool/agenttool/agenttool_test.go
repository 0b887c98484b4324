package agenttool

import (
	"context"
	"iter"
	"testing"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/toddleops/pkg/agent"
	"github.com/kadirpekel/toddleops/pkg/session"
	"github.com/kadirpekel/toddleops/pkg/tool"
)

type fakeToolContext struct {
	agent.CallbackContext
	inv     agent.InvocationContext
	actions *agent.EventActions
	state   agent.State
}

func (c *fakeToolContext) FunctionCallID() string                     { return "call-1" }
func (c *fakeToolContext) Actions() *agent.EventActions               { return c.actions }
func (c *fakeToolContext) State() agent.State                         { return c.state }
func (c *fakeToolContext) ReadonlyState() agent.ReadonlyState         { return c.state }
func (c *fakeToolContext) InvocationContext() agent.InvocationContext { return c.inv }

func (c *fakeToolContext) SearchMemory(ctx context.Context, query string) (*agent.MemorySearchResponse, error) {
	return c.inv.Memory().Search(ctx, query)
}

func newToolContext(t *testing.T, state map[string]any) *fakeToolContext {
	t.Helper()
	created, err := session.InMemoryService().Create(context.Background(), &session.CreateRequest{
		AppName: "parent", UserID: "u", State: state,
	})
	require.NoError(t, err)

	inv := agent.NewInvocationContext(context.Background(), agent.InvocationContextParams{
		Session: created.Session,
	})
	return &fakeToolContext{
		CallbackContext: inv,
		inv:             inv,
		actions:         &agent.EventActions{StateDelta: map[string]any{}},
		state:           created.Session.State(),
	}
}

// formatter reads standard_project and writes human_project. It yields two
// events so the second can observe the first through session state.
func formatter(t *testing.T, seen *map[string]any) agent.Agent {
	t.Helper()
	a, err := agent.New(agent.Config{
		Name:        "project_formatter",
		Description: "Formats projects.",
		Run: func(ctx agent.InvocationContext) iter.Seq2[*agent.Event, error] {
			return func(yield func(*agent.Event, error) bool) {
				snapshot := map[string]any{}
				for k, v := range ctx.ReadonlyState().All() {
					snapshot[k] = v
				}
				*seen = snapshot

				draft := agent.NewEvent(ctx.InvocationID())
				draft.Actions.StateDelta["temp:draft"] = "# Draft"
				if !yield(draft, nil) {
					return
				}

				prev, err := ctx.ReadonlyState().Get("temp:draft")
				if err != nil {
					yield(nil, err)
					return
				}
				final := agent.NewEvent(ctx.InvocationID())
				final.Message = a2a.NewMessage(a2a.MessageRoleAgent, a2a.TextPart{Text: "formatted"})
				final.Actions.StateDelta["human_project"] = prev.(string) + " done"
				final.Actions.StateDelta["scratch"] = "child only"
				yield(final, nil)
			}
		},
	})
	require.NoError(t, err)
	return a
}

func TestNew_Defaults(t *testing.T) {
	var seen map[string]any
	at := New(formatter(t, &seen), Config{})
	assert.Equal(t, "project_formatter", at.Name())
	assert.Equal(t, "Formats projects.", at.Description())

	at = New(formatter(t, &seen), Config{Handle: "child", Summary: "s", InputKeys: []string{"in"}, OutputKeys: []string{"out"}})
	assert.Equal(t, "child", at.Name())
	assert.Equal(t, "s", at.Description())
	assert.Equal(t, []string{"in"}, at.InputKeys())
	assert.Equal(t, []string{"out"}, at.OutputKeys())
	assert.Equal(t, "project_formatter", at.Agent().Name())

	var _ tool.CallableTool = at
}

func TestCall_PropagatesOutputKeys(t *testing.T) {
	var seen map[string]any
	at := New(formatter(t, &seen), Config{
		Handle:     "formatter",
		InputKeys:  []string{"standard_project"},
		OutputKeys: []string{"human_project", "missing_key"},
	})

	ctx := newToolContext(t, map[string]any{
		"standard_project": "ladybugs",
		"unrelated":        "x",
		"_internal":        "y",
	})

	result, err := at.Call(ctx, map[string]any{"request": "format it"})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"standard_project": "ladybugs"}, seen)
	assert.Equal(t, "formatted", result["result"])
	assert.Equal(t, "# Draft done", result["human_project"])
	assert.NotContains(t, result, "missing_key")

	got, err := ctx.State().Get("human_project")
	require.NoError(t, err)
	assert.Equal(t, "# Draft done", got)

	_, err = ctx.State().Get("scratch")
	assert.ErrorIs(t, err, session.ErrStateKeyNotExist)
}

func TestCall_CopiesAllStateWithoutInputKeys(t *testing.T) {
	var seen map[string]any
	at := New(formatter(t, &seen), Config{SkipSummarization: true})

	ctx := newToolContext(t, map[string]any{"a": 1, "temp:b": 2, "_c": 3})
	_, err := at.Call(ctx, map[string]any{})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"a": 1}, seen)
	assert.True(t, ctx.Actions().SkipSummarization)
}
