package runner

import (
	"context"
	"iter"
	"testing"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/toddleops/pkg/agent"
	"github.com/kadirpekel/toddleops/pkg/session"
)

// writer emits one event that stores value under key.
func writer(t *testing.T, name, key string, value any) agent.Agent {
	t.Helper()
	a, err := agent.New(agent.Config{
		Name: name,
		Run: func(ctx agent.InvocationContext) iter.Seq2[*agent.Event, error] {
			return func(yield func(*agent.Event, error) bool) {
				ev := agent.NewEvent(ctx.InvocationID())
				ev.Message = a2a.NewMessage(a2a.MessageRoleAgent, a2a.TextPart{Text: name + " done"})
				ev.Actions.StateDelta[key] = value
				yield(ev, nil)
			}
		},
	})
	require.NoError(t, err)
	return a
}

func TestRunner_PersistsEventsAndState(t *testing.T) {
	svc := session.InMemoryService()
	r, err := New(Config{AppName: "crafts", Agent: writer(t, "researcher", "craft_research", "paper plates"), SessionService: svc})
	require.NoError(t, err)

	ctx := context.Background()
	var authors []string
	for ev, err := range r.Run(ctx, "parent", "s1", agent.NewTextContent("spring craft", a2a.MessageRoleUser), agent.RunConfig{}) {
		require.NoError(t, err)
		authors = append(authors, ev.Author)
	}
	assert.Equal(t, []string{"researcher"}, authors)

	sess, err := r.Session(ctx, "parent", "s1")
	require.NoError(t, err)
	got, err := sess.State().Get("craft_research")
	require.NoError(t, err)
	assert.Equal(t, "paper plates", got)

	// user message + agent event
	assert.Equal(t, 2, sess.Events().Len())
	assert.Equal(t, agent.AuthorUser, sess.Events().At(0).Author)
}

func TestRunner_InitialStateAndTempKeys(t *testing.T) {
	svc := session.InMemoryService()
	r, err := New(Config{Agent: writer(t, "scratch", "temp:draft", "x"), SessionService: svc})
	require.NoError(t, err)

	ctx := context.Background()
	for _, err := range r.RunWithState(ctx, "u", "s2", map[string]any{"topic": "bugs"}, nil, agent.RunConfig{}) {
		require.NoError(t, err)
	}

	sess, err := r.Session(ctx, "u", "s2")
	require.NoError(t, err)

	topic, err := sess.State().Get("topic")
	require.NoError(t, err)
	assert.Equal(t, "bugs", topic)

	_, err = sess.State().Get("temp:draft")
	assert.ErrorIs(t, err, session.ErrStateKeyNotExist)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{SessionService: session.InMemoryService()})
	assert.Error(t, err)

	_, err = New(Config{Agent: writer(t, "a", "k", 1)})
	assert.Error(t, err)
}

func TestBuildParentMap_DuplicateNames(t *testing.T) {
	child := writer(t, "dup", "k", 1)
	root, err := agent.New(agent.Config{
		Name:      "dup",
		SubAgents: []agent.Agent{child},
		Run: func(agent.InvocationContext) iter.Seq2[*agent.Event, error] {
			return func(func(*agent.Event, error) bool) {}
		},
	})
	require.NoError(t, err)

	_, err = BuildParentMap(root)
	assert.ErrorContains(t, err, "duplicate agent name")
}

func TestRunner_Parent(t *testing.T) {
	child := writer(t, "child", "k", 1)
	root, err := agent.New(agent.Config{
		Name:      "root",
		SubAgents: []agent.Agent{child},
		Run: func(agent.InvocationContext) iter.Seq2[*agent.Event, error] {
			return func(func(*agent.Event, error) bool) {}
		},
	})
	require.NoError(t, err)

	r, err := New(Config{Agent: root, SessionService: session.InMemoryService()})
	require.NoError(t, err)
	assert.Equal(t, "root", r.Parent("child").Name())
	assert.Nil(t, r.Parent("root"))
	assert.Equal(t, "child", r.FindAgent("child").Name())
}
