package session

import (
	"maps"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/toddleops/pkg/agent"
)

func TestCreateAndGet(t *testing.T) {
	svc := InMemoryService()

	created, err := svc.Create(t.Context(), &CreateRequest{
		AppName: "toddleops",
		UserID:  "user",
		State:   map[string]any{"prompt": "paint"},
	})
	require.NoError(t, err)
	sess := created.Session
	assert.NotEmpty(t, sess.ID())
	assert.Equal(t, "toddleops", sess.AppName())
	assert.Equal(t, "user", sess.UserID())

	got, err := svc.Get(t.Context(), &GetRequest{AppName: "toddleops", UserID: "user", SessionID: sess.ID()})
	require.NoError(t, err)
	assert.Same(t, sess, got.Session)

	v, err := got.Session.State().Get("prompt")
	require.NoError(t, err)
	assert.Equal(t, "paint", v)

	_, err = svc.Get(t.Context(), &GetRequest{AppName: "toddleops", UserID: "other", SessionID: sess.ID()})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCreateCopiesInitialState(t *testing.T) {
	initial := map[string]any{"a": 1}
	svc := InMemoryService()
	created, err := svc.Create(t.Context(), &CreateRequest{AppName: "app", UserID: "u", SessionID: "s1", State: initial})
	require.NoError(t, err)
	assert.Equal(t, "s1", created.Session.ID())

	require.NoError(t, created.Session.State().Set("b", 2))
	assert.NotContains(t, initial, "b")
}

func TestAppendEventAppliesStateDelta(t *testing.T) {
	svc := InMemoryService()
	created, err := svc.Create(t.Context(), &CreateRequest{AppName: "app", UserID: "u"})
	require.NoError(t, err)
	sess := created.Session

	partial := agent.NewEvent("inv")
	partial.Partial = true
	partial.Actions.StateDelta["draft"] = "half"
	require.NoError(t, svc.AppendEvent(t.Context(), sess, partial))

	final := agent.NewEvent("inv")
	final.Actions.StateDelta["standard_project"] = "done"
	require.NoError(t, svc.AppendEvent(t.Context(), sess, final))

	_, err = sess.State().Get("draft")
	assert.ErrorIs(t, err, ErrStateKeyNotExist)
	v, err := sess.State().Get("standard_project")
	require.NoError(t, err)
	assert.Equal(t, "done", v)

	assert.Equal(t, 2, sess.Events().Len())
	assert.Same(t, final, sess.Events().At(1))
	assert.Nil(t, sess.Events().At(2))
	assert.Nil(t, sess.Events().At(-1))

	var seen []*agent.Event
	for ev := range sess.Events().All() {
		seen = append(seen, ev)
	}
	assert.Equal(t, []*agent.Event{partial, final}, seen)
}

func TestAppendEventUnknownSession(t *testing.T) {
	svc := InMemoryService()
	other := InMemoryService()
	created, err := other.Create(t.Context(), &CreateRequest{AppName: "app", UserID: "u"})
	require.NoError(t, err)

	err = svc.AppendEvent(t.Context(), created.Session, agent.NewEvent("inv"))
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestDelete(t *testing.T) {
	svc := InMemoryService()
	created, err := svc.Create(t.Context(), &CreateRequest{AppName: "app", UserID: "u"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(t.Context(), &DeleteRequest{AppName: "app", UserID: "u", SessionID: created.Session.ID()}))
	_, err = svc.Get(t.Context(), &GetRequest{AppName: "app", UserID: "u", SessionID: created.Session.ID()})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStateTempKeys(t *testing.T) {
	st := newMemoryState(map[string]any{"temp:scratch": 1, "keep": 2})
	st.ClearTempKeys()

	assert.Equal(t, map[string]any{"keep": 2}, maps.Collect(st.All()))
}

func TestStateAllIsSnapshot(t *testing.T) {
	st := NewState(map[string]any{"a": 1, "b": 2})
	for k := range st.All() {
		require.NoError(t, st.Delete(k))
		require.NoError(t, st.Set(k+"2", 0))
	}
	assert.Len(t, maps.Collect(st.All()), 2)
}
