package llmagent

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/toddleops/pkg/agent"
	"github.com/kadirpekel/toddleops/pkg/model"
	"github.com/kadirpekel/toddleops/pkg/runner"
	"github.com/kadirpekel/toddleops/pkg/session"
	"github.com/kadirpekel/toddleops/pkg/tool"
)

// scriptedLLM replays responses in order and records every request.
type scriptedLLM struct {
	mu        sync.Mutex
	responses []*model.Response
	requests  []*model.Request
	err       error
}

func (m *scriptedLLM) Name() string             { return "scripted" }
func (m *scriptedLLM) Provider() model.Provider { return model.ProviderUnknown }
func (m *scriptedLLM) Close() error             { return nil }

func (m *scriptedLLM) GenerateContent(_ context.Context, req *model.Request) (*model.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.responses) == 0 {
		return textResponse("out of script"), nil
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

func textResponse(text string) *model.Response {
	return &model.Response{
		Content: &model.Content{
			Role:  a2a.MessageRoleAgent,
			Parts: []a2a.Part{a2a.TextPart{Text: text}},
		},
		FinishReason: model.FinishReasonStop,
	}
}

func toolResponse(calls ...tool.Call) *model.Response {
	return &model.Response{ToolCalls: calls, FinishReason: model.FinishReasonToolCalls}
}

// echoTool returns its "text" argument and writes it to state.
type echoTool struct {
	escalate bool
}

func (echoTool) Name() string        { return "echo" }
func (echoTool) Description() string { return "Echoes text." }

func (echoTool) Schema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{"text": map[string]any{"type": "string"}},
	}
}

func (e echoTool) Call(ctx tool.Context, args map[string]any) (map[string]any, error) {
	text, _ := args["text"].(string)
	if err := ctx.State().Set("echoed", text); err != nil {
		return nil, err
	}
	if e.escalate {
		ctx.Actions().Escalate = true
	}
	return map[string]any{"result": text}, nil
}

type failingTool struct{}

func (failingTool) Name() string           { return "broken" }
func (failingTool) Description() string    { return "Always fails." }
func (failingTool) Schema() map[string]any { return map[string]any{"type": "object"} }

func (failingTool) Call(tool.Context, map[string]any) (map[string]any, error) {
	return nil, errors.New("kaboom")
}

// searchTool is a provider-side tool.
type searchTool struct{}

func (searchTool) Name() string        { return "google_search" }
func (searchTool) Description() string { return "Search grounding." }

func (searchTool) ProcessRequest(_ tool.Context, req *tool.Request) error {
	req.BuiltinTools = append(req.BuiltinTools, "google_search")
	return nil
}

func run(t *testing.T, a agent.Agent, state map[string]any, prompt string) ([]*agent.Event, session.Session, error) {
	t.Helper()
	r, err := runner.New(runner.Config{AppName: "test", Agent: a, SessionService: session.InMemoryService()})
	require.NoError(t, err)

	var content *agent.Content
	if prompt != "" {
		content = agent.NewTextContent(prompt, a2a.MessageRoleUser)
	}

	ctx := context.Background()
	var events []*agent.Event
	var runErr error
	for ev, err := range r.RunWithState(ctx, "u", "s", state, content, agent.RunConfig{}) {
		if err != nil {
			runErr = err
			break
		}
		events = append(events, ev)
	}
	sess, err := r.Session(ctx, "u", "s")
	require.NoError(t, err)
	return events, sess, runErr
}

func TestNew_RequiresModel(t *testing.T) {
	_, err := New(Config{Name: "x"})
	assert.ErrorIs(t, err, agent.ErrInvalidConfig)
}

func TestNew_RejectsDuplicateTools(t *testing.T) {
	_, err := New(Config{Name: "x", Model: &scriptedLLM{}, Tools: []tool.Tool{echoTool{}, echoTool{}}})
	assert.ErrorIs(t, err, agent.ErrInvalidConfig)
}

func TestRun_TextAnswerSetsOutputKey(t *testing.T) {
	llm := &scriptedLLM{responses: []*model.Response{textResponse("Paper plate ladybugs")}}
	a, err := New(Config{
		Name:        "researcher",
		Model:       llm,
		Instruction: "Research a craft about {topic}.",
		OutputKey:   "craft_research",
	})
	require.NoError(t, err)

	events, sess, err := run(t, a, map[string]any{"topic": "insects"}, "go")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].IsFinalResponse())
	assert.Equal(t, "researcher", events[0].Author)

	got, err := sess.State().Get("craft_research")
	require.NoError(t, err)
	assert.Equal(t, "Paper plate ladybugs", got)

	require.Len(t, llm.requests, 1)
	assert.Equal(t, "Research a craft about insects.", llm.requests[0].SystemInstruction)
	require.Len(t, llm.requests[0].Messages, 1)
	assert.Equal(t, "go", model.TextOf(llm.requests[0].Messages[0]))
}

func TestRun_MissingPlaceholderFails(t *testing.T) {
	llm := &scriptedLLM{}
	a, err := New(Config{Name: "formatter", Model: llm, Instruction: "Format {standard_project}."})
	require.NoError(t, err)

	_, _, err = run(t, a, nil, "go")
	assert.ErrorContains(t, err, "standard_project")
	assert.Empty(t, llm.requests)
}

func TestRun_StructuredOutputIsDecoded(t *testing.T) {
	llm := &scriptedLLM{responses: []*model.Response{
		textResponse("```json\n{\"title\": \"Ladybugs\", \"age_range\": \"2-4\"}\n```"),
	}}
	schema := map[string]any{"type": "object"}
	a, err := New(Config{Name: "synth", Model: llm, OutputKey: "standard_project", OutputSchema: schema})
	require.NoError(t, err)

	_, sess, err := run(t, a, nil, "go")
	require.NoError(t, err)

	got, err := sess.State().Get("standard_project")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title": "Ladybugs", "age_range": "2-4"}, got)

	cfg := llm.requests[0].Config
	require.NotNil(t, cfg)
	assert.Equal(t, "application/json", cfg.ResponseMIMEType)
	assert.Equal(t, schema, cfg.ResponseSchema)
}

func TestRun_InvalidStructuredOutputKeepsText(t *testing.T) {
	llm := &scriptedLLM{responses: []*model.Response{textResponse("not json")}}
	a, err := New(Config{Name: "synth", Model: llm, OutputKey: "out", OutputSchema: map[string]any{"type": "object"}})
	require.NoError(t, err)

	_, sess, err := run(t, a, nil, "go")
	require.NoError(t, err)
	got, err := sess.State().Get("out")
	require.NoError(t, err)
	assert.Equal(t, "not json", got)
}

func TestRun_ToolLoop(t *testing.T) {
	llm := &scriptedLLM{responses: []*model.Response{
		toolResponse(tool.Call{ID: "c1", Name: "echo", Args: map[string]any{"text": "glue"}}),
		textResponse("done"),
	}}
	a, err := New(Config{Name: "worker", Model: llm, Tools: []tool.Tool{echoTool{}}})
	require.NoError(t, err)

	events, sess, err := run(t, a, nil, "go")
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Len(t, events[0].ToolCalls, 1)
	require.Len(t, events[1].ToolResults, 1)
	assert.Equal(t, "glue", events[1].ToolResults[0].Content)
	assert.False(t, events[1].ToolResults[0].IsError)
	assert.Equal(t, "done", events[2].TextContent())

	echoed, err := sess.State().Get("echoed")
	require.NoError(t, err)
	assert.Equal(t, "glue", echoed)

	// second request carries the call and its result
	require.Len(t, llm.requests, 2)
	msgs := llm.requests[1].Messages
	require.Len(t, msgs, 3)
	assert.Len(t, model.ToolCallsOf(msgs[1]), 1)
	results := model.ToolResultsOf(msgs[2])
	require.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].ToolCallID)

	require.Len(t, llm.requests[0].Tools, 1)
	assert.Equal(t, "echo", llm.requests[0].Tools[0].Name)
}

func TestRun_ToolErrorsAreReportedToModel(t *testing.T) {
	llm := &scriptedLLM{responses: []*model.Response{
		toolResponse(
			tool.Call{ID: "c1", Name: "broken"},
			tool.Call{ID: "c2", Name: "missing"},
		),
		textResponse("recovered"),
	}}
	a, err := New(Config{Name: "worker", Model: llm, Tools: []tool.Tool{failingTool{}}})
	require.NoError(t, err)

	events, _, err := run(t, a, nil, "go")
	require.NoError(t, err)
	require.Len(t, events, 3)

	results := events[1].ToolResults
	require.Len(t, results, 2)
	assert.True(t, results[0].IsError)
	assert.Contains(t, results[0].Content, "kaboom")
	assert.True(t, results[1].IsError)
	assert.Contains(t, results[1].Content, "not found")
}

func TestRun_EscalateEndsLoop(t *testing.T) {
	llm := &scriptedLLM{responses: []*model.Response{
		toolResponse(tool.Call{ID: "c1", Name: "echo", Args: map[string]any{"text": "ok"}}),
		textResponse("never"),
	}}
	a, err := New(Config{Name: "critic", Model: llm, Tools: []tool.Tool{echoTool{escalate: true}}})
	require.NoError(t, err)

	events, _, err := run(t, a, nil, "go")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.True(t, events[1].Actions.Escalate)
	assert.Len(t, llm.requests, 1)
}

func TestRun_MaxIterations(t *testing.T) {
	call := tool.Call{ID: "c", Name: "echo", Args: map[string]any{"text": "again"}}
	llm := &scriptedLLM{responses: []*model.Response{toolResponse(call), toolResponse(call), toolResponse(call)}}
	a, err := New(Config{Name: "looper", Model: llm, Tools: []tool.Tool{echoTool{}}, MaxIterations: 2})
	require.NoError(t, err)

	_, _, err = run(t, a, nil, "go")
	assert.ErrorIs(t, err, ErrMaxIterations)
	assert.Len(t, llm.requests, 2)
}

func TestRun_ModelErrorPropagates(t *testing.T) {
	llm := &scriptedLLM{err: errors.New("quota")}
	a, err := New(Config{Name: "worker", Model: llm})
	require.NoError(t, err)

	_, _, err = run(t, a, nil, "go")
	assert.ErrorContains(t, err, "quota")
}

func TestRun_RequestProcessorAddsBuiltinTool(t *testing.T) {
	llm := &scriptedLLM{responses: []*model.Response{textResponse("found")}}
	a, err := New(Config{Name: "searcher", Model: llm, Tools: []tool.Tool{searchTool{}}})
	require.NoError(t, err)

	_, _, err = run(t, a, nil, "go")
	require.NoError(t, err)

	req := llm.requests[0]
	assert.True(t, req.HasBuiltinTool("google_search"))
	assert.Empty(t, req.Tools)
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("  {\"a\":1} "))
	assert.Equal(t, "[1]", stripCodeFence("```\n[1]\n```"))
}

func TestFormatToolResult(t *testing.T) {
	assert.Equal(t, "plain", formatToolResult(map[string]any{"result": "plain"}))
	assert.Equal(t, `{"status":"APPROVED"}`, formatToolResult(map[string]any{"status": "APPROVED"}))
	assert.Equal(t, "", formatToolResult(nil))
}
