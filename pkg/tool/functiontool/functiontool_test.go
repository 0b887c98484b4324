package functiontool

import (
	"context"
	"errors"
	"testing"

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

func newContext() tool.Context {
	return &fakeContext{CallbackContext: agent.NewInvocationContext(context.Background(), agent.InvocationContextParams{})}
}

type saveArgs struct {
	Name     string `json:"name" jsonschema:"required,description=Project name"`
	Duration int    `json:"duration_minutes,omitempty" jsonschema:"description=Duration in minutes,minimum=0"`
}

func TestNew_Schema(t *testing.T) {
	tl, err := New(Config{Name: "save_project", Description: "Saves a project"},
		func(tool.Context, saveArgs) (map[string]any, error) { return nil, nil })
	require.NoError(t, err)

	assert.Equal(t, "save_project", tl.Name())
	assert.Equal(t, "Saves a project", tl.Description())

	schema := tl.Schema()
	assert.Equal(t, "object", schema["type"])
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "name")
	assert.Contains(t, props, "duration_minutes")
	assert.ElementsMatch(t, []any{"name"}, schema["required"])
}

func TestNew_ConfigValidation(t *testing.T) {
	fn := func(tool.Context, saveArgs) (map[string]any, error) { return nil, nil }

	_, err := New(Config{Description: "d"}, fn)
	assert.Error(t, err)
	_, err = New(Config{Name: "n"}, fn)
	assert.Error(t, err)
	_, err = New[saveArgs](Config{Name: "n", Description: "d"}, nil)
	assert.Error(t, err)
}

func TestCall_DecodesWeaklyTypedArgs(t *testing.T) {
	var got saveArgs
	tl, err := New(Config{Name: "save_project", Description: "d"},
		func(_ tool.Context, args saveArgs) (map[string]any, error) {
			got = args
			return map[string]any{"saved": args.Name}, nil
		})
	require.NoError(t, err)

	result, err := tl.Call(newContext(), map[string]any{"name": "Ladybugs", "duration_minutes": "15"})
	require.NoError(t, err)
	assert.Equal(t, saveArgs{Name: "Ladybugs", Duration: 15}, got)
	assert.Equal(t, "Ladybugs", result["saved"])
}

func TestCall_InvalidArgs(t *testing.T) {
	tl, err := New(Config{Name: "save_project", Description: "d"},
		func(tool.Context, saveArgs) (map[string]any, error) { return nil, nil })
	require.NoError(t, err)

	_, err = tl.Call(newContext(), map[string]any{"duration_minutes": "soon"})
	assert.ErrorContains(t, err, "invalid arguments for save_project")
}

func TestNewWithValidation(t *testing.T) {
	tl, err := NewWithValidation(Config{Name: "save_project", Description: "d"},
		func(tool.Context, saveArgs) (map[string]any, error) { return map[string]any{}, nil },
		func(a saveArgs) error {
			if a.Name == "" {
				return errors.New("name is required")
			}
			return nil
		})
	require.NoError(t, err)

	_, err = tl.Call(newContext(), map[string]any{})
	assert.ErrorContains(t, err, "validation failed")

	_, err = tl.Call(newContext(), map[string]any{"name": "x"})
	assert.NoError(t, err)
}
