package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/toddleops/pkg/model"
)

type stubLLM struct {
	name string
}

func (s *stubLLM) Name() string             { return s.name }
func (s *stubLLM) Provider() model.Provider { return model.ProviderUnknown }
func (s *stubLLM) Close() error             { return nil }

func (s *stubLLM) GenerateContent(context.Context, *model.Request) (*model.Response, error) {
	return &model.Response{}, nil
}

func TestRouter_ResolvesByPrefixAndCaches(t *testing.T) {
	r := New(nil)
	var built []string
	require.NoError(t, r.Register("local", func(name string) (model.LLM, error) {
		built = append(built, name)
		return &stubLLM{name: name}, nil
	}))

	first, err := r.ResolveModel("local/mistral-nemo:12b")
	require.NoError(t, err)
	second, err := r.ResolveModel("local/mistral-nemo:12b")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, "mistral-nemo:12b", first.Name())
	assert.Equal(t, []string{"mistral-nemo:12b"}, built)
}

func TestRouter_Aliases(t *testing.T) {
	r := New(map[string]string{
		"root":        "local-model",
		"local-model": "local/llama3.2",
	})
	require.NoError(t, r.Register("local", func(name string) (model.LLM, error) {
		return &stubLLM{name: name}, nil
	}))

	llm, err := r.ResolveModel("root")
	require.NoError(t, err)
	assert.Equal(t, "llama3.2", llm.Name())

	cyclic := New(map[string]string{"a": "b", "b": "a"})
	_, err = cyclic.ResolveModel("a")
	assert.ErrorIs(t, err, ErrAliasCycle)
}

func TestRouter_UnknownProvider(t *testing.T) {
	r := New(nil)

	_, err := r.ResolveModel("mystery/model")
	assert.ErrorIs(t, err, ErrUnknownProvider)

	_, err = r.ResolveModel("no-prefix")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestRouter_FactoryErrorIsNotCached(t *testing.T) {
	r := New(nil)
	boom := errors.New("no key")
	calls := 0
	require.NoError(t, r.Register("flaky", func(name string) (model.LLM, error) {
		calls++
		if calls == 1 {
			return nil, boom
		}
		return &stubLLM{name: name}, nil
	}))

	_, err := r.ResolveModel("flaky/x")
	assert.ErrorIs(t, err, boom)

	llm, err := r.ResolveModel("flaky/x")
	require.NoError(t, err)
	assert.Equal(t, "x", llm.Name())
}

func TestNewDefault_RegistersProviders(t *testing.T) {
	r := NewDefault(Config{})
	assert.Equal(t, []string{"gemini", "ollama", "ollama_chat", "anthropic", "openai"}, r.Providers())

	llm, err := r.ResolveModel("ollama_chat/mistral-nemo:12b")
	require.NoError(t, err)
	assert.Equal(t, "mistral-nemo:12b", llm.Name())
	assert.Equal(t, model.ProviderOllama, llm.Provider())

	_, err = r.ResolveModel("anthropic/claude-sonnet-4-5")
	assert.Error(t, err, "missing API key")
}
