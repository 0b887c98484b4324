// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package archetype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorker(t *testing.T) {
	w, err := NewWorker(WorkerConfig{
		Spec: Spec{
			Name:        "ProjectFormatter",
			Summary:     "Formats a project.",
			Instruction: "Format it.",
			Model:       "gemini-2.5-flash-lite",
			OutputKey:   "human_project",
		},
		Capability:     "formatting",
		AcceptedInputs: []string{"standard_project"},
		Produces:       []string{"human_project"},
	})
	require.NoError(t, err)

	assert.Equal(t, KindWorker, w.Kind())
	assert.Equal(t, "ProjectFormatter", w.Name())
	assert.Equal(t, "human_project", w.OutputKey())
	assert.Equal(t, "formatting", w.Capability())
	assert.Equal(t, []string{"standard_project"}, w.AcceptedInputs())
	assert.Equal(t, []string{"human_project"}, w.Produces())
	assert.Empty(t, w.HelperTools())
}

func TestWorkerIsImmutable(t *testing.T) {
	inputs := []string{"standard_project"}
	tools := []string{"a.b.tool"}
	w := MustWorker(WorkerConfig{
		Spec:           Spec{Name: "W", DefaultTools: tools},
		AcceptedInputs: inputs,
	})

	inputs[0] = "mutated"
	tools[0] = "mutated"
	got := w.AcceptedInputs()
	got[0] = "mutated again"

	assert.Equal(t, []string{"standard_project"}, w.AcceptedInputs())
	assert.Equal(t, []string{"a.b.tool"}, w.DefaultTools())
}

func TestArchetypeValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  WorkerConfig
	}{
		{name: "empty name", cfg: WorkerConfig{}},
		{name: "output key with dash", cfg: WorkerConfig{Spec: Spec{Name: "W", OutputKey: "human-project"}}},
		{name: "output key with leading digit", cfg: WorkerConfig{Spec: Spec{Name: "W", OutputKey: "1key"}}},
		{name: "empty default tool", cfg: WorkerConfig{Spec: Spec{Name: "W", DefaultTools: []string{""}}}},
		{name: "bad produced key", cfg: WorkerConfig{Spec: Spec{Name: "W"}, Produces: []string{"a b"}}},
		{name: "empty helper tool", cfg: WorkerConfig{Spec: Spec{Name: "W"}, HelperTools: []string{""}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWorker(tt.cfg)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}

	assert.Panics(t, func() { MustWorker(WorkerConfig{}) })
}

func TestNewOrchestrator(t *testing.T) {
	o, err := NewOrchestrator(OrchestratorConfig{
		Spec:  Spec{Name: "QualityAssurancePipeline", Model: "gemini-2.5-flash-lite"},
		Style: Sequential,
		ManagedAgents: []ToolSpec{
			{Handle: "safety_refinement_loop", AgentPath: "x.loop", InputKeys: []string{"standard_project"}, OutputKeys: []string{"standard_project", "safety_report"}},
			{Handle: "editorial_agent", AgentPath: "x.editor", InputKeys: []string{"standard_project"}, OutputKeys: []string{"standard_project"}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, KindOrchestrator, o.Kind())
	assert.Equal(t, Sequential, o.Style())
	assert.Empty(t, o.OutputKey())

	managed := o.ManagedAgents()
	require.Len(t, managed, 2)
	assert.Equal(t, "safety_refinement_loop", managed[0].Handle)
	assert.Equal(t, "editorial_agent", managed[1].Handle)

	spec, ok := o.ManagedAgent("editorial_agent")
	require.True(t, ok)
	assert.Equal(t, "x.editor", spec.AgentPath)

	_, ok = o.ManagedAgent("missing")
	assert.False(t, ok)
}

func TestOrchestratorValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  OrchestratorConfig
	}{
		{
			name: "duplicate handle",
			cfg: OrchestratorConfig{Spec: Spec{Name: "O"}, Style: Sequential, ManagedAgents: []ToolSpec{
				{Handle: "child", AgentPath: "a.b"},
				{Handle: "child", AgentPath: "a.c"},
			}},
		},
		{
			name: "unknown style",
			cfg:  OrchestratorConfig{Spec: Spec{Name: "O"}, Style: "RANDOM"},
		},
		{
			name: "missing agent path",
			cfg:  OrchestratorConfig{Spec: Spec{Name: "O"}, Style: Loop, ManagedAgents: []ToolSpec{{Handle: "child"}}},
		},
		{
			name: "invalid handle",
			cfg:  OrchestratorConfig{Spec: Spec{Name: "O"}, Style: Parallel, ManagedAgents: []ToolSpec{{Handle: "my child", AgentPath: "a.b"}}},
		},
		{
			name: "invalid output key on spec",
			cfg: OrchestratorConfig{Spec: Spec{Name: "O"}, Style: Parallel, ManagedAgents: []ToolSpec{
				{Handle: "child", AgentPath: "a.b", OutputKeys: []string{"out-key"}},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOrchestrator(tt.cfg)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestOrchestratorWithoutManagedAgentsIsLegal(t *testing.T) {
	o, err := NewOrchestrator(OrchestratorConfig{Spec: Spec{Name: "Lonely"}, Style: Loop})
	require.NoError(t, err)
	assert.Empty(t, o.ManagedAgents())
}

func TestIsIdentifier(t *testing.T) {
	assert.True(t, IsIdentifier("standard_project"))
	assert.True(t, IsIdentifier("_private1"))
	assert.False(t, IsIdentifier(""))
	assert.False(t, IsIdentifier("with.dot"))
	assert.False(t, IsIdentifier("9lives"))
}
