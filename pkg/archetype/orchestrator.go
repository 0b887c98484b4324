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
	"fmt"
	"slices"
)

// OrchestratorConfig declares a composite agent.
type OrchestratorConfig struct {
	Spec

	Style         Style
	ManagedAgents []ToolSpec
}

// Orchestrator is a composite archetype that invokes its managed agents as tools.
type Orchestrator struct {
	base
	style   Style
	managed []ToolSpec
}

// NewOrchestrator validates cfg and returns an immutable orchestrator archetype.
// Handles must be unique within ManagedAgents. An empty ManagedAgents list is legal.
func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	if err := cfg.Spec.validate(); err != nil {
		return nil, err
	}
	if !cfg.Style.Valid() {
		return nil, fmt.Errorf("%w: %s: unknown orchestration style %q", ErrInvalid, cfg.Name, cfg.Style)
	}

	seen := make(map[string]bool, len(cfg.ManagedAgents))
	managed := make([]ToolSpec, 0, len(cfg.ManagedAgents))
	for _, spec := range cfg.ManagedAgents {
		if err := spec.validate(); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, cfg.Name, err)
		}
		if seen[spec.Handle] {
			return nil, fmt.Errorf("%w: %s: duplicate handle %q", ErrInvalid, cfg.Name, spec.Handle)
		}
		seen[spec.Handle] = true
		managed = append(managed, spec.clone())
	}

	return &Orchestrator{
		base:    base{spec: cfg.Spec.clone()},
		style:   cfg.Style,
		managed: managed,
	}, nil
}

// MustOrchestrator is like NewOrchestrator but panics on an invalid declaration.
func MustOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	o, err := NewOrchestrator(cfg)
	if err != nil {
		panic(err)
	}
	return o
}

func (o *Orchestrator) Kind() Kind   { return KindOrchestrator }
func (o *Orchestrator) Style() Style { return o.style }

// ManagedAgents returns the managed agent specs in declaration order.
func (o *Orchestrator) ManagedAgents() []ToolSpec {
	out := make([]ToolSpec, len(o.managed))
	for i, s := range o.managed {
		out[i] = s.clone()
	}
	return out
}

// ManagedAgent looks up a managed agent spec by handle.
func (o *Orchestrator) ManagedAgent(handle string) (ToolSpec, bool) {
	i := slices.IndexFunc(o.managed, func(s ToolSpec) bool { return s.Handle == handle })
	if i < 0 {
		return ToolSpec{}, false
	}
	return o.managed[i].clone(), true
}
