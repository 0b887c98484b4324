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

// Package archetype declares agent roles as immutable data.
//
// An archetype captures an agent's identity, instruction, model reference,
// declared data keys and tool bindings without touching any live runtime
// object. Two variants exist: Worker (a leaf that performs one capability)
// and Orchestrator (a composite that invokes managed agents as tools).
// Archetypes are turned into runnable agents by package factory.
package archetype

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
)

// Kind tags the concrete archetype variant.
type Kind string

const (
	KindWorker       Kind = "worker"
	KindOrchestrator Kind = "orchestrator"
)

// Style describes how an orchestrator's managed agents run relative to each other.
// It is advisory metadata: the factory does not enforce it.
type Style string

const (
	Sequential Style = "SEQUENTIAL"
	Parallel   Style = "PARALLEL"
	Loop       Style = "LOOP"
)

// Valid reports whether s is one of the known orchestration styles.
func (s Style) Valid() bool {
	switch s {
	case Sequential, Parallel, Loop:
		return true
	}
	return false
}

// ErrInvalid is wrapped by every archetype validation failure.
var ErrInvalid = errors.New("invalid archetype")

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsIdentifier reports whether s can be used as a data-bag key.
func IsIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// Archetype is the capability set shared by every variant.
type Archetype interface {
	Kind() Kind
	Name() string
	Summary() string
	Instruction() string
	// Model is an identifier resolved at materialization time.
	Model() string
	// OutputKey is empty when the agent does not publish its result.
	OutputKey() string
	// DefaultTools are dotted paths to tools that are always attached.
	DefaultTools() []string
}

// Spec holds the fields common to every archetype.
type Spec struct {
	Name         string
	Summary      string
	Instruction  string
	Model        string
	OutputKey    string
	DefaultTools []string
}

func (s Spec) validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if s.OutputKey != "" && !IsIdentifier(s.OutputKey) {
		return fmt.Errorf("%w: %s: output key %q is not a valid identifier", ErrInvalid, s.Name, s.OutputKey)
	}
	for i, p := range s.DefaultTools {
		if p == "" {
			return fmt.Errorf("%w: %s: default tool %d is empty", ErrInvalid, s.Name, i)
		}
	}
	return nil
}

func (s Spec) clone() Spec {
	s.DefaultTools = slices.Clone(s.DefaultTools)
	return s
}

type base struct {
	spec Spec
}

func (b *base) Name() string        { return b.spec.Name }
func (b *base) Summary() string     { return b.spec.Summary }
func (b *base) Instruction() string { return b.spec.Instruction }
func (b *base) Model() string       { return b.spec.Model }
func (b *base) OutputKey() string   { return b.spec.OutputKey }

func (b *base) DefaultTools() []string {
	return slices.Clone(b.spec.DefaultTools)
}

// ToolSpec describes one managed sub-agent as seen by its orchestrator.
type ToolSpec struct {
	// Handle is the tool name the orchestrator uses to invoke the sub-agent.
	Handle string
	// AgentPath is a dotted path resolved lazily by the factory.
	AgentPath  string
	Summary    string
	InputKeys  []string
	OutputKeys []string
}

func (t ToolSpec) clone() ToolSpec {
	t.InputKeys = slices.Clone(t.InputKeys)
	t.OutputKeys = slices.Clone(t.OutputKeys)
	return t
}

func (t ToolSpec) validate() error {
	if !IsIdentifier(t.Handle) {
		return fmt.Errorf("handle %q is not a valid identifier", t.Handle)
	}
	if t.AgentPath == "" {
		return fmt.Errorf("managed agent %q has no agent path", t.Handle)
	}
	for _, k := range append(slices.Clone(t.InputKeys), t.OutputKeys...) {
		if !IsIdentifier(k) {
			return fmt.Errorf("managed agent %q: key %q is not a valid identifier", t.Handle, k)
		}
	}
	return nil
}

var (
	_ Archetype = (*Worker)(nil)
	_ Archetype = (*Orchestrator)(nil)
)
