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

// Package project defines StandardProject, the structured output contract
// that flows through the craft pipeline, together with its payload
// normalizer, JSON schema and markdown rendering.
package project

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// OutOfScopeName is the name carried by the out-of-scope sentinel project.
const OutOfScopeName = "out of scope"

// Material is one item of a structured materials list.
type Material struct {
	Name     string `json:"name" mapstructure:"name" jsonschema:"required,description=Material name"`
	Quantity string `json:"quantity,omitempty" mapstructure:"quantity" jsonschema:"description=Optional amount such as 2 sheets"`
}

func (m Material) String() string {
	if m.Quantity == "" {
		return m.Name
	}
	return fmt.Sprintf("%s (%s)", m.Name, m.Quantity)
}

// Materials is either free text or a structured list. A non-nil Items wins.
type Materials struct {
	Text  string
	Items []Material
}

// TextMaterials returns free-text materials.
func TextMaterials(text string) Materials {
	return Materials{Text: text}
}

// ListMaterials returns structured materials.
func ListMaterials(items ...Material) Materials {
	if items == nil {
		items = []Material{}
	}
	return Materials{Items: items}
}

// Structured reports whether the materials are a list.
func (m Materials) Structured() bool {
	return m.Items != nil
}

// IsEmpty reports whether there is nothing to list.
func (m Materials) IsEmpty() bool {
	return len(m.Items) == 0 && strings.TrimSpace(m.Text) == ""
}

// String renders structured materials as a dash list, free text verbatim.
func (m Materials) String() string {
	if !m.Structured() {
		return m.Text
	}
	lines := make([]string, len(m.Items))
	for i, item := range m.Items {
		lines[i] = "- " + item.String()
	}
	return strings.Join(lines, "\n")
}

func (m Materials) MarshalJSON() ([]byte, error) {
	if m.Structured() {
		return json.Marshal(m.Items)
	}
	return json.Marshal(m.Text)
}

func (m *Materials) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*m = Materials{}
		return nil
	case len(data) > 0 && data[0] == '[':
		var items []Material
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("materials: %w", err)
		}
		*m = ListMaterials(items...)
		return nil
	default:
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return fmt.Errorf("materials must be text or a list: %w", err)
		}
		*m = TextMaterials(text)
		return nil
	}
}

// StandardProject is a toddler craft project. It is a value object: it has
// no identity beyond its fields until a store assigns one.
type StandardProject struct {
	Name            string    `json:"name" mapstructure:"name" jsonschema:"required,description=Project name"`
	Description     string    `json:"description" mapstructure:"description" jsonschema:"required,description=Short description of the project"`
	DurationMinutes int       `json:"duration_minutes" mapstructure:"duration_minutes" jsonschema:"required,minimum=0,description=Expected duration in minutes"`
	Materials       Materials `json:"materials" mapstructure:"materials" jsonschema:"required"`
	Instructions    string    `json:"instructions" mapstructure:"instructions" jsonschema:"required,description=Step by step instructions"`
}

// OutOfScope returns the sentinel project a synthesis stage produces for a
// request it cannot serve. Callers must check IsOutOfScope before treating a
// project as real.
func OutOfScope() *StandardProject {
	return &StandardProject{Name: OutOfScopeName}
}

// IsOutOfScope reports whether p is the out-of-scope sentinel.
func (p *StandardProject) IsOutOfScope() bool {
	return p != nil &&
		p.Name == OutOfScopeName &&
		p.Description == "" &&
		p.DurationMinutes == 0 &&
		p.Materials.IsEmpty() &&
		p.Instructions == ""
}

// Validate checks field constraints that typing alone does not enforce.
func (p *StandardProject) Validate() error {
	var problems []string
	if strings.TrimSpace(p.Name) == "" {
		problems = append(problems, "name: must not be empty")
	}
	if p.DurationMinutes < 0 {
		problems = append(problems, "duration_minutes: must be non-negative")
	}
	for i, m := range p.Materials.Items {
		if strings.TrimSpace(m.Name) == "" {
			problems = append(problems, fmt.Sprintf("materials[%d].name: must not be empty", i))
		}
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// ToMap converts p into the untyped shape stored in session state.
func (p *StandardProject) ToMap() map[string]any {
	var materials any = p.Materials.Text
	if p.Materials.Structured() {
		items := make([]any, len(p.Materials.Items))
		for i, m := range p.Materials.Items {
			item := map[string]any{"name": m.Name}
			if m.Quantity != "" {
				item["quantity"] = m.Quantity
			}
			items[i] = item
		}
		materials = items
	}
	return map[string]any{
		"name":             p.Name,
		"description":      p.Description,
		"duration_minutes": p.DurationMinutes,
		"materials":        materials,
		"instructions":     p.Instructions,
	}
}
