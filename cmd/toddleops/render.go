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

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/kadirpekel/toddleops/pkg/archetype"
	"github.com/kadirpekel/toddleops/pkg/store"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Width(14)

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

// renderProjects renders stored projects as a table.
func renderProjects(records []store.Record) string {
	if len(records) == 0 {
		return dimStyle.Render("No projects saved yet.")
	}

	t := newTable("ID", "Name", "Description", "Duration (min)")
	for _, rec := range records {
		t.Row(
			strconv.FormatInt(rec.ID, 10),
			rec.Project.Name,
			truncate(rec.Project.Description, 60),
			strconv.Itoa(rec.Project.DurationMinutes),
		)
	}
	return t.String()
}

// renderCatalog renders one line per archetype.
func renderCatalog(entries []archetype.Archetype) string {
	t := newTable("Name", "Kind", "Model", "Summary")
	for _, a := range entries {
		t.Row(a.Name(), string(a.Kind()), a.Model(), truncate(a.Summary(), 60))
	}
	return t.String()
}

// renderArchetype describes a single archetype.
func renderArchetype(a archetype.Archetype) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(a.Name()))
	b.WriteString("\n")
	if a.Summary() != "" {
		b.WriteString(a.Summary())
		b.WriteString("\n")
	}
	b.WriteString("\n")

	field := func(label, value string) {
		if value == "" {
			value = dimStyle.Render("-")
		}
		fmt.Fprintf(&b, "%s%s\n", labelStyle.Render(label), value)
	}

	field("Kind", string(a.Kind()))
	field("Model", a.Model())
	field("Output key", a.OutputKey())
	field("Default tools", strings.Join(a.DefaultTools(), ", "))

	switch v := a.(type) {
	case *archetype.Worker:
		field("Capability", v.Capability())
		field("Inputs", strings.Join(v.AcceptedInputs(), ", "))
		field("Produces", strings.Join(v.Produces(), ", "))
		field("Helper tools", strings.Join(v.HelperTools(), ", "))
	case *archetype.Orchestrator:
		field("Style", string(v.Style()))
		managed := v.ManagedAgents()
		if len(managed) > 0 {
			t := newTable("Handle", "Agent", "Input keys", "Output keys")
			for _, m := range managed {
				t.Row(m.Handle, m.AgentPath, strings.Join(m.InputKeys, ", "), strings.Join(m.OutputKeys, ", "))
			}
			b.WriteString("\n")
			b.WriteString(t.String())
			b.WriteString("\n")
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
