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

package instruction

import (
	"errors"
	"strings"
)

// Instructions is the structured form of an agent instruction. Every list is
// required; an explicitly empty list renders as an empty section.
type Instructions struct {
	Persona      string
	Objectives   []string
	Principles   []string
	Constraints  []string
	IncomingKeys []string
}

// Validate reports a missing persona or a nil list.
func (in Instructions) Validate() error {
	var errs []error
	if strings.TrimSpace(in.Persona) == "" {
		errs = append(errs, errors.New("persona is required"))
	}
	if in.Objectives == nil {
		errs = append(errs, errors.New("objectives are required"))
	}
	if in.Principles == nil {
		errs = append(errs, errors.New("principles are required"))
	}
	if in.Constraints == nil {
		errs = append(errs, errors.New("constraints are required"))
	}
	if in.IncomingKeys == nil {
		errs = append(errs, errors.New("incoming keys are required"))
	}
	return errors.Join(errs...)
}

// Format renders the instruction block. Incoming keys become {key}
// placeholders for InjectState. List order is preserved.
func (in Instructions) Format() string {
	var sb strings.Builder

	sb.WriteString("Persona: You are a ")
	sb.WriteString(in.Persona)
	sb.WriteString("\n\n")

	section(&sb, "Your primary objectives are:", in.Objectives)
	sb.WriteString("\n")
	section(&sb, "Please adhere to the following guiding principles:", in.Principles)
	sb.WriteString("\n")
	section(&sb, "You must NEVER do the following:", in.Constraints)
	sb.WriteString("\n")

	keys := make([]string, len(in.IncomingKeys))
	for i, k := range in.IncomingKeys {
		keys[i] = "{" + k + "}"
	}
	section(&sb, "You will receive the following incoming keys:", keys)

	return sb.String()
}

// MustFormat validates and formats, panicking on an invalid declaration.
// It is meant for package-level instruction catalogs.
func (in Instructions) MustFormat() string {
	if err := in.Validate(); err != nil {
		panic(err)
	}
	return in.Format()
}

func section(sb *strings.Builder, heading string, items []string) {
	sb.WriteString(heading)
	sb.WriteString("\n")
	for _, item := range items {
		sb.WriteString("\t- ")
		sb.WriteString(item)
		sb.WriteString("\n")
	}
}
