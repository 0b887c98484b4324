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

package project

import (
	"fmt"
	"strings"
)

// Markdown renders p as a caregiver-readable handout.
func Markdown(p *StandardProject) string {
	if p.IsOutOfScope() {
		return "# Out of scope\n\nThis request is outside what we can safely offer for toddlers aged 1-3. Please try a different idea.\n"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", p.Name)
	fmt.Fprintf(&sb, "**Description:** %s\n\n", p.Description)
	fmt.Fprintf(&sb, "**Duration:** %d minutes\n\n", p.DurationMinutes)
	sb.WriteString("**Materials:**\n")
	sb.WriteString(p.Materials.String())
	sb.WriteString("\n\n")
	sb.WriteString("**Instructions:**\n")
	sb.WriteString(p.Instructions)
	sb.WriteString("\n")
	return sb.String()
}
