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

// Package instruction builds and renders agent instructions.
//
// Instructions are produced by Instructions.Format and may contain
// placeholders that InjectState resolves from session state at run time:
//
//	{variable}   - session state value, error if missing
//	{variable?}  - optional, empty string if missing
//
// Placeholders whose content is not an identifier are left untouched, so
// literal braces in prose survive rendering.
package instruction

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/kadirpekel/toddleops/pkg/agent"
)

// placeholderRegex matches one or more opening braces, content without
// braces, one or more closing braces.
var placeholderRegex = regexp.MustCompile(`{+[^{}]*}+`)

// InjectState resolves the placeholders of template from ctx's session state.
func InjectState(ctx agent.ReadonlyContext, template string) (string, error) {
	if template == "" {
		return "", nil
	}

	var result strings.Builder
	lastIndex := 0
	for _, m := range placeholderRegex.FindAllStringIndex(template, -1) {
		start, end := m[0], m[1]
		result.WriteString(template[lastIndex:start])

		replacement, err := replaceMatch(ctx, template[start:end])
		if err != nil {
			return "", err
		}
		result.WriteString(replacement)
		lastIndex = end
	}
	result.WriteString(template[lastIndex:])
	return result.String(), nil
}

// ListPlaceholders returns the state keys referenced by template, in order of
// first appearance.
func ListPlaceholders(template string) []string {
	var keys []string
	seen := make(map[string]bool)
	for _, match := range placeholderRegex.FindAllString(template, -1) {
		name := strings.TrimSuffix(strings.TrimSpace(strings.Trim(match, "{}")), "?")
		if isIdentifier(name) && !seen[name] {
			seen[name] = true
			keys = append(keys, name)
		}
	}
	return keys
}

func replaceMatch(ctx agent.ReadonlyContext, match string) (string, error) {
	name := strings.TrimSpace(strings.Trim(match, "{}"))

	optional := false
	if strings.HasSuffix(name, "?") {
		optional = true
		name = strings.TrimSuffix(name, "?")
	}

	if !isIdentifier(name) {
		return match, nil
	}

	state := ctx.ReadonlyState()
	if state == nil {
		if optional {
			return "", nil
		}
		return "", fmt.Errorf("session state not available for {%s}", name)
	}

	value, err := state.Get(name)
	if err != nil {
		if optional {
			return "", nil
		}
		return "", fmt.Errorf("state key %q: %w", name, err)
	}
	if value == nil {
		return "", nil
	}
	return render(value), nil
}

// render prints strings verbatim and everything else as JSON.
func render(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}
	if data, err := json.Marshal(value); err == nil {
		return string(data)
	}
	return fmt.Sprintf("%v", value)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if !unicode.IsLetter(r) && r != '_' && (i == 0 || !unicode.IsDigit(r)) {
			return false
		}
	}
	return true
}
