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
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// ValidationError reports a payload that does not satisfy the project schema.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid project: " + strings.Join(e.Problems, "; ")
}

// TypeMismatchError reports a payload that is neither a project nor a mapping.
// It signals a programming error and is never coerced away.
type TypeMismatchError struct {
	Got string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("project payload must be a StandardProject or a mapping, got %s", e.Got)
}

var requiredFields = []string{"name", "description", "duration_minutes", "materials", "instructions"}

// Normalize accepts a typed project or an untyped mapping and returns a typed
// project. A *StandardProject is returned unchanged.
func Normalize(payload any) (*StandardProject, error) {
	switch v := payload.(type) {
	case *StandardProject:
		if v == nil {
			return nil, &TypeMismatchError{Got: "nil *StandardProject"}
		}
		return v, nil
	case StandardProject:
		return &v, nil
	case map[string]any:
		return fromMap(v)
	case map[string]string:
		m := make(map[string]any, len(v))
		for k, s := range v {
			m[k] = s
		}
		return fromMap(m)
	case nil:
		return nil, &TypeMismatchError{Got: "nil"}
	default:
		return nil, &TypeMismatchError{Got: fmt.Sprintf("%T", payload)}
	}
}

// Decode is Normalize extended to JSON text, as produced by a model or read
// from session state. Markdown code fences around the JSON are ignored.
func Decode(value any) (*StandardProject, error) {
	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	case json.RawMessage:
		raw = v
	default:
		return Normalize(value)
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(stripFences(string(raw))), &m); err != nil {
		return nil, &ValidationError{Problems: []string{"payload is not a JSON object: " + err.Error()}}
	}
	return Normalize(m)
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

func fromMap(m map[string]any) (*StandardProject, error) {
	var problems []string
	for _, f := range requiredFields {
		if _, ok := m[f]; !ok {
			problems = append(problems, f+": required")
		}
	}
	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	var p StandardProject
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		Result:           &p,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			materialsHook,
			wholeNumberHook,
		),
	})
	if err != nil {
		return nil, fmt.Errorf("create project decoder: %w", err)
	}
	if err := decoder.Decode(m); err != nil {
		return nil, &ValidationError{Problems: decodeProblems(err)}
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func decodeProblems(err error) []string {
	if me, ok := err.(*mapstructure.Error); ok {
		problems := slices.Clone(me.Errors)
		slices.Sort(problems)
		return problems
	}
	return []string{err.Error()}
}

var materialsType = reflect.TypeOf(Materials{})

func materialsHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != materialsType {
		return data, nil
	}
	switch v := data.(type) {
	case nil:
		return Materials{}, nil
	case string:
		return TextMaterials(v), nil
	case []Material:
		return ListMaterials(v...), nil
	case []any, []map[string]any:
		var items []Material
		if err := mapstructure.Decode(v, &items); err != nil {
			return nil, fmt.Errorf("materials: %w", err)
		}
		return ListMaterials(items...), nil
	case Materials:
		return v, nil
	default:
		return nil, fmt.Errorf("materials: expected text or a list, got %T", data)
	}
}

// wholeNumberHook rejects fractional or out of range floats bound for an int
// field. mapstructure would otherwise truncate or overflow them silently.
func wholeNumberHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.Int {
		return data, nil
	}
	switch v := data.(type) {
	case float64:
		return data, checkWholeNumber(v)
	case float32:
		return data, checkWholeNumber(float64(v))
	}
	return data, nil
}

func checkWholeNumber(v float64) error {
	if v != math.Trunc(v) {
		return fmt.Errorf("expected a whole number, got %v", v)
	}
	if v >= float64(math.MaxInt) || v < float64(math.MinInt) {
		return fmt.Errorf("out of range: %v", v)
	}
	return nil
}
