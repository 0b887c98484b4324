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
	"sync"

	"github.com/invopop/jsonschema"
)

// JSONSchema describes Materials as text or a list of Material objects.
func (Materials) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Description: "Required materials, free text or a list",
		AnyOf: []*jsonschema.Schema{
			{Type: "string"},
			{Type: "array", Items: materialItemSchema()},
		},
	}
}

func materialItemSchema() *jsonschema.Schema {
	props := jsonschema.NewProperties()
	props.Set("name", &jsonschema.Schema{Type: "string", Description: "Material name"})
	props.Set("quantity", &jsonschema.Schema{Type: "string", Description: "Optional amount"})
	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   []string{"name"},
	}
}

var (
	schemaOnce sync.Once
	schemaMap  map[string]any
)

// Schema returns the JSON schema of StandardProject as a map, suitable for a
// model's structured output configuration. Callers must not mutate it.
func Schema() map[string]any {
	schemaOnce.Do(func() {
		reflector := &jsonschema.Reflector{
			RequiredFromJSONSchemaTags: true,
			ExpandedStruct:             true,
			DoNotReference:             true,
		}
		schema := reflector.Reflect(&StandardProject{})
		schema.Version = ""
		data, err := json.Marshal(schema)
		if err != nil {
			panic(err)
		}
		if err := json.Unmarshal(data, &schemaMap); err != nil {
			panic(err)
		}
	})
	return schemaMap
}
