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

package config

import "github.com/invopop/jsonschema"

// Schema returns the JSON Schema of Config.
func Schema() *jsonschema.Schema {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	schema := reflector.Reflect(&Config{})
	schema.ID = "https://github.com/kadirpekel/toddleops/schemas/config.json"
	schema.Title = "toddleops configuration"
	schema.Description = "Configuration of the toddleops craft pipeline"
	schema.Version = "http://json-schema.org/draft-07/schema#"
	schema.Examples = []any{
		map[string]any{
			"models": map[string]any{
				"gemini_api_key": "${GEMINI_API_KEY}",
				"aliases": map[string]any{
					"root": "ollama_chat/mistral-nemo:12b",
				},
			},
			"database": map[string]any{
				"driver":   "sqlite",
				"database": "toddleops.db",
			},
			"pipeline": map[string]any{
				"safety_max_iterations": 1,
			},
		},
	}
	return schema
}
