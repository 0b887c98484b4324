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

package crafts

import (
	"errors"
	"fmt"

	"github.com/kadirpekel/toddleops/pkg/store"
	"github.com/kadirpekel/toddleops/pkg/tool"
	"github.com/kadirpekel/toddleops/pkg/tool/functiontool"
)

// ToolFindProjectsName is the name the model sees.
const ToolFindProjectsName = "find_projects"

const defaultFindLimit = 5

type findProjectsArgs struct {
	Query string `json:"query" jsonschema:"required,description=Words every matching project must mention"`
	Limit int    `json:"limit,omitempty" jsonschema:"minimum=1,maximum=50,description=Maximum number of projects (default 5)"`
}

// NewFindProjectsTool returns a tool that searches saved projects, so an
// agent can avoid suggesting something the caregiver already has.
func NewFindProjectsTool(s store.ProjectStore) (tool.CallableTool, error) {
	if s == nil {
		return nil, errors.New("project store is required")
	}
	return functiontool.NewWithValidation(
		functiontool.Config{
			Name:        ToolFindProjectsName,
			Description: "Search saved toddler projects by keyword.",
		},
		func(ctx tool.Context, args findProjectsArgs) (map[string]any, error) {
			limit := args.Limit
			if limit == 0 {
				limit = defaultFindLimit
			}
			records, err := s.Search(ctx, args.Query, limit)
			if err != nil {
				return nil, fmt.Errorf("search projects: %w", err)
			}
			return map[string]any{"projects": summarize(records)}, nil
		},
		func(args findProjectsArgs) error {
			if args.Limit < 0 || args.Limit > 50 {
				return fmt.Errorf("limit must be between 1 and 50, got %d", args.Limit)
			}
			return nil
		},
	)
}
