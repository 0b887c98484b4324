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

// Package functiontool builds tools from typed Go functions.
//
// The argument struct's json and jsonschema tags define the schema shown to
// the model; the model's arguments are decoded into the struct with weak
// typing, so "3" fills an int field.
//
//	type GetProjectArgs struct {
//	    Name string `json:"name" jsonschema:"required,description=Project name"`
//	}
//
//	getProject, err := functiontool.New(
//	    functiontool.Config{Name: "get_project", Description: "Fetch a saved project"},
//	    func(ctx tool.Context, args GetProjectArgs) (map[string]any, error) {
//	        ...
//	    },
//	)
//
// For tools with dynamic schemas, implement tool.CallableTool directly.
package functiontool

import (
	"errors"
	"fmt"

	"github.com/kadirpekel/toddleops/pkg/tool"
)

// Config defines the configuration for a function tool.
type Config struct {
	// Name is the unique identifier for this tool (required).
	Name string

	// Description explains what the tool does (required).
	Description string
}

// New creates a CallableTool from a typed function.
func New[Args any](cfg Config, fn func(tool.Context, Args) (map[string]any, error)) (tool.CallableTool, error) {
	return NewWithValidation(cfg, fn, nil)
}

// NewWithValidation creates a CallableTool whose decoded arguments pass
// through validate before fn runs. A nil validate accepts everything.
func NewWithValidation[Args any](
	cfg Config,
	fn func(tool.Context, Args) (map[string]any, error),
	validate func(Args) error,
) (tool.CallableTool, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, fmt.Errorf("tool %s: function is required", cfg.Name)
	}

	schema, err := generateSchema[Args]()
	if err != nil {
		return nil, fmt.Errorf("failed to generate schema for %s: %w", cfg.Name, err)
	}

	return &functionTool[Args]{
		config:   cfg,
		fn:       fn,
		validate: validate,
		schema:   schema,
	}, nil
}

type functionTool[Args any] struct {
	config   Config
	fn       func(tool.Context, Args) (map[string]any, error)
	validate func(Args) error
	schema   map[string]any
}

func (t *functionTool[Args]) Name() string           { return t.config.Name }
func (t *functionTool[Args]) Description() string    { return t.config.Description }
func (t *functionTool[Args]) Schema() map[string]any { return t.schema }

// Call decodes args into Args, validates them and runs the function.
func (t *functionTool[Args]) Call(ctx tool.Context, args map[string]any) (map[string]any, error) {
	var typedArgs Args
	if err := decodeArgs(args, &typedArgs); err != nil {
		return nil, fmt.Errorf("invalid arguments for %s: %w", t.config.Name, err)
	}

	if t.validate != nil {
		if err := t.validate(typedArgs); err != nil {
			return nil, fmt.Errorf("validation failed for %s: %w", t.config.Name, err)
		}
	}

	return t.fn(ctx, typedArgs)
}

func validateConfig(cfg Config) error {
	if cfg.Name == "" {
		return errors.New("tool name is required")
	}
	if cfg.Description == "" {
		return errors.New("tool description is required")
	}
	return nil
}

var _ tool.CallableTool = (*functionTool[struct{}])(nil)
