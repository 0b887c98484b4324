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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kadirpekel/toddleops"
	"github.com/kadirpekel/toddleops/pkg/project"
	"github.com/kadirpekel/toddleops/pkg/store"
	"github.com/kadirpekel/toddleops/pkg/tool/mcptoolset"
)

// Project server tool names.
const (
	ToolListProjects = "list_projects"
	ToolGetProject   = "get_project"
	ToolSaveProject  = "save_project"
)

type projectSummary struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	DurationMinutes int    `json:"duration_minutes"`
}

// NewProjectServer exposes s as an MCP server with list, get and save tools.
func NewProjectServer(s store.ProjectStore) *server.MCPServer {
	srv := server.NewMCPServer("toddleops-projects", toddleops.Version)
	h := &projectHandlers{store: s}

	srv.AddTool(
		mcp.NewTool(ToolListProjects,
			mcp.WithDescription("List saved toddler projects, newest first. Optionally filter by words."),
			mcp.WithString("query", mcp.Description("Words that must all appear in the project")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of projects to return")),
		),
		h.list,
	)
	srv.AddTool(
		mcp.NewTool(ToolGetProject,
			mcp.WithDescription("Fetch a saved project by exact name as a markdown handout."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Project name")),
		),
		h.get,
	)
	srv.AddTool(
		mcp.NewTool(ToolSaveProject,
			mcp.WithDescription("Save a StandardProject. A project with the same name is replaced."),
			mcp.WithObject("project", mcp.Required(),
				mcp.Description("Project with name, description, duration_minutes, materials and instructions")),
		),
		h.save,
	)
	return srv
}

// NewProjectToolset connects an in-process client to NewProjectServer(s).
func NewProjectToolset(s store.ProjectStore, logger *slog.Logger) (*mcptoolset.Toolset, error) {
	if s == nil {
		return nil, errors.New("project store is required")
	}
	c, err := client.NewInProcessClient(NewProjectServer(s))
	if err != nil {
		return nil, fmt.Errorf("create in-process MCP client: %w", err)
	}
	return mcptoolset.New(mcptoolset.Config{
		Name:   "sqlite",
		Client: c,
		Logger: logger,
	})
}

type projectHandlers struct {
	store store.ProjectStore
}

func (h *projectHandlers) list(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 0)
	if limit < 0 {
		return mcp.NewToolResultError("limit must not be negative"), nil
	}

	var (
		records []store.Record
		err     error
	)
	if query := req.GetString("query", ""); query != "" {
		records, err = h.store.Search(ctx, query, limit)
	} else {
		records, err = h.store.List(ctx)
		// List is oldest first.
		for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
			records[i], records[j] = records[j], records[i]
		}
		if limit > 0 && len(records) > limit {
			records = records[:limit]
		}
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, err := json.Marshal(summarize(records))
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

func summarize(records []store.Record) []projectSummary {
	out := make([]projectSummary, 0, len(records))
	for _, r := range records {
		out = append(out, projectSummary{
			ID:              r.ID,
			Name:            r.Project.Name,
			Description:     r.Project.Description,
			DurationMinutes: r.Project.DurationMinutes,
		})
	}
	return out
}

func (h *projectHandlers) get(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return mcp.NewToolResultError("name is required"), nil
	}
	rec, err := h.store.GetByName(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("project %q not found", name)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(project.Markdown(rec.Project)), nil
}

func (h *projectHandlers) save(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, ok := req.GetArguments()["project"]
	if !ok {
		return mcp.NewToolResultError("project is required"), nil
	}
	p, err := project.Decode(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if p.IsOutOfScope() {
		return mcp.NewToolResultError("out of scope projects are not saved"), nil
	}
	rec, err := h.store.Save(ctx, p)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Saved project %q with id %d.", rec.Project.Name, rec.ID)), nil
}
