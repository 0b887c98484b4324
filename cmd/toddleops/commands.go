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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/kadirpekel/toddleops/internal/crafts"
	"github.com/kadirpekel/toddleops/pkg/archetype"
	"github.com/kadirpekel/toddleops/pkg/config"
	"github.com/kadirpekel/toddleops/pkg/project"
	"github.com/kadirpekel/toddleops/pkg/store"
)

// NewCmd runs the craft pipeline, or a single agent of the catalog.
type NewCmd struct {
	Prompt []string `arg:"" optional:"" help:"What the project should be about."`
	Save   bool     `help:"Save the finished project to the database."`
	Agent  string   `short:"a" help:"Catalog agent to run instead of the root agent."`
}

func (c *NewCmd) Run(ctx context.Context, env *environment) error {
	return c.run(ctx, env, os.Stdout)
}

func (c *NewCmd) run(ctx context.Context, env *environment, w io.Writer, opts ...crafts.AppOption) error {
	path, err := agentPath(c.Agent)
	if err != nil {
		return err
	}

	app, err := crafts.NewApp(ctx, env.cfg, env.logger, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			env.logger.Warn("Failed to close app", "error", cerr)
		}
	}()

	result, err := app.Run(ctx, strings.Join(c.Prompt, " "), crafts.RunOptions{
		AgentPath: path,
		Save:      c.Save,
	})
	if err != nil {
		return err
	}

	if result.Project != nil && result.Project.IsOutOfScope() {
		fmt.Fprintln(w, dimStyle.Render("That request is not something a toddler craft project can help with."))
		return nil
	}
	if result.HumanProject == "" {
		fmt.Fprintln(w, dimStyle.Render("The agent finished without producing a project."))
		return nil
	}

	fmt.Fprintln(w, result.HumanProject)
	if c.Save && result.Project != nil {
		fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("Saved %q.", result.Project.Name)))
	}
	return nil
}

// agentPath maps a catalog name to its dotted path. Empty selects the root.
func agentPath(name string) (string, error) {
	if name == "" {
		return crafts.PathRootAgent, nil
	}
	path, ok := crafts.Path(name)
	if !ok {
		return "", fmt.Errorf("unknown agent %q (available: %s)", name, strings.Join(catalogNames(), ", "))
	}
	return path, nil
}

func catalogNames() []string {
	var names []string
	for _, a := range crafts.Catalog() {
		names = append(names, a.Name())
	}
	slices.Sort(names)
	return names
}

// DBCmd groups the project database commands.
type DBCmd struct {
	List DBListCmd `cmd:"" help:"List saved projects."`
	Get  DBGetCmd  `cmd:"" help:"Show a saved project."`
}

// DBListCmd lists saved projects.
type DBListCmd struct {
	Query string `short:"q" help:"Only projects mentioning every word of the query."`
	Limit int    `short:"n" help:"Maximum number of projects when searching." default:"20"`
}

func (c *DBListCmd) Run(ctx context.Context, env *environment) error {
	return withStore(ctx, env, func(s store.ProjectStore) error {
		return c.run(ctx, s, os.Stdout)
	})
}

func (c *DBListCmd) run(ctx context.Context, s store.ProjectStore, w io.Writer) error {
	var (
		records []store.Record
		err     error
	)
	if c.Query != "" {
		records, err = s.Search(ctx, c.Query, c.Limit)
	} else {
		records, err = s.List(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}
	fmt.Fprintln(w, renderProjects(records))
	return nil
}

// DBGetCmd prints one saved project as markdown.
type DBGetCmd struct {
	Name string `arg:"" help:"Project name."`
}

func (c *DBGetCmd) Run(ctx context.Context, env *environment) error {
	return withStore(ctx, env, func(s store.ProjectStore) error {
		return c.run(ctx, s, os.Stdout)
	})
}

func (c *DBGetCmd) run(ctx context.Context, s store.ProjectStore, w io.Writer) error {
	rec, err := s.GetByName(ctx, c.Name)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("project %q not found", c.Name)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(w, project.Markdown(rec.Project))
	return nil
}

func withStore(ctx context.Context, env *environment, fn func(store.ProjectStore) error) error {
	pool := config.NewDBPool(env.logger)
	defer func() {
		if err := pool.Close(); err != nil {
			env.logger.Warn("Failed to close database", "error", err)
		}
	}()

	s, err := pool.OpenStore(ctx, &env.cfg.Database)
	if err != nil {
		return err
	}
	return fn(s)
}

// ArchetypesCmd describes the catalog.
type ArchetypesCmd struct {
	Name string `arg:"" optional:"" help:"Archetype to describe."`
}

func (c *ArchetypesCmd) Run() error {
	return c.run(os.Stdout)
}

func (c *ArchetypesCmd) run(w io.Writer) error {
	if c.Name == "" {
		fmt.Fprintln(w, renderCatalog(sortedCatalog()))
		return nil
	}
	a, ok := crafts.Lookup(c.Name)
	if !ok {
		return fmt.Errorf("unknown archetype %q", c.Name)
	}
	fmt.Fprint(w, renderArchetype(a))
	return nil
}

func sortedCatalog() []archetype.Archetype {
	entries := crafts.Catalog()
	slices.SortStableFunc(entries, func(a, b archetype.Archetype) int {
		if a.Kind() != b.Kind() {
			// Workers first.
			if a.Kind() == archetype.KindWorker {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Name(), b.Name())
	})
	return entries
}

// ConfigCmd groups configuration helpers.
type ConfigCmd struct {
	Schema SchemaCmd `cmd:"" help:"Print the JSON Schema of the config file."`
}

// SchemaCmd prints the configuration JSON Schema to stdout.
type SchemaCmd struct {
	Compact bool `help:"Compact JSON output (no indentation)."`
}

func (c *SchemaCmd) Run() error {
	return c.run(os.Stdout)
}

func (c *SchemaCmd) run(w io.Writer) error {
	encoder := json.NewEncoder(w)
	if !c.Compact {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(config.Schema()); err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	return nil
}
