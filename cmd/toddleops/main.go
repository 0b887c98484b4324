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

// Command toddleops generates toddler craft projects with a team of agents.
//
// Usage:
//
//	toddleops new "a rainy day project with paper"
//	toddleops new --save --agent SillyCraftResearcher "dinosaurs"
//	toddleops db list
//	toddleops archetypes SafetyRefinementLoop
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/kadirpekel/toddleops"
	"github.com/kadirpekel/toddleops/pkg/config"
	"github.com/kadirpekel/toddleops/pkg/observability"
)

// CLI defines the command-line interface.
type CLI struct {
	New        NewCmd        `cmd:"" help:"Generate a toddler craft project."`
	DB         DBCmd         `cmd:"" name:"db" help:"Inspect saved projects."`
	Archetypes ArchetypesCmd `cmd:"" help:"Describe the agent catalog."`
	Config     ConfigCmd     `cmd:"" help:"Configuration helpers."`
	Version    VersionCmd    `cmd:"" help:"Show version information."`

	ConfigFile string `name:"config" short:"c" help:"Path to config file." type:"path" default:"toddleops.yaml"`
	LogLevel   string `help:"Log level (debug, info, warn, error)."`
	LogFile    string `help:"Log file path (empty = stderr)."`
	LogFormat  string `help:"Log format (simple, text, json)."`
}

// environment is what every command receives after startup.
type environment struct {
	cfg    *config.Config
	logger *slog.Logger
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(toddleops.GetVersion())
	return nil
}

func main() {
	if err := config.LoadEnvFiles(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load env files: %v\n", err)
	}

	cli := CLI{}
	kctx := kong.Parse(&cli,
		kong.Name("toddleops"),
		kong.Description("Toddler craft projects, researched, checked and formatted by agents."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load(cli.ConfigFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, cleanup, err := initLogger(cli.LogLevel, cli.LogFile, cli.LogFormat, cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	obs := observability.NewManager(cfg.Observability)
	if err := obs.Initialize(ctx); err != nil {
		logger.Warn("Observability disabled", "error", err)
		obs = nil
	}

	kctx.BindTo(ctx, (*context.Context)(nil))
	err = kctx.Run(&cli, &environment{cfg: cfg, logger: logger})

	if obs != nil {
		flushObservability(obs, logger)
	}
	kctx.FatalIfErrorf(err)
}

func flushObservability(obs *observability.Manager, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := obs.Push(ctx); err != nil {
		logger.Warn("Failed to push metrics", "error", err)
	}
	if err := obs.Shutdown(ctx); err != nil {
		logger.Warn("Failed to shut down observability", "error", err)
	}
}
