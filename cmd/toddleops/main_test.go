package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/toddleops/internal/crafts"
	"github.com/kadirpekel/toddleops/pkg/config"
	"github.com/kadirpekel/toddleops/pkg/project"
	"github.com/kadirpekel/toddleops/pkg/store"
)

func testEnv(t *testing.T) *environment {
	t.Helper()
	cfg, err := config.Process(&config.Config{
		Database: config.DatabaseConfig{
			Driver:   "sqlite",
			Database: filepath.Join(t.TempDir(), "projects.db"),
		},
	})
	require.NoError(t, err)
	return &environment{cfg: cfg, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func sunProject() *project.StandardProject {
	return &project.StandardProject{
		Name:            "Paper Plate Sun",
		Description:     "Paint a paper plate yellow and add rays.",
		DurationMinutes: 20,
		Materials: project.ListMaterials(
			project.Material{Name: "paper plate", Quantity: "1"},
			project.Material{Name: "yellow paint", Quantity: "a little"},
		),
		Instructions: "1. Paint the plate.\n2. Glue on the rays.",
	}
}

func withTestStore(t *testing.T, env *environment, fn func(store.ProjectStore)) {
	t.Helper()
	require.NoError(t, withStore(t.Context(), env, func(s store.ProjectStore) error {
		fn(s)
		return nil
	}))
}

func TestResolveLogSettings(t *testing.T) {
	file := config.LoggerConfig{Level: "warn", File: "from-file.log", Format: "json"}

	t.Run("defaults", func(t *testing.T) {
		t.Setenv(LogLevelEnvVar, "")
		t.Setenv(LogFileEnvVar, "")
		t.Setenv(LogFormatEnvVar, "")

		got := resolveLogSettings("", "", "", config.LoggerConfig{})
		assert.Equal(t, logSettings{Level: "info", Format: "simple"}, got)
	})

	t.Run("config file", func(t *testing.T) {
		t.Setenv(LogLevelEnvVar, "")
		t.Setenv(LogFileEnvVar, "")
		t.Setenv(LogFormatEnvVar, "")

		got := resolveLogSettings("", "", "", file)
		assert.Equal(t, logSettings{Level: "warn", File: "from-file.log", Format: "json"}, got)
	})

	t.Run("env over file", func(t *testing.T) {
		t.Setenv(LogLevelEnvVar, "debug")
		t.Setenv(LogFileEnvVar, "")
		t.Setenv(LogFormatEnvVar, "text")

		got := resolveLogSettings("", "", "", file)
		assert.Equal(t, logSettings{Level: "debug", File: "from-file.log", Format: "text"}, got)
	})

	t.Run("flags over env", func(t *testing.T) {
		t.Setenv(LogLevelEnvVar, "debug")
		t.Setenv(LogFileEnvVar, "from-env.log")
		t.Setenv(LogFormatEnvVar, "text")

		got := resolveLogSettings("error", "from-flag.log", "simple", file)
		assert.Equal(t, logSettings{Level: "error", File: "from-flag.log", Format: "simple"}, got)
	})
}

func TestInitLogger(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")
	t.Setenv(LogFileEnvVar, "")
	t.Setenv(LogFormatEnvVar, "")

	_, _, err := initLogger("loud", "", "", config.LoggerConfig{})
	assert.ErrorContains(t, err, "invalid log level")

	_, _, err = initLogger("", "", "xml", config.LoggerConfig{})
	assert.ErrorContains(t, err, "invalid log format")

	path := filepath.Join(t.TempDir(), "toddleops.log")
	logger, cleanup, err := initLogger("debug", path, "json", config.LoggerConfig{})
	require.NoError(t, err)
	require.NotNil(t, cleanup)
	logger.Debug("hello")
	cleanup()
	assert.FileExists(t, path)
}

func TestAgentPath(t *testing.T) {
	path, err := agentPath("")
	require.NoError(t, err)
	assert.Equal(t, crafts.PathRootAgent, path)

	path, err = agentPath("SillyCraftResearcher")
	require.NoError(t, err)
	assert.Equal(t, crafts.PathSillyResearcher, path)

	_, err = agentPath("glitter_cannon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown agent "glitter_cannon"`)
	assert.Contains(t, err.Error(), "SafetyCritic")
}

func TestNewCmdRejectsUnknownAgent(t *testing.T) {
	cmd := &NewCmd{Agent: "glitter_cannon", Prompt: []string{"rain"}}
	var out bytes.Buffer
	err := cmd.run(t.Context(), testEnv(t), &out)
	require.Error(t, err)
	assert.Empty(t, out.String())
}

func TestDBList(t *testing.T) {
	env := testEnv(t)

	withTestStore(t, env, func(s store.ProjectStore) {
		var out bytes.Buffer
		require.NoError(t, (&DBListCmd{}).run(t.Context(), s, &out))
		assert.Contains(t, out.String(), "No projects saved yet.")
	})

	withTestStore(t, env, func(s store.ProjectStore) {
		_, err := s.Save(t.Context(), sunProject())
		require.NoError(t, err)
	})

	withTestStore(t, env, func(s store.ProjectStore) {
		var out bytes.Buffer
		require.NoError(t, (&DBListCmd{}).run(t.Context(), s, &out))
		text := out.String()
		for _, want := range []string{"ID", "Name", "Description", "Duration (min)", "Paper Plate Sun", "20"} {
			assert.Contains(t, text, want)
		}

		out.Reset()
		require.NoError(t, (&DBListCmd{Query: "volcano", Limit: 5}).run(t.Context(), s, &out))
		assert.Contains(t, out.String(), "No projects saved yet.")

		out.Reset()
		require.NoError(t, (&DBListCmd{Query: "plate", Limit: 5}).run(t.Context(), s, &out))
		assert.Contains(t, out.String(), "Paper Plate Sun")
	})
}

func TestDBGet(t *testing.T) {
	env := testEnv(t)

	withTestStore(t, env, func(s store.ProjectStore) {
		_, err := s.Save(t.Context(), sunProject())
		require.NoError(t, err)

		var out bytes.Buffer
		require.NoError(t, (&DBGetCmd{Name: "Paper Plate Sun"}).run(t.Context(), s, &out))
		assert.Contains(t, out.String(), "# Paper Plate Sun")
		assert.Contains(t, out.String(), "yellow paint")

		err = (&DBGetCmd{Name: "Moon"}).run(t.Context(), s, &out)
		assert.EqualError(t, err, `project "Moon" not found`)
	})
}

func TestArchetypesCmd(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, (&ArchetypesCmd{}).run(&out))
	for _, a := range crafts.Catalog() {
		assert.Contains(t, out.String(), a.Name())
	}

	out.Reset()
	require.NoError(t, (&ArchetypesCmd{Name: "SafetyRefiner"}).run(&out))
	text := out.String()
	assert.Contains(t, text, "worker")
	assert.Contains(t, text, crafts.KeyStandardProject)
	assert.Contains(t, text, crafts.ToolExitLoop)

	out.Reset()
	require.NoError(t, (&ArchetypesCmd{Name: "ToddleOpsSequence"}).run(&out))
	text = out.String()
	assert.Contains(t, text, "orchestrator")
	assert.Contains(t, text, "SEQUENTIAL")
	assert.Contains(t, text, crafts.PathCraftResearch)

	assert.Error(t, (&ArchetypesCmd{Name: "nope"}).run(&out))
}

func TestSortedCatalogPutsWorkersFirst(t *testing.T) {
	entries := sortedCatalog()
	require.NotEmpty(t, entries)

	seenOrchestrator := false
	for _, a := range entries {
		if a.Kind() == "orchestrator" {
			seenOrchestrator = true
			continue
		}
		assert.False(t, seenOrchestrator, "worker %s listed after an orchestrator", a.Name())
	}
}

func TestSchemaCmd(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, (&SchemaCmd{Compact: true}).run(&out))

	var schema map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &schema))
	assert.Equal(t, "toddleops configuration", schema["title"])
	assert.Contains(t, schema["properties"], "pipeline")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b", truncate("a\n  b", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
