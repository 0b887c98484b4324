package config

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/toddleops/pkg/project"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 4, cfg.Retry.Attempts)
	assert.Equal(t, 7.0, cfg.Retry.ExpBase)
	assert.Equal(t, time.Second, cfg.Retry.InitialDelay)
	assert.Equal(t, []int{429, 500, 503, 504}, cfg.Retry.HTTPStatusCodes)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, DefaultDatabaseFile, cfg.Database.Database)
	assert.Equal(t, uint(1), cfg.Pipeline.SafetyMaxIterations)
	assert.Equal(t, 0.7, cfg.Pipeline.LowTemperature)
	assert.Equal(t, 1.2, cfg.Pipeline.HighTemperature)
	assert.Equal(t, 1500, cfg.Pipeline.MaxOutputTokens)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "simple", cfg.Logger.Format)
	assert.False(t, cfg.MCP.SQLite.Enabled())
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Retry.Attempts)
}

func TestLoad_File(t *testing.T) {
	t.Setenv("TODDLEOPS_TEST_DB", "crafts.db")
	t.Setenv("TODDLEOPS_TEST_KEY", "secret")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
models:
  gemini_api_key: $TODDLEOPS_TEST_KEY
  aliases:
    root: ollama_chat/mistral-nemo:12b
retry:
  attempts: 2
  initial_delay: 500ms
  max_delay: 3
database:
  driver: sqlite
  database: ${TODDLEOPS_TEST_DB}
mcp:
  sqlite:
    command: ${TODDLEOPS_TEST_MCP:-mcp-server-sqlite}
    args: ["--db-path", "crafts.db"]
pipeline:
  safety_max_iterations: 3
  high_temperature: "1.5"
logger:
  level: debug
  format: json
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Models.GeminiAPIKey)
	assert.Equal(t, "ollama_chat/mistral-nemo:12b", cfg.Models.Aliases["root"])
	assert.Equal(t, 2, cfg.Retry.Attempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.InitialDelay)
	assert.Equal(t, 3*time.Second, cfg.Retry.MaxDelay)
	assert.Equal(t, "crafts.db", cfg.Database.Database)
	assert.Equal(t, "mcp-server-sqlite", cfg.MCP.SQLite.Command)
	assert.Equal(t, "stdio", cfg.MCP.SQLite.Transport)
	assert.Equal(t, []string{"--db-path", "crafts.db"}, cfg.MCP.SQLite.Args)
	assert.Equal(t, uint(3), cfg.Pipeline.SafetyMaxIterations)
	assert.Equal(t, 1.5, cfg.Pipeline.HighTemperature)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Format)
}

func TestLoadBytes_JSON(t *testing.T) {
	cfg, err := LoadBytes([]byte(`{"pipeline": {"max_output_tokens": 800}}`))
	require.NoError(t, err)
	assert.Equal(t, 800, cfg.Pipeline.MaxOutputTokens)
}

func TestLoadBytes_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "unknown key", data: "pipline:\n  safety_max_iterations: 2\n"},
		{name: "bad level", data: "logger:\n  level: loud\n"},
		{name: "bad driver", data: "database:\n  driver: oracle\n"},
		{name: "postgres without host", data: "database:\n  driver: postgres\n  database: crafts\n"},
		{name: "bad temperature", data: "pipeline:\n  low_temperature: 3\n"},
		{name: "bad status code", data: "retry:\n  http_status_codes: [42]\n"},
		{name: "bad transport", data: "mcp:\n  sqlite:\n    transport: carrier-pigeon\n"},
		{name: "not a mapping", data: "- a\n- b\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadBytes([]byte(tt.data))
			require.Error(t, err)
		})
	}
}

func TestExpandEnvString(t *testing.T) {
	t.Setenv("TODDLEOPS_SET", "value")

	tests := []struct {
		in   string
		want string
	}{
		{in: "plain", want: "plain"},
		{in: "${TODDLEOPS_SET}", want: "value"},
		{in: "$TODDLEOPS_SET/x", want: "value/x"},
		{in: "${TODDLEOPS_UNSET:-fallback}", want: "fallback"},
		{in: "${TODDLEOPS_SET:-fallback}", want: "value"},
		{in: "${TODDLEOPS_UNSET}", want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, expandEnvString(tt.in), tt.in)
	}
}

func TestRetryConfig_Policy(t *testing.T) {
	cfg := Default()
	p := cfg.Retry.Policy()

	assert.Equal(t, 4, p.Attempts)
	assert.True(t, p.Retryable(http.StatusTooManyRequests))
	assert.False(t, p.Retryable(http.StatusBadRequest))
	assert.NotNil(t, cfg.Retry.HTTPClient())
}

func TestModelsConfig_RouterConfig(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "google")
	t.Setenv("OLLAMA_BASE_URL", "")

	cfg := Default()
	rc := cfg.Models.RouterConfig(http.DefaultClient)

	assert.Equal(t, "google", rc.GeminiAPIKey)
	assert.Equal(t, "http://localhost:11434", rc.OllamaBaseURL)
	assert.Same(t, http.DefaultClient, rc.HTTPClient)
}

func TestPipelineConfig_GenerateConfigs(t *testing.T) {
	cfg := Default()

	low := cfg.Pipeline.LowTemperatureConfig()
	high := cfg.Pipeline.HighTemperatureConfig()
	require.NotNil(t, low.Temperature)
	require.NotNil(t, high.Temperature)
	assert.Equal(t, 0.7, *low.Temperature)
	assert.Equal(t, 1.2, *high.Temperature)
	assert.Equal(t, 1500, *low.MaxTokens)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{name: "sqlite", cfg: DatabaseConfig{Driver: "sqlite", Database: "x.db"}, want: "x.db"},
		{name: "postgres", cfg: DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, Database: "crafts", Username: "u", SSLMode: "disable"}, want: "host=db port=5432 dbname=crafts user=u sslmode=disable"},
		{name: "mysql", cfg: DatabaseConfig{Driver: "mysql", Host: "db", Port: 3306, Database: "crafts", Username: "u", Password: "p"}, want: "u:p@tcp(db:3306)/crafts?parseTime=true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.DSN())
		})
	}

	sqlite := DatabaseConfig{Driver: "sqlite3"}
	assert.Equal(t, "sqlite3", sqlite.DriverName())
	assert.Equal(t, "sqlite", sqlite.Dialect())
}

func TestDBPool_OpenStore(t *testing.T) {
	ctx := context.Background()
	pool := NewDBPool(nil)
	defer pool.Close()

	cfg := &DatabaseConfig{Driver: "sqlite", Database: filepath.Join(t.TempDir(), "crafts.db")}
	cfg.SetDefaults()

	first, err := pool.Get(ctx, cfg)
	require.NoError(t, err)
	second, err := pool.Get(ctx, cfg)
	require.NoError(t, err)
	assert.Same(t, first, second)

	st, err := pool.OpenStore(ctx, cfg)
	require.NoError(t, err)

	_, err = st.Save(ctx, &project.StandardProject{
		Name:            "Leaf Rubbing",
		Description:     "Crayon rubbings of leaves.",
		DurationMinutes: 10,
		Materials:       project.TextMaterials("leaves, crayons, paper"),
		Instructions:    "Place paper over a leaf and rub.",
	})
	require.NoError(t, err)

	require.NoError(t, pool.Close())
}

func TestSchema(t *testing.T) {
	schema := Schema()
	require.NotNil(t, schema.Properties)

	for _, key := range []string{"models", "retry", "database", "mcp", "pipeline", "logger", "observability"} {
		_, ok := schema.Properties.Get(key)
		assert.True(t, ok, key)
	}
}

func TestLoadEnvFiles(t *testing.T) {
	t.Chdir(t.TempDir())

	require.NoError(t, os.WriteFile(".env", []byte("TODDLEOPS_FROM_ENV_FILE=dotenv\n"), 0o600))
	require.NoError(t, os.WriteFile(".env.local", []byte("TODDLEOPS_FROM_ENV_FILE=local\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("TODDLEOPS_FROM_ENV_FILE") })

	require.NoError(t, LoadEnvFiles())
	assert.Equal(t, "local", os.Getenv("TODDLEOPS_FROM_ENV_FILE"))
}
