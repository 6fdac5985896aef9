package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sderrors "github.com/Aman-CERP/segdex/internal/errors"
)

// isolate points the user config at an empty directory and clears SEGDEX_*.
func isolate(t *testing.T) string {
	t.Helper()
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	for _, k := range []string{
		"SEGDEX_INDEX_PATH", "SEGDEX_WRITE_BUFFER_MB", "SEGDEX_MAX_RESULTS",
		"SEGDEX_LOG_LEVEL", "SEGDEX_ADDR", "SEGDEX_TRANSPORT",
	} {
		t.Setenv(k, "")
	}
	return xdg
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	// Given: no configuration
	cfg := NewConfig()

	// Then: defaults are applied
	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, "search_index", cfg.Index.Path)
	assert.Equal(t, 50, cfg.Index.WriteBufferMB)
	assert.Equal(t, 50*1024*1024, cfg.WriteBufferBytes())
	assert.Equal(t, 50, cfg.Search.MaxResults)
	assert.Equal(t, 256, cfg.Search.QueryCacheSize)
	assert.Equal(t, "http", cfg.Server.Transport)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, runtime.NumCPU(), cfg.Ingest.Workers)
	assert.Equal(t, 1000, cfg.Ingest.BatchSize)
	assert.Equal(t, 200*time.Millisecond, cfg.DebounceDuration())
	assert.Equal(t, []string{".json", ".jsonl"}, cfg.Watch.Extensions)

	// And: the defaults are valid
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoConfigFile_ReturnsDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, NewConfig(), cfg)
}

func TestLoad_ProjectFile_OverridesDefaults(t *testing.T) {
	// Given: a project file setting some values
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectFileName), `
index:
  path: data/idx
search:
  max_results: 10
server:
  transport: stdio
`)

	// When: loading
	cfg, err := Load(dir)
	require.NoError(t, err)

	// Then: set values override, the rest keep defaults
	assert.Equal(t, "data/idx", cfg.Index.Path)
	assert.Equal(t, 10, cfg.Search.MaxResults)
	assert.Equal(t, "stdio", cfg.Server.Transport)
	assert.Equal(t, 50, cfg.Index.WriteBufferMB)
	assert.Equal(t, 256, cfg.Search.QueryCacheSize)
}

func TestLoad_YmlExtension_IsRecognized(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".segdex.yml"), "search:\n  query_cache_size: 8\n")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Search.QueryCacheSize)
}

func TestLoad_YamlPreferredOverYml(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".segdex.yaml"), "search:\n  max_results: 5\n")
	writeFile(t, filepath.Join(dir, ".segdex.yml"), "search:\n  max_results: 7\n")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Search.MaxResults)
}

func TestLoad_InvalidYaml_ReturnsError(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectFileName), "index: [unclosed\n")

	_, err := Load(dir)

	require.Error(t, err)
	assert.True(t, sderrors.HasCode(err, sderrors.ErrCodeConfigInvalid))
}

func TestLoad_InvalidFieldType_ReturnsError(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectFileName), "search:\n  max_results: many\n")

	_, err := Load(dir)

	assert.Error(t, err)
}

func TestLoad_ValidationFailure(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{"max results above cap", "search:\n  max_results: 51\n", "search.max_results"},
		{"negative buffer", "index:\n  write_buffer_mb: -1\n", "index.write_buffer_mb"},
		{"unknown transport", "server:\n  transport: grpc\n", "server.transport"},
		{"unknown log level", "server:\n  log_level: verbose\n", "server.log_level"},
		{"bad debounce", "watch:\n  debounce: soon\n", "watch.debounce"},
		{"negative workers", "ingest:\n  workers: -2\n", "ingest.workers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, ProjectFileName), tt.yaml)

			_, err := Load(dir)

			require.Error(t, err)
			var se *sderrors.Error
			require.ErrorAs(t, err, &se)
			assert.Equal(t, sderrors.ErrCodeConfigInvalid, se.Code)
			assert.Equal(t, tt.field, se.Details["field"])
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	// Given: a project file and env vars
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectFileName), "index:\n  path: from-file\nsearch:\n  max_results: 10\n")
	t.Setenv("SEGDEX_INDEX_PATH", "from-env")
	t.Setenv("SEGDEX_WRITE_BUFFER_MB", "8")
	t.Setenv("SEGDEX_MAX_RESULTS", "25")
	t.Setenv("SEGDEX_LOG_LEVEL", "debug")
	t.Setenv("SEGDEX_ADDR", "0.0.0.0:9000")
	t.Setenv("SEGDEX_TRANSPORT", "stdio")

	// When: loading
	cfg, err := Load(dir)
	require.NoError(t, err)

	// Then: env wins
	assert.Equal(t, "from-env", cfg.Index.Path)
	assert.Equal(t, 8, cfg.Index.WriteBufferMB)
	assert.Equal(t, 25, cfg.Search.MaxResults)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	assert.Equal(t, "stdio", cfg.Server.Transport)
}

func TestLoad_EnvUnparseableNumberIgnored(t *testing.T) {
	isolate(t)
	t.Setenv("SEGDEX_MAX_RESULTS", "lots")

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Search.MaxResults)
}

func TestLoad_EnvOutOfRangeFailsValidation(t *testing.T) {
	isolate(t)
	t.Setenv("SEGDEX_MAX_RESULTS", "500")

	_, err := Load(t.TempDir())

	assert.True(t, sderrors.HasCode(err, sderrors.ErrCodeConfigInvalid))
}

func TestGetUserConfigPath_RespectsXDGConfigHome(t *testing.T) {
	xdg := isolate(t)

	assert.Equal(t, filepath.Join(xdg, "segdex", "config.yaml"), GetUserConfigPath())
	assert.Equal(t, filepath.Join(xdg, "segdex"), GetUserConfigDir())
	assert.False(t, UserConfigExists())
}

func TestLoad_Precedence(t *testing.T) {
	// Given: user config and project config disagree
	xdg := isolate(t)
	writeFile(t, filepath.Join(xdg, "segdex", "config.yaml"), `
index:
  path: user-path
search:
  query_cache_size: 32
`)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectFileName), "index:\n  path: project-path\n")

	// When: loading
	cfg, err := Load(dir)
	require.NoError(t, err)

	// Then: project beats user, user beats defaults
	assert.True(t, UserConfigExists())
	assert.Equal(t, "project-path", cfg.Index.Path)
	assert.Equal(t, 32, cfg.Search.QueryCacheSize)
}

func TestLoad_InvalidUserConfig_ReturnsError(t *testing.T) {
	xdg := isolate(t)
	writeFile(t, filepath.Join(xdg, "segdex", "config.yaml"), "::: not yaml")

	_, err := Load(t.TempDir())

	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	writeFile(t, path, "server:\n  addr: 127.0.0.1:9999\n")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", cfg.Server.Addr)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, sderrors.HasCode(err, sderrors.ErrCodeConfigNotFound))
}

func TestWriteYAML_RoundTrip(t *testing.T) {
	// Given: a modified config written to disk
	isolate(t)
	cfg := NewConfig()
	cfg.Index.Path = "written"
	cfg.Watch.Extensions = []string{".jsonl"}
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	require.NoError(t, cfg.WriteYAML(path))

	// When: loading it back
	loaded, err := LoadFile(path)
	require.NoError(t, err)

	// Then: the values survive
	assert.Equal(t, "written", loaded.Index.Path)
	assert.Equal(t, []string{".jsonl"}, loaded.Watch.Extensions)
}

func TestLoadUserConfig(t *testing.T) {
	// Given: no user config
	xdg := isolate(t)
	cfg, err := LoadUserConfig()
	require.NoError(t, err)
	assert.Nil(t, cfg)

	// When: a user file sets one value and the environment another
	writeFile(t, filepath.Join(xdg, "segdex", "config.yaml"), "search:\n  max_results: 20\n")
	t.Setenv("SEGDEX_ADDR", "0.0.0.0:1")
	cfg, err = LoadUserConfig()

	// Then: only the file is applied over the defaults
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, 20, cfg.Search.MaxResults)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
}
