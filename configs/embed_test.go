package configs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/segdex/internal/config"
)

func TestProjectConfigTemplate_MatchesDefaults(t *testing.T) {
	// Given: the template written as a project file, with no user config
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, k := range []string{
		"SEGDEX_INDEX_PATH", "SEGDEX_WRITE_BUFFER_MB", "SEGDEX_MAX_RESULTS",
		"SEGDEX_LOG_LEVEL", "SEGDEX_ADDR", "SEGDEX_TRANSPORT",
	} {
		t.Setenv(k, "")
	}
	path := filepath.Join(t.TempDir(), config.ProjectFileName)
	require.NoError(t, os.WriteFile(path, []byte(ProjectConfigTemplate), 0o644))

	// When: loading it
	cfg, err := config.LoadFile(path)

	// Then: it parses, validates and equals the defaults
	require.NoError(t, err)
	assert.Equal(t, config.NewConfig(), cfg)
}
