package cmd

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/segdex/pkg/version"
)

func TestVersionCmd(t *testing.T) {
	env := newTestEnv(t)

	// Default output names the program and the build
	out := env.mustRun("version")
	assert.Contains(t, out, version.Name)
	assert.Contains(t, out, version.Version)
	assert.Contains(t, out, "commit")

	// --short prints only the version
	out = env.mustRun("version", "--short")
	assert.Equal(t, version.Version, strings.TrimSpace(out))

	// --json prints every build field
	out = env.mustRun("version", "--json")
	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info), out)
	assert.Equal(t, version.Version, info["version"])
	for _, key := range []string{"commit", "date", "go_version", "os", "arch"} {
		assert.Contains(t, info, key)
	}
}

func TestVersionCmd_RejectsArgs(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run("version", "extra")

	require.Error(t, err)
}
