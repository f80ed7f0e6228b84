package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Help(t *testing.T) {
	output, err := executeCommand(t, "--help")
	require.NoError(t, err)
	for _, sub := range []string{"serve", "extract", "import", "show-run", "migrate", "prompts"} {
		assert.Contains(t, output, sub)
	}
}

func TestPromptsCommand(t *testing.T) {
	output, err := executeCommand(t, "prompts")
	require.NoError(t, err)
	assert.Contains(t, output, "* asset_extraction_step2.txt")
	assert.Contains(t, output, "sha256:")
	assert.Contains(t, output, "mock")
	assert.Contains(t, output, "gpt")
}

func TestPromptsCommand_OverrideDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.txt"), []byte("find props"), 0o644))
	t.Setenv("SCRIPT_AGENT_PROMPT_DIR", dir)
	t.Setenv("SCRIPT_AGENT_PROMPT_NAME", "custom.txt")

	output, err := executeCommand(t, "prompts")
	require.NoError(t, err)
	assert.Contains(t, output, "* custom.txt")
	assert.Contains(t, output, "  asset_extraction_step2.txt")
}

func TestCommands_RequireDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SCRIPT_AGENT_DATABASE_URL", "")

	_, err := executeCommand(t, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestConfigFlag_InvalidFile(t *testing.T) {
	_, err := executeCommand(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "prompts")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestLogLevelFlag_Invalid(t *testing.T) {
	_, err := executeCommand(t, "--log-level", "loud", "prompts")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestShowRun_RequiresArg(t *testing.T) {
	_, err := executeCommand(t, "show-run")
	assert.Error(t, err)
}
