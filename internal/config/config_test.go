package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, 8410, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Context.MaxTurns)
	assert.Equal(t, 120, cfg.Context.TTLMinutes)
	assert.Equal(t, "mock", cfg.Generator.Provider)
	assert.Equal(t, "info", cfg.Logging.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoad_MergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
context:
  maxTurns: 5
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Context.MaxTurns)
	// Untouched fields keep defaults.
	assert.Equal(t, 120, cfg.Context.TTLMinutes)
}

func TestLoad_ExpandsAPIKeyEnvVar(t *testing.T) {
	t.Setenv("PARLEY_TEST_KEY", "sk-secret")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
generator:
  provider: openai
  apiKey: ${PARLEY_TEST_KEY}
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-secret", cfg.Generator.APIKey)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("::bad"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.IsType(t, &ConfigError{}, err)
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.Context.MaxTurns = 0
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.Generator.Provider = "openai"
	assert.Error(t, cfg.Validate(), "openai without apiKey")

	cfg.Generator.APIKey = "sk-x"
	assert.NoError(t, cfg.Validate())

	cfg = Defaults()
	cfg.Generator.Provider = "wat"
	assert.Error(t, cfg.Validate())
}

func TestResolvePaths_HomeOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PARLEY_HOME", dir)

	p, err := ResolvePaths()
	require.NoError(t, err)
	assert.Equal(t, dir, p.Base)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), p.Config)

	require.NoError(t, p.EnsureDirs())
	assert.DirExists(t, p.Data)
	assert.DirExists(t, p.Logs)
}
