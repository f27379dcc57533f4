package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPaths(t *testing.T) Paths {
	t.Helper()
	dir := t.TempDir()
	return Paths{
		Global:  filepath.Join(dir, "global", fileName),
		Project: filepath.Join(dir, "project", fileName),
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := LoadFrom(testPaths(t))
	require.NoError(t, err)

	assert.Equal(t, "zh", cfg.Language)
	assert.True(t, cfg.GraphUpdates)
	assert.Equal(t, 5*time.Minute, cfg.Timeout)
	assert.Equal(t, cfg.Model, cfg.GraphModel)
	assert.Equal(t, filepath.Join(cfg.DataDir, "nextstep.db"), cfg.DBPath)
	assert.Equal(t, filepath.Join(cfg.DataDir, "events"), cfg.EventsDir())
	assert.NoError(t, cfg.Validate())
}

func TestPrecedence(t *testing.T) {
	p := testPaths(t)

	require.NoError(t, Write(p.Global, &Config{
		BaseURL: "http://global", Model: "global-model", Language: "en",
		DataDir: "/tmp/global", LogLevel: "info", Temperature: 0.2, Timeout: time.Minute,
	}))
	cfg, err := LoadFrom(p)
	require.NoError(t, err)
	assert.Equal(t, "global-model", cfg.Model)
	assert.Equal(t, "en", cfg.Language)
	assert.Equal(t, time.Minute, cfg.Timeout)
	assert.False(t, cfg.GraphUpdates, "file value wins over default")

	require.NoError(t, os.MkdirAll(filepath.Dir(p.Project), 0o755))
	require.NoError(t, os.WriteFile(p.Project, []byte("model: project-model\ngraph_updates: true\n"), 0o644))
	cfg, err = LoadFrom(p)
	require.NoError(t, err)
	assert.Equal(t, "project-model", cfg.Model)
	assert.Equal(t, "http://global", cfg.BaseURL, "keys absent from project file fall through")
	assert.True(t, cfg.GraphUpdates)

	t.Setenv("NEXTSTEP_MODEL", "env-model")
	t.Setenv("NEXTSTEP_GRAPH_UPDATES", "false")
	t.Setenv("NEXTSTEP_TIMEOUT", "90s")
	cfg, err = LoadFrom(p)
	require.NoError(t, err)
	assert.Equal(t, "env-model", cfg.Model)
	assert.False(t, cfg.GraphUpdates)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
}

func TestLoadFromBrokenFile(t *testing.T) {
	p := testPaths(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(p.Global), 0o755))
	require.NoError(t, os.WriteFile(p.Global, []byte("model: [unterminated"), 0o644))

	_, err := LoadFrom(p)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{BaseURL: "http://x", Model: "m", Language: "fr", Temperature: 3}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported language")
	assert.Contains(t, err.Error(), "temperature")

	cfg = &Config{Language: "en"}
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_url")
	assert.Contains(t, err.Error(), "model")
}

func TestWriteGlobalUsesXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	require.NoError(t, WriteGlobal(&Config{Model: "m", Language: "en"}))
	_, err := os.Stat(filepath.Join(dir, "nextstep", fileName))
	assert.NoError(t, err)

	cfg, err := LoadFrom(Paths{Global: GlobalPath()})
	require.NoError(t, err)
	assert.Equal(t, "m", cfg.Model)
}
