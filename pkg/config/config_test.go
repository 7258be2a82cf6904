package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoadSystemConfig(t *testing.T) {
	t.Run("missing file falls back to defaults", func(t *testing.T) {
		cfg := LoadSystemConfig(filepath.Join(t.TempDir(), "nope.json"))
		assert.Equal(t, DefaultSystemConfig(), cfg)
	})

	t.Run("corrupt file falls back to defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "system.json")
		writeFile(t, path, "{not json")
		cfg := LoadSystemConfig(path)
		assert.Equal(t, 20, cfg.MaxSteps)
	})

	t.Run("partial file keeps defaults for omitted fields", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "system.json")
		writeFile(t, path, `{"max_retries":5,"log_level":"debug"}`)
		cfg := LoadSystemConfig(path)
		assert.Equal(t, 5, cfg.MaxRetries)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, 20, cfg.MaxSteps)
		assert.True(t, cfg.EnableTools)
	})

	t.Run("out-of-range step budget is clamped", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "system.json")
		for _, raw := range []string{`{"max_steps":0}`, `{"max_steps":-3}`, `{"max_steps":500}`} {
			writeFile(t, path, raw)
			cfg := LoadSystemConfig(path)
			assert.Equal(t, 20, cfg.MaxSteps, raw)
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("missing config.json", func(t *testing.T) {
		t.Chdir(t.TempDir())
		_, _, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("valid config", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)
		writeFile(t, filepath.Join(dir, "config.json"),
			`{"llm":[{"type":"ollama","models":["llama3.2"]}],"channels":{"web":{"port":9000}}}`)
		writeFile(t, filepath.Join(dir, "system.json"), `{"max_steps":10}`)

		cfg, sysCfg, err := Load()
		require.NoError(t, err)
		assert.NotEmpty(t, cfg.LLM)
		assert.Contains(t, cfg.Channels, "web")
		assert.Equal(t, 10, sysCfg.MaxSteps)
	})

	t.Run("llm section is mandatory", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)
		writeFile(t, filepath.Join(dir, "config.json"), `{"channels":{}}`)

		_, _, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "'llm'")
	})
}
