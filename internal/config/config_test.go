// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

// =============================================================================
// LOAD TESTS
// =============================================================================

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.Server, cfg.Server)
	assert.True(t, cfg.Settings.Filtering)
	assert.False(t, cfg.Settings.Logging)
	assert.InDelta(t, 0.7, cfg.Generation.Temperature, 1e-9)
	assert.Equal(t, 200*time.Millisecond, cfg.Ticks.Interval())
	assert.Equal(t, "127.0.0.1:11434", cfg.Server.Address())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `
[server]
host = "10.0.0.2"

[generation]
model = "llama3.2"
system_prompt = "pirate"
temperature = 1.2
think = true

[settings]
filtering = false
logging = true

[ticks]
health_tick = 10

[prompts]
pirate = "Talk like a pirate."
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.2", cfg.Server.Host)
	assert.Equal(t, 11434, cfg.Server.Port, "unset fields keep defaults")
	assert.Equal(t, "llama3.2", cfg.Generation.Model)
	assert.Equal(t, "pirate", cfg.Generation.SystemPrompt)
	assert.True(t, cfg.Generation.Think)
	assert.False(t, cfg.Settings.Filtering)
	assert.True(t, cfg.Settings.Logging)
	assert.Equal(t, 10, cfg.Ticks.HealthTick)
	assert.Equal(t, 5, cfg.Ticks.InventoryTick)
	assert.Equal(t, "Talk like a pirate.", cfg.Prompts["pirate"])
}

func TestLoad_BadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[server\nhost=")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `
[server]
port = 70000

[generation]
temperature = 3.5
`)

	_, err := Load(path)
	require.Error(t, err)

	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
	fields := map[string]bool{}
	for _, e := range verrs {
		fields[e.Field] = true
	}
	assert.True(t, fields["server.port"])
	assert.True(t, fields["generation.temperature"])
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("RIGCHAT_HOST", "gpu-box")
	t.Setenv("RIGCHAT_PORT", "8080")
	t.Setenv("RIGCHAT_MODEL", "qwen3:8b")
	t.Setenv("RIGCHAT_FILTERING", "off")
	t.Setenv("RIGCHAT_LOGGING", "1")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "gpu-box", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "qwen3:8b", cfg.Generation.Model)
	assert.False(t, cfg.Settings.Filtering)
	assert.True(t, cfg.Settings.Logging)
}

func TestValidate_TickOrdering(t *testing.T) {
	cfg := Default()
	cfg.Ticks.HealthTick = cfg.Ticks.MaxTick + 1
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ticks.health_tick")
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Generation.Model = "llama3.2"
	cfg.Settings.Logging = true

	require.NoError(t, Save(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "llama3.2", loaded.Generation.Model)
	assert.True(t, loaded.Settings.Logging)
}

// =============================================================================
// PROMPT TESTS
// =============================================================================

func TestLoadPrompts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.json")
	writeFile(t, path, `{"default":"You are helpful.","coder":"Write code."}`)

	prompts, err := LoadPrompts(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"default": "You are helpful.", "coder": "Write code."}, prompts)
}

func TestLoadPrompts_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadPrompts(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	writeFile(t, bad, `["not", "an", "object"]`)
	_, err = LoadPrompts(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad formatting")
}

func TestMergePrompts_FileWins(t *testing.T) {
	got := MergePrompts(
		map[string]string{"default": "inline", "only-inline": "a"},
		map[string]string{"default": "file", "only-file": "b"},
	)
	assert.Equal(t, map[string]string{"default": "file", "only-inline": "a", "only-file": "b"}, got)
}

func TestConfig_Catalog(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Prompts = map[string]string{"default": "inline"}

	cfg.Paths.PromptsFile = filepath.Join(dir, "absent.json")
	got, err := cfg.Catalog()
	require.NoError(t, err, "a missing prompt file is fine")
	assert.Equal(t, "inline", got["default"])

	cfg.Paths.PromptsFile = filepath.Join(dir, "bad.json")
	writeFile(t, cfg.Paths.PromptsFile, "{")
	got, err = cfg.Catalog()
	assert.Error(t, err)
	assert.Equal(t, "inline", got["default"], "inline prompts stay usable")
}

// =============================================================================
// WATCHER TESTS
// =============================================================================

type reload struct {
	prompts map[string]string
	err     error
}

func TestPromptWatcher_Reloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.json")
	writeFile(t, path, `{"a":"1"}`)

	reloads := make(chan reload, 8)
	pw, err := NewPromptWatcher(path, map[string]string{"inline": "x"}, 50*time.Millisecond,
		func(p map[string]string, err error) { reloads <- reload{p, err} }, nil)
	require.NoError(t, err)
	require.NoError(t, pw.Watch())
	defer pw.Close()

	writeFile(t, path, `{"a":"2","b":"3"}`)

	select {
	case r := <-reloads:
		require.NoError(t, r.err)
		assert.Equal(t, map[string]string{"inline": "x", "a": "2", "b": "3"}, r.prompts)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}

	writeFile(t, path, `{broken`)
	deadline := time.After(5 * time.Second)
	for {
		select {
		case r := <-reloads:
			if r.err != nil {
				return
			}
		case <-deadline:
			t.Fatal("no error reload after bad write")
		}
	}
}

func TestPromptWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.json")
	writeFile(t, path, `{}`)

	reloads := make(chan reload, 8)
	pw, err := NewPromptWatcher(path, nil, 30*time.Millisecond,
		func(p map[string]string, err error) { reloads <- reload{p, err} }, nil)
	require.NoError(t, err)
	require.NoError(t, pw.Watch())
	defer pw.Close()

	writeFile(t, filepath.Join(dir, "other.json"), `{"x":"y"}`)

	select {
	case r := <-reloads:
		t.Fatalf("unexpected reload: %+v", r)
	case <-time.After(300 * time.Millisecond):
	}
}
