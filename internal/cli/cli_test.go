// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/ollama"
	"github.com/jeranaias/rigchat/internal/storage"
)

// =============================================================================
// PARSE TESTS
// =============================================================================

func TestParseArgs_Commands(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Command
	}{
		{"default is tui", nil, CmdTUI},
		{"explicit tui", []string{"tui"}, CmdTUI},
		{"status", []string{"status"}, CmdStatus},
		{"status alias", []string{"s"}, CmdStatus},
		{"prompts", []string{"prompts"}, CmdPrompts},
		{"history", []string{"history"}, CmdHistory},
		{"pull", []string{"pull", "llama3.2"}, CmdPull},
		{"version", []string{"version"}, CmdVersion},
		{"version flag", []string{"--version"}, CmdVersion},
		{"help", []string{"help"}, CmdHelp},
		{"case insensitive", []string{"STATUS"}, CmdStatus},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cmd, _, err := ParseArgs(tc.args)
			require.NoError(t, err)
			assert.Equal(t, tc.want, cmd)
		})
	}
}

func TestParseArgs_GlobalFlagsAnywhere(t *testing.T) {
	cmd, args, err := ParseArgs([]string{"--host", "gpu-box", "status", "--port=8080", "--model", "qwen3", "--config=/tmp/c.toml"})
	require.NoError(t, err)
	assert.Equal(t, CmdStatus, cmd)
	assert.Equal(t, "gpu-box", args.Host)
	assert.Equal(t, 8080, args.Port)
	assert.Equal(t, "qwen3", args.Model)
	assert.Equal(t, "/tmp/c.toml", args.ConfigPath)
}

func TestParseArgs_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown command", []string{"frobnicate"}},
		{"missing flag value", []string{"--host"}},
		{"bad port", []string{"--port", "http"}},
		{"port out of range", []string{"--port=70000"}},
		{"pull without model", []string{"pull"}},
		{"bad limit", []string{"history", "--limit", "0"}},
		{"stray history arg", []string{"history", "extra"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ParseArgs(tc.args)
			require.Error(t, err)
			var verr *ValidationError
			assert.True(t, errors.As(err, &verr))
			assert.Equal(t, ExitUsageError, ExitCode(err))
		})
	}
}

func TestParseArgs_History(t *testing.T) {
	_, args, err := ParseArgs([]string{"history"})
	require.NoError(t, err)
	assert.Equal(t, DefaultHistoryLimit, args.Limit)

	_, args, err = ParseArgs([]string{"history", "--limit", "5"})
	require.NoError(t, err)
	assert.Equal(t, 5, args.Limit)

	_, args, err = ParseArgs([]string{"history", "--limit=7"})
	require.NoError(t, err)
	assert.Equal(t, 7, args.Limit)
}

func TestParseArgs_Pull(t *testing.T) {
	_, args, err := ParseArgs([]string{"pull", "llama3.2"})
	require.NoError(t, err)
	assert.Equal(t, "llama3.2", args.PullModel)
}

func TestApplyOverrides(t *testing.T) {
	cfg := config.Default()
	ApplyOverrides(cfg, Args{Model: "m", Host: "h", Port: 9000})
	assert.Equal(t, "m", cfg.Generation.Model)
	assert.Equal(t, "h", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)

	cfg = config.Default()
	ApplyOverrides(cfg, Args{})
	assert.Equal(t, config.Default().Server, cfg.Server, "empty flags change nothing")
}

func TestColorDecision(t *testing.T) {
	assert.False(t, colorDecision("1", "1", true), "NO_COLOR wins")
	assert.True(t, colorDecision("", "1", false), "FORCE_COLOR overrides the TTY check")
	assert.True(t, colorDecision("", "", true))
	assert.False(t, colorDecision("", "", false))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCode(nil))
	assert.Equal(t, ExitNetworkError, ExitCode(NewCommandError("status", "down", ollama.ErrNotRunning)))
	assert.Equal(t, ExitTimeoutError, ExitCode(ollama.ErrTimeout))
	assert.Equal(t, ExitNotFoundError, ExitCode(ollama.ErrModelNotFound))
	assert.Equal(t, ExitConfigError, ExitCode(config.ValidateErrors{{Field: "server.port", Message: "bad"}}))
	assert.Equal(t, ExitGeneralError, ExitCode(errors.New("boom")))
}

func TestPrintUsageAndVersion(t *testing.T) {
	var buf bytes.Buffer
	PrintUsage(&buf)
	assert.Contains(t, buf.String(), "rigchat history [--limit N]")

	buf.Reset()
	PrintVersion(&buf)
	assert.Contains(t, buf.String(), "rigchat "+Version)
}

// =============================================================================
// COMMAND TESTS
// =============================================================================

func newTestClient(t *testing.T, handler http.Handler) *ollama.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return ollama.NewClientWithConfig(&ollama.ClientConfig{Host: u.Hostname(), Port: port, Timeout: 2 * time.Second})
}

func TestHandleStatus(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/version":
			w.Write([]byte(`{"version":"0.5.7"}`))
		case "/api/tags":
			w.Write([]byte(`{"models":[{"name":"llama3.2:latest","size":2019393189}]}`))
		default:
			http.NotFound(w, r)
		}
	}))

	var buf bytes.Buffer
	require.NoError(t, HandleStatus(context.Background(), &buf, client))
	out := buf.String()
	assert.Contains(t, out, "Online (0.5.7)")
	assert.Contains(t, out, "llama3.2:latest")
	assert.Contains(t, out, "1.9 GB")
}

func TestHandleStatus_Offline(t *testing.T) {
	client := ollama.NewClientWithConfig(&ollama.ClientConfig{Host: "127.0.0.1", Port: 1, Timeout: time.Second})

	var buf bytes.Buffer
	err := HandleStatus(context.Background(), &buf, client)
	require.Error(t, err)
	assert.Contains(t, buf.String(), "Offline")
	assert.Equal(t, ExitNetworkError, ExitCode(err))
}

func TestHandlePull(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/pull", r.URL.Path)
		w.Write([]byte(`{"status":"success"}`))
	}))

	var buf bytes.Buffer
	require.NoError(t, HandlePull(context.Background(), &buf, client, "llama3.2"))
	assert.Contains(t, buf.String(), "success")
}

func TestHandlePrompts(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.PromptsFile = filepath.Join(t.TempDir(), "absent.json")
	cfg.Prompts = map[string]string{"b": "second", "a": "first"}

	var buf bytes.Buffer
	require.NoError(t, HandlePrompts(&buf, cfg))
	out := buf.String()
	assert.Contains(t, out, "System prompts (2)")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("first")), bytes.Index(buf.Bytes(), []byte("second")), "sorted by name")
}

func TestHandleHistory(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.ArchiveFile = filepath.Join(t.TempDir(), "archive.db")

	var buf bytes.Buffer
	require.NoError(t, HandleHistory(context.Background(), &buf, cfg, 10))
	assert.Contains(t, buf.String(), "No archive")

	archive, err := storage.OpenArchive(cfg.Paths.ArchiveFile)
	require.NoError(t, err)
	model := "demo-model"
	for _, p := range []string{"first", "second", "third"} {
		require.NoError(t, archive.Record(context.Background(), storage.NewLog(true, &model, []string{"re: ", p}, nil, p)))
	}
	require.NoError(t, archive.Close())

	buf.Reset()
	require.NoError(t, HandleHistory(context.Background(), &buf, cfg, 2))
	out := buf.String()
	assert.Contains(t, out, "History (2 of 3)")
	assert.Contains(t, out, "re: third")
	assert.NotContains(t, out, "re: first")
}
