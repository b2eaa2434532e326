// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - One-shot commands: status, prompts, history, pull.
//
// Examples:
//   rigchat status                 Show server version and models
//   rigchat prompts                List system prompts
//   rigchat history --limit 5      Show the five newest archived interactions
//   rigchat pull llama3.2          Download a model

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/ollama"
	"github.com/jeranaias/rigchat/internal/storage"
	"github.com/jeranaias/rigchat/internal/util"
)

// StatusTimeout bounds the status probes.
const StatusTimeout = 5 * time.Second

// Client is the part of *ollama.Client the one-shot commands use.
type Client interface {
	BaseURL() string
	Version(ctx context.Context) (*ollama.VersionResponse, error)
	ListModels(ctx context.Context) ([]ollama.ModelInfo, error)
	Pull(ctx context.Context, model string) (*ollama.PullResponse, error)
}

// =============================================================================
// STATUS
// =============================================================================

// HandleStatus prints the server version and its installed models.
func HandleStatus(ctx context.Context, w io.Writer, client Client) error {
	ctx, cancel := context.WithTimeout(ctx, StatusTimeout)
	defer cancel()

	fmt.Fprintln(w, TitleStyle.Render("rigchat status"))
	fmt.Fprintln(w, RenderField("Server", client.BaseURL()))

	v, err := client.Version(ctx)
	if err != nil {
		fmt.Fprintln(w, RenderField("Ollama", "Offline "+RenderStatus(false)))
		return NewCommandError("status", "server unreachable, is Ollama running?", err)
	}
	version := v.Version
	if version == "" {
		version = "unknown version"
	}
	fmt.Fprintln(w, RenderField("Ollama", "Online ("+version+") "+RenderStatus(true)))

	models, err := client.ListModels(ctx)
	if err != nil {
		return NewCommandError("status", "listing models", err)
	}

	fmt.Fprintln(w, SectionStyle.Render(fmt.Sprintf("Models (%d)", len(models))))
	if len(models) == 0 {
		fmt.Fprintln(w, DimStyle.Render("  none installed, try: rigchat pull llama3.2"))
		return nil
	}
	for _, m := range models {
		fmt.Fprintf(w, "  %s %s\n", ValueStyle.Render(m.Name), DimStyle.Render(formatSize(m.Size)))
	}
	return nil
}

// formatSize renders a byte count as B, KB, MB or GB.
func formatSize(n int64) string {
	const unit = 1024
	switch {
	case n < unit:
		return fmt.Sprintf("%d B", n)
	case n < unit*unit:
		return fmt.Sprintf("%.1f KB", float64(n)/unit)
	case n < unit*unit*unit:
		return fmt.Sprintf("%.1f MB", float64(n)/(unit*unit))
	default:
		return fmt.Sprintf("%.1f GB", float64(n)/(unit*unit*unit))
	}
}

// =============================================================================
// PROMPTS
// =============================================================================

// HandlePrompts lists the system prompt catalog. A broken prompt file is
// reported after the inline prompts are listed.
func HandlePrompts(w io.Writer, cfg *config.Config) error {
	prompts, loadErr := cfg.Catalog()

	names := make([]string, 0, len(prompts))
	for name := range prompts {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, TitleStyle.Render(fmt.Sprintf("System prompts (%d)", len(names))))
	for _, name := range names {
		body := util.TruncateWidth(util.FirstLine(prompts[name]), 60)
		fmt.Fprintln(w, RenderField(name, body))
	}

	if loadErr != nil {
		return NewCommandError("prompts", "reading "+cfg.Paths.PromptsFile, loadErr)
	}
	return nil
}

// =============================================================================
// HISTORY
// =============================================================================

// HandleHistory lists the newest archived interactions.
func HandleHistory(ctx context.Context, w io.Writer, cfg *config.Config, limit int) error {
	path := cfg.Paths.ArchiveFile
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(w, DimStyle.Render("No archive at "+path+", enable [archive] in the config to record one"))
		return nil
	}

	archive, err := storage.OpenArchive(path)
	if err != nil {
		return NewCommandError("history", "opening archive", err)
	}
	defer archive.Close()

	total, err := archive.Count(ctx)
	if err != nil {
		return NewCommandError("history", "counting interactions", err)
	}
	logs, err := archive.Recent(ctx, limit)
	if err != nil {
		return NewCommandError("history", "reading interactions", err)
	}

	fmt.Fprintln(w, TitleStyle.Render(fmt.Sprintf("History (%d of %d)", len(logs), total)))
	for _, entry := range logs {
		writeHistoryEntry(w, entry)
	}
	return nil
}

func writeHistoryEntry(w io.Writer, entry storage.ArchivedLog) {
	l := entry.Log
	model := "-"
	if l.Model != nil {
		model = *l.Model
	}
	fmt.Fprintln(w, RenderSeparator(50))
	fmt.Fprintln(w, RenderField("Time", l.Time))
	fmt.Fprintln(w, RenderField("Model", model))
	fmt.Fprintln(w, RenderField("Prompt", util.TruncateWidth(util.FirstLine(l.Prompt), 60)))
	fmt.Fprintln(w, RenderField("Response", util.TruncateWidth(util.FirstLine(strings.Join(l.Response, "")), 60)))
}

// =============================================================================
// PULL
// =============================================================================

// HandlePull downloads model through the server and waits for completion.
func HandlePull(ctx context.Context, w io.Writer, client Client, model string) error {
	fmt.Fprintf(w, "Pulling %s from %s...\n", ValueStyle.Render(model), client.BaseURL())
	start := time.Now()

	resp, err := client.Pull(ctx, model)
	if err != nil {
		return NewCommandError("pull", "downloading "+model, err)
	}
	status := resp.Status
	if status == "" {
		status = "done"
	}
	fmt.Fprintf(w, "%s %s (%s)\n", RenderStatus(true), status, time.Since(start).Round(time.Second))
	return nil
}
