// rigchat - a streaming terminal chat client for a local Ollama server.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/rigchat/internal/cli"
	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/generation"
	"github.com/jeranaias/rigchat/internal/logging"
	"github.com/jeranaias/rigchat/internal/notify"
	"github.com/jeranaias/rigchat/internal/ollama"
	"github.com/jeranaias/rigchat/internal/poll"
	"github.com/jeranaias/rigchat/internal/render"
	"github.com/jeranaias/rigchat/internal/session"
	"github.com/jeranaias/rigchat/internal/storage"
	"github.com/jeranaias/rigchat/internal/ui/chat"
	"github.com/jeranaias/rigchat/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// promptDebounce coalesces editor save bursts on the prompt file.
const promptDebounce = 250 * time.Millisecond

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	os.Exit(run())
}

func run() int {
	cmd, args, err := cli.Parse()
	if err != nil {
		cli.DisplayError(os.Stderr, err)
		fmt.Fprintln(os.Stderr, "Run 'rigchat help' for usage.")
		return cli.ExitCode(err)
	}

	switch cmd {
	case cli.CmdHelp:
		cli.PrintUsage(os.Stdout)
		return cli.ExitSuccess
	case cli.CmdVersion:
		cli.PrintVersion(os.Stdout)
		return cli.ExitSuccess
	}

	cfg, err := config.Load(args.ConfigPath)
	if err != nil {
		cli.DisplayError(os.Stderr, err)
		return cli.ExitCode(err)
	}
	cli.ApplyOverrides(cfg, args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := ollama.NewClientWithConfig(&ollama.ClientConfig{Host: cfg.Server.Host, Port: cfg.Server.Port})

	switch cmd {
	case cli.CmdStatus:
		err = cli.HandleStatus(ctx, os.Stdout, client)
	case cli.CmdPrompts:
		err = cli.HandlePrompts(os.Stdout, cfg)
	case cli.CmdHistory:
		err = cli.HandleHistory(ctx, os.Stdout, cfg, args.Limit)
	case cli.CmdPull:
		err = cli.HandlePull(ctx, os.Stdout, client, args.PullModel)
	default:
		err = runTUI(ctx, cfg, client)
	}
	if err != nil {
		cli.DisplayError(os.Stderr, err)
		return cli.ExitCode(err)
	}
	return cli.ExitSuccess
}

// runTUI wires the session and starts the chat screen.
func runTUI(ctx context.Context, cfg *config.Config, client *ollama.Client) error {
	log, logErr := logging.NewOrNop(cfg.Paths.LogFile, cfg.Settings.Debug)
	defer log.Sync()
	log.Info("starting", zap.String("version", Version), zap.String("server", client.BaseURL()))

	// Startup problems are collected into the first status message
	var startup []string
	if logErr != nil {
		startup = append(startup, "Logging disabled: "+logErr.Error())
	}

	history := storage.NewHistoryStore(cfg.Paths.HistoryFile, Version, cfg.Settings.Filtering)
	if err := history.Init(); err != nil {
		log.Error("history init failed", zap.Error(err))
		startup = append(startup, "Failed to write to "+cfg.Paths.HistoryFile)
	}

	prompts, err := cfg.Catalog()
	if err != nil {
		log.Warn("prompt file unreadable", zap.Error(err))
		startup = append(startup, "Failed to load prompts: "+err.Error())
	}

	var archive *storage.Archive
	if cfg.Archive.Enabled {
		archive, err = storage.OpenArchive(cfg.Paths.ArchiveFile)
		if err != nil {
			log.Error("archive open failed", zap.Error(err))
			startup = append(startup, "Archive disabled: "+err.Error())
			archive = nil
		} else {
			defer archive.Close()
			log.Info("archive opened", zap.String("session", archive.SessionID()))
		}
	}

	debug := notify.DebugMessage{Message: "Ready"}
	if len(startup) > 0 {
		debug = notify.DebugMessage{Message: strings.Join(startup, "; "), IsError: true}
	}

	state := session.NewState(session.Options{
		Model:        cfg.Generation.Model,
		SystemPrompt: cfg.Generation.SystemPrompt,
		Params:       session.Params{Temperature: cfg.Generation.Temperature, Think: cfg.Generation.Think},
		Filtering:    cfg.Settings.Filtering,
		Logging:      cfg.Settings.Logging,
		UseContext:   cfg.Generation.Context,
		Prompts:      prompts,
		Debug:        debug,
	})

	channels := notify.NewChannels(log)
	slot := notify.NewSlot[render.Document]()

	theme := styles.NewThemeFor(cfg.Settings.DarkMode)
	var styler render.Styler = render.PlainStyler{}
	if glam, err := render.NewGlamourStyler(cfg.Settings.DarkMode, cli.GetTerminalWidth()-4); err != nil {
		log.Warn("glamour unavailable, rendering plain text", zap.Error(err))
	} else {
		styler = glam
	}

	orchestrator := generation.New(ctx, generation.Deps{
		Streamer: client,
		State:    state,
		Channels: channels,
		Slot:     slot,
		Styler:   styler,
		Logger:   log.Named("generation"),
	})

	deps := poll.Deps{
		Prober:   client,
		State:    state,
		Channels: channels,
		Slot:     slot,
		History:  history,
		Schedule: poll.Schedule{
			InventoryTick: cfg.Ticks.InventoryTick,
			HealthTick:    cfg.Ticks.HealthTick,
			MaxTick:       cfg.Ticks.MaxTick,
		},
		Logger: log.Named("poll"),
	}
	if archive != nil {
		deps.Archive = archive
	}
	driver := poll.New(ctx, deps)
	driver.ProbeNow()

	watcher, err := config.NewPromptWatcher(cfg.Paths.PromptsFile, cfg.Prompts, promptDebounce,
		func(p map[string]string, err error) {
			channels.SendCatalog(notify.CatalogUpdate{Prompts: p, Err: err})
		}, log.Named("prompts"))
	if err == nil {
		err = watcher.Watch()
	}
	if err != nil {
		log.Warn("prompt watcher unavailable", zap.Error(err))
	} else {
		defer watcher.Close()
	}

	m := chat.New(chat.Deps{
		State:     state,
		Submitter: orchestrator,
		Driver:    driver,
		Client:    client,
		Theme:     theme,
		Interval:  cfg.Ticks.Interval(),
		Logger:    log.Named("ui"),
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, runErr := p.Run()

	// Let in-flight work settle before the deferred closes run
	driver.Wait()
	log.Info("stopped")

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("error running rigchat: %w", runErr)
	}
	return nil
}
