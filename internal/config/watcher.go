// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// =============================================================================
// PROMPT FILE WATCHER
// =============================================================================

// CatalogSink receives each reload of the prompt catalog. err is set when the
// file could not be read or parsed.
type CatalogSink func(prompts map[string]string, err error)

// PromptWatcher reloads the prompt file when it changes.
//
// The containing directory is watched so editors that replace the file by
// rename are picked up. Bursts of events are collapsed into one reload after
// the debounce period.
type PromptWatcher struct {
	path     string
	inline   map[string]string
	sink     CatalogSink
	debounce time.Duration
	log      *zap.Logger

	watcher *fsnotify.Watcher
	mu      sync.Mutex
	pending time.Time
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewPromptWatcher creates a watcher for path. inline is merged under the
// file contents on every reload.
func NewPromptWatcher(path string, inline map[string]string, debounce time.Duration, sink CatalogSink, log *zap.Logger) (*PromptWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}
	if log == nil {
		log = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &PromptWatcher{
		path:     filepath.Clean(path),
		inline:   inline,
		sink:     sink,
		debounce: debounce,
		log:      log,
		watcher:  watcher,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Watch starts watching. The prompt file's directory must exist.
func (pw *PromptWatcher) Watch() error {
	if err := pw.watcher.Add(filepath.Dir(pw.path)); err != nil {
		return err
	}

	pw.wg.Add(2)
	go pw.processEvents()
	go pw.processPending()
	return nil
}

func (pw *PromptWatcher) processEvents() {
	defer pw.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			pw.log.Error("prompt watcher panic", zap.Any("panic", r))
		}
	}()

	for {
		select {
		case <-pw.ctx.Done():
			return

		case event, ok := <-pw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != pw.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				pw.mu.Lock()
				pw.pending = time.Now()
				pw.mu.Unlock()
			}

		case err, ok := <-pw.watcher.Errors:
			if !ok {
				return
			}
			pw.log.Warn("prompt watcher error", zap.Error(err))
		}
	}
}

func (pw *PromptWatcher) processPending() {
	defer pw.wg.Done()

	ticker := time.NewTicker(pw.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-pw.ctx.Done():
			return

		case <-ticker.C:
			pw.mu.Lock()
			due := !pw.pending.IsZero() && time.Since(pw.pending) >= pw.debounce
			if due {
				pw.pending = time.Time{}
			}
			pw.mu.Unlock()

			if due {
				pw.reload()
			}
		}
	}
}

func (pw *PromptWatcher) reload() {
	file, err := LoadPrompts(pw.path)
	if err != nil {
		pw.log.Warn("prompt reload failed", zap.String("path", pw.path), zap.Error(err))
		pw.sink(nil, err)
		return
	}
	pw.log.Info("prompt file changed", zap.String("path", pw.path), zap.Int("count", len(file)))
	pw.sink(MergePrompts(pw.inline, file), nil)
}

// Close stops watching and waits for the goroutines to exit.
func (pw *PromptWatcher) Close() error {
	pw.cancel()
	err := pw.watcher.Close()
	pw.wg.Wait()
	return err
}
