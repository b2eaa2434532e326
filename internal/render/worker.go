// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/jeranaias/rigchat/internal/notify"
)

// =============================================================================
// RENDERER WORKER
// =============================================================================

// Worker is the goroutine rendering one submission.
type Worker struct {
	tokens  <-chan string
	buf     *Buffer
	slot    *notify.Slot[Document]
	ch      *notify.Channels
	styler  Styler
	log     *zap.Logger
	done    chan struct{}
	renders int
}

// Start launches a worker that appends each token from tokens to buf,
// re-parses the whole buffer and publishes the result to slot. The worker
// exits when tokens is closed.
//
// After the first render failure the worker reports one error on ch and stops
// publishing, but keeps appending tokens to buf.
func Start(tokens <-chan string, buf *Buffer, slot *notify.Slot[Document], ch *notify.Channels, styler Styler) *Worker {
	if styler == nil {
		styler = PlainStyler{}
	}
	w := &Worker{
		tokens: tokens,
		buf:    buf,
		slot:   slot,
		ch:     ch,
		styler: styler,
		log:    ch.Logger(),
		done:   make(chan struct{}),
	}
	go w.run()
	return w
}

// Done is closed once the worker has consumed every token.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Wait blocks until the worker exits.
func (w *Worker) Wait() {
	<-w.done
}

func (w *Worker) run() {
	defer close(w.done)
	defer func() {
		// Last resort; render panics are already trapped in renderDocument
		if r := recover(); r != nil {
			w.log.Error("renderer worker panic", zap.Any("panic", r))
			w.ch.SendError("Renderer crashed")
			for range w.tokens {
			}
		}
	}()

	publishing := true
	for token := range w.tokens {
		source := w.buf.Append(token)
		if !publishing {
			continue
		}

		doc, err := w.renderDocument(source)
		if err != nil {
			publishing = false
			w.log.Warn("render failed", zap.Error(err), zap.Int("renders", w.renders))
			w.ch.SendError("Failed to render response")
			continue
		}
		w.slot.Publish(doc)
		w.renders++
	}
	w.log.Debug("renderer finished", zap.Int("renders", w.renders))
}

func (w *Worker) renderDocument(source string) (doc Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render panic: %v", r)
		}
	}()

	blocks, err := Parse(source)
	if err != nil {
		return Document{}, err
	}
	styled, err := w.styler.Style(source)
	if err != nil {
		return Document{}, fmt.Errorf("failed to style response: %w", err)
	}
	return Document{Source: source, Blocks: blocks, Styled: styled}, nil
}
