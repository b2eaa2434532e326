// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package generation runs one prompt through the model and reports back to
// the session.
//
// Submit validates the selection, builds the request and starts two
// goroutines: the stream reader and a render.Worker. Tokens are filtered,
// forwarded to the worker and collected in order. When the stream ends for
// any reason the token channel is closed, the worker is awaited, the
// assistant turn is recorded and exactly one Idle(false) is sent.
package generation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/rigchat/internal/filter"
	"github.com/jeranaias/rigchat/internal/notify"
	"github.com/jeranaias/rigchat/internal/ollama"
	"github.com/jeranaias/rigchat/internal/render"
	"github.com/jeranaias/rigchat/internal/session"
	"github.com/jeranaias/rigchat/internal/storage"
)

// Messages shown on the status line.
const (
	MsgNoModel        = "Model selected is invalid, have you selected a model?"
	MsgNoSystemPrompt = "Could not get system prompt, is it selected?"
	MsgUnreachable    = "Error getting ollama response (service unreachable, is Ollama running?)"
	MsgModelNotFound  = "Error getting ollama response (model not found, has it been pulled?)"
	MsgUnsupported    = "Error getting ollama response (have you enabled thinking on a bot which does not allow this feature?)"
	MsgRequestFailed  = "Error getting ollama response"
	MsgInterrupted    = "Response stream interrupted"
	MsgCrashed        = "Generation failed unexpectedly"
)

// tokenBuffer is the capacity of the channel feeding the renderer.
const tokenBuffer = 64

// Streamer opens a token stream. *ollama.Client implements it.
type Streamer interface {
	GenerateStream(ctx context.Context, req ollama.GenerateRequest) (*ollama.GenerateStream, error)
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Streamer Streamer
	State    *session.State
	Channels *notify.Channels
	Slot     *notify.Slot[render.Document]
	Styler   render.Styler
	// Censor is applied to each token while filtering is on. Defaults to
	// filter.Censor.
	Censor filter.Func
	Logger *zap.Logger
}

// Orchestrator starts generations.
type Orchestrator struct {
	ctx      context.Context
	streamer Streamer
	state    *session.State
	ch       *notify.Channels
	slot     *notify.Slot[render.Document]
	styler   render.Styler
	censor   filter.Func
	log      *zap.Logger
	wg       sync.WaitGroup
}

// New creates an orchestrator. Streams are cancelled when ctx is done.
func New(ctx context.Context, deps Deps) *Orchestrator {
	if deps.Censor == nil {
		deps.Censor = filter.Censor
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Styler == nil {
		deps.Styler = render.PlainStyler{}
	}
	return &Orchestrator{
		ctx:      ctx,
		streamer: deps.Streamer,
		state:    deps.State,
		ch:       deps.Channels,
		slot:     deps.Slot,
		styler:   deps.Styler,
		censor:   deps.Censor,
		log:      deps.Logger,
	}
}

// submission is everything the stream goroutine needs, captured at Submit.
type submission struct {
	prompt       string
	request      ollama.GenerateRequest
	filtering    bool
	logging      bool
	systemPrompt *string
	started      time.Time
}

// Submit starts generating a response to prompt. The caller must have
// checked State.Busy and called State.MarkBusy; Submit does not check it
// again.
//
// When no model is selected, or the selected system prompt is not in the
// catalog, Submit reports one error, sends Idle(false) and returns.
func (o *Orchestrator) Submit(prompt string) {
	model := o.state.Model()
	if model == nil {
		o.refuse(MsgNoModel)
		return
	}

	var system *string
	if name := o.state.SystemPrompt(); name != nil {
		body, ok := o.state.Catalog().Resolve(*name)
		if !ok {
			o.log.Warn("system prompt not in catalog", zap.String("name", *name))
			o.refuse(MsgNoSystemPrompt)
			return
		}
		system = &body
	}

	params := o.state.Params()
	now := time.Now()
	o.state.SetDispatchedAt(now)

	transcript := o.state.Transcript()
	body := prompt
	if o.state.UseContext() {
		body = transcript.Serialize() + prompt
	}
	transcript.Append(session.RoleUser, prompt)

	req := ollama.GenerateRequest{
		Model:   *model,
		Prompt:  body,
		Think:   params.Think,
		Options: &ollama.Options{Temperature: params.Temperature},
	}
	if system != nil {
		req.System = *system
	}

	sub := submission{
		prompt:       prompt,
		request:      req,
		filtering:    o.state.Filtering(),
		logging:      o.state.Logging(),
		systemPrompt: system,
		started:      now,
	}

	buf := o.state.Buffer()
	buf.Reset()
	o.state.SetDocument(render.Placeholder())

	tokens := make(chan string, tokenBuffer)
	worker := render.Start(tokens, buf, o.slot, o.ch, o.styler)

	o.log.Info("generation started",
		zap.String("model", req.Model),
		zap.Bool("system_prompt", system != nil),
		zap.Float64("temperature", params.Temperature),
		zap.Bool("think", params.Think),
		zap.Int("prompt_len", len(body)),
	)

	o.wg.Add(1)
	go o.run(sub, tokens, worker)
}

// Wait blocks until every started generation has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) refuse(message string) {
	o.ch.SendError(message)
	o.ch.SendIdle(false)
}

func (o *Orchestrator) run(sub submission, tokens chan<- string, worker *render.Worker) {
	defer o.wg.Done()

	var (
		opened   bool
		segments []string
	)

	defer func() {
		if r := recover(); r != nil {
			o.log.Error("generation panic", zap.Any("panic", r))
			o.ch.SendError(MsgCrashed)
		}

		close(tokens)
		worker.Wait()

		if opened {
			o.state.Transcript().Append(session.RoleAssistant, strings.Join(segments, ""))
			if sub.logging {
				o.ch.SendInteraction(storage.NewLog(sub.filtering, &sub.request.Model, segments, sub.systemPrompt, sub.prompt))
			}
		}

		o.log.Info("generation finished",
			zap.Bool("opened", opened),
			zap.Int("tokens", len(segments)),
			zap.Duration("elapsed", time.Since(sub.started)),
		)
		o.ch.SendIdle(false)
	}()

	stream, err := o.streamer.GenerateStream(o.ctx, sub.request)
	if err != nil {
		o.log.Warn("failed to open stream", zap.String("model", sub.request.Model), zap.Error(err))
		o.ch.SendError(openErrorMessage(err))
		return
	}
	opened = true
	defer stream.Close()

	for {
		chunk, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			o.log.Warn("stream interrupted", zap.Error(err), zap.Int("tokens", len(segments)))
			o.ch.SendError(fmt.Sprintf("%s: %v", MsgInterrupted, err))
			return
		}

		for _, token := range chunk {
			if token.Response == "" {
				continue
			}
			text := token.Response
			if sub.filtering {
				text = o.censor(text)
			}

			select {
			case tokens <- text:
			case <-o.ctx.Done():
				o.log.Debug("generation cancelled", zap.Error(o.ctx.Err()))
				return
			}
			segments = append(segments, text)
		}
	}
}

// openErrorMessage maps a stream-open failure to a status line message.
func openErrorMessage(err error) string {
	switch {
	case ollama.IsNotRunning(err), ollama.IsTimeout(err):
		return MsgUnreachable
	case ollama.IsModelNotFound(err):
		return MsgModelNotFound
	case ollama.IsUnsupported(err):
		return MsgUnsupported
	default:
		return fmt.Sprintf("%s: %v", MsgRequestFailed, err)
	}
}
