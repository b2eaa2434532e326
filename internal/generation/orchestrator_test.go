// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package generation

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigchat/internal/notify"
	"github.com/jeranaias/rigchat/internal/ollama"
	"github.com/jeranaias/rigchat/internal/render"
	"github.com/jeranaias/rigchat/internal/session"
	"github.com/jeranaias/rigchat/internal/storage"
)

// streamFunc adapts a function to Streamer.
type streamFunc func(ctx context.Context, req ollama.GenerateRequest) (*ollama.GenerateStream, error)

func (f streamFunc) GenerateStream(ctx context.Context, req ollama.GenerateRequest) (*ollama.GenerateStream, error) {
	return f(ctx, req)
}

// tokensStreamer replays the given NDJSON lines and records each request.
func tokensStreamer(reqs chan<- ollama.GenerateRequest, lines ...string) Streamer {
	return streamFunc(func(_ context.Context, req ollama.GenerateRequest) (*ollama.GenerateStream, error) {
		if reqs != nil {
			reqs <- req
		}
		body := strings.Join(lines, "\n") + "\n"
		return ollama.NewGenerateStream(io.NopCloser(strings.NewReader(body))), nil
	})
}

func tokenLine(s string, done bool) string {
	return fmt.Sprintf(`{"response":%q,"done":%t}`, s, done)
}

type harness struct {
	state *session.State
	ch    *notify.Channels
	slot  *notify.Slot[render.Document]
	orch  *Orchestrator
}

func newHarness(t *testing.T, opts session.Options, streamer Streamer) *harness {
	t.Helper()
	h := &harness{
		state: session.NewState(opts),
		ch:    notify.NewChannels(nil),
		slot:  notify.NewSlot[render.Document](),
	}
	h.orch = New(context.Background(), Deps{
		Streamer: streamer,
		State:    h.state,
		Channels: h.ch,
		Slot:     h.slot,
	})
	return h
}

// submit mirrors the UI: check busy, mark busy, submit, wait.
func (h *harness) submit(t *testing.T, prompt string) {
	t.Helper()
	require.False(t, h.state.Busy())
	h.state.MarkBusy()
	h.orch.Submit(prompt)

	done := make(chan struct{})
	go func() {
		h.orch.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("generation did not finish")
	}
}

func (h *harness) idles() []bool {
	var out []bool
	for {
		v, ok := h.ch.Idle.TryRecv()
		if !ok {
			return out
		}
		out = append(out, v)
	}
}

func (h *harness) debugs() []notify.DebugMessage {
	var out []notify.DebugMessage
	for {
		v, ok := h.ch.Debug.TryRecv()
		if !ok {
			return out
		}
		out = append(out, v)
	}
}

func (h *harness) interactions() []storage.Log {
	var out []storage.Log
	for {
		v, ok := h.ch.Interactions.TryRecv()
		if !ok {
			return out
		}
		out = append(out, v)
	}
}

var demoOptions = session.Options{
	Model:        "demo-model",
	SystemPrompt: "default",
	Prompts:      map[string]string{"default": "You are helpful."},
	Logging:      true,
	Params:       session.Params{Temperature: 0.7},
}

// =============================================================================
// SUCCESS PATH
// =============================================================================

func TestSubmit_DemoScenario(t *testing.T) {
	reqs := make(chan ollama.GenerateRequest, 1)
	h := newHarness(t, demoOptions, tokensStreamer(reqs,
		tokenLine("Hel", false),
		tokenLine("lo", false),
		tokenLine("", true),
	))

	h.submit(t, "Hi")

	req := <-reqs
	assert.Equal(t, "demo-model", req.Model)
	assert.Equal(t, "Hi", req.Prompt)
	assert.Equal(t, "You are helpful.", req.System)
	require.NotNil(t, req.Options)
	assert.InDelta(t, 0.7, req.Options.Temperature, 1e-9)

	entries := h.state.Transcript().Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, session.Entry{Role: session.RoleUser, Text: "Hi"}, entries[0])
	assert.Equal(t, session.Entry{Role: session.RoleAssistant, Text: "Hello"}, entries[1])

	doc, ok := h.slot.Take()
	require.True(t, ok)
	assert.Equal(t, "Hello", doc.Source)
	assert.Equal(t, "Hello", h.state.Buffer().Snapshot())

	assert.Equal(t, []bool{false}, h.idles())
	assert.Empty(t, h.debugs())

	logs := h.interactions()
	require.Len(t, logs, 1)
	assert.Equal(t, []string{"Hel", "lo"}, logs[0].Response)
	assert.Equal(t, "Hi", logs[0].Prompt)
	require.NotNil(t, logs[0].Model)
	assert.Equal(t, "demo-model", *logs[0].Model)
	require.NotNil(t, logs[0].SystemPrompt)
	assert.Equal(t, "You are helpful.", *logs[0].SystemPrompt)
	assert.False(t, logs[0].Filtering)

	// Busy is only cleared by draining the idle notification
	assert.True(t, h.state.Busy())
	h.state.ApplyIdle(false)
	assert.False(t, h.state.Busy())
}

func TestSubmit_OverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for _, line := range []string{tokenLine("Hel", false), tokenLine("lo", true)} {
			io.WriteString(w, line+"\n")
			flusher.Flush()
		}
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	client := ollama.NewClientWithConfig(&ollama.ClientConfig{Host: u.Hostname(), Port: port})

	h := newHarness(t, demoOptions, client)
	h.submit(t, "Hi")

	assert.Equal(t, "Hello", h.state.Transcript().Entries()[1].Text)
	assert.Equal(t, []bool{false}, h.idles())
	logs := h.interactions()
	require.Len(t, logs, 1)
	assert.Equal(t, []string{"Hel", "lo"}, logs[0].Response)
}

func TestSubmit_TokenOrderPreserved(t *testing.T) {
	var lines []string
	var want strings.Builder
	for i := 0; i < 500; i++ {
		tok := strconv.Itoa(i) + " "
		lines = append(lines, tokenLine(tok, false))
		want.WriteString(tok)
	}
	lines = append(lines, tokenLine("", true))

	h := newHarness(t, demoOptions, tokensStreamer(nil, lines...))
	h.submit(t, "count")

	assert.Equal(t, want.String(), h.state.Buffer().Snapshot())
	assert.Equal(t, want.String(), h.state.Transcript().Entries()[1].Text)
	logs := h.interactions()
	require.Len(t, logs, 1)
	assert.Len(t, logs[0].Response, 500)
}

func TestSubmit_NoSystemPromptSelected(t *testing.T) {
	opts := demoOptions
	opts.SystemPrompt = ""
	reqs := make(chan ollama.GenerateRequest, 1)
	h := newHarness(t, opts, tokensStreamer(reqs, tokenLine("ok", true)))

	h.submit(t, "Hi")

	req := <-reqs
	assert.Empty(t, req.System)
	logs := h.interactions()
	require.Len(t, logs, 1)
	assert.Nil(t, logs[0].SystemPrompt)
}

func TestSubmit_LoggingDisabled(t *testing.T) {
	opts := demoOptions
	opts.Logging = false
	h := newHarness(t, opts, tokensStreamer(nil, tokenLine("ok", true)))

	h.submit(t, "Hi")

	assert.Empty(t, h.interactions())
	assert.Equal(t, []bool{false}, h.idles())
}

func TestSubmit_FilteringAppliedPerToken(t *testing.T) {
	opts := demoOptions
	opts.Filtering = true
	h := newHarness(t, opts, tokensStreamer(nil, tokenLine("bad", false), tokenLine(" word", true)))
	h.orch.censor = func(s string) string { return strings.ReplaceAll(s, "bad", "***") }

	h.submit(t, "Hi")

	assert.Equal(t, "*** word", h.state.Buffer().Snapshot())
	assert.Equal(t, "*** word", h.state.Transcript().Entries()[1].Text)
	logs := h.interactions()
	require.Len(t, logs, 1)
	assert.Equal(t, []string{"***", " word"}, logs[0].Response)
	assert.True(t, logs[0].Filtering)
}

func TestSubmit_ContextMode(t *testing.T) {
	opts := demoOptions
	opts.UseContext = true
	reqs := make(chan ollama.GenerateRequest, 2)
	h := newHarness(t, opts, tokensStreamer(reqs, tokenLine("Hello", true)))

	h.submit(t, "Hi")
	h.state.ApplyIdle(false)
	h.submit(t, "Again")

	<-reqs
	second := <-reqs
	assert.Equal(t, "User: Hi\nAssistant: Hello\nAgain", second.Prompt)
	assert.Equal(t, 4, h.state.Transcript().Len())
}

func TestSubmit_ResetsBufferEachSubmission(t *testing.T) {
	h := newHarness(t, demoOptions, tokensStreamer(nil, tokenLine("first", true)))
	h.submit(t, "a")
	h.state.ApplyIdle(false)

	h.orch.streamer = tokensStreamer(nil, tokenLine("second", true))
	h.submit(t, "b")

	assert.Equal(t, "second", h.state.Buffer().Snapshot())
}

// =============================================================================
// REFUSALS
// =============================================================================

func TestSubmit_Refusals(t *testing.T) {
	tests := []struct {
		name string
		opts session.Options
		want string
	}{
		{"no model", session.Options{Logging: true}, MsgNoModel},
		{"unresolved system prompt", session.Options{
			Model:        "demo-model",
			SystemPrompt: "missing",
			Prompts:      map[string]string{"default": "You are helpful."},
		}, MsgNoSystemPrompt},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			h := newHarness(t, tc.opts, streamFunc(func(context.Context, ollama.GenerateRequest) (*ollama.GenerateStream, error) {
				called = true
				return nil, fmt.Errorf("must not be called")
			}))

			h.submit(t, "Hi")

			assert.False(t, called, "no request is sent")
			assert.Equal(t, []bool{false}, h.idles())
			assert.Equal(t, []notify.DebugMessage{{Message: tc.want, IsError: true}}, h.debugs())
			assert.Empty(t, h.interactions())
			assert.Equal(t, 0, h.state.Transcript().Len())
			assert.True(t, h.state.DispatchedAt().IsZero())
		})
	}
}

// =============================================================================
// FAILURE PATHS
// =============================================================================

func TestSubmit_OpenFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not running", &ollama.ClientError{Type: ollama.ErrTypeNotRunning, Message: "down"}, MsgUnreachable},
		{"timeout", ollama.ErrTimeout, MsgUnreachable},
		{"model not found", ollama.ErrModelNotFound, MsgModelNotFound},
		{"thinking unsupported", &ollama.ClientError{Type: ollama.ErrTypeUnsupported, Message: "does not support thinking"}, MsgUnsupported},
		{"other", &ollama.ClientError{Type: ollama.ErrTypeInvalidResponse, Message: "boom"}, MsgRequestFailed + ": boom"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, demoOptions, streamFunc(func(context.Context, ollama.GenerateRequest) (*ollama.GenerateStream, error) {
				return nil, tc.err
			}))

			h.submit(t, "Hi")

			assert.Equal(t, []bool{false}, h.idles())
			assert.Equal(t, []notify.DebugMessage{{Message: tc.want, IsError: true}}, h.debugs())
			assert.Empty(t, h.interactions(), "no record when the stream never opened")

			entries := h.state.Transcript().Entries()
			require.Len(t, entries, 1)
			assert.Equal(t, session.RoleUser, entries[0].Role)
		})
	}
}

func TestSubmit_UnreachableServer(t *testing.T) {
	client := ollama.NewClientWithConfig(&ollama.ClientConfig{Host: "127.0.0.1", Port: 1, Timeout: time.Second})
	h := newHarness(t, demoOptions, client)

	h.submit(t, "Hi")

	assert.Equal(t, []bool{false}, h.idles())
	assert.Equal(t, []notify.DebugMessage{{Message: MsgUnreachable, IsError: true}}, h.debugs())
}

func TestSubmit_MidStreamError(t *testing.T) {
	h := newHarness(t, demoOptions, tokensStreamer(nil,
		tokenLine("part", false),
		`{"error":"model runner crashed"}`,
		tokenLine("never", true),
	))

	h.submit(t, "Hi")

	assert.Equal(t, []bool{false}, h.idles())
	debugs := h.debugs()
	require.Len(t, debugs, 1)
	assert.True(t, debugs[0].IsError)
	assert.Contains(t, debugs[0].Message, MsgInterrupted)

	entries := h.state.Transcript().Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "part", entries[1].Text)

	logs := h.interactions()
	require.Len(t, logs, 1)
	assert.Equal(t, []string{"part"}, logs[0].Response)
}

func TestSubmit_StreamerPanicStillGoesIdle(t *testing.T) {
	h := newHarness(t, demoOptions, streamFunc(func(context.Context, ollama.GenerateRequest) (*ollama.GenerateStream, error) {
		panic("boom")
	}))

	h.submit(t, "Hi")

	assert.Equal(t, []bool{false}, h.idles())
	assert.Equal(t, []notify.DebugMessage{{Message: MsgCrashed, IsError: true}}, h.debugs())
}

func TestSubmit_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	state := session.NewState(demoOptions)
	ch := notify.NewChannels(nil)

	// Stream far more tokens than the renderer channel holds
	var lines []string
	for i := 0; i < 10000; i++ {
		lines = append(lines, tokenLine("x", false))
	}
	orch := New(ctx, Deps{
		Streamer: tokensStreamer(nil, lines...),
		State:    state,
		Channels: ch,
		Slot:     notify.NewSlot[render.Document](),
	})

	cancel()
	state.MarkBusy()
	orch.Submit("Hi")
	orch.Wait()

	v, ok := ch.Idle.TryRecv()
	require.True(t, ok)
	assert.False(t, v)
	_, ok = ch.Idle.TryRecv()
	assert.False(t, ok)
}
