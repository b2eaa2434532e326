// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigchat/internal/notify"
	"github.com/jeranaias/rigchat/internal/render"
	"github.com/jeranaias/rigchat/internal/session"
	"github.com/jeranaias/rigchat/internal/ui/styles"
)

type fakeSubmitter struct {
	prompts []string
}

func (f *fakeSubmitter) Submit(prompt string) { f.prompts = append(f.prompts, prompt) }

type fakeTicker struct {
	ticks  int
	probes int
}

func (f *fakeTicker) Tick()          { f.ticks++ }
func (f *fakeTicker) ProbeNow() bool { f.probes++; return true }

type fakeHost struct {
	host string
	port int
}

func (f *fakeHost) SetHost(host string, port int) { f.host, f.port = host, port }

type harness struct {
	state     *session.State
	submitter *fakeSubmitter
	ticker    *fakeTicker
	host      *fakeHost
	model     Model
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		state: session.NewState(session.Options{
			Model:        "demo-model",
			SystemPrompt: "default",
			Params:       session.Params{Temperature: 0.7},
			Prompts:      map[string]string{"default": "You are helpful.", "coder": "Write code."},
		}),
		submitter: &fakeSubmitter{},
		ticker:    &fakeTicker{},
		host:      &fakeHost{},
	}
	h.model = New(Deps{
		State:     h.state,
		Submitter: h.submitter,
		Driver:    h.ticker,
		Client:    h.host,
		Theme:     styles.NewThemeFor(true),
		Interval:  10 * time.Millisecond,
	})
	h.send(tea.WindowSizeMsg{Width: 100, Height: 30})
	return h
}

func (h *harness) send(msg tea.Msg) tea.Cmd {
	next, cmd := h.model.Update(msg)
	h.model = next.(Model)
	return cmd
}

func (h *harness) typeText(s string) {
	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func (h *harness) enter() {
	h.send(tea.KeyMsg{Type: tea.KeyEnter})
}

func (h *harness) command(s string) {
	h.typeText(s)
	h.enter()
}

// =============================================================================
// SUBMISSION TESTS
// =============================================================================

func TestEnter_SubmitsWhenIdle(t *testing.T) {
	h := newHarness(t)
	h.typeText("Hi")
	assert.Equal(t, "Hi", h.state.Prompt(), "typing mirrors into the session")

	h.enter()
	assert.Equal(t, []string{"Hi"}, h.submitter.prompts)
	assert.True(t, h.state.Busy(), "busy is set before Submit returns")
	assert.Equal(t, "Hi", h.model.InputValue(), "the prompt field keeps its text")
}

func TestEnter_IgnoredWhileBusy(t *testing.T) {
	h := newHarness(t)
	h.state.MarkBusy()
	h.typeText("Hi")
	h.enter()
	assert.Empty(t, h.submitter.prompts)
}

func TestEnter_IgnoresBlankPrompt(t *testing.T) {
	h := newHarness(t)
	h.typeText("   ")
	h.enter()
	assert.Empty(t, h.submitter.prompts)
	assert.False(t, h.state.Busy())
}

// =============================================================================
// TICK TESTS
// =============================================================================

func TestTick_DrivesPollerAndReschedules(t *testing.T) {
	h := newHarness(t)
	cmd := h.send(tickMsg(time.Now()))
	assert.Equal(t, 1, h.ticker.ticks)
	assert.NotNil(t, cmd, "another tick is scheduled")
}

func TestTick_ShowsCurrentDocument(t *testing.T) {
	h := newHarness(t)
	h.state.SetDocument(render.Document{Source: "Hello", Styled: "Hello"})
	h.send(tickMsg(time.Now()))
	assert.Contains(t, h.model.View(), "Hello")
}

func TestInit_ReturnsCommand(t *testing.T) {
	h := newHarness(t)
	assert.NotNil(t, h.model.Init())
}

// =============================================================================
// COMMAND TESTS
// =============================================================================

func TestParseCommand(t *testing.T) {
	name, args := ParseCommand("  /Temp 1.5 ")
	assert.Equal(t, "temp", name)
	assert.Equal(t, []string{"1.5"}, args)

	name, args = ParseCommand("/")
	assert.Equal(t, "", name)
	assert.Nil(t, args)

	assert.True(t, IsCommand(" /help"))
	assert.False(t, IsCommand("hello /help"))
}

func TestCommands_DoNotSubmit(t *testing.T) {
	h := newHarness(t)
	h.command("/think")
	assert.Empty(t, h.submitter.prompts)
	assert.Equal(t, "", h.model.InputValue(), "commands clear the input")
	assert.Equal(t, "", h.state.Prompt())
}

func TestCommand_Toggles(t *testing.T) {
	h := newHarness(t)

	h.command("/think")
	assert.True(t, h.state.Params().Think)
	h.command("/filter")
	assert.True(t, h.state.Filtering())
	h.command("/log")
	assert.True(t, h.state.Logging())
	h.command("/context")
	assert.True(t, h.state.UseContext())

	h.command("/think")
	assert.False(t, h.state.Params().Think)
	assert.Equal(t, "Thinking off", h.state.Debug().Message)
}

func TestCommand_Model(t *testing.T) {
	h := newHarness(t)
	h.state.Inventory().Merge([]string{"llama3.2"})

	h.command("/model llama3.2")
	require.NotNil(t, h.state.Model())
	assert.Equal(t, "llama3.2", *h.state.Model())
	assert.Equal(t, "Model set to llama3.2", h.state.Debug().Message)

	h.command("/model other")
	assert.Equal(t, "other", *h.state.Model())
	assert.Contains(t, h.state.Debug().Message, "not reported by the server")
}

func TestCommand_System(t *testing.T) {
	h := newHarness(t)

	h.command("/system coder")
	assert.Equal(t, "coder", *h.state.SystemPrompt())

	h.command("/system missing")
	assert.True(t, h.state.Debug().IsError)
	assert.Equal(t, "coder", *h.state.SystemPrompt(), "unknown names are rejected")

	h.command("/system none")
	assert.Nil(t, h.state.SystemPrompt())
}

func TestCommand_Temp(t *testing.T) {
	h := newHarness(t)

	h.command("/temp 1.5")
	assert.InDelta(t, 1.5, h.state.Params().Temperature, 1e-9)

	h.command("/temp 3")
	assert.True(t, h.state.Debug().IsError)
	assert.InDelta(t, 1.5, h.state.Params().Temperature, 1e-9)

	h.command("/temp warm")
	assert.Equal(t, notify.DebugMessage{Message: `Invalid temperature "warm"`, IsError: true}, h.state.Debug())
}

func TestCommand_Host(t *testing.T) {
	h := newHarness(t)
	h.state.Inventory().Merge([]string{"old-model"})
	h.state.ServiceStatus().Set(session.Online("0.5.7"))

	h.command("/host 10.0.0.5:11500")
	assert.Equal(t, "10.0.0.5", h.host.host)
	assert.Equal(t, 11500, h.host.port)
	assert.Empty(t, h.state.Inventory().Names())
	status, _ := h.state.ServiceStatus().Get()
	assert.Equal(t, session.StatusUnknown, status.Kind)
	assert.Equal(t, 1, h.ticker.probes)

	h.command("/host nonsense")
	assert.True(t, h.state.Debug().IsError)
	h.command("/host box:99999")
	assert.True(t, h.state.Debug().IsError)
	assert.Equal(t, 11500, h.host.port)
}

func TestCommand_Listings(t *testing.T) {
	h := newHarness(t)

	h.command("/models")
	assert.Equal(t, 1, h.ticker.probes)
	assert.Contains(t, h.state.Debug().Message, "No models")

	h.state.Inventory().Merge([]string{"a", "b"})
	h.command("/models")
	assert.Equal(t, "Models: a, b", h.state.Debug().Message)

	h.command("/prompts")
	assert.Equal(t, "Prompts: coder, default", h.state.Debug().Message)
}

func TestCommand_HistoryTogglesTranscript(t *testing.T) {
	h := newHarness(t)
	h.state.Transcript().Append(session.RoleUser, "Hi")
	h.state.Transcript().Append(session.RoleAssistant, "Hello there")

	h.command("/history")
	assert.True(t, h.model.ShowingTranscript())
	view := h.model.View()
	assert.Contains(t, view, "User:")
	assert.Contains(t, view, "Hello there")

	h.command("/history")
	assert.False(t, h.model.ShowingTranscript())
}

func TestCommand_ClearOnlyClearsPrompt(t *testing.T) {
	h := newHarness(t)
	h.state.Transcript().Append(session.RoleUser, "Hi")
	h.command("/clear")
	assert.Equal(t, "", h.model.InputValue())
	assert.Equal(t, 1, h.state.Transcript().Len())
}

func TestCommand_Unknown(t *testing.T) {
	h := newHarness(t)
	h.command("/bogus")
	assert.Equal(t, notify.DebugMessage{Message: "Unknown command: /bogus (try /help)", IsError: true}, h.state.Debug())
}

// =============================================================================
// VIEW TESTS
// =============================================================================

func TestView_ShowsSettingsAndStatus(t *testing.T) {
	h := newHarness(t)
	view := h.model.View()
	assert.Contains(t, view, "demo-model")
	assert.Contains(t, view, "Checking...")

	h.state.ServiceStatus().Set(session.Offline())
	assert.Contains(t, h.model.View(), "Offline")
}

func TestView_DebugLine(t *testing.T) {
	h := newHarness(t)
	h.state.SetDebug(notify.DebugMessage{Message: "Response stream interrupted: EOF", IsError: true})
	assert.Contains(t, h.model.View(), "Response stream interrupted")
}

func TestView_InfoLine(t *testing.T) {
	h := newHarness(t)
	now := time.Now()
	h.state.SetDispatchedAt(now.Add(-3 * time.Second))

	snap := h.state.Snapshot()
	assert.Contains(t, h.model.renderInfo(snap, now), "3.0s since last dispatch")

	h.state.MarkBusy()
	snap = h.state.Snapshot()
	assert.Contains(t, h.model.renderInfo(snap, now), "Generating")
}

func TestCtrlCQuits(t *testing.T) {
	h := newHarness(t)
	cmd := h.send(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.True(t, h.model.Quitting())
	assert.Equal(t, "", h.model.View())
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{-time.Second, "0ms"},
		{850 * time.Millisecond, "850ms"},
		{3200 * time.Millisecond, "3.2s"},
		{125 * time.Second, "2m05s"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, formatElapsed(tc.d))
	}
}

func TestKeyMapHelp(t *testing.T) {
	help := DefaultKeyMap().FormatShortHelp()
	assert.True(t, strings.Contains(help, "Enter send"))
	assert.True(t, strings.Contains(help, "C-c quit"))
}
