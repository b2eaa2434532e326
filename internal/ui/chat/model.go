// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/rigchat/internal/poll"
	"github.com/jeranaias/rigchat/internal/session"
	"github.com/jeranaias/rigchat/internal/ui/styles"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Submitter starts a generation. *generation.Orchestrator implements it.
type Submitter interface {
	Submit(prompt string)
}

// Ticker drives the periodic work. *poll.Driver implements it.
type Ticker interface {
	Tick()
	ProbeNow() bool
}

// HostSetter retargets the inference client. *ollama.Client implements it.
type HostSetter interface {
	SetHost(host string, port int)
}

// Deps are the collaborators of the chat model.
type Deps struct {
	State     *session.State
	Submitter Submitter
	Driver    Ticker
	Client    HostSetter
	Theme     *styles.Theme
	// Interval is the tick period; zero uses poll.DefaultInterval
	Interval time.Duration
	Logger   *zap.Logger
}

var unknownStatus = session.Status{Kind: session.StatusUnknown}

// tickMsg fires once per Interval.
type tickMsg time.Time

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat screen. All session reads go
// through session.State; the model itself only keeps widget state.
type Model struct {
	state     *session.State
	submitter Submitter
	driver    Ticker
	client    HostSetter
	theme     *styles.Theme
	interval  time.Duration
	log       *zap.Logger

	keyMap   KeyMap
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	width  int
	height int
	ready  bool

	showTranscript bool
	lastContent    string
	quitting       bool
}

// New creates the chat model.
func New(deps Deps) Model {
	if deps.Theme == nil {
		deps.Theme = styles.NewTheme()
	}
	if deps.Interval <= 0 {
		deps.Interval = poll.DefaultInterval
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	input := textinput.New()
	input.Placeholder = "Ask something, or /help"
	input.Prompt = "> "
	input.PromptStyle = deps.Theme.InputPrompt
	input.CharLimit = 0
	input.SetValue(deps.State.Prompt())
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = deps.Theme.Spinner

	return Model{
		state:     deps.State,
		submitter: deps.Submitter,
		driver:    deps.Driver,
		client:    deps.Client,
		theme:     deps.Theme,
		interval:  deps.Interval,
		log:       deps.Logger,
		keyMap:    DefaultKeyMap(),
		input:     input,
		viewport:  viewport.New(80, 20),
		spinner:   sp,
	}
}

// Init kicks off the tick loop.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.tick())
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.handleResize(msg)
		return m, nil

	case tickMsg:
		m.driver.Tick()
		m.refreshViewport()
		return m, m.tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleResize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)

	m.viewport.Width = msg.Width
	m.viewport.Height = m.viewportHeight()
	m.input.Width = msg.Width - 4
	m.ready = true
	m.lastContent = ""
	m.refreshViewport()
}

// viewportHeight is what remains after the fixed chrome: header, settings,
// info, debug, the input border and the input line, and the help line.
func (m *Model) viewportHeight() int {
	const chrome = 7
	if h := m.height - chrome; h > 1 {
		return h
	}
	return 1
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Submit):
		return m, m.submit()

	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keyMap.Top):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keyMap.Bottom):
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.state.SetPrompt(m.input.Value())
	return m, cmd
}

// submit dispatches the prompt field. Slash commands run even while a
// request is in flight; prompts are dropped until the session is idle.
func (m *Model) submit() tea.Cmd {
	value := m.input.Value()
	if IsCommand(value) {
		return m.runCommand(value)
	}
	if strings.TrimSpace(value) == "" || m.state.Busy() {
		return nil
	}

	m.state.MarkBusy()
	m.submitter.Submit(value)
	m.showTranscript = false
	m.lastContent = ""
	m.log.Debug("prompt submitted", zap.Int("length", len(value)))
	return nil
}

func (m *Model) clearInput() {
	m.input.Reset()
	m.state.SetPrompt("")
}

// refreshViewport copies the current content into the viewport when it
// changed. While busy the view follows the end of the response.
func (m *Model) refreshViewport() {
	content := m.content()
	if content == m.lastContent {
		return
	}
	m.lastContent = content
	m.viewport.SetContent(content)
	if m.state.Busy() {
		m.viewport.GotoBottom()
	}
}

// Quitting reports whether the user asked to exit.
func (m Model) Quitting() bool {
	return m.quitting
}

// ShowingTranscript reports whether the transcript view is active.
func (m Model) ShowingTranscript() bool {
	return m.showTranscript
}

// InputValue returns the text in the prompt field.
func (m Model) InputValue() string {
	return m.input.Value()
}
