// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/rigchat/internal/render"
	"github.com/jeranaias/rigchat/internal/session"
	"github.com/jeranaias/rigchat/internal/ui/styles"
	"github.com/jeranaias/rigchat/internal/util"
)

// View renders the chat screen.
// Layout: header, settings, response viewport, info, debug, input, help.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	snap := m.state.Snapshot()
	sections := []string{
		m.renderHeader(snap),
		m.renderSettings(snap),
		m.viewport.View(),
		m.renderInfo(snap, time.Now()),
		m.renderDebug(snap),
		m.theme.InputContainer.Width(m.width).Render(m.input.View()),
		m.theme.ShortcutDesc.Render(m.keyMap.FormatShortHelp()),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader(snap session.Snapshot) string {
	title := m.theme.HeaderTitle.Render("rigchat")
	status := m.renderStatus(snap.Status)
	line := title + "  " + status
	return m.theme.Header.Width(m.width).Render(line)
}

func (m Model) renderStatus(s session.Status) string {
	switch {
	case s.Kind == session.StatusUnknown:
		return m.theme.StatusPending.Render(styles.StatusIndicators.Pending + " " + s.String())
	case s.IsOnline():
		return m.theme.StatusOnline.Render(styles.StatusIndicators.Success + " " + s.String())
	default:
		return m.theme.StatusOffline.Render(styles.StatusIndicators.Error + " " + s.String())
	}
}

func (m Model) renderSettings(snap session.Snapshot) string {
	field := func(label, value string) string {
		return m.theme.Label.Render(label+": ") + value
	}
	parts := []string{
		field("Model", m.theme.Value.Render(orDash(snap.Model))),
		field("System", m.theme.Value.Render(orDash(snap.SystemPrompt))),
		field("Temp", m.theme.Value.Render(fmt.Sprintf("%.2f", snap.Params.Temperature))),
		field("Think", m.theme.Toggle(snap.Params.Think)),
		field("Filter", m.theme.Toggle(snap.Filtering)),
		field("Log", m.theme.Toggle(snap.Logging)),
		field("Context", m.theme.Toggle(snap.UseContext)),
	}
	line := strings.Join(parts, "  ")
	if m.width > 0 && lipgloss.Width(line) > m.width {
		// Drop styling rather than wrap past one line
		line = util.TruncateWidth(plainSettings(snap), m.width)
	}
	return line
}

func plainSettings(snap session.Snapshot) string {
	return fmt.Sprintf("Model: %s  System: %s  Temp: %.2f  Think: %s  Filter: %s  Log: %s  Context: %s",
		orDash(snap.Model), orDash(snap.SystemPrompt), snap.Params.Temperature,
		onOff(snap.Params.Think), onOff(snap.Filtering), onOff(snap.Logging), onOff(snap.UseContext))
}

func (m Model) renderInfo(snap session.Snapshot, now time.Time) string {
	if snap.DispatchedAt.IsZero() {
		return m.theme.Info.Render(fmt.Sprintf("%d models available", len(snap.Models)))
	}
	elapsed := formatElapsed(now.Sub(snap.DispatchedAt))
	if snap.Busy {
		return m.spinner.View() + " " + m.theme.Info.Render("Generating, "+elapsed+" since dispatch")
	}
	return m.theme.Info.Render("Idle, " + elapsed + " since last dispatch")
}

func (m Model) renderDebug(snap session.Snapshot) string {
	msg := snap.Debug.Message
	if msg == "" {
		return ""
	}
	if m.width > 0 {
		msg = util.TruncateWidth(util.FirstLine(msg), m.width)
	}
	if snap.Debug.IsError {
		return m.theme.DebugError.Render(msg)
	}
	return m.theme.DebugInfo.Render(msg)
}

// content is the text shown in the viewport.
func (m Model) content() string {
	if m.showTranscript {
		return m.renderTranscript()
	}
	doc := m.state.Document()
	if doc.Empty() {
		return m.theme.Placeholder.Render("No response yet.")
	}
	if doc.Source == render.PlaceholderText {
		return m.theme.Placeholder.Render(doc.View())
	}
	return m.theme.Document.Render(doc.View())
}

func (m Model) renderTranscript() string {
	entries := m.state.Transcript().Entries()
	if len(entries) == 0 {
		return m.theme.Placeholder.Render("Transcript is empty.")
	}
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		label := m.theme.UserTurn
		if e.Role == session.RoleAssistant {
			label = m.theme.Assistant
		}
		b.WriteString(label.Render(e.Role.String() + ":"))
		b.WriteString("\n")
		b.WriteString(e.Text)
	}
	return b.String()
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

// formatElapsed renders a duration as 850ms, 3.2s or 2m05s.
func formatElapsed(d time.Duration) string {
	switch {
	case d < 0:
		return "0ms"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		mins := int(d / time.Minute)
		secs := int((d % time.Minute) / time.Second)
		return fmt.Sprintf("%dm%02ds", mins, secs)
	}
}
