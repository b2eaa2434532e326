// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/rigchat/internal/notify"
)

// =============================================================================
// COMMAND HANDLER REGISTRY
// =============================================================================

// CommandHandler handles one slash command. args excludes the command name.
type CommandHandler func(m *Model, args []string) tea.Cmd

// commandHandlers maps command names to their handler functions.
var commandHandlers = map[string]CommandHandler{
	"help": handleHelpCommand,
	"?":    handleHelpCommand,

	// Selection and parameters
	"model":  handleModelCommand,
	"system": handleSystemCommand,
	"temp":   handleTempCommand,
	"host":   handleHostCommand,

	// Toggles
	"think":   handleThinkCommand,
	"filter":  handleFilterCommand,
	"log":     handleLogCommand,
	"context": handleContextCommand,

	// Listings and view
	"models":  handleModelsCommand,
	"prompts": handlePromptsCommand,
	"history": handleHistoryCommand,
	"clear":   handleClearCommand,
}

// commandHelp is the one-line usage shown by /help.
const commandHelp = "/model NAME | /system NAME | /temp F | /think | /filter | /log | /context | /host H:P | /models | /prompts | /history | /clear"

// IsCommand reports whether input is a slash command.
func IsCommand(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), "/")
}

// ParseCommand splits "/name arg..." into its name and arguments.
func ParseCommand(input string) (string, []string) {
	fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(input), "/"))
	if len(fields) == 0 {
		return "", nil
	}
	return strings.ToLower(fields[0]), fields[1:]
}

// runCommand executes a slash command and clears the input field.
func (m *Model) runCommand(input string) tea.Cmd {
	name, args := ParseCommand(input)
	m.clearInput()

	handler, ok := commandHandlers[name]
	if !ok {
		m.reportError(fmt.Sprintf("Unknown command: /%s (try /help)", name))
		return nil
	}
	m.log.Debug("command", zap.String("name", name), zap.Strings("args", args))
	return handler(m, args)
}

func (m *Model) report(message string) {
	m.state.SetDebug(notify.DebugMessage{Message: message})
}

func (m *Model) reportError(message string) {
	m.state.SetDebug(notify.DebugMessage{Message: message, IsError: true})
}

// =============================================================================
// HANDLERS
// =============================================================================

func handleHelpCommand(m *Model, _ []string) tea.Cmd {
	m.report(commandHelp)
	return nil
}

func handleModelCommand(m *Model, args []string) tea.Cmd {
	if len(args) == 0 {
		if current := m.state.Model(); current != nil {
			m.report("Model: " + *current)
		} else {
			m.report("No model selected, use /models to list available models")
		}
		return nil
	}

	name := args[0]
	m.state.SetModel(name)
	if !m.state.Inventory().Contains(name) {
		m.report(fmt.Sprintf("Model set to %s (not reported by the server)", name))
		return nil
	}
	m.report("Model set to " + name)
	return nil
}

func handleSystemCommand(m *Model, args []string) tea.Cmd {
	if len(args) == 0 {
		if current := m.state.SystemPrompt(); current != nil {
			m.report("System prompt: " + *current)
		} else {
			m.report("No system prompt selected")
		}
		return nil
	}

	name := args[0]
	if name == "none" {
		m.state.SetSystemPrompt("")
		m.report("System prompt cleared")
		return nil
	}
	if _, ok := m.state.Catalog().Resolve(name); !ok {
		m.reportError(fmt.Sprintf("Unknown system prompt %q, use /prompts to list them", name))
		return nil
	}
	m.state.SetSystemPrompt(name)
	m.report("System prompt set to " + name)
	return nil
}

func handleTempCommand(m *Model, args []string) tea.Cmd {
	if len(args) == 0 {
		m.report(fmt.Sprintf("Temperature: %.2f", m.state.Params().Temperature))
		return nil
	}
	t, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		m.reportError(fmt.Sprintf("Invalid temperature %q", args[0]))
		return nil
	}
	if err := m.state.SetTemperature(t); err != nil {
		m.reportError(err.Error())
		return nil
	}
	m.report(fmt.Sprintf("Temperature set to %.2f", t))
	return nil
}

func handleHostCommand(m *Model, args []string) tea.Cmd {
	if len(args) == 0 {
		m.reportError("Usage: /host HOST:PORT")
		return nil
	}
	host, portStr, err := net.SplitHostPort(args[0])
	if err != nil {
		m.reportError(fmt.Sprintf("Invalid address %q: %v", args[0], err))
		return nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		m.reportError(fmt.Sprintf("Invalid port %q", portStr))
		return nil
	}

	m.client.SetHost(host, port)
	// Results from the old server no longer apply
	m.state.Inventory().Clear()
	m.state.ServiceStatus().Set(unknownStatus)
	m.driver.ProbeNow()

	m.log.Info("server address changed", zap.String("host", host), zap.Int("port", port))
	m.report("Server set to " + net.JoinHostPort(host, portStr))
	return nil
}

func handleThinkCommand(m *Model, _ []string) tea.Cmd {
	v := !m.state.Params().Think
	m.state.SetThink(v)
	m.report("Thinking " + onOff(v))
	return nil
}

func handleFilterCommand(m *Model, _ []string) tea.Cmd {
	v := !m.state.Filtering()
	m.state.SetFiltering(v)
	m.report("Filtering " + onOff(v))
	return nil
}

func handleLogCommand(m *Model, _ []string) tea.Cmd {
	v := !m.state.Logging()
	m.state.SetLogging(v)
	m.report("Logging " + onOff(v))
	return nil
}

func handleContextCommand(m *Model, _ []string) tea.Cmd {
	v := !m.state.UseContext()
	m.state.SetUseContext(v)
	m.report("Context " + onOff(v))
	return nil
}

func handleModelsCommand(m *Model, _ []string) tea.Cmd {
	m.driver.ProbeNow()
	names := m.state.Inventory().Names()
	if len(names) == 0 {
		m.report("No models available yet, refreshing")
		return nil
	}
	m.report("Models: " + strings.Join(names, ", "))
	return nil
}

func handlePromptsCommand(m *Model, _ []string) tea.Cmd {
	names := append([]string(nil), m.state.Catalog().Names()...)
	if len(names) == 0 {
		m.report("No system prompts loaded")
		return nil
	}
	sort.Strings(names)
	m.report("Prompts: " + strings.Join(names, ", "))
	return nil
}

func handleHistoryCommand(m *Model, _ []string) tea.Cmd {
	m.showTranscript = !m.showTranscript
	m.refreshViewport()
	if m.showTranscript {
		m.report(fmt.Sprintf("Showing transcript (%d entries)", m.state.Transcript().Len()))
	} else {
		m.report("Showing response")
	}
	return nil
}

func handleClearCommand(m *Model, _ []string) tea.Cmd {
	// The input was already cleared by runCommand
	return nil
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
