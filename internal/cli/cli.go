// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing for rigchat.
package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jeranaias/rigchat/internal/config"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdStatus
	CmdPrompts
	CmdHistory
	CmdPull
	CmdVersion
	CmdHelp
)

// String returns the command name as typed.
func (c Command) String() string {
	switch c {
	case CmdTUI:
		return "tui"
	case CmdStatus:
		return "status"
	case CmdPrompts:
		return "prompts"
	case CmdHistory:
		return "history"
	case CmdPull:
		return "pull"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	default:
		return "unknown"
	}
}

// DefaultHistoryLimit is the number of archived interactions listed by
// "rigchat history" without --limit.
const DefaultHistoryLimit = 20

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags; zero values leave the config untouched
	ConfigPath string
	Model      string
	Host       string
	Port       int

	// history
	Limit int

	// pull
	PullModel string

	// Raw args (remaining after flag parsing)
	Raw []string
}

const usageText = `rigchat - streaming chat client for a local Ollama server

Usage:
  rigchat [tui]              Start the chat TUI (default)
  rigchat status, s          Show server version and installed models
  rigchat prompts            List system prompts
  rigchat history [--limit N]
                             List archived interactions (default: 20)
  rigchat pull <model>       Download a model through the server
  rigchat version            Show version information
  rigchat help               Show this help

Global Flags:
  --config PATH              Config file (default: ~/.rigchat/config.toml)
  --model NAME               Preselect a model
  --host HOST                Ollama host (default: 127.0.0.1)
  --port PORT                Ollama port (default: 11434)

TUI Commands:
  /model NAME   /system NAME   /temp F    /host H:P
  /think        /filter        /log       /context
  /models       /prompts       /history   /clear

Environment:
  RIGCHAT_HOST, RIGCHAT_PORT, RIGCHAT_MODEL, RIGCHAT_FILTERING, RIGCHAT_LOGGING
  NO_COLOR disables colored output.
`

// Parse parses os.Args.
func Parse() (Command, Args, error) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses args without the program name.
func ParseArgs(args []string) (Command, Args, error) {
	remaining, parsed, err := parseGlobalFlags(args)
	if err != nil {
		return CmdHelp, parsed, err
	}

	// If no remaining args, default to TUI
	if len(remaining) == 0 {
		return CmdTUI, parsed, nil
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsed.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, parsed, nil

	case "status", "s":
		return CmdStatus, parsed, nil

	case "prompts":
		return CmdPrompts, parsed, nil

	case "history", "hist":
		if err := parseHistoryArgs(&parsed, remaining); err != nil {
			return CmdHistory, parsed, err
		}
		return CmdHistory, parsed, nil

	case "pull":
		if len(remaining) == 0 {
			return CmdPull, parsed, NewValidationErrorWithExample("model", "", "pull needs a model name", "rigchat pull llama3.2")
		}
		parsed.PullModel = remaining[0]
		return CmdPull, parsed, nil

	case "version", "--version", "-V":
		return CmdVersion, parsed, nil

	case "help", "--help", "-h":
		return CmdHelp, parsed, nil

	default:
		return CmdHelp, parsed, NewValidationError("command", cmd, "unknown command")
	}
}

// parseGlobalFlags extracts the global flags from anywhere in args.
func parseGlobalFlags(args []string) ([]string, Args, error) {
	var remaining []string
	var parsed Args

	for i := 0; i < len(args); i++ {
		arg := args[i]

		name, value, hasValue := splitFlag(arg)
		switch name {
		case "--config", "--model", "--host", "--port":
		default:
			remaining = append(remaining, arg)
			continue
		}

		if !hasValue {
			if i+1 >= len(args) {
				return nil, parsed, NewValidationError(strings.TrimPrefix(name, "--"), "", "flag needs a value")
			}
			i++
			value = args[i]
		}

		switch name {
		case "--config":
			parsed.ConfigPath = value
		case "--model":
			parsed.Model = value
		case "--host":
			parsed.Host = value
		case "--port":
			port, err := strconv.Atoi(value)
			if err != nil || port < 1 || port > 65535 {
				return nil, parsed, NewValidationErrorWithExample("port", value, "must be a number in 1-65535", "--port 11434")
			}
			parsed.Port = port
		}
	}

	return remaining, parsed, nil
}

// splitFlag splits "--name=value" into its parts.
func splitFlag(arg string) (name, value string, hasValue bool) {
	if !strings.HasPrefix(arg, "--") {
		return arg, "", false
	}
	if idx := strings.IndexByte(arg, '='); idx > 0 {
		return arg[:idx], arg[idx+1:], true
	}
	return arg, "", false
}

func parseHistoryArgs(args *Args, remaining []string) error {
	args.Limit = DefaultHistoryLimit
	for i := 0; i < len(remaining); i++ {
		name, value, hasValue := splitFlag(remaining[i])
		switch name {
		case "--limit", "-n":
			if !hasValue {
				if i+1 >= len(remaining) {
					return NewValidationError("limit", "", "flag needs a value")
				}
				i++
				value = remaining[i]
			}
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return NewValidationErrorWithExample("limit", value, "must be a positive number", "rigchat history --limit 50")
			}
			args.Limit = n
		default:
			return NewValidationError("argument", remaining[i], "unexpected argument to history")
		}
	}
	return nil
}

// ApplyOverrides copies the global flags over cfg. Flags win over the file
// and the environment.
func ApplyOverrides(cfg *config.Config, args Args) {
	if args.Model != "" {
		cfg.Generation.Model = args.Model
	}
	if args.Host != "" {
		cfg.Server.Host = args.Host
	}
	if args.Port != 0 {
		cfg.Server.Port = args.Port
	}
}

// PrintUsage writes the help text.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, usageText)
}

// PrintVersion writes the version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "rigchat %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
}
