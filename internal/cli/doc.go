// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the one-shot commands of
// rigchat.
//
// # Usage
//
//	cmd, args, err := cli.Parse()
//	switch cmd {
//	case cli.CmdStatus:
//	    err = cli.HandleStatus(ctx, os.Stdout, client)
//	case cli.CmdTUI:
//	    // start the chat screen
//	}
//
// Global flags (--config, --model, --host, --port) may appear anywhere on
// the command line. Handlers return errors; ExitCode maps them to the
// process exit status.
package cli
