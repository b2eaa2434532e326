// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading for rigchat.
//
// Configuration is read from ~/.rigchat/config.toml (or the --config path),
// laid over built-in defaults, then overridden by environment variables:
//
//	RIGCHAT_HOST, RIGCHAT_PORT, RIGCHAT_MODEL, RIGCHAT_FILTERING, RIGCHAT_LOGGING
//
// System prompts come from the [prompts] table merged with a JSON prompt file
// (paths.prompts_file); entries in the file win. PromptWatcher reloads the
// file when it changes.
//
// # Example
//
//	[server]
//	host = "127.0.0.1"
//	port = 11434
//
//	[generation]
//	model = "llama3.2"
//	system_prompt = "default"
//	temperature = 0.7
//
//	[settings]
//	filtering = true
//	logging = true
package config
