// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// =============================================================================
// PROMPT CATALOG FILE
// =============================================================================

// LoadPrompts reads a JSON object mapping prompt names to bodies.
func LoadPrompts(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var prompts map[string]string
	if err := json.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("failed to read %s (bad formatting): %w", path, err)
	}
	if prompts == nil {
		prompts = map[string]string{}
	}
	return prompts, nil
}

// MergePrompts combines the inline [prompts] table with the prompt file.
// Entries from the file win.
func MergePrompts(inline, file map[string]string) map[string]string {
	out := make(map[string]string, len(inline)+len(file))
	for name, body := range inline {
		out[name] = body
	}
	for name, body := range file {
		out[name] = body
	}
	return out
}

// Catalog returns the merged catalog for cfg. A missing prompt file is not
// an error; a file that can't be read or parsed is returned as the error
// alongside the inline prompts.
func (c *Config) Catalog() (map[string]string, error) {
	file, err := LoadPrompts(c.Paths.PromptsFile)
	if err != nil {
		if _, statErr := os.Stat(c.Paths.PromptsFile); os.IsNotExist(statErr) {
			return MergePrompts(c.Prompts, nil), nil
		}
		return MergePrompts(c.Prompts, nil), err
	}
	return MergePrompts(c.Prompts, file), nil
}
