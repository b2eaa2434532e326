// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// Styler turns markdown source into terminal text.
type Styler interface {
	Style(source string) (string, error)
}

// PlainStyler returns the source unchanged.
type PlainStyler struct{}

// Style implements Styler.
func (PlainStyler) Style(source string) (string, error) {
	return source, nil
}

// GlamourStyler renders markdown with glamour.
type GlamourStyler struct {
	mu       sync.Mutex
	renderer *glamour.TermRenderer
}

// NewGlamourStyler creates a styler for a dark or light terminal wrapping at
// width columns.
func NewGlamourStyler(dark bool, width int) (*GlamourStyler, error) {
	style := "light"
	if dark {
		style = "dark"
	}
	if width <= 0 {
		width = 80
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return &GlamourStyler{renderer: r}, nil
}

// Style implements Styler.
func (g *GlamourStyler) Style(source string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	out, err := g.renderer.Render(source)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n"), nil
}
