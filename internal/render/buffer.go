// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"
	"sync"
)

// =============================================================================
// ACCUMULATION BUFFER
// =============================================================================

// Buffer accumulates the raw text of the current response.
//
// Thread-safety: the renderer worker appends while the UI loop reads
// snapshots, so every operation takes the mutex.
type Buffer struct {
	mu     sync.Mutex
	buffer strings.Builder
	tokens int
}

// NewBuffer creates an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Reset discards the accumulated text. Called once per submission.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buffer.Reset()
	b.tokens = 0
}

// Append adds one token and returns the full text so far.
func (b *Buffer) Append(token string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buffer.WriteString(token)
	b.tokens++
	return b.buffer.String()
}

// Snapshot returns the accumulated text.
func (b *Buffer) Snapshot() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffer.String()
}

// Tokens returns how many tokens were appended since the last Reset.
func (b *Buffer) Tokens() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokens
}
