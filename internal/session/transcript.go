// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"strings"
	"sync"
)

// Role identifies who produced a transcript entry.
type Role int

const (
	RoleUser Role = iota
	RoleAssistant
)

// String returns the label used when serializing the transcript.
func (r Role) String() string {
	if r == RoleAssistant {
		return "Assistant"
	}
	return "User"
}

// Entry is one turn of the conversation.
type Entry struct {
	Role Role
	Text string
}

// Transcript is the append-only conversation record.
type Transcript struct {
	mu      sync.Mutex
	entries []Entry
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append adds an entry.
func (t *Transcript) Append(role Role, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, Entry{Role: role, Text: text})
}

// Entries returns a copy of every entry.
func (t *Transcript) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Entry(nil), t.entries...)
}

// Len returns the number of entries.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Serialize renders the transcript as "User: ..." and "Assistant: ..."
// lines, the form prefixed to prompts in context mode.
func (t *Transcript) Serialize() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var sb strings.Builder
	for _, e := range t.entries {
		sb.WriteString(e.Role.String())
		sb.WriteString(": ")
		sb.WriteString(e.Text)
		sb.WriteByte('\n')
	}
	return sb.String()
}
