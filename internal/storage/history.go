// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/jeranaias/rigchat/internal/util"
)

// =============================================================================
// LOG TYPES
// =============================================================================

// Log is one completed interaction. It is immutable once created.
type Log struct {
	Filtering    bool     `json:"filtering"`
	Time         string   `json:"time"`
	Prompt       string   `json:"prompt"`
	Response     []string `json:"response"`
	Model        *string  `json:"model"`
	SystemPrompt *string  `json:"systemprompt"`
}

// NewLog creates a Log stamped with the current local time.
func NewLog(filtering bool, model *string, response []string, systemPrompt *string, prompt string) Log {
	segments := make([]string, len(response))
	copy(segments, response)

	return Log{
		Filtering:    filtering,
		Time:         time.Now().Format(time.RFC3339Nano),
		Prompt:       prompt,
		Response:     segments,
		Model:        model,
		SystemPrompt: systemPrompt,
	}
}

// History is the persisted document: a header followed by every log.
type History struct {
	BeganLogging string `json:"began_logging"`
	Version      string `json:"version"`
	Filtering    bool   `json:"filtering"`
	Logs         []Log  `json:"logs"`
}

// =============================================================================
// HISTORY STORE
// =============================================================================

// HistoryStore keeps the interaction log in memory and rewrites the whole
// file after every append. The file is never patched in place.
type HistoryStore struct {
	mu      sync.Mutex
	path    string
	history History
}

// NewHistoryStore creates a store with an empty log and a header stamped now.
func NewHistoryStore(path, version string, filtering bool) *HistoryStore {
	return &HistoryStore{
		path: path,
		history: History{
			BeganLogging: time.Now().Format(time.RFC3339Nano),
			Version:      version,
			Filtering:    filtering,
			Logs:         []Log{},
		},
	}
}

// Path returns the file the store writes to.
func (s *HistoryStore) Path() string {
	return s.path
}

// Init writes the header-only document, replacing what the file held before.
func (s *HistoryStore) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked()
}

// Append adds a log and rewrites the file. The log stays in memory even when
// the write fails, so the next successful write includes it.
func (s *HistoryStore) Append(l Log) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Logs = append(s.history.Logs, l)
	return s.writeLocked()
}

// Len returns the number of logs held in memory.
func (s *HistoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history.Logs)
}

// Snapshot returns a copy of the in-memory document.
func (s *HistoryStore) Snapshot() History {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.history
	h.Logs = append([]Log(nil), s.history.Logs...)
	return h
}

func (s *HistoryStore) writeLocked() error {
	data, err := json.MarshalIndent(&s.history, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	// RELIABILITY: Atomic write with fsync prevents a torn history file
	if err := util.AtomicWriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	return nil
}

// LoadHistory reads a history document from disk.
func LoadHistory(path string) (*History, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var h History
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return &h, nil
}
