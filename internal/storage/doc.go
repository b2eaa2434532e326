// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists completed interactions.
//
// The history file is the append-only interaction log: a header written at
// startup followed by every completed interaction. It is rewritten in full,
// atomically, after each append; the in-memory log survives a failed write.
//
// # Key Types
//
//   - Log: one completed interaction (prompt, filtered response segments,
//     model, system prompt, filtering flag)
//   - HistoryStore: in-memory log plus full-file rewrite
//   - Archive: optional SQLite mirror that outlives history file resets
//
// # Usage
//
//	store := storage.NewHistoryStore("history.json", "0.3.0", true)
//	if err := store.Init(); err != nil {
//	    // report, keep running
//	}
//	err := store.Append(storage.NewLog(true, &model, segments, nil, prompt))
package storage
