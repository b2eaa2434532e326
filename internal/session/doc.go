// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the state of one chat session.
//
// State is created once at startup from configuration and lives for the
// process. The poll driver, the UI setters and the generation orchestrator
// mutate it; the view reads it through Snapshot.
//
// # Key Types
//
//   - State: prompt, busy flag, selection, generation parameters, flags
//   - Transcript: append-only list of user and assistant turns
//   - Catalog: named system prompts
//   - ServiceStatus: latest health probe result
//   - Inventory: model names seen on the server, first-seen order
//
// # Busy Flag
//
// Only MarkBusy sets the flag and only ApplyIdle(false) clears it. Callers
// check Busy before MarkBusy so a second submission is never started while
// one is in flight.
package session
