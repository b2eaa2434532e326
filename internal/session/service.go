// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"sync"
	"time"
)

// =============================================================================
// SERVICE STATUS
// =============================================================================

// StatusKind is the outcome of a health probe.
type StatusKind int

const (
	StatusUnknown StatusKind = iota
	StatusOffline
	StatusOnline
	StatusOnlineUnknownVersion
	StatusOnlineParseError
)

// Status is one health probe result.
type Status struct {
	Kind    StatusKind
	Version string
}

// Offline is an unreachable or failing server.
func Offline() Status { return Status{Kind: StatusOffline} }

// Online is a server that reported version v.
func Online(v string) Status { return Status{Kind: StatusOnline, Version: v} }

// OnlineUnknownVersion is a server whose reply had no version.
func OnlineUnknownVersion() Status { return Status{Kind: StatusOnlineUnknownVersion} }

// OnlineParseError is a server whose reply could not be decoded.
func OnlineParseError() Status { return Status{Kind: StatusOnlineParseError} }

// String returns the status line text.
func (s Status) String() string {
	switch s.Kind {
	case StatusOnline:
		return "Online (v" + s.Version + ")"
	case StatusOnlineUnknownVersion:
		return "Online (unknown version)"
	case StatusOnlineParseError:
		return "Online (version parse error)"
	case StatusOffline:
		return "Offline"
	default:
		return "Checking..."
	}
}

// IsOnline reports whether the server answered.
func (s Status) IsOnline() bool {
	return s.Kind == StatusOnline || s.Kind == StatusOnlineUnknownVersion || s.Kind == StatusOnlineParseError
}

// ServiceStatus holds the latest probe result. Probe goroutines write it.
type ServiceStatus struct {
	mu      sync.Mutex
	status  Status
	checked time.Time
}

// Set records a probe result.
func (s *ServiceStatus) Set(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.checked = time.Now()
}

// Get returns the latest result and when it was recorded.
func (s *ServiceStatus) Get() (Status, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.checked
}

// =============================================================================
// MODEL INVENTORY
// =============================================================================

// Inventory is the set of model names reported by the server, kept in the
// order they were first seen.
type Inventory struct {
	mu    sync.Mutex
	names []string
	seen  map[string]struct{}
}

// Merge adds names not already present and returns how many were added.
func (inv *Inventory) Merge(names []string) int {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	if inv.seen == nil {
		inv.seen = make(map[string]struct{})
	}
	added := 0
	for _, name := range names {
		if _, ok := inv.seen[name]; ok {
			continue
		}
		inv.seen[name] = struct{}{}
		inv.names = append(inv.names, name)
		added++
	}
	return added
}

// Clear empties the inventory.
func (inv *Inventory) Clear() {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.names = nil
	inv.seen = nil
}

// Names returns the models in first-seen order.
func (inv *Inventory) Names() []string {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return append([]string(nil), inv.names...)
}

// Contains reports whether name has been seen.
func (inv *Inventory) Contains(name string) bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	_, ok := inv.seen[name]
	return ok
}
