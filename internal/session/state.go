// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/jeranaias/rigchat/internal/notify"
	"github.com/jeranaias/rigchat/internal/render"
)

// Temperature bounds accepted by SetTemperature.
const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
)

// Params are the generation parameters sent with every request.
type Params struct {
	Temperature float64
	Think       bool
}

// Options seed a new State.
type Options struct {
	Model        string
	SystemPrompt string
	Params       Params
	Filtering    bool
	Logging      bool
	UseContext   bool
	Prompts      map[string]string
	Debug        notify.DebugMessage
}

// =============================================================================
// STATE
// =============================================================================

// State is the session shared between the UI loop and the generation
// pipeline. The buffer, transcript, status and inventory carry their own
// locks; the remaining fields are guarded by mu.
type State struct {
	mu           sync.RWMutex
	busy         bool
	prompt       string
	document     render.Document
	model        *string
	systemPrompt *string
	params       Params
	filtering    bool
	logging      bool
	useContext   bool
	debug        notify.DebugMessage
	dispatchedAt time.Time
	catalog      Catalog

	buffer     *render.Buffer
	transcript *Transcript
	status     *ServiceStatus
	inventory  *Inventory
}

// Snapshot is a copy of State for one frame of the view.
type Snapshot struct {
	Busy         bool
	Prompt       string
	Document     render.Document
	Model        *string
	SystemPrompt *string
	Params       Params
	Filtering    bool
	Logging      bool
	UseContext   bool
	Debug        notify.DebugMessage
	DispatchedAt time.Time
	Status       Status
	Models       []string
	Prompts      []string
}

// NewState builds the session from opts. Empty names mean no selection.
func NewState(opts Options) *State {
	return &State{
		model:        optional(opts.Model),
		systemPrompt: optional(opts.SystemPrompt),
		params:       opts.Params,
		filtering:    opts.Filtering,
		logging:      opts.Logging,
		useContext:   opts.UseContext,
		debug:        opts.Debug,
		catalog:      NewCatalog(opts.Prompts),
		buffer:       render.NewBuffer(),
		transcript:   NewTranscript(),
		status:       &ServiceStatus{},
		inventory:    &Inventory{},
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Snapshot copies the state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	snap := Snapshot{
		Busy:         s.busy,
		Prompt:       s.prompt,
		Document:     s.document,
		Model:        s.model,
		SystemPrompt: s.systemPrompt,
		Params:       s.params,
		Filtering:    s.filtering,
		Logging:      s.logging,
		UseContext:   s.useContext,
		Debug:        s.debug,
		DispatchedAt: s.dispatchedAt,
		Prompts:      s.catalog.Names(),
	}
	s.mu.RUnlock()

	snap.Status, _ = s.status.Get()
	snap.Models = s.inventory.Names()
	return snap
}

// Buffer returns the accumulation buffer of the current response.
func (s *State) Buffer() *render.Buffer { return s.buffer }

// Transcript returns the conversation record.
func (s *State) Transcript() *Transcript { return s.transcript }

// ServiceStatus returns the health probe result holder.
func (s *State) ServiceStatus() *ServiceStatus { return s.status }

// Inventory returns the model inventory.
func (s *State) Inventory() *Inventory { return s.inventory }

// =============================================================================
// BUSY FLAG
// =============================================================================

// Busy reports whether a generation is in flight.
func (s *State) Busy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.busy
}

// MarkBusy sets the busy flag. It never clears it.
func (s *State) MarkBusy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = true
}

// ApplyIdle applies an idle notification. Only false has an effect.
func (s *State) ApplyIdle(busy bool) {
	if busy {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
}

// =============================================================================
// GETTERS
// =============================================================================

// Model returns the selected model, nil when none is selected.
func (s *State) Model() *string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

// SystemPrompt returns the selected system prompt name.
func (s *State) SystemPrompt() *string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.systemPrompt
}

// Params returns the generation parameters.
func (s *State) Params() Params {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params
}

// Filtering reports whether output is filtered.
func (s *State) Filtering() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filtering
}

// Logging reports whether interactions are persisted.
func (s *State) Logging() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.logging
}

// UseContext reports whether prior turns are sent with the prompt.
func (s *State) UseContext() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.useContext
}

// Prompt returns the text in the prompt field.
func (s *State) Prompt() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prompt
}

// Debug returns the visible status message.
func (s *State) Debug() notify.DebugMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.debug
}

// Document returns the latest rendered response.
func (s *State) Document() render.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.document
}

// DispatchedAt returns when the last accepted submission started.
func (s *State) DispatchedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dispatchedAt
}

// Catalog returns the system prompt catalog.
func (s *State) Catalog() Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog
}

// =============================================================================
// SETTERS
// =============================================================================

// SetModel selects a model. An empty name clears the selection.
func (s *State) SetModel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = optional(name)
}

// SetSystemPrompt selects a catalog entry. An empty name clears the
// selection. The name is not checked against the catalog here.
func (s *State) SetSystemPrompt(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.systemPrompt = optional(name)
}

// SetTemperature sets the sampling temperature.
func (s *State) SetTemperature(t float64) error {
	if t < MinTemperature || t > MaxTemperature {
		return fmt.Errorf("temperature %.2f out of range [%.0f, %.0f]", t, MinTemperature, MaxTemperature)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params.Temperature = t
	return nil
}

// SetThink enables or disables the thinking request flag.
func (s *State) SetThink(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params.Think = v
}

// SetFiltering turns the content filter on or off.
func (s *State) SetFiltering(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filtering = v
}

// SetLogging turns interaction persistence on or off.
func (s *State) SetLogging(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logging = v
}

// SetUseContext turns context mode on or off.
func (s *State) SetUseContext(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.useContext = v
}

// SetPrompt replaces the prompt field text.
func (s *State) SetPrompt(p string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompt = p
}

// SetDebug replaces the visible status message.
func (s *State) SetDebug(d notify.DebugMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debug = d
}

// SetDocument replaces the rendered response.
func (s *State) SetDocument(d render.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.document = d
}

// SetDispatchedAt records when a submission was accepted.
func (s *State) SetDispatchedAt(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatchedAt = t
}

// ReplaceCatalog swaps in a reloaded catalog. The current selection is kept
// even when it no longer resolves.
func (s *State) ReplaceCatalog(c Catalog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = c
}
