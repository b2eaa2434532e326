// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package poll implements the fixed-rate driver of the UI loop.
//
// Tick is called once per period from the UI goroutine. It launches health
// and inventory probes on their tick counts and drains at most one value of
// each notification kind into the session. Tick never blocks on the network.
package poll

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/rigchat/internal/notify"
	"github.com/jeranaias/rigchat/internal/ollama"
	"github.com/jeranaias/rigchat/internal/render"
	"github.com/jeranaias/rigchat/internal/session"
	"github.com/jeranaias/rigchat/internal/storage"
)

// Default tick schedule at a 200ms period.
const (
	DefaultInterval      = 200 * time.Millisecond
	DefaultInventoryTick = 5
	DefaultHealthTick    = 25
	DefaultMaxTick       = 100
	DefaultProbeTimeout  = 5 * time.Second
)

// MsgListFailed is reported when the model listing fails.
const MsgListFailed = "Error occurred while listing models"

// Prober queries the inference server. *ollama.Client implements it.
type Prober interface {
	Version(ctx context.Context) (*ollama.VersionResponse, error)
	ListModels(ctx context.Context) ([]ollama.ModelInfo, error)
}

// Recorder mirrors completed interactions. *storage.Archive implements it.
type Recorder interface {
	Record(ctx context.Context, l storage.Log) error
}

// Schedule sets on which counter values the probes fire.
type Schedule struct {
	InventoryTick int
	HealthTick    int
	MaxTick       int
}

// DefaultSchedule returns the default probe schedule.
func DefaultSchedule() Schedule {
	return Schedule{
		InventoryTick: DefaultInventoryTick,
		HealthTick:    DefaultHealthTick,
		MaxTick:       DefaultMaxTick,
	}
}

// Deps are the collaborators of a Driver. Archive is optional.
type Deps struct {
	Prober       Prober
	State        *session.State
	Channels     *notify.Channels
	Slot         *notify.Slot[render.Document]
	History      *storage.HistoryStore
	Archive      Recorder
	Schedule     Schedule
	ProbeTimeout time.Duration
	Logger       *zap.Logger
}

// Driver runs the per-tick work.
type Driver struct {
	ctx      context.Context
	prober   Prober
	state    *session.State
	ch       *notify.Channels
	slot     *notify.Slot[render.Document]
	history  *storage.HistoryStore
	archive  Recorder
	schedule Schedule
	timeout  time.Duration
	log      *zap.Logger

	counter int
	probing atomic.Bool
	wg      sync.WaitGroup
}

// New creates a driver. Probes are cancelled when ctx is done.
func New(ctx context.Context, deps Deps) *Driver {
	s := deps.Schedule
	def := DefaultSchedule()
	if s.MaxTick <= 0 {
		s.MaxTick = def.MaxTick
	}
	if s.InventoryTick <= 0 {
		s.InventoryTick = def.InventoryTick
	}
	if s.HealthTick <= 0 {
		s.HealthTick = def.HealthTick
	}
	if deps.ProbeTimeout <= 0 {
		deps.ProbeTimeout = DefaultProbeTimeout
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &Driver{
		ctx:      ctx,
		prober:   deps.Prober,
		state:    deps.State,
		ch:       deps.Channels,
		slot:     deps.Slot,
		history:  deps.History,
		archive:  deps.Archive,
		schedule: s,
		timeout:  deps.ProbeTimeout,
		log:      deps.Logger,
	}
}

// Counter returns the current tick count.
func (d *Driver) Counter() int {
	return d.counter
}

// Tick advances the counter and does one round of work.
func (d *Driver) Tick() {
	if d.counter > d.schedule.MaxTick {
		d.counter = 0
	}
	d.counter++

	if d.counter == d.schedule.HealthTick {
		d.launch("health", d.probeHealth)
	}
	if d.counter == d.schedule.InventoryTick {
		d.launch("inventory", d.probeInventory)
	}

	d.drainDocument()
	d.drainIdle()
	d.drainDebug()
	d.drainInteraction()
	d.drainCatalog()
}

// ProbeNow launches both probes right away, subject to the same
// one-at-a-time guard as scheduled probes. It reports whether they started.
func (d *Driver) ProbeNow() bool {
	return d.launch("refresh", func(ctx context.Context) {
		d.probeHealth(ctx)
		d.probeInventory(ctx)
	})
}

// Wait blocks until running probes finish.
func (d *Driver) Wait() {
	d.wg.Wait()
}

// =============================================================================
// PROBES
// =============================================================================

func (d *Driver) launch(name string, probe func(ctx context.Context)) bool {
	if !d.probing.CompareAndSwap(false, true) {
		d.log.Debug("probe skipped, another is running", zap.String("probe", name))
		return false
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.probing.Store(false)
		defer func() {
			if r := recover(); r != nil {
				d.log.Error("probe panic", zap.String("probe", name), zap.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
		defer cancel()
		probe(ctx)
	}()
	return true
}

func (d *Driver) probeHealth(ctx context.Context) {
	status := healthStatus(d.prober.Version(ctx))
	d.state.ServiceStatus().Set(status)
	d.log.Debug("health probe", zap.String("status", status.String()))
}

// healthStatus maps a version probe result to one Status.
func healthStatus(v *ollama.VersionResponse, err error) session.Status {
	switch {
	case err == nil && v != nil && v.Version != "":
		return session.Online(v.Version)
	case err == nil:
		return session.OnlineUnknownVersion()
	case ollama.IsDecodeError(err):
		return session.OnlineParseError()
	default:
		return session.Offline()
	}
}

func (d *Driver) probeInventory(ctx context.Context) {
	models, err := d.prober.ListModels(ctx)
	inv := d.state.Inventory()
	if err != nil {
		inv.Clear()
		d.log.Warn("model listing failed", zap.Error(err))
		d.ch.SendError(MsgListFailed)
		return
	}

	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, m.Name)
	}
	if added := inv.Merge(names); added > 0 {
		d.log.Info("models discovered", zap.Int("added", added), zap.Int("total", len(inv.Names())))
	}
}

// =============================================================================
// DRAINS
// =============================================================================

func (d *Driver) drainDocument() {
	if doc, ok := d.slot.Take(); ok {
		d.state.SetDocument(doc)
	}
}

func (d *Driver) drainIdle() {
	if busy, ok := d.ch.Idle.TryRecv(); ok {
		d.state.ApplyIdle(busy)
	}
}

func (d *Driver) drainDebug() {
	if msg, ok := d.ch.Debug.TryRecv(); ok {
		d.state.SetDebug(msg)
	}
}

func (d *Driver) drainInteraction() {
	l, ok := d.ch.Interactions.TryRecv()
	if !ok {
		return
	}

	if d.history != nil {
		if err := d.history.Append(l); err != nil {
			d.log.Error("history write failed", zap.String("path", d.history.Path()), zap.Error(err))
			d.state.SetDebug(notify.DebugMessage{
				Message: "Failed to write to " + filepath.Base(d.history.Path()),
				IsError: true,
			})
		}
	}

	if d.archive != nil {
		ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
		defer cancel()
		if err := d.archive.Record(ctx, l); err != nil {
			d.log.Error("archive write failed", zap.Error(err))
			d.state.SetDebug(notify.DebugMessage{Message: "Failed to write to archive", IsError: true})
		}
	}
}

func (d *Driver) drainCatalog() {
	u, ok := d.ch.Catalog.TryRecv()
	if !ok {
		return
	}
	if u.Err != nil {
		d.log.Warn("prompt reload failed", zap.Error(u.Err))
		d.state.SetDebug(notify.DebugMessage{Message: fmt.Sprintf("Failed to reload prompts: %v", u.Err), IsError: true})
		return
	}
	d.state.ReplaceCatalog(session.NewCatalog(u.Prompts))
	d.log.Info("prompts reloaded", zap.Int("count", len(u.Prompts)))
}
