// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package notify

import (
	"go.uber.org/zap"

	"github.com/jeranaias/rigchat/internal/storage"
)

// DebugMessage is the status line shown below the prompt.
type DebugMessage struct {
	Message string
	IsError bool
}

// CatalogUpdate carries a reloaded system prompt catalog. Err is set when the
// reload failed; Prompts is then nil.
type CatalogUpdate struct {
	Prompts map[string]string
	Err     error
}

// Channels bundles every notification queue. Build it once and share it by
// pointer.
type Channels struct {
	Idle         *Queue[bool]
	Debug        *Queue[DebugMessage]
	Interactions *Queue[storage.Log]
	Catalog      *Queue[CatalogUpdate]

	log *zap.Logger
}

// NewChannels creates the queues with DefaultCapacity. Send failures are
// written to log.
func NewChannels(log *zap.Logger) *Channels {
	return NewChannelsWithCapacity(DefaultCapacity, log)
}

// NewChannelsWithCapacity creates the queues with the given capacity.
func NewChannelsWithCapacity(capacity int, log *zap.Logger) *Channels {
	if log == nil {
		log = zap.NewNop()
	}
	return &Channels{
		Idle:         NewQueue[bool](capacity),
		Debug:        NewQueue[DebugMessage](capacity),
		Interactions: NewQueue[storage.Log](capacity),
		Catalog:      NewQueue[CatalogUpdate](capacity),
		log:          log,
	}
}

// SendIdle reports the busy state. Only false has an effect on the session.
func (c *Channels) SendIdle(busy bool) {
	if err := c.Idle.Send(busy); err != nil {
		c.log.Error("idle notification dropped", zap.Bool("busy", busy), zap.Error(err))
	}
}

// SendDebug queues a status message.
func (c *Channels) SendDebug(message string, isError bool) {
	if err := c.Debug.Send(DebugMessage{Message: message, IsError: isError}); err != nil {
		c.log.Error("debug notification dropped",
			zap.String("message", message), zap.Bool("is_error", isError), zap.Error(err))
	}
}

// SendError is SendDebug with IsError set.
func (c *Channels) SendError(message string) {
	c.SendDebug(message, true)
}

// SendInteraction queues a completed interaction for persistence. A full
// queue is reported on the debug queue when it has room.
func (c *Channels) SendInteraction(l storage.Log) {
	if err := c.Interactions.Send(l); err != nil {
		c.log.Error("interaction dropped", zap.String("time", l.Time), zap.Error(err))
		c.SendError("Failed to queue interaction for history")
	}
}

// SendCatalog queues a prompt catalog reload.
func (c *Channels) SendCatalog(u CatalogUpdate) {
	if err := c.Catalog.Send(u); err != nil {
		c.log.Warn("catalog update dropped", zap.Error(err))
	}
}

// Logger returns the logger used for dropped notifications.
func (c *Channels) Logger() *zap.Logger {
	return c.log
}
