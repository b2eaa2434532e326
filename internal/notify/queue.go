// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package notify

import (
	"errors"
	"sync"
)

// ErrQueueFull is returned when a non-blocking send finds no free capacity.
var ErrQueueFull = errors.New("notification queue full")

// DefaultCapacity is the buffer size of queues built by NewChannels.
const DefaultCapacity = 256

// =============================================================================
// QUEUE
// =============================================================================

// Queue is a bounded FIFO of notifications of one kind.
type Queue[T any] struct {
	ch chan T
}

// NewQueue creates a queue holding at most capacity undelivered values.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue[T]{ch: make(chan T, capacity)}
}

// Send enqueues v without blocking.
func (q *Queue[T]) Send(v T) error {
	select {
	case q.ch <- v:
		return nil
	default:
		return ErrQueueFull
	}
}

// TryRecv takes the oldest value if one is ready.
func (q *Queue[T]) TryRecv() (T, bool) {
	select {
	case v := <-q.ch:
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// Len reports the number of undelivered values.
func (q *Queue[T]) Len() int {
	return len(q.ch)
}

// =============================================================================
// SLOT
// =============================================================================

// Slot holds at most one value. Publish replaces any unread value, so a
// reader only ever sees the most recent one.
type Slot[T any] struct {
	mu    sync.Mutex
	value T
	full  bool
	// replaced counts values overwritten before they were read
	replaced uint64
}

// NewSlot creates an empty slot.
func NewSlot[T any]() *Slot[T] {
	return &Slot[T]{}
}

// Publish stores v, discarding an unread previous value.
func (s *Slot[T]) Publish(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full {
		s.replaced++
	}
	s.value = v
	s.full = true
}

// Take removes and returns the value if there is one.
func (s *Slot[T]) Take() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.value, s.full
	var zero T
	s.value = zero
	s.full = false
	return v, ok
}

// Replaced returns how many values were superseded without being read.
func (s *Slot[T]) Replaced() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaced
}
