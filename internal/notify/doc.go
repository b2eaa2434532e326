// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package notify carries messages from background goroutines to the poll loop.
//
// # Key Types
//
//   - Queue: bounded FIFO with non-blocking send and receive
//   - Slot: latest-value-wins holder; a new value replaces an unread one
//   - Channels: the bundle of queues built once at startup and shared by
//     pointer with every goroutine that reports back to the UI
//
// Every receive is "take if ready" so the poll loop never blocks. Ordering
// is FIFO within one queue; nothing is guaranteed across queues.
package notify
