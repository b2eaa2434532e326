// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns a stream of response tokens into displayable
// documents.
//
// A Worker runs per submission. For every token it appends to the shared
// Buffer, re-parses the entire buffer with goldmark into Blocks, styles it
// with glamour, and publishes the Document to a notify.Slot where only the
// newest unread value is kept.
package render
