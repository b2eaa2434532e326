// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by rigchat packages.
//
//   - AtomicWriteFile: crash-safe full-file replacement with fsync
//   - TruncateRunes, TruncateWidth: UTF-8 and column aware truncation
//   - FirstLine: one-line previews of multi-line text
package util
