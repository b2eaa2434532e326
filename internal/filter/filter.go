// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package filter provides the content filter applied to streamed tokens.
//
// The filter is opaque to the generation pipeline: it maps a token to a
// token. Filtering a token twice yields the same result as filtering once.
package filter

import (
	goaway "github.com/TwiN/go-away"
	"golang.org/x/text/unicode/norm"
)

// Func transforms one token of model output.
type Func func(string) string

// None returns the token unchanged.
func None(s string) string {
	return s
}

// Censor masks profanity. Text is NFC-normalized first so composed and
// decomposed forms of the same word are treated alike.
func Censor(s string) string {
	if s == "" {
		return s
	}
	return goaway.Censor(norm.NFC.String(s))
}

// For returns Censor when enabled is true and None otherwise.
func For(enabled bool) Func {
	if enabled {
		return Censor
	}
	return None
}
