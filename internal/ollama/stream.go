// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
package ollama

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// =============================================================================
// GENERATE STREAM
// =============================================================================

// ErrStream is wrapped by errors reported inside an otherwise successful stream.
var ErrStream = errors.New("stream error")

// GenerateStream reads the NDJSON body of a streaming /api/generate call.
//
// Each call to Next returns one chunk: every complete token line that is
// already buffered, so a chunk is never empty. Next returns io.EOF after the
// token with Done set, or when the body ends.
type GenerateStream struct {
	body    io.ReadCloser
	reader  *bufio.Reader
	done    bool
	pending error
}

// NewGenerateStream wraps a response body. Exposed so callers can stream
// from any NDJSON source.
func NewGenerateStream(body io.ReadCloser) *GenerateStream {
	return &GenerateStream{
		body:   body,
		reader: bufio.NewReader(body),
	}
}

// Next returns the next chunk of tokens.
func (s *GenerateStream) Next() ([]GenerateResponse, error) {
	if s.pending != nil {
		err := s.pending
		s.pending = nil
		return nil, err
	}
	if s.done {
		return nil, io.EOF
	}

	var chunk []GenerateResponse
	for {
		token, err := s.readToken()
		if err != nil {
			if len(chunk) > 0 {
				// Deliver what we have; report the error on the next call.
				s.pending = err
				return chunk, nil
			}
			return nil, err
		}
		if token == nil {
			if len(chunk) > 0 && !s.lineBuffered() {
				return chunk, nil
			}
			continue
		}

		chunk = append(chunk, *token)
		if token.Done {
			s.done = true
			return chunk, nil
		}
		if !s.lineBuffered() {
			return chunk, nil
		}
	}
}

// Close releases the underlying body.
func (s *GenerateStream) Close() error {
	return s.body.Close()
}

// readToken reads and parses a single line. It returns (nil, nil) for blank
// or malformed lines, which are skipped.
func (s *GenerateStream) readToken() (*GenerateResponse, error) {
	line, err := s.reader.ReadBytes('\n')
	if err != nil {
		if len(line) == 0 {
			return nil, err
		}
		// Process the last unterminated line; the next read reports EOF.
	}

	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, nil
	}

	var token GenerateResponse
	if err := json.Unmarshal(line, &token); err != nil {
		return nil, nil
	}
	if token.Error != "" {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: token.Error, Cause: ErrStream}
	}
	return &token, nil
}

// lineBuffered reports whether a complete line is already in the buffer.
func (s *GenerateStream) lineBuffered() bool {
	n := s.reader.Buffered()
	if n == 0 {
		return false
	}
	peek, err := s.reader.Peek(n)
	if err != nil {
		return false
	}
	return bytes.IndexByte(peek, '\n') >= 0
}
