// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
package ollama

import (
	"strconv"
	"time"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Options contains model parameters for inference.
type Options struct {
	// Sampling parameters
	Temperature float64 `json:"temperature"`           // 0.0-2.0
	TopK        int     `json:"top_k,omitempty"`       // Default 40
	TopP        float64 `json:"top_p,omitempty"`       // 0.0-1.0, default 0.9
	NumCtx      int     `json:"num_ctx,omitempty"`     // Context window size
	NumPredict  int     `json:"num_predict,omitempty"` // Max tokens to generate, -1 for unlimited
	Seed        int     `json:"seed,omitempty"`
}

// GenerateRequest is the request body for /api/generate endpoint.
type GenerateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Stream  bool     `json:"stream"`
	System  string   `json:"system,omitempty"`
	Think   bool     `json:"think,omitempty"`
	Options *Options `json:"options,omitempty"`
}

// PullRequest is the request body for /api/pull endpoint.
type PullRequest struct {
	Model  string `json:"model"`
	Stream bool   `json:"stream"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// GenerateResponse is one token object from the /api/generate stream.
type GenerateResponse struct {
	Model              string    `json:"model"`
	CreatedAt          time.Time `json:"created_at"`
	Response           string    `json:"response"`
	Thinking           string    `json:"thinking,omitempty"`
	Done               bool      `json:"done"`
	DoneReason         string    `json:"done_reason,omitempty"`
	TotalDuration      int64     `json:"total_duration,omitempty"`
	LoadDuration       int64     `json:"load_duration,omitempty"`
	PromptEvalCount    int       `json:"prompt_eval_count,omitempty"`
	PromptEvalDuration int64     `json:"prompt_eval_duration,omitempty"`
	EvalCount          int       `json:"eval_count,omitempty"`
	EvalDuration       int64     `json:"eval_duration,omitempty"`
	Error              string    `json:"error,omitempty"`
}

// VersionResponse is the response from /api/version endpoint.
type VersionResponse struct {
	Version string `json:"version"`
}

// PullResponse is the final status of a non-streaming /api/pull.
type PullResponse struct {
	Status string `json:"status"`
}

// =============================================================================
// MODEL TYPES
// =============================================================================

// ModelInfo contains information about a model.
type ModelInfo struct {
	Name       string       `json:"name"`
	Model      string       `json:"model,omitempty"`
	ModifiedAt time.Time    `json:"modified_at"`
	Size       int64        `json:"size"`
	Digest     string       `json:"digest"`
	Details    ModelDetails `json:"details,omitempty"`
}

// ModelDetails contains detailed information about a model.
type ModelDetails struct {
	Format            string   `json:"format"`
	Family            string   `json:"family"`
	Families          []string `json:"families"`
	ParameterSize     string   `json:"parameter_size"`
	QuantizationLevel string   `json:"quantization_level"`
}

// ListModelsResponse is the response from /api/tags endpoint.
type ListModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// =============================================================================
// ERROR TYPES
// =============================================================================

// OllamaError represents an error body from the Ollama API.
type OllamaError struct {
	Error string `json:"error"`
}

// =============================================================================
// HELPER METHODS
// =============================================================================

// TokensPerSecond calculates the generation speed from a final token.
func (r *GenerateResponse) TokensPerSecond() float64 {
	if r.EvalDuration == 0 {
		return 0
	}
	seconds := float64(r.EvalDuration) / 1e9
	return float64(r.EvalCount) / seconds
}

// TotalTime returns the total generation time.
func (r *GenerateResponse) TotalTime() time.Duration {
	return time.Duration(r.TotalDuration)
}

// FormatSize formats the model size in human-readable form.
func (m *ModelInfo) FormatSize() string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case m.Size >= GB:
		return formatFloat(float64(m.Size)/GB) + " GB"
	case m.Size >= MB:
		return formatFloat(float64(m.Size)/MB) + " MB"
	case m.Size >= KB:
		return formatFloat(float64(m.Size)/KB) + " KB"
	default:
		return formatFloat(float64(m.Size)) + " B"
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 1, 64)
}
