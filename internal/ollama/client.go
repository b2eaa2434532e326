// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the Ollama client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeNotRunning
	ErrTypeTimeout
	ErrTypeModelNotFound
	ErrTypeUnsupported
	ErrTypeConnection
	ErrTypeInvalidResponse
	ErrTypeDecode
)

// Sentinel errors for easy checking.
var (
	ErrNotRunning    = &ClientError{Type: ErrTypeNotRunning, Message: "Ollama is not running"}
	ErrTimeout       = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrModelNotFound = &ClientError{Type: ErrTypeModelNotFound, Message: "model not found"}
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the Ollama client.
type ClientConfig struct {
	// Host and Port address the Ollama server (default: 127.0.0.1:11434)
	// Note: Uses explicit IPv4 address instead of localhost to avoid IPv6 resolution issues on Windows
	Host string
	Port int

	// Timeout for non-streaming requests (default: 30s)
	Timeout time.Duration

	// PullTimeout bounds a non-streaming model pull (default: 30m)
	PullTimeout time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		Host:        "127.0.0.1",
		Port:        11434,
		Timeout:     30 * time.Second,
		PullTimeout: 30 * time.Minute,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the Ollama API.
// The Client is safe for concurrent use; the address may be changed while
// requests are in flight and applies to the next request.
type Client struct {
	mu         sync.RWMutex
	config     ClientConfig
	httpClient *http.Client
	// SECURITY: TLS not required - Ollama runs locally over HTTP
	streamClient *http.Client
}

// NewClient creates a new Ollama client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a new Ollama client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config
	defaults := DefaultConfig()

	// Fill in defaults for any zero values
	if cfg.Host == "" {
		cfg.Host = defaults.Host
	}
	if cfg.Port == 0 {
		cfg.Port = defaults.Port
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.PullTimeout == 0 {
		cfg.PullTimeout = defaults.PullTimeout
	}

	return &Client{
		config:       cfg,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		streamClient: &http.Client{},
	}
}

// BaseURL returns the URL requests are currently sent to.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return "http://" + net.JoinHostPort(c.config.Host, strconv.Itoa(c.config.Port))
}

// SetHost changes the server address for subsequent requests.
func (c *Client) SetHost(host string, port int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if host != "" {
		c.config.Host = host
	}
	if port > 0 {
		c.config.Port = port
	}
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// Version queries /api/version.
// A transport failure or non-success status is reported as ErrTypeNotRunning
// or ErrTypeInvalidResponse; a body that cannot be decoded as ErrTypeDecode.
func (c *Client) Version(ctx context.Context) (*VersionResponse, error) {
	resp, err := c.do(ctx, c.httpClient, http.MethodGet, "/api/version", nil)
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: "unexpected status from Ollama: " + resp.Status,
		}
	}

	var result VersionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeDecode, Message: "failed to decode version", Cause: err}
	}
	return &result, nil
}

// =============================================================================
// MODEL OPERATIONS
// =============================================================================

// ListModels retrieves all locally installed models from Ollama.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	resp, err := c.do(ctx, c.httpClient, http.MethodGet, "/api/tags", nil)
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: "failed to list models: " + resp.Status,
		}
	}

	var result ListModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeDecode, Message: "failed to decode response", Cause: err}
	}

	return result.Models, nil
}

// Pull downloads a model and blocks until Ollama reports the final status.
func (c *Client) Pull(ctx context.Context, model string) (*PullResponse, error) {
	c.mu.RLock()
	timeout := c.config.PullTimeout
	c.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.do(ctx, c.streamClient, http.MethodPost, "/api/pull", PullRequest{Model: model, Stream: false})
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, "pull request failed")
	}

	var result PullResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeDecode, Message: "failed to decode response", Cause: err}
	}
	return &result, nil
}

// =============================================================================
// STREAMING GENERATION
// =============================================================================

// GenerateStream opens a streaming /api/generate request.
// The returned stream must be closed by the caller. The stream is bounded by
// ctx; there is no per-request timeout because generation can be long.
func (c *Client) GenerateStream(ctx context.Context, req GenerateRequest) (*GenerateStream, error) {
	req.Stream = true

	resp, err := c.do(ctx, c.streamClient, http.MethodPost, "/api/generate", req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer drainAndClose(resp.Body)
		return nil, statusError(resp, "stream request failed")
	}

	return NewGenerateStream(resp.Body), nil
}

// =============================================================================
// REQUEST HELPERS
// =============================================================================

func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL()+path, reader)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, ErrTimeout
		}
		return nil, &ClientError{Type: ErrTypeNotRunning, Message: "Ollama is not running", Cause: err}
	}
	return resp, nil
}

// statusError maps a non-success response to a ClientError, reading the
// Ollama error body when there is one.
func statusError(resp *http.Response, fallback string) error {
	var ollamaErr OllamaError
	msg := ""
	if err := json.NewDecoder(resp.Body).Decode(&ollamaErr); err == nil {
		msg = ollamaErr.Error
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		if msg == "" {
			return ErrModelNotFound
		}
		return &ClientError{Type: ErrTypeModelNotFound, Message: msg}
	case strings.Contains(msg, "does not support"):
		return &ClientError{Type: ErrTypeUnsupported, Message: msg}
	case msg != "":
		return &ClientError{Type: ErrTypeInvalidResponse, Message: msg}
	default:
		return &ClientError{Type: ErrTypeInvalidResponse, Message: fallback + ": " + resp.Status}
	}
}

// =============================================================================
// ERROR CLASSIFICATION
// =============================================================================

func errorType(err error) ErrorType {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type
	}
	return ErrTypeUnknown
}

// IsModelNotFound checks if an error is a model not found error.
func IsModelNotFound(err error) bool {
	return errorType(err) == ErrTypeModelNotFound
}

// IsNotRunning checks if an error indicates Ollama is not reachable.
func IsNotRunning(err error) bool {
	return errorType(err) == ErrTypeNotRunning
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	return errorType(err) == ErrTypeTimeout
}

// IsUnsupported checks if the model rejected a requested feature (e.g. thinking).
func IsUnsupported(err error) bool {
	return errorType(err) == ErrTypeUnsupported
}

// IsDecodeError checks if the server answered but the body was malformed.
func IsDecodeError(err error) bool {
	return errorType(err) == ErrTypeDecode
}

// Helper to drain response body
func drainAndClose(r io.ReadCloser) {
	io.Copy(io.Discard, r)
	r.Close()
}
