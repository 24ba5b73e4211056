// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package client provides a Go client library for the gdbmi API.
//
// gdbmi runs a debugger under its Machine Interface and serves the parsed
// records over HTTP. This client gives typed access to every endpoint.
//
// # Getting Started
//
// Create a client pointing to your gdbmi server:
//
//	c := client.New("http://localhost:7410")
//
// The client provides access to different API resources through sub-clients:
//
//	// Check the debugger
//	status, err := c.Session.Get(ctx)
//
//	// Set a breakpoint and wait for its result record
//	resp, err := c.Commands.Send(ctx, "-break-insert main", "")
//
//	// Collect async and stream records that arrived meanwhile
//	pending, err := c.Commands.Responses(ctx, 0)
//
// # API Versioning
//
// gdbmi uses date-based API versioning. By default, the client uses the
// latest API version. You can pin to a specific version for stability:
//
//	c := client.New("http://localhost:7410", client.WithVersion("2026-10-01"))
//
// The version is sent via the GDBMI-Version HTTP header on each request.
//
// # Error Handling
//
// API errors are returned as *APIError values, which include an error code
// and message:
//
//	_, err := c.Commands.Send(ctx, "-exec-next", "")
//	if client.IsCode(err, client.CodeBusy) {
//	    // another command is in flight
//	}
//
// # Context Support
//
// All API methods accept a context.Context for cancellation and timeouts.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a gdbmi API client.
//
// A Client provides access to the API through resource-specific
// sub-clients. Use [New] to create a Client instance.
//
// The Client is safe for concurrent use by multiple goroutines.
type Client struct {
	baseURL    string
	version    string
	timeout    time.Duration
	httpClient *http.Client

	// Session starts, stops and inspects the debugger process.
	Session *SessionClient

	// Commands sends MI commands and drains queued records.
	Commands *CommandClient

	// Target reads and writes the debugged program's terminal.
	Target *TargetClient

	// Events provides access to the event history and live stream.
	Events *EventClient
}

// Option configures a [Client]. Options are passed to [New] to customize
// client behavior.
type Option func(*Client)

// New creates a new API client with the given base URL and options.
//
// The baseURL should be the root URL of the server (e.g., "http://localhost:7410").
// Any trailing slash is automatically removed.
//
// By default, the client uses:
//   - The latest API version ([LatestVersion])
//   - A 30-second HTTP timeout
//
// Use options like [WithVersion], [WithTimeout], or [WithHTTPClient] to customize.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		version: LatestVersion,
		timeout: 30 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}

	// Initialize sub-clients
	c.Session = &SessionClient{c: c}
	c.Commands = &CommandClient{c: c}
	c.Target = &TargetClient{c: c}
	c.Events = &EventClient{c: c}

	return c
}

// WithVersion sets the API version to use for all requests.
//
// Versions are dates (e.g., "2026-10-01"). Pinning to a specific version
// ensures API compatibility as the server evolves. See [LatestVersion].
func WithVersion(v string) Option {
	return func(c *Client) {
		c.version = v
	}
}

// WithHTTPClient sets a custom HTTP client for making requests. Its own
// timeout applies and [WithTimeout] is ignored.
//
// This is useful for talking to a server that uses a private certificate.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the HTTP client timeout for all requests.
//
// The default timeout is 30 seconds. It should exceed the server's command
// timeout, since Send blocks until the result record arrives.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// Version returns the API version being used.
func (c *Client) Version() string {
	return c.version
}

// BaseURL returns the base URL of the API.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// apiResponse is the standard API response envelope.
type apiResponse struct {
	Data  json.RawMessage `json:"data"`
	Error *APIError       `json:"error"`
}

// Error codes returned by the server.
const (
	CodeBusy          = "BUSY"
	CodeTimeout       = "TIMEOUT"
	CodeNotRunning    = "NOT_RUNNING"
	CodeExited        = "EXITED"
	CodeConflict      = "CONFLICT"
	CodeBadRequest    = "BAD_REQUEST"
	CodeDebuggerError = "DEBUGGER_ERROR"
)

// APIError represents an error response from the API.
//
// API errors include a machine-readable Code and a human-readable Message.
// Use [IsCode] to test for a specific code.
type APIError struct {
	// Code is a machine-readable error code such as [CodeBusy].
	Code string `json:"code"`

	// Message is a human-readable description of the error.
	Message string `json:"message"`

	// Details contains additional error information, if available.
	Details map[string]interface{} `json:"details,omitempty"`

	// StatusCode is the HTTP status of the response.
	StatusCode int `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// IsCode reports whether err is an *APIError carrying code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

func (c *Client) get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *Client) post(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, path, nil)
}

func (c *Client) postJSON(ctx context.Context, path string, body interface{}) (json.RawMessage, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(data))
}

// do performs an HTTP request and unwraps the response envelope.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(VersionHeader, c.version)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	return parseResponse(resp)
}

// parseResponse reads an API response. Error envelopes become *APIError;
// failures without an envelope become plain errors.
func parseResponse(resp *http.Response) (json.RawMessage, error) {
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, bytes.TrimSpace(respBody))
		}
		// Return raw body for non-envelope responses
		return respBody, nil
	}

	if apiResp.Error != nil {
		apiResp.Error.StatusCode = resp.StatusCode
		return nil, apiResp.Error
	}
	if resp.StatusCode >= 400 {
		return nil, &APIError{
			Message:    fmt.Sprintf("request failed with status %d", resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
	}

	return apiResp.Data, nil
}
