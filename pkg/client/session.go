// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
)

// SessionClient manages the debugger process.
//
// Access this client through [Client.Session]:
//
//	status, err := client.Session.Start(ctx)
type SessionClient struct {
	c *Client
}

// Get returns the session status.
func (s *SessionClient) Get(ctx context.Context) (*Status, error) {
	return s.status(s.c.get(ctx, "/api/v1/session"))
}

// Start spawns the debugger and waits for its first prompt.
func (s *SessionClient) Start(ctx context.Context) (*Status, error) {
	return s.status(s.c.post(ctx, "/api/v1/session/start"))
}

// Stop shuts the debugger down.
func (s *SessionClient) Stop(ctx context.Context) (*Status, error) {
	return s.status(s.c.post(ctx, "/api/v1/session/stop"))
}

func (s *SessionClient) status(data json.RawMessage, err error) (*Status, error) {
	if err != nil {
		return nil, err
	}
	var st Status
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse status: %w", err)
	}
	return &st, nil
}
