// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// CommandClient sends MI commands and drains parsed records.
//
// Access this client through [Client.Commands]:
//
//	resp, err := client.Commands.Send(ctx, "-exec-run", "")
type CommandClient struct {
	c *Client
}

// Send writes one MI command and blocks until its result record arrives.
// tag is echoed on every record the command causes.
func (cc *CommandClient) Send(ctx context.Context, command, tag string) (*Response, error) {
	body := map[string]string{"command": command}
	if tag != "" {
		body["tag"] = tag
	}
	data, err := cc.c.postJSON(ctx, "/api/v1/commands", body)
	if err != nil {
		return nil, err
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &resp, nil
}

// Responses removes and returns queued records, oldest first. A limit of
// zero drains the whole queue.
func (cc *CommandClient) Responses(ctx context.Context, limit int) ([]Response, error) {
	path := "/api/v1/responses"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	data, err := cc.c.get(ctx, path)
	if err != nil {
		return nil, err
	}

	var resps []Response
	if err := json.Unmarshal(data, &resps); err != nil {
		return nil, fmt.Errorf("failed to parse responses: %w", err)
	}
	return resps, nil
}
