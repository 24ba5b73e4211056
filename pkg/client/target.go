// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// TargetClient reads and writes the debugged program's terminal.
type TargetClient struct {
	c *Client
}

// Output returns up to lines of the program's most recent output. Zero uses
// the server default.
func (t *TargetClient) Output(ctx context.Context, lines int) (*TargetOutput, error) {
	path := "/api/v1/target"
	if lines > 0 {
		path += "?lines=" + strconv.Itoa(lines)
	}
	data, err := t.c.get(ctx, path)
	if err != nil {
		return nil, err
	}

	var out TargetOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse output: %w", err)
	}
	return &out, nil
}

// Input writes data to the program's terminal and returns the bytes written.
func (t *TargetClient) Input(ctx context.Context, data string) (int, error) {
	raw, err := t.c.postJSON(ctx, "/api/v1/target/input", map[string]string{"data": data})
	if err != nil {
		return 0, err
	}

	var result struct {
		Written int `json:"written"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return 0, fmt.Errorf("failed to parse result: %w", err)
	}
	return result.Written, nil
}
