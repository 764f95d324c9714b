// Package integrations connects agents to external tool servers over
// HTTP. A tool server advertises its tools at GET /v1/tools and runs
// them at POST /v1/tools/call; remote tools are merged into the agent's
// registry behind the same Tool interface local tools use.
package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to one remote tool server.
type Client struct {
	name       string
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for a named tool server.
func NewClient(name, baseURL, token string) *Client {
	return &Client{
		name:    name,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Name returns the configured server name.
func (c *Client) Name() string { return c.name }

// RemoteToolDef is a tool advertised by a server.
type RemoteToolDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ListTools fetches the server's advertised tools.
func (c *Client) ListTools(ctx context.Context) ([]RemoteToolDef, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/v1/tools", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.auth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list tools from %s: %w", c.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tool server %s (status %d): %s", c.name, resp.StatusCode, string(body))
	}

	var listing struct {
		Tools []RemoteToolDef `json:"tools"`
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("parse tool listing: %w", err)
	}
	return listing.Tools, nil
}

// CallTool runs a named tool on the server and returns its result text.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"name":      name,
		"arguments": args,
	})
	if err != nil {
		return "", fmt.Errorf("marshal call: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/tools/call", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.auth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call %s on %s: %w", name, c.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tool server %s (status %d): %s", c.name, resp.StatusCode, string(body))
	}

	var result struct {
		Result string `json:"result"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parse call result: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("tool %s failed: %s", name, result.Error)
	}
	return result.Result, nil
}

func (c *Client) auth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
