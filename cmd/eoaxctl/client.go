package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/veesix-networks/eoax/internal/monitor"
)

// Client reads operational state from the daemon's monitor API.
type Client struct {
	base string
	http *http.Client
}

func NewClient(server string) *Client {
	if !strings.Contains(server, "://") {
		server = "http://" + server
	}
	return &Client{
		base: strings.TrimRight(server, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Server() string {
	return c.base
}

// Show fetches /api/show/<path> and decodes its data into out.
func (c *Client) Show(ctx context.Context, path string, query url.Values, out any) error {
	target := c.base + "/api/show/" + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr monitor.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", path, apiErr.Error)
		}
		return fmt.Errorf("%s: %s", path, resp.Status)
	}

	wrapper := monitor.ShowResponse{Data: out}
	if err := json.NewDecoder(resp.Body).Decode(&wrapper); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
