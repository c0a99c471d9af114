package config

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// RemoteOptions holds parameters for fetching config from a config service.
type RemoteOptions struct {
	URL     string // full URL of the config document
	DeskID  string // sent as X-Desk-ID
	APIKey  string // sent as a bearer token when set
	DataDir string // local data directory, overrides the fetched value
}

// LoadFromURL fetches the desk configuration over HTTP and validates it.
// YAML is assumed when the response is served as YAML or the URL ends in
// .yaml/.yml; otherwise the body is parsed as JSON.
func LoadFromURL(ctx context.Context, opts RemoteOptions) (*Config, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("config: create request: %w", err)
	}
	if opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+opts.APIKey)
	}
	if opts.DeskID != "" {
		req.Header.Set("X-Desk-ID", opts.DeskID)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("config: fetch %s: %w", opts.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("config: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("config: fetch %s: HTTP %d: %s", opts.URL, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	format := formatOf(req.URL.Path)
	if strings.Contains(resp.Header.Get("Content-Type"), "yaml") {
		format = FormatYAML
	}

	cfg, err := Parse(body, format)
	if err != nil {
		return nil, fmt.Errorf("config: parse remote config: %w", err)
	}

	if opts.DataDir != "" {
		cfg.Desk.DataDir = opts.DataDir
	}
	if cfg.Desk.ID == "" {
		cfg.Desk.ID = opts.DeskID
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: remote: %w", err)
	}
	return cfg, nil
}
