package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/teople1/teople1/internal/pluginspec"
	"github.com/teople1/teople1/internal/routes"
	"github.com/teople1/teople1/internal/server/events"
)

// DefaultBaseURL is the daemon address used when none is configured.
const DefaultBaseURL = "http://127.0.0.1:8000"

const apiKeyHeader = "X-Teople1-API-Key"

// Client wraps REST access to the teople1d API.
type Client struct {
	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client
}

// New creates a client with the provided base URL (e.g. http://127.0.0.1:8000).
// apiKey may be empty when the daemon runs without one.
func New(rawURL, apiKey string) (*Client, error) {
	if rawURL == "" {
		rawURL = DefaultBaseURL
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("client: parse url: %w", err)
	}
	return &Client{
		baseURL: parsed,
		apiKey:  strings.TrimSpace(apiKey),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("client: http %d", e.StatusCode)
	}
	return fmt.Sprintf("client: http %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Collection is the daemon's current route collection.
type Collection struct {
	Generation uint64         `json:"generation"`
	Routes     []routes.Route `json:"routes"`
}

// Plugin summarises an installed plugin.
type Plugin struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	Enabled    bool   `json:"enabled"`
	ModuleDir  string `json:"module_dir"`
	RouteCount int    `json:"route_count"`
	APIPrefix  string `json:"api_prefix,omitempty"`
}

// Reload is one entry of the daemon's reload history.
type Reload struct {
	ID         int64     `json:"id"`
	RouteCount int       `json:"route_count"`
	Plugins    []string  `json:"plugins"`
	ReloadedAt time.Time `json:"reloaded_at"`
}

// HostEvent is a route or plugin change streamed from the daemon.
type HostEvent = events.HostEvent

func (c *Client) ListRoutes(ctx context.Context) (*Collection, error) {
	var out Collection
	if err := c.call(ctx, http.MethodGet, "/api/v1/routes", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CheckRoutes(ctx context.Context) (*routes.DuplicateReport, error) {
	var out routes.DuplicateReport
	if err := c.call(ctx, http.MethodGet, "/api/v1/routes/check", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReloadRoutes asks the daemon to rerun the route-extension phase.
func (c *Client) ReloadRoutes(ctx context.Context) (*Collection, error) {
	var out Collection
	if err := c.call(ctx, http.MethodPost, "/api/v1/routes/reload", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ReloadHistory(ctx context.Context, limit int) ([]Reload, error) {
	path := "/api/v1/routes/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []Reload
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListPlugins(ctx context.Context) ([]Plugin, error) {
	var out []Plugin
	if err := c.call(ctx, http.MethodGet, "/api/v1/plugins", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetPlugin returns nil without error when the plugin does not exist.
func (c *Client) GetPlugin(ctx context.Context, name string) (*pluginspec.Manifest, error) {
	var out pluginspec.Manifest
	if err := c.call(ctx, http.MethodGet, "/api/v1/plugins/"+url.PathEscape(name), nil, &out); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (c *Client) SetPluginEnabled(ctx context.Context, name string, enabled bool) error {
	action := "disable"
	if enabled {
		action = "enable"
	}
	return c.call(ctx, http.MethodPost, "/api/v1/plugins/"+url.PathEscape(name)+"/"+action, nil, nil)
}

func (c *Client) InstallPlugin(ctx context.Context, manifest pluginspec.Manifest) (*Plugin, error) {
	var out Plugin
	if err := c.call(ctx, http.MethodPost, "/api/v1/plugins", manifest, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RemovePlugin(ctx context.Context, name string) error {
	return c.call(ctx, http.MethodDelete, "/api/v1/plugins/"+url.PathEscape(name), nil, nil)
}

// WatchEvents streams host events and invokes handler for each payload until
// the context is cancelled or the server closes the connection.
func (c *Client) WatchEvents(ctx context.Context, handler func(HostEvent)) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/events", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	// The stream outlives the default request timeout.
	streamClient := *c.httpClient
	streamClient.Timeout = 0
	resp, err := streamClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: watch events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode}
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}

		var event HostEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return fmt.Errorf("client: decode event: %w", err)
		}
		if handler != nil {
			handler(event)
		}
	}

	if err := scanner.Err(); err != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return fmt.Errorf("client: event stream error: %w", err)
		}
	}
	return nil
}

func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("client: parse path: %w", err)
	}
	resolved := c.baseURL.ResolveReference(ref)
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, fmt.Errorf("client: encode body: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, resolved.String(), &buf)
	if err != nil {
		return nil, fmt.Errorf("client: new request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var body struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
			apiErr.Message = body.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}
