// Package backend is the HTTP client for the workflow registry backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/starford/graphflow/internal/apperr"
	"github.com/starford/graphflow/internal/form"
	"github.com/starford/graphflow/internal/workflow"
)

// Client calls the backend endpoints relative to a base URL. It never retries.
type Client struct {
	base   string
	http   *http.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets a request timeout. Zero means none.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithLogger sets the logger used for failed calls.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base:   strings.TrimRight(baseURL, "/"),
		http:   &http.Client{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Procedures returns the graph-domain procedure keys (GET /gaf).
func (c *Client) Procedures(ctx context.Context) ([]string, error) {
	var keys []string
	if err := c.getJSON(ctx, "/gaf", &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

// ConfigSchema returns the configuration schema of a procedure (GET /configs/{key}).
func (c *Client) ConfigSchema(ctx context.Context, procedure string) (*form.Schema, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "/configs/"+url.PathEscape(procedure), &raw); err != nil {
		return nil, err
	}
	return form.Parse(raw)
}

// Transformation returns a workflow record (GET /transformation?id=).
func (c *Client) Transformation(ctx context.Context, id string) (*workflow.Record, error) {
	var rec workflow.Record
	if err := c.getJSON(ctx, "/transformation?id="+url.QueryEscape(id), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Transformations returns every workflow record keyed by resource id (GET /transformations).
func (c *Client) Transformations(ctx context.Context) (map[string]workflow.Record, error) {
	out := map[string]workflow.Record{}
	if err := c.getJSON(ctx, "/transformations", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveTransformation posts a record (POST /transformation). Only a 200 response
// counts as success; the response body is returned.
func (c *Client) SaveTransformation(ctx context.Context, rec *workflow.Record) (string, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("backend: encode workflow: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/transformation", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("backend: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		c.warn("POST /transformation", err)
		return "", fmt.Errorf("backend: POST /transformation: %v: %w", err, apperr.ErrBackend)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("backend: POST /transformation: status %d: %w", resp.StatusCode, apperr.ErrBackend)
		c.warn("POST /transformation", err)
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

// Graphs returns the resource ids of registered graph sources (GET /graphs), sorted.
func (c *Client) Graphs(ctx context.Context) ([]string, error) {
	var m map[string]json.RawMessage
	if err := c.getJSON(ctx, "/graphs", &m); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (c *Client) getJSON(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("backend: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.warn("GET "+path, err)
		return fmt.Errorf("backend: GET %s: %v: %w", path, err, apperr.ErrBackend)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("backend: GET %s: status %d: %w", path, resp.StatusCode, apperr.ErrBackend)
		if resp.StatusCode == http.StatusNotFound {
			err = fmt.Errorf("backend: GET %s: %w", path, apperr.ErrNotFound)
		}
		c.warn("GET "+path, err)
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		c.warn("GET "+path, err)
		return fmt.Errorf("backend: GET %s: decode: %v: %w", path, err, apperr.ErrBackend)
	}
	return nil
}

func (c *Client) warn(call string, err error) {
	c.logger.Warn("backend: request failed", slog.String("call", call), slog.String("error", err.Error()))
}
