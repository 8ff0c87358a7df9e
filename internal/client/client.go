// Package client talks to the task board REST API on behalf of one anonymous
// user.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/s1natex/taskboard/internal/identity"
	"github.com/s1natex/taskboard/internal/tasks"
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return "api error: " + e.Status
}

// Client calls the task API as the user its identity.Source names.
type Client struct {
	baseURL string
	http    *http.Client
	ids     identity.Source
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient. Attach a cookie jar here to
// have the user_id cookie sent alongside the header.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a client for the API rooted at baseURL, e.g.
// http://localhost:8080/api.
func New(baseURL string, ids identity.Source, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		ids:     ids,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ListTasks(ctx context.Context) ([]tasks.Task, error) {
	var out []tasks.Task
	if err := c.do(ctx, http.MethodGet, "/tasks", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateTask(ctx context.Context, t tasks.Task) (tasks.Ack, error) {
	var ack tasks.Ack
	err := c.do(ctx, http.MethodPost, "/tasks", t, &ack)
	return ack, err
}

func (c *Client) UpdateTask(ctx context.Context, id string, p tasks.Patch) (tasks.Ack, error) {
	var ack tasks.Ack
	err := c.do(ctx, http.MethodPut, "/tasks/"+url.PathEscape(id), p, &ack)
	return ack, err
}

func (c *Client) DeleteTask(ctx context.Context, id string) (tasks.Ack, error) {
	var ack tasks.Ack
	err := c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, &ack)
	return ack, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(identity.HeaderName, c.ids.UserID())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{StatusCode: resp.StatusCode, Status: statusText(resp)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// statusText strips the numeric code from resp.Status ("404 Not Found").
func statusText(resp *http.Response) string {
	if text, ok := strings.CutPrefix(resp.Status, fmt.Sprintf("%d ", resp.StatusCode)); ok && text != "" {
		return text
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return resp.Status
}
