// Package api talks to the remote todos REST service.
//
// Endpoints:
//
//	GET    /todos?userId={id}
//	POST   /todos
//	PATCH  /todos/{id}
//	DELETE /todos/{id}
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/idilsaglam/tada/internal/logging"
	"github.com/idilsaglam/tada/internal/model"
	"github.com/sirupsen/logrus"
)

const (
	DefaultTimeout  = 10 * time.Second
	requestIDHeader = "X-Request-ID"
)

// Client is a thin JSON client for the todos collection. Safe for concurrent use.
type Client struct {
	base  *url.URL
	http  *http.Client
	token string
	log   logrus.FieldLogger
}

// Option tweaks a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets a per-request timeout on the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithToken sends "Authorization: Bearer <token>" on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// WithLogger routes request logs to l.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient parses baseURL (e.g. "https://example.com/api") and builds a client.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}
	c := &Client{
		base: u,
		http: &http.Client{Timeout: DefaultTimeout},
		log:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// List returns every todo owned by userID.
func (c *Client) List(ctx context.Context, userID int) ([]model.Todo, error) {
	q := url.Values{"userId": {strconv.Itoa(userID)}}
	var todos []model.Todo
	if err := c.do(ctx, http.MethodGet, "/todos", q, nil, &todos); err != nil {
		return nil, err
	}
	if todos == nil {
		todos = []model.Todo{}
	}
	return todos, nil
}

// Create posts a new todo and returns it with the server-assigned id.
func (c *Client) Create(ctx context.Context, todo model.Todo) (model.Todo, error) {
	body := createRequest{Title: todo.Title, UserID: todo.UserID, Completed: todo.Completed}
	var created model.Todo
	if err := c.do(ctx, http.MethodPost, "/todos", nil, body, &created); err != nil {
		return model.Todo{}, err
	}
	if !created.Saved() {
		return model.Todo{}, fmt.Errorf("%w: create returned no id", ErrTransport)
	}
	return created, nil
}

// Update patches the todo's fields. The response body is ignored.
func (c *Client) Update(ctx context.Context, todo model.Todo) error {
	return c.do(ctx, http.MethodPatch, todoPath(todo.ID), nil, todo, nil)
}

// Delete removes the todo with the given id.
func (c *Client) Delete(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, todoPath(id), nil, nil, nil)
}

type createRequest struct {
	Title     string `json:"title"`
	UserID    int    `json:"userId"`
	Completed bool   `json:"completed"`
}

func todoPath(id int) string { return "/todos/" + strconv.Itoa(id) }

func (c *Client) do(ctx context.Context, method, path string, q url.Values, in, out any) error {
	u := *c.base
	u.Path = c.base.Path + path
	if q != nil {
		u.RawQuery = q.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, reqID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	log := c.log.WithFields(logrus.Fields{
		"method":     method,
		"path":       path,
		"request_id": reqID,
	})
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Warn("request failed")
		return fmt.Errorf("%w: %s %s: %w", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	log = log.WithFields(logrus.Fields{
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	})
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		log.Warn("unexpected status")
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode}
	}
	log.Debug("request ok")

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %w", ErrTransport, method, path, err)
	}
	return nil
}
