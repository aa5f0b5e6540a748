/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package transport performs the HTTP exchanges with an asset build server:
// posting raw, JSON and streamed bodies, and parsing the JSON (or raw text)
// responses.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/chainguard-dev/clog"
)

// ServerIDHeader carries the identity of the server publishing assets.
const ServerIDHeader = "origin-server-id"

// Response is a fully read build server response.
type Response struct {
	StatusCode int
	Header     http.Header
	// Raw is the response body as received.
	Raw []byte
	// Body is the JSON-decoded body, or nil when Raw is not valid JSON.
	Body any
}

// IsJSON reports whether the body parsed as JSON.
func (r *Response) IsJSON() bool {
	return r.Body != nil || bytes.Equal(bytes.TrimSpace(r.Raw), []byte("null"))
}

// Decode unmarshals the raw body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Raw, v); err != nil {
		return fmt.Errorf("decoding response body: %w", err)
	}
	return nil
}

// Message returns the "message" field of a JSON object body, or the raw
// text body otherwise.
func (r *Response) Message() string {
	if obj, ok := r.Body.(map[string]any); ok {
		if msg, ok := obj["message"].(string); ok {
			return msg
		}
	}
	if r.IsJSON() {
		return ""
	}
	return strings.TrimSpace(string(r.Raw))
}

// Client talks to a build server.
type Client struct {
	http     *http.Client
	serverID string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithServerID attaches the origin-server-id header to every request.
func WithServerID(id string) Option {
	return func(c *Client) { c.serverID = id }
}

// New returns a Client, defaulting to http.DefaultClient.
func New(opts ...Option) *Client {
	c := &Client{http: http.DefaultClient}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Post sends body as-is.
func (c *Client) Post(ctx context.Context, url string, body []byte) (*Response, error) {
	return c.do(ctx, http.MethodPost, url, bytes.NewReader(body))
}

// PostJSON sends v encoded as JSON.
func (c *Client) PostJSON(ctx context.Context, url string, v any) (*Response, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}
	return c.Post(ctx, url, b)
}

// PostStream sends whatever produce writes, as it writes it. The request
// body is a pipe, so produce blocks until the transport has consumed the
// previous chunk. An error from produce aborts the request and is returned
// in place of the resulting transport failure.
func (c *Client) PostStream(ctx context.Context, url string, produce func(io.Writer) error) (*Response, error) {
	pr, pw := io.Pipe()
	produced := make(chan error, 1)
	go func() {
		err := produce(pw)
		produced <- err
		pw.CloseWithError(err)
	}()

	resp, err := c.do(ctx, http.MethodPost, url, pr)
	// Unblock the producer if the transport stopped reading early.
	pr.Close()
	if perr := <-produced; perr != nil && !errors.Is(perr, io.ErrClosedPipe) {
		return nil, fmt.Errorf("producing request body: %w", perr)
	}
	return resp, err
}

// Get fetches url and parses the body like the POST variants.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	return c.do(ctx, http.MethodGet, url, nil)
}

// Check issues a GET against url and returns only the status code; the body
// is discarded without being buffered.
func (c *Client) Check(ctx context.Context, url string) (int, error) {
	req, err := c.newRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, &TransportError{Method: http.MethodGet, URL: url, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func (c *Client) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("creating %s request for %s: %w", method, url, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.serverID != "" {
		req.Header.Set(ServerIDHeader, c.serverID)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, url string, body io.Reader) (*Response, error) {
	req, err := c.newRequest(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Method: method, URL: url, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: method, URL: url, Err: fmt.Errorf("reading response body: %w", err)}
	}

	out := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Raw:        raw,
	}
	if err := json.Unmarshal(raw, &out.Body); err != nil {
		out.Body = nil
		clog.FromContext(ctx).Debug("response body is not JSON", "url", url, "status", resp.StatusCode)
	}
	return out, nil
}
