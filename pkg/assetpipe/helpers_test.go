/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package assetpipe

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// buildServer is a stub asset build server that counts requests by path.
type buildServer struct {
	*httptest.Server

	mu     sync.Mutex
	counts map[string]int
}

func newBuildServer(t *testing.T, h http.Handler) *buildServer {
	t.Helper()
	bs := &buildServer{counts: map[string]int{}}
	bs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bs.mu.Lock()
		bs.counts[r.Method+" "+r.URL.Path]++
		bs.mu.Unlock()

		// Read streamed bodies in full before answering.
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		h.ServeHTTP(w, r)
	}))
	t.Cleanup(bs.Close)
	return bs
}

func (bs *buildServer) count(key string) int {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	return bs.counts[key]
}

func (bs *buildServer) total() int {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	n := 0
	for _, c := range bs.counts {
		n += c
	}
	return n
}

func newTestClient(t *testing.T, bs *buildServer, cfg Config, opts ...Option) *Client {
	t.Helper()
	if cfg.Server == "" {
		cfg.Server = bs.URL
	}
	c, err := New(cfg, append([]Option{WithHTTPClient(bs.Client())}, opts...)...)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	return c
}

// assets writes script.js and style.css and returns their paths.
func assets(t *testing.T) (js, css string) {
	t.Helper()
	dir := t.TempDir()
	js = filepath.Join(dir, "script.js")
	css = filepath.Join(dir, "style.css")
	if err := os.WriteFile(js, []byte("console.log('hello');"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(css, []byte("body { background-color: red; }"), 0o600); err != nil {
		t.Fatal(err)
	}
	return js, css
}

func respond(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
