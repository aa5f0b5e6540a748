/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package devassets serves unbundled JavaScript and CSS straight from the
// entrypoint files, for local development without a build server.
package devassets

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/errgroup"

	"github.com/chainguard-dev/asset-pipe/pkg/feed"
	"github.com/chainguard-dev/asset-pipe/pkg/httpmetrics"
)

var contentTypes = map[string]string{
	"js":  "application/javascript; charset=utf-8",
	"css": "text/css; charset=utf-8",
}

// Handler builds and serves one asset type per path: /js and /css.
// Sources are rebuilt on every request so edits show up immediately.
type Handler struct {
	factory feed.Factory

	mu          sync.RWMutex
	registry    *feed.Registry
	entrypoints map[string][]string
}

// New returns a Handler that constructs writers with factory and replays
// the registrations in registry onto each of them. A nil factory means
// feed.NewFileWriter.
func New(factory feed.Factory, registry *feed.Registry) *Handler {
	if factory == nil {
		factory = feed.NewFileWriter
	}
	if registry == nil {
		registry = &feed.Registry{}
	}
	return &Handler{
		factory:     factory,
		registry:    registry,
		entrypoints: make(map[string][]string, len(contentTypes)),
	}
}

// SetEntrypoints replaces the files served for typ.
func (h *Handler) SetEntrypoints(typ string, files []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entrypoints[typ] = append([]string(nil), files...)
}

// SetRegistry replaces the transforms and plugins replayed onto each writer.
func (h *Handler) SetRegistry(r *feed.Registry) {
	if r == nil {
		r = &feed.Registry{}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.registry = r
}

// Mux returns a mux serving /js and /css, wrapped in the standard handler
// metrics.
func (h *Handler) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	for typ := range contentTypes {
		mux.Handle("GET /"+typ, httpmetrics.Handler("dev-"+typ, h.serve(typ)))
	}
	return mux
}

// Build writes the concatenated, transformed sources for typ to w.
func (h *Handler) Build(ctx context.Context, typ string, w io.Writer) error {
	h.mu.RLock()
	files, registry := h.entrypoints[typ], h.registry
	h.mu.RUnlock()
	if len(files) == 0 {
		return nil
	}
	writer, err := h.factory(files, feed.WriterOptions{Type: typ})
	if err != nil {
		return fmt.Errorf("creating %s writer: %w", typ, err)
	}
	registry.Apply(writer)

	for rec, err := range writer.Bundle(ctx) {
		if err != nil {
			return fmt.Errorf("bundling %s: %w", typ, err)
		}
		if _, err := io.WriteString(w, rec.Source); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

// Check builds every asset type concurrently and discards the output, so a
// broken entrypoint is reported at startup rather than on first request.
func (h *Handler) Check(ctx context.Context) error {
	var eg errgroup.Group
	for typ := range contentTypes {
		eg.Go(func() error {
			return h.Build(ctx, typ, io.Discard)
		})
	}
	return eg.Wait()
}

func (h *Handler) serve(typ string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		// Build fully before writing, so a failure can still produce a 500.
		var buf bytes.Buffer
		if err := h.Build(ctx, typ, &buf); err != nil {
			clog.FromContext(ctx).Error("building dev assets", "type", typ, "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", contentTypes[typ])
		if _, err := buf.WriteTo(w); err != nil {
			clog.FromContext(ctx).Warn("writing dev assets", "type", typ, "error", err)
		}
	})
}
