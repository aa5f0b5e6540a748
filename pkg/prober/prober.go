/*
Copyright 2022 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package prober exposes a health check over HTTP.
package prober

import (
	"context"
	"net/http"
	"time"

	"github.com/chainguard-dev/clog"
)

// Interface encapsulates probing logic.
type Interface interface {
	// Probe performs a single probe and is passed the HTTP request context.
	Probe(context.Context) error
}

// Func is a convenience wrapper for turning a function into an Interface.
type Func func(context.Context) error

// Probe implements Interface
func (pf Func) Probe(ctx context.Context) error {
	return pf(ctx)
}

// Handler answers 200 when i.Probe succeeds within timeout and 503
// otherwise. A non-empty authz must match the Authorization header.
func Handler(i Interface, timeout time.Duration, authz string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := clog.FromContext(r.Context())
		if authz != "" && r.Header.Get("Authorization") != authz {
			log.Warn("probe request was not authorized")
			http.Error(w, "not authorized", http.StatusUnauthorized)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := i.Probe(ctx); err != nil {
			log.Warn("probe failed", "error", err)
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}
