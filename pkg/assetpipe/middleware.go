/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package assetpipe

import (
	"net/http"

	"github.com/chainguard-dev/clog"
)

// Middleware holds each request until Ready returns, then passes it to
// next. In development mode GET /js and GET /css are answered with the
// unbundled assets instead.
func (c *Client) Middleware(next http.Handler) http.Handler {
	var dev http.Handler
	if c.dev != nil && c.cfg.Development {
		mux := c.dev.Mux()
		mux.Handle("/", next)
		dev = mux
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if err := c.Ready(ctx); err != nil {
			clog.FromContext(ctx).Warn("request abandoned before assets were ready", "error", err)
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
		if dev != nil {
			dev.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
