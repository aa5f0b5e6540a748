/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"github.com/chainguard-dev/asset-pipe/pkg/assetpipe"
	"github.com/chainguard-dev/asset-pipe/pkg/httpmetrics"
	"github.com/chainguard-dev/asset-pipe/pkg/prober"
	"github.com/chainguard-dev/asset-pipe/pkg/profiler"
)

func newDevCmd(root *rootOptions) *cobra.Command {
	var (
		js, css []string
		addr    string
		authz   string
	)
	cmd := &cobra.Command{
		Use:     "dev",
		Short:   "Serve unbundled assets at /js and /css",
		Example: `  assetpipe dev --server http://127.0.0.1:7100 --js src/main.js --css src/main.css --addr :8080`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := profiler.SetupProfiler(ctx); err != nil {
				return err
			}
			defer httpmetrics.SetupTracer(ctx)()
			go httpmetrics.ServeMetrics(ctx)

			c, err := root.client(cmd, func(cfg *assetpipe.Config) { cfg.Development = true })
			if err != nil {
				return err
			}
			if _, err := c.Publish(ctx, assetpipe.Entrypoints{assetpipe.JS: js, assetpipe.CSS: css}); err != nil {
				return err
			}
			if err := c.DevHandler().Check(ctx); err != nil {
				return fmt.Errorf("building dev assets: %w", err)
			}

			mux := http.NewServeMux()
			mux.Handle("/healthz", prober.Handler(prober.Func(c.Ready), time.Second, authz))
			mux.Handle("/", c.Middleware(http.NotFoundHandler()))
			return serve(ctx, addr, mux)
		},
	}
	cmd.Flags().StringSliceVar(&js, "js", nil, "JavaScript entrypoint (repeatable)")
	cmd.Flags().StringSliceVar(&css, "css", nil, "CSS entrypoint (repeatable)")
	cmd.Flags().StringVar(&addr, "addr", ":8080", "address to listen on")
	cmd.Flags().StringVar(&authz, "probe-authorization", "", "Authorization header required by /healthz")
	return cmd
}

func serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			clog.WarnContext(ctx, "shutting down dev server", "error", err)
		}
	}()

	clog.InfoContextf(ctx, "Serving dev assets on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
