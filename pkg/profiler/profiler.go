/*
Copyright 2024 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package profiler starts the Cloud Profiler agent for long running
// asset-pipe processes when ENABLE_PROFILER is set.
package profiler

import (
	"context"
	"fmt"

	"cloud.google.com/go/compute/metadata"
	"cloud.google.com/go/profiler"
	"github.com/chainguard-dev/clog"
	"github.com/sethvargo/go-envconfig"
)

type config struct {
	EnableProfiler bool   `env:"ENABLE_PROFILER, default=false"`
	Service        string `env:"K_SERVICE, default=assetpipe"`
	Version        string `env:"K_REVISION"`
	ProjectID      string `env:"GOOGLE_CLOUD_PROJECT"`
}

// Swapped out in tests.
var (
	start = profiler.Start
	onGCE = metadata.OnGCE
)

// SetupProfiler starts the profiler if it is enabled in the environment.
func SetupProfiler(ctx context.Context) error {
	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return fmt.Errorf("processing profiler config: %w", err)
	}
	if !cfg.EnableProfiler {
		return nil
	}
	// Off GCP the agent cannot discover the project on its own.
	if cfg.ProjectID == "" && !onGCE() {
		clog.WarnContextf(ctx, "Not starting profiler: GOOGLE_CLOUD_PROJECT is unset and no metadata server is reachable")
		return nil
	}
	pc := profiler.Config{
		Service:        cfg.Service,
		ServiceVersion: cfg.Version,
		ProjectID:      cfg.ProjectID,
	}
	if err := start(pc); err != nil {
		return fmt.Errorf("starting profiler: %w", err)
	}
	clog.InfoContextf(ctx, "Started profiler for service %s", cfg.Service)
	return nil
}
