/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Command assetpipe writes, publishes and bundles asset feeds against an
// asset build server, and serves unbundled assets for local development.
//
// Usage:
//
//	assetpipe write -s src/main.js -d gs://feeds/main.json
//	assetpipe publish --server http://127.0.0.1:7100 --tag podlet --js src/main.js
//	assetpipe bundle --tag layout --js podlet,layout
//	assetpipe dev --js src/main.js --css src/main.css
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/chainguard-dev/clog"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		clog.ErrorContext(ctx, "assetpipe failed", "error", err)
		cancel()
		os.Exit(1)
	}
}
