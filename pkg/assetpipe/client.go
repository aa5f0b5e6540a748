/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package assetpipe publishes JavaScript and CSS feeds to an asset build
// server, submits bundling instructions, and resolves the URLs to serve for
// a set of feed hashes.
//
// Resolution never blocks on the network. The first call for a combination
// of hashes returns one URL per hash and starts a background check for the
// combined bundle; once that check confirms the bundle exists, later calls
// return the single combined URL.
package assetpipe

import (
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/chainguard-dev/asset-pipe/pkg/devassets"
	"github.com/chainguard-dev/asset-pipe/pkg/feed"
	"github.com/chainguard-dev/asset-pipe/pkg/httpmetrics"
	"github.com/chainguard-dev/asset-pipe/pkg/httpratelimit"
	"github.com/chainguard-dev/asset-pipe/pkg/transport"
)

// Client coordinates publishing, bundling and URL resolution against one
// build server.
type Client struct {
	cfg        Config
	server     string
	httpClient *http.Client
	transport  *transport.Client
	factory    feed.Factory
	dev        *devassets.Handler
	barrier    barrier

	// verifications tracks background existence checks.
	verifications sync.WaitGroup

	mu              sync.Mutex
	registry        feed.Registry
	publishCycle    map[AssetType]uint64
	hashes          map[AssetType]string
	instructions    map[AssetType][]string
	resolved        map[AssetType]string
	verifying       map[AssetType]bool
	publicFeedURL   string
	publicBundleURL string
	synced          *SyncResult
}

// New validates cfg and returns a Client.
func New(cfg Config, opts ...Option) (*Client, error) {
	server, err := cfg.validate()
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:             cfg,
		server:          server,
		factory:         feed.NewFileWriter,
		publishCycle:    make(map[AssetType]uint64, 2),
		hashes:          make(map[AssetType]string, 2),
		instructions:    make(map[AssetType][]string, 2),
		resolved:        make(map[AssetType]string, 2),
		verifying:       make(map[AssetType]bool, 2),
		publicFeedURL:   server + "/feed/",
		publicBundleURL: server + "/bundle/",
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		if u, err := url.Parse(server); err == nil && u.Host != "" {
			httpmetrics.AddBucket(u.Host, "build-server")
		}
		var rl []httpratelimit.Option
		if cfg.MaxRequestsPerSecond > 0 {
			rl = append(rl, httpratelimit.WithRate(rate.Limit(cfg.MaxRequestsPerSecond), 1))
		}
		c.httpClient = &http.Client{
			Transport: httpratelimit.NewTransport(httpmetrics.WrapTransport(http.DefaultTransport), time.Second, rl...),
		}
	}
	c.transport = transport.New(
		transport.WithHTTPClient(c.httpClient),
		transport.WithServerID(cfg.ServerID),
	)

	if cfg.Development && c.dev == nil {
		c.dev = devassets.New(c.factory, nil)
	}
	return c, nil
}

// Transform registers a per-record transform, replayed onto every writer
// the client constructs.
func (c *Client) Transform(t feed.Transform, opts feed.Options) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registry.AddTransform(t, opts)
	c.syncDevRegistry()
}

// Plugin registers a whole-feed plugin, replayed onto every writer the
// client constructs.
func (c *Client) Plugin(p feed.Plugin, opts feed.Options) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registry.AddPlugin(p, opts)
	c.syncDevRegistry()
}

// syncDevRegistry must be called with c.mu held.
func (c *Client) syncDevRegistry() {
	if c.dev != nil {
		c.dev.SetRegistry(c.registry.Clone())
	}
}

func (c *Client) snapshotRegistry() *feed.Registry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.Clone()
}

// JS returns the published JavaScript feed hash, or "" if none.
func (c *Client) JS() string { return c.Hash(JS) }

// CSS returns the published CSS feed hash, or "" if none.
func (c *Client) CSS() string { return c.Hash(CSS) }

// Hash returns the feed hash published for t in the current cycle, or ""
// while the publish is pending or after it failed.
func (c *Client) Hash(t AssetType) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hashes[t]
}

// Instructions returns the bundle instruction stored for t.
func (c *Client) Instructions(t AssetType) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.instructions[t])
}

// DevHandler returns the development asset handler, or nil outside
// development mode.
func (c *Client) DevHandler() *devassets.Handler {
	return c.dev
}
