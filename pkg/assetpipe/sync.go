/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package assetpipe

import (
	"context"
	"net/url"

	"github.com/chainguard-dev/clog"

	"github.com/chainguard-dev/asset-pipe/pkg/httpmetrics"
	"github.com/chainguard-dev/asset-pipe/pkg/transport"
)

// SyncResult holds the public URL prefixes advertised by the build server.
type SyncResult struct {
	PublicFeedURL   string `json:"publicFeedUrl"`
	PublicBundleURL string `json:"publicBundleUrl"`
}

// Sync fetches the public URL prefixes from the build server. The first
// successful answer is cached for the life of the client and replaces the
// default prefixes derived from Config.Server.
func (c *Client) Sync(ctx context.Context) (SyncResult, error) {
	c.mu.Lock()
	if c.synced != nil {
		defer c.mu.Unlock()
		return *c.synced, nil
	}
	c.mu.Unlock()

	resp, err := c.transport.Get(ctx, c.server+"/sync/")
	if err != nil {
		return SyncResult{}, err
	}
	if err := transport.CheckStatus(resp); err != nil {
		return SyncResult{}, err
	}
	var res SyncResult
	if err := resp.Decode(&res); err != nil {
		return SyncResult{}, &SyncParseError{Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.synced != nil {
		return *c.synced, nil
	}
	c.synced = &res
	if res.PublicFeedURL != "" {
		c.publicFeedURL = res.PublicFeedURL
	}
	if res.PublicBundleURL != "" {
		c.publicBundleURL = res.PublicBundleURL
		c.addBundleBucket(res.PublicBundleURL)
	}
	clog.FromContext(ctx).Info("synced with build server", "feeds", c.publicFeedURL, "bundles", c.publicBundleURL)
	return res, nil
}

// addBundleBucket labels a bundle host other than the build server, usually
// a CDN, in the client request metrics.
func (c *Client) addBundleBucket(prefix string) {
	u, err := url.Parse(prefix)
	if err != nil || u.Host == "" {
		return
	}
	if s, err := url.Parse(c.server); err == nil && s.Host == u.Host {
		return
	}
	httpmetrics.AddBucket(u.Host, "bundle-cdn")
}

// PublicFeedURL returns the prefix feeds are served under.
func (c *Client) PublicFeedURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.publicFeedURL
}

// PublicBundleURL returns the prefix bundles are served under.
func (c *Client) PublicBundleURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.publicBundleURL
}
