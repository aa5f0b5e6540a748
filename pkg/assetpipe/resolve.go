/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package assetpipe

import (
	"context"
	"fmt"

	"github.com/chainguard-dev/clog"

	"github.com/chainguard-dev/asset-pipe/pkg/bundlehash"
	"github.com/chainguard-dev/asset-pipe/pkg/httpmetrics"
)

// ResolveBundleURL returns the URLs to serve for hashes, one feed hash per
// tag of the stored instruction for t. It never waits on the network.
//
// The result is empty when nothing was instructed for t or no hashes were
// given. It is the combined bundle URL once that bundle has been confirmed
// to exist, and one URL per hash otherwise. A miss starts a background
// existence check unless one is already running for t.
func (c *Client) ResolveBundleURL(ctx context.Context, hashes []string, t AssetType) ([]string, error) {
	if _, err := ParseAssetType(string(t)); err != nil {
		return nil, err
	}
	for i, h := range hashes {
		if h == "" {
			return nil, &ValidationError{Field: "hashes", Reason: fmt.Sprintf("hash %d is empty", i)}
		}
	}
	log := clog.FromContext(ctx).With("type", t)

	c.mu.Lock()
	defer c.mu.Unlock()

	tags := len(c.instructions[t])
	if tags == 0 || len(hashes) == 0 {
		mResolve.WithLabelValues(string(t), "empty").Inc()
		return []string{}, nil
	}

	fallback := make([]string, 0, len(hashes))
	for _, h := range hashes {
		fallback = append(fallback, c.publicBundleURL+h+"."+string(t))
	}
	if len(hashes) != tags {
		log.Debug("hash count does not match instruction", "hashes", len(hashes), "tags", tags)
		mResolve.WithLabelValues(string(t), "fallback").Inc()
		return fallback, nil
	}

	ideal := c.publicBundleURL + bundlehash.FileName(hashes, string(t))
	if c.resolved[t] == ideal {
		log.Debug("bundle cache hit", "url", ideal)
		mResolve.WithLabelValues(string(t), "ideal").Inc()
		return []string{ideal}, nil
	}

	if !c.verifying[t] {
		c.verifying[t] = true
		c.resolved[t] = ""
		c.verifications.Add(1)
		go c.verify(httpmetrics.WithEndpoint(context.WithoutCancel(ctx), "bundle"), t, ideal)
	}
	mResolve.WithLabelValues(string(t), "fallback").Inc()
	return fallback, nil
}

// verify checks that the bundle at candidate exists and caches it if so.
// Failures are only logged; the next resolution retries.
func (c *Client) verify(ctx context.Context, t AssetType, candidate string) {
	defer c.verifications.Done()
	log := clog.FromContext(ctx).With("type", t, "url", candidate)

	inflight := mVerificationsInFlight.WithLabelValues(string(t))
	inflight.Inc()
	status, err := c.transport.Check(ctx, candidate)
	inflight.Dec()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.verifying[t] = false

	switch {
	case err != nil:
		log.Warn("verifying bundle", "error", err)
		mVerifications.WithLabelValues(string(t), "error").Inc()
	case status < 200 || status > 299:
		log.Warn("bundle not available yet", "status", status)
		mVerifications.WithLabelValues(string(t), "missing").Inc()
	default:
		log.Info("bundle confirmed")
		c.resolved[t] = candidate
		mVerifications.WithLabelValues(string(t), "confirmed").Inc()
	}
}

// Scripts resolves JavaScript bundle URLs.
func (c *Client) Scripts(ctx context.Context, hashes []string) ([]string, error) {
	return c.ResolveBundleURL(ctx, hashes, JS)
}

// Styles resolves CSS bundle URLs.
func (c *Client) Styles(ctx context.Context, hashes []string) ([]string, error) {
	return c.ResolveBundleURL(ctx, hashes, CSS)
}
