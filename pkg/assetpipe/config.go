/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package assetpipe

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/chainguard-dev/asset-pipe/pkg/devassets"
	"github.com/chainguard-dev/asset-pipe/pkg/feed"
)

// Config holds the client settings. It can be populated from the
// environment with envconfig.
type Config struct {
	// Server is the build server base URI. It may be left empty in
	// development mode, which never contacts the build server.
	Server string `env:"ASSET_SERVER"`
	// ServerID is sent as the origin-server-id header on every request.
	ServerID string `env:"ASSET_SERVER_ID"`
	// Tag identifies this server's feeds in bundle instructions.
	Tag string `env:"ASSET_TAG"`

	Minify     bool `env:"ASSET_MINIFY, default=false"`
	SourceMaps bool `env:"ASSET_SOURCE_MAPS, default=false"`
	Rebundle   bool `env:"ASSET_REBUNDLE, default=true"`

	// MaxRequestsPerSecond caps the steady rate of requests to the build
	// server. Zero leaves it uncapped.
	MaxRequestsPerSecond float64 `env:"ASSET_MAX_RPS, default=0"`

	// Development serves unbundled assets locally instead of publishing.
	Development bool `env:"ASSET_DEVELOPMENT, default=false"`
}

func (c Config) validate() (string, error) {
	if c.MaxRequestsPerSecond < 0 {
		return "", &ValidationError{Field: "max requests per second", Reason: "must not be negative"}
	}
	if c.Tag != "" {
		if err := validateTag(c.Tag); err != nil {
			return "", err
		}
	}
	if c.Server == "" {
		if c.Development {
			return "", nil
		}
		return "", &ValidationError{Field: "server", Reason: "a build server URI is required"}
	}
	u, err := url.Parse(c.Server)
	if err != nil {
		return "", &ValidationError{Field: "server", Reason: err.Error()}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", &ValidationError{Field: "server", Reason: fmt.Sprintf("%q is not an absolute http(s) URI", c.Server)}
	}
	return strings.TrimSuffix(c.Server, "/"), nil
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the instrumented, rate limited default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithWriterFactory sets how feed writers are constructed. The default is
// feed.NewFileWriter.
func WithWriterFactory(f feed.Factory) Option {
	return func(c *Client) { c.factory = f }
}

// WithDevHandler sets the handler used in development mode.
func WithDevHandler(h *devassets.Handler) Option {
	return func(c *Client) { c.dev = h }
}

type publishOptions struct {
	minify     bool
	sourceMaps bool
	rebundle   bool
}

// PublishOption overrides a Config default for a single call.
type PublishOption func(*publishOptions)

// WithMinify overrides Config.Minify.
func WithMinify(v bool) PublishOption {
	return func(o *publishOptions) { o.minify = v }
}

// WithSourceMaps overrides Config.SourceMaps.
func WithSourceMaps(v bool) PublishOption {
	return func(o *publishOptions) { o.sourceMaps = v }
}

// WithRebundle overrides Config.Rebundle.
func WithRebundle(v bool) PublishOption {
	return func(o *publishOptions) { o.rebundle = v }
}

func (c *Client) publishOptions(opts []PublishOption) publishOptions {
	o := publishOptions{
		minify:     c.cfg.Minify,
		sourceMaps: c.cfg.SourceMaps,
		rebundle:   c.cfg.Rebundle,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
