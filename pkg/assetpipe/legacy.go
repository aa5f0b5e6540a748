/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package assetpipe

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/chainguard-dev/clog"

	"github.com/chainguard-dev/asset-pipe/pkg/feed"
	"github.com/chainguard-dev/asset-pipe/pkg/transport"
	"github.com/chainguard-dev/asset-pipe/pkg/urlbuilder"
)

// UploadFeed builds a feed from files and streams it, as a bare JSON array,
// to POST /feed/{type}. It does not take part in the publish cycle.
func (c *Client) UploadFeed(ctx context.Context, t AssetType, files []string, opts ...PublishOption) (*transport.Response, error) {
	if _, err := ParseAssetType(string(t)); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, &ValidationError{Field: string(t), Reason: "at least one file is required"}
	}
	if err := validateFiles(t, files); err != nil {
		return nil, err
	}

	writer, err := c.newWriter(files, t, c.snapshotRegistry())
	if err != nil {
		return nil, err
	}
	o := c.publishOptions(opts)
	u, err := urlbuilder.Build(c.server+"/feed/"+string(t),
		urlbuilder.P("minify", o.minify),
		urlbuilder.P("sourceMaps", o.sourceMaps),
	)
	if err != nil {
		return nil, err
	}

	resp, err := c.transport.PostStream(ctx, u, func(w io.Writer) error {
		return feed.EncodeArray(w, writer.Bundle(ctx))
	})
	if err != nil {
		return nil, err
	}
	if err := transport.CheckStatus(resp); err != nil {
		return resp, err
	}
	clog.FromContext(ctx).Info("uploaded feed", "type", t, "files", len(files))
	return resp, nil
}

// CreateRemoteBundle asks the build server to bundle sources, a list of
// feed file names, via POST /bundle/{type}. The server answers 202 when it
// bundles asynchronously.
func (c *Client) CreateRemoteBundle(ctx context.Context, t AssetType, sources []string) (*transport.Response, error) {
	if _, err := ParseAssetType(string(t)); err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, &ValidationError{Field: "sources", Reason: "at least one source is required"}
	}
	for i, s := range sources {
		if s == "" {
			return nil, &ValidationError{Field: "sources", Reason: fmt.Sprintf("source %d is empty", i)}
		}
	}

	resp, err := c.transport.PostJSON(ctx, c.server+"/bundle/"+string(t), sources)
	if err != nil {
		return nil, err
	}
	if err := transport.CheckStatus(resp, http.StatusOK, http.StatusAccepted); err != nil {
		return resp, err
	}
	clog.FromContext(ctx).Info("requested bundle", "type", t, "sources", len(sources), "status", resp.StatusCode)
	return resp, nil
}
