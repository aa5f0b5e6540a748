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
	"slices"

	"github.com/chainguard-dev/clog"

	"github.com/chainguard-dev/asset-pipe/pkg/feed"
	"github.com/chainguard-dev/asset-pipe/pkg/transport"
	"github.com/chainguard-dev/asset-pipe/pkg/urlbuilder"
)

type publishResponse struct {
	ID string `json:"id"`
}

type instructionRequest struct {
	Tag  string    `json:"tag"`
	Type AssetType `json:"type"`
	Data []string  `json:"data"`
}

// Publish starts a new publish cycle for every type in entrypoints that has
// files. The hashes of those types are reset and each type's feed is
// streamed to the build server concurrently. The returned Operation settles
// once all of them have; Ready also waits on it.
//
// In development mode nothing is sent: the entrypoints are handed to the
// development asset handler and the Operation is already settled.
func (c *Client) Publish(ctx context.Context, entrypoints Entrypoints, opts ...PublishOption) (*Operation, error) {
	types, err := present(entrypoints)
	if err != nil {
		return nil, err
	}
	for _, t := range types {
		if err := validateFiles(t, entrypoints[t]); err != nil {
			return nil, err
		}
	}

	if c.cfg.Development {
		for _, t := range types {
			c.dev.SetEntrypoints(string(t), entrypoints[t])
		}
		op := settled()
		c.barrier.setPublish(op, types...)
		return op, nil
	}

	if err := validateTag(c.cfg.Tag); err != nil {
		return nil, err
	}
	o := c.publishOptions(opts)

	cycles := make(map[AssetType]uint64, len(types))
	c.mu.Lock()
	for _, t := range types {
		c.publishCycle[t]++
		cycles[t] = c.publishCycle[t]
		delete(c.hashes, t)
	}
	registry := c.registry.Clone()
	c.mu.Unlock()

	files := make(map[AssetType][]string, len(types))
	for _, t := range types {
		files[t] = slices.Clone(entrypoints[t])
	}

	op := start(ctx, types, func(ctx context.Context, t AssetType) (string, error) {
		id, err := c.publishFeed(ctx, t, files[t], registry, o)
		if err != nil {
			clog.FromContext(ctx).Error("publishing feed", "type", t, "tag", c.cfg.Tag, "error", err)
			return "", fmt.Errorf("publishing %s: %w", t, err)
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.publishCycle[t] == cycles[t] {
			c.hashes[t] = id
		}
		clog.FromContext(ctx).Info("published feed", "type", t, "tag", c.cfg.Tag, "hash", id)
		return id, nil
	})
	c.barrier.setPublish(op, types...)
	return op, nil
}

func (c *Client) publishFeed(ctx context.Context, t AssetType, files []string, registry *feed.Registry, o publishOptions) (string, error) {
	writer, err := c.newWriter(files, t, registry)
	if err != nil {
		return "", err
	}
	u, err := urlbuilder.Build(c.server+"/publish-assets",
		urlbuilder.P("minify", o.minify),
		urlbuilder.P("sourceMaps", o.sourceMaps),
		urlbuilder.P("rebundle", o.rebundle),
	)
	if err != nil {
		return "", err
	}

	resp, err := c.transport.PostStream(ctx, u, func(w io.Writer) error {
		return feed.EncodeEnvelope(w, c.cfg.Tag, string(t), writer.Bundle(ctx))
	})
	if err != nil {
		return "", err
	}
	if err := transport.CheckStatus(resp); err != nil {
		return "", err
	}
	var body publishResponse
	if err := resp.Decode(&body); err != nil {
		return "", &transport.ServerError{StatusCode: resp.StatusCode, Message: err.Error()}
	}
	if body.ID == "" {
		return "", &transport.ServerError{StatusCode: resp.StatusCode, Message: "response has no feed id"}
	}
	return body.ID, nil
}

func (c *Client) newWriter(files []string, t AssetType, registry *feed.Registry) (feed.Writer, error) {
	writer, err := c.factory(files, feed.WriterOptions{Type: string(t)})
	if err != nil {
		return nil, fmt.Errorf("creating %s writer: %w", t, err)
	}
	registry.Apply(writer)
	return writer, nil
}

// BundleInstructions starts a new bundle cycle. For every type with a
// non-empty tag list, the list is stored (it decides when ResolveBundleURL
// attempts a combined bundle) and submitted to the build server. Types with
// an empty list are skipped and keep whatever instruction was stored before.
func (c *Client) BundleInstructions(ctx context.Context, instructions Instructions, opts ...PublishOption) (*Operation, error) {
	types, err := present(instructions)
	if err != nil {
		return nil, err
	}
	for _, t := range types {
		for i, tag := range instructions[t] {
			if tag == "" {
				return nil, &ValidationError{Field: string(t), Reason: fmt.Sprintf("tag %d is empty", i)}
			}
		}
	}
	if !c.cfg.Development {
		if err := validateTag(c.cfg.Tag); err != nil {
			return nil, err
		}
	}

	data := make(map[AssetType][]string, len(types))
	c.mu.Lock()
	for _, t := range types {
		data[t] = slices.Clone(instructions[t])
		c.instructions[t] = data[t]
	}
	c.mu.Unlock()

	if c.cfg.Development {
		op := settled()
		c.barrier.setBundle(op, types...)
		return op, nil
	}

	o := c.publishOptions(opts)
	u, err := urlbuilder.Build(c.server+"/publish-instructions",
		urlbuilder.P("minify", o.minify),
		urlbuilder.P("sourceMaps", o.sourceMaps),
	)
	if err != nil {
		return nil, err
	}

	op := start(ctx, types, func(ctx context.Context, t AssetType) (string, error) {
		resp, err := c.transport.PostJSON(ctx, u, instructionRequest{Tag: c.cfg.Tag, Type: t, Data: data[t]})
		if err == nil {
			err = transport.CheckStatus(resp, http.StatusOK, http.StatusNoContent)
		}
		if err != nil {
			clog.FromContext(ctx).Error("submitting bundle instruction", "type", t, "tag", c.cfg.Tag, "error", err)
			return "", fmt.Errorf("submitting %s bundle instruction: %w", t, err)
		}
		clog.FromContext(ctx).Info("submitted bundle instruction", "type", t, "tag", c.cfg.Tag, "tags", len(data[t]))
		return http.StatusText(resp.StatusCode), nil
	})
	c.barrier.setBundle(op, types...)
	return op, nil
}

// Ready returns nil once every operation of the current publish and bundle
// cycles has settled, successfully or not. Inspect Hash or the Operations
// for the outcome.
func (c *Client) Ready(ctx context.Context) error {
	return c.barrier.wait(ctx)
}
