/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package feed defines the boundary between the asset-pipe client and the
// writers that turn entrypoint files into feeds: ordered collections of
// asset records that the build server later bundles.
package feed

import (
	"context"
	"iter"
)

// Record is one entry of a feed.
type Record struct {
	// ID identifies the record within the feed.
	ID string `json:"id"`
	// File is the path the record was read from.
	File string `json:"file"`
	// Source is the (possibly transformed) file contents.
	Source string `json:"source"`
	// Deps maps import specifiers to the IDs of the records they resolve to.
	Deps map[string]string `json:"deps"`
	// Entry marks records that were named as entrypoints.
	Entry bool `json:"entry,omitempty"`
}

// Options are free-form settings handed to a transform or plugin.
type Options map[string]any

// Transform rewrites a single record. Transforms run in registration order.
type Transform func(ctx context.Context, rec Record, opts Options) (Record, error)

// Plugin operates on the complete, transformed record list.
type Plugin func(ctx context.Context, recs []Record, opts Options) ([]Record, error)

// Writer produces a feed from a set of entrypoints.
type Writer interface {
	// Transform registers a per-record transform.
	Transform(t Transform, opts Options)
	// Plugin registers a whole-feed plugin.
	Plugin(p Plugin, opts Options)
	// Bundle yields the feed records. Iteration stops at the first error.
	Bundle(ctx context.Context) iter.Seq2[Record, error]
}

// WriterOptions are passed to a Factory.
type WriterOptions struct {
	// Type is the asset type being written, "js" or "css".
	Type string
}

// Factory constructs a Writer for the given entrypoints.
type Factory func(entrypoints []string, opts WriterOptions) (Writer, error)

type registration struct {
	transform Transform
	plugin    Plugin
	opts      Options
}

// Registry records transforms and plugins so they can be replayed onto
// every writer that gets constructed.
type Registry struct {
	transforms []registration
	plugins    []registration
}

// AddTransform appends a transform.
func (r *Registry) AddTransform(t Transform, opts Options) {
	r.transforms = append(r.transforms, registration{transform: t, opts: opts})
}

// AddPlugin appends a plugin.
func (r *Registry) AddPlugin(p Plugin, opts Options) {
	r.plugins = append(r.plugins, registration{plugin: p, opts: opts})
}

// Len returns the number of transforms and plugins registered.
func (r *Registry) Len() (transforms, plugins int) {
	return len(r.transforms), len(r.plugins)
}

// Apply replays the registrations onto w: transforms first, then plugins,
// each in the order they were added.
func (r *Registry) Apply(w Writer) {
	for _, t := range r.transforms {
		w.Transform(t.transform, t.opts)
	}
	for _, p := range r.plugins {
		w.Plugin(p.plugin, p.opts)
	}
}

// Clone returns an independent copy of r.
func (r *Registry) Clone() *Registry {
	return &Registry{
		transforms: append([]registration(nil), r.transforms...),
		plugins:    append([]registration(nil), r.plugins...),
	}
}

// Collect drains seq into a slice.
func Collect(seq iter.Seq2[Record, error]) ([]Record, error) {
	var out []Record
	for rec, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
