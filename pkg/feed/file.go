/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package feed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"iter"
	"os"

	"github.com/chainguard-dev/clog"
)

// FileWriter is a Writer that reads each entrypoint verbatim into one
// record. It does not resolve imports; the build server receives the files
// exactly as they are on disk, after transforms and plugins have run.
type FileWriter struct {
	entrypoints []string
	opts        WriterOptions
	registry    Registry
}

var _ Writer = (*FileWriter)(nil)

// NewFileWriter is a Factory.
func NewFileWriter(entrypoints []string, opts WriterOptions) (Writer, error) {
	return &FileWriter{
		entrypoints: append([]string(nil), entrypoints...),
		opts:        opts,
	}, nil
}

// Transform implements Writer.
func (w *FileWriter) Transform(t Transform, opts Options) {
	w.registry.AddTransform(t, opts)
}

// Plugin implements Writer.
func (w *FileWriter) Plugin(p Plugin, opts Options) {
	w.registry.AddPlugin(p, opts)
}

// Bundle implements Writer.
func (w *FileWriter) Bundle(ctx context.Context) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		// Without plugins records can be streamed one at a time.
		if len(w.registry.plugins) == 0 {
			for _, path := range w.entrypoints {
				rec, err := w.read(ctx, path)
				if !yield(rec, err) || err != nil {
					return
				}
			}
			return
		}

		recs := make([]Record, 0, len(w.entrypoints))
		for _, path := range w.entrypoints {
			rec, err := w.read(ctx, path)
			if err != nil {
				yield(Record{}, err)
				return
			}
			recs = append(recs, rec)
		}
		for _, p := range w.registry.plugins {
			var err error
			if recs, err = p.plugin(ctx, recs, p.opts); err != nil {
				yield(Record{}, fmt.Errorf("running plugin: %w", err))
				return
			}
		}
		for _, rec := range recs {
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func (w *FileWriter) read(ctx context.Context, path string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Record{}, fmt.Errorf("reading entrypoint: %w", err)
	}
	sum := sha256.Sum256(b)
	rec := Record{
		ID:     hex.EncodeToString(sum[:]),
		File:   path,
		Source: string(b),
		Deps:   map[string]string{},
		Entry:  true,
	}
	for _, t := range w.registry.transforms {
		if rec, err = t.transform(ctx, rec, t.opts); err != nil {
			return Record{}, fmt.Errorf("transforming %s: %w", path, err)
		}
	}
	clog.FromContext(ctx).Debug("read feed record", "file", path, "type", w.opts.Type, "bytes", len(rec.Source))
	return rec, nil
}
