/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package feed

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/chainguard-dev/clog"
	"gocloud.dev/blob"

	// Support file://, gs:// and mem:// destinations.
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
)

// Destination is where a serialized feed is written.
type Destination struct {
	// Bucket is a gocloud.dev bucket URL, e.g. "gs://assets" or
	// "file:///var/feeds".
	Bucket string
	// Key is the object key within the bucket.
	Key string
}

func (d Destination) String() string {
	return strings.TrimSuffix(d.Bucket, "/") + "/" + d.Key
}

// ParseDestination splits dest into a bucket URL and object key. Plain paths
// are written through a file:// bucket rooted at their directory.
func ParseDestination(dest string) (Destination, error) {
	if dest == "" {
		return Destination{}, fmt.Errorf("destination must not be empty")
	}
	if !strings.Contains(dest, "://") {
		abs, err := filepath.Abs(dest)
		if err != nil {
			return Destination{}, fmt.Errorf("resolving %q: %w", dest, err)
		}
		return Destination{
			Bucket: "file://" + filepath.ToSlash(filepath.Dir(abs)),
			Key:    filepath.Base(abs),
		}, nil
	}

	u, err := url.Parse(dest)
	if err != nil {
		return Destination{}, fmt.Errorf("parsing destination %q: %w", dest, err)
	}
	if u.Scheme == "file" {
		dir, key := path.Split(u.Path)
		if key == "" {
			return Destination{}, fmt.Errorf("destination %q has no file name", dest)
		}
		return Destination{Bucket: "file://" + strings.TrimSuffix(dir, "/"), Key: key}, nil
	}
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return Destination{}, fmt.Errorf("destination %q has no object key", dest)
	}
	return Destination{Bucket: u.Scheme + "://" + u.Host, Key: key}, nil
}

// Write serializes seq as a JSON array into the destination object.
func Write(ctx context.Context, dest Destination, seq iter.Seq2[Record, error]) error {
	bucket, err := blob.OpenBucket(ctx, dest.Bucket)
	if err != nil {
		return fmt.Errorf("opening bucket %s: %w", dest.Bucket, err)
	}
	defer bucket.Close()

	return WriteBucket(ctx, bucket, dest.Key, seq)
}

// WriteBucket serializes seq as a JSON array into key of an open bucket.
func WriteBucket(ctx context.Context, bucket *blob.Bucket, key string, seq iter.Seq2[Record, error]) error {
	// Canceling the writer's context before Close discards the object, so a
	// failed encode never leaves a truncated feed behind.
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w, err := bucket.NewWriter(wctx, key, &blob.WriterOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("creating writer for %s: %w", key, err)
	}
	if err := EncodeArray(w, seq); err != nil {
		cancel()
		_ = w.Close()
		return fmt.Errorf("writing feed to %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("committing feed to %s: %w", key, err)
	}
	clog.InfoContextf(ctx, "Wrote feed to %s", key)
	return nil
}
