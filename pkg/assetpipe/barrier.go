/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package assetpipe

import (
	"context"
	"slices"
	"sync"
)

// barrier joins the current publish and bundle operation of each asset
// type. Starting a cycle for a type replaces only that type's operation.
type barrier struct {
	mu      sync.Mutex
	publish map[AssetType]*Operation
	bundle  map[AssetType]*Operation
}

func (b *barrier) setPublish(op *Operation, types ...AssetType) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publish == nil {
		b.publish = make(map[AssetType]*Operation, 2)
	}
	for _, t := range types {
		b.publish[t] = op
	}
}

func (b *barrier) setBundle(op *Operation, types ...AssetType) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bundle == nil {
		b.bundle = make(map[AssetType]*Operation, 2)
	}
	for _, t := range types {
		b.bundle[t] = op
	}
}

// wait returns nil once every current operation has settled, whatever its
// outcome.
func (b *barrier) wait(ctx context.Context) error {
	b.mu.Lock()
	ops := make([]*Operation, 0, len(b.publish)+len(b.bundle))
	for _, m := range []map[AssetType]*Operation{b.publish, b.bundle} {
		for _, op := range m {
			if !slices.Contains(ops, op) {
				ops = append(ops, op)
			}
		}
	}
	b.mu.Unlock()

	for _, op := range ops {
		select {
		case <-op.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
