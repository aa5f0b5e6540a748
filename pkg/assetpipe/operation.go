/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package assetpipe

import (
	"context"
	"errors"
	"maps"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Result maps each submitted type to the server's answer: the feed hash for
// a publish, the acceptance status for bundle instructions.
type Result map[AssetType]string

// Operation tracks one Publish or BundleInstructions call. Each type runs
// in its own goroutine; a failure in one never cancels the other.
type Operation struct {
	done chan struct{}

	mu     sync.Mutex
	result Result
	errs   map[AssetType]error
	err    error
}

func settled() *Operation {
	op := &Operation{
		done:   make(chan struct{}),
		result: Result{},
		errs:   map[AssetType]error{},
	}
	close(op.done)
	return op
}

func start(ctx context.Context, types []AssetType, run func(context.Context, AssetType) (string, error)) *Operation {
	if len(types) == 0 {
		return settled()
	}
	op := &Operation{
		done:   make(chan struct{}),
		result: make(Result, len(types)),
		errs:   make(map[AssetType]error, len(types)),
	}

	var eg errgroup.Group
	for _, t := range types {
		eg.Go(func() error {
			v, err := run(ctx, t)

			op.mu.Lock()
			defer op.mu.Unlock()
			if err != nil {
				op.errs[t] = err
				return err
			}
			op.result[t] = v
			return nil
		})
	}

	go func() {
		_ = eg.Wait()

		op.mu.Lock()
		errs := make([]error, 0, len(op.errs))
		for _, t := range types {
			if err := op.errs[t]; err != nil {
				errs = append(errs, err)
			}
		}
		op.err = errors.Join(errs...)
		op.mu.Unlock()

		close(op.done)
	}()
	return op
}

// Done is closed once every type has settled.
func (op *Operation) Done() <-chan struct{} {
	return op.done
}

// Wait blocks until the operation settles or ctx is done. The error joins
// the failures of every type.
func (op *Operation) Wait(ctx context.Context) (Result, error) {
	select {
	case <-op.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	op.mu.Lock()
	defer op.mu.Unlock()
	return maps.Clone(op.result), op.err
}

// Err returns the failure for t, if it has settled with one.
func (op *Operation) Err(t AssetType) error {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.errs[t]
}
