/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package assetpipe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestOperation(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	jsDone := make(chan struct{})

	op := start(ctx, []AssetType{JS, CSS}, func(ctx context.Context, t AssetType) (string, error) {
		if t == CSS {
			return "", boom
		}
		// A css failure must not cancel the js run.
		<-jsDone
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "HASH", nil
	})

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := op.Wait(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait() before settling = %v", err)
	}
	close(jsDone)

	res, err := op.Wait(ctx)
	if !errors.Is(err, boom) {
		t.Errorf("Wait() = %v, wanted %v", err, boom)
	}
	if diff := cmp.Diff(Result{JS: "HASH"}, res); diff != "" {
		t.Errorf("Wait() result (-want +got): %s", diff)
	}
	if op.Err(JS) != nil || !errors.Is(op.Err(CSS), boom) {
		t.Errorf("Err(): js = %v, css = %v", op.Err(JS), op.Err(CSS))
	}

	// Results are copies.
	res[JS] = "mutated"
	again, _ := op.Wait(ctx)
	if again[JS] != "HASH" {
		t.Errorf("Wait() result was shared with the caller")
	}
}

func TestOperationJoinsErrors(t *testing.T) {
	errJS, errCSS := errors.New("js failed"), errors.New("css failed")
	op := start(context.Background(), []AssetType{JS, CSS}, func(_ context.Context, t AssetType) (string, error) {
		if t == JS {
			return "", errJS
		}
		return "", errCSS
	})
	<-op.Done()

	_, err := op.Wait(context.Background())
	if !errors.Is(err, errJS) || !errors.Is(err, errCSS) {
		t.Errorf("Wait() = %v, wanted both failures", err)
	}
}

func TestBarrier(t *testing.T) {
	var b barrier
	if err := b.wait(context.Background()); err != nil {
		t.Fatalf("wait() on an empty barrier = %v", err)
	}

	block := make(chan struct{})
	slow := start(context.Background(), []AssetType{JS}, func(context.Context, AssetType) (string, error) {
		<-block
		return "", nil
	})
	b.setPublish(slow, JS)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := b.wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("wait() = %v, wanted %v", err, context.DeadlineExceeded)
	}

	// A new cycle for another type leaves the pending operation in place.
	b.setPublish(settled(), CSS)
	if err := b.wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("wait() after a css cycle = %v, wanted %v", err, context.DeadlineExceeded)
	}

	// A new cycle for the same type replaces it.
	b.setPublish(settled(), JS)
	if err := b.wait(context.Background()); err != nil {
		t.Errorf("wait() after a new cycle = %v", err)
	}
	close(block)
	<-slow.Done()
}
