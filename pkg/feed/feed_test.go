/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package feed

import (
	"context"
	"iter"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// recordingWriter notes the order in which registrations are replayed.
type recordingWriter struct {
	calls []string
}

func (w *recordingWriter) Transform(_ Transform, opts Options) {
	w.calls = append(w.calls, "transform:"+opts["name"].(string))
}

func (w *recordingWriter) Plugin(_ Plugin, opts Options) {
	w.calls = append(w.calls, "plugin:"+opts["name"].(string))
}

func (w *recordingWriter) Bundle(context.Context) iter.Seq2[Record, error] {
	return func(func(Record, error) bool) {}
}

func TestRegistryApply(t *testing.T) {
	var r Registry
	noopT := func(_ context.Context, rec Record, _ Options) (Record, error) { return rec, nil }
	noopP := func(_ context.Context, recs []Record, _ Options) ([]Record, error) { return recs, nil }

	r.AddPlugin(noopP, Options{"name": "p1"})
	r.AddTransform(noopT, Options{"name": "t1"})
	r.AddPlugin(noopP, Options{"name": "p2"})
	r.AddTransform(noopT, Options{"name": "t2"})

	w := &recordingWriter{}
	r.Apply(w)

	want := []string{"transform:t1", "transform:t2", "plugin:p1", "plugin:p2"}
	if diff := cmp.Diff(want, w.calls); diff != "" {
		t.Errorf("Apply() order (-want +got): %s", diff)
	}

	if tr, pl := r.Len(); tr != 2 || pl != 2 {
		t.Errorf("Len(): got = (%d, %d), want = (2, 2)", tr, pl)
	}
}

func TestRegistryClone(t *testing.T) {
	var r Registry
	r.AddTransform(func(_ context.Context, rec Record, _ Options) (Record, error) { return rec, nil }, nil)

	c := r.Clone()
	c.AddPlugin(func(_ context.Context, recs []Record, _ Options) ([]Record, error) { return recs, nil }, nil)

	if _, pl := r.Len(); pl != 0 {
		t.Errorf("original registry gained %d plugins from its clone", pl)
	}
	if tr, pl := c.Len(); tr != 1 || pl != 1 {
		t.Errorf("clone Len(): got = (%d, %d), want = (1, 1)", tr, pl)
	}
}
