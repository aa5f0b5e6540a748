/*
Copyright 2024 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package profiler

import (
	"errors"
	"testing"

	"cloud.google.com/go/compute/metadata"
	"cloud.google.com/go/profiler"
	"github.com/chainguard-dev/clog/slogtest"
	"google.golang.org/api/option"
)

func TestSetupProfiler(t *testing.T) {
	var got *profiler.Config
	start = func(cfg profiler.Config, _ ...option.ClientOption) error {
		got = &cfg
		return nil
	}
	onGCE = func() bool { return true }
	t.Cleanup(func() {
		start = profiler.Start
		onGCE = metadata.OnGCE
	})

	t.Run("disabled", func(t *testing.T) {
		t.Setenv("ENABLE_PROFILER", "false")
		got = nil
		if err := SetupProfiler(slogtest.Context(t)); err != nil {
			t.Fatalf("SetupProfiler() = %v", err)
		}
		if got != nil {
			t.Errorf("profiler started while disabled: %+v", got)
		}
	})

	t.Run("enabled", func(t *testing.T) {
		t.Setenv("ENABLE_PROFILER", "true")
		t.Setenv("K_SERVICE", "assets-dev")
		t.Setenv("K_REVISION", "assets-dev-00001")
		got = nil
		if err := SetupProfiler(slogtest.Context(t)); err != nil {
			t.Fatalf("SetupProfiler() = %v", err)
		}
		if got == nil || got.Service != "assets-dev" || got.ServiceVersion != "assets-dev-00001" {
			t.Errorf("profiler config: got = %+v", got)
		}
	})

	t.Run("off gcp without a project", func(t *testing.T) {
		t.Setenv("ENABLE_PROFILER", "true")
		t.Setenv("GOOGLE_CLOUD_PROJECT", "")
		onGCE = func() bool { return false }
		defer func() { onGCE = func() bool { return true } }()
		got = nil
		if err := SetupProfiler(slogtest.Context(t)); err != nil {
			t.Fatalf("SetupProfiler() = %v", err)
		}
		if got != nil {
			t.Errorf("profiler started without a project: %+v", got)
		}
	})

	t.Run("start failure", func(t *testing.T) {
		t.Setenv("ENABLE_PROFILER", "true")
		boom := errors.New("boom")
		start = func(profiler.Config, ...option.ClientOption) error { return boom }
		if err := SetupProfiler(slogtest.Context(t)); !errors.Is(err, boom) {
			t.Errorf("SetupProfiler() = %v, wanted %v", err, boom)
		}
	})
}
