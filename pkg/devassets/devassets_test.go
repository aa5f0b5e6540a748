/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package devassets

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chainguard-dev/clog/slogtest"

	"github.com/chainguard-dev/asset-pipe/pkg/feed"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestMux(t *testing.T) {
	dir := t.TempDir()
	h := New(nil, nil)
	h.SetEntrypoints("js", []string{writeFile(t, dir, "script.js", "console.log('hi');")})
	h.SetEntrypoints("css", []string{writeFile(t, dir, "style.css", "body { background-color: red; }")})

	srv := httptest.NewServer(h.Mux())
	defer srv.Close()

	tests := []struct {
		path        string
		contentType string
		contains    string
	}{{
		path:        "/js",
		contentType: "application/javascript; charset=utf-8",
		contains:    "console.log",
	}, {
		path:        "/css",
		contentType: "text/css; charset=utf-8",
		contains:    "background-color",
	}}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status: got = %d, want = %d", resp.StatusCode, http.StatusOK)
			}
			if got := resp.Header.Get("Content-Type"); got != tt.contentType {
				t.Errorf("Content-Type: got = %q, want = %q", got, tt.contentType)
			}
			if !strings.Contains(string(body), tt.contains) {
				t.Errorf("body %q does not contain %q", body, tt.contains)
			}
		})
	}
}

func TestRegistryReplayed(t *testing.T) {
	ctx := slogtest.Context(t)
	dir := t.TempDir()

	var reg feed.Registry
	reg.AddTransform(func(_ context.Context, rec feed.Record, _ feed.Options) (feed.Record, error) {
		rec.Source = strings.ToUpper(rec.Source)
		return rec, nil
	}, nil)
	reg.AddPlugin(func(_ context.Context, recs []feed.Record, _ feed.Options) ([]feed.Record, error) {
		return append([]feed.Record{{Source: "/* header */"}}, recs...), nil
	}, nil)

	h := New(feed.NewFileWriter, &reg)
	h.SetEntrypoints("js", []string{writeFile(t, dir, "a.js", "var a;")})

	var sb strings.Builder
	if err := h.Build(ctx, "js", &sb); err != nil {
		t.Fatalf("Build() = %v", err)
	}
	if got, want := sb.String(), "/* header */\nVAR A;\n"; got != want {
		t.Errorf("Build(): got = %q, want = %q", got, want)
	}
}

func TestNoEntrypoints(t *testing.T) {
	srv := httptest.NewServer(New(nil, nil).Mux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/css")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || len(body) != 0 {
		t.Errorf("got = %d %q, want an empty 200", resp.StatusCode, body)
	}
}

func TestBuildFailure(t *testing.T) {
	h := New(nil, nil)
	h.SetEntrypoints("js", []string{filepath.Join(t.TempDir(), "missing.js")})

	srv := httptest.NewServer(h.Mux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/js")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status: got = %d, want = %d", resp.StatusCode, http.StatusInternalServerError)
	}

	if err := h.Check(slogtest.Context(t)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Check() = %v, wanted not-exist", err)
	}
}

func TestFactoryError(t *testing.T) {
	boom := errors.New("boom")
	h := New(func([]string, feed.WriterOptions) (feed.Writer, error) { return nil, boom }, nil)
	h.SetEntrypoints("css", []string{"style.css"})

	if err := h.Build(slogtest.Context(t), "css", io.Discard); !errors.Is(err, boom) {
		t.Errorf("Build() = %v, wanted %v", err, boom)
	}
}
