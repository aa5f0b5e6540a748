/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package httpmetrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestServerMetrics(t *testing.T) {
	handler := "test"
	mux := http.NewServeMux()
	mux.Handle("/", Handler(handler, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("want Accepted, got %s", resp.Status)
	}

	// Sample a metric to make sure labels are being properly applied.
	if got := testutil.ToFloat64(counter.With(prometheus.Labels{
		"handler": handler,
		"method":  http.MethodGet,
		"code":    "202",
	})); got != 1 {
		t.Errorf("want metric count = 1, got %f", got)
	}
}

func TestMetricsMux(t *testing.T) {
	tests := []struct {
		name  string
		pprof bool
		path  string
		want  int
	}{{
		name: "metrics",
		path: "/metrics",
		want: http.StatusOK,
	}, {
		name: "pprof disabled",
		path: "/debug/pprof/",
		want: http.StatusNotFound,
	}, {
		name:  "pprof enabled",
		pprof: true,
		path:  "/debug/pprof/",
		want:  http.StatusOK,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := metricsMux(metricsEnv{EnablePprof: tt.pprof})
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("GET %s: got = %d, want = %d", tt.path, rec.Code, tt.want)
			}
		})
	}
}
