/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package httpmetrics

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
)

var (
	mReqCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetpipe_client_request_count",
			Help: "The total number of HTTP requests sent to the asset build server",
		},
		[]string{"code", "method", "host", "endpoint"},
	)
	mReqInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "assetpipe_client_request_in_flight",
			Help: "The number of outgoing HTTP requests currently inflight",
		},
		[]string{"method", "host", "endpoint"},
	)
	mReqDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assetpipe_client_request_duration_seconds",
			Help:    "The duration of HTTP requests",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"code", "method", "host", "endpoint"},
	)
	seenHostMap = sync.Map{}
)

var (
	bucketsMu sync.RWMutex
	buckets   = map[string]string{}
)

// AddBucket registers a single host under the given label.
func AddBucket(host, label string) {
	bucketsMu.Lock()
	defer bucketsMu.Unlock()
	buckets[host] = label
}

// MetricsTransport is an http.RoundTripper that records metrics for each
// request.
type MetricsTransport struct {
	http.RoundTripper
}

// WrapTransport wraps an http.RoundTripper with instrumentation.
func WrapTransport(t http.RoundTripper) http.RoundTripper {
	if t == nil {
		t = http.DefaultTransport
	}
	return &MetricsTransport{
		RoundTripper: instrumentRoundTripperCounter(
			instrumentRoundTripperInFlight(
				instrumentRoundTripperDuration(
					otelhttp.NewTransport(t)))),
	}
}

func mapErrorToLabel(err error) string {
	switch {
	case strings.Contains(err.Error(), "connection refused"):
		return "connection-refused"
	case strings.Contains(err.Error(), "no such host"):
		return "no-such-host"
	case strings.Contains(err.Error(), "no route to host"):
		return "no-route-to-host"
	case strings.Contains(err.Error(), "i/o timeout"):
		return "io-timeout"
	case strings.Contains(err.Error(), "TLS handshake timeout"):
		return "tls-handshake-timeout"
	case strings.Contains(err.Error(), "unexpected EOF"):
		return "unexpected-eof"
	case strings.Contains(err.Error(), "context canceled"):
		return "canceled"
	}
	return "unknown-error"
}

type endpointKey struct{}

// WithEndpoint labels requests made with ctx as endpoint, for hosts such as
// a CDN whose paths Endpoint cannot classify.
func WithEndpoint(ctx context.Context, endpoint string) context.Context {
	return context.WithValue(ctx, endpointKey{}, endpoint)
}

func endpointOf(r *http.Request) string {
	if e, ok := r.Context().Value(endpointKey{}).(string); ok {
		return e
	}
	return Endpoint(r.URL.Path)
}

// Endpoint maps a build server request path onto a bounded label value.
func Endpoint(path string) string {
	seg := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(seg, '/'); i >= 0 {
		seg = seg[:i]
	}
	switch seg {
	case "feed", "bundle", "publish-assets", "publish-instructions", "sync":
		return seg
	}
	return "other"
}

// These instrument methods are based on promhttp, with bucketized host and
// endpoint labels added:
// https://pkg.go.dev/github.com/prometheus/client_golang/prometheus/promhttp

func instrumentRoundTripperCounter(next http.RoundTripper) promhttp.RoundTripperFunc {
	return func(r *http.Request) (*http.Response, error) {
		tracer := otel.Tracer("httpmetrics")
		host := bucketize(r.Context(), r.URL.Host)
		endpoint := endpointOf(r)
		ctx, span := tracer.Start(r.Context(), fmt.Sprintf("http-%s-%s", r.Method, endpoint))
		// Ensure that outgoing requests are nested under this span.
		r = r.WithContext(ctx)
		defer span.End()

		resp, err := next.RoundTrip(r)
		code := ""
		if err == nil {
			code = fmt.Sprintf("%d", resp.StatusCode)
		} else {
			code = mapErrorToLabel(err)
		}
		mReqCount.With(prometheus.Labels{
			"code":     code,
			"method":   r.Method,
			"host":     host,
			"endpoint": endpoint,
		}).Inc()
		return resp, err
	}
}

func instrumentRoundTripperInFlight(next http.RoundTripper) promhttp.RoundTripperFunc {
	return func(r *http.Request) (*http.Response, error) {
		g := mReqInFlight.With(prometheus.Labels{
			"method":   r.Method,
			"host":     bucketize(r.Context(), r.URL.Host),
			"endpoint": endpointOf(r),
		})
		g.Inc()
		defer g.Dec()
		return next.RoundTrip(r)
	}
}

func instrumentRoundTripperDuration(next http.RoundTripper) promhttp.RoundTripperFunc {
	return func(r *http.Request) (*http.Response, error) {
		start := time.Now()
		resp, err := next.RoundTrip(r)
		if err == nil {
			mReqDuration.With(prometheus.Labels{
				"code":     fmt.Sprintf("%d", resp.StatusCode),
				"method":   r.Method,
				"host":     bucketize(r.Context(), r.URL.Host),
				"endpoint": endpointOf(r),
			}).Observe(time.Since(start).Seconds())
		}
		return resp, err
	}
}

func bucketize(ctx context.Context, host string) string {
	bucketsMu.RLock()
	b, ok := buckets[host]
	bucketsMu.RUnlock()
	if ok {
		return b
	}

	v, _ := seenHostMap.LoadOrStore(host, &atomic.Int64{})
	vInt := v.(*atomic.Int64)

	if seen := vInt.Add(1); (seen-1)%10 == 0 {
		clog.WarnContext(ctx, `bucketing host as "other", use httpmetrics.AddBucket`, "host", host, "seen", seen)
	}
	return "other"
}
