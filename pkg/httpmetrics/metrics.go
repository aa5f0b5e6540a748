/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package httpmetrics instruments the HTTP traffic between an asset-pipe
// client and its build server, and the handlers it serves in development.
package httpmetrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"strconv"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sethvargo/go-envconfig"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
)

type metricsEnv struct {
	MetricsPort int  `env:"METRICS_PORT, default=2112"`
	EnablePprof bool `env:"ENABLE_PPROF, default=false"`
}

// ServeMetrics serves the metrics endpoint on METRICS_PORT and blocks until
// the server stops.
func ServeMetrics(ctx context.Context) {
	var env metricsEnv
	if err := envconfig.Process(ctx, &env); err != nil {
		clog.ErrorContext(ctx, "Failed to process environment variables", "error", err)
		return
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", env.MetricsPort),
		Handler:           metricsMux(env),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.WithoutCancel(ctx))
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		clog.ErrorContext(ctx, "listen and serve for http /metrics", "error", err)
	}
}

func metricsMux(env metricsEnv) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if env.EnablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return mux
}

var (
	inFlightGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "assetpipe_http_inflight_requests",
			Help: "A gauge of requests currently being served by the wrapped handler.",
		},
		[]string{"handler"},
	)
	duration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assetpipe_http_request_duration_seconds",
			Help:    "A histogram of latencies for requests.",
			Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"handler", "method"},
	)
	responseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assetpipe_http_response_size_bytes",
			Help:    "A histogram of response sizes for requests.",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		},
		[]string{"handler", "method"},
	)
	counter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetpipe_http_request_status",
			Help: "The number of processed requests by response code",
		},
		[]string{"handler", "method", "code"},
	)
)

// Handler wraps a given http handler in standard metrics handlers.
func Handler(name string, handler http.Handler) http.Handler {
	labels := prometheus.Labels{"handler": name}
	return promhttp.InstrumentHandlerInFlight(
		inFlightGauge.With(labels),
		promhttp.InstrumentHandlerDuration(
			duration.MustCurryWith(labels),
			instrumentHandlerCounter(
				counter.MustCurryWith(labels),
				promhttp.InstrumentHandlerResponseSize(
					responseSize.MustCurryWith(labels),
					otelhttp.NewHandler(handler, name),
				),
			),
		),
	)
}

// SetupTracer installs an OTLP/HTTP trace exporter as the global tracer
// provider.
//
// Expected usage:
//
//	defer httpmetrics.SetupTracer(ctx)()
func SetupTracer(ctx context.Context) func() {
	traceExporter, err := otlptracehttp.New(ctx)
	if err != nil {
		clog.FromContext(ctx).Fatalf("SetupTracer() = %v", err)
	}
	bsp := trace.NewBatchSpanProcessor(traceExporter)
	res := resource.Default()

	tp := trace.NewTracerProvider(
		trace.WithResource(res),
		trace.WithSpanProcessor(bsp),
	)
	otel.SetTracerProvider(tp)

	prp := propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
	otel.SetTextMapPropagator(prp)

	return func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			slog.Error("Error shutting down tracer provider", "error", err)
		}
	}
}

type delegator struct {
	http.ResponseWriter
	Status int
}

func (d *delegator) WriteHeader(status int) {
	d.Status = status
	d.ResponseWriter.WriteHeader(status)
}

func instrumentHandlerCounter(counter *prometheus.CounterVec, next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d := &delegator{
			ResponseWriter: w,
			Status:         200,
		}

		next.ServeHTTP(d, r)
		counter.With(prometheus.Labels{
			"method": r.Method,
			"code":   strconv.Itoa(d.Status),
		}).Inc()
	}
}
