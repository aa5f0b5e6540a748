/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package httpratelimit backs off from an asset build server that reports it
// is overloaded.
package httpratelimit

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

// HeaderRetryAfter indicates how long to wait before retrying, either in
// seconds or as an HTTP date.
const HeaderRetryAfter = "Retry-After"

// DefaultMaxRetries bounds how many times a single request is replayed
// after being rate limited.
const DefaultMaxRetries = 3

// Transport wraps an http.RoundTripper and pauses all requests when the
// build server answers 429 Too Many Requests or 503 Service Unavailable.
// Requests whose body can be replayed are retried once the pause ends;
// streamed bodies are not, and the limited response is returned as-is.
type Transport struct {
	base              http.RoundTripper
	limiter           *limiter
	defaultRetryAfter time.Duration
	maxRetries        int
	clock             clockwork.Clock
}

// Option configures a Transport.
type Option func(*Transport)

// WithClock replaces the clock used to time pauses.
func WithClock(c clockwork.Clock) Option {
	return func(t *Transport) {
		t.clock = c
		t.limiter.clock = c
	}
}

// WithMaxRetries sets how many times a limited request is replayed.
func WithMaxRetries(n int) Option {
	return func(t *Transport) { t.maxRetries = n }
}

// WithRate caps the steady request rate, independently of any pause.
func WithRate(r rate.Limit, burst int) Option {
	return func(t *Transport) { t.limiter.base = rate.NewLimiter(r, burst) }
}

// NewTransport creates a new rate limiting transport wrapper.
// The defaultRetryAfter specifies how long to wait when rate limited but no
// Retry-After header is provided (defaults to 1 second).
func NewTransport(base http.RoundTripper, defaultRetryAfter time.Duration, opts ...Option) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if defaultRetryAfter == 0 {
		defaultRetryAfter = time.Second
	}

	clock := clockwork.NewRealClock()
	t := &Transport{
		base: base,
		limiter: &limiter{
			base:  rate.NewLimiter(rate.Inf, 100),
			clock: clock,
		},
		defaultRetryAfter: defaultRetryAfter,
		maxRetries:        DefaultMaxRetries,
		clock:             clock,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RoundTrip implements http.RoundTripper and adds rate limiting logic.
func (rt *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	log := clog.FromContext(ctx)

	for attempt := 0; ; attempt++ {
		// Wait if we're currently paused due to rate limiting
		if err := rt.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := rt.base.RoundTrip(req)
		if err != nil {
			return resp, err
		}

		pause, limited := rt.retryAfter(ctx, resp)
		if !limited {
			return resp, nil
		}
		log.With("status", resp.StatusCode, "retry_after", pause, "attempt", attempt).
			Warn("asset build server is throttling, pausing requests")
		rt.limiter.PauseFor(pause)

		if attempt >= rt.maxRetries {
			return resp, nil
		}
		next, ok := replay(req)
		if !ok {
			return resp, nil
		}
		if resp.Body != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
		req = next
	}
}

// replay returns a copy of req with a fresh body, or false when the body
// has already been consumed and cannot be produced again.
func replay(req *http.Request) (*http.Request, bool) {
	if req.Body == nil || req.Body == http.NoBody {
		return req.Clone(req.Context()), true
	}
	if req.GetBody == nil {
		return nil, false
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, false
	}
	next := req.Clone(req.Context())
	next.Body = body
	return next, true
}

// retryAfter reports whether resp indicates throttling, and for how long
// requests should be paused.
func (rt *Transport) retryAfter(ctx context.Context, resp *http.Response) (time.Duration, bool) {
	if resp.StatusCode != http.StatusTooManyRequests &&
		resp.StatusCode != http.StatusServiceUnavailable {
		return 0, false
	}

	v := resp.Header.Get(HeaderRetryAfter)
	if v == "" {
		if resp.StatusCode == http.StatusServiceUnavailable {
			// A bare 503 is an outage, not back-pressure.
			return 0, false
		}
		return rt.defaultRetryAfter, true
	}
	if seconds, err := strconv.Atoi(v); err == nil {
		if seconds <= 0 {
			return rt.defaultRetryAfter, true
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(v); err == nil {
		if d := when.Sub(rt.clock.Now()); d > 0 {
			return d, true
		}
		return rt.defaultRetryAfter, true
	}
	clog.FromContext(ctx).Warnf("Failed to parse retry-after header: %q", v)
	return rt.defaultRetryAfter, true
}

// limiter provides a pausable rate limiter that can temporarily block all requests.
type limiter struct {
	base       *rate.Limiter
	clock      clockwork.Clock
	mu         sync.Mutex
	pauseUntil time.Time
	pauseCh    chan struct{}
}

// Wait blocks until the limiter allows a request to proceed.
// It respects both the underlying rate limiter and any active pause.
func (l *limiter) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		pauseCh := l.pauseCh
		l.mu.Unlock()

		if pauseCh == nil {
			break
		}
		// A pause may be replaced by a longer one while we wait, so check
		// again once this one ends.
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-pauseCh:
		}
	}

	return l.base.Wait(ctx)
}

// PauseFor pauses all requests for the specified duration.
// If already paused, extends the pause only if the new duration is longer.
func (l *limiter) PauseFor(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	until := l.clock.Now().Add(d)

	if !until.After(l.pauseUntil) {
		return
	}
	l.pauseUntil = until

	if l.pauseCh != nil {
		close(l.pauseCh)
	}
	l.pauseCh = make(chan struct{})

	timer := l.clock.NewTimer(d)
	go func(ch chan struct{}) {
		defer timer.Stop()
		<-timer.Chan()

		l.mu.Lock()
		// Only clear if this is still the active pause channel
		if ch == l.pauseCh {
			close(ch)
			l.pauseCh = nil
			l.pauseUntil = time.Time{}
		}
		l.mu.Unlock()
	}(l.pauseCh)
}

// Paused reports whether requests are currently held back.
func (l *limiter) Paused() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pauseCh != nil
}
