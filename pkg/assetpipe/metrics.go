/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package assetpipe

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mResolve = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetpipe_resolve_total",
			Help: "The number of bundle URL resolutions by outcome (empty, fallback, ideal)",
		},
		[]string{"type", "result"},
	)
	mVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetpipe_verifications_total",
			Help: "The number of bundle existence checks by outcome (confirmed, missing, error)",
		},
		[]string{"type", "result"},
	)
	mVerificationsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "assetpipe_verifications_in_flight",
			Help: "The number of bundle existence checks currently in flight",
		},
		[]string{"type"},
	)
)
