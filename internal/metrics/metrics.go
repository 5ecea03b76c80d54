// Package metrics registers the Prometheus collectors for the generation
// pipeline. Everything is registered once via promauto on the default
// registry and exposed through the API server's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GenerationsStarted counts generation requests accepted past the
	// safety and budget gates.
	GenerationsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "appforge_generations_started_total",
		Help: "Number of generation pipelines started",
	})

	// GenerationsCompleted counts pipelines that returned a result,
	// partitioned by whether generated code was produced.
	GenerationsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "appforge_generations_completed_total",
		Help: "Number of generation pipelines completed",
	}, []string{"outcome"}) // "code", "spec_only"

	// GenerationsRejected counts requests rejected before any paid call.
	GenerationsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "appforge_generations_rejected_total",
		Help: "Number of generation requests rejected by policy gates",
	}, []string{"reason"}) // "unsafe_prompt", "budget_exceeded", "invalid_request"

	// StageDuration observes per-stage wall time.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "appforge_stage_duration_seconds",
		Help:    "Wall time of individual pipeline stages",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"stage"})

	// DailySpend mirrors the cost ledger's running total for today.
	DailySpend = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "appforge_daily_spend_usd",
		Help: "Accumulated model spend for the current UTC day",
	})

	// TokensUsed counts tokens reported by the model provider.
	TokensUsed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "appforge_tokens_used_total",
		Help: "Tokens consumed across all model calls",
	}, []string{"kind"}) // "input", "output", "cache_read", "cache_write"
)
