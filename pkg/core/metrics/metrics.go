// ============================================================================
// englishquery - Natural Language Database Queries
// ============================================================================
//
// Package:     metrics
// Description: Prometheus instruments for queries, translation and speech
// Author:      Mike Stoffels
// Created:     2026-01-13
// License:     MIT
// ============================================================================

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "equery_queries_total",
			Help: "Total number of submitted questions by outcome.",
		},
		[]string{"outcome"},
	)
	queryDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "equery_query_duration_seconds",
			Help:    "Database execution latency of generated statements.",
			Buckets: prometheus.DefBuckets,
		},
	)
	translationDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "equery_translation_duration_seconds",
			Help:    "Latency of natural language to SQL translation by provider.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		},
		[]string{"provider"},
	)
	connectAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "equery_db_connect_attempts_total",
			Help: "Total number of database connection attempts by result.",
		},
		[]string{"result"},
	)
	streamedRowsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "equery_db_streamed_rows_total",
			Help: "Total number of rows delivered by streaming queries.",
		},
	)
	listenerOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "equery_listener_outcomes_total",
			Help: "Total number of speech listening sessions by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		queriesTotal,
		queryDurationSeconds,
		translationDurationSeconds,
		connectAttemptsTotal,
		streamedRowsTotal,
		listenerOutcomesTotal,
	)
}

// ObserveQuery records a submitted question and, when it reached the
// database, its execution time.
func ObserveQuery(outcome string, execution time.Duration) {
	queriesTotal.WithLabelValues(outcome).Inc()
	if execution > 0 {
		queryDurationSeconds.Observe(execution.Seconds())
	}
}

// ObserveTranslation records one translator round trip
func ObserveTranslation(provider string, d time.Duration) {
	translationDurationSeconds.WithLabelValues(provider).Observe(d.Seconds())
}

// IncConnectAttempt counts one connection attempt
func IncConnectAttempt(ok bool) {
	result := "failure"
	if ok {
		result = "success"
	}
	connectAttemptsTotal.WithLabelValues(result).Inc()
}

// AddStreamedRows counts rows yielded by a streaming query
func AddStreamedRows(n int) {
	if n > 0 {
		streamedRowsTotal.Add(float64(n))
	}
}

// IncListenerOutcome counts one finished listening session
func IncListenerOutcome(outcome string) {
	listenerOutcomesTotal.WithLabelValues(outcome).Inc()
}
