// Package metrics provides Prometheus metrics for feedvault.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "feedvault"

var (
	// CacheLookups counts feed cache lookups by result (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Total number of feed cache lookups",
		},
		[]string{"result"},
	)

	// CacheRefreshFailures counts cache writes that failed after a commit.
	CacheRefreshFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_refresh_failures_total",
			Help:      "Total number of failed cache refreshes after commit",
		},
	)

	// Transactions counts units of work by outcome.
	Transactions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Total number of transactional units of work",
		},
		[]string{"outcome"},
	)

	// GuardDecisions counts due date guard decisions.
	GuardDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_decisions_total",
			Help:      "Total number of due date guard decisions",
		},
		[]string{"intent", "decision"},
	)
)

// Cache lookup results.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Transaction outcomes.
const (
	TxCommitted  = "committed"
	TxRolledBack = "rolled_back"
)

// RecordCacheLookup records the result of a cache lookup.
func RecordCacheLookup(result string) {
	CacheLookups.WithLabelValues(result).Inc()
}

// RecordCacheRefreshFailure records a failed post-commit cache write.
func RecordCacheRefreshFailure() {
	CacheRefreshFailures.Inc()
}

// RecordTransaction records the outcome of a unit of work.
func RecordTransaction(outcome string) {
	Transactions.WithLabelValues(outcome).Inc()
}

// RecordGuardDecision records a guard decision.
func RecordGuardDecision(intent, decision string) {
	GuardDecisions.WithLabelValues(intent, decision).Inc()
}
