// Package metrics exposes Prometheus counters for remote secret fetches.
// Registration is lazy so library consumers that never touch the remote
// provider pay nothing.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	remoteFetchTotal *prometheus.CounterVec
	remoteRetryTotal *prometheus.CounterVec

	registerOnce sync.Once
)

func register() {
	registerOnce.Do(func() {
		remoteFetchTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "noctivault_remote_fetch_total",
				Help: "Total remote secret fetches by outcome",
			},
			[]string{"outcome"},
		)
		remoteRetryTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "noctivault_remote_retry_total",
				Help: "Total remote fetch retries by reason",
			},
			[]string{"reason"},
		)
	})
}

// RecordFetch counts one remote fetch with its outcome
// ("ok", "not_found", "auth", "argument", "unavailable", "decode").
func RecordFetch(outcome string) {
	register()
	remoteFetchTotal.WithLabelValues(outcome).Inc()
}

// RecordRetry counts one retry with its reason
// ("not_found", "server_error", "rate_limit").
func RecordRetry(reason string) {
	register()
	remoteRetryTotal.WithLabelValues(reason).Inc()
}
