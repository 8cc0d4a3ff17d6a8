package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	admissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratelimit_admissions_total",
			Help: "Admission decisions by backend and result",
		},
		[]string{"backend", "result"},
	)

	storeFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratelimit_store_failures_total",
			Help: "Shared store failures by the failure policy applied",
		},
		[]string{"policy"},
	)

	windowsReapedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ratelimit_windows_reaped_total",
			Help: "Expired local windows removed by the reaper",
		},
	)

	// 0 closed, 1 half-open, 2 open
	breakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ratelimit_store_breaker_state",
			Help: "Circuit breaker state of the shared store",
		},
	)
)

func recordAdmission(d Decision, err error) {
	if err != nil {
		return
	}
	result := "admitted"
	if !d.Admitted {
		result = "rejected"
	}
	admissionsTotal.WithLabelValues(d.Backend, result).Inc()
}

func recordStoreFailure(policy FailurePolicy) {
	storeFailuresTotal.WithLabelValues(string(policy)).Inc()
}

func recordReaped(n int) {
	windowsReapedTotal.Add(float64(n))
}
