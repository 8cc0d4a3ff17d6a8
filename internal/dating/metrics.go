package dating

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recommendationsServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dating_recommendations_served_total",
			Help: "Total number of recommendations returned to clients",
		},
	)

	candidatesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dating_candidates_dropped_total",
			Help: "Candidates removed by the hard filters, by reason",
		},
		[]string{"reason"},
	)

	compatibilityScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dating_compatibility_scores",
			Help:    "Distribution of compatibility scores",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	rankingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dating_ranking_duration_seconds",
			Help:    "Time spent filtering, scoring and sorting one candidate pool",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
	)
)

func RecordCompatibilityScore(score float64) {
	compatibilityScores.Observe(score)
}

func RecordRanking(duration time.Duration, returned int) {
	rankingDuration.Observe(duration.Seconds())
	recommendationsServed.Add(float64(returned))
}

func RecordFilterStats(stats FilterStats) {
	for reason, n := range map[string]int{
		"excluded":  stats.Excluded,
		"self":      stats.Self,
		"gender":    stats.Gender,
		"distance":  stats.Distance,
		"malformed": stats.Malformed,
		"duplicate": stats.Duplicate,
	} {
		if n > 0 {
			candidatesDropped.WithLabelValues(reason).Add(float64(n))
		}
	}
}
