package recommender

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	recommendationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bed_recommendations_total",
			Help: "Count of successful recommendation cycles by recommender type.",
		},
		[]string{"type"},
	)

	insufficientCandidatesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bed_insufficient_candidates_total",
			Help: "Count of recommendation cycles rejected for lack of candidates.",
		},
	)
)

func init() {
	prometheus.MustRegister(recommendationsTotal, insufficientCandidatesTotal)
}
