package optimistic

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/kalambet/talentflow/internal/entity"
)

var (
	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "talentflow_mutations_total",
		Help: "Optimistic mutations by kind and settlement result",
	}, []string{"kind", "result"})

	mutationSettleSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "talentflow_mutation_settle_seconds",
		Help:    "Time from local apply to remote settlement",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
	}, []string{"kind"})
)

// observe records one settlement. result is "committed", "rolled_back",
// "refetched" or the entity outcome when the settlement changed nothing.
func observe(kind, result string, outcome entity.Outcome, start time.Time) {
	if outcome != entity.Applied {
		result = outcome.String()
	}
	mutationsTotal.WithLabelValues(kind, result).Inc()
	mutationSettleSeconds.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
