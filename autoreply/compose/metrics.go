package compose

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var generationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "autoreply_generation_duration_sec",
	Help: "Duration of reply generation calls, by provider",
}, []string{"provider"})

var generationAttemptCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "autoreply_generation_attempts",
	Help: "Number of reply generation attempts, by provider and outcome",
}, []string{"provider", "outcome"})

var chainExhaustedCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "autoreply_generation_chain_exhausted",
	Help: "Number of posts for which every generation provider failed",
})
