package consumer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var cycleCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "autoreply_consumer_cycles",
	Help: "Number of poll cycles started",
})

var cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "autoreply_consumer_cycle_duration_sec",
	Help: "Duration of poll cycles",
})

var fetchErrorCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "autoreply_consumer_fetch_errors",
	Help: "Number of failed subreddit listing requests",
})

var processErrorCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "autoreply_consumer_process_errors",
	Help: "Number of posts whose processing returned an error",
})

var skippedPostCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "autoreply_consumer_skipped_posts",
	Help: "Number of posts dropped before engine processing, by reason",
}, []string{"reason"})
