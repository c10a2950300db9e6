package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var processDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "autoreply_post_process_duration_sec",
	Help: "Total duration of post processing that ended in a posted reply",
})

var rejectCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "autoreply_post_rejects",
	Help: "Number of posts rejected before reply submission, by reason",
}, []string{"reason"})

var replyPostedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "autoreply_replies_posted",
	Help: "Number of replies successfully posted",
}, []string{"subreddit"})

var replyFailedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "autoreply_replies_failed",
	Help: "Number of reply attempts that failed, by stage",
}, []string{"stage"})
