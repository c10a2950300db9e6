package reddit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var apiRequestCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "autoreply_reddit_api_requests",
	Help: "Number of Reddit API requests, by method and HTTP status code",
}, []string{"method", "status"})

var fetchedPostCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "autoreply_reddit_fetched_posts",
	Help: "Number of posts returned by listing requests",
}, []string{"subreddit"})

var submitOkCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "autoreply_reddit_submit_ok",
	Help: "Number of comments successfully posted",
})

var submitFailureCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "autoreply_reddit_submit_failures",
	Help: "Number of rejected comment submissions, by reddit error code",
}, []string{"code"})
