// Package metrics exposes Prometheus collectors for the bot.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	commentsTotal           *prometheus.CounterVec
	repliesPostedTotal      prometheus.Counter
	publishRetriesTotal     prometheus.Counter
	supervisorRestartsTotal prometheus.Counter
	rulesLoaded             prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		commentsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inkbot_comments_total",
				Help: "Comments consumed from the feed, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		repliesPostedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "inkbot_replies_posted_total",
				Help: "Replies successfully posted.",
			},
		)

		publishRetriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "inkbot_publish_retries_total",
				Help: "Transient publish failures that triggered a retry wait.",
			},
		)

		supervisorRestartsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "inkbot_supervisor_restarts_total",
				Help: "Full session restarts performed by the supervisor.",
			},
		)

		rulesLoaded = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "inkbot_rules_loaded",
				Help: "Rules loaded for the current session.",
			},
		)
	})
}

// CommentSeen records one consumed comment with its pipeline outcome
// (replied, no_tokens, no_match, duplicate).
func CommentSeen(outcome string) {
	if commentsTotal != nil {
		commentsTotal.WithLabelValues(outcome).Inc()
	}
}

// ReplyPosted records one successfully posted reply.
func ReplyPosted() {
	if repliesPostedTotal != nil {
		repliesPostedTotal.Inc()
	}
}

// PublishRetried records one transient failure followed by a retry wait.
func PublishRetried() {
	if publishRetriesTotal != nil {
		publishRetriesTotal.Inc()
	}
}

// SupervisorRestarted records one full session restart.
func SupervisorRestarted() {
	if supervisorRestartsTotal != nil {
		supervisorRestartsTotal.Inc()
	}
}

// RulesLoaded records the size of the freshly loaded rule set.
func RulesLoaded(n int) {
	if rulesLoaded != nil {
		rulesLoaded.Set(float64(n))
	}
}

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
