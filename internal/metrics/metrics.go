// Package metrics holds the Prometheus collectors shared across the bot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medterms_cache_hits_total",
		Help: "Cache lookups served from memory, by cache and freshness",
	}, []string{"cache", "freshness"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medterms_cache_misses_total",
		Help: "Cache lookups that required a load",
	}, []string{"cache"})

	CacheLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medterms_cache_loads_total",
		Help: "Loader invocations by result",
	}, []string{"cache", "result"})

	AnswersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medterms_answers_total",
		Help: "Quiz answers by correctness",
	}, []string{"result"})

	ProgressWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medterms_progress_write_failures_total",
		Help: "Answers that could not be persisted",
	})

	ExampleRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medterms_example_requests_total",
		Help: "Example sentence requests by result",
	}, []string{"result"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "medterms_active_sessions",
		Help: "Quiz sessions currently held in memory",
	})
)

// Result label helpers
const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultFallback = "fallback"
)

// AnswerLabel returns the label value for an answer outcome
func AnswerLabel(correct bool) string {
	if correct {
		return "correct"
	}
	return "incorrect"
}
