package analysis

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var analyses = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "jobshield_analyses_total",
	Help: "Completed analyses by terminal verdict.",
}, []string{"verdict"})

var analysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "jobshield_analysis_duration_seconds",
	Help:    "Wall time of full analysis runs.",
	Buckets: prometheus.DefBuckets,
})

var cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "jobshield_analysis_cache_lookups_total",
	Help: "Result cache lookups by outcome (hit, miss).",
}, []string{"outcome"})

var postingsScored = promauto.NewCounter(prometheus.CounterOpts{
	Name: "jobshield_postings_scored_total",
	Help: "Individual postings scored across all analyses.",
})

func observeAnalysis(verdict string, elapsed time.Duration) {
	analyses.WithLabelValues(verdict).Inc()
	analysisDuration.Observe(elapsed.Seconds())
}

func observeCacheLookup(hit bool) {
	if hit {
		cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	cacheLookups.WithLabelValues("miss").Inc()
}

func observePostingsScored(n int) {
	postingsScored.Add(float64(n))
}
