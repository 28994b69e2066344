package feedback

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marek/jobshield/internal/types"
)

var feedbackRecords = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "jobshield_feedback_records_total",
	Help: "Feedback records ingested, labeled by whether the verdict was correct.",
}, []string{"correct"})

var bucketAccuracy = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "jobshield_classification_accuracy",
	Help: "Rolling classification accuracy per page-type bucket.",
}, []string{"page_type"})

func observeRecord(correct bool) {
	feedbackRecords.WithLabelValues(strconv.FormatBool(correct)).Inc()
}

func setBucketAccuracy(pageType types.PageType, accuracy float64) {
	bucketAccuracy.WithLabelValues(string(pageType)).Set(accuracy)
}
