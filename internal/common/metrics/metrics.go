// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HarvestTasksCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_tasks_completed_total",
			Help: "Total number of harvest tasks completed",
		},
		[]string{"task_type"},
	)

	HarvestTasksFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_tasks_failed_total",
			Help: "Total number of harvest tasks failed",
		},
		[]string{"task_type", "error_code"},
	)

	HarvestTaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "harvest_task_duration_seconds",
			Help: "Duration of harvest task processing in seconds",
		},
		[]string{"task_type"},
	)

	ReviewsHarvested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviews_harvested_total",
			Help: "Total number of reviews harvested",
		},
		[]string{"location"},
	)

	RangesOutstanding = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "review_ranges_outstanding",
			Help: "Number of unresolved review index ranges per location",
		},
		[]string{"location"},
	)

	RecordsUpserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "records_upserted_total",
			Help: "Total number of business records written to storage",
		},
		[]string{"table"},
	)
)
