// Package metrics holds the Prometheus collectors of the import pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ImportRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rtr_import_rows_total",
			Help: "Import rows processed, by sheet kind and outcome",
		},
		[]string{"sheet_kind", "status"},
	)

	HeaderResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rtr_header_resolution_total",
			Help: "Sheet header resolutions, by classified kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	PermitAnnotations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rtr_permit_annotations_total",
			Help: "Ticket annotation evaluations, by the rule that decided them",
		},
		[]string{"rule", "changed"},
	)

	GuardFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rtr_guard_failures_total",
			Help: "Ticket annotation evaluations that failed",
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rtr_http_requests_total",
			Help: "HTTP requests served, by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	ImportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rtr_import_duration_seconds",
			Help:    "Wall time of a workbook or row batch import",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 600},
		},
	)
)
