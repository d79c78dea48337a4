package controller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	gesturesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "annotator_gestures_total",
			Help: "Total number of completed edit gestures",
		},
		[]string{"kind"}, // kind: rectangle_move, polygon_move, polygon_add, polygon_delete
	)

	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "annotator_submissions_total",
			Help: "Total number of submitted corrections",
		},
		[]string{"status"}, // status: success, error
	)

	staleResponsesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "annotator_stale_boundary_responses_total",
			Help: "Boundary responses discarded because the selection changed",
		},
	)
)
