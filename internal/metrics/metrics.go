// Package metrics declares the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ofuq_http_requests_total",
			Help: "HTTP requests by route pattern, method and status class",
		},
		[]string{"route", "method", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ofuq_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	InsightGenerations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ofuq_insight_generations_total",
			Help: "Daily insight generation attempts by outcome",
		},
		[]string{"outcome"}, // generated | skipped | failed
	)

	InsightGenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ofuq_insight_generation_duration_seconds",
			Help:    "Time spent generating and storing a weekly insight batch",
			Buckets: []float64{1, 2, 5, 10, 20, 40, 80},
		},
	)

	StudySessionsSaved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ofuq_study_sessions_saved_total",
			Help: "Study session persistence attempts by outcome",
		},
		[]string{"outcome"}, // success | failure
	)

	ActiveTimers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ofuq_active_study_timers",
			Help: "Study timers currently held in memory",
		},
	)

	QuizzesCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ofuq_quizzes_completed_total",
			Help: "Quiz runs that reached the results phase",
		},
	)

	LectureImports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ofuq_lecture_imports_total",
			Help: "Lecture import attempts by outcome",
		},
		[]string{"outcome"}, // accepted | rejected
	)
)
