package animate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bananimate_generations_total",
		Help: "Generation requests by outcome (success or error kind).",
	}, []string{"outcome"})

	generationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bananimate_generation_duration_seconds",
		Help:    "Wall time of a full generation, from session creation to cleanup.",
		Buckets: prometheus.ExponentialBuckets(5, 2, 10),
	})

	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bananimate_stage_duration_seconds",
		Help:    "Duration of each pipeline step (edit, preprocess, generate).",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"stage", "status"})

	sessionsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bananimate_sessions_in_flight",
		Help: "Session directories currently alive.",
	})
)
