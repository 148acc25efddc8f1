package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ArtifactLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artifact_loads_total",
		Help: "Export artifact loads from disk by result",
	}, []string{"result"})

	ArtifactCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artifact_cache_total",
		Help: "Artifact cache lookups by outcome",
	}, []string{"outcome"})

	ChartRenders = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chart_renders_total",
		Help: "Rendered dashboard charts",
	}, []string{"chart"})

	RegenerateRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "regenerate_runs_total",
		Help: "Report regeneration runs triggered from the viewer by result",
	}, []string{"result"})

	RegenerateLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "regenerate_duration_seconds",
		Help:    "Duration of report regeneration runs",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 8),
	})
)
