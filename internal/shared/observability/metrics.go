package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	LoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gradecheck_load_seconds",
		Help:    "Time spent reading and parsing a submitted source file.",
		Buckets: prometheus.DefBuckets,
	})

	LoadFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gradecheck_load_failures_total",
		Help: "Total number of submitted files that could not be loaded.",
	})

	RegistryHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gradecheck_registry_hits_total",
		Help: "Total number of loads served from the per-submission registry.",
	})

	ChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gradecheck_checks_total",
		Help: "Total number of checks evaluated, by kind and outcome.",
	}, []string{"kind", "outcome"})

	CheckDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gradecheck_check_seconds",
		Help:    "Time spent evaluating a single check.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	PointsDeductedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gradecheck_points_deducted_total",
		Help: "Total number of points deducted across all graded submissions.",
	})

	InterpreterRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gradecheck_interpreter_runs_total",
		Help: "Total number of Python interpreter invocations, by purpose.",
	}, []string{"purpose"})

	ParsersLeased = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gradecheck_parsers_leased",
		Help: "Number of tree-sitter parsers currently leased from the pool.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gradecheck_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)
