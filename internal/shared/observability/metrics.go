package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stackwalk_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	PhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stackwalk_phase_seconds",
		Help:    "Time spent in each phase of an indexing run.",
		Buckets: prometheus.DefBuckets,
	}, []string{"phase"})

	FilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stackwalk_files_total",
		Help: "Files seen by indexing runs, by outcome (indexed, cached, skipped, failed).",
	}, []string{"outcome"})

	ResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stackwalk_resolutions_total",
		Help: "Call observations by the resolution step that bound them.",
	}, []string{"strategy"})

	GraphBlocks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stackwalk_graph_blocks",
		Help: "Number of blocks produced by the last indexing run.",
	})

	GraphExternalNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stackwalk_graph_external_nodes",
		Help: "Number of unresolved callee nodes in the last call graph.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stackwalk_graph_edges",
		Help: "Number of deduplicated edges in the last call graph.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stackwalk_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	WatcherRunsThrottledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stackwalk_watcher_runs_throttled_total",
		Help: "Re-index triggers delayed by the watch rate limit.",
	})
)
