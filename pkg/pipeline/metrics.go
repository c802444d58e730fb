package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recordsync_runs_total",
		Help: "Sync runs by result",
	}, []string{"result"})

	recordsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "recordsync_records_total",
		Help: "Records written by the last successful run",
	})

	lastSuccess = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "recordsync_last_success_timestamp_seconds",
		Help: "Unix time of the last successful run",
	})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "recordsync_run_duration_seconds",
		Help:    "Duration of sync runs",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})
)
