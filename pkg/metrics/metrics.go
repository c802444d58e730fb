// Package metrics documents the Prometheus metrics of a sync run and pushes
// them to a Pushgateway when the process is a short-lived batch job.
// Metrics are defined in their respective packages (client, ratelimit,
// pipeline) via promauto.
package metrics

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Registry is the registerer all packages register with through promauto.
var Registry = prometheus.DefaultRegisterer

// Gatherer is what Push sends by default.
var Gatherer prometheus.Gatherer = prometheus.DefaultGatherer

// Push replaces the metrics of job on the Pushgateway at url with the
// current values from g (Gatherer when nil). An empty url is a no-op.
func Push(ctx context.Context, url, job string, g prometheus.Gatherer) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil
	}
	if job == "" {
		job = "recordsync"
	}
	if g == nil {
		g = Gatherer
	}

	if err := push.New(url, job).Gatherer(g).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - discogs_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - discogs_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - discogs_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - discogs_retries_total{error_class} (Counter): Retry attempts by error class
//   - discogs_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - discogs_retry_exhausted_total{error_class} (Counter): Requests that exhausted their attempts
//
// Rate Limit Metrics (pkg/ratelimit):
//   - discogs_rate_limit_remaining (Gauge): Requests remaining in the moving window
//   - discogs_rate_limit_waits_total (Counter): Requests held until the window reset
//   - discogs_rate_limit_throttles_total (Counter): Requests slowed down near the limit
//
// Run Metrics (pkg/pipeline):
//   - recordsync_runs_total{result} (Counter): Runs by result (success, configuration, fetch, render, write)
//   - recordsync_records_total (Gauge): Records written by the last successful run
//   - recordsync_last_success_timestamp_seconds (Gauge): Unix time of the last successful run
//   - recordsync_run_duration_seconds (Histogram): Duration of whole runs
//
// Example Prometheus Queries:
//
//	# Hours since the record list was last refreshed
//	(time() - recordsync_last_success_timestamp_seconds) / 3600
//
//	# Request Error Rate
//	rate(discogs_errors_total[1h])
//
//	# Close to the rate limit
//	discogs_rate_limit_remaining < 10
