// Package metrics registers and exposes the classifier's operability
// surface: one histogram for the per-datagram classify timer and one
// counter for pipeline drops, plus an HTTP handler serving them in
// Prometheus exposition format. Grounded on
// straticus1-dnsscienced/api/grpc/middleware/middleware.go's
// RPCDurations/RPCRequests pattern (NewHistogramVec/NewCounterVec plus
// MustRegister in init) and cmd/dnsscience-grpc/main.go's metrics HTTP
// server goroutine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TagAndRouteDuration samples the wall-clock cost of one classifier
	// invocation, regardless of whether either parser accepted the
	// datagram.
	TagAndRouteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "processors_udp_timer_tag_and_route_seconds",
			Help:    "Duration of one classifier tag-and-route invocation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	// PipelineDrops counts items a downstream pipeline could not accept
	// because its buffer was full, labeled by pipeline name.
	PipelineDrops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "processors_udp_pipeline_drops_total",
			Help: "Items dropped because a downstream pipeline buffer was full",
		},
		[]string{"pipeline"},
	)

	// TableLockWaitDrops counts session-table registrations skipped
	// because a shard's lock could not be acquired promptly.
	TableLockWaitDrops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "processors_udp_table_lock_wait_drops_total",
			Help: "Session-table registrations skipped due to lock contention",
		},
		[]string{"table"},
	)
)

func init() {
	prometheus.MustRegister(TagAndRouteDuration, PipelineDrops, TableLockWaitDrops)
}

// ObserveTagAndRoute records one classify-duration sample under outcome
// (e.g. "dns", "dhcpv4", "both", "unrecognized").
func ObserveTagAndRoute(outcome string, d time.Duration) {
	TagAndRouteDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordPipelineDrop increments the drop counter for the named pipeline.
func RecordPipelineDrop(pipeline string) {
	PipelineDrops.WithLabelValues(pipeline).Inc()
}

// RecordTableLockDrop increments the drop counter for the named table.
func RecordTableLockDrop(table string) {
	TableLockWaitDrops.WithLabelValues(table).Inc()
}

// Handler returns the HTTP handler that serves the registered metrics in
// Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
