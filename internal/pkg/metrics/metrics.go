package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every paramsync collector plus the Go and process collectors.
var Registry = prometheus.NewRegistry()

var (
	// HashCheckTotal counts _HASH_CHECK outcomes (hit, miss, no_response).
	HashCheckTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paramsync_hash_check_total",
			Help: "Hash check exchanges by outcome.",
		},
		[]string{"outcome"},
	)

	// FetchTotal counts full fetches by outcome (completed, timed_out) and strategy (list, file).
	FetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paramsync_fetch_total",
			Help: "Full parameter fetches by outcome and acquisition strategy.",
		},
		[]string{"outcome", "strategy"},
	)

	// Sessions tracks live vehicle sessions per state.
	Sessions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "paramsync_sessions",
			Help: "Vehicle parameter sessions by state.",
		},
		[]string{"state"},
	)

	// ReadyLatency observes the time from the start of a sync cycle to readiness.
	ReadyLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "paramsync_ready_latency_seconds",
			Help:    "Time from connect or refresh until parameters are ready.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"}, // path: hash_hit, fetch, skip
	)

	// CacheOperationsTotal counts cache store calls by operation and result.
	CacheOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paramsync_cache_operations_total",
			Help: "Parameter cache operations by operation and result.",
		},
		[]string{"op", "result"},
	)

	// IgnoredMessagesTotal counts late or unexpected protocol messages.
	IgnoredMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paramsync_ignored_messages_total",
			Help: "Protocol messages dropped because no exchange was waiting for them.",
		},
		[]string{"type"},
	)

	// LinkMessagesTotal counts link traffic by direction and message type.
	LinkMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paramsync_link_messages_total",
			Help: "Messages sent and received on vehicle links.",
		},
		[]string{"direction", "type"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HashCheckTotal,
		FetchTotal,
		Sessions,
		ReadyLatency,
		CacheOperationsTotal,
		IgnoredMessagesTotal,
		LinkMessagesTotal,
	)
}

// Handler serves Registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
