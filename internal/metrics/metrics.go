// Package metrics defines the Prometheus metric vectors exported by
// radiusd. All metrics use the "radiusd_" prefix.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "radiusd"

// --- Packet Metrics (RADIUS + DHCP share these, labeled by protocol) ---

var (
	// PacketsReceived counts packets received, by protocol and message type.
	PacketsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "packets_received_total",
		Help:      "Total packets received, by protocol and message type.",
	}, []string{"protocol", "msg_type"})

	// PacketsSent counts packets sent, by protocol and message type.
	PacketsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "packets_sent_total",
		Help:      "Total packets sent, by protocol and message type.",
	}, []string{"protocol", "msg_type"})

	// PacketErrors counts decode/encode/processing errors, by protocol and type.
	PacketErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "packet_errors_total",
		Help:      "Total packet processing errors, by protocol and error type.",
	}, []string{"protocol", "type"})

	// PacketProcessingDuration tracks handler latency from admission to reply.
	PacketProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "packet_processing_duration_seconds",
		Help:      "Packet processing duration in seconds, by protocol.",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
	}, []string{"protocol"})
)

// --- Request Table / Admission Metrics ---

var (
	// RequestTableSize is a gauge of the current number of live records.
	RequestTableSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "request_table_size",
		Help:      "Current number of live records in the request table.",
	})

	// AdmissionRejects counts requests shed at admission, by reason.
	AdmissionRejects = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "admission_rejects_total",
		Help:      "Total requests rejected at admission, by reason (duplicate, overload).",
	}, []string{"reason"})

	// Retransmits counts cached replies replayed for a duplicate request.
	Retransmits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "retransmits_total",
		Help:      "Total cached replies replayed for duplicate requests.",
	})
)

// --- Worker Metrics ---

var (
	// WorkersSpawned counts workers started, by protocol.
	WorkersSpawned = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "workers_spawned_total",
		Help:      "Total workers spawned, by protocol.",
	}, []string{"protocol"})

	// WorkersLive is a gauge of in-flight (not yet reaped) workers.
	WorkersLive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "workers_live",
		Help:      "Number of workers that have not yet reported a result.",
	})

	// WorkerTimeouts counts workers killed for exceeding MAX_REQUEST_TIME.
	WorkerTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "worker_timeouts_total",
		Help:      "Total workers killed for running past the request deadline.",
	})

	// WorkerPanics counts handler panics recovered by the worker pool.
	WorkerPanics = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "worker_panics_total",
		Help:      "Total handler panics recovered without corrupting the request table.",
	})
)

// --- Authentication / Accounting Metrics ---

var (
	// AuthResponses counts Access-Request outcomes by result, including
	// outcomes that send no reply (drop-no-username, error, proxy-error).
	AuthResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_responses_total",
		Help:      "Total Access-Request outcomes, by result.",
	}, []string{"result"})

	// AccountingRecords counts accounting detail-log rows written, by status type.
	AccountingRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "accounting_records_total",
		Help:      "Total accounting records written, by status type.",
	}, []string{"status_type"})

	// ProxyExchanges counts upstream proxy round trips, by result.
	ProxyExchanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "proxy_exchanges_total",
		Help:      "Total upstream proxy exchanges, by result (ok, timeout, error).",
	}, []string{"result"})
)

// --- Client Registry Metrics ---

var (
	// ClientsLoaded is a gauge of the current number of registered clients.
	ClientsLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "clients_loaded",
		Help:      "Current number of entries in the client registry.",
	})

	// ReloadsTotal counts configuration reload attempts, by result.
	ReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reloads_total",
		Help:      "Total configuration reload attempts, by result (ok, error).",
	}, []string{"result"})
)

// --- Server Info ---

var (
	// ServerInfo is a constant gauge with server build/version metadata.
	ServerInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "server_info",
		Help:      "Server build and version info.",
	}, []string{"version"})

	// ServerStartTime tracks server start time as a unix timestamp.
	ServerStartTime = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "server_start_time_seconds",
		Help:      "Server start time as Unix timestamp.",
	})
)
