package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Submission outcome labels.
const (
	OutcomeAccepted     = "accepted"
	OutcomeRejected     = "rejected"
	OutcomeIOError      = "io_error"
	OutcomeUnresolved   = "unresolved"
	OutcomeSpawnFailed  = "spawn_failed"
	OutcomeProtocolFail = "protocol_error"
)

// Handshake outcome labels.
const (
	HandshakeUpgraded = "upgraded"
	HandshakeRejected = "rejected"
	HandshakeFailed   = "failed"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fmtrelay",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fmtrelay",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	handshakes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fmtrelay",
			Subsystem: "relay",
			Name:      "handshakes_total",
			Help:      "WebSocket upgrade attempts by outcome.",
		},
		[]string{"outcome"},
	)
	sessionsOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fmtrelay",
			Subsystem: "relay",
			Name:      "sessions_open",
			Help:      "Currently open relay sessions.",
		},
	)
	submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fmtrelay",
			Subsystem: "relay",
			Name:      "submissions_total",
			Help:      "Submit requests by pipeline outcome.",
		},
		[]string{"outcome"},
	)
	processesRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fmtrelay",
			Subsystem: "supervisor",
			Name:      "processes_running",
			Help:      "Tool processes currently running.",
		},
	)
	processExits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fmtrelay",
			Subsystem: "supervisor",
			Name:      "process_exits_total",
			Help:      "Tool process exits by exit code.",
		},
		[]string{"exit_code"},
	)
	processDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fmtrelay",
			Subsystem: "supervisor",
			Name:      "process_duration_seconds",
			Help:      "Tool process wall time in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	streamBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fmtrelay",
			Subsystem: "supervisor",
			Name:      "stream_bytes_total",
			Help:      "Bytes forwarded from tool output streams.",
		},
		[]string{"stream"},
	)
	framesDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fmtrelay",
			Subsystem: "relay",
			Name:      "frames_dropped_total",
			Help:      "Outbound frames dropped because the session was already closed.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			handshakes,
			sessionsOpen,
			submissions,
			processesRunning,
			processExits,
			processDuration,
			streamBytes,
			framesDropped,
		)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

// RecordHandshake maps an upgrade response status to its outcome.
func RecordHandshake(status int) {
	RegisterMetrics()
	handshakes.WithLabelValues(handshakeOutcome(status)).Inc()
}

func handshakeOutcome(status int) string {
	switch status {
	case http.StatusSwitchingProtocols:
		return HandshakeUpgraded
	case http.StatusPreconditionFailed:
		return HandshakeRejected
	default:
		return HandshakeFailed
	}
}

func SessionOpened() {
	RegisterMetrics()
	sessionsOpen.Inc()
}

func SessionClosed() {
	RegisterMetrics()
	sessionsOpen.Dec()
}

func RecordSubmission(outcome string) {
	RegisterMetrics()
	submissions.WithLabelValues(outcome).Inc()
}

func ProcessStarted() {
	RegisterMetrics()
	processesRunning.Inc()
}

func ProcessExited(exitCode int, duration time.Duration) {
	RegisterMetrics()
	processesRunning.Dec()
	processExits.WithLabelValues(strconv.Itoa(exitCode)).Inc()
	processDuration.Observe(duration.Seconds())
}

func RecordStreamBytes(stream string, n int) {
	RegisterMetrics()
	streamBytes.WithLabelValues(stream).Add(float64(n))
}

func RecordFrameDropped() {
	RegisterMetrics()
	framesDropped.Inc()
}
