package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/danmuck/fmtrelay/internal/testutil/testlog"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("GET", "/health", 200, 12*time.Millisecond)
	SessionOpened()
	SessionClosed()
	RecordFrameDropped()
}

func TestRecordSubmissionCountsByOutcome(t *testing.T) {
	testlog.Start(t)
	before := testutil.ToFloat64(submissions.WithLabelValues(OutcomeRejected))
	RecordSubmission(OutcomeRejected)
	RecordSubmission(OutcomeRejected)
	after := testutil.ToFloat64(submissions.WithLabelValues(OutcomeRejected))
	if after-before != 2 {
		t.Fatalf("unexpected submission delta: %v", after-before)
	}
}

func TestProcessGaugeTracksStartAndExit(t *testing.T) {
	testlog.Start(t)
	before := testutil.ToFloat64(processesRunning)
	ProcessStarted()
	if got := testutil.ToFloat64(processesRunning); got != before+1 {
		t.Fatalf("unexpected running gauge after start: %v", got)
	}
	ProcessExited(0, 5*time.Millisecond)
	if got := testutil.ToFloat64(processesRunning); got != before {
		t.Fatalf("unexpected running gauge after exit: %v", got)
	}
	RecordStreamBytes("stdout", 5)
	if got := testutil.ToFloat64(streamBytes.WithLabelValues("stdout")); got < 5 {
		t.Fatalf("unexpected stream bytes: %v", got)
	}
}

func TestHandshakeOutcomeFromStatus(t *testing.T) {
	testlog.Start(t)
	cases := map[int]string{
		http.StatusSwitchingProtocols: HandshakeUpgraded,
		http.StatusPreconditionFailed: HandshakeRejected,
		http.StatusBadRequest:         HandshakeFailed,
	}
	for status, want := range cases {
		if got := handshakeOutcome(status); got != want {
			t.Fatalf("status %d: got %q want %q", status, got, want)
		}
	}
}

func TestMetricsMiddlewareCountsRejectedHandshakes(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger(zerolog.Nop()))
	r.Use(RequestMetricsMiddleware())
	r.NoRoute(func(c *gin.Context) {
		c.Status(http.StatusPreconditionFailed)
	})

	before := testutil.ToFloat64(handshakes.WithLabelValues(HandshakeRejected))
	labelBefore := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "websocket", "412"))

	req := httptest.NewRequest(http.MethodGet, "/anywhere", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Protocol", "other")
	r.ServeHTTP(httptest.NewRecorder(), req)

	// plain requests never count as handshakes
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/plain", nil))

	if got := testutil.ToFloat64(handshakes.WithLabelValues(HandshakeRejected)); got-before != 1 {
		t.Fatalf("unexpected rejected handshake delta: %v", got-before)
	}
	if got := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "websocket", "412")); got-labelBefore != 1 {
		t.Fatalf("upgrade request not labeled as websocket: %v", got-labelBefore)
	}
}
