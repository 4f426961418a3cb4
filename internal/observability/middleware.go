package observability

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// SubprotocolKey is the gin context key under which the upgrade handler
// stores the negotiated sub-protocol.
const SubprotocolKey = "fmtrelay.subprotocol"

// routeLabel keeps metric cardinality bounded: upgrades share one label and
// unknown paths another.
func routeLabel(c *gin.Context) string {
	if path := c.FullPath(); path != "" {
		return path
	}
	if websocket.IsWebSocketUpgrade(c.Request) {
		return "websocket"
	}
	return "unmatched"
}

// RequestLogger writes one line per request. Upgrade attempts also carry the
// offered and negotiated sub-protocols, and a 101 is logged as the session
// start rather than a finished request.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := logger.Info()
		switch {
		case status >= http.StatusInternalServerError:
			event = logger.Error()
		case status >= http.StatusBadRequest:
			event = logger.Warn()
		}

		event = event.
			Str("method", c.Request.Method).
			Str("route", routeLabel(c)).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP())

		if !websocket.IsWebSocketUpgrade(c.Request) {
			event.Msg("http_request")
			return
		}
		event = event.Strs("offered", websocket.Subprotocols(c.Request))
		if proto := c.GetString(SubprotocolKey); proto != "" {
			event = event.Str("subprotocol", proto)
		}
		if status == http.StatusSwitchingProtocols {
			event.Msg("websocket_upgraded")
			return
		}
		event.Msg("websocket_rejected")
	}
}

// RequestMetricsMiddleware records request counts and latency, plus the
// handshake outcome for upgrade attempts.
func RequestMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		RecordHTTPRequest(c.Request.Method, routeLabel(c), status, time.Since(start))
		if websocket.IsWebSocketUpgrade(c.Request) {
			RecordHandshake(status)
		}
	}
}
