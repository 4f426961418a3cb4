package relay

import (
	"context"
	"errors"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/fmtrelay/internal/filetree"
	"github.com/danmuck/fmtrelay/internal/observability"
	"github.com/danmuck/fmtrelay/internal/resolver"
)

const version = "0.1.0"

// Server accepts WebSocket sessions and runs their submissions.
type Server struct {
	cfg      ServiceConfig
	pipeline *Pipeline
	router   *gin.Engine
	upgrader websocket.Upgrader
	started  time.Time

	stopProcs context.CancelFunc

	mu       sync.RWMutex
	sessions map[string]*Session
	conns    sync.WaitGroup
}

func NewServer(cfg ServiceConfig, scratch *filetree.Scratch, res resolver.Resolver) *Server {
	cfg = cfg.WithDefaults()
	observability.RegisterMetrics()

	procCtx, stop := context.WithCancel(context.Background())
	s := &Server{
		cfg:       cfg,
		pipeline:  NewPipeline(procCtx, scratch, cfg.Limits, res),
		started:   time.Now(),
		stopProcs: stop,
		sessions:  make(map[string]*Session),
		upgrader: websocket.Upgrader{
			Subprotocols: []string{cfg.Subprotocol},
			CheckOrigin:  func(*http.Request) bool { return true },
		},
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware())

	api := r.Group("/")
	api.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(s.cfg.CORSOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin"},
		MaxAge:       12 * time.Hour,
	}))
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"uptime":      time.Since(s.started).String(),
			"sessions":    s.SessionCount(),
			"submissions": s.RunningCount(),
			"version":     version,
		})
	})
	api.GET("/metrics", gin.WrapH(promhttp.Handler()))
	api.GET("/submissions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"submissions": s.Submissions()})
	})
	api.GET("/submissions/:id", func(c *gin.Context) {
		info, ok := s.Submission(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "submission not found"})
			return
		}
		c.JSON(http.StatusOK, info)
	})

	// WebSocket upgrades are accepted on any path; everything else is 404.
	r.NoRoute(func(c *gin.Context) {
		if websocket.IsWebSocketUpgrade(c.Request) {
			s.handleUpgrade(c)
			return
		}
		c.Status(http.StatusNotFound)
	})
	return r
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleUpgrade(c *gin.Context) {
	if !slices.Contains(websocket.Subprotocols(c.Request), s.cfg.Subprotocol) {
		c.String(http.StatusPreconditionFailed, MsgInvalidProtocol)
		return
	}

	c.Status(http.StatusSwitchingProtocols)
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	c.Set(observability.SubprotocolKey, conn.Subprotocol())
	if s.cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(s.cfg.MaxMessageSize)
	}

	sess := NewSession(conn, s.pipeline)
	s.track(sess)
	s.conns.Add(1)
	go func() {
		defer s.conns.Done()
		defer s.untrack(sess)
		_ = sess.Serve()
	}()
}

func (s *Server) track(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID()] = sess
}

func (s *Server) untrack(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sess.ID())
}

func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// RunningCount sums in-flight submissions over open sessions.
func (s *Server) RunningCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, sess := range s.sessions {
		n += sess.Submissions().Len()
	}
	return n
}

// Submissions lists in-flight submissions over open sessions, oldest first.
func (s *Server) Submissions() []SubmissionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SubmissionInfo, 0)
	for id, sess := range s.sessions {
		for _, info := range sess.Submissions().List() {
			info.Session = id
			out = append(out, info)
		}
	}
	sortByCreated(out)
	return out
}

func (s *Server) Submission(id string) (SubmissionInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for sid, sess := range s.sessions {
		if info, ok := sess.Submissions().Get(id); ok {
			info.Session = sid
			return info, true
		}
	}
	return SubmissionInfo{}, false
}

// Serve accepts connections on ln until ctx is canceled, then shuts down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()
	log.Info().Str("addr", ln.Addr().String()).Str("subprotocol", s.cfg.Subprotocol).Msg("relay listening")

	select {
	case err := <-errc:
		s.Shutdown()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	s.Shutdown()
	return nil
}

// Shutdown closes open sessions, kills running processes and waits for
// their roots to be removed.
func (s *Server) Shutdown() {
	s.mu.RLock()
	open := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		open = append(open, sess)
	}
	s.mu.RUnlock()
	for _, sess := range open {
		sess.Close()
	}
	s.conns.Wait()

	s.stopProcs()
	done := make(chan struct{})
	go func() {
		s.pipeline.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.cfg.ShutdownGrace):
		log.Warn().Msg("processes still running after shutdown grace")
	}
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
