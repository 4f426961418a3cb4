package relay

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/fmtrelay/internal/observability"
)

const outboundBacklog = 256

// Conn is the duplex frame channel a session runs on. *websocket.Conn
// satisfies it.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Session relays one client connection.
type Session struct {
	id       string
	conn     Conn
	pipeline *Pipeline
	active   *Registry
	logger   zerolog.Logger

	out       chan Event
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	writerOut chan struct{}
}

func NewSession(conn Conn, pipeline *Pipeline) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	s := &Session{
		id:        id,
		conn:      conn,
		pipeline:  pipeline,
		active:    NewRegistry(),
		logger:    log.With().Str("session", id).Logger(),
		out:       make(chan Event, outboundBacklog),
		ctx:       ctx,
		cancel:    cancel,
		writerOut: make(chan struct{}),
	}
	go s.writeLoop()
	return s
}

func (s *Session) ID() string {
	return s.id
}

// Submissions accounts for this session's in-flight submissions.
func (s *Session) Submissions() *Registry {
	return s.active
}

// Done is closed once the session stopped writing.
func (s *Session) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Serve reads frames until the connection fails or closes.
func (s *Session) Serve() error {
	observability.SessionOpened()
	defer observability.SessionClosed()
	defer s.Close()

	s.logger.Debug().Msg("session open")

	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				s.logger.Debug().Msg("session closed by client")
				return nil
			}
			s.logger.Debug().Err(err).Msg("session read ended")
			return err
		}
		s.handleFrame(messageType, data)
	}
}

// Close stops the writer and closes the connection. Events sent afterwards
// are dropped.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		// closing first unblocks a writer stuck on a slow client
		_ = s.conn.Close()
		<-s.writerOut
		s.logger.Debug().Int("running", s.active.Len()).Msg("session closed")
	})
}

// Send queues ev for the writer. It never blocks past session close.
func (s *Session) Send(ev Event) {
	if s.ctx.Err() != nil {
		observability.RecordFrameDropped()
		return
	}
	select {
	case s.out <- ev:
	case <-s.ctx.Done():
		observability.RecordFrameDropped()
	}
}

func (s *Session) writeLoop() {
	defer close(s.writerOut)
	for {
		select {
		case <-s.ctx.Done():
			return
		case ev := <-s.out:
			data, err := json.Marshal(ev)
			if err != nil {
				s.logger.Error().Err(err).Str("type", string(ev.Type)).Msg("encode event failed")
				continue
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Debug().Err(err).Msg("session write failed")
				s.cancel()
				return
			}
		}
	}
}

func (s *Session) handleFrame(messageType int, data []byte) {
	if messageType != websocket.TextMessage {
		observability.RecordSubmission(observability.OutcomeProtocolFail)
		s.Send(ErrorEvent(MsgTextOnly))
		return
	}

	req, err := decodeRequest(data)
	if err != nil {
		observability.RecordSubmission(observability.OutcomeProtocolFail)
		s.Send(ErrorEvent(err.Error()))
		return
	}

	switch req.Type {
	case RequestSubmit:
		s.pipeline.Submit(req, s)
	default:
		observability.RecordSubmission(observability.OutcomeProtocolFail)
		s.Send(ErrorEvent(MsgUnknownType))
	}
}
