package api

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"car-market-lab/internal/analytics"
	"car-market-lab/internal/domain"
	"car-market-lab/internal/filter"
)

// SessionConfig configures websocket session behavior.
type SessionConfig struct {
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages; each pong extends it.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// MaxMessageSize bounds client frames in bytes.
	MaxMessageSize int64
}

// DefaultSessionConfig returns default websocket session configuration.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		PingInterval:   30 * time.Second,
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxMessageSize: 64 << 10,
	}
}

// session is one websocket client. Its filter state and options are owned by
// the run loop goroutine; mutations are applied and recomputed one at a time.
type session struct {
	id     string
	conn   *websocket.Conn
	server *Server
	config SessionConfig

	state *filter.State
	opts  analytics.Options
	seq   int
}

func newSession(s *Server, conn *websocket.Conn) *session {
	return &session{
		id:     uuid.NewString(),
		conn:   conn,
		server: s,
		config: s.session,
		state:  filter.NewState(),
		opts:   s.defaultOptions(),
	}
}

// run serves the session until the client disconnects or the server closes.
func (sess *session) run(ctx context.Context) {
	defer sess.conn.Close()

	incoming := make(chan []byte)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)
	go sess.readLoop(incoming, readErr, stop)

	ticker := time.NewTicker(sess.config.PingInterval)
	defer ticker.Stop()

	if err := sess.write(ServerMessage{Type: MsgHello, Status: sess.status()}); err != nil {
		return
	}

	ready := sess.server.engine.Ready()
	for {
		select {
		case <-ctx.Done():
			sess.closeNormally()
			return

		case <-sess.server.done:
			sess.closeNormally()
			return

		case <-ready:
			// Push the first result as soon as the collection is loaded.
			ready = nil
			if err := sess.push(ctx, ""); err != nil {
				return
			}

		case data := <-incoming:
			if err := sess.handle(ctx, data); err != nil {
				return
			}

		case <-ticker.C:
			sess.conn.SetWriteDeadline(time.Now().Add(sess.config.WriteTimeout))
			if err := sess.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case err := <-readErr:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				sess.server.logger.Printf("Session %s read error: %v", sess.id, err)
			}
			return
		}
	}
}

// readLoop forwards client frames to the run loop.
func (sess *session) readLoop(incoming chan<- []byte, readErr chan<- error, stop <-chan struct{}) {
	sess.conn.SetReadLimit(sess.config.MaxMessageSize)
	sess.conn.SetReadDeadline(time.Now().Add(sess.config.ReadTimeout))
	sess.conn.SetPongHandler(func(string) error {
		return sess.conn.SetReadDeadline(time.Now().Add(sess.config.ReadTimeout))
	})

	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			readErr <- err
			return
		}
		sess.conn.SetReadDeadline(time.Now().Add(sess.config.ReadTimeout))
		select {
		case incoming <- data:
		case <-stop:
			return
		}
	}
}

// handle applies one client mutation and pushes the recomputed result.
// Mutation errors are reported to the client; only write failures are returned.
func (sess *session) handle(ctx context.Context, data []byte) error {
	start := time.Now()

	msg, err := decodeClientMessage(data)
	if err == nil {
		err = apply(msg, sess.state, &sess.opts, sess.newComparison)
	}
	sess.server.recordWSMessage(msg.Type, time.Since(start), err)
	if err != nil {
		return sess.write(ServerMessage{Type: MsgError, Request: msg.Type, Error: err.Error()})
	}
	return sess.push(ctx, msg.Type)
}

// push recomputes the session state and sends the result.
func (sess *session) push(ctx context.Context, request string) error {
	derived, err := sess.server.engine.Recompute(ctx, sess.state, sess.opts)
	switch {
	case errors.Is(err, analytics.ErrNotLoaded):
		return sess.write(ServerMessage{Type: MsgPending, Request: request, Status: sess.status()})
	case err != nil:
		return sess.write(ServerMessage{Type: MsgError, Request: request, Error: err.Error()})
	}

	sess.seq++
	opts := sess.opts
	return sess.write(ServerMessage{
		Type:    MsgDerived,
		Seq:     sess.seq,
		Request: request,
		State:   sess.state.Clone(),
		Options: &opts,
		Derived: derived,
	})
}

// newComparison preselects the first available model once loaded.
func (sess *session) newComparison() domain.FilterSet {
	cat, err := sess.server.engine.Catalog()
	if err != nil {
		return domain.DefaultFilterSet()
	}
	return filter.NewComparison(cat.Options)
}

func (sess *session) status() *analytics.Status {
	st := sess.server.engine.Status()
	return &st
}

func (sess *session) write(msg ServerMessage) error {
	msg.SessionID = sess.id
	sess.conn.SetWriteDeadline(time.Now().Add(sess.config.WriteTimeout))
	return sess.conn.WriteJSON(msg)
}

func (sess *session) closeNormally() {
	sess.conn.SetWriteDeadline(time.Now().Add(sess.config.WriteTimeout))
	sess.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
