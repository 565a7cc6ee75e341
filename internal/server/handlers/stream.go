package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/oasislearninghub/oasis/internal/session"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
	streamBuffer     = 64
)

// StreamMessage is one server-to-client websocket message.
type StreamMessage struct {
	Type    string           `json:"type"`
	State   *session.State   `json:"state,omitempty"`
	Frame   *session.Frame   `json:"frame,omitempty"`
	Outcome *session.Outcome `json:"outcome,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// StreamHandler upgrades to a websocket that pushes projection frames and
// accepts inputs. Each text message from the client is one session.Input.
type StreamHandler struct {
	Manager  *session.Manager
	Logger   *logging.Logger
	Upgrader websocket.Upgrader
}

// NewStreamHandler returns a handler with buffer sizes suited to small
// JSON frames.
func NewStreamHandler(manager *session.Manager, logger *logging.Logger) *StreamHandler {
	return &StreamHandler{
		Manager: manager,
		Logger:  logger,
		Upgrader: websocket.Upgrader{
			HandshakeTimeout: 5 * time.Second,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			CheckOrigin:      func(*http.Request) bool { return true },
		},
	}
}

func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s, ok := (&SessionHandler{Manager: h.Manager}).lookup(w, r)
	if !ok {
		return
	}

	// Subscribe before the snapshot so no frame falls between them.
	frames, unsubscribe := s.Subscribe(streamBuffer)
	defer unsubscribe()

	st, err := s.Snapshot(r.Context())
	if err != nil {
		respondWithError(w, r, sessionError(r, err))
		return
	}

	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.debug("Websocket upgrade failed", zap.String("session_id", s.ID()), zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	outcomes := make(chan StreamMessage, streamBuffer)
	go h.readInputs(ctx, cancel, conn, s, outcomes)

	if err := write(conn, StreamMessage{Type: "state", State: &st}); err != nil {
		return
	}

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case f, open := <-frames:
			if !open {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
					time.Now().Add(streamWriteWait))
				return
			}
			if err := write(conn, StreamMessage{Type: "frame", Frame: &f}); err != nil {
				return
			}
		case msg := <-outcomes:
			if err := write(conn, msg); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		}
	}
}

// readInputs owns the read side of conn. It cancels ctx when the client
// goes away.
func (h *StreamHandler) readInputs(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, s *session.Session, out chan<- StreamMessage) {
	defer cancel()

	conn.SetReadLimit(maxEventBytes)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	for {
		var in session.Input
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.debug("Websocket read failed", zap.String("session_id", s.ID()), zap.Error(err))
			}
			return
		}

		msg := StreamMessage{Type: "outcome"}
		outcome, err := s.Dispatch(ctx, in)
		switch {
		case errors.Is(err, session.ErrClosed):
			return
		case err != nil:
			msg.Type, msg.Error = "error", err.Error()
		default:
			msg.Outcome = &outcome
		}

		select {
		case out <- msg:
		case <-ctx.Done():
			return
		}
	}
}

func write(conn *websocket.Conn, msg StreamMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteJSON(msg)
}

func (h *StreamHandler) debug(msg string, fields ...zap.Field) {
	if h.Logger != nil {
		h.Logger.Debug(msg, fields...)
	}
}
