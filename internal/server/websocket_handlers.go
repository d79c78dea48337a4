package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/MeKo-Tech/annotator/internal/controller"
	"github.com/MeKo-Tech/annotator/internal/editor"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client message types.
const (
	MsgOpen         = "open"
	MsgPointerDown  = "pointer_down"
	MsgPointerMove  = "pointer_move"
	MsgPointerUp    = "pointer_up"
	MsgPointerLeave = "pointer_leave"
	MsgDoubleClick  = "double_click"
	MsgSubmit       = "submit"
)

// Server message types. Rendered frames are sent as binary PNG messages.
const (
	MsgSession = "session"
	MsgState   = "state"
	MsgError   = "error"
)

const (
	pongWait        = 60 * time.Second
	pingPeriod      = 30 * time.Second
	writeWait       = 10 * time.Second
	maxMessageBytes = 64 * 1024
)

// ClientMessage is one inbound editor event.
type ClientMessage struct {
	Type          string `json:"type"`
	ImageID       string `json:"image_id,omitempty"`
	ImageFileName string `json:"image_file_name,omitempty"`
	X             int    `json:"x"`
	Y             int    `json:"y"`
	Button        int    `json:"button"`
}

// Event converts the message to a controller event.
func (m ClientMessage) Event() (any, error) {
	switch m.Type {
	case MsgOpen:
		return controller.Open{ImageID: m.ImageID, ImageFileName: m.ImageFileName}, nil
	case MsgPointerDown:
		return controller.PointerDown{X: m.X, Y: m.Y, Button: editor.Button(m.Button)}, nil
	case MsgPointerMove:
		return controller.PointerMove{X: m.X, Y: m.Y}, nil
	case MsgPointerUp:
		return controller.PointerUp{}, nil
	case MsgPointerLeave:
		return controller.PointerLeave{}, nil
	case MsgDoubleClick:
		return controller.DoubleClick{X: m.X, Y: m.Y}, nil
	case MsgSubmit:
		return controller.Submit{}, nil
	default:
		return nil, fmt.Errorf("unsupported message type %q", m.Type)
	}
}

// ServerMessage is one outbound JSON message.
type ServerMessage struct {
	Type      string        `json:"type"`
	SessionID string        `json:"session_id,omitempty"`
	State     *editor.State `json:"state,omitempty"`
	Operation string        `json:"operation,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// sessionSink publishes controller output to one connection. Writes are
// serialized because the controller loop and the read loop both report.
type sessionSink struct {
	mu        sync.Mutex
	conn      WebSocketConnWriter
	sessionID string
}

func (k *sessionSink) PublishState(st editor.State) error {
	return k.writeJSON(ServerMessage{Type: MsgState, SessionID: k.sessionID, State: &st})
}

func (k *sessionSink) PublishFrame(png []byte) error {
	return k.write(websocket.BinaryMessage, "frame", png)
}

func (k *sessionSink) PublishError(op string, err error) error {
	return k.writeJSON(ServerMessage{Type: MsgError, SessionID: k.sessionID, Operation: op, Error: err.Error()})
}

func (k *sessionSink) writeJSON(msg ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", msg.Type, err)
	}
	return k.write(websocket.TextMessage, msg.Type, data)
}

func (k *sessionSink) write(messageType int, label string, data []byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.conn.WriteMessage(messageType, data); err != nil {
		return err
	}
	websocketMessagesTotal.WithLabelValues("sent", label).Inc()
	return nil
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return s.corsOrigin == "" || s.corsOrigin == "*" || origin == "" || origin == s.corsOrigin
		},
	}
}

// editorWebSocketHandler runs one editing session per connection.
func (s *Server) editorWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		http.Error(w, "Server shutting down", http.StatusServiceUnavailable)
		return
	}
	s.sessions.Add(1)
	s.mu.Unlock()
	defer s.sessions.Done()

	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	sessionID := uuid.NewString()
	logger := s.logger.With("session_id", sessionID)
	logger.Info("editor session connected", "remote_addr", r.RemoteAddr)

	s.runSession(conn, sessionID, logger)
	logger.Info("editor session closed")
}

func (s *Server) runSession(conn *websocket.Conn, sessionID string, logger *slog.Logger) {
	ctx, cancel := context.WithCancel(s.ctx)

	sink := &sessionSink{conn: conn, sessionID: sessionID}
	cfg := s.session
	cfg.Logger = logger
	ctrl := controller.New(s.backend, sink, cfg)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("controller stopped", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		s.keepAlive(ctx, conn)
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	if err := sink.writeJSON(ServerMessage{Type: MsgSession, SessionID: sessionID}); err != nil {
		logger.Debug("sending session message", "error", err)
		return
	}

	conn.SetReadLimit(maxMessageBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && ctx.Err() == nil {
				logger.Warn("WebSocket error", "error", err)
			}
			return
		}

		ev, label, err := decodeClientMessage(messageType, data)
		websocketMessagesTotal.WithLabelValues("received", label).Inc()
		if err != nil {
			logger.Debug("rejecting client message", "error", err)
			_ = sink.PublishError("message", err)
			continue
		}

		if err := ctrl.Dispatch(ctx, ev); err != nil {
			return
		}
	}
}

// keepAlive pings the client until ctx ends, then closes the connection so
// a blocked read returns.
func (s *Server) keepAlive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "session ended"),
				time.Now().Add(writeWait))
			_ = conn.Close()
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// decodeClientMessage parses a frame. The returned label is safe to use as
// a metric label.
func decodeClientMessage(messageType int, data []byte) (any, string, error) {
	if messageType != websocket.TextMessage {
		return nil, "invalid", errors.New("only text messages are supported")
	}
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, "invalid", fmt.Errorf("failed to parse message: %w", err)
	}
	ev, err := msg.Event()
	if err != nil {
		return nil, "invalid", err
	}
	return ev, msg.Type, nil
}
