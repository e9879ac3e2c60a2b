package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"quizroom-service/internal/app"
	"quizroom-service/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// WSHandler is the protocol gateway: it turns inbound client intents into coordinator calls
// and delivers room messages back over the socket.
type WSHandler struct {
	coord    *app.Coordinator
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(coord *app.Coordinator, logger *slog.Logger, allowedOrigins []string) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		coord: coord,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type joinPayload struct {
	Nickname string `json:"nickname"`
	RoomCode string `json:"roomCode"`
}

type themePayload struct {
	Theme string `json:"theme"`
}

type guessPayload struct {
	Answer string `json:"answer"`
}

// connSink queues outbound messages for one socket. When the client falls behind the
// oldest queued message is dropped.
type connSink struct {
	mu      sync.Mutex
	out     chan domain.Message
	closed  bool
	dropped int
}

func newConnSink() *connSink {
	return &connSink{out: make(chan domain.Message, sendBuffer)}
}

func (s *connSink) Send(msg domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.out <- msg:
		return
	default:
	}
	select {
	case <-s.out:
		s.dropped++
	default:
	}
	select {
	case s.out <- msg:
	default:
	}
}

func (s *connSink) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.out)
	}
}

// ServeWS upgrades the request and serves one client until it disconnects.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}

	connID := uuid.NewString()
	log := h.log.With("conn", connID)
	sink := newConnSink()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(conn, sink, log)
	}()

	log.Debug("client connected", "remote", r.RemoteAddr)
	h.readLoop(r.Context(), conn, connID, sink, log)

	// the request context may already be done here
	if err := h.coord.Leave(context.Background(), connID); err != nil && !errors.Is(err, domain.ErrNotJoined) {
		log.Warn("leave on disconnect failed", "error", err)
	}
	sink.close()
	<-writerDone
	_ = conn.Close()
	if sink.dropped > 0 {
		log.Info("client disconnected", "dropped", sink.dropped)
	} else {
		log.Debug("client disconnected")
	}
}

func (h *WSHandler) writeLoop(conn *websocket.Conn, sink *connSink, log *slog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-sink.out:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug("ws write error", "error", err)
				// unblock the reader so the connection is torn down
				_ = conn.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, connID string, sink *connSink, log *slog.Logger) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var in inboundMessage
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("ws read error", "error", err)
			}
			var (
				syntaxErr *json.SyntaxError
				typeErr   *json.UnmarshalTypeError
			)
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				sink.Send(errorMessage(domain.MsgError, "invalid message"))
				continue
			}
			return
		}
		h.dispatch(ctx, connID, in, sink, log)
	}
}

func (h *WSHandler) dispatch(ctx context.Context, connID string, in inboundMessage, sink *connSink, log *slog.Logger) {
	var err error
	switch in.Type {
	case domain.MsgJoin:
		var p joinPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			sink.Send(errorMessage(domain.MsgJoinError, "invalid join payload"))
			return
		}
		if _, err := h.coord.Join(ctx, connID, p.Nickname, p.RoomCode, sink); err != nil {
			log.Debug("join rejected", "room", domain.NormalizeRoomCode(p.RoomCode), "error", err)
			sink.Send(errorMessage(domain.MsgJoinError, err.Error()))
		}
		return
	case domain.MsgLeaveRoom:
		err = h.coord.Leave(ctx, connID)
	case domain.MsgRequestState:
		err = h.coord.RequestState(ctx, connID)
	case domain.MsgSetTheme:
		var p themePayload
		if err := decodePayload(in.Payload, &p); err != nil {
			sink.Send(errorMessage(domain.MsgError, "invalid setTheme payload"))
			return
		}
		err = h.coord.SetTheme(ctx, connID, p.Theme)
	case domain.MsgReady:
		_, err = h.coord.ToggleReady(ctx, connID)
	case domain.MsgGuess:
		var p guessPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			sink.Send(errorMessage(domain.MsgError, "invalid guess payload"))
			return
		}
		// the room reports the result to the guesser itself
		_, err = h.coord.Guess(ctx, connID, p.Answer)
	case domain.MsgPlayAgain:
		err = h.coord.PlayAgain(ctx, connID)
	default:
		sink.Send(errorMessage(domain.MsgError, "unsupported message type"))
		return
	}
	if err != nil {
		log.Debug("intent rejected", "type", in.Type, "error", err)
		sink.Send(errorMessage(domain.MsgError, err.Error()))
	}
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func errorMessage(typ, msg string) domain.Message {
	return domain.Message{Type: typ, Payload: domain.ErrorPayload{Message: msg}}
}
