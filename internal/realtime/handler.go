package realtime

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sakif/chirp/internal/auth"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	joinWait       = 10 * time.Second
	maxMessageSize = 512
)

// Handler upgrades GET /ws to a websocket session. It must sit behind
// auth.RequireAuth: the token subject is the only user the session may
// join as.
//
// Protocol:
//
//	client → {"type":"join","userId":"<own id>"}
//	server → {"type":"notification","data":{...}}   (repeated)
//
// A join for any other user id, or no join within joinWait, closes the
// socket with a policy-violation frame.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a Handler. allowedOrigins is checked against the
// Origin header of the handshake; an empty list accepts any origin.
func NewHandler(hub *Hub, allowedOrigins []string, logger *slog.Logger) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, origin)
			},
		},
		logger: logger,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	session, err := h.join(conn, userID)
	if err != nil {
		h.logger.Warn("websocket join rejected",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		closeWith(conn, websocket.ClosePolicyViolation, err.Error())
		return
	}

	go h.writePump(conn, session)
	h.readPump(conn, session)
}

type joinError string

func (e joinError) Error() string { return string(e) }

// join waits for the client's join frame and registers the session.
func (h *Handler) join(conn *websocket.Conn, subject string) (*Session, error) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(joinWait))

	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		return nil, joinError("expected a join message")
	}
	if msg.Type != TypeJoin {
		return nil, joinError("first message must be join")
	}
	if msg.UserID != subject {
		return nil, joinError("cannot join as another user")
	}

	s := h.hub.Register(subject)
	h.logger.Info("websocket joined",
		slog.String("userID", subject),
		slog.String("session", s.ID.String()),
	)
	return s, nil
}

// readPump keeps the read side alive so pongs and close frames are
// processed. Clients have nothing else to say after join.
func (h *Handler) readPump(conn *websocket.Conn, s *Session) {
	defer func() {
		h.hub.Unregister(s)
		conn.Close()
		h.logger.Info("websocket closed",
			slog.String("userID", s.UserID),
			slog.String("session", s.ID.String()),
		)
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read error", slog.String("error", err.Error()))
			}
			return
		}
	}
}

// writePump is the only writer on conn after join.
func (h *Handler) writePump(conn *websocket.Conn, s *Session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.Send():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(writeWait))
	conn.Close()
}
