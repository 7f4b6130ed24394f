package server

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sells-group/domain-intel/internal/model"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The HTTP layer already handles cross-origin policy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsInbound is the envelope clients send over the socket.
type wsInbound struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// wsConn serializes writes; background pushes and pong replies share the
// underlying connection.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

// handleWebsocket upgrades the connection, attaches it to the session, and
// serves the read loop until the client goes away. Pings are answered
// directly without touching the message log.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	if sessionID == "" {
		writeError(w, http.StatusUnprocessableEntity, "session_id is required")
		return
	}

	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	conn := &wsConn{conn: raw}

	sess := s.hub.GetOrCreate(sessionID)
	sess.AttachConn(conn)
	defer func() {
		sess.DetachConn(conn)
		conn.Close()
		zap.L().Info("websocket disconnected", zap.String("session_id", sessionID))
	}()

	sess.Notify("Welcome to Domain Intel Chat! You can type email addresses or upload a CSV file.", nil)

	for {
		var in wsInbound
		if err := raw.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				zap.L().Warn("websocket read failed", zap.String("session_id", sessionID), zap.Error(err))
			}
			return
		}

		switch in.Type {
		case "ping":
			if err := conn.WriteJSON(map[string]string{"type": "pong"}); err != nil {
				return
			}
		case "message":
			sess.AppendMessage(in.Content, model.MessageTypeUser, nil)
			sess.Notify("Message received. Processing...", nil)
		}
	}
}
