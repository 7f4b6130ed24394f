// Package session keeps per-session chat state: an append-only message log,
// the live processing status, and at most one attached duplex connection.
package session

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/domain-intel/internal/model"
)

// Conn is the push side of a duplex client connection. A websocket
// connection satisfies this.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

// Session holds the state of one chat session. All access goes through its
// methods; the embedded mutex makes them safe for concurrent use.
type Session struct {
	ID string

	mu           sync.Mutex
	messages     []model.Message
	status       *model.ProcessingStatus
	conn         Conn
	createdAt    time.Time
	lastActivity time.Time
}

// Hub owns all live sessions, keyed by session id.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{sessions: make(map[string]*Session)}
}

// GetOrCreate returns the session for id, creating it on first use.
func (h *Hub) GetOrCreate(id string) *Session {
	h.mu.RLock()
	s, ok := h.sessions[id]
	h.mu.RUnlock()
	if ok {
		return s
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.sessions[id]; ok {
		return s
	}
	now := time.Now().UTC()
	s = &Session{ID: id, createdAt: now, lastActivity: now}
	h.sessions[id] = s
	return s
}

// AppendMessage adds a message to the session log and returns it.
func (s *Session) AppendMessage(content string, typ model.MessageType, metadata map[string]any) model.Message {
	msg := model.NewMessage(s.ID, content, typ, metadata)
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.lastActivity = msg.Timestamp
	s.mu.Unlock()
	return msg
}

// History returns a copy of the session's message log in append order.
func (s *Session) History() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// AttachConn makes conn the session's live connection, unconditionally
// replacing any previous one. The replaced connection is closed.
func (s *Session) AttachConn(conn Conn) {
	s.mu.Lock()
	old := s.conn
	s.conn = conn
	s.lastActivity = time.Now().UTC()
	s.mu.Unlock()

	if old != nil && old != conn {
		_ = old.Close()
	}
}

// DetachConn clears the live connection only if conn is still the one
// attached. A stale detach after a replacement is a no-op.
func (s *Session) DetachConn(conn Conn) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()
}

// Notify appends a system message to the log and pushes it to the live
// connection if one is attached. The push happens under the session mutex so
// delivery order always matches log-append order, even with concurrent
// notifiers. Push failures are logged and swallowed; the log append always
// happens.
func (s *Session) Notify(content string, metadata map[string]any) model.Message {
	msg := model.NewMessage(s.ID, content, model.MessageTypeSystem, metadata)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	s.lastActivity = msg.Timestamp

	if s.conn != nil {
		if err := s.conn.WriteJSON(msg); err != nil {
			zap.L().Warn("push to session connection failed",
				zap.String("session_id", s.ID), zap.Error(err))
		}
	}
	return msg
}

// UpdateStatus replaces the session's processing status.
func (s *Session) UpdateStatus(status model.ProcessingStatus) {
	status.SessionID = s.ID
	s.mu.Lock()
	s.status = &status
	s.lastActivity = time.Now().UTC()
	s.mu.Unlock()
}

// Status returns the current processing status, or nil if no batch has run.
func (s *Session) Status() *model.ProcessingStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == nil {
		return nil
	}
	st := *s.status
	return &st
}
