package model

import (
	"time"

	"github.com/google/uuid"
)

// MessageType distinguishes who authored a chat message.
type MessageType string

const (
	MessageTypeUser   MessageType = "user"
	MessageTypeSystem MessageType = "system"
)

// Message is one entry in a session's append-only conversation log.
type Message struct {
	ID        string         `json:"message_id"`
	SessionID string         `json:"session_id"`
	Type      MessageType    `json:"message_type"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewMessage creates a Message with a fresh id and UTC timestamp.
func NewMessage(sessionID, content string, typ MessageType, metadata map[string]any) Message {
	return Message{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Type:      typ,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	}
}

// ProcessingPhase represents the coarse state of a background batch run.
type ProcessingPhase string

const (
	PhaseProcessing ProcessingPhase = "processing"
	PhaseCompleted  ProcessingPhase = "completed"
	PhaseError      ProcessingPhase = "error"
)

// ProcessingStatus is the single live status of a session's batch run.
// Each update replaces the previous instance; no history is kept.
type ProcessingStatus struct {
	SessionID    string           `json:"session_id"`
	Phase        ProcessingPhase  `json:"status"`
	Progress     int              `json:"progress"`
	Total        int              `json:"total"`
	CurrentEmail *string          `json:"current_email,omitempty"`
	Message      string           `json:"message"`
	Results      []AnalysisRecord `json:"results,omitempty"`
}
