package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const JobTypeInsightGeneration = "insight-generation"

type Job struct {
	ID           uuid.UUID       `json:"id"`
	UserID       string          `json:"user_id"`
	Type         string          `json:"type"` // "insight-generation"
	ConfigJSON   json.RawMessage `json:"config"`
	Status       string          `json:"status"` // "pending" | "processing" | "completed" | "failed"
	ErrorMessage *string         `json:"error_message"`
	Result       json.RawMessage `json:"result,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at"`
}

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

const (
	EventSessionTick      = "session_tick"
	EventSessionSaved     = "session_saved"
	EventSessionSaveError = "session_save_failed"
	EventInsightGenerated = "insight_generated"
	EventJobCompleted     = "job_completed"
	EventJobFailed        = "job_failed"
)

type SessionTick struct {
	LectureID uuid.UUID `json:"lecture_id"`
	ElapsedMs int64     `json:"elapsed_ms"`
}

type CompletedEvent struct {
	JobID  uuid.UUID        `json:"job_id"`
	Result GenerationResult `json:"result"`
}

type ErrorEvent struct {
	JobID        uuid.UUID `json:"job_id"`
	ErrorCode    string    `json:"error_code"`
	ErrorMessage string    `json:"error_message"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Pointer   string            `json:"pointer,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
