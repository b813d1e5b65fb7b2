package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	JobTypePoster = "poster-generation"
	JobTypeStory  = "story-generation"
)

type Job struct {
	ID           uuid.UUID       `json:"id"`
	SessionID    uuid.UUID       `json:"session_id"`
	Type         string          `json:"type"` // "poster-generation" | "story-generation"
	ConfigJSON   json.RawMessage `json:"config"`
	Status       string          `json:"status"` // "queued" | "processing" | "completed" | "failed"
	ResultJSON   json.RawMessage `json:"result,omitempty"`
	ErrorMessage *string         `json:"error_message"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at"`
}

type PosterJobConfig struct {
	ProductName string `json:"product_name"`
}

type StoryJobConfig struct {
	ArtisanID string `json:"artisan_id"`
	ExtraInfo string `json:"extra_info"`
}

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type StatusUpdate struct {
	JobID    uuid.UUID `json:"job_id"`
	Step     int       `json:"step"`
	StepName string    `json:"step_name"`
}

type CompletedEvent struct {
	JobID      uuid.UUID `json:"job_id"`
	ResultType string    `json:"result_type"`
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
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
