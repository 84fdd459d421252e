package session

import "time"

// CreateRequest defines the payload for creating a new practice session.
type CreateRequest struct {
	Locale   string `json:"locale"`
	VoiceURI string `json:"voice_uri"`
}

// CreateResponse returns created session metadata.
type CreateResponse struct {
	SessionID       string    `json:"session_id"`
	Status          Status    `json:"status"`
	Locale          string    `json:"locale"`
	VoiceURI        string    `json:"voice_uri"`
	StartedAt       time.Time `json:"started_at"`
	InactivityTTLMS int64     `json:"inactivity_ttl_ms"`
}
