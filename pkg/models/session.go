package models

import "time"

// SessionStatus represents the current state of a browser session.
type SessionStatus string

const (
	StatusActive  SessionStatus = "ACTIVE"
	StatusExpired SessionStatus = "EXPIRED"
	StatusClosed  SessionStatus = "CLOSED"
)

// CreateSessionRequest is the payload for creating a new session.
type CreateSessionRequest struct {
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`
}

// SessionInfo is the API view of a session.
type SessionInfo struct {
	ID             string        `json:"id"`
	Status         SessionStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	LastActivity   time.Time     `json:"last_activity"`
	TimeoutSeconds int           `json:"timeout_seconds"`
	CurrentURL     string        `json:"current_url,omitempty"`
}

// NavigateRequest directs a session to a URL.
type NavigateRequest struct {
	URL string `json:"url"`
}

// NavigateResponse reports the post-navigation URL.
type NavigateResponse struct {
	Success    bool   `json:"success"`
	CurrentURL string `json:"current_url"`
}

// CleanupResponse reports how many sessions an administrative reset closed.
type CleanupResponse struct {
	Closed int `json:"closed"`
}
