package api

import (
	"time"

	"github.com/satriahrh/firdraft/domain/entities"
)

// DevTokenRequest asks for a token for a development user
type DevTokenRequest struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// DevTokenResponse represents the response payload for token issuance
type DevTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
}

// UpdateDraftRequest replaces a draft's content
type UpdateDraftRequest struct {
	Content string `json:"content"`
}

// DraftListResponse wraps the draft list
type DraftListResponse struct {
	Drafts []entities.DraftDocument `json:"drafts"`
}

// StationsResponse wraps nearby stations
type StationsResponse struct {
	Stations []entities.Station `json:"stations"`
}

// LanguageResponse describes one supported statement language
type LanguageResponse struct {
	Code      entities.Language `json:"code"`
	Name      string            `json:"name"`
	SpeechTag string            `json:"speech_tag"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
