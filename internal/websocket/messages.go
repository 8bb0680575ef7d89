package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/satriahrh/firdraft/domain/entities"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Inbound message types
const (
	MessageTypeCaptureStart    MessageType = "capture_start"
	MessageTypeCaptureStop     MessageType = "capture_stop"
	MessageTypeCaptureToggle   MessageType = "capture_toggle"
	MessageTypeDraftSave       MessageType = "draft_save"
	MessageTypeDraftsList      MessageType = "drafts_list"
	MessageTypeDraftSelect     MessageType = "draft_select"
	MessageTypeDraftClose      MessageType = "draft_close"
	MessageTypeDraftEditToggle MessageType = "draft_edit_toggle"
	MessageTypeDraftEditText   MessageType = "draft_edit_text"
	MessageTypeDraftEditSave   MessageType = "draft_edit_save"
	MessageTypeStationsFind    MessageType = "stations_find"
	MessageTypeAuth            MessageType = "auth"
	MessageTypePing            MessageType = "ping"
)

// Outbound message types
const (
	MessageTypeCaptureState      MessageType = "capture_state"
	MessageTypeTranscriptInterim MessageType = "transcript_interim"
	MessageTypeDraftReady        MessageType = "draft_ready"
	MessageTypeSaveStatus        MessageType = "save_status"
	MessageTypeDrafts            MessageType = "drafts"
	MessageTypeDraftSelected     MessageType = "draft_selected"
	MessageTypeEditState         MessageType = "edit_state"
	MessageTypeStations          MessageType = "stations"
	MessageTypeSignedOut         MessageType = "signed_out"
	MessageTypeError             MessageType = "error"
	MessageTypePong              MessageType = "pong"
)

// Auth actions
const (
	AuthActionAuthenticate = "authenticate"
	AuthActionLogout       = "logout"
)

// BaseMessage defines the common structure for all WebSocket messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp"`
	MessageID string      `json:"message_id,omitempty"`
}

func newBase(t MessageType) BaseMessage {
	return BaseMessage{
		Type:      t,
		Timestamp: time.Now().Format(time.RFC3339),
		MessageID: uuid.NewString(),
	}
}

// CaptureStartMessage starts (or with capture_toggle, toggles) a capture
type CaptureStartMessage struct {
	BaseMessage
	Language string `json:"language"`
}

// DraftSelectMessage opens a draft from the list
type DraftSelectMessage struct {
	BaseMessage
	DraftID string `json:"draft_id"`
}

// DraftEditTextMessage replaces the edit buffer
type DraftEditTextMessage struct {
	BaseMessage
	Content string `json:"content"`
}

// StationsFindMessage asks for stations near a position
type StationsFindMessage struct {
	BaseMessage
	Latitude  *float64 `json:"lat"`
	Longitude *float64 `json:"lng"`
}

// AuthMessage represents authentication-related messages
type AuthMessage struct {
	BaseMessage
	Action string `json:"action"`
	Token  string `json:"token,omitempty"`
}

// PingMessage represents a ping message for connection health check
type PingMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// PongMessage represents a pong response
type PongMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// ErrorMessage represents an error response
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"error_code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// CaptureStateMessage carries the full capture state after every transition
type CaptureStateMessage struct {
	BaseMessage
	State    entities.CaptureSnapshot `json:"state"`
	CanStart bool                     `json:"can_start"`
}

// TranscriptInterimMessage carries the latest interim text
type TranscriptInterimMessage struct {
	BaseMessage
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// DraftReadyMessage carries freshly generated draft text
type DraftReadyMessage struct {
	BaseMessage
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
}

// SaveStatusMessage reports the inline save status
type SaveStatusMessage struct {
	BaseMessage
	Status entities.SaveStatus `json:"status"`
	Draft  *DraftSummary       `json:"draft,omitempty"`
}

// DraftSummary is a list card
type DraftSummary struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Preview   string            `json:"preview"`
	Language  entities.Language `json:"lang"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewDraftSummary builds the list card for a draft
func NewDraftSummary(d entities.DraftDocument) DraftSummary {
	return DraftSummary{
		ID:        d.ID,
		Title:     d.Title,
		Preview:   d.Preview(),
		Language:  d.Language,
		CreatedAt: d.CreatedAt,
	}
}

// DraftsMessage carries the refetched draft list, newest first
type DraftsMessage struct {
	BaseMessage
	Drafts []DraftSummary `json:"drafts"`
}

// DraftSelectedMessage carries the full selected draft
type DraftSelectedMessage struct {
	BaseMessage
	Draft entities.DraftDocument `json:"draft"`
}

// EditStateMessage carries the selection and edit state
type EditStateMessage struct {
	BaseMessage
	State entities.EditorSnapshot `json:"state"`
}

// StationsMessage carries nearby stations
type StationsMessage struct {
	BaseMessage
	Stations []entities.Station `json:"stations"`
}

// SignedOutMessage tells the client its identity is gone
type SignedOutMessage struct {
	BaseMessage
}

// MessageValidator provides validation for WebSocket messages
type MessageValidator struct{}

// NewMessageValidator creates a new message validator
func NewMessageValidator() *MessageValidator {
	return &MessageValidator{}
}

// ValidateMessage parses and validates an incoming text message
func (v *MessageValidator) ValidateMessage(messageBytes []byte) (interface{}, error) {
	var base BaseMessage
	if err := json.Unmarshal(messageBytes, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch base.Type {
	case MessageTypeCaptureStart, MessageTypeCaptureToggle:
		var msg CaptureStartMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid %s message: %w", base.Type, err)
		}
		if msg.Language == "" {
			msg.Language = string(entities.LanguageEnglish)
		}
		if _, err := entities.ParseLanguage(msg.Language); err != nil {
			return nil, err
		}
		return &msg, nil

	case MessageTypeDraftSelect:
		var msg DraftSelectMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid draft_select message: %w", err)
		}
		if msg.DraftID == "" {
			return nil, fmt.Errorf("draft_id is required")
		}
		return &msg, nil

	case MessageTypeDraftEditText:
		var msg DraftEditTextMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid draft_edit_text message: %w", err)
		}
		return &msg, nil

	case MessageTypeStationsFind:
		var msg StationsFindMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid stations_find message: %w", err)
		}
		if msg.Latitude == nil || msg.Longitude == nil {
			return nil, fmt.Errorf("lat and lng are required")
		}
		if err := (entities.Coordinate{Latitude: *msg.Latitude, Longitude: *msg.Longitude}).Validate(); err != nil {
			return nil, err
		}
		return &msg, nil

	case MessageTypeAuth:
		var msg AuthMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid auth message: %w", err)
		}
		switch msg.Action {
		case AuthActionAuthenticate:
			if msg.Token == "" {
				return nil, fmt.Errorf("token is required")
			}
		case AuthActionLogout:
		default:
			return nil, fmt.Errorf("action must be one of: authenticate, logout")
		}
		return &msg, nil

	case MessageTypePing:
		var msg PingMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid ping message: %w", err)
		}
		return &msg, nil

	case MessageTypeCaptureStop, MessageTypeDraftSave, MessageTypeDraftsList,
		MessageTypeDraftClose, MessageTypeDraftEditToggle, MessageTypeDraftEditSave:
		return &base, nil

	default:
		return nil, fmt.Errorf("unsupported message type: %s", base.Type)
	}
}

// CreateErrorMessage creates a standardized error message
func CreateErrorMessage(code, message, details string) *ErrorMessage {
	return &ErrorMessage{
		BaseMessage: newBase(MessageTypeError),
		Code:        code,
		Message:     message,
		Details:     details,
	}
}

// CreatePongMessage creates a pong response message
func CreatePongMessage(data string) *PongMessage {
	return &PongMessage{
		BaseMessage: newBase(MessageTypePong),
		Data:        data,
	}
}

// CreateCaptureStateMessage wraps a capture snapshot
func CreateCaptureStateMessage(snapshot entities.CaptureSnapshot) *CaptureStateMessage {
	return &CaptureStateMessage{
		BaseMessage: newBase(MessageTypeCaptureState),
		State:       snapshot,
		CanStart:    snapshot.CanStart(),
	}
}

// CreateDraftsMessage builds the list payload
func CreateDraftsMessage(drafts []entities.DraftDocument) *DraftsMessage {
	summaries := make([]DraftSummary, 0, len(drafts))
	for _, d := range drafts {
		summaries = append(summaries, NewDraftSummary(d))
	}
	return &DraftsMessage{
		BaseMessage: newBase(MessageTypeDrafts),
		Drafts:      summaries,
	}
}

// CreateSaveStatusMessage reports a save transition
func CreateSaveStatusMessage(status entities.SaveStatus, draft *entities.DraftDocument) *SaveStatusMessage {
	msg := &SaveStatusMessage{
		BaseMessage: newBase(MessageTypeSaveStatus),
		Status:      status,
	}
	if draft != nil {
		summary := NewDraftSummary(*draft)
		msg.Draft = &summary
	}
	return msg
}
