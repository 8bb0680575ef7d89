package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCapabilityUnavailable means speech recognition is not supported here. It is permanent.
	ErrCapabilityUnavailable = errors.New("speech recognition is not supported in this environment")
	// ErrEmptyInput means capture ended without finalized speech. It is never shown to the user.
	ErrEmptyInput = errors.New("no speech captured")

	ErrCaptureBusy      = errors.New("a draft is still being generated")
	ErrAlreadyListening = errors.New("capture already in progress")
	ErrNotListening     = errors.New("no capture in progress")
	ErrNothingToSave    = errors.New("no generated draft to save")

	ErrNoIdentity  = errors.New("not signed in")
	ErrNoSelection = errors.New("no draft selected")
	ErrNotEditing  = errors.New("draft is not in edit mode")

	ErrDraftNotFound       = errors.New("draft not found")
	ErrEmptyContent        = errors.New("draft content cannot be empty")
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// RecognitionError is a mid-capture failure reported by the recognizer
type RecognitionError struct {
	Code string
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("Speech recognition error: %s", e.Code)
}

// GenerationError is a transport or shape failure from the text generator
type GenerationError struct {
	Reason string
	Err    error
}

// GenerationFailed builds a GenerationError with the given reason
func GenerationFailed(reason string, err error) *GenerationError {
	return &GenerationError{Reason: reason, Err: err}
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("Failed to generate FIR: %s", e.Reason)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// PersistenceError wraps a failed save, list or update
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s draft: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Error kinds used on the wire
const (
	KindCapabilityUnavailable = "capability_unavailable"
	KindRecognition           = "recognition_error"
	KindEmptyInput            = "empty_input"
	KindGeneration            = "generation_failed"
	KindPersistence           = "persistence_failed"
	KindNotFound              = "not_found"
	KindInvalidRequest        = "invalid_request"
	KindBusy                  = "busy"
	KindUnauthenticated       = "unauthenticated"
	KindInternal              = "internal_error"
)

// ErrorKind maps an error to its stable wire code
func ErrorKind(err error) string {
	var (
		recErr  *RecognitionError
		genErr  *GenerationError
		persErr *PersistenceError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCapabilityUnavailable):
		return KindCapabilityUnavailable
	case errors.As(err, &recErr):
		return KindRecognition
	case errors.Is(err, ErrEmptyInput):
		return KindEmptyInput
	case errors.As(err, &genErr):
		return KindGeneration
	case errors.Is(err, ErrDraftNotFound):
		return KindNotFound
	case errors.As(err, &persErr):
		return KindPersistence
	case errors.Is(err, ErrCaptureBusy), errors.Is(err, ErrAlreadyListening):
		return KindBusy
	case errors.Is(err, ErrNoIdentity):
		return KindUnauthenticated
	case errors.Is(err, ErrEmptyContent), errors.Is(err, ErrUnsupportedLanguage),
		errors.Is(err, ErrNotListening), errors.Is(err, ErrNothingToSave),
		errors.Is(err, ErrNoSelection), errors.Is(err, ErrNotEditing):
		return KindInvalidRequest
	default:
		return KindInternal
	}
}
