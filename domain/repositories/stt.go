package repositories

import "context"

// SpeechToText abstracts continuous speech recognition services
type SpeechToText interface {
	// Probe reports whether recognition can run in this environment
	Probe(ctx context.Context) Capability
	// InitTranscribeStreaming opens a continuous, interim-results-enabled session
	InitTranscribeStreaming(ctx context.Context, config AudioConfig) (SpeechToTextStreaming, error)
}

// Capability is the tagged result of a recognizer probe
type Capability struct {
	Available bool
	Reason    string
}

// Available returns a capability that can be used
func Available() Capability {
	return Capability{Available: true}
}

// Unavailable returns a permanent capability absence
func Unavailable(reason string) Capability {
	return Capability{Reason: reason}
}

// AudioConfig represents audio configuration for speech recognition
type AudioConfig struct {
	SampleRate int    `json:"sample_rate"`
	Encoding   string `json:"encoding"`
	Language   string `json:"language"`
}

// SpeechToTextStreaming is a live recognition session.
//
// Events emits zero or more Fragment events, at most one Error event and
// exactly one End event, after which the channel is closed.
type SpeechToTextStreaming interface {
	Stream(data []byte) error
	Events() <-chan RecognitionEvent
	// Stop asks the recognizer to finish; End arrives later on Events
	Stop() error
}

// RecognitionEventKind tags events coming out of a recognizer
type RecognitionEventKind string

const (
	RecognitionFragment RecognitionEventKind = "fragment"
	RecognitionEnd      RecognitionEventKind = "end"
	RecognitionError    RecognitionEventKind = "error"
)

// RecognitionEvent is a single recognizer notification
type RecognitionEvent struct {
	Kind    RecognitionEventKind `json:"kind"`
	Text    string               `json:"text,omitempty"`
	IsFinal bool                 `json:"is_final,omitempty"`
	Code    string               `json:"code,omitempty"`
}

// Fragment builds a transcript fragment event
func Fragment(text string, isFinal bool) RecognitionEvent {
	return RecognitionEvent{Kind: RecognitionFragment, Text: text, IsFinal: isFinal}
}

// End builds the end-of-capture event
func End() RecognitionEvent {
	return RecognitionEvent{Kind: RecognitionEnd}
}

// Failure builds a recognition error event
func Failure(code string) RecognitionEvent {
	return RecognitionEvent{Kind: RecognitionError, Code: code}
}
