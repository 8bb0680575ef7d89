package usecase

import (
	"strings"

	"github.com/satriahrh/firdraft/domain"
)

// TranscriptAccumulator collects finalized recognition text for one capture
type TranscriptAccumulator struct {
	finals  []string
	interim string
	frozen  bool
}

// NewTranscriptAccumulator creates an empty accumulator
func NewTranscriptAccumulator() *TranscriptAccumulator {
	return &TranscriptAccumulator{}
}

// OnFragment appends final fragments; interim text is only kept for display
func (a *TranscriptAccumulator) OnFragment(text string, isFinal bool) {
	if a.frozen {
		return
	}
	if !isFinal {
		a.interim = text
		return
	}
	a.finals = append(a.finals, text)
	a.interim = ""
}

// OnEnd freezes the buffer and returns the candidate transcript.
// ok is false when nothing but whitespace was finalized.
func (a *TranscriptAccumulator) OnEnd() (transcript string, ok bool) {
	a.frozen = true
	a.interim = ""
	transcript = strings.TrimSpace(strings.Join(a.finals, ""))
	return transcript, transcript != ""
}

// OnError freezes the buffer and reports the recognition failure
func (a *TranscriptAccumulator) OnError(code string) error {
	a.frozen = true
	a.interim = ""
	return &domain.RecognitionError{Code: code}
}

// Interim returns the latest non-final text
func (a *TranscriptAccumulator) Interim() string {
	return a.interim
}

// Fragments returns a copy of the finalized fragments in arrival order
func (a *TranscriptAccumulator) Fragments() []string {
	out := make([]string, len(a.finals))
	copy(out, a.finals)
	return out
}

// Transcript returns the finalized text accumulated so far
func (a *TranscriptAccumulator) Transcript() string {
	return strings.TrimSpace(strings.Join(a.finals, ""))
}
