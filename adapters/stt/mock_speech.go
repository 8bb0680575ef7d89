package stt

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/satriahrh/firdraft/domain/repositories"
)

const defaultMockStatement = "Someone snatched my phone near the metro station this evening"

// MockSpeechToText is a scripted recognizer for local development
type MockSpeechToText struct {
	logger *zap.Logger
	// Statement is revealed word by word as audio arrives
	Statement string
	// UnavailableReason makes Probe report the capability as missing
	UnavailableReason string
}

// NewMockSpeechToText creates a new mock speech-to-text service
func NewMockSpeechToText(logger *zap.Logger) *MockSpeechToText {
	return &MockSpeechToText{
		logger:    logger,
		Statement: defaultMockStatement,
	}
}

func (s *MockSpeechToText) Probe(ctx context.Context) repositories.Capability {
	if s.UnavailableReason != "" {
		return repositories.Unavailable(s.UnavailableReason)
	}
	return repositories.Available()
}

// InitTranscribeStreaming creates a new mock streaming session
func (s *MockSpeechToText) InitTranscribeStreaming(ctx context.Context, config repositories.AudioConfig) (repositories.SpeechToTextStreaming, error) {
	if s.UnavailableReason != "" {
		return nil, fmt.Errorf("speech recognition unavailable: %s", s.UnavailableReason)
	}

	s.logger.Info("Initializing mock streaming transcription",
		zap.Int("sampleRate", config.SampleRate),
		zap.String("encoding", config.Encoding),
		zap.String("language", config.Language))

	stream := &MockSpeechToTextStream{
		logger: s.logger,
		words:  strings.Fields(s.Statement),
		events: make(chan repositories.RecognitionEvent, 64),
	}
	go func() {
		<-ctx.Done()
		stream.finish(false)
	}()
	return stream, nil
}

// MockSpeechToTextStream reveals one more word of the statement per audio chunk
type MockSpeechToTextStream struct {
	logger *zap.Logger
	words  []string

	mu       sync.Mutex
	revealed int
	closed   bool
	events   chan repositories.RecognitionEvent
}

// Stream implements mock streaming audio processing
func (m *MockSpeechToTextStream) Stream(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("recognition stream already stopped")
	}
	if len(data) == 0 || m.revealed >= len(m.words) {
		return nil
	}
	m.revealed++
	m.events <- repositories.Fragment(strings.Join(m.words[:m.revealed], " "), false)
	return nil
}

func (m *MockSpeechToTextStream) Events() <-chan repositories.RecognitionEvent {
	return m.events
}

// Stop finalizes whatever has been revealed and ends the stream
func (m *MockSpeechToTextStream) Stop() error {
	m.finish(true)
	return nil
}

func (m *MockSpeechToTextStream) finish(flush bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	if flush && m.revealed > 0 {
		text := strings.Join(m.words[:m.revealed], " ")
		m.logger.Info("Ending mock transcription stream", zap.String("result", text))
		m.events <- repositories.Fragment(text, true)
	}
	m.events <- repositories.End()
	close(m.events)
}
