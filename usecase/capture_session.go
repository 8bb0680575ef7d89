package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satriahrh/firdraft/domain"
	"github.com/satriahrh/firdraft/domain/entities"
	"github.com/satriahrh/firdraft/domain/repositories"
)

// CaptureEvents receives capture session notifications.
// Implementations are called with the session lock held: they must not block
// and must not call back into the session.
type CaptureEvents interface {
	CaptureStateChanged(snapshot entities.CaptureSnapshot)
	InterimTranscript(sessionID, text string)
	DraftReady(sessionID, content string)
	CaptureError(kind, message string)
	SaveStatusChanged(status entities.SaveStatus, draft *entities.DraftDocument)
}

// CaptureConfig controls recognition settings for every capture
type CaptureConfig struct {
	Audio repositories.AudioConfig
}

// CaptureSession is the state machine behind the record button.
//
// idle -> listening -> (processing | idle on empty | error) -> ready | error.
// Every recognition stream and generation call is tagged with the epoch that
// started it; results from a superseded epoch are dropped.
type CaptureSession struct {
	stt       repositories.SpeechToText
	generator *DraftGenerator
	drafts    *DraftStore
	events    CaptureEvents
	cfg       CaptureConfig
	logger    *zap.Logger
	now       func() time.Time

	mu             sync.Mutex
	id             string
	ownerID        string
	language       entities.Language
	status         entities.CaptureStatus
	epoch          uint64
	busy           bool
	accumulator    *TranscriptAccumulator
	stream         repositories.SpeechToTextStreaming
	cancelStream   context.CancelFunc
	listeningSince time.Time
	result         string
	resultLanguage entities.Language
	errKind        string
	errMessage     string
	saveStatus     entities.SaveStatus
	capability     *repositories.Capability
}

// NewCaptureSession creates an idle capture session
func NewCaptureSession(
	stt repositories.SpeechToText,
	generator *DraftGenerator,
	drafts *DraftStore,
	events CaptureEvents,
	cfg CaptureConfig,
	logger *zap.Logger,
) *CaptureSession {
	return &CaptureSession{
		stt:         stt,
		generator:   generator,
		drafts:      drafts,
		events:      events,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
		language:    entities.LanguageEnglish,
		status:      entities.CaptureStatusIdle,
		accumulator: NewTranscriptAccumulator(),
	}
}

// Start begins a fresh capture, discarding any unsaved result
func (s *CaptureSession) Start(ctx context.Context, language entities.Language) error {
	if !language.IsValid() {
		return domain.ErrUnsupportedLanguage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ownerID == "" {
		return domain.ErrNoIdentity
	}
	if s.busy {
		return domain.ErrCaptureBusy
	}
	if s.status == entities.CaptureStatusListening {
		return domain.ErrAlreadyListening
	}

	if s.capability == nil {
		capability := s.stt.Probe(ctx)
		s.capability = &capability
		if !capability.Available {
			s.logger.Warn("Speech recognition unavailable", zap.String("reason", capability.Reason))
			s.setError(domain.KindCapabilityUnavailable, domain.ErrCapabilityUnavailable.Error())
			return domain.ErrCapabilityUnavailable
		}
	} else if !s.capability.Available {
		return domain.ErrCapabilityUnavailable
	}

	s.epoch++
	epoch := s.epoch
	s.id = uuid.NewString()
	s.language = language
	s.accumulator = NewTranscriptAccumulator()
	s.result = ""
	s.resultLanguage = ""
	s.errKind = ""
	s.errMessage = ""
	s.saveStatus = entities.SaveStatusNone

	audio := s.cfg.Audio
	audio.Language = language.SpeechTag()

	streamCtx, cancel := context.WithCancel(context.Background())
	stream, err := s.stt.InitTranscribeStreaming(streamCtx, audio)
	if err != nil {
		cancel()
		recErr := &domain.RecognitionError{Code: err.Error()}
		s.logger.Error("Failed to start recognition",
			zap.String("sessionID", s.id),
			zap.String("ownerID", s.ownerID),
			zap.Error(err))
		s.setError(domain.KindRecognition, recErr.Error())
		return recErr
	}

	s.stream = stream
	s.cancelStream = cancel
	s.status = entities.CaptureStatusListening
	s.listeningSince = s.now()

	s.logger.Info("Capture started",
		zap.String("sessionID", s.id),
		zap.String("ownerID", s.ownerID),
		zap.String("language", audio.Language),
		zap.Uint64("epoch", epoch))

	s.events.CaptureStateChanged(s.snapshotLocked())

	go s.consume(epoch, stream)
	return nil
}

// Stop asks the recognizer to finish. The session stays listening until the
// recognizer's End event arrives.
func (s *CaptureSession) Stop() error {
	s.mu.Lock()
	if s.status != entities.CaptureStatusListening || s.stream == nil {
		s.mu.Unlock()
		return domain.ErrNotListening
	}
	stream := s.stream
	sessionID := s.id
	s.mu.Unlock()

	if err := stream.Stop(); err != nil {
		s.logger.Warn("Failed to stop recognition cleanly",
			zap.String("sessionID", sessionID),
			zap.Error(err))
	}
	return nil
}

// Toggle mirrors the record button: stop while listening, start otherwise
func (s *CaptureSession) Toggle(ctx context.Context, language entities.Language) error {
	s.mu.Lock()
	listening := s.status == entities.CaptureStatusListening
	s.mu.Unlock()

	if listening {
		return s.Stop()
	}
	return s.Start(ctx, language)
}

// AppendAudio forwards an audio chunk to the live recognition stream
func (s *CaptureSession) AppendAudio(chunk []byte) error {
	s.mu.Lock()
	if s.status != entities.CaptureStatusListening || s.stream == nil {
		s.mu.Unlock()
		return domain.ErrNotListening
	}
	stream := s.stream
	s.mu.Unlock()

	return stream.Stream(chunk)
}

// SaveDraft persists the generated draft. Saving is always an explicit action.
func (s *CaptureSession) SaveDraft(ctx context.Context) (entities.DraftDocument, error) {
	s.mu.Lock()
	if s.ownerID == "" {
		s.mu.Unlock()
		return entities.DraftDocument{}, domain.ErrNoIdentity
	}
	if s.status != entities.CaptureStatusReady || s.result == "" {
		s.mu.Unlock()
		return entities.DraftDocument{}, domain.ErrNothingToSave
	}
	if s.saveStatus == entities.SaveStatusSaving {
		s.mu.Unlock()
		return entities.DraftDocument{}, domain.ErrCaptureBusy
	}
	ownerID, content, language, epoch := s.ownerID, s.result, s.resultLanguage, s.epoch
	s.saveStatus = entities.SaveStatusSaving
	s.events.SaveStatusChanged(s.saveStatus, nil)
	s.mu.Unlock()

	draft, err := s.drafts.Save(ctx, ownerID, content, language)

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return draft, err
	}
	if err != nil {
		s.saveStatus = entities.SaveStatusFailed
		s.events.SaveStatusChanged(s.saveStatus, nil)
		return entities.DraftDocument{}, err
	}
	s.saveStatus = entities.SaveStatusSaved
	s.events.SaveStatusChanged(s.saveStatus, &draft)
	return draft, nil
}

// Reset discards the session for a new identity; an empty ownerID means signed out
func (s *CaptureSession) Reset(ownerID string) {
	s.mu.Lock()
	stream := s.stream
	s.releaseStreamLocked()
	s.ownerID = ownerID
	s.epoch++
	s.id = ""
	s.status = entities.CaptureStatusIdle
	s.busy = false
	s.accumulator = NewTranscriptAccumulator()
	s.result = ""
	s.resultLanguage = ""
	s.errKind = ""
	s.errMessage = ""
	s.saveStatus = entities.SaveStatusNone
	s.events.CaptureStateChanged(s.snapshotLocked())
	s.mu.Unlock()

	if stream != nil {
		_ = stream.Stop()
	}
}

// ListeningFor reports how long the current capture has been listening
func (s *CaptureSession) ListeningFor() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != entities.CaptureStatusListening {
		return 0, false
	}
	return s.now().Sub(s.listeningSince), true
}

// Snapshot returns a copy of the current state
func (s *CaptureSession) Snapshot() entities.CaptureSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *CaptureSession) consume(epoch uint64, stream repositories.SpeechToTextStreaming) {
	for event := range stream.Events() {
		s.handleEvent(epoch, event)
	}
	// A stream that closes without End still ends the capture.
	s.handleEvent(epoch, repositories.End())
}

func (s *CaptureSession) handleEvent(epoch uint64, event repositories.RecognitionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch || s.status != entities.CaptureStatusListening {
		return
	}

	switch event.Kind {
	case repositories.RecognitionFragment:
		s.accumulator.OnFragment(event.Text, event.IsFinal)
		if !event.IsFinal {
			s.events.InterimTranscript(s.id, event.Text)
		}

	case repositories.RecognitionError:
		err := s.accumulator.OnError(event.Code)
		s.releaseStreamLocked()
		s.logger.Warn("Recognition failed",
			zap.String("sessionID", s.id),
			zap.String("code", event.Code))
		s.setError(domain.KindRecognition, err.Error())

	case repositories.RecognitionEnd:
		transcript, ok := s.accumulator.OnEnd()
		s.releaseStreamLocked()
		if !ok {
			s.logger.Info("Capture ended without speech", zap.String("sessionID", s.id))
			s.status = entities.CaptureStatusIdle
			s.events.CaptureStateChanged(s.snapshotLocked())
			return
		}

		s.status = entities.CaptureStatusProcessing
		s.busy = true
		s.logger.Info("Capture ended, generating draft",
			zap.String("sessionID", s.id),
			zap.Int("fragments", len(s.accumulator.Fragments())))
		s.events.CaptureStateChanged(s.snapshotLocked())

		go s.generate(epoch, s.id, transcript, s.language)
	}
}

func (s *CaptureSession) generate(epoch uint64, sessionID, transcript string, language entities.Language) {
	content, err := s.generator.Generate(context.Background(), transcript, language)

	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		s.logger.Info("Dropping generation result from superseded capture",
			zap.String("sessionID", sessionID),
			zap.Uint64("epoch", epoch),
			zap.Uint64("currentEpoch", s.epoch))
		return
	}

	s.busy = false
	if err != nil {
		s.setError(domain.ErrorKind(err), err.Error())
		return
	}

	s.status = entities.CaptureStatusReady
	s.result = content
	s.resultLanguage = language
	s.events.CaptureStateChanged(s.snapshotLocked())
	s.events.DraftReady(sessionID, content)
}

func (s *CaptureSession) setError(kind, message string) {
	s.status = entities.CaptureStatusError
	s.errKind = kind
	s.errMessage = message
	s.events.CaptureStateChanged(s.snapshotLocked())
	s.events.CaptureError(kind, message)
}

func (s *CaptureSession) releaseStreamLocked() {
	if s.cancelStream != nil {
		s.cancelStream()
		s.cancelStream = nil
	}
	s.stream = nil
}

func (s *CaptureSession) snapshotLocked() entities.CaptureSnapshot {
	return entities.CaptureSnapshot{
		SessionID:  s.id,
		Epoch:      s.epoch,
		Status:     s.status,
		Language:   s.language,
		Fragments:  s.accumulator.Fragments(),
		Interim:    s.accumulator.Interim(),
		Result:     s.result,
		ErrorKind:  s.errKind,
		Error:      s.errMessage,
		SaveStatus: s.saveStatus,
		Busy:       s.busy,
	}
}
