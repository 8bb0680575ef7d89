package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/satriahrh/firdraft/domain"
	"github.com/satriahrh/firdraft/domain/entities"
	"github.com/satriahrh/firdraft/domain/repositories"
)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
)

type captureFixture struct {
	session *CaptureSession
	stt     *fakeSTT
	llm     *fakeLLM
	repo    *flakyRepo
	events  *recorder
}

func newCaptureFixture(t *testing.T) *captureFixture {
	t.Helper()
	f := &captureFixture{
		stt:    newFakeSTT(),
		llm:    &fakeLLM{text: "FIRST INFORMATION REPORT"},
		repo:   newFlakyRepo(),
		events: &recorder{},
	}
	logger := zap.NewNop()
	f.session = NewCaptureSession(
		f.stt,
		NewDraftGenerator(f.llm, time.Second, logger),
		NewDraftStore(f.repo, logger),
		f.events,
		CaptureConfig{Audio: repositories.AudioConfig{SampleRate: 16000, Encoding: "LINEAR16"}},
		logger,
	)
	f.session.Reset("alice")
	return f
}

func (f *captureFixture) waitStatus(t *testing.T, status entities.CaptureStatus) {
	t.Helper()
	require.Eventually(t, func() bool {
		return f.session.Snapshot().Status == status
	}, waitFor, tick, "capture never reached %s", status)
}

func TestCaptureSession_StartRequiresIdentity(t *testing.T) {
	f := newCaptureFixture(t)
	f.session.Reset("")

	err := f.session.Start(context.Background(), entities.LanguageEnglish)
	assert.ErrorIs(t, err, domain.ErrNoIdentity)
	assert.Zero(t, f.stt.probeCount())
}

func TestCaptureSession_StartRejectsUnknownLanguage(t *testing.T) {
	f := newCaptureFixture(t)

	err := f.session.Start(context.Background(), entities.Language("ta"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedLanguage)
	assert.Equal(t, entities.CaptureStatusIdle, f.session.Snapshot().Status)
}

func TestCaptureSession_FullFlow(t *testing.T) {
	f := newCaptureFixture(t)
	ctx := context.Background()

	require.NoError(t, f.session.Start(ctx, entities.LanguageHindi))
	snapshot := f.session.Snapshot()
	assert.Equal(t, entities.CaptureStatusListening, snapshot.Status)
	assert.False(t, snapshot.CanStart())
	assert.NotEmpty(t, snapshot.SessionID)
	assert.Equal(t, "hi-IN", f.stt.configs[0].Language)
	assert.Equal(t, 16000, f.stt.configs[0].SampleRate)

	require.NoError(t, f.session.AppendAudio([]byte{1, 2, 3}))
	stream := f.stt.last()

	stream.emit(
		repositories.Fragment("my bag", false),
		repositories.Fragment("my bag was snatched ", true),
		repositories.Fragment("at the", false),
		repositories.Fragment("at the bus stop", true),
	)
	require.NoError(t, f.session.Stop())
	assert.Equal(t, 1, stream.stopCount())
	stream.finish(repositories.End())

	f.waitStatus(t, entities.CaptureStatusReady)

	snapshot = f.session.Snapshot()
	assert.Equal(t, "FIRST INFORMATION REPORT", snapshot.Result)
	assert.False(t, snapshot.Busy)
	assert.True(t, snapshot.CanStart())
	assert.Equal(t, []string{"FIRST INFORMATION REPORT"}, f.events.readyDrafts())
	assert.Equal(t, []string{"my bag", "at the"}, f.events.interimTexts())
	assert.Equal(t, [][]byte{{1, 2, 3}}, stream.chunks)

	calls := f.llm.calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0], `"my bag was snatched at the bus stop"`)
	assert.Contains(t, calls[0], "in Hindi")

	assert.Subset(t, f.events.statuses(), []entities.CaptureStatus{
		entities.CaptureStatusListening,
		entities.CaptureStatusProcessing,
		entities.CaptureStatusReady,
	})

	// Nothing is persisted until the user asks for it.
	assert.Zero(t, f.repo.Count())

	draft, err := f.session.SaveDraft(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", draft.OwnerID)
	assert.Equal(t, entities.LanguageHindi, draft.Language)
	assert.Equal(t, "FIRST INFORMATION REPORT", draft.Content)
	assert.Equal(t, 1, f.repo.Count())
	assert.Equal(t, []entities.SaveStatus{entities.SaveStatusSaving, entities.SaveStatusSaved}, f.events.saveStatuses())
	assert.Equal(t, entities.SaveStatusSaved, f.session.Snapshot().SaveStatus)
}

func TestCaptureSession_EmptyCaptureReturnsToIdle(t *testing.T) {
	f := newCaptureFixture(t)

	require.NoError(t, f.session.Start(context.Background(), entities.LanguageEnglish))
	f.stt.last().finish(repositories.Fragment("uh", false), repositories.End())

	f.waitStatus(t, entities.CaptureStatusIdle)
	assert.Empty(t, f.llm.calls())
	assert.Empty(t, f.events.captureErrors())
	assert.Empty(t, f.session.Snapshot().Error)
}

func TestCaptureSession_StreamClosedWithoutEnd(t *testing.T) {
	f := newCaptureFixture(t)

	require.NoError(t, f.session.Start(context.Background(), entities.LanguageEnglish))
	f.stt.last().finish(repositories.Fragment("robbery ", true))

	f.waitStatus(t, entities.CaptureStatusReady)
	assert.Len(t, f.llm.calls(), 1)
}

func TestCaptureSession_RecognitionError(t *testing.T) {
	f := newCaptureFixture(t)

	require.NoError(t, f.session.Start(context.Background(), entities.LanguageEnglish))
	stream := f.stt.last()
	stream.emit(repositories.Fragment("partial ", true))
	stream.finish(repositories.Failure("network"), repositories.End())

	f.waitStatus(t, entities.CaptureStatusError)

	snapshot := f.session.Snapshot()
	assert.Equal(t, domain.KindRecognition, snapshot.ErrorKind)
	assert.Equal(t, "Speech recognition error: network", snapshot.Error)
	assert.True(t, snapshot.CanStart())

	errs := f.events.captureErrors()
	require.Len(t, errs, 1)
	assert.Equal(t, domain.KindRecognition, errs[0].kind)

	// The End that follows the error belongs to a finished capture.
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, f.llm.calls())
	assert.Equal(t, entities.CaptureStatusError, f.session.Snapshot().Status)
}

func TestCaptureSession_StartFailureIsRecognitionError(t *testing.T) {
	f := newCaptureFixture(t)
	f.stt.initErr = errors.New("not-allowed")

	err := f.session.Start(context.Background(), entities.LanguageEnglish)
	var recErr *domain.RecognitionError
	require.True(t, errors.As(err, &recErr))
	assert.Equal(t, "not-allowed", recErr.Code)
	assert.Equal(t, entities.CaptureStatusError, f.session.Snapshot().Status)
}

func TestCaptureSession_CapabilityProbedOnce(t *testing.T) {
	f := newCaptureFixture(t)
	f.stt.capability = repositories.Unavailable("no recognizer")
	ctx := context.Background()

	err := f.session.Start(ctx, entities.LanguageEnglish)
	assert.ErrorIs(t, err, domain.ErrCapabilityUnavailable)
	snapshot := f.session.Snapshot()
	assert.Equal(t, entities.CaptureStatusError, snapshot.Status)
	assert.Equal(t, domain.KindCapabilityUnavailable, snapshot.ErrorKind)

	f.stt.capability = repositories.Available()
	err = f.session.Start(ctx, entities.LanguageEnglish)
	assert.ErrorIs(t, err, domain.ErrCapabilityUnavailable)
	assert.Equal(t, 1, f.stt.probeCount())
	assert.Empty(t, f.stt.streams)
}

func TestCaptureSession_AvailableProbeIsCached(t *testing.T) {
	f := newCaptureFixture(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, f.session.Start(ctx, entities.LanguageEnglish))
		f.stt.last().finish(repositories.End())
		f.waitStatus(t, entities.CaptureStatusIdle)
	}
	assert.Equal(t, 1, f.stt.probeCount())
	assert.Len(t, f.stt.streams, 2)
}

func TestCaptureSession_AlreadyListening(t *testing.T) {
	f := newCaptureFixture(t)
	ctx := context.Background()

	require.NoError(t, f.session.Start(ctx, entities.LanguageEnglish))
	err := f.session.Start(ctx, entities.LanguageEnglish)
	assert.ErrorIs(t, err, domain.ErrAlreadyListening)
	assert.Len(t, f.stt.streams, 1)
}

func TestCaptureSession_BusyWhileGenerating(t *testing.T) {
	f := newCaptureFixture(t)
	f.llm.gate = make(chan struct{})
	ctx := context.Background()

	require.NoError(t, f.session.Start(ctx, entities.LanguageEnglish))
	f.stt.last().finish(repositories.Fragment("theft ", true), repositories.End())
	f.waitStatus(t, entities.CaptureStatusProcessing)

	snapshot := f.session.Snapshot()
	assert.True(t, snapshot.Busy)
	assert.False(t, snapshot.CanStart())
	assert.ErrorIs(t, f.session.Start(ctx, entities.LanguageEnglish), domain.ErrCaptureBusy)
	assert.ErrorIs(t, f.session.Toggle(ctx, entities.LanguageEnglish), domain.ErrCaptureBusy)

	close(f.llm.gate)
	f.waitStatus(t, entities.CaptureStatusReady)
	assert.False(t, f.session.Snapshot().Busy)
}

func TestCaptureSession_StaleGenerationDropped(t *testing.T) {
	f := newCaptureFixture(t)
	f.llm.gate = make(chan struct{})

	require.NoError(t, f.session.Start(context.Background(), entities.LanguageEnglish))
	f.stt.last().finish(repositories.Fragment("burglary ", true), repositories.End())
	f.waitStatus(t, entities.CaptureStatusProcessing)

	f.session.Reset("alice")
	close(f.llm.gate)

	time.Sleep(20 * time.Millisecond)
	snapshot := f.session.Snapshot()
	assert.Equal(t, entities.CaptureStatusIdle, snapshot.Status)
	assert.Empty(t, snapshot.Result)
	assert.Empty(t, f.events.readyDrafts())
}

func TestCaptureSession_StaleRecognitionDropped(t *testing.T) {
	f := newCaptureFixture(t)
	ctx := context.Background()

	require.NoError(t, f.session.Start(ctx, entities.LanguageEnglish))
	old := f.stt.last()

	f.session.Reset("alice")
	assert.Equal(t, 1, old.stopCount())

	require.NoError(t, f.session.Start(ctx, entities.LanguageEnglish))
	old.finish(repositories.Fragment("old words ", true), repositories.End())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, entities.CaptureStatusListening, f.session.Snapshot().Status)
	assert.Empty(t, f.session.Snapshot().Fragments)

	f.stt.last().finish(repositories.Fragment("new words", true), repositories.End())
	f.waitStatus(t, entities.CaptureStatusReady)
	assert.Contains(t, f.llm.calls()[0], "new words")
	assert.NotContains(t, f.llm.calls()[0], "old words")
}

func TestCaptureSession_GenerationFailure(t *testing.T) {
	f := newCaptureFixture(t)
	f.llm.err = domain.GenerationFailed("request timed out", nil)

	require.NoError(t, f.session.Start(context.Background(), entities.LanguageEnglish))
	f.stt.last().finish(repositories.Fragment("fraud ", true), repositories.End())

	f.waitStatus(t, entities.CaptureStatusError)
	snapshot := f.session.Snapshot()
	assert.Equal(t, domain.KindGeneration, snapshot.ErrorKind)
	assert.Equal(t, "Failed to generate FIR: request timed out", snapshot.Error)
	assert.False(t, snapshot.Busy)

	_, err := f.session.SaveDraft(context.Background())
	assert.ErrorIs(t, err, domain.ErrNothingToSave)
}

func TestCaptureSession_SaveFailureKeepsResult(t *testing.T) {
	f := newCaptureFixture(t)
	f.repo.createErr = errStorageDown
	ctx := context.Background()

	require.NoError(t, f.session.Start(ctx, entities.LanguageEnglish))
	f.stt.last().finish(repositories.Fragment("assault ", true), repositories.End())
	f.waitStatus(t, entities.CaptureStatusReady)

	_, err := f.session.SaveDraft(ctx)
	assert.Equal(t, domain.KindPersistence, domain.ErrorKind(err))
	snapshot := f.session.Snapshot()
	assert.Equal(t, entities.SaveStatusFailed, snapshot.SaveStatus)
	assert.Equal(t, entities.CaptureStatusReady, snapshot.Status)

	f.repo.createErr = nil
	_, err = f.session.SaveDraft(ctx)
	require.NoError(t, err)
	assert.Equal(t, entities.SaveStatusSaved, f.session.Snapshot().SaveStatus)
}

func TestCaptureSession_NewCaptureDiscardsResult(t *testing.T) {
	f := newCaptureFixture(t)
	ctx := context.Background()

	require.NoError(t, f.session.Start(ctx, entities.LanguageEnglish))
	f.stt.last().finish(repositories.Fragment("first ", true), repositories.End())
	f.waitStatus(t, entities.CaptureStatusReady)

	require.NoError(t, f.session.Start(ctx, entities.LanguageMarathi))
	snapshot := f.session.Snapshot()
	assert.Empty(t, snapshot.Result)
	assert.Equal(t, entities.SaveStatusNone, snapshot.SaveStatus)
	assert.Equal(t, entities.LanguageMarathi, snapshot.Language)

	_, err := f.session.SaveDraft(ctx)
	assert.ErrorIs(t, err, domain.ErrNothingToSave)
}

func TestCaptureSession_StopAndAppendWhenIdle(t *testing.T) {
	f := newCaptureFixture(t)

	assert.ErrorIs(t, f.session.Stop(), domain.ErrNotListening)
	assert.ErrorIs(t, f.session.AppendAudio([]byte{0}), domain.ErrNotListening)
	_, listening := f.session.ListeningFor()
	assert.False(t, listening)
}

func TestCaptureSession_ToggleStartsAndStops(t *testing.T) {
	f := newCaptureFixture(t)
	ctx := context.Background()

	require.NoError(t, f.session.Toggle(ctx, entities.LanguageEnglish))
	assert.Equal(t, entities.CaptureStatusListening, f.session.Snapshot().Status)

	require.NoError(t, f.session.Toggle(ctx, entities.LanguageEnglish))
	assert.Equal(t, 1, f.stt.last().stopCount())
}

func TestCaptureSession_ListeningFor(t *testing.T) {
	f := newCaptureFixture(t)
	start := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	clock := start
	f.session.now = func() time.Time { return clock }

	require.NoError(t, f.session.Start(context.Background(), entities.LanguageEnglish))
	clock = start.Add(90 * time.Second)

	elapsed, listening := f.session.ListeningFor()
	assert.True(t, listening)
	assert.Equal(t, 90*time.Second, elapsed)
}

func TestCaptureSession_SignOutStopsCapture(t *testing.T) {
	f := newCaptureFixture(t)

	require.NoError(t, f.session.Start(context.Background(), entities.LanguageEnglish))
	stream := f.stt.last()

	f.session.Reset("")
	assert.Equal(t, 1, stream.stopCount())
	assert.Equal(t, entities.CaptureStatusIdle, f.session.Snapshot().Status)
	assert.ErrorIs(t, f.session.Start(context.Background(), entities.LanguageEnglish), domain.ErrNoIdentity)
}
