package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/satriahrh/firdraft/adapters"
	"github.com/satriahrh/firdraft/domain/entities"
	"github.com/satriahrh/firdraft/domain/repositories"
)

type fakeSTT struct {
	mu         sync.Mutex
	capability repositories.Capability
	initErr    error
	probes     int
	streams    []*fakeStream
	configs    []repositories.AudioConfig
}

func newFakeSTT() *fakeSTT {
	return &fakeSTT{capability: repositories.Available()}
}

func (f *fakeSTT) Probe(ctx context.Context) repositories.Capability {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes++
	return f.capability
}

func (f *fakeSTT) InitTranscribeStreaming(ctx context.Context, config repositories.AudioConfig) (repositories.SpeechToTextStreaming, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.initErr != nil {
		return nil, f.initErr
	}
	stream := &fakeStream{events: make(chan repositories.RecognitionEvent, 16)}
	f.streams = append(f.streams, stream)
	f.configs = append(f.configs, config)
	return stream, nil
}

func (f *fakeSTT) probeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probes
}

func (f *fakeSTT) last() *fakeStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streams[len(f.streams)-1]
}

type fakeStream struct {
	mu      sync.Mutex
	chunks  [][]byte
	stopped int
	closed  bool
	events  chan repositories.RecognitionEvent
}

func (s *fakeStream) Stream(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, data)
	return nil
}

func (s *fakeStream) Events() <-chan repositories.RecognitionEvent {
	return s.events
}

func (s *fakeStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped++
	return nil
}

func (s *fakeStream) emit(events ...repositories.RecognitionEvent) {
	for _, e := range events {
		s.events <- e
	}
}

func (s *fakeStream) finish(events ...repositories.RecognitionEvent) {
	s.emit(events...)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
}

func (s *fakeStream) stopCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// fakeLLM answers with text, or blocks on gate when it is set
type fakeLLM struct {
	mu      sync.Mutex
	text    string
	err     error
	gate    chan struct{}
	prompts []string
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text, f.err
}

func (f *fakeLLM) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.prompts))
	copy(out, f.prompts)
	return out
}

var errStorageDown = errors.New("storage down")

// flakyRepo wraps the in-memory repository with switchable failures
type flakyRepo struct {
	*adapters.MemoryDraftRepository

	mu        sync.Mutex
	createErr error
	listErr   error
	updateErr error
}

func newFlakyRepo() *flakyRepo {
	return &flakyRepo{MemoryDraftRepository: adapters.NewMemoryDraftRepository()}
}

func (r *flakyRepo) Create(ctx context.Context, draft *entities.DraftDocument) error {
	r.mu.Lock()
	err := r.createErr
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return r.MemoryDraftRepository.Create(ctx, draft)
}

func (r *flakyRepo) ListByOwner(ctx context.Context, ownerID string) ([]*entities.DraftDocument, error) {
	r.mu.Lock()
	err := r.listErr
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.MemoryDraftRepository.ListByOwner(ctx, ownerID)
}

func (r *flakyRepo) UpdateContent(ctx context.Context, ownerID, draftID, content string) error {
	r.mu.Lock()
	err := r.updateErr
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return r.MemoryDraftRepository.UpdateContent(ctx, ownerID, draftID, content)
}

func (r *flakyRepo) failUpdates(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateErr = err
}

type captureError struct {
	kind    string
	message string
}

// recorder collects every capture and editor notification
type recorder struct {
	mu        sync.Mutex
	states    []entities.CaptureSnapshot
	interims  []string
	ready     []string
	errors    []captureError
	saves     []entities.SaveStatus
	saved     []*entities.DraftDocument
	lists     [][]entities.DraftDocument
	editorLog []entities.EditorSnapshot
}

func (r *recorder) CaptureStateChanged(snapshot entities.CaptureSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, snapshot)
}

func (r *recorder) InterimTranscript(sessionID, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.interims = append(r.interims, text)
}

func (r *recorder) DraftReady(sessionID, content string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ready = append(r.ready, content)
}

func (r *recorder) CaptureError(kind, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, captureError{kind: kind, message: message})
}

func (r *recorder) SaveStatusChanged(status entities.SaveStatus, draft *entities.DraftDocument) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves = append(r.saves, status)
	r.saved = append(r.saved, draft)
}

func (r *recorder) DraftsChanged(drafts []entities.DraftDocument) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists = append(r.lists, drafts)
}

func (r *recorder) EditorChanged(snapshot entities.EditorSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.editorLog = append(r.editorLog, snapshot)
}

func (r *recorder) readyDrafts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ready...)
}

func (r *recorder) captureErrors() []captureError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]captureError(nil), r.errors...)
}

func (r *recorder) interimTexts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.interims...)
}

func (r *recorder) saveStatuses() []entities.SaveStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entities.SaveStatus(nil), r.saves...)
}

func (r *recorder) statuses() []entities.CaptureStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.CaptureStatus, 0, len(r.states))
	for _, s := range r.states {
		out = append(out, s.Status)
	}
	return out
}

// fakeIdentity is a hand-driven identity provider
type fakeIdentity struct {
	mu          sync.Mutex
	current     *repositories.Identity
	subscribers map[int]func(repositories.Identity, bool)
	next        int
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{subscribers: make(map[int]func(repositories.Identity, bool))}
}

func (f *fakeIdentity) Current() (repositories.Identity, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return repositories.Identity{}, false
	}
	return *f.current, true
}

func (f *fakeIdentity) Subscribe(fn func(repositories.Identity, bool)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	f.subscribers[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subscribers, id)
	}
}

func (f *fakeIdentity) SignIn(userID string) {
	f.mu.Lock()
	id := repositories.Identity{UserID: userID}
	f.current = &id
	subs := f.snapshot()
	f.mu.Unlock()
	for _, fn := range subs {
		fn(id, true)
	}
}

func (f *fakeIdentity) SignOut() {
	f.mu.Lock()
	if f.current == nil {
		f.mu.Unlock()
		return
	}
	previous := *f.current
	f.current = nil
	subs := f.snapshot()
	f.mu.Unlock()
	for _, fn := range subs {
		fn(previous, false)
	}
}

func (f *fakeIdentity) subscriberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers)
}

func (f *fakeIdentity) snapshot() []func(repositories.Identity, bool) {
	out := make([]func(repositories.Identity, bool), 0, len(f.subscribers))
	for _, fn := range f.subscribers {
		out = append(out, fn)
	}
	return out
}
