package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/firdraft/domain"
	"github.com/satriahrh/firdraft/domain/entities"
	"github.com/satriahrh/firdraft/domain/repositories"
)

// DraftIDGenerator hands out fir_<millis> ids that never repeat within a process
type DraftIDGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewDraftIDGenerator creates an id generator backed by the wall clock
func NewDraftIDGenerator() *DraftIDGenerator {
	return &DraftIDGenerator{now: time.Now}
}

// Next returns the next id; saves landing in the same millisecond are bumped forward
func (g *DraftIDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return fmt.Sprintf("fir_%d", ms)
}

// DraftStore is the core's view of draft persistence
type DraftStore struct {
	repo   repositories.DraftRepository
	ids    *DraftIDGenerator
	now    func() time.Time
	logger *zap.Logger
}

// NewDraftStore wraps a repository with id generation and error mapping
func NewDraftStore(repo repositories.DraftRepository, logger *zap.Logger) *DraftStore {
	return &DraftStore{
		repo:   repo,
		ids:    NewDraftIDGenerator(),
		now:    time.Now,
		logger: logger,
	}
}

// Save writes a new draft and returns the stored record
func (s *DraftStore) Save(ctx context.Context, ownerID, content string, language entities.Language) (entities.DraftDocument, error) {
	if ownerID == "" {
		return entities.DraftDocument{}, domain.ErrNoIdentity
	}
	if content == "" {
		return entities.DraftDocument{}, domain.ErrEmptyContent
	}
	if !language.IsValid() {
		return entities.DraftDocument{}, domain.ErrUnsupportedLanguage
	}

	draft := &entities.DraftDocument{
		ID:       s.ids.Next(),
		OwnerID:  ownerID,
		Content:  content,
		Title:    entities.DraftTitle(s.now()),
		Language: language,
	}

	if err := s.repo.Create(ctx, draft); err != nil {
		s.logger.Error("Failed to save draft",
			zap.String("ownerID", ownerID),
			zap.String("draftID", draft.ID),
			zap.Error(err))
		return entities.DraftDocument{}, &domain.PersistenceError{Op: "save", Err: err}
	}

	s.logger.Info("Draft saved",
		zap.String("ownerID", ownerID),
		zap.String("draftID", draft.ID))

	return *draft, nil
}

// List returns the owner's drafts, newest first
func (s *DraftStore) List(ctx context.Context, ownerID string) ([]entities.DraftDocument, error) {
	if ownerID == "" {
		return nil, domain.ErrNoIdentity
	}

	drafts, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		s.logger.Error("Failed to list drafts", zap.String("ownerID", ownerID), zap.Error(err))
		return nil, &domain.PersistenceError{Op: "list", Err: err}
	}

	out := make([]entities.DraftDocument, 0, len(drafts))
	for _, d := range drafts {
		out = append(out, *d)
	}
	return out, nil
}

// Get finds a single draft owned by ownerID
func (s *DraftStore) Get(ctx context.Context, ownerID, draftID string) (entities.DraftDocument, error) {
	drafts, err := s.List(ctx, ownerID)
	if err != nil {
		return entities.DraftDocument{}, err
	}
	for _, d := range drafts {
		if d.ID == draftID {
			return d, nil
		}
	}
	return entities.DraftDocument{}, domain.ErrDraftNotFound
}

// UpdateContent rewrites the content of an existing draft owned by ownerID
func (s *DraftStore) UpdateContent(ctx context.Context, ownerID, draftID, content string) error {
	if ownerID == "" {
		return domain.ErrNoIdentity
	}
	if content == "" {
		return domain.ErrEmptyContent
	}

	if err := s.repo.UpdateContent(ctx, ownerID, draftID, content); err != nil {
		s.logger.Warn("Failed to update draft",
			zap.String("ownerID", ownerID),
			zap.String("draftID", draftID),
			zap.Error(err))
		if errors.Is(err, domain.ErrDraftNotFound) {
			return &domain.PersistenceError{Op: "update", Err: domain.ErrDraftNotFound}
		}
		return &domain.PersistenceError{Op: "update", Err: err}
	}

	s.logger.Info("Draft updated",
		zap.String("ownerID", ownerID),
		zap.String("draftID", draftID))
	return nil
}
