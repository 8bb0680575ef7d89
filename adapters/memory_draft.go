package adapters

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/satriahrh/firdraft/domain"
	"github.com/satriahrh/firdraft/domain/entities"
)

// MemoryDraftRepository is an in-memory implementation of DraftRepository
// for development and tests
type MemoryDraftRepository struct {
	mu     sync.RWMutex
	drafts map[string]*entities.DraftDocument   // id -> draft mapping
	owners map[string][]*entities.DraftDocument // owner_id -> drafts mapping
	now    func() time.Time
}

// NewMemoryDraftRepository creates a new in-memory draft repository
func NewMemoryDraftRepository() *MemoryDraftRepository {
	return &MemoryDraftRepository{
		drafts: make(map[string]*entities.DraftDocument),
		owners: make(map[string][]*entities.DraftDocument),
		now:    time.Now,
	}
}

// Create implements DraftRepository interface
func (m *MemoryDraftRepository) Create(ctx context.Context, draft *entities.DraftDocument) error {
	if draft == nil {
		return errors.New("draft cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	createdAt := m.now()
	// keep creation order strict per owner even when the clock does not move
	if existing := m.owners[draft.OwnerID]; len(existing) > 0 {
		if last := existing[len(existing)-1].CreatedAt; !createdAt.After(last) {
			createdAt = last.Add(time.Millisecond)
		}
	}
	draft.CreatedAt = createdAt

	if err := draft.Validate(); err != nil {
		return err
	}
	if _, exists := m.drafts[draft.ID]; exists {
		return errors.New("draft with this id already exists")
	}

	stored := *draft
	m.drafts[stored.ID] = &stored
	m.owners[stored.OwnerID] = append(m.owners[stored.OwnerID], &stored)
	return nil
}

// ListByOwner implements DraftRepository interface
func (m *MemoryDraftRepository) ListByOwner(ctx context.Context, ownerID string) ([]*entities.DraftDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	owned := m.owners[ownerID]
	result := make([]*entities.DraftDocument, 0, len(owned))
	for _, d := range owned {
		copied := *d
		result = append(result, &copied)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// UpdateContent implements DraftRepository interface
func (m *MemoryDraftRepository) UpdateContent(ctx context.Context, ownerID, draftID, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	draft, exists := m.drafts[draftID]
	if !exists || draft.OwnerID != ownerID {
		return domain.ErrDraftNotFound
	}
	draft.Content = content
	return nil
}

// Count returns the total number of stored drafts
func (m *MemoryDraftRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.drafts)
}
