package repositories

import (
	"context"

	"github.com/satriahrh/firdraft/domain/entities"
)

// DraftRepository defines per-owner draft persistence.
//
// Create assigns CreatedAt at write time. ListByOwner returns drafts newest
// first. UpdateContent only touches the content field and returns
// domain.ErrDraftNotFound when no draft with that id belongs to the owner.
type DraftRepository interface {
	Create(ctx context.Context, draft *entities.DraftDocument) error
	ListByOwner(ctx context.Context, ownerID string) ([]*entities.DraftDocument, error)
	UpdateContent(ctx context.Context, ownerID, draftID, content string) error
}

// StationLocator returns police stations near a coordinate
type StationLocator interface {
	Nearby(ctx context.Context, at entities.Coordinate) ([]entities.Station, error)
}
