package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/satriahrh/firdraft/domain"
	"github.com/satriahrh/firdraft/domain/entities"
	"github.com/satriahrh/firdraft/domain/repositories"
)

const draftsCollection = "drafts"

// DraftRepository stores drafts in the "drafts" collection, keyed by draft id
// and partitioned by owner_id
type DraftRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

// NewDraftRepository creates a new MongoDB draft repository
func NewDraftRepository(db *mongo.Database) *DraftRepository {
	return &DraftRepository{
		collection: db.Collection(draftsCollection),
		now:        time.Now,
	}
}

var _ repositories.DraftRepository = (*DraftRepository)(nil)

// EnsureIndexes creates the owner/created_at index used by ListByOwner
func (r *DraftRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}},
		Options: options.Index().SetName("owner_created_at"),
	})
	if err != nil {
		return fmt.Errorf("failed to create drafts index: %w", err)
	}
	return nil
}

// Create implements repositories.DraftRepository
func (r *DraftRepository) Create(ctx context.Context, draft *entities.DraftDocument) error {
	if draft == nil {
		return errors.New("draft cannot be nil")
	}

	// BSON dates carry millisecond precision
	draft.CreatedAt = r.now().UTC().Truncate(time.Millisecond)
	if err := draft.Validate(); err != nil {
		return err
	}

	if _, err := r.collection.InsertOne(ctx, draft); err != nil {
		return fmt.Errorf("failed to insert draft: %w", err)
	}
	return nil
}

// ListByOwner implements repositories.DraftRepository
func (r *DraftRepository) ListByOwner(ctx context.Context, ownerID string) ([]*entities.DraftDocument, error) {
	if ownerID == "" {
		return nil, errors.New("owner ID cannot be empty")
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find drafts: %w", err)
	}
	defer cursor.Close(ctx)

	drafts := []*entities.DraftDocument{}
	if err := cursor.All(ctx, &drafts); err != nil {
		return nil, fmt.Errorf("failed to decode drafts: %w", err)
	}
	return drafts, nil
}

// UpdateContent implements repositories.DraftRepository
func (r *DraftRepository) UpdateContent(ctx context.Context, ownerID, draftID, content string) error {
	filter := bson.M{"_id": draftID, "owner_id": ownerID}
	update := bson.M{"$set": bson.M{"content": content}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update draft: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrDraftNotFound
	}
	return nil
}
