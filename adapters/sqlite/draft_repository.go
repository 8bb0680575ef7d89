package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/satriahrh/firdraft/domain"
	"github.com/satriahrh/firdraft/domain/entities"
	"github.com/satriahrh/firdraft/domain/repositories"
)

const schema = `
CREATE TABLE IF NOT EXISTS drafts (
	id         TEXT PRIMARY KEY,
	owner_id   TEXT NOT NULL,
	content    TEXT NOT NULL,
	title      TEXT NOT NULL,
	lang       TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_drafts_owner_created ON drafts(owner_id, created_at DESC);
`

// DraftRepository is a single-file draft store for local and offline use
type DraftRepository struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

var _ repositories.DraftRepository = (*DraftRepository)(nil)

// Open opens (or creates) the database at path and applies the schema
func Open(path string) (*DraftRepository, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	// WAL lets the dashboard read while a save is in flight
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &DraftRepository{db: db, path: path, now: time.Now}, nil
}

// Close closes the database connection.
func (r *DraftRepository) Close() error {
	return r.db.Close()
}

// Path returns the database file path.
func (r *DraftRepository) Path() string {
	return r.path
}

// Create implements repositories.DraftRepository
func (r *DraftRepository) Create(ctx context.Context, draft *entities.DraftDocument) error {
	if draft == nil {
		return errors.New("draft cannot be nil")
	}

	draft.CreatedAt = r.now().UTC().Truncate(time.Millisecond)
	if err := draft.Validate(); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO drafts (id, owner_id, content, title, lang, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, draft.ID, draft.OwnerID, draft.Content, draft.Title, string(draft.Language), draft.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert draft: %w", err)
	}
	return nil
}

// ListByOwner implements repositories.DraftRepository
func (r *DraftRepository) ListByOwner(ctx context.Context, ownerID string) ([]*entities.DraftDocument, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, content, title, lang, created_at
		FROM drafts
		WHERE owner_id = ?
		ORDER BY created_at DESC, id DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query drafts: %w", err)
	}
	defer rows.Close()

	drafts := []*entities.DraftDocument{}
	for rows.Next() {
		var d entities.DraftDocument
		var lang string
		var createdAt int64
		if err := rows.Scan(&d.ID, &d.OwnerID, &d.Content, &d.Title, &lang, &createdAt); err != nil {
			return nil, fmt.Errorf("scan draft: %w", err)
		}
		d.Language = entities.Language(lang)
		d.CreatedAt = time.UnixMilli(createdAt).UTC()
		drafts = append(drafts, &d)
	}
	return drafts, rows.Err()
}

// UpdateContent implements repositories.DraftRepository
func (r *DraftRepository) UpdateContent(ctx context.Context, ownerID, draftID, content string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE drafts SET content = ? WHERE id = ? AND owner_id = ?`,
		content, draftID, ownerID)
	if err != nil {
		return fmt.Errorf("update draft: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update draft: %w", err)
	}
	if affected == 0 {
		return domain.ErrDraftNotFound
	}
	return nil
}
