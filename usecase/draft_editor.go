package usecase

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/firdraft/domain"
	"github.com/satriahrh/firdraft/domain/entities"
)

const defaultConfirmDelay = 1500 * time.Millisecond

// EditorEvents receives draft list and edit notifications.
// Like CaptureEvents, implementations run under the editor lock.
type EditorEvents interface {
	DraftsChanged(drafts []entities.DraftDocument)
	EditorChanged(snapshot entities.EditorSnapshot)
}

// DraftEditor tracks the dashboard list, the selected draft and its edit buffer
type DraftEditor struct {
	store        *DraftStore
	events       EditorEvents
	confirmDelay time.Duration
	logger       *zap.Logger

	mu           sync.Mutex
	ownerID      string
	drafts       []entities.DraftDocument
	selectedID   string
	selected     *entities.DraftDocument
	editing      bool
	editText     string
	updateStatus entities.UpdateStatus
	// bumped whenever the selection or edit session changes, so late
	// confirmations and update results do not touch a newer selection
	generation   uint64
	confirmTimer *time.Timer
}

// NewDraftEditor creates an editor; a zero confirmDelay uses 1.5s
func NewDraftEditor(store *DraftStore, events EditorEvents, confirmDelay time.Duration, logger *zap.Logger) *DraftEditor {
	if confirmDelay <= 0 {
		confirmDelay = defaultConfirmDelay
	}
	return &DraftEditor{
		store:        store,
		events:       events,
		confirmDelay: confirmDelay,
		logger:       logger,
	}
}

// Refresh refetches the full draft list for the current owner
func (e *DraftEditor) Refresh(ctx context.Context) ([]entities.DraftDocument, error) {
	e.mu.Lock()
	ownerID := e.ownerID
	e.mu.Unlock()

	if ownerID == "" {
		return nil, domain.ErrNoIdentity
	}

	drafts, err := e.store.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if ownerID != e.ownerID {
		return nil, domain.ErrNoIdentity
	}
	e.drafts = drafts
	e.events.DraftsChanged(e.copyDraftsLocked())
	return e.copyDraftsLocked(), nil
}

// Drafts returns the current list view
func (e *DraftEditor) Drafts() []entities.DraftDocument {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.copyDraftsLocked()
}

// Select opens a draft from the list; any unsaved edit is discarded
func (e *DraftEditor) Select(draftID string) (entities.DraftDocument, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, d := range e.drafts {
		if d.ID != draftID {
			continue
		}
		selected := d
		e.stopConfirmLocked()
		e.generation++
		e.selectedID = draftID
		e.selected = &selected
		e.editing = false
		e.editText = selected.Content
		e.updateStatus = entities.UpdateStatusNone
		e.events.EditorChanged(e.snapshotLocked())
		return selected, nil
	}
	return entities.DraftDocument{}, domain.ErrDraftNotFound
}

// Close goes back to the list, discarding any unsaved edit
func (e *DraftEditor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clearSelectionLocked()
	e.events.EditorChanged(e.snapshotLocked())
}

// BeginEdit snapshots the selected content into the edit buffer
func (e *DraftEditor) BeginEdit() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.selected == nil {
		return domain.ErrNoSelection
	}
	e.stopConfirmLocked()
	e.generation++
	e.editing = true
	e.editText = e.selected.Content
	e.updateStatus = entities.UpdateStatusNone
	e.events.EditorChanged(e.snapshotLocked())
	return nil
}

// ToggleEdit flips edit mode like the dashboard's edit button
func (e *DraftEditor) ToggleEdit() error {
	e.mu.Lock()
	editing := e.editing
	hasSelection := e.selected != nil
	e.mu.Unlock()

	if !hasSelection {
		return domain.ErrNoSelection
	}
	if !editing {
		return e.BeginEdit()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopConfirmLocked()
	e.generation++
	e.editing = false
	e.updateStatus = entities.UpdateStatusNone
	e.events.EditorChanged(e.snapshotLocked())
	return nil
}

// SetEditText replaces the edit buffer
func (e *DraftEditor) SetEditText(text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.selected == nil {
		return domain.ErrNoSelection
	}
	if !e.editing {
		return domain.ErrNotEditing
	}
	e.editText = text
	return nil
}

// SaveEdit writes the edit buffer. The in-memory content changes only after
// the store confirms the update.
func (e *DraftEditor) SaveEdit(ctx context.Context) error {
	e.mu.Lock()
	if e.selected == nil {
		e.mu.Unlock()
		return domain.ErrNoSelection
	}
	if !e.editing {
		e.mu.Unlock()
		return domain.ErrNotEditing
	}
	ownerID, draftID, text, generation := e.ownerID, e.selectedID, e.editText, e.generation
	e.updateStatus = entities.UpdateStatusUpdating
	e.events.EditorChanged(e.snapshotLocked())
	e.mu.Unlock()

	err := e.store.UpdateContent(ctx, ownerID, draftID, text)

	e.mu.Lock()
	if generation != e.generation {
		e.mu.Unlock()
		return err
	}
	if err != nil {
		e.updateStatus = entities.UpdateStatusFailed
		e.events.EditorChanged(e.snapshotLocked())
		e.mu.Unlock()
		return err
	}

	e.selected.Content = text
	e.updateStatus = entities.UpdateStatusUpdated
	e.events.EditorChanged(e.snapshotLocked())
	e.confirmTimer = time.AfterFunc(e.confirmDelay, func() {
		e.finishEdit(generation)
	})
	e.mu.Unlock()

	// The list view is rebuilt by refetching rather than patching.
	if _, err := e.Refresh(ctx); err != nil {
		e.logger.Warn("Failed to refresh drafts after update",
			zap.String("ownerID", ownerID),
			zap.Error(err))
	}
	return nil
}

// Snapshot returns a copy of the selection and edit state
func (e *DraftEditor) Snapshot() entities.EditorSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Reset clears everything for a new identity; an empty ownerID means signed out
func (e *DraftEditor) Reset(ownerID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ownerID = ownerID
	e.drafts = nil
	e.clearSelectionLocked()
	e.events.DraftsChanged(nil)
	e.events.EditorChanged(e.snapshotLocked())
}

func (e *DraftEditor) finishEdit(generation uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if generation != e.generation {
		return
	}
	e.confirmTimer = nil
	e.generation++
	e.editing = false
	e.updateStatus = entities.UpdateStatusNone
	e.events.EditorChanged(e.snapshotLocked())
}

func (e *DraftEditor) clearSelectionLocked() {
	e.stopConfirmLocked()
	e.generation++
	e.selectedID = ""
	e.selected = nil
	e.editing = false
	e.editText = ""
	e.updateStatus = entities.UpdateStatusNone
}

func (e *DraftEditor) stopConfirmLocked() {
	if e.confirmTimer != nil {
		e.confirmTimer.Stop()
		e.confirmTimer = nil
	}
}

func (e *DraftEditor) copyDraftsLocked() []entities.DraftDocument {
	out := make([]entities.DraftDocument, len(e.drafts))
	copy(out, e.drafts)
	return out
}

func (e *DraftEditor) snapshotLocked() entities.EditorSnapshot {
	snapshot := entities.EditorSnapshot{
		Editing:      e.editing,
		EditText:     e.editText,
		UpdateStatus: e.updateStatus,
	}
	if e.selected != nil {
		selected := *e.selected
		snapshot.Selected = &selected
	}
	return snapshot
}
