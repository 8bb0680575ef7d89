package usecase

import (
	"go.uber.org/zap"

	"github.com/satriahrh/firdraft/domain/repositories"
)

// Workspace is everything one signed-in surface works with: the recorder and
// the draft dashboard. It follows the identity provider and resets both on
// every sign-in or sign-out.
type Workspace struct {
	Capture *CaptureSession
	Editor  *DraftEditor

	identity    repositories.IdentityProvider
	unsubscribe func()
	logger      *zap.Logger
}

// NewWorkspace binds capture and editor to the identity provider
func NewWorkspace(identity repositories.IdentityProvider, capture *CaptureSession, editor *DraftEditor, logger *zap.Logger) *Workspace {
	w := &Workspace{
		Capture:  capture,
		Editor:   editor,
		identity: identity,
		logger:   logger,
	}

	if current, ok := identity.Current(); ok {
		w.apply(current.UserID)
	}
	w.unsubscribe = identity.Subscribe(func(id repositories.Identity, signedIn bool) {
		if signedIn {
			w.apply(id.UserID)
			return
		}
		w.apply("")
	})
	return w
}

// OwnerID returns the user the workspace currently belongs to
func (w *Workspace) OwnerID() string {
	if current, ok := w.identity.Current(); ok {
		return current.UserID
	}
	return ""
}

// SignOut signs the user out through the identity provider
func (w *Workspace) SignOut() {
	w.identity.SignOut()
}

// Close detaches from the identity provider and stops any live capture
func (w *Workspace) Close() {
	if w.unsubscribe != nil {
		w.unsubscribe()
		w.unsubscribe = nil
	}
	w.Capture.Reset("")
	w.Editor.Reset("")
}

func (w *Workspace) apply(ownerID string) {
	w.logger.Info("Workspace identity changed", zap.String("ownerID", ownerID))
	w.Capture.Reset(ownerID)
	w.Editor.Reset(ownerID)
}
