package repositories

// Identity is the authenticated user as issued by the identity provider
type Identity struct {
	UserID string
	Email  string
}

// IdentityProvider exposes the current identity and its changes
type IdentityProvider interface {
	// Current returns the signed-in identity, if any
	Current() (Identity, bool)
	// Subscribe registers fn for sign-in and sign-out changes
	Subscribe(fn func(id Identity, signedIn bool)) (unsubscribe func())
	SignOut()
}
