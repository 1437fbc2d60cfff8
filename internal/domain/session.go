package domain

// Session represents an authenticated operator session.
// It is created once the provider login and the backend token exchange both succeed.
type Session struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	BearerToken string `json:"-"` // Backend credential, attached per call
	Generation  uint64 `json:"-"` // Login counter; a later login makes older sessions stale
}

// ProviderLogin is what the identity provider hands back after a successful login
type ProviderLogin struct {
	AccessToken string
	UserID      string
	Name        string
	Email       string
	Pages       []PageAsset
}
