package ports

import (
	"context"

	"pagebot-core-console/internal/domain"
)

// ProviderCredential is what the operator hands to the identity provider.
// Exactly one of AccessToken (token already obtained client-side) or Code (OAuth redirect) is set.
type ProviderCredential struct {
	AccessToken string
	Code        string
}

// IdentityProvider defines the identity-provider collaborator
type IdentityProvider interface {
	// Login resolves a credential into the operator profile and the pages it administers
	Login(ctx context.Context, cred ProviderCredential) (*domain.ProviderLogin, error)

	// ListPages re-fetches the pages granted to a provider access token
	ListPages(ctx context.Context, accessToken string) ([]domain.PageAsset, error)
}
