package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"pagebot-core-console/internal/domain"
	"pagebot-core-console/internal/ports"

	"github.com/rs/zerolog"
)

// IdentityGateway turns a provider login into a backend session and keeps the page list.
// A session becomes visible only after both the provider login and the token exchange succeed.
type IdentityGateway struct {
	provider ports.IdentityProvider
	backend  ports.BackendClient
	timeout  time.Duration
	logger   zerolog.Logger

	mu            sync.RWMutex
	session       *domain.Session
	providerToken string
	pages         []domain.PageAsset
	generation    uint64
}

// NewIdentityGateway creates a gateway with no session
func NewIdentityGateway(
	provider ports.IdentityProvider,
	backend ports.BackendClient,
	timeout time.Duration,
	logger zerolog.Logger,
) *IdentityGateway {
	return &IdentityGateway{
		provider: provider,
		backend:  backend,
		timeout:  timeout,
		logger:   logger,
	}
}

// Login authenticates with the provider, exchanges the provider token for a backend
// bearer token and installs the resulting session. No retries.
func (g *IdentityGateway) Login(ctx context.Context, cred ports.ProviderCredential) (*domain.Session, error) {
	if cred.AccessToken == "" && cred.Code == "" {
		return nil, domain.Errorf(domain.KindProviderLoginFailed, "", "no provider credential given")
	}

	login, err := g.providerLogin(ctx, cred)
	if err != nil {
		loginsTotal.WithLabelValues(outcomeLabel(err)).Inc()
		g.logger.Warn().Err(err).Msg("Provider login failed")
		return nil, err
	}

	bearer, err := g.exchange(ctx, login.AccessToken)
	if err != nil {
		loginsTotal.WithLabelValues(outcomeLabel(err)).Inc()
		g.logger.Error().
			Err(err).
			Str("userId", login.UserID).
			Msg("Failed to exchange provider token, no session created")
		return nil, err
	}

	session := &domain.Session{
		UserID:      login.UserID,
		DisplayName: login.Name,
		Email:       login.Email,
		BearerToken: bearer,
	}
	pages := domain.UniquePages(login.Pages)

	g.mu.Lock()
	g.generation++
	session.Generation = g.generation
	g.session = session
	g.providerToken = login.AccessToken
	g.pages = pages
	g.mu.Unlock()

	loginsTotal.WithLabelValues("success").Inc()
	g.logger.Info().
		Str("userId", session.UserID).
		Str("name", session.DisplayName).
		Int("pages", len(pages)).
		Msg("Operator logged in")

	cp := *session
	return &cp, nil
}

func (g *IdentityGateway) providerLogin(ctx context.Context, cred ports.ProviderCredential) (*domain.ProviderLogin, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	login, err := g.provider.Login(ctx, cred)
	if err != nil {
		return nil, domain.Classify(domain.KindProviderLoginFailed, "", err)
	}
	if login == nil || login.AccessToken == "" || login.UserID == "" {
		return nil, domain.Errorf(domain.KindProviderLoginFailed, "", "provider returned an incomplete profile")
	}
	return login, nil
}

func (g *IdentityGateway) exchange(ctx context.Context, providerToken string) (string, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	bearer, err := g.backend.ExchangeToken(ctx, providerToken)
	if err != nil {
		return "", domain.Classify(domain.KindSessionExchangeFailed, "", err)
	}
	if bearer == "" {
		return "", domain.NewError(domain.KindSessionExchangeFailed, "", errors.New("backend returned an empty token"))
	}
	return bearer, nil
}

// Session returns a copy of the current session
func (g *IdentityGateway) Session() (domain.Session, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.session == nil {
		return domain.Session{}, domain.ErrNoSession
	}
	return *g.session, nil
}

// Pages returns the page list in provider order
func (g *IdentityGateway) Pages() ([]domain.PageAsset, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.session == nil {
		return nil, domain.ErrNoSession
	}
	out := make([]domain.PageAsset, len(g.pages))
	copy(out, g.pages)
	return out, nil
}

// Page returns one page asset
func (g *IdentityGateway) Page(pageID string) (domain.PageAsset, error) {
	pages, err := g.Pages()
	if err != nil {
		return domain.PageAsset{}, err
	}
	for _, p := range pages {
		if p.PageID == pageID {
			return p, nil
		}
	}
	return domain.PageAsset{}, domain.Errorf(domain.KindUnknownPage, pageID, "page is not granted to this session")
}

// ReloadPages re-fetches the page list with the provider token kept from login.
func (g *IdentityGateway) ReloadPages(ctx context.Context) ([]domain.PageAsset, error) {
	g.mu.RLock()
	hasSession := g.session != nil
	token := g.providerToken
	g.mu.RUnlock()
	if !hasSession {
		return nil, domain.ErrNoSession
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	pages, err := g.provider.ListPages(ctx, token)
	if err != nil {
		err = domain.Classify(domain.KindFetchError, "", err)
		g.logger.Error().Err(err).Msg("Failed to reload provider pages")
		return nil, err
	}
	pages = domain.UniquePages(pages)

	g.mu.Lock()
	if g.session == nil || g.providerToken != token {
		g.mu.Unlock()
		return nil, domain.ErrNoSession
	}
	g.pages = pages
	g.mu.Unlock()

	g.logger.Info().Int("pages", len(pages)).Msg("Provider pages reloaded")
	out := make([]domain.PageAsset, len(pages))
	copy(out, pages)
	return out, nil
}

// Logout drops the session and page list
func (g *IdentityGateway) Logout() {
	g.mu.Lock()
	g.session = nil
	g.providerToken = ""
	g.pages = nil
	g.mu.Unlock()
}

func (g *IdentityGateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}
