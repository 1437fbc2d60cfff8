package facebook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pagebot-core-console/internal/domain"
	"pagebot-core-console/internal/ports"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	fboauth "golang.org/x/oauth2/facebook"
)

// DefaultScopes are the permissions asked for during the OAuth login
var DefaultScopes = []string{"public_profile", "email", "pages_show_list"}

const maxAccountPages = 20

// Config holds the Graph API settings
type Config struct {
	GraphURL    string
	AppID       string
	AppSecret   string
	RedirectURL string
	Timeout     time.Duration
	Endpoint    oauth2.Endpoint // zero value means the Facebook endpoint
}

// Provider implements ports.IdentityProvider against the Graph API
type Provider struct {
	http   *resty.Client
	oauth  *oauth2.Config
	logger zerolog.Logger
}

// NewProvider creates a Graph API provider
func NewProvider(cfg Config, logger zerolog.Logger) *Provider {
	http := resty.New().
		SetBaseURL(cfg.GraphURL).
		SetHeader("Accept", "application/json").
		SetError(&graphErrorResponse{})
	if cfg.Timeout > 0 {
		http.SetTimeout(cfg.Timeout)
	}

	endpoint := cfg.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = fboauth.Endpoint
	}

	return &Provider{
		http: http,
		oauth: &oauth2.Config{
			ClientID:     cfg.AppID,
			ClientSecret: cfg.AppSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       DefaultScopes,
			Endpoint:     endpoint,
		},
		logger: logger,
	}
}

type graphAccount struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccessToken string `json:"access_token"`
}

type graphPaging struct {
	Next string `json:"next"`
}

type graphAccounts struct {
	Data   []graphAccount `json:"data"`
	Paging graphPaging    `json:"paging"`
}

type graphProfile struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Email    string        `json:"email"`
	Accounts graphAccounts `json:"accounts"`
}

type graphErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// AuthCodeURL returns the provider login URL for an OAuth state
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Login resolves a credential into the operator profile and pages
func (p *Provider) Login(ctx context.Context, cred ports.ProviderCredential) (*domain.ProviderLogin, error) {
	accessToken := cred.AccessToken
	if accessToken == "" {
		if cred.Code == "" {
			return nil, errors.New("failed to login: no access token or code")
		}
		token, err := p.oauth.Exchange(p.oauthContext(ctx), cred.Code)
		if err != nil {
			return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
		}
		accessToken = token.AccessToken
	}

	var profile graphProfile
	resp, err := p.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"fields":       "id,name,email,accounts{id,name,access_token}",
			"access_token": accessToken,
		}).
		SetResult(&profile).
		Get("me")
	if err := check(resp, err, "fetch provider profile"); err != nil {
		return nil, err
	}
	if profile.ID == "" {
		return nil, errors.New("failed to fetch provider profile: response carries no id")
	}

	pages := toAssets(profile.Accounts.Data)
	if profile.Accounts.Paging.Next != "" {
		more, err := p.follow(ctx, profile.Accounts.Paging.Next)
		if err != nil {
			return nil, err
		}
		pages = append(pages, more...)
	}

	p.logger.Debug().
		Str("userId", profile.ID).
		Int("pages", len(pages)).
		Msg("Provider profile fetched")

	return &domain.ProviderLogin{
		AccessToken: accessToken,
		UserID:      profile.ID,
		Name:        profile.Name,
		Email:       profile.Email,
		Pages:       pages,
	}, nil
}

// ListPages re-fetches the pages granted to an access token
func (p *Provider) ListPages(ctx context.Context, accessToken string) ([]domain.PageAsset, error) {
	var accounts graphAccounts
	resp, err := p.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"fields":       "id,name,access_token",
			"access_token": accessToken,
		}).
		SetResult(&accounts).
		Get("me/accounts")
	if err := check(resp, err, "list provider pages"); err != nil {
		return nil, err
	}

	pages := toAssets(accounts.Data)
	if accounts.Paging.Next != "" {
		more, err := p.follow(ctx, accounts.Paging.Next)
		if err != nil {
			return nil, err
		}
		pages = append(pages, more...)
	}
	return pages, nil
}

// follow walks paging.next links, which already carry the access token
func (p *Provider) follow(ctx context.Context, next string) ([]domain.PageAsset, error) {
	var pages []domain.PageAsset
	for i := 0; next != "" && i < maxAccountPages; i++ {
		var accounts graphAccounts
		resp, err := p.http.R().
			SetContext(ctx).
			SetResult(&accounts).
			Get(next)
		if err := check(resp, err, "follow provider page list"); err != nil {
			return nil, err
		}
		pages = append(pages, toAssets(accounts.Data)...)
		next = accounts.Paging.Next
	}
	if next != "" {
		p.logger.Warn().Int("limit", maxAccountPages).Msg("Provider page list truncated")
	}
	return pages, nil
}

func (p *Provider) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.http.GetClient())
}

func toAssets(accounts []graphAccount) []domain.PageAsset {
	out := make([]domain.PageAsset, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, domain.PageAsset{
			PageID:          a.ID,
			Name:            a.Name,
			PageAccessToken: a.AccessToken,
		})
	}
	return out
}

func check(resp *resty.Response, err error, action string) error {
	if err != nil {
		return fmt.Errorf("failed to %s: %w", action, err)
	}
	if resp.IsError() {
		if e, ok := resp.Error().(*graphErrorResponse); ok && e.Error.Message != "" {
			return fmt.Errorf("failed to %s: graph api %d (code %d): %s", action, resp.StatusCode(), e.Error.Code, e.Error.Message)
		}
		return fmt.Errorf("failed to %s: graph api returned %d", action, resp.StatusCode())
	}
	return nil
}
