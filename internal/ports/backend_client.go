package ports

import (
	"context"

	"pagebot-core-console/internal/domain"
)

// InstallRequest is the body of the install call
type InstallRequest struct {
	PageAccessToken string `json:"page_access_token"`
	PageID          string `json:"page_id"`
	UserID          string `json:"user_id"`
}

// SaveConfigRequest is the body of the save-config call
type SaveConfigRequest struct {
	PageWebhookURL string `json:"page_webhook_url"`
	PageID         string `json:"page_id"`
	Location       string `json:"location"`
	Field          string `json:"field"`
	ShopLink       string `json:"shop_link"`
}

// SaveConfigResponse carries the token echoed by the backend
type SaveConfigResponse struct {
	Token string `json:"token"`
}

// BackendClient defines the backend REST surface.
// Every authenticated call takes the session explicitly; no credential is kept between calls.
type BackendClient interface {
	// ExchangeToken trades a provider access token for a backend bearer token
	ExchangeToken(ctx context.Context, providerAccessToken string) (string, error)

	// ListConfigs returns the configuration records known for the session user
	ListConfigs(ctx context.Context, session domain.Session) ([]domain.ConfigRecord, error)

	// InstallPage associates a page with the backend
	InstallPage(ctx context.Context, session domain.Session, req InstallRequest) error

	// SaveConfig persists the four page settings
	SaveConfig(ctx context.Context, session domain.Session, req SaveConfigRequest) (*SaveConfigResponse, error)
}
