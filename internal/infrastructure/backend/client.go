package backend

import (
	"context"
	"fmt"
	"time"

	"pagebot-core-console/internal/domain"
	"pagebot-core-console/internal/ports"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	exchangePath = "auth/facebook"
	listPath     = "getWebhooks"
	installPath  = "add_page_info"
	savePath     = "set_webhook_url"
)

// Client implements ports.BackendClient over the backend REST API.
// The bearer token is taken from the session passed to each call; the underlying
// resty client carries no credential.
type Client struct {
	http   *resty.Client
	logger zerolog.Logger
}

// NewClient creates a backend client rooted at baseURL
func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "pagebot-console/1.0")
	if timeout > 0 {
		http.SetTimeout(timeout)
	}
	return &Client{http: http, logger: logger}
}

type exchangeRequest struct {
	AccessToken string `json:"access_token"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// configRecordWire is a record as the backend sends it
type configRecordWire struct {
	PageID   string `json:"page_id"`
	Webhook  string `json:"webhook"`
	Location string `json:"location"`
	Field    string `json:"field"`
	ShopLink string `json:"shop_link"`
}

func (w configRecordWire) toDomain() domain.ConfigRecord {
	return domain.ConfigRecord{
		PageID: w.PageID,
		PageFields: domain.PageFields{
			WebhookURL: w.Webhook,
			ShopLink:   w.ShopLink,
			Field:      w.Field,
			Location:   w.Location,
		},
	}
}

type listResponse struct {
	Pages []configRecordWire `json:"pages"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (e *errorResponse) text() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// ExchangeToken trades a provider access token for a backend bearer token
func (c *Client) ExchangeToken(ctx context.Context, providerAccessToken string) (string, error) {
	var out tokenResponse
	resp, err := c.request(ctx).
		SetBody(exchangeRequest{AccessToken: providerAccessToken}).
		SetResult(&out).
		Post(exchangePath)
	if err := c.check(resp, err, "exchange provider token"); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", fmt.Errorf("failed to exchange provider token: response carries no token")
	}
	return out.Token, nil
}

// ListConfigs returns the configuration records of the session user
func (c *Client) ListConfigs(ctx context.Context, session domain.Session) ([]domain.ConfigRecord, error) {
	var out listResponse
	resp, err := c.authorized(ctx, session).
		SetQueryParam("userId", session.UserID).
		SetResult(&out).
		Get(listPath)
	if err := c.check(resp, err, "list page configs"); err != nil {
		return nil, err
	}

	records := make([]domain.ConfigRecord, 0, len(out.Pages))
	for _, p := range out.Pages {
		records = append(records, p.toDomain())
	}
	return records, nil
}

// InstallPage associates a page with the backend
func (c *Client) InstallPage(ctx context.Context, session domain.Session, req ports.InstallRequest) error {
	resp, err := c.authorized(ctx, session).
		SetBody(req).
		Post(installPath)
	return c.check(resp, err, "install page")
}

// SaveConfig persists the four page settings
func (c *Client) SaveConfig(ctx context.Context, session domain.Session, req ports.SaveConfigRequest) (*ports.SaveConfigResponse, error) {
	var out tokenResponse
	resp, err := c.authorized(ctx, session).
		SetBody(req).
		SetResult(&out).
		Post(savePath)
	if err := c.check(resp, err, "save page config"); err != nil {
		return nil, err
	}
	return &ports.SaveConfigResponse{Token: out.Token}, nil
}

func (c *Client) request(ctx context.Context) *resty.Request {
	requestID := domain.GetCommandIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return c.http.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", requestID).
		SetError(&errorResponse{})
}

func (c *Client) authorized(ctx context.Context, session domain.Session) *resty.Request {
	return c.request(ctx).SetAuthToken(session.BearerToken)
}

func (c *Client) check(resp *resty.Response, err error, action string) error {
	if err != nil {
		return fmt.Errorf("failed to %s: %w", action, err)
	}
	if resp.IsError() {
		detail := resp.String()
		if e, ok := resp.Error().(*errorResponse); ok && e.text() != "" {
			detail = e.text()
		}
		c.logger.Debug().
			Int("status", resp.StatusCode()).
			Str("url", resp.Request.URL).
			Msg("Backend returned an error status")
		return fmt.Errorf("failed to %s: backend returned %d: %s", action, resp.StatusCode(), detail)
	}
	return nil
}
