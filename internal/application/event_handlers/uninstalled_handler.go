package event_handlers

import (
	"context"

	"pagebot-core-console/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var pagesUninstalledTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "pagebot_pages_uninstalled_total",
	Help: "Pages that disappeared from the backend between two refreshes.",
})

// UninstalledHandler reports pages the backend no longer lists
type UninstalledHandler struct {
	logger zerolog.Logger
}

// NewUninstalledHandler creates a new uninstalled handler
func NewUninstalledHandler(logger zerolog.Logger) *UninstalledHandler {
	return &UninstalledHandler{logger: logger}
}

// CanHandle returns true for page.uninstalled
func (h *UninstalledHandler) CanHandle(eventType domain.PageEventType) bool {
	return eventType == domain.EventPageUninstalled
}

// Handle logs and counts a server-side removal. Drafts of the page are left alone.
func (h *UninstalledHandler) Handle(ctx context.Context, event *domain.PageEvent) error {
	pagesUninstalledTotal.Inc()
	h.logger.Warn().
		Str("pageId", event.PageID).
		Str("userId", event.UserID).
		Msg("Page no longer installed on the backend")
	return nil
}
