package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"pagebot-core-console/internal/infrastructure/pubsub"
)

const keepAliveInterval = 25 * time.Second

// handleEvents streams page events as Server-Sent Events
func (c *Console) handleEvents(w http.ResponseWriter, r *http.Request) {
	if c.events == nil {
		http.Error(w, "event stream disabled", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		c.logger.Warn().Err(err).Msg("Streaming not supported by response writer")
		return
	}

	sub := c.events.Subscribe(r.Context(), pubsub.PageEventFilter{PageID: r.URL.Query().Get("pageId")})
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			_ = rc.Flush()
		case event, ok := <-sub.Events:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				c.logger.Error().Err(err).Msg("Failed to encode page event")
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			_ = rc.Flush()
		}
	}
}
