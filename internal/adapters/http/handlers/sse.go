package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/observahq/observa/internal/application/services"
)

type SSEHandler struct {
	runs        *services.RunOrchestrator
	broadcaster *SSEBroadcaster
}

func NewSSEHandler(runs *services.RunOrchestrator, broadcaster *SSEBroadcaster) *SSEHandler {
	return &SSEHandler{
		runs:        runs,
		broadcaster: broadcaster,
	}
}

// StreamEvents handles GET /api/v1/runs/{id}/events
// Establishes SSE connection for real-time run progress updates
func (h *SSEHandler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	runID, ok := validateURLParam(r, w, "id", "Run ID")
	if !ok {
		return
	}

	if _, err := h.runs.GetRun(r.Context(), runID); err != nil {
		respondDomainError(w, err)
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable buffering for nginx

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, "internal_error", "Streaming not supported", http.StatusInternalServerError)
		return
	}

	eventChan := h.broadcaster.Subscribe(runID)
	defer h.broadcaster.Unsubscribe(runID, eventChan)

	// Send initial connection event
	fmt.Fprintf(w, "data: {\"type\":\"connected\",\"run_id\":\"%s\"}\n\n", runID)
	flusher.Flush()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Keepalive pings prevent proxies from timing out idle streams
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("SSE: Client disconnected from run %s", runID)
			return

		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if _, err := fmt.Fprint(w, event); err != nil {
				log.Printf("SSE: Error writing event: %v", err)
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
				log.Printf("SSE: Error writing keepalive: %v", err)
				return
			}
			flusher.Flush()
		}
	}
}
