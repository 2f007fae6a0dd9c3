package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/koios/lockscreenr/internal/render"
	"go.uber.org/zap"
)

// ViewEvent is the server-sent event name carrying a fresh view model
const ViewEvent = "view"

// handleStream handles GET /sessions/{id}/stream. It pushes the view once on
// connect, after every config or passcode change, and on every clock tick.
// The ticker is stopped when the client goes away.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, r, fmt.Errorf("streaming unsupported"))
		return
	}

	// streams outlive the server write timeout
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	ctx := r.Context()
	changes, cancel := s.Watch()
	defer cancel()

	ticks := make(chan struct{}, 1)
	ticker := render.NewTicker(h.clockInterval, func(time.Time) {
		select {
		case ticks <- struct{}{}:
		default:
		}
	})
	ticker.Start(ctx)
	defer ticker.Stop()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	h.logger.Debug("Stream opened", zap.String("session_id", s.ID))
	defer h.logger.Debug("Stream closed", zap.String("session_id", s.ID))

	for {
		if err := writeEvent(w, ViewEvent, s.View(h.now())); err != nil {
			h.logger.Debug("Stream write failed", zap.String("session_id", s.ID), zap.Error(err))
			return
		}
		flusher.Flush()

		select {
		case <-ctx.Done():
			return
		case <-changes:
		case <-ticks:
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event, err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
