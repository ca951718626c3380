package handler

import (
	"encoding/json"
	"net/http"

	"vidiooh/internal/service"

	"github.com/rs/zerolog"
)

// pushEnvelope is the Pub/Sub push delivery wrapper.
type pushEnvelope struct {
	Message struct {
		MessageID string `json:"messageId"`
		Data      []byte `json:"data"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// CleanupHandler runs the retention sweep when Cloud Scheduler's Pub/Sub
// push arrives. Authentication happens in the push middleware.
type CleanupHandler struct {
	cleanup service.CleanupService
	logger  zerolog.Logger
}

// NewCleanupHandler creates a new CleanupHandler.
func NewCleanupHandler(cleanup service.CleanupService, logger zerolog.Logger) *CleanupHandler {
	return &CleanupHandler{cleanup: cleanup, logger: logger}
}

// RegisterRoutes mounts the internal cleanup route
func (h *CleanupHandler) RegisterRoutes(mux *http.ServeMux, pushAuthMw func(http.Handler) http.Handler) {
	mux.Handle("/internal/cleanup", pushAuthMw(http.HandlerFunc(h.runCleanup)))
}

func (h *CleanupHandler) runCleanup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var envelope pushEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		http.Error(w, "Invalid Pub/Sub message format", http.StatusBadRequest)
		return
	}
	if envelope.Message.MessageID == "" {
		http.Error(w, "Invalid Pub/Sub message format: missing message ID", http.StatusBadRequest)
		return
	}

	h.logger.Info().
		Str("messageId", envelope.Message.MessageID).
		Str("subscription", envelope.Subscription).
		Msg("Processing retention sweep trigger")

	removed, err := h.cleanup.Sweep(r.Context())
	if err != nil {
		// Return 204 anyway so Pub/Sub does not hammer retries; the next
		// scheduled trigger picks up where this one failed.
		h.logger.Error().Err(err).Msg("Retention sweep failed")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.logger.Info().Int("removed", removed).Msg("Retention sweep finished")
	w.WriteHeader(http.StatusNoContent)
}
