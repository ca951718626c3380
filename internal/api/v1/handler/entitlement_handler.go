package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"vidiooh/internal/api/v1/dto"
	"vidiooh/internal/middleware"
	"vidiooh/internal/watch"

	"github.com/rs/zerolog"
)

// EntitlementHandler exposes the resolved plan snapshot and a realtime
// event stream of entitlement transitions.
type EntitlementHandler struct {
	watcher *watch.Watcher
	logger  zerolog.Logger
}

// NewEntitlementHandler creates a new EntitlementHandler.
func NewEntitlementHandler(watcher *watch.Watcher, logger zerolog.Logger) *EntitlementHandler {
	return &EntitlementHandler{watcher: watcher, logger: logger}
}

// RegisterRoutes mounts entitlement routes
func (h *EntitlementHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/entitlement", authMw(http.HandlerFunc(h.getEntitlement)))
	mux.Handle("/entitlement/events", authMw(http.HandlerFunc(h.streamEvents)))
}

// getEntitlement godoc
// @Summary Get the resolved entitlement
// @Description Resolves the account's plan, status, limits, and watcher state. Expired plans are downgraded as a side effect.
// @Tags entitlement
// @Produce json
// @Success 200 {object} dto.EntitlementResponseDTO
// @Failure 401 {string} string "unauthorized"
// @Failure 503 {string} string "entitlement unavailable"
// @Router /entitlement [get]
func (h *EntitlementHandler) getEntitlement(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	accountID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || accountID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	ent, state, err := h.watcher.Check(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.EntitlementResponseDTO{
		AccountID:          ent.AccountID,
		Plan:               string(ent.Plan),
		Status:             string(ent.Status),
		State:              string(state),
		ExpiresAt:          ent.ExpiresAt,
		TeamID:             ent.TeamID,
		MonthlyConversions: ent.Limits.MonthlyConversions,
		MaxFileBytes:       ent.Limits.MaxFileBytes,
		MaxFormats:         ent.Limits.MaxFormats,
		HistoryDays:        ent.Limits.HistoryDays,
		ResolvedAt:         ent.ResolvedAt,
	})
}

// streamEvents godoc
// @Summary Stream entitlement events
// @Description Server-sent events for ban, reinstatement, and expiry transitions on the caller's account.
// @Tags entitlement
// @Produce text/event-stream
// @Success 200 {string} string "event stream"
// @Failure 401 {string} string "unauthorized"
// @Router /entitlement/events [get]
func (h *EntitlementHandler) streamEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	accountID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || accountID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events := h.watcher.Subscribe(r.Context(), accountID)
	h.logger.Debug().Str("account_id", accountID).Msg("Entitlement event stream opened")

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, payload)
			flusher.Flush()
		}
	}
}
