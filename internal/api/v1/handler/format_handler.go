package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"vidiooh/internal/api/v1/dto"
	"vidiooh/internal/middleware"
	"vidiooh/internal/model"
	"vidiooh/internal/service"
	"vidiooh/internal/watch"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// FormatHandler handles output format endpoints
type FormatHandler struct {
	formats  service.FormatService
	watcher  *watch.Watcher
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewFormatHandler creates a new FormatHandler
func NewFormatHandler(formats service.FormatService, watcher *watch.Watcher, validate *validator.Validate, logger zerolog.Logger) *FormatHandler {
	return &FormatHandler{formats: formats, watcher: watcher, validate: validate, logger: logger}
}

// RegisterRoutes mounts format routes
func (h *FormatHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/formats", authMw(http.HandlerFunc(h.handleFormats)))
	mux.Handle("/formats/", authMw(http.HandlerFunc(h.handleFormat)))
}

func (h *FormatHandler) handleFormats(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listFormats(w, r)
	case http.MethodPost:
		h.createFormat(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// listFormats godoc
// @Summary List output formats
// @Description Returns the built-in formats followed by the account's custom formats.
// @Tags formats
// @Produce json
// @Success 200 {array} dto.FormatResponseDTO
// @Failure 401 {string} string "unauthorized"
// @Router /formats [get]
func (h *FormatHandler) listFormats(w http.ResponseWriter, r *http.Request) {
	accountID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || accountID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	formats, err := h.formats.List(r.Context(), accountID)
	if err != nil {
		http.Error(w, "failed to list formats", http.StatusInternalServerError)
		return
	}
	builtins := make(map[string]bool, 4)
	for _, f := range model.DefaultFormats() {
		builtins[f.ID] = true
	}
	resp := make([]dto.FormatResponseDTO, 0, len(formats))
	for _, f := range formats {
		resp = append(resp, dto.FormatResponseDTO{
			ID:          f.ID,
			Label:       f.Label,
			Width:       f.Width,
			Height:      f.Height,
			Orientation: string(model.OrientationOf(f.Width, f.Height)),
			BuiltIn:     builtins[f.ID],
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// createFormat godoc
// @Summary Create a custom format
// @Description Creates a user-defined output geometry, subject to the plan's format ceiling.
// @Tags formats
// @Accept json
// @Produce json
// @Param format body dto.FormatCreateDTO true "Format creation request"
// @Success 201 {object} dto.FormatResponseDTO
// @Failure 400 {string} string "invalid payload"
// @Failure 401 {string} string "unauthorized"
// @Failure 409 {string} string "format limit reached"
// @Router /formats [post]
func (h *FormatHandler) createFormat(w http.ResponseWriter, r *http.Request) {
	accountID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || accountID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	var req dto.FormatCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	// Creation is limit-gated, so the caller's entitlement is resolved
	// here rather than trusted from the request.
	ent, _, err := h.watcher.Check(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	created, err := h.formats.Create(r.Context(), ent, req.Label, req.Width, req.Height)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.FormatResponseDTO{
		ID:          created.ID,
		Label:       created.Label,
		Width:       created.Width,
		Height:      created.Height,
		Orientation: string(created.Orientation()),
		CreatedAt:   &created.CreatedAt,
	})
}

// handleFormat dispatches /formats/{id} by method.
func (h *FormatHandler) handleFormat(w http.ResponseWriter, r *http.Request) {
	formatID := strings.TrimPrefix(r.URL.Path, "/formats/")
	if formatID == "" {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodPut:
		h.updateFormat(w, r, formatID)
	case http.MethodDelete:
		h.deleteFormat(w, r, formatID)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// updateFormat godoc
// @Summary Update a custom format
// @Description Updates a custom format owned by the caller. Built-in formats cannot be changed.
// @Tags formats
// @Accept json
// @Produce json
// @Param formatId path string true "Format ID"
// @Param format body dto.FormatUpdateDTO true "Format update request"
// @Success 200 {object} dto.FormatResponseDTO
// @Failure 400 {string} string "invalid payload"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "not found"
// @Router /formats/{formatId} [put]
func (h *FormatHandler) updateFormat(w http.ResponseWriter, r *http.Request, formatID string) {
	accountID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || accountID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	var req dto.FormatUpdateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	updated, err := h.formats.Update(r.Context(), accountID, formatID, req.Label, req.Width, req.Height)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FormatResponseDTO{
		ID:          updated.ID,
		Label:       updated.Label,
		Width:       updated.Width,
		Height:      updated.Height,
		Orientation: string(updated.Orientation()),
		CreatedAt:   &updated.CreatedAt,
	})
}

// deleteFormat godoc
// @Summary Delete a custom format
// @Description Deletes a custom format owned by the caller.
// @Tags formats
// @Param formatId path string true "Format ID"
// @Success 204 {string} string "deleted"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "not found"
// @Router /formats/{formatId} [delete]
func (h *FormatHandler) deleteFormat(w http.ResponseWriter, r *http.Request, formatID string) {
	accountID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || accountID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	if err := h.formats.Delete(r.Context(), accountID, formatID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
