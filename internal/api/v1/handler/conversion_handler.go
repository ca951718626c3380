package handler

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"vidiooh/internal/api/v1/dto"
	"vidiooh/internal/artifact"
	"vidiooh/internal/middleware"
	"vidiooh/internal/repository"
	"vidiooh/internal/service"
	"vidiooh/internal/watch"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// maxUploadMemory bounds how much of a multipart body is held in memory
// before spilling to disk. Uploads themselves are size-gated per plan.
const maxUploadMemory = 16 << 20

// ConversionHandler handles conversion submission and history endpoints.
type ConversionHandler struct {
	conversions service.ConversionService
	history     service.HistoryService
	quota       service.QuotaService
	watcher     *watch.Watcher
	artifacts   *artifact.Store
	validate    *validator.Validate
	logger      zerolog.Logger
}

// NewConversionHandler creates a new ConversionHandler.
func NewConversionHandler(
	conversions service.ConversionService,
	history service.HistoryService,
	quota service.QuotaService,
	watcher *watch.Watcher,
	artifacts *artifact.Store,
	validate *validator.Validate,
	logger zerolog.Logger,
) *ConversionHandler {
	return &ConversionHandler{
		conversions: conversions,
		history:     history,
		quota:       quota,
		watcher:     watcher,
		artifacts:   artifacts,
		validate:    validate,
		logger:      logger,
	}
}

// RegisterRoutes mounts conversion routes
func (h *ConversionHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/conversions", authMw(http.HandlerFunc(h.handleConversions)))
	mux.Handle("/conversions/", authMw(http.HandlerFunc(h.handleConversion)))
	mux.Handle("/usage", authMw(http.HandlerFunc(h.getUsage)))
}

func (h *ConversionHandler) handleConversions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createConversion(w, r)
	case http.MethodGet:
		h.listConversions(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// createConversion godoc
// @Summary Convert an uploaded video
// @Description Gates the request against the account's entitlement, then scales and re-encodes the uploaded clip to the chosen format and duration.
// @Tags conversions
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Source video"
// @Param format_id formData string true "Output format ID (built-in or custom)"
// @Param duration formData int true "Target duration in seconds (7-14)"
// @Param campaign_name formData string false "Campaign name used in the output filename"
// @Param persist formData bool false "Persist the artifact to object storage"
// @Success 201 {object} dto.ConversionResponseDTO
// @Failure 400 {string} string "invalid request"
// @Failure 403 {object} dto.ConversionDeniedDTO "account banned"
// @Failure 409 {object} dto.ConversionDeniedDTO "orientation mismatch"
// @Failure 413 {object} dto.ConversionDeniedDTO "file too large"
// @Failure 429 {object} dto.ConversionDeniedDTO "monthly limit reached"
// @Failure 503 {string} string "entitlement unavailable"
// @Router /conversions [post]
func (h *ConversionHandler) createConversion(w http.ResponseWriter, r *http.Request) {
	accountID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || accountID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	// Session check first: banned and expired accounts are turned away
	// before the upload is even parsed.
	ent, state, err := h.watcher.Check(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if state == watch.StateBanned {
		writeJSON(w, http.StatusForbidden, dto.ConversionDeniedDTO{Reason: "banned", Message: "account is banned"})
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		http.Error(w, "Invalid multipart payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	req := dto.ConversionRequestDTO{
		FormatID:     r.FormValue("format_id"),
		CampaignName: r.FormValue("campaign_name"),
		Persist:      r.FormValue("persist") == "true",
	}
	if d := r.FormValue("duration"); d != "" {
		req.Duration, _ = strconv.Atoi(d)
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing video file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	inputPath, size, err := h.spool(file, header.Filename)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to spool upload to disk")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	defer os.Remove(inputPath)

	result, err := h.conversions.Convert(r.Context(), ent, service.ConvertInput{
		InputPath:     inputPath,
		OriginalName:  header.Filename,
		FileSize:      size,
		FormatID:      req.FormatID,
		Duration:      req.Duration,
		CampaignName:  req.CampaignName,
		PersistRemote: req.Persist,
	})
	if err != nil {
		if !service.IsDenial(err) {
			h.logger.Error().Err(err).Str("account_id", accountID).Msg("Conversion failed")
		}
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ConversionResponseDTO{
		LocalToken:  result.LocalToken,
		DownloadURL: "/v1/artifacts/" + result.LocalToken,
		FinalName:   result.FinalName,
		Size:        result.Size,
		RemotePath:  result.RemotePath,
	})
}

// spool writes the uploaded stream to the artifact working directory and
// returns its path and byte count.
func (h *ConversionHandler) spool(src io.Reader, originalName string) (string, int64, error) {
	ext := filepath.Ext(originalName)
	if ext == "" {
		ext = ".bin"
	}
	path := h.artifacts.NewWorkPath(ext)
	dst, err := os.Create(path)
	if err != nil {
		return "", 0, err
	}
	defer dst.Close()
	n, err := io.Copy(dst, src)
	if err != nil {
		os.Remove(path)
		return "", 0, err
	}
	return path, n, nil
}

// listConversions godoc
// @Summary List conversion history
// @Description Returns the account's non-deleted conversion log entries, newest first.
// @Tags conversions
// @Produce json
// @Param limit query int false "Page size (default 50, max 100)"
// @Param offset query int false "Page offset"
// @Success 200 {array} dto.ConversionLogDTO
// @Failure 401 {string} string "unauthorized"
// @Router /conversions [get]
func (h *ConversionHandler) listConversions(w http.ResponseWriter, r *http.Request) {
	accountID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || accountID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	logs, err := h.history.List(r.Context(), accountID, limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Str("account_id", accountID).Msg("Failed to list conversions")
		http.Error(w, "failed to list conversions", http.StatusInternalServerError)
		return
	}
	resp := make([]dto.ConversionLogDTO, 0, len(logs))
	for _, l := range logs {
		resp = append(resp, dto.ConversionLogDTO{
			ID:           l.ID,
			OriginalName: l.OriginalName,
			OutputFormat: l.OutputFormat,
			Duration:     l.Duration,
			FileSize:     l.FileSize,
			FilePath:     l.FilePath,
			CreatedAt:    l.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleConversion dispatches /conversions/{id} by method.
func (h *ConversionHandler) handleConversion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.deleteConversion(w, r)
}

// deleteConversion godoc
// @Summary Delete a history entry
// @Description Soft-deletes the log entry and removes its stored object. Usage totals are unaffected.
// @Tags conversions
// @Param conversionId path string true "Conversion log ID"
// @Success 204 {string} string "deleted"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "not found"
// @Router /conversions/{conversionId} [delete]
func (h *ConversionHandler) deleteConversion(w http.ResponseWriter, r *http.Request) {
	accountID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || accountID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	logID := strings.TrimPrefix(r.URL.Path, "/conversions/")
	if logID == "" {
		http.NotFound(w, r)
		return
	}
	if err := h.history.Delete(r.Context(), accountID, logID); err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, service.ErrForbidden) {
			writeServiceError(w, err)
			return
		}
		h.logger.Error().Err(err).Str("log_id", logID).Msg("Failed to delete conversion")
		http.Error(w, "failed to delete conversion", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getUsage godoc
// @Summary Get current usage
// @Description Reports monthly usage against the plan ceiling plus lifetime totals.
// @Tags conversions
// @Produce json
// @Success 200 {object} dto.UsageResponseDTO
// @Failure 401 {string} string "unauthorized"
// @Failure 503 {string} string "entitlement unavailable"
// @Router /usage [get]
func (h *ConversionHandler) getUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	accountID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || accountID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	ent, _, err := h.watcher.Check(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	usage, err := h.quota.Usage(r.Context(), ent)
	if err != nil {
		h.logger.Error().Err(err).Str("account_id", accountID).Msg("Failed to compute usage")
		http.Error(w, "failed to compute usage", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, dto.UsageResponseDTO{
		MonthUsed:    usage.MonthUsed,
		MonthLimit:   usage.MonthLimit,
		TotalVideos:  usage.TotalVideos,
		TotalBytes:   usage.TotalBytes,
		StoredVideos: usage.StoredVideos,
	})
}
