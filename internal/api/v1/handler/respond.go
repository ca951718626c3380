package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"vidiooh/internal/api/v1/dto"
	"vidiooh/internal/repository"
	"vidiooh/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// denialStatus maps a gating denial reason to its HTTP status.
func denialStatus(reason string) int {
	switch reason {
	case "banned":
		return http.StatusForbidden
	case "file_too_large":
		return http.StatusRequestEntityTooLarge
	case "orientation_mismatch":
		return http.StatusConflict
	case "monthly_limit_reached":
		return http.StatusTooManyRequests
	default:
		return http.StatusForbidden
	}
}

// writeServiceError translates service-layer errors to HTTP responses. Raw
// backend error text is never forwarded to the caller.
func writeServiceError(w http.ResponseWriter, err error) {
	var ml *service.MonthlyLimitError
	switch {
	case service.IsDenial(err):
		reason := service.DenialReason(err)
		denied := dto.ConversionDeniedDTO{Reason: reason, Message: err.Error()}
		if errors.As(err, &ml) {
			denied.Used = ml.Used
			denied.Limit = ml.Limit
		}
		writeJSON(w, denialStatus(reason), denied)
	case errors.Is(err, service.ErrEntitlementUnavailable):
		http.Error(w, "entitlement unavailable", http.StatusServiceUnavailable)
	case errors.Is(err, service.ErrProbeFailure):
		http.Error(w, "unreadable video metadata", http.StatusUnprocessableEntity)
	case errors.Is(err, service.ErrCodecFailure):
		http.Error(w, "conversion failed", http.StatusInternalServerError)
	case errors.Is(err, service.ErrUploadFailure):
		http.Error(w, "storage upload failed", http.StatusBadGateway)
	case errors.Is(err, service.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, service.ErrFormatLimit):
		http.Error(w, "format limit reached", http.StatusConflict)
	case errors.Is(err, service.ErrInvalidRequest):
		http.Error(w, "invalid request", http.StatusBadRequest)
	case errors.Is(err, repository.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
