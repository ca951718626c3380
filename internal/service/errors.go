package service

import (
	"errors"
	"fmt"
)

// Gating and pipeline errors. Handlers map these to status codes and
// stable reason strings; raw backend error text never reaches non-admin
// callers.
var (
	// ErrEntitlementUnavailable means the directory lookup failed. The
	// resolver fails closed: callers must deny feature access, never
	// default to an elevated plan.
	ErrEntitlementUnavailable = errors.New("entitlement_unavailable")

	// ErrBanned is terminal for the session; recovery goes through support.
	ErrBanned = errors.New("banned")

	ErrFileTooLarge        = errors.New("file_too_large")
	ErrOrientationMismatch = errors.New("orientation_mismatch")

	// ErrProbeFailure means the input's metadata was unreadable; the codec
	// is never invoked with a zero-duration factor.
	ErrProbeFailure = errors.New("probe_failure")

	// ErrCodecFailure means the transcode step failed or produced no
	// output.
	ErrCodecFailure = errors.New("codec_failure")

	// ErrUploadFailure means remote persistence failed after a successful
	// transcode; the local artifact stays downloadable.
	ErrUploadFailure = errors.New("upload_failure")

	ErrForbidden      = errors.New("forbidden")
	ErrFormatLimit    = errors.New("format_limit_reached")
	ErrInvalidRequest = errors.New("invalid_request")
)

// MonthlyLimitError carries the used/limit pair so the denial message can
// tell the user exactly where they stand in the cycle.
type MonthlyLimitError struct {
	Used  int
	Limit int
}

func (e *MonthlyLimitError) Error() string {
	return fmt.Sprintf("monthly_limit_reached: %d/%d conversions used", e.Used, e.Limit)
}

// IsDenial reports whether the error is a pre-flight gating denial, i.e.
// one that must be resolved before any expensive work starts.
func IsDenial(err error) bool {
	var ml *MonthlyLimitError
	return errors.Is(err, ErrBanned) ||
		errors.Is(err, ErrFileTooLarge) ||
		errors.Is(err, ErrOrientationMismatch) ||
		errors.As(err, &ml)
}

// DenialReason maps a gating denial to its stable reason string, used both
// in API responses and metric labels.
func DenialReason(err error) string {
	var ml *MonthlyLimitError
	switch {
	case errors.Is(err, ErrBanned):
		return "banned"
	case errors.Is(err, ErrFileTooLarge):
		return "file_too_large"
	case errors.Is(err, ErrOrientationMismatch):
		return "orientation_mismatch"
	case errors.As(err, &ml):
		return "monthly_limit_reached"
	default:
		return "other"
	}
}
