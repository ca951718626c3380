package dto

import "time"

// EntitlementResponseDTO is the resolved plan snapshot for the caller.
type EntitlementResponseDTO struct {
	AccountID          string     `json:"account_id"`
	Plan               string     `json:"plan"`
	Status             string     `json:"status"`
	State              string     `json:"state"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
	TeamID             *string    `json:"team_id,omitempty"`
	MonthlyConversions int        `json:"monthly_conversions"` // 0 means unlimited
	MaxFileBytes       int64      `json:"max_file_bytes"`
	MaxFormats         int        `json:"max_formats"` // 0 means unlimited
	HistoryDays        int        `json:"history_days"`
	ResolvedAt         time.Time  `json:"resolved_at"`
}

// CapabilitiesResponseDTO reports host readiness for encode work.
type CapabilitiesResponseDTO struct {
	CoreCount    int    `json:"core_count"`
	LowSpec      bool   `json:"low_spec"`
	CodecReady   bool   `json:"codec_ready"`
	CodecMessage string `json:"codec_message,omitempty"`
}
