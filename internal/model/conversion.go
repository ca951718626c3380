package model

import "time"

// ConversionLog records one transcode event. FilePath is nil when the
// artifact was not persisted to object storage; DeletedAt hides the row
// from the user-visible history while keeping it for aggregates.
type ConversionLog struct {
	ID           string     `db:"id" json:"id"`
	UserID       string     `db:"user_id" json:"user_id"`
	OriginalName string     `db:"original_name" json:"original_name"`
	OutputFormat string     `db:"output_format" json:"output_format"`
	Duration     int        `db:"duration" json:"duration"`
	FileSize     int64      `db:"file_size" json:"file_size"`
	FilePath     *string    `db:"file_path" json:"file_path,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	DeletedAt    *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// UsageSummary aggregates an account's conversion activity. Totals include
// soft-deleted rows so billing-relevant numbers never shrink when history
// entries are removed.
type UsageSummary struct {
	MonthUsed    int   `json:"month_used"`
	MonthLimit   int   `json:"month_limit"`
	TotalVideos  int   `json:"total_videos"`
	TotalBytes   int64 `json:"total_bytes"`
	StoredVideos int   `json:"stored_videos"`
}
