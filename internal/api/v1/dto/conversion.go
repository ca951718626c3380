package dto

import "time"

// ConversionRequestDTO is the non-file part of a conversion submission.
// The video itself arrives as the multipart "file" field.
type ConversionRequestDTO struct {
	FormatID     string `json:"format_id" validate:"required"`
	Duration     int    `json:"duration" validate:"required,min=7,max=14"`
	CampaignName string `json:"campaign_name,omitempty"`
	Persist      bool   `json:"persist,omitempty"`
}

// ConversionResponseDTO is returned when a conversion succeeds.
type ConversionResponseDTO struct {
	LocalToken  string  `json:"local_token"`
	DownloadURL string  `json:"download_url"`
	FinalName   string  `json:"final_name"`
	Size        int64   `json:"size"`
	RemotePath  *string `json:"remote_path,omitempty"`
}

// ConversionDeniedDTO is returned when the quota gate refuses the request.
type ConversionDeniedDTO struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
	Used    int    `json:"used,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

// ConversionLogDTO is one history entry.
type ConversionLogDTO struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"original_name"`
	OutputFormat string    `json:"output_format"`
	Duration     int       `json:"duration"`
	FileSize     int64     `json:"file_size"`
	FilePath     *string   `json:"file_path,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// UsageResponseDTO reports where the account stands in the current cycle.
type UsageResponseDTO struct {
	MonthUsed    int   `json:"month_used"`
	MonthLimit   int   `json:"month_limit"` // 0 means unlimited
	TotalVideos  int   `json:"total_videos"`
	TotalBytes   int64 `json:"total_bytes"`
	StoredVideos int   `json:"stored_videos"`
}
