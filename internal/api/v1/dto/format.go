package dto

import "time"

// FormatCreateDTO is used for incoming custom format creation requests
type FormatCreateDTO struct {
	Label  string `json:"label" validate:"required,max=64"`
	Width  int    `json:"width" validate:"required,min=16,max=7680"`
	Height int    `json:"height" validate:"required,min=16,max=7680"`
}

// FormatUpdateDTO is used for incoming custom format update requests
type FormatUpdateDTO struct {
	Label  string `json:"label" validate:"required,max=64"`
	Width  int    `json:"width" validate:"required,min=16,max=7680"`
	Height int    `json:"height" validate:"required,min=16,max=7680"`
}

// FormatResponseDTO is returned in API responses for formats
type FormatResponseDTO struct {
	ID          string     `json:"id"`
	Label       string     `json:"label"`
	Width       int        `json:"width"`
	Height      int        `json:"height"`
	Orientation string     `json:"orientation"`
	BuiltIn     bool       `json:"built_in"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}
