package model

import "time"

// CustomFormat is a user-defined output geometry.
type CustomFormat struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Label     string    `db:"label" json:"label"`
	Width     int       `db:"width" json:"width"`
	Height    int       `db:"height" json:"height"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Orientation classifies the format's geometry.
func (f *CustomFormat) Orientation() Orientation {
	return OrientationOf(f.Width, f.Height)
}

// OutputFormat is a selectable output geometry, either a built-in default
// or a user's custom format.
type OutputFormat struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// DefaultFormats are the built-in LED screen geometries offered to every
// account.
func DefaultFormats() []OutputFormat {
	return []OutputFormat{
		{ID: "default_1", Label: "1280 x 720", Width: 1280, Height: 720},
		{ID: "default_2", Label: "1280 x 616", Width: 1280, Height: 616},
		{ID: "default_3", Label: "1280 x 654", Width: 1280, Height: 654},
		{ID: "default_4", Label: "1280 x 672", Width: 1280, Height: 672},
	}
}
