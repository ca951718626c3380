package model

// Orientation classifies a rectangle by its aspect.
type Orientation string

const (
	Horizontal Orientation = "horizontal"
	Vertical   Orientation = "vertical"
	Square     Orientation = "square"
)

// OrientationOf classifies pixel dimensions.
func OrientationOf(width, height int) Orientation {
	switch {
	case width > height:
		return Horizontal
	case height > width:
		return Vertical
	default:
		return Square
	}
}

// Conflicts reports whether a source orientation cannot be mapped onto a
// target: horizontal-to-vertical and vice versa are disallowed, square
// never conflicts.
func (o Orientation) Conflicts(target Orientation) bool {
	if o == Square || target == Square {
		return false
	}
	return o != target
}
