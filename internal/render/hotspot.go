package render

import (
	"errors"
	"math"
)

// ErrInvalidSurface is returned when a click cannot be mapped to the surface
var ErrInvalidSurface = errors.New("click is outside a valid preview surface")

// HotspotFromClick converts a click at (px, py), measured from the top-left
// corner of a width x height surface, into percentages of that surface.
func HotspotFromClick(px, py, width, height float64) (float64, float64, error) {
	for _, v := range []float64{px, py, width, height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, 0, ErrInvalidSurface
		}
	}
	if width <= 0 || height <= 0 {
		return 0, 0, ErrInvalidSurface
	}
	if px < 0 || py < 0 || px > width || py > height {
		return 0, 0, ErrInvalidSurface
	}
	return px / width * 100, py / height * 100, nil
}
