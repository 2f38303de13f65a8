package render

import (
	"math"

	"github.com/powerpit/backend/internal/physics"
)

// ProjectionMargin leaves room around the arena inside the frame.
const ProjectionMargin = 1.15

// Projection maps world coordinates (metres, y up) to pixel coordinates
// (y down) with the arena centred in the frame.
type Projection struct {
	Scale   float64
	OffsetX float64
	OffsetY float64
}

// NewProjection fits arena into a width x height frame.
func NewProjection(arena physics.Arena, width, height int) Projection {
	scaleX := float64(width) / (arena.HorizontalSpan() * ProjectionMargin)
	scaleY := float64(height) / (arena.VerticalSpan() * ProjectionMargin)
	return Projection{
		Scale:   math.Min(scaleX, scaleY),
		OffsetX: float64(width) / 2,
		OffsetY: float64(height) / 2,
	}
}

// Point converts a world position to pixels.
func (p Projection) Point(v physics.Vec2) (x, y float64) {
	return p.OffsetX + v.X*p.Scale, p.OffsetY - v.Y*p.Scale
}

// Length converts a world distance to pixels.
func (p Projection) Length(d float64) float64 {
	return d * p.Scale
}
