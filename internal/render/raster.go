package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/powerpit/backend/internal/physics"
	"golang.org/x/image/vector"
)

var (
	BackgroundColor  = color.RGBA{8, 12, 24, 255}
	ArenaBorderColor = color.RGBA{38, 168, 255, 255}
	BumperColor      = color.RGBA{255, 220, 120, 255}
	BallOutlineColor = color.RGBA{255, 255, 255, 255}
)

// Stroke widths in pixels at 1080 lines; scaled with frame height.
const (
	arenaStroke  = 6.0
	bumperStroke = 4.0
	ballStroke   = 2.0
	refHeight    = 1080.0
)

// Rasterizer draws snapshots of one scene. The arena and bumpers never
// move, so they are drawn once into a background layer.
type Rasterizer struct {
	width, height int
	proj          Projection
	strokeScale   float64
	teamColors    []color.RGBA
	background    *image.RGBA
}

// NewRasterizer prepares a width x height renderer for scene.
func NewRasterizer(scene physics.Scene, width, height int) *Rasterizer {
	r := &Rasterizer{
		width:       width,
		height:      height,
		proj:        NewProjection(scene.Arena, width, height),
		strokeScale: math.Max(float64(height)/refHeight, 0.25),
	}
	for _, team := range scene.Teams {
		r.teamColors = append(r.teamColors, color.RGBA{team.Color.R, team.Color.G, team.Color.B, 255})
	}

	r.background = image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(r.background, r.background.Bounds(), image.NewUniform(BackgroundColor), image.Point{}, draw.Src)
	r.drawArena(r.background, scene.Arena)
	for _, b := range scene.Arena.Bumpers {
		cx, cy := r.proj.Point(b.Position)
		radius := r.proj.Length(b.Radius)
		r.ring(r.background, cx, cy, radius, radius-bumperStroke*r.strokeScale, BumperColor)
	}
	return r
}

// Bounds returns the frame rectangle.
func (r *Rasterizer) Bounds() image.Rectangle {
	return image.Rect(0, 0, r.width, r.height)
}

// Render draws snap into a new frame. Balls are filled with their team
// color and outlined in white.
func (r *Rasterizer) Render(snap physics.Snapshot) *image.RGBA {
	img := image.NewRGBA(r.background.Bounds())
	copy(img.Pix, r.background.Pix)

	outline := ballStroke * r.strokeScale
	for _, b := range snap.Balls {
		cx, cy := r.proj.Point(b.Position)
		radius := r.proj.Length(b.Radius)
		r.disc(img, cx, cy, radius, BallOutlineColor)
		r.disc(img, cx, cy, radius-outline, r.teamColor(b.TeamIndex))
	}
	return img
}

func (r *Rasterizer) teamColor(index int) color.RGBA {
	if index >= 0 && index < len(r.teamColors) {
		return r.teamColors[index]
	}
	return BallOutlineColor
}

func (r *Rasterizer) drawArena(dst *image.RGBA, arena physics.Arena) {
	stroke := arenaStroke * r.strokeScale
	cx, cy := r.proj.Point(physics.Vec2{})

	switch arena.Kind {
	case physics.ArenaCircle:
		radius := r.proj.Length(arena.Radius)
		r.ring(dst, cx, cy, radius, radius-stroke, ArenaBorderColor)
	case physics.ArenaStadium:
		halfW := r.proj.Length(arena.Width / 2)
		halfH := r.proj.Length(arena.Height / 2)
		corner := r.proj.Length(arena.CornerRadius)
		r.fill(dst, ArenaBorderColor, boundsAround(cx, cy, halfW, halfH), func(z *shape) {
			z.roundedRect(cx, cy, halfW, halfH, corner, false)
			z.roundedRect(cx, cy, halfW-stroke, halfH-stroke, math.Max(corner-stroke, 0), true)
		})
	}
}

func (r *Rasterizer) disc(dst *image.RGBA, cx, cy, radius float64, c color.RGBA) {
	if radius <= 0 {
		return
	}
	r.fill(dst, c, boundsAround(cx, cy, radius, radius), func(z *shape) {
		z.circle(cx, cy, radius, false)
	})
}

func (r *Rasterizer) ring(dst *image.RGBA, cx, cy, outer, inner float64, c color.RGBA) {
	if inner <= 0 {
		r.disc(dst, cx, cy, outer, c)
		return
	}
	r.fill(dst, c, boundsAround(cx, cy, outer, outer), func(z *shape) {
		z.circle(cx, cy, outer, false)
		z.circle(cx, cy, inner, true)
	})
}

// fill rasterizes the path built by build within area and composites c
// through it. Only the covered rectangle is rasterized.
func (r *Rasterizer) fill(dst *image.RGBA, c color.RGBA, area image.Rectangle, build func(*shape)) {
	area = area.Intersect(dst.Bounds())
	if area.Empty() {
		return
	}
	z := vector.NewRasterizer(area.Dx(), area.Dy())
	build(&shape{z: z, ox: float64(area.Min.X), oy: float64(area.Min.Y)})
	z.Draw(dst, area, image.NewUniform(c), image.Point{})
}

func boundsAround(cx, cy, halfW, halfH float64) image.Rectangle {
	return image.Rect(
		int(math.Floor(cx-halfW))-1, int(math.Floor(cy-halfH))-1,
		int(math.Ceil(cx+halfW))+1, int(math.Ceil(cy+halfH))+1,
	)
}

// shape appends polygonal paths to a vector rasterizer whose origin sits
// at (ox, oy) in frame pixels. Paths with reverse set wind the other way
// and cut holes.
type shape struct {
	z      *vector.Rasterizer
	ox, oy float64
}

func (s *shape) moveTo(x, y float64) {
	s.z.MoveTo(float32(x-s.ox), float32(y-s.oy))
}

func (s *shape) lineTo(x, y float64) {
	s.z.LineTo(float32(x-s.ox), float32(y-s.oy))
}

func segmentsFor(radius float64) int {
	n := int(radius / 2)
	return min(max(n, 24), 360)
}

func (s *shape) circle(cx, cy, radius float64, reverse bool) {
	n := segmentsFor(radius)
	for i := 0; i <= n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		if reverse {
			a = -a
		}
		x, y := cx+radius*math.Cos(a), cy+radius*math.Sin(a)
		if i == 0 {
			s.moveTo(x, y)
			continue
		}
		s.lineTo(x, y)
	}
	s.z.ClosePath()
}

func (s *shape) roundedRect(cx, cy, halfW, halfH, corner float64, reverse bool) {
	corner = math.Min(corner, math.Min(halfW, halfH))
	innerW, innerH := halfW-corner, halfH-corner

	// Corner centres in clockwise order (screen space), starting bottom right.
	centres := [4][2]float64{
		{cx + innerW, cy + innerH},
		{cx - innerW, cy + innerH},
		{cx - innerW, cy - innerH},
		{cx + innerW, cy - innerH},
	}
	n := max(segmentsFor(corner)/4, 6)

	var pts [][2]float64
	for q, c := range centres {
		start := float64(q) * math.Pi / 2
		for i := 0; i <= n; i++ {
			a := start + (math.Pi/2)*float64(i)/float64(n)
			pts = append(pts, [2]float64{c[0] + corner*math.Cos(a), c[1] + corner*math.Sin(a)})
		}
	}
	if reverse {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}

	s.moveTo(pts[0][0], pts[0][1])
	for _, p := range pts[1:] {
		s.lineTo(p[0], p[1])
	}
	s.z.ClosePath()
}
