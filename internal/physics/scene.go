package physics

import "math"

// ArenaKind tags the arena variant.
type ArenaKind string

const (
	ArenaCircle  ArenaKind = "circle"
	ArenaStadium ArenaKind = "stadium"
)

// Bumper is a static circular obstacle with its own restitution.
type Bumper struct {
	Position    Vec2    `json:"position"`
	Radius      float64 `json:"radius"`
	Restitution float64 `json:"restitution"`
}

// Arena is the play-space boundary. Radius is used by circles; Width,
// Height and CornerRadius by stadiums.
type Arena struct {
	Kind         ArenaKind `json:"type"`
	Radius       float64   `json:"radius,omitempty"`
	Width        float64   `json:"width,omitempty"`
	Height       float64   `json:"height,omitempty"`
	CornerRadius float64   `json:"corner_radius,omitempty"`
	Bumpers      []Bumper  `json:"bumpers,omitempty"`
}

// HorizontalSpan is the arena extent along x.
func (a Arena) HorizontalSpan() float64 {
	if a.Kind == ArenaCircle {
		return 2 * a.Radius
	}
	return a.Width
}

// VerticalSpan is the arena extent along y.
func (a Arena) VerticalSpan() float64 {
	if a.Kind == ArenaCircle {
		return 2 * a.Radius
	}
	return a.Height
}

// RGB is a team display colour.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Player is one spawn entry of a team.
type Player struct {
	Name     string `json:"name"`
	Spawn    Vec2   `json:"spawn"`
	Velocity Vec2   `json:"velocity"`
}

type Team struct {
	Name    string   `json:"name"`
	Color   RGB      `json:"color"`
	Players []Player `json:"players"`
}

// Scene is the validated input of a simulation. Range checks are the
// loader's job; the engine trusts these values.
type Scene struct {
	Name            string  `json:"name"`
	DurationSeconds float64 `json:"duration_seconds"`
	FrameRate       int     `json:"frame_rate"`
	Arena           Arena   `json:"arena"`
	Teams           []Team  `json:"teams"`
	BallRadius      float64 `json:"ball_radius"`
	BallMass        float64 `json:"ball_mass"`
	Friction        float64 `json:"friction"`
	Restitution     float64 `json:"restitution"`
}

// FrameCount is the number of snapshots a full run produces.
func (s Scene) FrameCount() int {
	return int(math.Round(s.DurationSeconds * float64(s.FrameRate)))
}

// PlayerCount is the number of balls a simulation of s will hold.
func (s Scene) PlayerCount() int {
	n := 0
	for _, t := range s.Teams {
		n += len(t.Players)
	}
	return n
}
