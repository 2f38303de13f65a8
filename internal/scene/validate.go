package scene

import (
	"fmt"
	"math"
	"strings"

	"github.com/powerpit/backend/internal/physics"
)

// Validate range-checks a scene so the engine can trust it.
func Validate(s physics.Scene) error {
	if strings.TrimSpace(s.Name) == "" {
		return invalid("name", "is missing or empty")
	}
	if !(s.DurationSeconds > 0) {
		return invalid("duration_seconds", "must be strictly positive")
	}
	if s.FrameRate <= 0 {
		return invalid("frame_rate", "must be strictly positive")
	}
	if s.FrameRate > MaxFrameRate {
		return invalid("frame_rate", "must be at most %d", MaxFrameRate)
	}
	if s.FrameCount() < 1 {
		return invalid("duration_seconds", "%g s at %d fps yields no frames", s.DurationSeconds, s.FrameRate)
	}
	if !(s.BallRadius > 0) {
		return invalid("ball_radius", "must be strictly positive")
	}
	if !(s.BallMass > 0) {
		return invalid("ball_mass", "must be strictly positive")
	}
	if !(s.Friction > 0 && s.Friction <= 1) {
		return invalid("friction", "must be within (0, 1]")
	}
	if !(s.Restitution >= 0) {
		return invalid("restitution", "must be >= 0")
	}

	if err := validateArena(s.Arena, s.BallRadius); err != nil {
		return err
	}

	if len(s.Teams) == 0 {
		return invalid("teams", "must list at least one team")
	}
	for ti, t := range s.Teams {
		field := fmt.Sprintf("teams[%d]", ti)
		if strings.TrimSpace(t.Name) == "" {
			return invalid(field+".name", "is missing or empty")
		}
		if len(t.Players) == 0 {
			return invalid(field+".players", "must list at least one player")
		}
		for pi, p := range t.Players {
			pfield := fmt.Sprintf("%s.players[%d]", field, pi)
			if !p.Spawn.IsFinite() {
				return invalid(pfield+".spawn", "must be finite")
			}
			if !p.Velocity.IsFinite() {
				return invalid(pfield+".velocity", "must be finite")
			}
			if !Contains(s.Arena, p.Spawn, s.BallRadius) {
				return invalid(pfield+".spawn", "(%g, %g) lies outside the arena", p.Spawn.X, p.Spawn.Y)
			}
		}
	}

	return nil
}

func validateArena(a physics.Arena, ballRadius float64) error {
	switch a.Kind {
	case physics.ArenaCircle:
		if !(a.Radius > ballRadius) {
			return invalid("arena.radius", "must be larger than ball_radius")
		}
	case physics.ArenaStadium:
		if !(a.Width > 0) || !(a.Height > 0) {
			return invalid("arena", "stadium needs positive width and height")
		}
		if !(a.CornerRadius >= 0) {
			return invalid("arena.corner_radius", "must be >= 0")
		}
		if a.CornerRadius*2 > math.Min(a.Width, a.Height) {
			return invalid("arena.corner_radius", "is too large for a %gx%g stadium", a.Width, a.Height)
		}
		if a.CornerRadius < ballRadius {
			return invalid("arena.corner_radius", "must be at least ball_radius")
		}
		if math.Min(a.Width, a.Height) <= 2*ballRadius {
			return invalid("arena", "stadium is too small for the balls")
		}
	case "":
		return invalid("arena.type", "is missing or empty")
	default:
		return invalid("arena.type", "'%s' is not supported (options: circle, stadium)", a.Kind)
	}

	for i, b := range a.Bumpers {
		field := fmt.Sprintf("arena.bumpers[%d]", i)
		if !b.Position.IsFinite() {
			return invalid(field+".position", "must be finite")
		}
		if !(b.Radius > 0) {
			return invalid(field+".radius", "must be strictly positive")
		}
		if !(b.Restitution > 0) {
			return invalid(field+".restitution", "must be strictly positive")
		}
	}
	return nil
}

// Contains reports whether a ball of radius r centred at p fits the arena.
func Contains(a physics.Arena, p physics.Vec2, r float64) bool {
	switch a.Kind {
	case physics.ArenaCircle:
		return p.Magnitude() <= a.Radius-r
	case physics.ArenaStadium:
		hw, hh, cr := a.Width/2, a.Height/2, a.CornerRadius
		x, y := math.Abs(p.X), math.Abs(p.Y)
		if x > hw-r || y > hh-r {
			return false
		}
		flatW, flatH := hw-cr, hh-cr
		if x > flatW && y > flatH {
			return math.Hypot(x-flatW, y-flatH) <= cr-r
		}
		return true
	}
	return false
}
