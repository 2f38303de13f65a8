package scene

import (
	"math"
	"math/rand/v2"

	"github.com/powerpit/backend/internal/physics"
)

// Jitter returns a copy of s with every spawn displaced by up to amount in a
// seeded random direction. Displacements that would leave the arena are
// dropped, so the result always validates when s does. The same seed yields
// the same scene.
func Jitter(s physics.Scene, amount float64, seed uint64) physics.Scene {
	if amount <= 0 {
		return s
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := s
	out.Teams = make([]physics.Team, len(s.Teams))
	for ti, t := range s.Teams {
		team := t
		team.Players = make([]physics.Player, len(t.Players))
		for pi, p := range t.Players {
			angle := rng.Float64() * 2 * math.Pi
			dist := rng.Float64() * amount
			moved := p.Spawn.Plus(physics.NewVec2(math.Cos(angle)*dist, math.Sin(angle)*dist))
			if Contains(s.Arena, moved, s.BallRadius) {
				p.Spawn = moved
			}
			team.Players[pi] = p
		}
		out.Teams[ti] = team
	}
	return out
}
