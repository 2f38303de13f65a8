package physics

import (
	"fmt"
	"math"
)

// Normal conventions: enclosing walls use the normal pointing out of the
// arena and reflect when dot(v, n) > 0; bumpers use the normal pointing
// from the bumper toward the ball and reflect when dot(v, n) < 0. Both mean
// "the ball moves into the surface".

func (s *Simulation) resolveBallBall() {
	restitution := s.restitution
	count := len(s.balls)

	for i := 0; i < count; i++ {
		a := &s.balls[i]
		for j := i + 1; j < count; j++ {
			b := &s.balls[j]

			delta := b.Position.Minus(a.Position)
			distSq := delta.MagnitudeSquared()
			minDist := a.Radius + b.Radius
			if distSq >= minDist*minDist {
				continue
			}

			dist := math.Sqrt(distSq)
			normal := unitOr(delta, dist, fallbackNormal)

			penetration := minDist - dist
			invA, invB := a.invMass(), b.invMass()
			totalInvMass := invA + invB
			correction := normal.Times(penetration / totalInvMass)
			a.Position = a.Position.Minus(correction.Times(invA))
			b.Position = b.Position.Plus(correction.Times(invB))
			s.contacts.BallBall++

			relVel := b.Velocity.Minus(a.Velocity).Dot(normal)
			if relVel >= 0 {
				continue // already separating
			}

			impulse := normal.Times(-(1.0 + restitution) * relVel / totalInvMass)
			a.Velocity = a.Velocity.Minus(impulse.Times(invA))
			b.Velocity = b.Velocity.Plus(impulse.Times(invB))
		}
	}
}

func (s *Simulation) resolveArena() error {
	switch s.arena.Kind {
	case ArenaCircle:
		s.resolveCircleWalls()
		return nil
	case ArenaStadium:
		return s.resolveStadiumWalls()
	default:
		return fmt.Errorf("arena type %q: %w", s.arena.Kind, ErrInvalidArenaGeometry)
	}
}

func (s *Simulation) resolveCircleWalls() {
	for i := range s.balls {
		b := &s.balls[i]
		if s.pushInsideArc(b, Vec2{}, s.arena.Radius) {
			s.contacts.Wall++
		}
	}
}

func (s *Simulation) resolveStadiumWalls() error {
	halfWidth := s.arena.Width / 2
	halfHeight := s.arena.Height / 2
	cornerRadius := s.arena.CornerRadius

	flatWidth := halfWidth - cornerRadius
	flatHeight := halfHeight - cornerRadius
	if flatWidth < 0 || flatHeight < 0 {
		return fmt.Errorf("stadium %gx%g with corner radius %g: %w",
			s.arena.Width, s.arena.Height, cornerRadius, ErrInvalidArenaGeometry)
	}

	for i := range s.balls {
		b := &s.balls[i]
		px, py := b.Position.X, b.Position.Y

		// Top and bottom flat edges.
		if math.Abs(px) <= flatWidth {
			limit := halfHeight - b.Radius
			if py > limit {
				b.Position.Y = limit
				s.reflect(b, Vec2{X: 0, Y: 1})
				s.contacts.Wall++
				continue
			}
			if py < -limit {
				b.Position.Y = -limit
				s.reflect(b, Vec2{X: 0, Y: -1})
				s.contacts.Wall++
				continue
			}
		}

		// Left and right flat edges.
		if math.Abs(py) <= flatHeight {
			limit := halfWidth - b.Radius
			if px > limit {
				b.Position.X = limit
				s.reflect(b, Vec2{X: 1, Y: 0})
				s.contacts.Wall++
				continue
			}
			if px < -limit {
				b.Position.X = -limit
				s.reflect(b, Vec2{X: -1, Y: 0})
				s.contacts.Wall++
				continue
			}
		}

		if math.Abs(px) <= flatWidth && math.Abs(py) <= flatHeight {
			continue
		}

		// Corner arcs. Clamping puts the centre on the nearest corner once the
		// ball has left both flat bands; inside a single band it lands on the
		// band edge, where the flat checks above already hold the ball.
		center := Vec2{
			X: clamp(px, -flatWidth, flatWidth),
			Y: clamp(py, -flatHeight, flatHeight),
		}
		if s.pushInsideArc(b, center, cornerRadius) {
			s.contacts.Wall++
		}
	}

	return nil
}

// pushInsideArc keeps b within radius of center, reflecting its velocity
// off the arc. Reports whether a contact was resolved.
func (s *Simulation) pushInsideArc(b *Ball, center Vec2, radius float64) bool {
	offset := b.Position.Minus(center)
	dist := offset.Magnitude()
	limit := radius - b.Radius
	if dist <= limit {
		return false
	}

	normal := unitOr(offset, dist, fallbackNormal)
	b.Position = b.Position.Minus(normal.Times(dist - limit))
	s.reflect(b, normal)
	return true
}

// reflect bounces b off a wall whose outward normal is n.
func (s *Simulation) reflect(b *Ball, n Vec2) {
	velAlongNormal := b.Velocity.Dot(n)
	if velAlongNormal > 0 {
		b.Velocity = b.Velocity.Minus(n.Times(velAlongNormal * (1.0 + s.restitution)))
	}
}

func (s *Simulation) resolveBumpers() {
	for bi := range s.bumpers {
		bumper := &s.bumpers[bi]
		for i := range s.balls {
			b := &s.balls[i]

			delta := b.Position.Minus(bumper.Position)
			dist := delta.Magnitude()
			limit := bumper.Radius + b.Radius
			if dist >= limit {
				continue
			}

			normal := unitOr(delta, dist, fallbackNormal)
			b.Position = b.Position.Plus(normal.Times(limit - dist))
			s.contacts.Bumper++

			velAlongNormal := b.Velocity.Dot(normal)
			if velAlongNormal < 0 {
				b.Velocity = b.Velocity.Minus(normal.Times(velAlongNormal * (1.0 + bumper.Restitution)))
			}
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
