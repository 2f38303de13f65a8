package physics

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArenaGeometry signals arena parameters that slipped past
	// scene validation (e.g. a stadium corner radius larger than a half side).
	ErrInvalidArenaGeometry = errors.New("invalid arena geometry")

	// ErrNonFiniteState signals a NaN or Inf in a ball's position or velocity.
	ErrNonFiniteState = errors.New("non-finite ball state")
)

// ContactStats counts resolved contacts by kind since construction.
type ContactStats struct {
	BallBall int `json:"ball_ball"`
	Wall     int `json:"wall"`
	Bumper   int `json:"bumper"`
}

// Simulation owns the live balls and bumpers of one scene. Balls are kept
// in creation order and every pairwise pass walks them by ascending index,
// which keeps runs bit-for-bit reproducible.
type Simulation struct {
	scene       Scene
	arena       Arena
	friction    float64
	restitution float64

	balls   []Ball
	bumpers []Bumper

	time     float64
	ticks    int
	contacts ContactStats
}

// NewSimulation builds the initial state for a scene.
func NewSimulation(scene Scene) *Simulation {
	s := &Simulation{
		scene:       scene,
		arena:       scene.Arena,
		friction:    scene.Friction,
		restitution: scene.Restitution,
		balls:       make([]Ball, 0, scene.PlayerCount()),
		bumpers:     make([]Bumper, len(scene.Arena.Bumpers)),
	}

	for teamIndex, team := range scene.Teams {
		for _, p := range team.Players {
			s.balls = append(s.balls, Ball{
				TeamIndex: teamIndex,
				Team:      team.Name,
				Name:      p.Name,
				Position:  p.Spawn,
				Velocity:  p.Velocity,
				Radius:    scene.BallRadius,
				Mass:      scene.BallMass,
			})
		}
	}
	copy(s.bumpers, scene.Arena.Bumpers)

	return s
}

// Step advances the simulation by one fixed tick: damping and translation
// for every ball, then ball-ball, arena and bumper resolution.
func (s *Simulation) Step() error {
	s.integrate()

	s.resolveBallBall()
	if err := s.resolveArena(); err != nil {
		return err
	}
	s.resolveBumpers()

	s.time += DT
	s.ticks++

	return s.checkFinite()
}

func (s *Simulation) integrate() {
	for i := range s.balls {
		b := &s.balls[i]
		b.Velocity = b.Velocity.Times(s.friction)
		b.Position = b.Position.Plus(b.Velocity.Times(DT))
	}
}

func (s *Simulation) checkFinite() error {
	for i := range s.balls {
		b := &s.balls[i]
		if !b.Position.IsFinite() || !b.Velocity.IsFinite() {
			return fmt.Errorf("tick %d, ball %d (%s): %w", s.ticks, i, b.Name, ErrNonFiniteState)
		}
	}
	return nil
}

// Capture copies the current state into a snapshot tagged with frameIndex.
func (s *Simulation) Capture(frameIndex int) Snapshot {
	return Snapshot{
		FrameIndex: frameIndex,
		Time:       s.time,
		Balls:      s.Balls(),
	}
}

// Balls returns a copy of the live balls in creation order.
func (s *Simulation) Balls() []Ball {
	out := make([]Ball, len(s.balls))
	copy(out, s.balls)
	return out
}

// Ticks is the number of completed steps.
func (s *Simulation) Ticks() int { return s.ticks }

// Contacts returns the contact counters accumulated so far.
func (s *Simulation) Contacts() ContactStats { return s.contacts }

// Scene returns the scene the simulation was built from.
func (s *Simulation) Scene() Scene { return s.scene }
