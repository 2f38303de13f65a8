package physics

import (
	"fmt"
	"iter"
	"math"
)

// StepsPerFrame is the number of ticks simulated between two output frames.
// Ties round to even, so 48 fps (2.5 ticks) runs 2 ticks per frame.
func StepsPerFrame(frameRate int) int {
	steps := int(math.RoundToEven((1.0 / float64(frameRate)) / DT))
	return max(1, steps)
}

// Sampler drives a Simulation at the scene frame rate and yields exactly
// FrameCount snapshots. It is single use: once exhausted or failed, Next
// keeps returning false. Usage mirrors bufio.Scanner:
//
//	for sampler.Next() {
//		render(sampler.Snapshot())
//	}
//	if err := sampler.Err(); err != nil { ... }
type Sampler struct {
	sim           *Simulation
	frameRate     int
	frameCount    int
	stepsPerFrame int

	next    int
	current Snapshot
	err     error
}

// NewSampler wraps sim, which must not be stepped by anyone else.
func NewSampler(sim *Simulation) *Sampler {
	scene := sim.Scene()
	return &Sampler{
		sim:           sim,
		frameRate:     scene.FrameRate,
		frameCount:    scene.FrameCount(),
		stepsPerFrame: StepsPerFrame(scene.FrameRate),
	}
}

// SimulateFrames builds a fresh simulation for scene and returns its sampler.
func SimulateFrames(scene Scene) *Sampler {
	return NewSampler(NewSimulation(scene))
}

// Next advances to the following frame. It returns false when all frames
// have been produced or a step failed.
func (s *Sampler) Next() bool {
	if s.err != nil || s.next >= s.frameCount {
		return false
	}

	for i := 0; i < s.stepsPerFrame; i++ {
		if err := s.sim.Step(); err != nil {
			s.err = fmt.Errorf("frame %d: %w", s.next, err)
			return false
		}
	}

	// Re-align the clock with the output timeline so rounding of
	// StepsPerFrame does not accumulate.
	s.sim.time = float64(s.next+1) / float64(s.frameRate)
	s.current = s.sim.Capture(s.next)
	s.next++
	return true
}

// Snapshot returns the frame produced by the last successful Next.
func (s *Sampler) Snapshot() Snapshot {
	return s.current
}

// Err returns the first error that stopped the sampler.
func (s *Sampler) Err() error {
	return s.err
}

// FrameCount is the total number of frames the sampler yields.
func (s *Sampler) FrameCount() int { return s.frameCount }

// Simulation exposes the driven simulation for read-only inspection.
func (s *Sampler) Simulation() *Simulation { return s.sim }

// All adapts the sampler to a range-over-func sequence. A failing step is
// yielded once as a zero snapshot paired with the error.
func (s *Sampler) All() iter.Seq2[Snapshot, error] {
	return func(yield func(Snapshot, error) bool) {
		for s.Next() {
			if !yield(s.Snapshot(), nil) {
				return
			}
		}
		if s.err != nil {
			yield(Snapshot{}, s.err)
		}
	}
}
