package physics

import (
	"errors"
	"math"
	"testing"
)

const tolerance = 1e-9

// testScene builds a scene with one single-player team per spawn, using the
// same globals as the reference scenarios.
func testScene(arena Arena, spawns ...Player) Scene {
	teams := make([]Team, len(spawns))
	for i, p := range spawns {
		teams[i] = Team{Name: p.Name, Players: []Player{p}}
	}
	return Scene{
		Name:            "Test",
		DurationSeconds: 2.0,
		FrameRate:       30,
		Arena:           arena,
		Teams:           teams,
		BallRadius:      0.4,
		BallMass:        1.0,
		Friction:        0.999,
		Restitution:     0.98,
	}
}

func player(name string, x, y, vx, vy float64) Player {
	return Player{Name: name, Spawn: NewVec2(x, y), Velocity: NewVec2(vx, vy)}
}

func stepN(t *testing.T, sim *Simulation, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := sim.Step(); err != nil {
			t.Fatalf("step %d failed: %v", i, err)
		}
	}
}

func TestCircleWallBounce(t *testing.T) {
	arena := Arena{Kind: ArenaCircle, Radius: 5}
	sim := NewSimulation(testScene(arena,
		player("A1", 4.4, 0, 2.5, 0),
		player("B1", -4.4, 0, -2.5, 0),
	))

	stepN(t, sim, 30)

	right := sim.balls[0]
	left := sim.balls[1]
	for _, b := range []Ball{left, right} {
		if d := b.Position.Magnitude(); d > arena.Radius-b.Radius+tolerance {
			t.Errorf("%s escaped the arena: |p|=%.6f", b.Name, d)
		}
	}
	if right.Velocity.X >= 0 {
		t.Errorf("right ball should bounce inward, vx=%.4f", right.Velocity.X)
	}
	if left.Velocity.X <= 0 {
		t.Errorf("left ball should bounce inward, vx=%.4f", left.Velocity.X)
	}
}

func TestBallBallCollisionExchangesVelocity(t *testing.T) {
	sim := NewSimulation(testScene(Arena{Kind: ArenaCircle, Radius: 6},
		player("A1", -1, 0, 3, 0),
		player("B1", 1, 0, -3, 0),
	))

	stepN(t, sim, 40)

	if vx := sim.balls[0].Velocity.X; vx >= 0 {
		t.Errorf("ball A should head left after the collision, vx=%.4f", vx)
	}
	if vx := sim.balls[1].Velocity.X; vx <= 0 {
		t.Errorf("ball B should head right after the collision, vx=%.4f", vx)
	}
}

func TestStadiumCornerCollision(t *testing.T) {
	arena := Arena{Kind: ArenaStadium, Width: 12, Height: 8, CornerRadius: 2}
	sim := NewSimulation(testScene(arena,
		player("A1", 4.5, 3, 2.5, 1.5),
		player("B1", -4.5, -3, -2.5, -1.5),
	))

	stepN(t, sim, 80)

	ball := sim.balls[0]
	if math.Abs(ball.Position.X) > arena.Width/2+tolerance {
		t.Errorf("ball outside horizontal bounds: x=%.4f", ball.Position.X)
	}
	if math.Abs(ball.Position.Y) > arena.Height/2+tolerance {
		t.Errorf("ball outside vertical bounds: y=%.4f", ball.Position.Y)
	}
	if ball.Velocity.X >= 0 || ball.Velocity.Y >= 0 {
		t.Errorf("corner bounce should reverse both axes, v=(%.4f, %.4f)", ball.Velocity.X, ball.Velocity.Y)
	}
}

func TestBumperAmplifiesNormalSpeed(t *testing.T) {
	scene := testScene(Arena{
		Kind:    ArenaCircle,
		Radius:  6,
		Bumpers: []Bumper{{Position: NewVec2(1, 0), Radius: 0.5, Restitution: 1.35}},
	}, player("A1", 0.2, 0, 3, 0))
	scene.Friction = 1

	sim := NewSimulation(scene)
	stepN(t, sim, 1)

	got := sim.balls[0].Velocity
	want := -3 * 1.35
	if math.Abs(got.X-want) > tolerance {
		t.Errorf("rebound speed along normal: got %.9f, want %.9f", got.X, want)
	}
	if math.Abs(got.Y) > tolerance {
		t.Errorf("head-on rebound should not gain a tangential component, vy=%.9f", got.Y)
	}
	if sim.Contacts().Bumper != 1 {
		t.Errorf("expected 1 bumper contact, got %d", sim.Contacts().Bumper)
	}
}

func TestRadiusAndMassNeverChange(t *testing.T) {
	scene := crowdedScene(Arena{Kind: ArenaStadium, Width: 10, Height: 6, CornerRadius: 1.5,
		Bumpers: []Bumper{{Position: NewVec2(0, 0), Radius: 0.6, Restitution: 1.3}}})
	sim := NewSimulation(scene)

	for tick := 0; tick < 600; tick++ {
		if err := sim.Step(); err != nil {
			t.Fatalf("step %d failed: %v", tick, err)
		}
		for i, b := range sim.balls {
			if b.Radius != scene.BallRadius || b.Mass != scene.BallMass {
				t.Fatalf("tick %d ball %d: radius=%v mass=%v changed", tick, i, b.Radius, b.Mass)
			}
		}
	}
}

func TestCircleContainment(t *testing.T) {
	arena := Arena{Kind: ArenaCircle, Radius: 4}
	sim := NewSimulation(crowdedScene(arena))

	for tick := 0; tick < 900; tick++ {
		if err := sim.Step(); err != nil {
			t.Fatalf("step %d failed: %v", tick, err)
		}
		for i, b := range sim.balls {
			if d := b.Position.Magnitude(); d > arena.Radius-b.Radius+tolerance {
				t.Fatalf("tick %d ball %d outside circle: |p|=%.12f limit=%.12f", tick, i, d, arena.Radius-b.Radius)
			}
		}
	}
}

func TestStadiumContainment(t *testing.T) {
	arena := Arena{Kind: ArenaStadium, Width: 10, Height: 6, CornerRadius: 1.5}
	sim := NewSimulation(crowdedScene(arena))

	hw, hh, cr := arena.Width/2, arena.Height/2, arena.CornerRadius
	flatW, flatH := hw-cr, hh-cr

	for tick := 0; tick < 900; tick++ {
		if err := sim.Step(); err != nil {
			t.Fatalf("step %d failed: %v", tick, err)
		}
		for i, b := range sim.balls {
			x, y := math.Abs(b.Position.X), math.Abs(b.Position.Y)
			if x > hw-b.Radius+tolerance || y > hh-b.Radius+tolerance {
				t.Fatalf("tick %d ball %d beyond flat edge: (%.6f, %.6f)", tick, i, b.Position.X, b.Position.Y)
			}
			if x > flatW && y > flatH {
				d := math.Hypot(x-flatW, y-flatH)
				if d > cr-b.Radius+tolerance {
					t.Fatalf("tick %d ball %d beyond corner arc: d=%.6f", tick, i, d)
				}
			}
		}
	}
}

func TestDeterminism(t *testing.T) {
	arena := Arena{Kind: ArenaStadium, Width: 10, Height: 6, CornerRadius: 1.5,
		Bumpers: []Bumper{
			{Position: NewVec2(-2, 0), Radius: 0.5, Restitution: 1.35},
			{Position: NewVec2(2, 0.5), Radius: 0.4, Restitution: 1.2},
		}}

	run := func() []Ball {
		sim := NewSimulation(crowdedScene(arena))
		stepN(t, sim, 1200)
		return sim.Balls()
	}

	first, second := run(), run()
	for i := range first {
		if first[i].Position != second[i].Position || first[i].Velocity != second[i].Velocity {
			t.Errorf("non-deterministic ball %d: run1=%+v run2=%+v", i, first[i], second[i])
		}
	}
}

func TestNonFiniteStateIsReported(t *testing.T) {
	sim := NewSimulation(testScene(Arena{Kind: ArenaCircle, Radius: 5},
		player("A1", 0, 0, math.NaN(), 0),
	))

	err := sim.Step()
	if !errors.Is(err, ErrNonFiniteState) {
		t.Fatalf("expected ErrNonFiniteState, got %v", err)
	}
}

func TestInvalidStadiumGeometryFailsFast(t *testing.T) {
	sim := NewSimulation(testScene(Arena{Kind: ArenaStadium, Width: 6, Height: 4, CornerRadius: 2.5},
		player("A1", 0, 0, 1, 0),
	))

	if err := sim.Step(); !errors.Is(err, ErrInvalidArenaGeometry) {
		t.Fatalf("expected ErrInvalidArenaGeometry, got %v", err)
	}
}

func TestBallsReturnsCopy(t *testing.T) {
	sim := NewSimulation(testScene(Arena{Kind: ArenaCircle, Radius: 5},
		player("A1", 1, 0, 0, 0),
	))

	balls := sim.Balls()
	balls[0].Position = NewVec2(99, 99)

	if sim.balls[0].Position != NewVec2(1, 0) {
		t.Errorf("mutating Balls() result changed live state: %+v", sim.balls[0].Position)
	}
}

// crowdedScene spawns a deterministic grid of fast balls inside arena.
func crowdedScene(arena Arena) Scene {
	spawns := make([]Player, 0, 12)
	for row := 0; row < 3; row++ {
		for col := 0; col < 4; col++ {
			x := -1.8 + float64(col)*1.2
			y := -1.2 + float64(row)*1.2
			vx := 3.0 * math.Cos(float64(row*4+col)*0.9)
			vy := 3.0 * math.Sin(float64(row*4+col)*0.9)
			spawns = append(spawns, player("P", x, y, vx, vy))
		}
	}
	scene := testScene(arena, spawns...)
	scene.BallRadius = 0.3
	scene.Restitution = 1.0
	scene.Friction = 1.0
	return scene
}
