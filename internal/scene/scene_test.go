package scene

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/powerpit/backend/internal/physics"
)

const minimalScene = `
name: Demo
arena:
  type: circle
  radius: 5
teams:
  - name: Red
    players:
      - spawn: [1, 0]
`

func writeScene(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scene.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write scene: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	loaded, err := Load(writeScene(t, minimalScene))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	s := loaded.Scene
	if s.Name != "Demo" {
		t.Errorf("name = %q, want Demo", s.Name)
	}
	if s.FrameRate != DefaultFrameRate {
		t.Errorf("frame_rate = %d, want %d", s.FrameRate, DefaultFrameRate)
	}
	if s.DurationSeconds != DefaultDuration {
		t.Errorf("duration = %v, want %v", s.DurationSeconds, DefaultDuration)
	}
	if s.BallRadius != DefaultBallRadius || s.BallMass != DefaultBallMass {
		t.Errorf("ball radius/mass = %v/%v, want defaults", s.BallRadius, s.BallMass)
	}
	if s.Friction != DefaultFriction || s.Restitution != DefaultRestitution {
		t.Errorf("friction/restitution = %v/%v, want defaults", s.Friction, s.Restitution)
	}
	if s.Arena.Kind != physics.ArenaCircle {
		t.Errorf("arena kind = %q, want circle", s.Arena.Kind)
	}
	p := s.Teams[0].Players[0]
	if p.Name != "Red1" {
		t.Errorf("generated player name = %q, want Red1", p.Name)
	}
	if !p.Velocity.IsZero() {
		t.Errorf("default velocity = %+v, want zero", p.Velocity)
	}
	if s.FrameCount() != 300 {
		t.Errorf("frame count = %d, want 300", s.FrameCount())
	}
}

func TestParseFullStadiumScene(t *testing.T) {
	doc := `
name: Pinball
duration_seconds: 2
frame_rate: 24
ball_radius: 0.3
ball_mass: 2
friction: 0.995
restitution: 0.9
arena:
  type: stadium
  width: 12
  height: 8
  corner_radius: 2
  bumpers:
    - position: [1, 0]
      radius: 0.5
      restitution: 1.35
    - position: [-2, 1]
      radius: 0.4
teams:
  - name: Red
    color: [255, 0, 0]
    players:
      - name: R1
        spawn: [4.5, 3]
        velocity: [2.5, 1.5]
  - name: Blue
    color: [0, 0, 255]
    players:
      - name: B1
        spawn: [-4.5, -3]
        velocity: [-2.5, -1.5]
`
	loaded, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	s := loaded.Scene
	if s.Arena.Kind != physics.ArenaStadium || s.Arena.Width != 12 || s.Arena.CornerRadius != 2 {
		t.Errorf("unexpected arena: %+v", s.Arena)
	}
	if len(s.Arena.Bumpers) != 2 {
		t.Fatalf("bumpers = %d, want 2", len(s.Arena.Bumpers))
	}
	if s.Arena.Bumpers[0].Restitution != 1.35 {
		t.Errorf("bumper restitution = %v, want 1.35", s.Arena.Bumpers[0].Restitution)
	}
	if s.Arena.Bumpers[1].Restitution != DefaultBumperRestitution {
		t.Errorf("default bumper restitution = %v, want %v", s.Arena.Bumpers[1].Restitution, DefaultBumperRestitution)
	}
	if s.Teams[1].Color != (physics.RGB{B: 255}) {
		t.Errorf("blue color = %+v", s.Teams[1].Color)
	}
	if s.Teams[0].Players[0].Velocity != physics.NewVec2(2.5, 1.5) {
		t.Errorf("velocity = %+v", s.Teams[0].Players[0].Velocity)
	}
	if s.FrameCount() != 48 {
		t.Errorf("frame count = %d, want 48", s.FrameCount())
	}
	if string(loaded.Source) != doc {
		t.Error("loader should keep the source document")
	}
}

func TestParseRejectsInvalidScenes(t *testing.T) {
	cases := []struct {
		name  string
		doc   string
		field string
	}{
		{"unsupported arena", `
name: Demo
arena: {type: hexagon}
teams: [{name: A, players: [{spawn: [0, 0]}]}]
`, "arena.type"},
		{"donut arena", `
name: Demo
arena: {type: donut, radius: 4}
teams: [{name: A, players: [{spawn: [0, 0]}]}]
`, "arena.type"},
		{"missing name", `
arena: {type: circle, radius: 5}
teams: [{name: A, players: [{spawn: [0, 0]}]}]
`, "name"},
		{"negative frame rate", `
name: Demo
frame_rate: -3
arena: {type: circle, radius: 5}
teams: [{name: A, players: [{spawn: [0, 0]}]}]
`, "frame_rate"},
		{"frame rate too high", `
name: Demo
duration_seconds: 0.000001
frame_rate: 2000000000
arena: {type: circle, radius: 5}
teams: [{name: A, players: [{spawn: [0, 0]}]}]
`, "frame_rate"},
		{"duration shorter than a frame", `
name: Demo
duration_seconds: 0.01
frame_rate: 30
arena: {type: circle, radius: 5}
teams: [{name: A, players: [{spawn: [0, 0]}]}]
`, "duration_seconds"},
		{"corner radius too big", `
name: Demo
arena: {type: stadium, width: 6, height: 4, corner_radius: 2.5}
teams: [{name: A, players: [{spawn: [0, 0]}]}]
`, "arena.corner_radius"},
		{"friction above one", `
name: Demo
friction: 1.2
arena: {type: circle, radius: 5}
teams: [{name: A, players: [{spawn: [0, 0]}]}]
`, "friction"},
		{"spawn outside", `
name: Demo
arena: {type: circle, radius: 5}
teams: [{name: A, players: [{spawn: [4.9, 0]}]}]
`, "teams[0].players[0].spawn"},
		{"bad spawn pair", `
name: Demo
arena: {type: circle, radius: 5}
teams: [{name: A, players: [{spawn: [1]}]}]
`, "teams[0].players[0].spawn"},
		{"zero bumper radius", `
name: Demo
arena: {type: circle, radius: 5, bumpers: [{position: [1, 1], radius: 0}]}
teams: [{name: A, players: [{spawn: [0, 0]}]}]
`, "arena.bumpers[0].radius"},
		{"no teams", `
name: Demo
arena: {type: circle, radius: 5}
`, "teams"},
		{"missing arena", `
name: Demo
teams: [{name: A, players: [{spawn: [0, 0]}]}]
`, "arena"},
		{"color out of range", `
name: Demo
arena: {type: circle, radius: 5}
teams: [{name: A, color: [300, 0, 0], players: [{spawn: [0, 0]}]}]
`, "teams[0].color"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			if !errors.Is(err, ErrInvalidScene) {
				t.Fatalf("expected ErrInvalidScene, got %v", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if verr.Field != tc.field {
				t.Errorf("field = %q, want %q (%v)", verr.Field, tc.field, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	if _, err := Parse([]byte("name: [unclosed")); err == nil {
		t.Fatal("expected a yaml error")
	}
}

func TestContainsStadiumCorner(t *testing.T) {
	arena := physics.Arena{Kind: physics.ArenaStadium, Width: 12, Height: 8, CornerRadius: 2}
	if !Contains(arena, physics.NewVec2(4.5, 3), 0.4) {
		t.Error("point near the corner centre should fit")
	}
	if Contains(arena, physics.NewVec2(5.5, 3.5), 0.4) {
		t.Error("point in the cut-off corner should not fit")
	}
	if !Contains(arena, physics.NewVec2(5.6, 0), 0.4) {
		t.Error("point on the flat right limit should fit")
	}
}

func TestJitterIsSeededAndContained(t *testing.T) {
	loaded, err := Parse([]byte(minimalScene))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	base := loaded.Scene

	a := Jitter(base, 0.5, 42)
	b := Jitter(base, 0.5, 42)
	c := Jitter(base, 0.5, 7)

	pa, pb, pc := a.Teams[0].Players[0].Spawn, b.Teams[0].Players[0].Spawn, c.Teams[0].Players[0].Spawn
	if pa != pb {
		t.Errorf("same seed should give the same spawn: %+v vs %+v", pa, pb)
	}
	if pa == pc {
		t.Errorf("different seeds should move the spawn differently: %+v", pa)
	}
	if base.Teams[0].Players[0].Spawn != physics.NewVec2(1, 0) {
		t.Errorf("jitter must not mutate the input scene")
	}
	if d := pa.Minus(physics.NewVec2(1, 0)).Magnitude(); d > 0.5 {
		t.Errorf("displacement %.4f exceeds amount", d)
	}
	if err := Validate(a); err != nil {
		t.Errorf("jittered scene should validate: %v", err)
	}
	if Jitter(base, 0, 42).Teams[0].Players[0].Spawn != physics.NewVec2(1, 0) {
		t.Error("zero amount must be a no-op")
	}
}

func TestShippedScenesLoad(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("..", "..", "scenes", "*.yaml"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(paths) == 0 {
		t.Skip("no shipped scenes found")
	}
	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			loaded, err := Load(path)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			sampler := physics.SimulateFrames(loaded.Scene)
			for sampler.Next() {
			}
			if err := sampler.Err(); err != nil {
				t.Errorf("simulation failed: %v", err)
			}
		})
	}
}
