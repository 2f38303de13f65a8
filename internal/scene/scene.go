// Package scene loads and validates scene descriptions written in YAML and
// turns them into physics.Scene values.
package scene

import (
	"errors"
	"fmt"
	"os"

	"github.com/powerpit/backend/internal/physics"
	"gopkg.in/yaml.v3"
)

// Defaults applied to fields a scene file leaves out.
const (
	DefaultFrameRate         = 30
	DefaultDuration          = 10.0
	DefaultBallRadius        = 0.4
	DefaultBallMass          = 1.0
	DefaultFriction          = 0.999
	DefaultRestitution       = 0.98
	DefaultBumperRestitution = 1.25
)

// MaxFrameRate is the highest accepted frame_rate.
const MaxFrameRate = 1000

// ErrInvalidScene is wrapped by every validation failure.
var ErrInvalidScene = errors.New("invalid scene")

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("scene field '%s' %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidScene
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// File is the on-disk layout of a scene.
type File struct {
	Name            string     `yaml:"name"`
	DurationSeconds *float64   `yaml:"duration_seconds"`
	FrameRate       *int       `yaml:"frame_rate"`
	BallRadius      *float64   `yaml:"ball_radius"`
	BallMass        *float64   `yaml:"ball_mass"`
	Friction        *float64   `yaml:"friction"`
	Restitution     *float64   `yaml:"restitution"`
	SpawnJitter     float64    `yaml:"spawn_jitter"`
	Arena           *ArenaFile `yaml:"arena"`
	Teams           []TeamFile `yaml:"teams"`
}

type ArenaFile struct {
	Type         string       `yaml:"type"`
	Radius       float64      `yaml:"radius"`
	Width        float64      `yaml:"width"`
	Height       float64      `yaml:"height"`
	CornerRadius float64      `yaml:"corner_radius"`
	Bumpers      []BumperFile `yaml:"bumpers"`
}

type BumperFile struct {
	Position    []float64 `yaml:"position"`
	Radius      float64   `yaml:"radius"`
	Restitution *float64  `yaml:"restitution"`
}

type TeamFile struct {
	Name    string       `yaml:"name"`
	Color   []int        `yaml:"color"`
	Players []PlayerFile `yaml:"players"`
}

type PlayerFile struct {
	Name     string    `yaml:"name"`
	Spawn    []float64 `yaml:"spawn"`
	Velocity []float64 `yaml:"velocity"`
}

// Loaded is a validated scene together with loader-only settings.
type Loaded struct {
	Scene       physics.Scene
	SpawnJitter float64
	Source      []byte
}

// Load reads, parses and validates the scene file at path.
func Load(path string) (*Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML scene document.
func Parse(data []byte) (*Loaded, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse scene yaml: %w", err)
	}

	s, err := f.build()
	if err != nil {
		return nil, err
	}
	if err := Validate(s); err != nil {
		return nil, err
	}
	if f.SpawnJitter < 0 {
		return nil, invalid("spawn_jitter", "must be >= 0")
	}

	return &Loaded{Scene: s, SpawnJitter: f.SpawnJitter, Source: data}, nil
}

func (f *File) build() (physics.Scene, error) {
	s := physics.Scene{
		Name:            f.Name,
		DurationSeconds: floatOr(f.DurationSeconds, DefaultDuration),
		FrameRate:       intOr(f.FrameRate, DefaultFrameRate),
		BallRadius:      floatOr(f.BallRadius, DefaultBallRadius),
		BallMass:        floatOr(f.BallMass, DefaultBallMass),
		Friction:        floatOr(f.Friction, DefaultFriction),
		Restitution:     floatOr(f.Restitution, DefaultRestitution),
	}

	if f.Arena == nil {
		return s, invalid("arena", "is missing")
	}
	s.Arena = physics.Arena{
		Kind:         physics.ArenaKind(f.Arena.Type),
		Radius:       f.Arena.Radius,
		Width:        f.Arena.Width,
		Height:       f.Arena.Height,
		CornerRadius: f.Arena.CornerRadius,
	}
	for i, b := range f.Arena.Bumpers {
		field := fmt.Sprintf("arena.bumpers[%d]", i)
		pos, err := vec(field+".position", b.Position, false)
		if err != nil {
			return s, err
		}
		s.Arena.Bumpers = append(s.Arena.Bumpers, physics.Bumper{
			Position:    pos,
			Radius:      b.Radius,
			Restitution: floatOr(b.Restitution, DefaultBumperRestitution),
		})
	}

	for ti, t := range f.Teams {
		field := fmt.Sprintf("teams[%d]", ti)
		color, err := rgb(field+".color", t.Color)
		if err != nil {
			return s, err
		}
		team := physics.Team{Name: t.Name, Color: color}
		for pi, p := range t.Players {
			pfield := fmt.Sprintf("%s.players[%d]", field, pi)
			spawn, err := vec(pfield+".spawn", p.Spawn, false)
			if err != nil {
				return s, err
			}
			velocity, err := vec(pfield+".velocity", p.Velocity, true)
			if err != nil {
				return s, err
			}
			name := p.Name
			if name == "" {
				name = fmt.Sprintf("%s%d", t.Name, pi+1)
			}
			team.Players = append(team.Players, physics.Player{Name: name, Spawn: spawn, Velocity: velocity})
		}
		s.Teams = append(s.Teams, team)
	}

	return s, nil
}

func vec(field string, v []float64, optional bool) (physics.Vec2, error) {
	if len(v) == 0 && optional {
		return physics.Vec2{}, nil
	}
	if len(v) != 2 {
		return physics.Vec2{}, invalid(field, "must be a [x, y] pair")
	}
	return physics.NewVec2(v[0], v[1]), nil
}

var defaultColor = physics.RGB{R: 230, G: 230, B: 230}

func rgb(field string, c []int) (physics.RGB, error) {
	if len(c) == 0 {
		return defaultColor, nil
	}
	if len(c) != 3 {
		return physics.RGB{}, invalid(field, "must be an [r, g, b] triple")
	}
	for _, v := range c {
		if v < 0 || v > 255 {
			return physics.RGB{}, invalid(field, "components must be within 0..255")
		}
	}
	return physics.RGB{R: uint8(c[0]), G: uint8(c[1]), B: uint8(c[2])}, nil
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
