package models

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// Run statuses stored in simulation_runs.status.
const (
	RunStatusRunning   = "RUNNING"
	RunStatusCompleted = "COMPLETED"
	RunStatusFailed    = "FAILED"
)

// SimulationRun is one recorded execution of a scene.
type SimulationRun struct {
	ID           int64           `db:"id" json:"id"`
	SceneName    string          `db:"scene_name" json:"scene_name"`
	ArenaType    string          `db:"arena_type" json:"arena_type"`
	FrameRate    int             `db:"frame_rate" json:"frame_rate"`
	FrameCount   int             `db:"frame_count" json:"frame_count"`
	BallCount    int             `db:"ball_count" json:"ball_count"`
	Seed         sql.NullInt64   `db:"seed" json:"seed,omitempty"`
	SceneYAML    string          `db:"scene_yaml" json:"-"`
	Status       string          `db:"status" json:"status"`
	ErrorMessage sql.NullString  `db:"error_message" json:"error_message,omitempty"`
	FramesDone   int             `db:"frames_done" json:"frames_done"`
	FinalState   json.RawMessage `db:"final_state" json:"final_state,omitempty"`
	Contacts     json.RawMessage `db:"contacts" json:"contacts,omitempty"`
	CreatedBy    sql.NullString  `db:"created_by" json:"created_by,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	CompletedAt  sql.NullTime    `db:"completed_at" json:"completed_at,omitempty"`
}

// Operator is an account allowed to submit scenes to the API.
type Operator struct {
	ID        int            `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	TokenHash string         `db:"token_hash" json:"-"`
	Roles     pq.StringArray `db:"roles" json:"roles"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}
