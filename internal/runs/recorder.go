package runs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/powerpit/backend/internal/models"
	"github.com/powerpit/backend/internal/physics"
	rediskeys "github.com/powerpit/backend/internal/redis"
	"github.com/redis/go-redis/v9"
)

// ErrRunNotFound is returned by Get for unknown run IDs.
var ErrRunNotFound = errors.New("simulation run not found")

const latestFrameTTL = time.Hour

// Recorder persists simulation runs to PostgreSQL and fans frames out over
// Redis. Either backend may be nil; the matching operations then no-op.
type Recorder struct {
	db  *sqlx.DB
	rdb *redis.Client
}

func NewRecorder(db *sqlx.DB, rdb *redis.Client) *Recorder {
	return &Recorder{db: db, rdb: rdb}
}

// StartParams describes a run about to be executed.
type StartParams struct {
	Scene     physics.Scene
	SceneYAML []byte
	Seed      *int64
	CreatedBy string
}

// Start records a new RUNNING run and returns its ID (0 without a DB).
func (r *Recorder) Start(ctx context.Context, p StartParams) (int64, error) {
	if r == nil || r.db == nil {
		return 0, nil
	}

	seed := sql.NullInt64{}
	if p.Seed != nil {
		seed = sql.NullInt64{Int64: *p.Seed, Valid: true}
	}
	createdBy := sql.NullString{String: p.CreatedBy, Valid: p.CreatedBy != ""}

	var id int64
	err := r.db.GetContext(ctx, &id, `
		INSERT INTO simulation_runs (scene_name, arena_type, frame_rate, frame_count, ball_count, seed, scene_yaml, status, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING id`,
		p.Scene.Name, string(p.Scene.Arena.Kind), p.Scene.FrameRate, p.Scene.FrameCount(),
		p.Scene.PlayerCount(), seed, string(p.SceneYAML), models.RunStatusRunning, createdBy,
	)
	if err != nil {
		return 0, fmt.Errorf("insert simulation run: %w", err)
	}

	log.Printf("[RUNS] Run %d started (scene=%s, frames=%d)", id, p.Scene.Name, p.Scene.FrameCount())
	return id, nil
}

// PublishFrame broadcasts a snapshot on the run's channel and caches it as
// the run's latest frame.
func (r *Recorder) PublishFrame(ctx context.Context, runID int64, snap physics.Snapshot) error {
	if r == nil || r.rdb == nil || runID == 0 {
		return nil
	}

	packed, err := EncodeFrame(FrameMessage{RunID: runID, Snapshot: snap})
	if err != nil {
		return err
	}
	latest, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal latest frame: %w", err)
	}

	pipe := r.rdb.Pipeline()
	pipe.Publish(ctx, rediskeys.FrameChannel(runID), packed)
	pipe.Set(ctx, rediskeys.LatestFrameKey(runID), latest, latestFrameTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish frame %d of run %d: %w", snap.FrameIndex, runID, err)
	}
	return nil
}

// FinishParams carries the outcome of a run.
type FinishParams struct {
	FramesDone int
	Final      *physics.Snapshot
	Contacts   physics.ContactStats
	Err        error
}

// Finish marks the run COMPLETED, or FAILED when p.Err is set.
func (r *Recorder) Finish(ctx context.Context, runID int64, p FinishParams) error {
	if r == nil || r.db == nil || runID == 0 {
		return nil
	}

	status := models.RunStatusCompleted
	errMsg := sql.NullString{}
	if p.Err != nil {
		status = models.RunStatusFailed
		errMsg = sql.NullString{String: p.Err.Error(), Valid: true}
	}

	var final []byte
	if p.Final != nil {
		b, err := json.Marshal(p.Final)
		if err != nil {
			return fmt.Errorf("marshal final state: %w", err)
		}
		final = b
	}
	contacts, err := json.Marshal(p.Contacts)
	if err != nil {
		return fmt.Errorf("marshal contacts: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE simulation_runs
		SET status = $2, error_message = $3, frames_done = $4, final_state = $5::jsonb, contacts = $6::jsonb, completed_at = NOW()
		WHERE id = $1`,
		runID, status, errMsg, p.FramesDone, nullableJSON(final), string(contacts),
	)
	// Followers are released even when the row update failed.
	if perr := r.publishDone(ctx, runID, p.Err); perr != nil {
		log.Printf("[RUNS] %v", perr)
	}
	if err != nil {
		return fmt.Errorf("finish simulation run %d: %w", runID, err)
	}

	log.Printf("[RUNS] Run %d finished: status=%s frames=%d", runID, status, p.FramesDone)
	return nil
}

// publishDone sends the terminal message of a run on its frame channel.
func (r *Recorder) publishDone(ctx context.Context, runID int64, runErr error) error {
	if r.rdb == nil {
		return nil
	}

	m := FrameMessage{RunID: runID, Done: true}
	if runErr != nil {
		m.Error = runErr.Error()
	}
	packed, err := EncodeFrame(m)
	if err != nil {
		return err
	}
	if err := r.rdb.Publish(ctx, rediskeys.FrameChannel(runID), packed).Err(); err != nil {
		return fmt.Errorf("publish end of run %d: %w", runID, err)
	}
	return nil
}

func nullableJSON(b []byte) sql.NullString {
	if b == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

const runColumns = `id, scene_name, arena_type, frame_rate, frame_count, ball_count, seed, scene_yaml,
	status, error_message, frames_done, COALESCE(final_state, 'null'::jsonb) AS final_state,
	COALESCE(contacts, 'null'::jsonb) AS contacts, created_by, created_at, completed_at`

// Get loads a single run.
func (r *Recorder) Get(ctx context.Context, runID int64) (*models.SimulationRun, error) {
	if r == nil || r.db == nil {
		return nil, ErrRunNotFound
	}

	var run models.SimulationRun
	err := r.db.GetContext(ctx, &run, `SELECT `+runColumns+` FROM simulation_runs WHERE id = $1`, runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("load simulation run %d: %w", runID, err)
	}
	return &run, nil
}

// List returns recent runs, newest first.
func (r *Recorder) List(ctx context.Context, limit, offset int) ([]models.SimulationRun, error) {
	if r == nil || r.db == nil {
		return []models.SimulationRun{}, nil
	}

	runs := []models.SimulationRun{}
	err := r.db.SelectContext(ctx, &runs, `SELECT `+runColumns+` FROM simulation_runs ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list simulation runs: %w", err)
	}
	return runs, nil
}

// LatestFrame returns the cached most recent snapshot of a run, or nil when
// none is cached.
func (r *Recorder) LatestFrame(ctx context.Context, runID int64) (*physics.Snapshot, error) {
	if r == nil || r.rdb == nil {
		return nil, nil
	}

	data, err := r.rdb.Get(ctx, rediskeys.LatestFrameKey(runID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load latest frame of run %d: %w", runID, err)
	}
	var snap physics.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode latest frame of run %d: %w", runID, err)
	}
	return &snap, nil
}

// Subscribe follows a run's frame channel. The returned channel delivers
// frames and then the run's Done message, after which it is closed. It is
// also closed when ctx is done or the subscription drops.
func (r *Recorder) Subscribe(ctx context.Context, runID int64) (<-chan FrameMessage, error) {
	if r == nil || r.rdb == nil {
		return nil, errors.New("redis not configured")
	}

	pubsub := r.rdb.Subscribe(ctx, rediskeys.FrameChannel(runID))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe to run %d: %w", runID, err)
	}

	out := make(chan FrameMessage, 16)
	go func() {
		defer pubsub.Close()
		forwardFrames(ctx, pubsub.Channel(), out)
	}()

	return out, nil
}

// forwardFrames decodes pub/sub payloads into out until a Done message has
// been forwarded, in is closed or ctx is done. out is always closed.
func forwardFrames(ctx context.Context, in <-chan *redis.Message, out chan<- FrameMessage) {
	defer close(out)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			frame, err := DecodeFrame([]byte(msg.Payload))
			if err != nil {
				log.Printf("[RUNS] invalid frame payload on %s: %v", msg.Channel, err)
				continue
			}
			select {
			case out <- frame:
			case <-ctx.Done():
				return
			}
			if frame.Done {
				return
			}
		}
	}
}
