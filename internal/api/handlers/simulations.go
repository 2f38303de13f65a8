package handlers

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/powerpit/backend/internal/config"
	"github.com/powerpit/backend/internal/models"
	"github.com/powerpit/backend/internal/physics"
	"github.com/powerpit/backend/internal/runs"
	"github.com/powerpit/backend/internal/scene"
	"github.com/powerpit/backend/internal/ws"
)

const maxSceneBytes = 1 << 20

// CreateSimulation runs a YAML scene posted in the body to completion and
// records it.
func CreateSimulation(rec *runs.Recorder, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxSceneBytes))
		if err != nil {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "scene body too large"})
			return
		}

		loaded, err := scene.Parse(body)
		if err != nil {
			var verr *scene.ValidationError
			if errors.As(err, &verr) {
				c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		sc := loaded.Scene
		if frames := sc.FrameCount(); frames > cfg.MaxSimulationFrames {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "scene produces too many frames",
				"limit": cfg.MaxSimulationFrames,
				"got":   frames,
			})
			return
		}

		var seed *int64
		if raw := c.Query("seed"); raw != "" {
			v, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid seed"})
				return
			}
			seed = &v
		}
		if seed != nil && loaded.SpawnJitter > 0 {
			sc = scene.Jitter(sc, loaded.SpawnJitter, uint64(*seed))
		}

		includeFrames := c.Query("frames") == "true"
		var frames []physics.Snapshot
		var onFrame func(physics.Snapshot) error
		if includeFrames {
			frames = make([]physics.Snapshot, 0, sc.FrameCount())
			onFrame = func(s physics.Snapshot) error {
				frames = append(frames, s)
				return nil
			}
		}

		res, err := rec.Execute(c.Request.Context(), runs.StartParams{
			Scene:     sc,
			SceneYAML: body,
			Seed:      seed,
			CreatedBy: c.GetString(ctxOperatorName),
		}, onFrame)
		if err != nil {
			log.Printf("[API] Simulation %q failed after %d frames: %v", sc.Name, res.Frames, err)
			status := http.StatusInternalServerError
			if errors.Is(err, physics.ErrNonFiniteState) || errors.Is(err, physics.ErrInvalidArenaGeometry) {
				status = http.StatusUnprocessableEntity
			}
			c.JSON(status, gin.H{"error": err.Error(), "run_id": res.RunID, "frames": res.Frames})
			return
		}

		if res.RunID != 0 {
			c.Header("X-Run-ID", strconv.FormatInt(res.RunID, 10))
		}
		resp := gin.H{
			"run_id":          res.RunID,
			"scene":           sc.Name,
			"arena_type":      sc.Arena.Kind,
			"frame_rate":      sc.FrameRate,
			"frames":          res.Frames,
			"steps_per_frame": physics.StepsPerFrame(sc.FrameRate),
			"final":           res.Final,
			"contacts":        res.Contacts,
		}
		if includeFrames {
			resp["snapshots"] = frames
		}
		c.JSON(http.StatusCreated, resp)
	}
}

// ListSimulations returns recorded runs, newest first
func ListSimulations(rec *runs.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := queryInt(c, "limit", 20)
		offset := queryInt(c, "offset", 0)
		if limit < 1 || limit > 100 || offset < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be 1..100 and offset >= 0"})
			return
		}

		list, err := rec.List(c.Request.Context(), limit, offset)
		if err != nil {
			log.Printf("[API] %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"runs": list, "limit": limit, "offset": offset})
	}
}

// GetSimulation returns one recorded run
func GetSimulation(rec *runs.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		run, ok := loadRun(c, rec)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, run)
	}
}

// SimulationWebSocket streams a run's frames. Running runs are followed
// live over Redis; finished ones are replayed from the stored scene.
func SimulationWebSocket(rec *runs.Recorder, streamer *ws.Streamer) gin.HandlerFunc {
	return func(c *gin.Context) {
		run, ok := loadRun(c, rec)
		if !ok {
			return
		}
		name := "run " + strconv.FormatInt(run.ID, 10)

		if run.Status == models.RunStatusRunning {
			current, followed := followRun(c, rec, streamer, run, name)
			if followed {
				return
			}
			if current != nil {
				run = current
			}
		}

		loaded, err := scene.Parse([]byte(run.SceneYAML))
		if err != nil {
			log.Printf("[API] Stored scene for %s no longer parses: %v", name, err)
			c.JSON(http.StatusConflict, gin.H{"error": "stored scene is invalid"})
			return
		}
		sc := loaded.Scene
		if run.Seed.Valid && loaded.SpawnJitter > 0 {
			sc = scene.Jitter(sc, loaded.SpawnJitter, uint64(run.Seed.Int64))
		}
		streamer.Replay(c.Writer, c.Request, name, sc)
	}
}

// followRun streams a RUNNING run from its live feed. When the feed is
// unavailable or the run finished before the subscription was in place it
// reports false, with the reloaded row when one was read.
func followRun(c *gin.Context, rec *runs.Recorder, streamer *ws.Streamer, run *models.SimulationRun, name string) (*models.SimulationRun, bool) {
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	feed, err := rec.Subscribe(ctx, run.ID)
	if err != nil {
		log.Printf("[API] Live feed for %s unavailable, replaying: %v", name, err)
		return nil, false
	}

	current, err := rec.Get(ctx, run.ID)
	if err != nil {
		log.Printf("[API] Reload of %s failed, replaying: %v", name, err)
		return nil, false
	}
	if current.Status != models.RunStatusRunning {
		return current, false
	}

	latest, err := rec.LatestFrame(ctx, run.ID)
	if err != nil {
		log.Printf("[API] %v", err)
	}
	streamer.Follow(c.Writer, c.Request, name, feed, latest, current.FrameCount)
	return current, true
}

func loadRun(c *gin.Context, rec *runs.Recorder) (*models.SimulationRun, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return nil, false
	}

	run, err := rec.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, runs.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return nil, false
		}
		log.Printf("[API] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return nil, false
	}
	return run, true
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return v
}
