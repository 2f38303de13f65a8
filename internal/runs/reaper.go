package runs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/powerpit/backend/internal/models"
)

const abandonedMessage = "abandoned: run did not finish"

var errAbandoned = errors.New(abandonedMessage)

// ReapStale marks RUNNING runs created more than olderThan ago as FAILED.
// Such rows are left behind when a process dies mid-simulation.
func (r *Recorder) ReapStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	if r == nil || r.db == nil {
		return 0, nil
	}

	var ids []int64
	err := r.db.SelectContext(ctx, &ids, `
		UPDATE simulation_runs
		SET status = $1, error_message = $2, completed_at = NOW()
		WHERE status = $3 AND created_at < NOW() - make_interval(secs => $4)
		RETURNING id`,
		models.RunStatusFailed, abandonedMessage, models.RunStatusRunning, olderThan.Seconds(),
	)
	if err != nil {
		return 0, fmt.Errorf("reap stale runs: %w", err)
	}

	for _, id := range ids {
		if err := r.publishDone(ctx, id, errAbandoned); err != nil {
			log.Printf("[REAPER] %v", err)
		}
	}
	return int64(len(ids)), nil
}

// StartReaper runs ReapStale every interval until ctx is done.
func (r *Recorder) StartReaper(ctx context.Context, interval, olderThan time.Duration) {
	if r == nil || r.db == nil || interval <= 0 {
		log.Println("[REAPER] Database missing or interval unset; stale run reaper not started")
		return
	}

	log.Printf("[REAPER] Starting stale run reaper (poll every %v, max age %v)", interval, olderThan)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Println("[REAPER] Reaper stopped")
				return
			case <-ticker.C:
				n, err := r.ReapStale(ctx, olderThan)
				if err != nil {
					log.Printf("[REAPER] %v", err)
					continue
				}
				if n > 0 {
					log.Printf("[REAPER] Marked %d abandoned runs as FAILED", n)
				}
			}
		}
	}()
}
