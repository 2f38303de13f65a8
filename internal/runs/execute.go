package runs

import (
	"context"
	"fmt"
	"log"

	"github.com/powerpit/backend/internal/physics"
)

// Result summarizes an executed run.
type Result struct {
	RunID    int64                `json:"run_id"`
	Frames   int                  `json:"frames"`
	Final    *physics.Snapshot    `json:"final,omitempty"`
	Contacts physics.ContactStats `json:"contacts"`
}

// Execute simulates p.Scene to completion. Every snapshot is published and
// passed to onFrame (which may be nil); the run row is finished whatever
// the outcome.
func (r *Recorder) Execute(ctx context.Context, p StartParams, onFrame func(physics.Snapshot) error) (Result, error) {
	runID, err := r.Start(ctx, p)
	if err != nil {
		return Result{}, err
	}

	res := Result{RunID: runID}
	sampler := physics.SimulateFrames(p.Scene)

	runErr := func() error {
		for sampler.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			snap := sampler.Snapshot()
			res.Frames++
			res.Final = &snap

			if err := r.PublishFrame(ctx, runID, snap); err != nil {
				log.Printf("[RUNS] %v", err)
			}
			if onFrame != nil {
				if err := onFrame(snap); err != nil {
					return fmt.Errorf("frame %d: %w", snap.FrameIndex, err)
				}
			}
		}
		return sampler.Err()
	}()
	res.Contacts = sampler.Simulation().Contacts()

	finishErr := r.Finish(context.WithoutCancel(ctx), runID, FinishParams{
		FramesDone: res.Frames,
		Final:      res.Final,
		Contacts:   res.Contacts,
		Err:        runErr,
	})
	if runErr != nil {
		return res, runErr
	}
	return res, finishErr
}
