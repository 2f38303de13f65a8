package render

import (
	"context"
	"fmt"
	"image"
	"io"
	"log"

	"github.com/powerpit/backend/internal/physics"
	"golang.org/x/sync/errgroup"
)

// Options configures Export.
type Options struct {
	Width  int
	Height int

	// Encoder receives every frame and is closed by Export.
	Encoder Encoder

	// Preview is optional. If it fails it is dropped and the export
	// continues without it.
	Preview FrameConsumer

	// OnSnapshot, when set, observes each snapshot before its frame is
	// encoded.
	OnSnapshot func(physics.Snapshot)
}

// Result summarizes a finished export.
type Result struct {
	Frames   int
	Final    *physics.Snapshot
	Contacts physics.ContactStats
}

type renderedFrame struct {
	snap  physics.Snapshot
	image *image.RGBA
}

// Export simulates scene and streams the rendered frames into the encoder.
// Simulation and rasterization run on one goroutine, consumers on another,
// with at most one frame in flight between them.
func Export(ctx context.Context, scene physics.Scene, opts Options) (Result, error) {
	if opts.Encoder == nil {
		return Result{}, fmt.Errorf("export %q: no encoder", scene.Name)
	}

	log.Printf("[RENDER] Exporting scene=%s duration=%.2fs fps=%d frames=%d preview=%t",
		scene.Name, scene.DurationSeconds, scene.FrameRate, scene.FrameCount(), opts.Preview != nil)

	raster := NewRasterizer(scene, opts.Width, opts.Height)
	sampler := physics.SimulateFrames(scene)
	frames := make(chan renderedFrame, 1)

	var res Result
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(frames)
		for sampler.Next() {
			snap := sampler.Snapshot()
			select {
			case frames <- renderedFrame{snap: snap, image: raster.Render(snap)}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return sampler.Err()
	})

	g.Go(func() error {
		preview := opts.Preview
		defer func() {
			if preview != nil {
				closePreview(preview)
			}
		}()

		for f := range frames {
			if opts.OnSnapshot != nil {
				opts.OnSnapshot(f.snap)
			}
			if err := opts.Encoder.Consume(f.image); err != nil {
				return fmt.Errorf("encode frame %d: %w", f.snap.FrameIndex, err)
			}
			if preview != nil {
				if err := preview.Consume(f.image); err != nil {
					log.Printf("[RENDER] Preview stopped: %v", err)
					closePreview(preview)
					preview = nil
				}
			}
			res.Frames++
			snap := f.snap
			res.Final = &snap
		}
		return nil
	})

	err := g.Wait()
	res.Contacts = sampler.Simulation().Contacts()

	closeErr := opts.Encoder.Close()
	if err != nil {
		return res, err
	}
	if closeErr != nil {
		return res, fmt.Errorf("finalize output: %w", closeErr)
	}

	log.Printf("[RENDER] Export finished: %d frames, contacts ball=%d wall=%d bumper=%d",
		res.Frames, res.Contacts.BallBall, res.Contacts.Wall, res.Contacts.Bumper)
	return res, nil
}

func closePreview(p FrameConsumer) {
	if c, ok := p.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Printf("[RENDER] Preview close: %v", err)
		}
	}
}
