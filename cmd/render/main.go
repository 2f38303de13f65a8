package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/powerpit/backend/internal/config"
	"github.com/powerpit/backend/internal/database"
	"github.com/powerpit/backend/internal/physics"
	"github.com/powerpit/backend/internal/preview"
	"github.com/powerpit/backend/internal/redis"
	"github.com/powerpit/backend/internal/render"
	"github.com/powerpit/backend/internal/runs"
	"github.com/powerpit/backend/internal/scene"
)

type options struct {
	scenePath string
	out       string
	seed      string
	verbose   bool
	show      bool
	record    bool
}

var verbose bool

func debugf(format string, args ...any) {
	if verbose {
		log.Printf("[DEBUG] "+format, args...)
	}
}

func main() {
	var opts options
	flag.StringVar(&opts.scenePath, "scene", "", "Path to the YAML scene file (required)")
	flag.StringVar(&opts.out, "out", "", "Output path: .mp4/.mov/.mkv/.webm, .gif, or a directory for PNG frames (required)")
	flag.StringVar(&opts.seed, "seed", "", "Seed for spawn jitter (optional)")
	flag.BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")
	flag.BoolVar(&opts.show, "show", false, "Preview frames in the terminal while exporting")
	flag.BoolVar(&opts.record, "record", false, "Record the run in PostgreSQL and publish frames to Redis")
	flag.Parse()

	if opts.scenePath == "" || opts.out == "" {
		fmt.Fprintln(os.Stderr, "usage: render --scene scene.yaml --out clip.mp4 [--seed N] [--verbose] [--show] [--record]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	verbose = opts.verbose
	if verbose {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, config.Load()); err != nil {
		log.Fatalf("Render failed: %v", err)
	}
}

func run(ctx context.Context, opts options, cfg *config.Config) error {
	loaded, err := scene.Load(opts.scenePath)
	if err != nil {
		return err
	}
	sc := loaded.Scene
	log.Printf("[SIM] Scene loaded: name=%s arena=%s duration=%.2fs fps=%d balls=%d",
		sc.Name, sc.Arena.Kind, sc.DurationSeconds, sc.FrameRate, sc.PlayerCount())

	seed, err := resolveSeed(opts.seed)
	if err != nil {
		return err
	}
	debugf("seed=%d", seed)
	if loaded.SpawnJitter > 0 {
		sc = scene.Jitter(sc, loaded.SpawnJitter, uint64(seed))
		debugf("spawn jitter %.3f applied", loaded.SpawnJitter)
	}
	debugf("steps per frame=%d, frames=%d", physics.StepsPerFrame(sc.FrameRate), sc.FrameCount())

	enc, err := render.NewEncoder(render.EncoderConfig{
		Path:       opts.out,
		Width:      cfg.FrameWidth,
		Height:     cfg.FrameHeight,
		FrameRate:  sc.FrameRate,
		FFmpegPath: cfg.FFmpegPath,
	})
	if err != nil {
		return err
	}

	exportOpts := render.Options{
		Width:   cfg.FrameWidth,
		Height:  cfg.FrameHeight,
		Encoder: enc,
	}

	if opts.show {
		term, err := preview.NewTerminal(sc.FrameRate)
		if err != nil {
			log.Printf("[PREVIEW] Preview unavailable: %v", err)
		} else {
			exportOpts.Preview = term
		}
	}

	rec, closeRecorder := openRecorder(ctx, opts.record, cfg)
	defer closeRecorder()

	seedCopy := seed
	runID, err := rec.Start(ctx, runs.StartParams{Scene: sc, SceneYAML: loaded.Source, Seed: &seedCopy, CreatedBy: "cli"})
	if err != nil {
		log.Printf("[RUNS] Recording disabled: %v", err)
		rec = nil
	}
	if runID != 0 {
		exportOpts.OnSnapshot = func(s physics.Snapshot) {
			if err := rec.PublishFrame(ctx, runID, s); err != nil {
				debugf("publish: %v", err)
			}
		}
	}

	res, exportErr := render.Export(ctx, sc, exportOpts)

	if err := rec.Finish(context.WithoutCancel(ctx), runID, runs.FinishParams{
		FramesDone: res.Frames,
		Final:      res.Final,
		Contacts:   res.Contacts,
		Err:        exportErr,
	}); err != nil {
		log.Printf("[RUNS] %v", err)
	}

	if exportErr != nil {
		return exportErr
	}
	if runID != 0 {
		log.Printf("[RUNS] Recorded as run %d", runID)
	}
	log.Printf("[RENDER] Clip exported: %s", opts.out)
	return nil
}

func resolveSeed(raw string) (int64, error) {
	if raw == "" {
		return time.Now().UnixNano(), nil
	}
	seed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid --seed %q: %w", raw, err)
	}
	return seed, nil
}

// openRecorder connects the run registry when requested. Connection
// failures only disable recording.
func openRecorder(ctx context.Context, enabled bool, cfg *config.Config) (*runs.Recorder, func()) {
	if !enabled {
		return nil, func() {}
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Printf("[RUNS] PostgreSQL unavailable, run will not be recorded: %v", err)
		return nil, func() {}
	}

	rdb, err := redis.Connect(ctx, cfg.RedisURL, 5*time.Second)
	if err != nil {
		log.Printf("[RUNS] Redis unavailable, frames will not be published: %v", err)
		rdb = nil
	}

	return runs.NewRecorder(db, rdb), func() {
		db.Close()
		if rdb != nil {
			rdb.Close()
		}
	}
}
