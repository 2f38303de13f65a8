package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connect establishes a connection to Redis and pings it within timeout.
func Connect(ctx context.Context, redisURL string, timeout time.Duration) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

// FrameChannel is the pub/sub channel carrying a run's frames.
func FrameChannel(runID int64) string {
	return fmt.Sprintf("sim_frames:%d", runID)
}

// LatestFrameKey caches the most recent snapshot of a run.
func LatestFrameKey(runID int64) string {
	return fmt.Sprintf("run:%d:latest", runID)
}
