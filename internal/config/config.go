package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL    string
	MigrateOnStart bool
	MigrationsPath string

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Security
	JWTSecret     string
	TokenTTLHours int

	// Rendering
	FrameWidth  int
	FrameHeight int
	FFmpegPath  string

	// Simulation limits for API-submitted scenes
	MaxSimulationFrames int
	StreamBufferFrames  int
	StreamIdleSeconds   int

	// Stale run reaper
	StaleRunMinutes   int
	ReaperPollSeconds int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL:    getEnv("DATABASE_URL", "postgres://localhost:5432/powerpit?sslmode=disable"),
		MigrateOnStart: getEnvBool("MIGRATE_ON_START", false),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "file://migrations"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Security
		JWTSecret:     getEnv("JWT_SECRET", "change-me-in-production"),
		TokenTTLHours: getEnvInt("TOKEN_TTL_HOURS", 24),

		// Rendering
		FrameWidth:  getEnvInt("FRAME_WIDTH", 1920),
		FrameHeight: getEnvInt("FRAME_HEIGHT", 1080),
		FFmpegPath:  getEnv("FFMPEG_PATH", "ffmpeg"),

		// Simulation limits
		MaxSimulationFrames: getEnvInt("MAX_SIMULATION_FRAMES", 3600),
		StreamBufferFrames:  getEnvInt("STREAM_BUFFER_FRAMES", 8),
		StreamIdleSeconds:   getEnvInt("STREAM_IDLE_SECONDS", 120),

		// Stale run reaper
		StaleRunMinutes:   getEnvInt("STALE_RUN_MINUTES", 30),
		ReaperPollSeconds: getEnvInt("REAPER_POLL_SECONDS", 60),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
