// Package config reads environment-sourced settings, with optional .env
// support for local development.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/erazemk/najdeno/internal/imaging"
)

// Config holds all environment-sourced settings.
type Config struct {
	// MaxUploadBytes caps the raw request body before the pipeline runs.
	MaxUploadBytes int64
	// AdminToken is the admin credential; admin routes stay disabled when empty.
	AdminToken string
	// SecretKey overrides the database-persisted session signing secret.
	SecretKey string
	// Port is the listen port when no -addr flag is given.
	Port int
	// Policy holds the image pipeline constants.
	Policy imaging.Policy
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first if present; real environment variables win.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	policy := imaging.DefaultPolicy()
	policy.MaxStoredBytes = envInt64("MAX_SAVED_IMAGE_SIZE", policy.MaxStoredBytes)
	policy.QualityStart = envInt("IMAGE_QUALITY_START", policy.QualityStart)
	policy.QualityStep = envInt("IMAGE_QUALITY_STEP", policy.QualityStep)
	policy.QualityFloor = envInt("IMAGE_QUALITY_FLOOR", policy.QualityFloor)
	policy.MaxPasses = envInt("IMAGE_MAX_PASSES", policy.MaxPasses)
	policy.ShrinkFactor = envFloat("IMAGE_SHRINK_FACTOR", policy.ShrinkFactor)
	policy.MinDimension = envInt("IMAGE_MIN_DIMENSION", policy.MinDimension)
	policy.TranscodeQuality = envInt("IMAGE_TRANSCODE_QUALITY", policy.TranscodeQuality)

	return Config{
		MaxUploadBytes: envInt64("MAX_UPLOAD_SIZE", 10<<20),
		AdminToken:     os.Getenv("ADMIN_TOKEN"),
		SecretKey:      os.Getenv("SECRET_KEY"),
		Port:           envInt("PORT", 5001),
		Policy:         policy,
	}
}

func envInt64(key string, fallback int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		slog.Warn("ignoring malformed setting", "key", key, "value", raw)
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	return int(envInt64(key, int64(fallback)))
}

func envFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		slog.Warn("ignoring malformed setting", "key", key, "value", raw)
		return fallback
	}
	return v
}

// Addr returns the listen address derived from PORT.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
