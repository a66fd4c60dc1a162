package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"tourbook/internal/cache"
	"tourbook/internal/config"
	"tourbook/internal/database"
	"tourbook/internal/middleware"
	"tourbook/internal/observability"
	"tourbook/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemo fills an empty development database with demo threads.
	SeedDemo bool
}

// InitLogging routes repository and service logs through the request-aware
// middleware logger so they carry request, user and trace ids.
func InitLogging() {
	observability.SetGlobalLogger(middleware.Logger)
}

// InitTracing configures the OpenTelemetry tracer provider from cfg.
func InitTracing(cfg *config.Config) (func(context.Context) error, error) {
	return observability.InitTracing(observability.TracingConfig{
		ServiceName:    "tourbook-api",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSamplerRatio,
	})
}

// InitRuntime connects to DB and Redis and optionally seeds demo data.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// may leave a nil client when Redis is unreachable
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if opts.SeedDemo && !cfg.IsProduction() {
		if err := seedIfEmpty(db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return db, r, nil
}

func seedIfEmpty(db *gorm.DB) error {
	var comments int64
	if err := db.Table("comments").Count(&comments).Error; err != nil {
		return err
	}
	if comments > 0 {
		middleware.Logger.Info("demo seed skipped, database not empty", slog.Int64("comments", comments))
		return nil
	}
	opts := seed.DefaultOptions()
	opts.ShouldClean = false
	_, err := seed.Seed(db, opts)
	return err
}
