// Package app opens the stores selected by configuration and builds the
// services shared by the api, worker and pklctl binaries.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sipkl/internal/attendance"
	"sipkl/internal/autoalpha"
	"sipkl/internal/clock"
	"sipkl/internal/config"
	"sipkl/internal/queue"
	"sipkl/internal/store"
)

// App holds the opened backends.
type App struct {
	Config config.App
	Logger *zap.Logger
	Zone   *time.Location

	DB      *store.DB
	Redis   *store.Redis
	Backend attendance.Backend
	Locker  autoalpha.Locker
	Queue   queue.Queue
}

// Open connects the configured store, lock and queue backends.
func Open(ctx context.Context, cfg config.App, logger *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	zone, err := clock.LoadZone(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load zone: %w", err)
	}
	a := &App{Config: cfg, Logger: logger, Zone: zone}

	switch cfg.StoreBackend {
	case "memory":
		logger.Warn("Using in-memory store, data is lost on restart")
		a.Backend = attendance.NewMemory()
	default:
		db, err := store.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.DB = db
		if cfg.MigrateOnStart {
			if err := store.Migrate(ctx, db.Client); err != nil {
				_ = db.Close()
				return nil, err
			}
			logger.Info("Database migrations applied")
		}
		a.Backend = attendance.NewRepository(db.Client)
	}

	if cfg.QueueBackend == "redis" || cfg.LockBackend == "redis" {
		a.Redis = store.NewRedis(cfg.RedisAddr)
		if !a.Redis.Healthy(ctx) {
			logger.Warn("Redis not reachable at startup", zap.String("addr", cfg.RedisAddr))
		}
	}

	if cfg.QueueBackend == "redis" {
		a.Queue = queue.NewRedisQueue(a.Redis.Client, "")
	} else {
		a.Queue = queue.NewInMemory(16)
	}

	if cfg.LockBackend == "redis" {
		a.Locker = store.NewRedisLocker(a.Redis.Client)
	}

	logger.Info("Backends ready",
		zap.String("store", cfg.StoreBackend),
		zap.String("queue", cfg.QueueBackend),
		zap.String("lock", cfg.LockBackend),
		zap.String("zone", zone.String()))
	return a, nil
}

// Reconciler builds the auto alpha reconciler over the opened backends.
func (a *App) Reconciler() *autoalpha.Reconciler {
	return autoalpha.New(a.Backend, a.Backend, a.Locker, nil, autoalpha.Options{
		CutoffHour: a.Config.CutoffHour,
		Location:   a.Zone,
		LockTTL:    a.Config.LockTTL,
	}, a.Logger.Named("autoalpha"))
}

// Attendance builds the check-in service. geo may be nil.
func (a *App) Attendance(geo attendance.Geocoder) *attendance.Service {
	return attendance.NewService(a.Backend, geo, nil, a.Zone, a.Logger.Named("attendance"))
}

// Close releases every opened connection.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("Closing redis failed", zap.Error(err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Warn("Closing database failed", zap.Error(err))
		}
	}
}
