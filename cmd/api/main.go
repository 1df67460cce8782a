package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sipkl/internal/app"
	"sipkl/internal/config"
	"sipkl/internal/geocode"
	"sipkl/internal/httpapi"
	"sipkl/internal/httpmiddleware"
	"sipkl/internal/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Env)
	defer func() { _ = logger.Sync() }()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, logger); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}
}

func runHTTP(cfg config.App, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.CronSecret == "" {
		logger.Warn("CRON_SECRET is empty, the auto alpha trigger is open to anyone")
	}

	geo := geocode.New(cfg.GeocoderURL, cfg.GeocoderSkip)
	health := map[string]httpapi.HealthCheck{}
	if a.DB != nil {
		health["db"] = a.DB.Healthy
	}
	if a.Redis != nil {
		health["redis"] = a.Redis.Healthy
	}

	r := httpapi.NewRouter(httpapi.Deps{
		Reconciler: a.Reconciler(),
		Attendance: a.Attendance(geo),
		Students:   a.Backend,
		Health:     health,
		Logger:     logger,
		SigningKey: cfg.JWTSigningKey,
		Issuer:     cfg.JWTIssuer,
		CronSecret: cfg.CronSecret,
		Middleware: []gin.HandlerFunc{
			httpmiddleware.Recovery(logger),
			httpmiddleware.AccessLog(logger, "/healthz", "/metrics"),
			httpmiddleware.CORS(),
			httpmiddleware.SecurityHeaders(),
			httpmiddleware.NewRateLimiter(cfg.RateLimitPerMin).GinMiddleware(),
		},
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced shutdown", zap.Error(err))
	}
	logger.Info("Server exited")
	return nil
}
