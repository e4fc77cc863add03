package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"

	"github.com/nekogravitycat/resource-booking-backend/internal/app"
	"github.com/nekogravitycat/resource-booking-backend/internal/config"
	"github.com/nekogravitycat/resource-booking-backend/internal/db"
	"github.com/nekogravitycat/resource-booking-backend/internal/pkg/logger"
)

func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	return logger.New(cfg.LogLevel, cfg.IsProduction())
}

// newPool connects to Postgres, applies pending migrations and closes the
// pool when the application stops.
func newPool(lc fx.Lifecycle, cfg *config.Config, _ *slog.Logger) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(cfg.MigrationsPath, cfg.DBDSN); err != nil {
		pool.Close()
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})
	return pool, nil
}

func newContainer(cfg *config.Config, pool *pgxpool.Pool) *app.Container {
	var origins []string
	if cfg.IsProduction() {
		origins = cfg.Origins()
	}

	return app.NewContainer(app.Config{
		Origins:       origins,
		DBPool:        pool,
		JWTSecret:     cfg.JWTSecret,
		JWTTTL:        cfg.JWTAccessTokenTTL,
		BcryptCost:    cfg.BcryptCost,
		SweepInterval: cfg.CompletionSweepInterval,
	})
}

func startServer(lc fx.Lifecycle, shutdowner fx.Shutdowner, cfg *config.Config, container *app.Container) {
	// Use http.Server for graceful shutdown
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           container.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				slog.Info("server running", "addr", cfg.HTTPAddr, "env", cfg.AppEnv)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					slog.Error("server error", "error", err)
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			slog.Info("shutting down server")
			return server.Shutdown(ctx)
		},
	})
}

func startSweeper(lc fx.Lifecycle, container *app.Container) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				container.Sweeper.Run(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}

func main() {
	application := fx.New(
		fx.Provide(
			config.Load,
			newLogger,
			newPool,
			newContainer,
		),
		fx.Invoke(
			startServer,
			startSweeper,
		),
		fx.NopLogger,
	)

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := application.Start(startCtx); err != nil {
		slog.Error("failed to start application", "error", err)
		os.Exit(1)
	}

	sig := <-application.Wait()
	slog.Info("shutdown signal received", "signal", sig.Signal)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := application.Stop(stopCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("server exited gracefully")
	os.Exit(sig.ExitCode)
}
