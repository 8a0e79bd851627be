package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/secondheart/scheduling/internal/config"
	"github.com/secondheart/scheduling/internal/db"
	"github.com/secondheart/scheduling/internal/logging"
	redisclient "github.com/secondheart/scheduling/internal/redis"
	"github.com/secondheart/scheduling/internal/schedule"
)

// slot-worker periodically fills upcoming schedule gaps for every active
// provider. It never deletes slots; providers trigger full regeneration
// themselves through the API.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.New(cfg.Env, "slot-worker")
	logger.Info().
		Str("env", cfg.Env).
		Dur("interval", cfg.WorkerInterval).
		Int("upcoming_days", cfg.UpcomingDays).
		Msg("slot worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	repo := schedule.NewPgRepository(pgPool)
	// The worker only creates free slots, so no claim lock is needed.
	svc := schedule.NewService(repo, redisclient.NewNopLocker(), logger)

	// Run once at startup
	runOnce(rootCtx, svc, cfg.UpcomingDays, logger)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info().Msg("shutdown signal received, stopping slot worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, cfg.UpcomingDays, logger)
		}
	}
}

func runOnce(ctx context.Context, svc *schedule.Service, horizonDays int, logger zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	start := time.Now()
	created, err := svc.GenerateUpcomingAll(runCtx, horizonDays)
	if err != nil {
		logger.Error().Err(err).Msg("slot generation run error")
		return
	}
	logger.Info().
		Int("created", created).
		Dur("took", time.Since(start)).
		Msg("slot generation run complete")
}
