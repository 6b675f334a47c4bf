// Package app assembles the application: database pool, repositories,
// services, handlers, gateway session, and the task scheduler.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/Lesamuen/Meridia2/internal/audio"
	"github.com/Lesamuen/Meridia2/internal/bot"
	"github.com/Lesamuen/Meridia2/internal/bot/middleware"
	"github.com/Lesamuen/Meridia2/internal/config"
	"github.com/Lesamuen/Meridia2/internal/db/postgres"
	"github.com/Lesamuen/Meridia2/internal/dice"
	"github.com/Lesamuen/Meridia2/internal/features/admin"
	"github.com/Lesamuen/Meridia2/internal/features/beacon"
	"github.com/Lesamuen/Meridia2/internal/features/electrum"
	"github.com/Lesamuen/Meridia2/internal/features/users"
	"github.com/Lesamuen/Meridia2/internal/jobs"
)

// App holds every long-lived component of the bot.
type App struct {
	Bot         *bot.Bot
	Coordinator *beacon.Coordinator
	Scheduler   *jobs.Scheduler
	DB          *pgxpool.Pool

	limiter *middleware.RateLimiter
}

// New builds and wires the application. shutdown is invoked by the admin
// pineapple command; the caller maps it onto its stop signal.
func New(ctx context.Context, cfg *config.Config, shutdown func()) (*App, error) {
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	session, err := bot.NewSession(cfg.DiscordToken)
	if err != nil {
		pool.Close()
		return nil, err
	}

	repo := users.NewPostgresRepository(pool)

	machine := beacon.NewMachine(dice.RandomRoller{})
	sender := bot.NewChannelSender(session)
	cues := audio.NewPlayer(session, cfg.AudioDir)
	coordinator := beacon.NewCoordinator(repo, machine, sender, cues, cfg.MessageTTL)

	limiter := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	beaconHandlers := beacon.NewHandlers(coordinator, cfg.TriggerToken, cfg.TriggerEmoji, limiter)

	electrumService := electrum.NewService(repo, cfg.DMIDs)
	electrumHandlers := electrum.NewHandlers(electrumService)

	adminService := admin.NewService(repo, cfg.AdminIDs, shutdown)
	adminHandlers := admin.NewHandlers(adminService)

	b := bot.New(session, cfg, beaconHandlers, electrumHandlers, adminHandlers)
	scheduler := jobs.NewScheduler(repo)

	return &App{
		Bot:         b,
		Coordinator: coordinator,
		Scheduler:   scheduler,
		DB:          pool,
		limiter:     limiter,
	}, nil
}

// Close tears the application down in reverse dependency order: stop
// accepting triggers, flush in-flight touches, then release the rest.
func (a *App) Close() {
	a.Bot.Stop()
	a.Coordinator.Close()
	a.Scheduler.Stop()
	a.limiter.Close()
	a.DB.Close()
}

// runMigrations applies the embedded migrations in version order.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return err
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration001Users},
	}

	for _, m := range migrations {
		if err := postgres.ExecMigrationSQL(ctx, pool, m.version, m.sql); err != nil {
			return fmt.Errorf("migration %d: %w", m.version, err)
		}
		log.Infof("migration %d applied", m.version)
	}

	return nil
}

// Migrations are embedded so the binary deploys without extra files.

var migration001Users = `
CREATE TABLE IF NOT EXISTS users (
    user_id TEXT PRIMARY KEY,
    electrum BIGINT NOT NULL DEFAULT 0,
    beacon_touches BIGINT NOT NULL DEFAULT 0,
    quest_stage INTEGER NOT NULL DEFAULT 0,
    cooldown_until TIMESTAMP,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_users_cooldown_until ON users(cooldown_until)
    WHERE cooldown_until IS NOT NULL;
`
