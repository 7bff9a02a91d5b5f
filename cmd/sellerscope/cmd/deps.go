package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sellerscope/sellerscope/internal/config"
	"github.com/sellerscope/sellerscope/internal/engine"
	"github.com/sellerscope/sellerscope/internal/provider"
	"github.com/sellerscope/sellerscope/internal/quota"
	"github.com/sellerscope/sellerscope/internal/refresh"
	"github.com/sellerscope/sellerscope/internal/store"
	"github.com/sellerscope/sellerscope/pkg/logger"
)

// appDeps holds the wired application components shared by the serve,
// worker, and sweep commands.
type appDeps struct {
	Logger    *slog.Logger
	Store     *store.PostgresStore
	Provider  *provider.HTTPClient
	Guard     *quota.Guard
	Requester *refresh.Requester
	Engine    *engine.Engine
}

// buildDeps connects to the database and wires the provider client,
// quota guard, refresh requester, and engine from config.
func buildDeps(ctx context.Context, cfg *config.Config) (*appDeps, error) {
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	st, err := store.NewPostgresStore(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	limiter := provider.NewRateLimiter(
		cfg.Provider.RateLimit.PerSecond,
		cfg.Provider.RateLimit.Burst,
		cfg.Provider.RateLimit.DailyLimit,
	)
	client := provider.NewHTTPClient(
		cfg.Provider.BaseURL,
		cfg.Provider.APIKey,
		provider.WithHTTPClient(&http.Client{Timeout: cfg.Provider.Timeout}),
		provider.WithRateLimiter(limiter),
	)

	guard := quota.NewGuard(st, cfg.Quota.DailyManualLimit, log)
	requester := refresh.NewRequester(st, guard, log)

	eng := engine.NewEngine(st, client,
		engine.WithLogger(log),
		engine.WithBatchSize(cfg.Worker.BatchSize),
		engine.WithConcurrency(cfg.Worker.Concurrency),
		engine.WithMaxAttempts(cfg.Worker.MaxAttempts),
		engine.WithBackoff(cfg.Worker.BackoffBase, cfg.Worker.BackoffCap),
		engine.WithReclaimAfter(cfg.Worker.ReclaimAfter),
		engine.WithSweepBudget(cfg.Schedule.SweepBudget),
		engine.WithMaxListings(cfg.Provider.MaxListings),
	)

	return &appDeps{
		Logger:    log,
		Store:     st,
		Provider:  client,
		Guard:     guard,
		Requester: requester,
		Engine:    eng,
	}, nil
}

// Close releases the database pool.
func (d *appDeps) Close() {
	d.Store.Close()
}
