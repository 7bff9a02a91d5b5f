package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/sellerscope/sellerscope/internal/api/handlers"
	"github.com/sellerscope/sellerscope/internal/api/middleware"
	"github.com/sellerscope/sellerscope/internal/config"
	"github.com/sellerscope/sellerscope/internal/engine"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and scheduler",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cobraCmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	deps, err := buildDeps(cobraCmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	logger := deps.Logger

	sched, err := engine.NewScheduler(
		deps.Engine,
		deps.Store,
		cfg.Schedule.CycleInterval,
		cfg.Schedule.SweepInterval,
		cfg.Schedule.ReclaimInterval,
		logger,
	)
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}

	// Mark job runs orphaned by a previous crash before scheduling new ones.
	sched.RecoverStaleJobRuns(cobraCmd.Context())
	sched.Start()
	sched.SyncNextRunTimestamps()
	defer func() {
		<-sched.Stop().Done()
	}()

	e := newServer(cfg, deps)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("starting server", "addr", addr)

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// newServer builds the Echo instance with middleware, health and
// metrics endpoints, and all Huma API routes.
func newServer(cfg *config.Config, deps *appDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	e.Use(middleware.RequestLog(deps.Logger))
	e.Use(middleware.Recovery(deps.Logger))
	e.Use(middleware.Metrics())

	health := handlers.NewHealthHandler(deps.Store)
	e.GET("/healthz", health.Healthz)
	e.GET("/readyz", health.Readyz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	humaCfg := huma.DefaultConfig("Sellerscope API", Version)
	humaCfg.Info.Description = "Cached keyword market snapshots with demand-driven refresh."
	api := humaecho.New(e, humaCfg)

	handlers.RegisterSnapshotRoutes(api, handlers.NewSnapshotsHandler(
		deps.Store, deps.Requester, deps.Logger,
	))
	handlers.RegisterRefreshRoutes(api, handlers.NewRefreshHandler(deps.Requester))
	handlers.RegisterQueueRoutes(api, handlers.NewQueueHandler(deps.Store))
	handlers.RegisterQuotaRoutes(api, handlers.NewQuotaHandler(deps.Guard))
	handlers.RegisterJobRoutes(api, handlers.NewJobsHandler(deps.Store))
	handlers.RegisterTriggerRoutes(api, handlers.NewTriggerHandler(deps.Engine, deps.Engine))

	return e
}
