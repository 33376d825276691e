package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/okian/arena/internal/adapters/directory"
	"github.com/okian/arena/internal/adapters/http/api"
	"github.com/okian/arena/internal/adapters/scorestore"
	service "github.com/okian/arena/internal/app"
	"github.com/okian/arena/internal/config"
	"github.com/okian/arena/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout          = 10 * time.Second
	writeTimeout         = 10 * time.Second
	idleTimeout          = 60 * time.Second
	readHeaderTimeout    = 5 * time.Second
	shutdownTimeout      = 30 * time.Second
	statsPublishInterval = 15 * time.Second
	schemaTimeout        = 30 * time.Second
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			logger.Get().Error(context.Background(), "logger sync failed", logger.Error(err))
		}
	}()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input).
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	db, err := openDatabase(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Error(ctx, "failed to open database", logger.Error(err))
		return
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error(ctx, "database close failed", logger.Error(err))
		}
	}()

	svc := service.New(
		service.WithDB(db),
		service.WithLogger(log),
		service.WithWorkerCount(cfg.MirrorWorkerCount),
		service.WithQueueSize(cfg.MirrorQueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithMirrorTimeout(time.Duration(cfg.MirrorTimeoutMS)*time.Millisecond),
		service.WithMaxLimit(cfg.MaxLeaderboardLimit),
		service.WithMaxSpan(cfg.MaxRangeSpan),
		service.WithResyncCeilings(cfg.ResyncGlobalCeiling, cfg.ResyncGameCeiling),
		service.WithProbeInterval(time.Duration(cfg.HealthProbeIntervalMin)*time.Minute),
		service.WithResyncInterval(time.Duration(cfg.ResyncIntervalMin)*time.Minute),
	)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	// Keep the statistics gauges fresh even when nobody polls /admin/stats.
	go startStatsPublisher(ctx, svc)

	mux := http.NewServeMux()
	api.NewServer(svc).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// openDatabase connects to Postgres, verifies the connection, and makes
// sure the tables exist.
func openDatabase(ctx context.Context, dsn string) (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	pingCtx, cancel := context.WithTimeout(ctx, schemaTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := scorestore.New(db).CreateSchema(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := directory.New(db).CreateSchema(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// startStatsPublisher refreshes the statistics gauges on a fixed cadence.
func startStatsPublisher(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(statsPublishInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.GetStats(ctx); err != nil {
				logger.Get().Warn(ctx, "stats refresh failed", logger.Error(err))
			}
		}
	}
}
