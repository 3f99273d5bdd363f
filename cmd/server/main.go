// Command server runs the case assignment engine behind its HTTP API,
// together with the background sweep, SLA and idempotency purge jobs.
//
// @title          Case Router API
// @version        1.0
// @description    Assigns consultation cases to verified lawyers and tracks the assignment lifecycle.
// @BasePath       /api/v1
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-case-router/internal/config"
	httpapi "github.com/tbourn/go-case-router/internal/http"
	"github.com/tbourn/go-case-router/internal/jobs"
	"github.com/tbourn/go-case-router/internal/notify"
	"github.com/tbourn/go-case-router/internal/observability"
	"github.com/tbourn/go-case-router/internal/repo"
	"github.com/tbourn/go-case-router/internal/services"
	"github.com/tbourn/go-case-router/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	purgeSchedule   = "@hourly"
	jobTimeout      = 2 * time.Minute
	shutdownTimeout = 15 * time.Second
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		// Logger is not configured yet; default JSON to stderr.
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	sysutil.InitLogging(os.Stderr, cfg.LogLevel, cfg.LogPretty, observability.TraceHook{})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg config.Config) error {
	shutdownOTel, err := observability.Setup(ctx, cfg.OTEL, version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.Open(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := observability.InstrumentDB(db, cfg.OTEL); err != nil {
		return err
	}
	if err := repo.AutoMigrate(db); err != nil {
		return err
	}
	log.Info().Str("driver", cfg.DB.Driver).Msg("database ready")

	var notifier services.Notifier = notify.LogNotifier{}
	if cfg.Notify.AMQPURL != "" {
		amqpNotifier, err := notify.DialAMQP(cfg.Notify.AMQPURL, cfg.Notify.Exchange, cfg.Notify.RoutingKey)
		if err != nil {
			return err
		}
		defer amqpNotifier.Close()
		notifier = amqpNotifier
		log.Info().Str("exchange", cfg.Notify.Exchange).Msg("amqp notifier connected")
	}

	engine := services.NewAssignmentService(db, notifier)
	engine.Weights = services.ScoreWeights{Rating: cfg.Engine.WeightRating, Load: cfg.Engine.WeightLoad}
	engine.MaxAttempts = cfg.Engine.MaxAttempts
	engine.RetryBackoff = cfg.Engine.RetryBackoff
	engine.NotifyTimeout = cfg.Engine.NotifyTimeout
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Engine.NotifyTimeout+time.Second)
		defer cancel()
		if err := engine.DrainNotifications(sctx); err != nil {
			log.Warn().Err(err).Msg("pending notifications dropped")
		}
	}()

	sched := jobs.NewScheduler(jobTimeout)
	for _, j := range []struct {
		spec string
		job  jobs.Job
	}{
		{cfg.Jobs.SweepSchedule, &jobs.Sweep{DB: db, Engine: engine, Concurrency: cfg.Jobs.SweepConcurrency, Batch: cfg.Jobs.SweepBatch}},
		{cfg.Jobs.SLASchedule, &jobs.SLAReport{DB: db, PendingAfter: cfg.Jobs.SLAPendingAfter}},
		{purgeSchedule, &jobs.IdempotencyPurge{DB: db}},
	} {
		if err := sched.Add(j.spec, j.job); err != nil {
			return err
		}
	}
	sched.Start()
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := sched.Stop(sctx); err != nil {
			log.Warn().Err(err).Msg("scheduler stop")
		}
	}()

	gin.SetMode(cfg.Server.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, engine, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		MaxHeaderBytes:    cfg.Server.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("http server listening")
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

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}
