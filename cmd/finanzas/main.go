package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/onlytop/finanzas-core/internal/app"
	"github.com/onlytop/finanzas-core/internal/audit"
	"github.com/onlytop/finanzas-core/internal/bank"
	"github.com/onlytop/finanzas-core/internal/consol"
	"github.com/onlytop/finanzas-core/internal/finanzas"
	"github.com/onlytop/finanzas-core/internal/ledger"
	"github.com/onlytop/finanzas-core/internal/platform/cache"
	"github.com/onlytop/finanzas-core/internal/platform/db"
	"github.com/onlytop/finanzas-core/internal/reports"
	"github.com/onlytop/finanzas-core/internal/scales"
	"github.com/onlytop/finanzas-core/internal/shared"
	"github.com/onlytop/finanzas-core/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: 10, MaxConnLifetime: time.Hour})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	periodLock := shared.NewPeriodLock(redisClient, cfg.PeriodLockTTL)

	bankRepo := bank.NewRepository(pool)
	if err := bankRepo.Ensure(ctx, shared.CurrentPeriodCode(time.Now().UTC())); err != nil {
		logger.Error("bootstrap bank row", slog.Any("error", err))
		os.Exit(1)
	}
	bankService := bank.NewService(bankRepo, auditLogger)

	scalesRepo := scales.NewRepository(pool)
	scalesService := scales.NewService(scalesRepo, auditLogger)

	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, periodLock, auditLogger)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	finanzasRepo := finanzas.NewRepository(pool)
	finanzasService := finanzas.NewService(finanzasRepo, scalesService, ledgerService, auditLogger)

	consolRepo := consol.NewRepository(pool)
	consolService := consol.NewService(consolRepo, periodLock, auditLogger)

	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	consolService.WithInvalidator(reportCache.Bump)
	reportsRepo := reports.NewRepository(pool)
	reportsService := reports.NewService(reportsRepo, bankService, consolService, ledgerService, reportCache)

	ledgerHandler := ledger.NewHandler(logger, ledgerService)
	ledgerHandler.WithIdempotency(idempotencyStore)

	jobsInspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() { _ = jobsInspector.Close() }()

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		BankHandler:     bank.NewHandler(logger, bankService),
		ScalesHandler:   scales.NewHandler(logger, scalesService),
		FinanzasHandler: finanzas.NewHandler(logger, finanzasService),
		LedgerHandler:   ledgerHandler,
		ConsolHandler:   consol.NewHandler(logger, consolService),
		ReportsHandler:  reports.NewHandler(logger, reportsService),
		AuditHandler:    audit.NewHandler(logger, audit.NewRepository(pool)),
		JobsHandler:     jobs.NewHandler(jobsInspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
