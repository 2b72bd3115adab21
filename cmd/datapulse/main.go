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
	"github.com/redis/go-redis/v9"

	"github.com/datapulse/datapulse/internal/analytics"
	"github.com/datapulse/datapulse/internal/analytics/export"
	analytichttp "github.com/datapulse/datapulse/internal/analytics/http"
	"github.com/datapulse/datapulse/internal/app"
	"github.com/datapulse/datapulse/internal/auth"
	"github.com/datapulse/datapulse/internal/observability"
	"github.com/datapulse/datapulse/internal/platform/db"
	"github.com/datapulse/datapulse/internal/sales"
	"github.com/datapulse/datapulse/internal/shared"
	"github.com/datapulse/datapulse/jobs"
)

// reportQueue adapts the job client to the dashboard handler.
type reportQueue struct {
	client *jobs.Client
}

func (q reportQueue) EnqueueMonthlyReport(ctx context.Context, userID int64, year, month int) error {
	_, err := q.client.EnqueueMonthlyReport(ctx, jobs.MonthlyReportPayload{
		UserID: userID,
		Year:   year,
		Month:  month,
	})
	return err
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "datapulse_session", cfg.SessionTTL, cfg.IsProduction())

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	salesRepo := sales.NewRepository(dbpool)
	salesService := sales.NewService(salesRepo)
	salesHandler := sales.NewHandler(logger, salesService)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	analyticsService := analytics.NewService(salesRepo)
	pdfExporter := &export.PDFExporter{Endpoint: cfg.GotenbergURL, Client: http.DefaultClient}
	analyticsHandler := analytichttp.NewHandler(logger, analyticsService, pdfExporter, reportQueue{client: jobClient})

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		AuthHandler:      authHandler,
		SalesHandler:     salesHandler,
		AnalyticsHandler: analyticsHandler,
		Metrics:          metrics,
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
