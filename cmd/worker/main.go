package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/datapulse/datapulse/internal/analytics"
	"github.com/datapulse/datapulse/internal/app"
	"github.com/datapulse/datapulse/internal/observability"
	"github.com/datapulse/datapulse/internal/platform/db"
	"github.com/datapulse/datapulse/internal/sales"
	"github.com/datapulse/datapulse/jobs"
)

// pgRecipients resolves report recipients straight from the users table.
type pgRecipients struct {
	pool *pgxpool.Pool
}

func (r pgRecipients) ListReportRecipients(ctx context.Context) ([]jobs.Recipient, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, email FROM users WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var recipients []jobs.Recipient
	for rows.Next() {
		var rcpt jobs.Recipient
		if err := rows.Scan(&rcpt.UserID, &rcpt.Email); err != nil {
			return nil, err
		}
		recipients = append(recipients, rcpt)
	}
	return recipients, rows.Err()
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := observability.NewMetrics()

	// Job counters are only useful if something scrapes them.
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())
	metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: metricsMux}
	go func() {
		logger.Info("serving worker metrics", slog.String("addr", cfg.WorkerMetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics listener", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics shutdown", slog.Any("error", err))
		}
	}()

	analyticsService := analytics.NewService(sales.NewRepository(pool))
	mailer := &jobs.SMTPMailer{
		Addr: fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		From: cfg.SMTPFrom,
	}
	reportJob := jobs.NewMonthlyReportJob(pgRecipients{pool: pool}, analyticsService, mailer, logger)

	monthlyTask, err := jobs.NewMonthlyReportTask(jobs.MonthlyReportPayload{})
	if err != nil {
		logger.Error("build monthly report task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskMonthlyReport, Handler: func(ctx context.Context, t *asynq.Task) error {
				err := reportJob.Handle(ctx, t)
				metrics.ObserveJob(jobs.TaskMonthlyReport, err)
				return err
			}},
		},
		Cron: []jobs.CronRegistration{
			// First day of each month at 06:00 UTC.
			{Spec: "0 6 1 * *", Task: monthlyTask},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
