package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/datapulse/datapulse/internal/analytics"
	"github.com/datapulse/datapulse/internal/analytics/export"
)

// Recipient identifies one report destination.
type Recipient struct {
	UserID int64
	Email  string
}

// RecipientSource lists the users that receive monthly reports.
type RecipientSource interface {
	ListReportRecipients(ctx context.Context) ([]Recipient, error)
}

// AnalyticsService is the slice of the aggregation engine the job needs.
type AnalyticsService interface {
	GetMonthlyRollup(ctx context.Context, filter analytics.Filter) ([]analytics.MonthlyRow, error)
}

// Mailer delivers a rendered report.
type Mailer interface {
	Send(ctx context.Context, to, subject string, csvAttachment []byte) error
}

// MonthlyReportJob emails each recipient a CSV summary of one month.
type MonthlyReportJob struct {
	recipients RecipientSource
	service    AnalyticsService
	mailer     Mailer
	logger     *slog.Logger
	now        func() time.Time
}

// NewMonthlyReportJob constructs the job.
func NewMonthlyReportJob(recipients RecipientSource, service AnalyticsService, mailer Mailer, logger *slog.Logger) *MonthlyReportJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &MonthlyReportJob{
		recipients: recipients,
		service:    service,
		mailer:     mailer,
		logger:     logger,
		now:        time.Now,
	}
}

// WithNow overrides the job clock for testing.
func (j *MonthlyReportJob) WithNow(fn func() time.Time) {
	if fn != nil {
		j.now = fn
	}
}

// Handle processes TaskMonthlyReport tasks.
func (j *MonthlyReportJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload MonthlyReportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	year, month := payload.Year, time.Month(payload.Month)
	if year == 0 || payload.Month == 0 {
		// Cron entries enqueue an empty payload; default to the month that
		// just ended. Step back from the first of the current month so that
		// month-end dates do not normalize forward (March 31 minus one month
		// is "February 31", which Go folds into March).
		now := j.now().UTC()
		prev := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
		year, month = prev.Year(), prev.Month()
	}

	recipients, err := j.resolveRecipients(ctx, payload)
	if err != nil {
		return fmt.Errorf("resolve recipients: %w", err)
	}

	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)
	subject := fmt.Sprintf("DataPulse monthly summary %04d-%02d", year, int(month))

	for _, rcpt := range recipients {
		rows, err := j.service.GetMonthlyRollup(ctx, analytics.Filter{
			OwnerID: rcpt.UserID,
			From:    &from,
			To:      &to,
		})
		if err != nil {
			return fmt.Errorf("rollup for user %d: %w", rcpt.UserID, err)
		}

		buf := &bytes.Buffer{}
		if err := export.WriteMonthlyCSV(buf, rows); err != nil {
			return fmt.Errorf("render csv for user %d: %w", rcpt.UserID, err)
		}
		if err := j.mailer.Send(ctx, rcpt.Email, subject, buf.Bytes()); err != nil {
			return fmt.Errorf("send report to %s: %w", rcpt.Email, err)
		}
		j.logger.Info("monthly report sent",
			slog.Int64("user_id", rcpt.UserID),
			slog.Int("year", year),
			slog.Int("month", int(month)))
	}
	return nil
}

func (j *MonthlyReportJob) resolveRecipients(ctx context.Context, payload MonthlyReportPayload) ([]Recipient, error) {
	all, err := j.recipients.ListReportRecipients(ctx)
	if err != nil {
		return nil, err
	}
	if payload.UserID == 0 {
		return all, nil
	}
	for _, rcpt := range all {
		if rcpt.UserID == payload.UserID {
			return []Recipient{rcpt}, nil
		}
	}
	return nil, nil
}
