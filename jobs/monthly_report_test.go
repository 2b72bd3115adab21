package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"

	"github.com/datapulse/datapulse/internal/analytics"
)

type stubRecipients struct {
	list []Recipient
	err  error
}

func (s *stubRecipients) ListReportRecipients(ctx context.Context) ([]Recipient, error) {
	return s.list, s.err
}

type stubAnalytics struct {
	filters []analytics.Filter
	rows    []analytics.MonthlyRow
	err     error
}

func (s *stubAnalytics) GetMonthlyRollup(ctx context.Context, filter analytics.Filter) ([]analytics.MonthlyRow, error) {
	s.filters = append(s.filters, filter)
	return s.rows, s.err
}

type sentMail struct {
	to      string
	subject string
	body    []byte
}

type stubMailer struct {
	sent []sentMail
	err  error
}

func (s *stubMailer) Send(ctx context.Context, to, subject string, csvAttachment []byte) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentMail{to: to, subject: subject, body: csvAttachment})
	return nil
}

func mustTask(t *testing.T, payload MonthlyReportPayload) *asynq.Task {
	t.Helper()
	task, err := NewMonthlyReportTask(payload)
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	return task
}

func TestMonthlyReportDefaultsToPreviousMonth(t *testing.T) {
	recipients := &stubRecipients{list: []Recipient{{UserID: 1, Email: "ana@example.com"}}}
	service := &stubAnalytics{rows: []analytics.MonthlyRow{{Year: 2024, Month: 2, MonthName: "February", Revenue: 10}}}
	mailer := &stubMailer{}

	job := NewMonthlyReportJob(recipients, service, mailer, nil)
	job.WithNow(func() time.Time {
		return time.Date(2024, time.March, 1, 6, 0, 0, 0, time.UTC)
	})

	if err := job.Handle(context.Background(), mustTask(t, MonthlyReportPayload{})); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(service.filters) != 1 {
		t.Fatalf("expected one rollup call, got %d", len(service.filters))
	}
	filter := service.filters[0]
	if filter.OwnerID != 1 {
		t.Fatalf("unexpected owner %d", filter.OwnerID)
	}
	wantFrom := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
	wantTo := time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC)
	if !filter.From.Equal(wantFrom) || !filter.To.Equal(wantTo) {
		t.Fatalf("unexpected window %v..%v", filter.From, filter.To)
	}

	if len(mailer.sent) != 1 {
		t.Fatalf("expected one mail, got %d", len(mailer.sent))
	}
	mail := mailer.sent[0]
	if mail.to != "ana@example.com" {
		t.Fatalf("unexpected recipient %q", mail.to)
	}
	if mail.subject != "DataPulse monthly summary 2024-02" {
		t.Fatalf("unexpected subject %q", mail.subject)
	}
	if !strings.Contains(string(mail.body), "2024,2,10") {
		t.Fatalf("csv attachment missing row:\n%s", mail.body)
	}
}

func TestMonthlyReportPreviousMonthFromMonthEnd(t *testing.T) {
	recipients := &stubRecipients{list: []Recipient{{UserID: 1, Email: "ana@example.com"}}}
	service := &stubAnalytics{}
	mailer := &stubMailer{}

	job := NewMonthlyReportJob(recipients, service, mailer, nil)
	job.WithNow(func() time.Time {
		return time.Date(2024, time.March, 31, 12, 0, 0, 0, time.UTC)
	})

	if err := job.Handle(context.Background(), mustTask(t, MonthlyReportPayload{})); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(service.filters) != 1 {
		t.Fatalf("expected one rollup call, got %d", len(service.filters))
	}
	wantFrom := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
	wantTo := time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC)
	if !service.filters[0].From.Equal(wantFrom) || !service.filters[0].To.Equal(wantTo) {
		t.Fatalf("window %v..%v, want February 2024", service.filters[0].From, service.filters[0].To)
	}
	if len(mailer.sent) != 1 || mailer.sent[0].subject != "DataPulse monthly summary 2024-02" {
		t.Fatalf("unexpected mail %v", mailer.sent)
	}
}

func TestMonthlyReportScopedToPayloadUser(t *testing.T) {
	recipients := &stubRecipients{list: []Recipient{
		{UserID: 1, Email: "ana@example.com"},
		{UserID: 2, Email: "bo@example.com"},
	}}
	service := &stubAnalytics{}
	mailer := &stubMailer{}

	job := NewMonthlyReportJob(recipients, service, mailer, nil)
	task := mustTask(t, MonthlyReportPayload{UserID: 2, Year: 2024, Month: 1})

	if err := job.Handle(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(mailer.sent) != 1 || mailer.sent[0].to != "bo@example.com" {
		t.Fatalf("expected single mail to bo@example.com, got %v", mailer.sent)
	}
	if service.filters[0].OwnerID != 2 {
		t.Fatalf("unexpected owner %d", service.filters[0].OwnerID)
	}
	if service.filters[0].From.Month() != time.January || service.filters[0].From.Year() != 2024 {
		t.Fatalf("unexpected window start %v", service.filters[0].From)
	}
}

func TestMonthlyReportFansOutToAllRecipients(t *testing.T) {
	recipients := &stubRecipients{list: []Recipient{
		{UserID: 1, Email: "ana@example.com"},
		{UserID: 2, Email: "bo@example.com"},
	}}
	service := &stubAnalytics{}
	mailer := &stubMailer{}

	job := NewMonthlyReportJob(recipients, service, mailer, nil)
	task := mustTask(t, MonthlyReportPayload{Year: 2024, Month: 1})

	if err := job.Handle(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(mailer.sent) != 2 {
		t.Fatalf("expected fan-out to 2 users, got %d", len(mailer.sent))
	}
}

func TestMonthlyReportSkipsRetryOnBadPayload(t *testing.T) {
	job := NewMonthlyReportJob(&stubRecipients{}, &stubAnalytics{}, &stubMailer{}, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskMonthlyReport, []byte("{not json")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

func TestMonthlyReportPropagatesMailerError(t *testing.T) {
	recipients := &stubRecipients{list: []Recipient{{UserID: 1, Email: "ana@example.com"}}}
	mailer := &stubMailer{err: errors.New("smtp down")}

	job := NewMonthlyReportJob(recipients, &stubAnalytics{}, mailer, nil)
	task := mustTask(t, MonthlyReportPayload{Year: 2024, Month: 1})

	err := job.Handle(context.Background(), task)
	if err == nil || !strings.Contains(err.Error(), "smtp down") {
		t.Fatalf("expected mailer error, got %v", err)
	}
}
