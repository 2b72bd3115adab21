package analytichttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/datapulse/datapulse/internal/analytics"
	"github.com/datapulse/datapulse/internal/analytics/export"
	"github.com/datapulse/datapulse/internal/platform/httpx"
	"github.com/datapulse/datapulse/internal/shared"
)

const requestTimeout = 5 * time.Second

// AnalyticsService defines the aggregation contract used by the handler.
type AnalyticsService interface {
	GetKPISummary(ctx context.Context, filter analytics.Filter) (analytics.KPISummary, error)
	GetDailySeries(ctx context.Context, filter analytics.Filter) ([]analytics.TimePoint, error)
	GetMonthlyRollup(ctx context.Context, filter analytics.Filter) ([]analytics.MonthlyRow, error)
}

// PDFService renders monthly summary content to PDF bytes.
type PDFService interface {
	RenderMonthly(ctx context.Context, report export.MonthlyReport) ([]byte, error)
}

// ReportEnqueuer schedules an emailed monthly report for one user.
type ReportEnqueuer interface {
	EnqueueMonthlyReport(ctx context.Context, userID int64, year, month int) error
}

// Handler coordinates HTTP requests for the sales analytics dashboard.
type Handler struct {
	logger  *slog.Logger
	service AnalyticsService
	pdf     PDFService
	reports ReportEnqueuer
	csvPool sync.Pool
}

// NewHandler constructs the analytics HTTP handler. reports may be nil when
// no job queue is available; the email endpoint then responds 503.
func NewHandler(logger *slog.Logger, service AnalyticsService, pdf PDFService, reports ReportEnqueuer) *Handler {
	h := &Handler{
		logger:  logger,
		service: service,
		pdf:     pdf,
		reports: reports,
	}
	h.csvPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.requireFilter(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var (
		summary analytics.KPISummary
		series  []analytics.TimePoint
		monthly []analytics.MonthlyRow
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary, err = h.service.GetKPISummary(ctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		series, err = h.service.GetDailySeries(ctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		monthly, err = h.service.GetMonthlyRollup(ctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		h.handleServerError(w, "load dashboard", err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"kpi":        summary,
		"timeseries": emptyable(series),
		"monthly":    emptyable(monthly),
	})
}

func (h *Handler) handleKPI(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.requireFilter(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	summary, err := h.service.GetKPISummary(ctx, filter)
	if err != nil {
		h.handleServerError(w, "load kpi", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) handleTimeSeries(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.requireFilter(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	points, err := h.service.GetDailySeries(ctx, filter)
	if err != nil {
		h.handleServerError(w, "load timeseries", err)
		return
	}
	httpx.JSON(w, http.StatusOK, emptyable(points))
}

func (h *Handler) handleMonthly(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.requireFilter(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	rows, err := h.service.GetMonthlyRollup(ctx, filter)
	if err != nil {
		h.handleServerError(w, "load monthly rollup", err)
		return
	}
	httpx.JSON(w, http.StatusOK, emptyable(rows))
}

func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.requireFilter(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	rows, err := h.service.GetMonthlyRollup(ctx, filter)
	if err != nil {
		h.handleServerError(w, "load monthly rollup", err)
		return
	}

	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()

	if err := export.WriteMonthlyCSV(buf, rows); err != nil {
		h.handleServerError(w, "write monthly csv", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", export.MonthlyCSVFilename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream csv", err)
	}
}

func (h *Handler) handlePDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		h.handleServerError(w, "pdf exporter", errors.New("pdf exporter not configured"))
		return
	}

	filter, ok := h.requireFilter(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	rows, err := h.service.GetMonthlyRollup(ctx, filter)
	if err != nil {
		h.handleServerError(w, "load monthly rollup", err)
		return
	}

	pdfBytes, err := h.pdf.RenderMonthly(ctx, export.MonthlyReport{
		Title: "Monthly Sales Summary",
		Rows:  rows,
	})
	if err != nil {
		h.handleServerError(w, "render pdf", err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", export.MonthlyPDFFilename))
	if _, err := w.Write(pdfBytes); err != nil {
		h.logError("stream pdf", err)
	}
}

func (h *Handler) handleEmailReport(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "report delivery is not configured")
		return
	}

	ownerID, err := shared.PrincipalFromContext(r.Context())
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}

	// Both params or neither; the job defaults to the previous month.
	year, month, ok := h.parseReportMonth(w, r)
	if !ok {
		return
	}

	if err := h.reports.EnqueueMonthlyReport(r.Context(), ownerID, year, month); err != nil {
		h.handleServerError(w, "enqueue monthly report", err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{"status": "queued"})
}

func (h *Handler) parseReportMonth(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	rawYear := strings.TrimSpace(r.URL.Query().Get("year"))
	rawMonth := strings.TrimSpace(r.URL.Query().Get("month"))
	if rawYear == "" && rawMonth == "" {
		return 0, 0, true
	}
	if rawYear == "" || rawMonth == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "year and month must be provided together")
		return 0, 0, false
	}
	year, err := strconv.Atoi(rawYear)
	if err != nil || year < 2000 || year > 9999 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid year")
		return 0, 0, false
	}
	month, err := strconv.Atoi(rawMonth)
	if err != nil || month < 1 || month > 12 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid month")
		return 0, 0, false
	}
	return year, month, true
}

// requireFilter resolves the authenticated owner and parses the optional
// date-range query params. It writes the error response itself and reports
// success through the bool.
func (h *Handler) requireFilter(w http.ResponseWriter, r *http.Request) (analytics.Filter, bool) {
	ownerID, err := shared.PrincipalFromContext(r.Context())
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return analytics.Filter{}, false
	}

	filter := analytics.Filter{OwnerID: ownerID}
	for _, bound := range []struct {
		param string
		dest  **time.Time
	}{
		{"from", &filter.From},
		{"to", &filter.To},
	} {
		raw := strings.TrimSpace(r.URL.Query().Get(bound.param))
		if raw == "" {
			continue
		}
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed",
				fmt.Sprintf("invalid %s date, expected YYYY-MM-DD", bound.param))
			return analytics.Filter{}, false
		}
		*bound.dest = &parsed
	}
	return filter, true
}

func (h *Handler) handleServerError(w http.ResponseWriter, context string, err error) {
	h.logError(context, err)
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}

func (h *Handler) logError(context string, err error) {
	if h.logger != nil {
		h.logger.Error(context, slog.Any("error", err))
	}
}

// emptyable keeps empty result sets as [] rather than null in JSON.
func emptyable[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
