package analytichttp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/datapulse/datapulse/internal/analytics"
	"github.com/datapulse/datapulse/internal/analytics/export"
	"github.com/datapulse/datapulse/internal/shared"
)

// fakeService records the last filter under a mutex; the dashboard handler
// calls the three methods from concurrent goroutines.
type fakeService struct {
	summary analytics.KPISummary
	series  []analytics.TimePoint
	monthly []analytics.MonthlyRow
	err     error

	mu     sync.Mutex
	filter analytics.Filter
}

func (f *fakeService) record(filter analytics.Filter) {
	f.mu.Lock()
	f.filter = filter
	f.mu.Unlock()
}

func (f *fakeService) lastFilter() analytics.Filter {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filter
}

func (f *fakeService) GetKPISummary(ctx context.Context, filter analytics.Filter) (analytics.KPISummary, error) {
	f.record(filter)
	return f.summary, f.err
}

func (f *fakeService) GetDailySeries(ctx context.Context, filter analytics.Filter) ([]analytics.TimePoint, error) {
	f.record(filter)
	return f.series, f.err
}

func (f *fakeService) GetMonthlyRollup(ctx context.Context, filter analytics.Filter) ([]analytics.MonthlyRow, error) {
	f.record(filter)
	return f.monthly, f.err
}

type fakePDF struct {
	data []byte
	err  error
}

func (f *fakePDF) RenderMonthly(ctx context.Context, report export.MonthlyReport) ([]byte, error) {
	return f.data, f.err
}

type fakeQueue struct {
	userID int64
	year   int
	month  int
	err    error
	calls  int
}

func (f *fakeQueue) EnqueueMonthlyReport(ctx context.Context, userID int64, year, month int) error {
	f.calls++
	f.userID, f.year, f.month = userID, year, month
	return f.err
}

func newTestRouter(service AnalyticsService, pdf PDFService) http.Handler {
	return newTestRouterWithQueue(service, pdf, nil)
}

func newTestRouterWithQueue(service AnalyticsService, pdf PDFService, queue ReportEnqueuer) http.Handler {
	h := NewHandler(slog.Default(), service, pdf, queue)
	r := chi.NewRouter()
	r.Route("/dashboard", h.MountRoutes)
	return r
}

func authed(req *http.Request, userID int64) *http.Request {
	sess := &shared.Session{}
	sess.SetUser(userID)
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func TestKPIRequiresAuthentication(t *testing.T) {
	router := newTestRouter(&fakeService{}, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/dashboard/kpi", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}

func TestKPIReturnsSummary(t *testing.T) {
	service := &fakeService{summary: analytics.KPISummary{
		TotalRevenue:    25,
		TotalCost:       17,
		TotalProfit:     8,
		MarginPercent:   32,
		TotalSalesCount: 2,
	}}
	router := newTestRouter(service, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authed(httptest.NewRequest(http.MethodGet, "/dashboard/kpi", nil), 42))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rr.Code, rr.Body.String())
	}
	if got := service.lastFilter(); got.OwnerID != 42 {
		t.Fatalf("owner = %d, want 42", got.OwnerID)
	}

	var got analytics.KPISummary
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got != service.summary {
		t.Fatalf("body = %+v, want %+v", got, service.summary)
	}
}

func TestKPIParsesDateRange(t *testing.T) {
	service := &fakeService{}
	router := newTestRouter(service, nil)

	rr := httptest.NewRecorder()
	req := authed(httptest.NewRequest(http.MethodGet, "/dashboard/kpi?from=2024-01-01&to=2024-03-31", nil), 1)
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	got := service.lastFilter()
	if got.From == nil || got.From.Format("2006-01-02") != "2024-01-01" {
		t.Fatalf("from bound wrong: %v", got.From)
	}
	if got.To == nil || got.To.Format("2006-01-02") != "2024-03-31" {
		t.Fatalf("to bound wrong: %v", got.To)
	}
}

func TestKPIRejectsMalformedDate(t *testing.T) {
	router := newTestRouter(&fakeService{}, nil)

	rr := httptest.NewRecorder()
	req := authed(httptest.NewRequest(http.MethodGet, "/dashboard/kpi?from=January", nil), 1)
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestTimeSeriesEmptyIsJSONArray(t *testing.T) {
	router := newTestRouter(&fakeService{}, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authed(httptest.NewRequest(http.MethodGet, "/dashboard/timeseries", nil), 1))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if body := strings.TrimSpace(rr.Body.String()); body != "[]" {
		t.Fatalf("body = %q, want empty array", body)
	}
}

func TestDashboardAggregatesAllSections(t *testing.T) {
	service := &fakeService{
		summary: analytics.KPISummary{TotalSalesCount: 1},
		monthly: []analytics.MonthlyRow{{Year: 2024, Month: 1, MonthName: "January"}},
	}
	router := newTestRouter(service, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authed(httptest.NewRequest(http.MethodGet, "/dashboard", nil), 1))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var got map[string]json.RawMessage
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	for _, key := range []string{"kpi", "timeseries", "monthly"} {
		if _, ok := got[key]; !ok {
			t.Fatalf("missing %q section in %s", key, rr.Body.String())
		}
	}
}

func TestCSVExportSetsAttachmentHeaders(t *testing.T) {
	service := &fakeService{monthly: []analytics.MonthlyRow{
		{Year: 2024, Month: 1, MonthName: "January", Revenue: 20, Cost: 12, Profit: 8},
	}}
	router := newTestRouter(service, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authed(httptest.NewRequest(http.MethodGet, "/dashboard/export/csv", nil), 1))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content type = %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "monthly_summary.csv") {
		t.Fatalf("content disposition = %q", cd)
	}
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
}

func TestPDFExportStreamsDocument(t *testing.T) {
	service := &fakeService{monthly: []analytics.MonthlyRow{{Year: 2024, Month: 1, MonthName: "January"}}}
	router := newTestRouter(service, &fakePDF{data: []byte("PDF")})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authed(httptest.NewRequest(http.MethodGet, "/dashboard/export/pdf", nil), 1))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content type = %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "monthly_summary.pdf") {
		t.Fatalf("content disposition = %q", cd)
	}
	if rr.Body.String() != "PDF" {
		t.Fatalf("body = %q", rr.Body.String())
	}
}

func TestStoreFailurePropagatesAsServerError(t *testing.T) {
	router := newTestRouter(&fakeService{err: errors.New("store unreachable")}, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authed(httptest.NewRequest(http.MethodGet, "/dashboard/monthly", nil), 1))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
}

func TestEmailReportQueuesJob(t *testing.T) {
	queue := &fakeQueue{}
	router := newTestRouterWithQueue(&fakeService{}, nil, queue)

	rr := httptest.NewRecorder()
	req := authed(httptest.NewRequest(http.MethodPost, "/dashboard/export/email?year=2024&month=2", nil), 7)
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rr.Code, rr.Body.String())
	}
	if queue.calls != 1 || queue.userID != 7 || queue.year != 2024 || queue.month != 2 {
		t.Fatalf("unexpected enqueue %+v", queue)
	}
}

func TestEmailReportRejectsPartialMonth(t *testing.T) {
	queue := &fakeQueue{}
	router := newTestRouterWithQueue(&fakeService{}, nil, queue)

	rr := httptest.NewRecorder()
	req := authed(httptest.NewRequest(http.MethodPost, "/dashboard/export/email?year=2024", nil), 7)
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if queue.calls != 0 {
		t.Fatal("nothing should be enqueued")
	}
}

func TestEmailReportWithoutQueueUnavailable(t *testing.T) {
	router := newTestRouter(&fakeService{}, nil)

	rr := httptest.NewRecorder()
	req := authed(httptest.NewRequest(http.MethodPost, "/dashboard/export/email", nil), 7)
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
}
