package analytichttp

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/datapulse/datapulse/internal/shared"
)

// MountRoutes registers dashboard and export endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Get("/", h.handleDashboard)
	r.Get("/kpi", h.handleKPI)
	r.Get("/timeseries", h.handleTimeSeries)
	r.Get("/monthly", h.handleMonthly)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/export/csv", h.handleCSV)
		gr.Get("/export/pdf", h.handlePDF)
		gr.Post("/export/email", h.handleEmailReport)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if id, err := shared.PrincipalFromContext(r.Context()); err == nil {
		return "user:" + strconv.FormatInt(id, 10), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
