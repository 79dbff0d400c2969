package handler

import (
	"context"
	"net/http"

	"github.com/ftp-kitchen/api/internal/service"
	"github.com/go-chi/chi/v5"
)

// AnalyticsServicer defines the read-only aggregations behind the analytics
// endpoints. Satisfied by *service.Aggregator.
type AnalyticsServicer interface {
	Dashboard(ctx context.Context) (*service.DashboardStats, error)
	Daily(ctx context.Context, date string) (*service.DailyStats, error)
	Range(ctx context.Context, startDate, endDate string) (*service.RangeStats, error)
}

// AnalyticsHandler handles analytics endpoints.
type AnalyticsHandler struct {
	svc AnalyticsServicer
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(svc AnalyticsServicer) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

// RegisterRoutes registers analytics endpoints.
// Expected to be mounted at /analytics behind an operations/admin role check.
func (h *AnalyticsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard", h.Dashboard)
	r.Get("/daily", h.Daily)
	r.Get("/range", h.Range)
}

// Dashboard returns the headline figures over all non-deleted orders.
func (h *AnalyticsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Dashboard(r.Context())
	if err != nil {
		writeServiceError(w, "dashboard stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Daily returns the collection summary for ?date= (YYYY-MM-DD, default today).
func (h *AnalyticsHandler) Daily(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Daily(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		writeServiceError(w, "daily stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Range returns the summary for ?start_date=&end_date=, both inclusive.
func (h *AnalyticsHandler) Range(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	stats, err := h.svc.Range(r.Context(), q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		writeServiceError(w, "range stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
