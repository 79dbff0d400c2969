package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/ftp-kitchen/api/internal/enum"
	"github.com/ftp-kitchen/api/internal/handler"
	"github.com/ftp-kitchen/api/internal/middleware"
	"github.com/ftp-kitchen/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type mockAnalytics struct {
	dashboardFn func(ctx context.Context) (*service.DashboardStats, error)
	dailyFn     func(ctx context.Context, date string) (*service.DailyStats, error)
	rangeFn     func(ctx context.Context, startDate, endDate string) (*service.RangeStats, error)
}

func (m *mockAnalytics) Dashboard(ctx context.Context) (*service.DashboardStats, error) {
	return m.dashboardFn(ctx)
}

func (m *mockAnalytics) Daily(ctx context.Context, date string) (*service.DailyStats, error) {
	return m.dailyFn(ctx, date)
}

func (m *mockAnalytics) Range(ctx context.Context, startDate, endDate string) (*service.RangeStats, error) {
	return m.rangeFn(ctx, startDate, endDate)
}

func newAnalyticsRouter(svc *mockAnalytics) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testSecret))
	r.With(middleware.RequireRole(enum.UserRoleAdmin, enum.UserRoleOperations)).
		Route("/analytics", handler.NewAnalyticsHandler(svc).RegisterRoutes)
	return r
}

func TestAnalyticsDashboard(t *testing.T) {
	svc := &mockAnalytics{
		dashboardFn: func(_ context.Context) (*service.DashboardStats, error) {
			return &service.DashboardStats{
				TotalRevenue: decimal.RequireFromString("1270"),
				TotalOrders:  2,
				StatusCounts: map[string]int{enum.OrderStatusPending: 2},
			}, nil
		},
	}
	router := newAnalyticsRouter(svc)

	rr := doAuthed(t, router, "GET", "/analytics/dashboard", nil, enum.UserRoleOrderTaker)
	if rr.Code != http.StatusForbidden {
		t.Errorf("order-taker: got %d, want %d", rr.Code, http.StatusForbidden)
	}

	rr = doAuthed(t, router, "GET", "/analytics/dashboard", nil, enum.UserRoleOperations)
	if rr.Code != http.StatusOK {
		t.Fatalf("operations: got %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decodeResponse(t, rr)
	if resp["total_revenue"] != "1270" || resp["total_orders"] != float64(2) {
		t.Errorf("dashboard: %v", resp)
	}
}

func TestAnalyticsDaily(t *testing.T) {
	var gotDate string
	svc := &mockAnalytics{
		dailyFn: func(_ context.Context, date string) (*service.DailyStats, error) {
			gotDate = date
			if date == "24-12-2024" {
				return nil, service.ErrInvalidDate
			}
			return &service.DailyStats{Date: date, TotalOrders: 5}, nil
		},
	}
	router := newAnalyticsRouter(svc)

	rr := doAuthed(t, router, "GET", "/analytics/daily?date=2024-12-24", nil, enum.UserRoleAdmin)
	if rr.Code != http.StatusOK || gotDate != "2024-12-24" {
		t.Fatalf("daily: code %d date %q", rr.Code, gotDate)
	}
	if resp := decodeResponse(t, rr); resp["total_orders"] != float64(5) {
		t.Errorf("total_orders: got %v", resp["total_orders"])
	}

	rr = doAuthed(t, router, "GET", "/analytics/daily?date=24-12-2024", nil, enum.UserRoleAdmin)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad date: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestAnalyticsRange(t *testing.T) {
	svc := &mockAnalytics{
		rangeFn: func(_ context.Context, startDate, endDate string) (*service.RangeStats, error) {
			switch {
			case startDate == "" || endDate == "":
				return nil, service.ErrDateRangeRequired
			case endDate < startDate:
				return nil, service.ErrInvalidDateRange
			}
			return &service.RangeStats{StartDate: startDate, EndDate: endDate}, nil
		},
	}
	router := newAnalyticsRouter(svc)

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"valid", "?start_date=2024-12-20&end_date=2024-12-26", http.StatusOK},
		{"single day", "?start_date=2024-12-24&end_date=2024-12-24", http.StatusOK},
		{"missing end", "?start_date=2024-12-20", http.StatusBadRequest},
		{"reversed", "?start_date=2024-12-26&end_date=2024-12-20", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doAuthed(t, router, "GET", "/analytics/range"+tt.query, nil, enum.UserRoleOperations)
			if rr.Code != tt.want {
				t.Errorf("status: got %d, want %d", rr.Code, tt.want)
			}
		})
	}
}
