package router

import (
	"log"
	"net/http"

	"github.com/ftp-kitchen/api/internal/cache"
	"github.com/ftp-kitchen/api/internal/config"
	"github.com/ftp-kitchen/api/internal/database"
	"github.com/ftp-kitchen/api/internal/enum"
	"github.com/ftp-kitchen/api/internal/handler"
	mw "github.com/ftp-kitchen/api/internal/middleware"
	"github.com/ftp-kitchen/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// New creates a Chi router with all application routes wired up.
// statsCache may be nil, in which case analytics are computed on every request.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, statsCache *cache.StatsCache) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// Services
	loc := cfg.Location()
	audit := service.NewAuditRecorder(queries)
	orderService := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}, queries, audit, loc)
	guestService := service.NewGuestService(queries, audit)
	enquiryService := service.NewEnquiryService(pool, func(db database.DBTX) service.EnquiryStore {
		return database.New(db)
	}, queries, orderService, audit)
	aggregator := service.NewAggregator(queries, loc)

	// Leave the interfaces unset rather than holding a typed nil.
	if statsCache != nil {
		orderService.SetStatsInvalidator(statsCache)
		guestService.SetStatsInvalidator(statsCache)
		aggregator.SetCache(statsCache)
	}

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		orderHandler := handler.NewOrderHandler(orderService, loc)
		r.Route("/orders", func(r chi.Router) {
			orderHandler.RegisterRoutes(r)

			// Payments (nested under orders)
			paymentHandler := handler.NewPaymentHandler(orderService)
			r.Route("/{id}/payments", paymentHandler.RegisterRoutes)
		})

		guestHandler := handler.NewGuestHandler(guestService, orderService)
		r.Route("/guests", guestHandler.RegisterRoutes)

		enquiryHandler := handler.NewEnquiryHandler(enquiryService)
		r.Route("/enquiries", enquiryHandler.RegisterRoutes)

		menuHandler := handler.NewMenuHandler(queries)
		r.Route("/menu-items", menuHandler.RegisterRoutes)

		// Analytics (admin and operations only)
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleAdmin, enum.UserRoleOperations))
			analyticsHandler := handler.NewAnalyticsHandler(aggregator)
			r.Route("/analytics", analyticsHandler.RegisterRoutes)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
