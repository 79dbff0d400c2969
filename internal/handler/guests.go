package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ftp-kitchen/api/internal/database"
	"github.com/ftp-kitchen/api/internal/enum"
	"github.com/ftp-kitchen/api/internal/middleware"
	"github.com/ftp-kitchen/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// GuestServicer defines the service methods needed by guest handlers.
// Satisfied by *service.GuestService.
type GuestServicer interface {
	CreateGuest(ctx context.Context, req service.CreateGuestRequest) (database.Guest, error)
	GetGuest(ctx context.Context, id uuid.UUID) (database.Guest, error)
	ListGuests(ctx context.Context, search string, limit, offset int32) ([]database.Guest, int64, error)
	SearchGuests(ctx context.Context, q string) ([]database.Guest, error)
	UpdateGuest(ctx context.Context, req service.UpdateGuestRequest) (database.Guest, error)
	DeleteGuest(ctx context.Context, id, deletedBy uuid.UUID) error
}

// GuestOrderLister lists a guest's orders. Satisfied by *service.OrderService.
type GuestOrderLister interface {
	ListOrders(ctx context.Context, f service.OrderFilter) ([]*service.Order, int64, error)
}

// GuestHandler handles guest profile endpoints.
type GuestHandler struct {
	svc    GuestServicer
	orders GuestOrderLister
}

// NewGuestHandler creates a new GuestHandler.
func NewGuestHandler(svc GuestServicer, orders GuestOrderLister) *GuestHandler {
	return &GuestHandler{svc: svc, orders: orders}
}

// RegisterRoutes registers guest endpoints on the given Chi router.
// Expected to be mounted at /guests.
func (h *GuestHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/search", h.Search)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.With(middleware.RequireRole(enum.UserRoleAdmin)).Delete("/", h.Delete)
		r.Get("/orders", h.Orders)
	})
}

// --- Request / Response types ---

type createGuestRequest struct {
	Name                   string `json:"name"`
	Email                  string `json:"email"`
	Phone                  string `json:"phone"`
	Address                string `json:"address"`
	Notes                  string `json:"notes"`
	DietaryRequirements    string `json:"dietary_requirements"`
	PreferredContactMethod string `json:"preferred_contact_method"`
}

type updateGuestRequest struct {
	Name                   *string `json:"name"`
	Email                  *string `json:"email"`
	Phone                  *string `json:"phone"`
	Address                *string `json:"address"`
	Notes                  *string `json:"notes"`
	DietaryRequirements    *string `json:"dietary_requirements"`
	PreferredContactMethod *string `json:"preferred_contact_method"`
}

type guestResponse struct {
	ID                     uuid.UUID  `json:"id"`
	Name                   string     `json:"name"`
	Email                  string     `json:"email"`
	Phone                  string     `json:"phone"`
	Address                string     `json:"address"`
	Notes                  *string    `json:"notes"`
	DietaryRequirements    *string    `json:"dietary_requirements"`
	PreferredContactMethod string     `json:"preferred_contact_method"`
	TotalOrders            int32      `json:"total_orders"`
	TotalSpent             string     `json:"total_spent"`
	LastOrderDate          *time.Time `json:"last_order_date"`
	IsDeleted              bool       `json:"is_deleted"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

type guestListResponse struct {
	Guests []guestResponse `json:"guests"`
	Total  int64           `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

func toGuestResponse(g database.Guest) guestResponse {
	resp := guestResponse{
		ID:                     g.ID,
		Name:                   g.Name,
		Email:                  g.Email,
		Phone:                  g.Phone,
		Address:                g.Address,
		PreferredContactMethod: g.PreferredContactMethod,
		TotalOrders:            g.TotalOrders,
		TotalSpent:             money(service.NumericToDecimal(g.TotalSpent)),
		IsDeleted:              g.IsDeleted,
		CreatedAt:              g.CreatedAt,
		UpdatedAt:              g.UpdatedAt,
	}
	if g.Notes.Valid {
		resp.Notes = &g.Notes.String
	}
	if g.DietaryRequirements.Valid {
		resp.DietaryRequirements = &g.DietaryRequirements.String
	}
	if g.LastOrderDate.Valid {
		resp.LastOrderDate = &g.LastOrderDate.Time
	}
	return resp
}

func toGuestResponses(guests []database.Guest) []guestResponse {
	out := make([]guestResponse, len(guests))
	for i, g := range guests {
		out[i] = toGuestResponse(g)
	}
	return out
}

// --- Handlers ---

// List returns a page of guests, optionally filtered by ?search=.
func (h *GuestHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	guests, total, err := h.svc.ListGuests(r.Context(), r.URL.Query().Get("search"), int32(limit), int32(offset))
	if err != nil {
		writeServiceError(w, "list guests", err)
		return
	}

	writeJSON(w, http.StatusOK, guestListResponse{
		Guests: toGuestResponses(guests),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// Search is the quick lookup used while taking an order: ?q= of at least two
// characters, at most ten matches.
func (h *GuestHandler) Search(w http.ResponseWriter, r *http.Request) {
	guests, err := h.svc.SearchGuests(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, "search guests", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"guests": toGuestResponses(guests)})
}

// Get returns a single guest by ID.
func (h *GuestHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid guest ID"})
		return
	}

	guest, err := h.svc.GetGuest(r.Context(), id)
	if err != nil {
		writeServiceError(w, "get guest", err)
		return
	}

	writeJSON(w, http.StatusOK, toGuestResponse(guest))
}

// Create creates a new guest profile.
func (h *GuestHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createGuestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	guest, err := h.svc.CreateGuest(r.Context(), service.CreateGuestRequest{
		CreatedBy:              claims.UserID,
		Name:                   req.Name,
		Email:                  req.Email,
		Phone:                  req.Phone,
		Address:                req.Address,
		Notes:                  req.Notes,
		DietaryRequirements:    req.DietaryRequirements,
		PreferredContactMethod: req.PreferredContactMethod,
	})
	if err != nil {
		writeServiceError(w, "create guest", err)
		return
	}

	writeJSON(w, http.StatusCreated, toGuestResponse(guest))
}

// Update applies partial profile changes. Rollup fields are not writable.
func (h *GuestHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid guest ID"})
		return
	}

	var req updateGuestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	guest, err := h.svc.UpdateGuest(r.Context(), service.UpdateGuestRequest{
		GuestID:                id,
		UpdatedBy:              claims.UserID,
		Name:                   req.Name,
		Email:                  req.Email,
		Phone:                  req.Phone,
		Address:                req.Address,
		Notes:                  req.Notes,
		DietaryRequirements:    req.DietaryRequirements,
		PreferredContactMethod: req.PreferredContactMethod,
	})
	if err != nil {
		writeServiceError(w, "update guest", err)
		return
	}

	writeJSON(w, http.StatusOK, toGuestResponse(guest))
}

// Delete soft-deletes a guest that has no remaining orders.
func (h *GuestHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid guest ID"})
		return
	}

	if err := h.svc.DeleteGuest(r.Context(), id, claims.UserID); err != nil {
		writeServiceError(w, "delete guest", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Orders returns a page of the guest's non-deleted orders, newest first.
func (h *GuestHandler) Orders(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid guest ID"})
		return
	}

	if _, err := h.svc.GetGuest(r.Context(), id); err != nil {
		writeServiceError(w, "get guest", err)
		return
	}

	limit, offset := parsePagination(r)
	orders, total, err := h.orders.ListOrders(r.Context(), service.OrderFilter{
		GuestID: &id,
		Limit:   int32(limit),
		Offset:  int32(offset),
	})
	if err != nil {
		writeServiceError(w, "list guest orders", err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}

	writeJSON(w, http.StatusOK, orderListResponse{
		Orders: resp,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}
