package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ftp-kitchen/api/internal/database"
	"github.com/ftp-kitchen/api/internal/enum"
	"github.com/ftp-kitchen/api/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// MenuStore defines the database methods needed by menu handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuStore interface {
	ListMenuItems(ctx context.Context, arg database.ListMenuItemsParams) ([]database.MenuItem, error)
	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	UpdateMenuItem(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error)
}

// MenuHandler handles the seasonal menu endpoints.
type MenuHandler struct {
	store MenuStore
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store MenuStore) *MenuHandler {
	return &MenuHandler{store: store}
}

// RegisterRoutes registers menu endpoints on the given Chi router.
// Expected to be mounted at /menu-items. Writes are admin only.
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(enum.UserRoleAdmin))
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
	})
}

// --- Request / Response types ---

type menuPriceRequest struct {
	ServingSize string `json:"serving_size"`
	Price       string `json:"price"`
}

type menuItemRequest struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Category    string             `json:"category"`
	Pricing     []menuPriceRequest `json:"pricing"`
	Allergens   []string           `json:"allergens"`
	IsAvailable *bool              `json:"is_available"`
}

// menuPrice is the stored shape of one pricing option.
type menuPrice struct {
	ServingSize string          `json:"serving_size"`
	Price       decimal.Decimal `json:"price"`
}

type menuPriceResponse struct {
	ServingSize string `json:"serving_size"`
	Price       string `json:"price"`
}

type menuItemResponse struct {
	ID          uuid.UUID           `json:"id"`
	Name        string              `json:"name"`
	Description *string             `json:"description"`
	Category    string              `json:"category"`
	Pricing     []menuPriceResponse `json:"pricing"`
	Allergens   []string            `json:"allergens"`
	IsAvailable bool                `json:"is_available"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func toMenuItemResponse(m database.MenuItem) menuItemResponse {
	resp := menuItemResponse{
		ID:          m.ID,
		Name:        m.Name,
		Category:    m.Category,
		Allergens:   m.Allergens,
		IsAvailable: m.IsAvailable,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
		Pricing:     []menuPriceResponse{},
	}
	if resp.Allergens == nil {
		resp.Allergens = []string{}
	}
	if m.Description.Valid {
		resp.Description = &m.Description.String
	}

	var prices []menuPrice
	if err := json.Unmarshal(m.Pricing, &prices); err != nil {
		log.Printf("WARN: decode pricing for menu item %s: %v", m.ID, err)
	}
	for _, p := range prices {
		resp.Pricing = append(resp.Pricing, menuPriceResponse{
			ServingSize: p.ServingSize,
			Price:       money(p.Price),
		})
	}
	return resp
}

// --- Helpers ---

var errInvalidPricing = errors.New("pricing requires serving_size and a price >= 0 for every option")

// validateMenuItem checks the request and returns the encoded pricing.
func validateMenuItem(req menuItemRequest) ([]byte, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, errors.New("name is required")
	}
	if !enum.IsMenuCategory(req.Category) {
		return nil, errors.New("invalid category")
	}
	if len(req.Pricing) == 0 {
		return nil, errors.New("pricing is required")
	}

	prices := make([]menuPrice, len(req.Pricing))
	for i, p := range req.Pricing {
		if strings.TrimSpace(p.ServingSize) == "" {
			return nil, errInvalidPricing
		}
		d, err := decimal.NewFromString(p.Price)
		if err != nil || d.IsNegative() {
			return nil, errInvalidPricing
		}
		prices[i] = menuPrice{ServingSize: strings.TrimSpace(p.ServingSize), Price: d.Round(2)}
	}
	return json.Marshal(prices)
}

func allergensOrEmpty(a []string) []string {
	if a == nil {
		return []string{}
	}
	return a
}

// --- Handlers ---

// List returns the menu. Unavailable items are hidden unless
// ?include_unavailable=true; ?category= narrows the list.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	params := database.ListMenuItemsParams{
		IncludeUnavailable: r.URL.Query().Get("include_unavailable") == "true",
	}
	if c := r.URL.Query().Get("category"); c != "" {
		if !enum.IsMenuCategory(c) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category"})
			return
		}
		params.Category = pgtype.Text{String: c, Valid: true}
	}

	items, err := h.store.ListMenuItems(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list menu items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]menuItemResponse, len(items))
	for i, m := range items {
		resp[i] = toMenuItemResponse(m)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single menu item by ID.
func (h *MenuHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	item, err := h.store.GetMenuItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: get menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

// Create adds a menu item.
func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	pricing, err := validateMenuItem(req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}

	item, err := h.store.CreateMenuItem(r.Context(), database.CreateMenuItemParams{
		Name:        strings.TrimSpace(req.Name),
		Description: optionalText(req.Description),
		Category:    req.Category,
		Pricing:     pricing,
		Allergens:   allergensOrEmpty(req.Allergens),
		IsAvailable: available,
	})
	if err != nil {
		log.Printf("ERROR: create menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toMenuItemResponse(item))
}

// Update replaces a menu item. Existing orders keep their own price snapshot.
func (h *MenuHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	pricing, err := validateMenuItem(req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	existing, err := h.store.GetMenuItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: get menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	available := existing.IsAvailable
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}

	item, err := h.store.UpdateMenuItem(r.Context(), database.UpdateMenuItemParams{
		ID:          id,
		Name:        strings.TrimSpace(req.Name),
		Description: optionalText(req.Description),
		Category:    req.Category,
		Pricing:     pricing,
		Allergens:   allergensOrEmpty(req.Allergens),
		IsAvailable: available,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: update menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

func optionalText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
