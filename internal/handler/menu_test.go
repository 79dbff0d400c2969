package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/ftp-kitchen/api/internal/database"
	"github.com/ftp-kitchen/api/internal/enum"
	"github.com/ftp-kitchen/api/internal/handler"
	"github.com/ftp-kitchen/api/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// --- Mock MenuStore ---

type mockMenuStore struct {
	listFn   func(ctx context.Context, arg database.ListMenuItemsParams) ([]database.MenuItem, error)
	getFn    func(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	createFn func(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	updateFn func(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error)
}

func (m *mockMenuStore) ListMenuItems(ctx context.Context, arg database.ListMenuItemsParams) ([]database.MenuItem, error) {
	return m.listFn(ctx, arg)
}

func (m *mockMenuStore) GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return database.MenuItem{}, pgx.ErrNoRows
}

func (m *mockMenuStore) CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error) {
	return m.createFn(ctx, arg)
}

func (m *mockMenuStore) UpdateMenuItem(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error) {
	return m.updateFn(ctx, arg)
}

func newMenuRouter(store *mockMenuStore) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testSecret))
	r.Route("/menu-items", handler.NewMenuHandler(store).RegisterRoutes)
	return r
}

func sampleMenuItem() database.MenuItem {
	return database.MenuItem{
		ID:          uuid.New(),
		Name:        "Turkey Whole",
		Category:    enum.MenuCategoryRoasts,
		Pricing:     []byte(`[{"serving_size":"6-8 people","price":"550"},{"serving_size":"10-12 people","price":"720.5"}]`),
		IsAvailable: true,
	}
}

func TestMenuList(t *testing.T) {
	var got database.ListMenuItemsParams
	store := &mockMenuStore{
		listFn: func(_ context.Context, arg database.ListMenuItemsParams) ([]database.MenuItem, error) {
			got = arg
			return []database.MenuItem{sampleMenuItem()}, nil
		},
	}
	router := newMenuRouter(store)

	rr := doAuthed(t, router, "GET", "/menu-items?category=roasts", nil, enum.UserRoleOrderTaker)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if !got.Category.Valid || got.Category.String != "roasts" || got.IncludeUnavailable {
		t.Errorf("params: %+v", got)
	}

	var items []map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	pricing, _ := items[0]["pricing"].([]interface{})
	if len(pricing) != 2 || pricing[1].(map[string]interface{})["price"] != "720.50" {
		t.Errorf("pricing: %v", items[0]["pricing"])
	}
	if allergens, ok := items[0]["allergens"].([]interface{}); !ok || len(allergens) != 0 {
		t.Errorf("allergens should be an empty list: %v", items[0]["allergens"])
	}

	rr = doAuthed(t, router, "GET", "/menu-items?category=drinks", nil, enum.UserRoleOrderTaker)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad category: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestMenuGet_NotFound(t *testing.T) {
	rr := doAuthed(t, newMenuRouter(&mockMenuStore{}), "GET", "/menu-items/"+uuid.New().String(), nil, enum.UserRoleOrderTaker)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestMenuCreate(t *testing.T) {
	var got database.CreateMenuItemParams
	store := &mockMenuStore{
		createFn: func(_ context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error) {
			got = arg
			item := sampleMenuItem()
			item.Pricing = arg.Pricing
			return item, nil
		},
	}
	router := newMenuRouter(store)
	body := map[string]interface{}{
		"name":     "Smoked Salmon Side",
		"category": "smoked_salmon",
		"pricing":  []map[string]string{{"serving_size": "500g", "price": "185.555"}},
	}

	rr := doAuthed(t, router, "POST", "/menu-items", body, enum.UserRoleOperations)
	if rr.Code != http.StatusForbidden {
		t.Errorf("operations: got %d, want %d", rr.Code, http.StatusForbidden)
	}

	rr = doAuthed(t, router, "POST", "/menu-items", body, enum.UserRoleAdmin)
	if rr.Code != http.StatusCreated {
		t.Fatalf("admin: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	if !got.IsAvailable || got.Allergens == nil {
		t.Errorf("defaults: available %v allergens %v", got.IsAvailable, got.Allergens)
	}
	var stored []map[string]string
	if err := json.Unmarshal(got.Pricing, &stored); err != nil {
		t.Fatalf("stored pricing: %v", err)
	}
	if stored[0]["price"] != "185.56" {
		t.Errorf("price rounded: got %v", stored[0]["price"])
	}
}

func TestMenuCreate_Validation(t *testing.T) {
	router := newMenuRouter(&mockMenuStore{})
	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing name", map[string]interface{}{"category": "roasts", "pricing": []map[string]string{{"serving_size": "1", "price": "1"}}}},
		{"bad category", map[string]interface{}{"name": "X", "category": "drinks", "pricing": []map[string]string{{"serving_size": "1", "price": "1"}}}},
		{"no pricing", map[string]interface{}{"name": "X", "category": "roasts"}},
		{"negative price", map[string]interface{}{"name": "X", "category": "roasts", "pricing": []map[string]string{{"serving_size": "1", "price": "-1"}}}},
		{"blank size", map[string]interface{}{"name": "X", "category": "roasts", "pricing": []map[string]string{{"serving_size": " ", "price": "1"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doAuthed(t, router, "POST", "/menu-items", tt.body, enum.UserRoleAdmin)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestMenuUpdate_KeepsAvailability(t *testing.T) {
	existing := sampleMenuItem()
	existing.IsAvailable = false
	var got database.UpdateMenuItemParams
	store := &mockMenuStore{
		getFn: func(_ context.Context, id uuid.UUID) (database.MenuItem, error) {
			if id == existing.ID {
				return existing, nil
			}
			return database.MenuItem{}, pgx.ErrNoRows
		},
		updateFn: func(_ context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error) {
			got = arg
			return existing, nil
		},
	}
	router := newMenuRouter(store)
	body := map[string]interface{}{
		"name":     "Turkey Whole",
		"category": "roasts",
		"pricing":  []map[string]string{{"serving_size": "6-8 people", "price": "575"}},
	}

	rr := doAuthed(t, router, "PUT", "/menu-items/"+existing.ID.String(), body, enum.UserRoleAdmin)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if got.IsAvailable {
		t.Error("availability should be kept when omitted")
	}

	rr = doAuthed(t, router, "PUT", "/menu-items/"+uuid.New().String(), body, enum.UserRoleAdmin)
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}
