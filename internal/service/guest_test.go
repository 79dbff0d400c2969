package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ftp-kitchen/api/internal/database"
	"github.com/ftp-kitchen/api/internal/enum"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =====================
// Reconciliation
// =====================

func TestResolveGuest_CreatesFromDetails(t *testing.T) {
	db := newFakeDB()
	actor := uuid.New()

	res, err := ResolveGuest(context.Background(), db, GuestRef{
		Details: GuestDetails{Name: " Lina ", Email: " Lina@Example.com", Phone: "050"},
		Actor:   actor,
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !res.Created || res.Guest == nil {
		t.Fatalf("expected a created guest, got %+v", res)
	}
	if res.Guest.Email != "lina@example.com" || res.Guest.Name != "Lina" || res.Guest.CreatedBy != actor {
		t.Errorf("unexpected guest: %+v", res.Guest)
	}
	if res.Guest.PreferredContactMethod != enum.ContactMethodEmail {
		t.Errorf("expected email contact default, got %s", res.Guest.PreferredContactMethod)
	}
	if res.Details.Email != "lina@example.com" {
		t.Errorf("expected snapshot from profile, got %+v", res.Details)
	}

	again, err := ResolveGuest(context.Background(), db, GuestRef{Details: GuestDetails{Name: "Other", Email: "LINA@example.com"}})
	if err != nil {
		t.Fatalf("resolve again: %v", err)
	}
	if again.Created || again.Guest.ID != res.Guest.ID {
		t.Errorf("expected the existing guest to be reused")
	}
}

func TestResolveGuest_Errors(t *testing.T) {
	db := newFakeDB()
	ctx := context.Background()

	if _, err := ResolveGuest(ctx, db, GuestRef{Details: GuestDetails{Email: "x@example.com"}}); !errors.Is(err, ErrGuestNameRequired) {
		t.Errorf("expected ErrGuestNameRequired, got %v", err)
	}
	if _, err := ResolveGuest(ctx, db, GuestRef{Details: GuestDetails{Name: "X", Email: "not-an-email"}}); !errors.Is(err, ErrInvalidEmail) {
		t.Errorf("expected ErrInvalidEmail, got %v", err)
	}
	if _, err := ResolveGuest(ctx, db, GuestRef{GuestID: "abc"}); !errors.Is(err, ErrInvalidGuestID) {
		t.Errorf("expected ErrInvalidGuestID, got %v", err)
	}

	g, _ := db.CreateGuest(ctx, database.CreateGuestParams{Name: "Gone", Email: "gone@example.com"})
	_, _ = db.SoftDeleteGuest(ctx, database.SoftDeleteGuestParams{ID: g.ID})
	if _, err := ResolveGuest(ctx, db, GuestRef{GuestID: g.ID.String()}); !errors.Is(err, ErrGuestNotFound) {
		t.Errorf("expected deleted guest to be not found, got %v", err)
	}
}

func TestResolveGuest_DeletedEmailCreatesNewProfile(t *testing.T) {
	db := newFakeDB()
	ctx := context.Background()
	old, _ := db.CreateGuest(ctx, database.CreateGuestParams{Name: "Old", Email: "back@example.com"})
	_, _ = db.SoftDeleteGuest(ctx, database.SoftDeleteGuestParams{ID: old.ID})

	res, err := ResolveGuest(ctx, db, GuestRef{Details: GuestDetails{Name: "Back", Email: "back@example.com"}})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !res.Created || res.Guest.ID == old.ID {
		t.Errorf("expected a fresh profile for a reused email")
	}
}

func TestRollupGuest(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	o := mustCreate(t, env, env.basicReq())
	req := env.basicReq()
	req.CollectionDate = "2024-12-31"
	req.Items[0].Price = "100"
	mustCreate(t, env, req)
	gid := *o.GuestID

	// Corrupt the stored stats, then recompute.
	g := env.db.guests[gid]
	g.TotalOrders = 99
	env.db.guests[gid] = g

	if err := RollupGuest(ctx, env.db, gid); err != nil {
		t.Fatalf("rollup: %v", err)
	}
	g = env.db.guests[gid]
	if g.TotalOrders != 2 || !numericEquals(g.TotalSpent, "650") {
		t.Errorf("expected 2 / 650, got %d / %s", g.TotalOrders, numericToDecimal(g.TotalSpent))
	}
	want := time.Date(2024, 12, 31, 0, 0, 0, 0, env.dubai)
	if !g.LastOrderDate.Time.Equal(want) {
		t.Errorf("expected last order date %v, got %v", want, g.LastOrderDate.Time)
	}

	// Idempotent.
	if err := RollupGuest(ctx, env.db, gid); err != nil {
		t.Fatalf("second rollup: %v", err)
	}
	if env.db.guests[gid].TotalOrders != 2 {
		t.Errorf("expected rollup to be stable")
	}
}

func TestRollupGuest_SkipsMissingAndDeleted(t *testing.T) {
	db := newFakeDB()
	db.updateGuestStatsErr = errors.New("should not be called")
	ctx := context.Background()

	if err := RollupGuest(ctx, db, uuid.New()); err != nil {
		t.Errorf("expected missing guest to be skipped, got %v", err)
	}

	g, _ := db.CreateGuest(ctx, database.CreateGuestParams{Name: "Gone", Email: "gone@example.com"})
	_, _ = db.SoftDeleteGuest(ctx, database.SoftDeleteGuestParams{ID: g.ID})
	if err := RollupGuest(ctx, db, g.ID); err != nil {
		t.Errorf("expected deleted guest to be skipped, got %v", err)
	}
}

func TestComputeGuestStats_IgnoresDeleted(t *testing.T) {
	day := time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC)
	orders := []database.Order{
		{TotalAmount: makeNumeric("100.50"), CollectionDate: day},
		{TotalAmount: makeNumeric("900"), CollectionDate: day.AddDate(0, 0, 5), IsDeleted: true},
		{TotalAmount: makeNumeric("49.50"), CollectionDate: day.AddDate(0, 0, 1)},
	}

	stats := computeGuestStats(orders)
	if stats.TotalOrders != 2 || !decimalEquals(stats.TotalSpent, "150") {
		t.Errorf("expected 2 / 150, got %d / %s", stats.TotalOrders, stats.TotalSpent)
	}
	if stats.LastOrderDate == nil || !stats.LastOrderDate.Equal(day.AddDate(0, 0, 1)) {
		t.Errorf("unexpected last order date: %v", stats.LastOrderDate)
	}

	empty := computeGuestStats(nil)
	if empty.TotalOrders != 0 || !empty.TotalSpent.IsZero() || empty.LastOrderDate != nil {
		t.Errorf("expected zero stats, got %+v", empty)
	}
}

// =====================
// Guest service
// =====================

func TestGuestService_Create(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	g, err := env.guests.CreateGuest(ctx, CreateGuestRequest{Name: "Noor", Email: "Noor@Example.com", PreferredContactMethod: "phone", DietaryRequirements: "no nuts"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if g.Email != "noor@example.com" || g.PreferredContactMethod != enum.ContactMethodPhone || g.DietaryRequirements.String != "no nuts" {
		t.Errorf("unexpected guest: %+v", g)
	}

	_, err = env.guests.CreateGuest(ctx, CreateGuestRequest{Name: "Noor 2", Email: " noor@example.COM"})
	if !errors.Is(err, ErrGuestEmailExists) || !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrGuestEmailExists, got %v", err)
	}

	tests := []struct {
		name string
		req  CreateGuestRequest
		want error
	}{
		{"no name", CreateGuestRequest{Email: "a@example.com"}, ErrGuestNameRequired},
		{"no email", CreateGuestRequest{Name: "A"}, ErrGuestEmailRequired},
		{"bad email", CreateGuestRequest{Name: "A", Email: "a@b"}, ErrInvalidEmail},
		{"bad contact", CreateGuestRequest{Name: "A", Email: "a@example.com", PreferredContactMethod: "fax"}, ErrInvalidContactMethod},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.guests.CreateGuest(ctx, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestGuestService_Update(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	g, _ := env.guests.CreateGuest(ctx, CreateGuestRequest{Name: "Noor", Email: "noor@example.com"})
	other, _ := env.guests.CreateGuest(ctx, CreateGuestRequest{Name: "Zaid", Email: "zaid@example.com"})

	updated, err := env.guests.UpdateGuest(ctx, UpdateGuestRequest{GuestID: g.ID, Phone: strPtr("0551112222"), Notes: strPtr("VIP")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Phone != "0551112222" || updated.Notes.String != "VIP" {
		t.Errorf("unexpected guest: %+v", updated)
	}
	logs := env.db.logsOf(enum.EntityTypeGuest, g.ID)
	if len(logs) != 2 || logs[1] != enum.ChangeTypeUpdate {
		t.Errorf("expected create + update logs, got %v", logs)
	}

	if _, err := env.guests.UpdateGuest(ctx, UpdateGuestRequest{GuestID: g.ID, Email: strPtr("ZAID@example.com")}); !errors.Is(err, ErrGuestEmailExists) {
		t.Errorf("expected ErrGuestEmailExists, got %v", err)
	}
	if _, err := env.guests.UpdateGuest(ctx, UpdateGuestRequest{GuestID: g.ID, Name: strPtr("  ")}); !errors.Is(err, ErrGuestNameRequired) {
		t.Errorf("expected ErrGuestNameRequired, got %v", err)
	}
	if _, err := env.guests.UpdateGuest(ctx, UpdateGuestRequest{GuestID: uuid.New(), Name: strPtr("X")}); !errors.Is(err, ErrGuestNotFound) {
		t.Errorf("expected ErrGuestNotFound, got %v", err)
	}

	if err := env.guests.DeleteGuest(ctx, other.ID, env.actor); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.guests.UpdateGuest(ctx, UpdateGuestRequest{GuestID: other.ID, Name: strPtr("X")}); !errors.Is(err, ErrGuestDeleted) {
		t.Errorf("expected ErrGuestDeleted, got %v", err)
	}
	// The deleted profile's email is free again.
	if _, err := env.guests.UpdateGuest(ctx, UpdateGuestRequest{GuestID: g.ID, Email: strPtr("zaid@example.com")}); err != nil {
		t.Errorf("expected email of a deleted guest to be reusable, got %v", err)
	}
}

func TestGuestService_UpdateDoesNotTouchStats(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	o := mustCreate(t, env, env.basicReq())

	updated, err := env.guests.UpdateGuest(ctx, UpdateGuestRequest{GuestID: *o.GuestID, Name: strPtr("Sara K.")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.TotalOrders != 1 || !numericEquals(updated.TotalSpent, "550") {
		t.Errorf("expected rollup fields untouched, got %d / %s", updated.TotalOrders, numericToDecimal(updated.TotalSpent))
	}
}

func TestGuestService_Delete(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	o := mustCreate(t, env, env.basicReq())
	gid := *o.GuestID

	err := env.guests.DeleteGuest(ctx, gid, env.actor)
	if !errors.Is(err, ErrGuestHasOrders) || !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrGuestHasOrders, got %v", err)
	}

	if _, err := env.orders.DeleteOrder(ctx, DeleteOrderRequest{OrderID: o.ID}); err != nil {
		t.Fatalf("delete order: %v", err)
	}
	if err := env.guests.DeleteGuest(ctx, gid, env.actor); err != nil {
		t.Fatalf("delete guest: %v", err)
	}
	if !env.db.guests[gid].IsDeleted {
		t.Error("expected guest soft-deleted")
	}
	if _, err := env.guests.GetGuest(ctx, gid); !errors.Is(err, ErrGuestNotFound) {
		t.Errorf("expected deleted guest hidden, got %v", err)
	}
	if err := env.guests.DeleteGuest(ctx, gid, env.actor); !errors.Is(err, ErrGuestDeleted) {
		t.Errorf("expected ErrGuestDeleted, got %v", err)
	}
	if err := env.guests.DeleteGuest(ctx, uuid.New(), env.actor); !errors.Is(err, ErrGuestNotFound) {
		t.Errorf("expected ErrGuestNotFound, got %v", err)
	}
}

func TestGuestService_ListAndSearch(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	for _, g := range []CreateGuestRequest{
		{Name: "Amal", Email: "amal@example.com"},
		{Name: "Bilal", Email: "bilal@example.com", Phone: "0509998888"},
		{Name: "Carla", Email: "carla@example.com"},
	} {
		if _, err := env.guests.CreateGuest(ctx, g); err != nil {
			t.Fatalf("create %s: %v", g.Name, err)
		}
	}

	guests, total, err := env.guests.ListGuests(ctx, "", 2, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(guests) != 2 {
		t.Errorf("expected page of 2 with total 3, got %d / %d", len(guests), total)
	}

	_, total, _ = env.guests.ListGuests(ctx, "bil", 20, 0)
	if total != 1 {
		t.Errorf("expected 1 match, got %d", total)
	}

	found, err := env.guests.SearchGuests(ctx, "9998")
	if err != nil || len(found) != 1 || found[0].Name != "Bilal" {
		t.Errorf("expected Bilal by phone, got %v / %v", found, err)
	}
	if _, err := env.guests.SearchGuests(ctx, " a "); !errors.Is(err, ErrSearchTooShort) {
		t.Errorf("expected ErrSearchTooShort, got %v", err)
	}
}

func TestGuestService_LinkUnassignedOrders(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	// Orders written before guest profiles existed.
	legacy := func(number, email, amount string) {
		o := &Order{
			OrderNumber:    number,
			GuestDetails:   GuestDetails{Name: "Legacy " + number, Email: email},
			Items:          []OrderItem{},
			TotalAmount:    decimal.RequireFromString(amount),
			CollectionDate: time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC),
			CollectionTime: "12:00",
			Status:         enum.OrderStatusCollected,
			PaymentMethod:  enum.PaymentMethodCash,
			PaymentStatus:  enum.PaymentStatusPending,
		}
		params, err := createOrderParams(o)
		if err != nil {
			t.Fatalf("params: %v", err)
		}
		if _, err := env.db.CreateOrder(ctx, params); err != nil {
			t.Fatalf("seed order: %v", err)
		}
	}
	legacy("FTP-0001", "Repeat@Example.com", "100")
	legacy("FTP-0002", "repeat@example.com", "50")
	legacy("FTP-0003", "", "75")

	linked, err := env.guests.LinkUnassignedOrders(ctx, env.actor)
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if linked != 2 {
		t.Errorf("expected 2 linked orders, got %d", linked)
	}
	if len(env.db.guests) != 1 {
		t.Fatalf("expected 1 guest created, got %d", len(env.db.guests))
	}
	for _, g := range env.db.guests {
		if g.TotalOrders != 2 || !numericEquals(g.TotalSpent, "150") {
			t.Errorf("expected 2 / 150, got %d / %s", g.TotalOrders, numericToDecimal(g.TotalSpent))
		}
	}
	if env.stats.calls != 1 {
		t.Errorf("expected 1 invalidation, got %d", env.stats.calls)
	}

	// Running again links nothing new.
	linked, err = env.guests.LinkUnassignedOrders(ctx, env.actor)
	if err != nil || linked != 0 {
		t.Errorf("expected 0 on rerun, got %d / %v", linked, err)
	}
}

func TestGuestService_RollupAll(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	o := mustCreate(t, env, env.basicReq())
	g := env.db.guests[*o.GuestID]
	g.TotalOrders = 0
	g.TotalSpent = makeNumeric("0")
	env.db.guests[g.ID] = g

	n, err := env.guests.RollupAll(ctx)
	if err != nil {
		t.Fatalf("rollup all: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 guest processed, got %d", n)
	}
	if env.db.guests[g.ID].TotalOrders != 1 {
		t.Errorf("expected stats restored")
	}
}
