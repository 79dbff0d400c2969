package main

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ftp-kitchen/api/internal/database"
	"github.com/ftp-kitchen/api/internal/enum"
	"github.com/ftp-kitchen/api/internal/service"
	"github.com/google/uuid"
)

type fakeGuestCreator struct {
	requests []service.CreateGuestRequest
	seen     map[string]bool
}

func (f *fakeGuestCreator) CreateGuest(_ context.Context, req service.CreateGuestRequest) (database.Guest, error) {
	f.requests = append(f.requests, req)
	if f.seen[req.Email] {
		return database.Guest{}, service.ErrGuestEmailExists
	}
	f.seen[req.Email] = true
	return database.Guest{ID: uuid.New(), Name: req.Name, Email: req.Email}, nil
}

func TestSeedDemoGuests(t *testing.T) {
	creator := &fakeGuestCreator{seen: map[string]bool{}}
	admin := uuid.New()

	created := seedDemoGuests(context.Background(), creator, admin, 25)

	if len(creator.requests) != 25 {
		t.Fatalf("requests: got %d, want 25", len(creator.requests))
	}
	if created != len(creator.seen) {
		t.Errorf("created: got %d, want %d unique emails", created, len(creator.seen))
	}
	for _, req := range creator.requests {
		if req.CreatedBy != admin {
			t.Errorf("created_by: got %s, want %s", req.CreatedBy, admin)
		}
		if req.Name == "" || req.Email == "" || req.Phone == "" || req.Address == "" {
			t.Errorf("incomplete guest: %+v", req)
		}
		if req.PreferredContactMethod != enum.ContactMethodEmail && req.PreferredContactMethod != enum.ContactMethodPhone {
			t.Errorf("contact method: got %q", req.PreferredContactMethod)
		}
	}
}

func TestSeasonalMenu(t *testing.T) {
	names := map[string]bool{}
	for _, item := range seasonalMenu {
		if names[item.name] {
			t.Errorf("duplicate menu item %q", item.name)
		}
		names[item.name] = true

		if !enum.IsMenuCategory(item.category) {
			t.Errorf("%s: invalid category %q", item.name, item.category)
		}
		if len(item.pricing) == 0 {
			t.Errorf("%s: no pricing", item.name)
		}
		for _, p := range item.pricing {
			if p.ServingSize == "" || !p.Price.IsPositive() {
				t.Errorf("%s: bad price %+v", item.name, p)
			}
		}
	}

	data, err := json.Marshal(seasonalMenu[0].pricing)
	if err != nil {
		t.Fatalf("marshal pricing: %v", err)
	}
	if string(data) != `[{"serving_size":"6kgs For 8 people","price":"550"},{"serving_size":"8kgs For 10 people","price":"695"}]` {
		t.Errorf("pricing json: %s", data)
	}
}
