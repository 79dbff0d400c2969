package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/ftp-kitchen/api/internal/database"
	"github.com/ftp-kitchen/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const (
	guestEmailConstraint = "guests_active_email_key"
	guestSearchLimit     = 10
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// GuestStore defines the DB methods guest reconciliation needs.
// Satisfied by *database.Queries (and its WithTx variant).
type GuestStore interface {
	CreateGuest(ctx context.Context, arg database.CreateGuestParams) (database.Guest, error)
	GetGuest(ctx context.Context, id uuid.UUID) (database.Guest, error)
	GetActiveGuestByEmail(ctx context.Context, email string) (database.Guest, error)
	ListActiveOrdersByGuest(ctx context.Context, guestID uuid.UUID) ([]database.Order, error)
	UpdateGuestStats(ctx context.Context, arg database.UpdateGuestStatsParams) error
}

// GuestRef identifies the guest an order belongs to: an explicit id, or raw
// details whose email is used to find or create a profile.
type GuestRef struct {
	GuestID string
	Details GuestDetails
	Actor   uuid.UUID
}

// GuestResolution is the outcome of ResolveGuest. Guest is nil when the
// order carries only a raw snapshot.
type GuestResolution struct {
	Guest   *database.Guest
	Details GuestDetails
	Created bool
}

// GuestStats are the rollup values kept on a guest profile.
type GuestStats struct {
	TotalOrders   int32
	TotalSpent    decimal.Decimal
	LastOrderDate *time.Time
}

// NormalizeEmail is the dedup key for guest profiles.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ResolveGuest maps ref to a canonical guest profile, creating one from the
// raw details when the email is unknown.
func ResolveGuest(ctx context.Context, store GuestStore, ref GuestRef) (GuestResolution, error) {
	details := trimDetails(ref.Details)

	if ref.GuestID != "" {
		id, err := uuid.Parse(ref.GuestID)
		if err != nil {
			return GuestResolution{}, ErrInvalidGuestID
		}
		g, err := store.GetGuest(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return GuestResolution{}, ErrGuestNotFound
			}
			return GuestResolution{}, fmt.Errorf("get guest: %w", err)
		}
		if g.IsDeleted {
			return GuestResolution{}, ErrGuestNotFound
		}
		return GuestResolution{Guest: &g, Details: snapshotFromGuest(g)}, nil
	}

	email := NormalizeEmail(details.Email)
	if email == "" {
		return GuestResolution{Details: details}, nil
	}

	g, err := store.GetActiveGuestByEmail(ctx, email)
	if err == nil {
		return GuestResolution{Guest: &g, Details: snapshotFromGuest(g)}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return GuestResolution{}, fmt.Errorf("find guest by email: %w", err)
	}

	if details.Name == "" {
		return GuestResolution{}, ErrGuestNameRequired
	}
	if !emailPattern.MatchString(email) {
		return GuestResolution{}, ErrInvalidEmail
	}

	g, err = store.CreateGuest(ctx, database.CreateGuestParams{
		Name:                   details.Name,
		Email:                  email,
		Phone:                  details.Phone,
		Address:                details.Address,
		PreferredContactMethod: enum.ContactMethodEmail,
		CreatedBy:              ref.Actor,
	})
	if err != nil {
		if isUniqueViolation(err, guestEmailConstraint) {
			return GuestResolution{}, fmt.Errorf("create guest %s: %w", email, ErrGuestEmailExists)
		}
		return GuestResolution{}, fmt.Errorf("create guest: %w", err)
	}
	return GuestResolution{Guest: &g, Details: snapshotFromGuest(g), Created: true}, nil
}

// RollupGuest recomputes a guest's statistics from all of its non-deleted
// orders. Missing and deleted guests are skipped. Safe to re-run.
func RollupGuest(ctx context.Context, store GuestStore, guestID uuid.UUID) error {
	g, err := store.GetGuest(ctx, guestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("get guest for rollup: %w", err)
	}
	if g.IsDeleted {
		return nil
	}

	orders, err := store.ListActiveOrdersByGuest(ctx, guestID)
	if err != nil {
		return fmt.Errorf("list guest orders: %w", err)
	}

	stats := computeGuestStats(orders)
	last := pgtype.Timestamptz{}
	if stats.LastOrderDate != nil {
		last = pgtype.Timestamptz{Time: *stats.LastOrderDate, Valid: true}
	}
	if err := store.UpdateGuestStats(ctx, database.UpdateGuestStatsParams{
		ID:            guestID,
		TotalOrders:   stats.TotalOrders,
		TotalSpent:    decimalToNumeric(stats.TotalSpent),
		LastOrderDate: last,
	}); err != nil {
		return fmt.Errorf("update guest stats: %w", err)
	}
	return nil
}

func computeGuestStats(orders []database.Order) GuestStats {
	stats := GuestStats{TotalSpent: decimal.Zero}
	for _, o := range orders {
		if o.IsDeleted {
			continue
		}
		stats.TotalOrders++
		stats.TotalSpent = stats.TotalSpent.Add(numericToDecimal(o.TotalAmount))
		if stats.LastOrderDate == nil || o.CollectionDate.After(*stats.LastOrderDate) {
			d := o.CollectionDate
			stats.LastOrderDate = &d
		}
	}
	return stats
}

func snapshotFromGuest(g database.Guest) GuestDetails {
	return GuestDetails{
		Name:    g.Name,
		Email:   g.Email,
		Phone:   g.Phone,
		Address: g.Address,
	}
}

func trimDetails(d GuestDetails) GuestDetails {
	return GuestDetails{
		Name:    strings.TrimSpace(d.Name),
		Email:   strings.TrimSpace(d.Email),
		Phone:   strings.TrimSpace(d.Phone),
		Address: strings.TrimSpace(d.Address),
	}
}

// --- Guest service ---

// GuestAdminStore defines the DB methods needed by guest management.
// Satisfied by *database.Queries; narrow interface for testability.
type GuestAdminStore interface {
	GuestStore
	ListGuests(ctx context.Context, arg database.ListGuestsParams) ([]database.Guest, error)
	CountGuests(ctx context.Context, search pgtype.Text) (int64, error)
	SearchGuests(ctx context.Context, arg database.SearchGuestsParams) ([]database.Guest, error)
	UpdateGuest(ctx context.Context, arg database.UpdateGuestParams) (database.Guest, error)
	SoftDeleteGuest(ctx context.Context, arg database.SoftDeleteGuestParams) (database.Guest, error)
	CountActiveOrdersByGuest(ctx context.Context, guestID uuid.UUID) (int64, error)
	ListActiveGuestIDs(ctx context.Context) ([]uuid.UUID, error)
	ListUnlinkedOrders(ctx context.Context) ([]database.Order, error)
	SetOrderGuest(ctx context.Context, arg database.SetOrderGuestParams) (database.Order, error)
}

// CreateGuestRequest is the input for creating a guest profile.
type CreateGuestRequest struct {
	CreatedBy              uuid.UUID
	Name                   string
	Email                  string
	Phone                  string
	Address                string
	Notes                  string
	DietaryRequirements    string
	PreferredContactMethod string
}

// UpdateGuestRequest carries optional profile changes. Nil fields are left alone.
type UpdateGuestRequest struct {
	GuestID                uuid.UUID
	UpdatedBy              uuid.UUID
	Name                   *string
	Email                  *string
	Phone                  *string
	Address                *string
	Notes                  *string
	DietaryRequirements    *string
	PreferredContactMethod *string
}

// GuestService manages guest profiles. Rollup fields are never written here
// except through RollupGuest.
type GuestService struct {
	store GuestAdminStore
	audit *AuditRecorder
	stats StatsInvalidator
}

// NewGuestService creates a new GuestService.
func NewGuestService(store GuestAdminStore, audit *AuditRecorder) *GuestService {
	return &GuestService{store: store, audit: audit}
}

// SetStatsInvalidator registers the cache to clear after guest writes.
func (s *GuestService) SetStatsInvalidator(inv StatsInvalidator) {
	s.stats = inv
}

func (s *GuestService) CreateGuest(ctx context.Context, req CreateGuestRequest) (database.Guest, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return database.Guest{}, ErrGuestNameRequired
	}
	email := NormalizeEmail(req.Email)
	if email == "" {
		return database.Guest{}, ErrGuestEmailRequired
	}
	if !emailPattern.MatchString(email) {
		return database.Guest{}, ErrInvalidEmail
	}
	contact, err := contactMethod(req.PreferredContactMethod)
	if err != nil {
		return database.Guest{}, err
	}

	if _, err := s.store.GetActiveGuestByEmail(ctx, email); err == nil {
		return database.Guest{}, ErrGuestEmailExists
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return database.Guest{}, fmt.Errorf("find guest by email: %w", err)
	}

	g, err := s.store.CreateGuest(ctx, database.CreateGuestParams{
		Name:                   name,
		Email:                  email,
		Phone:                  strings.TrimSpace(req.Phone),
		Address:                strings.TrimSpace(req.Address),
		Notes:                  textToPg(strings.TrimSpace(req.Notes)),
		DietaryRequirements:    textToPg(strings.TrimSpace(req.DietaryRequirements)),
		PreferredContactMethod: contact,
		CreatedBy:              req.CreatedBy,
	})
	if err != nil {
		if isUniqueViolation(err, guestEmailConstraint) {
			return database.Guest{}, ErrGuestEmailExists
		}
		return database.Guest{}, fmt.Errorf("create guest: %w", err)
	}

	invalidateStats(ctx, s.stats)
	s.audit.Record(ctx, AuditEntry{
		EntityType:  enum.EntityTypeGuest,
		EntityID:    g.ID,
		ChangeType:  enum.ChangeTypeCreate,
		ChangedBy:   req.CreatedBy,
		Description: "Guest " + g.Name + " created",
	})
	return g, nil
}

// GetGuest returns a non-deleted guest.
func (s *GuestService) GetGuest(ctx context.Context, id uuid.UUID) (database.Guest, error) {
	g, err := s.store.GetGuest(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Guest{}, ErrGuestNotFound
		}
		return database.Guest{}, fmt.Errorf("get guest: %w", err)
	}
	if g.IsDeleted {
		return database.Guest{}, ErrGuestNotFound
	}
	return g, nil
}

// ListGuests pages through non-deleted guests, optionally filtered by a
// substring of name, email or phone.
func (s *GuestService) ListGuests(ctx context.Context, search string, limit, offset int32) ([]database.Guest, int64, error) {
	filter := textToPg(strings.TrimSpace(search))
	guests, err := s.store.ListGuests(ctx, database.ListGuestsParams{
		Search: filter,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list guests: %w", err)
	}
	total, err := s.store.CountGuests(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count guests: %w", err)
	}
	return guests, total, nil
}

// SearchGuests is the quick lookup used while taking an order.
func (s *GuestService) SearchGuests(ctx context.Context, q string) ([]database.Guest, error) {
	q = strings.TrimSpace(q)
	if len([]rune(q)) < 2 {
		return nil, ErrSearchTooShort
	}
	guests, err := s.store.SearchGuests(ctx, database.SearchGuestsParams{
		Query: q,
		Limit: guestSearchLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("search guests: %w", err)
	}
	return guests, nil
}

func (s *GuestService) UpdateGuest(ctx context.Context, req UpdateGuestRequest) (database.Guest, error) {
	g, err := s.store.GetGuest(ctx, req.GuestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Guest{}, ErrGuestNotFound
		}
		return database.Guest{}, fmt.Errorf("get guest: %w", err)
	}
	if g.IsDeleted {
		return database.Guest{}, ErrGuestDeleted
	}

	params := database.UpdateGuestParams{
		ID:                     g.ID,
		Name:                   g.Name,
		Email:                  g.Email,
		Phone:                  g.Phone,
		Address:                g.Address,
		Notes:                  g.Notes,
		DietaryRequirements:    g.DietaryRequirements,
		PreferredContactMethod: g.PreferredContactMethod,
		LastModifiedBy:         req.UpdatedBy,
	}
	var changes []FieldChange
	setString := func(field string, dst *string, v *string) {
		if v == nil {
			return
		}
		nv := strings.TrimSpace(*v)
		if nv != *dst {
			changes = append(changes, FieldChange{Field: field, OldValue: *dst, NewValue: nv})
			*dst = nv
		}
	}
	setText := func(field string, dst *pgtype.Text, v *string) {
		if v == nil {
			return
		}
		nv := textToPg(strings.TrimSpace(*v))
		if nv != *dst {
			changes = append(changes, FieldChange{Field: field, OldValue: dst.String, NewValue: nv.String})
			*dst = nv
		}
	}

	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return database.Guest{}, ErrGuestNameRequired
	}
	setString("name", &params.Name, req.Name)

	if req.Email != nil {
		email := NormalizeEmail(*req.Email)
		if email == "" {
			return database.Guest{}, ErrGuestEmailRequired
		}
		if !emailPattern.MatchString(email) {
			return database.Guest{}, ErrInvalidEmail
		}
		if email != g.Email {
			other, err := s.store.GetActiveGuestByEmail(ctx, email)
			if err == nil && other.ID != g.ID {
				return database.Guest{}, ErrGuestEmailExists
			}
			if err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return database.Guest{}, fmt.Errorf("find guest by email: %w", err)
			}
		}
		setString("email", &params.Email, &email)
	}
	setString("phone", &params.Phone, req.Phone)
	setString("address", &params.Address, req.Address)
	setText("notes", &params.Notes, req.Notes)
	setText("dietary_requirements", &params.DietaryRequirements, req.DietaryRequirements)
	if req.PreferredContactMethod != nil {
		contact, err := contactMethod(*req.PreferredContactMethod)
		if err != nil {
			return database.Guest{}, err
		}
		setString("preferred_contact_method", &params.PreferredContactMethod, &contact)
	}

	if len(changes) == 0 {
		return g, nil
	}

	updated, err := s.store.UpdateGuest(ctx, params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Guest{}, ErrGuestDeleted
		}
		if isUniqueViolation(err, guestEmailConstraint) {
			return database.Guest{}, ErrGuestEmailExists
		}
		return database.Guest{}, fmt.Errorf("update guest: %w", err)
	}

	s.audit.Record(ctx, AuditEntry{
		EntityType: enum.EntityTypeGuest,
		EntityID:   updated.ID,
		ChangeType: enum.ChangeTypeUpdate,
		ChangedBy:  req.UpdatedBy,
		Changes:    changes,
	})
	return updated, nil
}

// DeleteGuest soft-deletes a guest that has no active orders.
func (s *GuestService) DeleteGuest(ctx context.Context, id, deletedBy uuid.UUID) error {
	g, err := s.store.GetGuest(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrGuestNotFound
		}
		return fmt.Errorf("get guest: %w", err)
	}
	if g.IsDeleted {
		return ErrGuestDeleted
	}

	n, err := s.store.CountActiveOrdersByGuest(ctx, id)
	if err != nil {
		return fmt.Errorf("count guest orders: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("%d order(s): %w", n, ErrGuestHasOrders)
	}

	if _, err := s.store.SoftDeleteGuest(ctx, database.SoftDeleteGuestParams{
		ID:             id,
		LastModifiedBy: deletedBy,
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrGuestDeleted
		}
		return fmt.Errorf("delete guest: %w", err)
	}

	invalidateStats(ctx, s.stats)
	s.audit.Record(ctx, AuditEntry{
		EntityType:  enum.EntityTypeGuest,
		EntityID:    id,
		ChangeType:  enum.ChangeTypeDelete,
		ChangedBy:   deletedBy,
		Changes:     []FieldChange{{Field: "is_deleted", OldValue: false, NewValue: true}},
		Description: "Guest " + g.Name + " deleted",
	})
	return nil
}

// Rollup recomputes one guest's statistics.
func (s *GuestService) Rollup(ctx context.Context, guestID uuid.UUID) error {
	return RollupGuest(ctx, s.store, guestID)
}

// RollupAll recomputes statistics for every non-deleted guest and returns
// how many were processed.
func (s *GuestService) RollupAll(ctx context.Context) (int, error) {
	ids, err := s.store.ListActiveGuestIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list guests: %w", err)
	}
	for _, id := range ids {
		if err := RollupGuest(ctx, s.store, id); err != nil {
			return 0, fmt.Errorf("rollup guest %s: %w", id, err)
		}
	}
	return len(ids), nil
}

// LinkUnassignedOrders attaches orders that predate guest profiles to a
// profile found or created from their snapshot email, then rolls up every
// guest touched. Orders without an email are left alone.
func (s *GuestService) LinkUnassignedOrders(ctx context.Context, actor uuid.UUID) (int, error) {
	orders, err := s.store.ListUnlinkedOrders(ctx)
	if err != nil {
		return 0, fmt.Errorf("list unlinked orders: %w", err)
	}

	touched := map[uuid.UUID]struct{}{}
	var guestIDs []uuid.UUID
	linked := 0
	for _, row := range orders {
		o, err := orderFromRow(row)
		if err != nil {
			return linked, err
		}
		if NormalizeEmail(o.GuestDetails.Email) == "" {
			continue
		}

		res, err := ResolveGuest(ctx, s.store, GuestRef{Details: o.GuestDetails, Actor: actor})
		if err != nil {
			log.Printf("WARN: link order %s: %v", o.OrderNumber, err)
			continue
		}
		if res.Guest == nil {
			continue
		}

		o.GuestID = &res.Guest.ID
		o.GuestDetails = res.Details
		docs, err := encodeOrder(o)
		if err != nil {
			return linked, err
		}
		if _, err := s.store.SetOrderGuest(ctx, database.SetOrderGuestParams{
			ID:           o.ID,
			GuestID:      uuidToPg(o.GuestID),
			GuestDetails: docs.guestDetails,
		}); err != nil {
			return linked, fmt.Errorf("link order %s: %w", o.OrderNumber, err)
		}
		linked++

		if _, ok := touched[res.Guest.ID]; !ok {
			touched[res.Guest.ID] = struct{}{}
			guestIDs = append(guestIDs, res.Guest.ID)
		}
	}

	for _, id := range guestIDs {
		if err := RollupGuest(ctx, s.store, id); err != nil {
			return linked, fmt.Errorf("rollup guest %s: %w", id, err)
		}
	}
	if linked > 0 {
		invalidateStats(ctx, s.stats)
	}
	return linked, nil
}

func contactMethod(s string) (string, error) {
	switch strings.TrimSpace(s) {
	case "":
		return enum.ContactMethodEmail, nil
	case enum.ContactMethodEmail, enum.ContactMethodPhone:
		return strings.TrimSpace(s), nil
	}
	return "", ErrInvalidContactMethod
}
