package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ftp-kitchen/api/internal/database"
	"github.com/ftp-kitchen/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// EnquiryStore defines the DB methods needed by the enquiry service.
// Satisfied by *database.Queries (and its WithTx variant).
type EnquiryStore interface {
	CreateEnquiry(ctx context.Context, arg database.CreateEnquiryParams) (database.Enquiry, error)
	GetEnquiry(ctx context.Context, id uuid.UUID) (database.Enquiry, error)
	GetEnquiryForUpdate(ctx context.Context, id uuid.UUID) (database.Enquiry, error)
	ListEnquiries(ctx context.Context, arg database.ListEnquiriesParams) ([]database.Enquiry, error)
	UpdateEnquiry(ctx context.Context, arg database.UpdateEnquiryParams) (database.Enquiry, error)
	MarkEnquiryConverted(ctx context.Context, arg database.MarkEnquiryConvertedParams) (database.Enquiry, error)
	DeleteEnquiry(ctx context.Context, id uuid.UUID) (int64, error)
}

// NewEnquiryStore creates an EnquiryStore from a DBTX (pool or tx).
type NewEnquiryStore func(db database.DBTX) EnquiryStore

type CreateEnquiryRequest struct {
	CreatedBy             uuid.UUID
	GuestName             string
	GuestEmail            string
	GuestPhone            string
	GuestAddress          string
	EnquiryDetails        string
	DesiredCollectionDate string
	DesiredCollectionTime string
	Notes                 string
}

// UpdateEnquiryRequest carries optional changes. Nil fields are left alone.
type UpdateEnquiryRequest struct {
	EnquiryID             uuid.UUID
	UpdatedBy             uuid.UUID
	GuestName             *string
	GuestEmail            *string
	GuestPhone            *string
	GuestAddress          *string
	EnquiryDetails        *string
	DesiredCollectionDate *string
	DesiredCollectionTime *string
	Status                *string
	Notes                 *string
}

// ConvertEnquiryRequest turns an enquiry into an order. Empty collection
// date and time fall back to the enquiry's desired ones.
type ConvertEnquiryRequest struct {
	EnquiryID      uuid.UUID
	ConvertedBy    uuid.UUID
	Items          []OrderItemInput
	CollectionDate string
	CollectionTime string
	PaymentMethod  string
}

type ConvertEnquiryResult struct {
	Enquiry database.Enquiry
	Order   *Order
}

// EnquiryService handles pre-order enquiries.
type EnquiryService struct {
	pool     TxBeginner
	newStore NewEnquiryStore
	store    EnquiryStore
	orders   *OrderService
	audit    *AuditRecorder
}

// NewEnquiryService creates a new EnquiryService. Conversion creates the
// order through orders inside the enquiry's transaction.
func NewEnquiryService(pool TxBeginner, newStore NewEnquiryStore, store EnquiryStore, orders *OrderService, audit *AuditRecorder) *EnquiryService {
	return &EnquiryService{pool: pool, newStore: newStore, store: store, orders: orders, audit: audit}
}

func (s *EnquiryService) CreateEnquiry(ctx context.Context, req CreateEnquiryRequest) (database.Enquiry, error) {
	name := strings.TrimSpace(req.GuestName)
	details := strings.TrimSpace(req.EnquiryDetails)
	if name == "" || details == "" {
		return database.Enquiry{}, ErrEnquiryDetailsRequired
	}
	email := NormalizeEmail(req.GuestEmail)
	if email != "" && !emailPattern.MatchString(email) {
		return database.Enquiry{}, ErrInvalidEmail
	}
	desired, err := s.desiredDate(req.DesiredCollectionDate)
	if err != nil {
		return database.Enquiry{}, err
	}
	if t := strings.TrimSpace(req.DesiredCollectionTime); t != "" && !collectionTimePattern.MatchString(t) {
		return database.Enquiry{}, ErrInvalidCollectionTime
	}

	e, err := s.store.CreateEnquiry(ctx, database.CreateEnquiryParams{
		GuestName:             name,
		GuestEmail:            email,
		GuestPhone:            strings.TrimSpace(req.GuestPhone),
		GuestAddress:          strings.TrimSpace(req.GuestAddress),
		EnquiryDetails:        details,
		DesiredCollectionDate: desired,
		DesiredCollectionTime: textToPg(strings.TrimSpace(req.DesiredCollectionTime)),
		Notes:                 textToPg(strings.TrimSpace(req.Notes)),
		CreatedBy:             req.CreatedBy,
	})
	if err != nil {
		return database.Enquiry{}, fmt.Errorf("create enquiry: %w", err)
	}

	s.audit.Record(ctx, AuditEntry{
		EntityType:  enum.EntityTypeEnquiry,
		EntityID:    e.ID,
		ChangeType:  enum.ChangeTypeCreate,
		ChangedBy:   req.CreatedBy,
		Description: "Enquiry from " + e.GuestName + " created",
	})
	return e, nil
}

func (s *EnquiryService) GetEnquiry(ctx context.Context, id uuid.UUID) (database.Enquiry, error) {
	e, err := s.store.GetEnquiry(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Enquiry{}, ErrEnquiryNotFound
		}
		return database.Enquiry{}, fmt.Errorf("get enquiry: %w", err)
	}
	return e, nil
}

func (s *EnquiryService) ListEnquiries(ctx context.Context, status string, limit, offset int32) ([]database.Enquiry, error) {
	if status != "" && !enum.IsEnquiryStatus(status) {
		return nil, ErrInvalidEnquiryStatus
	}
	list, err := s.store.ListEnquiries(ctx, database.ListEnquiriesParams{
		Status: textToPg(status),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list enquiries: %w", err)
	}
	return list, nil
}

// UpdateEnquiry edits an open enquiry. The converted status can only be
// reached through ConvertEnquiry.
func (s *EnquiryService) UpdateEnquiry(ctx context.Context, req UpdateEnquiryRequest) (database.Enquiry, error) {
	e, err := s.GetEnquiry(ctx, req.EnquiryID)
	if err != nil {
		return database.Enquiry{}, err
	}
	if e.Status == enum.EnquiryStatusConverted {
		return database.Enquiry{}, ErrEnquiryConverted
	}

	params := database.UpdateEnquiryParams{
		ID:                    e.ID,
		GuestName:             e.GuestName,
		GuestEmail:            e.GuestEmail,
		GuestPhone:            e.GuestPhone,
		GuestAddress:          e.GuestAddress,
		EnquiryDetails:        e.EnquiryDetails,
		DesiredCollectionDate: e.DesiredCollectionDate,
		DesiredCollectionTime: e.DesiredCollectionTime,
		Status:                e.Status,
		Notes:                 e.Notes,
		LastModifiedBy:        req.UpdatedBy,
	}
	var changes []FieldChange
	track := func(field string, old, next any) {
		if old != next {
			changes = append(changes, FieldChange{Field: field, OldValue: old, NewValue: next})
		}
	}

	if req.GuestName != nil {
		v := strings.TrimSpace(*req.GuestName)
		if v == "" {
			return database.Enquiry{}, ErrEnquiryDetailsRequired
		}
		track("guest_name", params.GuestName, v)
		params.GuestName = v
	}
	if req.GuestEmail != nil {
		v := NormalizeEmail(*req.GuestEmail)
		if v != "" && !emailPattern.MatchString(v) {
			return database.Enquiry{}, ErrInvalidEmail
		}
		track("guest_email", params.GuestEmail, v)
		params.GuestEmail = v
	}
	if req.GuestPhone != nil {
		v := strings.TrimSpace(*req.GuestPhone)
		track("guest_phone", params.GuestPhone, v)
		params.GuestPhone = v
	}
	if req.GuestAddress != nil {
		v := strings.TrimSpace(*req.GuestAddress)
		track("guest_address", params.GuestAddress, v)
		params.GuestAddress = v
	}
	if req.EnquiryDetails != nil {
		v := strings.TrimSpace(*req.EnquiryDetails)
		if v == "" {
			return database.Enquiry{}, ErrEnquiryDetailsRequired
		}
		track("enquiry_details", params.EnquiryDetails, v)
		params.EnquiryDetails = v
	}
	if req.DesiredCollectionDate != nil {
		d, err := s.desiredDate(*req.DesiredCollectionDate)
		if err != nil {
			return database.Enquiry{}, err
		}
		if d != params.DesiredCollectionDate {
			changes = append(changes, FieldChange{Field: "desired_collection_date", OldValue: timestamptzValue(params.DesiredCollectionDate), NewValue: timestamptzValue(d)})
		}
		params.DesiredCollectionDate = d
	}
	if req.DesiredCollectionTime != nil {
		v := strings.TrimSpace(*req.DesiredCollectionTime)
		if v != "" && !collectionTimePattern.MatchString(v) {
			return database.Enquiry{}, ErrInvalidCollectionTime
		}
		track("desired_collection_time", params.DesiredCollectionTime.String, v)
		params.DesiredCollectionTime = textToPg(v)
	}
	if req.Status != nil {
		if !enum.IsEnquiryStatus(*req.Status) || *req.Status == enum.EnquiryStatusConverted {
			return database.Enquiry{}, ErrInvalidEnquiryStatus
		}
		track("status", params.Status, *req.Status)
		params.Status = *req.Status
	}
	if req.Notes != nil {
		v := strings.TrimSpace(*req.Notes)
		track("notes", params.Notes.String, v)
		params.Notes = textToPg(v)
	}

	if len(changes) == 0 {
		return e, nil
	}

	updated, err := s.store.UpdateEnquiry(ctx, params)
	if err != nil {
		return database.Enquiry{}, fmt.Errorf("update enquiry: %w", err)
	}
	s.audit.Record(ctx, AuditEntry{
		EntityType: enum.EntityTypeEnquiry,
		EntityID:   updated.ID,
		ChangeType: enum.ChangeTypeUpdate,
		ChangedBy:  req.UpdatedBy,
		Changes:    changes,
	})
	return updated, nil
}

func (s *EnquiryService) DeleteEnquiry(ctx context.Context, id, deletedBy uuid.UUID) error {
	n, err := s.store.DeleteEnquiry(ctx, id)
	if err != nil {
		return fmt.Errorf("delete enquiry: %w", err)
	}
	if n == 0 {
		return ErrEnquiryNotFound
	}
	s.audit.Record(ctx, AuditEntry{
		EntityType: enum.EntityTypeEnquiry,
		EntityID:   id,
		ChangeType: enum.ChangeTypeDelete,
		ChangedBy:  deletedBy,
	})
	return nil
}

// ConvertEnquiry creates an order from the enquiry and marks it converted,
// both in one transaction.
func (s *EnquiryService) ConvertEnquiry(ctx context.Context, req ConvertEnquiryRequest) (*ConvertEnquiryResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	e, err := store.GetEnquiryForUpdate(ctx, req.EnquiryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEnquiryNotFound
		}
		return nil, fmt.Errorf("get enquiry: %w", err)
	}
	if e.Status == enum.EnquiryStatusConverted || e.ConvertedToOrder.Valid {
		return nil, ErrEnquiryConverted
	}
	if e.GuestEmail == "" || e.GuestPhone == "" || e.GuestAddress == "" {
		return nil, ErrEnquiryGuestIncomplete
	}

	collectionDate := strings.TrimSpace(req.CollectionDate)
	if collectionDate == "" && e.DesiredCollectionDate.Valid {
		collectionDate = e.DesiredCollectionDate.Time.Format(time.RFC3339)
	}
	collectionTime := strings.TrimSpace(req.CollectionTime)
	if collectionTime == "" && e.DesiredCollectionTime.Valid {
		collectionTime = e.DesiredCollectionTime.String
	}

	draft, err := s.orders.prepareOrder(CreateOrderRequest{
		CreatedBy: req.ConvertedBy,
		GuestDetails: GuestDetails{
			Name:    e.GuestName,
			Email:   e.GuestEmail,
			Phone:   e.GuestPhone,
			Address: e.GuestAddress,
		},
		Items:          req.Items,
		CollectionDate: collectionDate,
		CollectionTime: collectionTime,
		PaymentMethod:  req.PaymentMethod,
		Note:           "Converted from enquiry #" + e.ID.String(),
	})
	if err != nil {
		return nil, err
	}

	row, res, err := s.orders.insertOrder(ctx, s.orders.newStore(tx), draft)
	if err != nil {
		return nil, err
	}

	converted, err := store.MarkEnquiryConverted(ctx, database.MarkEnquiryConvertedParams{
		ID:               e.ID,
		ConvertedToOrder: pgtype.UUID{Bytes: row.ID, Valid: true},
		LastModifiedBy:   req.ConvertedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("mark enquiry converted: %w", err)
	}

	// --- Commit ---
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	order, err := orderFromRow(row)
	if err != nil {
		return nil, err
	}
	s.orders.afterCreate(ctx, order, res, draft.note)
	s.audit.Record(ctx, AuditEntry{
		EntityType: enum.EntityTypeEnquiry,
		EntityID:   e.ID,
		ChangeType: enum.ChangeTypeConvert,
		ChangedBy:  req.ConvertedBy,
		Changes: []FieldChange{
			{Field: "status", OldValue: e.Status, NewValue: converted.Status},
			{Field: "converted_to_order", OldValue: nil, NewValue: order.ID.String()},
		},
		Description: "Converted to order " + order.OrderNumber,
	})
	return &ConvertEnquiryResult{Enquiry: converted, Order: order}, nil
}

func (s *EnquiryService) desiredDate(v string) (pgtype.Timestamptz, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return pgtype.Timestamptz{}, nil
	}
	t, err := parseCollectionDate(v, s.orders.loc)
	if err != nil {
		return pgtype.Timestamptz{}, err
	}
	return pgtype.Timestamptz{Time: t, Valid: true}, nil
}

func timestamptzValue(t pgtype.Timestamptz) any {
	if !t.Valid {
		return nil
	}
	return t.Time
}
