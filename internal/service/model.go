package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ftp-kitchen/api/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// GuestDetails is the guest snapshot an order carries regardless of linkage.
type GuestDetails struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// CollectionPerson is whoever picks the order up.
type CollectionPerson struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type OrderItem struct {
	ID          uuid.UUID       `json:"id"`
	MenuItemID  uuid.UUID       `json:"menu_item_id"`
	Name        string          `json:"name"`
	ServingSize string          `json:"serving_size"`
	Quantity    int32           `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	Status      string          `json:"status"`
	Notes       string          `json:"notes,omitempty"`
}

type StatusEntry struct {
	Status    string    `json:"status"`
	ChangedBy uuid.UUID `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
	Note      string    `json:"note,omitempty"`
}

type PaymentRecord struct {
	ID         uuid.UUID       `json:"id"`
	Amount     decimal.Decimal `json:"amount"`
	Method     string          `json:"method"`
	ReceivedBy uuid.UUID       `json:"received_by"`
	ReceivedAt time.Time       `json:"received_at"`
	Note       string          `json:"note,omitempty"`
}

// Order is the decoded aggregate. Items, history and payments live in
// JSONB columns so that one row update replaces the whole document.
type Order struct {
	ID               uuid.UUID
	OrderNumber      string
	GuestID          *uuid.UUID
	GuestDetails     GuestDetails
	CollectionPerson CollectionPerson
	Items            []OrderItem
	TotalAmount      decimal.Decimal
	CollectionDate   time.Time
	CollectionTime   string
	Status           string
	StatusHistory    []StatusEntry
	PaymentMethod    string
	PaymentStatus    string
	PaymentRecords   []PaymentRecord
	TotalPaid        decimal.Decimal
	IsDeleted        bool
	CreatedBy        uuid.UUID
	LastModifiedBy   uuid.UUID
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// FieldChange is one old/new pair in a change log entry.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue any    `json:"old_value"`
	NewValue any    `json:"new_value"`
}

type ChangeLog struct {
	ID          uuid.UUID
	EntityType  string
	EntityID    uuid.UUID
	ChangeType  string
	ChangedBy   uuid.UUID
	Changes     []FieldChange
	Description string
	CreatedAt   time.Time
}

// orderDocuments holds the JSONB encodings of an order.
type orderDocuments struct {
	guestDetails     []byte
	collectionPerson []byte
	items            []byte
	statusHistory    []byte
	paymentRecords   []byte
}

func orderFromRow(row database.Order) (*Order, error) {
	o := &Order{
		ID:             row.ID,
		OrderNumber:    row.OrderNumber,
		TotalAmount:    numericToDecimal(row.TotalAmount),
		CollectionDate: row.CollectionDate,
		CollectionTime: row.CollectionTime,
		Status:         row.Status,
		PaymentMethod:  row.PaymentMethod,
		PaymentStatus:  row.PaymentStatus,
		TotalPaid:      numericToDecimal(row.TotalPaid),
		IsDeleted:      row.IsDeleted,
		CreatedBy:      row.CreatedBy,
		LastModifiedBy: row.LastModifiedBy,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
	if row.GuestID.Valid {
		id := uuid.UUID(row.GuestID.Bytes)
		o.GuestID = &id
	}

	docs := []struct {
		name string
		data []byte
		dst  any
	}{
		{"guest_details", row.GuestDetails, &o.GuestDetails},
		{"collection_person", row.CollectionPerson, &o.CollectionPerson},
		{"items", row.Items, &o.Items},
		{"status_history", row.StatusHistory, &o.StatusHistory},
		{"payment_records", row.PaymentRecords, &o.PaymentRecords},
	}
	for _, d := range docs {
		if len(d.data) == 0 {
			continue
		}
		if err := json.Unmarshal(d.data, d.dst); err != nil {
			return nil, fmt.Errorf("decode order %s %s: %w", row.OrderNumber, d.name, err)
		}
	}
	if o.Items == nil {
		o.Items = []OrderItem{}
	}
	if o.StatusHistory == nil {
		o.StatusHistory = []StatusEntry{}
	}
	if o.PaymentRecords == nil {
		o.PaymentRecords = []PaymentRecord{}
	}
	return o, nil
}

func encodeOrder(o *Order) (orderDocuments, error) {
	var docs orderDocuments
	var err error
	if docs.guestDetails, err = json.Marshal(o.GuestDetails); err != nil {
		return docs, fmt.Errorf("encode guest_details: %w", err)
	}
	if docs.collectionPerson, err = json.Marshal(o.CollectionPerson); err != nil {
		return docs, fmt.Errorf("encode collection_person: %w", err)
	}
	if docs.items, err = json.Marshal(nonNil(o.Items)); err != nil {
		return docs, fmt.Errorf("encode items: %w", err)
	}
	if docs.statusHistory, err = json.Marshal(nonNil(o.StatusHistory)); err != nil {
		return docs, fmt.Errorf("encode status_history: %w", err)
	}
	if docs.paymentRecords, err = json.Marshal(nonNil(o.PaymentRecords)); err != nil {
		return docs, fmt.Errorf("encode payment_records: %w", err)
	}
	return docs, nil
}

func createOrderParams(o *Order) (database.CreateOrderParams, error) {
	docs, err := encodeOrder(o)
	if err != nil {
		return database.CreateOrderParams{}, err
	}
	return database.CreateOrderParams{
		OrderNumber:      o.OrderNumber,
		GuestID:          uuidToPg(o.GuestID),
		GuestDetails:     docs.guestDetails,
		CollectionPerson: docs.collectionPerson,
		Items:            docs.items,
		TotalAmount:      decimalToNumeric(o.TotalAmount),
		CollectionDate:   o.CollectionDate,
		CollectionTime:   o.CollectionTime,
		Status:           o.Status,
		StatusHistory:    docs.statusHistory,
		PaymentMethod:    o.PaymentMethod,
		PaymentStatus:    o.PaymentStatus,
		PaymentRecords:   docs.paymentRecords,
		TotalPaid:        decimalToNumeric(o.TotalPaid),
		CreatedBy:        o.CreatedBy,
	}, nil
}

func updateOrderParams(o *Order) (database.UpdateOrderParams, error) {
	docs, err := encodeOrder(o)
	if err != nil {
		return database.UpdateOrderParams{}, err
	}
	return database.UpdateOrderParams{
		ID:               o.ID,
		GuestID:          uuidToPg(o.GuestID),
		GuestDetails:     docs.guestDetails,
		CollectionPerson: docs.collectionPerson,
		Items:            docs.items,
		TotalAmount:      decimalToNumeric(o.TotalAmount),
		CollectionDate:   o.CollectionDate,
		CollectionTime:   o.CollectionTime,
		Status:           o.Status,
		StatusHistory:    docs.statusHistory,
		PaymentMethod:    o.PaymentMethod,
		PaymentStatus:    o.PaymentStatus,
		PaymentRecords:   docs.paymentRecords,
		TotalPaid:        decimalToNumeric(o.TotalPaid),
		IsDeleted:        o.IsDeleted,
		LastModifiedBy:   o.LastModifiedBy,
	}, nil
}

func changeLogFromRow(row database.ChangeLog) (ChangeLog, error) {
	cl := ChangeLog{
		ID:          row.ID,
		EntityType:  row.EntityType,
		EntityID:    row.EntityID,
		ChangeType:  row.ChangeType,
		ChangedBy:   row.ChangedBy,
		Description: row.Description.String,
		CreatedAt:   row.CreatedAt,
		Changes:     []FieldChange{},
	}
	if len(row.Changes) > 0 {
		if err := json.Unmarshal(row.Changes, &cl.Changes); err != nil {
			return ChangeLog{}, fmt.Errorf("decode change log %s: %w", row.ID, err)
		}
	}
	return cl, nil
}

// --- Helpers ---

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func uuidToPg(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}

func textToPg(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}

// NumericToDecimal converts a NUMERIC column for callers outside the package.
func NumericToDecimal(n pgtype.Numeric) decimal.Decimal {
	return numericToDecimal(n)
}
