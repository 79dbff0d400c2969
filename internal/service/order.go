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

var collectionTimePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// errUnchanged tells applyMutation to skip the write.
var errUnchanged = errors.New("unchanged")

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to mutate orders.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GuestStore
	SequenceStore
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	UpdateOrder(ctx context.Context, arg database.UpdateOrderParams) (database.Order, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// OrderReader defines the pool-backed reads of the order service.
type OrderReader interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	CountOrders(ctx context.Context, arg database.CountOrdersParams) (int64, error)
	ListChangeLogsByEntity(ctx context.Context, arg database.ListChangeLogsByEntityParams) ([]database.ChangeLog, error)
}

// StatsInvalidator drops memoized analytics after a committed write.
type StatsInvalidator interface {
	Invalidate(ctx context.Context) error
}

// CreateOrderRequest is the input for creating an order.
type CreateOrderRequest struct {
	CreatedBy        uuid.UUID
	GuestID          string
	GuestDetails     GuestDetails
	CollectionPerson *CollectionPerson
	Items            []OrderItemInput
	CollectionDate   string // YYYY-MM-DD or RFC3339
	CollectionTime   string // HH:MM
	PaymentMethod    string
	Note             string
}

// OrderItemInput is a single line of an order. ID is only meaningful on
// update, where it keeps the identity and status of an existing line.
type OrderItemInput struct {
	ID          string
	MenuItemID  string
	Name        string
	ServingSize string
	Quantity    int32
	Price       string
	Status      string
	Notes       string
}

// UpdateOrderRequest carries optional field changes. Nil fields are left
// alone; a non-nil Items replaces every line.
type UpdateOrderRequest struct {
	OrderID          uuid.UUID
	UpdatedBy        uuid.UUID
	GuestID          *string
	GuestDetails     *GuestDetails
	CollectionPerson *CollectionPerson
	Items            []OrderItemInput
	CollectionDate   *string
	CollectionTime   *string
	PaymentMethod    *string
}

type ChangeStatusRequest struct {
	OrderID   uuid.UUID
	ChangedBy uuid.UUID
	Status    string
	Note      string
}

type RecordPaymentRequest struct {
	OrderID    uuid.UUID
	ReceivedBy uuid.UUID
	Amount     string
	Method     string
	Note       string
}

type UpdateItemRequest struct {
	OrderID   uuid.UUID
	ItemID    uuid.UUID
	UpdatedBy uuid.UUID
	Status    *string
	Notes     *string
}

type DeleteOrderRequest struct {
	OrderID   uuid.UUID
	DeletedBy uuid.UUID
	Note      string
}

// OrderFilter narrows ListOrders.
type OrderFilter struct {
	Status         string
	GuestID        *uuid.UUID
	CollectionFrom *time.Time
	CollectionTo   *time.Time
	IncludeDeleted bool
	Limit          int32
	Offset         int32
}

// OrderService handles order business logic.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
	reader   OrderReader
	audit    *AuditRecorder
	stats    StatsInvalidator
	loc      *time.Location
	now      func() time.Time
}

// NewOrderService creates a new OrderService. loc is used to read
// date-only collection dates.
func NewOrderService(pool TxBeginner, newStore NewOrderStore, reader OrderReader, audit *AuditRecorder, loc *time.Location) *OrderService {
	if loc == nil {
		loc = time.UTC
	}
	return &OrderService{
		pool:     pool,
		newStore: newStore,
		reader:   reader,
		audit:    audit,
		loc:      loc,
		now:      time.Now,
	}
}

// SetStatsInvalidator registers the cache to clear after order writes.
func (s *OrderService) SetStatsInvalidator(inv StatsInvalidator) {
	s.stats = inv
}

// orderDraft is a validated create request.
type orderDraft struct {
	req              CreateOrderRequest
	items            []OrderItem
	total            decimal.Decimal
	collectionDate   time.Time
	collectionTime   string
	paymentMethod    string
	collectionPerson *CollectionPerson
	note             string
}

// CreateOrder validates the request and creates the order atomically:
// guest resolution, numbering, insert and guest rollup share one transaction.
// A numbering collision returns ErrOrderNumberConflict; retrying is the
// caller's decision.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	draft, err := s.prepareOrder(req)
	if err != nil {
		return nil, err
	}

	// --- Begin transaction ---
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	row, res, err := s.insertOrder(ctx, s.newStore(tx), draft)
	if err != nil {
		return nil, err
	}

	// --- Commit ---
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	order, err := orderFromRow(row)
	if err != nil {
		return nil, err
	}
	s.afterCreate(ctx, order, res, draft.note)
	return order, nil
}

func (s *OrderService) prepareOrder(req CreateOrderRequest) (*orderDraft, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	items, total, err := buildItems(req.Items, nil)
	if err != nil {
		return nil, err
	}

	if req.GuestID == "" && strings.TrimSpace(req.GuestDetails.Name) == "" {
		return nil, ErrGuestRequired
	}

	collectionDate, err := parseCollectionDate(req.CollectionDate, s.loc)
	if err != nil {
		return nil, err
	}
	if !collectionTimePattern.MatchString(req.CollectionTime) {
		return nil, ErrInvalidCollectionTime
	}
	if !enum.IsPaymentMethod(req.PaymentMethod) {
		return nil, ErrInvalidPaymentMethod
	}

	note := strings.TrimSpace(req.Note)
	if note == "" {
		note = "Order created"
	}

	return &orderDraft{
		req:              req,
		items:            items,
		total:            total,
		collectionDate:   collectionDate,
		collectionTime:   req.CollectionTime,
		paymentMethod:    req.PaymentMethod,
		collectionPerson: req.CollectionPerson,
		note:             note,
	}, nil
}

// insertOrder runs the transactional part of order creation on store.
func (s *OrderService) insertOrder(ctx context.Context, store OrderStore, d *orderDraft) (database.Order, GuestResolution, error) {
	// --- Resolve guest ---
	res, err := ResolveGuest(ctx, store, GuestRef{
		GuestID: d.req.GuestID,
		Details: d.req.GuestDetails,
		Actor:   d.req.CreatedBy,
	})
	if err != nil {
		return database.Order{}, GuestResolution{}, err
	}

	// --- Generate order number ---
	number, err := nextOrderNumber(ctx, store)
	if err != nil {
		return database.Order{}, GuestResolution{}, err
	}

	now := s.now()
	order := &Order{
		OrderNumber:      number,
		GuestDetails:     res.Details,
		CollectionPerson: collectionPersonOrDefault(d.collectionPerson, res.Details),
		Items:            d.items,
		TotalAmount:      d.total,
		CollectionDate:   d.collectionDate,
		CollectionTime:   d.collectionTime,
		Status:           enum.OrderStatusPending,
		StatusHistory: []StatusEntry{{
			Status:    enum.OrderStatusPending,
			ChangedBy: d.req.CreatedBy,
			ChangedAt: now,
			Note:      d.note,
		}},
		PaymentMethod:  d.paymentMethod,
		PaymentRecords: []PaymentRecord{},
		TotalPaid:      decimal.Zero,
		CreatedBy:      d.req.CreatedBy,
	}
	if res.Guest != nil {
		order.GuestID = &res.Guest.ID
	}
	order.PaymentStatus = settlePaymentStatus(order)

	// --- Insert order ---
	params, err := createOrderParams(order)
	if err != nil {
		return database.Order{}, GuestResolution{}, err
	}
	row, err := store.CreateOrder(ctx, params)
	if err != nil {
		if isOrderNumberConflict(err) {
			return database.Order{}, GuestResolution{}, fmt.Errorf("create order %s: %w", number, ErrOrderNumberConflict)
		}
		return database.Order{}, GuestResolution{}, fmt.Errorf("create order: %w", err)
	}

	// --- Guest rollup ---
	if order.GuestID != nil {
		if err := RollupGuest(ctx, store, *order.GuestID); err != nil {
			return database.Order{}, GuestResolution{}, err
		}
	}
	return row, res, nil
}

func (s *OrderService) afterCreate(ctx context.Context, order *Order, res GuestResolution, note string) {
	invalidateStats(ctx, s.stats)
	if res.Created {
		s.audit.Record(ctx, AuditEntry{
			EntityType:  enum.EntityTypeGuest,
			EntityID:    res.Guest.ID,
			ChangeType:  enum.ChangeTypeCreate,
			ChangedBy:   order.CreatedBy,
			Description: "Guest created from order " + order.OrderNumber,
		})
	}
	s.audit.Record(ctx, AuditEntry{
		EntityType:  enum.EntityTypeOrder,
		EntityID:    order.ID,
		ChangeType:  enum.ChangeTypeCreate,
		ChangedBy:   order.CreatedBy,
		Description: fmt.Sprintf("Order %s created: %s", order.OrderNumber, note),
	})
}

// UpdateOrder applies field changes to a non-deleted order. Replacing items
// recomputes the total from scratch; changing the guest re-resolves the
// linkage and rolls up both the old and the new guest.
func (s *OrderService) UpdateOrder(ctx context.Context, req UpdateOrderRequest) (*Order, error) {
	if req.Items != nil && len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if req.GuestDetails != nil && req.GuestID == nil && strings.TrimSpace(req.GuestDetails.Name) == "" {
		return nil, ErrGuestRequired
	}
	var collectionDate time.Time
	if req.CollectionDate != nil {
		d, err := parseCollectionDate(*req.CollectionDate, s.loc)
		if err != nil {
			return nil, err
		}
		collectionDate = d
	}
	if req.CollectionTime != nil && !collectionTimePattern.MatchString(*req.CollectionTime) {
		return nil, ErrInvalidCollectionTime
	}
	if req.PaymentMethod != nil && !enum.IsPaymentMethod(*req.PaymentMethod) {
		return nil, ErrInvalidPaymentMethod
	}

	var created []GuestResolution
	var changes []FieldChange

	before, after, err := s.applyMutation(ctx, req.OrderID, true, func(ctx context.Context, store OrderStore, prev, o *Order) error {
		if o.IsDeleted {
			return ErrOrderDeleted
		}

		// --- Guest linkage ---
		switch {
		case req.GuestID != nil && *req.GuestID == "":
			o.GuestID = nil
			if req.GuestDetails != nil {
				o.GuestDetails = trimDetails(*req.GuestDetails)
			}
		case req.GuestID != nil || req.GuestDetails != nil:
			ref := GuestRef{Actor: req.UpdatedBy}
			if req.GuestID != nil {
				ref.GuestID = *req.GuestID
			}
			if req.GuestDetails != nil {
				ref.Details = *req.GuestDetails
			}
			res, err := ResolveGuest(ctx, store, ref)
			if err != nil {
				return err
			}
			o.GuestDetails = res.Details
			o.GuestID = nil
			if res.Guest != nil {
				o.GuestID = &res.Guest.ID
			}
			if res.Created {
				created = append(created, res)
			}
		}

		if req.CollectionPerson != nil {
			o.CollectionPerson = *req.CollectionPerson
		}

		// --- Items ---
		if req.Items != nil {
			items, total, err := buildItems(req.Items, o.Items)
			if err != nil {
				return err
			}
			o.Items = items
			o.TotalAmount = total
			o.PaymentStatus = settlePaymentStatus(o)
		}

		if req.CollectionDate != nil {
			o.CollectionDate = collectionDate
		}
		if req.CollectionTime != nil {
			o.CollectionTime = *req.CollectionTime
		}
		if req.PaymentMethod != nil {
			o.PaymentMethod = *req.PaymentMethod
		}

		changes = diffOrders(prev, o)
		if len(changes) == 0 {
			return errUnchanged
		}
		o.LastModifiedBy = req.UpdatedBy
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return before, nil
	}

	for _, res := range created {
		s.audit.Record(ctx, AuditEntry{
			EntityType:  enum.EntityTypeGuest,
			EntityID:    res.Guest.ID,
			ChangeType:  enum.ChangeTypeCreate,
			ChangedBy:   req.UpdatedBy,
			Description: "Guest created from order " + after.OrderNumber,
		})
	}
	s.audit.Record(ctx, AuditEntry{
		EntityType:  enum.EntityTypeOrder,
		EntityID:    after.ID,
		ChangeType:  enum.ChangeTypeUpdate,
		ChangedBy:   req.UpdatedBy,
		Changes:     changes,
		Description: "Order " + after.OrderNumber + " updated",
	})
	return after, nil
}

// ChangeStatus moves an order to any defined status except deleted, which
// only DeleteOrder may set because it also flags the order and rolls up its
// guest. Transitions are otherwise unrestricted so staff can correct
// mistakes.
func (s *OrderService) ChangeStatus(ctx context.Context, req ChangeStatusRequest) (*Order, error) {
	if !enum.IsOrderStatus(req.Status) {
		return nil, ErrInvalidStatus
	}
	if req.Status == enum.OrderStatusDeleted {
		return nil, ErrStatusRequiresDelete
	}

	before, after, err := s.applyMutation(ctx, req.OrderID, false, func(_ context.Context, _ OrderStore, _, o *Order) error {
		if o.IsDeleted {
			return ErrOrderDeleted
		}
		o.Status = req.Status
		o.StatusHistory = append(o.StatusHistory, StatusEntry{
			Status:    req.Status,
			ChangedBy: req.ChangedBy,
			ChangedAt: s.now(),
			Note:      strings.TrimSpace(req.Note),
		})
		o.PaymentStatus = settlePaymentStatus(o)
		o.LastModifiedBy = req.ChangedBy
		return nil
	})
	if err != nil {
		return nil, err
	}

	changes := []FieldChange{{Field: "status", OldValue: before.Status, NewValue: after.Status}}
	if before.PaymentStatus != after.PaymentStatus {
		changes = append(changes, FieldChange{Field: "payment_status", OldValue: before.PaymentStatus, NewValue: after.PaymentStatus})
	}
	desc := strings.TrimSpace(req.Note)
	if desc == "" {
		desc = fmt.Sprintf("Status changed from %s to %s", before.Status, after.Status)
	}
	s.audit.Record(ctx, AuditEntry{
		EntityType:  enum.EntityTypeOrder,
		EntityID:    after.ID,
		ChangeType:  enum.ChangeTypeStatusChange,
		ChangedBy:   req.ChangedBy,
		Changes:     changes,
		Description: desc,
	})
	return after, nil
}

// RecordPayment appends a payment and re-derives the payment status.
func (s *OrderService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*Order, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil || !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !enum.IsPaymentMethod(req.Method) {
		return nil, ErrInvalidPaymentMethod
	}

	var record PaymentRecord
	before, after, err := s.applyMutation(ctx, req.OrderID, false, func(_ context.Context, _ OrderStore, _, o *Order) error {
		if o.IsDeleted {
			return ErrOrderDeleted
		}
		record = PaymentRecord{
			ID:         uuid.New(),
			Amount:     amount,
			Method:     req.Method,
			ReceivedBy: req.ReceivedBy,
			ReceivedAt: s.now(),
			Note:       strings.TrimSpace(req.Note),
		}
		o.PaymentRecords = append(o.PaymentRecords, record)
		o.TotalPaid = sumPayments(o.PaymentRecords)
		o.PaymentStatus = settlePaymentStatus(o)
		o.LastModifiedBy = req.ReceivedBy
		return nil
	})
	if err != nil {
		return nil, err
	}

	changes := []FieldChange{{Field: "total_paid", OldValue: before.TotalPaid.StringFixed(2), NewValue: after.TotalPaid.StringFixed(2)}}
	if before.PaymentStatus != after.PaymentStatus {
		changes = append(changes, FieldChange{Field: "payment_status", OldValue: before.PaymentStatus, NewValue: after.PaymentStatus})
	}
	s.audit.Record(ctx, AuditEntry{
		EntityType:  enum.EntityTypeOrder,
		EntityID:    after.ID,
		ChangeType:  enum.ChangeTypePaymentAdd,
		ChangedBy:   req.ReceivedBy,
		Changes:     changes,
		Description: fmt.Sprintf("Payment of %s via %s recorded", record.Amount.StringFixed(2), record.Method),
	})
	return after, nil
}

// UpdateItem changes one line's status or notes. Totals are untouched.
func (s *OrderService) UpdateItem(ctx context.Context, req UpdateItemRequest) (*Order, error) {
	if req.Status != nil && !enum.IsItemStatus(*req.Status) {
		return nil, ErrInvalidItemStatus
	}

	var changes []FieldChange
	var itemName string
	_, after, err := s.applyMutation(ctx, req.OrderID, false, func(_ context.Context, _ OrderStore, _, o *Order) error {
		if o.IsDeleted {
			return ErrOrderDeleted
		}
		idx := -1
		for i := range o.Items {
			if o.Items[i].ID == req.ItemID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ErrItemNotFound
		}

		item := &o.Items[idx]
		itemName = item.Name + " - " + item.ServingSize
		if req.Status != nil && *req.Status != item.Status {
			changes = append(changes, FieldChange{Field: "items." + item.ID.String() + ".status", OldValue: item.Status, NewValue: *req.Status})
			item.Status = *req.Status
		}
		if req.Notes != nil {
			notes := strings.TrimSpace(*req.Notes)
			if notes != item.Notes {
				changes = append(changes, FieldChange{Field: "items." + item.ID.String() + ".notes", OldValue: item.Notes, NewValue: notes})
				item.Notes = notes
			}
		}
		if len(changes) == 0 {
			return errUnchanged
		}
		o.LastModifiedBy = req.UpdatedBy
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return after, nil
	}

	s.audit.Record(ctx, AuditEntry{
		EntityType:  enum.EntityTypeOrder,
		EntityID:    after.ID,
		ChangeType:  enum.ChangeTypeItemUpdate,
		ChangedBy:   req.UpdatedBy,
		Changes:     changes,
		Description: "Item " + itemName + " updated",
	})
	return after, nil
}

// DeleteOrder soft-deletes an order. Deleting an already deleted order
// returns it unchanged.
func (s *OrderService) DeleteOrder(ctx context.Context, req DeleteOrderRequest) (*Order, error) {
	note := strings.TrimSpace(req.Note)
	if note == "" {
		note = "Order deleted"
	}

	deleted := false
	before, after, err := s.applyMutation(ctx, req.OrderID, true, func(_ context.Context, _ OrderStore, _, o *Order) error {
		if o.IsDeleted {
			return errUnchanged
		}
		o.IsDeleted = true
		o.Status = enum.OrderStatusDeleted
		o.StatusHistory = append(o.StatusHistory, StatusEntry{
			Status:    enum.OrderStatusDeleted,
			ChangedBy: req.DeletedBy,
			ChangedAt: s.now(),
			Note:      note,
		})
		o.LastModifiedBy = req.DeletedBy
		deleted = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !deleted {
		return before, nil
	}

	s.audit.Record(ctx, AuditEntry{
		EntityType: enum.EntityTypeOrder,
		EntityID:   after.ID,
		ChangeType: enum.ChangeTypeDelete,
		ChangedBy:  req.DeletedBy,
		Changes: []FieldChange{
			{Field: "is_deleted", OldValue: false, NewValue: true},
			{Field: "status", OldValue: before.Status, NewValue: after.Status},
		},
		Description: note,
	})
	return after, nil
}

// applyMutation locks the order row, lets fn edit the decoded order, writes
// the whole record back and commits. fn gets the untouched order as prev.
// When rollup is set, the guests linked before and after the edit are
// recomputed in the same transaction. fn may return errUnchanged to skip the
// write; before and after are then equal.
func (s *OrderService) applyMutation(ctx context.Context, id uuid.UUID, rollup bool, fn func(ctx context.Context, store OrderStore, prev, o *Order) error) (*Order, *Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	row, err := store.GetOrderForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrOrderNotFound
		}
		return nil, nil, fmt.Errorf("get order: %w", err)
	}
	before, err := orderFromRow(row)
	if err != nil {
		return nil, nil, err
	}
	o, err := orderFromRow(row)
	if err != nil {
		return nil, nil, err
	}
	if err := fn(ctx, store, before, o); err != nil {
		if errors.Is(err, errUnchanged) {
			return before, before, nil
		}
		return nil, nil, err
	}

	params, err := updateOrderParams(o)
	if err != nil {
		return nil, nil, err
	}
	updated, err := store.UpdateOrder(ctx, params)
	if err != nil {
		return nil, nil, fmt.Errorf("update order: %w", err)
	}

	if rollup {
		for _, gid := range affectedGuests(before.GuestID, o.GuestID) {
			if err := RollupGuest(ctx, store, gid); err != nil {
				return nil, nil, err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit tx: %w", err)
	}

	after, err := orderFromRow(updated)
	if err != nil {
		return nil, nil, err
	}
	invalidateStats(ctx, s.stats)
	return before, after, nil
}

// --- Reads ---

// GetOrder returns an order by id, deleted or not.
func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	row, err := s.reader.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return orderFromRow(row)
}

// ListOrders returns a page of orders, newest first, and the total count
// matching the filter.
func (s *OrderService) ListOrders(ctx context.Context, f OrderFilter) ([]*Order, int64, error) {
	if f.Status != "" && !enum.IsOrderStatus(f.Status) {
		return nil, 0, ErrInvalidStatus
	}

	status := textToPg(f.Status)
	guestID := uuidToPg(f.GuestID)
	from := pgtype.Timestamptz{}
	if f.CollectionFrom != nil {
		from = pgtype.Timestamptz{Time: *f.CollectionFrom, Valid: true}
	}
	to := pgtype.Timestamptz{}
	if f.CollectionTo != nil {
		to = pgtype.Timestamptz{Time: *f.CollectionTo, Valid: true}
	}

	rows, err := s.reader.ListOrders(ctx, database.ListOrdersParams{
		Status:         status,
		GuestID:        guestID,
		CollectionFrom: from,
		CollectionTo:   to,
		IncludeDeleted: f.IncludeDeleted,
		Limit:          f.Limit,
		Offset:         f.Offset,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	total, err := s.reader.CountOrders(ctx, database.CountOrdersParams{
		Status:         status,
		GuestID:        guestID,
		CollectionFrom: from,
		CollectionTo:   to,
		IncludeDeleted: f.IncludeDeleted,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	orders := make([]*Order, 0, len(rows))
	for _, row := range rows {
		o, err := orderFromRow(row)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, o)
	}
	return orders, total, nil
}

// ListChangeLogs returns an order's change history, newest first.
func (s *OrderService) ListChangeLogs(ctx context.Context, orderID uuid.UUID) ([]ChangeLog, error) {
	if _, err := s.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	rows, err := s.reader.ListChangeLogsByEntity(ctx, database.ListChangeLogsByEntityParams{
		EntityType: enum.EntityTypeOrder,
		EntityID:   orderID,
	})
	if err != nil {
		return nil, fmt.Errorf("list change logs: %w", err)
	}
	logs := make([]ChangeLog, 0, len(rows))
	for _, row := range rows {
		cl, err := changeLogFromRow(row)
		if err != nil {
			return nil, err
		}
		logs = append(logs, cl)
	}
	return logs, nil
}

// --- Helpers ---

// buildItems validates item inputs and computes line totals and the order
// total. Lines whose ID matches one in existing keep that ID and, unless a
// new status is given, its status.
func buildItems(inputs []OrderItemInput, existing []OrderItem) ([]OrderItem, decimal.Decimal, error) {
	if len(inputs) == 0 {
		return nil, decimal.Zero, ErrEmptyItems
	}

	known := make(map[uuid.UUID]OrderItem, len(existing))
	for _, it := range existing {
		known[it.ID] = it
	}

	total := decimal.Zero
	items := make([]OrderItem, 0, len(inputs))
	for i, in := range inputs {
		if in.Quantity < 1 {
			return nil, decimal.Zero, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		name := strings.TrimSpace(in.Name)
		size := strings.TrimSpace(in.ServingSize)
		if name == "" || size == "" {
			return nil, decimal.Zero, fmt.Errorf("item[%d]: %w", i, ErrItemNameRequired)
		}
		price, err := decimal.NewFromString(strings.TrimSpace(in.Price))
		if err != nil || price.IsNegative() {
			return nil, decimal.Zero, fmt.Errorf("item[%d]: %w", i, ErrInvalidPrice)
		}
		price = price.Round(2)

		var menuItemID uuid.UUID
		if in.MenuItemID != "" {
			menuItemID, err = uuid.Parse(in.MenuItemID)
			if err != nil {
				return nil, decimal.Zero, fmt.Errorf("item[%d]: %w", i, ErrInvalidMenuItemID)
			}
		}

		item := OrderItem{
			ID:          uuid.New(),
			MenuItemID:  menuItemID,
			Name:        name,
			ServingSize: size,
			Quantity:    in.Quantity,
			Price:       price,
			TotalPrice:  price.Mul(decimal.NewFromInt32(in.Quantity)),
			Status:      enum.ItemStatusPending,
			Notes:       strings.TrimSpace(in.Notes),
		}
		if in.ID != "" {
			id, err := uuid.Parse(in.ID)
			if err != nil {
				return nil, decimal.Zero, fmt.Errorf("item[%d]: %w", i, ErrInvalidItemID)
			}
			if prev, ok := known[id]; ok {
				item.ID = prev.ID
				item.Status = prev.Status
				delete(known, id)
			}
		}
		if in.Status != "" {
			if !enum.IsItemStatus(in.Status) {
				return nil, decimal.Zero, fmt.Errorf("item[%d]: %w", i, ErrInvalidItemStatus)
			}
			item.Status = in.Status
		}

		total = total.Add(item.TotalPrice)
		items = append(items, item)
	}
	return items, total, nil
}

// DerivePaymentStatus applies the payment rule: paid once the total is
// covered, partial for any smaller positive amount, pending otherwise.
func DerivePaymentStatus(totalPaid, totalAmount decimal.Decimal) string {
	switch {
	case totalPaid.GreaterThanOrEqual(totalAmount):
		return enum.PaymentStatusPaid
	case totalPaid.IsPositive():
		return enum.PaymentStatusPartial
	default:
		return enum.PaymentStatusPending
	}
}

// settlePaymentStatus keeps refunded for refunded orders and derives the
// status otherwise.
func settlePaymentStatus(o *Order) string {
	if o.Status == enum.OrderStatusRefunded {
		return enum.PaymentStatusRefunded
	}
	return DerivePaymentStatus(o.TotalPaid, o.TotalAmount)
}

func sumPayments(records []PaymentRecord) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Amount)
	}
	return total
}

func parseCollectionDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrCollectionDateRequired
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, ErrInvalidCollectionDate
	}
	return t, nil
}

func collectionPersonOrDefault(p *CollectionPerson, g GuestDetails) CollectionPerson {
	if p != nil && strings.TrimSpace(p.Name) != "" {
		return CollectionPerson{
			Name:  strings.TrimSpace(p.Name),
			Email: strings.TrimSpace(p.Email),
			Phone: strings.TrimSpace(p.Phone),
		}
	}
	return CollectionPerson{Name: g.Name, Email: g.Email, Phone: g.Phone}
}

func affectedGuests(before, after *uuid.UUID) []uuid.UUID {
	var ids []uuid.UUID
	if before != nil {
		ids = append(ids, *before)
	}
	if after != nil && (before == nil || *after != *before) {
		ids = append(ids, *after)
	}
	return ids
}

// diffOrders lists the editable fields that differ between a and b.
func diffOrders(a, b *Order) []FieldChange {
	var changes []FieldChange
	if guestIDString(a.GuestID) != guestIDString(b.GuestID) {
		changes = append(changes, FieldChange{Field: "guest_id", OldValue: guestIDString(a.GuestID), NewValue: guestIDString(b.GuestID)})
	}
	if a.GuestDetails != b.GuestDetails {
		changes = append(changes, FieldChange{Field: "guest_details", OldValue: a.GuestDetails, NewValue: b.GuestDetails})
	}
	if a.CollectionPerson != b.CollectionPerson {
		changes = append(changes, FieldChange{Field: "collection_person", OldValue: a.CollectionPerson, NewValue: b.CollectionPerson})
	}
	if !itemsEqual(a.Items, b.Items) {
		changes = append(changes, FieldChange{Field: "items", OldValue: a.Items, NewValue: b.Items})
	}
	if !a.TotalAmount.Equal(b.TotalAmount) {
		changes = append(changes, FieldChange{Field: "total_amount", OldValue: a.TotalAmount.StringFixed(2), NewValue: b.TotalAmount.StringFixed(2)})
	}
	if !a.CollectionDate.Equal(b.CollectionDate) {
		changes = append(changes, FieldChange{Field: "collection_date", OldValue: a.CollectionDate, NewValue: b.CollectionDate})
	}
	if a.CollectionTime != b.CollectionTime {
		changes = append(changes, FieldChange{Field: "collection_time", OldValue: a.CollectionTime, NewValue: b.CollectionTime})
	}
	if a.PaymentMethod != b.PaymentMethod {
		changes = append(changes, FieldChange{Field: "payment_method", OldValue: a.PaymentMethod, NewValue: b.PaymentMethod})
	}
	if a.PaymentStatus != b.PaymentStatus {
		changes = append(changes, FieldChange{Field: "payment_status", OldValue: a.PaymentStatus, NewValue: b.PaymentStatus})
	}
	return changes
}

func itemsEqual(a, b []OrderItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.ID != y.ID || x.MenuItemID != y.MenuItemID || x.Name != y.Name ||
			x.ServingSize != y.ServingSize || x.Quantity != y.Quantity ||
			!x.Price.Equal(y.Price) || x.Status != y.Status || x.Notes != y.Notes {
			return false
		}
	}
	return true
}

func guestIDString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func invalidateStats(ctx context.Context, inv StatsInvalidator) {
	if inv == nil {
		return
	}
	if err := inv.Invalidate(ctx); err != nil {
		log.Printf("ERROR: invalidate stats cache: %v", err)
	}
}
