package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, order_number, guest_id, guest_details, collection_person, items, total_amount,
    collection_date, collection_time, status, status_history, payment_method, payment_status,
    payment_records, total_paid, is_deleted, created_by, last_modified_by, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.OrderNumber,
		&i.GuestID,
		&i.GuestDetails,
		&i.CollectionPerson,
		&i.Items,
		&i.TotalAmount,
		&i.CollectionDate,
		&i.CollectionTime,
		&i.Status,
		&i.StatusHistory,
		&i.PaymentMethod,
		&i.PaymentStatus,
		&i.PaymentRecords,
		&i.TotalPaid,
		&i.IsDeleted,
		&i.CreatedBy,
		&i.LastModifiedBy,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func (q *Queries) queryOrders(ctx context.Context, sql string, args ...interface{}) ([]Order, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		i, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countActiveOrdersByGuest = `-- name: CountActiveOrdersByGuest :one
SELECT COUNT(*) FROM orders
WHERE guest_id = $1 AND NOT is_deleted
`

func (q *Queries) CountActiveOrdersByGuest(ctx context.Context, guestID uuid.UUID) (int64, error) {
	row := q.db.QueryRow(ctx, countActiveOrdersByGuest, guestID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const countOrders = `-- name: CountOrders :one
SELECT COUNT(*) FROM orders
WHERE ($1::text IS NULL OR status = $1)
  AND ($2::uuid IS NULL OR guest_id = $2)
  AND ($3::timestamptz IS NULL OR collection_date >= $3)
  AND ($4::timestamptz IS NULL OR collection_date <= $4)
  AND ($5::bool OR NOT is_deleted)
`

type CountOrdersParams struct {
	Status         pgtype.Text        `json:"status"`
	GuestID        pgtype.UUID        `json:"guest_id"`
	CollectionFrom pgtype.Timestamptz `json:"collection_from"`
	CollectionTo   pgtype.Timestamptz `json:"collection_to"`
	IncludeDeleted bool               `json:"include_deleted"`
}

func (q *Queries) CountOrders(ctx context.Context, arg CountOrdersParams) (int64, error) {
	row := q.db.QueryRow(ctx, countOrders,
		arg.Status,
		arg.GuestID,
		arg.CollectionFrom,
		arg.CollectionTo,
		arg.IncludeDeleted,
	)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (
    order_number, guest_id, guest_details, collection_person, items, total_amount,
    collection_date, collection_time, status, status_history, payment_method,
    payment_status, payment_records, total_paid, created_by, last_modified_by,
    created_at, updated_at
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15,
    clock_timestamp(), clock_timestamp()
)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	OrderNumber      string         `json:"order_number"`
	GuestID          pgtype.UUID    `json:"guest_id"`
	GuestDetails     []byte         `json:"guest_details"`
	CollectionPerson []byte         `json:"collection_person"`
	Items            []byte         `json:"items"`
	TotalAmount      pgtype.Numeric `json:"total_amount"`
	CollectionDate   time.Time      `json:"collection_date"`
	CollectionTime   string         `json:"collection_time"`
	Status           string         `json:"status"`
	StatusHistory    []byte         `json:"status_history"`
	PaymentMethod    string         `json:"payment_method"`
	PaymentStatus    string         `json:"payment_status"`
	PaymentRecords   []byte         `json:"payment_records"`
	TotalPaid        pgtype.Numeric `json:"total_paid"`
	CreatedBy        uuid.UUID      `json:"created_by"`
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.OrderNumber,
		arg.GuestID,
		arg.GuestDetails,
		arg.CollectionPerson,
		arg.Items,
		arg.TotalAmount,
		arg.CollectionDate,
		arg.CollectionTime,
		arg.Status,
		arg.StatusHistory,
		arg.PaymentMethod,
		arg.PaymentStatus,
		arg.PaymentRecords,
		arg.TotalPaid,
		arg.CreatedBy,
	)
	return scanOrder(row)
}

// GetLatestOrderNumber returns the highest well-formed order number. Rows
// whose number does not match the format sort last, newest first.
const getLatestOrderNumber = `-- name: GetLatestOrderNumber :one
SELECT order_number FROM orders
ORDER BY substring(order_number FROM '^FTP-([0-9]+)$')::bigint DESC NULLS LAST,
         created_at DESC
LIMIT 1
`

func (q *Queries) GetLatestOrderNumber(ctx context.Context) (string, error) {
	row := q.db.QueryRow(ctx, getLatestOrderNumber)
	var orderNumber string
	err := row.Scan(&orderNumber)
	return orderNumber, err
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + ` FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, getOrder, id)
	return scanOrder(row)
}

const getOrderForUpdate = `-- name: GetOrderForUpdate :one
SELECT ` + orderColumns + ` FROM orders
WHERE id = $1
FOR UPDATE
`

func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, getOrderForUpdate, id)
	return scanOrder(row)
}

const listActiveOrders = `-- name: ListActiveOrders :many
SELECT ` + orderColumns + ` FROM orders
WHERE NOT is_deleted
ORDER BY created_at ASC
`

func (q *Queries) ListActiveOrders(ctx context.Context) ([]Order, error) {
	return q.queryOrders(ctx, listActiveOrders)
}

const listActiveOrdersByCollectionDate = `-- name: ListActiveOrdersByCollectionDate :many
SELECT ` + orderColumns + ` FROM orders
WHERE NOT is_deleted
  AND collection_date >= $1
  AND collection_date <= $2
ORDER BY created_at ASC
`

type ListActiveOrdersByCollectionDateParams struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (q *Queries) ListActiveOrdersByCollectionDate(ctx context.Context, arg ListActiveOrdersByCollectionDateParams) ([]Order, error) {
	return q.queryOrders(ctx, listActiveOrdersByCollectionDate, arg.Start, arg.End)
}

const listActiveOrdersByGuest = `-- name: ListActiveOrdersByGuest :many
SELECT ` + orderColumns + ` FROM orders
WHERE guest_id = $1 AND NOT is_deleted
ORDER BY created_at ASC
`

func (q *Queries) ListActiveOrdersByGuest(ctx context.Context, guestID uuid.UUID) ([]Order, error) {
	return q.queryOrders(ctx, listActiveOrdersByGuest, guestID)
}

const listOrders = `-- name: ListOrders :many
SELECT ` + orderColumns + ` FROM orders
WHERE ($1::text IS NULL OR status = $1)
  AND ($2::uuid IS NULL OR guest_id = $2)
  AND ($3::timestamptz IS NULL OR collection_date >= $3)
  AND ($4::timestamptz IS NULL OR collection_date <= $4)
  AND ($5::bool OR NOT is_deleted)
ORDER BY created_at DESC
LIMIT $6 OFFSET $7
`

type ListOrdersParams struct {
	Status         pgtype.Text        `json:"status"`
	GuestID        pgtype.UUID        `json:"guest_id"`
	CollectionFrom pgtype.Timestamptz `json:"collection_from"`
	CollectionTo   pgtype.Timestamptz `json:"collection_to"`
	IncludeDeleted bool               `json:"include_deleted"`
	Limit          int32              `json:"limit"`
	Offset         int32              `json:"offset"`
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	return q.queryOrders(ctx, listOrders,
		arg.Status,
		arg.GuestID,
		arg.CollectionFrom,
		arg.CollectionTo,
		arg.IncludeDeleted,
		arg.Limit,
		arg.Offset,
	)
}

const listUnlinkedOrders = `-- name: ListUnlinkedOrders :many
SELECT ` + orderColumns + ` FROM orders
WHERE guest_id IS NULL AND NOT is_deleted
ORDER BY created_at ASC
`

func (q *Queries) ListUnlinkedOrders(ctx context.Context) ([]Order, error) {
	return q.queryOrders(ctx, listUnlinkedOrders)
}

const setOrderGuest = `-- name: SetOrderGuest :one
UPDATE orders
SET guest_id = $2, guest_details = $3, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

type SetOrderGuestParams struct {
	ID           uuid.UUID   `json:"id"`
	GuestID      pgtype.UUID `json:"guest_id"`
	GuestDetails []byte      `json:"guest_details"`
}

func (q *Queries) SetOrderGuest(ctx context.Context, arg SetOrderGuestParams) (Order, error) {
	row := q.db.QueryRow(ctx, setOrderGuest, arg.ID, arg.GuestID, arg.GuestDetails)
	return scanOrder(row)
}

const updateOrder = `-- name: UpdateOrder :one
UPDATE orders
SET guest_id = $2,
    guest_details = $3,
    collection_person = $4,
    items = $5,
    total_amount = $6,
    collection_date = $7,
    collection_time = $8,
    status = $9,
    status_history = $10,
    payment_method = $11,
    payment_status = $12,
    payment_records = $13,
    total_paid = $14,
    is_deleted = $15,
    last_modified_by = $16,
    updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

type UpdateOrderParams struct {
	ID               uuid.UUID      `json:"id"`
	GuestID          pgtype.UUID    `json:"guest_id"`
	GuestDetails     []byte         `json:"guest_details"`
	CollectionPerson []byte         `json:"collection_person"`
	Items            []byte         `json:"items"`
	TotalAmount      pgtype.Numeric `json:"total_amount"`
	CollectionDate   time.Time      `json:"collection_date"`
	CollectionTime   string         `json:"collection_time"`
	Status           string         `json:"status"`
	StatusHistory    []byte         `json:"status_history"`
	PaymentMethod    string         `json:"payment_method"`
	PaymentStatus    string         `json:"payment_status"`
	PaymentRecords   []byte         `json:"payment_records"`
	TotalPaid        pgtype.Numeric `json:"total_paid"`
	IsDeleted        bool           `json:"is_deleted"`
	LastModifiedBy   uuid.UUID      `json:"last_modified_by"`
}

func (q *Queries) UpdateOrder(ctx context.Context, arg UpdateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrder,
		arg.ID,
		arg.GuestID,
		arg.GuestDetails,
		arg.CollectionPerson,
		arg.Items,
		arg.TotalAmount,
		arg.CollectionDate,
		arg.CollectionTime,
		arg.Status,
		arg.StatusHistory,
		arg.PaymentMethod,
		arg.PaymentStatus,
		arg.PaymentRecords,
		arg.TotalPaid,
		arg.IsDeleted,
		arg.LastModifiedBy,
	)
	return scanOrder(row)
}
